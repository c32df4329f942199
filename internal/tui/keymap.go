package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig overrides selected bindings. Blank fields keep the defaults.
type KeyConfig struct {
	Filter      string
	ActivityLog string
	ToggleTheme string
	Grab        string
	Generate    string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	addCard      key.Binding
	editCard     key.Binding
	cardInfo     key.Binding
	deleteCard   key.Binding
	generate     key.Binding
	addColumn    key.Binding
	renameColumn key.Binding
	deleteColumn key.Binding
	grab         key.Binding
	filter       key.Binding
	toggleTheme  key.Binding
	activityLog  key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		addCard:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new card")),
		editCard:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit card")),
		cardInfo:     key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "card info")),
		deleteCard:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete card")),
		generate:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate prompt")),
		addColumn:    key.NewBinding(key.WithKeys("C", "shift+c"), key.WithHelp("C", "new column")),
		renameColumn: key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "rename column")),
		deleteColumn: key.NewBinding(key.WithKeys("X", "shift+x"), key.WithHelp("X", "delete column")),
		grab:         key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "grab/drop card")),
		filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		toggleTheme:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		activityLog:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "activity log")),
	}
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.filter, cfg.Filter, "/", "filter")
	configureBinding(&k.activityLog, cfg.ActivityLog, "a", "activity log")
	configureBinding(&k.toggleTheme, cfg.ToggleTheme, "t", "theme")
	configureBinding(&k.grab, cfg.Grab, "space", "grab/drop card")
	configureBinding(&k.generate, cfg.Generate, "g", "generate prompt")
}

// configureBinding rebinds b to raw, or to fallback when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys maps one configured key into the key strings bubbletea reports.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	switch {
	case raw == " " || strings.EqualFold(raw, "space"):
		return []string{" ", "space"}, "space"
	case utf8.RuneCountInString(raw) == 1:
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	default:
		return []string{strings.ToLower(raw)}, raw
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addCard, k.cardInfo, k.editCard, k.grab, k.filter, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addCard, k.editCard, k.cardInfo, k.deleteCard, k.generate, k.grab},
		{k.addColumn, k.renameColumn, k.deleteColumn, k.filter, k.toggleTheme, k.activityLog},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.reload, k.toggleHelp, k.quit},
	}
}
