package tui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddCard
	modeEditCard
	modeCardInfo
	modeConfirmAction
	modeAddColumn
	modeRenameColumn
	modeDrag
	modeFilter
	modeContextMenu
	modeActivityLog
)

// cardFieldTitle and cardFieldNotes index the card form fields.
const (
	cardFieldTitle = iota
	cardFieldNotes
)

const (
	activityLogMaxItems  = 20
	maxVisibleNotices    = 3
	doubleClickWindow    = 400 * time.Millisecond
	titleCharLimit       = 200
	notesCharLimit       = 10000
	defaultSuccessNotice = 3 * time.Second
	defaultErrorNotice   = 4 * time.Second
)

const (
	deleteCardPrompt   = "Are you sure you want to delete this task?"
	deleteColumnPrompt = "Are you sure you want to delete this column? All cards will be moved to the first column."
)

// confirmKind identifies the action behind a confirmation modal.
type confirmKind int

const (
	confirmDeleteCard confirmKind = iota + 1
	confirmDeleteColumn
)

// confirmAction describes one pending confirmation.
type confirmAction struct {
	Kind     confirmKind
	TargetID int64
	Label    string
	Message  string
}

// notice is one transient message shown above the help line.
type notice struct {
	id      int
	text    string
	isError bool
}

// menuItem is one column context menu entry.
type menuItem struct {
	id    string
	label string
}

var columnMenuItems = []menuItem{
	{id: "rename", label: "Rename"},
	{id: "delete", label: "Delete"},
}

// Model is the board TUI.
type Model struct {
	board    *app.Board
	prefs    *app.Preferences
	activity app.ActivityReader
	copyText func(string) error
	now      func() time.Time

	ready  bool
	width  int
	height int

	help help.Model
	keys keyMap

	snapshot       domain.Snapshot
	snapshotSeq    uint64
	loaded         bool
	loadErr        error
	view           app.BoardView
	selectedColumn int
	selectedCard   int

	mode   inputMode
	status string
	theme  domain.Theme

	filter      string
	filterInput textinput.Model

	titleInput    textinput.Model
	notesInput    textarea.Model
	formFocus     int
	formColumnID  int64
	editingCardID int64
	// formPending is set while the submitted card form waits for the server.
	formPending bool

	columnInput textinput.Model

	rename         app.RenameSession
	renameInput    textinput.Model
	titleOverrides map[int64]string

	confirmDelete  bool
	pendingConfirm confirmAction
	confirmChoice  int

	infoCardID int64
	markdown   *markdownRenderer

	menuColumnID int64
	menuIndex    int

	activityLog []app.ActivityEntry

	generating map[int64]bool
	dragCardID int64

	pressCardID     int64
	lastClickColumn int64
	lastClickAt     time.Time

	notices      []notice
	nextNoticeID int
	successTTL   time.Duration
	errorTTL     time.Duration
}

// loadedMsg carries one snapshot fetch result.
type loadedMsg struct {
	result app.LoadResult
	err    error
}

// actionMsg carries one board operation result.
type actionMsg struct {
	op       string
	cardID   int64
	columnID int64
	result   app.Result
	err      error
}

// noticeExpiredMsg removes one notice.
type noticeExpiredMsg struct {
	id int
}

// activityLogLoadedMsg carries persisted activity entries.
type activityLogLoadedMsg struct {
	entries []app.ActivityEntry
	err     error
}

// themeLoadedMsg carries the stored theme read at startup.
type themeLoadedMsg struct {
	theme domain.Theme
}

// themeSavedMsg reports the result of persisting a toggled theme.
type themeSavedMsg struct {
	theme domain.Theme
	err   error
}

// clipboardMsg reports the result of copying card notes.
type clipboardMsg struct {
	err error
}

// NewModel constructs the board TUI over board.
func NewModel(board *app.Board, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		board:          board,
		copyText:       clipboard.WriteAll,
		now:            time.Now,
		status:         "loading...",
		help:           h,
		keys:           newKeyMap(),
		theme:          domain.ThemeLight,
		filterInput:    newModalInput("/ ", "filter cards by title", "", 120),
		titleOverrides: map[int64]string{},
		confirmDelete:  true,
		markdown:       &markdownRenderer{},
		generating:     map[int64]bool{},
		successTTL:     defaultSuccessNotice,
		errorTTL:       defaultErrorNotice,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.rebuildView()
	return m
}

// Init loads the board and the stored theme.
func (m Model) Init() tea.Cmd {
	if m.prefs == nil {
		return m.loadBoard
	}
	return tea.Batch(m.loadBoard, m.loadTheme)
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if m.status == "loading..." || m.status == "reloading..." {
			m.status = ""
		}
		if msg.err != nil {
			if !m.loaded {
				m.loadErr = msg.err
			}
			return m, m.pushNotice(app.NoticeFor(msg.err), true)
		}
		m.applySnapshot(msg.result.Snapshot, msg.result.Seq)
		return m, nil

	case actionMsg:
		return m.handleAction(msg)

	case noticeExpiredMsg:
		m.notices = slices.DeleteFunc(slices.Clone(m.notices), func(n notice) bool {
			return n.id == msg.id
		})
		return m, nil

	case activityLogLoadedMsg:
		if msg.err != nil {
			if m.mode == modeActivityLog {
				m.status = "activity log unavailable: " + msg.err.Error()
			}
			return m, nil
		}
		m.activityLog = append([]app.ActivityEntry(nil), msg.entries...)
		return m, nil

	case themeLoadedMsg:
		m.theme = msg.theme
		return m, nil

	case themeSavedMsg:
		if msg.err != nil {
			return m, m.pushNotice("Failed to save theme: "+msg.err.Error(), true)
		}
		m.theme = msg.theme
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			return m, m.pushNotice("Failed to copy notes: "+msg.err.Error(), true)
		}
		return m, m.pushNotice("Notes copied to clipboard", false)

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// loadBoard fetches the snapshot.
func (m Model) loadBoard() tea.Msg {
	res, err := m.board.Load(context.Background())
	return loadedMsg{result: res, err: err}
}

// loadTheme reads the stored theme.
func (m Model) loadTheme() tea.Msg {
	return themeLoadedMsg{theme: m.prefs.Theme(context.Background())}
}

// runAction wraps one board operation as a command.
func (m Model) runAction(op string, cardID, columnID int64, fn func(context.Context) (app.Result, error)) tea.Cmd {
	return func() tea.Msg {
		res, err := fn(context.Background())
		return actionMsg{op: op, cardID: cardID, columnID: columnID, result: res, err: err}
	}
}

// handleAction applies one board operation result.
func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.op == app.OpGeneratePrompt {
		m.setGenerating(msg.cardID, false)
	}
	renamed := false
	renameDisplay := ""
	if msg.op == app.OpRenameColumn && m.rename.State() == app.RenameSubmitting && m.rename.ColumnID() == msg.columnID {
		renameDisplay = m.rename.Resolve(msg.err)
		renamed = true
	}
	if m.status != "" && strings.HasSuffix(m.status, "...") {
		m.status = ""
	}

	formOpen := m.formAwaiting(msg)
	if formOpen {
		m.formPending = false
	}

	if msg.err != nil {
		m.rebuildView()
		switch {
		case errors.Is(msg.err, app.ErrNoDragSession):
			return m, nil
		case errors.Is(msg.err, app.ErrPromptCancelled):
			m.status = app.NoticeFor(msg.err)
			return m, nil
		}
		return m, m.pushNotice(app.NoticeFor(msg.err), true)
	}

	if formOpen {
		m.mode = modeNone
		m.status = ""
	}
	m.applySnapshot(msg.result.Snapshot, msg.result.Seq)
	if renamed && msg.result.ReloadErr != nil {
		m.titleOverrides[msg.columnID] = renameDisplay
	}
	switch {
	case msg.op == app.OpAddCard:
		m.focusLastCard(msg.columnID)
	case msg.cardID != 0 && msg.op != app.OpDeleteCard:
		m.focusCardByID(msg.cardID)
	}

	var cmds []tea.Cmd
	if msg.result.Notice != "" {
		cmds = append(cmds, m.pushNotice(msg.result.Notice, false))
	}
	if msg.result.ReloadErr != nil {
		cmds = append(cmds, m.pushNotice(app.NoticeFor(msg.result.ReloadErr), true))
	}
	return m, tea.Batch(cmds...)
}

// formAwaiting reports whether msg answers the card form still open on screen.
func (m Model) formAwaiting(msg actionMsg) bool {
	if !m.formPending {
		return false
	}
	switch msg.op {
	case app.OpAddCard:
		return m.mode == modeAddCard && msg.columnID == m.formColumnID
	case app.OpEditCard:
		return m.mode == modeEditCard && msg.cardID == m.editingCardID
	default:
		return false
	}
}

// applySnapshot replaces local board state and rebuilds the view.
// A snapshot older than the one shown is dropped; results reach Update in any order.
func (m *Model) applySnapshot(snapshot domain.Snapshot, seq uint64) {
	if seq <= m.snapshotSeq {
		return
	}
	m.snapshotSeq = seq
	m.snapshot = snapshot
	m.loaded = true
	m.loadErr = nil
	m.titleOverrides = map[int64]string{}
	if m.dragCardID != 0 {
		if _, ok := m.board.DraggedCard(); !ok {
			m.dragCardID = 0
			if m.mode == modeDrag {
				m.mode = modeNone
			}
		}
	}
	switch m.mode {
	case modeCardInfo:
		if _, ok := snapshot.Card(m.infoCardID); !ok {
			m.mode = modeNone
		}
	case modeEditCard:
		if _, ok := snapshot.Card(m.editingCardID); !ok {
			m.mode = modeNone
			m.status = "card no longer exists"
		}
	}
	m.rebuildView()
}

// rebuildView maps the snapshot to the render model from scratch.
func (m *Model) rebuildView() {
	m.view = app.BuildBoardView(m.snapshot, app.ViewOptions{
		Filter:        m.filter,
		Generating:    m.generating,
		DraggedCardID: m.dragCardID,
	})
	m.clampSelections()
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	if len(m.view.Columns) == 0 {
		m.selectedColumn = 0
		m.selectedCard = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.view.Columns)-1)
	m.selectedCard = clamp(m.selectedCard, 0, len(m.view.Columns[m.selectedColumn].Cards)-1)
}

// focusCardByID selects cardID when it is visible.
func (m *Model) focusCardByID(cardID int64) {
	for colIdx, column := range m.view.Columns {
		for cardIdx, card := range column.Cards {
			if card.ID == cardID {
				m.selectedColumn = colIdx
				m.selectedCard = cardIdx
				return
			}
		}
	}
}

// focusLastCard selects the newest card of columnID.
func (m *Model) focusLastCard(columnID int64) {
	for colIdx, column := range m.view.Columns {
		if column.ID == columnID && len(column.Cards) > 0 {
			m.selectedColumn = colIdx
			m.selectedCard = len(column.Cards) - 1
			return
		}
	}
}

// setGenerating flips the generating marker for cardID without sharing the map with older copies.
func (m *Model) setGenerating(cardID int64, on bool) {
	next := make(map[int64]bool, len(m.generating)+1)
	for id := range m.generating {
		next[id] = true
	}
	if on {
		next[cardID] = true
	} else {
		delete(next, cardID)
	}
	m.generating = next
}

// pushNotice shows text and schedules its removal.
func (m *Model) pushNotice(text string, isError bool) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	m.nextNoticeID++
	id := m.nextNoticeID
	notices := append(slices.Clone(m.notices), notice{id: id, text: text, isError: isError})
	if len(notices) > maxVisibleNotices {
		notices = notices[len(notices)-maxVisibleNotices:]
	}
	m.notices = notices

	ttl := m.successTTL
	if isError {
		ttl = m.errorTTL
	}
	if ttl <= 0 {
		return nil
	}
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// currentColumnView returns the selected column.
func (m Model) currentColumnView() (app.ColumnView, bool) {
	if len(m.view.Columns) == 0 {
		return app.ColumnView{}, false
	}
	return m.view.Columns[clamp(m.selectedColumn, 0, len(m.view.Columns)-1)], true
}

// selectedCardView returns the selected card.
func (m Model) selectedCardView() (app.CardView, bool) {
	column, ok := m.currentColumnView()
	if !ok || len(column.Cards) == 0 {
		return app.CardView{}, false
	}
	return column.Cards[clamp(m.selectedCard, 0, len(column.Cards)-1)], true
}

// handleNormalModeKey handles board navigation and action keys.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		switch {
		case key.Matches(msg, m.keys.quit):
			m.board.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.toggleHelp), msg.String() == "esc":
			m.help.ShowAll = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.board.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadBoard
	case key.Matches(msg, m.keys.toggleTheme):
		return m.toggleTheme()
	case key.Matches(msg, m.keys.activityLog):
		return m, m.openActivityLog()
	case msg.String() == "esc":
		if m.filter != "" {
			m.filterInput.SetValue("")
			m.setFilter("")
			m.status = "filter cleared"
		}
		return m, nil
	}
	if !m.loaded {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedCard = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.view.Columns)-1 {
			m.selectedColumn++
			m.selectedCard = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedCard > 0 {
			m.selectedCard--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedCard++
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.addCard):
		return m.startCardForm(nil)
	case key.Matches(msg, m.keys.editCard):
		card, ok := m.selectedCardView()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m.startCardForm(&card)
	case key.Matches(msg, m.keys.cardInfo):
		card, ok := m.selectedCardView()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.mode = modeCardInfo
		m.infoCardID = card.ID
		m.status = "card info"
		return m, nil
	case key.Matches(msg, m.keys.deleteCard):
		card, ok := m.selectedCardView()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m.confirmDeleteCard(card.ID, card.Title)
	case key.Matches(msg, m.keys.generate):
		card, ok := m.selectedCardView()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m.startGeneration(card.ID)
	case key.Matches(msg, m.keys.addColumn):
		return m.startAddColumn()
	case key.Matches(msg, m.keys.renameColumn):
		column, ok := m.currentColumnView()
		if !ok {
			return m, nil
		}
		return m.beginRename(column.ID)
	case key.Matches(msg, m.keys.deleteColumn):
		column, ok := m.currentColumnView()
		if !ok {
			return m, nil
		}
		return m.confirmDeleteColumn(column.ID)
	case key.Matches(msg, m.keys.grab):
		return m.beginDrag()
	case key.Matches(msg, m.keys.filter):
		return m.startFilter()
	}
	return m, nil
}

// handleInputModeKey routes keys to the active mode.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddCard, modeEditCard:
		return m.handleCardFormKey(msg)
	case modeAddColumn:
		return m.handleAddColumnKey(msg)
	case modeRenameColumn:
		return m.handleRenameKey(msg)
	case modeConfirmAction:
		return m.handleConfirmKey(msg)
	case modeCardInfo:
		return m.handleCardInfoKey(msg)
	case modeDrag:
		return m.handleDragKey(msg)
	case modeFilter:
		return m.handleFilterKey(msg)
	case modeContextMenu:
		return m.handleContextMenuKey(msg)
	case modeActivityLog:
		if msg.String() == "esc" || key.Matches(msg, m.keys.activityLog) || key.Matches(msg, m.keys.quit) {
			m.mode = modeNone
			m.status = ""
		}
		return m, nil
	default:
		m.mode = modeNone
		return m, nil
	}
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// newNotesInput constructs the multi-line notes editor.
func newNotesInput(value string, width int) textarea.Model {
	in := textarea.New()
	in.Placeholder = "notes (markdown)"
	in.ShowLineNumbers = false
	in.CharLimit = notesCharLimit
	in.SetWidth(width)
	in.SetHeight(6)
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// startCardForm opens the add form, or the edit form when card is set.
func (m Model) startCardForm(card *app.CardView) (tea.Model, tea.Cmd) {
	title, notes := "", ""
	if card == nil {
		column, ok := m.currentColumnView()
		if !ok {
			return m, m.pushNotice("Add a column before adding tasks", true)
		}
		m.mode = modeAddCard
		m.formPending = false
		m.editingCardID = 0
		m.formColumnID = column.ID
		m.status = "new card"
	} else {
		m.mode = modeEditCard
		m.formPending = false
		m.editingCardID = card.ID
		m.formColumnID = card.ColumnID
		title, notes = card.Title, card.Notes
		m.status = "edit card"
	}
	m.titleInput = newModalInput("title: ", "what needs doing", title, titleCharLimit)
	m.titleInput.CursorEnd()
	m.notesInput = newNotesInput(notes, m.modalInnerWidth())
	m.formFocus = cardFieldTitle
	return m, m.titleInput.Focus()
}

// focusCardField focuses one card form field.
func (m *Model) focusCardField(idx int) tea.Cmd {
	m.formFocus = clamp(idx, cardFieldTitle, cardFieldNotes)
	if m.formFocus == cardFieldTitle {
		m.notesInput.Blur()
		return m.titleInput.Focus()
	}
	m.titleInput.Blur()
	return m.notesInput.Focus()
}

// handleCardFormKey handles add/edit card form input.
func (m Model) handleCardFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.formPending {
		if msg.String() == "esc" {
			m.mode = modeNone
			m.formPending = false
		}
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.status = "cancelled"
		return m, nil
	case "tab", "shift+tab":
		return m, m.focusCardField(1 - m.formFocus)
	case "ctrl+s":
		return m.submitCardForm()
	case "enter":
		if m.formFocus == cardFieldTitle {
			return m.submitCardForm()
		}
	}
	var cmd tea.Cmd
	if m.formFocus == cardFieldTitle {
		m.titleInput, cmd = m.titleInput.Update(msg)
	} else {
		m.notesInput, cmd = m.notesInput.Update(msg)
	}
	return m, cmd
}

// submitCardForm validates the form and sends it.
func (m Model) submitCardForm() (tea.Model, tea.Cmd) {
	title := m.titleInput.Value()
	notes := m.notesInput.Value()
	if _, err := domain.NormalizeTitle(title); err != nil {
		return m, m.pushNotice("Please enter a task title", true)
	}
	board := m.board
	if m.mode == modeEditCard {
		cardID := m.editingCardID
		m.formPending = true
		m.status = "saving card..."
		return m, m.runAction(app.OpEditCard, cardID, 0, func(ctx context.Context) (app.Result, error) {
			return board.EditCard(ctx, cardID, title, notes)
		})
	}
	columnID := m.formColumnID
	m.formPending = true
	m.status = "adding card..."
	return m, m.runAction(app.OpAddCard, 0, columnID, func(ctx context.Context) (app.Result, error) {
		return board.AddCard(ctx, columnID, title, notes)
	})
}

// startAddColumn opens the add column modal.
func (m Model) startAddColumn() (tea.Model, tea.Cmd) {
	m.mode = modeAddColumn
	m.status = "new column"
	m.columnInput = newModalInput("title: ", "column name", "", titleCharLimit)
	return m, m.columnInput.Focus()
}

// handleAddColumnKey handles add column modal input.
func (m Model) handleAddColumnKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.status = "cancelled"
		return m, nil
	case "enter":
		title := m.columnInput.Value()
		if _, err := domain.NormalizeTitle(title); err != nil {
			return m, m.pushNotice("Please enter a column title", true)
		}
		m.mode = modeNone
		m.status = "adding column..."
		board := m.board
		return m, m.runAction(app.OpAddColumn, 0, 0, func(ctx context.Context) (app.Result, error) {
			return board.AddColumn(ctx, title)
		})
	}
	var cmd tea.Cmd
	m.columnInput, cmd = m.columnInput.Update(msg)
	return m, cmd
}

// beginRename starts inline editing of a column title.
func (m Model) beginRename(columnID int64) (tea.Model, tea.Cmd) {
	column, ok := m.snapshot.Column(columnID)
	if !ok {
		return m, nil
	}
	if m.rename.State() == app.RenameSubmitting {
		m.status = "rename in progress"
		return m, nil
	}
	m.rename.Begin(column)
	m.renameInput = newModalInput("", "column title", column.Title, titleCharLimit)
	m.renameInput.CursorEnd()
	m.mode = modeRenameColumn
	m.status = "rename column"
	return m, m.renameInput.Focus()
}

// commitRename validates the inline draft and sends it when it changed.
func (m Model) commitRename() (tea.Model, tea.Cmd) {
	m.rename.SetDraft(m.renameInput.Value())
	decision, title, err := m.rename.Commit(m.snapshot)
	switch decision {
	case app.RenameRejected:
		if errors.Is(err, app.ErrRenameInactive) {
			m.mode = modeNone
			return m, nil
		}
		return m, m.pushNotice(app.NoticeFor(err), true)
	case app.RenameUnchanged:
		m.mode = modeNone
		m.status = ""
		return m, nil
	}
	m.mode = modeNone
	m.status = "renaming column..."
	columnID := m.rename.ColumnID()
	board := m.board
	return m, m.runAction(app.OpRenameColumn, 0, columnID, func(ctx context.Context) (app.Result, error) {
		return board.RenameColumn(ctx, columnID, title)
	})
}

// handleRenameKey handles inline rename input.
func (m Model) handleRenameKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.rename.Cancel()
		m.mode = modeNone
		m.status = "cancelled"
		return m, nil
	case "enter":
		return m.commitRename()
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

// confirmDeleteCard opens a confirmation modal when configured, or executes directly.
func (m Model) confirmDeleteCard(cardID int64, title string) (tea.Model, tea.Cmd) {
	return m.requestConfirm(confirmAction{
		Kind:     confirmDeleteCard,
		TargetID: cardID,
		Label:    title,
		Message:  deleteCardPrompt,
	})
}

// confirmDeleteColumn opens a confirmation modal when configured, or executes directly.
func (m Model) confirmDeleteColumn(columnID int64) (tea.Model, tea.Cmd) {
	column, ok := m.snapshot.Column(columnID)
	if !ok {
		return m, nil
	}
	return m.requestConfirm(confirmAction{
		Kind:     confirmDeleteColumn,
		TargetID: columnID,
		Label:    column.Title,
		Message:  deleteColumnPrompt,
	})
}

// requestConfirm enters confirm mode for action.
func (m Model) requestConfirm(action confirmAction) (tea.Model, tea.Cmd) {
	if !m.confirmDelete {
		m.mode = modeNone
		return m.applyConfirmedAction(action)
	}
	m.mode = modeConfirmAction
	m.pendingConfirm = action
	m.confirmChoice = 1
	m.status = "confirm action"
	return m, nil
}

// handleConfirmKey handles confirmation modal input.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.mode = modeNone
		m.pendingConfirm = confirmAction{}
		m.status = "cancelled"
		return m, nil
	case "h", "left", "l", "right", "tab":
		m.confirmChoice = 1 - m.confirmChoice
		return m, nil
	case "y":
		m.confirmChoice = 0
	case "enter":
		if m.confirmChoice == 1 {
			m.mode = modeNone
			m.pendingConfirm = confirmAction{}
			m.status = "cancelled"
			return m, nil
		}
	default:
		return m, nil
	}
	action := m.pendingConfirm
	m.pendingConfirm = confirmAction{}
	m.mode = modeNone
	return m.applyConfirmedAction(action)
}

// applyConfirmedAction runs a confirmed destructive action.
func (m Model) applyConfirmedAction(action confirmAction) (tea.Model, tea.Cmd) {
	board := m.board
	id := action.TargetID
	switch action.Kind {
	case confirmDeleteCard:
		m.status = "deleting card..."
		return m, m.runAction(app.OpDeleteCard, id, 0, func(ctx context.Context) (app.Result, error) {
			return board.DeleteCard(ctx, id)
		})
	case confirmDeleteColumn:
		m.status = "deleting column..."
		return m, m.runAction(app.OpDeleteColumn, 0, id, func(ctx context.Context) (app.Result, error) {
			return board.DeleteColumn(ctx, id)
		})
	default:
		m.status = "unknown confirm action"
		return m, nil
	}
}

// infoCard returns the card shown by the info overlay.
func (m Model) infoCard() (domain.Card, bool) {
	return m.snapshot.Card(m.infoCardID)
}

// handleCardInfoKey handles card info overlay input.
func (m Model) handleCardInfoKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	card, ok := m.infoCard()
	if !ok {
		m.mode = modeNone
		return m, nil
	}
	switch {
	case msg.String() == "esc", key.Matches(msg, m.keys.cardInfo), key.Matches(msg, m.keys.quit):
		m.mode = modeNone
		m.status = ""
		return m, nil
	case msg.String() == "y":
		if !card.HasNotes() {
			return m, m.pushNotice("No notes to copy", true)
		}
		write := m.copyText
		notes := card.Notes
		return m, func() tea.Msg {
			return clipboardMsg{err: write(notes)}
		}
	case key.Matches(msg, m.keys.editCard):
		return m.startCardForm(&app.CardView{ID: card.ID, ColumnID: card.ColumnID, Title: card.Title, Notes: card.Notes})
	case key.Matches(msg, m.keys.generate):
		return m.startGeneration(card.ID)
	case key.Matches(msg, m.keys.deleteCard):
		return m.confirmDeleteCard(card.ID, card.Title)
	}
	return m, nil
}

// startGeneration marks cardID as generating and requests an AI prompt.
func (m Model) startGeneration(cardID int64) (tea.Model, tea.Cmd) {
	if m.generating[cardID] {
		return m, m.pushNotice("AI prompt generation already in progress", true)
	}
	m.setGenerating(cardID, true)
	m.rebuildView()
	m.status = "generating prompt..."
	board := m.board
	return m, m.runAction(app.OpGeneratePrompt, cardID, 0, func(ctx context.Context) (app.Result, error) {
		return board.GeneratePrompt(ctx, cardID)
	})
}

// beginDrag picks up the selected card.
func (m Model) beginDrag() (tea.Model, tea.Cmd) {
	card, ok := m.selectedCardView()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	if _, err := m.board.BeginDrag(card.ID); err != nil {
		return m, m.pushNotice(app.NoticeFor(err), true)
	}
	m.dragCardID = card.ID
	m.mode = modeDrag
	m.status = "moving " + truncate(card.Title, 32) + " • h/l choose column • space drop • esc cancel"
	m.rebuildView()
	return m, nil
}

// handleDragKey handles destination selection while a card is picked up.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.board.EndDrag()
		m.dragCardID = 0
		m.mode = modeNone
		m.status = "move cancelled"
		m.rebuildView()
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedCard = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.view.Columns)-1 {
			m.selectedColumn++
			m.selectedCard = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.grab), msg.String() == "enter":
		return m.dropDragged()
	case key.Matches(msg, m.keys.quit):
		m.board.Close()
		return m, tea.Quit
	}
	return m, nil
}

// dropDragged drops the picked-up card into the selected column.
func (m Model) dropDragged() (tea.Model, tea.Cmd) {
	cardID := m.dragCardID
	column, ok := m.currentColumnView()
	m.mode = modeNone
	m.dragCardID = 0
	m.rebuildView()
	if !ok {
		m.board.EndDrag()
		return m, nil
	}
	m.status = "moving card..."
	board := m.board
	columnID := column.ID
	return m, m.runAction(app.OpMoveCard, cardID, columnID, func(ctx context.Context) (app.Result, error) {
		return board.Drop(ctx, columnID)
	})
}

// startFilter opens the filter prompt with the current filter.
func (m Model) startFilter() (tea.Model, tea.Cmd) {
	m.mode = modeFilter
	m.status = "filter"
	m.filterInput.SetValue(m.filter)
	m.filterInput.CursorEnd()
	return m, m.filterInput.Focus()
}

// handleFilterKey applies the filter as it is typed.
func (m Model) handleFilterKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.mode = modeNone
		m.setFilter("")
		m.status = "filter cleared"
		return m, nil
	case "enter":
		m.filterInput.Blur()
		m.mode = modeNone
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.setFilter(m.filterInput.Value())
	return m, cmd
}

// setFilter replaces the card title filter.
func (m *Model) setFilter(filter string) {
	m.filter = filter
	m.selectedCard = 0
	m.rebuildView()
}

// openContextMenu opens the column context menu.
func (m Model) openContextMenu(columnID int64) (tea.Model, tea.Cmd) {
	m.mode = modeContextMenu
	m.menuColumnID = columnID
	m.menuIndex = 0
	return m, nil
}

// handleContextMenuKey handles column context menu input.
func (m Model) handleContextMenuKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.mode = modeNone
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.menuIndex = clamp(m.menuIndex-1, 0, len(columnMenuItems)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.menuIndex = clamp(m.menuIndex+1, 0, len(columnMenuItems)-1)
		return m, nil
	case msg.String() == "enter":
		m.mode = modeNone
		switch columnMenuItems[clamp(m.menuIndex, 0, len(columnMenuItems)-1)].id {
		case "rename":
			return m.beginRename(m.menuColumnID)
		case "delete":
			return m.confirmDeleteColumn(m.menuColumnID)
		}
	}
	return m, nil
}

// toggleTheme flips the theme now and persists it in the background.
func (m Model) toggleTheme() (tea.Model, tea.Cmd) {
	current := m.theme
	m.theme = current.Toggle()
	prefs := m.prefs
	if prefs == nil {
		return m, nil
	}
	return m, func() tea.Msg {
		next, err := prefs.ToggleTheme(context.Background(), current)
		return themeSavedMsg{theme: next, err: err}
	}
}

// openActivityLog enters activity-log mode and triggers persisted activity fetch.
func (m *Model) openActivityLog() tea.Cmd {
	m.mode = modeActivityLog
	m.status = "activity log"
	if m.activity == nil {
		m.activityLog = nil
		return nil
	}
	reader := m.activity
	return func() tea.Msg {
		entries, err := reader.ListActivity(context.Background(), activityLogMaxItems)
		return activityLogLoadedMsg{entries: entries, err: err}
	}
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
