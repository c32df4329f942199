package tui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// Board geometry shared by rendering and mouse hit-testing.
const (
	// boardTopRow is the first screen row of the column boxes: app header plus one spacer.
	boardTopRow = 2
	// columnChromeTop is the border and top padding above a column's first content line.
	columnChromeTop = 2
	// columnHeaderLines is the column title plus the spacer below it.
	columnHeaderLines = 2
	// colOverhead is the per-column border (2), horizontal padding (4), and margin-right (1).
	colOverhead = 7
	// footerLines reserves rows for notices, status, and the help line.
	footerLines = 6
)

// palette holds the colors for one theme.
type palette struct {
	accent    color.Color
	muted     color.Color
	dim       color.Color
	text      color.Color
	success   color.Color
	failure   color.Color
	highlight color.Color
}

// paletteFor returns theme colors.
func paletteFor(theme domain.Theme) palette {
	if theme == domain.ThemeDark {
		return palette{
			accent:    lipgloss.Color("62"),
			muted:     lipgloss.Color("241"),
			dim:       lipgloss.Color("239"),
			text:      lipgloss.Color("252"),
			success:   lipgloss.Color("42"),
			failure:   lipgloss.Color("203"),
			highlight: lipgloss.Color("212"),
		}
	}
	return palette{
		accent:    lipgloss.Color("25"),
		muted:     lipgloss.Color("243"),
		dim:       lipgloss.Color("250"),
		text:      lipgloss.Color("235"),
		success:   lipgloss.Color("28"),
		failure:   lipgloss.Color("160"),
		highlight: lipgloss.Color("205"),
	}
}

// View renders the board.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render returns the full screen as a string.
func (m Model) render() string {
	if !m.loaded && m.loadErr != nil {
		return "error: " + app.NoticeFor(m.loadErr) + "\n\npress r to retry • q quit\n"
	}
	if !m.ready || !m.loaded {
		return "loading..."
	}

	p := paletteFor(m.theme)
	statusStyle := lipgloss.NewStyle().Foreground(p.dim)

	sections := []string{m.renderHeader(p), "", m.renderColumns(p)}
	if m.mode == modeFilter {
		sections = append(sections, m.filterInput.View())
	}
	for _, n := range m.notices {
		sections = append(sections, m.renderNotice(n, p))
	}
	if strings.TrimSpace(m.status) != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(p.muted).
		BorderTop(true).
		BorderForeground(p.dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine

	overlay := m.renderModeOverlay(p, m.width-8)
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(p, m.width-8)
	}
	if overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}
	return fullContent
}

// renderHeader renders the title line.
func (m Model) renderHeader(p palette) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(p.text)
	statusStyle := lipgloss.NewStyle().Foreground(p.dim)

	header := titleStyle.Render("kanboard") + "  " + fmt.Sprintf("%d cards", m.view.CardCount)
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if m.view.Filter != "" {
		header += statusStyle.Render(fmt.Sprintf("  filter: %s (%d/%d)", m.view.Filter, m.view.Matches, m.view.CardCount))
	}
	if m.dragCardID != 0 {
		if card, ok := m.snapshot.Card(m.dragCardID); ok {
			header += lipgloss.NewStyle().Foreground(p.highlight).Render("  moving: " + truncate(card.Title, 32))
		}
	}
	if n := len(m.generating); n > 0 {
		header += statusStyle.Render(fmt.Sprintf("  generating: %d", n))
	}
	return header
}

// baseColumnStyle returns the unselected column box style.
func (m Model) baseColumnStyle(p palette) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.dim).
		Padding(1, 2).
		MarginRight(1).
		Width(m.columnWidth())
}

// renderColumns renders every column side by side.
func (m Model) renderColumns(p palette) string {
	if len(m.view.Columns) == 0 {
		return lipgloss.NewStyle().Foreground(p.muted).Render("No columns yet. Press C to add one.")
	}

	colHeight := m.columnHeight()
	textWidth := m.cardTextWidth()
	baseStyle := m.baseColumnStyle(p)
	selectedStyle := baseStyle.BorderForeground(p.accent)
	dropStyle := baseStyle.BorderForeground(p.highlight)
	placeholderStyle := lipgloss.NewStyle().Foreground(p.muted).Italic(true)

	views := make([]string, 0, len(m.view.Columns))
	for colIdx, column := range m.view.Columns {
		lines := []string{m.renderColumnHeader(column, p, textWidth), ""}
		if len(column.Cards) == 0 {
			lines = append(lines, placeholderStyle.Render(column.Placeholder))
		} else {
			first := m.firstVisibleCard(colIdx)
			for idx := first; idx < len(column.Cards); idx++ {
				if idx > first {
					lines = append(lines, "")
				}
				selected := colIdx == m.selectedColumn && idx == m.selectedCard
				lines = append(lines, m.renderCardLines(column.Cards[idx], selected, p, textWidth)...)
			}
		}
		content := fitLines(strings.Join(lines, "\n"), max(1, colHeight-4))

		style := baseStyle
		switch {
		case colIdx == m.selectedColumn && m.mode == modeDrag:
			style = dropStyle
		case colIdx == m.selectedColumn:
			style = selectedStyle
		}
		views = append(views, style.Render(content))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderColumnHeader renders the title and count, or the inline rename input.
func (m Model) renderColumnHeader(column app.ColumnView, p palette, width int) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	title := column.Title
	if override, ok := m.titleOverrides[column.ID]; ok {
		title = override
	}
	if m.rename.Active() && m.rename.ColumnID() == column.ID {
		if m.mode == modeRenameColumn && m.rename.State() == app.RenameEditing {
			in := m.renameInput
			in.SetWidth(max(1, width-1))
			return in.View()
		}
		title = m.rename.Draft()
	}
	return headerStyle.Render(truncate(fmt.Sprintf("%s (%d)", title, column.Count), width))
}

// renderCardLines renders one card as its title line and optional detail lines.
func (m Model) renderCardLines(card app.CardView, selected bool, p palette, width int) []string {
	titleStyle := lipgloss.NewStyle().Foreground(p.text)
	if selected {
		titleStyle = lipgloss.NewStyle().Bold(true).Foreground(p.highlight)
	}
	matchStyle := titleStyle.Underline(true).Foreground(p.accent)
	subStyle := lipgloss.NewStyle().Foreground(p.muted)

	prefix := "  "
	switch {
	case card.Dragging:
		prefix = "↕ "
	case selected:
		prefix = "│ "
	}
	textWidth := max(1, width-2)
	lines := []string{prefix + highlightMatches(truncate(card.Title, textWidth), card.TitleMatches, titleStyle, matchStyle)}
	subPrefix := "  "
	if selected {
		subPrefix = "│ "
	}
	if card.NotesPreview != "" {
		lines = append(lines, subPrefix+subStyle.Render(truncate(card.NotesPreview, textWidth)))
	}
	if card.Generating {
		lines = append(lines, subPrefix+lipgloss.NewStyle().Foreground(p.accent).Render("generating prompt…"))
	}
	return lines
}

// highlightMatches styles the runes at positions with match and the rest with base.
func highlightMatches(s string, positions []int, base, match lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(s)
	}
	matched := make(map[int]bool, len(positions))
	for _, pos := range positions {
		matched[pos] = true
	}
	var (
		out     strings.Builder
		run     []rune
		runHits bool
	)
	flush := func() {
		if len(run) == 0 {
			return
		}
		if runHits {
			out.WriteString(match.Render(string(run)))
		} else {
			out.WriteString(base.Render(string(run)))
		}
		run = run[:0]
	}
	for idx, r := range []rune(s) {
		hit := matched[idx]
		if len(run) > 0 && hit != runHits {
			flush()
		}
		runHits = hit
		run = append(run, r)
	}
	flush()
	return out.String()
}

// renderNotice renders one notice line.
func (m Model) renderNotice(n notice, p palette) string {
	if n.isError {
		return lipgloss.NewStyle().Bold(true).Foreground(p.failure).Render("✗ " + n.text)
	}
	return lipgloss.NewStyle().Foreground(p.success).Render("✓ " + n.text)
}

// modalInnerWidth returns the text width available inside form modals.
func (m Model) modalInnerWidth() int {
	if m.width <= 0 {
		return 56
	}
	return clamp(m.width-8, 36, 88) - 4
}

// renderModeOverlay renders the overlay for the active mode.
func (m Model) renderModeOverlay(p palette, maxWidth int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	hintStyle := lipgloss.NewStyle().Foreground(p.muted)

	switch m.mode {
	case modeAddCard, modeEditCard:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 36, 88))
		}
		title := "New Card"
		if m.mode == modeEditCard {
			title = "Edit Card"
		}
		columnName := "-"
		if column, ok := m.snapshot.Column(m.formColumnID); ok {
			columnName = column.Title
		}
		notesLabel := hintStyle.Render("notes")
		if m.formFocus == cardFieldNotes {
			notesLabel = titleStyle.Render("notes")
		}
		hint := "tab switch field • enter save (title) • ctrl+s save • esc cancel"
		if m.formPending {
			hint = "saving... • esc close"
		}
		lines := []string{
			titleStyle.Render(title),
			hintStyle.Render("column: " + columnName),
			"",
			m.titleInput.View(),
			"",
			notesLabel,
			m.notesInput.View(),
			"",
			hintStyle.Render(hint),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeAddColumn:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 36, 72))
		}
		lines := []string{
			titleStyle.Render("New Column"),
			m.columnInput.View(),
			hintStyle.Render("enter save • esc cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeConfirmAction:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 36, 88))
		}
		label := strings.TrimSpace(m.pendingConfirm.Label)
		if label == "" {
			label = "(untitled)"
		}
		confirmStyle := lipgloss.NewStyle().Foreground(p.muted)
		cancelStyle := lipgloss.NewStyle().Foreground(p.muted)
		if m.confirmChoice == 0 {
			confirmStyle = lipgloss.NewStyle().Bold(true).Foreground(p.accent)
		} else {
			cancelStyle = lipgloss.NewStyle().Bold(true).Foreground(p.accent)
		}
		lines := []string{
			titleStyle.Render("Confirm Action"),
			m.pendingConfirm.Message,
			hintStyle.Render(label),
			confirmStyle.Render("[confirm]") + "  " + cancelStyle.Render("[cancel]"),
			hintStyle.Render("enter apply • esc cancel • h/l switch • y confirm • n cancel"),
		}
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeCardInfo:
		card, ok := m.infoCard()
		if !ok {
			return ""
		}
		width := 76
		if maxWidth > 0 {
			width = clamp(maxWidth, 24, 76)
			boxStyle = boxStyle.Width(width)
		}
		lines := []string{
			titleStyle.Render("Card Info"),
			card.Title,
		}
		if column, ok := m.snapshot.Column(card.ColumnID); ok {
			lines = append(lines, hintStyle.Render("column: "+column.Title))
		}
		if m.generating[card.ID] {
			lines = append(lines, hintStyle.Render("generating prompt…"))
		}
		lines = append(lines, "")
		if card.HasNotes() {
			lines = append(lines, m.markdown.render(card.Notes, width-4, m.theme))
		} else {
			lines = append(lines, hintStyle.Render("(no notes)"))
		}
		lines = append(lines, "", hintStyle.Render("y copy notes • e edit • g generate prompt • d delete • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeContextMenu:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 24, 40))
		}
		columnName := "column"
		if column, ok := m.snapshot.Column(m.menuColumnID); ok {
			columnName = column.Title
		}
		lines := []string{titleStyle.Render(truncate(columnName, 32))}
		for idx, item := range columnMenuItems {
			prefix := "  "
			if idx == m.menuIndex {
				prefix = "│ "
			}
			lines = append(lines, prefix+item.label)
		}
		lines = append(lines, hintStyle.Render("j/k select • enter run • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeActivityLog:
		if maxWidth > 0 {
			boxStyle = boxStyle.Width(clamp(maxWidth, 44, 96))
		}
		failedStyle := lipgloss.NewStyle().Foreground(p.failure)
		lines := []string{titleStyle.Render("Activity Log")}
		if len(m.activityLog) == 0 {
			lines = append(lines, hintStyle.Render("(no activity yet)"))
		}
		for _, entry := range m.activityLog {
			line := fmt.Sprintf("%s  %s", formatActivityTimestamp(entry.At, m.now()), entry.Summary)
			if target := strings.TrimSpace(entry.Target); target != "" {
				line += " • " + truncate(target, 42)
			}
			if entry.Failed {
				line = failedStyle.Render(line)
			}
			lines = append(lines, line)
		}
		lines = append(lines, hintStyle.Render("esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	default:
		return ""
	}
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(p palette, maxWidth int) string {
	width := clamp(maxWidth, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	title := lipgloss.NewStyle().Bold(true).Foreground(p.accent).Render("Keyboard Shortcuts")
	hintStyle := lipgloss.NewStyle().Foreground(p.muted)
	workflow := []string{
		"mouse: click to select • double-click a column title to rename • right-click it for a menu",
		"mouse: press on a card and release over another column to move it",
		"space picks a card up; h/l chooses the column; space drops it",
	}
	lines := []string{
		title,
		"",
		hb.View(m.keys),
		"",
		hintStyle.Render(strings.Join(workflow, "\n")),
		hintStyle.Render("press ? or esc to close"),
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.dim).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// modeLabel returns the header label for the active mode.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddCard:
		return "add card"
	case modeEditCard:
		return "edit card"
	case modeCardInfo:
		return "card info"
	case modeConfirmAction:
		return "confirm"
	case modeAddColumn:
		return "add column"
	case modeRenameColumn:
		return "rename"
	case modeDrag:
		return "move"
	case modeFilter:
		return "filter"
	case modeContextMenu:
		return "menu"
	case modeActivityLog:
		return "activity"
	default:
		return "board"
	}
}

// formatActivityTimestamp formats activity timestamps for compact modal rendering.
func formatActivityTimestamp(at, now time.Time) string {
	if at.IsZero() {
		return "--:--:--"
	}
	local := at.Local()
	now = now.In(local.Location())
	if local.Year() != now.Year() || local.YearDay() != now.YearDay() {
		return local.Format("01-02 15:04")
	}
	return local.Format("15:04:05")
}

// columnWidth returns column width.
func (m Model) columnWidth() int {
	return m.columnWidthFor(m.width)
}

// columnWidthFor returns the column width that fits boardWidth.
func (m Model) columnWidthFor(boardWidth int) int {
	if len(m.view.Columns) == 0 {
		return 24
	}
	w := 28
	if boardWidth > 0 {
		usable := boardWidth - len(m.view.Columns)*colOverhead
		if candidate := usable / len(m.view.Columns); candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 24, 42)
}

// columnStride returns the rendered width of one column box including its margin.
func (m Model) columnStride() int {
	return lipgloss.Width(m.baseColumnStyle(paletteFor(m.theme)).Render(""))
}

// cardTextWidth returns the width available to card text inside a column.
func (m Model) cardTextWidth() int {
	return max(1, m.columnWidth()-6)
}

// columnHeight returns column height.
func (m Model) columnHeight() int {
	h := m.height - boardTopRow - footerLines
	if h < 10 {
		return 10
	}
	return h
}

// cardWindowHeight returns the rows available to cards inside a column.
func (m Model) cardWindowHeight() int {
	return max(1, m.columnHeight()-4-columnHeaderLines)
}

// cardHeight returns the rendered line count of card.
func cardHeight(card app.CardView) int {
	h := 1
	if card.NotesPreview != "" {
		h++
	}
	if card.Generating {
		h++
	}
	return h
}

// firstVisibleCard returns the first rendered card index so the selection stays in view.
func (m Model) firstVisibleCard(colIdx int) int {
	if colIdx != m.selectedColumn || colIdx < 0 || colIdx >= len(m.view.Columns) {
		return 0
	}
	cards := m.view.Columns[colIdx].Cards
	if len(cards) == 0 {
		return 0
	}
	selected := clamp(m.selectedCard, 0, len(cards)-1)
	window := m.cardWindowHeight()
	first := 0
	for first < selected {
		used := 0
		for idx := first; idx <= selected; idx++ {
			if idx > first {
				used++
			}
			used += cardHeight(cards[idx])
		}
		if used <= window {
			break
		}
		first++
	}
	return first
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
