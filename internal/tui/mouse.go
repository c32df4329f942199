package tui

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/kanboard/internal/app"
)

// boardHit is what a screen cell maps to on the board.
type boardHit struct {
	column int
	// card is -1 when the cell is not on a card.
	card   int
	header bool
}

// hitTest maps a screen cell to a column, and to a header or card within it.
func (m Model) hitTest(x, y int) (boardHit, bool) {
	if len(m.view.Columns) == 0 || x < 0 {
		return boardHit{}, false
	}
	stride := m.columnStride()
	if stride <= 0 {
		return boardHit{}, false
	}
	colIdx := x / stride
	if colIdx >= len(m.view.Columns) {
		return boardHit{}, false
	}
	hit := boardHit{column: colIdx, card: -1}

	row := y - boardTopRow - columnChromeTop
	switch {
	case row < 0:
		return boardHit{}, false
	case row == 0:
		hit.header = true
		return hit, true
	}
	cardRow := row - columnHeaderLines
	if cardRow < 0 {
		return hit, true
	}
	cards := m.view.Columns[colIdx].Cards
	offset := 0
	for idx := m.firstVisibleCard(colIdx); idx < len(cards); idx++ {
		h := cardHeight(cards[idx])
		if cardRow >= offset && cardRow < offset+h {
			hit.card = idx
			return hit, true
		}
		offset += h + 1
	}
	return hit, true
}

// handleMouseWheel moves the card selection.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		return m, nil
	}
	if m.mode == modeContextMenu {
		switch msg.Button {
		case tea.MouseWheelUp:
			m.menuIndex = clamp(m.menuIndex-1, 0, len(columnMenuItems)-1)
		case tea.MouseWheelDown:
			m.menuIndex = clamp(m.menuIndex+1, 0, len(columnMenuItems)-1)
		}
		return m, nil
	}
	if m.mode != modeNone {
		return m, nil
	}
	column, ok := m.currentColumnView()
	if !ok || len(column.Cards) == 0 {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selectedCard > 0 {
			m.selectedCard--
		}
	case tea.MouseWheelDown:
		if m.selectedCard < len(column.Cards)-1 {
			m.selectedCard++
		}
	}
	return m, nil
}

// handleMouseClick selects, opens the column menu, starts a rename, or arms a card drag.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		return m, nil
	}
	switch m.mode {
	case modeNone:
	case modeRenameColumn:
		// clicking outside the header being edited commits the draft
		if hit, ok := m.hitTest(msg.X, msg.Y); ok && hit.header && m.view.Columns[hit.column].ID == m.rename.ColumnID() {
			return m, nil
		}
		return m.commitRename()
	case modeContextMenu:
		m.mode = modeNone
		return m, nil
	default:
		return m, nil
	}

	hit, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	column := m.view.Columns[hit.column]
	if hit.column != m.selectedColumn {
		m.selectedColumn = hit.column
		m.selectedCard = 0
	}

	switch msg.Button {
	case tea.MouseRight:
		if hit.header {
			return m.openContextMenu(column.ID)
		}
		return m, nil
	case tea.MouseLeft:
	default:
		return m, nil
	}

	if hit.header {
		now := m.now()
		double := m.lastClickColumn == column.ID && !m.lastClickAt.IsZero() && now.Sub(m.lastClickAt) <= doubleClickWindow
		m.lastClickColumn = column.ID
		m.lastClickAt = now
		if double {
			m.lastClickAt = time.Time{}
			return m.beginRename(column.ID)
		}
		return m, nil
	}
	m.lastClickAt = time.Time{}
	if hit.card >= 0 {
		m.selectedCard = hit.card
		m.pressCardID = column.Cards[hit.card].ID
	}
	m.clampSelections()
	return m, nil
}

// handleMouseRelease drops a card pressed in one column and released over another.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	cardID := m.pressCardID
	m.pressCardID = 0
	if cardID == 0 || m.mode != modeNone {
		return m, nil
	}
	hit, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	target := m.view.Columns[hit.column]
	card, found := m.snapshot.Card(cardID)
	if !found || card.ColumnID == target.ID {
		return m, nil
	}
	if _, err := m.board.BeginDrag(cardID); err != nil {
		return m, m.pushNotice(app.NoticeFor(err), true)
	}
	m.selectedColumn = hit.column
	m.status = "moving card..."
	board := m.board
	columnID := target.ID
	return m, m.runAction(app.OpMoveCard, cardID, columnID, func(ctx context.Context) (app.Result, error) {
		return board.Drop(ctx, columnID)
	})
}
