package app

import (
	"strings"

	"github.com/hylla/kanboard/internal/domain"
	"github.com/sahilm/fuzzy"
)

// EmptyColumnPlaceholder is shown in a column without cards.
const EmptyColumnPlaceholder = "No tasks yet"

// NoMatchesPlaceholder is shown in a column whose cards are all filtered out.
const NoMatchesPlaceholder = "No matching tasks"

// notesPreviewRunes bounds CardView.NotesPreview.
const notesPreviewRunes = 80

// ViewOptions carries UI state that decorates the snapshot.
type ViewOptions struct {
	Filter        string
	Generating    map[int64]bool
	DraggedCardID int64
}

// BoardView is the render-ready board.
type BoardView struct {
	Columns   []ColumnView
	CardCount int
	Filter    string
	Matches   int
}

// ColumnView is one render-ready column.
type ColumnView struct {
	ID          int64
	Title       string
	Count       int
	Empty       bool
	Placeholder string
	Cards       []CardView
}

// CardView is one render-ready card.
type CardView struct {
	ID           int64
	ColumnID     int64
	Title        string
	Notes        string
	HasNotes     bool
	NotesPreview string
	Generating   bool
	Dragging     bool
	// TitleMatches holds rune offsets of title characters matched by the filter.
	TitleMatches []int
}

// BuildBoardView maps a snapshot to its full view model. It has no side effects,
// so every snapshot change is rendered by rebuilding from scratch.
func BuildBoardView(snapshot domain.Snapshot, opts ViewOptions) BoardView {
	filter := strings.TrimSpace(opts.Filter)
	view := BoardView{
		Columns: make([]ColumnView, 0, len(snapshot.Columns)),
		Filter:  filter,
	}
	for _, column := range snapshot.Columns {
		cv := ColumnView{
			ID:    column.ID,
			Title: column.Title,
			Count: len(column.Cards),
			Cards: make([]CardView, 0, len(column.Cards)),
		}
		matches := matchTitles(filter, column.Cards)
		for idx, card := range column.Cards {
			positions, ok := matches[idx]
			if filter != "" && !ok {
				continue
			}
			cv.Cards = append(cv.Cards, CardView{
				ID:           card.ID,
				ColumnID:     column.ID,
				Title:        card.Title,
				Notes:        card.Notes,
				HasNotes:     card.HasNotes(),
				NotesPreview: notesPreview(card.Notes),
				Generating:   opts.Generating[card.ID],
				Dragging:     opts.DraggedCardID != 0 && opts.DraggedCardID == card.ID,
				TitleMatches: positions,
			})
		}
		cv.Empty = len(cv.Cards) == 0
		switch {
		case len(column.Cards) == 0:
			cv.Placeholder = EmptyColumnPlaceholder
		case cv.Empty:
			cv.Placeholder = NoMatchesPlaceholder
		}
		view.CardCount += len(column.Cards)
		view.Matches += len(cv.Cards)
		view.Columns = append(view.Columns, cv)
	}
	return view
}

// matchTitles fuzzy-matches filter against card titles keyed by card index.
func matchTitles(filter string, cards []domain.Card) map[int][]int {
	if filter == "" || len(cards) == 0 {
		return nil
	}
	titles := make([]string, len(cards))
	for idx, card := range cards {
		titles[idx] = card.Title
	}
	out := map[int][]int{}
	for _, match := range fuzzy.Find(filter, titles) {
		out[match.Index] = runeOffsets(match.Str, match.MatchedIndexes)
	}
	return out
}

// runeOffsets converts fuzzy byte indexes into rune offsets.
func runeOffsets(s string, byteIndexes []int) []int {
	if len(byteIndexes) == 0 {
		return nil
	}
	want := make(map[int]struct{}, len(byteIndexes))
	for _, idx := range byteIndexes {
		want[idx] = struct{}{}
	}
	out := make([]int, 0, len(byteIndexes))
	runeIdx := 0
	for byteIdx := range s {
		if _, ok := want[byteIdx]; ok {
			out = append(out, runeIdx)
		}
		runeIdx++
	}
	return out
}

func notesPreview(notes string) string {
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > notesPreviewRunes {
			return string(runes[:notesPreviewRunes-1]) + "…"
		}
		return line
	}
	return ""
}
