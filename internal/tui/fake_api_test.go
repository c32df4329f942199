package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// fakeAPIError mimics a transport error carrying a server response.
type fakeAPIError struct {
	detail string
}

func (e *fakeAPIError) Error() string     { return "status error" }
func (e *fakeAPIError) APIDetail() string { return e.detail }
func (e *fakeAPIError) StatusCode() int   { return 500 }

// fakeAPI is an in-memory board server.
type fakeAPI struct {
	mu       sync.Mutex
	columns  []domain.Column
	nextID   int64
	calls    []string
	errs     map[string]error
	lastMove [3]float64
	renamed  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID: 100,
		errs:   map[string]error{},
		columns: []domain.Column{
			{ID: 1, Title: "To Do", Position: 1, Cards: []domain.Card{
				{ID: 10, Title: "Write tests", Notes: "cover the **drag** flow", ColumnID: 1, Position: 1},
				{ID: 11, Title: "Review PR", ColumnID: 1, Position: 2},
			}},
			{ID: 2, Title: "Done", Position: 2, Cards: []domain.Card{}},
		},
	}
}

func (f *fakeAPI) record(op string) error {
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeAPI) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == op {
			n++
		}
	}
	return n
}

func (f *fakeAPI) card(cardID int64) (domain.Card, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Snapshot{Columns: f.columns}.Card(cardID)
}

func (f *fakeAPI) ListColumns(context.Context) ([]domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return domain.Snapshot{Columns: f.columns}.Clone().Columns, nil
}

func (f *fakeAPI) CreateCard(_ context.Context, columnID int64, title, notes string) (domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_card"); err != nil {
		return domain.Card{}, err
	}
	for idx := range f.columns {
		if f.columns[idx].ID == columnID {
			f.nextID++
			card := domain.Card{ID: f.nextID, Title: title, Notes: notes, ColumnID: columnID, Position: float64(len(f.columns[idx].Cards) + 1)}
			f.columns[idx].Cards = append(f.columns[idx].Cards, card)
			return card, nil
		}
	}
	return domain.Card{}, &fakeAPIError{detail: "Column not found"}
}

func (f *fakeAPI) UpdateCard(_ context.Context, cardID int64, title, notes string) (domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update_card"); err != nil {
		return domain.Card{}, err
	}
	for ci := range f.columns {
		for ki := range f.columns[ci].Cards {
			if f.columns[ci].Cards[ki].ID == cardID {
				f.columns[ci].Cards[ki].Title = title
				f.columns[ci].Cards[ki].Notes = notes
				return f.columns[ci].Cards[ki], nil
			}
		}
	}
	return domain.Card{}, &fakeAPIError{detail: "Card not found"}
}

func (f *fakeAPI) removeCard(cardID int64) (domain.Card, bool) {
	for ci := range f.columns {
		for ki, card := range f.columns[ci].Cards {
			if card.ID == cardID {
				f.columns[ci].Cards = append(f.columns[ci].Cards[:ki:ki], f.columns[ci].Cards[ki+1:]...)
				return card, true
			}
		}
	}
	return domain.Card{}, false
}

func (f *fakeAPI) MoveCard(_ context.Context, cardID, columnID int64, position float64) (domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMove = [3]float64{float64(cardID), float64(columnID), position}
	if err := f.record("move_card"); err != nil {
		return domain.Card{}, err
	}
	card, ok := f.removeCard(cardID)
	if !ok {
		return domain.Card{}, &fakeAPIError{detail: "Card not found"}
	}
	for idx := range f.columns {
		if f.columns[idx].ID == columnID {
			card.ColumnID = columnID
			card.Position = position
			f.columns[idx].Cards = append(f.columns[idx].Cards, card)
			return card, nil
		}
	}
	return domain.Card{}, &fakeAPIError{detail: "Column not found"}
}

func (f *fakeAPI) DeleteCard(_ context.Context, cardID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete_card"); err != nil {
		return err
	}
	if _, ok := f.removeCard(cardID); !ok {
		return &fakeAPIError{detail: "Card not found"}
	}
	return nil
}

func (f *fakeAPI) GeneratePrompt(_ context.Context, cardID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("generate"); err != nil {
		return err
	}
	for ci := range f.columns {
		for ki := range f.columns[ci].Cards {
			if f.columns[ci].Cards[ki].ID == cardID {
				f.columns[ci].Cards[ki].Notes += "\n\n## AI Prompt\nImplement it."
				return nil
			}
		}
	}
	return &fakeAPIError{detail: "Card not found"}
}

func (f *fakeAPI) CreateColumn(_ context.Context, title string) (domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_column"); err != nil {
		return domain.Column{}, err
	}
	f.nextID++
	column := domain.Column{ID: f.nextID, Title: title, Position: float64(len(f.columns) + 1), Cards: []domain.Card{}}
	f.columns = append(f.columns, column)
	return column, nil
}

func (f *fakeAPI) RenameColumn(_ context.Context, columnID int64, title string) (domain.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("rename_column"); err != nil {
		return domain.Column{}, err
	}
	for idx := range f.columns {
		if f.columns[idx].ID == columnID {
			f.columns[idx].Title = title
			f.renamed = title
			return f.columns[idx], nil
		}
	}
	return domain.Column{}, &fakeAPIError{detail: "Column not found"}
}

func (f *fakeAPI) DeleteColumn(_ context.Context, columnID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete_column"); err != nil {
		return "", err
	}
	for idx := range f.columns {
		if f.columns[idx].ID != columnID {
			continue
		}
		moved := f.columns[idx].Cards
		f.columns = append(f.columns[:idx:idx], f.columns[idx+1:]...)
		if len(f.columns) > 0 {
			f.columns[0].Cards = append(f.columns[0].Cards, moved...)
		}
		return "Column deleted successfully", nil
	}
	return "", &fakeAPIError{detail: "Column not found"}
}

// memoryPrefs is an in-memory preference store.
type memoryPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func (p *memoryPrefs) GetPreference(_ context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, ok := p.values[key]
	if !ok {
		return "", app.ErrNotFound
	}
	return value, nil
}

func (p *memoryPrefs) SetPreference(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = map[string]string{}
	}
	p.values[key] = value
	return nil
}

// staticActivity returns a fixed activity list.
type staticActivity struct {
	entries []app.ActivityEntry
	err     error
}

func (s staticActivity) ListActivity(_ context.Context, limit int) ([]app.ActivityEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

var errDatabaseLocked = errors.New("database locked")

var fixedNow = time.Date(2026, 3, 4, 15, 30, 0, 0, time.Local)
