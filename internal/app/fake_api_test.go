package app

import (
	"context"
	"errors"
	"sync"

	"github.com/hylla/kanboard/internal/domain"
)

// fakeAPIError mimics a transport error carrying a server response.
type fakeAPIError struct {
	status int
	detail string
}

func (e *fakeAPIError) Error() string     { return "status error" }
func (e *fakeAPIError) APIDetail() string { return e.detail }
func (e *fakeAPIError) StatusCode() int   { return e.status }

// fakeAPI is an in-memory board server.
type fakeAPI struct {
	mu            sync.Mutex
	columns       []domain.Column
	nextID        int64
	calls         []string
	errs          map[string]error
	deleteMessage string
	lastMove      moveCall

	listEntered chan struct{}
	listGate    chan struct{}

	generateEntered chan struct{}
	generateBlock   bool
}

// moveCall records the arguments of the last MoveCard call.
type moveCall struct {
	cardID   int64
	columnID int64
	position float64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID: 100,
		errs:   map[string]error{},
		columns: []domain.Column{
			{ID: 1, Title: "To Do", Position: 1, Cards: []domain.Card{
				{ID: 10, Title: "Write tests", ColumnID: 1, Position: 1},
			}},
			{ID: 2, Title: "Done", Position: 2, Cards: []domain.Card{}},
		},
	}
}

func (f *fakeAPI) record(op string) error {
	f.calls = append(f.calls, op)
	return f.errs[op]
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

func (f *fakeAPI) setColumns(columns []domain.Column) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.columns = columns
}

func (f *fakeAPI) cloneColumns() []domain.Column {
	return domain.Snapshot{Columns: f.columns}.Clone().Columns
}

func (f *fakeAPI) ListColumns(context.Context) ([]domain.Column, error) {
	f.mu.Lock()
	err := f.record("list")
	columns := f.cloneColumns()
	entered, gate := f.listEntered, f.listGate
	f.listEntered, f.listGate = nil, nil
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return columns, nil
}

func (f *fakeAPI) CreateCard(_ context.Context, columnID int64, title, notes string) (domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_card"); err != nil {
		return domain.Card{}, err
	}
	for idx := range f.columns {
		if f.columns[idx].ID != columnID {
			continue
		}
		f.nextID++
		card := domain.Card{ID: f.nextID, Title: title, Notes: notes, ColumnID: columnID, Position: float64(len(f.columns[idx].Cards) + 1)}
		f.columns[idx].Cards = append(f.columns[idx].Cards, card)
		return card, nil
	}
	return domain.Card{}, &fakeAPIError{status: 404, detail: "Column not found"}
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
	return domain.Card{}, &fakeAPIError{status: 404, detail: "Card not found"}
}

func (f *fakeAPI) MoveCard(_ context.Context, cardID, columnID int64, position float64) (domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMove = moveCall{cardID: cardID, columnID: columnID, position: position}
	if err := f.record("move_card"); err != nil {
		return domain.Card{}, err
	}
	card, ok := f.removeCard(cardID)
	if !ok {
		return domain.Card{}, &fakeAPIError{status: 404, detail: "Card not found"}
	}
	for idx := range f.columns {
		if f.columns[idx].ID == columnID {
			card.ColumnID = columnID
			card.Position = position
			f.columns[idx].Cards = append(f.columns[idx].Cards, card)
			return card, nil
		}
	}
	return domain.Card{}, &fakeAPIError{status: 404, detail: "Column not found"}
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

func (f *fakeAPI) DeleteCard(_ context.Context, cardID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete_card"); err != nil {
		return err
	}
	if _, ok := f.removeCard(cardID); !ok {
		return &fakeAPIError{status: 404, detail: "Card not found"}
	}
	return nil
}

func (f *fakeAPI) GeneratePrompt(ctx context.Context, cardID int64) error {
	f.mu.Lock()
	err := f.record("generate")
	entered, block := f.generateEntered, f.generateBlock
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ci := range f.columns {
		for ki := range f.columns[ci].Cards {
			if f.columns[ci].Cards[ki].ID == cardID {
				f.columns[ci].Cards[ki].Notes += "\n\nAI prompt"
				return nil
			}
		}
	}
	return &fakeAPIError{status: 404, detail: "Card not found"}
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
			return f.columns[idx], nil
		}
	}
	return domain.Column{}, &fakeAPIError{status: 404, detail: "Column not found"}
}

func (f *fakeAPI) DeleteColumn(_ context.Context, columnID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete_column"); err != nil {
		return "", err
	}
	if len(f.columns) <= 1 {
		return "", &fakeAPIError{status: 400, detail: "Cannot delete the last column"}
	}
	for idx, column := range f.columns {
		if column.ID != columnID {
			continue
		}
		f.columns = append(f.columns[:idx:idx], f.columns[idx+1:]...)
		first := &f.columns[0]
		for _, card := range column.Cards {
			card.ColumnID = first.ID
			first.Cards = append(first.Cards, card)
		}
		return f.deleteMessage, nil
	}
	return "", errors.New("column not found")
}

// recordingActivity collects activity entries.
type recordingActivity struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *recordingActivity) RecordActivity(_ context.Context, entry ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// memoryPrefs is an in-memory PreferenceStore.
type memoryPrefs struct {
	values map[string]string
	err    error
}

func (m *memoryPrefs) GetPreference(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryPrefs) SetPreference(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}
