package domain

import (
	"errors"
	"testing"
)

func sampleSnapshot() Snapshot {
	return Snapshot{Columns: []Column{
		{ID: 1, Title: "TODO", Position: 1, Cards: []Card{
			{ID: 10, Title: "Write docs", ColumnID: 1, Position: 1},
			{ID: 11, Title: "Ship", Notes: "  ", ColumnID: 1, Position: 2},
		}},
		{ID: 2, Title: "In Progress", Position: 2},
		{ID: 3, Title: "Completed", Position: 3, Cards: []Card{
			{ID: 12, Title: "Plan", Notes: "done", ColumnID: 3, Position: 1},
		}},
	}}
}

func TestNormalizeTitle(t *testing.T) {
	title, err := NormalizeTitle("  Buy milk \n")
	if err != nil {
		t.Fatalf("NormalizeTitle() error = %v", err)
	}
	if title != "Buy milk" {
		t.Fatalf("unexpected title %q", title)
	}
	if _, err := NormalizeTitle("   "); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestCardHasNotes(t *testing.T) {
	if (Card{Notes: " \t"}).HasNotes() {
		t.Fatal("expected blank notes to be treated as absent")
	}
	if !(Card{Notes: "x"}).HasNotes() {
		t.Fatal("expected notes to be present")
	}
}

func TestSnapshotLookups(t *testing.T) {
	s := sampleSnapshot()
	if _, ok := s.Column(2); !ok {
		t.Fatal("expected column 2")
	}
	if _, ok := s.Column(99); ok {
		t.Fatal("expected missing column 99")
	}
	card, ok := s.Card(12)
	if !ok || card.Title != "Plan" {
		t.Fatalf("unexpected card lookup %#v, %t", card, ok)
	}
	if got := s.CardCount(); got != 3 {
		t.Fatalf("expected 3 cards, got %d", got)
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	s := sampleSnapshot()
	clone := s.Clone()
	clone.Columns[0].Cards[0].Title = "changed"
	clone.Columns[0].Title = "changed"
	if s.Columns[0].Cards[0].Title != "Write docs" || s.Columns[0].Title != "TODO" {
		t.Fatal("expected clone mutations to leave the source untouched")
	}
}

func TestNextMovePosition(t *testing.T) {
	s := sampleSnapshot()
	if got := s.Columns[0].NextMovePosition(); got != 3 {
		t.Fatalf("expected position 3, got %v", got)
	}
	if got := s.Columns[1].NextMovePosition(); got != 1 {
		t.Fatalf("expected position 1 for empty column, got %v", got)
	}
}

func TestCheckColumnRename(t *testing.T) {
	s := sampleSnapshot()
	cases := []struct {
		name        string
		raw         string
		wantTitle   string
		wantChanged bool
		wantErr     error
	}{
		{name: "new title", raw: " Backlog ", wantTitle: "Backlog", wantChanged: true},
		{name: "unchanged", raw: "TODO ", wantTitle: "TODO"},
		{name: "case change of own title", raw: "todo", wantTitle: "todo", wantChanged: true},
		{name: "empty", raw: "  ", wantErr: ErrInvalidTitle},
		{name: "duplicate ignoring case", raw: "completed", wantErr: ErrDuplicateColumnTitle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, changed, err := CheckColumnRename(s, 1, "TODO", tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckColumnRename() error = %v", err)
			}
			if title != tc.wantTitle || changed != tc.wantChanged {
				t.Fatalf("unexpected result %q changed=%t", title, changed)
			}
		})
	}
}

func TestParseThemeAndToggle(t *testing.T) {
	theme, err := ParseTheme(" Dark ")
	if err != nil {
		t.Fatalf("ParseTheme() error = %v", err)
	}
	if theme != ThemeDark {
		t.Fatalf("unexpected theme %q", theme)
	}
	if theme.Toggle() != ThemeLight || ThemeLight.Toggle() != ThemeDark {
		t.Fatal("unexpected toggle result")
	}
	if _, err := ParseTheme("sepia"); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
}
