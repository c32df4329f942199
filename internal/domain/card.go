package domain

import "strings"

// Card is one task on the board. Notes may be empty.
type Card struct {
	ID       int64   `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Notes    string  `json:"notes" yaml:"notes,omitempty"`
	ColumnID int64   `json:"column_id" yaml:"column_id"`
	Position float64 `json:"position" yaml:"position"`
}

// HasNotes reports whether the card carries non-blank notes.
func (c Card) HasNotes() bool {
	return strings.TrimSpace(c.Notes) != ""
}

// NormalizeTitle trims raw and rejects blank titles.
func NormalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrInvalidTitle
	}
	return title, nil
}

// NormalizeNotes trims surrounding whitespace from notes.
func NormalizeNotes(raw string) string {
	return strings.TrimSpace(raw)
}
