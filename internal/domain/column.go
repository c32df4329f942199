package domain

import "strings"

// Column is one named lane of cards as returned by the board API.
type Column struct {
	ID       int64   `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Position float64 `json:"position" yaml:"position"`
	Cards    []Card  `json:"cards" yaml:"cards"`
}

// CardCount returns the number of cards in the column.
func (c Column) CardCount() int {
	return len(c.Cards)
}

// NextMovePosition returns the position a card dropped into this column is sent with.
func (c Column) NextMovePosition() float64 {
	return float64(len(c.Cards) + 1)
}

// CheckColumnRename validates a rename of columnID to raw against the snapshot.
// changed is false when the trimmed title equals the current one; callers skip the request then.
func CheckColumnRename(s Snapshot, columnID int64, currentTitle, raw string) (title string, changed bool, err error) {
	title, err = NormalizeTitle(raw)
	if err != nil {
		return "", false, err
	}
	if title == strings.TrimSpace(currentTitle) {
		return title, false, nil
	}
	for _, column := range s.Columns {
		if column.ID == columnID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(column.Title), title) {
			return "", false, ErrDuplicateColumnTitle
		}
	}
	return title, true, nil
}
