package domain

// Snapshot is the full board as of the last successful fetch.
// It is always replaced wholesale, never patched.
type Snapshot struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// Column returns the column with the given id.
func (s Snapshot) Column(id int64) (Column, bool) {
	for _, column := range s.Columns {
		if column.ID == id {
			return column, true
		}
	}
	return Column{}, false
}

// Card returns the card with the given id.
func (s Snapshot) Card(id int64) (Card, bool) {
	for _, column := range s.Columns {
		for _, card := range column.Cards {
			if card.ID == id {
				return card, true
			}
		}
	}
	return Card{}, false
}

// CardCount returns the number of cards across all columns.
func (s Snapshot) CardCount() int {
	total := 0
	for _, column := range s.Columns {
		total += len(column.Cards)
	}
	return total
}

// Clone deep-copies the snapshot so callers can hand it across goroutines.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Columns: make([]Column, 0, len(s.Columns))}
	for _, column := range s.Columns {
		column.Cards = append([]Card(nil), column.Cards...)
		out.Columns = append(out.Columns, column)
	}
	return out
}
