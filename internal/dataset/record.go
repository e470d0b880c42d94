package dataset

import "time"

// ModificationRecord describes one committed change to the modified table.
// It is kept in history next to the snapshot taken before the change.
type ModificationRecord struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Parameter    float64   `json:"parameter,omitempty"`
	Expression   string    `json:"expression,omitempty"`
	Columns      []string  `json:"columns,omitempty"`
	Rows         RowRange  `json:"rows"`
	CellsChanged int       `json:"cells_changed"`
	Timestamp    time.Time `json:"timestamp"`
}
