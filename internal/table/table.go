// Package table holds the canonical in-memory table. It is read-only after
// normalization: filters and analytics return new derived collections and
// never touch Rows.
package table

import (
	"time"

	"recebiveis/internal"
)

type Table struct {
	Dataset     string
	Rows        []internal.Receivable
	DroppedRows int
	// ExtraColumns lists unrecognized source headers, in source order.
	ExtraColumns []string
	// Today is the load-time reference date used for derived days-to-due.
	Today time.Time
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Derive returns a table sharing this table's metadata with a restricted
// row set.
func (t *Table) Derive(rows []internal.Receivable) *Table {
	return &Table{
		Dataset:      t.Dataset,
		Rows:         rows,
		DroppedRows:  t.DroppedRows,
		ExtraColumns: t.ExtraColumns,
		Today:        t.Today,
	}
}
