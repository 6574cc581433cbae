// Package ledger is the row-oriented store the lot ledger lives in. The
// contract mirrors what a spreadsheet gives us: ordered rows, appends, deletes
// by position and single-cell updates. There are no multi-row transactions and
// no locks; a single call is atomic, a read followed by a write is not.
package ledger

import (
	"context"
	"fmt"
	"sort"
)

// Row is one data row, cells as displayed text
type Row []string

// Cell returns the cell at col or "" when the row is short
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Clone copies the row so callers can mutate it freely
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Padded returns a copy at least n cells wide
func (r Row) Padded(n int) Row {
	out := r.Clone()
	for len(out) < n {
		out = append(out, "")
	}
	return out
}

// Table names a sheet tab and the columns it spans
type Table struct {
	Name    string
	Columns int  // number of columns, starting at A
	Header  bool // first row is a header and is never returned as data
}

// Tables used by the lot scanner
var (
	LotTable        = Table{Name: "lot", Columns: 19, Header: true}       // A..S
	DeletedLotTable = Table{Name: "deletelot", Columns: 20, Header: true} // A..T
	LotPosTable     = Table{Name: "lot_pos", Columns: 2, Header: true}    // A..B
	ProductTable    = Table{Name: "Products", Columns: 16, Header: true}  // A..P
	AuditTable      = Table{Name: "audit_log", Columns: 9, Header: true}  // A..I
)

// Tables lists every table a backend must provision
func Tables() []Table {
	return []Table{LotTable, DeletedLotTable, LotPosTable, ProductTable, AuditTable}
}

// Store is the row-oriented contract the core depends on.
// Row indices are 0-based positions in the slice ReadRows returned.
type Store interface {
	ReadRows(ctx context.Context, table Table) ([]Row, error)
	AppendRows(ctx context.Context, table Table, rows []Row) error
	DeleteRows(ctx context.Context, table Table, indices []int) error
	UpdateCell(ctx context.Context, table Table, row, col int, value string) error
}

// descending returns a sorted, de-duplicated copy, highest index first.
// Deleting bottom-up keeps the remaining lower indices valid.
func descending(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func checkIndex(table Table, idx, n int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("%s: row index %d out of range (0..%d)", table.Name, idx, n-1)
	}
	return nil
}

// ColumnLetter converts a 0-based column index to its A1 letter (0 → A, 26 → AA)
func ColumnLetter(index int) string {
	n := index + 1
	s := ""
	for n > 0 {
		m := (n - 1) % 26
		s = string(rune('A'+m)) + s
		n = (n - 1) / 26
	}
	return s
}
