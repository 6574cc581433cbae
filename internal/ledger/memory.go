package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Op names a store operation, used for fault injection and counters
type Op string

const (
	OpRead   Op = "read"
	OpAppend Op = "append"
	OpDelete Op = "delete"
	OpUpdate Op = "update"
)

// MemoryStore keeps tables in process memory.
// It backs LEDGER_BACKEND=memory and every test that needs a store.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]Row
	calls  map[Op]int

	// FailOn, when set, is consulted before every call; a non-nil error aborts it
	FailOn func(op Op, table Table) error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]Row),
		calls:  make(map[Op]int),
	}
}

// Seed replaces a table's data rows
func (s *MemoryStore) Seed(table Table, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table.Name] = cloneRows(rows)
}

// Rows returns a copy of a table's data rows without counting a read
func (s *MemoryStore) Rows(table Table) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.tables[table.Name])
}

// Calls reports how many times op has been invoked
func (s *MemoryStore) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Writes reports the number of mutating calls
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[OpAppend] + s.calls[OpDelete] + s.calls[OpUpdate]
}

// ResetCalls zeroes the call counters
func (s *MemoryStore) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[Op]int)
}

func (s *MemoryStore) enter(op Op, table Table) error {
	s.calls[op]++
	if s.FailOn != nil {
		if err := s.FailOn(op, table); err != nil {
			return fmt.Errorf("%s %s: %w", op, table.Name, err)
		}
	}
	return nil
}

// ReadRows implements Store
func (s *MemoryStore) ReadRows(ctx context.Context, table Table) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRead, table); err != nil {
		return nil, err
	}
	return cloneRows(s.tables[table.Name]), nil
}

// AppendRows implements Store
func (s *MemoryStore) AppendRows(ctx context.Context, table Table, rows []Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpAppend, table); err != nil {
		return err
	}
	s.tables[table.Name] = append(s.tables[table.Name], cloneRows(rows)...)
	return nil
}

// DeleteRows implements Store
func (s *MemoryStore) DeleteRows(ctx context.Context, table Table, indices []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDelete, table); err != nil {
		return err
	}
	rows := s.tables[table.Name]
	order := descending(indices)
	for _, idx := range order {
		if err := checkIndex(table, idx, len(rows)); err != nil {
			return err
		}
	}
	for _, idx := range order {
		rows = append(rows[:idx], rows[idx+1:]...)
	}
	s.tables[table.Name] = rows
	return nil
}

// UpdateCell implements Store
func (s *MemoryStore) UpdateCell(ctx context.Context, table Table, row, col int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdate, table); err != nil {
		return err
	}
	rows := s.tables[table.Name]
	if err := checkIndex(table, row, len(rows)); err != nil {
		return err
	}
	if col < 0 {
		return fmt.Errorf("%s: negative column %d", table.Name, col)
	}
	rows[row] = rows[row].Padded(col + 1)
	rows[row][col] = value
	return nil
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
