package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ledgerRow is one spreadsheet-style row stored in PostgreSQL.
// Row order within a tab is the insertion order of ID.
type ledgerRow struct {
	ID        uint           `gorm:"primaryKey"`
	Tab       string         `gorm:"size:64;not null;index"`
	Cells     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

func (ledgerRow) TableName() string { return "ledger_rows" }

// PostgresStore keeps the ledger tables in a single rows table
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore migrates the rows table and returns the store
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&ledgerRow{}); err != nil {
		return nil, fmt.Errorf("migrate ledger_rows: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) tab(ctx context.Context, db *gorm.DB, table Table) ([]ledgerRow, error) {
	var rows []ledgerRow
	err := db.WithContext(ctx).Where("tab = ?", table.Name).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table.Name, err)
	}
	return rows, nil
}

// ReadRows implements Store
func (s *PostgresStore) ReadRows(ctx context.Context, table Table) ([]Row, error) {
	stored, err := s.tab(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(stored))
	for i, r := range stored {
		if err := json.Unmarshal(r.Cells, &out[i]); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", table.Name, r.ID, err)
		}
	}
	return out, nil
}

// AppendRows implements Store
func (s *PostgresStore) AppendRows(ctx context.Context, table Table, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]ledgerRow, len(rows))
	for i, r := range rows {
		cells, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", table.Name, err)
		}
		records[i] = ledgerRow{Tab: table.Name, Cells: datatypes.JSON(cells)}
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("append %s: %w", table.Name, err)
	}
	return nil
}

// DeleteRows implements Store. Indices are resolved and deleted in one transaction.
func (s *PostgresStore) DeleteRows(ctx context.Context, table Table, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.tab(ctx, tx, table)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(indices))
		for _, idx := range descending(indices) {
			if err := checkIndex(table, idx, len(stored)); err != nil {
				return err
			}
			ids = append(ids, stored[idx].ID)
		}
		if err := tx.Where("id IN ?", ids).Delete(&ledgerRow{}).Error; err != nil {
			return fmt.Errorf("delete rows from %s: %w", table.Name, err)
		}
		return nil
	})
}

// UpdateCell implements Store
func (s *PostgresStore) UpdateCell(ctx context.Context, table Table, row, col int, value string) error {
	if col < 0 {
		return fmt.Errorf("%s: negative column %d", table.Name, col)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.tab(ctx, tx, table)
		if err != nil {
			return err
		}
		if err := checkIndex(table, row, len(stored)); err != nil {
			return err
		}

		var cells Row
		if err := json.Unmarshal(stored[row].Cells, &cells); err != nil {
			return fmt.Errorf("decode %s row %d: %w", table.Name, stored[row].ID, err)
		}
		cells = cells.Padded(col + 1)
		cells[col] = value

		encoded, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		return tx.Model(&ledgerRow{}).Where("id = ?", stored[row].ID).
			Update("cells", datatypes.JSON(encoded)).Error
	})
}
