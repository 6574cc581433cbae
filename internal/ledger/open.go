package ledger

import (
	"context"

	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/database"
)

// Open builds the store selected by LEDGER_BACKEND and returns how to release it
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Ledger.Backend {
	case config.BackendSheets:
		store, err := NewSheetsStore(ctx, cfg.Google)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.BackendPostgres:
		// Detects embedded vs external automatically
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewPostgresStore(db.DB)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	default:
		return NewMemoryStore(), noop, nil
	}
}
