package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
)

// Open returns the ledger backend cfg selects. For Postgres it also returns
// the migrated connection so callers can share it; for LevelDB conn is nil.
func Open(ctx context.Context, cfg config.Config) (repo LedgerRepositoryInterface, conn *sql.DB, err error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		conn, err = db.Open(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return &PostgresRepository{DB: conn}, conn, nil
	case config.BackendLevelDB:
		repo, err := OpenLevelRepository(cfg.LevelDBPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}
