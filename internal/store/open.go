package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brickwatch/internal/config"
)

// Open connects to the configured ledger backend and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Ledger, error) {
	var (
		l   Ledger
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		l, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		l, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}
