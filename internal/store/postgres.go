package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/brickwatch/internal/db"
	"github.com/sells-group/brickwatch/internal/model"
)

// PostgresStore implements Ledger using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

var historyColumns = []string{"id", "item_id", "item_name", "merchant", "price", "source_url", "recorded_at"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS price_history (
	seq         BIGINT GENERATED ALWAYS AS IDENTITY,
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	item_id     TEXT NOT NULL,
	item_name   TEXT NOT NULL DEFAULT '',
	merchant    TEXT NOT NULL,
	price       NUMERIC(12,2) NOT NULL,
	source_url  TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS seen_promotions (
	id      TEXT PRIMARY KEY,
	seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_history_series ON price_history(item_id, merchant, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_price_history_recorded_at ON price_history(recorded_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, records []model.PriceHistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, len(records))
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		var price pgtype.Numeric
		if err := price.Scan(r.Price.String()); err != nil {
			return eris.Wrapf(err, "postgres: encode price %s", r.Price)
		}
		rows[i] = []any{r.ID, r.ItemID, r.ItemName, r.Merchant, price, r.SourceURL, r.RecordedAt.UTC()}
	}

	if _, err := db.CopyFrom(ctx, s.pool, "price_history", historyColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: append")
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, before time.Time) ([]model.PriceHistoryRecord, error) {
	query := `SELECT DISTINCT ON (item_id, merchant) id, item_id, item_name, merchant, price::text, source_url, recorded_at FROM price_history`
	var args []any
	if !before.IsZero() {
		query += ` WHERE recorded_at < $1`
		args = append(args, before.UTC())
	}
	query += ` ORDER BY item_id, merchant, recorded_at DESC, seq DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest prices")
	}
	defer rows.Close()
	return scanPostgresRecords(rows)
}

func (s *PostgresStore) History(ctx context.Context, filter HistoryFilter) ([]model.PriceHistoryRecord, error) {
	query := `SELECT id, item_id, item_name, merchant, price::text, source_url, recorded_at FROM price_history WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ItemID != "" {
		query += fmt.Sprintf(` AND item_id = $%d`, argIdx)
		args = append(args, filter.ItemID)
		argIdx++
	}
	if filter.Merchant != "" {
		query += fmt.Sprintf(` AND merchant = $%d`, argIdx)
		args = append(args, filter.Merchant)
		argIdx++
	}
	query += ` ORDER BY recorded_at DESC, seq DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()
	return scanPostgresRecords(rows)
}

func (s *PostgresStore) RemoveItem(ctx context.Context, itemID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_history WHERE item_id = $1`, itemID)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: remove item %s", itemID)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SeenPromotions(ctx context.Context, ids []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	if len(ids) == 0 {
		return seen, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id FROM seen_promotions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: seen promotions")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan promotion")
		}
		seen[id] = true
	}
	return seen, eris.Wrap(rows.Err(), "postgres: seen promotions iterate")
}

func (s *PostgresStore) MarkPromotionsSeen(ctx context.Context, ids []string) error {
	now := time.Now().UTC()
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id, now}
	}
	_, err := db.BulkMerge(ctx, s.pool, db.MergeConfig{
		Table:        "seen_promotions",
		Columns:      []string{"id", "seen_at"},
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: mark promotions")
}

func scanPostgresRecords(rows pgx.Rows) ([]model.PriceHistoryRecord, error) {
	var out []model.PriceHistoryRecord
	for rows.Next() {
		var (
			r     model.PriceHistoryRecord
			price string
		)
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ItemName, &r.Merchant, &price, &r.SourceURL, &r.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: parse price of record %s", r.ID)
		}
		r.Price = p
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: records iterate")
}
