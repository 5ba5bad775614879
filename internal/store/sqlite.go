package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/brickwatch/internal/model"
)

// sqliteTimeLayout is fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Ledger using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS price_history (
	id          TEXT PRIMARY KEY,
	item_id     TEXT NOT NULL,
	item_name   TEXT NOT NULL DEFAULT '',
	merchant    TEXT NOT NULL,
	price       TEXT NOT NULL,
	source_url  TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS seen_promotions (
	id      TEXT PRIMARY KEY,
	seen_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_history_series ON price_history(item_id, merchant, recorded_at);
CREATE INDEX IF NOT EXISTS idx_price_history_recorded_at ON price_history(recorded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, records []model.PriceHistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_history (id, item_id, item_name, merchant, price, source_url, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare append")
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.ItemID, r.ItemName, r.Merchant, r.Price.String(), r.SourceURL,
			r.RecordedAt.UTC().Format(sqliteTimeLayout),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %s/%s", r.ItemID, r.Merchant)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) Latest(ctx context.Context, before time.Time) ([]model.PriceHistoryRecord, error) {
	inner := `SELECT id, item_id, item_name, merchant, price, source_url, recorded_at,
		ROW_NUMBER() OVER (PARTITION BY item_id, merchant ORDER BY recorded_at DESC, rowid DESC) AS rn
		FROM price_history`
	var args []any
	if !before.IsZero() {
		inner += ` WHERE recorded_at < ?`
		args = append(args, before.UTC().Format(sqliteTimeLayout))
	}
	query := `SELECT id, item_id, item_name, merchant, price, source_url, recorded_at FROM (` +
		inner + `) WHERE rn = 1 ORDER BY item_id, merchant`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest prices")
	}
	defer rows.Close()
	return scanSQLiteRecords(rows)
}

func (s *SQLiteStore) History(ctx context.Context, filter HistoryFilter) ([]model.PriceHistoryRecord, error) {
	query := `SELECT id, item_id, item_name, merchant, price, source_url, recorded_at FROM price_history WHERE 1=1`
	var args []any

	if filter.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.Merchant != "" {
		query += ` AND merchant = ?`
		args = append(args, filter.Merchant)
	}
	query += ` ORDER BY recorded_at DESC, rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close()
	return scanSQLiteRecords(rows)
}

func (s *SQLiteStore) RemoveItem(ctx context.Context, itemID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_history WHERE item_id = ?`, itemID)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: remove item %s", itemID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) SeenPromotions(ctx context.Context, ids []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	if len(ids) == 0 {
		return seen, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_promotions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: seen promotions")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan promotion")
		}
		seen[id] = true
	}
	return seen, eris.Wrap(rows.Err(), "sqlite: seen promotions iterate")
}

func (s *SQLiteStore) MarkPromotionsSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(sqliteTimeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin mark promotions")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO seen_promotions (id, seen_at) VALUES (?, ?)`, id, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: mark promotion %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit mark promotions")
}

func scanSQLiteRecords(rows *sql.Rows) ([]model.PriceHistoryRecord, error) {
	var out []model.PriceHistoryRecord
	for rows.Next() {
		var (
			r          model.PriceHistoryRecord
			price      string
			recordedAt string
		)
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ItemName, &r.Merchant, &price, &r.SourceURL, &recordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse price of record %s", r.ID)
		}
		r.Price = p
		t, err := time.Parse(sqliteTimeLayout, recordedAt)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse recorded_at of record %s", r.ID)
		}
		r.RecordedAt = t
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: records iterate")
}
