package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkMerge_EmptyRows(t *testing.T) {
	n, err := BulkMerge(context.TODO(), nil, MergeConfig{
		Table:        "seen_promotions",
		Columns:      []string{"id", "seen_at"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkMerge_NoColumns(t *testing.T) {
	_, err := BulkMerge(context.TODO(), nil, MergeConfig{
		Table:        "seen_promotions",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkMerge_NoConflictKeys(t *testing.T) {
	_, err := BulkMerge(context.TODO(), nil, MergeConfig{
		Table:   "seen_promotions",
		Columns: []string{"id", "seen_at"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkMerge_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"id", "seen_at"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_merge_seen_promotions"}, cols).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkMerge(context.Background(), mock, MergeConfig{
		Table:        "seen_promotions",
		Columns:      cols,
		ConflictKeys: []string{"id"},
	}, [][]any{{"a", nil}, {"b", nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkMerge_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("db error"))

	_, err = BulkMerge(context.Background(), mock, MergeConfig{
		Table:        "seen_promotions",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestMergeSQL(t *testing.T) {
	cfg := MergeConfig{
		Table:        "seen_promotions",
		Columns:      []string{"id", "seen_at"},
		ConflictKeys: []string{"id"},
	}
	assert.Equal(t,
		`INSERT INTO "seen_promotions" ("id", "seen_at") SELECT "id", "seen_at" FROM "_tmp" ON CONFLICT ("id") DO NOTHING`,
		mergeSQL(cfg, "_tmp"))

	cfg.UpdateCols = []string{"seen_at"}
	assert.Equal(t,
		`INSERT INTO "seen_promotions" ("id", "seen_at") SELECT "id", "seen_at" FROM "_tmp" ON CONFLICT ("id") DO UPDATE SET "seen_at" = EXCLUDED."seen_at"`,
		mergeSQL(cfg, "_tmp"))
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}
