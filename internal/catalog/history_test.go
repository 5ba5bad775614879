package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brickwatch/internal/model"
)

func TestHistoryRoundTrip(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	t1 := time.Date(2025, 6, 13, 7, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	records := []model.PriceHistoryRecord{
		{ItemID: "42151", ItemName: "Bugatti Bolide", Merchant: "Amazon", Price: decimal.RequireFromString("44.99"), RecordedAt: t2},
		{ItemID: "42151", ItemName: "Bugatti Bolide", Merchant: "Lego", Price: decimal.RequireFromString("49.99"), RecordedAt: t1},
	}

	path := filepath.Join(t.TempDir(), "prix_lego.xlsx")
	require.NoError(t, WriteHistoryXLSX(path, records, paris))

	got, err := ReadHistoryXLSX(path, paris)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Lego", got[0].Merchant, "oldest first")
	assert.True(t, got[0].RecordedAt.Equal(t1))
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, "Bugatti Bolide", got[0].ItemName)
	assert.Equal(t, "Amazon", got[1].Merchant)
	assert.True(t, got[1].RecordedAt.Equal(t2))
}

func TestReadHistoryXLSX_SkipsBadRows(t *testing.T) {
	path := createTestXLSX(t, "Sheet1", [][]string{
		{"Date", "ID_Set", "Nom_Set", "Site", "Prix"},
		{"2024-05-01 10:00:00", "42151", "Bugatti Bolide", "Lego", "49,99"},
		{"yesterday", "42151", "Bugatti Bolide", "Lego", "48.99"},
		{"2024-05-02 10:00:00", "42151", "Bugatti Bolide", "Lego", "N/A"},
		{"2024-05-03 10:00:00", "", "Bugatti Bolide", "Lego", "47.99"},
		{"2024-05-04", "42151", "Bugatti Bolide", "Amazon", "45.00 €"},
	})

	got, err := ReadHistoryXLSX(path, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "49.99", got[0].Price.StringFixed(2))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), got[0].RecordedAt)
	assert.Equal(t, "45.00", got[1].Price.StringFixed(2))
}

func TestReadHistoryXLSX_MissingColumns(t *testing.T) {
	path := createTestXLSX(t, "Sheet1", [][]string{{"Date", "ID_Set"}})

	_, err := ReadHistoryXLSX(path, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestParsePrice(t *testing.T) {
	for in, want := range map[string]string{
		"49.99":   "49.99",
		"49,99":   "49.99",
		"49.99 €": "49.99",
		"49.999":  "50",
	} {
		d, ok := parsePrice(in)
		require.True(t, ok, in)
		assert.True(t, d.Equal(decimal.RequireFromString(want)), in)
	}
	for _, in := range []string{"", "0", "-1", "abc"} {
		_, ok := parsePrice(in)
		assert.False(t, ok, in)
	}
}
