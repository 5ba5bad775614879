package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/resilience"
)

var collectTime = time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)

func testMerchants(t *testing.T) []Merchant {
	t.Helper()
	var out []Merchant
	for _, mc := range []config.MerchantConfig{
		{Name: "Lego", Kind: "standard", Selector: ".price"},
		{Name: "Brickmo", Kind: "brickmo"},
		{Name: "Avenue", Kind: "avenue"},
	} {
		m, err := NewMerchant(mc)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func testCollector(t *testing.T, g Getter, threshold int) *Collector {
	t.Helper()
	return NewCollector(g, testMerchants(t), CollectorOptions{
		Avenue:         testAvenue(t),
		Concurrency:    2,
		BlockThreshold: threshold,
		Clock:          func() time.Time { return collectTime },
	})
}

func TestNewMerchant_Validation(t *testing.T) {
	_, err := NewMerchant(config.MerchantConfig{Name: "Lego", Kind: "standard"})
	assert.Error(t, err, "standard needs a selector")

	_, err = NewMerchant(config.MerchantConfig{Name: "Carrefour", Kind: "carrefour", EurosSelector: ".e"})
	assert.Error(t, err, "carrefour needs both selectors")

	_, err = NewMerchant(config.MerchantConfig{Name: "Ebay", Kind: "ebay"})
	assert.Error(t, err)

	m, err := NewMerchant(config.MerchantConfig{Name: "Amazon", Kind: "amazon"})
	require.NoError(t, err)
	assert.Equal(t, KindAmazon, m.Kind)
}

func TestCollect_ObservationsAndFailures(t *testing.T) {
	cat := catalog.New(
		model.TrackedItem{ID: "42151", Name: "Bugatti Bolide", URLs: map[string]string{
			"Lego":    "https://lego.test/42151",
			"Brickmo": "https://brickmo.test/42151",
		}},
		model.TrackedItem{ID: "10305", Name: "Lion Knights' Castle", URLs: map[string]string{
			"Lego": "https://lego.test/10305",
		}},
	)
	g := newFakeGetter().
		page("https://lego.test/42151", `<span class="price">49,99 €</span>`).
		page("https://lego.test/10305", `<span class="price">Rupture de stock</span>`).
		page("https://brickmo.test/42151", `<meta itemprop="price" content="44.90">`)

	res, err := testCollector(t, g, 3).Collect(context.Background(), cat)
	require.NoError(t, err)

	require.Len(t, res.Observations, 2)
	assert.Equal(t, model.PriceObservation{
		ItemID: "42151", Merchant: "Brickmo", Price: res.Observations[0].Price,
		SourceURL: "https://brickmo.test/42151", ObservedAt: collectTime,
	}, res.Observations[0])
	assert.Equal(t, "44.90", res.Observations[0].Price.StringFixed(2))
	assert.Equal(t, "Lego", res.Observations[1].Merchant)
	assert.Equal(t, "49.99", res.Observations[1].Price.StringFixed(2))

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "10305", res.Failures[0].ItemID)
	assert.ErrorIs(t, res.Failures[0].Err, ErrNoPrice)

	assert.Equal(t, []MerchantStats{
		{Merchant: "Brickmo", Pages: 1},
		{Merchant: "Lego", Pages: 2, Failed: 1},
	}, res.Stats)
}

func TestCollect_OnlyPositivePricesLeave(t *testing.T) {
	cat := catalog.New(model.TrackedItem{ID: "40516", URLs: map[string]string{"Brickmo": "https://brickmo.test/40516"}})
	g := newFakeGetter().page("https://brickmo.test/40516", `<meta itemprop="price" content="0.00">`)

	res, err := testCollector(t, g, 3).Collect(context.Background(), cat)
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	assert.Len(t, res.Failures, 1)
}

func TestCollect_UnknownMerchantColumn(t *testing.T) {
	cat := catalog.New(model.TrackedItem{ID: "42151", URLs: map[string]string{"Smyths": "https://smyths.test/42151"}})
	g := newFakeGetter()

	res, err := testCollector(t, g, 3).Collect(context.Background(), cat)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, ErrUnknownMerchant)
	assert.False(t, g.requested("https://smyths.test/42151"))
	assert.Equal(t, []MerchantStats{{Merchant: "Smyths", Pages: 1, Failed: 1}}, res.Stats)
}

func TestCollectMerchant_StatsOnEveryReturn(t *testing.T) {
	cat := catalog.New(
		model.TrackedItem{ID: "1", URLs: map[string]string{"Smyths": "https://smyths.test/1"}},
		model.TrackedItem{ID: "2", URLs: map[string]string{"Smyths": "https://smyths.test/2"}},
	)
	c := testCollector(t, newFakeGetter(), 3)

	res := c.collectMerchant(context.Background(), cat, cat.Tasks()[0])
	assert.Len(t, res.Failures, 2)
	assert.Equal(t, []MerchantStats{{Merchant: "Smyths", Pages: 2, Failed: 2}}, res.Stats)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lego := catalog.New(model.TrackedItem{ID: "1", URLs: map[string]string{"Lego": "https://lego.test/1"}})
	res = c.collectMerchant(ctx, lego, lego.Tasks()[0])
	assert.Equal(t, []MerchantStats{{Merchant: "Lego"}}, res.Stats)
}

func TestCollect_BreakerSkipsBlockingMerchant(t *testing.T) {
	var items []model.TrackedItem
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		items = append(items, model.TrackedItem{ID: id, URLs: map[string]string{"Lego": "https://lego.test/" + id}})
	}
	// No canned pages: every request reports a captcha.
	g := newFakeGetter()

	res, err := testCollector(t, g, 2).Collect(context.Background(), catalog.New(items...))
	require.NoError(t, err)
	require.Len(t, res.Failures, 5)
	assert.True(t, g.requested("https://lego.test/2"))
	assert.False(t, g.requested("https://lego.test/3"))
	assert.ErrorIs(t, res.Failures[4].Err, resilience.ErrBreakerOpen)
	assert.Equal(t, []MerchantStats{{Merchant: "Lego", Pages: 5, Failed: 5, Tripped: true}}, res.Stats)
}

func TestCollect_BlockPageWithoutPrice(t *testing.T) {
	cat := catalog.New(model.TrackedItem{ID: "42151", URLs: map[string]string{"Lego": "https://lego.test/42151"}})
	g := newFakeGetter().page("https://lego.test/42151", `<form action="/errors/validateCaptcha"></form>`)

	res, err := testCollector(t, g, 3).Collect(context.Background(), cat)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	var blocked *BlockedError
	assert.True(t, errors.As(res.Failures[0].Err, &blocked))
}

func TestCollect_AvenueYieldsSeveralObservations(t *testing.T) {
	cat := catalog.New(model.TrackedItem{ID: "42151", URLs: map[string]string{
		"Avenue": "https://avenue.test/42151",
		"Lego":   "https://lego.test/42151",
	}})
	g := newFakeGetter().
		page("https://avenue.test/42151", avenuePage).
		page("https://lego.test/42151", `<span class="price">49,99 €</span>`)

	res, err := testCollector(t, g, 3).Collect(context.Background(), cat)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)

	var merchants []string
	for _, o := range res.Observations {
		merchants = append(merchants, o.Merchant)
		assert.Equal(t, "42151", o.ItemID)
	}
	assert.Equal(t, []string{"Amazon", "Amazon Marketplace", "Fnac", "Lego"}, merchants)
}

func TestCollect_AvenueSkipsDirectlyTrackedMerchants(t *testing.T) {
	cat := catalog.New(model.TrackedItem{ID: "42151", URLs: map[string]string{
		"Avenue": "https://avenue.test/42151",
		"Fnac":   "https://fnac.test/42151",
	}})
	g := newFakeGetter().page("https://avenue.test/42151", avenuePage)

	res, err := testCollector(t, g, 3).Collect(context.Background(), cat)
	require.NoError(t, err)
	for _, o := range res.Observations {
		assert.NotEqual(t, "Fnac", o.Merchant)
	}
}

func TestCollect_Canceled(t *testing.T) {
	cat := catalog.New(model.TrackedItem{ID: "42151", URLs: map[string]string{"Lego": "https://lego.test/42151"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testCollector(t, newFakeGetter(), 3).Collect(ctx, cat)
	assert.ErrorIs(t, err, context.Canceled)
}
