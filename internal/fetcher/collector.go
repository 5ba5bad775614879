package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/resilience"
)

// ErrNoPrice is recorded when a page loads but no positive price is found.
var ErrNoPrice = eris.New("no price found")

// ErrUnknownMerchant is recorded for sheet columns with no merchant config.
var ErrUnknownMerchant = eris.New("merchant not configured")

// Merchant is a configured site with its extraction strategy.
type Merchant struct {
	Name      string
	Kind      Kind
	Cookie    string
	extractor Extractor
}

// NewMerchant validates a merchant config and binds its extractor.
func NewMerchant(mc config.MerchantConfig) (Merchant, error) {
	kind, err := ParseKind(mc.Kind)
	if err != nil {
		return Merchant{}, eris.Wrapf(err, "fetcher: merchant %s", mc.Name)
	}
	m := Merchant{Name: mc.Name, Kind: kind, Cookie: mc.Cookie}
	switch kind {
	case KindStandard:
		if mc.Selector == "" {
			return Merchant{}, eris.Errorf("fetcher: merchant %s: standard kind needs a selector", mc.Name)
		}
		m.extractor = SelectorExtractor{Selector: mc.Selector}
	case KindAmazon:
		m.extractor = AmazonExtractor{}
	case KindCarrefour:
		if mc.EurosSelector == "" || mc.CentsSelector == "" {
			return Merchant{}, eris.Errorf("fetcher: merchant %s: carrefour kind needs euros and cents selectors", mc.Name)
		}
		m.extractor = SplitExtractor{EurosSelector: mc.EurosSelector, CentsSelector: mc.CentsSelector}
	case KindBrickmo:
		m.extractor = MetaPriceExtractor{}
	}
	return m, nil
}

// Failure is one product page that yielded no observation.
type Failure struct {
	Merchant string
	ItemID   string
	URL      string
	Err      error
}

// MerchantStats counts the pages of one merchant in a pass.
type MerchantStats struct {
	Merchant string
	Pages    int
	Failed   int
	Tripped  bool // skipped the remaining pages after repeated blocks
}

// Result holds the outcome of a collection pass.
type Result struct {
	Observations []model.PriceObservation
	Failures     []Failure
	Stats        []MerchantStats
}

// Getter fetches a page. *Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL, cookie string) (*Page, error)
}

// CollectorOptions configures a Collector.
type CollectorOptions struct {
	Avenue         *AvenueParser // nil disables the avenue kind
	Concurrency    int           // merchants fetched in parallel
	BlockThreshold int           // consecutive blocked pages before a merchant is skipped
	Clock          func() time.Time
}

// Collector reads current prices for every catalog page.
type Collector struct {
	getter    Getter
	merchants map[string]Merchant
	opts      CollectorOptions
}

// NewCollector creates a Collector over the given merchants.
func NewCollector(getter Getter, merchants []Merchant, opts CollectorOptions) *Collector {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	byName := make(map[string]Merchant, len(merchants))
	for _, m := range merchants {
		byName[m.Name] = m
	}
	return &Collector{getter: getter, merchants: byName, opts: opts}
}

// FromConfig builds a Client and Collector from application config.
func FromConfig(cfg *config.Config) (*Collector, error) {
	merchants := make([]Merchant, 0, len(cfg.Merchants))
	var hasAvenue bool
	for _, mc := range cfg.Merchants {
		m, err := NewMerchant(mc)
		if err != nil {
			return nil, err
		}
		hasAvenue = hasAvenue || m.Kind == KindAvenue
		merchants = append(merchants, m)
	}

	opts := CollectorOptions{
		Concurrency:    cfg.Fetch.MaxConcurrentMerchants,
		BlockThreshold: cfg.Fetch.MaxConsecutiveBlocks,
	}
	if hasAvenue {
		p, err := NewAvenueParser(cfg.Avenue.BaseURL, cfg.Avenue.Aliases)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: avenue base url")
		}
		opts.Avenue = p
	}

	client := NewClient(ClientOptions{
		UserAgent:         cfg.Fetch.UserAgent,
		AcceptLanguage:    cfg.Fetch.AcceptLanguage,
		Timeout:           time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.Fetch.MaxRetries,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
	})
	return NewCollector(client, merchants, opts), nil
}

// Collect fetches every page of the catalog. Merchants run in parallel up
// to the configured limit; pages of one merchant are fetched one after the
// other. Per-page failures never abort the pass. The only error returned
// is context cancellation.
func (c *Collector) Collect(ctx context.Context, cat *catalog.Catalog) (Result, error) {
	groups := cat.Tasks()
	results := make([]Result, len(groups))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, mt := range groups {
		g.Go(func() error {
			results[i] = c.collectMerchant(gCtx, cat, mt)
			return gCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var out Result
	for _, r := range results {
		out.Observations = append(out.Observations, r.Observations...)
		out.Failures = append(out.Failures, r.Failures...)
		out.Stats = append(out.Stats, r.Stats...)
	}
	zap.L().Info("fetcher: collection complete",
		zap.Int("observations", len(out.Observations)),
		zap.Int("failures", len(out.Failures)),
	)
	return out, nil
}

// collectMerchant fetches one merchant's pages in order. res is named so
// that the deferred stats reach the caller on every return path.
func (c *Collector) collectMerchant(ctx context.Context, cat *catalog.Catalog, mt catalog.MerchantTasks) (res Result) {
	stats := MerchantStats{Merchant: mt.Merchant}
	defer func() {
		stats.Failed = len(res.Failures)
		res.Stats = []MerchantStats{stats}
	}()
	log := zap.L().With(zap.String("merchant", mt.Merchant))

	m, ok := c.merchants[mt.Merchant]
	if !ok || (m.Kind == KindAvenue && c.opts.Avenue == nil) {
		log.Warn("fetcher: no configuration for merchant column, skipping", zap.Int("pages", len(mt.Tasks)))
		for _, t := range mt.Tasks {
			res.Failures = append(res.Failures, Failure{Merchant: mt.Merchant, ItemID: t.ItemID, URL: t.URL, Err: ErrUnknownMerchant})
		}
		stats.Pages = len(mt.Tasks)
		return res
	}

	breaker := resilience.NewBreaker(c.opts.BlockThreshold)
	for _, t := range mt.Tasks {
		if ctx.Err() != nil {
			return res
		}
		stats.Pages++
		fail := func(err error) {
			log.Warn("fetcher: no price", zap.String("item", t.ItemID), zap.String("url", t.URL), zap.Error(err))
			res.Failures = append(res.Failures, Failure{Merchant: m.Name, ItemID: t.ItemID, URL: t.URL, Err: err})
		}
		if err := breaker.Allow(); err != nil {
			fail(err)
			continue
		}

		page, err := c.getter.Get(ctx, t.URL, m.Cookie)
		if err == nil {
			if bt := c.checkBlocked(m, page); bt != BlockNone {
				err = &BlockedError{URL: t.URL, Type: bt}
			}
		}
		var blocked *BlockedError
		isBlocked := errors.As(err, &blocked)
		breaker.Record(isBlocked)
		if isBlocked && breaker.Open() {
			stats.Tripped = true
			log.Warn("fetcher: merchant keeps blocking, skipping remaining pages")
		}
		if err != nil {
			fail(err)
			continue
		}

		obs := c.extract(m, t, cat.Items[t.ItemID], page)
		if len(obs) == 0 {
			fail(ErrNoPrice)
			continue
		}
		res.Observations = append(res.Observations, obs...)
	}
	return res
}

// checkBlocked inspects a 2xx page only when its price cannot be read, so
// that ordinary pages embedding a captcha widget are not misreported.
func (c *Collector) checkBlocked(m Merchant, page *Page) BlockType {
	if m.Kind == KindAvenue {
		return BlockNone
	}
	if _, ok := m.extractor.Extract(page.Doc); ok {
		return BlockNone
	}
	return DetectBlock(page.Status, page.Header, page.Body)
}

func (c *Collector) extract(m Merchant, t catalog.Task, item model.TrackedItem, page *Page) []model.PriceObservation {
	now := c.opts.Clock()
	if m.Kind != KindAvenue {
		price, ok := m.extractor.Extract(page.Doc)
		if !ok {
			return nil
		}
		return []model.PriceObservation{{
			ItemID: t.ItemID, Merchant: m.Name, Price: price, SourceURL: t.URL, ObservedAt: now,
		}}
	}

	var out []model.PriceObservation
	for _, o := range c.opts.Avenue.Offers(page.Doc) {
		// A merchant followed directly for this item keeps its own page as source.
		if item.URLs[o.Merchant] != "" {
			continue
		}
		out = append(out, model.PriceObservation{
			ItemID: t.ItemID, Merchant: o.Merchant, Price: o.Price, SourceURL: o.URL, ObservedAt: now,
		})
	}
	return out
}
