package reconcile

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/model"
)

// RateTable maps collection tags to a price-per-piece rate. It always holds
// a default entry.
type RateTable struct {
	exact  map[string]decimal.Decimal
	folded map[string]decimal.Decimal
	def    decimal.Decimal
}

// NewRateTable builds a table from raw rates. The caller guarantees a
// default entry (config.Pricing.Validate).
func NewRateTable(rates map[string]float64) RateTable {
	fold := cases.Fold()
	t := RateTable{
		exact:  make(map[string]decimal.Decimal, len(rates)),
		folded: make(map[string]decimal.Decimal, len(rates)),
	}
	for tag, rate := range rates {
		d := decimal.NewFromFloat(rate)
		t.exact[tag] = d
		t.folded[fold.String(tag)] = d
	}
	t.def = t.exact[config.DefaultRateKey]
	return t
}

// Rate returns the rate for a collection tag. Lookup is exact first, then
// case-insensitive, then the default rate.
func (t RateTable) Rate(collection string) decimal.Decimal {
	if r, ok := t.exact[collection]; ok {
		return r
	}
	if r, ok := t.folded[cases.Fold().String(collection)]; ok {
		return r
	}
	zap.L().Debug("reconcile: no rate for collection, using default",
		zap.String("collection", collection),
	)
	return t.def
}

// Policy is the immutable pricing policy applied during reconciliation.
type Policy struct {
	Epsilon        decimal.Decimal
	GoodThreshold  decimal.Decimal
	GreatThreshold decimal.Decimal
	Rates          RateTable
}

// NewPolicy converts validated configuration into a Policy.
func NewPolicy(p config.Pricing) Policy {
	return Policy{
		Epsilon:        decimal.NewFromFloat(p.Epsilon),
		GoodThreshold:  decimal.NewFromFloat(p.GoodThreshold),
		GreatThreshold: decimal.NewFromFloat(p.GreatThreshold),
		Rates:          NewRateTable(p.Rates),
	}
}

// FairPrice estimates an item's expected price from its piece count and
// collection rate. ok is false when no piece count is known.
func (p Policy) FairPrice(item model.TrackedItem) (decimal.Decimal, bool) {
	if !item.HasPieceCount() {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(*item.PieceCount)).Mul(p.Rates.Rate(item.Collection)), true
}

// Classify grades a price against a fair price. great is checked before good.
func (p Policy) Classify(price, fair decimal.Decimal) model.Quality {
	switch {
	case price.LessThanOrEqual(fair.Mul(p.GreatThreshold)):
		return model.QualityGreat
	case price.LessThanOrEqual(fair.Mul(p.GoodThreshold)):
		return model.QualityGood
	default:
		return model.QualityStandard
	}
}

// changed reports whether two prices differ by more than epsilon.
func (p Policy) changed(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(p.Epsilon)
}

// dropped reports whether next is below prev by more than epsilon.
func (p Policy) dropped(next, prev decimal.Decimal) bool {
	return next.LessThan(prev.Sub(p.Epsilon))
}
