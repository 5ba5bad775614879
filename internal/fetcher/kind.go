// Package fetcher retrieves merchant product pages and extracts prices.
// Only successfully parsed, positive prices leave this package; every other
// outcome is reported as a Failure.
package fetcher

import (
	"github.com/rotisserie/eris"
)

// Kind selects how a merchant's pages are read.
type Kind string

const (
	KindStandard  Kind = "standard"  // CSS selector + price regex
	KindAmazon    Kind = "amazon"    // offscreen price, whole/fraction fallback
	KindCarrefour Kind = "carrefour" // euros and cents in separate elements
	KindBrickmo   Kind = "brickmo"   // meta[itemprop=price]
	KindAvenue    Kind = "avenue"    // aggregator page listing several sellers
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStandard, KindAmazon, KindCarrefour, KindBrickmo, KindAvenue:
		return k, nil
	default:
		return "", eris.Errorf("fetcher: unknown merchant kind %q", s)
	}
}
