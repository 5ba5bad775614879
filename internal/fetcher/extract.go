package fetcher

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Extractor reads a single price from a product page. ok is false when no
// price could be found.
type Extractor interface {
	Extract(doc *goquery.Document) (price decimal.Decimal, ok bool)
}

var (
	decimalPriceRe = regexp.MustCompile(`\b(\d+[.,]\d{1,2})\b`)
	euroPriceRe    = regexp.MustCompile(`(\d+)\s*€`)
)

// ParsePriceText finds a price in free text. A decimal amount ("49,99")
// wins; otherwise an integer directly followed by a euro sign is accepted.
// Thousands separators are not supported.
func ParsePriceText(text string) (decimal.Decimal, bool) {
	if m := decimalPriceRe.FindStringSubmatch(text); m != nil {
		return positive(strings.ReplaceAll(m[1], ",", "."))
	}
	if m := euroPriceRe.FindStringSubmatch(text); m != nil {
		return positive(m[1])
	}
	return decimal.Zero, false
}

func positive(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// SelectorExtractor applies ParsePriceText to the first element matching
// a CSS selector.
type SelectorExtractor struct {
	Selector string
}

func (e SelectorExtractor) Extract(doc *goquery.Document) (decimal.Decimal, bool) {
	sel := doc.Find(e.Selector).First()
	if sel.Length() == 0 {
		return decimal.Zero, false
	}
	return ParsePriceText(sel.Text())
}

// AmazonExtractor reads the accessible offscreen price, falling back to the
// visible whole and fraction parts.
type AmazonExtractor struct{}

func (AmazonExtractor) Extract(doc *goquery.Document) (decimal.Decimal, bool) {
	if off := doc.Find("span.a-offscreen").First(); off.Length() > 0 {
		if m := decimalPriceRe.FindStringSubmatch(off.Text()); m != nil {
			if d, ok := positive(strings.ReplaceAll(m[1], ",", ".")); ok {
				return d, true
			}
		}
	}
	whole := doc.Find("span.a-price-whole").First()
	fraction := doc.Find("span.a-price-fraction").First()
	if whole.Length() == 0 || fraction.Length() == 0 {
		return decimal.Zero, false
	}
	return positive(digits(whole.Text()) + "." + digits(fraction.Text()))
}

// SplitExtractor joins euros and cents rendered in two elements.
type SplitExtractor struct {
	EurosSelector string
	CentsSelector string
}

func (e SplitExtractor) Extract(doc *goquery.Document) (decimal.Decimal, bool) {
	euros := doc.Find(e.EurosSelector).First()
	cents := doc.Find(e.CentsSelector).First()
	if euros.Length() == 0 || cents.Length() == 0 {
		return decimal.Zero, false
	}
	return positive(digits(euros.Text()) + "." + digits(cents.Text()))
}

// MetaPriceExtractor reads the schema.org price meta tag.
type MetaPriceExtractor struct{}

func (MetaPriceExtractor) Extract(doc *goquery.Document) (decimal.Decimal, bool) {
	content, ok := doc.Find(`meta[itemprop="price"]`).First().Attr("content")
	if !ok {
		return decimal.Zero, false
	}
	return positive(strings.ReplaceAll(strings.TrimSpace(content), ",", "."))
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
