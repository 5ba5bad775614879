package fetcher

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Offer is one seller's price on an aggregator page.
type Offer struct {
	Merchant string
	Price    decimal.Decimal
	URL      string
}

type alias struct {
	keyword  string // case-folded
	merchant string
}

// AvenueParser reads seller offers from an aggregator product page and maps
// seller labels ("chez Amazon") to merchant names.
type AvenueParser struct {
	base    *url.URL
	aliases []alias
}

// NewAvenueParser builds a parser. Aliases are matched as case-folded
// substrings of the seller logo's alt text, longest keyword first.
func NewAvenueParser(baseURL string, aliases map[string]string) (*AvenueParser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	p := &AvenueParser{base: base}
	for kw, m := range aliases {
		p.aliases = append(p.aliases, alias{keyword: fold.String(kw), merchant: m})
	}
	sort.Slice(p.aliases, func(i, j int) bool {
		if len(p.aliases[i].keyword) != len(p.aliases[j].keyword) {
			return len(p.aliases[i].keyword) > len(p.aliases[j].keyword)
		}
		return p.aliases[i].keyword < p.aliases[j].keyword
	})
	return p, nil
}

// Merchant maps a seller label to a tracked merchant name.
func (p *AvenueParser) Merchant(label string) (string, bool) {
	folded := cases.Fold().String(label)
	for _, a := range p.aliases {
		if strings.Contains(folded, a.keyword) {
			return a.merchant, true
		}
	}
	return "", false
}

// Offers returns the cheapest offer of each recognized seller, ordered by
// merchant name. Offers from unknown sellers are ignored.
func (p *AvenueParser) Offers(doc *goquery.Document) []Offer {
	best := make(map[string]Offer)
	doc.Find("div.prodf-px").Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Find(".prodf-px-logo img").First().Attr("alt")
		href, hasHref := s.Find("a").First().Attr("href")
		raw, hasPrice := s.Attr("data-prix")
		if !hasAlt || !hasHref || !hasPrice {
			return
		}
		merchant, ok := p.Merchant(alt)
		if !ok {
			zap.L().Debug("fetcher: ignoring untracked seller", zap.String("seller", alt))
			return
		}
		price, ok := positive(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
		if !ok {
			return
		}
		if cur, seen := best[merchant]; seen && !price.LessThan(cur.Price) {
			return
		}
		best[merchant] = Offer{Merchant: merchant, Price: price, URL: p.resolve(href)}
	})

	out := make([]Offer, 0, len(best))
	for _, o := range best {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Merchant < out[j].Merchant })
	return out
}

func (p *AvenueParser) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.base.ResolveReference(ref).String()
}
