// Package promo watches the aggregator's promotions page and reports offers
// not seen on a previous run.
package promo

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/fetcher"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/notify"
)

const (
	validUntilPrefix = "Offre valable jusqu'au"
	noEndDate        = "sans-date"
)

// Memory remembers which promotions were already notified.
type Memory interface {
	SeenPromotions(ctx context.Context, ids []string) (map[string]bool, error)
	MarkPromotionsSeen(ctx context.Context, ids []string) error
}

// Report summarizes one watcher run.
type Report struct {
	Listed int
	New    []model.Promotion
}

// Watcher fetches the promotions page and notifies new offers.
type Watcher struct {
	getter   fetcher.Getter
	memory   Memory
	notifier notify.PromotionNotifier
	pageURL  string
}

// NewWatcher creates a Watcher for the promotions page at pageURL.
func NewWatcher(getter fetcher.Getter, memory Memory, notifier notify.PromotionNotifier, pageURL string) *Watcher {
	return &Watcher{getter: getter, memory: memory, notifier: notifier, pageURL: pageURL}
}

// Run lists current promotions, notifies the unseen ones and remembers
// them. Promotions stay unseen when notification fails so that the next
// run retries them.
func (w *Watcher) Run(ctx context.Context) (Report, error) {
	page, err := w.getter.Get(ctx, w.pageURL, "")
	if err != nil {
		return Report{}, eris.Wrap(err, "promo: fetch promotions page")
	}
	base, err := url.Parse(w.pageURL)
	if err != nil {
		return Report{}, eris.Wrap(err, "promo: parse page url")
	}

	listed := Parse(page.Doc, base)
	report := Report{Listed: len(listed)}
	zap.L().Info("promo: promotions listed", zap.Int("count", len(listed)))
	if len(listed) == 0 {
		return report, nil
	}

	ids := make([]string, len(listed))
	for i, p := range listed {
		ids[i] = p.ID
	}
	seen, err := w.memory.SeenPromotions(ctx, ids)
	if err != nil {
		return report, eris.Wrap(err, "promo: load seen promotions")
	}

	var newIDs []string
	for _, p := range listed {
		if seen[p.ID] {
			continue
		}
		report.New = append(report.New, p)
		newIDs = append(newIDs, p.ID)
		zap.L().Info("promo: new promotion",
			zap.String("merchant", p.Merchant),
			zap.String("title", p.Title),
			zap.String("id", p.ID),
		)
	}
	if len(report.New) == 0 {
		return report, nil
	}

	if err := w.notifier.NotifyPromotions(ctx, report.New); err != nil {
		return report, eris.Wrap(err, "promo: notify")
	}
	if err := w.memory.MarkPromotionsSeen(ctx, newIDs); err != nil {
		return report, eris.Wrap(err, "promo: mark seen")
	}
	return report, nil
}

// Parse extracts promotions from the promotions page. Each ID joins the
// offer link and its end date, so a renewed offer counts as new.
func Parse(doc *goquery.Document, base *url.URL) []model.Promotion {
	var out []model.Promotion
	seen := make(map[string]bool)
	doc.Find("div.pns a.pn").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		end := noEndDate
		if dat := s.Find(".pn-dat").First(); dat.Length() > 0 {
			end = strings.TrimSpace(strings.Replace(dat.Text(), validUntilPrefix, "", 1))
		}
		id := href + "_" + end
		if seen[id] {
			return
		}
		seen[id] = true

		merchant := strings.TrimSpace(s.Find(".pn-btn strong").First().Text())
		title := s.Find(".pn-lib").First().Text()
		if merchant != "" {
			title = strings.Replace(title, merchant, "", 1)
		}
		details := strings.TrimSpace(s.Find(".pn-txt").First().Text())
		if end != noEndDate {
			details = strings.TrimSpace(details + " (Valable jusqu'au " + end + ")")
		}

		out = append(out, model.Promotion{
			ID:       id,
			Merchant: merchant,
			Title:    strings.TrimSpace(title),
			Details:  details,
			URL:      resolve(base, href),
		})
	})
	return out
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
