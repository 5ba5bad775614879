package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/resilience"
)

// DealsPayload is the JSON body posted for a deal batch.
type DealsPayload struct {
	Type      string       `json:"type"`
	Subject   string       `json:"subject"`
	Deals     []model.Deal `json:"deals"`
	Timestamp time.Time    `json:"timestamp"`
}

// PromotionsPayload is the JSON body posted for new promotions.
type PromotionsPayload struct {
	Type       string            `json:"type"`
	Subject    string            `json:"subject"`
	Promotions []model.Promotion `json:"promotions"`
	Timestamp  time.Time         `json:"timestamp"`
}

// WebhookNotifier posts JSON payloads to a URL.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: resty.New().SetTimeout(10 * time.Second),
		retry:  resilience.WithRetries(2),
		now:    time.Now,
	}
}

// WithRetry replaces the retry policy.
func (w *WebhookNotifier) WithRetry(cfg resilience.RetryConfig) *WebhookNotifier {
	w.retry = cfg
	return w
}

func (w *WebhookNotifier) Notify(ctx context.Context, deals []model.Deal) error {
	if len(deals) == 0 {
		return nil
	}
	err := w.Post(ctx, DealsPayload{
		Type:      "price_drop",
		Subject:   DealSubject(len(deals)),
		Deals:     deals,
		Timestamp: w.now().UTC(),
	})
	if err != nil {
		return err
	}
	zap.L().Info("notify: webhook sent", zap.Int("deals", len(deals)))
	return nil
}

func (w *WebhookNotifier) NotifyPromotions(ctx context.Context, promos []model.Promotion) error {
	if len(promos) == 0 {
		return nil
	}
	return w.Post(ctx, PromotionsPayload{
		Type:       "promotions",
		Subject:    PromotionSubject(len(promos)),
		Promotions: promos,
		Timestamp:  w.now().UTC(),
	})
}

// Post sends payload as JSON, retrying 408/429/5xx responses.
func (w *WebhookNotifier) Post(ctx context.Context, payload any) error {
	cfg := w.retry
	cfg.OnRetry = resilience.RetryLogger("notify.webhook", w.url)

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		resp, err := w.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(w.url)
		if err != nil {
			return eris.Wrap(err, "notify: webhook request")
		}
		if resp.StatusCode() >= 400 {
			return resilience.StatusError(resp.StatusCode(), "webhook")
		}
		return nil
	})
}
