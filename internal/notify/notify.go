// Package notify delivers detected deals and new promotions by email and
// webhook.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/model"
)

// Notifier delivers a batch of deals. An empty batch is a no-op.
type Notifier interface {
	Notify(ctx context.Context, deals []model.Deal) error
}

// PromotionNotifier delivers newly listed promotions.
type PromotionNotifier interface {
	NotifyPromotions(ctx context.Context, promos []model.Promotion) error
}

// Multi fans a batch out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, deals []model.Deal) error {
	if len(deals) == 0 {
		return nil
	}
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, deals); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyPromotions forwards to every member that handles promotions.
func (m Multi) NotifyPromotions(ctx context.Context, promos []model.Promotion) error {
	if len(promos) == 0 {
		return nil
	}
	var errs []error
	for _, n := range m {
		pn, ok := n.(PromotionNotifier)
		if !ok {
			continue
		}
		if err := pn.NotifyPromotions(ctx, promos); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifiers enabled by configuration. Email is
// skipped with a warning when its settings are incomplete.
func FromConfig(cfg *config.Config) Multi {
	var out Multi
	if cfg.Email.Complete() {
		out = append(out, NewEmailNotifier(cfg.Email))
	} else {
		zap.L().Warn("notify: email configuration incomplete, email alerts disabled")
	}
	if cfg.Webhook.URL != "" {
		out = append(out, NewWebhookNotifier(cfg.Webhook.URL))
	}
	return out
}
