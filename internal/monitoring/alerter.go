// Package monitoring evaluates the health of a tracking run and raises
// webhook alerts when merchants stop answering.
package monitoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/fetcher"
	"github.com/sells-group/brickwatch/internal/notify"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFetchFailureRate AlertType = "fetch_failure_rate"
	AlertMerchantBlocked  AlertType = "merchant_blocked"
	AlertMerchantDown     AlertType = "merchant_down"
)

// minPagesForRate keeps tiny catalogs from alerting on a single miss.
const minPagesForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg     config.MonitoringConfig
	webhook *notify.WebhookNotifier
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	a := &Alerter{cfg: cfg}
	if cfg.WebhookURL != "" {
		a.webhook = notify.NewWebhookNotifier(cfg.WebhookURL)
	}
	return a
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt

	if snap.PagesTotal >= minPagesForRate && a.cfg.FailureRateThreshold > 0 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFetchFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Fetch failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d pages)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.PagesFailed, snap.PagesTotal,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.PagesFailed,
				"pages":        snap.PagesTotal,
			},
			Timestamp: now,
		})
	}

	if len(snap.BlockedMerchants) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertMerchantBlocked,
			Severity: "high",
			Message: fmt.Sprintf(
				"Anti-bot pages from %s, remaining pages skipped",
				strings.Join(snap.BlockedMerchants, ", "),
			),
			Details:   map[string]any{"merchants": snap.BlockedMerchants},
			Timestamp: now,
		})
	}

	if len(snap.DownMerchants) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertMerchantDown,
			Severity: "medium",
			Message: fmt.Sprintf(
				"No price read from %s this run; selectors may be outdated",
				strings.Join(snap.DownMerchants, ", "),
			),
			Details:   map[string]any{"merchants": snap.DownMerchants},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.webhook == nil || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.webhook.Post(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// CheckRun evaluates a collection result, logs every alert and sends them
// when a webhook is configured. Returns the number of alerts sent.
func (a *Alerter) CheckRun(ctx context.Context, res fetcher.Result) int {
	alerts := a.Evaluate(Snapshot(res, time.Now().UTC()))
	for _, alert := range alerts {
		zap.L().Warn("monitoring: "+alert.Message,
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
	}
	return a.SendAlerts(ctx, alerts)
}
