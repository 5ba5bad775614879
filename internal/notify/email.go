package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/resilience"
)

// sendFunc matches (*email.Email).Send so tests can capture messages.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

func smtpSend(e *email.Email, addr string, auth smtp.Auth) error {
	return e.Send(addr, auth)
}

// EmailNotifier sends one summary email per batch.
type EmailNotifier struct {
	cfg   config.EmailConfig
	send  sendFunc
	retry resilience.RetryConfig
}

// NewEmailNotifier creates an EmailNotifier. cfg should be Complete.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	retry := resilience.WithRetries(2)
	retry.ShouldRetry = smtpTransient
	return &EmailNotifier{cfg: cfg, send: smtpSend, retry: retry}
}

// DealSubject is the subject line of a deal summary.
func DealSubject(n int) string {
	return fmt.Sprintf("Alerte Prix LEGO : %d baisse(s) de prix détectée(s) !", n)
}

// PromotionSubject is the subject line of a promotions summary.
func PromotionSubject(n int) string {
	return fmt.Sprintf("🔥 Alerte Bons Plans LEGO : %d nouvelle(s) promotion(s) trouvée(s) !", n)
}

func (n *EmailNotifier) Notify(ctx context.Context, deals []model.Deal) error {
	if len(deals) == 0 {
		return nil
	}
	view := dealsView{Deals: deals, Dashboard: n.cfg.DashboardURL}

	var text, html bytes.Buffer
	if err := dealsText.Execute(&text, view); err != nil {
		return eris.Wrap(err, "notify: render deal text")
	}
	if err := dealsHTML.Execute(&html, view); err != nil {
		return eris.Wrap(err, "notify: render deal html")
	}

	if err := n.deliver(ctx, DealSubject(len(deals)), text.Bytes(), html.Bytes()); err != nil {
		return err
	}
	zap.L().Info("notify: deal summary sent", zap.Int("deals", len(deals)))
	return nil
}

func (n *EmailNotifier) NotifyPromotions(ctx context.Context, promos []model.Promotion) error {
	if len(promos) == 0 {
		return nil
	}
	view := promosView{Promotions: promos, Dashboard: n.cfg.DashboardURL}

	var text, html bytes.Buffer
	if err := promosText.Execute(&text, view); err != nil {
		return eris.Wrap(err, "notify: render promotion text")
	}
	if err := promosHTML.Execute(&html, view); err != nil {
		return eris.Wrap(err, "notify: render promotion html")
	}

	if err := n.deliver(ctx, PromotionSubject(len(promos)), text.Bytes(), html.Bytes()); err != nil {
		return err
	}
	zap.L().Info("notify: promotion summary sent", zap.Int("promotions", len(promos)))
	return nil
}

func (n *EmailNotifier) deliver(ctx context.Context, subject string, text, html []byte) error {
	mail := email.NewEmail()
	mail.From = n.cfg.Address
	mail.To = []string{n.cfg.Recipient}
	mail.Subject = subject
	mail.Text = text
	mail.HTML = html

	addr := fmt.Sprintf("%s:%d", n.cfg.Server, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Address, n.cfg.Password, n.cfg.Server)

	cfg := n.retry
	cfg.OnRetry = resilience.RetryLogger("notify.email", addr)
	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		err := n.send(mail, addr, auth)
		if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
			err = n.send(mail, addr, nil)
		}
		return err
	})
	return eris.Wrapf(err, "notify: send email via %s", addr)
}

// smtpTransient retries 4xx SMTP replies and network failures.
func smtpTransient(err error) bool {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return tp.Code >= 400 && tp.Code < 500
	}
	return resilience.IsTransient(err)
}
