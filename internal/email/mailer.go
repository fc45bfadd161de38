// Package email sends outbound mail over SMTP. Quote and invoice sends
// are mandatory for their transitions; a delivery failure must surface
// to the caller so no state is advanced on a bounced send.
package email

import (
	"fmt"

	"github.com/gulfsetup/crm-api/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Channel selects the CC routing policy for a message
type Channel string

const (
	ChannelQuote   Channel = "quote"
	ChannelInvoice Channel = "invoice"
	ChannelNotify  Channel = "notify"
)

// Mailer sends emails through a single SMTP account
type Mailer struct {
	cfg    *config.SMTPConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

// NewMailer creates a Mailer from SMTP configuration
func NewMailer(cfg *config.SMTPConfig, logger *zap.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Mailer{
		cfg:    cfg,
		dialer: dialer,
		logger: logger,
	}
}

// Send delivers one HTML email. The channel decides which CC list from
// configuration rides along. Returns an error on any delivery failure.
func (m *Mailer) Send(channel Channel, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients for %s email", channel)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	if cc := m.ccFor(channel); len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("email delivery failed",
			zap.String("channel", string(channel)),
			zap.Strings("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send %s email: %w", channel, err)
	}

	m.logger.Info("email sent",
		zap.String("channel", string(channel)),
		zap.Strings("to", to),
		zap.String("subject", subject),
	)
	return nil
}

func (m *Mailer) ccFor(channel Channel) []string {
	switch channel {
	case ChannelQuote:
		return m.cfg.QuoteCC
	case ChannelInvoice:
		return m.cfg.InvoiceCC
	}
	return nil
}
