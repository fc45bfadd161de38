package service

import "github.com/gulfsetup/crm-api/internal/email"

// MailSender is the outbound delivery dependency of the state machine
// and the notifier. *email.Mailer is the production implementation.
type MailSender interface {
	Send(channel email.Channel, to []string, subject, htmlBody string) error
}
