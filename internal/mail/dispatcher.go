// Package mail delivers rendered reports as attachments over one
// authenticated SMTP session. Delivery is synchronous and not retried;
// the transport either sends the full message or fails it whole.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

// fixed plain-text body of every report mail
const reportBody = "Veuillez trouver ci-joint les rapports demandés."

// ErrNoRecipients signals an empty recipient list. Callers treat it as
// a warning no-op, not a delivery failure.
var ErrNoRecipients = errors.New("aucun destinataire configuré pour l'envoi d'email")

type Dispatcher struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewDispatcher(host string, port int, username, password, from string) *Dispatcher {
	return &Dispatcher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// BuildMessage constructs the multi-recipient message with each report
// file attached by basename.
func (d *Dispatcher) BuildMessage(subject string, recipients []string, attachments []string) (*gomail.Msg, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	msg := gomail.NewMsg()
	if err := msg.From(d.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, reportBody)

	for _, path := range attachments {
		msg.AttachFile(path)
	}

	return msg, nil
}

// Send delivers the reports to every recipient in one message over an
// encrypted, authenticated session. No retry on failure; an empty
// recipient list returns ErrNoRecipients without touching the relay.
func (d *Dispatcher) Send(ctx context.Context, subject string, recipients []string, attachments []string) error {
	msg, err := d.BuildMessage(subject, recipients, attachments)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(d.host,
		gomail.WithPort(d.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(d.username),
		gomail.WithPassword(d.password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}

	slog.InfoContext(ctx, "Report mail sent",
		"subject", subject,
		"recipients", len(recipients),
		"attachments", len(attachments))
	return nil
}
