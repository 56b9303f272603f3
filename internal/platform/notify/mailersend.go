package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

// MailerSend delivers email notifications through the MailerSend API.
type MailerSend struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	m := &MailerSend{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSend) Dispatch(ctx context.Context, n Notification) error {
	if !n.Kind.Email() {
		return fmt.Errorf("mailersend cannot deliver %s", n.Kind)
	}
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: n.Recipient}})
	msg.SetSubject(n.Subject)

	if strings.TrimSpace(n.Body) != "" {
		msg.SetText(n.Body)
	}
	if strings.TrimSpace(n.HTML) != "" {
		msg.SetHTML(n.HTML)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
