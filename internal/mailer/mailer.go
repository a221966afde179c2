package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// New creates a Mailer. Returns nil when no API key is configured, in which
// case all sends are no-ops.
func New(apiKey, senderEmail string) *Mailer {
	if apiKey == "" {
		return nil
	}
	return &Mailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("tasknest", senderEmail),
	}
}

// SendWelcome sends the post-registration welcome email.
func (m *Mailer) SendWelcome(email string) error {
	if m == nil {
		return nil
	}

	to := mail.NewEmail("", email)
	subject := "Welcome to tasknest"
	plain := "Your tasknest account is ready. Sign in and add your first task."
	html := "<p>Your tasknest account is ready. Sign in and add your first task.</p>"
	message := mail.NewSingleEmail(m.from, subject, to, plain, html)

	response, err := m.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}
