// Package mailer renders account notifications and delivers them over SMTP or
// Amazon SES.
package mailer

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/jordan-wright/email"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []string // file paths
}

// Sender delivers a Message. Failures are reported as *models.DeliveryError.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Sender identity shared by the transports.
type From struct {
	Address string
	Name    string
}

func (f From) String() string {
	if f.Name == "" {
		return f.Address
	}
	return (&mail.Address{Name: f.Name, Address: f.Address}).String()
}

// buildEmail converts a Message into a MIME email with attachments loaded
// from disk.
func buildEmail(from From, msg Message) (*email.Email, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("message has no recipients")
	}

	e := email.NewEmail()
	e.From = from.String()
	e.To = msg.To
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	if msg.Text != "" {
		e.Text = []byte(msg.Text)
	}

	for _, path := range msg.Attachments {
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("attach %q: %w", path, err)
		}
	}
	return e, nil
}
