// Package mail delivers transactional email over SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/studyshare/backend/internal/config"
)

// ErrDeliveryFailed indicates the message could not be handed to the mail relay.
var ErrDeliveryFailed = errors.New("mail delivery failed")

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// dialer is the subset of gomail.Dialer used by SMTPSender.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay using gomail.
type SMTPSender struct {
	from   string
	dialer dialer
}

// NewSMTPSender builds a sender from the SMTP configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send dispatches msg. Any relay failure is reported as ErrDeliveryFailed.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<p>Hello {{.Username}},</p>
<p>Click the link below to verify your StudyShare account:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not create this account you can ignore this email.</p>
`))

// VerificationMessage renders the account verification email.
func VerificationMessage(to, username, link string) (Message, error) {
	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, struct {
		Username string
		Link     string
	}{Username: username, Link: link}); err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}

	return Message{
		To:      to,
		Subject: "StudyShare Verification",
		HTML:    body.String(),
	}, nil
}
