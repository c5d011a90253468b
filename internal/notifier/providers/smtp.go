package providers

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/ibeckermayer/kudos4me/internal/digest"
)

// SMTPSender sends run messages by email
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, username, password, from, to string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Message builds the email for d.
func (s *SMTPSender) Message(d *digest.Digest) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("kudos4me <%s>", s.from)
	mail.To = []string{s.to}
	mail.Subject = d.Subject
	mail.Text = []byte(d.PlainBody)
	mail.HTML = []byte(d.HTMLBody)
	return mail
}

// Send sends d via SMTP
func (s *SMTPSender) Send(ctx context.Context, d *digest.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	mail := s.Message(d)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	err := mail.Send(addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
