package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"shipstream/internal/config"
)

// Mailer delivers a rendered HTML message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type smtpMailer struct {
	cfg      config.SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP returns a Mailer that delivers over plain SMTP with auth.
func NewSMTP(cfg config.SMTPConfig) Mailer {
	return &smtpMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *smtpMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.FromEmail
	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.cfg.FromName, from),
		fmt.Sprintf("To: %s", strings.Join(to, ", ")),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	// An unauthenticated relay gets no auth at all. smtp.SendMail only
	// attempts AUTH when one is provided and the server advertises it.
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := m.sendMail(addr, auth, from, to, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}
	return nil
}
