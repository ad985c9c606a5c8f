package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender delivers a notification email.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender is the development fallback when no relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(to, subject, _ string) error {
	s.Logger.Info("email suppressed, no SMTP relay configured", "to", to, "subject", subject)
	return nil
}
