package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/courtierpro/brokerage-backend/internal/logger"
)

// Sender delivers a composed email to one or more recipients.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPConfig holds the SMTP connection parameters.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

// SMTPSender sends mail over plain SMTP.
type SMTPSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
	addr string
}

// NewSender returns an SMTP sender, or a logging sender when no SMTP
// host is configured (development).
func NewSender(cfg SMTPConfig) Sender {
	if cfg.Host == "" {
		return &LoggingSender{from: cfg.FromAddress}
	}

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// Send delivers the email via SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	msg := buildMessage(s.cfg.FromAddress, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.FromAddress, to, msg); err != nil {
		return fmt.Errorf("smtp: send to %v: %w", to, err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LoggingSender logs emails instead of delivering them.
type LoggingSender struct {
	from string
}

// Send writes the email to the log.
func (s *LoggingSender) Send(ctx context.Context, to []string, subject, body string) error {
	if logger.Log != nil {
		logger.Log.WithField("to", to).WithField("subject", subject).Info("email (logged, SMTP not configured)")
		logger.Log.Debug(body)
	}
	return nil
}
