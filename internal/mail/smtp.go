package mail

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	logger *logrus.Logger
}

func NewSMTPMailer(host string, port int, username, password string, logger *logrus.Logger) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr:   fmt.Sprintf("%s:%d", host, port),
		auth:   auth,
		logger: logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := smtp.SendMail(m.addr, m.auth, msg.From, msg.To, buildMessage(msg, time.Now())); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	m.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("Mail sent via SMTP")
	return nil
}

// buildMessage renders msg as a plain text RFC 5322 message
func buildMessage(msg Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
