// Package mail delivers outbound messages through a configurable backend.
package mail

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"realestate/server/config"
)

type Message struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	From    string   `json:"from"`
	To      []string `json:"to"`
}

func (m Message) Validate() error {
	if m.From == "" {
		return errors.New("message has no sender")
	}
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	return nil
}

// Mailer sends a single message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the mailer selected by cfg.Backend. The returned closer
// releases backend connections and is never nil.
func New(cfg config.MailConfig, logger *logrus.Logger) (Mailer, func() error, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	noop := func() error { return nil }

	switch cfg.Backend {
	case "log":
		return NewLogMailer(logger), noop, nil
	case "smtp":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, logger), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		mailer := NewCompositeMailer(NewRedisMailer(client, cfg.RedisKey, cfg.RedisMaxLen, logger), NewLogMailer(logger))
		return mailer, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported mail backend %q", cfg.Backend)
	}
}

// LogMailer writes messages to the log instead of delivering them
type LogMailer struct {
	logger *logrus.Logger
}

func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.WithFields(logrus.Fields{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	}).Info("Mail message logged")
	return nil
}

// CompositeMailer sends through every mailer and joins their errors
type CompositeMailer struct {
	mailers []Mailer
}

func NewCompositeMailer(mailers ...Mailer) *CompositeMailer {
	return &CompositeMailer{mailers: mailers}
}

func (c *CompositeMailer) Send(ctx context.Context, msg Message) error {
	if len(c.mailers) == 0 {
		return errors.New("no mailers configured")
	}
	var errs []error
	for _, m := range c.mailers {
		if err := m.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
