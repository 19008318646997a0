package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// listClient is the subset of the redis client the outbox needs
type listClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisMailer appends messages to a capped Redis list for another process to deliver
type RedisMailer struct {
	client listClient
	key    string
	maxLen int64
	logger *logrus.Logger
}

type outboxEntry struct {
	Message
	QueuedAt string `json:"queued_at"`
}

func NewRedisMailer(client listClient, key string, maxLen int64, logger *logrus.Logger) *RedisMailer {
	return &RedisMailer{client: client, key: key, maxLen: maxLen, logger: logger}
}

func (m *RedisMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(outboxEntry{Message: msg, QueuedAt: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("failed to marshal mail message: %w", err)
	}

	if err := m.client.RPush(ctx, m.key, data).Err(); err != nil {
		return fmt.Errorf("failed to store mail in Redis key '%s': %w", m.key, err)
	}
	if m.maxLen > 0 {
		if err := m.client.LTrim(ctx, m.key, -m.maxLen, -1).Err(); err != nil {
			m.logger.WithError(err).WithField("key", m.key).Warn("Failed to trim mail outbox")
		}
	}

	m.logger.WithFields(logrus.Fields{"key": m.key, "to": msg.To, "subject": msg.Subject}).Debug("Mail stored in Redis")
	return nil
}
