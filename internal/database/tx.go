package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// WithRetry runs fn inside a transaction. Transient failures roll the whole
// transaction back and re-run it with linear back-off; any other error is
// returned immediately.
func (d *Database) WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.WithError(err).WithField("attempt", attempt).Warn("Retrying transaction")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * d.retry.Delay):
			}
		}

		err = d.db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsTransient(err) {
			return err
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", d.retry.MaxRetries+1, err)
}
