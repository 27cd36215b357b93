package health

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultRetryInterval is the pause between connectivity attempts.
const DefaultRetryInterval = time.Second

// WaitReady calls checker up to attempts times, sleeping interval between
// failures. It returns nil on the first success and the last error otherwise.
func WaitReady(ctx context.Context, logger logrus.FieldLogger, checker Checker, attempts int, interval time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = checker.Check(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Infof("%s reachable after %d attempts", checker.Name(), attempt)
			}
			return nil
		}

		logger.WithError(lastErr).Warnf("%s not reachable (attempt %d/%d)", checker.Name(), attempt, attempts)
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", checker.Name(), ctx.Err())
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("%s unreachable after %d attempts: %w", checker.Name(), attempts, lastErr)
}
