package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/errs"
)

const maxRetries = 5

// withRetry runs op up to maxRetries times with exponential backoff
// whenever it classifies the failure as transient (a busy/locked SQLite
// connection), per spec 7's StoreTransient policy. Any other error, or
// exhaustion of retries, is returned as-is (StoreUnavailableError on
// exhaustion).
func withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	backoff := 10 * time.Millisecond
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &errs.CancelledError{Op: op}
		}
		backoff *= 2
	}
	return &errs.StoreUnavailableError{Op: op, Attempts: maxRetries, Err: lastErr}
}

// isTransient classifies a SQLite driver error as retryable: lock
// contention and busy timeouts are the only cases the spec calls
// transient. Constraint violations are StoreIntegrity and must not be
// retried.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

// classifyWriteErr turns a raw driver error from an insert/update into the
// taxonomy of spec 7: constraint violations become StoreIntegrityError,
// anything else transient-looking is left for withRetry to classify.
func classifyWriteErr(constraint string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "constraint") || strings.Contains(msg, "unique") || strings.Contains(msg, "check") || strings.Contains(msg, "foreign key") {
		return &errs.StoreIntegrityError{Constraint: constraint, Err: err}
	}
	return err
}
