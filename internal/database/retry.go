package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// retryBackoff is the pause before the n-th retry (n starts at 1).
var retryBackoff = func(n int) time.Duration { return time.Duration(n) * 25 * time.Millisecond }

// IsTransient reports whether err is a connectivity failure of the backing
// store that may succeed when tried again.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1040, // too many connections
			1053: // server shutdown in progress
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Retry runs fn and, while it fails with a transient error, runs it again up
// to retries more times.  Non-transient errors and context cancellation end
// the loop immediately.  Only use it for reads: a check-then-append
// sequence must be re-validated from scratch, never replayed.
func Retry(ctx context.Context, retries int, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) || attempt >= retries {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryBackoff(attempt + 1)):
		}
	}
}
