package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

var errEmptyName = errors.New("exercise name is required")

// ErrUnavailable marks failures where the store itself cannot be reached, as
// opposed to a failure of one record.
var ErrUnavailable = errors.New("store unavailable")

// IsUnavailable reports whether err means the store connection is gone.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// wrapErr classifies a backend error for op.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectionLoss(err) {
		return unavailableErr(op, err)
	}
	return ferrors.StoreError(op+" failed").
		WithCause(err).
		WithContext("op", op).
		Build()
}

func unavailableErr(op string, err error) error {
	return ferrors.StoreError("store unavailable during "+op).
		WithCause(errors.Join(ErrUnavailable, err)).
		WithContext("op", op).
		NextTick().
		Build()
}

func isConnectionLoss(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "database is closed") ||
		strings.Contains(l, "closed pool") ||
		strings.Contains(l, "connection refused") ||
		strings.Contains(l, "broken pipe")
}
