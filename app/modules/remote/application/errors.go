package remoteservice

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	remotedb "github.com/matchops/matchops/app/modules/remote/infrastructure/repositories"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNetwork covers connectivity failures: refused connections, timeouts, dropped sessions.
	ErrNetwork = errors.New("remote storage unreachable")

	// ErrUnauthorized is returned when no user is signed in or the database refused access.
	ErrUnauthorized = errors.New("remote storage access denied")

	// ErrConstraint is returned when a write violated a database constraint.
	ErrConstraint = errors.New("remote storage constraint violation")

	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = remotedb.ErrNotFound

	// ErrVersionConflict is returned when a versioned write lost a race.
	ErrVersionConflict = remotedb.ErrVersionConflict
)

// classify maps driver and transport errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNetwork, ErrUnauthorized, ErrConstraint, ErrNotFound, ErrVersionConflict} {
		if errors.Is(err, known) {
			return err
		}
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		switch {
		case strings.HasPrefix(code, "23"):
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		case strings.HasPrefix(code, "28"), code == "42501":
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"):
			return fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return err
}

// IsRetryable reports whether err is a transient connectivity failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
