package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrStatusConflict means the conditional update matched the id but not the expected status.
	ErrStatusConflict = errors.New("record is not in the expected status")
	ErrTransientStore = errors.New("store temporarily unavailable")
	ErrDuplicateKey   = errors.New("duplicate key")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsStatusConflict(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}

func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

// IsRetryable reports whether a driver error is worth retrying by the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Classify maps driver errors onto the repository sentinels.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case IsRetryable(err):
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	default:
		return err
	}
}
