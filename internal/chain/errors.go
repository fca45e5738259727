package chain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorCode categorizes chain errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates structural misuse: an empty filter
	// list or a missing table name or primary key.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeMalformedFragment indicates a caller-supplied fragment that the
	// database rejected. The compiler never raises it; execution layers do.
	ErrCodeMalformedFragment ErrorCode = "MALFORMED_FRAGMENT"
)

// Error is returned for chain misuse.
type Error struct {
	Code    ErrorCode
	Message string

	// Table is the target table, when known.
	Table string

	// FilterCount is the number of filters supplied.
	FilterCount int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (table=%s, filters=%d)", e.Code, e.Message, e.Table, e.FilterCount)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidArgument returns true if err is an INVALID_ARGUMENT chain error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidArgument
	}
	return false
}

func invalidArgument(table string, count int, format string, args ...any) *Error {
	return &Error{
		Code:        ErrCodeInvalidArgument,
		Message:     fmt.Sprintf(format, args...),
		Table:       table,
		FilterCount: count,
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
