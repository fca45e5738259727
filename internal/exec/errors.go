package exec

import (
	"errors"
	"fmt"

	"github.com/roach88/filterchain/internal/chain"
)

// ExecError reports a compiled chain the database rejected.
//
// The compiler never validates fragments, so a malformed join or condition
// first shows up here. Table, FilterCount and SQLHash identify which chain
// failed without dumping the whole statement into the message.
type ExecError struct {
	Op          string // "find" or "count"
	Table       string
	FilterCount int
	SQLHash     string
	Err         error
}

// Code returns the chain error category for execution failures.
func (e *ExecError) Code() chain.ErrorCode {
	return chain.ErrCodeMalformedFragment
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s failed (table=%s, filters=%d, sql_hash=%s): %v",
		e.Code(), e.Op, e.Table, e.FilterCount, e.SQLHash, e.Err)
}

// Unwrap returns the underlying database error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// IsExecError returns true if err is an ExecError.
// Uses errors.As to handle wrapped errors.
func IsExecError(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee)
}
