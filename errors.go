package txpager

import (
	"errors"
	"fmt"
)

// Validation errors returned by NewPage and DecodePageToken. Returned errors
// wrap one of these and carry the offending raw input in the message.
var (
	ErrInvalidOffset    = errors.New("offset is not a number")
	ErrNegativeOffset   = errors.New("offset cannot be negative")
	ErrInvalidPageSize  = errors.New("page size is not a number")
	ErrNegativePageSize = errors.New("page size cannot be negative")
	ErrInvalidPageToken = errors.New("invalid page token")
	ErrPageOutOfRange   = errors.New("page exceeds the addressable row range")
)

// Ordering errors returned by Validate, ParseSort and the ordered paging
// helpers.
var (
	ErrUnordered       = errors.New("paged query has no ordering")
	ErrInvalidOrdering = errors.New("invalid ordering")
)

// Operations reported in OpError.Op.
const (
	OpAcquire  = "ACQUIRE"
	OpBegin    = "BEGIN"
	OpCommit   = "COMMIT"
	OpRollback = "ROLLBACK"
	OpRelease  = "RELEASE"
)

// OpError is a failure surfaced by the underlying connection or pool while
// driving the transaction lifecycle.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("txpager: %s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// AggregateError reports a failed recovery together with the failure that
// triggered it:
//
//   - commit failed, then the rollback attempt failed: Err is the rollback
//     failure, Cause is the commit failure;
//   - rollback failed, then releasing the connection failed: Err is the
//     release failure, Cause is the rollback failure.
//
// errors.Is and errors.As see both.
type AggregateError struct {
	Err   error
	Cause error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("%v (caused by: %v)", e.Err, e.Cause)
}

func (e *AggregateError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}
