package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable marks an unrecoverable store connectivity failure.
// It is the only store error that halts a backfill run.
var ErrStoreUnavailable = errors.New("stat store unavailable")

// ErrSchemaMissing marks writes against a table lacking the derived columns.
// Every later row would fail the same way, so it halts the run.
var ErrSchemaMissing = errors.New("stat table schema missing")

// ErrNotFound is returned by point lookups when no row exists
var ErrNotFound = errors.New("row not found")

// SourceUnavailableError is a transient raw source failure (retryable)
type SourceUnavailableError struct {
	Category Category
	Date     time.Time
	Err      error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("raw source unavailable for %s on %s: %v", e.Category, DateString(e.Date), e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// InvalidInputError reports malformed raw data; the entity is skipped
type InvalidInputError struct {
	EntityID int64
	Field    string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	if e.EntityID != 0 {
		return fmt.Sprintf("invalid input for entity %d: %s: %s", e.EntityID, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// SchemaApplicationError is a fatal schema step failure
type SchemaApplicationError struct {
	Change string
	Err    error
}

func (e *SchemaApplicationError) Error() string {
	return fmt.Sprintf("schema change %s failed: %v", e.Change, e.Err)
}

func (e *SchemaApplicationError) Unwrap() error { return e.Err }

// InsufficientHistoryError means today's required raw fields are missing
type InsufficientHistoryError struct {
	EntityID int64
	Date     time.Time
	Reason   string
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient data for entity %d on %s: %s", e.EntityID, DateString(e.Date), e.Reason)
}

// RowPersistenceError is a failure to compute or write a single row
type RowPersistenceError struct {
	EntityID int64
	Category Category
	Date     time.Time
	Err      error
}

func (e *RowPersistenceError) Error() string {
	return fmt.Sprintf("persist %s entity %d on %s: %v", e.Category, e.EntityID, DateString(e.Date), e.Err)
}

func (e *RowPersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth retrying
func IsRetryable(err error) bool {
	var sue *SourceUnavailableError
	return errors.As(err, &sue)
}

// IsFatal reports whether err must halt the whole run
func IsFatal(err error) bool {
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrSchemaMissing) {
		return true
	}
	var sae *SchemaApplicationError
	return errors.As(err, &sae)
}
