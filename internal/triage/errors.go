package triage

import (
	"fmt"

	"github.com/aaronromeo/mailtriage/internal/query"
)

// SearchFailure reports a search the session could not run. The operator
// can re-run the action.
type SearchFailure struct {
	Expression query.Expression
	Err        error
}

func (e *SearchFailure) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Expression.String(), e.Err)
}

func (e *SearchFailure) Unwrap() error {
	return e.Err
}

// ParseFailure reports a single message whose content could not be read.
type ParseFailure struct {
	UID uint32
	Err error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("message %d: %v", e.UID, e.Err)
}

func (e *ParseFailure) Unwrap() error {
	return e.Err
}

// DeletionFailure reports a rejected delete. No messages are counted as
// deleted.
type DeletionFailure struct {
	Requested int
	Err       error
}

func (e *DeletionFailure) Error() string {
	return fmt.Sprintf("deleting %d messages failed: %v", e.Requested, e.Err)
}

func (e *DeletionFailure) Unwrap() error {
	return e.Err
}
