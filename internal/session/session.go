package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaronromeo/mailtriage/internal/query"
)

var (
	ErrNotConnected = errors.New("IMAP client is not connected")
	ErrNotSelected  = errors.New("no mailbox selected")
	ErrReadOnly     = errors.New("mailbox is selected read-only")
	ErrRejected     = errors.New("request rejected by server")
)

// Session is a live connection to one mailbox account.
type Session interface {
	// Select switches the active mailbox. Deletion requires writable.
	Select(ctx context.Context, mailbox string, writable bool) error
	Search(ctx context.Context, expr query.Expression) ([]uint32, error)
	// Fetch returns the raw RFC 5322 content per UID in one request.
	Fetch(ctx context.Context, uids []uint32) (map[uint32][]byte, error)
	Delete(ctx context.Context, uids []uint32) error
	Close() error
}

// Error reports a failure to establish the session.
type Error struct {
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("session %s: %v", e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
