package actions

import (
	"context"
	"fmt"

	"github.com/aaronromeo/mailtriage/internal/imap/base"
	"github.com/aaronromeo/mailtriage/internal/session"
	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type Actions interface {
	Delete(ctx context.Context, uids []uint32) error
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
	Selected() *base.Selection
	ExpungeOnDelete() bool
}

type IMAPActionManager struct {
	provider ClientProvider
}

func New(provider ClientProvider) *IMAPActionManager {
	return &IMAPActionManager{provider: provider}
}

// Delete marks all messages as deleted in one STORE and expunges them when
// the connector is configured to.
func (c *IMAPActionManager) Delete(ctx context.Context, uids []uint32) error {
	if c.provider == nil || c.provider.IMAPClient() == nil {
		return session.ErrNotConnected
	}
	selection := c.provider.Selected()
	if selection == nil {
		return session.ErrNotSelected
	}
	if !selection.Writable {
		return fmt.Errorf("%s: %w", selection.Mailbox, session.ErrReadOnly)
	}
	if len(uids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var uidSet imap.UIDSet
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	client := c.provider.IMAPClient()
	store := imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}
	if err := client.Store(uidSet, &store, nil).Close(); err != nil {
		return rejected("store", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !c.provider.ExpungeOnDelete() {
		return nil
	}
	// A failed expunge leaves the messages flagged \Deleted on the server.
	if client.Caps().Has(imap.CapUIDPlus) {
		_, err := client.UIDExpunge(uidSet).Collect()
		return rejected("uid expunge", err)
	}

	_, err := client.Expunge().Collect()
	return rejected("expunge", err)
}

func rejected(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, session.ErrRejected, err)
}
