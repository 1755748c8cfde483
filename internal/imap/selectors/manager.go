package selectors

import (
	"context"

	"github.com/aaronromeo/mailtriage/internal/imap/base"
	"github.com/aaronromeo/mailtriage/internal/session"
	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type ClientSelectors interface {
	Fetch(ctx context.Context, uids []uint32) (map[uint32][]byte, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
	Selected() *base.Selection
}

type IMAPSelectorManager struct {
	provider ClientProvider
}

func New(provider ClientProvider) *IMAPSelectorManager {
	return &IMAPSelectorManager{provider: provider}
}

// Fetch returns the full raw message for each UID using a single
// UID FETCH BODY.PEEK[] request. UIDs the server no longer has are absent
// from the result.
func (c *IMAPSelectorManager) Fetch(ctx context.Context, uids []uint32) (map[uint32][]byte, error) {
	if c.provider == nil || c.provider.IMAPClient() == nil {
		return nil, session.ErrNotConnected
	}
	if c.provider.Selected() == nil {
		return nil, session.ErrNotSelected
	}
	if len(uids) == 0 {
		return map[uint32][]byte{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var uidSet imap.UIDSet
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.provider.IMAPClient().Fetch(uidSet, fetchOptions)
	defer fetchCmd.Close()

	raw := make(map[uint32][]byte, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		if buf.UID == 0 {
			continue
		}
		raw[uint32(buf.UID)] = buf.FindBodySection(bodySection)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, err
	}

	return raw, nil
}
