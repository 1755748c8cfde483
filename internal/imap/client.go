package imap

import (
	"github.com/aaronromeo/mailtriage/internal/imap/actions"
	"github.com/aaronromeo/mailtriage/internal/imap/searches"
	"github.com/aaronromeo/mailtriage/internal/imap/selectors"
	"github.com/aaronromeo/mailtriage/internal/imap/sessionmanager"
)

// Client encapsulates an IMAP connection and implements session.Session.
type Client struct {
	*sessionmanager.IMAPConnector
	*searches.IMAPSearchManager
	*actions.IMAPActionManager
	*selectors.IMAPSelectorManager
}

func New(opts ...sessionmanager.Option) *Client {
	session := sessionmanager.NewServerConnector(opts...)
	client := &Client{
		session,
		searches.New(session),
		actions.New(session),
		selectors.New(session),
	}
	return client
}
