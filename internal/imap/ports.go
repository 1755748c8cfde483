package imap

import (
	"github.com/aaronromeo/mailtriage/internal/imap/actions"
	"github.com/aaronromeo/mailtriage/internal/imap/searches"
	"github.com/aaronromeo/mailtriage/internal/imap/selectors"
	"github.com/aaronromeo/mailtriage/internal/imap/sessionmanager"
	"github.com/aaronromeo/mailtriage/internal/session"
)

type ServerRunner interface {
	sessionmanager.ServerConnector
	searches.ServerSearcher
	selectors.ClientSelectors
	actions.Actions
}

var (
	_ ServerRunner    = (*Client)(nil)
	_ session.Session = (*Client)(nil)
)
