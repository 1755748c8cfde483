package base

import (
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

// Selection is the mailbox currently selected on the connection.
type Selection struct {
	Mailbox  string
	Writable bool
}

type State struct {
	Client    *giimapclient.Client
	Selection *Selection
}
