package sessionmanager

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aaronromeo/mailtriage/internal/imap/base"
	"github.com/aaronromeo/mailtriage/internal/session"
	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type Option func(*IMAPConnector)

type ServerConnector interface {
	Connect() error
	Close() error
	Select(ctx context.Context, mailbox string, writable bool) error

	IMAPClient() *giimapclient.Client
	Selected() *base.Selection
}

type IMAPConnector struct {
	Addr      string
	Username  string
	Password  string
	TLSConfig *tls.Config
	Expunge   bool
	Logger    *slog.Logger

	base.State
}

func WithAddr(a string) Option {
	return func(c *IMAPConnector) {
		c.Addr = a
	}
}

func WithCreds(username string, password string) Option {
	return func(c *IMAPConnector) {
		c.Username = username
		c.Password = password
	}
}

func WithTLSConfig(config *tls.Config) Option {
	return func(state *IMAPConnector) {
		state.TLSConfig = config
	}
}

// WithExpunge controls whether deletions are expunged right away.
func WithExpunge(expunge bool) Option {
	return func(c *IMAPConnector) {
		c.Expunge = expunge
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *IMAPConnector) {
		c.Logger = logger
	}
}

func NewServerConnector(opts ...Option) *IMAPConnector {
	c := &IMAPConnector{Expunge: true, Logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *IMAPConnector) IMAPClient() *giimapclient.Client {
	return c.Client
}

func (c *IMAPConnector) Selected() *base.Selection {
	return c.Selection
}

func (c *IMAPConnector) ExpungeOnDelete() bool {
	return c.Expunge
}

// Connect establishes the IMAP connection and logs in.
func (c *IMAPConnector) Connect() error {
	if err := validateDeps(c); err != nil {
		return &session.Error{Addr: c.Addr, Err: err}
	}

	var options *giimapclient.Options
	if c.TLSConfig != nil {
		options = &giimapclient.Options{
			TLSConfig: c.TLSConfig,
		}
	}

	client, err := giimapclient.DialTLS(c.Addr, options)
	if err != nil {
		return &session.Error{Addr: c.Addr, Err: err}
	}

	if err := client.Login(c.Username, c.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return &session.Error{Addr: c.Addr, Err: fmt.Errorf("login as %s: %w", c.Username, err)}
	}

	c.Client = client
	c.Selection = nil
	c.Logger.Debug("connected", slog.String("addr", c.Addr), slog.String("user", c.Username))
	return nil
}

// Select opens the mailbox, read-only unless writable is set.
func (c *IMAPConnector) Select(ctx context.Context, mailbox string, writable bool) error {
	if c.Client == nil {
		return session.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	mailbox = strings.TrimSpace(mailbox)
	if mailbox == "" {
		return errors.New("mailbox is required")
	}

	c.Selection = nil
	data, err := c.Client.Select(mailbox, &imap.SelectOptions{ReadOnly: !writable}).Wait()
	if err != nil {
		return fmt.Errorf("select %q: %w: %v", mailbox, session.ErrRejected, err)
	}

	c.Selection = &base.Selection{Mailbox: mailbox, Writable: writable}
	c.Logger.DebugContext(ctx, "mailbox selected",
		slog.String("mailbox", mailbox),
		slog.Bool("writable", writable),
		slog.Int("messages", int(data.NumMessages)))
	return nil
}

// Close logs out and clears the connection.
func (c *IMAPConnector) Close() error {
	if c.Client == nil {
		return nil
	}
	err := c.Client.Logout().Wait()
	c.Client = nil
	c.Selection = nil
	return err
}

func validateDeps(state *IMAPConnector) error {
	if strings.TrimSpace(state.Addr) == "" {
		return errors.New("IMAP address is required")
	}
	if strings.TrimSpace(state.Username) == "" || strings.TrimSpace(state.Password) == "" {
		return errors.New("IMAP credentials are required")
	}

	return nil
}
