package sessionmanager

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	"aaronromeo.com/mailsift/internal/imap/base"
	giimap "github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type Option func(*IMAPConnector)

type ServerConnector interface {
	Connect() error
	Close() error
	Select(ctx context.Context, mailbox string) (*giimap.SelectData, error)
	SelectedMailbox() string
	Account() string

	IMAPClient() *giimapclient.Client
}

type IMAPConnector struct {
	Addr      string
	Username  string
	Password  string
	TLSConfig *tls.Config

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

func NewServerConnector(opts ...Option) *IMAPConnector {
	c := &IMAPConnector{}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *IMAPConnector) IMAPClient() *giimapclient.Client {
	return c.Client
}

// Connect establishes the IMAP connection and logs in.
func (c *IMAPConnector) Connect() error {
	if err := validateDeps(c); err != nil {
		return err
	}

	var options *giimapclient.Options
	if c.TLSConfig != nil {
		options = &giimapclient.Options{
			TLSConfig: c.TLSConfig,
		}
	}

	client, err := giimapclient.DialTLS(c.Addr, options)
	if err != nil {
		return err
	}

	if err := client.Login(c.Username, c.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return err
	}

	c.Client = client
	c.Selected = ""
	return nil
}

// Select opens mailbox read-only and records it as the selected one.
func (c *IMAPConnector) Select(ctx context.Context, mailbox string) (*giimap.SelectData, error) {
	if c.Client == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(mailbox) == "" {
		return nil, errors.New("mailbox is required")
	}
	data, err := c.Client.Select(mailbox, &giimap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		c.Selected = ""
		return nil, err
	}
	c.Selected = mailbox
	return data, nil
}

// SelectedMailbox returns the mailbox opened by the last successful Select.
func (c *IMAPConnector) SelectedMailbox() string {
	return c.Selected
}

func (c *IMAPConnector) Account() string {
	return c.Username
}

// Close logs out and clears the connection.
func (c *IMAPConnector) Close() error {
	if c.Client == nil {
		return nil
	}
	err := c.Client.Logout().Wait()
	c.Client = nil
	c.Selected = ""
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
