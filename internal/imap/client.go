package imap

import (
	"aaronromeo.com/mailsift/internal/imap/mailboxes"
	"aaronromeo.com/mailsift/internal/imap/searches"
	"aaronromeo.com/mailsift/internal/imap/selectors"
	"aaronromeo.com/mailsift/internal/imap/sessionmanager"
)

// Client encapsulates an IMAP connection for search operations.
type Client struct {
	*sessionmanager.IMAPConnector
	*searches.IMAPSearchManager
	*selectors.IMAPSelectorManager
	*mailboxes.IMAPMailboxManager
}

func New(opts ...sessionmanager.Option) *Client {
	session := sessionmanager.NewServerConnector(opts...)
	client := &Client{
		session,
		searches.New(session),
		selectors.New(session),
		mailboxes.New(session),
	}
	return client
}
