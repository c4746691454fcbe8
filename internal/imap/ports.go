package imap

import (
	"aaronromeo.com/mailsift/internal/imap/mailboxes"
	"aaronromeo.com/mailsift/internal/imap/searches"
	"aaronromeo.com/mailsift/internal/imap/selectors"
	"aaronromeo.com/mailsift/internal/imap/sessionmanager"
)

type ServerRunner interface {
	sessionmanager.ServerConnector
	searches.ServerSearcher
	selectors.ClientSelectors
	mailboxes.MailboxLister
}
