package base

import (
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

// State is the live connection shared by the managers of one session.
type State struct {
	Client *giimapclient.Client
	// Selected is the mailbox currently opened read-only, empty when none.
	Selected string
}
