package mailboxes

import (
	"context"
	"errors"
	"sort"
	"strings"

	giimap "github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type MailboxLister interface {
	ListMailboxes(ctx context.Context) ([]Mailbox, error)
	MessageCount(ctx context.Context, name string) (int, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
}

type IMAPMailboxManager struct {
	provider func() *giimapclient.Client
}

func New(provider ClientProvider) *IMAPMailboxManager {
	return &IMAPMailboxManager{provider: provider.IMAPClient}
}

// Mailbox is one entry of the server's LIST response.
type Mailbox struct {
	Name  string
	Delim rune
	Attrs []giimap.MailboxAttr
}

// HasAttr reports whether the mailbox carries attr.
func (m Mailbox) HasAttr(attr giimap.MailboxAttr) bool {
	for _, a := range m.Attrs {
		if a == attr {
			return true
		}
	}
	return false
}

// Selectable reports whether the mailbox can be opened.
func (m Mailbox) Selectable() bool {
	return !m.HasAttr(giimap.MailboxAttrNoSelect) && !m.HasAttr(giimap.MailboxAttrNonExistent)
}

// ListMailboxes lists every mailbox of the account, asking for special-use
// attributes when the server supports them.
func (c *IMAPMailboxManager) ListMailboxes(ctx context.Context) ([]Mailbox, error) {
	if c.provider == nil || c.provider() == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := c.provider()
	var options *giimap.ListOptions
	if client.Caps().Has(giimap.CapSpecialUse) {
		options = &giimap.ListOptions{ReturnSpecialUse: true}
	}

	data, err := client.List("", "*", options).Collect()
	if err != nil {
		return nil, err
	}

	mailboxes := make([]Mailbox, 0, len(data))
	for _, entry := range data {
		mailboxes = append(mailboxes, Mailbox{
			Name:  entry.Mailbox,
			Delim: entry.Delim,
			Attrs: entry.Attrs,
		})
	}
	return mailboxes, nil
}

// MessageCount returns the number of messages in name without selecting it.
func (c *IMAPMailboxManager) MessageCount(ctx context.Context, name string) (int, error) {
	if c.provider == nil || c.provider() == nil {
		return 0, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := c.provider().Status(name, &giimap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		return 0, err
	}
	if data.NumMessages == nil {
		return 0, nil
	}
	return int(*data.NumMessages), nil
}

// Segments splits the mailbox name on its hierarchy delimiter.
func (m Mailbox) Segments() []string {
	if m.Delim == 0 {
		return []string{m.Name}
	}
	return strings.Split(m.Name, string(m.Delim))
}

// SortHierarchy orders mailboxes so that every parent comes right before its
// children, siblings sorted by name. INBOX always comes first.
func SortHierarchy(boxes []Mailbox) []Mailbox {
	sorted := make([]Mailbox, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Segments(), sorted[j].Segments()
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] == b[k] {
				continue
			}
			if k == 0 && strings.EqualFold(a[k], "INBOX") {
				return true
			}
			if k == 0 && strings.EqualFold(b[k], "INBOX") {
				return false
			}
			return a[k] < b[k]
		}
		return len(a) < len(b)
	})
	return sorted
}
