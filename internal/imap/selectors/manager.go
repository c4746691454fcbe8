package selectors

import (
	"context"
	"errors"
	"sort"
	"time"

	giimap "github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

// ErrMessageGone is returned when a UID no longer resolves to a message.
var ErrMessageGone = errors.New("message no longer exists")

type ClientSelectors interface {
	OrderNewestFirst(ctx context.Context, uids []giimap.UID) ([]giimap.UID, error)
	FetchMessage(ctx context.Context, uid giimap.UID) (*FetchedMessage, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
}

type IMAPSelectorManager struct {
	provider func() *giimapclient.Client
}

func New(provider ClientProvider) *IMAPSelectorManager {
	return &IMAPSelectorManager{provider: provider.IMAPClient}
}

// FetchedMessage is one message of the selected mailbox with its raw
// RFC 5322 content.
type FetchedMessage struct {
	UID          giimap.UID
	Envelope     *giimap.Envelope
	Flags        []giimap.Flag
	InternalDate time.Time
	Size         int64
	Raw          []byte
}

var fullSection = &giimap.FetchItemBodySection{Peek: true}

// OrderNewestFirst sorts uids by INTERNALDATE, most recent first. Ties keep
// the higher UID first.
func (c *IMAPSelectorManager) OrderNewestFirst(ctx context.Context, uids []giimap.UID) ([]giimap.UID, error) {
	if c.provider == nil || c.provider() == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if len(uids) == 0 {
		return []giimap.UID{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msgs, err := c.provider().Fetch(giimap.UIDSetNum(uids...), &giimap.FetchOptions{
		UID:          true,
		InternalDate: true,
	}).Collect()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].InternalDate.Equal(msgs[j].InternalDate) {
			return msgs[i].UID > msgs[j].UID
		}
		return msgs[i].InternalDate.After(msgs[j].InternalDate)
	})

	ordered := make([]giimap.UID, 0, len(msgs))
	for _, msg := range msgs {
		ordered = append(ordered, msg.UID)
	}
	return ordered, nil
}

// FetchMessage fetches the envelope, flags, size and full body of uid
// without marking it as seen.
func (c *IMAPSelectorManager) FetchMessage(ctx context.Context, uid giimap.UID) (*FetchedMessage, error) {
	if c.provider == nil || c.provider() == nil {
		return nil, errors.New("IMAP client is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msgs, err := c.provider().Fetch(giimap.UIDSetNum(uid), &giimap.FetchOptions{
		UID:          true,
		Envelope:     true,
		Flags:        true,
		InternalDate: true,
		RFC822Size:   true,
		BodySection:  []*giimap.FetchItemBodySection{fullSection},
	}).Collect()
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 || msgs[0].Envelope == nil {
		return nil, ErrMessageGone
	}

	msg := msgs[0]
	return &FetchedMessage{
		UID:          msg.UID,
		Envelope:     msg.Envelope,
		Flags:        msg.Flags,
		InternalDate: msg.InternalDate,
		Size:         msg.RFC822Size,
		Raw:          msg.FindBodySection(fullSection),
	}, nil
}
