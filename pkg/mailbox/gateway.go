// Package mailbox defines the contract between the search engine and the
// mail backend. Every value returned by a Gateway is a live handle that is
// only valid inside the goroutine that owns the gateway connection.
package mailbox

import (
	"context"
	"errors"
	"io"
	"time"

	"aaronromeo.com/mailsift/pkg/predicate"
)

//go:generate mockgen -destination=../mock/mock_mailbox.go -package=mock aaronromeo.com/mailsift/pkg/mailbox Gateway,Folder,Items

// Gateway resolves folders and exposes the folder hierarchy.
type Gateway interface {
	ResolveFolder(ctx context.Context, kind FolderKind, subfolder string) (Folder, error)
	ListSubfolders(ctx context.Context, maxDepth int) ([]FolderInfo, error)
	Account(ctx context.Context) (string, error)
	Close() error
}

// Folder is a resolved mailbox folder.
type Folder interface {
	Name() string
	// Items enumerates the folder sorted by received time, most recent first.
	Items(ctx context.Context) (Items, error)
}

// Items is an ordered enumeration of folder contents.
type Items interface {
	// Restrict narrows the enumeration to items matching p, keeping the order.
	// The returned Items owns the receiver; closing it closes both.
	Restrict(ctx context.Context, p predicate.Predicate) (Items, error)
	// Next returns the next item or io.EOF when exhausted. A backend that
	// reads an item only to find it outside the restriction returns
	// ErrFiltered so the caller regains control between reads.
	Next(ctx context.Context) (Item, error)
	Close() error
}

// Recipient is a single addressee of a message.
type Recipient struct {
	Name    string
	Address string
}

// Item is a live message handle. Each getter may fail independently.
type Item interface {
	Subject() (string, error)
	SenderName() (string, error)
	SenderAddress() (string, error)
	// ResolveSenderAddress looks up the routable address behind a directory
	// style sender identifier.
	ResolveSenderAddress() (string, error)
	Recipients() ([]Recipient, error)
	To() (string, error)
	CC() (string, error)
	ReceivedTime() (time.Time, error)
	Body() (string, error)
	Attachments() ([]Attachment, error)
	Importance() (int, error)
	Categories() (string, error)
	Size() (int64, error)
}

// Attachment is a file attached to an Item.
type Attachment interface {
	FileName() string
	// Inline reports whether the attachment is embedded in the body.
	Inline() (bool, error)
	Open() (io.ReadCloser, error)
}

// FolderInfo describes one entry of the folder hierarchy.
type FolderInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	ItemCount int    `json:"item_count"`
	Depth     int    `json:"depth"`
}

// ErrFiltered is returned by Items.Next for an item that was read but did not
// match the restriction. The next call moves past it.
var ErrFiltered = errors.New("item filtered out")

// ItemError is returned by Items.Next when a single item cannot be read.
// The enumeration stays usable and the next call moves past the item.
type ItemError struct {
	Err error
}

func (e *ItemError) Error() string {
	return "unreadable item: " + e.Err.Error()
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
