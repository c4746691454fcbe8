package search

import (
	"sync/atomic"

	"aaronromeo.com/mailsift/pkg/predicate"
)

// DefaultMaxResults caps a search when neither the filter nor the engine
// configuration sets a limit.
const DefaultMaxResults = 500

// ProgressFunc receives the running match count and a status message.
type ProgressFunc func(count int, message string)

// CancelFlag is a cooperative cancellation signal shared between the
// goroutine running a search and the one asking it to stop. A nil flag is
// never cancelled.
type CancelFlag struct {
	set atomic.Bool
}

func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

func (c *CancelFlag) Cancel() {
	if c != nil {
		c.set.Store(true)
	}
}

func (c *CancelFlag) Cancelled() bool {
	return c != nil && c.set.Load()
}

// Filter describes one search request.
type Filter struct {
	Subject        string `json:"subject,omitempty"`
	Sender         string `json:"sender,omitempty"`
	DateFrom       string `json:"date_from,omitempty"`
	DateTo         string `json:"date_to,omitempty"`
	Folder         string `json:"folder,omitempty"`
	Subfolder      string `json:"subfolder,omitempty"`
	HasAttachments *bool  `json:"has_attachments,omitempty"`
	BodyContains   string `json:"body_contains,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	// MaxResults of zero selects the engine default.
	MaxResults int `json:"max_results,omitempty"`

	Cancel   *CancelFlag  `json:"-"`
	Progress ProgressFunc `json:"-"`
}

func (f Filter) predicateFields() predicate.Fields {
	return predicate.Fields{
		Subject:        f.Subject,
		Sender:         f.Sender,
		DateFrom:       f.DateFrom,
		DateTo:         f.DateTo,
		HasAttachments: f.HasAttachments,
	}
}

func (f Filter) report(count int, message string) {
	if f.Progress != nil {
		f.Progress(count, message)
	}
}

// State is the lifecycle of a single search run.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return "unknown"
}
