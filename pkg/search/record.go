package search

import "aaronromeo.com/mailsift/pkg/mailbox"

// EmailRecord is the handle free projection of a matched message. It is the
// only form that leaves the goroutine owning the gateway.
type EmailRecord struct {
	Subject         string   `json:"subject"`
	SenderName      string   `json:"sender_name"`
	SenderEmail     string   `json:"sender_email"`
	To              string   `json:"to"`
	CC              string   `json:"cc"`
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	BodyPreview     string   `json:"body_preview"`
	HasAttachments  bool     `json:"has_attachments"`
	AttachmentCount int      `json:"attachment_count"`
	AttachmentNames []string `json:"attachment_names"`
	Importance      string   `json:"importance"`
	Categories      string   `json:"categories"`
	SizeKB          float64  `json:"size_kb"`
}

// Match pairs a record with the live item it was read from. Matches must not
// be handed to another goroutine; use Result.Records for that.
type Match struct {
	EmailRecord
	Item mailbox.Item `json:"-"`
}

// Result is the outcome of a search. Cancelled distinguishes an early stop
// from an enumeration that ran to completion or hit the cap.
type Result struct {
	Matches   []Match
	Cancelled bool
}

// Records returns copies of the matched records without their handles.
func (r Result) Records() []EmailRecord {
	records := make([]EmailRecord, 0, len(r.Matches))
	for _, m := range r.Matches {
		rec := m.EmailRecord
		rec.AttachmentNames = append([]string(nil), m.AttachmentNames...)
		if rec.AttachmentNames == nil {
			rec.AttachmentNames = []string{}
		}
		records = append(records, rec)
	}
	return records
}
