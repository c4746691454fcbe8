package search

import (
	"errors"
	"strings"
	"testing"
	"time"

	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

var errUnavailable = errors.New("property unavailable")

func TestExtractAllFields(t *testing.T) {
	msg := &testutil.Message{
		SubjectText:   "Quarterly numbers",
		FromName:      "Ana",
		FromAddress:   "ana@example.com",
		ToText:        "Team",
		CCText:        "Boss",
		Received:      time.Date(2024, time.January, 5, 9, 7, 3, 0, time.Local),
		BodyText:      "Hi all,\r\nnumbers attached.\n",
		Files:         []*testutil.Attachment{{Name: "q1.xlsx"}, {Name: "notes.pdf"}},
		ImportanceLvl: 2,
		CategoryText:  "Finance",
		SizeBytes:     1536,
	}

	rec := Extract(msg, DefaultPreviewLength)

	assert.Equal(t, EmailRecord{
		Subject:         "Quarterly numbers",
		SenderName:      "Ana",
		SenderEmail:     "ana@example.com",
		To:              "Team",
		CC:              "Boss",
		Date:            "05-01-2024",
		Time:            "09:07:03",
		BodyPreview:     "Hi all, numbers attached.",
		HasAttachments:  true,
		AttachmentCount: 2,
		AttachmentNames: []string{"q1.xlsx", "notes.pdf"},
		Importance:      ImportanceHigh,
		Categories:      "Finance",
		SizeKB:          1.5,
	}, rec)
}

func TestExtractFallbacks(t *testing.T) {
	msg := &testutil.Message{
		SubjectFunc:      func() (string, error) { return "", errUnavailable },
		SenderNameFunc:   func() (string, error) { return "", nil },
		SenderAddrFunc:   func() (string, error) { return "", errUnavailable },
		ReceivedTimeFunc: func() (time.Time, error) { return time.Time{}, errUnavailable },
		BodyFunc:         func() (string, error) { return "", errUnavailable },
		AttachmentsFunc:  func() ([]mailbox.Attachment, error) { return nil, errUnavailable },
		ImportanceFunc:   func() (int, error) { return 0, errUnavailable },
		SizeFunc:         func() (int64, error) { return 0, errUnavailable },
	}

	rec := Extract(msg, DefaultPreviewLength)

	assert.Equal(t, NoSubject, rec.Subject)
	assert.Equal(t, NotAvailable, rec.SenderName)
	assert.Equal(t, NotAvailable, rec.SenderEmail)
	assert.Equal(t, NotAvailable, rec.Date)
	assert.Equal(t, NotAvailable, rec.Time)
	assert.Equal(t, "", rec.BodyPreview)
	assert.False(t, rec.HasAttachments)
	assert.Equal(t, 0, rec.AttachmentCount)
	assert.Equal(t, []string{}, rec.AttachmentNames)
	assert.Equal(t, ImportanceNormal, rec.Importance)
	assert.Equal(t, 0.0, rec.SizeKB)
	assert.Equal(t, "", rec.To)
	assert.Equal(t, "", rec.CC)
	assert.Equal(t, "", rec.Categories)
}

func TestExtractImportance(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{level: 0, want: ImportanceLow},
		{level: 1, want: ImportanceNormal},
		{level: 2, want: ImportanceHigh},
		{level: 5, want: ImportanceNormal},
		{level: -1, want: ImportanceNormal},
	}
	for _, tt := range tests {
		rec := Extract(&testutil.Message{ImportanceLvl: tt.level}, DefaultPreviewLength)
		assert.Equal(t, tt.want, rec.Importance, "level %d", tt.level)
	}
}

func TestExtractSenderAddress(t *testing.T) {
	directory := "/o=ExchangeLabs/ou=Exchange Administrative Group/cn=Recipients/cn=ana"

	tests := []struct {
		name string
		msg  *testutil.Message
		want string
	}{
		{
			name: "routable address kept",
			msg:  &testutil.Message{FromAddress: "ana@example.com", Resolved: "other@example.com"},
			want: "ana@example.com",
		},
		{
			name: "directory identifier resolved",
			msg:  &testutil.Message{FromAddress: directory, Resolved: "ana@example.com"},
			want: "ana@example.com",
		},
		{
			name: "unresolvable directory identifier kept raw",
			msg:  &testutil.Message{FromAddress: directory},
			want: directory,
		},
		{
			name: "resolution returning nothing keeps raw",
			msg: &testutil.Message{
				FromAddress: directory,
				ResolveFunc: func() (string, error) { return "", nil },
			},
			want: directory,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.msg, DefaultPreviewLength).SenderEmail)
		})
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		body string
		n    int
		want string
	}{
		{name: "short body", body: "  hello  ", n: 200, want: "hello"},
		{name: "windows breaks", body: "one\r\ntwo\r\nthree", n: 200, want: "one two three"},
		{name: "unix and old mac breaks", body: "one\ntwo\rthree", n: 200, want: "one two three"},
		{name: "truncated", body: strings.Repeat("a", 250), n: 200, want: strings.Repeat("a", 200)},
		{name: "multibyte truncation", body: "ñandú ñandú", n: 5, want: "ñandú"},
		{name: "break at the cut", body: "abcd\r\nef", n: 5, want: "abcd"},
		{name: "default length", body: strings.Repeat("b", 300), n: 0, want: strings.Repeat("b", DefaultPreviewLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.body, tt.n))
		})
	}
}

func TestExtractSizeRounding(t *testing.T) {
	tests := []struct {
		bytes int64
		want  float64
	}{
		{bytes: 0, want: 0},
		{bytes: 1024, want: 1},
		{bytes: 1100, want: 1.1},
		{bytes: 10_291, want: 10},
		{bytes: 52_000, want: 50.8},
	}
	for _, tt := range tests {
		rec := Extract(&testutil.Message{SizeBytes: tt.bytes}, DefaultPreviewLength)
		assert.Equal(t, tt.want, rec.SizeKB, "%d bytes", tt.bytes)
	}
}

func TestRecipientText(t *testing.T) {
	msg := &testutil.Message{RecipientList: []mailbox.Recipient{
		{Name: "Ana", Address: "ana@example.com"},
		{Name: "Bob", Address: "bob@example.com"},
	}}
	assert.Equal(t, "Ana ana@example.com Bob bob@example.com ", recipientText(msg))

	failing := &testutil.Message{RecipientsFunc: func() ([]mailbox.Recipient, error) { return nil, errUnavailable }}
	assert.Equal(t, "", recipientText(failing))
}
