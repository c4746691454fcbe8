package search

import (
	"math"
	"strings"

	"aaronromeo.com/mailsift/pkg/mailbox"
)

const (
	NoSubject    = "Sin asunto"
	NotAvailable = "N/A"

	DateLayout = "02-01-2006"
	TimeLayout = "15:04:05"

	DefaultPreviewLength = 200

	ImportanceLow    = "Low"
	ImportanceNormal = "Normal"
	ImportanceHigh   = "High"
)

var importanceNames = map[int]string{
	0: ImportanceLow,
	1: ImportanceNormal,
	2: ImportanceHigh,
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Extract reads every field of item into a record. Each field is read
// independently and falls back to a fixed value when the read fails.
func Extract(item mailbox.Item, previewLength int) EmailRecord {
	rec := EmailRecord{
		Subject:    textOr(item.Subject, NoSubject),
		SenderName: textOr(item.SenderName, NotAvailable),
		To:         textOr(item.To, ""),
		CC:         textOr(item.CC, ""),
		Categories: textOr(item.Categories, ""),
		Date:       NotAvailable,
		Time:       NotAvailable,
	}

	rec.SenderEmail = senderAddress(item)

	if received, err := item.ReceivedTime(); err == nil && !received.IsZero() {
		rec.Date = received.Format(DateLayout)
		rec.Time = received.Format(TimeLayout)
	}

	rec.AttachmentNames = []string{}
	if attachments, err := item.Attachments(); err == nil {
		for _, att := range attachments {
			rec.AttachmentNames = append(rec.AttachmentNames, att.FileName())
		}
	}
	rec.AttachmentCount = len(rec.AttachmentNames)
	rec.HasAttachments = rec.AttachmentCount > 0

	rec.Importance = ImportanceNormal
	if level, err := item.Importance(); err == nil {
		if name, ok := importanceNames[level]; ok {
			rec.Importance = name
		}
	}

	if body, err := item.Body(); err == nil {
		rec.BodyPreview = Preview(body, previewLength)
	}

	if size, err := item.Size(); err == nil {
		rec.SizeKB = math.Round(float64(size)/1024*10) / 10
	}

	return rec
}

// Preview cuts body to n characters, turns line breaks into spaces and trims
// the outer whitespace.
func Preview(body string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}
	runes := []rune(body)
	if len(runes) > n {
		body = string(runes[:n])
	}
	return strings.TrimSpace(lineBreaks.Replace(body))
}

// senderAddress keeps the raw address unless it looks like a directory
// identifier and resolving it succeeds.
func senderAddress(item mailbox.Item) string {
	raw, err := item.SenderAddress()
	if err != nil || raw == "" {
		return NotAvailable
	}
	if !strings.Contains(raw, "/") {
		return raw
	}
	resolved, err := item.ResolveSenderAddress()
	if err != nil || resolved == "" {
		return raw
	}
	return resolved
}

// recipientText concatenates every recipient name and address.
func recipientText(item mailbox.Item) string {
	recipients, err := item.Recipients()
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, r := range recipients {
		b.WriteString(r.Name)
		b.WriteString(" ")
		b.WriteString(r.Address)
		b.WriteString(" ")
	}
	return b.String()
}

func textOr(get func() (string, error), fallback string) string {
	v, err := get()
	if err != nil || v == "" {
		return fallback
	}
	return v
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
