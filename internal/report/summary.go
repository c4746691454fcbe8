// Package report aggregates search records into a summary.
package report

import (
	"math"
	"sort"
	"time"

	"aaronromeo.com/mailsift/pkg/search"
)

const topSenderCount = 5

type SenderCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Summary struct {
	Total            int           `json:"total"`
	WithAttachments  int           `json:"with_attachments"`
	PctAttachments   int           `json:"pct_attachments"`
	TotalAttachments int           `json:"total_attachments"`
	DateMin          string        `json:"date_min"`
	DateMax          string        `json:"date_max"`
	TopSenders       []SenderCount `json:"top_senders"`
}

// Summarize counts records with attachments, finds the received date range
// and ranks senders. Senders with equal counts keep first-seen order.
func Summarize(records []search.EmailRecord) Summary {
	summary := Summary{
		Total:      len(records),
		DateMin:    search.NotAvailable,
		DateMax:    search.NotAvailable,
		TopSenders: []SenderCount{},
	}
	if len(records) == 0 {
		return summary
	}

	var senders []SenderCount
	index := map[string]int{}
	var minDay, maxDay time.Time
	haveDates := false
	for _, rec := range records {
		if rec.HasAttachments {
			summary.WithAttachments++
		}
		summary.TotalAttachments += rec.AttachmentCount

		name := rec.SenderName
		if name == "" {
			name = "Desconocido"
		}
		if i, ok := index[name]; ok {
			senders[i].Count++
		} else {
			index[name] = len(senders)
			senders = append(senders, SenderCount{Name: name, Count: 1})
		}

		day, err := time.Parse(search.DateLayout, rec.Date)
		if err != nil {
			continue
		}
		if !haveDates || day.Before(minDay) {
			minDay = day
		}
		if !haveDates || day.After(maxDay) {
			maxDay = day
		}
		haveDates = true
	}

	summary.PctAttachments = int(math.RoundToEven(float64(summary.WithAttachments) / float64(summary.Total) * 100))
	if haveDates {
		summary.DateMin = minDay.Format(search.DateLayout)
		summary.DateMax = maxDay.Format(search.DateLayout)
	}

	sort.SliceStable(senders, func(i, j int) bool {
		return senders[i].Count > senders[j].Count
	})
	if len(senders) > topSenderCount {
		senders = senders[:topSenderCount]
	}
	summary.TopSenders = senders
	return summary
}
