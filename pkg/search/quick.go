package search

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// DefaultQuickResults caps each pass of a quick search.
const DefaultQuickResults = 50

type quickKey struct {
	subject, date, time string
}

// QuickSearch looks for term in the subject and then in the sender of the
// inbox, merging both passes. Messages already matched by subject are
// recognised by subject, date and time, so two messages sharing all three
// collapse into one. Progress is only reported for the subject pass.
func (e *Engine) QuickSearch(ctx context.Context, term string, maxResults int, cancel *CancelFlag, progress ProgressFunc) (Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Result{}, &InvalidFilterError{Err: errors.New("quick search term is required")}
	}
	if maxResults == 0 {
		maxResults = DefaultQuickResults
	}

	bySubject, err := e.Search(ctx, Filter{
		Subject:    term,
		MaxResults: maxResults,
		Cancel:     cancel,
		Progress:   progress,
	})
	if err != nil {
		return Result{}, err
	}
	if bySubject.Cancelled {
		return bySubject, nil
	}

	bySender, err := e.Search(ctx, Filter{
		Sender:     term,
		MaxResults: maxResults,
		Cancel:     cancel,
	})
	if err != nil {
		return Result{}, err
	}

	merged := Result{
		Matches:   bySubject.Matches,
		Cancelled: bySender.Cancelled,
	}
	seen := make(map[quickKey]struct{}, len(merged.Matches))
	for _, m := range merged.Matches {
		seen[keyOf(m.EmailRecord)] = struct{}{}
	}
	for _, m := range bySender.Matches {
		key := keyOf(m.EmailRecord)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged.Matches = append(merged.Matches, m)
	}
	return merged, nil
}

func keyOf(r EmailRecord) quickKey {
	return quickKey{subject: r.Subject, date: r.Date, time: r.Time}
}
