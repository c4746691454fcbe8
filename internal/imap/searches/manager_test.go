package searches

import (
	"testing"
	"time"

	"aaronromeo.com/mailsift/pkg/predicate"
	"github.com/emersion/go-imap/v2"
)

func compile(t *testing.T, f predicate.Fields) predicate.Predicate {
	t.Helper()
	p, err := predicate.Compile(f)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return p
}

func TestBuildSearchCriteriaEmpty(t *testing.T) {
	criteria, err := BuildSearchCriteria(predicate.Predicate{})
	if err != nil {
		t.Fatalf("build criteria: %v", err)
	}
	if len(criteria.NotFlag) != 1 || criteria.NotFlag[0] != imap.FlagDeleted {
		t.Fatalf("expected deleted messages to be excluded, got %v", criteria.NotFlag)
	}
	if len(criteria.Header) != 0 || len(criteria.Or) != 0 {
		t.Fatal("expected no header criteria")
	}
}

func TestBuildSearchCriteriaSubject(t *testing.T) {
	criteria, err := BuildSearchCriteria(compile(t, predicate.Fields{Subject: "invoice"}))
	if err != nil {
		t.Fatalf("build criteria: %v", err)
	}
	if len(criteria.Header) != 1 {
		t.Fatalf("expected 1 header criteria, got %d", len(criteria.Header))
	}
	if criteria.Header[0].Key != "Subject" {
		t.Fatalf("expected Subject header key, got %q", criteria.Header[0].Key)
	}
	if criteria.Header[0].Value != "invoice" {
		t.Fatalf("expected Subject header value, got %q", criteria.Header[0].Value)
	}
}

func TestBuildSearchCriteriaSender(t *testing.T) {
	criteria, err := BuildSearchCriteria(compile(t, predicate.Fields{Sender: "acme"}))
	if err != nil {
		t.Fatalf("build criteria: %v", err)
	}
	if len(criteria.Or) != 1 {
		t.Fatalf("expected 1 OR criteria, got %d", len(criteria.Or))
	}

	// (From OR Sender) OR From
	outer := criteria.Or[0]
	if len(outer[0].Or) != 1 {
		t.Fatalf("expected address alternatives on the left, got %+v", outer[0])
	}
	address := outer[0].Or[0]
	if address[0].Header[0].Key != "From" || address[1].Header[0].Key != "Sender" {
		t.Fatalf("expected From/Sender headers, got %q/%q", address[0].Header[0].Key, address[1].Header[0].Key)
	}
	if outer[1].Header[0].Key != "From" || outer[1].Header[0].Value != "acme" {
		t.Fatalf("expected From display name criteria, got %+v", outer[1].Header)
	}
}

func TestBuildSearchCriteriaDates(t *testing.T) {
	criteria, err := BuildSearchCriteria(compile(t, predicate.Fields{DateFrom: "01-03-2024", DateTo: "15-03-2024"}))
	if err != nil {
		t.Fatalf("build criteria: %v", err)
	}

	wantSince := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	wantBefore := time.Date(2024, time.March, 16, 0, 0, 0, 0, time.Local)
	if !criteria.Since.Equal(wantSince) {
		t.Fatalf("expected since %v, got %v", wantSince, criteria.Since)
	}
	if !criteria.Before.Equal(wantBefore) {
		t.Fatalf("expected before %v, got %v", wantBefore, criteria.Before)
	}
}

func TestBuildSearchCriteriaRejectsAttachmentFlag(t *testing.T) {
	has := true
	p := compile(t, predicate.Fields{HasAttachments: &has})

	if _, err := BuildSearchCriteria(p); err == nil {
		t.Fatal("expected attachment comparison to be rejected")
	}

	pushed, residual := p.Split(Supported)
	if !pushed.IsEmpty() {
		t.Fatalf("expected nothing pushed down, got %s", pushed)
	}
	if len(residual.Conditions) != 1 {
		t.Fatalf("expected attachment condition to stay residual, got %d", len(residual.Conditions))
	}
}

func TestSupported(t *testing.T) {
	cases := []struct {
		name string
		cmp  predicate.Comparison
		want bool
	}{
		{name: "subject like", cmp: predicate.Comparison{Property: predicate.Subject, Op: predicate.Like, Value: "x"}, want: true},
		{name: "subject equal", cmp: predicate.Comparison{Property: predicate.Subject, Op: predicate.Equal, Value: "x"}, want: false},
		{name: "from name", cmp: predicate.Comparison{Property: predicate.FromName, Op: predicate.Like, Value: "x"}, want: true},
		{name: "date since", cmp: predicate.Comparison{Property: predicate.DateReceived, Op: predicate.GreaterOrEqual, Value: time.Now()}, want: true},
		{name: "date as string", cmp: predicate.Comparison{Property: predicate.DateReceived, Op: predicate.Less, Value: "03/16/2024"}, want: false},
		{name: "attachment flag", cmp: predicate.Comparison{Property: predicate.HasAttachment, Op: predicate.Equal, Value: true}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Supported(tc.cmp); got != tc.want {
				t.Fatalf("Supported() = %v, want %v", got, tc.want)
			}
		})
	}
}
