package mock

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"aaronromeo.com/mailsift/pkg/predicate"
	gomock "go.uber.org/mock/gomock"
)

// SetupLogger sets up a logger that only outputs if the test fails
func SetupLogger(t *testing.T) *slog.Logger {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Cleanup(func() {
		if t.Failed() {
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})

	return logger
}

// predicateMatcher compares predicates by their rendered filter.
type predicateMatcher struct {
	want string
}

func (m predicateMatcher) Matches(x interface{}) bool {
	p, ok := x.(predicate.Predicate)
	if !ok {
		return false
	}
	return p.String() == m.want
}

func (m predicateMatcher) String() string {
	return "predicate rendering to " + m.want
}

// NewPredicateMatcher returns a matcher for predicates rendering to want.
func NewPredicateMatcher(want string) gomock.Matcher {
	return predicateMatcher{want: want}
}
