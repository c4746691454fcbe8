package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/mock"
	"aaronromeo.com/mailsift/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

var newest = time.Date(2024, time.March, 15, 18, 30, 0, 0, time.Local)

func newTestEngine(t *testing.T, gw mailbox.Gateway, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithGateway(gw), WithLogger(mock.SetupLogger(t))}, opts...)
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func subjects(res Result) []string {
	out := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		out = append(out, m.Subject)
	}
	return out
}

func TestNewEngineRequiresDeps(t *testing.T) {
	_, err := NewEngine(WithLogger(mock.SetupLogger(t)))
	assert.EqualError(t, err, "requires gateway")

	_, err = NewEngine(WithGateway(testutil.NewGateway()))
	assert.EqualError(t, err, "requires slogger")

	_, err = NewEngine(WithGateway(testutil.NewGateway()), WithLogger(mock.SetupLogger(t)), WithDefaultMaxResults(0))
	assert.Error(t, err)
}

func TestSearchCancelledAfterThreeMatches(t *testing.T) {
	gw := testutil.NewGateway(testutil.Messages(10, newest)...)
	e := newTestEngine(t, gw)

	cancel := NewCancelFlag()
	res, err := e.Search(context.Background(), Filter{
		Cancel: cancel,
		Progress: func(count int, _ string) {
			if count == 3 {
				cancel.Cancel()
			}
		},
	})

	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, []string{"msg-00", "msg-01", "msg-02"}, subjects(res))
}

func TestSearchCapsResults(t *testing.T) {
	gw := testutil.NewGateway(testutil.Messages(20, newest)...)
	e := newTestEngine(t, gw)

	res, err := e.Search(context.Background(), Filter{MaxResults: 5})

	require.NoError(t, err)
	assert.False(t, res.Cancelled)
	assert.Equal(t, []string{"msg-00", "msg-01", "msg-02", "msg-03", "msg-04"}, subjects(res))
}

func TestSearchDefaultCap(t *testing.T) {
	gw := testutil.NewGateway(testutil.Messages(8, newest)...)
	e := newTestEngine(t, gw, WithDefaultMaxResults(6))

	res, err := e.Search(context.Background(), Filter{})

	require.NoError(t, err)
	assert.Len(t, res.Matches, 6)
}

func TestSearchOrdersNewestFirst(t *testing.T) {
	msgs := testutil.Messages(5, newest)
	shuffled := []*testutil.Message{msgs[3], msgs[0], msgs[4], msgs[1], msgs[2]}
	e := newTestEngine(t, testutil.NewGateway(shuffled...))

	res, err := e.Search(context.Background(), Filter{})

	require.NoError(t, err)
	assert.Equal(t, []string{"msg-00", "msg-01", "msg-02", "msg-03", "msg-04"}, subjects(res))
}

func TestSearchBodyResidualFilter(t *testing.T) {
	bodies := []string{
		"Please find the invoice attached",
		"nothing here",
		"INVOICE #42",
		"lunch?",
		"status update",
		"overdue Invoice reminder",
		"weekly digest",
		"re: meeting",
		"your invoice is ready",
		"no match",
	}
	msgs := make([]*testutil.Message, 0, len(bodies))
	for i, body := range bodies {
		msgs = append(msgs, &testutil.Message{
			SubjectText: fmt.Sprintf("Monthly report %d", i),
			FromAddress: "billing@example.com",
			Received:    newest.Add(-time.Duration(i) * time.Minute),
			BodyText:    body,
		})
	}
	gw := testutil.NewGateway(msgs...)
	e := newTestEngine(t, gw)

	var counts []int
	res, err := e.Search(context.Background(), Filter{
		Subject:      "report",
		BodyContains: "invoice",
		Progress: func(count int, message string) {
			counts = append(counts, count)
			assert.Equal(t, fmt.Sprintf("Found: %d emails...", count), message)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Monthly report 0", "Monthly report 2", "Monthly report 5", "Monthly report 8"}, subjects(res))
	assert.Equal(t, []int{1, 2, 3, 4}, counts)

	inbox := gw.Folders[mailbox.Inbox]
	assert.Equal(t, 1, inbox.Restricted)
	assert.Equal(t, `@SQL="urn:schemas:httpmail:subject" LIKE '%report%'`, inbox.LastPredicate.String())
}

func TestSearchSkipsRestrictWithoutPredicate(t *testing.T) {
	gw := testutil.NewGateway(testutil.Messages(3, newest)...)
	e := newTestEngine(t, gw)

	_, err := e.Search(context.Background(), Filter{BodyContains: "body"})

	require.NoError(t, err)
	assert.Equal(t, 0, gw.Folders[mailbox.Inbox].Restricted)
}

func TestSearchRecipientResidualFilter(t *testing.T) {
	msgs := testutil.Messages(4, newest)
	msgs[1].RecipientList = []mailbox.Recipient{{Name: "Ana Gómez", Address: "ana@example.com"}}
	msgs[2].RecipientList = []mailbox.Recipient{{Name: "Bob", Address: "bob@example.com"}}
	msgs[3].RecipientsFunc = func() ([]mailbox.Recipient, error) {
		return nil, errors.New("recipient table unavailable")
	}
	e := newTestEngine(t, testutil.NewGateway(msgs...))

	res, err := e.Search(context.Background(), Filter{Recipient: "ANA"})

	require.NoError(t, err)
	assert.Equal(t, []string{"msg-01"}, subjects(res))
}

func TestSearchBodyErrorSkipsItem(t *testing.T) {
	msgs := testutil.Messages(3, newest)
	msgs[1].BodyFunc = func() (string, error) { return "", errors.New("body locked") }
	e := newTestEngine(t, testutil.NewGateway(msgs...))

	res, err := e.Search(context.Background(), Filter{BodyContains: "body"})

	require.NoError(t, err)
	assert.Equal(t, []string{"msg-00", "msg-02"}, subjects(res))
}

func TestSearchReceivedTimeFailureFallsBack(t *testing.T) {
	msgs := testutil.Messages(3, newest)
	msgs[1].ReceivedTimeFunc = func() (time.Time, error) {
		return time.Time{}, errors.New("property not found")
	}
	e := newTestEngine(t, testutil.NewGateway(msgs...))

	res, err := e.Search(context.Background(), Filter{})

	require.NoError(t, err)
	require.Len(t, res.Matches, 3)
	assert.Equal(t, "msg-01", res.Matches[1].Subject)
	assert.Equal(t, NotAvailable, res.Matches[1].Date)
	assert.Equal(t, NotAvailable, res.Matches[1].Time)
	assert.Equal(t, "15-03-2024", res.Matches[0].Date)
	assert.Equal(t, "18:30:00", res.Matches[0].Time)
	assert.Equal(t, "msg-02", res.Matches[2].Subject)
}

func TestSearchSkipsBrokenItems(t *testing.T) {
	msgs := testutil.Messages(4, newest)
	msgs[1].Unreadable = true
	msgs[2].SubjectFunc = func() (string, error) { panic("dangling handle") }
	e := newTestEngine(t, testutil.NewGateway(msgs...))

	res, err := e.Search(context.Background(), Filter{})

	require.NoError(t, err)
	assert.Equal(t, []string{"msg-00", "msg-03"}, subjects(res))
}

func TestSearchIteratorFailureIsFatal(t *testing.T) {
	msgs := testutil.Messages(4, newest)
	msgs[2].NextErr = errors.New("connection reset")
	e := newTestEngine(t, testutil.NewGateway(msgs...))

	res, err := e.Search(context.Background(), Filter{})

	var execErr *SearchExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Empty(t, res.Matches)
}

func TestSearchIdempotent(t *testing.T) {
	msgs := testutil.Messages(12, newest)
	msgs[4].Files = []*testutil.Attachment{{Name: "a.pdf"}}
	e := newTestEngine(t, testutil.NewGateway(msgs...))
	f := Filter{Sender: "example.com", MaxResults: 10}

	first, err := e.Search(context.Background(), f)
	require.NoError(t, err)
	second, err := e.Search(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, first.Records(), second.Records())
	assert.Len(t, first.Records(), 10)
}

func TestSearchEmptyResultIsValid(t *testing.T) {
	e := newTestEngine(t, testutil.NewGateway(testutil.Messages(3, newest)...))

	res, err := e.Search(context.Background(), Filter{Subject: "does-not-exist"})

	require.NoError(t, err)
	assert.False(t, res.Cancelled)
	assert.Empty(t, res.Matches)
	assert.NotNil(t, res.Records())
}

func TestSearchContextCancelled(t *testing.T) {
	e := newTestEngine(t, testutil.NewGateway(testutil.Messages(3, newest)...))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Search(ctx, Filter{})

	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Matches)
}

func TestSearchFailsBeforeTouchingGateway(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr any
	}{
		{name: "malformed date from", filter: Filter{DateFrom: "2024-03-01"}, wantErr: &InvalidFilterError{}},
		{name: "malformed date to", filter: Filter{DateTo: "tomorrow"}, wantErr: &InvalidFilterError{}},
		{name: "negative max results", filter: Filter{MaxResults: -1}, wantErr: &InvalidFilterError{}},
		{name: "unknown folder", filter: Filter{Folder: "archive"}, wantErr: &UnknownFolderError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mock.NewMockGateway(ctrl)
			e := newTestEngine(t, gw)

			_, err := e.Search(context.Background(), tt.filter)

			require.Error(t, err)
			switch tt.wantErr.(type) {
			case *InvalidFilterError:
				var target *InvalidFilterError
				assert.ErrorAs(t, err, &target)
			case *UnknownFolderError:
				var target *UnknownFolderError
				assert.ErrorAs(t, err, &target)
			}
		})
	}
}

func TestSearchFolderResolutionError(t *testing.T) {
	gw := testutil.NewGateway(testutil.Messages(2, newest)...)
	e := newTestEngine(t, gw)

	_, err := e.Search(context.Background(), Filter{Folder: "Inbox", Subfolder: "Projects"})

	var resErr *FolderResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Projects", resErr.Subfolder)
	assert.ErrorIs(t, err, testutil.ErrNotFound)

	_, err = e.Search(context.Background(), Filter{Folder: "junk"})
	require.ErrorAs(t, err, &resErr)
}

func TestSearchSubfolder(t *testing.T) {
	gw := testutil.NewGateway()
	gw.Subfolders["sent/Clients"] = &testutil.Folder{
		FolderName: "Sent/Clients",
		Messages:   testutil.Messages(2, newest),
	}
	e := newTestEngine(t, gw)

	res, err := e.Search(context.Background(), Filter{Folder: "SENT", Subfolder: " Clients "})

	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)
}

func TestSearchExecutionErrors(t *testing.T) {
	t.Run("enumeration rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mock.NewMockGateway(ctrl)
		folder := mock.NewMockFolder(ctrl)

		gw.EXPECT().ResolveFolder(gomock.Any(), mailbox.Inbox, "").Return(folder, nil)
		folder.EXPECT().Name().Return("INBOX").AnyTimes()
		folder.EXPECT().Items(gomock.Any()).Return(nil, errors.New("folder unreadable"))

		_, err := newTestEngine(t, gw).Search(context.Background(), Filter{})

		var execErr *SearchExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.True(t, strings.HasPrefix(execErr.Op, "enumerate"))
	})

	t.Run("restriction rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mock.NewMockGateway(ctrl)
		folder := mock.NewMockFolder(ctrl)
		items := mock.NewMockItems(ctrl)

		gw.EXPECT().ResolveFolder(gomock.Any(), mailbox.Drafts, "").Return(folder, nil)
		folder.EXPECT().Name().Return("Drafts").AnyTimes()
		folder.EXPECT().Items(gomock.Any()).Return(items, nil)
		items.EXPECT().
			Restrict(gomock.Any(), mock.NewPredicateMatcher(`@SQL="urn:schemas:httpmail:subject" LIKE '%x%'`)).
			Return(nil, errors.New("filter rejected"))
		items.EXPECT().Close().Return(nil)

		_, err := newTestEngine(t, gw).Search(context.Background(), Filter{Folder: "drafts", Subject: "x"})

		var execErr *SearchExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, "restrict Drafts", execErr.Op)
	})

	t.Run("items closed after walk", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mock.NewMockGateway(ctrl)
		folder := mock.NewMockFolder(ctrl)
		items := mock.NewMockItems(ctrl)

		gw.EXPECT().ResolveFolder(gomock.Any(), mailbox.Inbox, "").Return(folder, nil)
		folder.EXPECT().Items(gomock.Any()).Return(items, nil)
		first := testutil.Messages(1, newest)[0]
		gomock.InOrder(
			items.EXPECT().Next(gomock.Any()).Return(first, nil),
			items.EXPECT().Next(gomock.Any()).Return(nil, io.EOF),
		)
		items.EXPECT().Close().Return(nil)

		res, err := newTestEngine(t, gw).Search(context.Background(), Filter{})

		require.NoError(t, err)
		assert.Equal(t, []string{"msg-00"}, subjects(res))
	})
}

func TestResultRecordsStripHandles(t *testing.T) {
	msgs := testutil.Messages(2, newest)
	msgs[0].Files = []*testutil.Attachment{{Name: "report.pdf"}}
	e := newTestEngine(t, testutil.NewGateway(msgs...))

	res, err := e.Search(context.Background(), Filter{})
	require.NoError(t, err)
	for _, m := range res.Matches {
		assert.NotNil(t, m.Item)
	}

	records := res.Records()
	require.Len(t, records, 2)
	records[0].AttachmentNames[0] = "changed.pdf"
	assert.Equal(t, "report.pdf", res.Matches[0].AttachmentNames[0])
}

func TestSearchCancelledBetweenFilteredItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mock.NewMockGateway(ctrl)
	folder := mock.NewMockFolder(ctrl)
	items := mock.NewMockItems(ctrl)

	gw.EXPECT().ResolveFolder(gomock.Any(), mailbox.Inbox, "").Return(folder, nil)
	folder.EXPECT().Name().Return("INBOX").AnyTimes()
	folder.EXPECT().Items(gomock.Any()).Return(items, nil)

	cancel := NewCancelFlag()
	gomock.InOrder(
		items.EXPECT().Next(gomock.Any()).Return(nil, mailbox.ErrFiltered),
		items.EXPECT().Next(gomock.Any()).DoAndReturn(func(context.Context) (mailbox.Item, error) {
			cancel.Cancel()
			return nil, mailbox.ErrFiltered
		}),
	)
	items.EXPECT().Close().Return(nil)

	res, err := newTestEngine(t, gw).Search(context.Background(), Filter{Cancel: cancel})

	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Matches)
}
