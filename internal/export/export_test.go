package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/mock"
	"aaronromeo.com/mailsift/pkg/search"
	"aaronromeo.com/mailsift/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2024, time.March, 15, 18, 30, 0, 0, time.Local)

func match(msg *testutil.Message) search.Match {
	return search.Match{EmailRecord: search.Extract(msg, search.DefaultPreviewLength), Item: msg}
}

func newTestExporter(t *testing.T) (*Exporter, *testutil.MockFileManager) {
	t.Helper()
	files := testutil.NewMockFileManager()
	e, err := NewExporter(WithSink(NewFileSink(files)), WithLogger(mock.SetupLogger(t)))
	require.NoError(t, err)
	return e, files
}

func TestNewExporterRequiresDeps(t *testing.T) {
	_, err := NewExporter(WithLogger(mock.SetupLogger(t)))
	assert.EqualError(t, err, "requires sink")

	_, err = NewExporter(WithSink(NewFileSink(testutil.NewMockFileManager())))
	assert.EqualError(t, err, "requires slogger")
}

func TestExportFlat(t *testing.T) {
	e, files := newTestExporter(t)

	matches := []search.Match{
		match(&testutil.Message{
			SubjectText: "Invoice",
			FromName:    "Billing",
			Received:    received,
			Files: []*testutil.Attachment{
				{Name: "invoice.pdf", Content: []byte("pdf")},
				{Name: "logo.png", Content: []byte("png"), IsInline: true},
			},
		}),
		match(&testutil.Message{SubjectText: "No files", Received: received}),
		match(&testutil.Message{
			SubjectText: "Again",
			FromName:    "Billing",
			Received:    received,
			Files:       []*testutil.Attachment{{Name: "invoice.pdf", Content: []byte("pdf v2")}},
		}),
	}

	var progress [][2]int
	stats, err := e.Export(context.Background(), matches, Options{OutputDir: "out"}, func(current, total int, _ string) {
		progress = append(progress, [2]int{current, total})
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalEmails)
	assert.Equal(t, 2, stats.EmailsWithAttachments)
	assert.Equal(t, 3, stats.TotalAttachments)
	assert.Equal(t, 2, stats.Exported)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	content, ok := files.Content(filepath.Join("out", "invoice.pdf"))
	require.True(t, ok)
	assert.Equal(t, "pdf", content)
	content, ok = files.Content(filepath.Join("out", "invoice_1.pdf"))
	require.True(t, ok)
	assert.Equal(t, "pdf v2", content)

	require.Len(t, stats.Files, 2)
	assert.Equal(t, ExportedFile{
		FileName:    "invoice_1.pdf",
		Path:        filepath.Join("out", "invoice_1.pdf"),
		FromSubject: "Again",
		FromSender:  "Billing",
		Date:        "15-03-2024",
	}, stats.Files[1])
}

func TestExportKeepsInlineWhenAsked(t *testing.T) {
	e, files := newTestExporter(t)

	matches := []search.Match{match(&testutil.Message{
		Received: received,
		Files:    []*testutil.Attachment{{Name: "logo.png", Content: []byte("png"), IsInline: true}},
	})}

	stats, err := e.Export(context.Background(), matches, Options{OutputDir: "out", KeepInline: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Exported)
	_, ok := files.Content(filepath.Join("out", "logo.png"))
	assert.True(t, ok)
}

func TestExportFileTypes(t *testing.T) {
	e, _ := newTestExporter(t)

	matches := []search.Match{match(&testutil.Message{
		Received: received,
		Files: []*testutil.Attachment{
			{Name: "a.PDF"},
			{Name: "b.xlsx"},
			{Name: "c.docx"},
			{Name: "README"},
		},
	})}

	stats, err := e.Export(context.Background(), matches, Options{OutputDir: "out", FileTypes: []string{".pdf", "XLSX"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Exported)
	assert.Equal(t, 2, stats.Skipped)
}

func TestExportOrganizeBy(t *testing.T) {
	long := "A very long subject line that keeps going well past fifty characters"

	cases := []struct {
		name     string
		organize OrganizeBy
		msg      *testutil.Message
		wantDir  string
	}{
		{
			name:     "sender",
			organize: BySender,
			msg:      &testutil.Message{FromName: "ACME: Billing/Ops", Received: received},
			wantDir:  "ACME_ Billing_Ops",
		},
		{
			name:     "sender unknown",
			organize: BySender,
			msg:      &testutil.Message{SenderNameFunc: func() (string, error) { return "", nil }, Received: received},
			wantDir:  "N_A",
		},
		{
			name:     "date",
			organize: ByDate,
			msg:      &testutil.Message{Received: received},
			wantDir:  "2024-03-15",
		},
		{
			name:     "date unusable",
			organize: ByDate,
			msg:      &testutil.Message{ReceivedTimeFunc: func() (time.Time, error) { return time.Time{}, errors.New("gone") }},
			wantDir:  "sin_fecha",
		},
		{
			name:     "subject truncated",
			organize: BySubject,
			msg:      &testutil.Message{SubjectText: long, Received: received},
			wantDir:  long[:50],
		},
		{
			name:     "subject sanitized",
			organize: BySubject,
			msg:      &testutil.Message{SubjectText: "Re: <draft>?", Received: received},
			wantDir:  "Re_ _draft__",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, files := newTestExporter(t)
			tc.msg.Files = []*testutil.Attachment{{Name: "file.txt", Content: []byte("x")}}

			stats, err := e.Export(context.Background(), []search.Match{match(tc.msg)}, Options{OutputDir: "out", OrganizeBy: tc.organize}, nil)
			require.NoError(t, err)
			require.Equal(t, 1, stats.Exported)

			_, ok := files.Content(filepath.Join("out", tc.wantDir, "file.txt"))
			assert.True(t, ok, "expected file under %q, got %v", tc.wantDir, stats.Files)
			_, ok = files.CreatedDirs[filepath.Join("out", tc.wantDir)]
			assert.True(t, ok)
		})
	}
}

func TestExportCountsErrors(t *testing.T) {
	e, _ := newTestExporter(t)

	broken := &testutil.Message{
		Received:        received,
		Files:           []*testutil.Attachment{{Name: "x.pdf"}},
		AttachmentsFunc: func() ([]mailbox.Attachment, error) { return nil, errors.New("gone") },
	}
	rec := match(broken)
	rec.HasAttachments = true

	matches := []search.Match{
		rec,
		match(&testutil.Message{
			Received: received,
			Files: []*testutil.Attachment{
				{Name: "bad.pdf", OpenErr: errors.New("locked")},
				{Name: "good.pdf", Content: []byte("ok")},
			},
		}),
	}

	stats, err := e.Export(context.Background(), matches, Options{OutputDir: "out"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 1, stats.Exported)
	assert.Equal(t, 2, stats.TotalAttachments)
}

func TestExportNothingToDo(t *testing.T) {
	e, files := newTestExporter(t)

	stats, err := e.Export(context.Background(), []search.Match{match(&testutil.Message{Received: received})}, Options{OutputDir: "out"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEmails)
	assert.Equal(t, 0, stats.EmailsWithAttachments)
	assert.Empty(t, files.Files)
	assert.NotNil(t, stats.Files)
}

func TestExportRejectsBadOptions(t *testing.T) {
	e, _ := newTestExporter(t)

	_, err := e.Export(context.Background(), nil, Options{OutputDir: "out", OrganizeBy: "color"}, nil)
	assert.Error(t, err)

	_, err = e.Export(context.Background(), nil, Options{}, nil)
	assert.Error(t, err, "output directory is required")
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plain":       "plain",
		`a<b>c:d"e`:   "a_b_c_d_e",
		"../etc":      "_etc",
		"  .hidden. ": "hidden",
		"...":         "sin_nombre",
		"a|b?c*d\\e":  "a_b_c_d_e",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitize(in), in)
	}
}
