// Package export saves the attachments of search matches to a sink.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"aaronromeo.com/mailsift/pkg/search"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/pkg/errors"
)

// OrganizeBy selects the subfolder layout of exported files.
type OrganizeBy string

const (
	Flat      OrganizeBy = "flat"
	BySender  OrganizeBy = "sender"
	ByDate    OrganizeBy = "date"
	BySubject OrganizeBy = "subject"
)

const (
	unknownSender  = "Desconocido"
	noDate         = "sin_fecha"
	noName         = "sin_nombre"
	subjectMaxLen  = 50
	invalidChars   = `<>:"/\|?*`
	dateFolderForm = "2006-01-02"
)

func ParseOrganizeBy(value string) (OrganizeBy, error) {
	switch v := OrganizeBy(strings.ToLower(strings.TrimSpace(value))); v {
	case "":
		return Flat, nil
	case Flat, BySender, ByDate, BySubject:
		return v, nil
	}
	return "", fmt.Errorf("organize_by %q not recognized, options: flat, sender, date, subject", value)
}

// Options controls one export run.
type Options struct {
	OutputDir  string     `json:"output_dir" yaml:"output_dir"`
	OrganizeBy OrganizeBy `json:"organize_by,omitempty" yaml:"organize_by"`
	// FileTypes is an extension allow-list such as ".pdf". Empty allows all.
	FileTypes []string `json:"file_types,omitempty" yaml:"file_types"`
	// KeepInline also exports parts embedded in the body.
	KeepInline bool `json:"keep_inline" yaml:"keep_inline"`
}

// ExportedFile describes one saved attachment.
type ExportedFile struct {
	FileName    string `json:"filename"`
	Path        string `json:"path"`
	FromSubject string `json:"from_subject"`
	FromSender  string `json:"from_sender"`
	Date        string `json:"date"`
}

type Stats struct {
	TotalEmails           int            `json:"total_emails"`
	EmailsWithAttachments int            `json:"emails_with_attachments"`
	TotalAttachments      int            `json:"total_attachments"`
	Exported              int            `json:"exported"`
	Skipped               int            `json:"skipped"`
	Errors                int            `json:"errors"`
	Files                 []ExportedFile `json:"files"`
}

// ProgressFunc is called once per processed email.
type ProgressFunc func(current, total int, message string)

// Sink stores exported files. Paths are built with Join and are relative to
// whatever root the sink was configured with.
type Sink interface {
	Prepare(ctx context.Context, dir string) error
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, name string, r io.Reader) error
	Join(elem ...string) string
}

type Exporter struct {
	sink   Sink
	logger *slog.Logger
}

type ExporterOption func(*Exporter) error

func WithSink(sink Sink) ExporterOption {
	return func(e *Exporter) error {
		e.sink = sink
		return nil
	}
}

func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) error {
		e.logger = logger
		return nil
	}
}

func NewExporter(opts ...ExporterOption) (*Exporter, error) {
	e := Exporter{}
	for _, opt := range opts {
		if err := opt(&e); err != nil {
			return nil, err
		}
	}

	if e.sink == nil {
		return nil, errors.New("requires sink")
	}
	if e.logger == nil {
		return nil, errors.New("requires slogger")
	}
	return &e, nil
}

// Export saves the attachments of every match flagged with attachments.
// Failures of single attachments are counted in Stats.Errors and do not stop
// the run.
func (e *Exporter) Export(ctx context.Context, matches []search.Match, opts Options, progress ProgressFunc) (Stats, error) {
	stats := Stats{Files: []ExportedFile{}}

	organize, err := ParseOrganizeBy(string(opts.OrganizeBy))
	if err != nil {
		return stats, err
	}
	if err := e.sink.Prepare(ctx, opts.OutputDir); err != nil {
		return stats, errors.Wrapf(err, "prepare %s", opts.OutputDir)
	}

	withAttachments := make([]search.Match, 0, len(matches))
	for _, m := range matches {
		if m.HasAttachments {
			withAttachments = append(withAttachments, m)
		}
	}
	stats.TotalEmails = len(matches)
	stats.EmailsWithAttachments = len(withAttachments)
	if len(withAttachments) == 0 {
		e.logger.Info("no emails with attachments to export")
		return stats, nil
	}

	allowed := extensionSet(opts.FileTypes)
	total := len(withAttachments)
	for i, m := range withAttachments {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e.exportMatch(ctx, m, opts, organize, allowed, &stats)
		if progress != nil {
			progress(i+1, total, fmt.Sprintf("Exporting attachments %d/%d", i+1, total))
		}
	}

	e.logger.Info("export completed",
		slog.String("output_dir", opts.OutputDir),
		slog.Int("emails", stats.EmailsWithAttachments),
		slog.Int("exported", stats.Exported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
	)
	return stats, nil
}

func (e *Exporter) exportMatch(ctx context.Context, m search.Match, opts Options, organize OrganizeBy, allowed map[string]struct{}, stats *Stats) {
	if m.Item == nil {
		return
	}

	attachments, err := m.Item.Attachments()
	if err != nil {
		stats.Errors++
		e.logger.Error("read attachments failed",
			slog.String("subject", m.Subject),
			slog.Any("error", utils.WrapError(err)),
		)
		return
	}
	stats.TotalAttachments += len(attachments)

	dir := opts.OutputDir
	if sub := subfolder(organize, m.EmailRecord); sub != "" {
		dir = e.sink.Join(opts.OutputDir, sub)
	}

	for _, att := range attachments {
		name := att.FileName()

		if !opts.KeepInline {
			if inline, err := att.Inline(); err == nil && inline {
				stats.Skipped++
				continue
			}
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(path.Ext(name))]; !ok {
				stats.Skipped++
				continue
			}
		}

		target, fileName, err := e.save(ctx, dir, name, att.Open)
		if err != nil {
			stats.Errors++
			e.logger.Error("export attachment failed",
				slog.String("filename", name),
				slog.Any("error", utils.WrapError(err)),
			)
			continue
		}

		stats.Exported++
		stats.Files = append(stats.Files, ExportedFile{
			FileName:    fileName,
			Path:        target,
			FromSubject: m.Subject,
			FromSender:  m.SenderName,
			Date:        m.Date,
		})
	}
}

func (e *Exporter) save(ctx context.Context, dir, name string, open func() (io.ReadCloser, error)) (string, string, error) {
	if err := e.sink.Prepare(ctx, dir); err != nil {
		return "", "", errors.Wrapf(err, "prepare %s", dir)
	}
	fileName, err := uniqueName(ctx, e.sink, dir, sanitize(name))
	if err != nil {
		return "", "", err
	}
	target := e.sink.Join(dir, fileName)

	r, err := open()
	if err != nil {
		return "", "", errors.Wrapf(err, "open %s", name)
	}
	defer r.Close()

	if err := e.sink.Save(ctx, target, r); err != nil {
		return "", "", errors.Wrapf(err, "save %s", target)
	}
	return target, fileName, nil
}

// uniqueName appends _1, _2, ... before the extension until the name is
// free in dir.
func uniqueName(ctx context.Context, sink Sink, dir, name string) (string, error) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for counter := 1; ; counter++ {
		exists, err := sink.Exists(ctx, sink.Join(dir, candidate))
		if err != nil {
			return "", errors.Wrapf(err, "stat %s", candidate)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, counter, ext)
	}
}

func subfolder(organize OrganizeBy, rec search.EmailRecord) string {
	switch organize {
	case BySender:
		name := rec.SenderName
		if name == "" {
			name = unknownSender
		}
		return sanitize(name)
	case ByDate:
		day, err := time.Parse(search.DateLayout, rec.Date)
		if err != nil {
			return noDate
		}
		return day.Format(dateFolderForm)
	case BySubject:
		subject := rec.Subject
		if subject == "" {
			subject = search.NoSubject
		}
		if runes := []rune(subject); len(runes) > subjectMaxLen {
			subject = string(runes[:subjectMaxLen])
		}
		return sanitize(subject)
	}
	return ""
}

// sanitize makes name usable as a single path segment.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return noName
	}
	return name
}

func extensionSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		set[t] = struct{}{}
	}
	return set
}
