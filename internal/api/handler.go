// Package api serves searches, folder listings, exports and summaries as
// JSON over HTTP. Every request is queued on the worker that owns the
// gateway; handlers only ever see handle-free values.
package api

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/internal/report"
	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/search"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

const (
	DefaultFolderDepth    = 2
	DefaultRequestTimeout = 5 * time.Minute
)

// Worker is the part of worker.Worker the handlers use.
type Worker interface {
	Search(filter search.Filter, onSuccess worker.SearchDone, onError func(error)) string
	QuickSearch(term string, maxResults int, onSuccess worker.SearchDone, onError func(error)) string
	ListFolders(maxDepth int, onSuccess func([]mailbox.FolderInfo), onError func(error)) string
	ExportAttachments(opts export.Options, onSuccess func(export.Stats), onError func(error)) string
	Cancel()
	CancelTask(id string) bool
}

type Handler struct {
	worker         Worker
	logger         *slog.Logger
	timeout        time.Duration
	exportDefaults export.Options

	mu   sync.Mutex
	last []search.EmailRecord
}

type Option func(*Handler) error

func WithWorker(w Worker) Option {
	return func(h *Handler) error {
		h.worker = w
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

// WithTimeout bounds how long a request waits for the worker. A search
// that runs out of time is cancelled.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) error {
		if d <= 0 {
			return errors.Errorf("timeout must be positive, got %s", d)
		}
		h.timeout = d
		return nil
	}
}

// WithExportDefaults are the options a request body overrides.
func WithExportDefaults(opts export.Options) Option {
	return func(h *Handler) error {
		h.exportDefaults = opts
		return nil
	}
}

func NewHandler(opts ...Option) (*Handler, error) {
	h := &Handler{timeout: DefaultRequestTimeout}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	if h.worker == nil {
		return nil, errors.New("requires worker")
	}
	if h.logger == nil {
		return nil, errors.New("requires slogger")
	}
	return h, nil
}

func (h *Handler) Register(app fiber.Router) {
	app.Get("/folders", h.ListFolders)
	app.Post("/search", h.Search)
	app.Post("/search/quick", h.QuickSearch)
	app.Post("/search/cancel", h.Cancel)
	app.Post("/attachments/export", h.ExportAttachments)
	app.Get("/summary", h.Summary)
}

type searchResponse struct {
	Records   []search.EmailRecord `json:"records"`
	Count     int                  `json:"count"`
	Cancelled bool                 `json:"cancelled"`
}

type quickRequest struct {
	Term       string `json:"term"`
	MaxResults int    `json:"max_results"`
}

func (h *Handler) ListFolders(c *fiber.Ctx) error {
	depth := c.QueryInt("depth", DefaultFolderDepth)
	if depth < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "depth must not be negative")
	}

	folders, err := await(h, c, func(ok func([]mailbox.FolderInfo), fail func(error)) string {
		return h.worker.ListFolders(depth, ok, fail)
	})
	if err != nil {
		return err
	}
	return c.JSON(folders)
}

func (h *Handler) Search(c *fiber.Ctx) error {
	var filter search.Filter
	if err := parseBody(c, &filter); err != nil {
		return err
	}

	res, err := await(h, c, func(ok func(searchResponse), fail func(error)) string {
		return h.worker.Search(filter, h.keep(ok), fail)
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) QuickSearch(c *fiber.Ctx) error {
	var req quickRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Term) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "term is required")
	}

	res, err := await(h, c, func(ok func(searchResponse), fail func(error)) string {
		return h.worker.QuickSearch(req.Term, req.MaxResults, h.keep(ok), fail)
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Cancel stops the running search. Its partial results are still returned
// to the request that started it.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	h.worker.Cancel()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"cancelled": true})
}

// ExportAttachments exports the attachments of the latest search. The
// request's output_dir is relative to the configured export directory and
// defaults to it.
func (h *Handler) ExportAttachments(c *fiber.Ctx) error {
	opts := h.exportDefaults
	opts.OutputDir = ""
	if err := parseBody(c, &opts); err != nil {
		return err
	}
	organize, err := export.ParseOrganizeBy(string(opts.OrganizeBy))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	opts.OrganizeBy = organize
	if opts.OutputDir, err = resolveOutputDir(h.exportDefaults.OutputDir, opts.OutputDir); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	stats, err := await(h, c, func(ok func(export.Stats), fail func(error)) string {
		return h.worker.ExportAttachments(opts, ok, fail)
	})
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Summary aggregates the records of the latest search.
func (h *Handler) Summary(c *fiber.Ctx) error {
	h.mu.Lock()
	records := h.last
	h.mu.Unlock()
	return c.JSON(report.Summarize(records))
}

// keep remembers the records for Summary before answering the request.
func (h *Handler) keep(ok func(searchResponse)) worker.SearchDone {
	return func(records []search.EmailRecord, cancelled bool) {
		h.mu.Lock()
		h.last = records
		h.mu.Unlock()
		ok(searchResponse{Records: records, Count: len(records), Cancelled: cancelled})
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// await submits a task and waits for its callback. The callbacks never
// block the worker. A request that runs out of time cancels its own task
// only.
func await[T any](h *Handler, c *fiber.Ctx, submit func(ok func(T), fail func(error)) string) (T, error) {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	id := submit(
		func(v T) { done <- outcome[T]{value: v} },
		func(err error) { done <- outcome[T]{err: err} },
	)

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		h.worker.CancelTask(id)
		var zero T
		return zero, ctx.Err()
	}
}

// resolveOutputDir places dir under root, rejecting paths that leave it.
func resolveOutputDir(root, dir string) (string, error) {
	root = strings.TrimSpace(root)
	dir = strings.TrimSpace(dir)
	if dir == "" {
		if root == "" {
			return "", errors.New("output_dir is required")
		}
		return root, nil
	}

	clean := filepath.Clean(dir)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("output_dir %q must stay inside the export directory", dir)
	}
	return filepath.Join(root, clean), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}
