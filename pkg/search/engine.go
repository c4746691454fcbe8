// Package search runs filtered, newest first searches over a mailbox
// gateway. Filters the gateway can evaluate are compiled into a predicate
// and pushed down; body and recipient matching happen in process. Results
// are capped, progress is reported per match, and a CancelFlag stops the
// walk between items.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/predicate"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "aaronromeo.com/mailsift/pkg/search"

type Engine struct {
	gateway       mailbox.Gateway
	logger        *slog.Logger
	maxResults    int
	previewLength int
	tracer        trace.Tracer
	meter         metric.Meter
	matches       metric.Int64Counter
}

type EngineOption func(*Engine) error

func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := Engine{
		maxResults:    DefaultMaxResults,
		previewLength: DefaultPreviewLength,
	}
	for _, opt := range opts {
		if err := opt(&e); err != nil {
			return nil, err
		}
	}

	if e.gateway == nil {
		return nil, errors.New("requires gateway")
	}
	if e.logger == nil {
		return nil, errors.New("requires slogger")
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(instrumentationName)
	}
	if e.meter == nil {
		e.meter = otel.Meter(instrumentationName)
	}

	counter, err := e.meter.Int64Counter("mailsift.search.matches",
		metric.WithDescription("Messages returned by searches"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, errors.Wrap(err, "create matches counter")
	}
	e.matches = counter

	return &e, nil
}

func WithGateway(g mailbox.Gateway) EngineOption {
	return func(e *Engine) error {
		e.gateway = g
		return nil
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

func WithDefaultMaxResults(n int) EngineOption {
	return func(e *Engine) error {
		if n <= 0 {
			return errors.Errorf("default max results must be positive, got %d", n)
		}
		e.maxResults = n
		return nil
	}
}

func WithPreviewLength(n int) EngineOption {
	return func(e *Engine) error {
		if n <= 0 {
			return errors.Errorf("preview length must be positive, got %d", n)
		}
		e.previewLength = n
		return nil
	}
}

func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) error {
		e.tracer = t
		return nil
	}
}

func WithMeter(m metric.Meter) EngineOption {
	return func(e *Engine) error {
		e.meter = m
		return nil
	}
}

// Gateway returns the gateway the engine searches.
func (e *Engine) Gateway() mailbox.Gateway {
	return e.gateway
}

// Search runs f against its folder and returns the matches, most recent
// first. Cancellation is not an error: the matches collected so far are
// returned with Cancelled set.
func (e *Engine) Search(ctx context.Context, f Filter) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("mailsift.folder", f.Folder),
		attribute.String("mailsift.subfolder", f.Subfolder),
	))
	defer span.End()

	res, err := e.search(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Int("mailsift.matches", len(res.Matches)),
		attribute.Bool("mailsift.cancelled", res.Cancelled),
	)
	e.matches.Add(ctx, int64(len(res.Matches)), metric.WithAttributes(
		attribute.String("mailsift.folder", f.Folder),
	))
	return res, nil
}

func (e *Engine) search(ctx context.Context, f Filter) (Result, error) {
	kind, err := mailbox.ParseFolderKind(f.Folder)
	if err != nil {
		return Result{}, &UnknownFolderError{Folder: f.Folder, Err: err}
	}

	limit, err := e.limit(f.MaxResults)
	if err != nil {
		return Result{}, &InvalidFilterError{Err: err}
	}

	p, err := predicate.Compile(f.predicateFields())
	if err != nil {
		return Result{}, &InvalidFilterError{Err: err}
	}

	e.logState(ctx, Running, slog.String("folder", string(kind)), slog.String("predicate", p.String()))

	subfolder := strings.TrimSpace(f.Subfolder)
	folder, err := e.gateway.ResolveFolder(ctx, kind, subfolder)
	if err != nil {
		e.logState(ctx, Failed, slog.Any("error", utils.WrapError(err)))
		return Result{}, &FolderResolutionError{Folder: string(kind), Subfolder: subfolder, Err: err}
	}

	items, err := e.open(ctx, folder, p)
	if err != nil {
		e.logState(ctx, Failed, slog.Any("error", utils.WrapError(err)))
		return Result{}, err
	}
	defer items.Close()

	res, err := e.walk(ctx, items, f, limit)
	if err != nil {
		e.logState(ctx, Failed, slog.Any("error", utils.WrapError(err)))
		return Result{}, err
	}

	state := Completed
	if res.Cancelled {
		state = Cancelled
	}
	e.logState(ctx, state, slog.Int("matches", len(res.Matches)))
	return res, nil
}

// open enumerates the folder newest first, restricted to p when p is set.
func (e *Engine) open(ctx context.Context, folder mailbox.Folder, p predicate.Predicate) (mailbox.Items, error) {
	items, err := folder.Items(ctx)
	if err != nil {
		return nil, &SearchExecutionError{Op: "enumerate " + folder.Name(), Err: err}
	}
	if p.IsEmpty() {
		return items, nil
	}

	restricted, err := items.Restrict(ctx, p)
	if err != nil {
		_ = items.Close()
		return nil, &SearchExecutionError{Op: "restrict " + folder.Name(), Err: err}
	}
	return restricted, nil
}

func (e *Engine) walk(ctx context.Context, items mailbox.Items, f Filter, limit int) (Result, error) {
	var res Result
	for len(res.Matches) < limit {
		if f.Cancel.Cancelled() || ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}

		item, err := items.Next(ctx)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if errors.Is(err, mailbox.ErrFiltered) {
			continue
		}
		if err != nil {
			var itemErr *mailbox.ItemError
			if errors.As(err, &itemErr) {
				e.logger.DebugContext(ctx, "skipping unreadable item", slog.Any("error", utils.WrapError(err)))
				continue
			}
			if ctx.Err() != nil {
				res.Cancelled = true
				return res, nil
			}
			return Result{}, &SearchExecutionError{Op: "iterate", Err: err}
		}

		if !residualMatch(item, f) {
			continue
		}

		rec, err := e.extract(item)
		if err != nil {
			e.logger.DebugContext(ctx, "skipping item", slog.Any("error", utils.WrapError(err)))
			continue
		}

		res.Matches = append(res.Matches, Match{EmailRecord: rec, Item: item})
		count := len(res.Matches)
		f.report(count, fmt.Sprintf("Found: %d emails...", count))
	}
	return res, nil
}

// extract shields the walk from a panicking item.
func (e *Engine) extract(item mailbox.Item) (rec EmailRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("extract item: %v", r)
		}
	}()
	return Extract(item, e.previewLength), nil
}

// residualMatch applies the filters the predicate cannot express.
func residualMatch(item mailbox.Item, f Filter) bool {
	if f.BodyContains != "" {
		body, err := item.Body()
		if err != nil || !containsFold(body, f.BodyContains) {
			return false
		}
	}
	if f.Recipient != "" {
		if !containsFold(recipientText(item), f.Recipient) {
			return false
		}
	}
	return true
}

func (e *Engine) limit(n int) (int, error) {
	switch {
	case n < 0:
		return 0, errors.Errorf("max results must be positive, got %d", n)
	case n == 0:
		return e.maxResults, nil
	}
	return n, nil
}

func (e *Engine) logState(ctx context.Context, s State, attrs ...any) {
	e.logger.DebugContext(ctx, "search "+s.String(), attrs...)
}
