// Package worker confines a mailbox gateway to one goroutine. Requests are
// queued and run one at a time in submission order; results, errors and
// progress go back to the caller through a Dispatcher.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/search"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Connector opens the gateway. It is called on the worker goroutine.
type Connector interface {
	Connect(ctx context.Context) (mailbox.Gateway, error)
}

type ConnectorFunc func(ctx context.Context) (mailbox.Gateway, error)

func (f ConnectorFunc) Connect(ctx context.Context) (mailbox.Gateway, error) {
	return f(ctx)
}

// Session is the state owned by the worker goroutine. Tasks receive it and
// must not let it escape.
type Session struct {
	Gateway  mailbox.Gateway
	Engine   *search.Engine
	Exporter *export.Exporter
	// Last holds the matches of the latest search, live handles included.
	Last []search.Match
}

// Task is one queued request. Do runs on the worker goroutine and returns
// the success callback, which is dispatched like OnError.
type Task struct {
	ID      string
	Name    string
	Do      func(ctx context.Context, s *Session) (func(), error)
	OnError func(err error)
	// Cancel is signalled by Worker.Cancel while the task runs and by
	// CancelTask until it finishes. Tasks without one cannot be cancelled.
	Cancel *search.CancelFlag
}

type Option func(*Worker) error

type Worker struct {
	connector  Connector
	dispatcher Dispatcher
	logger     *slog.Logger
	engineOpts []search.EngineOption
	sink       export.Sink

	onReady          func(account string)
	onFailed         func(err error)
	onProgress       search.ProgressFunc
	onExportProgress export.ProgressFunc

	tasks *queue[*Task]
	done  chan struct{}

	mu      sync.Mutex
	cancels map[string]*search.CancelFlag
	running string
}

func WithConnector(c Connector) Option {
	return func(w *Worker) error {
		w.connector = c
		return nil
	}
}

func WithDispatcher(d Dispatcher) Option {
	return func(w *Worker) error {
		w.dispatcher = d
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) error {
		w.logger = logger
		return nil
	}
}

// WithEngineOptions are applied when the search engine is built on the
// worker goroutine.
func WithEngineOptions(opts ...search.EngineOption) Option {
	return func(w *Worker) error {
		w.engineOpts = append(w.engineOpts, opts...)
		return nil
	}
}

// WithSink enables ExportAttachments.
func WithSink(sink export.Sink) Option {
	return func(w *Worker) error {
		w.sink = sink
		return nil
	}
}

func WithOnReady(fn func(account string)) Option {
	return func(w *Worker) error {
		w.onReady = fn
		return nil
	}
}

func WithOnFailed(fn func(err error)) Option {
	return func(w *Worker) error {
		w.onFailed = fn
		return nil
	}
}

func WithOnProgress(fn search.ProgressFunc) Option {
	return func(w *Worker) error {
		w.onProgress = fn
		return nil
	}
}

func WithOnExportProgress(fn export.ProgressFunc) Option {
	return func(w *Worker) error {
		w.onExportProgress = fn
		return nil
	}
}

func New(opts ...Option) (*Worker, error) {
	w := &Worker{
		tasks:   newQueue[*Task](),
		done:    make(chan struct{}),
		cancels: map[string]*search.CancelFlag{},
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	if w.connector == nil {
		return nil, errors.New("requires connector")
	}
	if w.dispatcher == nil {
		return nil, errors.New("requires dispatcher")
	}
	if w.logger == nil {
		return nil, errors.New("requires slogger")
	}
	return w, nil
}

// Run connects and then drains the queue until Close is called or ctx ends.
// It must be called once, from the goroutine that will own the gateway.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)

	session, account, err := w.open(ctx)
	if err != nil {
		w.logger.Error("worker failed to start", slog.Any("error", utils.WrapError(err)))
		w.dispatch(func() {
			if w.onFailed != nil {
				w.onFailed(err)
			}
		})
		return err
	}
	defer func() {
		if err := session.Gateway.Close(); err != nil {
			w.logger.Error("failed to close gateway", slog.Any("error", utils.WrapError(err)))
		}
	}()

	w.logger.Info("worker ready", slog.String("account", account))
	w.dispatch(func() {
		if w.onReady != nil {
			w.onReady(account)
		}
	})

	for {
		task, ok := w.tasks.pop(ctx)
		if !ok {
			return ctx.Err()
		}
		if task == nil {
			w.logger.Info("worker stopped")
			return nil
		}
		w.execute(ctx, session, task)
	}
}

func (w *Worker) open(ctx context.Context) (*Session, string, error) {
	gateway, err := w.connector.Connect(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "connect")
	}

	session := &Session{Gateway: gateway}
	engineOpts := append([]search.EngineOption{
		search.WithGateway(gateway),
		search.WithLogger(w.logger),
	}, w.engineOpts...)
	if session.Engine, err = search.NewEngine(engineOpts...); err != nil {
		_ = gateway.Close()
		return nil, "", err
	}
	if w.sink != nil {
		if session.Exporter, err = export.NewExporter(export.WithSink(w.sink), export.WithLogger(w.logger)); err != nil {
			_ = gateway.Close()
			return nil, "", err
		}
	}

	account, err := gateway.Account(ctx)
	if err != nil {
		_ = gateway.Close()
		return nil, "", errors.Wrap(err, "read account")
	}
	return session, account, nil
}

func (w *Worker) execute(ctx context.Context, session *Session, task *Task) {
	logger := w.logger.With(slog.String("task_id", task.ID), slog.String("task", task.Name))
	logger.Debug("task started")

	w.setRunning(task.ID)
	defer w.finish(task.ID)

	fail := func(err error) {
		logger.Error("task failed", slog.Any("error", utils.WrapError(err)))
		w.dispatch(func() {
			if task.OnError != nil {
				task.OnError(err)
			}
		})
	}

	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("task %s panicked: %v", task.Name, r))
		}
	}()

	deliver, err := task.Do(ctx, session)
	if err != nil {
		fail(err)
		return
	}
	logger.Debug("task completed")
	w.dispatch(deliver)
}

func (w *Worker) dispatch(fn func()) {
	if fn != nil {
		w.dispatcher.Dispatch(fn)
	}
}

// Submit queues task and returns its id. It never blocks.
func (w *Worker) Submit(task Task) string {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Cancel != nil {
		w.mu.Lock()
		w.cancels[task.ID] = task.Cancel
		w.mu.Unlock()
	}
	w.tasks.push(&task)
	return task.ID
}

// Cancel asks the running task to stop at its next checkpoint. Queued tasks
// are not affected.
func (w *Worker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running != "" {
		w.cancels[w.running].Cancel()
	}
}

// CancelTask cancels the task with id, whether it is running or still
// queued. It reports false when the task is unknown, already finished or
// not cancellable.
func (w *Worker) CancelTask(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	flag, ok := w.cancels[id]
	if ok {
		flag.Cancel()
	}
	return ok
}

func (w *Worker) setRunning(id string) {
	w.mu.Lock()
	w.running = id
	w.mu.Unlock()
}

func (w *Worker) finish(id string) {
	w.mu.Lock()
	delete(w.cancels, id)
	w.running = ""
	w.mu.Unlock()
}

// Close stops the worker after the tasks already queued.
func (w *Worker) Close() {
	w.tasks.push(nil)
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) progress(count int, message string) {
	if w.onProgress == nil {
		return
	}
	w.dispatch(func() { w.onProgress(count, message) })
}

func (w *Worker) exportProgress(current, total int, message string) {
	if w.onExportProgress == nil {
		return
	}
	w.dispatch(func() { w.onExportProgress(current, total, message) })
}
