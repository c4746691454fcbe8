package worker

import (
	"context"
	"errors"

	"aaronromeo.com/mailsift/internal/export"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/search"
)

// ErrExportDisabled is returned by ExportAttachments when no sink is set.
var ErrExportDisabled = errors.New("attachment export requires a sink")

// SearchDone receives handle-free records and whether the run was cancelled.
type SearchDone func(records []search.EmailRecord, cancelled bool)

// Search queues a filtered search. Its matches replace the results kept for
// ExportAttachments.
func (w *Worker) Search(filter search.Filter, onSuccess SearchDone, onError func(error)) string {
	cancel := search.NewCancelFlag()
	return w.Submit(Task{
		Name:   "search",
		Cancel: cancel,
		Do: func(ctx context.Context, s *Session) (func(), error) {
			filter.Cancel = cancel
			filter.Progress = w.progress
			res, err := s.Engine.Search(ctx, filter)
			if err != nil {
				return nil, err
			}
			return w.keep(s, res, onSuccess), nil
		},
		OnError: onError,
	})
}

// QuickSearch queues a combined subject and sender search for term.
func (w *Worker) QuickSearch(term string, maxResults int, onSuccess SearchDone, onError func(error)) string {
	cancel := search.NewCancelFlag()
	return w.Submit(Task{
		Name:   "quick_search",
		Cancel: cancel,
		Do: func(ctx context.Context, s *Session) (func(), error) {
			res, err := s.Engine.QuickSearch(ctx, term, maxResults, cancel, w.progress)
			if err != nil {
				return nil, err
			}
			return w.keep(s, res, onSuccess), nil
		},
		OnError: onError,
	})
}

func (w *Worker) keep(s *Session, res search.Result, onSuccess SearchDone) func() {
	s.Last = res.Matches
	records := res.Records()
	cancelled := res.Cancelled
	return func() {
		if onSuccess != nil {
			onSuccess(records, cancelled)
		}
	}
}

// ListFolders queues a folder hierarchy listing.
func (w *Worker) ListFolders(maxDepth int, onSuccess func([]mailbox.FolderInfo), onError func(error)) string {
	return w.Submit(Task{
		Name: "list_folders",
		Do: func(ctx context.Context, s *Session) (func(), error) {
			folders, err := s.Gateway.ListSubfolders(ctx, maxDepth)
			if err != nil {
				return nil, err
			}
			return func() {
				if onSuccess != nil {
					onSuccess(folders)
				}
			}, nil
		},
		OnError: onError,
	})
}

// ExportAttachments queues an export of the attachments of the latest
// search results.
func (w *Worker) ExportAttachments(opts export.Options, onSuccess func(export.Stats), onError func(error)) string {
	return w.Submit(Task{
		Name: "export_attachments",
		Do: func(ctx context.Context, s *Session) (func(), error) {
			if s.Exporter == nil {
				return nil, ErrExportDisabled
			}
			stats, err := s.Exporter.Export(ctx, s.Last, opts, w.exportProgress)
			if err != nil {
				return nil, err
			}
			return func() {
				if onSuccess != nil {
					onSuccess(stats)
				}
			}, nil
		},
		OnError: onError,
	})
}
