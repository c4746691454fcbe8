package imap

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"aaronromeo.com/mailsift/internal/imap/searches"
	"aaronromeo.com/mailsift/internal/imap/selectors"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/predicate"
	giimap "github.com/emersion/go-imap/v2"
	pkgerrors "github.com/pkg/errors"
)

// items walks a UID set newest first. Comparisons the server cannot search
// on are kept in residual and evaluated on each fetched message.
type items struct {
	folder   *folder
	uids     []giimap.UID
	residual predicate.Predicate
	parent   *items

	ordered []giimap.UID
	sorted  bool
	pos     int
	closed  bool
}

func (it *items) Restrict(ctx context.Context, p predicate.Predicate) (mailbox.Items, error) {
	if it.closed {
		return nil, errors.New("items are closed")
	}

	pushed, residual := p.Split(searches.Supported)
	restricted := &items{
		folder:   it.folder,
		uids:     it.uids,
		parent:   it,
		residual: predicate.Predicate{Conditions: append(append([]predicate.Condition{}, it.residual.Conditions...), residual.Conditions...)},
	}

	if !pushed.IsEmpty() {
		criteria, err := searches.BuildSearchCriteria(pushed)
		if err != nil {
			return nil, err
		}
		if err := it.folder.selectMailbox(ctx); err != nil {
			return nil, err
		}
		uids, err := it.folder.gateway.runner.SearchUIDs(ctx, criteria)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "search %s", it.folder.name)
		}
		restricted.uids = intersect(it.uids, uids)
	}

	it.folder.gateway.logger.Debug("restricted items",
		slog.String("mailbox", it.folder.name),
		slog.String("pushed", pushed.String()),
		slog.String("residual", residual.String()),
		slog.Int("count", len(restricted.uids)),
	)
	return restricted, nil
}

func (it *items) Next(ctx context.Context) (mailbox.Item, error) {
	if it.closed {
		return nil, errors.New("items are closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runner := it.folder.gateway.runner
	if !it.sorted {
		if err := it.folder.selectMailbox(ctx); err != nil {
			return nil, err
		}
		ordered, err := runner.OrderNewestFirst(ctx, it.uids)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "order %s", it.folder.name)
		}
		it.ordered = ordered
		it.sorted = true
	}

	if it.pos >= len(it.ordered) {
		return nil, io.EOF
	}
	uid := it.ordered[it.pos]
	it.pos++

	if err := it.folder.selectMailbox(ctx); err != nil {
		return nil, err
	}
	fetched, err := runner.FetchMessage(ctx, uid)
	if err != nil {
		var imapErr *giimap.Error
		if errors.Is(err, selectors.ErrMessageGone) || errors.As(err, &imapErr) {
			return nil, &mailbox.ItemError{Err: pkgerrors.Wrapf(err, "fetch %d", uid)}
		}
		return nil, pkgerrors.Wrapf(err, "fetch %d", uid)
	}

	// Each fetch returns to the caller, matched or not, so a cancelled
	// search stops after at most one message.
	msg := newMessage(fetched)
	if !it.residual.IsEmpty() && !it.residual.Match(msg.lookup) {
		return nil, mailbox.ErrFiltered
	}
	return msg, nil
}

func (it *items) Close() error {
	it.closed = true
	it.ordered = nil
	if it.parent != nil {
		return it.parent.Close()
	}
	return nil
}

func intersect(within, uids []giimap.UID) []giimap.UID {
	allowed := make(map[giimap.UID]struct{}, len(within))
	for _, uid := range within {
		allowed[uid] = struct{}{}
	}
	out := make([]giimap.UID, 0, len(uids))
	for _, uid := range uids {
		if _, ok := allowed[uid]; ok {
			out = append(out, uid)
		}
	}
	return out
}
