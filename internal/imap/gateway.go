package imap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"aaronromeo.com/mailsift/internal/imap/mailboxes"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/utils"
	giimap "github.com/emersion/go-imap/v2"
	pkgerrors "github.com/pkg/errors"
)

// ErrFolderNotFound is returned when a folder or subfolder does not exist on
// the server.
var ErrFolderNotFound = errors.New("folder not found")

// FolderNames are the mailbox names tried for each folder kind when the
// server does not advertise a special-use attribute.
type FolderNames map[mailbox.FolderKind]string

// DefaultFolderNames returns the fallback names used when none are configured.
func DefaultFolderNames() FolderNames {
	return FolderNames{
		mailbox.Sent:    "Sent",
		mailbox.Drafts:  "Drafts",
		mailbox.Deleted: "Trash",
		mailbox.Junk:    "Junk",
		mailbox.Outbox:  "Outbox",
	}
}

var specialUse = map[mailbox.FolderKind]giimap.MailboxAttr{
	mailbox.Sent:    giimap.MailboxAttrSent,
	mailbox.Drafts:  giimap.MailboxAttrDrafts,
	mailbox.Deleted: giimap.MailboxAttrTrash,
	mailbox.Junk:    giimap.MailboxAttrJunk,
}

const inboxName = "INBOX"

type GatewayOption func(*Gateway) error

// Gateway implements mailbox.Gateway on top of one IMAP session.
type Gateway struct {
	runner ServerRunner
	names  FolderNames
	logger *slog.Logger
}

func WithRunner(runner ServerRunner) GatewayOption {
	return func(g *Gateway) error {
		g.runner = runner
		return nil
	}
}

// WithFolderNames overrides the fallback names of the given kinds.
func WithFolderNames(names FolderNames) GatewayOption {
	return func(g *Gateway) error {
		for kind, name := range names {
			if strings.TrimSpace(name) == "" {
				continue
			}
			if kind == mailbox.Inbox {
				return errors.New("the inbox name cannot be overridden")
			}
			g.names[kind] = strings.TrimSpace(name)
		}
		return nil
	}
}

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

func NewGateway(opts ...GatewayOption) (*Gateway, error) {
	g := &Gateway{names: DefaultFolderNames()}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	if g.runner == nil {
		return nil, errors.New("requires IMAP runner")
	}
	if g.logger == nil {
		return nil, errors.New("requires slogger")
	}
	return g, nil
}

func (g *Gateway) Account(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.runner.Account(), nil
}

func (g *Gateway) Close() error {
	return g.runner.Close()
}

// ResolveFolder finds the mailbox for kind, then the named child of it when
// subfolder is not blank.
func (g *Gateway) ResolveFolder(ctx context.Context, kind mailbox.FolderKind, subfolder string) (mailbox.Folder, error) {
	boxes, err := g.runner.ListMailboxes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list mailboxes")
	}

	parent, ok := g.findKind(boxes, kind)
	if !ok {
		return nil, pkgerrors.Wrapf(ErrFolderNotFound, "%s", kind)
	}

	target := parent
	if sub := strings.TrimSpace(subfolder); sub != "" {
		name := parent.Name + sub
		if parent.Delim != 0 {
			name = parent.Name + string(parent.Delim) + sub
		}
		target, ok = findName(boxes, name)
		if !ok {
			return nil, pkgerrors.Wrapf(ErrFolderNotFound, "%s", name)
		}
	}
	if !target.Selectable() {
		return nil, pkgerrors.Wrapf(ErrFolderNotFound, "%s cannot be selected", target.Name)
	}

	g.logger.Debug("resolved folder",
		slog.String("kind", string(kind)),
		slog.String("mailbox", target.Name),
	)
	return &folder{gateway: g, name: target.Name}, nil
}

func (g *Gateway) findKind(boxes []mailboxes.Mailbox, kind mailbox.FolderKind) (mailboxes.Mailbox, bool) {
	if kind == mailbox.Inbox {
		return findName(boxes, inboxName)
	}
	if attr, ok := specialUse[kind]; ok {
		for _, box := range boxes {
			if box.HasAttr(attr) {
				return box, true
			}
		}
	}
	name, ok := g.names[kind]
	if !ok {
		return mailboxes.Mailbox{}, false
	}
	return findName(boxes, name)
}

// findName prefers an exact match and falls back to a case-insensitive one.
func findName(boxes []mailboxes.Mailbox, name string) (mailboxes.Mailbox, bool) {
	for _, box := range boxes {
		if box.Name == name {
			return box, true
		}
	}
	for _, box := range boxes {
		if strings.EqualFold(box.Name, name) {
			return box, true
		}
	}
	return mailboxes.Mailbox{}, false
}

// ListSubfolders returns the account root followed by every mailbox up to
// maxDepth levels, parents before children.
func (g *Gateway) ListSubfolders(ctx context.Context, maxDepth int) ([]mailbox.FolderInfo, error) {
	boxes, err := g.runner.ListMailboxes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list mailboxes")
	}

	account := g.runner.Account()
	infos := []mailbox.FolderInfo{{Name: account, Path: account, Depth: 0}}

	sorted := mailboxes.SortHierarchy(boxes)
	for _, box := range sorted {
		segments := box.Segments()
		if len(segments) > maxDepth {
			continue
		}

		count := 0
		if box.Selectable() {
			count, err = g.runner.MessageCount(ctx, box.Name)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				g.logger.Debug("folder status failed",
					slog.String("mailbox", box.Name),
					slog.Any("error", utils.WrapError(err)),
				)
			}
		}

		infos = append(infos, mailbox.FolderInfo{
			Name:      segments[len(segments)-1],
			Path:      box.Name,
			ItemCount: count,
			Depth:     len(segments),
		})
	}
	return infos, nil
}

type folder struct {
	gateway *Gateway
	name    string
}

func (f *folder) Name() string {
	return f.name
}

func (f *folder) Items(ctx context.Context) (mailbox.Items, error) {
	if err := f.selectMailbox(ctx); err != nil {
		return nil, err
	}
	uids, err := f.gateway.runner.SearchUIDs(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "search %s", f.name)
	}
	return &items{folder: f, uids: uids}, nil
}

// selectMailbox opens the folder unless it is already the selected one.
func (f *folder) selectMailbox(ctx context.Context) error {
	if f.gateway.runner.SelectedMailbox() == f.name {
		return nil
	}
	if _, err := f.gateway.runner.Select(ctx, f.name); err != nil {
		return pkgerrors.Wrapf(err, "select %s", f.name)
	}
	return nil
}
