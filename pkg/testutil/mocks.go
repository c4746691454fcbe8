// Package testutil provides in-memory doubles for the mailbox gateway and the
// file manager. Behaviour can be overridden per call through function fields.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/predicate"
	"aaronromeo.com/mailsift/pkg/utils"
)

var ErrNotFound = errors.New("not found")

// Gateway is an in-memory mailbox.Gateway.
type Gateway struct {
	AccountName string
	Folders     map[mailbox.FolderKind]*Folder
	// Subfolders is keyed by kind and subfolder name joined with "/".
	Subfolders map[string]*Folder
	Tree       []mailbox.FolderInfo

	ResolveFolderFunc  func(ctx context.Context, kind mailbox.FolderKind, subfolder string) (mailbox.Folder, error)
	ListSubfoldersFunc func(ctx context.Context, maxDepth int) ([]mailbox.FolderInfo, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewGateway returns a gateway whose inbox holds messages.
func NewGateway(messages ...*Message) *Gateway {
	return &Gateway{
		AccountName: "user@example.com",
		Folders: map[mailbox.FolderKind]*Folder{
			mailbox.Inbox: {FolderName: "INBOX", Messages: messages},
		},
		Subfolders: map[string]*Folder{},
	}
}

func (g *Gateway) track() {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
}

// Calls returns the number of gateway operations performed so far.
func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *Gateway) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Gateway) ResolveFolder(ctx context.Context, kind mailbox.FolderKind, subfolder string) (mailbox.Folder, error) {
	g.track()
	if g.ResolveFolderFunc != nil {
		return g.ResolveFolderFunc(ctx, kind, subfolder)
	}
	if subfolder != "" {
		f, ok := g.Subfolders[string(kind)+"/"+subfolder]
		if !ok {
			return nil, fmt.Errorf("subfolder %q of %s: %w", subfolder, kind, ErrNotFound)
		}
		return f, nil
	}
	f, ok := g.Folders[kind]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", kind, ErrNotFound)
	}
	return f, nil
}

func (g *Gateway) ListSubfolders(ctx context.Context, maxDepth int) ([]mailbox.FolderInfo, error) {
	g.track()
	if g.ListSubfoldersFunc != nil {
		return g.ListSubfoldersFunc(ctx, maxDepth)
	}
	out := make([]mailbox.FolderInfo, 0, len(g.Tree))
	for _, info := range g.Tree {
		if info.Depth <= maxDepth {
			out = append(out, info)
		}
	}
	return out, nil
}

func (g *Gateway) Account(context.Context) (string, error) {
	g.track()
	return g.AccountName, nil
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return nil
}

// Folder is an in-memory mailbox.Folder.
type Folder struct {
	FolderName  string
	Messages    []*Message
	ItemsErr    error
	RestrictErr error

	// LastPredicate is the predicate passed to the latest Restrict call.
	LastPredicate predicate.Predicate
	Restricted    int
}

func (f *Folder) Name() string { return f.FolderName }

func (f *Folder) Items(context.Context) (mailbox.Items, error) {
	if f.ItemsErr != nil {
		return nil, f.ItemsErr
	}
	sorted := append([]*Message(nil), f.Messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Received.After(sorted[j].Received)
	})
	return &Items{folder: f, messages: sorted}, nil
}

// Items enumerates a snapshot of a folder.
type Items struct {
	folder   *Folder
	messages []*Message
	pos      int
	closed   bool
}

func (it *Items) Restrict(_ context.Context, p predicate.Predicate) (mailbox.Items, error) {
	it.folder.Restricted++
	it.folder.LastPredicate = p
	if it.folder.RestrictErr != nil {
		return nil, it.folder.RestrictErr
	}
	kept := make([]*Message, 0, len(it.messages))
	for _, m := range it.messages[it.pos:] {
		if p.Match(m.lookup) {
			kept = append(kept, m)
		}
	}
	return &Items{folder: it.folder, messages: kept}, nil
}

func (it *Items) Next(ctx context.Context) (mailbox.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.messages) {
		return nil, io.EOF
	}
	m := it.messages[it.pos]
	it.pos++
	if m.Unreadable {
		return nil, &mailbox.ItemError{Err: errors.New("item is unreadable")}
	}
	if m.NextErr != nil {
		return nil, m.NextErr
	}
	return m, nil
}

func (it *Items) Close() error {
	it.closed = true
	return nil
}

// Message is an in-memory mailbox.Item. Func fields replace the matching
// getter when set.
type Message struct {
	SubjectText string
	FromName    string
	FromAddress string
	// Resolved is returned by ResolveSenderAddress.
	Resolved      string
	RecipientList []mailbox.Recipient
	ToText        string
	CCText        string
	Received      time.Time
	BodyText      string
	Files         []*Attachment
	ImportanceLvl int
	CategoryText  string
	SizeBytes     int64

	// Unreadable makes Next report a per-item error instead of the message.
	Unreadable bool
	// NextErr makes Next fail with this error when the message is reached.
	NextErr error

	SubjectFunc      func() (string, error)
	SenderNameFunc   func() (string, error)
	SenderAddrFunc   func() (string, error)
	ResolveFunc      func() (string, error)
	RecipientsFunc   func() ([]mailbox.Recipient, error)
	ReceivedTimeFunc func() (time.Time, error)
	BodyFunc         func() (string, error)
	AttachmentsFunc  func() ([]mailbox.Attachment, error)
	ImportanceFunc   func() (int, error)
	SizeFunc         func() (int64, error)

	mu        sync.Mutex
	bodyReads int
}

// BodyReads counts Body calls.
func (m *Message) BodyReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodyReads
}

func (m *Message) Subject() (string, error) {
	if m.SubjectFunc != nil {
		return m.SubjectFunc()
	}
	return m.SubjectText, nil
}

func (m *Message) SenderName() (string, error) {
	if m.SenderNameFunc != nil {
		return m.SenderNameFunc()
	}
	return m.FromName, nil
}

func (m *Message) SenderAddress() (string, error) {
	if m.SenderAddrFunc != nil {
		return m.SenderAddrFunc()
	}
	return m.FromAddress, nil
}

func (m *Message) ResolveSenderAddress() (string, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc()
	}
	if m.Resolved == "" {
		return "", ErrNotFound
	}
	return m.Resolved, nil
}

func (m *Message) Recipients() ([]mailbox.Recipient, error) {
	if m.RecipientsFunc != nil {
		return m.RecipientsFunc()
	}
	return m.RecipientList, nil
}

func (m *Message) To() (string, error) { return m.ToText, nil }

func (m *Message) CC() (string, error) { return m.CCText, nil }

func (m *Message) ReceivedTime() (time.Time, error) {
	if m.ReceivedTimeFunc != nil {
		return m.ReceivedTimeFunc()
	}
	return m.Received, nil
}

func (m *Message) Body() (string, error) {
	m.mu.Lock()
	m.bodyReads++
	m.mu.Unlock()
	if m.BodyFunc != nil {
		return m.BodyFunc()
	}
	return m.BodyText, nil
}

func (m *Message) Attachments() ([]mailbox.Attachment, error) {
	if m.AttachmentsFunc != nil {
		return m.AttachmentsFunc()
	}
	out := make([]mailbox.Attachment, 0, len(m.Files))
	for _, f := range m.Files {
		out = append(out, f)
	}
	return out, nil
}

func (m *Message) Importance() (int, error) {
	if m.ImportanceFunc != nil {
		return m.ImportanceFunc()
	}
	return m.ImportanceLvl, nil
}

func (m *Message) Categories() (string, error) { return m.CategoryText, nil }

func (m *Message) Size() (int64, error) {
	if m.SizeFunc != nil {
		return m.SizeFunc()
	}
	return m.SizeBytes, nil
}

// lookup evaluates predicate properties the way a store would, from the raw
// fields and ignoring the override funcs.
func (m *Message) lookup(prop predicate.Property) (any, error) {
	switch prop {
	case predicate.Subject:
		return m.SubjectText, nil
	case predicate.FromEmail:
		return m.FromAddress, nil
	case predicate.FromName:
		return m.FromName, nil
	case predicate.DateReceived:
		return m.Received, nil
	case predicate.HasAttachment:
		return len(m.Files) > 0, nil
	}
	return nil, fmt.Errorf("unsupported property %s", prop)
}

// Attachment is an in-memory mailbox.Attachment.
type Attachment struct {
	Name     string
	Content  []byte
	IsInline bool
	OpenErr  error
}

func (a *Attachment) FileName() string { return a.Name }

func (a *Attachment) Inline() (bool, error) { return a.IsInline, nil }

func (a *Attachment) Open() (io.ReadCloser, error) {
	if a.OpenErr != nil {
		return nil, a.OpenErr
	}
	return io.NopCloser(bytes.NewReader(a.Content)), nil
}

// Messages builds n messages received one hour apart, newest first, with
// subjects "msg-00" and onwards.
func Messages(n int, newest time.Time) []*Message {
	out := make([]*Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Message{
			SubjectText:   fmt.Sprintf("msg-%02d", i),
			FromName:      "Sender " + strings.Repeat("x", i%3),
			FromAddress:   fmt.Sprintf("sender%d@example.com", i),
			Received:      newest.Add(-time.Duration(i) * time.Hour),
			BodyText:      "body",
			SizeBytes:     2048,
			ImportanceLvl: 1,
		})
	}
	return out
}

// MockFileManager is a utils.FileManager that keeps files in memory.
type MockFileManager struct {
	CreateFunc   func(name string) (utils.Writer, error)
	MkdirAllFunc func(path string, perm os.FileMode) error

	mu          sync.Mutex
	Files       map[string]*bytes.Buffer
	CreatedDirs map[string]os.FileMode
}

func NewMockFileManager() *MockFileManager {
	return &MockFileManager{
		Files:       make(map[string]*bytes.Buffer),
		CreatedDirs: make(map[string]os.FileMode),
	}
}

func (m *MockFileManager) Create(name string) (utils.Writer, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := new(bytes.Buffer)
	m.Files[name] = buf
	return &bufferWriter{buf: buf}, nil
}

func (m *MockFileManager) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	m.CreatedDirs[path] = perm
	m.mu.Unlock()
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path, perm)
	}
	return nil
}

func (m *MockFileManager) Exists(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Files[name]
	return ok, nil
}

// Content returns what was written to name.
func (m *MockFileManager) Content(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.Files[name]
	if !ok {
		return "", false
	}
	return buf.String(), true
}

type bufferWriter struct {
	buf *bytes.Buffer
}

func (w *bufferWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *bufferWriter) Close() error { return nil }
