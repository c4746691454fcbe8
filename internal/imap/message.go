package imap

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"aaronromeo.com/mailsift/internal/imap/selectors"
	"aaronromeo.com/mailsift/pkg/mailbox"
	"aaronromeo.com/mailsift/pkg/predicate"
	giimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"
)

var (
	errNoSender = errors.New("message has no sender")
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// Message is a fetched IMAP message. The MIME tree is parsed on the first
// call that needs it.
type Message struct {
	fetched *selectors.FetchedMessage

	once        sync.Once
	body        string
	attachments []mailbox.Attachment
	header      mail.Header
	parseErr    error
}

func newMessage(fetched *selectors.FetchedMessage) *Message {
	return &Message{fetched: fetched}
}

func (m *Message) UID() giimap.UID {
	return m.fetched.UID
}

func (m *Message) Subject() (string, error) {
	return m.fetched.Envelope.Subject, nil
}

func (m *Message) SenderName() (string, error) {
	from := m.fetched.Envelope.From
	if len(from) == 0 {
		return "", errNoSender
	}
	return from[0].Name, nil
}

func (m *Message) SenderAddress() (string, error) {
	from := m.fetched.Envelope.From
	if len(from) == 0 {
		return "", errNoSender
	}
	return from[0].Addr(), nil
}

// ResolveSenderAddress returns the Sender header address, which is the
// mailbox that actually submitted the message.
func (m *Message) ResolveSenderAddress() (string, error) {
	sender := m.fetched.Envelope.Sender
	if len(sender) == 0 || sender[0].Addr() == "" {
		return "", errNoSender
	}
	return sender[0].Addr(), nil
}

func (m *Message) Recipients() ([]mailbox.Recipient, error) {
	env := m.fetched.Envelope
	var recipients []mailbox.Recipient
	for _, list := range [][]giimap.Address{env.To, env.Cc, env.Bcc} {
		for _, addr := range list {
			recipients = append(recipients, mailbox.Recipient{Name: addr.Name, Address: addr.Addr()})
		}
	}
	return recipients, nil
}

func (m *Message) To() (string, error) {
	return displayNames(m.fetched.Envelope.To), nil
}

func (m *Message) CC() (string, error) {
	return displayNames(m.fetched.Envelope.Cc), nil
}

func (m *Message) ReceivedTime() (time.Time, error) {
	if m.fetched.InternalDate.IsZero() {
		return time.Time{}, errors.New("message has no internal date")
	}
	return m.fetched.InternalDate.Local(), nil
}

func (m *Message) Body() (string, error) {
	if err := m.parse(); err != nil {
		return "", err
	}
	return m.body, nil
}

func (m *Message) Attachments() ([]mailbox.Attachment, error) {
	if err := m.parse(); err != nil {
		return nil, err
	}
	return m.attachments, nil
}

// Importance maps the Importance header, or X-Priority when it is absent,
// onto 0 (low), 1 (normal) and 2 (high).
func (m *Message) Importance() (int, error) {
	if err := m.parse(); err != nil {
		return 1, err
	}

	switch strings.ToLower(strings.TrimSpace(m.header.Get("Importance"))) {
	case "low":
		return 0, nil
	case "high":
		return 2, nil
	case "normal":
		return 1, nil
	}

	priority := strings.TrimSpace(m.header.Get("X-Priority"))
	if priority == "" {
		return 1, nil
	}
	level, err := strconv.Atoi(strings.Fields(priority)[0])
	if err != nil {
		return 1, nil
	}
	switch {
	case level <= 2:
		return 2, nil
	case level >= 4:
		return 0, nil
	}
	return 1, nil
}

// Categories lists the user keywords set on the message, in the case the
// server reports them. Some servers, imapmemserver among them, store
// keywords lower case.
func (m *Message) Categories() (string, error) {
	var keywords []string
	for _, flag := range m.fetched.Flags {
		name := string(flag)
		if strings.HasPrefix(name, "\\") || strings.HasPrefix(name, "$") {
			continue
		}
		keywords = append(keywords, name)
	}
	return strings.Join(keywords, ", "), nil
}

func (m *Message) Size() (int64, error) {
	return m.fetched.Size, nil
}

func (m *Message) lookup(prop predicate.Property) (any, error) {
	switch prop {
	case predicate.Subject:
		return m.Subject()
	case predicate.FromName:
		return m.SenderName()
	case predicate.FromEmail:
		return m.SenderAddress()
	case predicate.DateReceived:
		return m.ReceivedTime()
	case predicate.HasAttachment:
		attachments, err := m.Attachments()
		if err != nil {
			return nil, err
		}
		return len(attachments) > 0, nil
	}
	return nil, errors.Errorf("property %s is not available", prop)
}

func (m *Message) parse() error {
	m.once.Do(func() {
		m.parseErr = m.parseMIME()
	})
	return m.parseErr
}

func (m *Message) parseMIME() error {
	if len(m.fetched.Raw) == 0 {
		return errors.Errorf("message %d has no body", m.fetched.UID)
	}

	reader, err := mail.CreateReader(bytes.NewReader(m.fetched.Raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return errors.Wrapf(err, "parse message %d", m.fetched.UID)
	}
	defer reader.Close()
	m.header = reader.Header

	var plain, html string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			// Keep whatever was read before the malformed part.
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			disposition, _, _ := h.ContentDisposition()
			filename, _ := (&mail.AttachmentHeader{Header: h.Header}).Filename()
			if filename == "" && (strings.HasPrefix(contentType, "text/") || disposition != "inline") {
				content, _ := io.ReadAll(part.Body)
				switch {
				case contentType == "text/plain" && plain == "":
					plain = string(content)
				case contentType == "text/html" && html == "":
					html = string(content)
				}
				continue
			}
			if err := m.addAttachment(filename, true, part.Body); err != nil {
				return err
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			inline := h.Get("Content-Id") != ""
			if err := m.addAttachment(filename, inline, part.Body); err != nil {
				return err
			}
		}
	}

	m.body = plain
	if m.body == "" && html != "" {
		m.body = strings.Join(strings.Fields(tagPattern.ReplaceAllString(html, " ")), " ")
	}
	if m.attachments == nil {
		m.attachments = []mailbox.Attachment{}
	}
	return nil
}

func (m *Message) addAttachment(filename string, inline bool, body io.Reader) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrapf(err, "read attachment %q of message %d", filename, m.fetched.UID)
	}
	if filename == "" {
		filename = "attachment-" + strconv.Itoa(len(m.attachments)+1)
	}
	m.attachments = append(m.attachments, &Attachment{name: filename, inline: inline, content: content})
	return nil
}

func displayNames(addrs []giimap.Address) string {
	names := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Name != "" {
			names = append(names, addr.Name)
			continue
		}
		names = append(names, addr.Addr())
	}
	return strings.Join(names, "; ")
}

// Attachment is a decoded MIME part held in memory.
type Attachment struct {
	name    string
	inline  bool
	content []byte
}

func (a *Attachment) FileName() string {
	return a.name
}

func (a *Attachment) Inline() (bool, error) {
	return a.inline, nil
}

func (a *Attachment) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.content)), nil
}
