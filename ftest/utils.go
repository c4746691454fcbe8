package ftest

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	giimapserver "github.com/emersion/go-imap/v2/imapserver"
	giimapmemserver "github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

const (
	DefaultUser = "user@example.com"
	DefaultPass = "password"
)

// Attachment is a file part of a test message.
type Attachment struct {
	Name      string
	Type      string
	Content   string
	ContentID string
	Inline    bool
}

// MailboxMessage describes a message appended to a mailbox of the test server.
type MailboxMessage struct {
	Mailbox     string
	From        string
	Sender      string
	To          string
	CC          string
	Subject     string
	Body        string
	HTML        bool
	Importance  string
	Attachments []Attachment
	Flags       []imap.Flag
	Time        time.Time
}

// SetupIMAPServer starts an in-memory TLS IMAP server with an INBOX, the
// given extra mailboxes and messages. It returns the listen address.
func SetupIMAPServer(t *testing.T, caps imap.CapSet, extraMailboxes []string, messages []MailboxMessage) (string, func()) {
	t.Helper()

	tlsConfig := testTLSConfig(t)
	mem := giimapmemserver.New()
	user := giimapmemserver.NewUser(DefaultUser, DefaultPass)
	mem.AddUser(user)

	if err := user.Create("INBOX", nil); err != nil {
		t.Fatalf("create mailbox: %v", err)
	}
	for _, mailbox := range extraMailboxes {
		if strings.TrimSpace(mailbox) == "" {
			continue
		}
		if err := user.Create(mailbox, nil); err != nil {
			t.Fatalf("create mailbox %q: %v", mailbox, err)
		}
	}

	for _, msg := range messages {
		mailbox := strings.TrimSpace(msg.Mailbox)
		if mailbox == "" {
			mailbox = "INBOX"
		}
		appendTime := msg.Time
		if appendTime.IsZero() {
			appendTime = time.Now()
		}
		if _, err := user.Append(mailbox, newLiteral(t, BuildMessage(msg)), &imap.AppendOptions{
			Time:  appendTime,
			Flags: msg.Flags,
		}); err != nil {
			t.Fatalf("append message %q: %v", msg.Subject, err)
		}
	}

	server := giimapserver.New(&giimapserver.Options{
		NewSession: func(*giimapserver.Conn) (giimapserver.Session, *giimapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps:         caps,
		TLSConfig:    tlsConfig,
		InsecureAuth: true,
	})

	ln, err := tls.Listen("tcp", "127.0.0.1:0", tlsConfig)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	cleanup := func() {
		_ = server.Close()
		_ = ln.Close()
		select {
		case <-errCh:
		default:
		}
	}

	return ln.Addr().String(), cleanup
}

// BuildMessage renders msg as RFC 5322 text. Messages with attachments are
// multipart/mixed with base64 parts.
func BuildMessage(msg MailboxMessage) string {
	builder := &strings.Builder{}
	writeHeader(builder, "From", msg.From)
	writeHeader(builder, "Sender", msg.Sender)
	writeHeader(builder, "To", msg.To)
	writeHeader(builder, "Cc", msg.CC)
	writeHeader(builder, "Subject", msg.Subject)
	writeHeader(builder, "Importance", msg.Importance)
	if !msg.Time.IsZero() {
		writeHeader(builder, "Date", msg.Time.Format(time.RFC1123Z))
	}
	writeHeader(builder, "MIME-Version", "1.0")

	bodyType := "text/plain"
	if msg.HTML {
		bodyType = "text/html"
	}

	if len(msg.Attachments) == 0 {
		writeHeader(builder, "Content-Type", bodyType+"; charset=utf-8")
		builder.WriteString("\r\n")
		builder.WriteString(msg.Body)
		builder.WriteString("\r\n")
		return builder.String()
	}

	const boundary = "mailsift-boundary"
	writeHeader(builder, "Content-Type", `multipart/mixed; boundary="`+boundary+`"`)
	builder.WriteString("\r\n")

	builder.WriteString("--" + boundary + "\r\n")
	writeHeader(builder, "Content-Type", bodyType+"; charset=utf-8")
	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)
	builder.WriteString("\r\n")

	for _, att := range msg.Attachments {
		contentType := att.Type
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		disposition := "attachment"
		if att.Inline {
			disposition = "inline"
		}
		builder.WriteString("--" + boundary + "\r\n")
		writeHeader(builder, "Content-Type", contentType+`; name="`+att.Name+`"`)
		writeHeader(builder, "Content-Disposition", disposition+`; filename="`+att.Name+`"`)
		writeHeader(builder, "Content-ID", att.ContentID)
		writeHeader(builder, "Content-Transfer-Encoding", "base64")
		builder.WriteString("\r\n")
		builder.WriteString(base64.StdEncoding.EncodeToString([]byte(att.Content)))
		builder.WriteString("\r\n")
	}
	builder.WriteString("--" + boundary + "--\r\n")
	return builder.String()
}

func writeHeader(builder *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	builder.WriteString(key)
	builder.WriteString(": ")
	builder.WriteString(value)
	builder.WriteString("\r\n")
}

type literalReader struct {
	*bytes.Reader
	size int64
}

func newLiteral(t *testing.T, raw string) imap.LiteralReader {
	t.Helper()
	buf := []byte(raw)
	return &literalReader{
		Reader: bytes.NewReader(buf),
		size:   int64(len(buf)),
	}
}

func (lr *literalReader) Size() int64 {
	return lr.size
}

func testTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"imap"},
	}
}
