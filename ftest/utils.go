package ftest

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
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

// Message is a fixture message. Raw, when set, is appended verbatim and the
// header fields are ignored.
type Message struct {
	Mailbox string
	From    string
	To      string
	Cc      string
	Subject string
	Body    string
	Raw     string
	Flags   []imap.Flag
	Time    time.Time
}

// Server is a running in-memory IMAP server.
type Server struct {
	Addr string
	// UIDs holds the UID assigned to each fixture message, in input order.
	UIDs []uint32
}

// SetupIMAPServer starts a TLS IMAP server on localhost holding the given
// messages. Mailboxes referenced by messages are created on demand; INBOX
// always exists.
func SetupIMAPServer(t *testing.T, caps imap.CapSet, messages []Message) (*Server, func()) {
	t.Helper()

	tlsConfig := testTLSConfig(t)
	mem := giimapmemserver.New()
	user := giimapmemserver.NewUser(DefaultUser, DefaultPass)
	mem.AddUser(user)

	created := map[string]bool{}
	ensureMailbox := func(name string) {
		if created[name] {
			return
		}
		if err := user.Create(name, nil); err != nil {
			t.Fatalf("create mailbox %q: %v", name, err)
		}
		created[name] = true
	}
	ensureMailbox("INBOX")

	srv := &Server{UIDs: make([]uint32, 0, len(messages))}
	for _, msg := range messages {
		mailbox := strings.TrimSpace(msg.Mailbox)
		if mailbox == "" {
			mailbox = "INBOX"
		}
		ensureMailbox(mailbox)

		appendTime := msg.Time
		if appendTime.IsZero() {
			appendTime = time.Now()
		}
		raw := msg.Raw
		if raw == "" {
			raw = sampleMessage(msg)
		}
		data, err := user.Append(mailbox, newLiteral(t, raw), &imap.AppendOptions{
			Flags: msg.Flags,
			Time:  appendTime,
		})
		if err != nil {
			t.Fatalf("append message: %v", err)
		}
		srv.UIDs = append(srv.UIDs, uint32(data.UID))
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

	srv.Addr = ln.Addr().String()
	return srv, cleanup
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

func sampleMessage(msg Message) string {
	builder := &strings.Builder{}
	writeHeader(builder, "From", msg.From)
	writeHeader(builder, "To", msg.To)
	writeHeader(builder, "Cc", msg.Cc)
	writeHeader(builder, "Subject", msg.Subject)
	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)
	builder.WriteString("\r\n")
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
