// Package message extracts display fields from raw RFC 5322 messages.
package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

var ErrUnreadable = errors.New("message content is unreadable")

// Header holds the fields shown in a message summary. Empty strings mean the
// field was absent or could not be decoded.
type Header struct {
	Subject string
	Sender  string
}

// Parser reads headers with go-message.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns best-effort header fields. It fails only when no header
// field at all can be read from raw.
func (p *Parser) Parse(raw []byte) (Header, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Header{}, ErrUnreadable
	}

	tpHeader, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil && tpHeader.Len() == 0 {
		return Header{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	header := mail.Header{Header: gomessage.Header{Header: tpHeader}}
	return Header{
		Subject: subject(header),
		Sender:  sender(header),
	}, nil
}

func subject(header mail.Header) string {
	value, err := header.Subject()
	if err != nil {
		return strings.TrimSpace(header.Get("Subject"))
	}
	return strings.TrimSpace(value)
}

func sender(header mail.Header) string {
	for _, key := range []string{"From", "Sender"} {
		addrs, err := header.AddressList(key)
		if err == nil && len(addrs) > 0 && addrs[0].Address != "" {
			return addrs[0].Address
		}
	}
	for _, key := range []string{"From", "Sender"} {
		if raw := headerText(header, key); raw != "" {
			return raw
		}
	}
	return ""
}

func headerText(header mail.Header, key string) string {
	value, err := header.Text(key)
	if err != nil {
		return strings.TrimSpace(header.Get(key))
	}
	return strings.TrimSpace(value)
}
