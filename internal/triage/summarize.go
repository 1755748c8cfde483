package triage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aaronromeo/mailtriage/internal/message"
)

const (
	NoSubject     = "(no subject)"
	UnknownSender = "(unknown sender)"
)

var errMissingContent = errors.New("no content returned for message")

// MessageParser extracts summary fields from raw message content.
type MessageParser interface {
	Parse(raw []byte) (message.Header, error)
}

// Summary is the one-line view of a message.
type Summary struct {
	UID     uint32
	Subject string
	Sender  string
	// Err is a *ParseFailure when the content could not be read.
	Err error
}

func (s Summary) String() string {
	line := fmt.Sprintf("[%d] %s | from: %s", s.UID, s.Subject, s.Sender)
	if s.Err != nil {
		line += " (unreadable)"
	}
	return line
}

type Summarizer struct {
	parser MessageParser
	logger *slog.Logger
}

func NewSummarizer(parser MessageParser, logger *slog.Logger) *Summarizer {
	return &Summarizer{parser: parser, logger: logger}
}

// Summarize returns one summary per UID in input order. Unreadable or
// missing content yields placeholder fields and a ParseFailure on that
// summary only.
func (s *Summarizer) Summarize(uids []uint32, raw map[uint32][]byte) []Summary {
	summaries := make([]Summary, 0, len(uids))
	for _, uid := range uids {
		summary := Summary{UID: uid, Subject: NoSubject, Sender: UnknownSender}

		content, ok := raw[uid]
		if !ok {
			summary.Err = &ParseFailure{UID: uid, Err: errMissingContent}
		} else if header, err := s.parser.Parse(content); err != nil {
			summary.Err = &ParseFailure{UID: uid, Err: err}
		} else {
			if header.Subject != "" {
				summary.Subject = header.Subject
			}
			if header.Sender != "" {
				summary.Sender = header.Sender
			}
		}

		if summary.Err != nil {
			s.logger.Warn("message summary incomplete",
				slog.Int("uid", int(uid)),
				slog.String("error", summary.Err.Error()))
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
