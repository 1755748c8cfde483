package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Category groups the search keys an operator can pick from.
type Category int

const (
	AllMessages Category = iota
	MessageDate
	MessageContent
	EmailAddress
	MessageStatus
)

// Categories lists every category in menu order.
var Categories = []Category{AllMessages, MessageDate, MessageContent, EmailAddress, MessageStatus}

func (c Category) String() string {
	switch c {
	case AllMessages:
		return "All messages"
	case MessageDate:
		return "Message date"
	case MessageContent:
		return "Message content"
	case EmailAddress:
		return "Email address"
	case MessageStatus:
		return "Message status"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Keys returns the search keys valid for the category.
func (c Category) Keys() []Key {
	switch c {
	case AllMessages:
		return []Key{All}
	case MessageDate:
		return []Key{Before, Since, On}
	case MessageContent:
		return []Key{Subject, Body, Text}
	case EmailAddress:
		return []Key{From, To, Cc, Bcc}
	case MessageStatus:
		return []Key{Seen, Unseen, Answered, Unanswered, Deleted, Undeleted}
	default:
		return nil
	}
}

// Key is an IMAP search key.
type Key string

const (
	All        Key = "ALL"
	Before     Key = "BEFORE"
	Since      Key = "SINCE"
	On         Key = "ON"
	Subject    Key = "SUBJECT"
	Body       Key = "BODY"
	Text       Key = "TEXT"
	From       Key = "FROM"
	To         Key = "TO"
	Cc         Key = "CC"
	Bcc        Key = "BCC"
	Seen       Key = "SEEN"
	Unseen     Key = "UNSEEN"
	Answered   Key = "ANSWERED"
	Unanswered Key = "UNANSWERED"
	Deleted    Key = "DELETED"
	Undeleted  Key = "UNDELETED"
)

// ArgumentKind describes the payload a key requires.
type ArgumentKind int

const (
	NoArgument ArgumentKind = iota
	DateArgument
	TextArgument
	AddressArgument
)

func (k ArgumentKind) String() string {
	switch k {
	case NoArgument:
		return "none"
	case DateArgument:
		return "date"
	case TextArgument:
		return "text"
	case AddressArgument:
		return "address"
	default:
		return fmt.Sprintf("ArgumentKind(%d)", int(k))
	}
}

// DateLayout is the day-month-year form IMAP uses for search dates.
const DateLayout = "2-Jan-2006"

var (
	ErrUnknownKey         = errors.New("unknown search key")
	ErrArgumentRequired   = errors.New("search argument is required")
	ErrUnexpectedArgument = errors.New("search key takes no argument")
	ErrInvalidAddress     = errors.New("invalid email address")
)

// Category returns the category the key belongs to.
func (k Key) Category() (Category, bool) {
	for _, c := range Categories {
		for _, key := range c.Keys() {
			if key == k {
				return c, true
			}
		}
	}
	return 0, false
}

// Argument returns the kind of argument the key requires.
func (k Key) Argument() ArgumentKind {
	switch k {
	case Before, Since, On:
		return DateArgument
	case Subject, Body, Text:
		return TextArgument
	case From, To, Cc, Bcc:
		return AddressArgument
	default:
		return NoArgument
	}
}

// Label is the menu text for the key.
func (k Key) Label() string {
	if k == "" {
		return ""
	}
	lower := strings.ToLower(string(k))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Expression is a single search filter sent to the mail store.
type Expression struct {
	Key      Key
	Argument string
}

// Compose validates the argument against the key and returns the expression.
// Address arguments are normalized to the bare address.
func Compose(key Key, argument string) (Expression, error) {
	if _, ok := key.Category(); !ok {
		return Expression{}, fmt.Errorf("%w: %q", ErrUnknownKey, string(key))
	}
	normalized, err := NormalizeArgument(key.Argument(), argument)
	if err != nil {
		return Expression{}, fmt.Errorf("%s: %w", key, err)
	}
	return Expression{Key: key, Argument: normalized}, nil
}

// NormalizeArgument checks an operator-supplied value for the given kind.
func NormalizeArgument(kind ArgumentKind, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case NoArgument:
		if value != "" {
			return "", ErrUnexpectedArgument
		}
		return "", nil
	case DateArgument, TextArgument:
		if value == "" {
			return "", ErrArgumentRequired
		}
		return value, nil
	case AddressArgument:
		if value == "" {
			return "", ErrArgumentRequired
		}
		addr, err := mail.ParseAddress(value)
		if err != nil || !strings.Contains(addr.Address, "@") {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, value)
		}
		return addr.Address, nil
	default:
		return "", fmt.Errorf("unsupported argument kind %s", kind)
	}
}

// Validate reports whether the expression is well formed.
func (e Expression) Validate() error {
	_, err := Compose(e.Key, e.Argument)
	return err
}

// String renders the expression as whitespace-joined IMAP search text.
func (e Expression) String() string {
	if e.Key.Argument() == NoArgument {
		return string(e.Key)
	}
	return string(e.Key) + " " + quoteArgument(e.Argument)
}

func quoteArgument(value string) string {
	if value == "" || strings.ContainsAny(value, " \t\"\\()") {
		return strconv.Quote(value)
	}
	return value
}
