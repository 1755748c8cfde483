package searches

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aaronromeo/mailtriage/internal/imap/base"
	"github.com/aaronromeo/mailtriage/internal/query"
	"github.com/aaronromeo/mailtriage/internal/session"
	"github.com/emersion/go-imap/v2"
	giimapclient "github.com/emersion/go-imap/v2/imapclient"
)

type ServerSearcher interface {
	Search(ctx context.Context, expr query.Expression) ([]uint32, error)
}

// Interface to initialize the manager
type ClientProvider interface {
	IMAPClient() *giimapclient.Client
	Selected() *base.Selection
}

type IMAPSearchManager struct {
	provider ClientProvider
}

func New(provider ClientProvider) *IMAPSearchManager {
	return &IMAPSearchManager{provider: provider}
}

// Search returns the UIDs in the selected mailbox matching the expression.
// An empty result is returned as an empty, non-nil slice.
func (m *IMAPSearchManager) Search(ctx context.Context, expr query.Expression) ([]uint32, error) {
	if m.provider == nil || m.provider.IMAPClient() == nil {
		return nil, session.ErrNotConnected
	}
	if m.provider.Selected() == nil {
		return nil, session.ErrNotSelected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria, err := buildSearchCriteria(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrRejected, err)
	}

	data, err := m.provider.IMAPClient().UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrRejected, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uids := data.AllUIDs()
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		out = append(out, uint32(uid))
	}
	return out, nil
}

func buildSearchCriteria(expr query.Expression) (*imap.SearchCriteria, error) {
	if err := expr.Validate(); err != nil {
		return nil, err
	}
	criteria := &imap.SearchCriteria{}

	switch expr.Key {
	case query.All:
	case query.Before, query.Since, query.On:
		day, err := parseDate(expr.Argument)
		if err != nil {
			return nil, err
		}
		switch expr.Key {
		case query.Before:
			criteria.Before = day
		case query.Since:
			criteria.Since = day
		case query.On:
			criteria.Since = day
			criteria.Before = day.AddDate(0, 0, 1)
		}
	case query.Subject, query.From, query.To, query.Cc, query.Bcc:
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key:   headerKey(expr.Key),
			Value: expr.Argument,
		})
	case query.Body:
		criteria.Body = append(criteria.Body, expr.Argument)
	case query.Text:
		criteria.Text = append(criteria.Text, expr.Argument)
	case query.Seen:
		criteria.Flag = append(criteria.Flag, imap.FlagSeen)
	case query.Unseen:
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagSeen)
	case query.Answered:
		criteria.Flag = append(criteria.Flag, imap.FlagAnswered)
	case query.Unanswered:
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagAnswered)
	case query.Deleted:
		criteria.Flag = append(criteria.Flag, imap.FlagDeleted)
	case query.Undeleted:
		criteria.NotFlag = append(criteria.NotFlag, imap.FlagDeleted)
	default:
		return nil, fmt.Errorf("unsupported search key %q", expr.Key)
	}

	return criteria, nil
}

func parseDate(value string) (time.Time, error) {
	day, err := time.Parse(query.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want DD-Mon-YYYY", value)
	}
	return day, nil
}

func headerKey(key query.Key) string {
	switch key {
	case query.Subject:
		return "Subject"
	case query.From:
		return "From"
	case query.To:
		return "To"
	case query.Cc:
		return "Cc"
	case query.Bcc:
		return "Bcc"
	default:
		return string(key)
	}
}
