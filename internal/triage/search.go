package triage

import (
	"context"
	"log/slog"

	"github.com/aaronromeo/mailtriage/internal/query"
	"github.com/aaronromeo/mailtriage/internal/session"
)

// Searcher runs filter expressions against the selected mailbox.
type Searcher struct {
	session session.Session
	logger  *slog.Logger
}

func NewSearcher(sess session.Session, logger *slog.Logger) *Searcher {
	return &Searcher{session: sess, logger: logger}
}

// Search returns the matching UIDs. No matches is an empty slice, not an
// error; failures are returned as *SearchFailure.
func (s *Searcher) Search(ctx context.Context, expr query.Expression) ([]uint32, error) {
	if err := expr.Validate(); err != nil {
		return nil, &SearchFailure{Expression: expr, Err: err}
	}

	uids, err := s.session.Search(ctx, expr)
	if err != nil {
		s.logger.ErrorContext(ctx, "search failed",
			slog.String("expression", expr.String()),
			slog.String("error", err.Error()))
		return nil, &SearchFailure{Expression: expr, Err: err}
	}
	if uids == nil {
		uids = []uint32{}
	}

	s.logger.InfoContext(ctx, "search completed",
		slog.String("expression", expr.String()),
		slog.Int("matches", len(uids)))
	return uids, nil
}
