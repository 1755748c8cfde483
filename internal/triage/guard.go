package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aaronromeo/mailtriage/internal/audit"
	"github.com/aaronromeo/mailtriage/internal/prompt"
	"github.com/aaronromeo/mailtriage/internal/query"
	"github.com/aaronromeo/mailtriage/internal/session"
)

type State int

const (
	Idle State = iota
	SelectingFolder
	BuildingQuery
	Searching
	AwaitingConfirmation
	Deleting
	Reported
	Cancelled
)

var stateNames = map[State]string{
	Idle:                 "idle",
	SelectingFolder:      "selecting folder",
	BuildingQuery:        "building query",
	Searching:            "searching",
	AwaitingConfirmation: "awaiting confirmation",
	Deleting:             "deleting",
	Reported:             "reported",
	Cancelled:            "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// QueryBuilder produces a validated filter expression.
type QueryBuilder interface {
	Build(ctx context.Context) (query.Expression, error)
}

// Confirmer asks the operator a yes/no question and returns the raw answer.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (string, error)
}

// Recorder persists deletion outcomes.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Outcome is the terminal state of one guarded deletion.
type Outcome struct {
	State      State
	Expression query.Expression
	Candidates int
	Deleted    int
}

// IsAffirmative reports whether answer confirms a deletion: "y" or "yes",
// case-insensitive, surrounding whitespace ignored.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// DeletionGuard runs select, build, search, confirm, delete. The mailbox
// is only mutated after an affirmative answer.
type DeletionGuard struct {
	session   session.Session
	builder   QueryBuilder
	searcher  *Searcher
	confirmer Confirmer
	mailbox   string
	out       io.Writer
	recorder  Recorder
	logger    *slog.Logger

	state State
}

type GuardOption func(*DeletionGuard)

func WithRecorder(r Recorder) GuardOption {
	return func(g *DeletionGuard) {
		g.recorder = r
	}
}

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *DeletionGuard) {
		g.logger = logger
	}
}

func NewDeletionGuard(
	sess session.Session,
	builder QueryBuilder,
	confirmer Confirmer,
	mailbox string,
	out io.Writer,
	opts ...GuardOption,
) *DeletionGuard {
	g := &DeletionGuard{
		session:   sess,
		builder:   builder,
		confirmer: confirmer,
		mailbox:   mailbox,
		out:       out,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.searcher = NewSearcher(sess, g.logger)
	return g
}

// State returns the state the guard last entered.
func (g *DeletionGuard) State() State {
	return g.state
}

func (g *DeletionGuard) enter(ctx context.Context, s State) {
	g.logger.DebugContext(ctx, "deletion guard state", slog.String("state", s.String()))
	g.state = s
}

// Run performs one guarded deletion. Errors before confirmation leave the
// outcome Idle. An aborted confirmation cancels like any other refusal. A
// rejected delete returns *DeletionFailure with zero deleted and the guard
// back in Idle.
func (g *DeletionGuard) Run(ctx context.Context) (Outcome, error) {
	g.enter(ctx, Idle)
	outcome := Outcome{State: Idle}

	g.enter(ctx, SelectingFolder)
	if err := g.session.Select(ctx, g.mailbox, true); err != nil {
		g.enter(ctx, Idle)
		return outcome, fmt.Errorf("select %s: %w", g.mailbox, err)
	}

	g.enter(ctx, BuildingQuery)
	expr, err := g.builder.Build(ctx)
	if err != nil {
		g.enter(ctx, Idle)
		return outcome, err
	}
	outcome.Expression = expr

	g.enter(ctx, Searching)
	uids, err := g.searcher.Search(ctx, expr)
	if err != nil {
		g.enter(ctx, Idle)
		return outcome, err
	}
	outcome.Candidates = len(uids)

	if len(uids) == 0 {
		fmt.Fprintln(g.out, "nothing to delete")
		g.enter(ctx, Idle)
		return outcome, nil
	}

	g.enter(ctx, AwaitingConfirmation)
	answer, err := g.confirmer.Confirm(ctx, fmt.Sprintf("delete these %d messages?", len(uids)))
	if err != nil || !IsAffirmative(answer) {
		g.enter(ctx, Cancelled)
		outcome.State = Cancelled
		fmt.Fprintln(g.out, "deletion cancelled")
		g.record(ctx, outcome, nil)
		// An aborted confirmation is a refusal, not the end of the session.
		if errors.Is(err, prompt.ErrAborted) {
			err = nil
		}
		return outcome, err
	}

	g.enter(ctx, Deleting)
	if err := g.session.Delete(ctx, uids); err != nil {
		failure := &DeletionFailure{Requested: len(uids), Err: err}
		g.logger.ErrorContext(ctx, "deletion failed",
			slog.String("mailbox", g.mailbox),
			slog.String("expression", expr.String()),
			slog.String("error", err.Error()))
		g.record(ctx, outcome, failure)
		g.enter(ctx, Idle)
		outcome.State = Idle
		return outcome, failure
	}

	g.enter(ctx, Reported)
	outcome.State = Reported
	outcome.Deleted = len(uids)
	g.logger.InfoContext(ctx, "messages deleted",
		slog.String("mailbox", g.mailbox),
		slog.String("expression", expr.String()),
		slog.Int("deleted", outcome.Deleted))
	fmt.Fprintf(g.out, "deleted %d messages\n", outcome.Deleted)
	g.record(ctx, outcome, nil)
	return outcome, nil
}

func (g *DeletionGuard) record(ctx context.Context, outcome Outcome, failure error) {
	if g.recorder == nil {
		return
	}

	entry := audit.Entry{
		Mailbox:    g.mailbox,
		Expression: outcome.Expression.String(),
		Candidates: outcome.Candidates,
		Deleted:    outcome.Deleted,
		Outcome:    audit.OutcomeDeleted,
	}
	switch {
	case outcome.State == Cancelled:
		entry.Outcome = audit.OutcomeCancelled
	case failure != nil:
		entry.Outcome = audit.OutcomeFailed
		entry.Error = failure.Error()
	}

	if err := g.recorder.Record(ctx, entry); err != nil {
		g.logger.WarnContext(ctx, "failed to record deletion",
			slog.String("outcome", string(entry.Outcome)),
			slog.String("error", err.Error()))
	}
}
