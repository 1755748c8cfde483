package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aaronromeo/mailtriage/internal/message"
	"github.com/aaronromeo/mailtriage/internal/prompt"
	"github.com/aaronromeo/mailtriage/internal/query"
	"github.com/aaronromeo/mailtriage/internal/session"
)

type Action int

const (
	ActionSearch Action = iota
	ActionDelete
	ActionQuit
)

var actionLabels = []string{"Search", "Delete", "Quit"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionLabels) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionLabels[a]
}

// Workflow is the operator loop over a single session.
type Workflow struct {
	session    session.Session
	prompter   prompt.Prompter
	builder    QueryBuilder
	searcher   *Searcher
	summarizer *Summarizer
	guard      *DeletionGuard
	mailbox    string
	out        io.Writer
	logger     *slog.Logger
	recorder   Recorder
	parser     MessageParser

	closed bool
}

type WorkflowOption func(*Workflow)

func WithLogger(logger *slog.Logger) WorkflowOption {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithAudit records every confirmed or cancelled deletion.
func WithAudit(r Recorder) WorkflowOption {
	return func(w *Workflow) {
		w.recorder = r
	}
}

func WithParser(p MessageParser) WorkflowOption {
	return func(w *Workflow) {
		w.parser = p
	}
}

func NewWorkflow(sess session.Session, p prompt.Prompter, mailbox string, out io.Writer, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		session:  sess,
		prompter: p,
		mailbox:  mailbox,
		out:      out,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.parser == nil {
		w.parser = message.NewParser()
	}
	w.summarizer = NewSummarizer(w.parser, w.logger)
	w.builder = query.NewBuilder(p, query.WithLogger(w.logger))
	w.searcher = NewSearcher(sess, w.logger)

	guardOpts := []GuardOption{WithGuardLogger(w.logger)}
	if w.recorder != nil {
		guardOpts = append(guardOpts, WithRecorder(w.recorder))
	}
	w.guard = NewDeletionGuard(sess, w.builder, p, mailbox, out, guardOpts...)
	return w
}

// Run loops over the action menu until Quit or the end of operator input.
// The session is closed exactly once on the way out.
func (w *Workflow) Run(ctx context.Context) error {
	defer w.close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, err := w.prompter.Choose(ctx, "Action", actionLabels)
		if err != nil {
			return w.exit(ctx, err)
		}

		switch Action(choice) {
		case ActionQuit:
			w.logger.InfoContext(ctx, "operator quit")
			return nil
		case ActionSearch:
			err = w.search(ctx)
		case ActionDelete:
			err = w.delete(ctx)
		default:
			err = fmt.Errorf("unknown action %d", choice)
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if isEndOfInput(err) {
				return w.exit(ctx, err)
			}
			fmt.Fprintf(w.out, "error: %v\n", err)
			w.logger.ErrorContext(ctx, "action failed",
				slog.String("action", Action(choice).String()),
				slog.String("error", err.Error()))
		}
	}
}

func (w *Workflow) search(ctx context.Context) error {
	if err := w.session.Select(ctx, w.mailbox, false); err != nil {
		return fmt.Errorf("select %s: %w", w.mailbox, err)
	}

	expr, err := w.builder.Build(ctx)
	if err != nil {
		return err
	}

	uids, err := w.searcher.Search(ctx, expr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "Messages found: %d\n", len(uids))
	if len(uids) == 0 {
		return nil
	}

	raw, err := w.session.Fetch(ctx, uids)
	if err != nil {
		return fmt.Errorf("fetch %d messages: %w", len(uids), err)
	}
	for _, summary := range w.summarizer.Summarize(uids, raw) {
		fmt.Fprintln(w.out, summary.String())
	}
	return nil
}

func (w *Workflow) delete(ctx context.Context) error {
	outcome, err := w.guard.Run(ctx)
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "deletion finished",
		slog.String("state", outcome.State.String()),
		slog.Int("candidates", outcome.Candidates),
		slog.Int("deleted", outcome.Deleted))
	return nil
}

// exit decides whether err ends the loop. End of input ends it cleanly;
// context cancellation ends it with the context error.
func (w *Workflow) exit(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isEndOfInput(err) {
		w.logger.InfoContext(ctx, "operator input ended")
		return nil
	}
	return err
}

func isEndOfInput(err error) bool {
	return errors.Is(err, prompt.ErrAborted) || errors.Is(err, io.EOF)
}

func (w *Workflow) close() {
	if w.closed {
		return
	}
	w.closed = true
	if err := w.session.Close(); err != nil {
		w.logger.Warn("failed to close session", slog.String("error", err.Error()))
	}
}
