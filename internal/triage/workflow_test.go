package triage

import (
	"bytes"
	"context"
	"crypto/tls"
	"strings"
	"testing"
	"time"

	"github.com/aaronromeo/mailtriage/ftest"
	"github.com/aaronromeo/mailtriage/internal/imap"
	"github.com/aaronromeo/mailtriage/internal/imap/sessionmanager"
	"github.com/aaronromeo/mailtriage/internal/mock"
	"github.com/aaronromeo/mailtriage/internal/prompt"
	"github.com/aaronromeo/mailtriage/internal/query"
	"github.com/aaronromeo/mailtriage/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

const (
	menuSearch = "1\n"
	menuDelete = "2\n"
	menuQuit   = "3\n"
)

func newTestWorkflow(t *testing.T, sess session.Session, input string, opts ...WorkflowOption) (*Workflow, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p := prompt.NewLine(strings.NewReader(input), &out)
	opts = append([]WorkflowOption{WithLogger(mock.SetupLogger(t))}, opts...)
	return NewWorkflow(sess, p, "INBOX", &out, opts...), &out
}

func TestWorkflowSearchDisplaysSummaries(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)

	gomock.InOrder(
		sess.EXPECT().Select(gomock.Any(), "INBOX", false).Return(nil),
		sess.EXPECT().Search(gomock.Any(), mock.NewExpressionMatcher("FROM sender@example.com")).Return([]uint32{1, 2}, nil),
		sess.EXPECT().Fetch(gomock.Any(), []uint32{1, 2}).Return(map[uint32][]byte{
			1: []byte("From: sender@example.com\r\nSubject: First\r\n\r\n"),
			2: []byte("From: sender@example.com\r\nSubject: Second\r\n\r\n"),
		}, nil).Times(1),
		sess.EXPECT().Close().Return(nil).Times(1),
	)
	sess.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

	wf, out := newTestWorkflow(t, sess, menuSearch+fromSender+menuQuit)
	require.NoError(t, wf.Run(context.Background()))

	assert.Contains(t, out.String(), "Messages found: 2")
	assert.Contains(t, out.String(), "[1] First | from: sender@example.com")
	assert.Contains(t, out.String(), "[2] Second | from: sender@example.com")
}

func TestWorkflowSearchWithoutMatchesSkipsFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)

	sess.EXPECT().Select(gomock.Any(), "INBOX", false).Return(nil)
	sess.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]uint32{}, nil)
	sess.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)
	sess.EXPECT().Close().Return(nil).Times(1)

	wf, out := newTestWorkflow(t, sess, menuSearch+"5\n1\n"+menuQuit)
	require.NoError(t, wf.Run(context.Background()))
	assert.Contains(t, out.String(), "Messages found: 0")
}

func TestWorkflowQuitClosesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)
	sess.EXPECT().Close().Return(nil).Times(1)

	wf, _ := newTestWorkflow(t, sess, menuQuit)
	require.NoError(t, wf.Run(context.Background()))
	wf.close()
}

func TestWorkflowEndOfInputClosesSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)
	sess.EXPECT().Close().Return(nil).Times(1)

	wf, _ := newTestWorkflow(t, sess, "")
	assert.NoError(t, wf.Run(context.Background()))
}

func TestWorkflowEndOfInputMidQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)
	sess.EXPECT().Select(gomock.Any(), "INBOX", false).Return(nil)
	sess.EXPECT().Search(gomock.Any(), gomock.Any()).Times(0)
	sess.EXPECT().Close().Return(nil).Times(1)

	wf, _ := newTestWorkflow(t, sess, menuSearch+"4\n")
	assert.NoError(t, wf.Run(context.Background()))
}

func TestWorkflowCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)
	sess.EXPECT().Close().Return(nil).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf, _ := newTestWorkflow(t, sess, menuQuit)
	assert.ErrorIs(t, wf.Run(ctx), context.Canceled)
}

func TestWorkflowContinuesAfterActionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)

	gomock.InOrder(
		sess.EXPECT().Select(gomock.Any(), "INBOX", false).Return(nil),
		sess.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, session.ErrRejected),
		sess.EXPECT().Select(gomock.Any(), "INBOX", false).Return(nil),
		sess.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]uint32{8}, nil),
		sess.EXPECT().Fetch(gomock.Any(), []uint32{8}).Return(map[uint32][]byte{}, nil),
		sess.EXPECT().Close().Return(nil),
	)

	wf, out := newTestWorkflow(t, sess, menuSearch+"1\n"+menuSearch+"1\n"+menuQuit)
	require.NoError(t, wf.Run(context.Background()))

	assert.Contains(t, out.String(), "error: search \"ALL\" failed")
	assert.Contains(t, out.String(), "Messages found: 1")
	assert.Contains(t, out.String(), "[8] (no subject) | from: (unknown sender) (unreadable)")
}

func TestWorkflowDeleteDeclined(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)

	sess.EXPECT().Select(gomock.Any(), "INBOX", true).Return(nil)
	sess.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]uint32{1, 2, 3}, nil)
	sess.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)
	sess.EXPECT().Close().Return(nil).Times(1)

	wf, out := newTestWorkflow(t, sess, menuDelete+fromSender+"no\n"+menuQuit)
	require.NoError(t, wf.Run(context.Background()))
	assert.Contains(t, out.String(), "deletion cancelled")
}

func fixtureMessages() []ftest.Message {
	day := time.Date(2022, time.July, 1, 12, 0, 0, 0, time.UTC)
	return []ftest.Message{
		{From: "Sender <sender@example.com>", To: "user@example.com", Subject: "One", Body: "first", Time: day},
		{From: "Sender <sender@example.com>", To: "user@example.com", Subject: "Two", Body: "second", Time: day.AddDate(0, 0, 1)},
		{From: "sender@example.com", To: "user@example.com", Subject: "Three", Body: "third", Time: day.AddDate(0, 0, 2)},
		{From: "Other <other@example.org>", To: "user@example.com", Subject: "Keep", Body: "fourth", Time: day.AddDate(0, 0, 3)},
		{From: "News <news@example.net>", To: "user@example.com", Subject: "Keep too", Body: "fifth", Time: day.AddDate(0, 0, 4)},
	}
}

func connectTestClient(t *testing.T, addr string) *imap.Client {
	t.Helper()
	client := imap.New(
		sessionmanager.WithAddr(addr),
		sessionmanager.WithCreds(ftest.DefaultUser, ftest.DefaultPass),
		sessionmanager.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
		sessionmanager.WithLogger(mock.SetupLogger(t)),
	)
	require.NoError(t, client.Connect())
	return client
}

func remainingUIDs(t *testing.T, addr string) []uint32 {
	t.Helper()
	client := connectTestClient(t, addr)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Select(ctx, "INBOX", false))
	uids, err := client.Search(ctx, query.Expression{Key: query.Undeleted})
	require.NoError(t, err)
	return uids
}

func TestWorkflowLocalServerSearch(t *testing.T) {
	srv, cleanup := ftest.SetupIMAPServer(t, nil, fixtureMessages())
	t.Cleanup(cleanup)

	wf, out := newTestWorkflow(t, connectTestClient(t, srv.Addr), menuSearch+fromSender+menuQuit)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, wf.Run(ctx))

	assert.Contains(t, out.String(), "Messages found: 3")
	for _, subject := range []string{"One", "Two", "Three"} {
		assert.Contains(t, out.String(), subject+" | from: sender@example.com")
	}
	assert.NotContains(t, out.String(), "Keep")
	assert.Len(t, remainingUIDs(t, srv.Addr), 5)
}

func TestWorkflowLocalServerDeleteDeclined(t *testing.T) {
	srv, cleanup := ftest.SetupIMAPServer(t, nil, fixtureMessages())
	t.Cleanup(cleanup)

	wf, out := newTestWorkflow(t, connectTestClient(t, srv.Addr), menuDelete+fromSender+"no\n"+menuQuit)
	require.NoError(t, wf.Run(context.Background()))

	assert.Contains(t, out.String(), "delete these 3 messages?")
	assert.ElementsMatch(t, srv.UIDs, remainingUIDs(t, srv.Addr))
}

func TestWorkflowLocalServerDeleteConfirmed(t *testing.T) {
	srv, cleanup := ftest.SetupIMAPServer(t, nil, fixtureMessages())
	t.Cleanup(cleanup)

	wf, out := newTestWorkflow(t, connectTestClient(t, srv.Addr), menuDelete+fromSender+"Yes\n"+menuQuit)
	require.NoError(t, wf.Run(context.Background()))

	assert.Contains(t, out.String(), "deleted 3 messages")
	assert.ElementsMatch(t, srv.UIDs[3:], remainingUIDs(t, srv.Addr))
}

// scriptedPrompter overrides parts of a Line prompter.
type scriptedPrompter struct {
	*prompt.Line
	choices []int
	confirm error
}

func (p *scriptedPrompter) Choose(ctx context.Context, title string, options []string) (int, error) {
	if title == "Action" && len(p.choices) > 0 {
		choice := p.choices[0]
		p.choices = p.choices[1:]
		return choice, nil
	}
	return p.Line.Choose(ctx, title, options)
}

func (p *scriptedPrompter) Confirm(ctx context.Context, question string) (string, error) {
	if p.confirm != nil {
		return "", p.confirm
	}
	return p.Line.Confirm(ctx, question)
}

func TestWorkflowUnknownActionIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)
	sess.EXPECT().Close().Return(nil).Times(1)

	var out bytes.Buffer
	p := &scriptedPrompter{Line: prompt.NewLine(strings.NewReader(""), &out), choices: []int{7, -1, int(ActionQuit)}}
	wf := NewWorkflow(sess, p, "INBOX", &out, WithLogger(mock.SetupLogger(t)))

	require.NoError(t, wf.Run(context.Background()))
	assert.Contains(t, out.String(), "error: unknown action 7")
	assert.Contains(t, out.String(), "error: unknown action -1")
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "Delete", ActionDelete.String())
	assert.Equal(t, "action(9)", Action(9).String())
}

func TestWorkflowAbortedConfirmationKeepsLoopRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := mock.NewMockSession(ctrl)

	gomock.InOrder(
		sess.EXPECT().Select(gomock.Any(), "INBOX", true).Return(nil),
		sess.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]uint32{1, 2, 3}, nil),
		sess.EXPECT().Select(gomock.Any(), "INBOX", false).Return(nil),
		sess.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]uint32{}, nil),
		sess.EXPECT().Close().Return(nil).Times(1),
	)
	sess.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

	var out bytes.Buffer
	p := &scriptedPrompter{
		Line:    prompt.NewLine(strings.NewReader(menuDelete+fromSender+menuSearch+"1\n"+menuQuit), &out),
		confirm: prompt.ErrAborted,
	}
	wf := NewWorkflow(sess, p, "INBOX", &out, WithLogger(mock.SetupLogger(t)))

	require.NoError(t, wf.Run(context.Background()))
	assert.Contains(t, out.String(), "deletion cancelled")
	assert.Contains(t, out.String(), "Messages found: 0")
}
