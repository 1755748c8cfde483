package mock

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/aaronromeo/mailtriage/internal/query"
	gomock "go.uber.org/mock/gomock"
)

// SetupLogger returns a logger that only outputs if the test fails
func SetupLogger(t *testing.T) *slog.Logger {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Cleanup(func() {
		if t.Failed() {
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})

	return logger
}

type expressionMatcher struct {
	want string
}

func (m expressionMatcher) Matches(x interface{}) bool {
	expr, ok := x.(query.Expression)
	if !ok {
		return false
	}
	return expr.String() == m.want
}

func (m expressionMatcher) String() string {
	return "is expression " + m.want
}

// NewExpressionMatcher matches a query.Expression by its rendered form,
// e.g. "FROM sender@example.com".
func NewExpressionMatcher(want string) gomock.Matcher {
	return expressionMatcher{want: want}
}
