package prompt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineChoose(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "by number", input: "2\n", want: 1},
		{name: "by label", input: "quit\n", want: 2},
		{name: "retries until valid", input: "9\nnope\n1\n", want: 0},
		{name: "last line without newline", input: "3", want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewLine(strings.NewReader(tc.input), &out)

			got, err := p.Choose(context.Background(), "Menu", []string{"Search", "Delete", "Quit"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Contains(t, out.String(), "1) Search")
		})
	}
}

func TestLineChooseEOF(t *testing.T) {
	p := NewLine(strings.NewReader(""), &bytes.Buffer{})

	_, err := p.Choose(context.Background(), "Menu", []string{"Search"})
	assert.ErrorIs(t, err, ErrAborted)
}

func TestLineInputRepromptsOnValidationError(t *testing.T) {
	var out bytes.Buffer
	p := NewLine(strings.NewReader("\n  \nvalue\n"), &out)

	got, err := p.Input(context.Background(), "Term", func(v string) error {
		if v == "" {
			return errors.New("required")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.Equal(t, 2, strings.Count(out.String(), "invalid input: required"))
}

func TestLineConfirmReturnsRawAnswer(t *testing.T) {
	var out bytes.Buffer
	p := NewLine(strings.NewReader(" Yes \n"), &out)

	got, err := p.Confirm(context.Background(), "delete these 3 messages?")
	require.NoError(t, err)
	assert.Equal(t, "Yes", got)
	assert.Contains(t, out.String(), "delete these 3 messages? [y/N]: ")
}

func TestLineCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewLine(strings.NewReader("1\n"), &bytes.Buffer{})

	_, err := p.Input(ctx, "Term", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
