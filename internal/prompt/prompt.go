// Package prompt implements operator input for menus, free text and
// confirmations.
package prompt

import (
	"context"
	"errors"
)

// ErrAborted is returned when the operator closes input or aborts a prompt.
var ErrAborted = errors.New("input aborted")

// Prompter asks the operator for a choice, a value or a confirmation.
type Prompter interface {
	// Choose returns the index of the selected option.
	Choose(ctx context.Context, title string, options []string) (int, error)
	// Input returns a value accepted by validate. A nil validate accepts anything.
	Input(ctx context.Context, title string, validate func(string) error) (string, error)
	// Confirm returns the operator's raw answer to a yes/no question.
	Confirm(ctx context.Context, question string) (string, error)
}
