package query

import (
	"context"
	"fmt"
	"log/slog"
)

// Prompter is the operator input the builder needs.
type Prompter interface {
	Choose(ctx context.Context, title string, options []string) (int, error)
	Input(ctx context.Context, title string, validate func(string) error) (string, error)
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder walks the operator through category, key and argument selection.
type Builder struct {
	prompter Prompter
	logger   *slog.Logger
}

func NewBuilder(prompter Prompter, opts ...Option) *Builder {
	b := &Builder{prompter: prompter, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build prompts until a well-formed expression has been composed.
// Invalid arguments are rejected by the prompter and asked for again.
func (b *Builder) Build(ctx context.Context) (Expression, error) {
	category, err := b.chooseCategory(ctx)
	if err != nil {
		return Expression{}, err
	}

	key, err := b.chooseKey(ctx, category)
	if err != nil {
		return Expression{}, err
	}

	if key.Argument() == NoArgument {
		return Compose(key, "")
	}

	raw, err := b.prompter.Input(ctx, argumentTitle(key), func(value string) error {
		_, err := Compose(key, value)
		return err
	})
	if err != nil {
		return Expression{}, err
	}

	expr, err := Compose(key, raw)
	if err != nil {
		return Expression{}, err
	}
	b.logger.DebugContext(ctx, "built search expression", slog.String("expression", expr.String()))
	return expr, nil
}

func (b *Builder) chooseCategory(ctx context.Context) (Category, error) {
	labels := make([]string, 0, len(Categories))
	for _, c := range Categories {
		labels = append(labels, c.String())
	}
	idx, err := b.prompter.Choose(ctx, "Search by", labels)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(Categories) {
		return 0, fmt.Errorf("category choice %d out of range", idx)
	}
	return Categories[idx], nil
}

func (b *Builder) chooseKey(ctx context.Context, category Category) (Key, error) {
	keys := category.Keys()
	if len(keys) == 1 {
		return keys[0], nil
	}
	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, k.Label())
	}
	idx, err := b.prompter.Choose(ctx, category.String(), labels)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(keys) {
		return "", fmt.Errorf("key choice %d out of range", idx)
	}
	return keys[idx], nil
}

func argumentTitle(key Key) string {
	switch key.Argument() {
	case DateArgument:
		return fmt.Sprintf("%s date (DD-Mon-YYYY)", key.Label())
	case AddressArgument:
		return fmt.Sprintf("%s address", key.Label())
	default:
		return fmt.Sprintf("%s contains", key.Label())
	}
}
