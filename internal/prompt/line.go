package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line reads answers one line at a time. It is used when stdin is not a
// terminal and in tests.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

// Choose accepts either the option number or its label (case-insensitive).
func (p *Line) Choose(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to choose from")
	}
	for {
		fmt.Fprintf(p.out, "%s:\n", title)
		for i, option := range options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
		}
		fmt.Fprint(p.out, "> ")

		answer, err := p.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if idx, ok := matchOption(answer, options); ok {
			return idx, nil
		}
		fmt.Fprintf(p.out, "invalid choice %q\n", answer)
	}
}

func (p *Line) Input(ctx context.Context, title string, validate func(string) error) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s: ", title)
		answer, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		if validate == nil {
			return answer, nil
		}
		if err := validate(answer); err != nil {
			fmt.Fprintf(p.out, "invalid input: %v\n", err)
			continue
		}
		return answer, nil
	}
}

func (p *Line) Confirm(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	return p.readLine(ctx)
}

func (p *Line) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func matchOption(answer string, options []string) (int, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}
	for i, option := range options {
		if strings.EqualFold(strings.TrimSpace(option), answer) {
			return i, true
		}
	}
	return 0, false
}
