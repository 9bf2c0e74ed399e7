package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to approve a destructive command.
type Confirmer interface {
	Confirm(ctx context.Context, workerID string, cmd Command) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, workerID string, cmd Command) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, workerID string, cmd Command) (bool, error) {
	return f(ctx, workerID, cmd)
}

// AlwaysConfirm approves every command. Used for --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string, Command) (bool, error) {
	return true, nil
})

// NeverConfirm declines every command.
var NeverConfirm Confirmer = ConfirmFunc(func(context.Context, string, Command) (bool, error) {
	return false, nil
})

// PromptConfirmer asks on out and reads a y/N answer from in.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer builds an interactive confirmer.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm prints the prompt and accepts "y" or "yes". Anything else,
// including end of input, declines.
func (p *PromptConfirmer) Confirm(ctx context.Context, workerID string, cmd Command) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.out != nil {
		fmt.Fprintf(p.out, "%s worker %s? This cannot be undone. [y/N]: ", capitalize(cmd.String()), workerID)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
