// Package password supplies candidate PDF passwords and the batch mode choice.
package password

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

// Prompt asks the operator on the terminal with masked input.
type Prompt struct {
	// Glyph prefixes the prompt title.
	Glyph string
}

func NewPrompt() *Prompt {
	return &Prompt{Glyph: "🔐"}
}

// NewSharedPrompt asks for the one password of a shared batch.
func NewSharedPrompt() *Prompt {
	return &Prompt{Glyph: "🔑"}
}

func (p *Prompt) Password(ctx context.Context, attempt, maxAttempts int) (string, error) {
	var value string
	input := huh.NewInput().
		Title(fmt.Sprintf("%s Attempt %d/%d — Enter PDF password", p.Glyph, attempt, maxAttempts)).
		EchoMode(huh.EchoModePassword).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		return "", promptError(err)
	}
	return value, nil
}

// List hands out precomputed candidates. Every attempt cycle starts again
// from the first entry, so per-file mode tries the same list on each file.
type List struct {
	passwords []string
}

func NewList(passwords ...string) *List {
	return &List{passwords: passwords}
}

func (l *List) Password(_ context.Context, attempt, _ int) (string, error) {
	if attempt < 1 || attempt > len(l.passwords) {
		return "", interfaces.ErrNoPassword
	}
	return l.passwords[attempt-1], nil
}

// Func adapts a callback to a PasswordSource.
type Func func(ctx context.Context, attempt, maxAttempts int) (string, error)

func (f Func) Password(ctx context.Context, attempt, maxAttempts int) (string, error) {
	return f(ctx, attempt, maxAttempts)
}

// Confirm asks whether one password applies to all of a bank's files.
type Confirm struct{}

func (Confirm) SharedPassword(ctx context.Context, bank string) (bool, error) {
	shared := false
	field := huh.NewConfirm().
		Title(fmt.Sprintf("🔐 Is the password the same for all %s files?", strings.ToUpper(bank))).
		Affirmative("Yes").
		Negative("No").
		Value(&shared)

	if err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx); err != nil {
		return false, promptError(err)
	}
	return shared, nil
}

// Fixed answers the mode question without asking.
type Fixed bool

func (f Fixed) SharedPassword(context.Context, string) (bool, error) {
	return bool(f), nil
}

const (
	ModeAsk     = "ask"
	ModeShared  = "shared"
	ModePerFile = "per-file"
)

// Sources bundles what a run needs to obtain passwords.
type Sources struct {
	// PerFile answers the per-attachment attempts.
	PerFile interfaces.PasswordSource
	// Shared answers the validation attempts of a shared batch.
	Shared interfaces.PasswordSource
	Mode   interfaces.ModeSelector
}

// FromConfig picks the password sources and mode selector for a run.
// A non-empty candidate list replaces the interactive prompts.
func FromConfig(mode string, candidates []string) (Sources, error) {
	sources := Sources{PerFile: NewPrompt(), Shared: NewSharedPrompt()}
	if len(candidates) > 0 {
		list := NewList(candidates...)
		sources.PerFile, sources.Shared = list, list
	}

	switch mode {
	case "", ModeAsk:
		sources.Mode = Confirm{}
	case ModeShared:
		sources.Mode = Fixed(true)
	case ModePerFile:
		sources.Mode = Fixed(false)
	default:
		return Sources{}, fmt.Errorf("unknown password mode %q", mode)
	}
	return sources, nil
}

func promptError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return interfaces.ErrOperatorAbort
	}
	return fmt.Errorf("prompt: %w", err)
}
