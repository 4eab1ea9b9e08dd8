// Package steps is the default step interpreter: a library of regular
// expressions mapped to handlers. Step texts are matched with their
// Gherkin keyword (Given/When/Then/And/But) removed.
package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/roach88/conformer/internal/harness"
)

var (
	// ErrUndefinedStep is returned when no definition matches a step.
	ErrUndefinedStep = errors.New("undefined step")
	// ErrAmbiguousStep is returned when more than one definition matches.
	ErrAmbiguousStep = errors.New("ambiguous step")
)

var keywords = []string{"Given ", "When ", "Then ", "And ", "But ", "* "}

// Handler runs a matched step. args holds the regexp submatches.
type Handler func(ctx context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error)

type definition struct {
	pattern *regexp.Regexp
	handler Handler
}

// Library maps step patterns to handlers. It implements
// harness.Interpreter.
type Library struct {
	defs   []definition
	logger *slog.Logger
}

// NewLibrary creates an empty Library.
func NewLibrary(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Library{logger: logger}
}

// Define registers a handler. The pattern is anchored at both ends and
// matched case-insensitively against the step text without its keyword.
func (l *Library) Define(pattern string, h Handler) error {
	re, err := regexp.Compile(`(?i)^` + pattern + `$`)
	if err != nil {
		return fmt.Errorf("step pattern %q: %w", pattern, err)
	}
	l.defs = append(l.defs, definition{pattern: re, handler: h})
	return nil
}

// MustDefine is Define for patterns known at compile time.
func (l *Library) MustDefine(pattern string, h Handler) {
	if err := l.Define(pattern, h); err != nil {
		panic(err)
	}
}

// Len returns the number of definitions.
func (l *Library) Len() int {
	return len(l.defs)
}

// Interpret finds the single definition matching step and runs it.
func (l *Library) Interpret(ctx context.Context, step string, ec *harness.ExecutionContext) (harness.Info, error) {
	text := StripKeyword(step)

	var (
		match *definition
		args  []string
	)
	for i := range l.defs {
		m := l.defs[i].pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if match != nil {
			return "", fmt.Errorf("%w: %q matches %q and %q",
				ErrAmbiguousStep, step, match.pattern, l.defs[i].pattern)
		}
		match = &l.defs[i]
		args = m[1:]
	}
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrUndefinedStep, step)
	}

	l.logger.Debug("step matched", "step", step, "pattern", match.pattern.String())
	return match.handler(ctx, ec, args)
}

// StripKeyword removes a leading Gherkin keyword.
func StripKeyword(step string) string {
	for _, kw := range keywords {
		if len(step) >= len(kw) && strings.EqualFold(step[:len(kw)], kw) {
			return strings.TrimSpace(step[len(kw):])
		}
	}
	return step
}
