package feature

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrDuplicateFeature is returned when a file declares more than one Feature.
var ErrDuplicateFeature = errors.New("more than one Feature: header")

// TextParser is the default Parser for plain-text feature files.
//
// Recognized lines:
//
//	Feature: <title>
//	Background:
//	Scenario: <title>
//	@annotation            (or @name=value; several per line allowed)
//	# comment
//
// Every other non-blank line inside a Background or Scenario block is a
// step, kept verbatim (trimmed). Lines between Feature: and the first block
// are free-form description. Background steps are prepended to every
// scenario of the file.
type TextParser struct{}

// ParseFile reads a feature file from disk and parses it.
func (TextParser) ParseFile(path string) (*Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature file: %w", err)
	}
	f, err := Parse(string(data), path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

type block int

const (
	blockNone block = iota
	blockBackground
	blockScenario
)

// Parse parses feature file content. It is a pure function with no I/O.
func Parse(content, sourcePath string) (*Feature, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	feat := &Feature{SourceFile: sourcePath}

	var (
		background  []string
		current     *Scenario
		state       = blockNone
		sawFeature  bool
		annotations map[string]string
	)

	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimSpace(raw)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "@") {
			if annotations == nil {
				annotations = make(map[string]string)
			}
			parseAnnotations(line, annotations)
			continue
		}

		if title, ok := cutKeyword(line, "Feature:"); ok {
			if sawFeature {
				return nil, fmt.Errorf("line %d: %w", lineNum, ErrDuplicateFeature)
			}
			sawFeature = true
			feat.Title = title
			feat.Annotations = annotations
			annotations = nil
			state = blockNone
			continue
		}

		if _, ok := cutKeyword(line, "Background:"); ok {
			state = blockBackground
			annotations = nil
			continue
		}

		if title, ok := cutKeyword(line, "Scenario:"); ok {
			current = &Scenario{
				Title:       title,
				Annotations: annotations,
				Line:        lineNum,
				LastStep:    -1,
			}
			annotations = nil
			feat.Scenarios = append(feat.Scenarios, current)
			state = blockScenario
			continue
		}

		switch state {
		case blockBackground:
			background = append(background, line)
		case blockScenario:
			current.Steps = append(current.Steps, line)
		}
	}

	if len(background) > 0 {
		for _, sc := range feat.Scenarios {
			steps := make([]string, 0, len(background)+len(sc.Steps))
			steps = append(steps, background...)
			sc.Steps = append(steps, sc.Steps...)
		}
	}

	return feat, nil
}

// cutKeyword matches a block keyword case-insensitively and returns the
// trimmed remainder.
func cutKeyword(line, keyword string) (string, bool) {
	if len(line) < len(keyword) || !strings.EqualFold(line[:len(keyword)], keyword) {
		return "", false
	}
	return strings.TrimSpace(line[len(keyword):]), true
}

// parseAnnotations reads "@a @b=c" tokens into dst. Names are lower-cased.
func parseAnnotations(line string, dst map[string]string) {
	for _, tok := range strings.Fields(line) {
		tok = strings.TrimPrefix(tok, "@")
		if tok == "" {
			continue
		}
		name, value, _ := strings.Cut(tok, "=")
		dst[strings.ToLower(name)] = value
	}
}
