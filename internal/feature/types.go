// Package feature models behavior-specification files: a Feature holds
// Scenarios, a Scenario holds an ordered list of step texts.
//
// The package also ships the default collaborators the orchestrator uses to
// find and read feature files (FileSearch, TextParser). Both satisfy small
// interfaces so other grammars or layouts can be plugged in.
package feature

// Annotation names with orchestrator meaning.
const (
	AnnotationPending = "pending"
)

// Scenario is one executable scenario.
//
// Steps are immutable after parsing. Fingerprint and LastStep are derived
// once by the hash registry before any step runs; Title and Annotations may
// be mutated exactly once afterwards by pending annotation.
type Scenario struct {
	// Title is the display title. Diagnostics and pending markers rewrite it.
	Title string
	// Steps is the ordered list of full step lines ("Given ...", "When ...").
	Steps []string
	// Annotations holds @flags declared above the scenario, lower-cased.
	Annotations map[string]string
	// Line is the 1-based source line of the Scenario: header.
	Line int

	// Fingerprint is the hex digest of the filtered step sequence.
	Fingerprint string
	// LastStep is the index in Steps that triggers the cleanup flush.
	// -1 until fingerprinted.
	LastStep int
}

// Annotated reports whether the scenario carries the named annotation.
func (s *Scenario) Annotated(name string) bool {
	_, ok := s.Annotations[name]
	return ok
}

// Annotate sets an annotation flag.
func (s *Scenario) Annotate(name, value string) {
	if s.Annotations == nil {
		s.Annotations = make(map[string]string)
	}
	s.Annotations[name] = value
}

// Pending reports whether the scenario is marked pending.
func (s *Scenario) Pending() bool {
	return s.Annotated(AnnotationPending)
}

// Feature is a parsed feature file.
type Feature struct {
	// Title is the text after "Feature:".
	Title string
	// SourceFile is the path the feature was parsed from.
	SourceFile string
	// Annotations declared above the Feature: header.
	Annotations map[string]string
	// Scenarios in declaration order.
	Scenarios []*Scenario
}

// Parser turns a feature file into a Feature.
type Parser interface {
	ParseFile(path string) (*Feature, error)
}

// Searcher recursively discovers feature files below a directory.
type Searcher interface {
	Search(dir string) ([]string, error)
}
