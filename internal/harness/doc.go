// Package harness executes feature files against a target service.
//
// A Runner owns everything one run mutates: the fingerprint table, the
// pending index and the file cache. For every dispatched feature file it
//
//  1. parses the file into scenarios,
//  2. fingerprints every scenario and applies pending markers,
//  3. executes the scenarios in order through an Executor.
//
// # Execution
//
// The Executor runs a scenario's steps strictly in declaration order, each
// through the Interpreter, and waits for a step to finish before starting
// the next. Every step receives a fresh ExecutionContext holding the
// feature-scoped and scenario-scoped resource bags, the trace of steps so
// far, the scenario fingerprint and whether this is the last step.
//
// Steps may queue cleanup requests on the ScenarioResource. On the last
// step the queue is run as one sequential series before the step's result
// is recorded, even when the step failed. Cleanup failures are logged and
// attached to the step result but never replace the step's own error.
//
// A failing step ends its scenario: remaining steps are recorded as
// skipped and the run continues with the next scenario. Scenarios marked
// pending are not executed.
//
// # Deterministic Testing
//
// Results carry no timestamps or durations, so a RunResult can be compared
// against a golden snapshot (AssertGolden).
package harness
