// Package store provides SQLite-backed run history.
//
// Every run is stored with:
//   - Runs: one row per run, keyed by a time-sortable UUIDv7
//   - Scenario Results: one row per scenario, in run order, keyed by
//     (run_id, seq) and indexed by fingerprint
//   - Stale Pending: the pending fingerprints the run found stale
//
// Fingerprints make a scenario's outcomes comparable across runs even when
// its title changes, which is what ScenarioHistory answers.
//
// # Deterministic Query Results
//
// Every list query has a total order: runs by (started_at DESC, id DESC),
// scenarios by seq within a run. Step results are stored as RFC 8785
// canonical JSON.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
