// Package ir provides the canonical value model shared by the orchestrator.
//
// Two things in the run must serialize byte-for-byte identically across
// processes and machines: the step list that feeds a scenario fingerprint,
// and the unmatched-cleanup records printed after a run. Records go through
// MarshalCanonical, which emits RFC 8785 canonical JSON. The fingerprint
// array uses the same string escaping but hashes step text unnormalized.
//
// Key constraints:
//   - NO float types (use int64) - float formatting is not stable
//   - NO null values
//   - Object keys ordered by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//
// ir imports nothing internal.
package ir
