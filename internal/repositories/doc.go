// Package repositories implements SQLite persistence for the match cache and run history.
//
// Key Implementations:
//   - [MatchRepository] : confirmed matches keyed by (source playlist, source track); implements cache.Store
//   - [SyncRunRepository] : one row per mapping run with outcome counts
//
// Timestamps are stored as RFC 3339 text in UTC so entries round-trip exactly.
// Sequence numbers give runs a stable, human-readable order independent of UUIDs;
// [NextSequence] increments a per-table counter row atomically.
package repositories
