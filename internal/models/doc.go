// Package models defines domain entities for the ytsync reconciliation engine.
//
// The package contains two categories of types:
//
// 1. Catalog values: immutable data fetched from the music services
//   - [SourceTrack] : a track in a Spotify playlist
//   - [DestinationCandidate] : a ranked YouTube Music search result
//   - [NormalizedKey] : a comparison-only canonical form of a track
//
// 2. Reconciliation state
//   - [MatchResult] : the decision for one source track
//   - [CacheEntry] : a confirmed (source track -> destination track) match
//   - [PlaylistMapping] : a configured source/destination playlist pair and its health
//   - [SyncPlan] : the ordered add-list and skip-list for one mapping run
//   - [SyncRun] : a persisted record of one mapping run
//
// Persistent entities implement the [Model] interface.
package models
