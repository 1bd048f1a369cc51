// Package tasks reconciles playlist mappings between the source and destination catalogs.
//
// # Core Operations
//
//  1. [Planner.Plan] : decide what to add for one mapping
//     - Looks up each track in the match cache
//     - Searches the destination concurrently for tracks the cache cannot settle
//     - Folds the matcher's decisions in source order into a [models.SyncPlan]
//     - Never writes anything
//
//  2. [Applier.Apply] : execute a plan
//     - Confirms matches for tracks already in the destination
//     - Adds the planned tracks in batches
//     - Records a cache entry for every confirmed track, replacing stale ones explicitly
//
//  3. [SyncEngine.Run] : reconcile every configured mapping
//     - Validates mappings and optionally prunes missing destinations
//     - Runs healthy mappings in parallel and records each in the run history
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Locking
//
// [AcquireLock] takes a file lock next to the database so two sync processes never write the
// same cache at once.
package tasks
