// Package matching decides which destination search candidate, if any, is the counterpart of a source track.
//
// A [Normalizer] reduces titles and artists to a [models.NormalizedKey], a [Scorer] compares two keys, and a
// [Matcher] runs an ordered chain of [Strategy] values where the first accepting strategy wins:
//
//  1. [CacheStrategy]: a confirmed cache entry whose target is still in the destination playlist
//  2. [ExistingIDStrategy]: a candidate that is already in the destination playlist
//  3. [PlaylistContentsStrategy]: a track already listed in the destination playlist whose key equals
//     or scores at or above [FuzzyThreshold] against the track's, whatever its ID
//  4. [EqualityStrategy]: a candidate whose normalized key equals the track's
//  5. [FuzzyStrategy]: the best scoring candidate at or above [FuzzyThreshold]
//
// Everything in this package is pure and safe for concurrent use.
package matching
