// Package mappings checks configured playlist mappings against the destination catalog.
//
// A mapping is checked by fetching its destination playlist. The failure is reduced to a
// [shared.ErrorKind] and classified:
//
//   - no error : HEALTHY
//   - NOT_FOUND : DESTINATION_MISSING, removed from the config by [Prune]
//   - anything else : AUTH_EXPIRED, kept
//
// Rate limits and transient failures count as AUTH_EXPIRED so that a flaky network never
// deletes a mapping.
package mappings
