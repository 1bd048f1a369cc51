// Package services implements the catalog clients used by a sync run.
//
// # Spotify
//
// [SpotifyService] is the [SourceCatalog]. It authenticates with an [oauth2] refresh token
// (or a static access token) and pages through /playlists/{id}/tracks.
//
// # YouTube Music
//
// [YouTubeService] is the [DestinationCatalog]. It talks to the ytmusicapi HTTP proxy, sending
// the auth file path in the X-Auth-File header on each request. Requests are rate limited and
// retried with backoff on rate-limit and transient failures.
//
// # Error Handling
//
// Both clients reduce HTTP failures to a [shared.ServiceError]:
//   - 401, 403 : [shared.KindAuthFailure]
//   - 404 : [shared.KindNotFound]
//   - 429 : [shared.KindRateLimited]
//   - 5xx and transport errors : [shared.KindTransient]
//   - undecodable bodies : [shared.KindMalformed]
package services
