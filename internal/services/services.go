package services

import (
	"context"
	"strings"

	"github.com/desertthunder/ytsync/internal/models"
)

// SourceCatalog reads playlists from the catalog tracks are copied from.
type SourceCatalog interface {
	Name() string

	// FetchPlaylistTracks returns a playlist's tracks in playlist order.
	FetchPlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error)
}

// DestinationCatalog reads, searches and appends to the catalog tracks are copied to.
//
// Failures are [shared.ServiceError] values so callers can reduce them with [shared.KindOf].
type DestinationCatalog interface {
	Name() string

	// FetchPlaylistContents returns the tracks currently in a playlist, in playlist order.
	FetchPlaylistContents(ctx context.Context, playlistID string) (models.PlaylistContents, error)

	// Search returns up to limit ranked candidates for a free-text query.
	Search(ctx context.Context, query string, limit int) ([]models.DestinationCandidate, error)

	// AddTracks appends ids to a playlist and reports the outcome per id, in input order.
	AddTracks(ctx context.Context, playlistID string, ids []string) ([]AddResult, error)

	// CheckAuth verifies that the configured credentials are accepted.
	CheckAuth(ctx context.Context) error
}

// AddResult is the outcome of adding one track.
type AddResult struct {
	ID  string
	OK  bool
	Err error
}

// SearchQuery builds the destination search text for a source track.
func SearchQuery(track models.SourceTrack) string {
	return strings.TrimSpace(track.Title + " " + track.PrimaryArtist())
}
