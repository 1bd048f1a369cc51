package models

import "strings"

// SourceTrack is a track fetched from the source catalog (Spotify).
type SourceTrack struct {
	ID         string
	Title      string
	Artists    []string
	Album      string
	PlaylistID string
}

// PrimaryArtist returns the first artist name or "Unknown".
func (t SourceTrack) PrimaryArtist() string {
	for _, a := range t.Artists {
		if strings.TrimSpace(a) != "" {
			return a
		}
	}
	return "Unknown"
}

// ArtistLine joins all artist names with ", " for display and search queries.
func (t SourceTrack) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Malformed reports whether the track is missing the fields needed to match it.
func (t SourceTrack) Malformed() bool {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Title) == "" {
		return true
	}
	for _, a := range t.Artists {
		if strings.TrimSpace(a) != "" {
			return false
		}
	}
	return true
}

// DestinationCandidate is a single destination search result.
//
// Rank is the 0-based position in the destination search response.
type DestinationCandidate struct {
	ID      string
	Title   string
	Artists []string
	Rank    int
}

// NormalizedKey is a canonical comparison form of a track's title and artists.
// It is never persisted as identity.
type NormalizedKey string
