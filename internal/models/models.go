package models

import (
	"time"
)

// Model defines the base interface for persistent models.
// Implementations include CacheEntry and SyncRun.
type Model interface {
	Key() string          // Key returns the unique identifier for this model
	UpdatedAt() time.Time // UpdatedAt returns when this model was last written
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// IDSet is a set of destination track IDs.
type IDSet map[string]struct{}

// NewIDSet builds an [IDSet] from the given IDs, ignoring empty values.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s IDSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Clone returns an independent copy of the set.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// PlaylistContents lists the tracks currently in a destination playlist, in playlist order.
// An entry may carry only its ID when the catalog did not return metadata for it.
type PlaylistContents []DestinationCandidate

// ContentsOf builds contents that know only the given IDs.
func ContentsOf(ids ...string) PlaylistContents {
	c := make(PlaylistContents, 0, len(ids))
	for i, id := range ids {
		c = append(c, DestinationCandidate{ID: id, Rank: i})
	}
	return c
}

// IDs returns the set of IDs in the playlist.
func (c PlaylistContents) IDs() IDSet {
	s := make(IDSet, len(c))
	for _, t := range c {
		s.Add(t.ID)
	}
	return s
}
