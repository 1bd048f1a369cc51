package models

// MappingStatus is the health of a [PlaylistMapping].
type MappingStatus string

const (
	MappingHealthy            MappingStatus = "HEALTHY"
	MappingAuthExpired        MappingStatus = "AUTH_EXPIRED"
	MappingDestinationMissing MappingStatus = "DESTINATION_MISSING"
)

// Retained reports whether a mapping with this status stays in the persisted config.
// AUTH_EXPIRED mappings are kept because they recover once credentials are refreshed.
func (s MappingStatus) Retained() bool {
	return s != MappingDestinationMissing
}

// PlaylistMapping associates one source playlist with one destination playlist.
type PlaylistMapping struct {
	Name                  string
	SourcePlaylistID      string
	DestinationPlaylistID string
	Status                MappingStatus
}

// Unmapped reports whether no destination playlist is configured.
func (m PlaylistMapping) Unmapped() bool {
	return m.DestinationPlaylistID == ""
}

// Label returns the mapping name, falling back to the source playlist id.
func (m PlaylistMapping) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return m.SourcePlaylistID
}
