// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
)

// FakeSource is an in-memory [services.SourceCatalog].
type FakeSource struct {
	mu     sync.Mutex
	Tracks map[string][]models.SourceTrack
	Errs   map[string]error
	Calls  int
}

func NewFakeSource() *FakeSource {
	return &FakeSource{Tracks: map[string][]models.SourceTrack{}, Errs: map[string]error{}}
}

func (f *FakeSource) Name() string { return "fake-source" }

func (f *FakeSource) FetchPlaylistTracks(_ context.Context, playlistID string) ([]models.SourceTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if err := f.Errs[playlistID]; err != nil {
		return nil, err
	}
	tracks, ok := f.Tracks[playlistID]
	if !ok {
		return nil, shared.StatusError("fake.playlist_tracks", 404, playlistID)
	}
	out := make([]models.SourceTrack, len(tracks))
	copy(out, tracks)
	return out, nil
}

// FakeDestination is an in-memory [services.DestinationCatalog].
//
// Search results are keyed by the query text built with [services.SearchQuery]. Added ids are
// appended to Playlists so later fetches observe them. Listed holds the title and artists a
// playlist fetch reports for an id; ids without an entry are listed by id only.
type FakeDestination struct {
	mu          sync.Mutex
	Playlists   map[string][]string
	Results     map[string][]models.DestinationCandidate
	Listed      map[string]models.DestinationCandidate
	SearchErrs  map[string]error
	FetchErrs   map[string]error
	AuthErr     error
	AddErr      error
	Reject      models.IDSet
	SearchCalls []string
	AddCalls    [][]string
}

func NewFakeDestination() *FakeDestination {
	return &FakeDestination{
		Playlists:  map[string][]string{},
		Results:    map[string][]models.DestinationCandidate{},
		Listed:     map[string]models.DestinationCandidate{},
		SearchErrs: map[string]error{},
		FetchErrs:  map[string]error{},
		Reject:     models.NewIDSet(),
	}
}

func (f *FakeDestination) Name() string { return "fake-destination" }

func (f *FakeDestination) CheckAuth(context.Context) error { return f.AuthErr }

func (f *FakeDestination) FetchPlaylistContents(_ context.Context, playlistID string) (models.PlaylistContents, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FetchErrs[playlistID]; err != nil {
		return nil, err
	}
	ids, ok := f.Playlists[playlistID]
	if !ok {
		return nil, shared.StatusError("fake.playlist", 404, playlistID)
	}

	contents := models.ContentsOf(ids...)
	for i := range contents {
		if t, ok := f.Listed[contents[i].ID]; ok {
			contents[i].Title, contents[i].Artists = t.Title, t.Artists
		}
	}
	return contents, nil
}

func (f *FakeDestination) Search(_ context.Context, query string, limit int) ([]models.DestinationCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls = append(f.SearchCalls, query)
	if err := f.SearchErrs[query]; err != nil {
		return nil, err
	}
	results := f.Results[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]models.DestinationCandidate, len(results))
	copy(out, results)
	return out, nil
}

func (f *FakeDestination) AddTracks(_ context.Context, playlistID string, ids []string) ([]services.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddCalls = append(f.AddCalls, append([]string(nil), ids...))
	if f.AddErr != nil {
		return nil, f.AddErr
	}

	results := make([]services.AddResult, len(ids))
	for i, id := range ids {
		if f.Reject.Has(id) {
			results[i] = services.AddResult{ID: id, Err: fmt.Errorf("rejected %s", id)}
			continue
		}
		f.Playlists[playlistID] = append(f.Playlists[playlistID], id)
		results[i] = services.AddResult{ID: id, OK: true}
	}
	return results, nil
}

// Contents returns a copy of a destination playlist's ids in insertion order.
func (f *FakeDestination) Contents(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Playlists[playlistID]...)
}

// Searched returns the distinct queries issued so far, sorted.
func (f *FakeDestination) Searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, q := range f.SearchCalls {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	sort.Strings(out)
	return out
}

// Track builds a [models.SourceTrack] for playlistID.
func Track(playlistID, id, title string, artists ...string) models.SourceTrack {
	return models.SourceTrack{ID: id, Title: title, Artists: artists, PlaylistID: playlistID}
}

// Candidates ranks destination candidates in the given order.
func Candidates(cs ...models.DestinationCandidate) []models.DestinationCandidate {
	for i := range cs {
		cs[i].Rank = i
	}
	return cs
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
