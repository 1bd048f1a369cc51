// Package cache keeps confirmed source-to-destination track matches across runs.
package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
)

// Store persists cache entries.
//
// UpsertEntry must be a single atomic write that only replaces a stored entry
// whose confidence is not higher than the new one, and report whether it wrote.
type Store interface {
	LoadEntries(ctx context.Context) ([]models.CacheEntry, error)
	UpsertEntry(ctx context.Context, entry models.CacheEntry) (bool, error)
	DeleteEntry(ctx context.Context, sourcePlaylistID, sourceTrackID string) error
}

// MatchCache is an in-memory view of a [Store], safe for concurrent use.
// Writes for the same (playlist, track) key are serialized.
type MatchCache struct {
	store  Store
	logger *log.Logger

	mu      sync.RWMutex
	entries map[string]models.CacheEntry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an empty cache backed by store. A nil store keeps entries in memory only.
func New(store Store, logger *log.Logger) *MatchCache {
	if logger == nil {
		logger = log.Default()
	}
	return &MatchCache{
		store:   store,
		logger:  logger,
		entries: make(map[string]models.CacheEntry),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Load replaces the in-memory entries with the store's contents.
func (c *MatchCache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	loaded, err := c.store.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load match cache: %w", err)
	}

	entries := make(map[string]models.CacheEntry, len(loaded))
	for _, e := range loaded {
		entries[e.Key()] = e
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Debug("loaded match cache", "entries", len(entries))
	return nil
}

// Lookup returns the entry for a source track, if one has been confirmed.
func (c *MatchCache) Lookup(sourcePlaylistID, sourceTrackID string) (models.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[models.CacheKey(sourcePlaylistID, sourceTrackID)]
	return e, ok
}

// Record upserts entry unless a stored entry has a higher confidence.
// It reports whether the entry was written.
func (c *MatchCache) Record(ctx context.Context, entry models.CacheEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, fmt.Errorf("invalid cache entry: %w", err)
	}

	key := entry.Key()
	unlock := c.lock(key)
	defer unlock()

	if current, ok := c.Lookup(entry.SourcePlaylistID, entry.SourceTrackID); ok && entry.Confidence < current.Confidence {
		c.logger.Debug("kept higher confidence cache entry", "key", key, "stored", current.Confidence, "offered", entry.Confidence)
		return false, nil
	}

	if c.store != nil {
		written, err := c.store.UpsertEntry(ctx, entry)
		if err != nil {
			return false, fmt.Errorf("failed to record cache entry %s: %w", key, err)
		}
		if !written {
			return false, nil
		}
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return true, nil
}

// Invalidate removes the entry for a source track from the store and memory.
func (c *MatchCache) Invalidate(ctx context.Context, sourcePlaylistID, sourceTrackID string) error {
	key := models.CacheKey(sourcePlaylistID, sourceTrackID)
	unlock := c.lock(key)
	defer unlock()

	if c.store != nil {
		if err := c.store.DeleteEntry(ctx, sourcePlaylistID, sourceTrackID); err != nil {
			return fmt.Errorf("failed to invalidate cache entry %s: %w", key, err)
		}
	}

	c.mu.Lock()
	prev, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		c.logger.Info("invalidated cache entry", "key", key, "destination", prev.DestinationTrackID)
	}
	return nil
}

// Entries returns the entries for one source playlist ordered by source track id.
// An empty playlist id returns every entry.
func (c *MatchCache) Entries(sourcePlaylistID string) []models.CacheEntry {
	c.mu.RLock()
	out := make([]models.CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if sourcePlaylistID == "" || e.SourcePlaylistID == sourcePlaylistID {
			out = append(out, e)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourcePlaylistID != out[j].SourcePlaylistID {
			return out[i].SourcePlaylistID < out[j].SourcePlaylistID
		}
		return out[i].SourceTrackID < out[j].SourceTrackID
	})
	return out
}

// Len returns the number of cached entries.
func (c *MatchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MatchCache) lock(key string) func() {
	c.locksMu.Lock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	c.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}
