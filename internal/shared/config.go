package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Sync        SyncConfig        `toml:"sync"`
	Mappings    []MappingConfig   `toml:"mappings"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
}

// YouTubeConfig contains the ytmusicapi proxy settings.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig tunes a reconciliation run.
type SyncConfig struct {
	DryRun            bool     `toml:"dry_run"`
	MaxSearchResults  int      `toml:"max_search_results"`
	BatchSize         int      `toml:"batch_size"`
	SearchConcurrency int      `toml:"search_concurrency"`
	ParallelMappings  int      `toml:"parallel_mappings"`
	RequestTimeout    Duration `toml:"request_timeout"`
	LogFile           string   `toml:"log_file"`
}

// MappingConfig is a persisted source/destination playlist pair.
type MappingConfig struct {
	Name        string `toml:"name,omitempty"`
	Source      string `toml:"source"`
	Destination string `toml:"destination"`
}

// Duration is a [time.Duration] written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Missing [sync] values are filled from the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults(DefaultConfig())
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

func (c *Config) applyDefaults(d *Config) {
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Sync.MaxSearchResults <= 0 {
		c.Sync.MaxSearchResults = d.Sync.MaxSearchResults
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = d.Sync.BatchSize
	}
	if c.Sync.SearchConcurrency <= 0 {
		c.Sync.SearchConcurrency = d.Sync.SearchConcurrency
	}
	if c.Sync.ParallelMappings <= 0 {
		c.Sync.ParallelMappings = d.Sync.ParallelMappings
	}
	if c.Sync.RequestTimeout.Duration <= 0 {
		c.Sync.RequestTimeout = d.Sync.RequestTimeout
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// BackupPath returns where [SaveConfig] keeps the previous version of path.
func BackupPath(path string) string {
	return path + ".backup"
}

// SaveConfig writes config to path, copying any existing file to [BackupPath] first.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if existing, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(BackupPath(path), existing, 0644); err != nil {
			return fmt.Errorf("failed to write config backup: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// RestoreConfig replaces path with its backup.
func RestoreConfig(path string) error {
	data, err := os.ReadFile(BackupPath(path))
	if err != nil {
		return fmt.Errorf("failed to read config backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to restore config: %w", err)
	}
	return nil
}

// ValidatePlaylistID checks the id format for a platform ("spotify" or "youtube").
func ValidatePlaylistID(platform, id string) error {
	id = strings.TrimSpace(id)
	if len(id) < 10 {
		return fmt.Errorf("%w: %s id %q is too short", ErrInvalidPlaylistID, platform, id)
	}

	switch platform {
	case "spotify":
		for _, r := range id {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return fmt.Errorf("%w: spotify id %q must be alphanumeric", ErrInvalidPlaylistID, id)
			}
		}
		return nil
	case "youtube":
		return nil
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidArgument, platform)
	}
}

// FindMapping returns the index of the mapping with the given source id, or -1.
func (c *Config) FindMapping(source string) int {
	for i, m := range c.Mappings {
		if m.Source == source {
			return i
		}
	}
	return -1
}

// AddMapping validates and appends a mapping. Duplicate source ids are rejected.
func (c *Config) AddMapping(m MappingConfig) error {
	m.Source = strings.TrimSpace(m.Source)
	m.Destination = strings.TrimSpace(m.Destination)

	if err := ValidatePlaylistID("spotify", m.Source); err != nil {
		return err
	}
	if m.Destination != "" {
		if err := ValidatePlaylistID("youtube", m.Destination); err != nil {
			return err
		}
	}
	if c.FindMapping(m.Source) >= 0 {
		return fmt.Errorf("%w: %s", ErrMappingExists, m.Source)
	}

	c.Mappings = append(c.Mappings, m)
	return nil
}

// RemoveMappings drops every mapping whose source id is listed and returns how many were removed.
func (c *Config) RemoveMappings(sources ...string) int {
	drop := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		drop[s] = struct{}{}
	}
	return c.removeWhere(func(m MappingConfig) bool {
		_, ok := drop[m.Source]
		return ok
	})
}

// RemoveMappingPairs drops every mapping whose source and destination both equal one of pairs.
// Names are ignored.
func (c *Config) RemoveMappingPairs(pairs ...MappingConfig) int {
	type pair struct{ source, destination string }
	drop := make(map[pair]struct{}, len(pairs))
	for _, p := range pairs {
		drop[pair{p.Source, p.Destination}] = struct{}{}
	}
	return c.removeWhere(func(m MappingConfig) bool {
		_, ok := drop[pair{m.Source, m.Destination}]
		return ok
	})
}

func (c *Config) removeWhere(match func(MappingConfig) bool) int {
	kept := c.Mappings[:0]
	removed := 0
	for _, m := range c.Mappings {
		if match(m) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	c.Mappings = kept
	return removed
}
