// Spotify Web API [SourceCatalog] implementation
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageSize = 100
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"` // track or episode
	IsLocal bool            `json:"is_local"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
// Track is nil for items that are no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of /playlists/{id}/tracks.
type SpotifyPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService reads playlists from the Spotify Web API.
type SpotifyService struct {
	config     *oauth2.Config
	opts       clientOptions
	httpClient *http.Client
}

// NewSpotifyService creates a Spotify client. Call [SpotifyService.Authenticate] before fetching.
func NewSpotifyService(cfg shared.SpotifyConfig, opts ...Option) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"playlist-read-private", "playlist-read-collaborative"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		opts: applyOptions(spotifyBaseURL, opts),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate prepares an authorized HTTP client.
//
// Expects either credentials["access_token"] or credentials["refresh_token"]. A refresh token
// yields a client that renews access tokens automatically.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	// Token refreshes outlive the caller's context and go through the configured transport.
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, s.opts.httpClient)

	var ts oauth2.TokenSource
	switch {
	case credentials["access_token"] != "":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credentials["access_token"], TokenType: "Bearer"})
	case credentials["refresh_token"] != "":
		ts = s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: credentials["refresh_token"]})
	default:
		return fmt.Errorf("%w: missing access_token or refresh_token", shared.ErrNoRefreshToken)
	}

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = s.opts.httpClient.Timeout
	s.httpClient = client
	return nil
}

// FetchPlaylistTracks pages through a playlist and returns its music tracks in order.
// Unavailable items and podcast episodes are dropped; local files are kept with an empty ID.
func (s *SpotifyService) FetchPlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), spotifyPageSize)

	var tracks []models.SourceTrack
	for endpoint != "" {
		var page SpotifyPlaylistTracks
		if err := s.doRequest(ctx, "spotify.playlist_tracks", endpoint, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.Type == "episode" {
				continue
			}
			tracks = append(tracks, toSourceTrack(playlistID, *item.Track))
		}

		endpoint = ""
		if page.Next != nil {
			endpoint = *page.Next
		}
	}

	return tracks, nil
}

// PlaylistName returns the display name of a playlist.
func (s *SpotifyService) PlaylistName(ctx context.Context, playlistID string) (string, error) {
	var playlist struct {
		Name string `json:"name"`
	}
	endpoint := fmt.Sprintf("/playlists/%s?fields=name", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, "spotify.playlist", endpoint, &playlist); err != nil {
		return "", err
	}
	return playlist.Name, nil
}

func toSourceTrack(playlistID string, t SpotifyTrack) models.SourceTrack {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	id := t.ID
	if t.IsLocal {
		id = ""
	}

	return models.SourceTrack{
		ID:         id,
		Title:      t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		PlaylistID: playlistID,
	}
}

// doRequest performs an authenticated GET with retries. endpoint may be absolute (pagination links).
func (s *SpotifyService) doRequest(ctx context.Context, op, endpoint string, result any) error {
	if s.httpClient == nil {
		return shared.NewServiceError(shared.KindAuthFailure, op, 0, shared.ErrNotAuthenticated)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.opts.baseURL + endpoint
	}

	return shared.Retry(ctx, s.opts.retry, func() error {
		return s.get(ctx, op, apiURL, result)
	})
}

func (s *SpotifyService) get(ctx context.Context, op, apiURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return shared.NewServiceError(shared.KindAuthFailure, op, status, fmt.Errorf("%w: %v", shared.ErrAuthFailed, re))
		}
		return shared.TransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr spotifyError
		msg := ""
		if json.Unmarshal(body, &apiErr) == nil {
			msg = apiErr.Error.Message
		}
		return shared.StatusError(op, resp.StatusCode, msg)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return shared.NewServiceError(shared.KindMalformed, op, resp.StatusCode, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err))
		}
	}

	return nil
}
