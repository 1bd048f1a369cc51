// YouTube Music API [DestinationCatalog] implementation
//
// Communicates with the FastAPI proxy server (music/) running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

const (
	defaultYTBaseURL string = "http://localhost:8080"

	ytStatusSucceeded = "STATUS_SUCCEEDED"
)

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	DurationSec int             `json:"duration_seconds"`
	SetVideoID  string          `json:"setVideoId,omitempty"` // For playlist operations
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	TrackCount int            `json:"trackCount"`
	Tracks     []YouTubeTrack `json:"tracks,omitempty"`
}

type youtubeEditResult struct {
	VideoID    string `json:"videoId"`
	SetVideoID string `json:"setVideoId"`
}

type youtubeEditResponse struct {
	Status              string              `json:"status"`
	PlaylistEditResults []youtubeEditResult `json:"playlistEditResults"`
}

// YouTubeService talks to YouTube Music through the local proxy.
type YouTubeService struct {
	opts     clientOptions
	authFile string
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(cfg shared.YouTubeConfig, opts ...Option) *YouTubeService {
	baseURL := cfg.ProxyURL
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		opts:     applyOptions(baseURL, opts),
		authFile: cfg.HeadersPath,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Authenticate stores the authentication file path for subsequent requests.
//
// Expects credentials["auth_file"] to contain the path to browser.json or oauth.json.
func (y *YouTubeService) Authenticate(_ context.Context, credentials map[string]string) error {
	authFile := credentials["auth_file"]
	if authFile == "" {
		return fmt.Errorf("%w: missing auth_file in credentials", shared.ErrMissingCredentials)
	}

	y.authFile = authFile
	return nil
}

// CheckAuth verifies the proxy is reachable and accepts the configured credentials.
//
// Calls GET /health on the proxy.
func (y *YouTubeService) CheckAuth(ctx context.Context) error {
	return y.doRequest(ctx, "youtube.health", http.MethodGet, "/health", nil, nil)
}

// FetchPlaylistContents returns the tracks currently in a playlist.
//
// Calls GET /api/playlists/{id}?limit=0 on the proxy; a zero limit asks for every track. A listing
// shorter than the reported trackCount is a MALFORMED error.
func (y *YouTubeService) FetchPlaylistContents(ctx context.Context, playlistID string) (models.PlaylistContents, error) {
	var playlist YouTubePlaylist
	endpoint := "/api/playlists/" + url.PathEscape(playlistID) + "?limit=0"
	if err := y.doRequest(ctx, "youtube.playlist", http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	if playlist.TrackCount > len(playlist.Tracks) {
		return nil, shared.NewServiceError(shared.KindMalformed, "youtube.playlist", 0,
			fmt.Errorf("%w: playlist %s reports %d tracks but listed %d",
				shared.ErrMalformedResponse, playlistID, playlist.TrackCount, len(playlist.Tracks)))
	}

	contents := make(models.PlaylistContents, 0, len(playlist.Tracks))
	for i, t := range playlist.Tracks {
		if t.VideoID == "" {
			continue
		}
		contents = append(contents, models.DestinationCandidate{
			ID:      t.VideoID,
			Title:   t.Title,
			Artists: artistNames(t.Artists),
			Rank:    i,
		})
	}
	return contents, nil
}

// Search returns ranked song candidates for query, best first.
//
// Calls GET /api/search?q={query}&filter=songs&limit={limit} on the proxy.
func (y *YouTubeService) Search(ctx context.Context, query string, limit int) ([]models.DestinationCandidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "songs")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var results []YouTubeTrack
	if err := y.doRequest(ctx, "youtube.search", http.MethodGet, "/api/search?"+params.Encode(), nil, &results); err != nil {
		return nil, err
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	candidates := make([]models.DestinationCandidate, 0, len(results))
	for i, r := range results {
		candidates = append(candidates, models.DestinationCandidate{
			ID:      r.VideoID,
			Title:   r.Title,
			Artists: artistNames(r.Artists),
			Rank:    i,
		})
	}
	return candidates, nil
}

func artistNames(artists []YouTubeArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// AddTracks appends videoIDs to a playlist and reports the outcome per ID.
//
// Calls POST /api/playlists/{id}/items on the proxy. A whole-request failure is returned as an
// error; IDs the proxy did not confirm are reported with OK false.
func (y *YouTubeService) AddTracks(ctx context.Context, playlistID string, videoIDs []string) ([]AddResult, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}

	body := struct {
		VideoIDs []string `json:"video_ids"`
	}{VideoIDs: videoIDs}

	var resp youtubeEditResponse
	endpoint := "/api/playlists/" + url.PathEscape(playlistID) + "/items"
	if err := y.doRequest(ctx, "youtube.add_items", http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "" && resp.Status != ytStatusSucceeded {
		return nil, shared.NewServiceError(shared.KindMalformed, "youtube.add_items", 0,
			fmt.Errorf("%w: status %s", shared.ErrAPIRequest, resp.Status))
	}

	confirmed := make(map[string]bool, len(resp.PlaylistEditResults))
	for _, r := range resp.PlaylistEditResults {
		confirmed[r.VideoID] = true
	}

	results := make([]AddResult, len(videoIDs))
	for i, id := range videoIDs {
		results[i] = AddResult{ID: id, OK: true}
		if len(resp.PlaylistEditResults) > 0 && !confirmed[id] {
			results[i] = AddResult{ID: id, Err: fmt.Errorf("%w: %s not confirmed", shared.ErrAPIRequest, id)}
		}
	}
	return results, nil
}

func (y *YouTubeService) doRequest(ctx context.Context, op, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return shared.Retry(ctx, y.opts.retry, func() error {
		if y.opts.limiter != nil {
			if err := y.opts.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return y.send(ctx, op, method, y.opts.baseURL+endpoint, payload, result)
	})
}

func (y *YouTubeService) send(ctx context.Context, op, method, apiURL string, payload []byte, result any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.opts.httpClient.Do(req)
	if err != nil {
		return shared.TransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		detail := ""
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errResp) == nil {
			detail = errResp.Detail
		}
		return shared.StatusError(op, resp.StatusCode, detail)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return shared.NewServiceError(shared.KindMalformed, op, resp.StatusCode, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err))
		}
	}

	return nil
}
