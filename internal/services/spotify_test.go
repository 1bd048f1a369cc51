package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/shared"
)

func fastRetry() shared.RetryConfig {
	cfg := shared.DefaultRetryConfig()
	cfg.MaxRetries = 2
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func testSpotifyConfig() shared.SpotifyConfig {
	return shared.SpotifyConfig{ClientID: "test_client_id", ClientSecret: "test_client_secret"}
}

func newTestSpotify(t *testing.T, baseURL string) *SpotifyService {
	t.Helper()
	svc, err := NewSpotifyService(testSpotifyConfig(), WithBaseURL(baseURL), WithRetry(fastRetry()))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := svc.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testSpotifyConfig())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientID: "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, _ := NewSpotifyService(testSpotifyConfig())

		t.Run("Without Token", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})

		t.Run("With Refresh Token", func(t *testing.T) {
			if err := srv.Authenticate(context.Background(), map[string]string{"refresh_token": "r"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.httpClient == nil {
				t.Error("expected authorized client")
			}
		})

		t.Run("Fetch Before Authenticate", func(t *testing.T) {
			fresh, _ := NewSpotifyService(testSpotifyConfig())
			_, err := fresh.FetchPlaylistTracks(context.Background(), "37i9dQZF1DXcBWIGoYBM5M")
			if shared.KindOf(err) != shared.KindAuthFailure {
				t.Errorf("expected auth failure, got %v", err)
			}
		})
	})

	t.Run("FetchPlaylistTracks", func(t *testing.T) {
		t.Run("Follows Pagination", func(t *testing.T) {
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer test_token" {
					t.Errorf("expected bearer token, got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")

				if r.URL.Query().Get("offset") == "" {
					next := fmt.Sprintf("%s/playlists/pl1/tracks?offset=2&limit=100", server.URL)
					json.NewEncoder(w).Encode(map[string]any{
						"items": []map[string]any{
							{"track": map[string]any{
								"id": "t1", "name": "Yesterday", "type": "track",
								"artists": []map[string]any{{"name": "The Beatles"}},
								"album":   map[string]any{"name": "Help!"},
							}},
							{"track": nil},
						},
						"total": 4,
						"next":  next,
					})
					return
				}

				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						{"track": map[string]any{"id": "ep1", "name": "Podcast", "type": "episode"}},
						{"track": map[string]any{
							"id": "", "name": "Home Demo", "type": "track", "is_local": true,
							"artists": []map[string]any{{"name": "Me"}, {"name": "You"}},
						}},
					},
					"total": 4,
					"next":  nil,
				})
			}))
			defer server.Close()

			svc := newTestSpotify(t, server.URL)
			tracks, err := svc.FetchPlaylistTracks(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}

			first := tracks[0]
			if first.ID != "t1" || first.Title != "Yesterday" || first.Album != "Help!" || first.PlaylistID != "pl1" {
				t.Errorf("unexpected first track: %+v", first)
			}
			if first.PrimaryArtist() != "The Beatles" {
				t.Errorf("expected primary artist The Beatles, got %s", first.PrimaryArtist())
			}

			local := tracks[1]
			if local.ID != "" || !local.Malformed() {
				t.Errorf("expected local track to be malformed, got %+v", local)
			}
			if len(local.Artists) != 2 {
				t.Errorf("expected all artists kept, got %v", local.Artists)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":{"status":404,"message":"Resource not found"}}`))
			}))
			defer server.Close()

			_, err := newTestSpotify(t, server.URL).FetchPlaylistTracks(context.Background(), "missing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
			if shared.KindOf(err) != shared.KindNotFound {
				t.Errorf("expected NOT_FOUND kind, got %s", shared.KindOf(err))
			}
		})

		t.Run("Retries Server Errors", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.Write([]byte(`{"items":[],"next":null}`))
			}))
			defer server.Close()

			tracks, err := newTestSpotify(t, server.URL).FetchPlaylistTracks(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("expected retry to succeed, got %v", err)
			}
			if len(tracks) != 0 || calls.Load() != 2 {
				t.Errorf("expected 2 calls and no tracks, got %d calls and %d tracks", calls.Load(), len(tracks))
			}
		})

		t.Run("Expired Token Is Not Retried", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
			}))
			defer server.Close()

			_, err := newTestSpotify(t, server.URL).FetchPlaylistTracks(context.Background(), "pl1")
			if shared.KindOf(err) != shared.KindAuthFailure {
				t.Errorf("expected auth failure, got %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("expected a single call, got %d", calls.Load())
			}
		})

		t.Run("Malformed Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"items": [`))
			}))
			defer server.Close()

			_, err := newTestSpotify(t, server.URL).FetchPlaylistTracks(context.Background(), "pl1")
			if !errors.Is(err, shared.ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	})

	t.Run("PlaylistName", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"name":"Road Trip"}`))
		}))
		defer server.Close()

		name, err := newTestSpotify(t, server.URL).PlaylistName(context.Background(), "pl1")
		if err != nil || name != "Road Trip" {
			t.Errorf("expected Road Trip, got %q (%v)", name, err)
		}
	})
}
