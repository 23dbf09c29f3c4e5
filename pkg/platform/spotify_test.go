package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"tunebridge/internal/core"
)

func newTestSpotifyAdapter() *SpotifyAdapter {
	return NewSpotifyAdapter(&core.SpotifyConfig{}, zap.NewNop())
}

func TestSpotifyAdapter_CanResolve(t *testing.T) {
	adapter := newTestSpotifyAdapter()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Standard track URL",
			url:      "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT",
			expected: true,
		},
		{
			name:     "Track URL with query suffix",
			url:      "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT?si=abc123",
			expected: true,
		},
		{
			name:     "Regional path segment",
			url:      "https://open.spotify.com/intl-de/track/4cOdK2wGLETKBW3PvgPWqT",
			expected: true,
		},
		{
			name:     "Spotify URI",
			url:      "spotify:track:4cOdK2wGLETKBW3PvgPWqT",
			expected: true,
		},
		{
			name:     "Short link domain",
			url:      "https://spotify.link/abc123",
			expected: true,
		},
		{
			name:     "Deezer URL",
			url:      "https://www.deezer.com/track/3135556",
			expected: false,
		},
		{
			name:     "Unrelated URL",
			url:      "https://example.com/track/123",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adapter.CanResolve(tt.url)
			if result != tt.expected {
				t.Errorf("CanResolve(%q) = %v, want %v", tt.url, result, tt.expected)
			}
		})
	}
}

func TestSpotifyAdapter_ParseTrackID(t *testing.T) {
	adapter := newTestSpotifyAdapter()

	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "Standard track URL",
			url:      "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT",
			expected: "4cOdK2wGLETKBW3PvgPWqT",
		},
		{
			name:     "Query suffix stripped",
			url:      "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT?si=xyz&context=playlist",
			expected: "4cOdK2wGLETKBW3PvgPWqT",
		},
		{
			name:     "Regional path segment",
			url:      "https://open.spotify.com/intl-de/track/4cOdK2wGLETKBW3PvgPWqT",
			expected: "4cOdK2wGLETKBW3PvgPWqT",
		},
		{
			name:     "Spotify URI",
			url:      "spotify:track:4cOdK2wGLETKBW3PvgPWqT",
			expected: "4cOdK2wGLETKBW3PvgPWqT",
		},
		{
			name:     "Album URL has no track id",
			url:      "https://open.spotify.com/album/6XzyAEfoTcvhPu7rXrurph",
			expected: "",
		},
		{
			name:     "Unrelated URL",
			url:      "https://example.com/foo",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := adapter.ParseTrackID(context.Background(), tt.url)
			if err != nil {
				t.Fatalf("ParseTrackID() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("ParseTrackID(%q) = %q, want %q", tt.url, result, tt.expected)
			}
		})
	}
}

func TestSpotifyAdapter_CanonicalURL(t *testing.T) {
	adapter := newTestSpotifyAdapter()

	expected := "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT"
	if got := adapter.CanonicalURL("4cOdK2wGLETKBW3PvgPWqT"); got != expected {
		t.Errorf("CanonicalURL() = %q, want %q", got, expected)
	}
}

func TestSpotifyAdapter_ClientSurvivesCancelledRequestContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/token":
			w.Write([]byte(`{"access_token": "token", "token_type": "Bearer", "expires_in": 3600}`))
		case "/v1/tracks/4cOdK2wGLETKBW3PvgPWqT":
			w.Write([]byte(`{
				"id": "4cOdK2wGLETKBW3PvgPWqT",
				"name": "Never Gonna Give You Up",
				"artists": [{"name": "Rick Astley"}],
				"album": {"name": "Whenever You Need Somebody", "release_date": "1987-07-27"},
				"duration_ms": 213000,
				"external_ids": {"isrc": "GBARL0700477"},
				"external_urls": {"spotify": "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT"}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := NewSpotifyAdapter(&core.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, zap.NewNop())
	adapter.tokenURL = server.URL + "/api/token"
	adapter.apiURL = server.URL + "/v1/"

	// A dead request context must not fail anything beyond its own call.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := adapter.FetchByID(cancelled, "4cOdK2wGLETKBW3PvgPWqT"); err == nil {
		t.Fatal("FetchByID() with cancelled context succeeded")
	}

	info, err := adapter.FetchByID(context.Background(), "4cOdK2wGLETKBW3PvgPWqT")
	if err != nil {
		t.Fatalf("FetchByID() after cancelled caller error = %v", err)
	}
	if info == nil {
		t.Fatal("FetchByID() returned nil track")
	}
	if info.Title != "Never Gonna Give You Up" {
		t.Errorf("Title = %q", info.Title)
	}
	if info.ISRC != "GBARL0700477" {
		t.Errorf("ISRC = %q", info.ISRC)
	}
}

func TestSpotifyAdapter_MissingCredentials(t *testing.T) {
	adapter := newTestSpotifyAdapter()

	_, err := adapter.FetchByID(context.Background(), "4cOdK2wGLETKBW3PvgPWqT")

	var authErr *core.AuthError
	if err == nil {
		t.Fatal("FetchByID() with no credentials succeeded, want AuthError")
	}
	if !errors.As(err, &authErr) {
		t.Fatalf("FetchByID() error = %v, want AuthError", err)
	}
	if authErr.Platform != core.PlatformSpotify {
		t.Errorf("AuthError.Platform = %q, want %q", authErr.Platform, core.PlatformSpotify)
	}
}
