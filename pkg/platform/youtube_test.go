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

func newTestYouTubeAdapter(apiKey string) *YouTubeAdapter {
	return NewYouTubeAdapter(&core.YouTubeConfig{APIKey: apiKey}, zap.NewNop())
}

func TestYouTubeAdapter_CanResolve(t *testing.T) {
	adapter := newTestYouTubeAdapter("key")

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Music watch URL",
			url:      "https://music.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: true,
		},
		{
			name:     "Plain watch URL",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: true,
		},
		{
			name:     "Mobile host",
			url:      "https://m.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: true,
		},
		{
			name:     "Short link",
			url:      "https://youtu.be/dQw4w9WgXcQ",
			expected: true,
		},
		{
			name:     "Spotify URL",
			url:      "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT",
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

func TestYouTubeAdapter_ParseTrackID(t *testing.T) {
	adapter := newTestYouTubeAdapter("key")

	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "Music watch URL",
			url:      "https://music.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: "dQw4w9WgXcQ",
		},
		{
			name:     "Watch URL with leading params",
			url:      "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ",
			expected: "dQw4w9WgXcQ",
		},
		{
			name:     "Watch URL with trailing params",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
			expected: "dQw4w9WgXcQ",
		},
		{
			name:     "Short link",
			url:      "https://youtu.be/dQw4w9WgXcQ",
			expected: "dQw4w9WgXcQ",
		},
		{
			name:     "Short link with query",
			url:      "https://youtu.be/dQw4w9WgXcQ?si=abc",
			expected: "dQw4w9WgXcQ",
		},
		{
			name:     "Playlist URL has no video id",
			url:      "https://www.youtube.com/playlist?list=PL123",
			expected: "",
		},
		{
			name:     "Unrelated URL",
			url:      "https://example.com/watch?v=abc",
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

func TestYouTubeAdapter_MissingAPIKey(t *testing.T) {
	adapter := newTestYouTubeAdapter("")

	_, err := adapter.FetchByID(context.Background(), "dQw4w9WgXcQ")

	var authErr *core.AuthError
	if err == nil {
		t.Fatal("FetchByID() with no API key succeeded, want AuthError")
	}
	if !errors.As(err, &authErr) {
		t.Fatalf("FetchByID() error = %v, want AuthError", err)
	}
	if authErr.Platform != core.PlatformYouTubeMusic {
		t.Errorf("AuthError.Platform = %q, want %q", authErr.Platform, core.PlatformYouTubeMusic)
	}
}

func TestYouTubeAdapter_FetchByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in request %q", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [{
			"id": "dQw4w9WgXcQ",
			"snippet": {
				"title": "Rick Astley - Never Gonna Give You Up (Official Music Video)",
				"channelTitle": "Rick Astley",
				"publishedAt": "2009-10-25T06:57:33Z"
			},
			"contentDetails": {"duration": "PT3M33S"}
		}]}`))
	}))
	defer server.Close()

	adapter := newTestYouTubeAdapter("test-key")
	adapter.baseURL = server.URL

	info, err := adapter.FetchByID(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("FetchByID() error = %v", err)
	}
	if info == nil {
		t.Fatal("FetchByID() returned nil track")
	}

	if info.Artist != "Rick Astley" {
		t.Errorf("Artist = %q", info.Artist)
	}
	if info.Title != "Never Gonna Give You Up" {
		t.Errorf("Title = %q", info.Title)
	}
	if info.DurationSecs != 213 {
		t.Errorf("DurationSecs = %d", info.DurationSecs)
	}
	if info.ReleaseYear != 2009 {
		t.Errorf("ReleaseYear = %d", info.ReleaseYear)
	}
	if info.URL != "https://music.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("URL = %q", info.URL)
	}
}

func TestYouTubeAdapter_SearchByText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(`{"items": [
				{
					"id": {"videoId": "cover123"},
					"snippet": {
						"title": "Never Gonna Give You Up - Piano Cover",
						"channelTitle": "Piano Covers Daily"
					}
				},
				{
					"id": {"videoId": "dQw4w9WgXcQ"},
					"snippet": {
						"title": "Rick Astley - Never Gonna Give You Up (Official Music Video)",
						"channelTitle": "Rick Astley"
					}
				}
			]}`))
		case "/videos":
			if got := r.URL.Query().Get("id"); got != "dQw4w9WgXcQ" {
				t.Errorf("fetched video %q, want the official upload", got)
			}
			w.Write([]byte(`{"items": [{
				"id": "dQw4w9WgXcQ",
				"snippet": {
					"title": "Rick Astley - Never Gonna Give You Up (Official Music Video)",
					"channelTitle": "Rick Astley",
					"publishedAt": "2009-10-25T06:57:33Z"
				},
				"contentDetails": {"duration": "PT3M33S"}
			}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := newTestYouTubeAdapter("test-key")
	adapter.baseURL = server.URL

	info, err := adapter.SearchByText(context.Background(), "Rick Astley", "Never Gonna Give You Up")
	if err != nil {
		t.Fatalf("SearchByText() error = %v", err)
	}
	if info == nil {
		t.Fatal("SearchByText() returned nil track")
	}
	if info.PlatformID != "dQw4w9WgXcQ" {
		t.Errorf("PlatformID = %q", info.PlatformID)
	}
}

func TestSplitVideoTitle(t *testing.T) {
	tests := []struct {
		name           string
		full           string
		expectedArtist string
		expectedTitle  string
	}{
		{
			name:           "Artist dash title",
			full:           "Rick Astley - Never Gonna Give You Up",
			expectedArtist: "Rick Astley",
			expectedTitle:  "Never Gonna Give You Up",
		},
		{
			name:           "Official video suffix stripped",
			full:           "Rick Astley - Never Gonna Give You Up (Official Music Video)",
			expectedArtist: "Rick Astley",
			expectedTitle:  "Never Gonna Give You Up",
		},
		{
			name:           "Bracketed audio suffix stripped",
			full:           "Daft Punk - Get Lucky [Official Audio]",
			expectedArtist: "Daft Punk",
			expectedTitle:  "Get Lucky",
		},
		{
			name:           "No separator",
			full:           "Never Gonna Give You Up",
			expectedArtist: "",
			expectedTitle:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artist, title := splitVideoTitle(tt.full)
			if artist != tt.expectedArtist || title != tt.expectedTitle {
				t.Errorf("splitVideoTitle(%q) = (%q, %q), want (%q, %q)",
					tt.full, artist, title, tt.expectedArtist, tt.expectedTitle)
			}
		})
	}
}

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		duration string
		expected int
	}{
		{"PT3M33S", 213},
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT10M", 600},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			if got := parseISO8601Duration(tt.duration); got != tt.expected {
				t.Errorf("parseISO8601Duration(%q) = %d, want %d", tt.duration, got, tt.expected)
			}
		})
	}
}

func TestKeywordScorer(t *testing.T) {
	exact := keywordScorer("rick astley", "never gonna give you up", "rick astley", "never gonna give you up")
	partial := keywordScorer("piano covers daily", "never gonna give you up piano cover", "rick astley", "never gonna give you up")

	if exact >= partial {
		t.Errorf("exact match score %d should beat partial score %d", exact, partial)
	}
	if exact != 0 {
		t.Errorf("exact match score = %d, want 0", exact)
	}
}
