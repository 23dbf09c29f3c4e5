package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"tunebridge/internal/core"
	"tunebridge/pkg/fuzzy"
)

const (
	// spotifyTrackURLFormat is the canonical track URL pattern.
	spotifyTrackURLFormat = "https://open.spotify.com/track/%s"
	// spotifySearchLimit caps the raw results considered by the matcher.
	spotifySearchLimit = 10
	// releaseDateYearLength is the expected length of a release year string.
	releaseDateYearLength = 4
)

var (
	spotifyTrackRegex = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/(?:[a-z]{2}(?:-[A-Z]{2})?/)?track/([a-zA-Z0-9]+)`)
	spotifyURIRegex   = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
)

// SpotifyAdapter talks to the Spotify Web API using the client-credentials
// flow. The underlying oauth2 transport caches the bearer token and
// refreshes it once per expiry, safe under concurrent use.
type SpotifyAdapter struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string
	maxRedirects int
	httpClient   *http.Client
	normalizer   *fuzzy.Normalizer
	logger       *zap.Logger

	mu     sync.Mutex
	client *spotify.Client
}

func NewSpotifyAdapter(config *core.SpotifyConfig, logger *zap.Logger) *SpotifyAdapter {
	return &SpotifyAdapter{
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		tokenURL:     spotifyauth.TokenURL,
		maxRedirects: defaultMaxRedirects,
		httpClient:   newHTTPClient(),
		normalizer:   fuzzy.NewNormalizer(),
		logger:       logger,
	}
}

func (a *SpotifyAdapter) Platform() core.Platform {
	return core.PlatformSpotify
}

// CanResolve checks if the URL belongs to Spotify's domain set.
func (a *SpotifyAdapter) CanResolve(rawURL string) bool {
	if spotifyURIRegex.MatchString(rawURL) {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Hostname()) {
	case "open.spotify.com", "spotify.com", "www.spotify.com", "play.spotify.com", "spotify.link":
		return true
	}
	return false
}

// ParseTrackID extracts the 22-character track id, resolving spotify.link
// short URLs through their redirect chain first.
func (a *SpotifyAdapter) ParseTrackID(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)

	if matches := spotifyURIRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	if matches := spotifyTrackRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil
	}

	if strings.ToLower(u.Hostname()) == "spotify.link" {
		resolved, err := resolveRedirects(ctx, a.httpClient, rawURL, a.maxRedirects)
		if err != nil {
			a.logger.Debug("Failed to resolve Spotify short link",
				zap.String("url", rawURL), zap.Error(err))
			return "", nil
		}
		if matches := spotifyTrackRegex.FindStringSubmatch(resolved); len(matches) > 1 {
			return matches[1], nil
		}
	}

	return "", nil
}

func (a *SpotifyAdapter) FetchByID(ctx context.Context, id string) (*core.TrackInfo, error) {
	client, err := a.ensureClient()
	if err != nil {
		return nil, err
	}

	track, err := client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, a.classifyError(err)
	}
	if track == nil {
		return nil, nil
	}

	return a.convertTrack(track), nil
}

func (a *SpotifyAdapter) SearchByCode(ctx context.Context, isrc string) (*core.TrackInfo, error) {
	client, err := a.ensureClient()
	if err != nil {
		return nil, err
	}

	results, err := client.Search(ctx, "isrc:"+isrc, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, a.classifyError(err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, nil
	}

	return a.convertTrack(&results.Tracks.Tracks[0]), nil
}

func (a *SpotifyAdapter) SearchByText(ctx context.Context, artist, title string) (*core.TrackInfo, error) {
	client, err := a.ensureClient()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("artist:%s track:%s", artist, title)
	results, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(spotifySearchLimit))
	if err != nil {
		return nil, a.classifyError(err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, nil
	}

	tracks := results.Tracks.Tracks
	candidates := make([]fuzzy.Candidate, len(tracks))
	for i := range tracks {
		candidates[i] = fuzzy.Candidate{
			Artist: joinArtists(&tracks[i]),
			Title:  tracks[i].Name,
		}
	}

	best := a.normalizer.BestMatch(candidates, artist, title, fuzzy.EditDistanceScorer)
	if best < 0 {
		return nil, nil
	}
	return a.convertTrack(&tracks[best]), nil
}

func (a *SpotifyAdapter) CanonicalURL(id string) string {
	return fmt.Sprintf(spotifyTrackURLFormat, id)
}

// ensureClient lazily builds the API client. Missing credentials surface
// as an AuthError on first use rather than at construction.
func (a *SpotifyAdapter) ensureClient() (*spotify.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	if a.clientID == "" || a.clientSecret == "" {
		return nil, &core.AuthError{
			Platform: core.PlatformSpotify,
			Reason:   "client credentials are missing",
		}
	}

	config := &clientcredentials.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		TokenURL:     a.tokenURL,
	}

	// The token source refreshes bearer tokens for the life of the
	// process; it must not inherit any single request's context.
	httpClient := config.Client(context.Background())

	opts := []spotify.ClientOption{spotify.WithRetry(false)}
	if a.apiURL != "" {
		opts = append(opts, spotify.WithBaseURL(a.apiURL))
	}

	a.client = spotify.New(httpClient, opts...)
	return a.client, nil
}

func (a *SpotifyAdapter) classifyError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return &core.AuthError{
				Platform: core.PlatformSpotify,
				Reason:   apiErr.Message,
			}
		}
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			// Treated as "no result" upstream.
			return nil
		}
		return &core.TransientError{
			Platform: core.PlatformSpotify,
			Status:   apiErr.Status,
			Err:      err,
		}
	}
	return &core.TransientError{Platform: core.PlatformSpotify, Err: err}
}

func (a *SpotifyAdapter) convertTrack(track *spotify.FullTrack) *core.TrackInfo {
	var year int
	if len(track.Album.ReleaseDate) >= releaseDateYearLength {
		if _, err := fmt.Sscanf(track.Album.ReleaseDate[:releaseDateYearLength], "%d", &year); err != nil {
			year = 0
		}
	}

	canonicalURL := track.ExternalURLs["spotify"]
	if canonicalURL == "" {
		canonicalURL = a.CanonicalURL(string(track.ID))
	}

	return &core.TrackInfo{
		ISRC:         track.ExternalIDs["isrc"],
		Title:        track.Name,
		Artist:       joinArtists(track),
		Album:        track.Album.Name,
		DurationSecs: track.Duration / 1000,
		ReleaseYear:  year,
		Platform:     core.PlatformSpotify,
		PlatformID:   string(track.ID),
		URL:          canonicalURL,
	}
}

func joinArtists(track *spotify.FullTrack) string {
	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}
