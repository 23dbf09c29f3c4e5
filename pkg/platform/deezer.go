package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tunebridge/internal/core"
	"tunebridge/pkg/fuzzy"
)

const (
	// deezerAPIBaseURL is the public Deezer API, no authentication needed.
	deezerAPIBaseURL = "https://api.deezer.com"
	// deezerTrackURLFormat is the canonical track URL pattern.
	deezerTrackURLFormat = "https://www.deezer.com/track/%s"
)

var deezerTrackRegex = regexp.MustCompile(`deezer\.com/(?:\w+/)?track/(\d+)`)

// DeezerAdapter talks to the public Deezer API.
type DeezerAdapter struct {
	baseURL      string
	maxRedirects int
	httpClient   *http.Client
	normalizer   *fuzzy.Normalizer
	logger       *zap.Logger
}

func NewDeezerAdapter(logger *zap.Logger) *DeezerAdapter {
	return &DeezerAdapter{
		baseURL:      deezerAPIBaseURL,
		maxRedirects: defaultMaxRedirects,
		httpClient:   newHTTPClient(),
		normalizer:   fuzzy.NewNormalizer(),
		logger:       logger,
	}
}

// deezerTrack is the subset of Deezer's track payload the adapter reads.
type deezerTrack struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	ISRC     string `json:"isrc"`
	Duration int    `json:"duration"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type deezerSearchResponse struct {
	Data []deezerTrack `json:"data"`
}

func (a *DeezerAdapter) Platform() core.Platform {
	return core.PlatformDeezer
}

// CanResolve checks if the URL belongs to Deezer's domain set, including
// the short-link hosts.
func (a *DeezerAdapter) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Hostname()) {
	case "deezer.com", "www.deezer.com", "deezer.page.link", "dzr.page.link", "link.deezer.com":
		return true
	}
	return false
}

// ParseTrackID extracts the numeric track id, following short-link
// redirect chains for dzr.page.link and link.deezer.com URLs.
func (a *DeezerAdapter) ParseTrackID(ctx context.Context, rawURL string) (string, error) {
	if matches := deezerTrackRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil
	}

	switch strings.ToLower(u.Hostname()) {
	case "dzr.page.link", "deezer.page.link", "link.deezer.com":
		resolved, err := resolveRedirects(ctx, a.httpClient, rawURL, a.maxRedirects)
		if err != nil {
			a.logger.Debug("Failed to resolve Deezer short link",
				zap.String("url", rawURL), zap.Error(err))
			return "", nil
		}
		if matches := deezerTrackRegex.FindStringSubmatch(resolved); len(matches) > 1 {
			return matches[1], nil
		}
	}

	return "", nil
}

func (a *DeezerAdapter) FetchByID(ctx context.Context, id string) (*core.TrackInfo, error) {
	var track deezerTrack
	found, err := getJSON(ctx, a.httpClient, a.baseURL+"/track/"+url.PathEscape(id), core.PlatformDeezer, &track)
	if err != nil {
		return nil, err
	}
	if !found || track.Error != nil || track.ID == 0 {
		return nil, nil
	}

	return a.convertTrack(&track), nil
}

func (a *DeezerAdapter) SearchByCode(ctx context.Context, isrc string) (*core.TrackInfo, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("isrc:%q", isrc))

	var resp deezerSearchResponse
	found, err := getJSON(ctx, a.httpClient, a.baseURL+"/search/track?"+query.Encode(), core.PlatformDeezer, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Data) == 0 {
		return nil, nil
	}

	info := a.convertTrack(&resp.Data[0])
	if info.ISRC == "" {
		// Search payloads omit the ISRC field.
		info.ISRC = isrc
	}
	return info, nil
}

func (a *DeezerAdapter) SearchByText(ctx context.Context, artist, title string) (*core.TrackInfo, error) {
	query := url.Values{}
	query.Set("q", strings.ReplaceAll(artist+" "+title, `"`, ""))

	var resp deezerSearchResponse
	found, err := getJSON(ctx, a.httpClient, a.baseURL+"/search/track?"+query.Encode(), core.PlatformDeezer, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Data) == 0 {
		return nil, nil
	}

	candidates := make([]fuzzy.Candidate, len(resp.Data))
	for i := range resp.Data {
		candidates[i] = fuzzy.Candidate{
			Artist: resp.Data[i].Artist.Name,
			Title:  resp.Data[i].Title,
		}
	}

	best := a.normalizer.BestMatch(candidates, artist, title, fuzzy.EditDistanceScorer)
	if best < 0 {
		return nil, nil
	}
	return a.convertTrack(&resp.Data[best]), nil
}

func (a *DeezerAdapter) CanonicalURL(id string) string {
	return fmt.Sprintf(deezerTrackURLFormat, id)
}

func (a *DeezerAdapter) convertTrack(track *deezerTrack) *core.TrackInfo {
	id := strconv.FormatInt(track.ID, 10)

	var year int
	if len(track.Album.ReleaseDate) >= releaseDateYearLength {
		year, _ = strconv.Atoi(track.Album.ReleaseDate[:releaseDateYearLength])
	}

	canonicalURL := track.Link
	if canonicalURL == "" {
		canonicalURL = a.CanonicalURL(id)
	}

	return &core.TrackInfo{
		ISRC:         track.ISRC,
		Title:        track.Title,
		Artist:       track.Artist.Name,
		Album:        track.Album.Title,
		DurationSecs: track.Duration,
		ReleaseYear:  year,
		Platform:     core.PlatformDeezer,
		PlatformID:   id,
		URL:          canonicalURL,
	}
}
