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
	// youtubeAPIBaseURL is the YouTube Data API, authenticated by API key.
	youtubeAPIBaseURL = "https://www.googleapis.com/youtube/v3"
	// youtubeTrackURLFormat is the canonical YouTube Music URL pattern.
	youtubeTrackURLFormat = "https://music.youtube.com/watch?v=%s"
	// youtubeMusicCategoryID restricts searches to the music category.
	youtubeMusicCategoryID = "10"
	// youtubeSearchResults caps the raw results considered by the matcher.
	youtubeSearchResults = 5
)

var (
	youtubeWatchRegex = regexp.MustCompile(`(?:music\.|www\.|m\.)?youtube\.com/watch\?(?:[^#\s]*&)?v=([a-zA-Z0-9_-]+)`)
	youtubeShortRegex = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]+)`)

	// Video titles usually follow "Artist - Title (Official ...)".
	videoTitleSplitRegex  = regexp.MustCompile(`^(.+?)\s+-\s+(.+)$`)
	videoTitleSuffixRegex = regexp.MustCompile(`(?i)\s*[\(\[](?:official\s+)?(?:music\s+video|lyric\s+video|video|audio|visualizer|lyrics|official)[\)\]]\s*$`)

	iso8601HoursRegex   = regexp.MustCompile(`(\d+)H`)
	iso8601MinutesRegex = regexp.MustCompile(`(\d+)M`)
	iso8601SecondsRegex = regexp.MustCompile(`(\d+)S`)
)

// YouTubeAdapter talks to the YouTube Data API and maps videos in the
// music category onto the normalized track shape. The API exposes no
// recording codes, so SearchByCode falls back to a plain keyword query.
type YouTubeAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewYouTubeAdapter(config *core.YouTubeConfig, logger *zap.Logger) *YouTubeAdapter {
	return &YouTubeAdapter{
		apiKey:     config.APIKey,
		baseURL:    youtubeAPIBaseURL,
		httpClient: newHTTPClient(),
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

type youtubeVideoResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

func (a *YouTubeAdapter) Platform() core.Platform {
	return core.PlatformYouTubeMusic
}

// CanResolve checks if the URL belongs to YouTube's domain set.
func (a *YouTubeAdapter) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Hostname()) {
	case "music.youtube.com", "youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be":
		return true
	}
	return false
}

// ParseTrackID extracts the video id from watch and youtu.be URL forms.
func (a *YouTubeAdapter) ParseTrackID(_ context.Context, rawURL string) (string, error) {
	if matches := youtubeWatchRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	if matches := youtubeShortRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1], nil
	}
	return "", nil
}

func (a *YouTubeAdapter) FetchByID(ctx context.Context, id string) (*core.TrackInfo, error) {
	if err := a.requireKey(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("id", id)
	query.Set("part", "snippet,contentDetails")
	query.Set("key", a.apiKey)

	var resp youtubeVideoResponse
	found, err := getJSON(ctx, a.httpClient, a.baseURL+"/videos?"+query.Encode(), core.PlatformYouTubeMusic, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Items) == 0 {
		return nil, nil
	}

	item := resp.Items[0]
	artist, title := splitVideoTitle(item.Snippet.Title)
	if artist == "" {
		artist = item.Snippet.ChannelTitle
	}
	if title == "" {
		title = item.Snippet.Title
	}

	var year int
	if len(item.Snippet.PublishedAt) >= releaseDateYearLength {
		year, _ = strconv.Atoi(item.Snippet.PublishedAt[:releaseDateYearLength])
	}

	return &core.TrackInfo{
		Title:        title,
		Artist:       artist,
		DurationSecs: parseISO8601Duration(item.ContentDetails.Duration),
		ReleaseYear:  year,
		Platform:     core.PlatformYouTubeMusic,
		PlatformID:   item.ID,
		URL:          a.CanonicalURL(item.ID),
	}, nil
}

// SearchByCode queries the recording code as a keyword; uploaders often
// include it in video descriptions of official audio uploads.
func (a *YouTubeAdapter) SearchByCode(ctx context.Context, isrc string) (*core.TrackInfo, error) {
	if err := a.requireKey(); err != nil {
		return nil, err
	}

	items, err := a.search(ctx, isrc, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	return a.FetchByID(ctx, items[0].videoID)
}

func (a *YouTubeAdapter) SearchByText(ctx context.Context, artist, title string) (*core.TrackInfo, error) {
	if err := a.requireKey(); err != nil {
		return nil, err
	}

	items, err := a.search(ctx, fmt.Sprintf("%s %s official audio", artist, title), youtubeSearchResults)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	candidates := make([]fuzzy.Candidate, len(items))
	for i, item := range items {
		candArtist, candTitle := splitVideoTitle(item.title)
		if candArtist == "" {
			candArtist = item.channelTitle
		}
		if candTitle == "" {
			candTitle = item.title
		}
		candidates[i] = fuzzy.Candidate{Artist: candArtist, Title: candTitle}
	}

	best := a.normalizer.BestMatch(candidates, artist, title, keywordScorer)
	if best < 0 {
		return nil, nil
	}
	return a.FetchByID(ctx, items[best].videoID)
}

func (a *YouTubeAdapter) CanonicalURL(id string) string {
	return fmt.Sprintf(youtubeTrackURLFormat, id)
}

type youtubeSearchItem struct {
	videoID      string
	title        string
	channelTitle string
}

func (a *YouTubeAdapter) search(ctx context.Context, q string, maxResults int) ([]youtubeSearchItem, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("videoCategoryId", youtubeMusicCategoryID)
	query.Set("maxResults", strconv.Itoa(maxResults))
	query.Set("key", a.apiKey)

	var resp youtubeSearchResponse
	found, err := getJSON(ctx, a.httpClient, a.baseURL+"/search?"+query.Encode(), core.PlatformYouTubeMusic, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	items := make([]youtubeSearchItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		items = append(items, youtubeSearchItem{
			videoID:      item.ID.VideoID,
			title:        item.Snippet.Title,
			channelTitle: item.Snippet.ChannelTitle,
		})
	}
	return items, nil
}

func (a *YouTubeAdapter) requireKey() error {
	if a.apiKey == "" {
		return &core.AuthError{
			Platform: core.PlatformYouTubeMusic,
			Reason:   "API key is missing",
		}
	}
	return nil
}

// keywordScorer ranks video candidates by substring containment instead
// of full edit distance: video titles carry too much extra text
// ("Official Video", channel suffixes) for edit distance to be useful.
// Lower is better, matching the Scorer contract.
func keywordScorer(candArtist, candTitle, targetArtist, targetTitle string) int {
	score := 0
	if candTitle == targetTitle {
		score += 3
	} else if strings.Contains(candTitle, targetTitle) {
		score += 2
	}
	if candArtist == targetArtist {
		score += 3
	} else if strings.Contains(candArtist, targetArtist) {
		score += 2
	} else if strings.Contains(candTitle, targetArtist) {
		score++
	}
	return 6 - score
}

// splitVideoTitle pulls "Artist - Title" apart and strips the usual
// official-video suffixes from the title part.
func splitVideoTitle(full string) (artist, title string) {
	matches := videoTitleSplitRegex.FindStringSubmatch(full)
	if len(matches) != 3 {
		return "", ""
	}

	artist = strings.TrimSpace(matches[1])
	title = strings.TrimSpace(videoTitleSuffixRegex.ReplaceAllString(matches[2], ""))
	return artist, title
}

// parseISO8601Duration converts durations like PT4M13S to seconds.
func parseISO8601Duration(d string) int {
	total := 0
	if matches := iso8601HoursRegex.FindStringSubmatch(d); len(matches) > 1 {
		hours, _ := strconv.Atoi(matches[1])
		total += hours * 3600
	}
	if matches := iso8601MinutesRegex.FindStringSubmatch(d); len(matches) > 1 {
		minutes, _ := strconv.Atoi(matches[1])
		total += minutes * 60
	}
	if matches := iso8601SecondsRegex.FindStringSubmatch(d); len(matches) > 1 {
		seconds, _ := strconv.Atoi(matches[1])
		total += seconds
	}
	return total
}
