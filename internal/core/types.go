package core

import (
	"context"
)

// Platform identifies one supported streaming service.
type Platform string

const (
	// PlatformSpotify is the Spotify streaming service.
	PlatformSpotify Platform = "spotify"
	// PlatformDeezer is the Deezer streaming service.
	PlatformDeezer Platform = "deezer"
	// PlatformYouTubeMusic is the YouTube Music streaming service.
	PlatformYouTubeMusic Platform = "youtube_music"
)

// Platforms is the fixed set of supported platforms.
var Platforms = []Platform{PlatformSpotify, PlatformDeezer, PlatformYouTubeMusic}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// TrackInfo is the normalized track record returned by every platform adapter.
type TrackInfo struct {
	ISRC         string // International Standard Recording Code, empty if unknown.
	Title        string
	Artist       string
	Album        string
	DurationSecs int // 0 if unknown.
	ReleaseYear  int // 0 if unknown.
	Platform     Platform
	PlatformID   string
	URL          string
}

// Track is a canonical recording persisted in the track store.
type Track struct {
	ID           int64
	ISRC         string
	Title        string
	Artist       string
	Album        string
	DurationSecs int
	ReleaseYear  int
}

// PlatformLink is one platform's representation of a stored track.
type PlatformLink struct {
	TrackID    int64
	Platform   Platform
	PlatformID string
	URL        string
}

// TrackSummary is the descriptive part of a conversion response.
type TrackSummary struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
	ISRC   string `json:"isrc,omitempty"`
}

// ConversionResult is the aggregated outcome of one link conversion.
type ConversionResult struct {
	Track TrackSummary        `json:"track"`
	Links map[Platform]string `json:"links"`
}

// Adapter is the uniform capability set implemented once per platform.
// All network-calling methods honor the context deadline and report
// transient failures as *TransientError and credential problems as
// *AuthError.
type Adapter interface {
	// Platform returns the platform this adapter talks to.
	Platform() Platform

	// CanResolve checks whether the URL structurally belongs to this
	// platform's domain set. It never performs network calls.
	CanResolve(url string) bool

	// ParseTrackID extracts the platform-native track id from a URL,
	// following short-link redirects when necessary. Returns "" and a
	// nil error when the URL carries no track id.
	ParseTrackID(ctx context.Context, url string) (string, error)

	// FetchByID looks up authoritative track data by native id.
	FetchByID(ctx context.Context, id string) (*TrackInfo, error)

	// SearchByCode looks a track up by its recording code. Returns
	// (nil, nil) when the platform has no match.
	SearchByCode(ctx context.Context, isrc string) (*TrackInfo, error)

	// SearchByText is the free-text fallback lookup. Adapters apply
	// platform-specific ranking and return a single best candidate, or
	// (nil, nil) when nothing matched.
	SearchByText(ctx context.Context, artist, title string) (*TrackInfo, error)

	// CanonicalURL builds the deterministic track URL for a native id
	// without a network call.
	CanonicalURL(id string) string
}

// TrackStore is the durable cache mapping canonical identities and
// per-platform ids to shared track records. Lookup methods return
// (nil, nil) on a miss.
type TrackStore interface {
	FindByPlatformID(ctx context.Context, platform Platform, platformID string) (*Track, error)
	FindByCode(ctx context.Context, isrc string) (*Track, error)
	FindByArtistTitle(ctx context.Context, artist, title string) (*Track, error)

	// UpsertTrack creates a track if no match by code (or by
	// artist+title when the code is absent) exists, otherwise returns
	// the existing track with its identity fields unchanged.
	UpsertTrack(ctx context.Context, info *TrackInfo) (*Track, error)

	// AttachLink idempotently inserts the platform link for
	// (track, info.Platform). An established link for the same platform
	// is never overwritten.
	AttachLink(ctx context.Context, trackID int64, info *TrackInfo) error

	Links(ctx context.Context, trackID int64) ([]PlatformLink, error)
}

// ConversionLedger records each conversion attempt for auditing. A record
// is appended before any adapter call and flipped to successful only once
// the full pipeline completes.
type ConversionLedger interface {
	Begin(ctx context.Context, platform Platform, sourceURL string) (int64, error)
	MarkSuccessful(ctx context.Context, id int64) error
}

// ResultCache is an in-memory layer in front of the track store keyed by
// source URL. It is purely an optimization; the store stays authoritative.
type ResultCache interface {
	Get(url string) (*ConversionResult, bool)
	Add(url string, result *ConversionResult)
}
