package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Converter drives the adapters, the track store and the conversion
// ledger to turn one platform URL into a cross-platform link set.
type Converter struct {
	config   *Config
	registry *Registry
	tracks   TrackStore
	ledger   ConversionLedger
	cache    ResultCache
	logger   *zap.Logger
}

func NewConverter(
	config *Config,
	registry *Registry,
	tracks TrackStore,
	ledger ConversionLedger,
	cache ResultCache,
	logger *zap.Logger,
) *Converter {
	return &Converter{
		config:   config,
		registry: registry,
		tracks:   tracks,
		ledger:   ledger,
		cache:    cache,
		logger:   logger,
	}
}

// Convert resolves a track URL on one platform into equivalent URLs on
// the other supported platforms, and reports the detected source platform
// ("" when no adapter claims the URL). Partial results are acceptable: a
// failed lookup on a non-source platform is logged and skipped.
func (c *Converter) Convert(ctx context.Context, url string) (*ConversionResult, Platform, error) {
	source, ok := c.registry.Detect(url)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, url)
	}
	platform := source.Platform()

	ctx, cancel := context.WithTimeout(ctx, c.config.App.ConvertTimeout)
	defer cancel()

	c.logger.Debug("Detected source platform",
		zap.String("platform", string(platform)),
		zap.String("url", url))

	recordID, err := c.ledger.Begin(ctx, platform, url)
	if err != nil {
		return nil, platform, &ConversionError{Cause: err}
	}

	result, err := c.resolve(ctx, source, url)
	if err != nil {
		return nil, platform, &ConversionError{Cause: err}
	}

	if err := c.ledger.MarkSuccessful(ctx, recordID); err != nil {
		c.logger.Warn("Failed to mark conversion record successful",
			zap.Int64("recordID", recordID), zap.Error(err))
	}

	return result, platform, nil
}

func (c *Converter) resolve(ctx context.Context, source Adapter, url string) (*ConversionResult, error) {
	if cached, ok := c.cache.Get(url); ok {
		c.logger.Debug("Conversion served from cache", zap.String("url", url))
		return cached, nil
	}

	trackID, err := source.ParseTrackID(ctx, url)
	if err != nil {
		return nil, err
	}
	if trackID == "" {
		return nil, fmt.Errorf("%w: no track id in %s", ErrMissingTrackData, url)
	}

	// A track already resolved through this platform id short-circuits
	// with the stored link set.
	if track, err := c.tracks.FindByPlatformID(ctx, source.Platform(), trackID); err != nil {
		c.logger.Warn("Track store lookup failed", zap.Error(err))
	} else if track != nil {
		result, err := c.resultFromStore(ctx, track)
		if err == nil {
			c.cache.Add(url, result)
			return result, nil
		}
		c.logger.Warn("Failed to load stored links, re-resolving", zap.Error(err))
	}

	info, err := source.FetchByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Title == "" || info.Artist == "" {
		return nil, ErrMissingTrackData
	}

	// A known recording code short-circuits too, after making sure the
	// source platform's own link is attached.
	if info.ISRC != "" {
		if track, err := c.tracks.FindByCode(ctx, info.ISRC); err != nil {
			c.logger.Warn("Track store code lookup failed", zap.Error(err))
		} else if track != nil {
			c.attachLink(ctx, track.ID, info)
			result, err := c.resultFromStore(ctx, track)
			if err == nil {
				c.cache.Add(url, result)
				return result, nil
			}
			c.logger.Warn("Failed to load stored links, re-resolving", zap.Error(err))
		}
	}

	found := c.aggregate(ctx, source, info)
	found = append([]*TrackInfo{info}, found...)

	// Tracks without a recording code are not durably cached: the soft
	// artist+title key risks false merges.
	if info.ISRC != "" {
		c.persist(ctx, info, found)
	}

	result := buildResult(info, found)
	c.cache.Add(url, result)
	return result, nil
}

// aggregate fans out to every non-source platform concurrently. Each
// lookup is independent: one platform failing, timing out or finding
// nothing must not abort the others.
func (c *Converter) aggregate(ctx context.Context, source Adapter, info *TrackInfo) []*TrackInfo {
	others := c.registry.Others(source.Platform())

	var mu sync.Mutex
	var found []*TrackInfo

	g, gCtx := errgroup.WithContext(ctx)
	for _, adapter := range others {
		g.Go(func() error {
			match, err := c.lookupOn(gCtx, adapter, info)
			if err != nil {
				c.logger.Warn("Platform lookup failed, skipping",
					zap.String("platform", string(adapter.Platform())),
					zap.Error(err))
				return nil
			}
			if match == nil {
				c.logger.Debug("No match on platform",
					zap.String("platform", string(adapter.Platform())))
				return nil
			}

			mu.Lock()
			found = append(found, match)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Stable platform order for deterministic persistence.
	ordered := make([]*TrackInfo, 0, len(found))
	for _, platform := range Platforms {
		for _, match := range found {
			if match.Platform == platform {
				ordered = append(ordered, match)
			}
		}
	}
	return ordered
}

// lookupOn resolves the track on a single non-source platform: exact by
// recording code first, free text as fallback.
func (c *Converter) lookupOn(ctx context.Context, adapter Adapter, info *TrackInfo) (*TrackInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.App.LookupTimeout)
	defer cancel()

	if info.ISRC != "" {
		match, err := adapter.SearchByCode(ctx, info.ISRC)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}
	}

	return adapter.SearchByText(ctx, info.Artist, info.Title)
}

// persist creates or reuses the canonical track and attaches every
// collected link. Persistence failures never fail the conversion; the
// caller still gets the in-memory result.
func (c *Converter) persist(ctx context.Context, info *TrackInfo, found []*TrackInfo) {
	track, err := c.tracks.UpsertTrack(ctx, info)
	if err != nil {
		c.logger.Warn("Failed to persist track, returning unpersisted result",
			zap.String("isrc", info.ISRC), zap.Error(err))
		return
	}

	for _, match := range found {
		c.attachLink(ctx, track.ID, match)
	}
}

func (c *Converter) attachLink(ctx context.Context, trackID int64, info *TrackInfo) {
	if err := c.tracks.AttachLink(ctx, trackID, info); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			c.logger.Warn("Link conflicts with existing row, keeping established mapping",
				zap.Int64("trackID", trackID),
				zap.String("platform", string(info.Platform)),
				zap.Error(err))
			return
		}
		c.logger.Warn("Failed to attach platform link",
			zap.Int64("trackID", trackID),
			zap.String("platform", string(info.Platform)),
			zap.Error(err))
	}
}

func (c *Converter) resultFromStore(ctx context.Context, track *Track) (*ConversionResult, error) {
	links, err := c.tracks.Links(ctx, track.ID)
	if err != nil {
		return nil, err
	}

	result := &ConversionResult{
		Track: TrackSummary{
			Title:  track.Title,
			Artist: track.Artist,
			Album:  track.Album,
			ISRC:   track.ISRC,
		},
		Links: make(map[Platform]string, len(links)),
	}
	for _, link := range links {
		result.Links[link.Platform] = link.URL
	}
	return result, nil
}

func buildResult(info *TrackInfo, found []*TrackInfo) *ConversionResult {
	result := &ConversionResult{
		Track: TrackSummary{
			Title:  info.Title,
			Artist: info.Artist,
			Album:  info.Album,
			ISRC:   info.ISRC,
		},
		Links: make(map[Platform]string, len(found)),
	}
	for _, match := range found {
		if _, exists := result.Links[match.Platform]; !exists {
			result.Links[match.Platform] = match.URL
		}
	}
	return result
}
