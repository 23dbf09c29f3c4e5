// Package store persists tracks, platform links and conversion records
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"tunebridge/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	isrc         TEXT UNIQUE,
	title        TEXT NOT NULL,
	artist       TEXT NOT NULL,
	album        TEXT,
	duration     INTEGER,
	release_year INTEGER,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracks_artist_title ON tracks(artist, title);

CREATE TABLE IF NOT EXISTS platform_links (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id    INTEGER NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
	platform    TEXT NOT NULL,
	platform_id TEXT NOT NULL,
	url         TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (platform, platform_id),
	UNIQUE (track_id, platform)
);

CREATE TABLE IF NOT EXISTS conversion_records (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	source_platform TEXT NOT NULL,
	source_url      TEXT NOT NULL,
	successful      BOOLEAN NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversion_records_platform ON conversion_records(source_platform);
`

// Store implements core.TrackStore and core.ConversionLedger over SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the SQLite database at path (":memory:" works for tests) and
// bootstraps the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids busy errors
	// under concurrent persistence.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports storage connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const trackColumns = `id, COALESCE(isrc, ''), title, artist, COALESCE(album, ''),
	COALESCE(duration, 0), COALESCE(release_year, 0)`

func (s *Store) FindByPlatformID(ctx context.Context, platform core.Platform, platformID string) (*core.Track, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+trackColumns+` FROM tracks
		WHERE id = (SELECT track_id FROM platform_links WHERE platform = ? AND platform_id = ?)`,
		string(platform), platformID)
	return scanTrack(row)
}

func (s *Store) FindByCode(ctx context.Context, isrc string) (*core.Track, error) {
	if isrc == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE isrc = ?`, isrc)
	return scanTrack(row)
}

func (s *Store) FindByArtistTitle(ctx context.Context, artist, title string) (*core.Track, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+trackColumns+` FROM tracks WHERE artist = ? AND title = ? ORDER BY id LIMIT 1`,
		artist, title)
	return scanTrack(row)
}

// UpsertTrack returns the existing track for info's identity, or creates
// one. Concurrent creation of the same identity serializes through the
// unique index: the loser's insert collapses into a re-read.
func (s *Store) UpsertTrack(ctx context.Context, info *core.TrackInfo) (*core.Track, error) {
	if info.Title == "" || info.Artist == "" {
		return nil, core.ErrMissingTrackData
	}

	track, err := s.findByIdentity(ctx, info)
	if err != nil {
		return nil, err
	}
	if track != nil {
		return track, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (isrc, title, artist, album, duration, release_year)
		VALUES (NULLIF(?, ''), ?, ?, NULLIF(?, ''), NULLIF(?, 0), NULLIF(?, 0))`,
		info.ISRC, info.Title, info.Artist, info.Album, info.DurationSecs, info.ReleaseYear)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the winning row is the canonical one.
			if track, ferr := s.findByIdentity(ctx, info); ferr == nil && track != nil {
				return track, nil
			}
			return nil, &core.ConflictError{Constraint: "tracks.isrc", Err: err}
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &core.Track{
		ID:           id,
		ISRC:         info.ISRC,
		Title:        info.Title,
		Artist:       info.Artist,
		Album:        info.Album,
		DurationSecs: info.DurationSecs,
		ReleaseYear:  info.ReleaseYear,
	}, nil
}

func (s *Store) findByIdentity(ctx context.Context, info *core.TrackInfo) (*core.Track, error) {
	if info.ISRC != "" {
		return s.FindByCode(ctx, info.ISRC)
	}
	return s.FindByArtistTitle(ctx, info.Artist, info.Title)
}

// AttachLink inserts the platform link for (trackID, info.Platform). An
// existing link for that platform is left untouched; a platform id
// already linked to a different track is a conflict.
func (s *Store) AttachLink(ctx context.Context, trackID int64, info *core.TrackInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_links (track_id, platform, platform_id, url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (track_id, platform) DO NOTHING`,
		trackID, string(info.Platform), info.PlatformID, info.URL)
	if err != nil {
		if isUniqueViolation(err) {
			return &core.ConflictError{Constraint: "platform_links.platform_id", Err: err}
		}
		return err
	}
	return nil
}

func (s *Store) Links(ctx context.Context, trackID int64) ([]core.PlatformLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, platform, platform_id, url FROM platform_links
		WHERE track_id = ? ORDER BY platform`, trackID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var links []core.PlatformLink
	for rows.Next() {
		var link core.PlatformLink
		var platform string
		if err := rows.Scan(&link.TrackID, &platform, &link.PlatformID, &link.URL); err != nil {
			return nil, err
		}
		link.Platform = core.Platform(platform)
		links = append(links, link)
	}
	return links, rows.Err()
}

// Begin appends a conversion record before any adapter runs.
func (s *Store) Begin(ctx context.Context, platform core.Platform, sourceURL string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversion_records (source_platform, source_url) VALUES (?, ?)`,
		string(platform), sourceURL)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkSuccessful flips the record to successful; records are never
// mutated otherwise.
func (s *Store) MarkSuccessful(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversion_records SET successful = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("conversion record %d not found", id)
	}
	return nil
}

func scanTrack(row *sql.Row) (*core.Track, error) {
	var track core.Track
	err := row.Scan(&track.ID, &track.ISRC, &track.Title, &track.Artist,
		&track.Album, &track.DurationSecs, &track.ReleaseYear)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
