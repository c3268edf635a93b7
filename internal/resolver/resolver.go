// Package resolver turns loose album and track lookups into canonical records
// backed by the Beatport catalog.
package resolver

import (
	"context"
	"errors"
	"iter"
	"regexp"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"beatmeta/internal/beatport"
	"beatmeta/internal/core"
	"beatmeta/pkg/fuzzy"
)

var (
	releaseIDRegex = regexp.MustCompile(`(^|beatport\.com/release/.+/)(\d+)$`)
	trackIDRegex   = regexp.MustCompile(`(^|beatport\.com/track/.+/)(\d+)$`)
)

// Resolution outcomes reported to the Observer.
const (
	OutcomeFound     = "found"
	OutcomeEmpty     = "empty"
	OutcomeInvalidID = "invalid_id"
	OutcomeAPIError  = "api_error"
	OutcomeError     = "error"
)

// Catalog is the subset of beatport.Client the resolver reads from.
type Catalog interface {
	Releases(ctx context.Context, query string, details bool) iter.Seq2[*beatport.Release, error]
	Tracks(ctx context.Context, query string) iter.Seq2[*beatport.Track, error]
	GetRelease(ctx context.Context, id string) (*beatport.Release, error)
	GetTrack(ctx context.Context, id string) (*beatport.Track, error)
}

// Observer receives one call per resolution.
type Observer interface {
	ObserveResolution(operation, outcome string, duration time.Duration)
}

// Resolver shapes catalog entities into core records. A Resolver without a
// catalog resolves nothing.
type Resolver struct {
	catalog    Catalog
	enrichment core.EnrichmentConfig
	normalizer *fuzzy.Normalizer
	observer   Observer
	logger     *zap.Logger
}

func New(catalog Catalog, enrichment core.EnrichmentConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalog:    catalog,
		enrichment: enrichment,
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

// WithObserver sets the observer notified after each resolution.
func (r *Resolver) WithObserver(observer Observer) *Resolver {
	r.observer = observer
	return r
}

// ParseReleaseID extracts the numeric id from a release id or release URL.
func ParseReleaseID(idOrURL string) (string, bool) {
	return parseID(releaseIDRegex, idOrURL)
}

// ParseTrackID extracts the numeric id from a track id or track URL.
func ParseTrackID(idOrURL string) (string, bool) {
	return parseID(trackIDRegex, idOrURL)
}

func parseID(pattern *regexp.Regexp, idOrURL string) (string, bool) {
	if idOrURL == "" {
		return "", false
	}
	match := pattern.FindStringSubmatch(idOrURL)
	if match == nil {
		return "", false
	}
	return match[2], true
}

// ResolveAlbum searches releases matching the artist and album. When the
// album is likely a Various Artists compilation only the album is searched.
// API failures are logged and yield no candidates; malformed payloads are
// returned as errors.
func (r *Resolver) ResolveAlbum(ctx context.Context, artist, album string, vaLikely bool) ([]core.AlbumInfo, error) {
	if r.disabled() {
		return nil, nil
	}
	start := time.Now()

	query := album
	if !vaLikely {
		query = artist + " " + album
	}
	query = r.normalizer.SanitizeQuery(query)
	r.logger.Debug("Searching Beatport releases", zap.String("query", query))

	var albums []core.AlbumInfo
	for release, err := range r.catalog.Releases(ctx, query, true) {
		if err != nil {
			return nil, r.fail("album", zap.String("query", query), err, start)
		}
		albums = append(albums, r.albumInfo(release))
	}

	r.observe("album", lo.Ternary(len(albums) > 0, OutcomeFound, OutcomeEmpty), start)
	return albums, nil
}

// ResolveTrack searches tracks matching the artist and title.
func (r *Resolver) ResolveTrack(ctx context.Context, artist, title string) ([]core.TrackInfo, error) {
	if r.disabled() {
		return nil, nil
	}
	start := time.Now()

	query := artist + " " + title
	r.logger.Debug("Searching Beatport tracks", zap.String("query", query))

	var tracks []core.TrackInfo
	for track, err := range r.catalog.Tracks(ctx, query) {
		if err == nil {
			var info core.TrackInfo
			info, err = r.singletonInfo(ctx, track)
			if err == nil {
				tracks = append(tracks, info)
				continue
			}
		}
		return nil, r.fail("track", zap.String("query", query), err, start)
	}

	r.observe("track", lo.Ternary(len(tracks) > 0, OutcomeFound, OutcomeEmpty), start)
	return tracks, nil
}

// ResolveAlbumByID fetches a release by id or URL. Input that is not a
// release id returns nil without contacting the catalog.
func (r *Resolver) ResolveAlbumByID(ctx context.Context, idOrURL string) (*core.AlbumInfo, error) {
	if r.disabled() {
		return nil, nil
	}
	start := time.Now()

	if idOrURL == "" {
		r.logger.Debug("No release ID provided")
		r.observe("album_id", OutcomeInvalidID, start)
		return nil, nil
	}
	r.logger.Debug("Searching for release", zap.String("release_id", idOrURL))
	id, ok := ParseReleaseID(idOrURL)
	if !ok {
		r.logger.Debug("Not a valid Beatport release ID", zap.String("release_id", idOrURL))
		r.observe("album_id", OutcomeInvalidID, start)
		return nil, nil
	}

	release, err := r.catalog.GetRelease(ctx, id)
	if err != nil {
		return nil, r.fail("album_id", zap.String("release_id", id), err, start)
	}
	if release == nil {
		r.observe("album_id", OutcomeEmpty, start)
		return nil, nil
	}

	info := r.albumInfo(release)
	r.observe("album_id", OutcomeFound, start)
	return &info, nil
}

// ResolveTrackByID fetches a track by id or URL. Input that is not a track id
// returns nil without contacting the catalog.
func (r *Resolver) ResolveTrackByID(ctx context.Context, idOrURL string) (*core.TrackInfo, error) {
	if r.disabled() {
		return nil, nil
	}
	start := time.Now()

	r.logger.Debug("Searching for track", zap.String("track_id", idOrURL))
	id, ok := ParseTrackID(idOrURL)
	if !ok {
		r.logger.Debug("Not a valid Beatport track ID", zap.String("track_id", idOrURL))
		r.observe("track_id", OutcomeInvalidID, start)
		return nil, nil
	}

	track, err := r.catalog.GetTrack(ctx, id)
	if err == nil && track == nil {
		r.observe("track_id", OutcomeEmpty, start)
		return nil, nil
	}
	var info core.TrackInfo
	if err == nil {
		info, err = r.singletonInfo(ctx, track)
	}
	if err != nil {
		return nil, r.fail("track_id", zap.String("track_id", id), err, start)
	}

	r.observe("track_id", OutcomeFound, start)
	return &info, nil
}

func (r *Resolver) disabled() bool {
	return r == nil || r.catalog == nil
}

// fail logs and swallows API errors. Any other error is returned.
func (r *Resolver) fail(operation string, subject zap.Field, err error, start time.Time) error {
	var apiErr *beatport.APIError
	if errors.As(err, &apiErr) {
		r.logger.Warn("Beatport API error", subject, zap.Error(err))
		r.observe(operation, OutcomeAPIError, start)
		return nil
	}
	r.observe(operation, OutcomeError, start)
	return err
}

func (r *Resolver) observe(operation, outcome string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveResolution(operation, outcome, time.Since(start))
	}
}
