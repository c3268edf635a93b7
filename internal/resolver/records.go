package resolver

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"beatmeta/internal/beatport"
	"beatmeta/internal/core"
)

func (r *Resolver) albumInfo(release *beatport.Release) core.AlbumInfo {
	artist, artistID := r.artistCredit(release.Artists)
	va := len(release.Artists) >= beatport.VAArtistThreshold
	if va {
		artist = beatport.VAArtistName
	}

	tracks := lo.FilterMap(release.Tracks, func(track *beatport.Track, _ int) (core.TrackInfo, bool) {
		if track == nil {
			return core.TrackInfo{}, false
		}
		return r.trackInfo(track), true
	})

	info := core.AlbumInfo{
		Album:      release.Name,
		AlbumID:    release.ID,
		Artist:     artist,
		ArtistID:   artistID,
		Tracks:     tracks,
		AlbumType:  release.Type,
		VA:         va,
		CatalogNum: release.CatalogNumber,
		Media:      core.MediaDigital,
		DataSource: core.DataSource,
		DataURL:    release.URL,
	}
	if !release.PublishDate.IsZero() {
		info.Year = release.PublishDate.Year()
		info.Month = int(release.PublishDate.Month())
		info.Day = release.PublishDate.Day()
	}
	if release.Label != nil {
		info.Label = release.Label.Name
	}
	return info
}

func (r *Resolver) trackInfo(track *beatport.Track) core.TrackInfo {
	artist, artistID := r.artistCredit(track.Artists)
	return core.TrackInfo{
		Title:       formatTitle(track),
		TrackID:     track.ID,
		Artist:      artist,
		ArtistID:    artistID,
		Length:      track.Length.Seconds(),
		Index:       track.Number,
		MediumIndex: track.Number,
		Media:       core.MediaDigital,
		DataSource:  core.DataSource,
		DataURL:     track.URL,
		BPM:         track.BPM,
		InitialKey:  track.InitialKey,
		Genre:       track.Genre,
	}
}

// singletonInfo is trackInfo plus album context for tracks imported on their own.
func (r *Resolver) singletonInfo(ctx context.Context, track *beatport.Track) (core.TrackInfo, error) {
	info := r.trackInfo(track)
	if !r.enrichment.Enabled || track.Release == nil {
		return info, nil
	}

	// The release embedded in a track never carries a tracklist.
	release := &beatport.Release{ShallowRelease: *track.Release}
	full, err := r.catalog.GetRelease(ctx, track.Release.ID)
	if err != nil {
		return info, err
	}
	if full != nil {
		release = full
	} else {
		r.logger.Debug("Enriching from release stub", zap.String("release_id", track.Release.ID))
	}

	r.enrich(&info, track, release)
	return info, nil
}

func (r *Resolver) enrich(info *core.TrackInfo, track *beatport.Track, release *beatport.Release) {
	cfg := r.enrichment

	if cfg.Year && !release.PublishDate.IsZero() {
		info.Year = release.PublishDate.Year()
		info.Month = int(release.PublishDate.Month())
		info.Day = release.PublishDate.Day()
	}
	if cfg.Album && release.Name != "" {
		info.Album = release.Name
	}
	if cfg.Label && release.Label != nil && release.Label.Name != "" {
		info.Label = release.Label.Name
	}
	if cfg.CatalogNum && release.CatalogNumber != "" {
		info.CatalogNum = release.CatalogNumber
	}
	if cfg.AlbumArtist && len(release.Artists) > 0 {
		info.AlbumArtist, _ = r.artistCredit(release.Artists)
	}
	if cfg.TrackNumber && track.Number == 0 {
		// Left unset when the release no longer lists the track.
		if match, ok := lo.Find(release.Tracks, func(t *beatport.Track) bool {
			return t != nil && t.ID == track.ID
		}); ok {
			info.Track = match.Number
		}
	}
}

// artistCredit returns the joined display name and the id of the main artist.
func (r *Resolver) artistCredit(artists []beatport.Artist) (name, id string) {
	if len(artists) > 0 {
		id = artists[0].ID
	}
	names := lo.Map(artists, func(a beatport.Artist, _ int) string { return a.Name })
	return r.normalizer.JoinArtists(names), id
}

// formatTitle appends the mix name unless it is the original mix.
func formatTitle(track *beatport.Track) string {
	if track.MixName == "" || track.MixName == beatport.OriginalMixName {
		return track.Name
	}
	return track.Name + " (" + track.MixName + ")"
}
