// Package beatport implements the Beatport v4 catalog API: session
// establishment, entity decoding and the catalog read operations.
package beatport

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// SearchResultsPerPage limits a catalog search to its first page.
	SearchResultsPerPage = 5
	// ReleaseTracksPerPage covers every track of a release in one page.
	ReleaseTracksPerPage = 100
)

// SearchKind selects what a catalog search returns.
type SearchKind string

const (
	SearchReleases SearchKind = "releases"
	SearchTracks   SearchKind = "tracks"
)

// SearchResult holds exactly one of Release or Track, depending on the kind searched.
type SearchResult struct {
	Release *Release
	Track   *Track
}

// Client reads the catalog with the token of its session.
type Client struct {
	session   *Session
	transport *transport
	logger    *zap.Logger
}

// NewClient establishes a session and returns a client using it.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	session, err := NewSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		session:   session,
		transport: session.transport,
		logger:    session.logger,
	}, nil
}

// Token returns the token in use, for persistence.
func (c *Client) Token() *Token {
	return c.session.Token()
}

func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	return c.session.Account(ctx)
}

// Search queries the catalog lazily. Nothing is requested until the first
// value is pulled; with details, each release hit costs one more request when
// it is pulled. Hits whose details cannot be fetched are skipped. Breaking out
// of the loop stops all further requests.
func (c *Client) Search(ctx context.Context, query string, kind SearchKind, details bool) iter.Seq2[SearchResult, error] {
	return func(yield func(SearchResult, error) bool) {
		if kind != SearchReleases && kind != SearchTracks {
			yield(SearchResult{}, fmt.Errorf("unsupported search kind %q", kind))
			return
		}

		params := url.Values{}
		params.Set("q", query)
		params.Set("per_page", strconv.Itoa(SearchResultsPerPage))
		params.Set("type", string(kind))

		response, err := c.get(ctx, "search", "catalog/search", params)
		if err != nil {
			yield(SearchResult{}, err)
			return
		}

		for _, hit := range response.Get(string(kind)).Array() {
			if !present(hit) {
				continue
			}

			var result SearchResult
			switch {
			case kind == SearchTracks:
				track, err := DecodeTrack(hit)
				if err != nil {
					yield(SearchResult{}, err)
					return
				}
				result.Track = track
			case details:
				release, err := c.GetRelease(ctx, hit.Get("id").String())
				if err != nil {
					yield(SearchResult{}, err)
					return
				}
				if release == nil {
					continue
				}
				result.Release = release
			default:
				release, err := DecodeRelease(hit)
				if err != nil {
					yield(SearchResult{}, err)
					return
				}
				result.Release = release
			}

			if !yield(result, nil) {
				return
			}
		}
	}
}

// Releases searches releases, see Search.
func (c *Client) Releases(ctx context.Context, query string, details bool) iter.Seq2[*Release, error] {
	return func(yield func(*Release, error) bool) {
		for result, err := range c.Search(ctx, query, SearchReleases, details) {
			if !yield(result.Release, err) {
				return
			}
		}
	}
}

// Tracks searches tracks, see Search.
func (c *Client) Tracks(ctx context.Context, query string) iter.Seq2[*Track, error] {
	return func(yield func(*Track, error) bool) {
		for result, err := range c.Search(ctx, query, SearchTracks, false) {
			if !yield(result.Track, err) {
				return
			}
		}
	}
}

// GetRelease fetches a release with its tracks. A failed fetch is logged and
// returns nil without error; only malformed payloads return an error.
func (c *Client) GetRelease(ctx context.Context, id string) (*Release, error) {
	data, err := c.get(ctx, "release", fmt.Sprintf("/catalog/releases/%s/", id), nil)
	if err != nil {
		c.logger.Debug("Failed to fetch release", zap.String("release_id", id), zap.Error(err))
		return nil, nil
	}

	release, err := DecodeRelease(data)
	if err != nil {
		return nil, err
	}

	tracks, err := c.GetReleaseTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	release.Tracks = tracks
	return release, nil
}

// GetReleaseTracks lists the tracks of a release. The list endpoint omits track
// numbers, so every track is fetched on its own; tracks that fail are dropped.
// A failed list request yields an empty list.
func (c *Client) GetReleaseTracks(ctx context.Context, id string) ([]*Track, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(ReleaseTracksPerPage))

	data, err := c.get(ctx, "release_tracks", fmt.Sprintf("/catalog/releases/%s/tracks/", id), params)
	if err != nil {
		c.logger.Debug("Failed to fetch release tracks", zap.String("release_id", id), zap.Error(err))
		return []*Track{}, nil
	}

	tracks := make([]*Track, 0, len(data.Array()))
	for _, entry := range data.Array() {
		if !present(entry) {
			continue
		}
		track, err := c.GetTrack(ctx, entry.Get("id").String())
		if err != nil {
			return nil, err
		}
		if track != nil {
			tracks = append(tracks, track)
		}
	}
	return tracks, nil
}

// GetTrack fetches a track. A failed fetch is logged and returns nil without error.
func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	data, err := c.get(ctx, "track", fmt.Sprintf("/catalog/tracks/%s/", id), nil)
	if err != nil {
		c.logger.Debug("Failed to fetch track", zap.String("track_id", id), zap.Error(err))
		return nil, nil
	}
	return DecodeTrack(data)
}

// GetImage downloads the release artwork of a track. Zero dimensions are
// unspecified; a single dimension is used for both axes of the dynamic image.
// It returns nil when the track or an image URL is missing.
func (c *Client) GetImage(ctx context.Context, trackID string, width, height int) ([]byte, error) {
	track, err := c.GetTrack(ctx, trackID)
	if err != nil || track == nil {
		return nil, err
	}

	imageURL := imageURLFor(track, width, height)
	if imageURL == "" {
		return nil, nil
	}

	c.logger.Debug("Fetching image", zap.String("url", imageURL))
	body, _, err := c.transport.fetch(ctx, c.session.token, "image", imageURL)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func imageURLFor(track *Track, width, height int) string {
	if (width == 0 && height == 0) || track.ImageDynamicURL == "" {
		return track.ImageURL
	}
	w := lo.Ternary(width != 0, width, height)
	h := lo.Ternary(height != 0, height, width)
	return strings.NewReplacer(
		"{w}", strconv.Itoa(w),
		"{h}", strconv.Itoa(h),
	).Replace(track.ImageDynamicURL)
}

func (c *Client) get(ctx context.Context, operation, endpoint string, query url.Values) (gjson.Result, error) {
	return c.transport.getJSON(ctx, c.session.token, operation, endpoint, query)
}
