package core

import "context"

const (
	// DataSource identifies records produced by this adapter.
	DataSource = "Beatport"
	// MediaDigital is the media value of every Beatport record.
	MediaDigital = "Digital"
)

// AlbumInfo is the canonical album record handed to the tagging host.
type AlbumInfo struct {
	Album      string      `json:"album"`
	AlbumID    string      `json:"album_id"`
	Artist     string      `json:"artist"`
	ArtistID   string      `json:"artist_id,omitempty"`
	Tracks     []TrackInfo `json:"tracks"`
	AlbumType  string      `json:"albumtype,omitempty"`
	VA         bool        `json:"va"`
	Year       int         `json:"year,omitempty"`
	Month      int         `json:"month,omitempty"`
	Day        int         `json:"day,omitempty"`
	Label      string      `json:"label,omitempty"`
	CatalogNum string      `json:"catalognum,omitempty"`
	Media      string      `json:"media"`
	DataSource string      `json:"data_source"`
	DataURL    string      `json:"data_url,omitempty"`
}

// TrackInfo is the canonical track record handed to the tagging host.
// The album-level fields are only set by singleton enrichment.
type TrackInfo struct {
	Title       string  `json:"title"`
	TrackID     string  `json:"track_id"`
	Artist      string  `json:"artist"`
	ArtistID    string  `json:"artist_id,omitempty"`
	Length      float64 `json:"length"`
	Index       int     `json:"index,omitempty"`
	MediumIndex int     `json:"medium_index,omitempty"`
	Media       string  `json:"media"`
	DataSource  string  `json:"data_source"`
	DataURL     string  `json:"data_url,omitempty"`
	BPM         int     `json:"bpm,omitempty"`
	InitialKey  string  `json:"initial_key,omitempty"`
	Genre       string  `json:"genre,omitempty"`

	Year        int    `json:"year,omitempty"`
	Month       int    `json:"month,omitempty"`
	Day         int    `json:"day,omitempty"`
	Album       string `json:"album,omitempty"`
	Label       string `json:"label,omitempty"`
	CatalogNum  string `json:"catalognum,omitempty"`
	AlbumArtist string `json:"albumartist,omitempty"`
	Track       int    `json:"track,omitempty"`
}

// Item is a single imported file.
type Item struct {
	Path    string
	TrackID string
}

// ImportTask describes one finished import unit (an album or a singleton).
type ImportTask struct {
	// DataSource of the match the host applied to the task.
	DataSource string
	Items      []Item
}

// ArtHelper reads and writes artwork embedded in audio files.
type ArtHelper interface {
	HasExistingArt(path string) (bool, error)
	Embed(path, imagePath string) error
}

// Prompter asks the user for a single line of input.
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}
