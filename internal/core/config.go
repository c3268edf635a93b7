package core

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// AppName is used for the XDG config directory and the user agent.
	AppName = "beatmeta"
	// DefaultTokenFileName is the token file name inside the app config dir.
	DefaultTokenFileName = "beatport_token.json"
	// DefaultServerPort is the port of the lookup/metrics HTTP server.
	DefaultServerPort = 8080
	// DefaultHTTPTimeout bounds every single request to the catalog API.
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultLookupLimitPerMinute caps HTTP lookups per client.
	DefaultLookupLimitPerMinute = 30
)

type Config struct {
	Beatport BeatportConfig
	Art      ArtConfig
	Server   ServerConfig
	Log      LogConfig
}

type BeatportConfig struct {
	TokenPath   string
	Username    string
	Password    string
	ClientID    string
	HTTPTimeout time.Duration
	Enrichment  EnrichmentConfig
}

// EnrichmentConfig controls copying album-level fields onto singleton track matches.
type EnrichmentConfig struct {
	Enabled     bool
	Year        bool
	Album       bool
	Label       bool
	CatalogNum  bool
	AlbumArtist bool
	TrackNumber bool
}

type ArtConfig struct {
	Enabled   bool
	Overwrite bool
	// Width and Height of zero mean "unspecified".
	Width  int
	Height int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// LookupLimitPerMinute of zero disables lookup rate limiting.
	LookupLimitPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
	// DisableRedaction logs sensitive values (emails, codes, tokens) in clear text.
	DisableRedaction bool
}

// DefaultTokenPath returns the token file location inside the XDG config home.
// The directory is created when the token is first saved.
func DefaultTokenPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, DefaultTokenFileName)
}

func DefaultConfig() *Config {
	return &Config{
		Beatport: BeatportConfig{
			TokenPath:   DefaultTokenPath(),
			HTTPTimeout: DefaultHTTPTimeout,
			Enrichment: EnrichmentConfig{
				Enabled:     false,
				Year:        true,
				Album:       true,
				Label:       true,
				CatalogNum:  true,
				AlbumArtist: true,
				TrackNumber: true,
			},
		},
		Art: ArtConfig{
			Enabled:   false,
			Overwrite: false,
		},
		Server: ServerConfig{
			Host:                 "0.0.0.0",
			Port:                 DefaultServerPort,
			ReadTimeout:          10 * time.Second,
			WriteTimeout:         30 * time.Second,
			LookupLimitPerMinute: DefaultLookupLimitPerMinute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
