package core

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Beatport.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("Expected default HTTP timeout %v, got %v", DefaultHTTPTimeout, config.Beatport.HTTPTimeout)
	}

	if filepath.Base(config.Beatport.TokenPath) != DefaultTokenFileName {
		t.Errorf("Expected token file %s, got %s", DefaultTokenFileName, config.Beatport.TokenPath)
	}

	if config.Beatport.Enrichment.Enabled {
		t.Error("Expected singleton enrichment to be disabled by default")
	}

	enrichment := config.Beatport.Enrichment
	if !enrichment.Year || !enrichment.Album || !enrichment.Label ||
		!enrichment.CatalogNum || !enrichment.AlbumArtist || !enrichment.TrackNumber {
		t.Errorf("Expected every enrichment field toggle on by default, got %+v", enrichment)
	}

	if config.Art.Enabled || config.Art.Overwrite {
		t.Errorf("Expected art embedding off by default, got %+v", config.Art)
	}

	if config.Art.Width != 0 || config.Art.Height != 0 {
		t.Errorf("Expected unspecified art dimensions, got %dx%d", config.Art.Width, config.Art.Height)
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultServerPort <= 0 || DefaultServerPort > 65535 {
		t.Error("DefaultServerPort should be a valid port number")
	}

	if DefaultHTTPTimeout <= 0 {
		t.Error("DefaultHTTPTimeout should be positive")
	}
}

func TestRedactor(t *testing.T) {
	tests := []struct {
		name     string
		cfg      LogConfig
		expected string
	}{
		{name: "redacted by default", cfg: LogConfig{}, expected: Redacted},
		{name: "redaction disabled", cfg: LogConfig{DisableRedaction: true}, expected: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRedactor(tt.cfg).Redact("secret"); got != tt.expected {
				t.Errorf("Redact() = %q, want %q", got, tt.expected)
			}
		})
	}
}
