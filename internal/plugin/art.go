package plugin

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"beatmeta/internal/core"
)

// ImportTaskFiles embeds the release artwork into the files of a finished
// import task. It does nothing when art is disabled, the task was matched by
// another data source, or the plugin is uninitialised. Existing art is kept
// unless overwriting is enabled. Failures are logged and stop the task.
func (p *Plugin) ImportTaskFiles(ctx context.Context, task core.ImportTask) {
	client, _ := p.current()
	if client == nil {
		p.logger.Warn("Beatport client not initialized; skipping art embedding")
		return
	}
	if !p.cfg.Art.Enabled || task.DataSource != core.DataSource {
		return
	}
	if p.deps.ArtHelper == nil {
		p.logger.Warn("No art helper configured; skipping art embedding")
		return
	}

	for _, item := range task.Items {
		if p.seen.Has(item.Path) {
			p.logger.Debug("Art already embedded in this import", zap.String("path", item.Path))
			continue
		}

		if !p.cfg.Art.Overwrite {
			hasArt, err := p.deps.ArtHelper.HasExistingArt(item.Path)
			if err != nil {
				p.logger.Warn("Failed to embed image", zap.String("path", item.Path), zap.Error(err))
				return
			}
			if hasArt {
				p.logger.Debug("File already contains an art, skipping fetching new", zap.String("path", item.Path))
				continue
			}
		}

		image, err := client.GetImage(ctx, item.TrackID, p.cfg.Art.Width, p.cfg.Art.Height)
		if err != nil {
			p.logger.Warn("Failed to embed image", zap.String("path", item.Path), zap.Error(err))
			return
		}
		if image == nil {
			p.logger.Debug("No image available", zap.String("track_id", item.TrackID))
			return
		}

		if err := p.embed(item.Path, image); err != nil {
			p.logger.Warn("Failed to embed image", zap.String("path", item.Path), zap.Error(err))
			return
		}
		p.seen.Add(item.Path)
	}
}

// embed hands the image to the art helper through a temporary file.
func (p *Plugin) embed(path string, image []byte) error {
	tmp, err := os.CreateTemp("", core.AppName+"-art-*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp image: %w", err)
	}

	return p.deps.ArtHelper.Embed(path, tmp.Name())
}
