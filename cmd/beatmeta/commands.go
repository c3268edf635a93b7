package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"beatmeta/internal/core"
	httpserver "beatmeta/internal/http"
	"beatmeta/internal/plugin"
	"beatmeta/internal/tags"
)

var errNotReady = errors.New("could not establish a Beatport session")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize with Beatport and store the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		p, err := startPlugin(ctx, plugin.Deps{})
		if err != nil {
			return err
		}
		account, err := p.Client().GetAccount(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch account: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\nToken stored in %s\n", account, config.Beatport.TokenPath)
		return nil
	},
}

var albumCmd = &cobra.Command{
	Use:   "album ARTIST ALBUM",
	Short: "Search album candidates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaLikely, _ := cmd.Flags().GetBool("va")
		return lookup(cmd, func(ctx context.Context, p *plugin.Plugin) (any, error) {
			return p.Candidates(ctx, args[0], args[1], vaLikely)
		})
	},
}

var trackCmd = &cobra.Command{
	Use:   "track ARTIST TITLE",
	Short: "Search track candidates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lookup(cmd, func(ctx context.Context, p *plugin.Plugin) (any, error) {
			return p.ItemCandidates(ctx, args[0], args[1])
		})
	},
}

var albumIDCmd = &cobra.Command{
	Use:   "album-id ID_OR_URL",
	Short: "Look up a release by id or Beatport URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lookup(cmd, func(ctx context.Context, p *plugin.Plugin) (any, error) {
			album, err := p.AlbumForID(ctx, args[0])
			if err == nil && album == nil {
				return nil, fmt.Errorf("release %q not found", args[0])
			}
			return album, err
		})
	},
}

var trackIDCmd = &cobra.Command{
	Use:   "track-id ID_OR_URL",
	Short: "Look up a track by id or Beatport URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lookup(cmd, func(ctx context.Context, p *plugin.Plugin) (any, error) {
			track, err := p.TrackForID(ctx, args[0])
			if err == nil && track == nil {
				return nil, fmt.Errorf("track %q not found", args[0])
			}
			return track, err
		})
	},
}

var imageCmd = &cobra.Command{
	Use:   "image TRACK_ID",
	Short: "Download the release artwork of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		p, err := startPlugin(ctx, plugin.Deps{})
		if err != nil {
			return err
		}
		image, err := p.Image(ctx, args[0], config.Art.Width, config.Art.Height)
		if err != nil {
			return fmt.Errorf("failed to fetch image: %w", err)
		}
		if image == nil {
			return fmt.Errorf("no image available for track %q", args[0])
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" || output == "-" {
			_, err = cmd.OutOrStdout().Write(image)
			return err
		}
		if err := os.WriteFile(output, image, 0o644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		logger.Info("Image written", zap.String("path", output), zap.Int("bytes", len(image)))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import TRACK_ID=FILE...",
	Short: "Embed release artwork into files matched to Beatport tracks",
	Long: `import runs one import batch: it establishes the session and hands the given
files to art embedding as a single task. Each argument pairs a Beatport track id
with an MP3 or FLAC file. Embedding honours --art, --art-overwrite and the art size.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := parseImportItems(args)
		if err != nil {
			return err
		}
		if !config.Art.Enabled {
			logger.Warn("Art embedding is disabled; pass --art to embed artwork")
		}

		ctx, cancel := commandContext()
		defer cancel()

		p, err := startPlugin(ctx, plugin.Deps{})
		if err != nil {
			return err
		}
		dataSource, _ := cmd.Flags().GetString("data-source")
		p.ImportTaskFiles(ctx, core.ImportTask{DataSource: dataSource, Items: items})
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve lookups, health and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		metrics := httpserver.NewMetrics()
		p := newPlugin(plugin.Deps{RequestObserver: metrics, ResolutionObserver: metrics})
		p.ImportBegin(ctx)
		if !p.Ready() {
			logger.Warn("Serving without a Beatport session; lookups return nothing")
		}

		server := httpserver.NewServer(&config.Server, p, metrics, logger.Named("http"))

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(gCtx)
		})

		logger.Info("beatmeta started successfully",
			zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
			zap.Bool("ready", p.Ready()))

		if err := g.Wait(); err != nil {
			logger.Error("beatmeta stopped with error", zap.Error(err))
			return err
		}
		logger.Info("beatmeta stopped gracefully")
		return nil
	},
}

func init() {
	albumCmd.Flags().Bool("va", false, "The album is likely a various artists compilation")
	imageCmd.Flags().StringP("output", "o", "", "Write the image to this file instead of stdout")
	importCmd.Flags().String("data-source", core.DataSource, "Data source the files were matched with")
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newPlugin(deps plugin.Deps) *plugin.Plugin {
	if deps.Prompter == nil {
		deps.Prompter = newStdinPrompter(os.Stdin, os.Stdout)
	}
	if deps.ArtHelper == nil {
		deps.ArtHelper = tags.NewArtHelper()
	}
	return plugin.New(config, deps, logger.Named("plugin"))
}

// startPlugin runs session setup and fails when it leaves the plugin uninitialised.
func startPlugin(ctx context.Context, deps plugin.Deps) (*plugin.Plugin, error) {
	p := newPlugin(deps)
	p.ImportBegin(ctx)
	if !p.Ready() {
		return nil, errNotReady
	}
	return p, nil
}

func lookup(cmd *cobra.Command, fn func(ctx context.Context, p *plugin.Plugin) (any, error)) error {
	ctx, cancel := commandContext()
	defer cancel()

	p, err := startPlugin(ctx, plugin.Deps{})
	if err != nil {
		return err
	}
	result, err := fn(ctx, p)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(body))
	return err
}

// parseImportItems reads TRACK_ID=FILE pairs.
func parseImportItems(args []string) ([]core.Item, error) {
	invalid := lo.Filter(args, func(arg string, _ int) bool {
		trackID, path, ok := strings.Cut(arg, "=")
		return !ok || strings.TrimSpace(trackID) == "" || strings.TrimSpace(path) == ""
	})
	if len(invalid) > 0 {
		return nil, fmt.Errorf("expected TRACK_ID=FILE, got %q", invalid[0])
	}

	return lo.Map(args, func(arg string, _ int) core.Item {
		trackID, path, _ := strings.Cut(arg, "=")
		return core.Item{Path: strings.TrimSpace(path), TrackID: strings.TrimSpace(trackID)}
	}), nil
}
