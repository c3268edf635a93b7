// Package main provides the beatmeta CLI, a small host for the Beatport
// metadata source: session setup, lookups, art embedding and an HTTP server.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"beatmeta/internal/core"
)

const (
	defaultServerHost = "0.0.0.0"
	envPrefix         = "BEATMETA"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   core.AppName,
	Short: "beatmeta - Beatport catalog metadata for your music library",
	Long: `beatmeta resolves artist/album/track queries, Beatport ids and URLs against the
Beatport v4 catalog and prints normalised album and track records. It can also embed
release artwork into MP3 and FLAC files and serve lookups over HTTP.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.Bool("disable-redaction", false, "Log emails, codes and tokens in clear text")

	flags.String("token-file", "", "Beatport token file (default is $XDG_CONFIG_HOME/beatmeta/beatport_token.json)")
	flags.String("username", "", "Beatport username")
	flags.String("password", "", "Beatport password")
	flags.String("client-id", "", "Beatport API client id (scraped from the API docs when empty)")
	flags.Duration("http-timeout", core.DefaultHTTPTimeout, "Timeout of a single Beatport API request")

	flags.Bool("art", false, "Embed release artwork into imported files")
	flags.Bool("art-overwrite", false, "Replace artwork already embedded in a file")
	flags.Int("art-width", 0, "Artwork width in pixels (0 keeps the catalog size)")
	flags.Int("art-height", 0, "Artwork height in pixels (0 keeps the catalog size)")

	flags.Bool("singletons-with-album-metadata", false, "Copy release fields onto single track matches")
	flags.Bool("singletons-with-album-metadata-year", true, "Copy the release date")
	flags.Bool("singletons-with-album-metadata-album", true, "Copy the release name")
	flags.Bool("singletons-with-album-metadata-label", true, "Copy the label")
	flags.Bool("singletons-with-album-metadata-catalognum", true, "Copy the catalog number")
	flags.Bool("singletons-with-album-metadata-albumartist", true, "Copy the release artists")
	flags.Bool("singletons-with-album-metadata-track-number", true, "Copy the track number from the release tracklist")

	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", core.DefaultServerPort, "HTTP server port")
	flags.Int("server-lookup-limit-per-minute", core.DefaultLookupLimitPerMinute,
		"Maximum HTTP lookups per client per minute (0 disables the limit)")

	rootCmd.Flags().Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		loginCmd,
		albumCmd,
		trackCmd,
		albumIDCmd,
		trackIDCmd,
		imageCmd,
		importCmd,
		serveCmd,
	)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureBeatport(cfg)
	configureEnrichment(cfg)
	configureArt(cfg)
	configureServer(cfg)
	configureLog(cfg)

	return cfg
}

func configureBeatport(cfg *core.Config) {
	if path := viper.GetString("token-file"); path != "" {
		cfg.Beatport.TokenPath = path
	}
	cfg.Beatport.Username = viper.GetString("username")
	cfg.Beatport.Password = viper.GetString("password")
	cfg.Beatport.ClientID = viper.GetString("client-id")

	cfg.Beatport.HTTPTimeout = viper.GetDuration("http-timeout")
	if cfg.Beatport.HTTPTimeout <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: Invalid HTTP timeout (%v), using default (%v)\n",
			cfg.Beatport.HTTPTimeout, core.DefaultHTTPTimeout)
		cfg.Beatport.HTTPTimeout = core.DefaultHTTPTimeout
	}
}

func configureEnrichment(cfg *core.Config) {
	const prefix = "singletons-with-album-metadata"

	cfg.Beatport.Enrichment = core.EnrichmentConfig{
		Enabled:     viper.GetBool(prefix),
		Year:        viper.GetBool(prefix + "-year"),
		Album:       viper.GetBool(prefix + "-album"),
		Label:       viper.GetBool(prefix + "-label"),
		CatalogNum:  viper.GetBool(prefix + "-catalognum"),
		AlbumArtist: viper.GetBool(prefix + "-albumartist"),
		TrackNumber: viper.GetBool(prefix + "-track-number"),
	}
}

func configureArt(cfg *core.Config) {
	cfg.Art.Enabled = viper.GetBool("art")
	cfg.Art.Overwrite = viper.GetBool("art-overwrite")
	cfg.Art.Width = viper.GetInt("art-width")
	cfg.Art.Height = viper.GetInt("art-height")

	if cfg.Art.Width < 0 || cfg.Art.Height < 0 {
		fmt.Fprintf(os.Stderr, "Warning: Invalid art size (%dx%d), using the catalog size\n",
			cfg.Art.Width, cfg.Art.Height)
		cfg.Art.Width, cfg.Art.Height = 0, 0
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.LookupLimitPerMinute = viper.GetInt("server-lookup-limit-per-minute")
}

func configureLog(cfg *core.Config) {
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
	cfg.Log.DisableRedaction = viper.GetBool("disable-redaction")
}

func buildLogger(logConfig core.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(logConfig.Level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.EqualFold(logConfig.Format, "text") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}
	return builtLogger
}

func runRoot(cmd *cobra.Command, _ []string) error {
	if generate, _ := cmd.Flags().GetBool("generate-env-example"); generate {
		return generateEnvExample(cmd)
	}
	return cmd.Help()
}
