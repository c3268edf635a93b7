// Package plugin wires the Beatport client into a tagging host: session
// setup at the start of an import batch, lookups, and art embedding after
// files are written.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"

	"beatmeta/internal/beatport"
	"beatmeta/internal/core"
	"beatmeta/internal/resolver"
	"beatmeta/internal/store"
)

// ManualTokenPrompt asks the user for a token obtained in the browser.
const ManualTokenPrompt = "Could not fetch token. Check your beatport username and password " +
	"in the config, or try to get token manually.\n" +
	"Login at https://api.beatport.com/v4/docs/ " +
	"and paste /token endpoint response from the browser:"

// Deps are the host facilities and instrumentation the plugin uses.
type Deps struct {
	Prompter           core.Prompter
	ArtHelper          core.ArtHelper
	Output             io.Writer
	HTTPClient         *http.Client
	BaseURL            string
	RequestObserver    beatport.RequestObserver
	ResolutionObserver resolver.Observer
}

// Plugin is uninitialised until ImportBegin succeeds; until then every lookup
// returns nothing.
type Plugin struct {
	cfg    *core.Config
	deps   Deps
	logger *zap.Logger
	tokens *store.TokenFile
	seen   *store.SeenSet

	mu       sync.RWMutex
	client   *beatport.Client
	resolver *resolver.Resolver
}

func New(cfg *core.Config, deps Deps, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Output == nil {
		deps.Output = os.Stdout
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: cfg.Beatport.HTTPTimeout}
	}
	return &Plugin{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		tokens: store.NewTokenFile(cfg.Beatport.TokenPath),
		seen:   store.NewSeenSet(store.DefaultSeenCapacity, store.DefaultSeenFalsePositiveRate),
	}
}

// Ready reports whether a session was established.
func (p *Plugin) Ready() bool {
	client, _ := p.current()
	return client != nil
}

// Client returns the established client, or nil.
func (p *Plugin) Client() *beatport.Client {
	client, _ := p.current()
	return client
}

func (p *Plugin) current() (*beatport.Client, *resolver.Resolver) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client, p.resolver
}

// ImportBegin establishes the session from the token file or the configured
// credentials, falling back once to a manually pasted token. On success the
// token is written back to the token file. Failure leaves the plugin
// uninitialised.
func (p *Plugin) ImportBegin(ctx context.Context) {
	p.seen.Reset()

	client, err := beatport.NewClient(ctx, p.options(p.loadToken(), true))
	if err != nil {
		fmt.Fprintln(p.deps.Output, err.Error())

		client, err = p.manualLogin(ctx)
		if err != nil {
			p.logger.Warn("Manual token entry failed", zap.Error(err))
			return
		}
	}

	if err := p.tokens.Save(client.Token()); err != nil {
		p.logger.Warn("Could not write token file",
			zap.String("path", p.tokens.Path), zap.Error(err))
	}

	res := resolver.New(client, p.cfg.Beatport.Enrichment, p.logger.Named("resolver"))
	if p.deps.ResolutionObserver != nil {
		res.WithObserver(p.deps.ResolutionObserver)
	}

	p.mu.Lock()
	p.client = client
	p.resolver = res
	p.mu.Unlock()
}

func (p *Plugin) loadToken() *beatport.Token {
	token, err := p.tokens.Load()
	switch {
	case err == nil:
		return token
	case errors.Is(err, os.ErrNotExist):
		p.logger.Debug("Token file not found; will authenticate", zap.String("path", p.tokens.Path))
	case errors.Is(err, store.ErrCorruptToken):
		p.logger.Warn("Corrupt token file; re-authenticating", zap.String("path", p.tokens.Path))
	default:
		p.logger.Warn("Could not read token file", zap.String("path", p.tokens.Path), zap.Error(err))
	}
	return nil
}

func (p *Plugin) manualLogin(ctx context.Context) (*beatport.Client, error) {
	if p.deps.Prompter == nil {
		return nil, errors.New("no prompt available")
	}
	raw, err := p.deps.Prompter.Prompt(ctx, ManualTokenPrompt)
	if err != nil {
		return nil, err
	}
	token, err := beatport.DecodeToken([]byte(raw))
	if err != nil {
		return nil, err
	}
	return beatport.NewClient(ctx, p.options(token, false))
}

func (p *Plugin) options(token *beatport.Token, withCredentials bool) beatport.Options {
	opts := beatport.Options{
		BaseURL:    p.deps.BaseURL,
		HTTPClient: p.deps.HTTPClient,
		Token:      token,
		Redactor:   core.NewRedactor(p.cfg.Log),
		Observer:   p.deps.RequestObserver,
		Logger:     p.logger.Named("beatport"),
	}
	if withCredentials {
		opts.Username = p.cfg.Beatport.Username
		opts.Password = p.cfg.Beatport.Password
		opts.ClientID = p.cfg.Beatport.ClientID
	}
	return opts
}

// Candidates returns album matches for the artist and album.
func (p *Plugin) Candidates(ctx context.Context, artist, album string, vaLikely bool) ([]core.AlbumInfo, error) {
	_, res := p.current()
	return res.ResolveAlbum(ctx, artist, album, vaLikely)
}

// ItemCandidates returns track matches for the artist and title.
func (p *Plugin) ItemCandidates(ctx context.Context, artist, title string) ([]core.TrackInfo, error) {
	_, res := p.current()
	return res.ResolveTrack(ctx, artist, title)
}

// AlbumForID looks up a release by id or URL.
func (p *Plugin) AlbumForID(ctx context.Context, id string) (*core.AlbumInfo, error) {
	_, res := p.current()
	return res.ResolveAlbumByID(ctx, id)
}

// TrackForID looks up a track by id or URL.
func (p *Plugin) TrackForID(ctx context.Context, id string) (*core.TrackInfo, error) {
	_, res := p.current()
	return res.ResolveTrackByID(ctx, id)
}

// Image fetches the release artwork of a track; nil when unavailable or the
// plugin is uninitialised.
func (p *Plugin) Image(ctx context.Context, trackID string, width, height int) ([]byte, error) {
	client, _ := p.current()
	if client == nil {
		return nil, nil
	}
	return client.GetImage(ctx, trackID, width, height)
}
