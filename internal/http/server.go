package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"beatmeta/internal/core"
	"beatmeta/internal/flood"
)

// Lookup is the catalog surface exposed over HTTP.
type Lookup interface {
	Ready() bool
	Candidates(ctx context.Context, artist, album string, vaLikely bool) ([]core.AlbumInfo, error)
	ItemCandidates(ctx context.Context, artist, title string) ([]core.TrackInfo, error)
	AlbumForID(ctx context.Context, id string) (*core.AlbumInfo, error)
	TrackForID(ctx context.Context, id string) (*core.TrackInfo, error)
	Image(ctx context.Context, trackID string, width, height int) ([]byte, error)
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
	gate    *flood.Floodgate
}

func NewServer(config *core.ServerConfig, lookup Lookup, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	gate := flood.New(config.LookupLimitPerMinute)
	mux := setupRoutes(lookup, metrics, gate, logger)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
		gate:    gate,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(lookup Lookup, metrics *Metrics, gate *flood.Floodgate, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	h := &handlers{lookup: lookup, logger: logger}
	limited := func(next http.HandlerFunc) http.Handler {
		return limitLookups(gate, metrics, logger, next)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": core.AppName}, logger)
	})
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.Handle("GET /albums", limited(h.albums))
	mux.Handle("GET /albums/{id}", limited(h.albumByID))
	mux.Handle("GET /tracks", limited(h.tracks))
	mux.Handle("GET /tracks/{id}", limited(h.trackByID))
	mux.Handle("GET /tracks/{id}/image", limited(h.image))

	mux.HandleFunc("GET /{$}", homeHandler(logger))

	return mux
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>beatmeta</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
    </style>
</head>
<body>
    <h1>beatmeta</h1>
    <p>Beatport catalog lookups</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Beatport session established</div>
    <div class="endpoint">/albums?artist=&amp;album=&amp;va= - Album candidates</div>
    <div class="endpoint">/albums/{id} - Album by release id</div>
    <div class="endpoint">/tracks?artist=&amp;title= - Track candidates</div>
    <div class="endpoint">/tracks/{id} - Track by id</div>
    <div class="endpoint">/tracks/{id}/image?width=&amp;height= - Release artwork</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

// limitLookups rejects clients over the per-minute lookup limit. A nil gate
// lets everything through.
func limitLookups(gate *flood.Floodgate, metrics *Metrics, logger *zap.Logger, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate != nil && !gate.Allow(clientKey(r)) {
			metrics.RateLimitedTotal.Inc()
			logger.Debug("Lookup rate limited", zap.String("client", clientKey(r)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", logger)
			return
		}
		next(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type handlers struct {
	lookup Lookup
	logger *zap.Logger
}

func (h *handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.lookup.Ready() {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"status": "not ready", "service": core.AppName}, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": core.AppName}, h.logger)
}

func (h *handlers) albums(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	vaLikely, _ := strconv.ParseBool(query.Get("va"))

	albums, err := h.lookup.Candidates(r.Context(), query.Get("artist"), query.Get("album"), vaLikely)
	if err != nil {
		h.lookupFailed(w, err)
		return
	}
	if albums == nil {
		albums = []core.AlbumInfo{}
	}
	writeJSON(w, http.StatusOK, albums, h.logger)
}

func (h *handlers) tracks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	tracks, err := h.lookup.ItemCandidates(r.Context(), query.Get("artist"), query.Get("title"))
	if err != nil {
		h.lookupFailed(w, err)
		return
	}
	if tracks == nil {
		tracks = []core.TrackInfo{}
	}
	writeJSON(w, http.StatusOK, tracks, h.logger)
}

func (h *handlers) albumByID(w http.ResponseWriter, r *http.Request) {
	album, err := h.lookup.AlbumForID(r.Context(), r.PathValue("id"))
	switch {
	case err != nil:
		h.lookupFailed(w, err)
	case album == nil:
		writeError(w, http.StatusNotFound, "release not found", h.logger)
	default:
		writeJSON(w, http.StatusOK, album, h.logger)
	}
}

func (h *handlers) trackByID(w http.ResponseWriter, r *http.Request) {
	track, err := h.lookup.TrackForID(r.Context(), r.PathValue("id"))
	switch {
	case err != nil:
		h.lookupFailed(w, err)
	case track == nil:
		writeError(w, http.StatusNotFound, "track not found", h.logger)
	default:
		writeJSON(w, http.StatusOK, track, h.logger)
	}
}

func (h *handlers) image(w http.ResponseWriter, r *http.Request) {
	width, err := dimension(r, "width")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	height, err := dimension(r, "height")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	image, err := h.lookup.Image(r.Context(), r.PathValue("id"), width, height)
	if err != nil {
		h.lookupFailed(w, err)
		return
	}
	if image == nil {
		writeError(w, http.StatusNotFound, "no image available", h.logger)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(image))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image); err != nil {
		h.logger.Debug("Failed to write image", zap.Error(err))
	}
}

func (h *handlers) lookupFailed(w http.ResponseWriter, err error) {
	h.logger.Warn("Lookup failed", zap.Error(err))
	writeError(w, http.StatusBadGateway, err.Error(), h.logger)
}

// dimension parses an optional non-negative image dimension; absent is zero.
func dimension(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}

func writeError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": message}, logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		s.gate.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}
