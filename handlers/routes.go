package handlers

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alorle/tuner-proxy/cache"
	"github.com/alorle/tuner-proxy/config"
	"github.com/alorle/tuner-proxy/logging"
)

// SetupRoutes configures all HTTP routes and handlers
func SetupRoutes(cfg *config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Error writing health response: %v", err)
		}
	})

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	// HDHomeRun discovery surface
	mux.HandleFunc("GET /discover.json", CreateDiscoverHandler(cfg, deps))
	mux.HandleFunc("GET /lineup_status.json", CreateLineupStatusHandler(deps))
	mux.HandleFunc("GET /lineup.json", CreateLineupHandler(deps))

	// Playlist and guide surface
	mux.HandleFunc("GET /playlist.m3u", CreatePlaylistHandler(deps))
	mux.HandleFunc("GET /guide.xml", CreateGuideHandler(deps))

	// Stream relay; the relay owns method dispatch (GET/HEAD/405)
	mux.HandleFunc("/stream/{source}/{name}", CreateStreamHandler(deps))

	// Image relay for rewritten logo and icon URLs
	mux.HandleFunc("GET /image", CreateImageHandler(deps))

	// Operational endpoints
	mux.HandleFunc("POST /api/reload", CreateReloadHandler(deps))
	mux.HandleFunc("POST /api/guide/refresh", CreateGuideRefreshHandler(deps))
	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		logging.WriteJSONSuccess(w, deps.Logger, deps.Sessions.Active())
	})
	mux.HandleFunc("GET /api/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		logging.WriteJSONSuccess(w, deps.Logger, []cache.Stats{
			deps.PlaylistCache.Stats(),
			deps.LineupCache.Stats(),
		})
	})

	return mux
}
