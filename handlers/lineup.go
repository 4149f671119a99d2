package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/logging"
)

// LineupEntry is one channel in the lineup document. URL is always the
// proxy's own relay route, never the upstream address.
type LineupEntry struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	URL         string `json:"URL"`
}

// CreateLineupHandler serves the lineup document, optionally restricted to
// one source via the source query parameter. Serialized lineups are cached
// per (base URL, filter) until the next directory rebuild or TTL expiry.
func CreateLineupHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := BaseURL(r)
		sourceFilter := r.URL.Query().Get("source")

		key := baseURL + "|" + sourceFilter
		if cached, ok := deps.LineupCache.Get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			if _, err := w.Write(cached); err != nil {
				deps.Logger.Warn("Failed to write lineup response", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		entries := []LineupEntry{}
		for _, ch := range deps.Directory.Channels() {
			if sourceFilter != "" && ch.Source != sourceFilter {
				continue
			}
			entries = append(entries, LineupEntry{
				GuideNumber: directory.ChannelID(ch),
				GuideName:   ch.Name,
				URL:         baseURL + ch.Route(),
			})
		}

		body, err := json.Marshal(entries)
		if err != nil {
			logging.WriteJSONError(w, deps.Logger, "Internal server error", http.StatusInternalServerError, map[string]interface{}{
				"path": r.URL.Path,
			})
			return
		}

		deps.LineupCache.Set(key, body)
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			deps.Logger.Warn("Failed to write lineup response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
