package handlers

import (
	"net/http"
	"strings"
)

// CreateGuideHandler serves the merged XMLTV guide document. The source
// parameter restricts it to one guide source; the channels parameter is a
// comma-separated list of explicit channel ids.
func CreateGuideHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proto, host := ProtoHost(r)
		sourceFilter := r.URL.Query().Get("source")

		var channelIDs []string
		if raw := r.URL.Query().Get("channels"); raw != "" {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					channelIDs = append(channelIDs, id)
				}
			}
		}

		body := deps.Merger.Render(proto, host, sourceFilter, channelIDs)
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		if _, err := w.Write(body); err != nil {
			deps.Logger.Warn("Failed to write guide response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// CreateGuideRefreshHandler triggers a manual guide merge
func CreateGuideRefreshHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Merger.Merge(r.Context(), deps.Directory.Channels())
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateReloadHandler triggers a manual directory rebuild followed by a
// guide merge against the fresh channel list.
func CreateReloadHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Directory.Reload(r.Context())
		deps.Merger.Merge(r.Context(), deps.Directory.Channels())
		w.WriteHeader(http.StatusNoContent)
	}
}
