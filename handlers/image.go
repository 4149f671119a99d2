package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// CreateImageHandler relays channel logo and guide icon bytes from
// upstream. Rewritten guide and playlist URLs point here.
func CreateImageHandler(deps Dependencies) http.HandlerFunc {
	client := &http.Client{Timeout: 15 * time.Second}

	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" || !strings.HasPrefix(target, "http") {
			http.Error(w, "missing or invalid url parameter", http.StatusBadRequest)
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
		if err != nil {
			http.Error(w, "missing or invalid url parameter", http.StatusBadRequest)
			return
		}

		resp, err := client.Do(req)
		if err != nil {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			deps.Logger.Debug("Client disconnected during image relay", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
