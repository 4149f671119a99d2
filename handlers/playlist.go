package handlers

import (
	"net/http"

	"github.com/alorle/tuner-proxy/playlist"
)

// CreatePlaylistHandler serves the extended-M3U playlist. The group
// parameter (with source as an alias) restricts the playlist to one
// upstream source. Generated playlists are cached per (base URL, filter)
// until the next directory rebuild or TTL expiry.
func CreatePlaylistHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proto, host := ProtoHost(r)

		group := r.URL.Query().Get("group")
		if group == "" {
			group = r.URL.Query().Get("source")
		}

		key := proto + "://" + host + "|" + group
		body, ok := deps.PlaylistCache.Get(key)
		if !ok {
			body = playlist.Generate(deps.Directory.Channels(), proto, host, group)
			deps.PlaylistCache.Set(key, body)
		}

		w.Header().Set("Content-Type", "audio/x-mpegurl")
		if _, err := w.Write(body); err != nil {
			deps.Logger.Warn("Failed to write playlist response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
