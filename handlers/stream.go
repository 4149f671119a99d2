package handlers

import "net/http"

// CreateStreamHandler routes /stream/{source}/{name} requests into the
// relay. Method and error handling live in the relay itself so segment
// fetches and direct tunes share one code path.
func CreateStreamHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := r.PathValue("source")
		name := r.PathValue("name")
		deps.Relay.ServeStream(w, r, source, name)
	}
}
