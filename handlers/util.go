package handlers

import (
	"fmt"
	"net/http"
)

// ProtoHost returns the scheme and host of an HTTP request, honoring
// X-Forwarded-Proto behind a reverse proxy.
func ProtoHost(r *http.Request) (string, string) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme, r.Host
}

// BaseURL returns scheme://host for an HTTP request
func BaseURL(r *http.Request) string {
	proto, host := ProtoHost(r)
	return fmt.Sprintf("%s://%s", proto, host)
}
