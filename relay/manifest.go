package relay

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// ManifestContentType is the MIME type forced onto rewritten manifests
const ManifestContentType = "application/vnd.apple.mpegurl"

var uriAttrRegex = regexp.MustCompile(`URI="([^"]*)"`)

// isManifest decides whether an upstream response carries a playlist
// manifest rather than raw media. The content-type header, the upstream
// response URL and an explicit hls query hint are checked independently.
func isManifest(resp *http.Response, r *http.Request) bool {
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "mpegurl") {
		return true
	}

	if resp.Request != nil && resp.Request.URL != nil {
		path := resp.Request.URL.Path
		if strings.HasSuffix(path, ".m3u8") || strings.HasSuffix(path, ".m3u") {
			return true
		}
	}

	switch r.URL.Query().Get("hls") {
	case "1", "true":
		return true
	}
	return false
}

// RewriteManifest rewrites every URI inside a manifest so that subsequent
// segment fetches re-enter the relay: each non-comment line and each quoted
// URI attribute is resolved against the manifest's own fetch URL and
// re-expressed as routeBase?upstream=<absolute upstream URL>. Unparseable
// lines pass through untouched; the rewrite is line-by-line best effort.
func RewriteManifest(body []byte, manifestURL *url.URL, routeBase string) []byte {
	lines := strings.Split(string(body), "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = uriAttrRegex.ReplaceAllStringFunc(line, func(match string) string {
				uri := match[len(`URI="`) : len(match)-1]
				return `URI="` + rewriteReference(uri, manifestURL, routeBase) + `"`
			})
			continue
		}
		lines[i] = rewriteReference(trimmed, manifestURL, routeBase)
	}

	return []byte(strings.Join(lines, "\n"))
}

// rewriteReference resolves a manifest URI against the manifest URL and
// wraps it in a loop-back relay URL.
func rewriteReference(ref string, manifestURL *url.URL, routeBase string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	abs := manifestURL.ResolveReference(parsed)
	return routeBase + "?upstream=" + escapeUpstream(abs.String())
}

// escapeUpstream escapes only the characters that would corrupt a query
// value, so typical upstream URLs survive byte-identical inside the
// rewritten manifest while URLs carrying their own query strings stay
// parseable on re-entry.
var upstreamEscaper = strings.NewReplacer(
	"%", "%25",
	"&", "%26",
	"#", "%23",
	"+", "%2B",
	" ", "%20",
)

func escapeUpstream(s string) string {
	return upstreamEscaper.Replace(s)
}
