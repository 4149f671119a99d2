package playlist

import (
	"fmt"
	"strings"

	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/epg"
)

// Generate renders the canonical channel list as an extended-M3U playlist.
// Every media URL is the proxy's own relay route and every logo URL loops
// back through the image relay. groupFilter, when non-empty, restricts the
// playlist to channels of one source.
//
// Duplicate tvg-id values are disambiguated with _1, _2, ... suffixes in
// first-seen order, since guide-aware players treat tvg-id as unique.
func Generate(channels []directory.Channel, proto, host, groupFilter string) []byte {
	baseURL := fmt.Sprintf("%s://%s", proto, host)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("#EXTM3U url-tvg=%q x-tvg-url=%q\n",
		baseURL+"/guide.xml", baseURL+"/guide.xml"))

	seen := make(map[string]int)
	for _, ch := range channels {
		if groupFilter != "" && ch.Source != groupFilter {
			continue
		}

		tvgID := ch.TvgID
		if tvgID != "" {
			if n, dup := seen[tvgID]; dup {
				seen[tvgID] = n + 1
				tvgID = fmt.Sprintf("%s_%d", tvgID, n)
			} else {
				seen[tvgID] = 1
			}
		}

		sb.WriteString("#EXTINF:-1")
		if tvgID != "" {
			sb.WriteString(fmt.Sprintf(" tvg-id=%q", tvgID))
		}
		sb.WriteString(fmt.Sprintf(" tvg-name=%q", ch.Name))
		if ch.Logo != "" {
			sb.WriteString(fmt.Sprintf(" tvg-logo=%q", epg.RewriteImageURL(proto, host, ch.Logo)))
		}
		group := ch.Group
		if group == "" {
			group = ch.Source
		}
		sb.WriteString(fmt.Sprintf(" group-title=%q", group))
		sb.WriteString(fmt.Sprintf(",%s\n", ch.Name))
		sb.WriteString(baseURL + ch.Route() + "\n")
	}

	return []byte(sb.String())
}
