package epg

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// Render returns the merged guide document serialized for one request:
// optionally narrowed to a single source or an explicit channel-id list,
// with every icon URL rewritten to loop back through the proxy's image
// relay. Results are cached by (protocol, host, filter params) until the
// next merge or TTL expiry.
func (m *Merger) Render(proto, host, sourceFilter string, channelIDs []string) []byte {
	key := proto + "|" + host + "|" + sourceFilter + "|" + strings.Join(channelIDs, ",")
	if cached, ok := m.renderCache.Get(key); ok {
		return cached
	}

	m.mu.RLock()
	doc := m.narrowLocked(sourceFilter, channelIDs)
	fallback := m.serialized
	m.mu.RUnlock()

	rewriteIcons(&doc, proto, host)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		// Serve the unrewritten last good document rather than nothing
		m.logger.Error("Failed to serialize filtered guide", map[string]interface{}{
			"error": err.Error(),
		})
		return fallback
	}

	serialized := append([]byte(xml.Header), append(out, '\n')...)
	m.renderCache.Set(key, serialized)
	return serialized
}

// narrowLocked builds a filtered copy of the merged document.
// Callers must hold m.mu.
func (m *Merger) narrowLocked(sourceFilter string, channelIDs []string) TV {
	if sourceFilter != "" {
		doc := TV{GeneratorName: "tuner-proxy"}
		if p, ok := m.parts[sourceFilter]; ok {
			doc.Channels = append(doc.Channels, p.channels...)
			doc.Programmes = append(doc.Programmes, p.programmes...)
		}
		return narrowByIDs(doc, channelIDs)
	}
	return narrowByIDs(m.assembleLocked(), channelIDs)
}

// narrowByIDs keeps only the named channel ids; an empty list keeps all
func narrowByIDs(doc TV, channelIDs []string) TV {
	if len(channelIDs) == 0 {
		return doc
	}

	wanted := make(map[string]bool, len(channelIDs))
	for _, id := range channelIDs {
		wanted[id] = true
	}

	narrowed := TV{GeneratorName: doc.GeneratorName}
	for _, ch := range doc.Channels {
		if wanted[ch.ID] {
			narrowed.Channels = append(narrowed.Channels, ch)
		}
	}
	for _, prog := range doc.Programmes {
		if wanted[prog.Channel] {
			narrowed.Programmes = append(narrowed.Programmes, prog)
		}
	}
	return narrowed
}

// rewriteIcons points every icon node at the proxy's image relay. Icon
// slices are replaced, not mutated: the document shares backing arrays
// with the retained per-source parts.
func rewriteIcons(doc *TV, proto, host string) {
	for i := range doc.Channels {
		doc.Channels[i].Icons = rewrittenIcons(doc.Channels[i].Icons, proto, host)
	}
	for i := range doc.Programmes {
		doc.Programmes[i].Icons = rewrittenIcons(doc.Programmes[i].Icons, proto, host)
	}
}

func rewrittenIcons(icons []Icon, proto, host string) []Icon {
	if len(icons) == 0 {
		return icons
	}
	out := make([]Icon, len(icons))
	for i, icon := range icons {
		icon.Src = RewriteImageURL(proto, host, icon.Src)
		out[i] = icon
	}
	return out
}

// RewriteImageURL re-expresses an upstream image URL as a proxy image-relay
// URL. Non-HTTP references are left untouched.
func RewriteImageURL(proto, host, src string) string {
	if src == "" || !strings.HasPrefix(src, "http") {
		return src
	}
	return fmt.Sprintf("%s://%s/image?url=%s", proto, host, url.QueryEscape(src))
}
