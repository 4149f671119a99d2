package epg

import (
	"context"
	"encoding/xml"
	"sync"
	"time"

	"github.com/alorle/tuner-proxy/cache"
	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/fetcher"
	"github.com/alorle/tuner-proxy/logging"
	"github.com/alorle/tuner-proxy/metrics"
)

// Source names one guide document location. Name must match the declared
// name of an upstream channel source; that is how an unscoped guide
// document is scoped to "its" channels.
type Source struct {
	Name     string
	Location string
}

// part holds the filtered nodes that survived the merge for one source.
// It is retained across merges so a failing source keeps serving its
// previous content.
type part struct {
	channels   []Channel
	programmes []Programme
}

// Merger combines multiple guide documents into one, filtered to the
// resolved channel identity space.
type Merger struct {
	sources []Source
	fetcher fetcher.Interface
	logger  *logging.Logger

	mu         sync.RWMutex
	parts      map[string]part
	serialized []byte

	// renderCache holds rewritten serialized documents keyed by
	// (protocol, host, filter params). Cleared on every merge.
	renderCache *cache.Cache[[]byte]
}

// NewMerger creates a Merger over the given guide sources. renderTTL
// bounds how long a rewritten document may be served without re-rendering.
func NewMerger(sources []Source, f fetcher.Interface, renderTTL time.Duration, logger *logging.Logger) *Merger {
	return &Merger{
		sources:     sources,
		fetcher:     f,
		logger:      logger,
		parts:       make(map[string]part),
		serialized:  []byte(xml.Header + "<tv></tv>\n"),
		renderCache: cache.New[[]byte]("guide-render", renderTTL),
	}
}

// Merge fetches every guide source, filters each document to the channels
// resolved for that source, and rebuilds the merged document. Per-source
// failures are isolated: the source is logged and skipped and its previous
// filtered content is kept. Sources are fetched concurrently so one slow
// source cannot stall the others.
func (m *Merger) Merge(ctx context.Context, channels []directory.Channel) {
	type result struct {
		name string
		part part
		ok   bool
	}

	results := make([]result, len(m.sources))
	var wg sync.WaitGroup
	for i, src := range m.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			p, err := m.fetchPart(ctx, src, channels)
			if err != nil {
				m.logger.Warn("Skipping guide source, keeping previous content", map[string]interface{}{
					"source": src.Name,
					"error":  err.Error(),
				})
				metrics.RecordUpstreamError(src.Name)
				results[i] = result{name: src.Name}
				return
			}
			results[i] = result{name: src.Name, part: p, ok: true}
		}(i, src)
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, res := range results {
		if res.ok {
			m.parts[res.name] = res.part
		}
	}

	merged := m.assembleLocked()
	out, err := xml.MarshalIndent(merged, "", "  ")
	if err != nil {
		// Keep serving the last good document
		m.logger.Error("Failed to serialize merged guide, retaining previous document", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.RecordGuideMerge("failed")
		return
	}
	m.serialized = append([]byte(xml.Header), append(out, '\n')...)

	// Rewritten URLs are derived from the merged document, so they
	// cannot outlive it
	m.renderCache.Clear()

	metrics.RecordGuideMerge("ok")
	m.logger.Info("Guide merge completed", map[string]interface{}{
		"sources":    len(m.sources),
		"channels":   len(merged.Channels),
		"programmes": len(merged.Programmes),
	})
}

// fetchPart fetches and filters one guide source
func (m *Merger) fetchPart(ctx context.Context, src Source, channels []directory.Channel) (part, error) {
	raw, err := m.fetcher.Fetch(ctx, src.Location)
	if err != nil {
		return part{}, err
	}

	var tv TV
	if err := xml.Unmarshal(raw, &tv); err != nil {
		return part{}, err
	}

	idSet, nameSet := scope(channels, src.Name)
	return filter(&tv, idSet, nameSet), nil
}

// scope computes the tvg-id and display-name sets of channels belonging
// to the named source.
func scope(channels []directory.Channel, source string) (map[string]bool, map[string]bool) {
	idSet := make(map[string]bool)
	nameSet := make(map[string]bool)
	for _, ch := range channels {
		if ch.Source != source {
			continue
		}
		if ch.TvgID != "" {
			idSet[ch.TvgID] = true
		}
		nameSet[ch.Name] = true
	}
	return idSet, nameSet
}

// filter keeps only the channel nodes whose id is in the id set (or whose
// display name matches), and the programme nodes referencing a surviving
// channel.
func filter(tv *TV, idSet, nameSet map[string]bool) part {
	var p part
	kept := make(map[string]bool)

	for _, ch := range tv.Channels {
		match := idSet[ch.ID]
		if !match {
			for _, dn := range ch.DisplayNames {
				if nameSet[dn.Value] {
					match = true
					break
				}
			}
		}
		if match {
			p.channels = append(p.channels, ch)
			kept[ch.ID] = true
		}
	}

	for _, prog := range tv.Programmes {
		if kept[prog.Channel] {
			p.programmes = append(p.programmes, prog)
		}
	}

	return p
}

// assembleLocked builds the merged document from the per-source parts in
// source configuration order. Callers must hold m.mu.
func (m *Merger) assembleLocked() TV {
	merged := TV{GeneratorName: "tuner-proxy"}
	for _, src := range m.sources {
		p, ok := m.parts[src.Name]
		if !ok {
			continue
		}
		merged.Channels = append(merged.Channels, p.channels...)
		merged.Programmes = append(merged.Programmes, p.programmes...)
	}
	return merged
}

// Invalidate drops every cached rewritten document. Called after a
// directory rebuild, since tvg-id linkage may have changed.
func (m *Merger) Invalidate() {
	m.renderCache.Clear()
}

// Serialized returns the last good merged document
func (m *Merger) Serialized() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.serialized
}
