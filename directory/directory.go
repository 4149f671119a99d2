package directory

import (
	"context"
	"errors"
	"sync"

	"github.com/alorle/tuner-proxy/logging"
	"github.com/alorle/tuner-proxy/metrics"
	"github.com/alorle/tuner-proxy/overrides"
)

// ErrChannelNotFound is returned when no channel matches a (source, name) pair
var ErrChannelNotFound = errors.New("channel not found")

// Provider supplies raw channel records for one upstream source
type Provider interface {
	// Name returns the source's declared name
	Name() string

	// Records fetches the source's current channel records
	Records(ctx context.Context) ([]SourceRecord, error)
}

// snapshot is one immutable point-in-time view of the directory.
// Relay tasks hold a snapshot for the duration of one request.
type snapshot struct {
	channels []Channel
	byKey    map[string]Channel
}

// Directory resolves upstream channel records into the canonical channel
// list. The list is rebuilt wholesale on Reload and the previous snapshot
// is atomically replaced, so concurrent readers never observe a half-built
// list.
type Directory struct {
	providers []Provider
	overrides overrides.Interface
	logger    *logging.Logger

	mu        sync.RWMutex
	current   *snapshot
	listeners []func()
}

// New creates a Directory over the given providers. The directory is empty
// until the first Reload.
func New(providers []Provider, ovr overrides.Interface, logger *logging.Logger) *Directory {
	return &Directory{
		providers: providers,
		overrides: ovr,
		logger:    logger,
		current:   &snapshot{byKey: make(map[string]Channel)},
	}
}

// OnReloaded registers a listener invoked after every completed rebuild.
// Listeners are used to invalidate derived caches, since (source, name)
// routing and tvg-id linkage may have changed.
func (d *Directory) OnReloaded(listener func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, listener)
}

// Reload fetches records from every provider, rebuilds the canonical list
// and swaps in the new snapshot. A failing provider is logged and skipped;
// the rebuild itself never fails. Providers are fetched concurrently so one
// slow source cannot stall the others.
func (d *Directory) Reload(ctx context.Context) {
	type result struct {
		source  string
		records []SourceRecord
		err     error
	}

	results := make([]result, len(d.providers))
	var wg sync.WaitGroup
	for i, p := range d.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			records, err := p.Records(ctx)
			results[i] = result{source: p.Name(), records: records, err: err}
		}(i, p)
	}
	wg.Wait()

	var records []SourceRecord
	for _, res := range results {
		if res.err != nil {
			d.logger.Warn("Skipping source in directory rebuild", map[string]interface{}{
				"source": res.source,
				"error":  res.err.Error(),
			})
			metrics.RecordUpstreamError(res.source)
			continue
		}
		records = append(records, res.records...)
	}

	channels := Build(records, d.overrides)

	next := &snapshot{
		channels: channels,
		byKey:    make(map[string]Channel, len(channels)),
	}
	for _, ch := range channels {
		next.byKey[ch.Source+"/"+ch.Name] = ch
	}

	d.mu.Lock()
	d.current = next
	listeners := make([]func(), len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	metrics.RecordDirectoryRebuild(len(channels))
	d.logger.Info("Channel directory rebuilt", map[string]interface{}{
		"channels": len(channels),
		"sources":  len(d.providers),
	})

	for _, listener := range listeners {
		listener()
	}
}

// Channels returns the current snapshot's channel list. The returned slice
// must not be mutated.
func (d *Directory) Channels() []Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current.channels
}

// Lookup resolves a (source, name) pair to its canonical channel.
// Returns ErrChannelNotFound when the pair is unknown.
func (d *Directory) Lookup(source, name string) (Channel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.current.byKey[source+"/"+name]
	if !ok {
		return Channel{}, ErrChannelNotFound
	}
	return ch, nil
}
