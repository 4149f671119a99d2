package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alorle/tuner-proxy/cache"
	"github.com/alorle/tuner-proxy/config"
	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/epg"
	"github.com/alorle/tuner-proxy/fetcher"
	"github.com/alorle/tuner-proxy/logging"
	"github.com/alorle/tuner-proxy/overrides"
	"github.com/alorle/tuner-proxy/relay"
	"github.com/alorle/tuner-proxy/sources"
)

// Dependencies holds all the components needed by the handlers
type Dependencies struct {
	Logger        *logging.Logger
	Directory     *directory.Directory
	Merger        *epg.Merger
	Relay         *relay.Proxy
	Sessions      *relay.SessionStore
	Fetcher       fetcher.Interface
	PlaylistCache *cache.Cache[[]byte]
	LineupCache   *cache.Cache[[]byte]
	DeviceID      string
}

// InitDependencies constructs and wires all application components
func InitDependencies(cfg *config.Config) (Dependencies, error) {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel), "[tuner-proxy]")

	f := fetcher.New(cfg.FetchTimeout)

	overridesMgr, err := overrides.NewManager(cfg.Overrides.File)
	if err != nil {
		return Dependencies{}, fmt.Errorf("failed to initialize overrides manager: %w", err)
	}
	log.Printf("Loaded %d channel overrides from %s", overridesMgr.Count(), cfg.Overrides.File)

	providers := make([]directory.Provider, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		switch src.Type {
		case "m3u":
			providers = append(providers, sources.NewM3USource(src.Name, src.Location, f))
		case "hdhomerun":
			providers = append(providers, sources.NewTunerSource(src.Name, src.Location, f))
		default:
			return Dependencies{}, fmt.Errorf("unknown source type %q for source %q", src.Type, src.Name)
		}
	}

	dir := directory.New(providers, overridesMgr, logger)

	guideSources := make([]epg.Source, 0, len(cfg.EPG.Sources))
	for _, src := range cfg.EPG.Sources {
		guideSources = append(guideSources, epg.Source{Name: src.Name, Location: src.Location})
	}
	merger := epg.NewMerger(guideSources, f, cfg.Cache.GuideTTL, logger)

	sessionStore, err := relay.NewSessionStore()
	if err != nil {
		return Dependencies{}, err
	}

	proxy := relay.New(dir, sessionStore, relay.Config{
		ProbeTimeout: cfg.Relay.ProbeTimeout,
		FetchTimeout: cfg.Relay.FetchTimeout,
		TickInterval: 10 * time.Second,
	}, logger)

	deviceID := cfg.Tuner.DeviceID
	if deviceID == "" {
		deviceID = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		log.Printf("No tuner device_id configured, generated %s", deviceID)
	}

	deps := Dependencies{
		Logger:        logger,
		Directory:     dir,
		Merger:        merger,
		Relay:         proxy,
		Sessions:      sessionStore,
		Fetcher:       f,
		PlaylistCache: cache.New[[]byte]("playlist", cfg.Cache.PlaylistTTL),
		LineupCache:   cache.New[[]byte]("lineup", cfg.Cache.LineupTTL),
		DeviceID:      deviceID,
	}

	// A rebuild may change (source, name) routing and tvg-id linkage,
	// so every derived cache must go
	dir.OnReloaded(func() {
		deps.PlaylistCache.Clear()
		deps.LineupCache.Clear()
		merger.Invalidate()
	})

	return deps, nil
}
