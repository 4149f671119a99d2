package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alorle/tuner-proxy/cache"
	"github.com/alorle/tuner-proxy/config"
	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/epg"
	"github.com/alorle/tuner-proxy/fetcher"
	"github.com/alorle/tuner-proxy/logging"
	"github.com/alorle/tuner-proxy/relay"
)

type staticProvider struct {
	name    string
	records []directory.SourceRecord
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Records(ctx context.Context) ([]directory.SourceRecord, error) {
	return p.records, nil
}

const testGuideXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="one.tv"><display-name>One</display-name></channel>
  <programme channel="one.tv" start="20260101120000 +0000" stop="20260101130000 +0000"><title>News</title></programme>
</tv>`

func newTestDeps(t *testing.T, records []directory.SourceRecord) Dependencies {
	t.Helper()

	logger := logging.NewWithWriter(logging.ERROR, "", io.Discard)
	dir := directory.New([]directory.Provider{
		&staticProvider{name: "A", records: records},
	}, nil, logger)
	dir.Reload(context.Background())

	f := &fetcher.Mock{
		FetchFunc: func(ctx context.Context, location string) ([]byte, error) {
			return []byte(testGuideXML), nil
		},
	}
	merger := epg.NewMerger([]epg.Source{{Name: "A", Location: "http://guide/xmltv"}}, f, time.Minute, logger)
	merger.Merge(context.Background(), dir.Channels())

	sessions, err := relay.NewSessionStore()
	if err != nil {
		t.Fatalf("NewSessionStore failed: %v", err)
	}

	return Dependencies{
		Logger:        logger,
		Directory:     dir,
		Merger:        merger,
		Relay:         relay.New(dir, sessions, relay.Config{ProbeTimeout: time.Second, FetchTimeout: time.Second, TickInterval: time.Second}, logger),
		Sessions:      sessions,
		Fetcher:       f,
		PlaylistCache: cache.New[[]byte]("playlist", time.Minute),
		LineupCache:   cache.New[[]byte]("lineup", time.Minute),
		DeviceID:      "ABCDEF01",
	}
}

func testRecords() []directory.SourceRecord {
	return []directory.SourceRecord{
		{Source: "A", Name: "One", TvgID: "one.tv", GuideNumber: "1.1", URL: "http://up/one.ts"},
		{Source: "A", Name: "Two", TvgID: "two.tv", URL: "http://up/two.ts"},
		{Source: "A", Name: "Three", URL: "http://up/three.ts"},
	}
}

func TestDiscoverHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Tuner.FriendlyName = "Test Tuner"
	deps := newTestDeps(t, testRecords())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://proxy:5004/discover.json", nil)
	CreateDiscoverHandler(cfg, deps)(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var doc DiscoverResponse
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode discovery document: %v", err)
	}
	if doc.FriendlyName != "Test Tuner" {
		t.Errorf("FriendlyName = %q", doc.FriendlyName)
	}
	if doc.DeviceID != "ABCDEF01" {
		t.Errorf("DeviceID = %q", doc.DeviceID)
	}
	if doc.TunerCount != 6 {
		t.Errorf("TunerCount = %d", doc.TunerCount)
	}
	if doc.BaseURL != "http://proxy:5004" {
		t.Errorf("BaseURL = %q", doc.BaseURL)
	}
	if doc.LineupURL != "http://proxy:5004/lineup.json" {
		t.Errorf("LineupURL = %q", doc.LineupURL)
	}
}

func TestLineupStatusHandler(t *testing.T) {
	deps := newTestDeps(t, testRecords())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/lineup_status.json", nil)
	CreateLineupStatusHandler(deps)(w, r)

	var doc LineupStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode lineup status: %v", err)
	}
	if doc.ScanInProgress != 0 || doc.ScanPossible != 1 {
		t.Errorf("scan state = %+v", doc)
	}
}

func TestLineupHandler(t *testing.T) {
	t.Run("entries point at the relay routes", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "http://proxy:5004/lineup.json", nil)
		CreateLineupHandler(deps)(w, r)

		var entries []LineupEntry
		if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
			t.Fatalf("failed to decode lineup: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3", len(entries))
		}

		if entries[0].URL != "http://proxy:5004/stream/A/One" {
			t.Errorf("URL = %q", entries[0].URL)
		}
		for _, e := range entries {
			if strings.Contains(e.URL, "up/") {
				t.Errorf("lineup exposes upstream URL: %q", e.URL)
			}
		}
	})

	t.Run("guide number falls back through tvg-id to name", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/lineup.json", nil)
		CreateLineupHandler(deps)(w, r)

		var entries []LineupEntry
		if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
			t.Fatalf("failed to decode lineup: %v", err)
		}

		byName := make(map[string]LineupEntry, len(entries))
		for _, e := range entries {
			byName[e.GuideName] = e
		}
		if byName["One"].GuideNumber != "1.1" {
			t.Errorf("GuideNumber = %q, want explicit 1.1", byName["One"].GuideNumber)
		}
		if byName["Two"].GuideNumber != "two.tv" {
			t.Errorf("GuideNumber = %q, want tvg-id fallback", byName["Two"].GuideNumber)
		}
		if byName["Three"].GuideNumber != "Three" {
			t.Errorf("GuideNumber = %q, want name fallback", byName["Three"].GuideNumber)
		}
	})

	t.Run("source filter and empty result shape", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/lineup.json?source=nope", nil)
		CreateLineupHandler(deps)(w, r)

		// An empty lineup must serialize as [], not null
		if got := strings.TrimSpace(w.Body.String()); got != "[]" {
			t.Errorf("body = %q, want []", got)
		}
	})

	t.Run("directory reload invalidates the cached lineup", func(t *testing.T) {
		logger := logging.NewWithWriter(logging.ERROR, "", io.Discard)
		provider := &staticProvider{name: "A", records: testRecords()}
		dir := directory.New([]directory.Provider{provider}, nil, logger)
		dir.Reload(context.Background())

		deps := newTestDeps(t, testRecords())
		deps.Directory = dir
		dir.OnReloaded(func() { deps.LineupCache.Clear() })

		w := httptest.NewRecorder()
		CreateLineupHandler(deps)(w, httptest.NewRequest(http.MethodGet, "/lineup.json", nil))

		provider.records = provider.records[:1]
		dir.Reload(context.Background())

		w = httptest.NewRecorder()
		CreateLineupHandler(deps)(w, httptest.NewRequest(http.MethodGet, "/lineup.json", nil))

		var entries []LineupEntry
		if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
			t.Fatalf("failed to decode lineup: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("got %d entries after reload, want 1", len(entries))
		}
	})
}

func TestPlaylistHandler(t *testing.T) {
	t.Run("serves an extended m3u document", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "http://proxy:5004/playlist.m3u", nil)
		CreatePlaylistHandler(deps)(w, r)

		if ct := w.Header().Get("Content-Type"); ct != "audio/x-mpegurl" {
			t.Errorf("Content-Type = %q", ct)
		}
		body := w.Body.String()
		if !strings.HasPrefix(body, "#EXTM3U") {
			t.Errorf("body does not start with #EXTM3U:\n%s", body)
		}
		if !strings.Contains(body, "http://proxy:5004/stream/A/One") {
			t.Errorf("playlist missing relay route:\n%s", body)
		}
	})

	t.Run("source parameter is an alias for group", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/playlist.m3u?source=nope", nil)
		CreatePlaylistHandler(deps)(w, r)

		if strings.Contains(w.Body.String(), "#EXTINF") {
			t.Errorf("expected filtered playlist to be empty:\n%s", w.Body.String())
		}
	})
}

func TestGuideHandler(t *testing.T) {
	t.Run("serves the merged document", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/guide.xml", nil)
		CreateGuideHandler(deps)(w, r)

		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
			t.Errorf("Content-Type = %q", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `channel id="one.tv"`) || !strings.Contains(body, "News") {
			t.Errorf("guide missing expected content:\n%s", body)
		}
	})

	t.Run("channels parameter narrows the document", func(t *testing.T) {
		deps := newTestDeps(t, testRecords())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/guide.xml?channels=unknown", nil)
		CreateGuideHandler(deps)(w, r)

		if strings.Contains(w.Body.String(), `channel id="one.tv"`) {
			t.Errorf("expected channel filter to drop one.tv:\n%s", w.Body.String())
		}
	})
}

func TestRoutes(t *testing.T) {
	cfg := config.Default()
	deps := newTestDeps(t, testRecords())
	srv := httptest.NewServer(SetupRoutes(cfg, deps))
	defer srv.Close()

	get := func(t *testing.T, path string) *http.Response {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		return resp
	}

	t.Run("health", func(t *testing.T) {
		resp := get(t, "/health")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		resp := get(t, "/metrics")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("sessions listing", func(t *testing.T) {
		resp := get(t, "/api/sessions")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})

	t.Run("cache stats", func(t *testing.T) {
		resp := get(t, "/api/cache/stats")
		defer resp.Body.Close()

		var stats []cache.Stats
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			t.Fatalf("failed to decode cache stats: %v", err)
		}
		if len(stats) != 2 {
			t.Errorf("got %d cache entries, want 2", len(stats))
		}
	})

	t.Run("reload is POST only", func(t *testing.T) {
		resp := get(t, "/api/reload")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
	})
}
