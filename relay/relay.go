package relay

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alorle/tuner-proxy/circuitbreaker"
	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/logging"
	"github.com/alorle/tuner-proxy/metrics"
)

// Config holds the relay's timeout and tracking settings
type Config struct {
	// ProbeTimeout bounds HEAD probes (order of seconds)
	ProbeTimeout time.Duration

	// FetchTimeout bounds the wait for upstream response headers on GET;
	// the streamed body itself is never time-limited
	FetchTimeout time.Duration

	// TickInterval is the liveness tick period for usage sessions
	TickInterval time.Duration
}

// Proxy relays one live upstream connection per viewer request. Media
// bytes are piped without buffering; in-band playlist manifests are
// rewritten so segment fetches loop back through the relay.
type Proxy struct {
	dir      *directory.Directory
	sessions *SessionStore
	logger   *logging.Logger

	probeClient  *http.Client
	streamClient *http.Client
	tickInterval time.Duration

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker
}

// New creates a Proxy over the given directory and session store
func New(dir *directory.Directory, sessions *SessionStore, cfg Config, logger *logging.Logger) *Proxy {
	return &Proxy{
		dir:      dir,
		sessions: sessions,
		logger:   logger,
		probeClient: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		streamClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.FetchTimeout,
			},
		},
		tickInterval: cfg.TickInterval,
		breakers:     make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// ServeStream handles one viewer request for /stream/{source}/{name}.
// Unknown channels are a client error, upstream failures degrade to a
// per-request 502; neither affects other concurrent viewers.
func (p *Proxy) ServeStream(w http.ResponseWriter, r *http.Request, source, name string) {
	ch, err := p.dir.Lookup(source, name)
	if err != nil {
		metrics.RecordRelayRequest("not_found")
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodHead:
		p.probe(w, r, ch)
		return
	case http.MethodGet:
	default:
		metrics.RecordRelayRequest("bad_method")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upstream, segment, ok := p.upstreamURL(r, ch)
	if !ok {
		metrics.RecordRelayRequest("bad_method")
		http.Error(w, "invalid upstream parameter", http.StatusBadRequest)
		return
	}

	// The request context cancels on client disconnect, which aborts the
	// in-flight upstream read
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		p.upstreamFailure(w, ch, err)
		return
	}

	resp, err := p.fetchUpstream(req, ch.Source)
	if err != nil {
		p.upstreamFailure(w, ch, err)
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Debug("Failed to close upstream body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	finish := p.trackSession(r.Context(), clientAddr(r), directory.ChannelID(ch), segment)
	defer finish()

	metrics.RecordRelayRequest("ok")
	if isManifest(resp, r) {
		p.serveManifest(w, r, resp, ch)
	} else {
		p.serveMedia(w, resp)
	}
}

// upstreamURL picks the upstream address for a request: the explicit
// upstream override for segment fetches spawned by manifest rewriting,
// otherwise the channel's true address. The override must be an absolute
// HTTP(S) URL.
func (p *Proxy) upstreamURL(r *http.Request, ch directory.Channel) (upstream string, segment bool, ok bool) {
	override := r.URL.Query().Get("upstream")
	if override == "" {
		return ch.OriginalURL, false, true
	}
	if !strings.HasPrefix(override, "http://") && !strings.HasPrefix(override, "https://") {
		return "", false, false
	}
	return override, true, true
}

// fetchUpstream performs the upstream GET behind the source's circuit
// breaker. A string of failed fetches opens the circuit and later viewer
// requests for that source fail fast instead of waiting out the timeout.
// Error statuses count as failures and never reach the viewer.
func (p *Proxy) fetchUpstream(req *http.Request, source string) (*http.Response, error) {
	var resp *http.Response
	err := p.breaker(source).Execute(func() error {
		r, err := p.streamClient.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= http.StatusBadRequest {
			if closeErr := r.Body.Close(); closeErr != nil {
				p.logger.Debug("Failed to close upstream body", map[string]interface{}{
					"error": closeErr.Error(),
				})
			}
			return fmt.Errorf("upstream returned status %d", r.StatusCode)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// breaker returns the source's circuit breaker, creating it on first use
func (p *Proxy) breaker(source string) circuitbreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.breakers[source]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.Config{
			Logger: p.logger,
			Source: source,
		})
		p.breakers[source] = cb
	}
	return cb
}

// probe issues a headers-only upstream request with a short timeout and
// mirrors status and headers back, never touching the body.
func (p *Proxy) probe(w http.ResponseWriter, r *http.Request, ch directory.Channel) {
	upstream, _, ok := p.upstreamURL(r, ch)
	if !ok {
		http.Error(w, "invalid upstream parameter", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodHead, upstream, nil)
	if err != nil {
		p.upstreamFailure(w, ch, err)
		return
	}

	resp, err := p.probeClient.Do(req)
	if err != nil {
		p.upstreamFailure(w, ch, err)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	metrics.RecordRelayRequest("ok")
}

// upstreamFailure logs the underlying error and degrades to a 502. The
// response body never echoes upstream-controlled strings.
func (p *Proxy) upstreamFailure(w http.ResponseWriter, ch directory.Channel, err error) {
	p.logger.Warn("Upstream fetch failed", map[string]interface{}{
		"source":  ch.Source,
		"channel": ch.Name,
		"error":   err.Error(),
	})
	metrics.RecordRelayRequest("upstream_error")
	metrics.RecordUpstreamError(ch.Source)
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

// serveManifest buffers the small text manifest, rewrites every URI to
// loop back through the relay and sends the rewritten body whole. Length
// headers are stripped since the rewritten body length differs.
func (p *Proxy) serveManifest(w http.ResponseWriter, r *http.Request, resp *http.Response, ch directory.Channel) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.upstreamFailure(w, ch, err)
		return
	}

	routeBase := requestBaseURL(r) + ch.Route()
	rewritten := RewriteManifest(body, resp.Request.URL, routeBase)

	copyHeaders(w.Header(), resp.Header)
	w.Header().Del("Content-Length")
	w.Header().Del("Transfer-Encoding")
	w.Header().Set("Content-Type", ManifestContentType)
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(rewritten); err != nil {
		p.logger.Debug("Client disconnected during manifest write", map[string]interface{}{
			"channel": ch.Name,
		})
	}
}

// serveMedia pipes the upstream body to the client without buffering.
// A write failure means the client went away; a read failure covers both
// upstream errors and the request context cancelling the body.
func (p *Proxy) serveMedia(w http.ResponseWriter, resp *http.Response) {
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

// trackSession registers a usage session and arms the periodic liveness
// tick while the connection stays open. Segment fetches spawned by a
// rewritten manifest register but do not tick: the manifest-level session
// already represents that viewer. The returned finish func stops the tick
// and performs the final touch.
func (p *Proxy) trackSession(ctx context.Context, client, channelID string, segment bool) func() {
	if err := p.sessions.Touch(client, channelID); err != nil {
		p.logger.Warn("Failed to record usage session", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if segment {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := p.sessions.Touch(client, channelID); err != nil {
					return
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		if err := p.sessions.Touch(client, channelID); err != nil {
			p.logger.Debug("Failed to finalize usage session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// clientAddr extracts the client host from a request's remote address
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestBaseURL returns scheme://host for a request, honoring
// X-Forwarded-Proto behind a reverse proxy.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
