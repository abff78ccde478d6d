// Package engine implements spec.md §4.K, the connection-processing engine
// that ties every other component together: per-connection buffering,
// protocol demultiplex (TLS record vs. HTTP/2 preface vs. HTTP/1), request
// dispatch through RBAC/WAF/rate-limiter into the router and static-file
// service, and the adaptive keep-alive/idle-timeout tuning.
//
// Grounded on shockwave's per-protocol connection files for the dispatch
// shape and original_source/selenia_server/src/main.rs's request-handling
// branch for the demux/dispatch order (rate limit -> protocol sniff ->
// RBAC -> WAF -> router -> static/metrics).
package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/http1"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/listener"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/logging"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/metrics"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/ratelimit"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/rbac"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/router"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/socket"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/tlsstate"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/wasmedge"
)

// Config bundles the per-worker state shared by every connection the
// engine serves. One Config is normally built once per worker process and
// handed to New.
type Config struct {
	// RootDir is the static-file service's vhost root (spec.md §4.N).
	RootDir string

	// Locale names the string table used for localized plain-text error
	// bodies; empty falls back to "en".
	Locale string

	// TLSCert/TLSKey carry the configured certificate/key paths. The
	// connection demux does not read them: any connection whose first byte
	// is 0x16 takes the simplified TLS 1.3 handshake path either way.
	TLSCert string
	TLSKey  string

	Router      *router.Router
	RBAC        *rbac.Policy
	RateLimiter *ratelimit.Limiter
	Metrics     *metrics.Registry
	KeepAlive   *KeepAliveTuner
	Idle        *IdleTuner
	Tickets     *tlsstate.TicketStore
	Log         *logging.Logger
	Edge        *wasmedge.Registry
}

// DefaultConfig builds a Config with the spec's defaults: no RBAC rules (so
// every request is allowed), spec.md's default rate-limit bucket, and the
// process-wide metrics registry.
func DefaultConfig(rootDir string) *Config {
	r := router.New()
	r.Add(metricsPath, destMetrics)

	edge, _ := wasmedge.LoadDir(filepath.Join(rootDir, "edge"))
	for _, name := range edge.Names() {
		r.Add(edgePathPrefix+name, destEdge)
	}

	r.Add("/*path", destStatic)
	return &Config{
		RootDir:     rootDir,
		Locale:      "en",
		Router:      r,
		RBAC:        rbac.New(),
		RateLimiter: ratelimit.NewDefault(),
		Metrics:     metrics.Default(),
		KeepAlive:   NewKeepAliveTuner(),
		Idle:        NewIdleTuner(),
		Tickets:     tlsstate.NewTicketStore(tlsstate.DefaultTicketTTL),
		Log:         logging.Default().WithPrefix("engine"),
		Edge:        edge,
	}
}

// Engine owns the live connection set for one worker process: the listeners
// feeding it accepted sockets, the UDP listeners feeding it QUIC datagrams,
// and the registry of open Connections the idle-timeout scanner walks.
type Engine struct {
	cfg       *Config
	listeners []*listener.Listener
	accepted  chan listener.Accepted

	quicListeners []*listener.UDPListener
	quicPackets   chan listener.UDPAccepted

	reg *registry
}

// New creates an Engine bound to cfg. Call Listen (and, for QUIC, ListenQUIC)
// for each configured address, then Run to start serving.
func New(cfg *Config) *Engine {
	return &Engine{
		cfg:         cfg,
		accepted:    make(chan listener.Accepted, 256),
		quicPackets: make(chan listener.UDPAccepted, 256),
		reg:         newRegistry(),
	}
}

// Listen binds addr and starts its dedicated accept goroutine, per spec.md
// §4.D. It may be called more than once to serve several addresses from one
// Engine (e.g. one per vhost listener).
func (e *Engine) Listen(addr string) error {
	ln, err := listener.Bind(addr, socket.Config{NoDelay: true}, e.accepted)
	if err != nil {
		return err
	}
	e.listeners = append(e.listeners, ln)
	return nil
}

// ListenQUIC binds addr as a UDP socket and starts its read goroutine,
// feeding datagrams to the QUIC front door implemented in quicdispatch.go.
func (e *Engine) ListenQUIC(addr string) error {
	ln, err := listener.BindUDP(addr, socket.Config{RecvBuffer: 1 << 20, SendBuffer: 1 << 20}, e.quicPackets)
	if err != nil {
		return err
	}
	e.quicListeners = append(e.quicListeners, ln)
	return nil
}

// Run drains accepted connections and spawns one goroutine per connection,
// until ctx is cancelled. It also starts the background idle-timeout
// scanner and, when any QUIC listener is bound, the QUIC dispatch loop. Run
// blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for _, ln := range e.listeners {
		ln.Serve(ctx)
	}
	for _, ln := range e.quicListeners {
		ln.Serve(ctx)
	}

	go e.idleScanLoop(ctx)
	if len(e.quicListeners) > 0 {
		go e.quicDispatchLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			e.closeAll()
			return
		case a := <-e.accepted:
			e.cfg.KeepAlive.RecordNewConn()
			c := newConnection(a.Conn, e.cfg)
			e.reg.add(c)
			go e.serveConnection(c)
		}
	}
}

func (e *Engine) serveConnection(c *connection) {
	defer e.reg.remove(c)
	defer c.conn.Close()
	defer http1.PutBufioReader(c.br)
	c.serve()
}

func (e *Engine) closeAll() {
	for _, ln := range e.listeners {
		_ = ln.Close()
	}
	for _, ln := range e.quicListeners {
		_ = ln.Close()
	}
	_ = e.cfg.Tickets.Close()
	e.reg.closeAll()
}

// idleScanLoop periodically shuts down connections whose last-activity
// timestamp exceeds the current adaptive idle threshold, per spec.md §4.K.
func (e *Engine) idleScanLoop(ctx context.Context) {
	ticker := time.NewTicker(idleScanPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cfg.Idle.Observe(e.reg.len(), idleScanCapacityHint)
			timeout := e.cfg.Idle.Current()
			now := time.Now()
			e.reg.forEach(func(c *connection) {
				if now.Sub(c.lastActivity()) > timeout {
					c.Close()
				}
			})
		}
	}
}

const (
	idleScanPeriod       = 5 * time.Second
	idleScanCapacityHint = 10000
)

// registry is the event-loop's exclusive ownership map of live connections
// (spec.md §3 "the event-loop map exclusively owns all Connections"),
// guarded by a mutex since Go's goroutine-per-connection model accesses it
// concurrently from the idle scanner and the accept loop, unlike a
// single-threaded reactor.
type registry struct {
	mu    chan struct{} // binary semaphore; see lock/unlock below
	conns map[*connection]struct{}
}

func newRegistry() *registry {
	r := &registry{mu: make(chan struct{}, 1), conns: make(map[*connection]struct{})}
	return r
}

func (r *registry) lock()   { r.mu <- struct{}{} }
func (r *registry) unlock() { <-r.mu }

func (r *registry) add(c *connection) {
	r.lock()
	r.conns[c] = struct{}{}
	r.unlock()
}

func (r *registry) remove(c *connection) {
	r.lock()
	delete(r.conns, c)
	r.unlock()
}

func (r *registry) len() int {
	r.lock()
	n := len(r.conns)
	r.unlock()
	return n
}

func (r *registry) forEach(fn func(*connection)) {
	r.lock()
	snapshot := make([]*connection, 0, len(r.conns))
	for c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.unlock()
	for _, c := range snapshot {
		fn(c)
	}
}

func (r *registry) closeAll() {
	r.forEach(func(c *connection) { c.Close() })
}

