// Package health implements liveness and readiness probes in the Kubernetes
// style: every registered check runs on its own ticker and flips state only
// after a run of consecutive results, so a single slow poll does not bounce
// the service in and out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Thresholds applied to every probe: three consecutive failures mark it
// unhealthy, a single success brings it back.
const (
	failAfter = 3
	passAfter = 1
)

// probe is one registered check plus its runtime state.
//
// exec is only ever called from the probe's own loop goroutine, so the
// fails/passes counters are unsynchronized. healthy and lastErr are also
// read from HTTP handler goroutines and use atomics.
type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails  int
	passes int
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, fn: fn}
	p.healthy.Store(true) // healthy until a failure streak says otherwise
	return p
}

func (p *probe) ok() bool {
	return p.healthy.Load()
}

func (p *probe) err() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// exec runs the check once and applies the thresholds. Single-goroutine only.
func (p *probe) exec(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.fn(probeCtx)
	cancel()

	p.lastErr.Store(&err)

	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= failAfter {
			p.healthy.Store(false)
		}
		return
	}

	p.fails = 0
	p.passes++
	if p.passes >= passAfter {
		p.healthy.Store(true)
	}
}

// loop executes the probe immediately and then on every tick until ctx ends.
func (p *probe) loop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	p.exec(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.exec(ctx)
		}
	}
}

// Health owns the registered probes and serves the /livez and /readyz
// handlers. The zero value is usable but starts not-ready; call
// SetReady(true) once initialization finishes.
type Health struct {
	ready atomic.Bool

	// mu guards the probe slices and cancel. Handlers only hold it long
	// enough to snapshot a slice.
	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New returns an empty, not-ready Health.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe that decides whether the process itself
// is functioning (goroutine counts, GC pauses and the like).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	h.liveness = append(h.liveness, newProbe(name, timeout, fn))
	h.mu.Unlock()
}

// AddReadinessCheck registers a probe that decides whether the service can
// take traffic (database connectivity, warmed caches, upstream availability).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	h.readiness = append(h.readiness, newProbe(name, timeout, fn))
	h.mu.Unlock()
}

// Start launches one goroutine per registered probe, each ticking at the
// given interval. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go p.loop(ctx, interval)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set it to true once startup
// completes and back to false at the start of graceful shutdown so load
// balancers drain the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is currently passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()

	for _, p := range probes {
		if !p.ok() {
			return false
		}
	}
	return true
}

// statusBody is the JSON payload for both endpoints.
type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} while every liveness probe
// passes, 503 with the failing probes otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := make([]*probe, len(h.liveness))
	copy(probes, h.liveness)
	h.mu.RUnlock()

	respond(w, failures(probes))
}

// ReadyEndpoint serves /readyz: 200 only when the service has been marked
// ready and every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	probes := make([]*probe, len(h.readiness))
	copy(probes, h.readiness)
	h.mu.RUnlock()

	failed := failures(probes)
	if !ready {
		failed["_readiness"] = "service is not ready"
	}
	respond(w, failed)
}

// failures maps each unhealthy probe to its last recorded error. Probes are
// not re-executed here; the handlers only report state.
func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if p.ok() {
			continue
		}
		if err := p.err(); err != nil {
			failed[p.name] = err.Error()
		} else {
			failed[p.name] = "check is unhealthy"
		}
	}
	return failed
}

func respond(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	body := statusBody{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		body = statusBody{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)

	// The status line is already on the wire; an encode error here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(body)
}
