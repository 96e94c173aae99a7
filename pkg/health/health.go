// Package health exposes liveness and readiness probes for HTTP services.
//
// Probes are registered before Run and evaluated on a shared ticker. A probe
// flips to failing only after several consecutive errors and recovers after a
// consecutive success, which keeps transient blips from flapping the probe
// endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Check reports whether a single component is healthy.
type Check func(ctx context.Context) error

const (
	defaultFailAfter    = 3
	defaultRecoverAfter = 1
)

// probe tracks the rolling state of one registered check. All state is
// guarded by the owning Service mutex; the scheduler and the HTTP handlers
// never touch a probe without it.
type probe struct {
	name    string
	timeout time.Duration
	check   Check

	failing   bool
	lastErr   error
	failStick int
	okStick   int
}

func (p *probe) observe(err error) {
	p.lastErr = err
	if err != nil {
		p.okStick = 0
		p.failStick++
		if p.failStick >= defaultFailAfter {
			p.failing = true
		}
		return
	}
	p.failStick = 0
	p.okStick++
	if p.okStick >= defaultRecoverAfter {
		p.failing = false
	}
}

// Service runs registered probes and serves their state over HTTP.
type Service struct {
	mu    sync.Mutex
	live  []*probe
	ready []*probe
	up    bool
}

// NewService returns a Service with no probes. The service reports not ready
// until MarkReady(true) is called.
func NewService() *Service {
	return &Service{}
}

// AddLive registers a liveness probe. Liveness failures mean the process
// itself is broken, for example a goroutine leak.
func (s *Service) AddLive(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, &probe{name: name, timeout: timeout, check: check})
}

// AddReady registers a readiness probe. Readiness failures mean the service
// cannot serve traffic right now, for example the database is unreachable.
func (s *Service) AddReady(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, &probe{name: name, timeout: timeout, check: check})
}

// Run evaluates every probe once immediately and then on each tick until the
// context is cancelled. It starts a single goroutine.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	go func() {
		s.sweep(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// sweep runs every registered probe once. Checks execute outside the mutex so
// a slow dependency cannot block the probe endpoints.
func (s *Service) sweep(ctx context.Context) {
	s.mu.Lock()
	probes := make([]*probe, 0, len(s.live)+len(s.ready))
	probes = append(probes, s.live...)
	probes = append(probes, s.ready...)
	s.mu.Unlock()

	for _, p := range probes {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(checkCtx)
		cancel()

		s.mu.Lock()
		p.observe(err)
		s.mu.Unlock()
	}
}

// MarkReady sets the manual readiness gate. Call with true once startup is
// complete and with false at the beginning of graceful shutdown.
func (s *Service) MarkReady(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.up = up
}

// Ready reports whether the manual gate is open and every readiness probe is
// passing.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.up {
		return false
	}
	for _, p := range s.ready {
		if p.failing {
			return false
		}
	}
	return true
}

type probeStatus struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveHandler serves the liveness endpoint: 200 while all liveness probes
// pass, 503 with per-probe failure messages otherwise.
func (s *Service) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		failures := failuresOf(s.live)
		s.mu.Unlock()

		writeStatus(w, failures)
	}
}

// ReadyHandler serves the readiness endpoint. It fails while the manual gate
// is closed even when every probe passes.
func (s *Service) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		failures := failuresOf(s.ready)
		if !s.up {
			failures["service"] = "not accepting traffic"
		}
		s.mu.Unlock()

		writeStatus(w, failures)
	}
}

// failuresOf must be called with the service mutex held.
func failuresOf(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if !p.failing {
			continue
		}
		if p.lastErr != nil {
			failures[p.name] = p.lastErr.Error()
		} else {
			failures[p.name] = "probe failing"
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := probeStatus{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = probeStatus{Status: "failing", Failures: failures}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
