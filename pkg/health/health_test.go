package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeThresholds(t *testing.T) {
	p := &probe{name: "db"}

	// A single failure does not flip the probe.
	p.observe(errors.New("boom"))
	assert.False(t, p.failing)

	p.observe(errors.New("boom"))
	assert.False(t, p.failing)

	// Third consecutive failure flips it.
	p.observe(errors.New("boom"))
	assert.True(t, p.failing)

	// One success recovers it.
	p.observe(nil)
	assert.False(t, p.failing)
}

func TestProbeSuccessResetsFailStreak(t *testing.T) {
	p := &probe{name: "db"}

	p.observe(errors.New("boom"))
	p.observe(errors.New("boom"))
	p.observe(nil)
	p.observe(errors.New("boom"))
	p.observe(errors.New("boom"))

	assert.False(t, p.failing, "streak was broken, probe must stay passing")
}

func TestReadyRequiresManualGate(t *testing.T) {
	s := NewService()
	s.AddReady("db", time.Second, func(context.Context) error { return nil })
	s.sweep(context.Background())

	assert.False(t, s.Ready(), "not ready before MarkReady")

	s.MarkReady(true)
	assert.True(t, s.Ready())

	s.MarkReady(false)
	assert.False(t, s.Ready())
}

func TestReadyReflectsFailingProbe(t *testing.T) {
	s := NewService()
	s.AddReady("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	s.MarkReady(true)

	for range defaultFailAfter {
		s.sweep(context.Background())
	}

	assert.False(t, s.Ready())
}

func TestLiveHandler(t *testing.T) {
	s := NewService()
	s.AddLive("goroutines", time.Second, func(context.Context) error { return nil })
	s.sweep(context.Background())

	rec := httptest.NewRecorder()
	s.LiveHandler()(rec, httptest.NewRequest("GET", "/livez", nil))

	require.Equal(t, 200, rec.Code)

	var resp probeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Failures)
}

func TestLiveHandlerReportsFailure(t *testing.T) {
	s := NewService()
	s.AddLive("goroutines", time.Second, func(context.Context) error {
		return errors.New("too many goroutines")
	})
	for range defaultFailAfter {
		s.sweep(context.Background())
	}

	rec := httptest.NewRecorder()
	s.LiveHandler()(rec, httptest.NewRequest("GET", "/livez", nil))

	require.Equal(t, 503, rec.Code)

	var resp probeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failing", resp.Status)
	assert.Equal(t, "too many goroutines", resp.Failures["goroutines"])
}

func TestReadyHandlerClosedGate(t *testing.T) {
	s := NewService()

	rec := httptest.NewRecorder()
	s.ReadyHandler()(rec, httptest.NewRequest("GET", "/readyz", nil))

	require.Equal(t, 503, rec.Code)

	var resp probeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Failures, "service")
}

func TestRunStopsOnCancel(t *testing.T) {
	done := make(chan struct{})
	var once bool

	s := NewService()
	s.AddReady("db", time.Second, func(context.Context) error {
		if !once {
			once = true
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("probe never ran")
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(fakePinger{})(context.Background()))

	err := PingCheck(fakePinger{err: errors.New("down")})(context.Background())
	require.ErrorContains(t, err, "down")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
