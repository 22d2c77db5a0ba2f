package holder

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeCleaner) Clean(_ time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 2
}

func (c *fakeCleaner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type sessionGauge struct {
	mu    sync.Mutex
	value int
	set   bool
}

func (g *sessionGauge) GetRegistry() *prometheus.Registry  { return nil }
func (g *sessionGauge) ObserveCommand(string)              {}
func (g *sessionGauge) ObserveProviderRequest(string, int) {}
func (g *sessionGauge) ObserveGeneration(string, float64)  {}

func (g *sessionGauge) SetSessions(count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = count
	g.set = true
}

func TestJanitor_RunOnce(t *testing.T) {
	sm := newManager(0)
	sm.Reset(1)
	sm.Reset(2)
	time.Sleep(100 * time.Millisecond)
	sm.Reset(3)

	cleaner := &fakeCleaner{}
	gauge := &sessionGauge{}
	j := NewJanitor(sm, cleaner, gauge, 50*time.Millisecond, time.Minute, slog.Default())

	j.RunOnce(time.Now())

	assert.Equal(t, 1, cleaner.count())
	assert.True(t, gauge.set)
	assert.Equal(t, 1, gauge.value)
	assert.Equal(t, 1, sm.Count())
}

func TestJanitor_ZeroTTLKeepsSessions(t *testing.T) {
	sm := newManager(0)
	sm.Reset(1)

	j := NewJanitor(sm, nil, nil, 0, time.Minute, slog.Default())
	j.RunOnce(time.Now().Add(48 * time.Hour))

	assert.Equal(t, 1, sm.Count())
}

func TestJanitor_RunStopsWithContext(t *testing.T) {
	sm := newManager(0)
	cleaner := &fakeCleaner{}
	j := NewJanitor(sm, cleaner, nil, time.Hour, 5*time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool { return cleaner.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
