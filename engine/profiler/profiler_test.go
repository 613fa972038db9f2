package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	p := NewProfiler(time.Second)
	start := p.lastTime
	clock := start
	p.now = func() time.Time { return clock }

	for i := 0; i < 9; i++ {
		clock = clock.Add(100 * time.Millisecond)
		_, ok := p.Tick()
		require.False(t, ok, "tick %d", i)
	}

	clock = start.Add(time.Second)
	stats, ok := p.Tick()
	require.True(t, ok)
	assert.InDelta(t, 10, stats.FPS, 1e-9)
	assert.Greater(t, stats.SysMB, 0.0)
	assert.GreaterOrEqual(t, stats.MaxPause, time.Duration(0))

	// The window restarts after a report.
	clock = clock.Add(500 * time.Millisecond)
	_, ok = p.Tick()
	assert.False(t, ok)
}

func TestNewProfilerDefaultsInterval(t *testing.T) {
	assert.Equal(t, time.Second, NewProfiler(0).updateInterval)
	assert.Equal(t, time.Second, NewProfiler(-time.Minute).updateInterval)
	assert.Equal(t, 250*time.Millisecond, NewProfiler(250*time.Millisecond).updateInterval)
}
