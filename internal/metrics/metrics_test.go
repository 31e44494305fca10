package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sandworld/internal/world"
)

func TestTickMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTickMetrics("sandworld", reg)

	m.Observe(world.TickStats{LoadedChunks: 9, PendingChunks: 2, BlockTicks: 40, RandomTicks: 64,
		Edits: 1, Published: 3, Duration: time.Millisecond})
	m.Observe(world.TickStats{LoadedChunks: 8, BlockTicks: 10, BehaviorFailures: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.LoadedChunks), "Gauge хранит последнее значение")
	assert.Equal(t, 50.0, testutil.ToFloat64(m.BlockTicks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BehaviorFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TickDuration), "Гистограмма одна, без меток")
}

func TestTickMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewTickMetrics("x", reg)
	assert.Panics(t, func() { NewTickMetrics("x", reg) })
}

func TestProcessCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewProcessCollector("sandworld", NewServerMetrics())))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sandworld_process_uptime_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", FormatUptime(5*time.Second))
	assert.Equal(t, "2м 1с", FormatUptime(121*time.Second))
	assert.Equal(t, "1ч 0м 0с", FormatUptime(time.Hour))
	assert.Equal(t, "1д 1ч 0м 0с", FormatUptime(25*time.Hour))
}
