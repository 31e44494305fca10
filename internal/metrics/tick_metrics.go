// Package metrics собирает метрики симуляции и процесса для Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/sandworld/internal/world"
)

// TickMetrics метрики глобального тика
type TickMetrics struct {
	Ticks            prometheus.Counter
	SkippedTicks     prometheus.Counter
	TickDuration     prometheus.Histogram
	LoadedChunks     prometheus.Gauge
	PendingChunks    prometheus.Gauge
	BlockTicks       prometheus.Counter
	RandomTicks      prometheus.Counter
	Edits            prometheus.Counter
	Published        prometheus.Counter
	BehaviorFailures prometheus.Counter
	LightDuration    prometheus.Histogram
	LightFailures    prometheus.Counter
}

// NewTickMetrics создаёт метрики и регистрирует их в reg
func NewTickMetrics(namespace string, reg prometheus.Registerer) *TickMetrics {
	m := &TickMetrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "ticks_total",
			Help: "Выполненные глобальные тики.",
		}),
		SkippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "ticks_skipped_total",
			Help: "Тики, пропущенные из-за того, что предыдущий ещё выполнялся.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "world", Name: "tick_duration_seconds",
			Help:    "Длительность глобального тика.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		LoadedChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "world", Name: "loaded_chunks",
			Help: "Загруженные чанки.",
		}),
		PendingChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "world", Name: "pending_chunks",
			Help: "Чанки с непустой очередью в последнем тике.",
		}),
		BlockTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "block_ticks_total",
			Help: "Выполненные тики ячеек из очередей.",
		}),
		RandomTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "random_ticks_total",
			Help: "Выполненные случайные тики.",
		}),
		Edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "edits_total",
			Help: "Применённые внешние правки.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "published_snapshots_total",
			Help: "Опубликованные снимки чанков.",
		}),
		BehaviorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "world", Name: "behavior_failures_total",
			Help: "Паники в поведениях блоков.",
		}),
		LightDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "light", Name: "pass_duration_seconds",
			Help:    "Длительность расчёта света по всем чанкам.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		LightFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "light", Name: "failures_total",
			Help: "Чанки, на которых расчёт света завершился ошибкой.",
		}),
	}
	reg.MustRegister(m.Ticks, m.SkippedTicks, m.TickDuration, m.LoadedChunks, m.PendingChunks,
		m.BlockTicks, m.RandomTicks, m.Edits, m.Published, m.BehaviorFailures,
		m.LightDuration, m.LightFailures)
	return m
}

// Observe учитывает итог тика
func (m *TickMetrics) Observe(s world.TickStats) {
	m.Ticks.Inc()
	m.TickDuration.Observe(s.Duration.Seconds())
	m.LoadedChunks.Set(float64(s.LoadedChunks))
	m.PendingChunks.Set(float64(s.PendingChunks))
	m.BlockTicks.Add(float64(s.BlockTicks))
	m.RandomTicks.Add(float64(s.RandomTicks))
	m.Edits.Add(float64(s.Edits))
	m.Published.Add(float64(s.Published))
	m.BehaviorFailures.Add(float64(s.BehaviorFailures))
}
