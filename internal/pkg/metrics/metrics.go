package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder - метрики перемаршрутизации
type Recorder interface {
	// RecordOutcome учитывает итог одной попытки и её длительность
	RecordOutcome(outcome string, elapsed time.Duration)

	// RecordTick учитывает тик планировщика и число найденных записей
	RecordTick(due int)

	// RecordScheduled учитывает результат расчёта расписания: scheduled | skipped | invalid
	RecordScheduled(result string)
}

// PromRecorder пишет метрики в Prometheus
type PromRecorder struct {
	outcomes  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	ticks     prometheus.Counter
	dueTotal  prometheus.Counter
	scheduled *prometheus.CounterVec
}

// NewPromRecorder регистрирует коллекторы в reg (nil - DefaultRegisterer).
// Уже зарегистрированные коллекторы переиспользуются.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rerouting_executions_total",
		Help: "Total number of rerouting attempts by outcome",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rerouting_execution_duration_seconds",
		Help:    "Duration of a single rerouting attempt",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rerouting_ticks_total",
		Help: "Total number of scheduler ticks",
	})
	dueTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rerouting_due_entries_total",
		Help: "Total number of due schedule entries picked up by ticks",
	})
	scheduled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rerouting_schedules_computed_total",
		Help: "Total number of schedule computations by result",
	}, []string{"result"})

	var err error
	if outcomes, err = register(reg, outcomes); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if ticks, err = register(reg, ticks); err != nil {
		return nil, err
	}
	if dueTotal, err = register(reg, dueTotal); err != nil {
		return nil, err
	}
	if scheduled, err = register(reg, scheduled); err != nil {
		return nil, err
	}

	return &PromRecorder{
		outcomes:  outcomes,
		latency:   latency,
		ticks:     ticks,
		dueTotal:  dueTotal,
		scheduled: scheduled,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *PromRecorder) RecordOutcome(outcome string, elapsed time.Duration) {
	r.outcomes.WithLabelValues(outcome).Inc()
	r.latency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *PromRecorder) RecordTick(due int) {
	r.ticks.Inc()
	r.dueTotal.Add(float64(due))
}

func (r *PromRecorder) RecordScheduled(result string) {
	r.scheduled.WithLabelValues(result).Inc()
}

// Nop - Recorder без побочных эффектов
type Nop struct{}

func (Nop) RecordOutcome(string, time.Duration) {}
func (Nop) RecordTick(int)                      {}
func (Nop) RecordScheduled(string)              {}
