package diagnosis

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for engine activity.
type Metrics struct {
	operationDuration *prometheus.HistogramVec
	readFailures      prometheus.Counter
	historyAppends    prometheus.Counter
	tasksAllocated    prometheus.Counter
	answersRecorded   prometheus.Counter
}

// MustNewMetrics builds the engine collectors on reg and panics on a registration
// conflict that cannot be resolved by reusing an existing collector.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		operationDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "diagnosis",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Duration of engine operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		)),
		readFailures: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diagnosis",
			Subsystem: "storage",
			Name:      "read_failures_total",
			Help:      "Stored values that could not be read or decoded and were treated as missing.",
		})),
		historyAppends: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diagnosis",
			Subsystem: "history",
			Name:      "appends_total",
			Help:      "History entries appended.",
		})),
		tasksAllocated: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diagnosis",
			Subsystem: "engine",
			Name:      "tasks_allocated_total",
			Help:      "Tasks annotated with an efficiency gain.",
		})),
		answersRecorded: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diagnosis",
			Subsystem: "engine",
			Name:      "answers_recorded_total",
			Help:      "Answers written by users.",
		})),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) readFailed(key string, err error) {
	if m == nil {
		return
	}
	m.readFailures.Inc()
}

func (m *Metrics) historyAppended() {
	if m == nil {
		return
	}
	m.historyAppends.Inc()
}

func (m *Metrics) allocated(n int) {
	if m == nil {
		return
	}
	m.tasksAllocated.Add(float64(n))
}

func (m *Metrics) answerRecorded() {
	if m == nil {
		return
	}
	m.answersRecorded.Inc()
}
