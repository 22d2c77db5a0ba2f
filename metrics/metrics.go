package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	MetricsNamespace          = "painter"
	MetricsSubsystemSystem    = "system"
	MetricsSubsystemBot       = "bot"
	MetricsSubsystemProvider  = "provider"
	MetricsSubsystemGenerator = "generation"
)

type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveCommand(command string)
	ObserveProviderRequest(endpoint string, statusCode int)
	ObserveGeneration(result string, elapsed float64)
	SetSessions(count int)
}

// metrics used to instrumentate metrics in prometheus.
type metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge

	commandsTotal         *prometheus.CounterVec
	providerRequestsTotal *prometheus.CounterVec
	generationsTotal      *prometheus.CounterVec
	generationTime        prometheus.Histogram
	sessions              prometheus.Gauge
}

func NewMetrics() Metrics {
	m := &metrics{}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the bot started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemBot,
			Name:      "commands_total",
			Help:      "Incoming chat events by command.",
		},
		[]string{"command"},
	)
	m.registry.MustRegister(m.commandsTotal)

	m.providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemProvider,
			Name:      "requests_total",
			Help:      "Requests sent to the image provider.",
		},
		[]string{"endpoint", "status_code"},
	)
	m.registry.MustRegister(m.providerRequestsTotal)

	m.generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystemGenerator,
			Name:      "total",
			Help:      "Finished generations by result.",
		},
		[]string{"result"},
	)
	m.registry.MustRegister(m.generationsTotal)

	m.generationTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemGenerator,
		Name:      "time_seconds",
		Help:      "Time from /generate to the delivered image.",
		Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
	})
	m.registry.MustRegister(m.generationTime)

	m.sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemBot,
		Name:      "sessions",
		Help:      "Sessions currently held by the store.",
	})
	m.registry.MustRegister(m.sessions)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metrics) ObserveCommand(command string) {
	m.commandsTotal.With(prometheus.Labels{"command": command}).Inc()
}

func (m *metrics) ObserveProviderRequest(endpoint string, statusCode int) {
	m.providerRequestsTotal.With(prometheus.Labels{
		"endpoint":    endpoint,
		"status_code": strconv.Itoa(statusCode),
	}).Inc()
}

func (m *metrics) ObserveGeneration(result string, elapsed float64) {
	m.generationsTotal.With(prometheus.Labels{"result": result}).Inc()
	m.generationTime.Observe(elapsed)
}

func (m *metrics) SetSessions(count int) {
	m.sessions.Set(float64(count))
}
