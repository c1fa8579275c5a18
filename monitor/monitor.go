// monitor/monitor.go
package monitor

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/rajamantri/models"
)

type Metrics struct {
	RoomsCreated   prometheus.Counter
	PlayersJoined  prometheus.Counter
	GamesResolved  *prometheus.CounterVec
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	Rooms          *prometheus.GaugeVec
	OnlineSessions prometheus.Gauge
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created",
		}),
		PlayersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Total number of players seated, hosts included",
		}),
		GamesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_resolved_total",
			Help:      "Games resolved by the Mantri's guess",
		}, []string{"outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by route and status code",
		}, []string{"route", "code"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "Request processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}, []string{"route"}),
		Rooms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of rooms by status",
		}, []string{"status"}),
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of open websocket sessions",
		}),
	}

	reg.MustRegister(
		m.RoomsCreated,
		m.PlayersJoined,
		m.GamesResolved,
		m.Requests,
		m.RequestLatency,
		m.Rooms,
		m.OnlineSessions,
	)

	return m
}

func (m *Metrics) RoomCreated() {
	m.RoomsCreated.Inc()
}

func (m *Metrics) PlayerJoined() {
	m.PlayersJoined.Inc()
}

// GameResolved counts one resolved round under outcome "correct" or "wrong".
func (m *Metrics) GameResolved(correct bool) {
	outcome := "wrong"
	if correct {
		outcome = "correct"
	}
	m.GamesResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route string, code int, duration time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// SetRooms overwrites the per-status gauge. Statuses missing from counts read 0.
func (m *Metrics) SetRooms(counts map[models.RoomStatus]int) {
	for _, s := range []models.RoomStatus{models.StatusWaiting, models.StatusPlaying, models.StatusCompleted} {
		m.Rooms.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

func (m *Metrics) SessionOpened() {
	m.OnlineSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	m.OnlineSessions.Dec()
}

type Monitor struct {
	*Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount atomic.Int64
}

// NewMonitor registers the metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		Metrics:   NewMetrics(namespace, reg),
		gatherer:  reg,
		startTime: time.Now(),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Monitor) ObserveRequest(route string, code int, duration time.Duration) {
	m.requestCount.Add(1)
	m.Metrics.ObserveRequest(route, code, duration)
}

func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Monitor) RequestCount() int64 {
	return m.requestCount.Load()
}
