package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hexa-net/spindle/internal/dialer"
)

const (
	directionToOrigin = "to_origin"
	directionToClient = "to_client"
)

// Metrics holds the Prometheus collectors for the proxy. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	sessions     *prometheus.CounterVec
	dialFailures *prometheus.CounterVec
	active       prometheus.Gauge
	relayBytes   *prometheus.CounterVec
}

// NewMetrics registers the proxy collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spindle_sessions_total",
				Help: "Relayed sessions by listener kind and outbound route",
			},
			[]string{"kind", "route"},
		),
		dialFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spindle_dial_failures_total",
				Help: "Outbound dials that exhausted both IPv6 and IPv4 paths",
			},
			[]string{"kind"},
		),
		active: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spindle_active_sessions",
				Help: "Sessions currently relaying",
			},
		),
		relayBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spindle_relay_bytes_total",
				Help: "Bytes relayed by direction",
			},
			[]string{"direction"},
		),
	}
}

func (m *Metrics) SessionStarted(kind, route string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(kind, routeLabel(route)).Inc()
	m.active.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) DialFailed(kind string) {
	if m == nil {
		return
	}
	m.dialFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddRelayBytes(direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.relayBytes.WithLabelValues(direction).Add(float64(n))
}

func routeLabel(route string) string {
	if route == dialer.RouteIPv4Direct {
		return "ipv4"
	}
	return "ipv6"
}
