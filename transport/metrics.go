package transport

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes
const (
	RefreshSuccess        = "success"
	RefreshFailure        = "failure"
	RefreshNoRefreshToken = "no_refresh_token"
)

// Metrics counts request outcomes and refresh attempts.
type Metrics struct {
	requests       *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	sessionExpired prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogclient_requests_total",
			Help: "Backend responses by HTTP status code; 0 is a transport failure.",
		}, []string{"code"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogclient_token_refresh_total",
			Help: "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogclient_session_expired_total",
			Help: "Sessions cleared after an unrecoverable refresh failure.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.refreshes, m.sessionExpired)
	}
	return m
}

func (m *Metrics) observeStatus(code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
}

// RefreshCounter returns the counter of refresh attempts with outcome.
func (m *Metrics) RefreshCounter(outcome string) prometheus.Counter {
	return m.refreshes.WithLabelValues(outcome)
}
