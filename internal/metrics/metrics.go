package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters on a private registry.
type Metrics struct {
	Registry        *prometheus.Registry
	GamesCreated    prometheus.Counter
	AnswersRecorded *prometheus.CounterVec
	SessionsSwept   prometheus.Counter
	CatalogRequests *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		GamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "animequiz",
			Name:      "games_created_total",
			Help:      "Game sessions created.",
		}),
		AnswersRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "animequiz",
			Name:      "answers_recorded_total",
			Help:      "Round answers persisted, by outcome.",
		}, []string{"outcome"}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "animequiz",
			Name:      "sessions_swept_total",
			Help:      "Stale unfinished sessions deleted by the sweeper.",
		}),
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "animequiz",
			Name:      "catalog_requests_total",
			Help:      "Requests sent to the catalog API, by query and outcome.",
		}, []string{"query", "outcome"}),
	}
	m.Registry.MustRegister(m.GamesCreated, m.AnswersRecorded, m.SessionsSwept, m.CatalogRequests)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveAnswer counts one recorded round.
func (m *Metrics) ObserveAnswer(correct bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if correct {
		outcome = "hit"
	}
	m.AnswersRecorded.WithLabelValues(outcome).Inc()
}

// ObserveCatalog counts one catalog request.
func (m *Metrics) ObserveCatalog(query string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CatalogRequests.WithLabelValues(query, outcome).Inc()
}

// ObserveGameCreated counts one created game.
func (m *Metrics) ObserveGameCreated() {
	if m == nil {
		return
	}
	m.GamesCreated.Inc()
}

// ObserveSwept adds n deleted sessions.
func (m *Metrics) ObserveSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}
