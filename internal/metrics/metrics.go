// Package metrics exposes relay activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Connection roles and outcomes used as label values.
const (
	RolePlayer      = "player"
	RoleParticipant = "participant"

	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Metrics holds the relay's collectors.
type Metrics struct {
	SessionsActive     prometheus.Gauge
	ParticipantsActive prometheus.Gauge
	SessionDuration    prometheus.Histogram

	CommandsRelayed    prometheus.Counter
	UpdatesPublished   prometheus.Counter
	UpdatesDelivered   prometheus.Counter
	UpdatesFiltered    prometheus.Counter
	BroadcastLagged    prometheus.Counter
	Connections        *prometheus.CounterVec
	DirectoryPublished prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "crowd_sessions_active", Help: "Live crowd sessions"},
		),
		ParticipantsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "crowd_participants_active", Help: "Connected participants across all crowds"},
		),
		SessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crowd_session_duration_seconds",
				Help:    "Lifetime of crowd sessions",
				Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400},
			},
		),
		CommandsRelayed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crowd_commands_relayed_total", Help: "Participant commands forwarded to players"},
		),
		UpdatesPublished: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crowd_updates_published_total", Help: "Player updates broadcast"},
		),
		UpdatesDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crowd_updates_delivered_total", Help: "Player updates sent to participants"},
		),
		UpdatesFiltered: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crowd_updates_filtered_total", Help: "Player updates withheld as stale reflections"},
		),
		BroadcastLagged: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crowd_broadcast_lagged_total", Help: "Participants dropped for falling behind the broadcast"},
		),
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "crowd_connections_total", Help: "Connection attempts by role and handshake result"},
			[]string{"role", "result"},
		),
		DirectoryPublished: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "crowd_directory_published_total", Help: "Session summaries written to the directory"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.SessionsActive,
			m.ParticipantsActive,
			m.SessionDuration,
			m.CommandsRelayed,
			m.UpdatesPublished,
			m.UpdatesDelivered,
			m.UpdatesFiltered,
			m.BroadcastLagged,
			m.Connections,
			m.DirectoryPublished,
		)
	}
	return m
}

// Connection records a handshake outcome for role.
func (m *Metrics) Connection(role, result string) {
	m.Connections.WithLabelValues(role, result).Inc()
}
