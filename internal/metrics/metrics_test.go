package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Connection(RolePlayer, ResultAccepted)
	m.Connection(RoleParticipant, ResultRejected)
	m.Connection(RoleParticipant, ResultRejected)
	m.SessionsActive.Inc()

	if got := testutil.ToFloat64(m.Connections.WithLabelValues(RoleParticipant, ResultRejected)); got != 2 {
		t.Errorf("expected 2 rejected participants, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("expected 1 active session, got %v", got)
	}

	count, err := testutil.GatherAndCount(reg, "crowd_connections_total", "crowd_sessions_active")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 series, got %d", count)
	}
}

func TestNew_Unregistered(t *testing.T) {
	first := New(nil)
	second := New(nil)

	first.CommandsRelayed.Inc()
	if got := testutil.ToFloat64(second.CommandsRelayed); got != 0 {
		t.Errorf("expected independent collectors, got %v", got)
	}
}
