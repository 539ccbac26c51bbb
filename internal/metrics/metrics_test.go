package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMountMetricsCache(t *testing.T) {
	stream := "test-mount-1"

	DeleteMountMetrics(stream)

	if m := GetMountMetrics(stream); m != nil {
		t.Error("expected nil for unknown mount")
	}

	InstanceCreated(stream)
	SetClients(stream, 2)

	m := GetMountMetrics(stream)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if !m.Live || m.Clients != 2 || m.InstancesCreated != 1 {
		t.Errorf("GetMountMetrics() = %+v", *m)
	}

	m.Clients = 99
	if GetMountMetrics(stream).Clients != 2 {
		t.Error("cache was modified through returned copy")
	}

	InstanceReleased(stream)
	InstanceCreated(stream)
	m = GetMountMetrics(stream)
	if m.InstancesCreated != 2 {
		t.Errorf("InstancesCreated = %d, want 2", m.InstancesCreated)
	}
	if got := testutil.ToFloat64(rtspInstancesCreated.WithLabelValues(stream)); got != 2 {
		t.Errorf("instances_created_total = %v, want 2", got)
	}

	DeleteMountMetrics(stream)
	if GetMountMetrics(stream) != nil {
		t.Error("expected nil after delete")
	}
}

func TestControlCounters(t *testing.T) {
	before := testutil.ToFloat64(controlDirectives.WithLabelValues(OutcomeStageNotFound))
	IncDirective(OutcomeStageNotFound)
	IncDirective(OutcomeStageNotFound)
	if got := testutil.ToFloat64(controlDirectives.WithLabelValues(OutcomeStageNotFound)); got != before+2 {
		t.Errorf("directives_total{stage_not_found} = %v, want %v", got, before+2)
	}

	SetStoredOptions(3)
	if got := testutil.ToFloat64(controlStoredOptions); got != 3 {
		t.Errorf("stored_options = %v, want 3", got)
	}

	IncCommand("nats")
	if got := testutil.ToFloat64(controlCommands.WithLabelValues("nats")); got < 1 {
		t.Errorf("commands_total{nats} = %v", got)
	}
}
