package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestLatencyStats(t *testing.T) {
	var l LatencyStats
	if snap := l.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	for _, d := range []time.Duration{3 * time.Millisecond, time.Millisecond, 5 * time.Millisecond} {
		l.Observe(d)
	}
	l.Observe(-time.Second)

	snap := l.Snapshot()
	if snap.Count != 3 {
		t.Fatalf("count = %d, want 3", snap.Count)
	}
	if snap.Min != time.Millisecond || snap.Max != 5*time.Millisecond {
		t.Fatalf("unexpected min/max: %s/%s", snap.Min, snap.Max)
	}
	if snap.Avg != 3*time.Millisecond {
		t.Fatalf("avg = %s, want 3ms", snap.Avg)
	}
}

func TestMetricsObserveTask(t *testing.T) {
	m := NewMetrics()
	m.ObserveTask(nil, false, time.Millisecond)
	m.ObserveTask(nil, true, time.Millisecond)
	m.ObserveTask(errors.New("boom"), false, time.Millisecond)
	m.ObserveResult(nil)
	m.ObserveResult(errors.New("boom"))
	m.IncCommitFailure()

	s := m.Snapshot()
	if s.TasksSucceeded != 1 || s.TasksNoData != 1 || s.TasksFailed != 1 {
		t.Fatalf("unexpected task counters: %+v", s)
	}
	if s.ResultsSent != 1 || s.ResultsFailed != 1 || s.CommitFailures != 1 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	if s.TaskLatency.Count != 3 {
		t.Fatalf("task latency count = %d", s.TaskLatency.Count)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTask(nil, false, time.Millisecond)
	m.IncSinkDrop()
	m.AddSinkFailure(2)
	if s := m.Snapshot(); s.SinkDrops != 0 {
		t.Fatalf("expected zero snapshot")
	}
}
