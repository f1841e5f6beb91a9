package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
)

// Metrics collects lightweight pipeline counters and latency stats.
type Metrics struct {
	tasksSucceeded uint64
	tasksFailed    uint64
	tasksNoData    uint64
	commitFailures uint64
	sinkDrops      uint64
	sinkFailures   uint64
	resultsSent    uint64
	resultsFailed  uint64

	adapterLatency LatencyStats
	taskLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	TasksSucceeded uint64
	TasksFailed    uint64
	TasksNoData    uint64
	CommitFailures uint64
	SinkDrops      uint64
	SinkFailures   uint64
	ResultsSent    uint64
	ResultsFailed  uint64
	AdapterLatency LatencySnapshot
	TaskLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTask records the outcome and duration of one task.
func (m *Metrics) ObserveTask(err error, noData bool, d time.Duration) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		atomic.AddUint64(&m.tasksFailed, 1)
	case noData:
		atomic.AddUint64(&m.tasksNoData, 1)
	default:
		atomic.AddUint64(&m.tasksSucceeded, 1)
	}
	m.taskLatency.Observe(d)
}

// ObserveAdapter measures one adapter call.
func (m *Metrics) ObserveAdapter(d time.Duration) {
	if m == nil {
		return
	}
	m.adapterLatency.Observe(d)
}

// IncCommitFailure records a failed offset commit.
func (m *Metrics) IncCommitFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.commitFailures, 1)
}

// IncSinkDrop records a log dropped by a full sink queue.
func (m *Metrics) IncSinkDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sinkDrops, 1)
}

// AddSinkFailure records logs lost by a failed store write.
func (m *Metrics) AddSinkFailure(n int) {
	if m == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&m.sinkFailures, uint64(n))
}

// ObserveResult records the delivery outcome of one result message.
func (m *Metrics) ObserveResult(err error) {
	if m == nil {
		return
	}
	if err != nil {
		atomic.AddUint64(&m.resultsFailed, 1)
		return
	}
	atomic.AddUint64(&m.resultsSent, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		TasksSucceeded: atomic.LoadUint64(&m.tasksSucceeded),
		TasksFailed:    atomic.LoadUint64(&m.tasksFailed),
		TasksNoData:    atomic.LoadUint64(&m.tasksNoData),
		CommitFailures: atomic.LoadUint64(&m.commitFailures),
		SinkDrops:      atomic.LoadUint64(&m.sinkDrops),
		SinkFailures:   atomic.LoadUint64(&m.sinkFailures),
		ResultsSent:    atomic.LoadUint64(&m.resultsSent),
		ResultsFailed:  atomic.LoadUint64(&m.resultsFailed),
		AdapterLatency: m.adapterLatency.Snapshot(),
		TaskLatency:    m.taskLatency.Snapshot(),
	}
}

// Report logs a snapshot every interval until ctx is done.
func (m *Metrics) Report(ctx context.Context, interval time.Duration) {
	if m == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			logs.Infof("pipeline stats, tasks ok: %d, failed: %d, no data: %d, commit failures: %d, results sent: %d, failed: %d, sink drops: %d, sink failures: %d, adapter avg: %s, max: %s",
				s.TasksSucceeded, s.TasksFailed, s.TasksNoData, s.CommitFailures, s.ResultsSent, s.ResultsFailed,
				s.SinkDrops, s.SinkFailures, s.AdapterLatency.Avg, s.AdapterLatency.Max)
		}
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		lo := atomic.LoadUint64(&l.min)
		if lo != 0 && nanos >= lo {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, lo, nanos) {
			break
		}
	}

	for {
		hi := atomic.LoadUint64(&l.max)
		if nanos <= hi {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, hi, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
