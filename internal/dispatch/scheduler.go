package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/yanun0323/logs"

	bizerr "tickerflow/internal/errors"
	"tickerflow/internal/model/enum"
	"tickerflow/pkg/exception"
)

// Runner runs one dispatch cycle.
type Runner interface {
	Dispatch(ctx context.Context, category enum.DataCategory) (int, error)
}

// Scheduler triggers dispatch cycles on cron specs. A cycle still running
// when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
}

// NewScheduler creates a scheduler. Specs accept an optional seconds field
// and descriptors such as "@every 5m".
func NewScheduler(runner Runner) *Scheduler {
	logger := cronLogger{}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		runner: runner,
	}
}

// Add schedules category on spec. Each category has its own skip guard so
// categories may overlap each other.
func (s *Scheduler) Add(ctx context.Context, spec string, category enum.DataCategory) error {
	if !category.IsAvailable() {
		return bizerr.Business(exception.ErrDispatchCategory, "schedule "+category.String())
	}
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).Then(cron.FuncJob(func() {
		s.run(ctx, category)
	}))
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return bizerr.Wrap(err, fmt.Sprintf("add cron job, spec: %q, category: %s", spec, category))
	}
	logs.Infof("dispatch %s scheduled at %q", category, spec)
	return nil
}

// Start runs the cron in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running cycles or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(ctx context.Context, category enum.DataCategory) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.runner.Dispatch(ctx, category)
	switch {
	case err == nil:
	case bizerr.IsBusiness(err):
		logs.Errorf("dispatch %s aborted, err: %+v", category, err)
	case errors.Is(err, exception.ErrDispatchLocked):
		logs.Infof("dispatch %s skipped, held by another scheduler", category)
	default:
		logs.Errorf("dispatch %s failed, published: %d, err: %+v", category, n, err)
	}
}

// cronLogger routes cron's logs to logs.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logs.Debugf("cron %s%s", msg, formatKV(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logs.Errorf("cron %s%s, err: %+v", msg, formatKV(keysAndValues), err)
}

func formatKV(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, ", %v: %v", kv[i], kv[i+1])
	}
	return sb.String()
}
