package app

import (
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/internal/config"
)

// startProfiling starts continuous profiling when enabled. The returned stop
// function is never nil.
func startProfiling(cfg config.ProfilingConfig, role string) (func(), error) {
	if !cfg.Enable {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.App + "." + role,
		ServerAddress:   cfg.ServerAddr,
		Tags: map[string]string{
			"role": role,
		},
		Logger: profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return func() {}, errors.Wrap(err, "start pyroscope")
	}
	logs.Infof("profiling %s to %s", role, cfg.ServerAddr)
	return func() {
		if err := profiler.Stop(); err != nil {
			logs.Warnf("stop pyroscope, err: %+v", err)
		}
	}, nil
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
