package telemetry

import (
	"fmt"
	"time"
)

const (
	defaultQueueSize     = 2000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	defaultWriteTimeout  = 5 * time.Second
)

// Config controls the execution log sink.
type Config struct {
	Enable        bool
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

// DefaultConfig returns a baseline configuration for the sink.
func DefaultConfig() Config {
	return Config{
		QueueSize:     defaultQueueSize,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		WriteTimeout:  defaultWriteTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid telemetry config: QueueSize must be > 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid telemetry config: BatchSize must be > 0")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("invalid telemetry config: FlushInterval must be > 0")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("invalid telemetry config: WriteTimeout must be > 0")
	}
	return nil
}
