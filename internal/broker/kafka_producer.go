package broker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/pkg/exception"
)

const (
	defaultBatchTimeout = 10 * time.Millisecond
	defaultWriteTimeout = 10 * time.Second
)

// ProducerConfig describes a producer of one topic.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	Async        bool
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	MaxAttempts  int
}

// Validate checks if the configuration is usable.
func (c ProducerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return exception.ErrEmptyBrokers
	}
	if c.Topic == "" {
		return exception.ErrEmptyTopic
	}
	return nil
}

// KafkaProducer is a Producer on a kafka-go writer. Messages are keyed so
// equal keys land on the same partition.
type KafkaProducer struct {
	cfg    ProducerConfig
	writer *kafka.Writer
	closed atomic.Bool
}

// NewKafkaProducer creates the writer. Async producers report each message
// outcome through the SendAsync callback.
func NewKafkaProducer(cfg ProducerConfig) (*KafkaProducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	p := &KafkaProducer{cfg: cfg}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Async:        cfg.Async,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	if cfg.Async {
		p.writer.Completion = complete
	}
	return p, nil
}

func (p *KafkaProducer) Send(ctx context.Context, key, value []byte) error {
	if p.closed.Load() {
		return exception.ErrProducerClosed
	}
	if p.cfg.Async {
		done := make(chan error, 1)
		p.SendAsync(key, value, func(err error) { done <- err })
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return errors.Wrap(err, "write message").With("topic", p.cfg.Topic)
	}
	return nil
}

func (p *KafkaProducer) SendAsync(key, value []byte, done func(error)) {
	if p.closed.Load() {
		if done != nil {
			done(exception.ErrProducerClosed)
		}
		return
	}
	if !p.cfg.Async {
		go func() {
			err := p.writer.WriteMessages(context.Background(), kafka.Message{Key: key, Value: value})
			if done != nil {
				done(err)
			}
		}()
		return
	}
	msg := kafka.Message{Key: key, Value: value, WriterData: done}
	// Async writers only fail here on a closed writer; delivery is reported by complete.
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil && done != nil {
		done(err)
	}
}

// Close flushes buffered messages and closes the writer.
func (p *KafkaProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

func complete(messages []kafka.Message, err error) {
	for _, m := range messages {
		done, ok := m.WriterData.(func(error))
		if !ok || done == nil {
			if err != nil {
				logs.Errorf("deliver %s[%d] failed, err: %+v", m.Topic, m.Partition, err)
			}
			continue
		}
		done(err)
	}
}
