package publish

import (
	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/internal/broker"
	"tickerflow/internal/model"
	"tickerflow/internal/telemetry"
	"tickerflow/pkg/exception"
)

// Publisher sends ticker results to the result topic, one message per chunk.
type Publisher struct {
	producer  broker.Producer
	metrics   *telemetry.Metrics
	chunkSize int
	newKey    func() string
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithChunkSize overrides the maximum entries per message.
func WithChunkSize(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher on top of producer.
func NewPublisher(producer broker.Producer, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, exception.ErrNilInstance
	}
	p := &Publisher{
		producer:  producer,
		chunkSize: model.DefaultChunkSize,
		newKey:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish splits result into chunks and sends each asynchronously under a
// fresh key. It returns the number of messages handed to the producer.
func (p *Publisher) Publish(result *model.TickerResult) (int, error) {
	if result == nil {
		return 0, nil
	}

	var (
		sent     int
		firstErr error
	)
	for i, chunk := range result.Chunks(p.chunkSize) {
		value, err := broker.Encode(chunk)
		if err != nil {
			logs.Errorf("encode result chunk, exchange: %d, tranId: %s, chunk: %d, err: %+v", result.ExchangeID, result.TranID, i, err)
			if firstErr == nil {
				firstErr = errors.Wrap(err, "encode result chunk").With("chunk", i)
			}
			continue
		}

		key := p.newKey()
		size := chunk.Len()
		p.producer.SendAsync([]byte(key), value, func(err error) {
			p.metrics.ObserveResult(err)
			if err != nil {
				logs.Errorf("send result, exchange: %d, tranId: %s, key: %s, err: %+v", result.ExchangeID, result.TranID, key, err)
				return
			}
			logs.Debugf("send result, exchange: %d, tranId: %s, key: %s, size: %d", result.ExchangeID, result.TranID, key, size)
		})
		sent++
	}
	return sent, firstErr
}
