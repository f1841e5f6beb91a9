package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/pkg/exception"
)

const (
	defaultMaxPollRecords = 500
	defaultPollLinger     = 10 * time.Millisecond
	defaultCommitBacklog  = 4096
	defaultCommitTimeout  = 10 * time.Second
)

// ConsumerConfig describes a group consumer of one topic.
type ConsumerConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	ClientID       string
	MaxPollRecords int
	// PollLinger bounds how long a poll keeps collecting once it has a message.
	PollLinger    time.Duration
	CommitBacklog int
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.MaxPollRecords <= 0 {
		c.MaxPollRecords = defaultMaxPollRecords
	}
	if c.PollLinger <= 0 {
		c.PollLinger = defaultPollLinger
	}
	if c.CommitBacklog <= 0 {
		c.CommitBacklog = defaultCommitBacklog
	}
	return c
}

// Validate checks if the configuration is usable.
func (c ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return exception.ErrEmptyBrokers
	}
	if c.Topic == "" {
		return exception.ErrEmptyTopic
	}
	if c.GroupID == "" {
		return exception.ErrEmptyGroupID
	}
	return nil
}

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type commitRequest struct {
	commit Commit
	done   func(Commit, error)
}

// KafkaConsumer is a Consumer on a kafka-go group reader. Offsets are only
// stored through CommitAsync.
type KafkaConsumer struct {
	cfg     ConsumerConfig
	reader  messageReader
	commits chan commitRequest
	wg      sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
	woken  atomic.Bool
	closed atomic.Bool
}

// NewKafkaConsumer creates the reader and starts the commit goroutine.
func NewKafkaConsumer(cfg ConsumerConfig) (*KafkaConsumer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
		Dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
	return newKafkaConsumer(cfg, reader), nil
}

func newKafkaConsumer(cfg ConsumerConfig, reader messageReader) *KafkaConsumer {
	cfg = cfg.withDefaults()
	c := &KafkaConsumer{
		cfg:     cfg,
		reader:  reader,
		commits: make(chan commitRequest, cfg.CommitBacklog),
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runCommits()
	}()
	return c
}

func (c *KafkaConsumer) Poll(ctx context.Context, timeout time.Duration) (Batch, error) {
	var batch Batch
	if c.closed.Load() {
		return batch, exception.ErrConsumerClosed
	}
	if c.woken.Swap(false) {
		return batch, exception.ErrConsumerWakeup
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	c.mu.Lock()
	c.cancel = cancel
	// Wakeup may have run between the latch check and here.
	if c.woken.Load() {
		cancel()
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()

	fetchCtx := pollCtx
	for batch.Len() < c.cfg.MaxPollRecords {
		msg, err := c.reader.FetchMessage(fetchCtx)
		if err != nil {
			if c.woken.Swap(false) {
				return batch, exception.ErrConsumerWakeup
			}
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			if fetchCtx.Err() != nil {
				return batch, nil
			}
			return batch, errors.Wrap(err, "fetch message")
		}
		batch.Add(Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
			Time:      msg.Time,
		})
		if batch.Len() == 1 {
			lingerCtx, lingerCancel := context.WithTimeout(pollCtx, c.cfg.PollLinger)
			defer lingerCancel()
			fetchCtx = lingerCtx
		}
	}
	return batch, nil
}

func (c *KafkaConsumer) CommitAsync(commit Commit, done func(Commit, error)) {
	if c.closed.Load() {
		notify(done, commit, exception.ErrConsumerClosed)
		return
	}
	select {
	case c.commits <- commitRequest{commit: commit, done: done}:
	default:
		notify(done, commit, exception.ErrCommitBacklog)
	}
}

func (c *KafkaConsumer) Wakeup() {
	c.woken.Store(true)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
}

// Close drains pending commits and closes the reader.
func (c *KafkaConsumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.Wakeup()
	close(c.commits)
	c.wg.Wait()
	return c.reader.Close()
}

func (c *KafkaConsumer) runCommits() {
	for req := range c.commits {
		ctx, cancel := context.WithTimeout(context.Background(), defaultCommitTimeout)
		// kafka-go stores the offset after the given message.
		err := c.reader.CommitMessages(ctx, kafka.Message{
			Topic:     req.commit.Topic,
			Partition: req.commit.Partition,
			Offset:    req.commit.Offset - 1,
		})
		cancel()
		notify(req.done, req.commit, err)
	}
}

func notify(done func(Commit, error), commit Commit, err error) {
	if done != nil {
		done(commit, err)
		return
	}
	if err != nil {
		logs.Errorf("commit %s[%d]@%d failed, err: %+v", commit.Topic, commit.Partition, commit.Offset, err)
	}
}
