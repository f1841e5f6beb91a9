package broker

import (
	"context"
	"time"
)

// Message is one broker record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// Records are the messages of one partition in broker order.
type Records struct {
	Topic     string
	Partition int
	Messages  []Message
}

// Batch is the result of one poll, grouped by partition.
type Batch struct {
	Partitions []Records
}

// Len returns the number of messages in the batch.
func (b Batch) Len() int {
	n := 0
	for _, p := range b.Partitions {
		n += len(p.Messages)
	}
	return n
}

// Add appends msg to the records of its partition.
func (b *Batch) Add(msg Message) {
	for i := range b.Partitions {
		p := &b.Partitions[i]
		if p.Topic == msg.Topic && p.Partition == msg.Partition {
			p.Messages = append(p.Messages, msg)
			return
		}
	}
	b.Partitions = append(b.Partitions, Records{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Messages:  []Message{msg},
	})
}

// Commit is the position to store for a partition: the offset of the next
// message to consume.
type Commit struct {
	Topic     string
	Partition int
	Offset    int64
}

// CommitOf returns the commit that acknowledges msg.
func CommitOf(msg Message) Commit {
	return Commit{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset + 1}
}

// Consumer polls a topic with manual offset management.
type Consumer interface {
	// Poll waits up to timeout for messages. It returns ErrConsumerWakeup
	// when Wakeup interrupted it. A non-empty batch returned with an error
	// holds messages already consumed; the caller must still handle them.
	Poll(ctx context.Context, timeout time.Duration) (Batch, error)
	// CommitAsync requests a commit without waiting for it; done observes the outcome.
	CommitAsync(c Commit, done func(Commit, error))
	// Wakeup interrupts an in-progress or the next Poll.
	Wakeup()
	Close() error
}

// Producer publishes messages to one topic.
type Producer interface {
	// Send publishes and waits for the acknowledgement.
	Send(ctx context.Context, key, value []byte) error
	// SendAsync publishes without waiting; done observes the outcome.
	SendAsync(key, value []byte, done func(error))
	Close() error
}
