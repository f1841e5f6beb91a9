package exception

import "github.com/yanun0323/errors"

var (
	ErrEmptyBrokers   = errors.New("broker: empty broker list")
	ErrEmptyTopic     = errors.New("broker: empty topic")
	ErrEmptyGroupID   = errors.New("broker: empty group id")
	ErrProducerClosed = errors.New("broker: producer closed")
	ErrConsumerClosed = errors.New("broker: consumer closed")
	ErrConsumerWakeup = errors.New("broker: consumer woken up")
	ErrCommitBacklog  = errors.New("broker: commit backlog full")
)
