package exception

import "github.com/yanun0323/errors"

var (
	ErrNilInstance       = errors.New("nil instance")
	ErrRingNotPowerOfTwo = errors.New("ring: size must be a power of two")
	ErrRingShutdown      = errors.New("ring: buffer shut down")
	ErrRingStarted       = errors.New("ring: workers already started")
	ErrQueueFull         = errors.New("queue: full")
	ErrQueueClosed       = errors.New("queue: closed")
)
