package httpx

import (
	"math/rand/v2"
	"time"
)

// Backoff configures the delay between retries.
type Backoff struct {
	// Min is the delay before the first retry.
	Min time.Duration
	// Max caps the delay.
	Max time.Duration
	// Factor multiplies the delay for each further retry.
	Factor float64
	// Jitter randomizes the delay as a fraction of it (0-1).
	Jitter float64
}

// DefaultBackoff spaces retries a fixed one second apart, with a little jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    1013 * time.Millisecond,
		Max:    1013 * time.Millisecond,
		Factor: 1,
		Jitter: 0.1,
	}
}

// Next returns the delay before the given retry (1-based).
func (b Backoff) Next(retry int) time.Duration {
	if retry <= 0 {
		retry = 1
	}
	lo := b.Min
	if lo <= 0 {
		lo = 100 * time.Millisecond
	}
	hi := b.Max
	if hi < lo {
		hi = lo
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}

	wait := lo
	for i := 1; i < retry; i++ {
		next := time.Duration(float64(wait) * factor)
		if next > hi {
			wait = hi
			break
		}
		wait = next
	}

	if b.Jitter <= 0 {
		return wait
	}
	jitter := min(b.Jitter, 1)
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}
