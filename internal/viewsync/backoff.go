package viewsync

import "time"

// Sync tuning defaults: the debounce window between a UI edit and the wire,
// and the conflict retry backoff envelope.
const (
	DefaultDebounce    = 400 * time.Millisecond
	DefaultBackoffBase = 200 * time.Millisecond
	DefaultBackoffMax  = 5 * time.Second
	DefaultMaxRetries  = 5
)

// Config tunes the coordinator. Zero values select the defaults.
type Config struct {
	Debounce    time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxRetries  int
}

func (c Config) debounce() time.Duration {
	if c.Debounce > 0 {
		return c.Debounce
	}
	return DefaultDebounce
}

func (c Config) backoffBase() time.Duration {
	if c.BackoffBase > 0 {
		return c.BackoffBase
	}
	return DefaultBackoffBase
}

func (c Config) backoffMax() time.Duration {
	if c.BackoffMax > 0 {
		return c.BackoffMax
	}
	return DefaultBackoffMax
}

func (c Config) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultMaxRetries
}

// backoffDelay returns the exponential delay for the given 1-based attempt:
// base doubling per attempt, capped at max.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
