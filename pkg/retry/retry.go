package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ErrMaxRetriesExceeded is returned when every attempt failed
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1]; 0.1 means ±10%
	JitterFactor float64
}

// DefaultConfig backs off 100ms, 200ms, 400ms
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks an error as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result describes how a retried operation ended
type Result struct {
	// Err is nil on success, the unwrapped error for permanent failures,
	// ErrMaxRetriesExceeded or the context error otherwise
	Err       error
	Attempts  int
	LastError error
}

// Callback is invoked before each wait
type Callback func(attempt int, err error, wait time.Duration)

// Retrier runs operations with exponential backoff
type Retrier struct {
	config Config
}

// New creates a Retrier, filling zero values from DefaultConfig
func New(cfg *Config) *Retrier {
	def := DefaultConfig()
	if cfg == nil {
		return &Retrier{config: *def}
	}
	c := *cfg
	if c.InitialInterval <= 0 {
		c.InitialInterval = def.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	c.JitterFactor = math.Min(math.Max(c.JitterFactor, 0), 1)
	return &Retrier{config: c}
}

// Do runs op until it succeeds, fails permanently, runs out of retries or ctx ends
func (r *Retrier) Do(ctx context.Context, op Operation, cb Callback) *Result {
	res := &Result{}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		res.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			res.Err = nil
			return res
		}
		res.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			res.Err = perm.Err
			res.LastError = perm.Err
			return res
		}

		if attempt >= r.config.MaxRetries {
			res.Err = ErrMaxRetriesExceeded
			return res
		}

		wait := r.backoff(attempt)
		if cb != nil {
			cb(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Err = ctx.Err()
			return res
		case <-timer.C:
		}
	}
}

func (r *Retrier) backoff(attempt int) time.Duration {
	interval := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.JitterFactor > 0 {
		interval += (rand.Float64()*2 - 1) * interval * r.config.JitterFactor
	}
	interval = math.Min(interval, float64(r.config.MaxInterval))
	if interval <= 0 {
		interval = float64(r.config.InitialInterval)
	}
	return time.Duration(interval)
}

// Do is a convenience wrapper around New(cfg).Do without a callback
func Do(ctx context.Context, cfg *Config, op Operation) *Result {
	return New(cfg).Do(ctx, op, nil)
}
