package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"igfollow/pkg/logger"
	"igfollow/pkg/retry"
)

// Limiter blocks until the next upstream request may be sent
type Limiter interface {
	Wait(ctx context.Context) error
}

// SleepFunc suspends for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RandomDelay waits a uniformly chosen whole number of seconds in
// [min, max] before every request.
type RandomDelay struct {
	min    int
	max    int
	sleep  SleepFunc
	intN   func(n int) int
	logger logger.Logger
}

// Option configures a RandomDelay
type Option func(*RandomDelay)

// WithSleep replaces the sleep function, mainly for tests
func WithSleep(fn SleepFunc) Option {
	return func(d *RandomDelay) { d.sleep = fn }
}

// WithIntN replaces the random source; fn(n) must return a value in [0, n)
func WithIntN(fn func(n int) int) Option {
	return func(d *RandomDelay) { d.intN = fn }
}

// WithLogger sets the logger used to report each delay
func WithLogger(l logger.Logger) Option {
	return func(d *RandomDelay) { d.logger = l }
}

// NewRandomDelay creates a delay between minSeconds and maxSeconds inclusive
func NewRandomDelay(minSeconds, maxSeconds int, opts ...Option) (*RandomDelay, error) {
	if minSeconds < 0 {
		return nil, fmt.Errorf("min delay cannot be negative: %d", minSeconds)
	}
	if maxSeconds < minSeconds {
		return nil, fmt.Errorf("max delay %d is less than min delay %d", maxSeconds, minSeconds)
	}

	d := &RandomDelay{
		min:    minSeconds,
		max:    maxSeconds,
		sleep:  retry.Wait,
		intN:   rand.IntN,
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Next picks the next delay without sleeping
func (d *RandomDelay) Next() time.Duration {
	seconds := d.min + d.intN(d.max-d.min+1)
	return time.Duration(seconds) * time.Second
}

// Wait sleeps for the next random delay
func (d *RandomDelay) Wait(ctx context.Context) error {
	delay := d.Next()
	d.logger.DebugWithFields("waiting before request", map[string]interface{}{
		"delay": delay,
	})
	return d.sleep(ctx, delay)
}

// RateCap enforces a hard ceiling on requests per minute
type RateCap struct {
	limiter *rate.Limiter
}

// NewRateCap returns a cap of perMinute requests, or nil when perMinute <= 0
func NewRateCap(perMinute int) *RateCap {
	if perMinute <= 0 {
		return nil
	}
	return &RateCap{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Wait blocks until the cap admits another request
func (r *RateCap) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Chain waits on each limiter in order
type Chain []Limiter

// Wait stops at the first limiter that fails
func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if l == nil {
			continue
		}
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// New builds the limiter used before every page fetch: the random delay,
// followed by the optional per-minute cap.
func New(minSeconds, maxSeconds, perMinute int, opts ...Option) (Limiter, error) {
	delay, err := NewRandomDelay(minSeconds, maxSeconds, opts...)
	if err != nil {
		return nil, err
	}
	if rc := NewRateCap(perMinute); rc != nil {
		return Chain{delay, rc}, nil
	}
	return delay, nil
}
