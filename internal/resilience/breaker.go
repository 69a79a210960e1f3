package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

// Breaker states.
const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota

	// StateHalfOpen lets probe calls through after the cool-down; a single
	// failure trips back to open, successThreshold successes close.
	StateHalfOpen

	// StateOpen rejects all calls until the cool-down elapses.
	StateOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config holds breaker tuning parameters.
// Zero values are replaced with defaults by New.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips a
	// closed breaker open. Must be > 0.
	FailureThreshold int

	// RecoveryTimeout is the cool-down after tripping, before a probe call
	// is allowed through.
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of consecutive successful probes
	// required to close a half-open breaker. Must be > 0.
	SuccessThreshold int

	// Timeout is the per-call deadline raced against the operation.
	// A timeout counts as a failure.
	Timeout time.Duration
}

// Default tuning, used when Config fields are zero.
const (
	defaultFailureThreshold = 5
	defaultRecoveryTimeout  = 30 * time.Second
	defaultSuccessThreshold = 2
	defaultTimeout          = 10 * time.Second
)

// Operation is a unit of work protected by a breaker.
//
// The context is passed through from Do. When the breaker's timeout fires
// the operation keeps running; only its result is discarded.
type Operation func(ctx context.Context) error

// Breaker is a circuit breaker protecting one logical call class, either
// the bulk API or a single device.
//
// All methods are safe for concurrent use. Calls are not serialised:
// multiple operations may be in flight at once, each racing the shared
// timeout and updating counters independently.
type Breaker struct {
	name string
	cfg  Config

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailure          time.Time
	nextAttempt          time.Time
	totalCalls           uint64
	totalSuccesses       uint64
	totalFailures        uint64

	// now is replaceable in tests.
	now func() time.Time
}

// Stats is a read-only snapshot of breaker state and counters.
type Stats struct {
	Name                 string
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastFailure          time.Time
	NextAttempt          time.Time
	TotalCalls           uint64
	TotalSuccesses       uint64
	TotalFailures        uint64
}

// New creates a breaker with the given name and tuning.
// Zero config fields fall back to the package defaults.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = defaultRecoveryTimeout
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = defaultSuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// Do runs op under the breaker's protection.
//
// If the breaker is open and the cool-down has not elapsed, Do returns an
// *OpenError immediately without invoking op. Otherwise op is raced against
// the configured timeout; a timeout or an op error counts as a failure and
// is returned to the caller. Context cancellation is also treated as a
// failure of the call.
func (b *Breaker) Do(ctx context.Context, op Operation) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := b.run(ctx, op)
	if err != nil {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

// beforeCall checks admission and transitions OPEN→HALF_OPEN when the
// cool-down has elapsed.
func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++

	if b.state == StateOpen {
		if b.now().Before(b.nextAttempt) {
			return &OpenError{Name: b.name, RetryAt: b.nextAttempt}
		}
		// Cool-down elapsed: allow this call through as a probe.
		b.state = StateHalfOpen
		b.consecutiveSuccesses = 0
	}

	return nil
}

// run races op against the breaker timeout. The operation is not aborted
// on timeout; it runs to completion in its goroutine and the result is
// discarded.
func (b *Breaker) run(ctx context.Context, op Operation) error {
	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	timer := time.NewTimer(b.cfg.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, b.cfg.Timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onSuccess records a successful call and closes a half-open breaker once
// enough consecutive probes have succeeded.
func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccesses++
	b.consecutiveFailures = 0

	if b.state == StateHalfOpen {
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.consecutiveSuccesses = 0
		}
	}
}

// onFailure records a failed call and trips the breaker when warranted.
func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.totalFailures++
	b.consecutiveFailures++
	b.lastFailure = now

	switch {
	case b.state == StateHalfOpen:
		// A failed probe reopens immediately and restarts the cool-down.
		b.trip(now)
	case b.state == StateClosed && b.consecutiveFailures >= b.cfg.FailureThreshold:
		b.trip(now)
	}
}

// trip moves to OPEN and schedules the next allowed attempt.
// Caller must hold b.mu.
func (b *Breaker) trip(now time.Time) {
	b.state = StateOpen
	b.nextAttempt = now.Add(b.cfg.RecoveryTimeout)
	b.consecutiveSuccesses = 0
}

// Stats returns a snapshot of the breaker's state and counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:                 b.name,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		LastFailure:          b.lastFailure,
		NextAttempt:          b.nextAttempt,
		TotalCalls:           b.totalCalls,
		TotalSuccesses:       b.totalSuccesses,
		TotalFailures:        b.totalFailures,
	}
}

// Reset forces the breaker closed and clears all counters and timestamps.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.lastFailure = time.Time{}
	b.nextAttempt = time.Time{}
	b.totalCalls = 0
	b.totalSuccesses = 0
	b.totalFailures = 0
}

// ForceOpen trips the breaker regardless of its current state and schedules
// the next attempt one recovery timeout from now. Used for maintenance
// windows.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trip(b.now())
}
