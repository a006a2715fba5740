package clients

import (
	"sync"
	"time"
)

// BreakerState is where a Breaker sits. The numeric values are exported as
// the quotegen_remote_circuit_state gauge.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota

	// BreakerHalfOpen lets a limited number of trial calls through.
	BreakerHalfOpen

	// BreakerOpen rejects calls until the cooldown has passed.
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int

	// Cooldown is how long the breaker stays open before it allows trials.
	Cooldown time.Duration

	// Trials caps concurrent trial calls while half-open and is also the
	// number of trial successes needed to close again.
	Trials int
}

// BreakerSnapshot is a point-in-time view of a Breaker.
type BreakerSnapshot struct {
	State    BreakerState
	Failures int

	// RetryAt is when an open breaker starts allowing trials. Zero unless
	// State is BreakerOpen.
	RetryAt time.Time
}

// Breaker keeps a failing remote from holding every sync cycle for the full
// retry budget.
//
//	closed    -- Threshold failures --> open
//	open      -- Cooldown elapsed   --> half-open
//	half-open -- Trials successes   --> closed
//	half-open -- any failure        --> open
//
// Every Allow that returns true must be settled by exactly one of Success,
// Failure, or Abandon.
type Breaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     BreakerState
	failures  int
	passed    int
	inFlight  int
	openedAt  time.Time
	observers []func(from, to BreakerState)

	now func() time.Time
}

// NewBreaker creates a closed breaker. Threshold and Trials below one are
// raised to one.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.Threshold = max(cfg.Threshold, 1)
	cfg.Trials = max(cfg.Trials, 1)

	return &Breaker{cfg: cfg, now: time.Now}
}

// Observe registers fn to run after each state change. Observers run
// synchronously, outside the breaker's lock, in registration order.
func (b *Breaker) Observe(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.observers = append(b.observers, fn)
}

// Allow reports whether a call may go out. An open breaker whose cooldown
// has passed moves to half-open and admits this call as the first trial.
func (b *Breaker) Allow() bool {
	return b.update(func() bool {
		switch b.state {
		case BreakerClosed:
			return true

		case BreakerOpen:
			if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
				return false
			}

			b.enter(BreakerHalfOpen)
			b.inFlight = 1

			return true

		case BreakerHalfOpen:
			if b.inFlight >= b.cfg.Trials {
				return false
			}

			b.inFlight++

			return true
		}

		return false
	})
}

// Success settles an allowed call that reached the remote and got a usable
// answer.
func (b *Breaker) Success() {
	b.update(func() bool {
		switch b.state {
		case BreakerClosed:
			b.failures = 0

		case BreakerHalfOpen:
			b.inFlight--
			b.passed++

			if b.passed >= b.cfg.Trials {
				b.enter(BreakerClosed)
			}
		}

		return true
	})
}

// Failure settles an allowed call that the remote failed.
func (b *Breaker) Failure() {
	b.update(func() bool {
		switch b.state {
		case BreakerClosed:
			b.failures++

			if b.failures >= b.cfg.Threshold {
				b.enter(BreakerOpen)
			}

		case BreakerHalfOpen:
			b.enter(BreakerOpen)
		}

		return true
	})
}

// Abandon settles an allowed call the caller gave up on before the remote
// answered. It frees a trial slot without counting for or against the
// remote.
func (b *Breaker) Abandon() {
	b.update(func() bool {
		if b.state == BreakerHalfOpen && b.inFlight > 0 {
			b.inFlight--
		}

		return true
	})
}

// Snapshot returns the current state.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := BreakerSnapshot{State: b.state, Failures: b.failures}
	if b.state == BreakerOpen {
		s.RetryAt = b.openedAt.Add(b.cfg.Cooldown)
	}

	return s
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	return b.Snapshot().State
}

// update runs fn under the lock and notifies observers if fn moved the
// breaker.
func (b *Breaker) update(fn func() bool) bool {
	b.mu.Lock()
	from := b.state
	result := fn()
	to := b.state
	observers := b.observers
	b.mu.Unlock()

	if from != to {
		for _, o := range observers {
			o(from, to)
		}
	}

	return result
}

// enter switches state and clears the per-state counters. Callers hold mu.
func (b *Breaker) enter(s BreakerState) {
	b.state = s
	b.failures = 0
	b.passed = 0
	b.inFlight = 0

	if s == BreakerOpen {
		b.openedAt = b.now()
	}
}
