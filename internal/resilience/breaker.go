// Package resilience keeps a failing catalog backend from slowing every
// order down. [Breaker] is a three-state circuit breaker, [Chain] tries
// backends in order behind one breaker each, and [CatalogFallback] applies
// that to menu catalogs.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] without calling the function.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero fields take the defaults noted.
type BreakerConfig struct {
	// Name labels log lines and state-change callbacks.
	Name string

	// MaxFailures consecutive failures open the breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open. Default: 30s.
	ResetTimeout time.Duration

	// Probes is both the number of concurrent trial calls allowed while
	// half-open and the successes needed to close again. Default: 1.
	Probes int

	// IsAnswer marks errors that are a definitive reply from a healthy
	// backend, such as "not found". They reach the caller but count as
	// successes.
	IsAnswer func(error) bool

	// OnStateChange is called on every transition with the breaker's lock
	// held. It must not call back into the breaker.
	OnStateChange func(name string, from, to State)

	// Now replaces time.Now in tests.
	Now func() time.Time
}

type outcome int

const (
	success outcome = iota
	failure
	abandoned
)

// Breaker is safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probing   int
	successes int
}

// NewBreaker returns a closed Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{cfg: cfg}
}

// Do calls fn unless the breaker is open. An error that only reflects ctx
// ending (the caller gave up) is returned but neither trips nor heals the
// breaker.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, err := b.acquire()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.release(probe, b.classify(ctx, err))
	return err
}

func (b *Breaker) classify(ctx context.Context, err error) outcome {
	switch {
	case err == nil, b.isAnswer(err):
		return success
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return abandoned
	default:
		return failure
	}
}

func (b *Breaker) isAnswer(err error) bool {
	return b.cfg.IsAnswer != nil && b.cfg.IsAnswer(err)
}

// acquire admits one call and reports whether it is a half-open probe.
func (b *Breaker) acquire() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		b.probing, b.successes = 0, 0
		b.transition(StateHalfOpen)
	}
	if b.state == StateClosed {
		return false, nil
	}
	if b.probing >= b.cfg.Probes {
		return false, ErrCircuitOpen
	}
	b.probing++
	return true, nil
}

func (b *Breaker) release(probe bool, o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing--
		if b.state != StateHalfOpen {
			return
		}
		switch o {
		case failure:
			b.trip()
		case success:
			b.successes++
			if b.successes >= b.cfg.Probes {
				b.failures = 0
				b.transition(StateClosed)
			}
		}
		return
	}

	// A call admitted while closed may finish after another call tripped.
	if b.state != StateClosed {
		return
	}
	switch o {
	case failure:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.trip()
		}
	case success:
		b.failures = 0
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.cfg.Now()
	b.failures = 0
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	slog.Info("circuit breaker state change", "name", b.cfg.Name, "from", from, "to", to)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// State reports the current mode. An open breaker whose reset timeout has
// passed reports half-open; the transition itself happens on the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures, b.probing, b.successes = 0, 0, 0
	b.transition(StateClosed)
}
