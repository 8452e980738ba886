package provider

import (
	"context"
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit state of a guarded provider.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // normal operation
	BreakerOpen                         // failing, reject calls
	BreakerHalfOpen                     // probing for recovery
)

// ErrBreakerOpen is returned while the circuit is open.
var ErrBreakerOpen = errors.New("provider circuit open: backend unavailable")

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int           // failures before opening
	SuccessThreshold int           // successes to close from half-open
	Cooldown         time.Duration // how long to stay open before probing
}

// Breaker wraps a Provider with a circuit breaker so a failing LLM
// backend sheds load fast instead of holding every triage invocation to
// its timeout. Backend errors and deadline expiry count as failures;
// caller cancellation does not. An open circuit rejects immediately with
// ErrBreakerOpen.
type Breaker struct {
	inner  Provider
	config BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewBreaker wraps p with circuit breaking. Zero config fields get
// conservative defaults.
func NewBreaker(p Provider, config BreakerConfig) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}
	if config.Cooldown == 0 {
		config.Cooldown = 30 * time.Second
	}
	return &Breaker{inner: p, config: config, state: BreakerClosed}
}

// Name returns the wrapped provider's identifier.
func (b *Breaker) Name() string {
	return b.inner.Name()
}

// Complete forwards to the wrapped provider when the circuit allows it.
func (b *Breaker) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := b.admit(); err != nil {
		return nil, err
	}

	resp, err := b.inner.Complete(ctx, req)
	if err != nil {
		// A caller abort says nothing about backend health; only count
		// failures the backend itself produced.
		if !errors.Is(err, context.Canceled) {
			b.recordFailure()
		}
		return nil, err
	}
	b.recordSuccess()
	return resp, nil
}

// admit decides whether a call may proceed, moving an expired open
// circuit to half-open.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if time.Since(b.lastFailure) <= b.config.Cooldown {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.successes = 0
	}
	return nil
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	if b.state == BreakerHalfOpen || b.failures >= b.config.FailureThreshold {
		b.state = BreakerOpen
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
		}
		return
	}
	b.failures = 0
}

// State returns the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
