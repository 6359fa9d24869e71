package email

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/baechuer/account-service/internal/application/account"
)

var ErrCircuitOpen = errors.New("email: circuit breaker is open")

// BreakerState of a BreakerSender
type BreakerState int

const (
	StateClosed   BreakerState = iota // sends pass through
	StateOpen                         // sends fail immediately
	StateHalfOpen                     // a limited number of probes pass
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerSender stops hammering a dead relay. After maxFailures consecutive
// failures every send fails fast for resetTimeout, then up to halfOpenMax
// probes decide whether to close again.
type BreakerSender struct {
	next account.EmailDispatcher

	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	now          func() time.Time

	mu            sync.Mutex
	state         BreakerState
	failures      int
	openedAt      time.Time
	halfOpenCalls int
}

func NewBreakerSender(next account.EmailDispatcher, maxFailures int, resetTimeout time.Duration, halfOpenMax int) *BreakerSender {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	if halfOpenMax <= 0 {
		halfOpenMax = 1
	}
	return &BreakerSender{
		next:         next,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  halfOpenMax,
		now:          time.Now,
	}
}

func (b *BreakerSender) Send(ctx context.Context, msg account.EmailMessage) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := b.next.Send(ctx, msg)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

func (b *BreakerSender) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
	}

	switch b.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			return ErrCircuitOpen
		}
		b.halfOpenCalls++
	}
	return nil
}

func (b *BreakerSender) recordFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
		b.halfOpenCalls = 0
	}
}

func (b *BreakerSender) recordSuccess() {
	b.failures = 0
	b.state = StateClosed
	b.halfOpenCalls = 0
}

func (b *BreakerSender) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
