package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Breaker around the distance pricing service. After enough consecutive
// failures it stops calling out and quotes fall back to the base cost; once
// the cool-down passes a limited number of probes decide whether to resume.
//
//	closed ──(FailureThreshold failures)──▶ open ──(Cooldown)──▶ half-open
//	half-open ──(SuccessThreshold successes)──▶ closed
//	half-open ──(any failure)──▶ open

// CBState is the breaker position.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling fn while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // default 5
	SuccessThreshold int           // default 2
	Cooldown         time.Duration // default 60s
	MaxProbes        int           // concurrent calls admitted while half-open, default 1
}

// DefaultCBConfig is what the distance service runs with.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "distancia",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         time.Minute,
		MaxProbes:        1,
	}
}

// CBStats is a point-in-time view for the health endpoint.
type CBStats struct {
	State     string    `json:"state"`
	Failures  int       `json:"consecutive_failures"`
	ProbeFrom time.Time `json:"probe_from,omitempty"`
}

type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.MaxProbes <= 0 {
		cfg.MaxProbes = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.coolDownLocked()
	return cb.state
}

func (cb *CircuitBreaker) Stats() CBStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.coolDownLocked()
	st := CBStats{State: cb.state.String(), Failures: cb.failures}
	if cb.state == CBOpen {
		st.ProbeFrom = cb.openedAt.Add(cb.cfg.Cooldown)
	}
	return st
}

// Execute calls fn unless the breaker is open or all half-open probe slots
// are taken. A cancelled caller context is not held against the service.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probes--
	}
	switch {
	case err == nil:
		cb.recordSuccessLocked()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// caller gave up
	default:
		cb.recordFailureLocked()
	}
	return err
}

func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.coolDownLocked()
	switch cb.state {
	case CBOpen:
		return false, ErrCircuitOpen
	case CBHalfOpen:
		if cb.probes >= cb.cfg.MaxProbes {
			return false, ErrCircuitOpen
		}
		cb.probes++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) coolDownLocked() {
	if cb.state == CBOpen && !cb.now().Before(cb.openedAt.Add(cb.cfg.Cooldown)) {
		cb.moveLocked(CBHalfOpen)
	}
}

func (cb *CircuitBreaker) recordFailureLocked() {
	switch cb.state {
	case CBClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.moveLocked(CBOpen)
		}
	case CBHalfOpen:
		cb.moveLocked(CBOpen)
	}
}

func (cb *CircuitBreaker) recordSuccessLocked() {
	switch cb.state {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.moveLocked(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) moveLocked(to CBState) {
	from := cb.state
	cb.state = to
	cb.successes = 0
	if to != CBOpen {
		cb.failures = 0
	}
	if to == CBOpen {
		cb.openedAt = cb.now()
	}
	log.Warn().Str("breaker", cb.cfg.Name).Str("from", from.String()).Str("to", to.String()).
		Msg("circuit_breaker: state change")
}
