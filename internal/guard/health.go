package guard

import (
	"context"
	"errors"
	"time"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var ErrHealthStore = errors.New("health store unavailable")

// Health is the breaker state of one strategy.
type Health struct {
	Strategy            string    `json:"strategy"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	TrialInFlight       bool      `json:"trial_in_flight"`
	TrialStarted        time.Time `json:"trial_started,omitempty"`
}

// Policy tunes the breaker. A half-open trial not settled within TrialTimeout is
// abandoned and the next call may start a new one. Zero TrialTimeout never expires.
type Policy struct {
	FailureThreshold int
	Cooldown         time.Duration
	TrialTimeout     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{FailureThreshold: 5, Cooldown: 60 * time.Second}
}

// Store keeps breaker state per strategy. Every method applies one atomic transition.
type Store interface {
	// Admit reports whether a call may run now. An open breaker whose cooldown
	// elapsed moves to half-open and admits exactly one trial.
	Admit(ctx context.Context, strategy string, now time.Time, p Policy) (bool, error)
	RecordSuccess(ctx context.Context, strategy string, now time.Time) (Health, error)
	RecordFailure(ctx context.Context, strategy string, now time.Time, p Policy) (Health, error)
	Snapshot(ctx context.Context, strategy string) (Health, error)
}

func closedHealth(strategy string) Health {
	return Health{Strategy: strategy, State: StateClosed}
}

// admit, succeed and fail are the pure transitions shared by the stores.
func admit(h Health, now time.Time, p Policy) (Health, bool) {
	switch h.State {
	case StateOpen:
		if now.Sub(h.LastFailure) < p.Cooldown {
			return h, false
		}
		h.State = StateHalfOpen
		h.TrialInFlight = true
		h.TrialStarted = now
		return h, true
	case StateHalfOpen:
		if h.TrialInFlight && !trialExpired(h, now, p) {
			return h, false
		}
		h.TrialInFlight = true
		h.TrialStarted = now
		return h, true
	default:
		return h, true
	}
}

func trialExpired(h Health, now time.Time, p Policy) bool {
	return p.TrialTimeout > 0 && now.Sub(h.TrialStarted) >= p.TrialTimeout
}

func succeed(h Health) Health {
	switch h.State {
	case StateHalfOpen:
		h.State = StateClosed
		h.ConsecutiveFailures = 0
		h.TrialInFlight = false
		h.TrialStarted = time.Time{}
	case StateClosed:
		h.ConsecutiveFailures = 0
	}
	return h
}

func fail(h Health, now time.Time, p Policy) Health {
	switch h.State {
	case StateHalfOpen:
		h.State = StateOpen
		h.ConsecutiveFailures++
		h.LastFailure = now
		h.TrialInFlight = false
		h.TrialStarted = time.Time{}
	case StateClosed:
		h.ConsecutiveFailures++
		h.LastFailure = now
		if h.ConsecutiveFailures >= p.FailureThreshold {
			h.State = StateOpen
		}
	}
	return h
}
