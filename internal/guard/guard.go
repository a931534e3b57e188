package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"match-engine/internal/domain/matching"
	"match-engine/internal/logger"

	"go.uber.org/zap"
)

var (
	ErrStrategyFailed = errors.New("strategy execution failed")
	ErrChainExhausted = errors.New("every strategy in the fallback chain failed")
)

const DefaultAttemptTimeout = 2 * time.Second

type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptTimedOut  AttemptStatus = "timed_out"
	AttemptSkipped   AttemptStatus = "skipped_open"
)

type Attempt struct {
	Strategy matching.Strategy `json:"strategy"`
	Status   AttemptStatus     `json:"status"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// Outcome is the value produced by Execute: the result plus every hop taken to get it.
type Outcome struct {
	Result   matching.Result
	Used     matching.Strategy
	Attempts []Attempt
}

// FellBack reports whether the result came from another strategy than the first one tried.
func (o Outcome) FellBack() bool {
	return len(o.Attempts) > 1
}

type RunFunc func(ctx context.Context, s matching.Strategy) (matching.Result, error)

type Config struct {
	Store          Store
	Policy         Policy
	Chain          []matching.Strategy
	AttemptTimeout time.Duration
	Logger         *zap.Logger
	Now            func() time.Time
}

type Guard struct {
	store          Store
	policy         Policy
	chain          []matching.Strategy
	attemptTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func DefaultChain() []matching.Strategy {
	return []matching.Strategy{matching.StrategyAdvancedProfile, matching.StrategyFallback}
}

func New(cfg Config) (*Guard, error) {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Policy.FailureThreshold <= 0 {
		return nil, fmt.Errorf("guard: failure threshold must be positive, got %d", cfg.Policy.FailureThreshold)
	}
	if cfg.Policy.Cooldown < 0 {
		return nil, fmt.Errorf("guard: negative cooldown %s", cfg.Policy.Cooldown)
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Policy.TrialTimeout <= 0 {
		cfg.Policy.TrialTimeout = cfg.AttemptTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	chain := make([]matching.Strategy, 0, len(cfg.Chain)+1)
	for _, s := range cfg.Chain {
		if s == matching.StrategyAuto || s == "" {
			return nil, fmt.Errorf("guard: %w: %q in fallback chain", matching.ErrUnknownStrategy, s)
		}
		if s == matching.StrategyFallback {
			continue
		}
		chain = append(chain, s)
	}
	chain = append(chain, matching.StrategyFallback)

	return &Guard{
		store:          cfg.Store,
		policy:         cfg.Policy,
		chain:          chain,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         cfg.Logger,
		now:            cfg.Now,
	}, nil
}

func (g *Guard) Chain() []matching.Strategy {
	out := make([]matching.Strategy, len(g.chain))
	copy(out, g.chain)
	return out
}

// plan is the primary followed by the chain, without duplicates, ending with the terminal fallback.
func (g *Guard) plan(primary matching.Strategy) []matching.Strategy {
	if primary == matching.StrategyFallback {
		return []matching.Strategy{matching.StrategyFallback}
	}
	out := make([]matching.Strategy, 0, len(g.chain)+1)
	out = append(out, primary)
	for _, s := range g.chain {
		if s == primary {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Execute runs primary, then the fallback chain, until one strategy returns a result.
// Open breakers are skipped without invoking the strategy. The terminal fallback
// bypasses the breaker. Cancellation of ctx is checked before every hop.
func (g *Guard) Execute(ctx context.Context, primary matching.Strategy, run RunFunc) (Outcome, error) {
	out := Outcome{Attempts: make([]Attempt, 0, 2)}

	for _, s := range g.plan(primary) {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		terminal := s == matching.StrategyFallback
		if !terminal && !g.admit(ctx, s) {
			out.Attempts = append(out.Attempts, Attempt{Strategy: s, Status: AttemptSkipped})
			continue
		}

		start := g.now()
		res, err := g.attempt(ctx, s, run)
		elapsed := g.now().Sub(start)

		if err == nil {
			out.Attempts = append(out.Attempts, Attempt{Strategy: s, Status: AttemptSucceeded, Duration: elapsed})
			if !terminal {
				g.recordSuccess(ctx, s)
			}
			out.Result = res
			out.Used = s
			return out, nil
		}

		status := AttemptFailed
		if errors.Is(err, context.DeadlineExceeded) {
			status = AttemptTimedOut
		}
		out.Attempts = append(out.Attempts, Attempt{Strategy: s, Status: status, Error: err.Error(), Duration: elapsed})

		if ctxErr := ctx.Err(); ctxErr != nil {
			if !terminal {
				g.releaseTrial(ctx, s)
			}
			return out, ctxErr
		}
		if !terminal {
			g.recordFailure(ctx, s)
		}
		logger.WithFields(g.logger, logger.StringFields(
			logger.StringField{Key: logger.FieldStrategy, Value: string(s)},
			logger.StringField{Key: "status", Value: string(status)},
		)...).Warn("strategy attempt failed", zap.Error(err))
	}

	return out, ErrChainExhausted
}

// attempt runs one strategy under the per-attempt timeout. A panic counts as a failure.
func (g *Guard) attempt(ctx context.Context, s matching.Strategy, run RunFunc) (matching.Result, error) {
	actx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
	defer cancel()

	type reply struct {
		res matching.Result
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("%w: %s panicked: %v", ErrStrategyFailed, s, r)}
			}
		}()
		res, err := run(actx, s)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrStrategyFailed, s, err)
		}
		ch <- reply{res: res, err: err}
	}()

	select {
	case r := <-ch:
		return r.res, r.err
	case <-actx.Done():
		return matching.Result{}, fmt.Errorf("%w: %s: %w", ErrStrategyFailed, s, actx.Err())
	}
}

func (g *Guard) admit(ctx context.Context, s matching.Strategy) bool {
	ok, err := g.store.Admit(ctx, string(s), g.now(), g.policy)
	if err != nil {
		g.logger.Warn("health store admit failed, letting call through", zap.String("strategy", string(s)), zap.Error(err))
		return true
	}
	return ok
}

func (g *Guard) recordSuccess(ctx context.Context, s matching.Strategy) {
	before, _ := g.store.Snapshot(ctx, string(s))
	h, err := g.store.RecordSuccess(ctx, string(s), g.now())
	if err != nil {
		g.logger.Warn("health store record success failed", zap.String("strategy", string(s)), zap.Error(err))
		return
	}
	g.logTransition(before, h)
}

func (g *Guard) recordFailure(ctx context.Context, s matching.Strategy) {
	before, _ := g.store.Snapshot(ctx, string(s))
	h, err := g.store.RecordFailure(ctx, string(s), g.now(), g.policy)
	if err != nil {
		g.logger.Warn("health store record failure failed", zap.String("strategy", string(s)), zap.Error(err))
		return
	}
	g.logTransition(before, h)
}

// releaseTrial re-opens a half-open breaker whose trial was abandoned by the caller,
// so the next request after cooldown can run a new trial.
func (g *Guard) releaseTrial(ctx context.Context, s matching.Strategy) {
	ctx = context.WithoutCancel(ctx)
	h, err := g.store.Snapshot(ctx, string(s))
	if err != nil || h.State != StateHalfOpen {
		return
	}
	g.recordFailure(ctx, s)
}

func (g *Guard) logTransition(before, after Health) {
	if before.State == after.State || before.State == "" {
		return
	}
	g.logger.Info("circuit breaker transition",
		zap.String("strategy", after.Strategy),
		zap.String("from", string(before.State)),
		zap.String("to", string(after.State)),
		zap.Int("consecutive_failures", after.ConsecutiveFailures),
	)
}

// Health returns the breaker state of every guarded strategy.
func (g *Guard) Health(ctx context.Context) ([]Health, error) {
	out := make([]Health, 0, len(matching.Strategies))
	for _, s := range matching.Strategies {
		if s == matching.StrategyFallback {
			continue
		}
		h, err := g.store.Snapshot(ctx, string(s))
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
