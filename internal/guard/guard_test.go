package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"match-engine/internal/domain/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedRunner fails the listed strategies and counts invocations per strategy.
type scriptedRunner struct {
	mu      sync.Mutex
	failing map[matching.Strategy]bool
	calls   map[matching.Strategy]int
}

func newScriptedRunner(failing ...matching.Strategy) *scriptedRunner {
	r := &scriptedRunner{failing: map[matching.Strategy]bool{}, calls: map[matching.Strategy]int{}}
	for _, s := range failing {
		r.failing[s] = true
	}
	return r
}

func (r *scriptedRunner) setFailing(s matching.Strategy, v bool) {
	r.mu.Lock()
	r.failing[s] = v
	r.mu.Unlock()
}

func (r *scriptedRunner) count(s matching.Strategy) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[s]
}

func (r *scriptedRunner) run(_ context.Context, s matching.Strategy) (matching.Result, error) {
	r.mu.Lock()
	r.calls[s]++
	fail := r.failing[s]
	r.mu.Unlock()
	if fail {
		return matching.Result{}, errors.New("boom")
	}
	return matching.Result{Aggregate: 42, Strategy: s}, nil
}

func newTestGuard(t *testing.T, clock *fakeClock) *Guard {
	t.Helper()
	g, err := New(Config{
		Store:          NewMemoryStore(),
		Policy:         DefaultPolicy(),
		Chain:          DefaultChain(),
		AttemptTimeout: time.Second,
		Now:            clock.Now,
	})
	require.NoError(t, err)
	return g
}

func TestGuard_PrimarySuccess(t *testing.T) {
	g := newTestGuard(t, newFakeClock())
	runner := newScriptedRunner()

	out, err := g.Execute(context.Background(), matching.StrategyGeoPriority, runner.run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyGeoPriority, out.Used)
	assert.False(t, out.FellBack())
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, AttemptSucceeded, out.Attempts[0].Status)
}

func TestGuard_FallsBackThroughChain(t *testing.T) {
	g := newTestGuard(t, newFakeClock())
	runner := newScriptedRunner(matching.StrategySemantic, matching.StrategyAdvancedProfile)

	out, err := g.Execute(context.Background(), matching.StrategySemantic, runner.run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyFallback, out.Used)
	require.Len(t, out.Attempts, 3)
	assert.Equal(t, matching.StrategySemantic, out.Attempts[0].Strategy)
	assert.Equal(t, AttemptFailed, out.Attempts[0].Status)
	assert.Equal(t, matching.StrategyAdvancedProfile, out.Attempts[1].Strategy)
	assert.Equal(t, matching.StrategyFallback, out.Attempts[2].Strategy)
}

func TestGuard_OpenBreakerRoutesToFirstFallback(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(t, clock)
	runner := newScriptedRunner(matching.StrategySemantic)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		out, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
		require.NoError(t, err)
		assert.Equal(t, matching.StrategyAdvancedProfile, out.Used)
	}
	require.Equal(t, 5, runner.count(matching.StrategySemantic))

	h, err := g.store.Snapshot(ctx, string(matching.StrategySemantic))
	require.NoError(t, err)
	assert.Equal(t, StateOpen, h.State)

	out, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyAdvancedProfile, out.Used)
	assert.Equal(t, 5, runner.count(matching.StrategySemantic), "open breaker must not invoke the strategy")
	require.Len(t, out.Attempts, 2)
	assert.Equal(t, AttemptSkipped, out.Attempts[0].Status)
}

func TestGuard_HalfOpenAdmitsSingleTrial(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(t, clock)
	runner := newScriptedRunner(matching.StrategySemantic)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
		require.NoError(t, err)
	}

	clock.Advance(59 * time.Second)
	ok, err := g.store.Admit(ctx, string(matching.StrategySemantic), clock.Now(), g.policy)
	require.NoError(t, err)
	assert.False(t, ok, "cooldown not elapsed")

	clock.Advance(time.Second)
	first, err := g.store.Admit(ctx, string(matching.StrategySemantic), clock.Now(), g.policy)
	require.NoError(t, err)
	second, err := g.store.Admit(ctx, string(matching.StrategySemantic), clock.Now(), g.policy)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	_, err = g.store.RecordSuccess(ctx, string(matching.StrategySemantic), clock.Now())
	require.NoError(t, err)
	h, err := g.store.Snapshot(ctx, string(matching.StrategySemantic))
	require.NoError(t, err)
	assert.Equal(t, StateClosed, h.State)
	assert.Zero(t, h.ConsecutiveFailures)
}

func TestGuard_AbandonedTrialExpires(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(t, clock)
	runner := newScriptedRunner(matching.StrategySemantic)
	ctx := context.Background()
	name := string(matching.StrategySemantic)

	for i := 0; i < 5; i++ {
		_, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
		require.NoError(t, err)
	}
	clock.Advance(61 * time.Second)

	// The admitted trial never reports back.
	ok, err := g.store.Admit(ctx, name, clock.Now(), g.policy)
	require.NoError(t, err)
	require.True(t, ok)
	h, err := g.store.Snapshot(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, h.State)
	assert.True(t, h.TrialInFlight)
	assert.Equal(t, clock.Now(), h.TrialStarted)

	clock.Advance(500 * time.Millisecond)
	ok, err = g.store.Admit(ctx, name, clock.Now(), g.policy)
	require.NoError(t, err)
	assert.False(t, ok, "trial still within the attempt timeout")

	clock.Advance(500 * time.Millisecond)
	runner.setFailing(matching.StrategySemantic, false)
	out, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategySemantic, out.Used)

	h, err = g.store.Snapshot(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, h.State)
	assert.False(t, h.TrialInFlight)
	assert.True(t, h.TrialStarted.IsZero())
}

func TestAdmit_TrialWithoutTimeoutNeverExpires(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := Health{Strategy: "semantic", State: StateHalfOpen, TrialInFlight: true, TrialStarted: start}

	_, ok := admit(h, start.Add(time.Hour), Policy{FailureThreshold: 1, Cooldown: time.Second})
	assert.False(t, ok)

	next, ok := admit(h, start.Add(2*time.Second), Policy{FailureThreshold: 1, Cooldown: time.Second, TrialTimeout: time.Second})
	assert.True(t, ok)
	assert.Equal(t, start.Add(2*time.Second), next.TrialStarted)
}

func TestNew_TrialTimeoutDefaultsToAttemptTimeout(t *testing.T) {
	g, err := New(Config{Policy: DefaultPolicy(), AttemptTimeout: 750 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, g.policy.TrialTimeout)

	g, err = New(Config{Policy: Policy{FailureThreshold: 1, TrialTimeout: 3 * time.Second}})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, g.policy.TrialTimeout)
}

func TestGuard_TrialFailureReopens(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(t, clock)
	runner := newScriptedRunner(matching.StrategySemantic)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
		require.NoError(t, err)
	}
	clock.Advance(61 * time.Second)

	out, err := g.Execute(ctx, matching.StrategySemantic, runner.run)
	require.NoError(t, err)
	assert.Equal(t, 6, runner.count(matching.StrategySemantic), "one trial after cooldown")
	assert.Equal(t, AttemptFailed, out.Attempts[0].Status)

	h, err := g.store.Snapshot(ctx, string(matching.StrategySemantic))
	require.NoError(t, err)
	assert.Equal(t, StateOpen, h.State)
	assert.Equal(t, clock.Now(), h.LastFailure)

	runner.setFailing(matching.StrategySemantic, false)
	clock.Advance(61 * time.Second)
	out, err = g.Execute(ctx, matching.StrategySemantic, runner.run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategySemantic, out.Used)

	h, err = g.store.Snapshot(ctx, string(matching.StrategySemantic))
	require.NoError(t, err)
	assert.Equal(t, StateClosed, h.State)
}

func TestGuard_SuccessResetsFailureCount(t *testing.T) {
	g := newTestGuard(t, newFakeClock())
	runner := newScriptedRunner(matching.StrategyGeoPriority)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := g.Execute(ctx, matching.StrategyGeoPriority, runner.run)
		require.NoError(t, err)
	}
	runner.setFailing(matching.StrategyGeoPriority, false)
	_, err := g.Execute(ctx, matching.StrategyGeoPriority, runner.run)
	require.NoError(t, err)

	h, err := g.store.Snapshot(ctx, string(matching.StrategyGeoPriority))
	require.NoError(t, err)
	assert.Equal(t, StateClosed, h.State)
	assert.Zero(t, h.ConsecutiveFailures)
}

func TestGuard_TimeoutCountsAsFailure(t *testing.T) {
	g, err := New(Config{Policy: DefaultPolicy(), Chain: DefaultChain(), AttemptTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	slow := func(ctx context.Context, s matching.Strategy) (matching.Result, error) {
		if s == matching.StrategySemantic {
			<-ctx.Done()
			return matching.Result{}, ctx.Err()
		}
		return matching.Result{Strategy: s}, nil
	}

	out, err := g.Execute(context.Background(), matching.StrategySemantic, slow)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyAdvancedProfile, out.Used)
	assert.Equal(t, AttemptTimedOut, out.Attempts[0].Status)

	h, err := g.store.Snapshot(context.Background(), string(matching.StrategySemantic))
	require.NoError(t, err)
	assert.Equal(t, 1, h.ConsecutiveFailures)
}

func TestGuard_PanicIsAFailure(t *testing.T) {
	g, err := New(Config{Policy: DefaultPolicy(), Chain: DefaultChain()})
	require.NoError(t, err)

	run := func(_ context.Context, s matching.Strategy) (matching.Result, error) {
		if s == matching.StrategyGeoPriority {
			panic("unexpected")
		}
		return matching.Result{Strategy: s}, nil
	}
	out, err := g.Execute(context.Background(), matching.StrategyGeoPriority, run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyAdvancedProfile, out.Used)
	assert.Contains(t, out.Attempts[0].Error, "panicked")
}

func TestGuard_CancelledContextAborts(t *testing.T) {
	g := newTestGuard(t, newFakeClock())
	runner := newScriptedRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Execute(ctx, matching.StrategyAdvancedProfile, runner.run)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runner.count(matching.StrategyAdvancedProfile))
}

func TestGuard_TerminalFailureExhaustsChain(t *testing.T) {
	g := newTestGuard(t, newFakeClock())
	runner := newScriptedRunner(matching.StrategyAdvancedProfile, matching.StrategyFallback)

	out, err := g.Execute(context.Background(), matching.StrategyAdvancedProfile, runner.run)
	assert.ErrorIs(t, err, ErrChainExhausted)
	assert.Len(t, out.Attempts, 2)
}

func TestGuard_ExplicitFallbackRunsOnce(t *testing.T) {
	g := newTestGuard(t, newFakeClock())
	runner := newScriptedRunner()

	out, err := g.Execute(context.Background(), matching.StrategyFallback, runner.run)
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyFallback, out.Used)
	assert.Len(t, out.Attempts, 1)
}

func TestNew_ChainAlwaysEndsWithFallback(t *testing.T) {
	g, err := New(Config{Policy: DefaultPolicy(), Chain: []matching.Strategy{matching.StrategyFallback, matching.StrategyGeoPriority}})
	require.NoError(t, err)
	assert.Equal(t, []matching.Strategy{matching.StrategyGeoPriority, matching.StrategyFallback}, g.Chain())

	_, err = New(Config{Policy: Policy{FailureThreshold: 0}})
	assert.Error(t, err)

	_, err = New(Config{Policy: DefaultPolicy(), Chain: []matching.Strategy{matching.StrategyAuto}})
	assert.ErrorIs(t, err, matching.ErrUnknownStrategy)
}

func TestMemoryStore_ConcurrentFailuresAreNotLost(t *testing.T) {
	store := NewMemoryStore()
	policy := Policy{FailureThreshold: 1000, Cooldown: time.Minute}
	now := time.Now()

	var wg sync.WaitGroup
	var done atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = store.RecordFailure(context.Background(), "semantic", now, policy)
			}
			done.Add(1)
		}()
	}
	wg.Wait()

	h, err := store.Snapshot(context.Background(), "semantic")
	require.NoError(t, err)
	assert.Equal(t, int32(50), done.Load())
	assert.Equal(t, 500, h.ConsecutiveFailures)
	assert.Equal(t, StateClosed, h.State)
}
