package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"match-engine/internal/analytics"
	"match-engine/internal/domain/matching"
	"match-engine/internal/guard"
	"match-engine/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultParallelism = 8
	DefaultMaxLimit    = 100
)

type MatchingUsecase interface {
	Match(ctx context.Context, req MatchRequest) (MatchResponse, error)
	ReverseMatch(ctx context.Context, req ReverseMatchRequest) (MatchResponse, error)
	Summary(ctx context.Context, days int) (analytics.Summary, error)
	StrategyHealth(ctx context.Context) ([]guard.Health, error)
	InvalidateCache(ctx context.Context) (int, error)
}

// MatchOutcome is one scored (candidate, job) pair with its routing trail.
type MatchOutcome struct {
	CandidateID     string
	JobID           string
	Result          matching.Result
	Requested       matching.Strategy
	Selected        matching.Strategy
	Used            matching.Strategy
	SelectionReason string
	Attempts        []guard.Attempt
	Cached          bool
	Duration        time.Duration
}

type MatchResponse struct {
	Mode      analytics.Mode
	Requested matching.Strategy
	Total     int
	Items     []MatchOutcome
}

type MatchingConfig struct {
	Catalog     *matching.Catalog
	Selector    matching.SelectorPolicy
	Guard       *guard.Guard
	Recorder    *analytics.Recorder
	Cache       ResultCache
	CacheTTL    time.Duration
	Parallelism int
	MaxLimit    int
	Logger      *zap.Logger
	Now         func() time.Time
}

type Matching struct {
	catalog     *matching.Catalog
	selector    matching.SelectorPolicy
	guard       *guard.Guard
	recorder    *analytics.Recorder
	cache       ResultCache
	cacheTTL    time.Duration
	parallelism int
	maxLimit    int
	logger      *zap.Logger
	now         func() time.Time

	flight singleflight.Group
}

func NewMatchingUsecase(cfg MatchingConfig) (*Matching, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("matching usecase: nil catalog")
	}
	if cfg.Guard == nil {
		return nil, errors.New("matching usecase: nil guard")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = analytics.NewRecorder(analytics.RecorderConfig{Logger: cfg.Logger})
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Selector == (matching.SelectorPolicy{}) {
		cfg.Selector = matching.DefaultSelectorPolicy()
	}
	return &Matching{
		catalog:     cfg.Catalog,
		selector:    cfg.Selector,
		guard:       cfg.Guard,
		recorder:    cfg.Recorder,
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		parallelism: cfg.Parallelism,
		maxLimit:    cfg.MaxLimit,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}, nil
}

type pair struct {
	candidate matching.Candidate
	job       matching.Job
}

func (u *Matching) Match(ctx context.Context, req MatchRequest) (MatchResponse, error) {
	requested, err := req.Validate()
	if err != nil {
		return MatchResponse{}, err
	}

	cand := toCandidate(req.CandidateID, req.CV, req.Questionnaire)
	pairs := make([]pair, 0, len(req.Jobs))
	for _, j := range req.Jobs {
		pairs = append(pairs, pair{candidate: cand, job: toJob(j)})
	}
	return u.run(ctx, analytics.ModeForward, requested, pairs, req.Limit)
}

func (u *Matching) ReverseMatch(ctx context.Context, req ReverseMatchRequest) (MatchResponse, error) {
	requested, err := req.Validate()
	if err != nil {
		return MatchResponse{}, err
	}

	job := toJob(req.Job)
	pairs := make([]pair, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		pairs = append(pairs, pair{candidate: toCandidate(c.ID, c.CV, c.Questionnaire), job: job})
	}
	return u.run(ctx, analytics.ModeReverse, requested, pairs, req.Limit)
}

// run scores every pair with bounded parallelism, then ranks by score descending.
func (u *Matching) run(ctx context.Context, mode analytics.Mode, requested matching.Strategy, pairs []pair, limit int) (MatchResponse, error) {
	items := make([]MatchOutcome, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.parallelism)
	for i, p := range pairs {
		g.Go(func() error {
			out, err := u.scoreOne(gctx, mode, requested, p)
			if err != nil {
				return err
			}
			items[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return MatchResponse{}, ctxErr
		}
		return MatchResponse{}, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Result.Aggregate > items[j].Result.Aggregate
	})

	total := len(items)
	if limit > u.maxLimit {
		limit = u.maxLimit
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return MatchResponse{Mode: mode, Requested: requested, Total: total, Items: items}, nil
}

func (u *Matching) scoreOne(ctx context.Context, mode analytics.Mode, requested matching.Strategy, p pair) (MatchOutcome, error) {
	start := u.now()
	sel := u.selector.Resolve(requested, p.candidate, p.job)
	out := MatchOutcome{
		CandidateID:     p.candidate.ID,
		JobID:           p.job.ID,
		Requested:       requested,
		Selected:        sel.Strategy,
		SelectionReason: sel.Reason,
	}
	log := logger.WithFields(u.logger, logger.MatchFields(string(mode), string(sel.Strategy), logger.RequestIDFromContext(ctx))...)

	key := MatchCacheKey(p.candidate, p.job, sel.Strategy)
	if u.cache != nil {
		var cached matching.Result
		hit, err := u.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.Debug("result cache read failed", zap.Error(err))
		}
		if hit {
			out.Result = cached
			out.Used = sel.Strategy
			out.Cached = true
			out.Duration = u.now().Sub(start)
			u.record(ctx, mode, out, true)
			return out, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	// The shared computation outlives any single caller; the guard bounds every attempt.
	ch := u.flight.DoChan(key, func() (any, error) {
		sctx := context.WithoutCancel(ctx)
		outcome, err := u.guard.Execute(sctx, sel.Strategy, func(ctx context.Context, s matching.Strategy) (matching.Result, error) {
			return u.catalog.Run(ctx, s, p.candidate, p.job)
		})
		if err == nil && u.cache != nil && outcome.Used == sel.Strategy {
			if err := u.cache.SetJSON(sctx, key, outcome.Result, u.cacheTTL); err != nil {
				log.Debug("result cache write failed", zap.Error(err))
			}
		}
		return outcome, err
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case res = <-ch:
	}

	outcome, _ := res.Val.(guard.Outcome)
	out.Attempts = outcome.Attempts
	out.Duration = u.now().Sub(start)

	if res.Err != nil {
		u.record(ctx, mode, out, false)
		log.Error("every strategy failed", zap.Error(res.Err))
		return out, res.Err
	}

	out.Result = outcome.Result
	out.Used = outcome.Used
	if outcome.FellBack() {
		log.Info("match served by fallback", zap.String("used", string(outcome.Used)))
	}

	u.record(ctx, mode, out, true)
	return out, nil
}

func (u *Matching) record(ctx context.Context, mode analytics.Mode, out MatchOutcome, success bool) {
	subject, target := out.CandidateID, out.JobID
	if mode == analytics.ModeReverse {
		subject, target = out.JobID, out.CandidateID
	}

	failed := 0
	for _, a := range out.Attempts {
		if a.Status == guard.AttemptFailed || a.Status == guard.AttemptTimedOut {
			failed++
		}
	}
	attempts := len(out.Attempts)
	if out.Cached {
		attempts = 0
	}

	u.recorder.Record(ctx, analytics.Record{
		Mode:           mode,
		SubjectID:      subject,
		TargetID:       target,
		Requested:      out.Requested,
		Selected:       out.Selected,
		Used:           out.Used,
		Aggregate:      out.Result.Aggregate,
		Bonus:          out.Result.BonusTotal,
		Success:        success,
		FellBack:       success && out.Used != out.Selected,
		Attempts:       attempts,
		FailedAttempts: failed,
		Latency:        out.Duration,
	})
}

func (u *Matching) Summary(ctx context.Context, days int) (analytics.Summary, error) {
	return u.recorder.Summary(ctx, days)
}

func (u *Matching) StrategyHealth(ctx context.Context) ([]guard.Health, error) {
	return u.guard.Health(ctx)
}

// InvalidateCache drops every cached match result.
func (u *Matching) InvalidateCache(ctx context.Context) (int, error) {
	if u.cache == nil {
		return 0, nil
	}
	return u.cache.DeleteByPattern(ctx, MatchCachePattern)
}
