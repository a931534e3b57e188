package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStrategyUnavailable = errors.New("strategy not configured")
	ErrSimilarity          = errors.New("semantic similarity failed")
)

// SimilarityProvider returns a similarity in [0,1] between two free texts.
type SimilarityProvider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Scorer runs one strategy on a pair.
type Scorer interface {
	Score(ctx context.Context, c Candidate, j Job) (Result, error)
}

type profileScorer struct {
	engine  *Engine
	profile Profile
}

func (s profileScorer) Score(ctx context.Context, c Candidate, j Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return s.engine.Evaluate(c, j, s.profile, nil), nil
}

type semanticScorer struct {
	engine     *Engine
	profile    Profile
	similarity SimilarityProvider
}

func (s semanticScorer) Score(ctx context.Context, c Candidate, j Job) (Result, error) {
	if s.similarity == nil {
		return Result{}, fmt.Errorf("%w: no provider", ErrSimilarity)
	}
	sim, err := s.similarity.Similarity(ctx, CandidateText(c), JobText(j))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSimilarity, err)
	}
	return s.engine.Evaluate(c, j, s.profile, &sim), nil
}

func CandidateText(c Candidate) string {
	parts := make([]string, 0, 4)
	parts = append(parts, c.Summary)
	parts = append(parts, strings.Join(c.Skills, " "))
	parts = append(parts, strings.Join(c.Tools, " "))
	parts = append(parts, strings.Join(c.Languages, " "))
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func JobText(j Job) string {
	parts := make([]string, 0, 5)
	parts = append(parts, j.Title)
	parts = append(parts, j.Description)
	parts = append(parts, strings.Join(j.RequiredSkills, " "))
	parts = append(parts, strings.Join(j.RequiredTools, " "))
	parts = append(parts, strings.Join(j.RequiredLanguages, " "))
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// MinGeoLocationWeight is the lowest location weight geo-priority may run with.
const MinGeoLocationWeight = 0.25

func DefaultProfiles() map[Strategy]Profile {
	return map[Strategy]Profile{
		StrategyAdvancedProfile: {
			Strategy: StrategyAdvancedProfile,
			Weights:  Weights{Location: 0.20, Experience: 0.25, Compensation: 0.20, Skills: 0.35},
		},
		StrategyGeoPriority: {
			Strategy: StrategyGeoPriority,
			Weights:  Weights{Location: 0.35, Experience: 0.20, Compensation: 0.15, Skills: 0.30},
		},
		StrategySeniorHeuristic: {
			Strategy:                 StrategySeniorHeuristic,
			Weights:                  Weights{Location: 0.15, Experience: 0.35, Compensation: 0.20, Skills: 0.30},
			QuestionnaireBonusFactor: 0.5,
		},
		StrategySemantic: {
			Strategy: StrategySemantic,
			Weights:  DefaultWeights(),
		},
	}
}

// Catalog holds the runnable strategies.
type Catalog struct {
	scorers map[Strategy]Scorer
}

func NewCatalog(engine *Engine, profiles map[Strategy]Profile, similarity SimilarityProvider) (*Catalog, error) {
	if engine == nil {
		engine = DefaultEngine()
	}
	if similarity == nil {
		similarity = LexicalSimilarity{}
	}
	scorers := make(map[Strategy]Scorer, len(profiles)+1)
	for s, p := range profiles {
		if s == StrategyFallback || s == StrategyAuto {
			return nil, fmt.Errorf("%w: %s cannot be weighted", ErrUnknownStrategy, s)
		}
		if err := p.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s, err)
		}
		p.Strategy = s
		if s == StrategySemantic {
			scorers[s] = semanticScorer{engine: engine, profile: p, similarity: similarity}
			continue
		}
		scorers[s] = profileScorer{engine: engine, profile: p}
	}
	scorers[StrategyFallback] = KeywordScorer{}
	return &Catalog{scorers: scorers}, nil
}

// Register replaces the scorer of one strategy.
func (c *Catalog) Register(s Strategy, scorer Scorer) {
	c.scorers[s] = scorer
}

func (c *Catalog) Has(s Strategy) bool {
	_, ok := c.scorers[s]
	return ok
}

func (c *Catalog) Run(ctx context.Context, s Strategy, cand Candidate, job Job) (Result, error) {
	scorer, ok := c.scorers[s]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrStrategyUnavailable, s)
	}
	return scorer.Score(ctx, cand, job)
}
