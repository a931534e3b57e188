package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"match-engine/internal/domain/matching"
	"match-engine/internal/guard"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidTuning = errors.New("invalid tuning")

// Tuning holds the scoring knobs read from the TOML tuning file.
type Tuning struct {
	Weights      map[string]WeightsTuning `toml:"weights"`
	Compensation CompensationTuning       `toml:"compensation"`
	Skills       SkillsTuning             `toml:"skills"`
	Bonus        BonusTuning              `toml:"bonus"`
	Selector     SelectorTuning           `toml:"selector"`
	Breaker      BreakerTuning            `toml:"breaker"`
	Fallback     FallbackTuning           `toml:"fallback"`
	Analytics    AnalyticsTuning          `toml:"analytics"`
	Cache        CacheTuning              `toml:"cache"`
	Batch        BatchTuning              `toml:"batch"`
}

type WeightsTuning struct {
	Location                 float64 `toml:"location"`
	Experience               float64 `toml:"experience"`
	Compensation             float64 `toml:"compensation"`
	Skills                   float64 `toml:"skills"`
	QuestionnaireBonusFactor float64 `toml:"questionnaire_bonus_factor"`
}

type CompensationTuning struct {
	BelowRangeScore  int     `toml:"below_range_score"`
	WithinRangeScore int     `toml:"within_range_score"`
	NegotiableMargin float64 `toml:"negotiable_margin"`
	NegotiableScore  int     `toml:"negotiable_score"`
	StretchMargin    float64 `toml:"stretch_margin"`
	StretchScore     int     `toml:"stretch_score"`
	BeyondScore      int     `toml:"beyond_score"`
}

type SkillsTuning struct {
	TechnicalWeight float64 `toml:"technical_weight"`
	LanguageWeight  float64 `toml:"language_weight"`
	ToolWeight      float64 `toml:"tool_weight"`
	NearMatchCredit float64 `toml:"near_match_credit"`
}

type BonusTuning struct {
	Cap      int            `toml:"cap"`
	Disabled []string       `toml:"disabled"`
	Points   map[string]int `toml:"points"`
}

type SelectorTuning struct {
	MinSkillsForAdvanced int     `toml:"min_skills_for_advanced"`
	SeniorYears          float64 `toml:"senior_years"`
	SemanticMinWords     int     `toml:"semantic_min_words"`
	LongCommuteScore     int     `toml:"long_commute_score"`
}

type BreakerTuning struct {
	FailureThreshold int `toml:"failure_threshold"`
	CooldownSeconds  int `toml:"cooldown_seconds"`
	AttemptTimeoutMs int `toml:"attempt_timeout_ms"`
}

type FallbackTuning struct {
	Chain []string `toml:"chain"`
}

type AnalyticsTuning struct {
	RetentionDays        int `toml:"retention_days"`
	PruneIntervalMinutes int `toml:"prune_interval_minutes"`
}

type CacheTuning struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

type BatchTuning struct {
	Parallelism int `toml:"parallelism"`
	MaxLimit    int `toml:"max_limit"`
}

func DefaultTuning() Tuning {
	profiles := matching.DefaultProfiles()
	weights := make(map[string]WeightsTuning, len(profiles))
	for s, p := range profiles {
		weights[string(s)] = WeightsTuning{
			Location:                 p.Weights.Location,
			Experience:               p.Weights.Experience,
			Compensation:             p.Weights.Compensation,
			Skills:                   p.Weights.Skills,
			QuestionnaireBonusFactor: p.QuestionnaireBonusFactor,
		}
	}

	comp := matching.DefaultCompensationPolicy()
	skills := matching.DefaultSkillPolicy()
	sel := matching.DefaultSelectorPolicy()
	breaker := guard.DefaultPolicy()

	chain := make([]string, 0, 2)
	for _, s := range guard.DefaultChain() {
		chain = append(chain, string(s))
	}

	return Tuning{
		Weights: weights,
		Compensation: CompensationTuning{
			BelowRangeScore:  comp.BelowRangeScore,
			WithinRangeScore: comp.WithinRangeScore,
			NegotiableMargin: comp.NegotiableMargin,
			NegotiableScore:  comp.NegotiableScore,
			StretchMargin:    comp.StretchMargin,
			StretchScore:     comp.StretchScore,
			BeyondScore:      comp.BeyondScore,
		},
		Skills: SkillsTuning{
			TechnicalWeight: skills.TechnicalWeight,
			LanguageWeight:  skills.LanguageWeight,
			ToolWeight:      skills.ToolWeight,
			NearMatchCredit: skills.NearMatchCredit,
		},
		Bonus: BonusTuning{Cap: matching.DefaultBonusCap},
		Selector: SelectorTuning{
			MinSkillsForAdvanced: sel.MinSkillsForAdvanced,
			SeniorYears:          sel.SeniorYears,
			SemanticMinWords:     sel.SemanticMinWords,
			LongCommuteScore:     sel.LongCommuteScore,
		},
		Breaker: BreakerTuning{
			FailureThreshold: breaker.FailureThreshold,
			CooldownSeconds:  int(breaker.Cooldown / time.Second),
			AttemptTimeoutMs: int(guard.DefaultAttemptTimeout / time.Millisecond),
		},
		Fallback:  FallbackTuning{Chain: chain},
		Analytics: AnalyticsTuning{RetentionDays: 90, PruneIntervalMinutes: 60},
		Cache:     CacheTuning{TTLSeconds: 600},
		Batch:     BatchTuning{Parallelism: 8, MaxLimit: 100},
	}
}

// LoadTuning overlays the TOML file at path on DefaultTuning. An empty path yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, t.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Tuning{}, fmt.Errorf("tuning file not found: %s", path)
		}
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}

	if err := toml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidTuning, path, err)
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error

	names := make([]string, 0, len(t.Weights))
	for name := range t.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s, err := matching.ParseStrategy(name)
		if err != nil || s == matching.StrategyAuto || s == matching.StrategyFallback {
			errs = append(errs, fmt.Errorf("weights.%s: not a weighted strategy", name))
			continue
		}
		w := t.Weights[name]
		if err := w.toWeights().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("weights.%s: %w", name, err))
		}
		if s == matching.StrategyGeoPriority && w.Location < matching.MinGeoLocationWeight {
			errs = append(errs, fmt.Errorf("weights.%s.location must be at least %.2f, got %.2f", name, matching.MinGeoLocationWeight, w.Location))
		}
		if w.QuestionnaireBonusFactor < 0 {
			errs = append(errs, fmt.Errorf("weights.%s.questionnaire_bonus_factor must not be negative", name))
		}
	}

	if err := t.CompensationPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := t.SkillPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := t.BonusEngine(); err != nil {
		errs = append(errs, err)
	}
	known := make(map[string]bool, len(matching.DefaultRules()))
	for _, r := range matching.DefaultRules() {
		known[r.ID] = true
	}
	for _, id := range t.Bonus.Disabled {
		if !known[id] {
			errs = append(errs, fmt.Errorf("bonus.disabled: unknown rule %q", id))
		}
	}
	for id := range t.Bonus.Points {
		if !known[id] {
			errs = append(errs, fmt.Errorf("bonus.points: unknown rule %q", id))
		}
	}

	if t.Selector.MinSkillsForAdvanced < 0 || t.Selector.SemanticMinWords < 0 || t.Selector.SeniorYears < 0 {
		errs = append(errs, errors.New("selector thresholds must not be negative"))
	}

	if t.Breaker.FailureThreshold < 1 {
		errs = append(errs, errors.New("breaker.failure_threshold must be at least 1"))
	}
	if t.Breaker.CooldownSeconds < 0 {
		errs = append(errs, errors.New("breaker.cooldown_seconds must not be negative"))
	}
	if t.Breaker.AttemptTimeoutMs < 1 {
		errs = append(errs, errors.New("breaker.attempt_timeout_ms must be at least 1"))
	}

	if _, err := t.FallbackChain(); err != nil {
		errs = append(errs, err)
	}

	if t.Analytics.RetentionDays < 0 {
		errs = append(errs, errors.New("analytics.retention_days must not be negative"))
	}
	if t.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("cache.ttl_seconds must not be negative"))
	}
	if t.Batch.Parallelism < 1 {
		errs = append(errs, errors.New("batch.parallelism must be at least 1"))
	}
	if t.Batch.MaxLimit < 1 {
		errs = append(errs, errors.New("batch.max_limit must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTuning, errors.Join(errs...))
	}
	return nil
}

func (w WeightsTuning) toWeights() matching.Weights {
	return matching.Weights{
		Location:     w.Location,
		Experience:   w.Experience,
		Compensation: w.Compensation,
		Skills:       w.Skills,
	}
}

func (t Tuning) Profiles() map[matching.Strategy]matching.Profile {
	out := make(map[matching.Strategy]matching.Profile, len(t.Weights))
	for name, w := range t.Weights {
		s := matching.Strategy(name)
		out[s] = matching.Profile{
			Strategy:                 s,
			Weights:                  w.toWeights(),
			QuestionnaireBonusFactor: w.QuestionnaireBonusFactor,
		}
	}
	return out
}

func (t Tuning) CompensationPolicy() matching.CompensationPolicy {
	c := t.Compensation
	return matching.CompensationPolicy{
		BelowRangeScore:  c.BelowRangeScore,
		WithinRangeScore: c.WithinRangeScore,
		NegotiableMargin: c.NegotiableMargin,
		NegotiableScore:  c.NegotiableScore,
		StretchMargin:    c.StretchMargin,
		StretchScore:     c.StretchScore,
		BeyondScore:      c.BeyondScore,
	}
}

func (t Tuning) SkillPolicy() matching.SkillPolicy {
	return matching.SkillPolicy{
		TechnicalWeight: t.Skills.TechnicalWeight,
		LanguageWeight:  t.Skills.LanguageWeight,
		ToolWeight:      t.Skills.ToolWeight,
		NearMatchCredit: t.Skills.NearMatchCredit,
	}
}

func (t Tuning) SelectorPolicy() matching.SelectorPolicy {
	return matching.SelectorPolicy{
		MinSkillsForAdvanced: t.Selector.MinSkillsForAdvanced,
		SeniorYears:          t.Selector.SeniorYears,
		SemanticMinWords:     t.Selector.SemanticMinWords,
		LongCommuteScore:     t.Selector.LongCommuteScore,
	}
}

// BonusEngine builds the rule catalog with disabled rules removed and point overrides applied.
func (t Tuning) BonusEngine() (*matching.BonusEngine, error) {
	disabled := make(map[string]bool, len(t.Bonus.Disabled))
	for _, id := range t.Bonus.Disabled {
		disabled[id] = true
	}
	rules := make([]matching.Rule, 0, len(matching.DefaultRules()))
	for _, r := range matching.DefaultRules() {
		if disabled[r.ID] {
			continue
		}
		if p, ok := t.Bonus.Points[r.ID]; ok {
			r.Points = p
		}
		rules = append(rules, r)
	}
	return matching.NewBonusEngine(rules, t.Bonus.Cap)
}

func (t Tuning) Engine() (*matching.Engine, error) {
	bonus, err := t.BonusEngine()
	if err != nil {
		return nil, err
	}
	return matching.NewEngine(matching.EngineConfig{
		Compensation: t.CompensationPolicy(),
		Skills:       t.SkillPolicy(),
		Bonus:        bonus,
	})
}

func (t Tuning) BreakerPolicy() guard.Policy {
	return guard.Policy{
		FailureThreshold: t.Breaker.FailureThreshold,
		Cooldown:         time.Duration(t.Breaker.CooldownSeconds) * time.Second,
	}
}

func (t Tuning) AttemptTimeout() time.Duration {
	return time.Duration(t.Breaker.AttemptTimeoutMs) * time.Millisecond
}

func (t Tuning) FallbackChain() ([]matching.Strategy, error) {
	out := make([]matching.Strategy, 0, len(t.Fallback.Chain))
	for _, name := range t.Fallback.Chain {
		s, err := matching.ParseStrategy(name)
		if err != nil || s == matching.StrategyAuto {
			return nil, fmt.Errorf("fallback.chain: unknown strategy %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func (t Tuning) Retention() time.Duration {
	return time.Duration(t.Analytics.RetentionDays) * 24 * time.Hour
}

func (t Tuning) PruneInterval() time.Duration {
	if t.Analytics.PruneIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(t.Analytics.PruneIntervalMinutes) * time.Minute
}

func (t Tuning) CacheTTL() time.Duration {
	return time.Duration(t.Cache.TTLSeconds) * time.Second
}
