package matching

import (
	"errors"
	"fmt"
	"strings"
)

type Strategy string

const (
	StrategyAuto            Strategy = "auto"
	StrategyAdvancedProfile Strategy = "advanced-profile"
	StrategyGeoPriority     Strategy = "geo-priority"
	StrategySeniorHeuristic Strategy = "senior-heuristic"
	StrategySemantic        Strategy = "semantic"
	StrategyFallback        Strategy = "fallback"
)

// Strategies lists every runnable strategy, the terminal fallback last.
var Strategies = []Strategy{
	StrategyAdvancedProfile,
	StrategyGeoPriority,
	StrategySeniorHeuristic,
	StrategySemantic,
	StrategyFallback,
}

var ErrUnknownStrategy = errors.New("unknown strategy")

func ParseStrategy(s string) (Strategy, error) {
	v := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return StrategyAuto, nil
	}
	if v == StrategyAuto {
		return v, nil
	}
	for _, known := range Strategies {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

type Selection struct {
	Strategy Strategy
	Reason   string
}

type SelectorPolicy struct {
	MinSkillsForAdvanced int
	SeniorYears          float64
	SemanticMinWords     int
	LongCommuteScore     int
}

func DefaultSelectorPolicy() SelectorPolicy {
	return SelectorPolicy{
		MinSkillsForAdvanced: 5,
		SeniorYears:          7,
		SemanticMinWords:     40,
		LongCommuteScore:     50,
	}
}

type selectorRule struct {
	strategy Strategy
	reason   string
	applies  func(p SelectorPolicy, c Candidate, j Job) bool
}

// Evaluated top to bottom, first match wins.
var selectorTable = []selectorRule{
	{
		strategy: StrategyAdvancedProfile,
		reason:   "questionnaire complet et profil riche en compétences",
		applies: func(p SelectorPolicy, c Candidate, _ Job) bool {
			return c.QuestionnaireComplete() && len(normalizeList(c.Skills)) >= p.MinSkillsForAdvanced
		},
	},
	{
		strategy: StrategyGeoPriority,
		reason:   "contrainte géographique forte",
		applies: func(p SelectorPolicy, c Candidate, j Job) bool {
			return hasGeoConstraint(p, c, j)
		},
	},
	{
		strategy: StrategySeniorHeuristic,
		reason:   "profil senior avec questionnaire partiel",
		applies: func(p SelectorPolicy, c Candidate, _ Job) bool {
			return c.YearsExperience != nil && *c.YearsExperience >= p.SeniorYears && c.QuestionnairePartial()
		},
	},
	{
		strategy: StrategySemantic,
		reason:   "textes libres nécessitant une comparaison sémantique",
		applies: func(p SelectorPolicy, c Candidate, j Job) bool {
			return wordCount(c.Summary) >= p.SemanticMinWords || wordCount(j.Description) >= p.SemanticMinWords
		},
	},
}

func hasGeoConstraint(p SelectorPolicy, c Candidate, j Job) bool {
	if j.Remote {
		return false
	}
	if j.StrictOnSite || c.MaxCommuteMinutes != nil {
		return true
	}
	if c.Mobility {
		return false
	}
	score, ok := baseLocationScore(c, j)
	return ok && score < p.LongCommuteScore
}

func (p SelectorPolicy) Select(c Candidate, j Job) Selection {
	for _, r := range selectorTable {
		if r.applies(p, c, j) {
			return Selection{Strategy: r.strategy, Reason: r.reason}
		}
	}
	return Selection{Strategy: StrategyAdvancedProfile, Reason: "stratégie par défaut"}
}

// Resolve honours an explicit strategy and runs the decision table for auto.
func (p SelectorPolicy) Resolve(requested Strategy, c Candidate, j Job) Selection {
	if requested != "" && requested != StrategyAuto {
		return Selection{Strategy: requested, Reason: "algorithme demandé explicitement"}
	}
	return p.Select(c, j)
}
