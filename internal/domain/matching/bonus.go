package matching

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNegativeBonusCap = errors.New("bonus cap must not be negative")
	ErrInvalidRule      = errors.New("invalid bonus rule")
)

const DefaultBonusCap = 15

const (
	RuleAmbitionGrowth       = "ambition-growth"
	RuleStabilityLongTerm    = "stability-long-term"
	RuleCreativityInnovation = "creativity-innovation"
	RuleLeadershipManagement = "leadership-management"
	RuleSpecialistTechnical  = "specialist-technical"
	RuleGeneralistAgile      = "generalist-agile"
)

// Rule fires when the candidate carries CandidateTrait and the job carries JobTrait.
type Rule struct {
	ID             string
	CandidateTrait Trait
	JobTrait       JobTrait
	Points         int
	Reason         string
}

// Match reports whether the rule fires and which source the candidate trait came from.
func (r Rule) Match(ct CandidateTraits, jt JobTraits) (bool, TraitSource) {
	src, ok := ct[r.CandidateTrait]
	if !ok || !jt.Has(r.JobTrait) {
		return false, ""
	}
	return true, src
}

func DefaultRules() []Rule {
	return []Rule{
		{
			ID:             RuleAmbitionGrowth,
			CandidateTrait: TraitAmbitious,
			JobTrait:       JobTraitGrowth,
			Points:         10,
			Reason:         "profil ambitieux (évolution rapide) et poste avec perspectives d'évolution",
		},
		{
			ID:             RuleStabilityLongTerm,
			CandidateTrait: TraitStabilitySeeking,
			JobTrait:       JobTraitLongTerm,
			Points:         8,
			Reason:         "recherche de stabilité et poste en CDI",
		},
		{
			ID:             RuleCreativityInnovation,
			CandidateTrait: TraitCreative,
			JobTrait:       JobTraitInnovation,
			Points:         12,
			Reason:         "créativité du candidat et culture d'innovation de l'entreprise",
		},
		{
			ID:             RuleLeadershipManagement,
			CandidateTrait: TraitLeadership,
			JobTrait:       JobTraitPeopleManagement,
			Points:         15,
			Reason:         "leadership et poste avec management d'équipe",
		},
		{
			ID:             RuleSpecialistTechnical,
			CandidateTrait: TraitSpecialist,
			JobTrait:       JobTraitHighlyTechnical,
			Points:         10,
			Reason:         "expertise technique pointue et poste très technique",
		},
		{
			ID:             RuleGeneralistAgile,
			CandidateTrait: TraitGeneralist,
			JobTrait:       JobTraitAgile,
			Points:         8,
			Reason:         "polyvalence et environnement agile en évolution rapide",
		},
	}
}

type BonusEngine struct {
	rules []Rule
	cap   int
}

func NewBonusEngine(rules []Rule, cap int) (*BonusEngine, error) {
	if cap < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeBonusCap, cap)
	}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidRule)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, r.ID)
		}
		if r.Points < 0 {
			return nil, fmt.Errorf("%w: %s has negative points", ErrInvalidRule, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &BonusEngine{rules: out, cap: cap}, nil
}

func (e *BonusEngine) Cap() int {
	return e.cap
}

func (e *BonusEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

type BonusOutcome struct {
	Entries []BonusEntry
	Raw     int
	Total   int
}

// Evaluate fires every matching rule in catalog order and caps the sum.
// questionnaireFactor scales rules fired by questionnaire-sourced traits; 0 is treated as 1.
func (e *BonusEngine) Evaluate(ct CandidateTraits, jt JobTraits, questionnaireFactor float64) BonusOutcome {
	if questionnaireFactor <= 0 {
		questionnaireFactor = 1
	}
	out := BonusOutcome{Entries: make([]BonusEntry, 0, 2)}
	for _, r := range e.rules {
		ok, src := r.Match(ct, jt)
		if !ok {
			continue
		}
		points := r.Points
		if src == SourceQuestionnaire && questionnaireFactor != 1 {
			points = int(math.Round(float64(points) * questionnaireFactor))
		}
		out.Entries = append(out.Entries, BonusEntry{RuleID: r.ID, Points: points, Reason: r.Reason})
		out.Raw += points
	}
	out.Total = out.Raw
	if out.Total > e.cap {
		out.Total = e.cap
	}
	return out
}
