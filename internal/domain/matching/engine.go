package matching

import "fmt"

// Profile is the scoring configuration a strategy runs the engine with.
type Profile struct {
	Strategy Strategy
	Weights  Weights

	// QuestionnaireBonusFactor scales the points of rules fired by questionnaire-sourced traits.
	QuestionnaireBonusFactor float64
}

type Engine struct {
	compensation CompensationPolicy
	skills       SkillPolicy
	bonus        *BonusEngine
}

type EngineConfig struct {
	Compensation CompensationPolicy
	Skills       SkillPolicy
	Bonus        *BonusEngine
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Compensation.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Skills.Validate(); err != nil {
		return nil, err
	}
	bonus := cfg.Bonus
	if bonus == nil {
		b, err := NewBonusEngine(DefaultRules(), DefaultBonusCap)
		if err != nil {
			return nil, err
		}
		bonus = b
	}
	return &Engine{
		compensation: cfg.Compensation,
		skills:       cfg.Skills,
		bonus:        bonus,
	}, nil
}

func DefaultEngine() *Engine {
	e, err := NewEngine(EngineConfig{
		Compensation: DefaultCompensationPolicy(),
		Skills:       DefaultSkillPolicy(),
	})
	if err != nil {
		panic(fmt.Sprintf("matching: default engine: %v", err))
	}
	return e
}

func (e *Engine) Criteria(c Candidate, j Job) map[Criterion]CriterionScore {
	return map[Criterion]CriterionScore{
		CriterionLocation:     ScoreLocation(c, j),
		CriterionExperience:   ScoreExperience(c, j),
		CriterionCompensation: e.compensation.Score(c, j),
		CriterionSkills:       e.skills.Score(c, j),
	}
}

// Evaluate scores one pair. technical, when non-nil, replaces the keyword ratio of the technical skills.
func (e *Engine) Evaluate(c Candidate, j Job, p Profile, technical *float64) Result {
	criteria := e.Criteria(c, j)
	if technical != nil {
		criteria[CriterionSkills] = e.skills.ScoreWithTechnical(c, j, *technical)
	}

	ct := CandidateTraitsOf(c)
	jt := JobTraitsOf(j)
	bonus := e.bonus.Evaluate(ct, jt, p.QuestionnaireBonusFactor)

	res := Result{
		Aggregate:  Aggregate(criteria, p.Weights, bonus.Total),
		Criteria:   criteria,
		BonusTotal: bonus.Total,
		Bonuses:    bonus.Entries,
		Strategy:   p.Strategy,
		Weights:    p.Weights,
	}
	res.Quality = QualityOf(res.Aggregate)
	describe(&res, c, j, ct, jt)
	return res
}
