package matching

import (
	"errors"
	"fmt"
)

var ErrInvalidCompensationPolicy = errors.New("invalid compensation policy")

type CompensationPolicy struct {
	BelowRangeScore  int
	WithinRangeScore int
	NegotiableMargin float64
	NegotiableScore  int
	StretchMargin    float64
	StretchScore     int
	BeyondScore      int
}

func DefaultCompensationPolicy() CompensationPolicy {
	return CompensationPolicy{
		BelowRangeScore:  98,
		WithinRangeScore: 95,
		NegotiableMargin: 0.10,
		NegotiableScore:  80,
		StretchMargin:    0.20,
		StretchScore:     60,
		BeyondScore:      30,
	}
}

func (p CompensationPolicy) Validate() error {
	for _, s := range []int{p.BelowRangeScore, p.WithinRangeScore, p.NegotiableScore, p.StretchScore, p.BeyondScore} {
		if s < minPercentage || s > maxPercentage {
			return fmt.Errorf("%w: score %d outside [0,100]", ErrInvalidCompensationPolicy, s)
		}
	}
	if p.NegotiableMargin < 0 || p.StretchMargin < p.NegotiableMargin {
		return fmt.Errorf("%w: margins must satisfy 0 <= negotiable <= stretch", ErrInvalidCompensationPolicy)
	}
	return nil
}

func (p CompensationPolicy) Score(c Candidate, j Job) CriterionScore {
	if c.DesiredSalary == nil || !validMetric(*c.DesiredSalary) || *c.DesiredSalary == 0 {
		return neutral(CriterionCompensation, "prétentions salariales non renseignées")
	}
	minS, maxS := j.SalaryMin, j.SalaryMax
	if minS <= 0 && maxS <= 0 {
		return neutral(CriterionCompensation, "fourchette salariale du poste non renseignée")
	}
	if maxS <= 0 {
		maxS = minS
	}
	if minS <= 0 || minS > maxS {
		minS = maxS
	}
	want := *c.DesiredSalary

	var score int
	var label string
	switch {
	case want < minS:
		score, label = p.BelowRangeScore, "sous le budget"
	case want <= maxS:
		score, label = p.WithinRangeScore, "dans la fourchette"
	case want <= maxS*(1+p.NegotiableMargin):
		score, label = p.NegotiableScore, "négociable"
	case want <= maxS*(1+p.StretchMargin):
		score, label = p.StretchScore, "au-dessus du budget"
	default:
		score, label = p.BeyondScore, "hors budget"
	}

	return CriterionScore{
		Criterion:  CriterionCompensation,
		Percentage: clampInt(score, minPercentage, maxPercentage),
		Details: []string{
			fmt.Sprintf("souhaité %.0f, fourchette %.0f-%.0f", want, minS, maxS),
			label,
		},
	}
}

func ScoreCompensation(c Candidate, j Job) CriterionScore {
	return DefaultCompensationPolicy().Score(c, j)
}
