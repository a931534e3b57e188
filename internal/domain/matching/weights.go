package matching

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidWeights = errors.New("criterion weights must be non-negative and sum to 1.0")

const weightTolerance = 0.01

type Weights struct {
	Location     float64
	Experience   float64
	Compensation float64
	Skills       float64
}

func DefaultWeights() Weights {
	return Weights{Location: 0.25, Experience: 0.25, Compensation: 0.20, Skills: 0.30}
}

func (w Weights) Of(c Criterion) float64 {
	switch c {
	case CriterionLocation:
		return w.Location
	case CriterionExperience:
		return w.Experience
	case CriterionCompensation:
		return w.Compensation
	case CriterionSkills:
		return w.Skills
	default:
		return 0
	}
}

func (w Weights) Sum() float64 {
	return w.Location + w.Experience + w.Compensation + w.Skills
}

func (w Weights) Validate() error {
	for _, c := range Criteria {
		v := w.Of(c)
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight is %v", ErrInvalidWeights, c, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: got %.3f", ErrInvalidWeights, sum)
	}
	return nil
}

// Aggregate computes round(clamp(sum(weight * criterion) + bonus, 0, 100)).
// Criteria missing from the map contribute nothing.
func Aggregate(criteria map[Criterion]CriterionScore, w Weights, bonus int) int {
	total := float64(bonus)
	for _, c := range Criteria {
		cs, ok := criteria[c]
		if !ok {
			continue
		}
		total += w.Of(c) * float64(cs.Percentage)
	}
	return int(math.Round(clampFloat(total, minPercentage, maxPercentage)))
}
