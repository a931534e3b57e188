package matching

import "math"

type Criterion string

const (
	CriterionLocation     Criterion = "localisation"
	CriterionExperience   Criterion = "experience"
	CriterionCompensation Criterion = "salaire"
	CriterionSkills       Criterion = "competences"
)

// Criteria lists the scoring axes in display order.
var Criteria = []Criterion{
	CriterionLocation,
	CriterionExperience,
	CriterionCompensation,
	CriterionSkills,
}

const (
	NeutralScore       = 50
	detailInsufficient = "données insuffisantes"
	maxPercentage      = 100
	minPercentage      = 0
)

type CriterionScore struct {
	Criterion        Criterion
	Percentage       int
	Details          []string
	InsufficientData bool
}

type BonusEntry struct {
	RuleID string
	Points int
	Reason string
}

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "bon"
	QualityAverage   Quality = "moyen"
	QualityLow       Quality = "faible"
)

func QualityOf(score int) Quality {
	switch {
	case score >= 80:
		return QualityExcellent
	case score >= 60:
		return QualityGood
	case score >= 40:
		return QualityAverage
	default:
		return QualityLow
	}
}

type Result struct {
	Aggregate     int
	Quality       Quality
	Criteria      map[Criterion]CriterionScore
	BonusTotal    int
	Bonuses       []BonusEntry
	Narrative     map[Criterion]string
	Risks         []string
	Opportunities []string
	Strategy      Strategy
	Weights       Weights
}

func neutral(c Criterion, reason string) CriterionScore {
	details := []string{detailInsufficient}
	if reason != "" {
		details = append(details, reason)
	}
	return CriterionScore{
		Criterion:        c,
		Percentage:       NeutralScore,
		Details:          details,
		InsufficientData: true,
	}
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func percent(v float64) int {
	return clampInt(int(math.Round(v)), minPercentage, maxPercentage)
}
