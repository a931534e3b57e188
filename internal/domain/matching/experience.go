package matching

import "fmt"

func ScoreExperience(c Candidate, j Job) CriterionScore {
	if c.YearsExperience == nil || !validMetric(*c.YearsExperience) {
		return neutral(CriterionExperience, "années d'expérience du candidat inconnues")
	}
	years := *c.YearsExperience

	if j.RequiredYears <= 0 {
		return CriterionScore{
			Criterion:  CriterionExperience,
			Percentage: 90,
			Details:    []string{fmt.Sprintf("%s, aucune expérience minimale exigée", yearsLabel(years))},
		}
	}

	ratio := years / j.RequiredYears
	score, label := experienceBand(ratio)

	return CriterionScore{
		Criterion:  CriterionExperience,
		Percentage: score,
		Details: []string{
			fmt.Sprintf("%s pour %s requis (ratio %.2f)", yearsLabel(years), yearsLabel(j.RequiredYears), ratio),
			label,
		},
	}
}

func experienceBand(ratio float64) (int, string) {
	switch {
	case ratio > 2.0:
		return 75, "surqualifié, risque d'ennui"
	case ratio > 1.5:
		return 90, "légèrement surqualifié"
	case ratio >= 1.0:
		return 95, "expérience idéale"
	case ratio >= 0.8:
		return 80, "expérience proche du niveau demandé"
	case ratio >= 0.5:
		return 70, "sous-qualifié avec potentiel"
	default:
		return 40, "expérience insuffisante"
	}
}

func yearsLabel(v float64) string {
	if v == float64(int(v)) {
		if v <= 1 {
			return fmt.Sprintf("%d an", int(v))
		}
		return fmt.Sprintf("%d ans", int(v))
	}
	return fmt.Sprintf("%.1f ans", v)
}
