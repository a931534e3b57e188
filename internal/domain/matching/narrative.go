package matching

import (
	"fmt"
	"strings"
)

func describe(res *Result, c Candidate, j Job, ct CandidateTraits, jt JobTraits) {
	res.Narrative = make(map[Criterion]string, len(Criteria))
	res.Risks = make([]string, 0, 2)
	res.Opportunities = make([]string, 0, 2)

	for _, crit := range Criteria {
		cs, ok := res.Criteria[crit]
		if !ok {
			continue
		}
		res.Narrative[crit] = axisText(cs)

		switch {
		case cs.InsufficientData:
		case cs.Percentage < 50:
			res.Risks = append(res.Risks, axisRisk(crit, cs))
		case cs.Percentage >= 90:
			res.Opportunities = append(res.Opportunities, axisStrength(crit))
		}
	}

	if cs, ok := res.Criteria[CriterionExperience]; ok && !cs.InsufficientData && j.RequiredYears > 0 && c.YearsExperience != nil {
		if *c.YearsExperience/j.RequiredYears > 2 {
			res.Risks = append(res.Risks, "risque de désengagement sur un poste sous-dimensionné")
		}
	}
	if len(j.PreferredSkills) > 0 {
		pref := computeOverlap(c.Skills, j.PreferredSkills, 0)
		if len(pref.matched) > 0 {
			res.Opportunities = append(res.Opportunities, "maîtrise de compétences souhaitées: "+strings.Join(pref.matched, ", "))
		}
	}
	if jt.Has(JobTraitGrowth) && !ct.Has(TraitAmbitious) {
		res.Opportunities = append(res.Opportunities, "le poste offre des perspectives d'évolution")
	}
	for _, b := range res.Bonuses {
		res.Opportunities = append(res.Opportunities, b.Reason)
	}
}

func axisText(cs CriterionScore) string {
	label := axisLabel(cs.Criterion)
	if cs.InsufficientData {
		return fmt.Sprintf("%s: données insuffisantes, score neutre de %d%%.", label, cs.Percentage)
	}
	return fmt.Sprintf("%s: %d%% (%s).", label, cs.Percentage, strings.Join(cs.Details, ", "))
}

func axisLabel(c Criterion) string {
	switch c {
	case CriterionLocation:
		return "Localisation"
	case CriterionExperience:
		return "Expérience"
	case CriterionCompensation:
		return "Rémunération"
	case CriterionSkills:
		return "Compétences"
	default:
		return string(c)
	}
}

func axisRisk(c Criterion, cs CriterionScore) string {
	switch c {
	case CriterionLocation:
		return "trajet domicile-travail important"
	case CriterionExperience:
		return "expérience en dessous des attentes du poste"
	case CriterionCompensation:
		return "prétentions salariales au-dessus du budget"
	case CriterionSkills:
		return "compétences requises insuffisamment couvertes"
	default:
		return fmt.Sprintf("%s faible (%d%%)", axisLabel(c), cs.Percentage)
	}
}

func axisStrength(c Criterion) string {
	switch c {
	case CriterionLocation:
		return "localisation très favorable"
	case CriterionExperience:
		return "expérience en adéquation avec le poste"
	case CriterionCompensation:
		return "prétentions salariales compatibles avec le budget"
	default:
		return "compétences requises bien couvertes"
	}
}
