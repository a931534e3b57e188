package matching

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSkillPolicy = errors.New("invalid skill policy")

type SkillPolicy struct {
	TechnicalWeight float64
	LanguageWeight  float64
	ToolWeight      float64
	NearMatchCredit float64
}

func DefaultSkillPolicy() SkillPolicy {
	return SkillPolicy{
		TechnicalWeight: 0.40,
		LanguageWeight:  0.30,
		ToolWeight:      0.30,
		NearMatchCredit: 0.5,
	}
}

func (p SkillPolicy) Validate() error {
	if p.TechnicalWeight < 0 || p.LanguageWeight < 0 || p.ToolWeight < 0 {
		return fmt.Errorf("%w: negative sub-weight", ErrInvalidSkillPolicy)
	}
	if p.TechnicalWeight+p.LanguageWeight+p.ToolWeight <= 0 {
		return fmt.Errorf("%w: sub-weights sum to zero", ErrInvalidSkillPolicy)
	}
	if p.NearMatchCredit < 0 || p.NearMatchCredit > 1 {
		return fmt.Errorf("%w: near match credit outside [0,1]", ErrInvalidSkillPolicy)
	}
	return nil
}

type overlap struct {
	required []string
	matched  []string
	near     []string
	missing  []string
	credit   float64
}

func (o overlap) ratio() float64 {
	if len(o.required) == 0 {
		return 0
	}
	return o.credit / float64(len(o.required))
}

// computeOverlap credits each required item once: 1 for an exact match, nearCredit for a related one.
func computeOverlap(have, required []string, nearCredit float64) overlap {
	o := overlap{required: normalizeList(required)}
	haveSet := normalizeSet(have)

	for _, r := range o.required {
		if _, ok := haveSet[r]; ok {
			o.matched = append(o.matched, r)
			o.credit++
			continue
		}
		if nearCredit > 0 && hasNear(haveSet, r) {
			o.near = append(o.near, r)
			o.credit += nearCredit
			continue
		}
		o.missing = append(o.missing, r)
	}
	return o
}

func hasNear(have map[string]struct{}, required string) bool {
	for h := range have {
		if nearMatch(h, required) {
			return true
		}
	}
	return false
}

func ScoreSkills(c Candidate, j Job) CriterionScore {
	return DefaultSkillPolicy().Score(c, j)
}

func (p SkillPolicy) Score(c Candidate, j Job) CriterionScore {
	return p.score(c, j, nil)
}

// ScoreWithTechnical replaces the technical ratio by an externally computed value in [0,1].
func (p SkillPolicy) ScoreWithTechnical(c Candidate, j Job, technical float64) CriterionScore {
	t := clampFloat(technical, 0, 1)
	return p.score(c, j, &t)
}

func (p SkillPolicy) score(c Candidate, j Job, technicalOverride *float64) CriterionScore {
	technical := computeOverlap(c.Skills, j.RequiredSkills, 0)
	languages := computeOverlap(c.Languages, j.RequiredLanguages, p.NearMatchCredit)
	tools := computeOverlap(c.Tools, j.RequiredTools, p.NearMatchCredit)

	hasTechnical := len(technical.required) > 0 || technicalOverride != nil
	if !hasTechnical && len(languages.required) == 0 && len(tools.required) == 0 {
		return neutral(CriterionSkills, "aucune compétence requise par le poste")
	}

	var weighted, weights float64
	details := make([]string, 0, 6)

	if hasTechnical {
		r := technical.ratio()
		if technicalOverride != nil {
			r = *technicalOverride
			details = append(details, fmt.Sprintf("similarité sémantique du profil %.0f%%", r*100))
		}
		if len(technical.required) > 0 {
			details = append(details, fmt.Sprintf("%d/%d compétences requises", len(technical.matched), len(technical.required)))
		}
		weighted += p.TechnicalWeight * r
		weights += p.TechnicalWeight
	}
	if len(languages.required) > 0 {
		details = append(details, overlapDetail("langues", languages))
		weighted += p.LanguageWeight * languages.ratio()
		weights += p.LanguageWeight
	}
	if len(tools.required) > 0 {
		details = append(details, overlapDetail("outils", tools))
		weighted += p.ToolWeight * tools.ratio()
		weights += p.ToolWeight
	}

	missing := make([]string, 0, len(technical.missing)+len(languages.missing)+len(tools.missing))
	missing = append(missing, technical.missing...)
	missing = append(missing, languages.missing...)
	missing = append(missing, tools.missing...)
	if len(missing) > 0 {
		details = append(details, "manquant: "+strings.Join(missing, ", "))
	}

	if len(j.PreferredSkills) > 0 {
		preferred := computeOverlap(c.Skills, j.PreferredSkills, 0)
		details = append(details, fmt.Sprintf("%d/%d compétences souhaitées", len(preferred.matched), len(preferred.required)))
	}

	score := 0
	if weights > 0 {
		score = percent(100 * weighted / weights)
	}

	return CriterionScore{
		Criterion:  CriterionSkills,
		Percentage: score,
		Details:    details,
	}
}

func overlapDetail(label string, o overlap) string {
	if len(o.near) > 0 {
		return fmt.Sprintf("%s: %d/%d (%d proche)", label, len(o.matched), len(o.required), len(o.near))
	}
	return fmt.Sprintf("%s: %d/%d", label, len(o.matched), len(o.required))
}
