package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

var stopWords = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "de": {}, "des": {}, "du": {}, "un": {}, "une": {}, "et": {},
	"en": {}, "au": {}, "aux": {}, "pour": {}, "par": {}, "sur": {}, "avec": {}, "dans": {},
	"the": {}, "and": {}, "for": {}, "with": {}, "of": {}, "to": {}, "in": {}, "on": {}, "a": {},
	"an": {}, "or": {}, "ou": {}, "nous": {}, "vous": {}, "est": {}, "sont": {}, "is": {}, "are": {},
}

func tokenize(text string) []string {
	fields := strings.Fields(NormalizeText(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if canonical, ok := skillAliases[f]; ok {
			f = canonical
		}
		out = append(out, f)
	}
	return out
}

func keywordSet(texts ...string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range texts {
		for _, tok := range tokenize(t) {
			out[tok] = struct{}{}
		}
	}
	return out
}

// KeywordScorer is the terminal fallback: keyword coverage of the job requirements
// by the candidate profile. It has no external dependency and never fails.
type KeywordScorer struct{}

func (KeywordScorer) Score(_ context.Context, c Candidate, j Job) (Result, error) {
	return KeywordMatch(c, j), nil
}

func KeywordMatch(c Candidate, j Job) Result {
	have := keywordSet(append(append(append([]string{c.Summary}, c.Skills...), c.Tools...), c.Languages...)...)

	reqTexts := append(append(append([]string{}, j.RequiredSkills...), j.RequiredTools...), j.RequiredLanguages...)
	if len(reqTexts) == 0 {
		reqTexts = []string{j.Title, j.Description}
	}
	want := keywordSet(reqTexts...)

	weights := Weights{Skills: 1}
	var score CriterionScore
	if len(want) == 0 {
		score = neutral(CriterionSkills, "aucun mot-clé exploitable dans l'offre")
	} else {
		matched := make([]string, 0, len(want))
		for w := range want {
			if _, ok := have[w]; ok {
				matched = append(matched, w)
			}
		}
		sort.Strings(matched)
		details := []string{fmt.Sprintf("%d/%d mots-clés de l'offre retrouvés", len(matched), len(want))}
		if len(matched) > 0 {
			details = append(details, "mots-clés communs: "+strings.Join(matched, ", "))
		}
		score = CriterionScore{
			Criterion:  CriterionSkills,
			Percentage: percent(100 * float64(len(matched)) / float64(len(want))),
			Details:    details,
		}
	}

	criteria := map[Criterion]CriterionScore{CriterionSkills: score}
	res := Result{
		Aggregate: Aggregate(criteria, weights, 0),
		Criteria:  criteria,
		Bonuses:   []BonusEntry{},
		Narrative: map[Criterion]string{
			CriterionSkills: "Évaluation simplifiée par recouvrement de mots-clés.",
		},
		Risks:         []string{},
		Opportunities: []string{},
		Strategy:      StrategyFallback,
		Weights:       weights,
	}
	res.Quality = QualityOf(res.Aggregate)
	return res
}

// LexicalSimilarity is a bag-of-words cosine similarity. It is the default
// SimilarityProvider when no embedding backend is configured.
type LexicalSimilarity struct{}

func (LexicalSimilarity) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return cosineCounts(termCounts(a), termCounts(b)), nil
}

func termCounts(text string) map[string]float64 {
	out := make(map[string]float64)
	for _, tok := range tokenize(text) {
		out[tok]++
	}
	return out
}

func cosineCounts(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, v := range a {
		na += v * v
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}
	for _, w := range b {
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clampFloat(dot/(math.Sqrt(na)*math.Sqrt(nb)), 0, 1)
}
