package dto

import (
	"match-engine/internal/analytics"
	"match-engine/internal/domain/matching"
	"match-engine/internal/guard"
	"match-engine/internal/usecase"
)

type CriterionResponse struct {
	Score            int      `json:"score"`
	Details          []string `json:"details"`
	InsufficientData bool     `json:"donnees_insuffisantes"`
}

type BonusRuleResponse struct {
	ID     string `json:"id"`
	Points int    `json:"points"`
	Reason string `json:"raison"`
}

type BonusResponse struct {
	Total int                 `json:"total"`
	Rules []BonusRuleResponse `json:"regles"`
}

type WeightsResponse struct {
	Location     float64 `json:"localisation"`
	Experience   float64 `json:"experience"`
	Compensation float64 `json:"salaire"`
	Skills       float64 `json:"competences"`
}

type AttemptResponse struct {
	Strategy   string `json:"strategy"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// MatchItemResponse carries either job_id (forward) or candidate_id (reverse).
type MatchItemResponse struct {
	JobID              string                       `json:"job_id,omitempty"`
	CandidateID        string                       `json:"candidate_id,omitempty"`
	Score              int                          `json:"score"`
	Quality            string                       `json:"niveau"`
	Criteria           map[string]CriterionResponse `json:"criteres"`
	Bonus              BonusResponse                `json:"bonus"`
	Explanations       map[string]string            `json:"explications"`
	Risks              []string                     `json:"risques"`
	Opportunities      []string                     `json:"opportunites"`
	AlgorithmRequested string                       `json:"algorithm_requested"`
	AlgorithmSelected  string                       `json:"algorithm_selected"`
	AlgorithmUsed      string                       `json:"algorithm_used"`
	SelectionReason    string                       `json:"selection_reason"`
	FallbackTrail      []AttemptResponse            `json:"fallback_trail"`
	Weights            WeightsResponse              `json:"poids"`
	Cached             bool                         `json:"cached"`
	ProcessingTimeMs   float64                      `json:"processing_time_ms"`
}

type MatchListResponse struct {
	Mode      string              `json:"mode"`
	Algorithm string              `json:"algorithm"`
	Total     int                 `json:"total"`
	Returned  int                 `json:"returned"`
	Items     []MatchItemResponse `json:"items"`
}

func NewMatchListResponse(res usecase.MatchResponse) MatchListResponse {
	out := MatchListResponse{
		Mode:      string(res.Mode),
		Algorithm: string(res.Requested),
		Total:     res.Total,
		Returned:  len(res.Items),
		Items:     make([]MatchItemResponse, 0, len(res.Items)),
	}
	reverse := res.Mode == analytics.ModeReverse
	for _, it := range res.Items {
		item := NewMatchItemResponse(it)
		if reverse {
			item.JobID = ""
		} else {
			item.CandidateID = ""
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func NewMatchItemResponse(o usecase.MatchOutcome) MatchItemResponse {
	r := o.Result
	item := MatchItemResponse{
		JobID:              o.JobID,
		CandidateID:        o.CandidateID,
		Score:              r.Aggregate,
		Quality:            string(r.Quality),
		Criteria:           make(map[string]CriterionResponse, len(r.Criteria)),
		Bonus:              BonusResponse{Total: r.BonusTotal, Rules: make([]BonusRuleResponse, 0, len(r.Bonuses))},
		Explanations:       make(map[string]string, len(r.Narrative)),
		Risks:              nonNil(r.Risks),
		Opportunities:      nonNil(r.Opportunities),
		AlgorithmRequested: string(o.Requested),
		AlgorithmSelected:  string(o.Selected),
		AlgorithmUsed:      string(o.Used),
		SelectionReason:    o.SelectionReason,
		FallbackTrail:      attempts(o.Attempts),
		Weights:            weights(r.Weights),
		Cached:             o.Cached,
		ProcessingTimeMs:   float64(o.Duration.Microseconds()) / 1000,
	}
	for _, c := range matching.Criteria {
		cs, ok := r.Criteria[c]
		if !ok {
			continue
		}
		item.Criteria[string(c)] = CriterionResponse{
			Score:            cs.Percentage,
			Details:          nonNil(cs.Details),
			InsufficientData: cs.InsufficientData,
		}
	}
	for _, b := range r.Bonuses {
		item.Bonus.Rules = append(item.Bonus.Rules, BonusRuleResponse{ID: b.RuleID, Points: b.Points, Reason: b.Reason})
	}
	for c, text := range r.Narrative {
		item.Explanations[string(c)] = text
	}
	return item
}

func attempts(in []guard.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(in))
	for _, a := range in {
		out = append(out, AttemptResponse{
			Strategy:   string(a.Strategy),
			Status:     string(a.Status),
			Error:      a.Error,
			DurationMs: a.Duration.Milliseconds(),
		})
	}
	return out
}

func weights(w matching.Weights) WeightsResponse {
	return WeightsResponse{
		Location:     w.Location,
		Experience:   w.Experience,
		Compensation: w.Compensation,
		Skills:       w.Skills,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
