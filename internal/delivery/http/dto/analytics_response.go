package dto

import (
	"time"

	"match-engine/internal/analytics"
	"match-engine/internal/guard"
)

type StrategyStatsResponse struct {
	Strategy         string  `json:"strategy"`
	Count            int     `json:"count"`
	AverageAggregate float64 `json:"average_score"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
}

type SummaryResponse struct {
	Days               int                     `json:"days"`
	Since              time.Time               `json:"since"`
	Total              int                     `json:"total"`
	Successes          int                     `json:"successes"`
	Fallbacks          int                     `json:"fallbacks"`
	AverageAggregate   float64                 `json:"average_score"`
	AverageLatencyMs   float64                 `json:"average_latency_ms"`
	FailureRate        float64                 `json:"failure_rate"`
	AttemptFailureRate float64                 `json:"attempt_failure_rate"`
	ByStrategy         []StrategyStatsResponse `json:"by_strategy"`
}

func NewSummaryResponse(s analytics.Summary) SummaryResponse {
	out := SummaryResponse{
		Days:               s.Days,
		Since:              s.Since,
		Total:              s.Total,
		Successes:          s.Successes,
		Fallbacks:          s.Fallbacks,
		AverageAggregate:   s.AverageAggregate,
		AverageLatencyMs:   s.AverageLatencyMs,
		FailureRate:        s.FailureRate,
		AttemptFailureRate: s.AttemptFailureRate,
		ByStrategy:         make([]StrategyStatsResponse, 0, len(s.ByStrategy)),
	}
	for _, st := range s.ByStrategy {
		out.ByStrategy = append(out.ByStrategy, StrategyStatsResponse{
			Strategy:         string(st.Strategy),
			Count:            st.Count,
			AverageAggregate: st.AverageAggregate,
			AverageLatencyMs: st.AverageLatencyMs,
		})
	}
	return out
}

type StrategyHealthResponse struct {
	Strategy            string     `json:"strategy"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	TrialInFlight       bool       `json:"trial_in_flight"`
}

func NewStrategyHealthResponse(in []guard.Health) []StrategyHealthResponse {
	out := make([]StrategyHealthResponse, 0, len(in))
	for _, h := range in {
		r := StrategyHealthResponse{
			Strategy:            h.Strategy,
			State:               string(h.State),
			ConsecutiveFailures: h.ConsecutiveFailures,
			TrialInFlight:       h.TrialInFlight,
		}
		if !h.LastFailure.IsZero() {
			lf := h.LastFailure
			r.LastFailure = &lf
		}
		out = append(out, r)
	}
	return out
}
