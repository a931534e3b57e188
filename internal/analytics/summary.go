package analytics

import (
	"math"
	"sort"
	"time"

	"match-engine/internal/domain/matching"
)

type StrategyStats struct {
	Strategy         matching.Strategy `json:"strategy"`
	Count            int               `json:"count"`
	AverageAggregate float64           `json:"average_score"`
	AverageLatencyMs float64           `json:"average_latency_ms"`
}

// Summary aggregates the records of a trailing window. An empty window yields zeros.
// FailureRate is the share of records that produced no result; AttemptFailureRate
// is failed or timed-out strategy attempts over all attempts.
type Summary struct {
	Days               int             `json:"days"`
	Since              time.Time       `json:"since"`
	Total              int             `json:"total"`
	Successes          int             `json:"successes"`
	ByStrategy         []StrategyStats `json:"by_strategy"`
	AverageAggregate   float64         `json:"average_score"`
	AverageLatencyMs   float64         `json:"average_latency_ms"`
	FailureRate        float64         `json:"failure_rate"`
	AttemptFailureRate float64         `json:"attempt_failure_rate"`
	Fallbacks          int             `json:"fallbacks"`
}

// Summarize folds records into a Summary.
func Summarize(records []Record, days int, since time.Time) Summary {
	out := Summary{Days: days, Since: since, ByStrategy: []StrategyStats{}}
	if len(records) == 0 {
		return out
	}

	type acc struct {
		count     int
		aggregate int
		latency   time.Duration
	}
	per := map[matching.Strategy]*acc{}

	var (
		aggregate      int
		scored         int
		latency        time.Duration
		attempts       int
		failedAttempts int
	)
	for _, r := range records {
		out.Total++
		latency += r.Latency
		attempts += r.Attempts
		failedAttempts += r.FailedAttempts
		if r.FellBack {
			out.Fallbacks++
		}
		if !r.Success {
			continue
		}
		out.Successes++
		scored++
		aggregate += r.Aggregate

		a, ok := per[r.Used]
		if !ok {
			a = &acc{}
			per[r.Used] = a
		}
		a.count++
		a.aggregate += r.Aggregate
		a.latency += r.Latency
	}

	if scored > 0 {
		out.AverageAggregate = round2(float64(aggregate) / float64(scored))
	}
	out.AverageLatencyMs = round2(ms(latency) / float64(out.Total))
	out.FailureRate = round2(float64(out.Total-out.Successes) / float64(out.Total))
	if attempts > 0 {
		out.AttemptFailureRate = round2(float64(failedAttempts) / float64(attempts))
	}

	for s, a := range per {
		out.ByStrategy = append(out.ByStrategy, StrategyStats{
			Strategy:         s,
			Count:            a.count,
			AverageAggregate: round2(float64(a.aggregate) / float64(a.count)),
			AverageLatencyMs: round2(ms(a.latency) / float64(a.count)),
		})
	}
	sort.Slice(out.ByStrategy, func(i, j int) bool {
		if out.ByStrategy[i].Count != out.ByStrategy[j].Count {
			return out.ByStrategy[i].Count > out.ByStrategy[j].Count
		}
		return out.ByStrategy[i].Strategy < out.ByStrategy[j].Strategy
	})
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
