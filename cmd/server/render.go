package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"match-engine/internal/analytics"
	"match-engine/internal/delivery/http/dto"

	"github.com/olekukonko/tablewriter"
)

func renderSummary(w io.Writer, s analytics.Summary) error {
	fmt.Fprintf(w, "last %d day(s): %d match(es), %d succeeded, %d fallback(s), failure rate %.2f, attempt failure rate %.2f\n",
		s.Days, s.Total, s.Successes, s.Fallbacks, s.FailureRate, s.AttemptFailureRate)
	fmt.Fprintf(w, "average score %.2f, average latency %.2f ms\n", s.AverageAggregate, s.AverageLatencyMs)

	table := tablewriter.NewWriter(w)
	table.Header("strategy", "count", "avg score", "avg latency ms")
	for _, st := range s.ByStrategy {
		if err := table.Append([]string{
			string(st.Strategy),
			strconv.Itoa(st.Count),
			strconv.FormatFloat(st.AverageAggregate, 'f', 2, 64),
			strconv.FormatFloat(st.AverageLatencyMs, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderMatches(w io.Writer, res dto.MatchListResponse) error {
	table := tablewriter.NewWriter(w)
	table.Header("rank", "id", "score", "niveau", "selected", "used", "bonus", "risques")
	for i, it := range res.Items {
		id := it.JobID
		if id == "" {
			id = it.CandidateID
		}
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			id,
			strconv.Itoa(it.Score),
			it.Quality,
			it.AlgorithmSelected,
			it.AlgorithmUsed,
			strconv.Itoa(it.Bonus.Total),
			strings.Join(it.Risks, "; "),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d result(s)\n", res.Returned, res.Total)
	return err
}
