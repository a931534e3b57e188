package analytics

import (
	"context"
	"fmt"
	"time"

	"match-engine/internal/database"
	"match-engine/internal/domain/matching"
)

// SQLStore keeps records in the match_records table of PostgreSQL or SQLite.
type SQLStore struct {
	db database.DB
}

func NewSQLStore(db database.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Append(ctx context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO match_records (
			id, recorded_at_ms, mode, subject_id, target_id,
			requested, selected, used, aggregate, bonus,
			success, fell_back, attempts, failed_attempts, latency_us
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		r.ID,
		r.RecordedAt.UnixMilli(),
		string(r.Mode),
		r.SubjectID,
		r.TargetID,
		string(r.Requested),
		string(r.Selected),
		string(r.Used),
		r.Aggregate,
		r.Bonus,
		boolInt(r.Success),
		boolInt(r.FellBack),
		r.Attempts,
		r.FailedAttempts,
		r.Latency.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("append match record: %w", err)
	}
	return nil
}

func (s *SQLStore) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, recorded_at_ms, mode, subject_id, target_id,
			requested, selected, used, aggregate, bonus,
			success, fell_back, attempts, failed_attempts, latency_us
		FROM match_records
		WHERE recorded_at_ms >= $1
		ORDER BY recorded_at_ms ASC`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("list match records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 64)
	for rows.Next() {
		var (
			r                               Record
			ms, latencyUS                   int64
			mode, requested, selected, used string
			success, fellBack               int
		)
		if err := rows.Scan(
			&r.ID, &ms, &mode, &r.SubjectID, &r.TargetID,
			&requested, &selected, &used, &r.Aggregate, &r.Bonus,
			&success, &fellBack, &r.Attempts, &r.FailedAttempts, &latencyUS,
		); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		r.RecordedAt = time.UnixMilli(ms).UTC()
		r.Mode = Mode(mode)
		r.Requested = matching.Strategy(requested)
		r.Selected = matching.Strategy(selected)
		r.Used = matching.Strategy(used)
		r.Success = success != 0
		r.FellBack = fellBack != 0
		r.Latency = time.Duration(latencyUS) * time.Microsecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.db.Exec(ctx, `DELETE FROM match_records WHERE recorded_at_ms < $1`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune match records: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
