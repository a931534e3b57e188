package analytics

import (
	"context"
	"errors"
	"time"

	"match-engine/internal/domain/matching"
)

var ErrInvalidRecord = errors.New("invalid analytics record")

type Mode string

const (
	ModeForward Mode = "forward"
	ModeReverse Mode = "reverse"
)

// Record is one match outcome. Records are appended and never updated.
type Record struct {
	ID             string            `json:"id"`
	RecordedAt     time.Time         `json:"recorded_at"`
	Mode           Mode              `json:"mode"`
	SubjectID      string            `json:"subject_id"`
	TargetID       string            `json:"target_id"`
	Requested      matching.Strategy `json:"algorithm_requested"`
	Selected       matching.Strategy `json:"algorithm_selected"`
	Used           matching.Strategy `json:"algorithm_used"`
	Aggregate      int               `json:"score"`
	Bonus          int               `json:"bonus"`
	Success        bool              `json:"success"`
	FellBack       bool              `json:"fell_back"`
	Attempts       int               `json:"attempts"`
	FailedAttempts int               `json:"failed_attempts"`
	Latency        time.Duration     `json:"latency"`
}

func (r Record) validate() error {
	if r.ID == "" {
		return errors.Join(ErrInvalidRecord, errors.New("empty id"))
	}
	if r.RecordedAt.IsZero() {
		return errors.Join(ErrInvalidRecord, errors.New("zero timestamp"))
	}
	return nil
}

type Store interface {
	Append(ctx context.Context, r Record) error
	ListSince(ctx context.Context, since time.Time) ([]Record, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
