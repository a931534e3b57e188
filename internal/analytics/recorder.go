package analytics

import (
	"context"
	"time"

	"match-engine/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultSummaryDays = 7
	MaxSummaryDays     = 365
)

// Notifier receives every stored record, e.g. the live websocket feed.
type Notifier interface {
	Publish(r Record)
}

type RecorderConfig struct {
	Store     Store
	Logger    *zap.Logger
	Notifier  Notifier
	Retention time.Duration
	Now       func() time.Time
}

type Recorder struct {
	store     Store
	logger    *zap.Logger
	notifier  Notifier
	retention time.Duration
	now       func() time.Time
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Recorder{
		store:     cfg.Store,
		logger:    cfg.Logger,
		notifier:  cfg.Notifier,
		retention: cfg.Retention,
		now:       cfg.Now,
	}
}

// Record stores r and publishes it. Failures are logged, never returned.
func (rec *Recorder) Record(ctx context.Context, r Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = rec.now().UTC()
	}

	if err := rec.store.Append(context.WithoutCancel(ctx), r); err != nil {
		logger.WithFields(rec.logger, logger.StringFields(
			logger.StringField{Key: logger.FieldStrategy, Value: string(r.Used)},
			logger.StringField{Key: logger.FieldMode, Value: string(r.Mode)},
		)...).Warn("analytics append failed", zap.Error(err))
		return
	}
	if rec.notifier != nil {
		rec.notifier.Publish(r)
	}
}

// Summary aggregates the trailing window of days. days <= 0 uses DefaultSummaryDays.
func (rec *Recorder) Summary(ctx context.Context, days int) (Summary, error) {
	if days <= 0 {
		days = DefaultSummaryDays
	}
	if days > MaxSummaryDays {
		days = MaxSummaryDays
	}
	since := rec.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	records, err := rec.store.ListSince(ctx, since)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records, days, since), nil
}

// Prune deletes records older than the retention window. A zero window keeps everything.
func (rec *Recorder) Prune(ctx context.Context) (int64, error) {
	if rec.retention <= 0 {
		return 0, nil
	}
	return rec.store.DeleteBefore(ctx, rec.now().UTC().Add(-rec.retention))
}

// RunPruner prunes every interval until ctx is done.
func (rec *Recorder) RunPruner(ctx context.Context, interval time.Duration) {
	if rec.retention <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := rec.Prune(ctx)
			if err != nil {
				rec.logger.Warn("analytics prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				rec.logger.Info("analytics records pruned", zap.Int64("deleted", n))
			}
		}
	}
}
