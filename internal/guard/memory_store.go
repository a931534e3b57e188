package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type slot struct {
	p atomic.Pointer[Health]
}

// MemoryStore keeps breaker state in process. Transitions are compare-and-swap
// loops on an immutable Health value per strategy.
type MemoryStore struct {
	slots sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) slot(strategy string) *slot {
	if v, ok := s.slots.Load(strategy); ok {
		return v.(*slot)
	}
	fresh := &slot{}
	h := closedHealth(strategy)
	fresh.p.Store(&h)
	v, _ := s.slots.LoadOrStore(strategy, fresh)
	return v.(*slot)
}

func (s *MemoryStore) update(strategy string, fn func(Health) (Health, bool)) (Health, bool) {
	sl := s.slot(strategy)
	for {
		cur := sl.p.Load()
		next, ok := fn(*cur)
		if next == *cur {
			return next, ok
		}
		if sl.p.CompareAndSwap(cur, &next) {
			return next, ok
		}
	}
}

func (s *MemoryStore) Admit(_ context.Context, strategy string, now time.Time, p Policy) (bool, error) {
	_, ok := s.update(strategy, func(h Health) (Health, bool) {
		return admit(h, now, p)
	})
	return ok, nil
}

func (s *MemoryStore) RecordSuccess(_ context.Context, strategy string, _ time.Time) (Health, error) {
	h, _ := s.update(strategy, func(h Health) (Health, bool) {
		return succeed(h), true
	})
	return h, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, strategy string, now time.Time, p Policy) (Health, error) {
	h, _ := s.update(strategy, func(h Health) (Health, bool) {
		return fail(h, now, p), true
	})
	return h, nil
}

func (s *MemoryStore) Snapshot(_ context.Context, strategy string) (Health, error) {
	return *s.slot(strategy).p.Load(), nil
}
