package quota

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store with the same conditional-increment
// semantics as PGStore. It exists for tests and local development; production
// deployments must use an external store so counters survive restarts and
// are shared across replicas.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *MemStore) WithClock(now func() time.Time) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemStore) TryConsume(ctx context.Context, scopeKey string, limit int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	key := scopeKey + "|" + DayKey(t)

	rec, ok := s.records[key]
	if ok && !rec.ExpiresAt.After(t.UTC()) {
		delete(s.records, key)
		ok = false
	}
	if !ok {
		rec = &Record{
			ScopeKey:  scopeKey,
			DayKey:    DayKey(t),
			ExpiresAt: NextMidnight(t),
		}
		s.records[key] = rec
	}

	if rec.Count >= limit {
		return Decision{Allowed: false, Remaining: 0}, nil
	}

	rec.Count++
	return Decision{Allowed: true, Remaining: limit - rec.Count}, nil
}

func (s *MemStore) Refund(ctx context.Context, scopeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey + "|" + DayKey(s.now())
	if rec, ok := s.records[key]; ok && rec.Count > 0 {
		rec.Count--
	}
	return nil
}

// Count reports the current counter for a scope's day. Test helper.
func (s *MemStore) Count(scopeKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[scopeKey+"|"+DayKey(s.now())]; ok {
		return rec.Count
	}
	return 0
}
