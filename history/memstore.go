package history

import (
	"context"
	"sync"
	"time"
)

// MemStore is a thread-safe in-memory Store.
type MemStore struct {
	mu        sync.RWMutex
	records   []Record // oldest first
	retention Retention
	now       func() time.Time
}

// NewMemStore creates an in-memory store with the given retention rules.
func NewMemStore(retention Retention) *MemStore {
	return &MemStore{
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if opts.SessionID != "" && rec.SessionID != opts.SessionID {
			continue
		}
		if opts.FailedOnly && !rec.Failed() {
			continue
		}
		out = append(out, rec)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) Clear(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.records))
	s.records = nil
	return n, nil
}

func (s *MemStore) Prune(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records)
	kept := s.records
	if s.retention.MaxAge > 0 {
		cutoff := s.now().Add(-s.retention.MaxAge)
		kept = make([]Record, 0, len(s.records))
		for _, rec := range s.records {
			if !rec.CreatedAt.Before(cutoff) {
				kept = append(kept, rec)
			}
		}
	}
	if s.retention.MaxCount > 0 && len(kept) > s.retention.MaxCount {
		kept = append([]Record(nil), kept[len(kept)-s.retention.MaxCount:]...)
	}
	s.records = kept
	return int64(before - len(kept)), nil
}

func (s *MemStore) Close() error {
	return nil
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)
