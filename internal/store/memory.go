package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps profiles in process memory. It is used when no
// DATABASE_URL is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*UserProfile
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*UserProfile), now: time.Now}
}

func (s *MemoryStore) Upsert(ctx context.Context, sessionID string, meta *Metadata, rec Recommendation) error {
	if err := checkUpsert(sessionID, rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p, ok := s.profiles[sessionID]
	if !ok {
		p = &UserProfile{SessionID: sessionID, CreatedAt: now}
		s.profiles[sessionID] = p
	}
	if meta != nil {
		p.Metadata = *meta
	}
	p.Recommendations = append(p.Recommendations, rec)
	p.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Recommendations = append([]Recommendation(nil), p.Recommendations...)
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]ProfileSummary, error) {
	s.mu.RLock()
	out := make([]ProfileSummary, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, ProfileSummary{
			SessionID:       p.SessionID,
			Country:         p.Metadata.Country,
			City:            p.Metadata.City,
			Recommendations: len(p.Recommendations),
			UpdatedAt:       p.UpdatedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{ByGoal: make(map[string]int)}
	for _, p := range s.profiles {
		counted := false
		for _, r := range p.Recommendations {
			if r.CreatedAt.Before(since) {
				continue
			}
			st.Total++
			st.ByGoal[r.Goal]++
			if !counted {
				st.Profiles++
				counted = true
			}
		}
	}
	return st, nil
}

func (s *MemoryStore) Close() error { return nil }
