package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Protocol-Lattice/go-compact/src/memory/model"
)

// InMemoryStore implements FactStore for tests and lightweight deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	facts  map[string][]model.Fact
	nowFn  func() time.Time
}

var _ FactStore = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{facts: make(map[string][]model.Fact), nowFn: time.Now}
}

func (s *InMemoryStore) AddFact(_ context.Context, subject, content string, topics []string) error {
	if err := validateSubject(subject); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.facts == nil {
		s.facts = make(map[string][]model.Fact)
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	s.nextID++
	s.facts[subject] = append(s.facts[subject], model.Fact{
		ID:        strconv.FormatInt(s.nextID, 10),
		Subject:   subject,
		Content:   content,
		Topics:    model.NormalizeTopics(topics),
		CreatedAt: s.nowFn().UTC(),
	})
	return nil
}

func (s *InMemoryStore) Facts(_ context.Context, subject string, limit int) ([]model.Fact, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.facts[subject]
	out := make([]model.Fact, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
