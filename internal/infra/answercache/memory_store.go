package answercache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/faqbot/internal/domain/chat"
	"github.com/yanqian/faqbot/pkg/util"
)

type answerRecord struct {
	payload   chat.CachedAnswer
	expiresAt time.Time
}

// MemoryStore is an in-memory answer cache for single-process deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	answers map[string]answerRecord
	now     func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		answers: make(map[string]answerRecord),
		now:     util.NowUTC,
	}
}

// GetAnswer implements chat.AnswerCache.
func (s *MemoryStore) GetAnswer(_ context.Context, key string) (chat.CachedAnswer, bool, error) {
	if key == "" {
		return chat.CachedAnswer{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.answers[key]
	s.mu.RUnlock()
	if !ok {
		return chat.CachedAnswer{}, false, nil
	}
	if util.Expired(s.now(), record.expiresAt) {
		s.mu.Lock()
		delete(s.answers, key)
		s.mu.Unlock()
		return chat.CachedAnswer{}, false, nil
	}
	return record.payload, true, nil
}

// SaveAnswer caches the answer with optional TTL.
func (s *MemoryStore) SaveAnswer(_ context.Context, key string, record chat.CachedAnswer, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.answers[key] = answerRecord{
		payload:   record,
		expiresAt: util.ExpiryFrom(now, ttl),
	}
	s.cleanupLocked(now)
	return nil
}

func (s *MemoryStore) cleanupLocked(now time.Time) {
	for key, record := range s.answers {
		if util.Expired(now, record.expiresAt) {
			delete(s.answers, key)
		}
	}
}

var _ chat.AnswerCache = (*MemoryStore)(nil)
