package answercache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faqbot/internal/domain/chat"
)

// ValkeyStore shares generated answers between processes through a
// Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "faqbot"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) GetAnswer(ctx context.Context, key string) (chat.CachedAnswer, bool, error) {
	if key == "" {
		return chat.CachedAnswer{}, false, nil
	}
	cmd := s.client.B().Get().Key(s.answerKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return chat.CachedAnswer{}, false, nil
		}
		return chat.CachedAnswer{}, false, err
	}
	var record chat.CachedAnswer
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return chat.CachedAnswer{}, false, err
	}
	return record, true, nil
}

func (s *ValkeyStore) SaveAnswer(ctx context.Context, key string, record chat.CachedAnswer, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.answerKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) answerKey(key string) string {
	return fmt.Sprintf("%s:answer:%s", s.prefix, key)
}

var _ chat.AnswerCache = (*ValkeyStore)(nil)
