package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps push tokens per user so the delivery side can address
// both parties of an event. Keyed storage; nothing lives in process memory.
type TokenStore interface {
	Register(ctx context.Context, userID uuid.UUID, token string) error
	Remove(ctx context.Context, userID uuid.UUID, token string) error
	Tokens(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func tokenKey(userID uuid.UUID) string {
	return fmt.Sprintf("push:tokens:%s", userID)
}

func (s *RedisTokenStore) Register(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.client.SAdd(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("register push token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Remove(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.client.SRem(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("remove push token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Tokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	tokens, err := s.client.SMembers(ctx, tokenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list push tokens: %w", err)
	}
	return tokens, nil
}

// MemoryTokenStore backs memory-store mode and tests.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]map[string]bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[uuid.UUID]map[string]bool)}
}

func (s *MemoryTokenStore) Register(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens[userID] == nil {
		s.tokens[userID] = make(map[string]bool)
	}
	s.tokens[userID][token] = true
	return nil
}

func (s *MemoryTokenStore) Remove(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens[userID], token)
	return nil
}

func (s *MemoryTokenStore) Tokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for t := range s.tokens[userID] {
		out = append(out, t)
	}
	return out, nil
}
