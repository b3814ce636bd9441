package attrstore

import (
	"context"
	"sync"

	"github.com/authkit-dev/challengeq"
)

// MemoryStore is a mutex-guarded in-process attribute store. Useful for
// tests and single-binary setups without Redis.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]string)}
}

func (s *MemoryStore) GetAttributes(_ context.Context, user challengeq.User, names []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(names))
	attrs := s.users[memoryKey(user)]
	for _, name := range names {
		if v, ok := attrs[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) SetAttributes(_ context.Context, user challengeq.User, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(user)
	attrs := s.users[key]
	if attrs == nil {
		attrs = make(map[string]string, len(values))
		s.users[key] = attrs
	}
	for k, v := range values {
		attrs[k] = v
	}
	return nil
}

func (s *MemoryStore) DeleteAttributes(_ context.Context, user challengeq.User, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs := s.users[memoryKey(user)]
	for _, name := range names {
		delete(attrs, name)
	}
	return nil
}

func memoryKey(user challengeq.User) string {
	return user.TenantDomain + ":" + user.UserStoreDomain + ":" + user.Username
}
