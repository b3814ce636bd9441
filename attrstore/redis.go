// Package attrstore provides user-attribute store backends for the root
// package's UserAttributeStore interface: a Redis-backed store for
// deployments and an in-memory store for tests and single-process use.
package attrstore

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/authkit-dev/challengeq"
)

// DefaultKeyPrefix namespaces user hashes in Redis.
const DefaultKeyPrefix = "cq"

// RedisStore keeps each user's attributes in one Redis hash keyed by
// prefix:tenant:userstore:username, with claim URIs as hash fields.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) GetAttributes(ctx context.Context, user challengeq.User, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	values, err := s.client.HMGet(ctx, s.key(user), names...).Result()
	if err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeAttributeStoreFailure, err,
			"reading attributes of user %s", user.Username)
	}

	out := make(map[string]string, len(names))
	for i, v := range values {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			out[names[i]] = str
		}
	}
	return out, nil
}

func (s *RedisStore) SetAttributes(ctx context.Context, user challengeq.User, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}
	if err := s.client.HSet(ctx, s.key(user), fields).Err(); err != nil {
		return challengeq.NewServerError(challengeq.CodeAttributeStoreFailure, err,
			"writing attributes of user %s", user.Username)
	}
	return nil
}

func (s *RedisStore) DeleteAttributes(ctx context.Context, user challengeq.User, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key(user), names...).Err(); err != nil {
		return challengeq.NewServerError(challengeq.CodeAttributeStoreFailure, err,
			"deleting attributes of user %s", user.Username)
	}
	return nil
}

func (s *RedisStore) key(user challengeq.User) string {
	return strings.Join([]string{s.prefix, user.TenantDomain, user.UserStoreDomain, user.Username}, ":")
}
