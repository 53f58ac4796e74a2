package training

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const knowledgeKeyPrefix = "kb:entries:"

// KnowledgeBase holds free-form knowledge snippets per organization.
type KnowledgeBase interface {
	Append(ctx context.Context, orgID string, entries []string) error
	Replace(ctx context.Context, orgID string, entries []string) error
	List(ctx context.Context, orgID string) ([]string, error)
}

// RedisKnowledgeBase keeps each organization's entries in a Redis list.
type RedisKnowledgeBase struct {
	client *redis.Client
}

// NewRedisKnowledgeBase creates a Redis-backed knowledge base.
func NewRedisKnowledgeBase(client *redis.Client) *RedisKnowledgeBase {
	if client == nil {
		panic("training: redis client cannot be nil")
	}
	return &RedisKnowledgeBase{client: client}
}

// Append pushes entries onto the end of the org's list. Blank entries are
// skipped.
func (r *RedisKnowledgeBase) Append(ctx context.Context, orgID string, entries []string) error {
	args := toArgs(entries)
	if len(args) == 0 {
		return nil
	}
	if err := r.client.RPush(ctx, knowledgeKey(orgID), args...).Err(); err != nil {
		return fmt.Errorf("training: append knowledge: %w", err)
	}
	return nil
}

// Replace overwrites all entries for the org atomically.
func (r *RedisKnowledgeBase) Replace(ctx context.Context, orgID string, entries []string) error {
	key := knowledgeKey(orgID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if args := toArgs(entries); len(args) > 0 {
		pipe.RPush(ctx, key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("training: replace knowledge: %w", err)
	}
	return nil
}

// List returns the org's entries in insertion order.
func (r *RedisKnowledgeBase) List(ctx context.Context, orgID string) ([]string, error) {
	entries, err := r.client.LRange(ctx, knowledgeKey(orgID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("training: list knowledge: %w", err)
	}
	return entries, nil
}

func toArgs(entries []string) []interface{} {
	args := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			args = append(args, e)
		}
	}
	return args
}

func knowledgeKey(orgID string) string {
	return knowledgeKeyPrefix + orgID
}
