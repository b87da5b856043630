package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docuchat/server/internal/agent/model"
	errx "github.com/docuchat/server/internal/core/error"
	logx "github.com/docuchat/server/pkg/logger"
)

// RedisConversationRepository persists the per-conversation exchange log as
// a Redis list with a sliding TTL. The workflow itself keeps no cross-turn
// state; callers rebuild their bounded history from this log each turn.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:exchanges", conversationID)
}

func (r *RedisConversationRepository) AppendExchange(ctx context.Context, conversationID string, ex model.Exchange) error {
	b, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal exchange: %w", err)
	}
	key := r.conversationKey(conversationID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push exchange to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
		}
	}
	return nil
}

func (r *RedisConversationRepository) LoadRecent(ctx context.Context, conversationID string, maxTurns int) ([]model.Exchange, error) {
	if maxTurns <= 0 {
		return nil, nil
	}
	key := r.conversationKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, int64(-maxTurns), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load exchanges from redis")
		return nil, errx.WrapRedis(err)
	}

	return DecodeExchanges(rows), nil
}

func (r *RedisConversationRepository) Clear(ctx context.Context, conversationID string) error {
	key := r.conversationKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// DecodeExchanges unmarshals raw log entries, dropping malformed ones so a
// corrupt entry degrades the history instead of failing the request.
func DecodeExchanges(rows []string) []model.Exchange {
	out := make([]model.Exchange, 0, len(rows))
	for _, row := range rows {
		var ex model.Exchange
		if err := json.Unmarshal([]byte(row), &ex); err != nil {
			logx.Warn().Err(err).Msg("skipping malformed exchange entry")
			continue
		}
		out = append(out, ex)
	}
	return out
}
