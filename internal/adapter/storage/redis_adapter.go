package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

const (
	idempotencyKeyPrefix = "maint:claim:"
	statsKey             = "maint:stats"
	statsGenKey          = "maint:stats:gen"
	idempotencyKeyTTL    = 24 * time.Hour
	defaultStatsTTL      = time.Minute
)

// setStatsScript writes the stats only while the generation still matches.
var setStatsScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end

redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type RedisAdapter struct {
	client   *redis.Client
	statsTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, statsTTL time.Duration) *RedisAdapter {
	if statsTTL <= 0 {
		statsTTL = defaultStatsTTL
	}
	return &RedisAdapter{client: client, statsTTL: statsTTL}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetStats(ctx context.Context) (*domain.ScheduleStats, int64, error) {
	values, err := r.client.MGet(ctx, statsKey, statsGenKey).Result()
	if err != nil {
		return nil, 0, err
	}

	var gen int64
	if raw, ok := values[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("decode stats generation: %w", err)
		}
	}
	raw, ok := values[0].(string)
	if !ok {
		return nil, gen, nil
	}

	var stats domain.ScheduleStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, gen, fmt.Errorf("decode cached stats: %w", err)
	}
	return &stats, gen, nil
}

func (r *RedisAdapter) SetStats(ctx context.Context, gen int64, stats domain.ScheduleStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return setStatsScript.Run(ctx, r.client, []string{statsKey, statsGenKey},
		gen, raw, r.statsTTL.Milliseconds()).Err()
}

func (r *RedisAdapter) InvalidateStats(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	return err
}
