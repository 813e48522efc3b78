package numbering

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisBackend keeps counters in redis under counter:numbering:<kind>:<period>.
// Numbers are not returned on rollback; the unique number columns still
// reject duplicates if a counter is lost.
type RedisBackend struct {
	store counterStore
}

func NewRedisBackend(store counterStore) *RedisBackend {
	return &RedisBackend{store: store}
}

func (b *RedisBackend) Increment(ctx context.Context, _ *gorm.DB, kind enums.NumberKind, period string) (int64, error) {
	if b.store == nil {
		return 0, errors.New("numbering redis store not configured")
	}
	key := redis.Key(redis.KeyspaceCounter, "numbering", string(kind), period)
	return b.store.IncrWithTTL(ctx, key, periodTTL(kind))
}
