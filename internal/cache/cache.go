package cache

import (
	"context"
	"time"
)

// BytesCache — минимальный контракт кэша "байты по ключу с TTL".
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
