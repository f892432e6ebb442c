package trainingstats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ScanDesk/internal/cache"
	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
)

const cacheKey = "training:stats"

type Client interface {
	TrainingStats(ctx context.Context) (orderlookup.TrainingStats, error)
}

// Service — read-only прокси агрегатов переобучения. Сами данные живут у
// lookup-сервиса; здесь только короткий кэш, чтобы каждый маунт страницы
// не ходил по сети.
type Service struct {
	client Client
	cache  cache.BytesCache
	ttl    time.Duration
}

func New(client Client, c cache.BytesCache, ttl time.Duration) *Service {
	return &Service{client: client, cache: c, ttl: ttl}
}

func (s *Service) Get(ctx context.Context) (orderlookup.TrainingStats, error) {
	// Кэш — лучшее усилие: без него просто идём к сервису.
	if s.cache != nil && s.ttl > 0 {
		if b, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			var st orderlookup.TrainingStats
			if json.Unmarshal(b, &st) == nil {
				return st, nil
			}
		}
	}

	st, err := s.client.TrainingStats(ctx)
	if err != nil {
		return orderlookup.TrainingStats{}, err
	}

	if s.cache != nil && s.ttl > 0 {
		if b, err := json.Marshal(st); err == nil {
			_ = s.cache.Set(ctx, cacheKey, b, s.ttl)
		}
	}
	return st, nil
}
