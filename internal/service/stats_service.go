package service

import (
	"context"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// StatsService aggregates non-cancelled sales into summary figures and
// per-payment-method breakdowns. Reads go through the statistics cache when
// one is configured.
type StatsService struct {
	storage Storage
	cache   StatsCache
	logger  *zap.Logger
}

// NewStatsService creates a new statistics service. cache may be nil.
func NewStatsService(storage Storage, cache StatsCache) *StatsService {
	return &StatsService{
		storage: storage,
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

// GetSalesStatistics computes totals, average ticket, item counts and a
// per-payment-method breakdown over sales whose status is not CANCELLED,
// optionally bounded by a created-at window. An empty result set yields
// all-zero figures.
func (s *StatsService) GetSalesStatistics(ctx context.Context, start, end *time.Time) (*models.SalesStatistics, error) {
	ctx, span := util.StartSpan(ctx, "StatsService.GetSalesStatistics")
	defer span.End()

	key := windowKey(start, end)

	if s.cache != nil {
		cached, ok, err := s.cache.GetStatistics(ctx, key)
		if err != nil {
			s.logger.Warn("Statistics cache lookup failed", zap.Error(err))
		} else if ok {
			util.StatisticsCacheHits.WithLabelValues("hit").Inc()
			return cached, nil
		}
		util.StatisticsCacheHits.WithLabelValues("miss").Inc()
	}

	stats, err := s.storage.SalesStatistics(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetStatistics(ctx, key, stats); err != nil {
			s.logger.Warn("Failed to cache statistics", zap.Error(err))
		}
	}

	return stats, nil
}

func windowKey(start, end *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return format(start) + "/" + format(end)
}
