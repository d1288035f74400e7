package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

// CacheStore is the slice of the cache repository the service layer uses.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the cache store with a default TTL, an on/off switch
// and request collapsing so concurrent misses for the same key run the
// loader only once. All failures degrade to loading from the store; a broken
// cache never breaks a read.
type CacheService struct {
	store   CacheStore
	group   singleflight.Group
	ttl     time.Duration
	enabled bool
	metrics *MetricsService
	logger  *zap.Logger
}

func NewCacheService(store CacheStore, ttl time.Duration, enabled bool, metrics *MetricsService, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CacheService{
		store:   store,
		ttl:     ttl,
		enabled: enabled && store != nil,
		metrics: metrics,
		logger:  logger,
	}
}

// Enabled reports whether reads should consult the cache at all.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled
}

// Get fills dest from the cache. It returns false on a miss or any cache
// failure.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	err := s.store.Get(ctx, key, dest)
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(true)
		}
		return true
	}
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(false)
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

// Set stores value under key with the default TTL. Failures are logged and
// swallowed.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if !s.Enabled() {
		return
	}
	if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Do collapses concurrent calls for the same key into one execution of fn.
// When the cache is disabled fn runs directly.
func (s *CacheService) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	if !s.Enabled() {
		return fn()
	}
	v, err, _ := s.group.Do(key, fn)
	return v, err
}

// Invalidate drops every cached entry matching the given patterns. Called
// after each successful mutation so reads never serve data older than the
// write that followed them.
func (s *CacheService) Invalidate(ctx context.Context, patterns ...string) {
	if !s.Enabled() {
		return
	}
	for _, pattern := range patterns {
		if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
