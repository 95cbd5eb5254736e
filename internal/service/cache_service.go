package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

// CacheRepository stores JSON payloads under string keys.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the leave inbox and notice board reads. A nil
// service, or one without a repository, behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	// generation is bumped by every Invalidate.
	generation atomic.Uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled reports whether reads and writes reach the repository.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes the entry at key into dest. A miss is (false, nil).
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	hit := err == nil
	s.metrics.RecordCacheOperation(hit, time.Since(start))

	switch {
	case hit:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set writes value under key. ttl <= 0 uses the configured default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	s.generation.Add(1)
	err := s.repo.DeleteByPattern(ctx, pattern)
	if err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return err
}

func (s *CacheService) currentGeneration() uint64 {
	if s == nil {
		return 0
	}
	return s.generation.Load()
}

// cachedLoad returns the value cached at key, or runs load and caches what it
// returns. The bool reports a hit. Cache errors degrade to a plain load. A
// value loaded while an Invalidate ran is returned but not cached.
func cachedLoad[T any](ctx context.Context, cache *CacheService, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var cached T
	if hit, err := cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	gen := cache.currentGeneration()
	value, err := load(ctx)
	if err != nil {
		return value, false, err
	}
	if cache.currentGeneration() == gen {
		_ = cache.Set(ctx, key, value, 0)
	}
	return value, false, nil
}
