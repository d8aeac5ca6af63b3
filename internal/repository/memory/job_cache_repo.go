package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type jobCacheRepo struct {
	cache *gocache.Cache
}

// NewJobCacheRepo creates a new in-memory JobCacheRepository backed by
// an expiring cache. Entry lifetimes come from each entry's ExpiresAt,
// so the cache's own default expiration is unused.
func NewJobCacheRepo() port.JobCacheRepository {
	return &jobCacheRepo{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func cacheKeyFor(jobID uuid.UUID, cacheKey string) string {
	return jobID.String() + "/" + cacheKey
}

func (r *jobCacheRepo) Put(ctx context.Context, entry *domain.JobCacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		// Already expired on arrival; make sure no stale entry survives.
		r.cache.Delete(cacheKeyFor(entry.JobID, entry.CacheKey))
		return nil
	}
	r.cache.Set(cacheKeyFor(entry.JobID, entry.CacheKey), *entry, ttl)
	return nil
}

func (r *jobCacheRepo) Get(ctx context.Context, jobID uuid.UUID, cacheKey string) (*domain.JobCacheEntry, error) {
	v, ok := r.cache.Get(cacheKeyFor(jobID, cacheKey))
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry := v.(domain.JobCacheEntry)
	if !entry.ExpiresAt.After(time.Now().UTC()) {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

func (r *jobCacheRepo) DeleteExpired(ctx context.Context) (int64, error) {
	before := r.cache.ItemCount()
	r.cache.DeleteExpired()
	removed := before - r.cache.ItemCount()
	if removed < 0 {
		removed = 0
	}
	return int64(removed), nil
}
