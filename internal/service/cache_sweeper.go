package service

import (
	"context"
	"log"
	"time"
)

// CacheSweeper periodically deletes expired job cache entries. Reads
// filter on expiry themselves, so the sweep only reclaims space and is
// safe to run concurrently with them.
type CacheSweeper struct {
	jobService JobService
	interval   time.Duration
}

// NewCacheSweeper creates a new CacheSweeper.
func NewCacheSweeper(jobService JobService, interval time.Duration) *CacheSweeper {
	return &CacheSweeper{jobService: jobService, interval: interval}
}

// Start runs the sweep loop until ctx is canceled.
func (s *CacheSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("cacheSweeper: started (interval=%s)", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("cacheSweeper: shutdown complete")
			return
		case <-ticker.C:
			if _, err := s.jobService.CleanupExpiredCache(ctx); err != nil {
				log.Printf("cacheSweeper: %v", err)
			}
		}
	}
}
