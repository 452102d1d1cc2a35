package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
)

const summaryFillTimeout = 30 * time.Second

// SummaryService caches analytics summaries per owner. Every write of an
// owner bumps its generation, so older entries are never served again.
type SummaryService struct {
	analytics *analytics.Service
	loader    *cache.Loader[analytics.Summary]
	now       func() time.Time

	mu          sync.Mutex
	generations map[int64]uint64
}

func NewSummaryService(store analytics.Store, c *cache.LRUCache[analytics.Summary]) *SummaryService {
	return newSummaryService(store, c, time.Now)
}

func newSummaryService(store analytics.Store, c *cache.LRUCache[analytics.Summary], now func() time.Time) *SummaryService {
	return &SummaryService{
		analytics:   analytics.NewService(store, analytics.WithClock(now)),
		loader:      cache.NewLoader(c),
		now:         now,
		generations: map[int64]uint64{},
	}
}

func (s *SummaryService) generation(ownerID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[ownerID]
}

// Invalidate forgets every cached summary of ownerID.
func (s *SummaryService) Invalidate(ownerID int64) {
	s.mu.Lock()
	s.generations[ownerID]++
	s.mu.Unlock()
	s.loader.Cache().DeletePrefix(ownerPrefix(ownerID))
}

func ownerPrefix(ownerID int64) string {
	return fmt.Sprintf("%d:", ownerID)
}

// Summarize validates the request, then serves it from the cache or computes it.
func (s *SummaryService) Summarize(ctx context.Context, ownerID int64, kind core.Kind, intervalKey, calculation string) (analytics.Summary, error) {
	if !kind.Valid() {
		return analytics.Summary{}, core.ErrUnknownKind
	}
	iv, err := analytics.ResolveInterval(intervalKey)
	if err != nil {
		return analytics.Summary{}, err
	}
	calc, err := analytics.ParseCalculationType(calculation)
	if err != nil {
		return analytics.Summary{}, err
	}

	today := core.DateOf(s.now().UTC())
	key := fmt.Sprintf("%s%d:%s:%s:%s:%s", ownerPrefix(ownerID), s.generation(ownerID), kind, iv.Key, calc, today)
	out, cached, err := s.loader.Get(key, func() (analytics.Summary, error) {
		// The fill is shared by every waiter on key, so it must not die with
		// the first caller's request.
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryFillTimeout)
		defer cancel()
		return s.analytics.Summarize(fillCtx, ownerID, kind, iv.Key, string(calc))
	})
	if err != nil {
		return analytics.Summary{}, err
	}
	slog.DebugContext(ctx, "Summary served", "user_id", ownerID, "kind", kind,
		"interval", iv.Key, "calculation_type", calc, "cached", cached)
	return out, nil
}

// CacheStats reports hit and miss counts of the summary cache.
func (s *SummaryService) CacheStats() cache.Stats {
	return s.loader.Cache().Stats()
}
