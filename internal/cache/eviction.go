package cache

import (
	"math"
	"sort"
	"time"

	"adaptive-cache/internal/models"
)

// EvictionManager picks the lowest-value fraction of entries when the cache is
// full. It is value-proportional, not LRU: a recently touched single-hit entry
// can be evicted ahead of an older, frequently hit one.
type EvictionManager struct {
	cfg    models.EvictionConfig
	scorer *ValueScorer
}

// NewEvictionManager creates an eviction manager using the given scorer.
func NewEvictionManager(cfg models.EvictionConfig, scorer *ValueScorer) *EvictionManager {
	return &EvictionManager{cfg: cfg, scorer: scorer}
}

// BatchSize returns the number of entries evicted per batch for a given
// capacity: ceil(capacity * fraction), minimum one.
func (em *EvictionManager) BatchSize(capacity int) int {
	n := int(math.Ceil(float64(capacity) * em.cfg.Fraction))
	if n < 1 {
		n = 1
	}
	return n
}

type scoredEntry struct {
	entry *models.CacheEntry
	score float64
}

// SelectVictims scores every entry at the given instant and returns the batch
// with the lowest scores, ascending. Ties go to the older entry by creation
// time, then to the lower hit count, then to the smaller id so selection stays
// deterministic. Callers must not invoke this on an empty entry table; full
// capacity and an empty table are mutually exclusive by invariant.
func (em *EvictionManager) SelectVictims(entries map[string]*models.CacheEntry, capacity int, now time.Time) []scoredEntry {
	if len(entries) == 0 {
		panic("cache: eviction requested on empty entry table")
	}

	scored := make([]scoredEntry, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, scoredEntry{entry: e, score: em.scorer.Score(e, now)})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score < b.score
		}
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.Before(b.entry.CreatedAt)
		}
		if a.entry.Hits != b.entry.Hits {
			return a.entry.Hits < b.entry.Hits
		}
		return a.entry.ID < b.entry.ID
	})

	n := em.BatchSize(capacity)
	if n > len(scored) {
		n = len(scored)
	}
	return scored[:n]
}

// Record builds the immutable snapshot appended to the eviction history.
func (em *EvictionManager) Record(se scoredEntry, now time.Time) models.EvictionRecord {
	return models.EvictionRecord{
		EntryID:       se.entry.ID,
		Query:         se.entry.Query,
		ValueScore:    se.score,
		Hits:          se.entry.Hits,
		Age:           se.entry.Age(now),
		AvgSimilarity: se.entry.AvgSimilarity(),
		TokensSaved:   se.entry.TokensSaved,
		EvictedAt:     now,
		Reason:        models.EvictionReasonLowValue,
	}
}

// HistorySize returns the configured bound of the eviction record log.
func (em *EvictionManager) HistorySize() int {
	return em.cfg.HistorySize
}
