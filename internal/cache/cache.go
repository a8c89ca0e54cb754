// Package cache implements the adaptive, value-aware semantic response cache:
// nearest-match lookup under per-bucket thresholds, multi-factor value scoring,
// batch eviction of low-value entries and closed-loop threshold retuning.
package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"adaptive-cache/internal/models"
	"adaptive-cache/internal/vector"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// SemanticCache is the single shared cache instance. One RWMutex guards the
// similarity index, the entry table, the threshold policy and the optimizer
// window as one unit: no concurrent reader ever observes a partially applied
// add, eviction or threshold adjustment. The slow external generation call
// happens strictly outside this lock, between Query reporting a miss and
// RecordMissResult being invoked.
type SemanticCache struct {
	mu sync.RWMutex

	cfg        models.SemanticCacheConfig
	index      *vector.Flat
	entries    map[string]*models.CacheEntry
	thresholds *ThresholdPolicy
	scorer     *ValueScorer
	admission  *AdmissionPolicy
	eviction   *EvictionManager
	optimizer  *Optimizer

	evictionLog []models.EvictionRecord
	metrics     models.CacheMetrics

	now func() time.Time
}

// Option customizes a SemanticCache.
type Option func(*SemanticCache)

// WithClock overrides the cache's time source. Used by tests to make recency
// decay and optimizer windows deterministic.
func WithClock(now func() time.Time) Option {
	return func(sc *SemanticCache) {
		sc.now = now
	}
}

// New creates a semantic cache from configuration. Zero-valued config fields
// fall back to defaults.
func New(cfg models.SemanticCacheConfig, opts ...Option) (*SemanticCache, error) {
	cfg.ApplyDefaults()
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", cfg.Dimension)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("invalid capacity: %d", cfg.Capacity)
	}

	scorer := NewValueScorer(cfg.Scoring)
	sc := &SemanticCache{
		cfg:        cfg,
		index:      vector.NewFlat(cfg.Dimension),
		entries:    make(map[string]*models.CacheEntry),
		thresholds: NewThresholdPolicy(cfg.Thresholds),
		scorer:     scorer,
		admission:  NewAdmissionPolicy(cfg.Admission),
		eviction:   NewEvictionManager(cfg.Eviction, scorer),
		optimizer:  NewOptimizer(cfg.Optimizer),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Dimension returns the embedding dimension the cache enforces.
func (sc *SemanticCache) Dimension() int {
	return sc.cfg.Dimension
}

// Query looks up the nearest cached entry for a query embedding. A hit updates
// the entry's value counters; both outcomes advance the optimizer window. The
// embedding must already be computed by the caller: an embedding failure is
// the caller's error, never a miss.
func (sc *SemanticCache) Query(text string, embedding []float32) (models.QueryResult, error) {
	vec, err := sc.prepareVector(embedding)
	if err != nil {
		return models.QueryResult{}, err
	}

	// Search phase: shared lock, concurrent with other searches.
	sc.mu.RLock()
	bucket := sc.thresholds.BucketFor(text)
	threshold := sc.thresholds.ThresholdFor(bucket)
	matches, err := sc.index.Search(vec, 1)
	sc.mu.RUnlock()
	if err != nil {
		return models.QueryResult{}, err
	}

	result := models.QueryResult{
		Bucket:        bucket,
		ThresholdUsed: threshold,
	}

	var bestID string
	if len(matches) > 0 {
		bestID = matches[0].ID
		result.BestSimilarity = float64(matches[0].Similarity)
	}

	// Update phase: exclusive lock for counters and the optimizer window.
	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := sc.now()
	sc.metrics.TotalRequests++

	entry := sc.entries[bestID]
	hit := entry != nil && result.BestSimilarity >= threshold
	if hit {
		similarity := result.BestSimilarity
		saved := entry.TotalTokens()

		entry.Hits++
		entry.LastAccess = now
		entry.SimilaritySum += similarity
		entry.TokensSaved += saved
		entry.CostSaved += entry.Cost

		sc.metrics.CacheHits++
		sc.metrics.TokensSaved += int64(saved)
		sc.metrics.CostSaved += entry.Cost

		result.Hit = true
		result.EntryID = entry.ID
		result.Response = entry.Response
		result.Similarity = similarity
		result.TokensSaved = saved
		result.CostSaved = entry.Cost

		fiberlog.Debugf("cache hit: similarity=%.4f threshold=%.4f bucket=%s", similarity, threshold, bucket)
	} else {
		sc.metrics.CacheMisses++
		fiberlog.Debugf("cache miss: best=%.4f threshold=%.4f bucket=%s", result.BestSimilarity, threshold, bucket)
	}

	sc.observeLocked(hit, now)

	return result, nil
}

// RecordMissResult decides whether a miss resolved by the external generator
// is worth caching, evicting a batch first if the cache is at capacity. The
// coverage similarity is recomputed under the lock so concurrent admissions
// cannot slip a near-duplicate in between search and store.
func (sc *SemanticCache) RecordMissResult(text string, embedding []float32, response string, inputTokens, outputTokens int, cost float64) (models.AdmissionDecision, error) {
	vec, err := sc.prepareVector(embedding)
	if err != nil {
		return models.AdmissionDecision{}, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := sc.now()
	tokens := inputTokens + outputTokens

	// The generation already happened; account for it whether or not we admit.
	sc.metrics.TokensUsed += int64(tokens)
	sc.metrics.TotalCost += cost

	matches, err := sc.index.Search(vec, 1)
	if err != nil {
		return models.AdmissionDecision{}, err
	}

	decision := models.AdmissionDecision{}
	hasBest := len(matches) > 0
	if hasBest {
		decision.BestSimilarity = float64(matches[0].Similarity)
	}

	admitted, reason := sc.admission.Decide(tokens, cost, decision.BestSimilarity, hasBest)
	decision.Admitted = admitted
	decision.Reason = reason
	if !admitted {
		fiberlog.Debugf("admission rejected: reason=%s tokens=%d cost=%.8f best=%.4f", reason, tokens, cost, decision.BestSimilarity)
		return decision, nil
	}

	if len(sc.entries) >= sc.cfg.Capacity {
		decision.Evicted = sc.evictLocked(now)
	}

	entry := &models.CacheEntry{
		ID:           uuid.NewString(),
		Query:        text,
		Embedding:    vec,
		Response:     response,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		CreatedAt:    now,
		LastAccess:   now,
	}

	if err := sc.index.Add(entry.ID, vec); err != nil {
		// A duplicate uuid or dimension drift here is a bug, not an operational
		// outcome.
		return decision, fmt.Errorf("index add failed: %w", err)
	}
	sc.entries[entry.ID] = entry
	sc.metrics.CacheSize = int64(len(sc.entries))
	sc.assertSizesLocked()

	decision.EntryID = entry.ID
	fiberlog.Debugf("admitted entry %s: tokens=%d cost=%.8f size=%d", entry.ID, tokens, cost, len(sc.entries))

	return decision, nil
}

// evictLocked removes one batch of lowest-value entries and appends their
// records to the bounded history log. Caller holds the write lock.
func (sc *SemanticCache) evictLocked(now time.Time) int {
	victims := sc.eviction.SelectVictims(sc.entries, sc.cfg.Capacity, now)

	for _, v := range victims {
		sc.evictionLog = append(sc.evictionLog, sc.eviction.Record(v, now))
		sc.index.Remove(v.entry.ID)
		delete(sc.entries, v.entry.ID)
		fiberlog.Infof("evicting entry %s: score=%.4f hits=%d age=%s", v.entry.ID, v.score, v.entry.Hits, v.entry.Age(now))
	}
	if limit := sc.eviction.HistorySize(); len(sc.evictionLog) > limit {
		sc.evictionLog = sc.evictionLog[len(sc.evictionLog)-limit:]
	}

	sc.metrics.Evictions += int64(len(victims))
	sc.metrics.CacheSize = int64(len(sc.entries))
	sc.assertSizesLocked()

	return len(victims)
}

// observeLocked advances the optimizer window and runs a cycle when due.
// Caller holds the write lock.
func (sc *SemanticCache) observeLocked(hit bool, now time.Time) {
	sc.optimizer.Observe(hit)
	if !sc.optimizer.Due() {
		return
	}
	decision := sc.optimizer.RunCycle(sc.thresholds, now)
	fiberlog.Infof("optimizer cycle %d: observed=%.3f target=%.3f direction=%s thresholds=%+v",
		decision.Cycle, decision.ObservedHitRate, decision.TargetHitRate, decision.Direction, decision.NewThresholds)
}

// assertSizesLocked panics when the index and entry table diverge. The two are
// mutated together under one lock; divergence is an internal bug that must not
// be repaired silently.
func (sc *SemanticCache) assertSizesLocked() {
	if sc.index.Len() != len(sc.entries) {
		panic(fmt.Sprintf("cache: index size %d != entry table size %d", sc.index.Len(), len(sc.entries)))
	}
}

// prepareVector validates the embedding dimension and returns a unit-normalized
// copy, keeping the stored-vectors-are-unit invariant independent of callers.
func (sc *SemanticCache) prepareVector(embedding []float32) ([]float32, error) {
	if len(embedding) != sc.cfg.Dimension {
		return nil, &vector.ErrDimensionMismatch{Expected: sc.cfg.Dimension, Actual: len(embedding)}
	}
	vec, ok := vector.NormalizeL2Copy(embedding)
	if !ok {
		return nil, models.NewValidationError("embedding has zero norm", nil)
	}
	return vec, nil
}

// Size returns the number of cached entries.
func (sc *SemanticCache) Size() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.entries)
}

// Metrics returns a copy of the process-lifetime counters.
func (sc *SemanticCache) Metrics() models.CacheMetrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	m := sc.metrics
	m.CacheSize = int64(len(sc.entries))
	return m
}

// Thresholds returns a copy of the current per-bucket thresholds.
func (sc *SemanticCache) Thresholds() models.BucketThresholds {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.thresholds.Current()
}

// OptimizerSummary reports the optimizer's position and recent decisions.
func (sc *SemanticCache) OptimizerSummary() models.OptimizerSummary {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.optimizer.Summary(sc.thresholds)
}

// Stats returns the detailed statistics payload.
func (sc *SemanticCache) Stats() models.CacheStats {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	stats := models.CacheStats{
		Size:            len(sc.entries),
		Capacity:        sc.cfg.Capacity,
		Thresholds:      sc.thresholds.Current(),
		OptimizerCycles: sc.optimizer.Cycles(),
		EvictionCount:   sc.metrics.Evictions,
	}
	if len(sc.entries) == 0 {
		return stats
	}

	now := sc.now()
	var totalHits int
	var totalAge float64
	var minScore, maxScore, sumScore float64
	first := true

	ranked := make([]*models.CacheEntry, 0, len(sc.entries))

	for _, e := range sc.entries {
		totalHits += e.Hits
		totalAge += e.Age(now).Seconds()
		ranked = append(ranked, e)

		score := sc.scorer.Score(e, now)
		sumScore += score
		if first || score < minScore {
			minScore = score
		}
		if first || score > maxScore {
			maxScore = score
		}
		first = false
	}

	stats.AvgHitsPerEntry = float64(totalHits) / float64(len(sc.entries))
	stats.AvgAgeSeconds = totalAge / float64(len(sc.entries))
	stats.ValueDistribution = models.ValueStats{
		Min: minScore,
		Max: maxScore,
		Avg: sumScore / float64(len(sc.entries)),
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Hits != ranked[j].Hits {
			return ranked[i].Hits > ranked[j].Hits
		}
		return ranked[i].ID < ranked[j].ID
	})
	const topN = 5
	for i := 0; i < len(ranked) && i < topN; i++ {
		e := ranked[i]
		stats.TopQueries = append(stats.TopQueries, models.TopQuery{
			Query:         truncate(e.Query, 100),
			Hits:          e.Hits,
			TokensSaved:   e.TokensSaved,
			AvgSimilarity: e.AvgSimilarity(),
		})
	}

	return stats
}

// Entries returns copies of up to limit entries for debugging, embeddings
// omitted.
func (sc *SemanticCache) Entries(limit int) []models.CacheEntry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	ids := make([]string, 0, len(sc.entries))
	for id := range sc.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}
	out := make([]models.CacheEntry, 0, limit)
	for _, id := range ids[:limit] {
		e := *sc.entries[id]
		e.Embedding = nil
		out = append(out, e)
	}
	return out
}

// EvictionHistory returns up to limit eviction records, most recent first.
func (sc *SemanticCache) EvictionHistory(limit int) []models.EvictionRecord {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	n := len(sc.evictionLog)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.EvictionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, sc.evictionLog[i])
	}
	return out
}

// Clear empties the entry table, the similarity index and the eviction
// history. Thresholds and the optimizer window survive: they encode learned
// matching behavior, not cache contents.
func (sc *SemanticCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.entries = make(map[string]*models.CacheEntry)
	sc.index.Clear()
	sc.evictionLog = nil
	sc.metrics.CacheSize = 0
	fiberlog.Info("cache cleared")
}

// Reset performs a full reset: Clear plus restoring the configured thresholds,
// zeroing the optimizer window and the cumulative metrics.
func (sc *SemanticCache) Reset() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.entries = make(map[string]*models.CacheEntry)
	sc.index.Clear()
	sc.evictionLog = nil
	sc.thresholds.ResetToInitial()
	sc.optimizer.ResetWindow()
	sc.metrics = models.CacheMetrics{}
	fiberlog.Info("cache fully reset")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
