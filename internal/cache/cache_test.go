package cache

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"adaptive-cache/internal/models"
	"adaptive-cache/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(dim, capacity int) models.SemanticCacheConfig {
	cfg := models.DefaultSemanticCacheConfig()
	cfg.Dimension = dim
	cfg.Capacity = capacity
	return cfg
}

func newTestCache(t *testing.T, cfg models.SemanticCacheConfig) (*SemanticCache, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	sc, err := New(cfg, WithClock(clock.Now))
	require.NoError(t, err)
	return sc, clock
}

// unit returns a one-hot unit vector of dimension dim.
func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

// withSimilarity returns a unit vector whose cosine similarity to unit(dim, 0)
// is exactly sim.
func withSimilarity(dim int, sim float64) []float32 {
	v := make([]float32, dim)
	v[0] = float32(sim)
	v[1] = float32(math.Sqrt(1 - sim*sim))
	return v
}

func admit(t *testing.T, sc *SemanticCache, text string, vec []float32, inTok, outTok int, cost float64) models.AdmissionDecision {
	t.Helper()
	decision, err := sc.RecordMissResult(text, vec, "response for "+text, inTok, outTok, cost)
	require.NoError(t, err)
	require.True(t, decision.Admitted, "expected admission, got reason %s", decision.Reason)
	return decision
}

func TestQueryHitScenario(t *testing.T) {
	// Stored: "What is the capital of France?" -> "Paris", 125 tokens, cost
	// 0.000234. Queried with a paraphrase whose vector is 0.9456 similar,
	// against a medium-bucket threshold of 0.88.
	cfg := testConfig(8, 100)
	sc, _ := newTestCache(t, cfg)

	store := unit(8, 0)
	decision, err := sc.RecordMissResult("what is the capital of france?", store, "Paris", 25, 100, 0.000234)
	require.NoError(t, err)
	require.True(t, decision.Admitted)

	query := "what is the capital city of france? i would really like to know."
	require.GreaterOrEqual(t, len(query), cfg.Thresholds.ShortMaxLen, "query must land in the medium bucket")
	require.LessOrEqual(t, len(query), cfg.Thresholds.MediumMaxLen)

	result, err := sc.Query(query, withSimilarity(8, 0.9456))
	require.NoError(t, err)

	assert.True(t, result.Hit)
	assert.Equal(t, "Paris", result.Response)
	assert.Equal(t, models.BucketMedium, result.Bucket)
	assert.InDelta(t, 0.88, result.ThresholdUsed, 1e-9)
	assert.InDelta(t, 0.9456, result.Similarity, 1e-3)
	assert.Equal(t, 125, result.TokensSaved)
	assert.InDelta(t, 0.000234, result.CostSaved, 1e-9)

	m := sc.Metrics()
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(125), m.TokensSaved)
}

func TestQueryMissDissimilar(t *testing.T) {
	sc, _ := newTestCache(t, testConfig(8, 100))
	admit(t, sc, "what is the capital of france?", unit(8, 0), 25, 100, 0.000234)

	result, err := sc.Query("explain quantum computing", withSimilarity(8, 0.10))
	require.NoError(t, err)

	assert.False(t, result.Hit)
	assert.InDelta(t, 0.10, result.BestSimilarity, 1e-3)
	assert.Equal(t, int64(1), sc.Metrics().CacheMisses)
}

func TestQueryEmptyCache(t *testing.T) {
	sc, _ := newTestCache(t, testConfig(4, 10))

	result, err := sc.Query("anything", unit(4, 0))
	require.NoError(t, err)
	assert.False(t, result.Hit)
	assert.Zero(t, result.BestSimilarity)
}

func TestQueryDimensionMismatch(t *testing.T) {
	sc, _ := newTestCache(t, testConfig(8, 10))

	_, err := sc.Query("q", unit(4, 0))
	require.Error(t, err)
	assert.IsType(t, &vector.ErrDimensionMismatch{}, err)

	// No state change: the failed query is not counted.
	assert.Zero(t, sc.Metrics().TotalRequests)
}

func TestHitUpdatesEntryCounters(t *testing.T) {
	sc, clock := newTestCache(t, testConfig(8, 10))
	admit(t, sc, "q", unit(8, 0), 10, 40, 0.001)

	clock.Advance(time.Minute)
	_, err := sc.Query("q", withSimilarity(8, 0.95))
	require.NoError(t, err)
	_, err = sc.Query("q", withSimilarity(8, 0.93))
	require.NoError(t, err)

	entries := sc.Entries(1)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, 2, e.Hits)
	assert.InDelta(t, 0.94, e.AvgSimilarity(), 1e-3)
	assert.Equal(t, 100, e.TokensSaved)
	assert.InDelta(t, 0.002, e.CostSaved, 1e-9)
}

func TestAdmissionRules(t *testing.T) {
	t.Run("RejectsShortResponse", func(t *testing.T) {
		sc, _ := newTestCache(t, testConfig(8, 10))

		// 5 tokens is below MIN_TOKENS regardless of cost or coverage.
		decision, err := sc.RecordMissResult("q", unit(8, 0), "ok", 2, 3, 1.0)
		require.NoError(t, err)
		assert.False(t, decision.Admitted)
		assert.Equal(t, models.AdmissionTooShort, decision.Reason)
		assert.Zero(t, sc.Size())
	})

	t.Run("RejectsLongResponse", func(t *testing.T) {
		sc, _ := newTestCache(t, testConfig(8, 10))

		decision, err := sc.RecordMissResult("q", unit(8, 0), "long", 2000, 2500, 1.0)
		require.NoError(t, err)
		assert.False(t, decision.Admitted)
		assert.Equal(t, models.AdmissionTooLong, decision.Reason)
	})

	t.Run("RejectsCheapResponse", func(t *testing.T) {
		sc, _ := newTestCache(t, testConfig(8, 10))

		decision, err := sc.RecordMissResult("q", unit(8, 0), "cheap", 50, 50, 0.0000001)
		require.NoError(t, err)
		assert.False(t, decision.Admitted)
		assert.Equal(t, models.AdmissionTooCheap, decision.Reason)
	})

	t.Run("RejectsCoveredCandidate", func(t *testing.T) {
		sc, _ := newTestCache(t, testConfig(8, 10))
		admit(t, sc, "existing", unit(8, 0), 20, 80, 0.001)

		// 0.99 similar to the stored entry: redundant coverage.
		decision, err := sc.RecordMissResult("candidate", withSimilarity(8, 0.99), "dup", 20, 80, 0.001)
		require.NoError(t, err)
		assert.False(t, decision.Admitted)
		assert.Equal(t, models.AdmissionCovered, decision.Reason)
		assert.Equal(t, 1, sc.Size())
	})

	t.Run("AdmitsValidResult", func(t *testing.T) {
		sc, _ := newTestCache(t, testConfig(8, 10))

		decision, err := sc.RecordMissResult("q", unit(8, 0), "good", 20, 80, 0.001)
		require.NoError(t, err)
		assert.True(t, decision.Admitted)
		assert.Equal(t, models.AdmissionAdmitted, decision.Reason)
		assert.NotEmpty(t, decision.EntryID)
		assert.Equal(t, 1, sc.Size())
	})
}

func TestEvictionBatchOnFullCache(t *testing.T) {
	// Capacity 25, fraction 0.10: inserting entry #26 evicts ceil(2.5)=3.
	cfg := testConfig(32, 25)
	sc, clock := newTestCache(t, cfg)

	for i := range 25 {
		admit(t, sc, fmt.Sprintf("query-%d", i), unit(32, i), 20, 80, 0.001)
		clock.Advance(time.Second)
	}
	require.Equal(t, 25, sc.Size())

	decision := admit(t, sc, "query-25", unit(32, 25), 20, 80, 0.001)
	assert.Equal(t, 3, decision.Evicted)
	assert.Equal(t, 23, sc.Size())

	history := sc.EvictionHistory(0)
	require.Len(t, history, 3)
	for _, rec := range history {
		assert.Equal(t, models.EvictionReasonLowValue, rec.Reason)
	}
	assert.Equal(t, int64(3), sc.Metrics().Evictions)
}

func TestEvictionSelectsLowestValue(t *testing.T) {
	// Give entries distinct hit counts; eviction must take the lowest-scored
	// ones and never a higher-scored entry while a lower one remains.
	cfg := testConfig(32, 10)
	sc, clock := newTestCache(t, cfg)

	for i := range 10 {
		admit(t, sc, fmt.Sprintf("query-%d", i), unit(32, i), 20, 80, 0.001)
		clock.Advance(time.Second)
	}

	// Entries 2..9 get hits proportional to their index; 0 and 1 stay cold.
	for i := 2; i < 10; i++ {
		for range i {
			_, err := sc.Query(fmt.Sprintf("query-%d", i), unit(32, i))
			require.NoError(t, err)
		}
	}

	decision := admit(t, sc, "query-new", unit(32, 10), 20, 80, 0.001)
	assert.Equal(t, 1, decision.Evicted)

	history := sc.EvictionHistory(1)
	require.Len(t, history, 1)
	assert.Equal(t, "query-0", history[0].Query)
}

func TestCapacityInvariant(t *testing.T) {
	cfg := testConfig(32, 5)
	sc, clock := newTestCache(t, cfg)

	for i := range 30 {
		decision, err := sc.RecordMissResult(fmt.Sprintf("query-%d", i), unit(32, i%32), "resp", 20, 80, 0.001)
		require.NoError(t, err)
		_ = decision
		assert.LessOrEqual(t, sc.Size(), 5)
		clock.Advance(time.Second)
	}
}

func TestOptimizerRelaxScenario(t *testing.T) {
	// 50-request window with 10 hits: rate 0.20 against target 0.40, so every
	// bucket threshold drops by exactly one step.
	cfg := testConfig(8, 100)
	sc, _ := newTestCache(t, cfg)
	admit(t, sc, "hot query", unit(8, 0), 20, 80, 0.001)

	before := sc.Thresholds()

	for range 10 {
		result, err := sc.Query("hot query", unit(8, 0))
		require.NoError(t, err)
		require.True(t, result.Hit)
	}
	for range 40 {
		result, err := sc.Query("something else entirely", unit(8, 4))
		require.NoError(t, err)
		require.False(t, result.Hit)
	}

	after := sc.Thresholds()
	step := cfg.Optimizer.Step
	assert.InDelta(t, before.Short-step, after.Short, 1e-9)
	assert.InDelta(t, before.Medium-step, after.Medium, 1e-9)
	assert.InDelta(t, before.Long-step, after.Long, 1e-9)

	summary := sc.OptimizerSummary()
	assert.Equal(t, 1, summary.Cycles)
	require.Len(t, summary.RecentDecisions, 1)
	assert.Equal(t, models.AdjustmentRelaxed, summary.RecentDecisions[0].Direction)
	assert.InDelta(t, 0.20, summary.RecentDecisions[0].ObservedHitRate, 1e-9)
}

func TestOptimizerTightenAndHold(t *testing.T) {
	cfg := testConfig(8, 100)
	sc, _ := newTestCache(t, cfg)
	admit(t, sc, "hot query", unit(8, 0), 20, 80, 0.001)

	before := sc.Thresholds()

	// All 50 requests hit: rate 1.0 is above target + tolerance.
	for range 50 {
		result, err := sc.Query("hot query", unit(8, 0))
		require.NoError(t, err)
		require.True(t, result.Hit)
	}
	after := sc.Thresholds()
	assert.InDelta(t, before.Short+cfg.Optimizer.Step, after.Short, 1e-9)

	// A window at exactly the target holds thresholds steady: 20 hits, 30
	// misses is 0.40.
	held := sc.Thresholds()
	for range 20 {
		_, err := sc.Query("hot query", unit(8, 0))
		require.NoError(t, err)
	}
	for range 30 {
		_, err := sc.Query("unrelated", unit(8, 4))
		require.NoError(t, err)
	}
	assert.Equal(t, held, sc.Thresholds())
	assert.Equal(t, 2, sc.OptimizerSummary().Cycles)
}

func TestThresholdBounds(t *testing.T) {
	cfg := testConfig(8, 100)
	sc, _ := newTestCache(t, cfg)

	// Hundreds of all-miss windows drive thresholds to the floor, never below.
	for range 40 * cfg.Optimizer.Interval {
		_, err := sc.Query("never matches", unit(8, 3))
		require.NoError(t, err)
	}

	th := sc.Thresholds()
	assert.GreaterOrEqual(t, th.Short, cfg.Thresholds.Min)
	assert.GreaterOrEqual(t, th.Medium, cfg.Thresholds.Min)
	assert.GreaterOrEqual(t, th.Long, cfg.Thresholds.Min)
	assert.InDelta(t, cfg.Thresholds.Min, th.Long, 1e-9)
}

func TestClearKeepsLearnedState(t *testing.T) {
	cfg := testConfig(8, 100)
	sc, _ := newTestCache(t, cfg)
	admit(t, sc, "q", unit(8, 0), 20, 80, 0.001)

	// Drive one relax cycle so thresholds differ from the bootstrap values.
	for range cfg.Optimizer.Interval {
		_, err := sc.Query("never matches", unit(8, 3))
		require.NoError(t, err)
	}
	learned := sc.Thresholds()
	require.NotEqual(t, cfg.Thresholds.Initial, learned)

	sc.Clear()

	assert.Zero(t, sc.Size())
	assert.Empty(t, sc.EvictionHistory(0))
	// Learned thresholds survive a clear.
	assert.Equal(t, learned, sc.Thresholds())

	sc.Reset()
	assert.Equal(t, cfg.Thresholds.Initial, sc.Thresholds())
	assert.Zero(t, sc.Metrics().TotalRequests)
}

func TestEvictionHistoryOrderAndBound(t *testing.T) {
	cfg := testConfig(32, 4)
	cfg.Eviction.HistorySize = 5
	sc, clock := newTestCache(t, cfg)

	for i := range 20 {
		_, err := sc.RecordMissResult(fmt.Sprintf("query-%d", i), unit(32, i%32), "resp", 20, 80, 0.001)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	history := sc.EvictionHistory(0)
	assert.LessOrEqual(t, len(history), 5)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].EvictedAt.After(history[i-1].EvictedAt), "history must be most recent first")
	}

	limited := sc.EvictionHistory(2)
	assert.Len(t, limited, 2)
}

func TestConcurrentQueries(t *testing.T) {
	cfg := testConfig(8, 50)
	sc, _ := newTestCache(t, cfg)
	admit(t, sc, "shared query", unit(8, 0), 20, 80, 0.001)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range 50 {
				if (worker+i)%3 == 0 {
					_, err := sc.RecordMissResult(fmt.Sprintf("w%d-q%d", worker, i), unit(8, (worker+i)%8), "resp", 20, 80, 0.001)
					assert.NoError(t, err)
				} else {
					_, err := sc.Query("shared query", unit(8, 0))
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, sc.Size(), 50)
}
