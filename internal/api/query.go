package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/singleflight"

	"adaptive-cache/internal/cache"
	"adaptive-cache/internal/models"
	"adaptive-cache/internal/services/batching"
	"adaptive-cache/internal/services/embeddings"
	"adaptive-cache/internal/services/exactcache"
	"adaptive-cache/internal/services/generation"
	"adaptive-cache/internal/services/metricslog"
)

// QueryHandler serves POST /v1/query: exact tier, then semantic tier, then
// generation on a miss.
type QueryHandler struct {
	cache      *cache.SemanticCache
	embedder   embeddings.Provider
	generator  generation.Generator
	exactTier  *exactcache.ExactCache
	metricsLog *metricslog.Writer
	batcher    *batching.ModelWiseBatcher
	provider   string
	model      string

	// Coalesces concurrent misses for the same normalized query so one
	// burst triggers a single embedding and a single generation.
	group singleflight.Group
}

func NewQueryHandler(
	semanticCache *cache.SemanticCache,
	embedder embeddings.Provider,
	generator generation.Generator,
	exactTier *exactcache.ExactCache,
	metricsLog *metricslog.Writer,
	genCfg models.GenerationConfig,
	batchCfg models.BatchingConfig,
) *QueryHandler {
	h := &QueryHandler{
		cache:      semanticCache,
		embedder:   embedder,
		generator:  generator,
		exactTier:  exactTier,
		metricsLog: metricsLog,
		provider:   genCfg.Provider,
		model:      genCfg.Model,
	}
	if batchCfg.Enabled {
		h.batcher = batching.NewModelWiseBatcher(batchCfg)
	}
	return h
}

// queryOutcome is the tier-independent result the response is built from.
type queryOutcome struct {
	response      string
	cached        bool
	tier          string
	similarity    float64
	hasSimilarity bool
	inputTokens   int
	outputTokens  int
	tokensUsed    int
	tokensSaved   int
	cost          float64
	costSaved     float64
	thresholdUsed float64
	entryID       string
	batchID       string
}

// Query handles one query request end to end.
func (h *QueryHandler) Query(c *fiber.Ctx) error {
	requestID := getRequestID(c)
	start := time.Now()

	var req models.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid JSON in request body", err), requestID)
	}

	normalized := embeddings.NormalizeText(req.Query)
	if normalized == "" {
		return respondError(c, models.NewValidationError("query must not be empty", nil), requestID)
	}

	fiberlog.Debugf("[%s] query received (%d chars normalized)", requestID, len(normalized))

	outcome, err := h.resolve(c.UserContext(), requestID, req.Query, normalized)
	if err != nil {
		h.recordMetric(requestID, outcome, start, err)
		return respondError(c, err, requestID)
	}

	h.recordMetric(requestID, outcome, start, nil)

	resp := models.QueryResponse{
		Response:      outcome.response,
		Cached:        outcome.cached,
		CacheTier:     outcome.tier,
		TokensUsed:    outcome.tokensUsed,
		TokensSaved:   outcome.tokensSaved,
		Cost:          outcome.cost,
		CostSaved:     outcome.costSaved,
		LatencyMs:     float64(time.Since(start).Microseconds()) / 1000.0,
		ThresholdUsed: outcome.thresholdUsed,
		EntryID:       outcome.entryID,
	}
	if outcome.hasSimilarity {
		sim := outcome.similarity
		resp.SimilarityScore = &sim
	}

	return c.JSON(resp)
}

// resolve runs the tiers in order. Concurrent identical queries share one
// execution through singleflight.
func (h *QueryHandler) resolve(ctx context.Context, requestID, original, normalized string) (*queryOutcome, error) {
	v, err, shared := h.group.Do(normalized, func() (any, error) {
		return h.resolveOnce(ctx, requestID, original, normalized)
	})
	if err != nil {
		return &queryOutcome{}, err
	}
	if shared {
		fiberlog.Debugf("[%s] coalesced with an in-flight identical query", requestID)
	}
	return v.(*queryOutcome), nil
}

func (h *QueryHandler) resolveOnce(ctx context.Context, requestID, original, normalized string) (*queryOutcome, error) {
	// Exact tier answers before any embedding is computed.
	if cached, ok := h.exactTier.Get(ctx, normalized); ok {
		fiberlog.Infof("[%s] exact cache hit", requestID)
		return &queryOutcome{
			response:    cached.Response,
			cached:      true,
			tier:        models.CacheTierExact,
			tokensSaved: cached.InputTokens + cached.OutputTokens,
			costSaved:   cached.Cost,
		}, nil
	}

	embedding, err := h.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, err
	}

	result, err := h.cache.Query(normalized, embedding)
	if err != nil {
		return nil, err
	}

	if result.Hit {
		fiberlog.Infof("[%s] semantic cache hit (similarity %.4f >= threshold %.4f)",
			requestID, result.Similarity, result.ThresholdUsed)
		return &queryOutcome{
			response:      result.Response,
			cached:        true,
			tier:          models.CacheTierSemantic,
			similarity:    result.Similarity,
			hasSimilarity: true,
			tokensSaved:   result.TokensSaved,
			costSaved:     result.CostSaved,
			thresholdUsed: result.ThresholdUsed,
			entryID:       result.EntryID,
		}, nil
	}

	fiberlog.Debugf("[%s] cache miss (best similarity %.4f < threshold %.4f), generating",
		requestID, result.BestSimilarity, result.ThresholdUsed)

	batchID := h.trackMiss(requestID, normalized)

	// Generation runs outside every cache lock.
	gen, err := h.generator.Generate(ctx, original)
	if err != nil {
		return nil, err
	}

	decision, err := h.cache.RecordMissResult(normalized, embedding, gen.Text,
		gen.InputTokens, gen.OutputTokens, gen.Cost)
	if err != nil {
		return nil, err
	}

	if decision.Admitted {
		fiberlog.Infof("[%s] miss result admitted as entry %s (evicted %d)",
			requestID, decision.EntryID, decision.Evicted)
	} else {
		fiberlog.Infof("[%s] miss result rejected: %s", requestID, decision.Reason)
	}

	h.exactTier.Set(ctx, normalized, &exactcache.CachedResponse{
		Response:     gen.Text,
		InputTokens:  gen.InputTokens,
		OutputTokens: gen.OutputTokens,
		Cost:         gen.Cost,
	})

	sim := result.BestSimilarity
	return &queryOutcome{
		response:      gen.Text,
		similarity:    sim,
		hasSimilarity: sim > 0,
		inputTokens:   gen.InputTokens,
		outputTokens:  gen.OutputTokens,
		tokensUsed:    gen.InputTokens + gen.OutputTokens,
		cost:          gen.Cost,
		thresholdUsed: result.ThresholdUsed,
		entryID:       decision.EntryID,
		batchID:       batchID,
	}, nil
}

// trackMiss registers the miss with the model-wise batcher and returns the
// batch id the request landed in, if it closed a batch.
func (h *QueryHandler) trackMiss(requestID, normalized string) string {
	if h.batcher == nil {
		return ""
	}

	now := time.Now()
	closed := h.batcher.Add(batching.Request{
		ID:         requestID,
		CreatedAt:  now,
		Query:      normalized,
		TokenCount: len(normalized) / 4,
		Model:      h.model,
	}, now)

	var batchID string
	for _, batch := range closed {
		fiberlog.Debugf("[%s] batch %s closed (%s): %d requests, %d effective tokens",
			requestID, batch.ID, batch.CloseReason, batch.Size(), batch.TotalEffectiveTokens)
		for _, r := range batch.Requests {
			if r.ID == requestID {
				batchID = batch.ID
			}
		}
	}
	return batchID
}

func (h *QueryHandler) recordMetric(requestID string, outcome *queryOutcome, start time.Time, err error) {
	if !h.metricsLog.Enabled() {
		return
	}

	metric := &metricslog.RequestMetric{
		RequestID: requestID,
		Provider:  h.provider,
		Model:     h.model,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Status:    "success",
	}
	if err != nil {
		metric.Status = "error"
		metric.ErrorMessage = err.Error()
	} else if outcome != nil {
		metric.InputTokens = outcome.inputTokens
		metric.OutputTokens = outcome.outputTokens
		metric.Cost = outcome.cost
		metric.CostSaved = outcome.costSaved
		metric.CacheHit = outcome.cached
		metric.CacheTier = outcome.tier
		metric.SimilarityScore = outcome.similarity
		metric.ThresholdUsed = outcome.thresholdUsed
		metric.BatchID = outcome.batchID
	}

	h.metricsLog.Record(metric)
}
