package batching

import (
	"fmt"
	"sync"
	"time"

	"adaptive-cache/internal/models"
)

// Close reasons recorded on a Batch.
const (
	CloseReasonTime   = "time"
	CloseReasonSize   = "size"
	CloseReasonTokens = "tokens"
	CloseReasonForce  = "force"
)

// Request is one pending cache miss waiting to be dispatched.
type Request struct {
	ID               string
	CreatedAt        time.Time
	Query            string
	TokenCount       int
	Model            string
	ExpectedOutput   string // "short", "medium" or "long"
	LatencyTolerance string // "low", "medium" or "high"
}

// Batch is a group of requests bound for the same model.
type Batch struct {
	ID          string
	Model       string
	CreatedAt   time.Time
	ClosedAt    time.Time
	CloseReason string

	Requests             []Request
	TotalInputTokens     int
	TotalEffectiveTokens int
}

// Size returns the number of requests in the batch.
func (b *Batch) Size() int { return len(b.Requests) }

// Wait returns how long the batch stayed open. Zero until closed.
func (b *Batch) Wait() time.Duration {
	if b.ClosedAt.IsZero() {
		return 0
	}
	return max(0, b.ClosedAt.Sub(b.CreatedAt))
}

// ModelWiseBatcher keeps one open batch per model and closes batches by
// policy. Add and the flush methods return whatever became closed so the
// caller can dispatch.
type ModelWiseBatcher struct {
	mu        sync.Mutex
	cfg       models.BatchingConfig
	open      map[string]*Batch
	nextBatch int
}

func NewModelWiseBatcher(cfg models.BatchingConfig) *ModelWiseBatcher {
	cfg.ApplyDefaults()
	return &ModelWiseBatcher{
		cfg:       cfg,
		open:      make(map[string]*Batch),
		nextBatch: 1,
	}
}

func (b *ModelWiseBatcher) newBatch(model string, now time.Time) *Batch {
	batch := &Batch{
		ID:        fmt.Sprintf("batch-%d", b.nextBatch),
		Model:     model,
		CreatedAt: now,
	}
	b.nextBatch++
	return batch
}

// policyForOpenBatch derives the policy from the batch's first request, which
// keeps the policy stable for the batch's whole lifetime.
func (b *ModelWiseBatcher) policyForOpenBatch(batch *Batch) Policy {
	if len(batch.Requests) == 0 {
		return Policy{
			MaxWait:        time.Duration(b.cfg.BaseWaitMs) * time.Millisecond,
			MaxBatchSize:   b.cfg.MaxBatchSize,
			MaxBatchTokens: b.cfg.MaxBatchTokens,
		}
	}
	return PolicyFor(batch.Requests[0], b.cfg)
}

// FlushDue closes every open batch that exceeded its max wait.
func (b *ModelWiseBatcher) FlushDue(now time.Time) []*Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushDueLocked(now)
}

func (b *ModelWiseBatcher) flushDueLocked(now time.Time) []*Batch {
	var closed []*Batch
	for model, batch := range b.open {
		if len(batch.Requests) == 0 {
			continue
		}
		pol := b.policyForOpenBatch(batch)
		if now.Sub(batch.CreatedAt) >= pol.MaxWait {
			batch.ClosedAt = now
			batch.CloseReason = CloseReasonTime
			closed = append(closed, batch)
			delete(b.open, model)
		}
	}
	return closed
}

// FlushAll force-closes every open batch, due or not.
func (b *ModelWiseBatcher) FlushAll(now time.Time) []*Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	var closed []*Batch
	for model, batch := range b.open {
		if len(batch.Requests) > 0 {
			batch.ClosedAt = now
			batch.CloseReason = CloseReasonForce
			closed = append(closed, batch)
		}
		delete(b.open, model)
	}
	return closed
}

// Add places a request into its model's open batch and returns any batches
// that became closed, including batches of other models that timed out.
func (b *ModelWiseBatcher) Add(req Request, now time.Time) []*Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed := b.flushDueLocked(now)

	batch, ok := b.open[req.Model]
	if !ok {
		batch = b.newBatch(req.Model, now)
		b.open[req.Model] = batch
	}

	pol := PolicyFor(req, b.cfg)
	effTokens := EffectiveTokens(req.TokenCount, req.ExpectedOutput)

	wouldExceedSize := batch.Size()+1 > pol.MaxBatchSize
	wouldExceedTokens := batch.TotalEffectiveTokens+effTokens > pol.MaxBatchTokens

	// A batch the request cannot join is closed, and the request opens a
	// fresh one.
	if batch.Size() > 0 && (wouldExceedSize || wouldExceedTokens) {
		batch.ClosedAt = now
		if wouldExceedSize {
			batch.CloseReason = CloseReasonSize
		} else {
			batch.CloseReason = CloseReasonTokens
		}
		closed = append(closed, batch)

		batch = b.newBatch(req.Model, now)
		b.open[req.Model] = batch
	}

	batch.Requests = append(batch.Requests, req)
	batch.TotalInputTokens += max(0, req.TokenCount)
	batch.TotalEffectiveTokens += effTokens

	switch {
	case batch.Size() >= pol.MaxBatchSize:
		batch.ClosedAt = now
		batch.CloseReason = CloseReasonSize
		closed = append(closed, batch)
		delete(b.open, req.Model)
	case batch.TotalEffectiveTokens >= pol.MaxBatchTokens:
		batch.ClosedAt = now
		batch.CloseReason = CloseReasonTokens
		closed = append(closed, batch)
		delete(b.open, req.Model)
	}

	return closed
}

// OpenBatches reports how many batches are currently open.
func (b *ModelWiseBatcher) OpenBatches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}
