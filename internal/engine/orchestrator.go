package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hireloop/matchengine/internal/embedding"
	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/pkg/types"
)

const (
	// DefaultMaxBatchSize bounds how many texts go into one provider call.
	DefaultMaxBatchSize = 64

	// DefaultBatchConcurrency is how many provider calls may be in flight
	// at once during bulk resolution.
	DefaultBatchConcurrency = 1
)

// OrchestratorConfig tunes how the orchestrator talks to the provider.
type OrchestratorConfig struct {
	// MaxBatchSize is the most texts sent in one provider call.
	MaxBatchSize int

	// BatchConcurrency bounds concurrent provider calls when a bulk
	// resolution spans multiple chunks.
	BatchConcurrency int

	// Retry governs transient provider failures. The zero value selects
	// embedding.DefaultRetryPolicy.
	Retry embedding.RetryPolicy
}

// DefaultOrchestratorConfig returns the production tuning.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxBatchSize:     DefaultMaxBatchSize,
		BatchConcurrency: DefaultBatchConcurrency,
		Retry:            embedding.DefaultRetryPolicy(),
	}
}

// Orchestrator produces up-to-date embedding sets with the fewest possible
// provider calls. It decomposes entities into dimension texts, serves
// unchanged dimensions from the fingerprint-keyed cache, batches every miss
// into as few provider requests as the batch size allows, and writes fresh
// vectors back through the store.
//
// All dependencies are injected at construction; the orchestrator holds no
// global state and is safe for concurrent use.
type Orchestrator struct {
	provider embedding.Provider
	store    storage.EmbeddingStore
	logger   *zap.Logger
	cfg      OrchestratorConfig
}

// NewOrchestrator creates an orchestrator over the given provider and store.
// A nil logger disables logging.
func NewOrchestrator(provider embedding.Provider, store storage.EmbeddingStore, logger *zap.Logger, cfg OrchestratorConfig) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("embedding store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	if cfg.Retry == (embedding.RetryPolicy{}) {
		cfg.Retry = embedding.DefaultRetryPolicy()
	}

	return &Orchestrator{
		provider: provider,
		store:    store,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// BulkResult holds the outcome of a bulk embedding pass.
type BulkResult struct {
	// Sets maps entity ID to its complete embedding set. Entities listed in
	// Failed are absent here: a partial set would be indistinguishable from
	// legitimately empty fields.
	Sets map[string]types.EmbeddingSet

	// Failed maps entity ID to the error that prevented its set from being
	// completed. Callers rank such entities as insufficient data rather
	// than failing the whole pass.
	Failed map[string]error
}

// slotRequest is one (entity, dimension) cell to resolve, carrying the
// canonical text and its fingerprint.
type slotRequest struct {
	entityID    string
	dim         types.DimensionKey
	fingerprint string
	text        string
}

// chunkResult is the outcome of embedding one chunk of slot texts. vectors
// is parallel to the chunk; a nil entry means the provider rejected that
// text alone and its dimension is skipped. A non-nil err fails every slot
// in the chunk.
type chunkResult struct {
	vectors [][]float64
	err     error
}

// EnsureEmbeddings returns the complete embedding set for one entity,
// computing only the dimensions whose text changed since they were last
// cached. If any needed provider call ultimately fails the whole operation
// fails; a partial set is never returned.
func (o *Orchestrator) EnsureEmbeddings(ctx context.Context, entity types.Entity) (types.EmbeddingSet, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity is required")
	}

	slots, err := collectSlots(entity)
	if err != nil {
		return nil, err
	}

	set := make(types.EmbeddingSet, len(slots))
	if len(slots) == 0 {
		return set, nil
	}

	hits, misses := o.lookup(ctx, slots)
	for idx, vector := range hits {
		set[slots[idx].dim] = vector
	}

	resolved, failed := o.embedMisses(ctx, slots, misses)
	for _, idx := range misses {
		if slotErr, ok := failed[idx]; ok {
			return nil, fmt.Errorf("embed %s/%s: %w", entity.EntityID(), slots[idx].dim, slotErr)
		}
		if vector, ok := resolved[idx]; ok {
			set[slots[idx].dim] = vector
		}
	}

	return set, nil
}

// EnsureEmbeddingsBulk resolves embedding sets for many entities in one
// pass, flattening every cache miss across all of them into minimal
// provider chunks. A failed chunk marks only the entities with texts in
// that chunk as failed; the rest complete normally. Entities appearing more
// than once resolve once.
func (o *Orchestrator) EnsureEmbeddingsBulk(ctx context.Context, entities []types.Entity) (*BulkResult, error) {
	result := &BulkResult{
		Sets:   make(map[string]types.EmbeddingSet, len(entities)),
		Failed: make(map[string]error),
	}

	var slots []slotRequest
	for _, entity := range entities {
		if entity == nil {
			return nil, fmt.Errorf("entity is required")
		}
		id := entity.EntityID()
		if _, seen := result.Sets[id]; seen {
			continue
		}
		entitySlots, err := collectSlots(entity)
		if err != nil {
			return nil, err
		}
		result.Sets[id] = make(types.EmbeddingSet, len(entitySlots))
		slots = append(slots, entitySlots...)
	}

	if len(slots) == 0 {
		return result, nil
	}

	hits, misses := o.lookup(ctx, slots)
	for idx, vector := range hits {
		result.Sets[slots[idx].entityID][slots[idx].dim] = vector
	}

	resolved, failed := o.embedMisses(ctx, slots, misses)
	for _, idx := range misses {
		slot := slots[idx]
		if slotErr, ok := failed[idx]; ok {
			if _, marked := result.Failed[slot.entityID]; !marked {
				result.Failed[slot.entityID] = slotErr
			}
			continue
		}
		if vector, ok := resolved[idx]; ok {
			result.Sets[slot.entityID][slot.dim] = vector
		}
	}

	for id := range result.Failed {
		delete(result.Sets, id)
	}

	return result, nil
}

// DeleteEntity drops every cached vector for an entity. The set rebuilds
// lazily, dimension by dimension, on the next ensure call.
func (o *Orchestrator) DeleteEntity(ctx context.Context, entityID string) (int64, error) {
	return o.store.DeleteEntity(ctx, entityID)
}

// collectSlots decomposes an entity into embeddable slots in canonical
// dimension order. Truncation happens before fingerprinting so the
// fingerprint always covers exactly the text that gets embedded.
func collectSlots(entity types.Entity) ([]slotRequest, error) {
	texts, err := Decompose(entity)
	if err != nil {
		return nil, err
	}

	slots := make([]slotRequest, 0, len(texts))
	for _, dim := range types.DimensionsFor(entity.Kind()) {
		text, ok := texts[dim]
		if !ok {
			continue
		}
		text = embedding.Truncate(text)
		slots = append(slots, slotRequest{
			entityID:    entity.EntityID(),
			dim:         dim,
			fingerprint: Fingerprint(text),
			text:        text,
		})
	}

	return slots, nil
}

// lookup partitions slots into cached vectors (keyed by slot index) and a
// list of miss indexes. Store trouble is a performance problem, not a
// correctness one: a failing read degrades to a miss and the provider
// recomputes.
func (o *Orchestrator) lookup(ctx context.Context, slots []slotRequest) (map[int][]float64, []int) {
	hits := make(map[int][]float64, len(slots))
	misses := make([]int, 0, len(slots))

	for i, slot := range slots {
		vector, err := o.store.Get(ctx, slot.entityID, slot.dim, slot.fingerprint)
		if err == nil {
			hits[i] = vector
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			o.logger.Warn("embedding cache read failed, treating as miss",
				zap.String("entity", slot.entityID),
				zap.String("dimension", string(slot.dim)),
				zap.Error(err))
		}
		misses = append(misses, i)
	}

	return hits, misses
}

// embedMisses resolves the given miss indexes through the provider, chunked
// at the configured batch size, and writes successful vectors back to the
// store. It returns resolved vectors and failures keyed by slot index;
// indexes in neither map were rejected as invalid input and their
// dimensions are skipped.
func (o *Orchestrator) embedMisses(ctx context.Context, slots []slotRequest, misses []int) (map[int][]float64, map[int]error) {
	resolved := make(map[int][]float64, len(misses))
	failed := make(map[int]error)
	if len(misses) == 0 {
		return resolved, failed
	}

	var chunks [][]int
	for start := 0; start < len(misses); start += o.cfg.MaxBatchSize {
		end := start + o.cfg.MaxBatchSize
		if end > len(misses) {
			end = len(misses)
		}
		chunks = append(chunks, misses[start:end])
	}

	o.logger.Debug("resolving embedding cache misses",
		zap.Int("misses", len(misses)),
		zap.Int("chunks", len(chunks)))

	// Chunks may run concurrently, but each goroutine writes only its own
	// results slot: reassembly is by input index, never by arrival order.
	results := make([]chunkResult, len(chunks))
	sem := make(chan struct{}, o.cfg.BatchConcurrency)
	var wg sync.WaitGroup
	for ci := range chunks {
		wg.Add(1)
		go func(ci int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[ci] = o.embedChunk(ctx, slots, chunks[ci])
		}(ci)
	}
	wg.Wait()

	for ci, chunk := range chunks {
		res := results[ci]
		if res.err != nil {
			for _, idx := range chunk {
				failed[idx] = res.err
			}
			continue
		}
		for j, idx := range chunk {
			if res.vectors[j] == nil {
				slot := slots[idx]
				o.logger.Warn("provider rejected dimension text, skipping",
					zap.String("entity", slot.entityID),
					zap.String("dimension", string(slot.dim)))
				continue
			}
			resolved[idx] = res.vectors[j]
		}
	}

	o.writeBack(ctx, slots, resolved)

	return resolved, failed
}

// embedChunk embeds the texts behind one chunk of slot indexes. A rejected
// multi-text batch is retried one text at a time so a single bad input only
// costs its own dimension.
func (o *Orchestrator) embedChunk(ctx context.Context, slots []slotRequest, chunk []int) chunkResult {
	texts := make([]string, len(chunk))
	for j, idx := range chunk {
		texts[j] = slots[idx].text
	}

	vectors, err := o.embedWithRetry(ctx, texts)
	if err == nil {
		return chunkResult{vectors: vectors}
	}
	if errors.Is(err, embedding.ErrInvalidInput) && len(texts) > 1 {
		return o.embedOneByOne(ctx, texts)
	}

	return chunkResult{err: err}
}

// embedOneByOne isolates which texts of a rejected batch are individually
// embeddable. Texts rejected on their own stay nil in the result.
func (o *Orchestrator) embedOneByOne(ctx context.Context, texts []string) chunkResult {
	vectors := make([][]float64, len(texts))
	for j, text := range texts {
		single, err := o.embedWithRetry(ctx, []string{text})
		if err != nil {
			if errors.Is(err, embedding.ErrInvalidInput) {
				continue
			}
			return chunkResult{err: err}
		}
		vectors[j] = single[0]
	}

	return chunkResult{vectors: vectors}
}

// embedWithRetry calls the provider under the retry policy and enforces the
// same-length response contract. A wrong-length response is a provider
// contract violation that fails the whole call; it is never zipped short.
func (o *Orchestrator) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64
	err := o.cfg.Retry.Do(ctx, func() error {
		var embedErr error
		vectors, embedErr = o.provider.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", embedding.ErrProtocolMismatch, len(vectors), len(texts))
	}

	return vectors, nil
}

// writeBack upserts freshly computed vectors. Write failures degrade to
// uncached operation with a warning; they never fail the embedding pass.
func (o *Orchestrator) writeBack(ctx context.Context, slots []slotRequest, resolved map[int][]float64) {
	for idx, vector := range resolved {
		slot := slots[idx]
		if err := o.store.Put(ctx, slot.entityID, slot.dim, slot.fingerprint, vector, o.provider.Model()); err != nil {
			o.logger.Warn("embedding cache write failed, continuing uncached",
				zap.String("entity", slot.entityID),
				zap.String("dimension", string(slot.dim)),
				zap.Error(err))
		}
	}
}
