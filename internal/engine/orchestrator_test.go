package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/matchengine/internal/embedding"
	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/internal/storage/memory"
	"github.com/hireloop/matchengine/pkg/types"
)

// fakeProvider counts provider calls and records every batch it receives.
// Without an embedFn override it returns a deterministic vector derived
// from each text.
type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	batches [][]string

	dim     int
	embedFn func(call int, texts []string) ([][]float64, error)
}

func (p *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.batches = append(p.batches, append([]string(nil), texts...))
	p.mu.Unlock()

	if p.embedFn != nil {
		return p.embedFn(call, texts)
	}
	return defaultVectors(texts, p.Dimension()), nil
}

func (p *fakeProvider) Dimension() int {
	if p.dim > 0 {
		return p.dim
	}
	return 4
}

func (p *fakeProvider) Model() string { return "fake-embed" }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) recordedBatches() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.batches...)
}

var _ embedding.Provider = (*fakeProvider)(nil)

// deterministicVector derives a stable vector from text so tests can verify
// that results land on the right dimensions without coordinating fixtures.
func deterministicVector(text string, dim int) []float64 {
	sum := sha256.Sum256([]byte(text))
	vector := make([]float64, dim)
	for i := range vector {
		vector[i] = float64(sum[i%len(sum)]) / 255
	}
	return vector
}

func defaultVectors(texts []string, dim int) [][]float64 {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, dim)
	}
	return vectors
}

// brokenStore fails every operation, modeling an unreachable cache backend.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string, types.DimensionKey, string) ([]float64, error) {
	return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) Put(context.Context, string, types.DimensionKey, string, []float64, string) error {
	return fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) DeleteEntity(context.Context, string) (int64, error) {
	return 0, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) Stats(context.Context) (storage.Stats, error) {
	return storage.Stats{}, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (brokenStore) Close() error { return nil }

func quickRetry() embedding.RetryPolicy {
	return embedding.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func newMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.New(0)
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestOrchestrator(t *testing.T, provider embedding.Provider, store storage.EmbeddingStore, cfg OrchestratorConfig) *Orchestrator {
	t.Helper()
	if cfg.Retry == (embedding.RetryPolicy{}) {
		cfg.Retry = quickRetry()
	}
	orchestrator, err := NewOrchestrator(provider, store, zap.NewNop(), cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return orchestrator
}

// fullProfile returns a profile decomposing into all three dimensions.
func fullProfile(id string) *types.Profile {
	return &types.Profile{
		ID:     id,
		Skills: []string{"Go", "PostgreSQL"},
		Experience: []types.ExperienceEntry{
			{Title: "Engineer", Company: "Acme", Years: 3, Summary: "Built " + id + " services"},
		},
		Goals: "Lead the " + id + " platform team",
	}
}

// fullJob returns a posting decomposing into both job dimensions.
func fullJob(id string) *types.JobPosting {
	return &types.JobPosting{
		ID:             id,
		Title:          "Backend Engineer",
		Description:    "Own the " + id + " backend",
		Requirements:   []string{"Production Go experience"},
		RequiredSkills: []string{"Go"},
	}
}

// Test: a second ensure over unchanged text is served entirely from cache.
func TestEnsureEmbeddings_SecondCallServedFromCache(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})
	ctx := context.Background()
	profile := fullProfile("cand-1")

	first, err := orchestrator.EnsureEmbeddings(ctx, profile)
	if err != nil {
		t.Fatalf("first EnsureEmbeddings failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("first set has %d dimensions, want 3", len(first))
	}
	if provider.callCount() != 1 {
		t.Fatalf("first ensure made %d provider calls, want 1", provider.callCount())
	}

	second, err := orchestrator.EnsureEmbeddings(ctx, profile)
	if err != nil {
		t.Fatalf("second EnsureEmbeddings failed: %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("second ensure made provider calls, want zero (served from cache)")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached set differs from freshly computed set")
	}
}

// Test: changing one dimension's source text re-embeds only that dimension.
func TestEnsureEmbeddings_RecomputesOnlyChangedDimension(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})
	ctx := context.Background()
	profile := fullProfile("cand-2")

	if _, err := orchestrator.EnsureEmbeddings(ctx, profile); err != nil {
		t.Fatalf("EnsureEmbeddings failed: %v", err)
	}

	profile.Goals = "Move into staff engineering"
	set, err := orchestrator.EnsureEmbeddings(ctx, profile)
	if err != nil {
		t.Fatalf("EnsureEmbeddings after edit failed: %v", err)
	}

	if len(set) != 3 {
		t.Errorf("set has %d dimensions, want 3", len(set))
	}
	batches := provider.recordedBatches()
	if len(batches) != 2 {
		t.Fatalf("made %d provider calls, want 2", len(batches))
	}
	if len(batches[1]) != 1 {
		t.Errorf("re-embed batch carried %d texts, want just the changed dimension", len(batches[1]))
	}
}

// Test: an entity with no embeddable text yields an empty set and no
// provider traffic.
func TestEnsureEmbeddings_EmptyEntity(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})

	set, err := orchestrator.EnsureEmbeddings(context.Background(), &types.Profile{ID: "cand-empty"})
	if err != nil {
		t.Fatalf("EnsureEmbeddings failed: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("empty entity produced %d dimensions, want 0", len(set))
	}
	if provider.callCount() != 0 {
		t.Errorf("empty entity made %d provider calls, want 0", provider.callCount())
	}
}

// Test: when the provider stays down the whole call fails after retries;
// no partial set reaches the caller.
func TestEnsureEmbeddings_NoPartialSetOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(int, []string) ([][]float64, error) {
			return nil, fmt.Errorf("%w: 503", embedding.ErrUnavailable)
		},
	}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})

	set, err := orchestrator.EnsureEmbeddings(context.Background(), fullProfile("cand-3"))
	if err == nil {
		t.Fatal("expected error when provider is unavailable")
	}
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if set != nil {
		t.Errorf("got partial set %v, want nil", set)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times, want 2 (one retry)", provider.callCount())
	}
}

// Test: a transient rate-limit error is retried and the call completes.
func TestEnsureEmbeddings_RetriesTransientFailure(t *testing.T) {
	provider := &fakeProvider{}
	provider.embedFn = func(call int, texts []string) ([][]float64, error) {
		if call == 1 {
			return nil, fmt.Errorf("%w: slow down", embedding.ErrRateLimited)
		}
		return defaultVectors(texts, 4), nil
	}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})

	set, err := orchestrator.EnsureEmbeddings(context.Background(), fullProfile("cand-4"))
	if err != nil {
		t.Fatalf("EnsureEmbeddings failed despite retry: %v", err)
	}
	if len(set) != 3 {
		t.Errorf("set has %d dimensions, want 3", len(set))
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times, want 2", provider.callCount())
	}
}

// Test: a dead cache backend degrades to provider-only operation instead of
// failing requests.
func TestEnsureEmbeddings_DegradedStoreStillServes(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, brokenStore{}, OrchestratorConfig{})
	ctx := context.Background()
	profile := fullProfile("cand-5")

	first, err := orchestrator.EnsureEmbeddings(ctx, profile)
	if err != nil {
		t.Fatalf("EnsureEmbeddings with broken store failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("set has %d dimensions, want 3", len(first))
	}

	// Nothing could be cached, so the second call pays the provider again.
	second, err := orchestrator.EnsureEmbeddings(ctx, profile)
	if err != nil {
		t.Fatalf("second EnsureEmbeddings failed: %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times, want 2", provider.callCount())
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("recomputed set differs from first result")
	}
}

// Test: bulk resolution flattens all misses across entities into
// ceil(total/maxBatchSize) provider calls, never one call per dimension.
func TestEnsureEmbeddingsBulk_FlattensMissesIntoMinimalChunks(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{MaxBatchSize: 4})
	ctx := context.Background()

	entities := []types.Entity{
		fullProfile("cand-a"), fullProfile("cand-b"), fullProfile("cand-c"),
		fullJob("job-a"), fullJob("job-b"),
	}

	bulk, err := orchestrator.EnsureEmbeddingsBulk(ctx, entities)
	if err != nil {
		t.Fatalf("EnsureEmbeddingsBulk failed: %v", err)
	}

	// 3 profiles x 3 dimensions + 2 jobs x 2 dimensions = 13 texts.
	if provider.callCount() != 4 {
		t.Errorf("made %d provider calls, want ceil(13/4) = 4", provider.callCount())
	}
	total := 0
	for _, batch := range provider.recordedBatches() {
		if len(batch) > 4 {
			t.Errorf("batch carried %d texts, exceeds max batch size 4", len(batch))
		}
		total += len(batch)
	}
	if total != 13 {
		t.Errorf("provider saw %d texts, want 13", total)
	}

	if len(bulk.Failed) != 0 {
		t.Errorf("unexpected failures: %v", bulk.Failed)
	}
	if len(bulk.Sets) != 5 {
		t.Fatalf("got %d sets, want 5", len(bulk.Sets))
	}
	for _, id := range []string{"cand-a", "cand-b", "cand-c"} {
		if len(bulk.Sets[id]) != 3 {
			t.Errorf("profile %s has %d dimensions, want 3", id, len(bulk.Sets[id]))
		}
	}
	for _, id := range []string{"job-a", "job-b"} {
		if len(bulk.Sets[id]) != 2 {
			t.Errorf("job %s has %d dimensions, want 2", id, len(bulk.Sets[id]))
		}
	}
}

// Test: a warmed cache makes a repeat bulk pass free.
func TestEnsureEmbeddingsBulk_SecondPassZeroCalls(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})
	ctx := context.Background()
	entities := []types.Entity{fullProfile("cand-6"), fullJob("job-6")}

	if _, err := orchestrator.EnsureEmbeddingsBulk(ctx, entities); err != nil {
		t.Fatalf("warm pass failed: %v", err)
	}
	warmCalls := provider.callCount()

	if _, err := orchestrator.EnsureEmbeddingsBulk(ctx, entities); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if provider.callCount() != warmCalls {
		t.Errorf("second pass made %d extra calls, want 0", provider.callCount()-warmCalls)
	}
}

// Test: a wrong-length response is a protocol violation that fails its
// whole chunk with no cache writes, not a silently zipped result.
func TestEnsureEmbeddingsBulk_ProtocolMismatchNoPartialWrites(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(_ int, texts []string) ([][]float64, error) {
			return defaultVectors(texts[:len(texts)-1], 4), nil
		},
	}
	store := newMemoryStore(t)
	orchestrator := newTestOrchestrator(t, provider, store, OrchestratorConfig{})
	ctx := context.Background()
	profile := fullProfile("cand-7")

	bulk, err := orchestrator.EnsureEmbeddingsBulk(ctx, []types.Entity{profile})
	if err != nil {
		t.Fatalf("EnsureEmbeddingsBulk failed: %v", err)
	}

	failErr, ok := bulk.Failed[profile.ID]
	if !ok {
		t.Fatal("entity behind the short batch should be marked failed")
	}
	if !errors.Is(failErr, embedding.ErrProtocolMismatch) {
		t.Errorf("failure = %v, want ErrProtocolMismatch", failErr)
	}
	if _, ok := bulk.Sets[profile.ID]; ok {
		t.Error("failed entity must not appear in Sets")
	}
	if provider.callCount() != 1 {
		t.Errorf("protocol mismatch was retried %d times, want no retries", provider.callCount()-1)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Vectors != 0 {
		t.Errorf("store holds %d vectors after aborted batch, want 0", stats.Vectors)
	}
}

// Test: one failing chunk marks only the entities with texts in it; the
// rest of the bulk pass completes and caches normally.
func TestEnsureEmbeddingsBulk_FailedChunkIsolatesEntities(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(_ int, texts []string) ([][]float64, error) {
			if len(texts) == 3 {
				return nil, fmt.Errorf("%w: 502", embedding.ErrUnavailable)
			}
			return defaultVectors(texts, 4), nil
		},
	}
	store := newMemoryStore(t)
	orchestrator := newTestOrchestrator(t, provider, store, OrchestratorConfig{MaxBatchSize: 3})
	ctx := context.Background()

	profile := fullProfile("cand-8") // 3 dimensions: fills the failing chunk
	job := fullJob("job-8")          // 2 dimensions: its own healthy chunk

	bulk, err := orchestrator.EnsureEmbeddingsBulk(ctx, []types.Entity{profile, job})
	if err != nil {
		t.Fatalf("EnsureEmbeddingsBulk failed: %v", err)
	}

	if failErr, ok := bulk.Failed[profile.ID]; !ok {
		t.Error("profile in the failed chunk should be marked failed")
	} else if !errors.Is(failErr, embedding.ErrUnavailable) {
		t.Errorf("failure = %v, want ErrUnavailable", failErr)
	}
	if _, ok := bulk.Failed[job.ID]; ok {
		t.Error("job outside the failed chunk should not be marked failed")
	}
	if len(bulk.Sets[job.ID]) != 2 {
		t.Errorf("job set has %d dimensions, want 2", len(bulk.Sets[job.ID]))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Vectors != 2 {
		t.Errorf("store holds %d vectors, want only the job's 2", stats.Vectors)
	}
}

// Test: a rejected multi-text batch is isolated text by text, so one bad
// dimension is skipped while the rest of the entity completes.
func TestEnsureEmbeddings_InvalidInputIsolatesTexts(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(_ int, texts []string) ([][]float64, error) {
			if len(texts) > 1 {
				return nil, fmt.Errorf("%w: batch rejected", embedding.ErrInvalidInput)
			}
			if strings.Contains(texts[0], "platform team") {
				return nil, fmt.Errorf("%w: text rejected", embedding.ErrInvalidInput)
			}
			return defaultVectors(texts, 4), nil
		},
	}
	store := newMemoryStore(t)
	orchestrator := newTestOrchestrator(t, provider, store, OrchestratorConfig{})
	ctx := context.Background()
	profile := fullProfile("cand-9") // goals text mentions "platform team"

	set, err := orchestrator.EnsureEmbeddings(ctx, profile)
	if err != nil {
		t.Fatalf("EnsureEmbeddings failed: %v", err)
	}

	if !set.Has(types.DimensionSkills) || !set.Has(types.DimensionExperience) {
		t.Errorf("good dimensions missing from set: %v", set.Dimensions())
	}
	if set.Has(types.DimensionGoals) {
		t.Error("rejected goals dimension should be skipped")
	}

	// One batch attempt plus one isolation call per text.
	if provider.callCount() != 4 {
		t.Errorf("provider called %d times, want 4", provider.callCount())
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Vectors != 2 {
		t.Errorf("store holds %d vectors, want 2", stats.Vectors)
	}
}

// Test: the same entity queued twice in one bulk pass resolves once.
func TestEnsureEmbeddingsBulk_DeduplicatesRepeatedEntities(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})
	profile := fullProfile("cand-10")

	bulk, err := orchestrator.EnsureEmbeddingsBulk(context.Background(), []types.Entity{profile, profile})
	if err != nil {
		t.Fatalf("EnsureEmbeddingsBulk failed: %v", err)
	}

	if len(bulk.Sets) != 1 {
		t.Errorf("got %d sets, want 1", len(bulk.Sets))
	}
	batches := provider.recordedBatches()
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Errorf("provider saw batches %v, want one batch of 3 texts", batches)
	}
}

// Test: oversized dimension text is truncated before fingerprinting, so the
// cache key matches the embedded text and repeat calls stay cached.
func TestEnsureEmbeddings_TruncatesLongText(t *testing.T) {
	provider := &fakeProvider{}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{})
	ctx := context.Background()

	profile := fullProfile("cand-11")
	profile.Goals = strings.Repeat("g", embedding.MaxInputChars+500)

	if _, err := orchestrator.EnsureEmbeddings(ctx, profile); err != nil {
		t.Fatalf("EnsureEmbeddings failed: %v", err)
	}

	longest := 0
	for _, text := range provider.recordedBatches()[0] {
		if len(text) > longest {
			longest = len(text)
		}
	}
	if longest != embedding.MaxInputChars {
		t.Errorf("longest embedded text is %d chars, want truncated to %d", longest, embedding.MaxInputChars)
	}

	if _, err := orchestrator.EnsureEmbeddings(ctx, profile); err != nil {
		t.Fatalf("second EnsureEmbeddings failed: %v", err)
	}
	if provider.callCount() != 1 {
		t.Error("truncated text should fingerprint stably and hit the cache")
	}
}

// Test: concurrent chunks land on the right dimensions regardless of
// completion order.
func TestEnsureEmbeddingsBulk_ReassemblesByInputIndex(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(call int, texts []string) ([][]float64, error) {
			// Odd calls finish late to scramble arrival order.
			if call%2 == 1 {
				time.Sleep(3 * time.Millisecond)
			}
			return defaultVectors(texts, 4), nil
		},
	}
	orchestrator := newTestOrchestrator(t, provider, newMemoryStore(t), OrchestratorConfig{
		MaxBatchSize:     1,
		BatchConcurrency: 4,
	})
	ctx := context.Background()

	profile := fullProfile("cand-12")
	job := fullJob("job-12")

	bulk, err := orchestrator.EnsureEmbeddingsBulk(ctx, []types.Entity{profile, job})
	if err != nil {
		t.Fatalf("EnsureEmbeddingsBulk failed: %v", err)
	}
	if len(bulk.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", bulk.Failed)
	}

	for _, entity := range []types.Entity{profile, job} {
		texts, err := Decompose(entity)
		if err != nil {
			t.Fatalf("Decompose failed: %v", err)
		}
		for dim, text := range texts {
			want := deterministicVector(embedding.Truncate(text), 4)
			got := bulk.Sets[entity.EntityID()][dim]
			if !reflect.DeepEqual(got, want) {
				t.Errorf("%s/%s holds the wrong vector: chunks reassembled out of order", entity.EntityID(), dim)
			}
		}
	}
}

// Test: constructor rejects missing collaborators and fills config
// defaults.
func TestNewOrchestrator_Validation(t *testing.T) {
	store := newMemoryStore(t)

	if _, err := NewOrchestrator(nil, store, nil, OrchestratorConfig{}); err == nil {
		t.Error("nil provider should be rejected")
	}
	if _, err := NewOrchestrator(&fakeProvider{}, nil, nil, OrchestratorConfig{}); err == nil {
		t.Error("nil store should be rejected")
	}

	orchestrator, err := NewOrchestrator(&fakeProvider{}, store, nil, OrchestratorConfig{})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	if orchestrator.cfg.MaxBatchSize != DefaultMaxBatchSize {
		t.Errorf("MaxBatchSize default = %d, want %d", orchestrator.cfg.MaxBatchSize, DefaultMaxBatchSize)
	}
	if orchestrator.cfg.BatchConcurrency != DefaultBatchConcurrency {
		t.Errorf("BatchConcurrency default = %d, want %d", orchestrator.cfg.BatchConcurrency, DefaultBatchConcurrency)
	}
	if orchestrator.cfg.Retry.MaxAttempts != embedding.DefaultRetryPolicy().MaxAttempts {
		t.Error("zero retry policy should fall back to the default policy")
	}
}
