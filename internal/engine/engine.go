package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hireloop/matchengine/internal/embedding"
	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/pkg/types"
)

// Config assembles the engine's tunables.
type Config struct {
	// Orchestrator tunes batching and retries.
	Orchestrator OrchestratorConfig

	// Weights is the scoring table. Nil selects the default production
	// weighting.
	Weights types.WeightTable

	// MissingPolicy handles configured pairs without vectors. Empty selects
	// renormalization.
	MissingPolicy MissingPolicy
}

// DefaultConfig returns the production engine tuning.
func DefaultConfig() Config {
	return Config{
		Orchestrator:  DefaultOrchestratorConfig(),
		Weights:       types.DefaultWeightTable(),
		MissingPolicy: MissingPolicyRenormalize,
	}
}

// Engine bundles the orchestrator, matcher, and ranker behind one facade.
// All collaborators are injected at construction; the owning application
// controls the store and provider lifecycles.
type Engine struct {
	orchestrator *Orchestrator
	matcher      *Matcher
	ranker       *Ranker
	logger       *zap.Logger
}

// New wires an engine from its collaborators. A nil logger disables
// logging.
func New(provider embedding.Provider, store storage.EmbeddingStore, logger *zap.Logger, cfg Config) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	orchestrator, err := NewOrchestrator(provider, store, logger, cfg.Orchestrator)
	if err != nil {
		return nil, err
	}

	matcher, err := NewMatcher(cfg.Weights, cfg.MissingPolicy)
	if err != nil {
		return nil, err
	}

	ranker, err := NewRanker(orchestrator, matcher, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		orchestrator: orchestrator,
		matcher:      matcher,
		ranker:       ranker,
		logger:       logger,
	}, nil
}

// Match scores one profile against one job, resolving both embedding sets
// in a single bulk pass so shared cache misses batch together.
func (e *Engine) Match(ctx context.Context, profile *types.Profile, job *types.JobPosting) (types.CompatibilityResult, error) {
	if profile == nil {
		return types.CompatibilityResult{}, fmt.Errorf("profile is required")
	}
	if job == nil {
		return types.CompatibilityResult{}, fmt.Errorf("job is required")
	}

	bulk, err := e.orchestrator.EnsureEmbeddingsBulk(ctx, []types.Entity{profile, job})
	if err != nil {
		return types.CompatibilityResult{}, err
	}
	if failErr, ok := bulk.Failed[profile.ID]; ok {
		return types.CompatibilityResult{}, fmt.Errorf("embed profile %s: %w", profile.ID, failErr)
	}
	if failErr, ok := bulk.Failed[job.ID]; ok {
		return types.CompatibilityResult{}, fmt.Errorf("embed job %s: %w", job.ID, failErr)
	}

	return e.matcher.Score(bulk.Sets[profile.ID], bulk.Sets[job.ID]), nil
}

// RankJobs orders job postings by compatibility to a profile.
func (e *Engine) RankJobs(ctx context.Context, profile *types.Profile, jobs []*types.JobPosting, opts RankOptions) ([]types.Match, error) {
	return e.ranker.Rank(ctx, profile, jobs, opts)
}

// RankProfiles orders candidate profiles by compatibility to a job.
func (e *Engine) RankProfiles(ctx context.Context, job *types.JobPosting, profiles []*types.Profile, opts RankOptions) ([]types.Match, error) {
	return e.ranker.RankProfiles(ctx, job, profiles, opts)
}

// Warm pre-computes embeddings for a batch of entities, e.g. after a
// catalog import, so later match and rank calls run entirely from cache.
func (e *Engine) Warm(ctx context.Context, entities []types.Entity) (*BulkResult, error) {
	return e.orchestrator.EnsureEmbeddingsBulk(ctx, entities)
}

// Forget drops every cached vector for an entity; the set rebuilds lazily
// on next use.
func (e *Engine) Forget(ctx context.Context, entityID string) (int64, error) {
	return e.orchestrator.DeleteEntity(ctx, entityID)
}

// Weights returns the table the engine scores with.
func (e *Engine) Weights() types.WeightTable {
	return e.matcher.Weights()
}
