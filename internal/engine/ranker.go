package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/hireloop/matchengine/pkg/types"
)

// Ranking defaults, matching the production compatible-jobs endpoint.
const (
	DefaultTopK     = 20
	DefaultMinScore = 0.6
)

// RankOptions bounds ranked output.
type RankOptions struct {
	// TopK is the maximum number of matches returned.
	TopK int

	// MinScore filters out matches scoring below it.
	MinScore float64
}

// Normalize applies the production defaults to unset options.
func (o RankOptions) Normalize() RankOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	return o
}

// RecommendOptions returns the tighter preset used for recommendation
// feeds: fewer results, higher floor.
func RecommendOptions() RankOptions {
	return RankOptions{TopK: 10, MinScore: 0.7}
}

// Ranker orders candidates by compatibility to a fixed anchor entity.
// Scoring is a single O(N) pass: one bulk embedding resolution over the
// anchor and every candidate, then one matcher call per candidate.
type Ranker struct {
	orchestrator *Orchestrator
	matcher      *Matcher
	logger       *zap.Logger
}

// NewRanker creates a ranker over the given orchestrator and matcher.
// A nil logger disables logging.
func NewRanker(orchestrator *Orchestrator, matcher *Matcher, logger *zap.Logger) (*Ranker, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ranker{
		orchestrator: orchestrator,
		matcher:      matcher,
		logger:       logger,
	}, nil
}

// Rank orders job postings by compatibility to a candidate profile.
//
// Matches below MinScore or flagged insufficient are filtered out; the rest
// sort score-descending with ties broken by candidate ID so repeated calls
// return identical output. When no candidate produced a usable score at
// all, the insufficient candidates come back flagged, ID-ascending, so
// callers can see why nothing matched instead of an empty list.
func (r *Ranker) Rank(ctx context.Context, profile *types.Profile, jobs []*types.JobPosting, opts RankOptions) ([]types.Match, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}

	entities := make([]types.Entity, 0, len(jobs)+1)
	entities = append(entities, profile)
	candidateIDs := make([]string, len(jobs))
	for i, job := range jobs {
		if job == nil {
			return nil, fmt.Errorf("job is required")
		}
		entities = append(entities, job)
		candidateIDs[i] = job.ID
	}

	bulk, err := r.orchestrator.EnsureEmbeddingsBulk(ctx, entities)
	if err != nil {
		return nil, err
	}

	anchor, err := anchorSet(bulk, profile.ID)
	if err != nil {
		return nil, err
	}

	return r.rank(bulk, candidateIDs, opts, func(candidate types.EmbeddingSet) types.CompatibilityResult {
		return r.matcher.Score(anchor, candidate)
	}), nil
}

// RankProfiles is the mirrored direction: order candidate profiles by
// compatibility to a job posting. Filtering, ordering, and fallback
// behavior match Rank.
func (r *Ranker) RankProfiles(ctx context.Context, job *types.JobPosting, profiles []*types.Profile, opts RankOptions) ([]types.Match, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	entities := make([]types.Entity, 0, len(profiles)+1)
	entities = append(entities, job)
	candidateIDs := make([]string, len(profiles))
	for i, profile := range profiles {
		if profile == nil {
			return nil, fmt.Errorf("profile is required")
		}
		entities = append(entities, profile)
		candidateIDs[i] = profile.ID
	}

	bulk, err := r.orchestrator.EnsureEmbeddingsBulk(ctx, entities)
	if err != nil {
		return nil, err
	}

	anchor, err := anchorSet(bulk, job.ID)
	if err != nil {
		return nil, err
	}

	return r.rank(bulk, candidateIDs, opts, func(candidate types.EmbeddingSet) types.CompatibilityResult {
		return r.matcher.Score(candidate, anchor)
	}), nil
}

// anchorSet extracts the anchor's embedding set from a bulk result. The
// anchor failing is a hard error: without it nothing is scoreable.
func anchorSet(bulk *BulkResult, anchorID string) (types.EmbeddingSet, error) {
	if failErr, ok := bulk.Failed[anchorID]; ok {
		return nil, fmt.Errorf("anchor %s embeddings unavailable: %w", anchorID, failErr)
	}
	return bulk.Sets[anchorID], nil
}

// rank scores every candidate against the anchor and applies filter, sort,
// and truncation.
func (r *Ranker) rank(bulk *BulkResult, candidateIDs []string, opts RankOptions, score func(types.EmbeddingSet) types.CompatibilityResult) []types.Match {
	opts = opts.Normalize()

	var (
		matches      []types.Match
		insufficient []types.Match
		scored       int
	)

	for _, id := range candidateIDs {
		var result types.CompatibilityResult
		if failErr, ok := bulk.Failed[id]; ok {
			r.logger.Warn("candidate embeddings unavailable, ranking as insufficient data",
				zap.String("candidate", id),
				zap.Error(failErr))
			result = types.CompatibilityResult{InsufficientData: true}
		} else {
			result = score(bulk.Sets[id])
		}

		match := types.Match{CandidateID: id, Result: result}
		if result.InsufficientData {
			insufficient = append(insufficient, match)
			continue
		}

		scored++
		if result.Score < opts.MinScore {
			continue
		}
		matches = append(matches, match)
	}

	if len(matches) == 0 && scored == 0 && len(insufficient) > 0 {
		// Nothing was comparable: surface the flagged candidates in a
		// deterministic order instead of an empty answer.
		slices.SortFunc(insufficient, func(a, b types.Match) int {
			return strings.Compare(a.CandidateID, b.CandidateID)
		})
		return truncateMatches(insufficient, opts.TopK)
	}

	slices.SortFunc(matches, func(a, b types.Match) int {
		if a.Result.Score != b.Result.Score {
			if a.Result.Score > b.Result.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.CandidateID, b.CandidateID)
	})

	return truncateMatches(matches, opts.TopK)
}

func truncateMatches(matches []types.Match, topK int) []types.Match {
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
