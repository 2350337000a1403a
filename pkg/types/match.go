package types

import (
	"fmt"
	"math"
	"sort"
)

// weightSumTolerance bounds floating-point drift when validating that
// configured weights sum to 1.0.
const weightSumTolerance = 1e-9

// DimensionPair identifies one (profile dimension, job dimension) comparison.
type DimensionPair struct {
	Profile DimensionKey `json:"profile" yaml:"profile"` // Profile-side dimension
	Job     DimensionKey `json:"job" yaml:"job"`         // Job-side dimension
}

// String renders the pair as "profile:job" (e.g. "skills:description").
func (p DimensionPair) String() string {
	return string(p.Profile) + ":" + string(p.Job)
}

// WeightTable assigns a non-negative weight to each compared dimension pair.
// Configured weights must sum to 1.0; when a pair's vectors are unavailable
// at scoring time the matcher redistributes or drops its weight according to
// its missing-pair policy, it never zero-pads the sum.
type WeightTable map[DimensionPair]float64

// DefaultWeightTable returns the production weighting: skills alignment 40%,
// experience fit 35%, goals alignment 25%. Skills and goals are both compared
// against the job description; experience against the requirements.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		{Profile: DimensionSkills, Job: DimensionDescription}:      0.40,
		{Profile: DimensionExperience, Job: DimensionRequirements}: 0.35,
		{Profile: DimensionGoals, Job: DimensionDescription}:       0.25,
	}
}

// Validate checks that the table is non-empty, references only known
// dimension keys, has no negative weights, and sums to 1.0 within tolerance.
func (w WeightTable) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("weight table is empty")
	}

	profileDims := make(map[DimensionKey]bool)
	for _, dim := range ProfileDimensions() {
		profileDims[dim] = true
	}
	jobDims := make(map[DimensionKey]bool)
	for _, dim := range JobDimensions() {
		jobDims[dim] = true
	}

	sum := 0.0
	for pair, weight := range w {
		if !profileDims[pair.Profile] {
			return fmt.Errorf("unknown profile dimension %q in pair %s", pair.Profile, pair)
		}
		if !jobDims[pair.Job] {
			return fmt.Errorf("unknown job dimension %q in pair %s", pair.Job, pair)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight %.4f for pair %s", weight, pair)
		}
		sum += weight
	}

	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights sum to %.9f, want 1.0", sum)
	}

	return nil
}

// Pairs returns the table's pairs sorted by name for deterministic iteration.
func (w WeightTable) Pairs() []DimensionPair {
	pairs := make([]DimensionPair, 0, len(w))
	for pair := range w {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
	return pairs
}

// PairScore is one row of a compatibility breakdown.
type PairScore struct {
	Pair         DimensionPair `json:"pair"`         // Which dimensions were compared
	Similarity   float64       `json:"similarity"`   // Raw cosine similarity, clamped to [0,1]
	Weight       float64       `json:"weight"`       // Weight actually applied (after any renormalization)
	Contribution float64       `json:"contribution"` // Weight * Similarity
}

// CompatibilityResult is the outcome of scoring one profile against one job.
// It is computed on demand and never persisted by the engine.
type CompatibilityResult struct {
	// Score is the weighted overall compatibility in [0,1].
	// Zero with InsufficientData set means "unknown", not "perfect mismatch".
	Score float64 `json:"score"`

	// InsufficientData is set when no configured dimension pair had vectors
	// on both sides, so no meaningful score exists. Rankers sort such
	// results last rather than treating them as failures.
	InsufficientData bool `json:"insufficient_data,omitempty"`

	// Breakdown lists the contribution of each scored pair, sorted by
	// contribution descending (ties by pair name). This ordering is what
	// callers use to explain the match.
	Breakdown []PairScore `json:"breakdown,omitempty"`

	// MissingPairs lists configured pairs that could not be scored because
	// one or both vectors were absent or degenerate.
	MissingPairs []DimensionPair `json:"missing_pairs,omitempty"`
}

// Match pairs a candidate entity with its compatibility result in ranked
// output.
type Match struct {
	CandidateID string              `json:"candidate_id"` // Stable ID of the ranked candidate
	Result      CompatibilityResult `json:"result"`       // Score and breakdown against the anchor
}
