package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hireloop/matchengine/pkg/types"
)

// MissingPolicy decides what happens to the weight of a configured pair
// whose vectors are unavailable at scoring time.
type MissingPolicy string

const (
	// MissingPolicyRenormalize drops missing pairs and rescales the
	// remaining weights to sum to 1.0, so absent dimensions never drag the
	// score toward zero. This is the default.
	MissingPolicyRenormalize MissingPolicy = "renormalize"

	// MissingPolicyStrict keeps the configured weights as-is; a missing
	// pair simply contributes nothing, lowering the ceiling of the score.
	MissingPolicyStrict MissingPolicy = "strict"
)

// zeroNormEpsilon is the norm below which a vector is treated as degenerate
// and its pair excluded from scoring.
const zeroNormEpsilon = 1e-9

// Matcher computes weighted compatibility scores between a profile's and a
// job's embedding sets.
type Matcher struct {
	weights types.WeightTable
	policy  MissingPolicy
}

// NewMatcher creates a matcher over the given weight table. A nil or empty
// table selects the default production weighting; an empty policy selects
// renormalization.
func NewMatcher(weights types.WeightTable, policy MissingPolicy) (*Matcher, error) {
	if len(weights) == 0 {
		weights = types.DefaultWeightTable()
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight table: %w", err)
	}

	switch policy {
	case "":
		policy = MissingPolicyRenormalize
	case MissingPolicyRenormalize, MissingPolicyStrict:
	default:
		return nil, fmt.Errorf("unknown missing-pair policy %q", policy)
	}

	return &Matcher{weights: weights, policy: policy}, nil
}

// Score computes the weighted compatibility between a profile's and a job's
// embedding sets.
//
// For every configured dimension pair with vectors on both sides, the cosine
// similarity (negative values clamped to zero) is weighted and summed.
// Pairs with absent, length-mismatched, or near-zero-norm vectors are
// excluded and reported in MissingPairs, never scored as zero. When nothing
// is comparable the result carries InsufficientData instead of an error, so
// rankers can sort such candidates last rather than failing.
func (m *Matcher) Score(profileSet, jobSet types.EmbeddingSet) types.CompatibilityResult {
	var (
		breakdown []types.PairScore
		missing   []types.DimensionPair
		usedSum   float64
	)

	for _, pair := range m.weights.Pairs() {
		sim, ok := cosineSimilarity(profileSet[pair.Profile], jobSet[pair.Job])
		if !ok {
			missing = append(missing, pair)
			continue
		}
		breakdown = append(breakdown, types.PairScore{
			Pair:       pair,
			Similarity: clamp01(sim),
			Weight:     m.weights[pair],
		})
		usedSum += m.weights[pair]
	}

	if len(breakdown) == 0 || usedSum < zeroNormEpsilon {
		return types.CompatibilityResult{
			Score:            0,
			InsufficientData: true,
			MissingPairs:     missing,
		}
	}

	score := 0.0
	for i := range breakdown {
		if m.policy == MissingPolicyRenormalize {
			breakdown[i].Weight /= usedSum
		}
		breakdown[i].Contribution = breakdown[i].Weight * breakdown[i].Similarity
		score += breakdown[i].Contribution
	}

	// Contribution-descending order is the explanation contract; the pair
	// name breaks ties so repeated calls render identically.
	slices.SortFunc(breakdown, func(a, b types.PairScore) int {
		if a.Contribution != b.Contribution {
			if a.Contribution > b.Contribution {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Pair.String(), b.Pair.String())
	})

	return types.CompatibilityResult{
		Score:        clamp01(score),
		Breakdown:    breakdown,
		MissingPairs: missing,
	}
}

// Weights returns the table the matcher scores with.
func (m *Matcher) Weights() types.WeightTable {
	return m.weights
}

// cosineSimilarity returns dot(a,b)/(|a|*|b|). The second return is false
// when the pair cannot be compared: absent vectors, mismatched lengths, or a
// norm too close to zero to divide by.
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA < zeroNormEpsilon || normB < zeroNormEpsilon {
		return 0, false
	}

	return dot / (normA * normB), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
