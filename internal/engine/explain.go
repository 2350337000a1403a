package engine

import (
	"strings"
	"unicode"

	"github.com/hireloop/matchengine/pkg/types"
)

// maxReasonParts caps how many breakdown rows feed the reason string.
const maxReasonParts = 3

// Reason derives a short human-readable explanation from a compatibility
// result, e.g. "Strong skills match, good experience fit". It reads the
// breakdown in its contribution order, so the phrasing is deterministic for
// a given result.
func Reason(result types.CompatibilityResult) string {
	if result.InsufficientData {
		return "Not enough data to compare"
	}

	parts := make([]string, 0, maxReasonParts)
	for _, row := range result.Breakdown {
		if len(parts) == maxReasonParts {
			break
		}
		parts = append(parts, similarityBucket(row.Similarity)+" "+pairAspect(row.Pair))
	}

	if len(parts) == 0 {
		return "No comparable dimensions"
	}

	return capitalize(strings.Join(parts, ", "))
}

// similarityBucket maps a similarity to its qualitative label.
func similarityBucket(sim float64) string {
	switch {
	case sim >= 0.8:
		return "strong"
	case sim >= 0.6:
		return "good"
	default:
		return "weak"
	}
}

// pairAspect names what a dimension pair measures in user-facing terms.
func pairAspect(pair types.DimensionPair) string {
	switch pair.Profile {
	case types.DimensionSkills:
		return "skills match"
	case types.DimensionExperience:
		return "experience fit"
	case types.DimensionGoals:
		return "goals alignment"
	default:
		return string(pair.Profile) + " match"
	}
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
