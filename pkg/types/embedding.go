package types

import "sort"

// DimensionKey names one semantic facet of an entity. Each dimension is
// decomposed to text and embedded independently, so facets can be compared
// across entity kinds (a profile's skills against a job's description).
type DimensionKey string

// Profile dimensions.
const (
	DimensionSkills     DimensionKey = "skills"
	DimensionExperience DimensionKey = "experience"
	DimensionGoals      DimensionKey = "goals"
)

// Job dimensions.
const (
	DimensionDescription  DimensionKey = "description"
	DimensionRequirements DimensionKey = "requirements"
)

// ProfileDimensions returns the valid profile dimension keys in canonical order.
func ProfileDimensions() []DimensionKey {
	return []DimensionKey{DimensionSkills, DimensionExperience, DimensionGoals}
}

// JobDimensions returns the valid job dimension keys in canonical order.
func JobDimensions() []DimensionKey {
	return []DimensionKey{DimensionDescription, DimensionRequirements}
}

// DimensionsFor returns the valid dimension set for an entity kind.
// Returns nil for unknown kinds.
func DimensionsFor(kind EntityKind) []DimensionKey {
	switch kind {
	case KindProfile:
		return ProfileDimensions()
	case KindJob:
		return JobDimensions()
	default:
		return nil
	}
}

// EmbeddingSet maps dimension keys to embedding vectors for one entity at one
// point in time. A missing key means the dimension's source text was empty or
// its embedding was skipped; callers cannot distinguish the two from the set
// alone and must not treat absence as a zero vector.
type EmbeddingSet map[DimensionKey][]float64

// Has reports whether the set contains a non-empty vector for dim.
func (s EmbeddingSet) Has(dim DimensionKey) bool {
	v, ok := s[dim]
	return ok && len(v) > 0
}

// Dimensions returns the keys present in the set, sorted lexicographically
// for deterministic iteration.
func (s EmbeddingSet) Dimensions() []DimensionKey {
	dims := make([]DimensionKey, 0, len(s))
	for dim := range s {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}
