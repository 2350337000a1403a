// Package engine implements the semantic matching pipeline: dimensional
// decomposition of profiles and jobs, embedding orchestration against a
// fingerprint-keyed cache, weighted cosine scoring with an explainable
// breakdown, and top-K ranking.
package engine

import (
	"fmt"
	"strings"

	"github.com/hireloop/matchengine/pkg/types"
)

// Decompose maps an entity to the exact text to embed per dimension.
// It is a pure function of entity state: the same entity always yields the
// same text, and dimensions whose source fields are empty are omitted rather
// than mapped to an empty string. List fields are joined in source order, so
// reordering a list is a content change and produces new fingerprints.
func Decompose(entity types.Entity) (map[types.DimensionKey]string, error) {
	switch e := entity.(type) {
	case *types.Profile:
		return DecomposeProfile(e), nil
	case *types.JobPosting:
		return DecomposeJob(e), nil
	default:
		return nil, fmt.Errorf("unsupported entity type %T", entity)
	}
}

// DecomposeProfile extracts the skills, experience, and goals dimension
// texts from a candidate profile.
func DecomposeProfile(p *types.Profile) map[types.DimensionKey]string {
	texts := make(map[types.DimensionKey]string, 3)

	setDimension(texts, types.DimensionSkills, joinNonEmpty(p.Skills, ", "))

	lines := make([]string, 0, len(p.Experience))
	for _, entry := range p.Experience {
		if line := formatExperience(entry); line != "" {
			lines = append(lines, line)
		}
	}
	setDimension(texts, types.DimensionExperience, strings.Join(lines, "\n"))

	setDimension(texts, types.DimensionGoals, strings.TrimSpace(p.Goals))

	return texts
}

// DecomposeJob extracts the description and requirements dimension texts
// from a job posting.
func DecomposeJob(j *types.JobPosting) map[types.DimensionKey]string {
	texts := make(map[types.DimensionKey]string, 2)

	setDimension(texts, types.DimensionDescription, strings.TrimSpace(j.Description))

	requirements := joinNonEmpty(j.Requirements, "\n")
	if skills := joinNonEmpty(j.RequiredSkills, ", "); skills != "" {
		// The parsed skill list carries signal beyond the free-text
		// requirement lines, so it is embedded alongside them.
		if requirements != "" {
			requirements += "\n"
		}
		requirements += "Required skills: " + skills
	}
	setDimension(texts, types.DimensionRequirements, requirements)

	return texts
}

// formatExperience renders one work-history entry as a single line:
// "Title at Company (N years): Summary", eliding absent parts.
func formatExperience(entry types.ExperienceEntry) string {
	title := strings.TrimSpace(entry.Title)
	company := strings.TrimSpace(entry.Company)
	summary := strings.TrimSpace(entry.Summary)

	var b strings.Builder
	switch {
	case title != "" && company != "":
		b.WriteString(title)
		b.WriteString(" at ")
		b.WriteString(company)
	case title != "":
		b.WriteString(title)
	case company != "":
		b.WriteString(company)
	}

	if entry.Years > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "(%g years)", entry.Years)
	}

	if summary != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(summary)
	}

	return b.String()
}

// joinNonEmpty joins the trimmed, non-empty items with sep, preserving
// source order.
func joinNonEmpty(items []string, sep string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, sep)
}

func setDimension(texts map[types.DimensionKey]string, dim types.DimensionKey, text string) {
	if text != "" {
		texts[dim] = text
	}
}
