// Package types defines the shared data model for the matching engine:
// candidate profiles, job postings, dimension-keyed embedding sets, and
// compatibility results.
package types

// EntityKind identifies which side of a match an entity belongs to.
type EntityKind string

const (
	// KindProfile marks candidate profiles.
	KindProfile EntityKind = "profile"

	// KindJob marks job postings.
	KindJob EntityKind = "job"
)

// Entity is implemented by every record kind the engine can embed and match.
// The engine only ever reads entities; it never writes them back.
type Entity interface {
	// EntityID returns the stable identifier used for cache keys and
	// deterministic tie-breaking in ranked output.
	EntityID() string

	// Kind returns the entity kind (profile or job).
	Kind() EntityKind
}

// ExperienceEntry is a single work-history item on a profile.
type ExperienceEntry struct {
	Title   string  `json:"title" yaml:"title"`                         // Role title (e.g., "Backend Engineer")
	Company string  `json:"company,omitempty" yaml:"company,omitempty"` // Employer name
	Years   float64 `json:"years,omitempty" yaml:"years,omitempty"`     // Duration in years
	Summary string  `json:"summary,omitempty" yaml:"summary,omitempty"` // Free-text description of the role
}

// Profile is a candidate profile. Skills and Experience keep their source
// order: decomposition is order-preserving, so reordering either list is a
// content change and produces new fingerprints.
type Profile struct {
	ID         string            `json:"id" yaml:"id"`                                       // Stable identifier
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`               // Display name
	Skills     []string          `json:"skills,omitempty" yaml:"skills,omitempty"`           // Skill labels, source order
	Experience []ExperienceEntry `json:"experience,omitempty" yaml:"experience,omitempty"`   // Work history, source order
	Goals      string            `json:"goals,omitempty" yaml:"goals,omitempty"`             // Stated career goals
	ResumeText string            `json:"resume_text,omitempty" yaml:"resume_text,omitempty"` // Raw resume text, kept for provenance; not embedded directly
}

// EntityID returns the profile's stable identifier.
func (p *Profile) EntityID() string { return p.ID }

// Kind returns KindProfile.
func (p *Profile) Kind() EntityKind { return KindProfile }

// JobPosting is an open position to match candidates against.
type JobPosting struct {
	ID             string   `json:"id" yaml:"id"`                                               // Stable identifier
	Title          string   `json:"title,omitempty" yaml:"title,omitempty"`                     // Position title
	Company        string   `json:"company,omitempty" yaml:"company,omitempty"`                 // Hiring company
	Location       string   `json:"location,omitempty" yaml:"location,omitempty"`               // Location or "remote"
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`         // Free-text description
	Requirements   []string `json:"requirements,omitempty" yaml:"requirements,omitempty"`       // Requirement lines, source order
	RequiredSkills []string `json:"required_skills,omitempty" yaml:"required_skills,omitempty"` // Parsed skill labels, source order
}

// EntityID returns the posting's stable identifier.
func (j *JobPosting) EntityID() string { return j.ID }

// Kind returns KindJob.
func (j *JobPosting) Kind() EntityKind { return KindJob }

// Compile-time assertions.
var (
	_ Entity = (*Profile)(nil)
	_ Entity = (*JobPosting)(nil)
)
