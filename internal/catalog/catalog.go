// Package catalog loads read-only YAML catalogs of candidate profiles and
// job postings. The engine never writes entities; editing the files and
// reloading is the only mutation path.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hireloop/matchengine/pkg/types"
)

// ErrNotFound is returned when a requested entity is not in the catalog.
var ErrNotFound = errors.New("catalog entry not found")

// File is the YAML document shape. One file can carry profiles, jobs, or
// both; a catalog directory merges all of its files.
type File struct {
	Profiles []*types.Profile    `yaml:"profiles"`
	Jobs     []*types.JobPosting `yaml:"jobs"`
}

// Catalog holds loaded entities indexed by ID.
type Catalog struct {
	profiles map[string]*types.Profile
	jobs     map[string]*types.JobPosting
}

// Load reads a catalog from path. A directory is walked recursively for
// .yaml/.yml files (hidden directories skipped); a plain file is parsed
// directly. IDs must be unique across the whole catalog.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access catalog %q: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = collectCatalogFiles(path)
		if err != nil {
			return nil, fmt.Errorf("walk catalog %q: %w", path, err)
		}
	}

	catalog := &Catalog{
		profiles: make(map[string]*types.Profile),
		jobs:     make(map[string]*types.JobPosting),
	}
	for _, file := range files {
		if err := catalog.loadFile(file); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (c *Catalog) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, profile := range doc.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("%s: profile with empty id", path)
		}
		if _, exists := c.profiles[profile.ID]; exists {
			return fmt.Errorf("%s: duplicate profile id %q", path, profile.ID)
		}
		c.profiles[profile.ID] = profile
	}
	for _, job := range doc.Jobs {
		if job.ID == "" {
			return fmt.Errorf("%s: job with empty id", path)
		}
		if _, exists := c.jobs[job.ID]; exists {
			return fmt.Errorf("%s: duplicate job id %q", path, job.ID)
		}
		c.jobs[job.ID] = job
	}
	return nil
}

// Profiles returns all profiles sorted by ID.
func (c *Catalog) Profiles() []*types.Profile {
	profiles := make([]*types.Profile, 0, len(c.profiles))
	for _, profile := range c.profiles {
		profiles = append(profiles, profile)
	}
	slices.SortFunc(profiles, func(a, b *types.Profile) int {
		return strings.Compare(a.ID, b.ID)
	})
	return profiles
}

// Jobs returns all job postings sorted by ID.
func (c *Catalog) Jobs() []*types.JobPosting {
	jobs := make([]*types.JobPosting, 0, len(c.jobs))
	for _, job := range c.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *types.JobPosting) int {
		return strings.Compare(a.ID, b.ID)
	})
	return jobs
}

// Profile returns the profile with the given ID, or ErrNotFound.
func (c *Catalog) Profile(id string) (*types.Profile, error) {
	profile, ok := c.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: profile %q", ErrNotFound, id)
	}
	return profile, nil
}

// Job returns the job posting with the given ID, or ErrNotFound.
func (c *Catalog) Job(id string) (*types.JobPosting, error) {
	job, ok := c.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %q", ErrNotFound, id)
	}
	return job, nil
}

// Entities returns every catalog entry as one slice, profiles then jobs,
// each group sorted by ID. Bulk cache warming consumes this.
func (c *Catalog) Entities() []types.Entity {
	entities := make([]types.Entity, 0, len(c.profiles)+len(c.jobs))
	for _, profile := range c.Profiles() {
		entities = append(entities, profile)
	}
	for _, job := range c.Jobs() {
		entities = append(entities, job)
	}
	return entities
}

// collectCatalogFiles walks dirPath and returns all .yaml/.yml files found.
// Hidden directories (e.g. .git) are skipped; the walk is lexical, so load
// order is stable.
func collectCatalogFiles(dirPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dirPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
