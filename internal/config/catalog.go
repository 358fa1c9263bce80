package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// WorkerType is one stage of the pipeline: a queue and, when Script is set,
// the worker process that drains it.
type WorkerType struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Script string `yaml:"script"`
}

// Catalog is the ordered list of known worker types. Its order is the
// display order of queues and workers.
type Catalog struct {
	Workers []WorkerType `yaml:"workers"`
}

// DefaultCatalog returns the standard pipeline.
func DefaultCatalog() Catalog {
	return Catalog{Workers: []WorkerType{
		{Name: "requirements-research", Label: "🔍 Research", Script: "agent-requirements-research.sh"},
		{Name: "planning", Label: "📋 Planning", Script: "agent-planning.sh"},
		{Name: "execution", Label: "⚙️ Execution", Script: "agent-execution.sh"},
		{Name: "pre-commit-check", Label: "✅ Pre-commit", Script: "agent-pre-commit-check.sh"},
		{Name: "commit-build", Label: "🔨 Build", Script: "agent-commit-build.sh"},
		{Name: "deploy", Label: "🚀 Deploy", Script: "agent-deploy.sh"},
		{Name: "e2e-test", Label: "🧪 E2E Test", Script: "agent-e2e-test.sh"},
		{Name: "announce", Label: "📢 Announce"},
	}}
}

// LoadCatalog reads a catalog from a YAML file. An empty path returns the
// default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return Catalog{}, fmt.Errorf("config: read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("config: parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("config: catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate rejects empty or duplicate worker names.
func (c Catalog) Validate() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("no workers defined")
	}
	seen := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker %d has no name", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("duplicate worker %q", w.Name)
		}
		seen[w.Name] = true
	}
	return nil
}

// Lookup returns the worker type with the given name.
func (c Catalog) Lookup(name string) (WorkerType, bool) {
	for _, w := range c.Workers {
		if w.Name == name {
			return w, true
		}
	}
	return WorkerType{}, false
}

// Label returns the display label for a name, or the name itself.
func (c Catalog) Label(name string) string {
	if w, ok := c.Lookup(name); ok && w.Label != "" {
		return w.Label
	}
	return name
}

// Launchable returns the worker types that have a launcher script.
func (c Catalog) Launchable() []WorkerType {
	var out []WorkerType
	for _, w := range c.Workers {
		if w.Script != "" {
			out = append(out, w)
		}
	}
	return out
}

// Order sorts names in catalog order. Names the catalog does not know
// follow, alphabetically.
func (c Catalog) Order(names []string) {
	rank := make(map[string]int, len(c.Workers))
	for i, w := range c.Workers {
		rank[w.Name] = i
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})
}
