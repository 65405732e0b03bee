// Package workflow defines the WorkflowDefinition/WorkflowResult data model
// and the workflow table loader. Its YAML loading convention (yaml tags,
// gopkg.in/yaml.v3) is grounded on orchestration.WorkflowDefinition.
package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Sheshiyer/Selemene-engine-sub002/cache"
	"github.com/Sheshiyer/Selemene-engine-sub002/engine"
	"github.com/Sheshiyer/Selemene-engine-sub002/synthesis"
)

// FailurePolicy is the workflow-level partial-failure policy tag:
// best_effort returns partial results alongside per-engine errors,
// all_or_none fails the whole workflow if any engine fails.
type FailurePolicy string

const (
	PolicyBestEffort FailurePolicy = "best_effort" // default
	PolicyAllOrNone  FailurePolicy = "all_or_none"
)

// Definition is WorkflowDefinition.
type Definition struct {
	ID         string              `yaml:"id" json:"id"`
	Name       string              `yaml:"name" json:"name"`
	EngineIDs  []engine.EngineId   `yaml:"engine_ids" json:"engine_ids"`
	Strategy   synthesis.Strategy  `yaml:"strategy" json:"strategy"`
	TTLClass   cache.Class         `yaml:"ttl_class" json:"ttl_class"`
	Policy     FailurePolicy       `yaml:"policy" json:"policy"`
}

// yamlFile is the on-disk shape of the workflow definitions file.
type yamlFile struct {
	Workflows []Definition `yaml:"workflows"`
}

// Table is the sealed-at-startup workflow lookup, matching the registry's
// seal-once semantics and its no-dynamic-hot-reload posture.
type Table struct {
	defs map[string]Definition
}

// LoadTable reads a YAML file of workflow definitions. An empty path yields
// an empty table (no workflows configured).
func LoadTable(path string) (*Table, error) {
	t := &Table{defs: make(map[string]Definition)}
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("workflow: parse %s: %w", path, err)
	}
	for _, d := range f.Workflows {
		if d.Policy == "" {
			d.Policy = PolicyBestEffort
		}
		if d.Strategy == "" {
			d.Strategy = synthesis.StrategyThemeDetection
		}
		t.defs[d.ID] = d
	}
	return t, nil
}

// NewTable builds a Table directly from definitions, used by tests and by
// in-process bootstrapping that does not read a YAML file.
func NewTable(defs ...Definition) *Table {
	t := &Table{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Policy == "" {
			d.Policy = PolicyBestEffort
		}
		if d.Strategy == "" {
			d.Strategy = synthesis.StrategyThemeDetection
		}
		t.defs[d.ID] = d
	}
	return t
}

// Get returns the definition for id, or (Definition{}, false) if absent.
func (t *Table) Get(id string) (Definition, bool) {
	d, ok := t.defs[id]
	return d, ok
}

// List returns every definition, sorted by id.
func (t *Table) List() []Definition {
	out := make([]Definition, 0, len(t.defs))
	for _, d := range t.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
