// Package preset provides the named-expression library. Presets are loaded
// from YAML content files and validated at load time, so a registered
// preset always carries a parseable expression.
package preset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicetab/internal/expr"
)

// Preset is a named dice expression, loaded from YAML.
type Preset struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Expression  string `yaml:"expression"`
	Description string `yaml:"description"`

	// Node is the parsed expression, populated during load.
	Node expr.Node `yaml:"-"`
	// Canonical is Node's canonical rendering, used as the cache key.
	Canonical string `yaml:"-"`
}

// presetFile is the on-disk layout: each file holds a list of presets.
type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Registry holds all known Presets keyed by ID.
type Registry struct {
	presets map[string]*Preset
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{presets: make(map[string]*Preset)}
}

// Register adds p to the registry, overwriting any existing entry with the
// same ID.
//
// Precondition: p must not be nil and p.ID must not be empty.
func (r *Registry) Register(p *Preset) {
	r.presets[p.ID] = p
}

// Get returns the Preset for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Preset, bool) {
	p, ok := r.presets[id]
	return p, ok
}

// All returns every registered Preset sorted by ID.
func (r *Registry) All() []*Preset {
	out := make([]*Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	return len(r.presets)
}

// LoadDirectory reads every *.yaml file in dir, parses each as a preset
// list, validates every expression, and returns a populated Registry.
// Duplicate IDs across files are a content error.
//
// Precondition: dir must be a readable directory.
// Postcondition: Every returned Preset has a non-nil Node and a Canonical
// form that reparses to it.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading preset dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var file presetFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for i := range file.Presets {
			p := file.Presets[i]
			if err := validate(&p); err != nil {
				return nil, fmt.Errorf("%q: %w", path, err)
			}
			if _, exists := reg.Get(p.ID); exists {
				return nil, fmt.Errorf("%q: duplicate preset id %q", path, p.ID)
			}
			reg.Register(&p)
		}
	}
	return reg, nil
}

// validate checks required fields and parses the expression, filling Node
// and Canonical. IDs are lowercased so lookups are case-insensitive.
func validate(p *Preset) error {
	p.ID = strings.ToLower(strings.TrimSpace(p.ID))
	if p.ID == "" {
		return fmt.Errorf("preset with name %q has no id", p.Name)
	}
	if p.Expression == "" {
		return fmt.Errorf("preset %q has no expression", p.ID)
	}
	node, err := expr.Parse(p.Expression)
	if err != nil {
		return fmt.Errorf("preset %q: %w", p.ID, err)
	}
	p.Node = node
	p.Canonical = node.String()
	return nil
}
