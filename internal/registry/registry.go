// Package registry holds the canonical definitions of materials and
// buildable station modules. The registry is loaded once at boot from an
// embedded YAML data file and is immutable afterwards; every other package
// refers to materials and modules by id through this package.
package registry

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var embeddedRegistry []byte

// MaterialDef describes a material type, not an amount.
// "What is iron_ore?", never "how much iron_ore do I have?".
type MaterialDef struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"` // "raw", "refined", "manufactured"
}

// ModuleDef is the pure data definition of a station module.
//
// PowerDelta: positive generates power, negative consumes it.
// SlotCost: station module slots occupied (v1 always 1, but keep the field).
// Cost: material requirements paid up-front when the build is queued.
// BuildTime: seconds of sim time until the build completes.
type ModuleDef struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`

	PowerDelta   float64 `yaml:"power_delta" json:"power_delta"`
	CrewRequired float64 `yaml:"crew_required" json:"crew_required"`
	SlotCost     float64 `yaml:"slot_cost" json:"slot_cost"`

	BuildTime float64            `yaml:"build_time" json:"build_time"`
	Cost      map[string]float64 `yaml:"cost" json:"cost"`

	// Effects are capacity deltas applied to a station's caps on install,
	// keyed by capacity name (power_cap, crew_cap, defense, ...).
	Effects map[string]float64 `yaml:"effects" json:"effects"`
}

// Registry is the immutable set of material and module definitions.
type Registry struct {
	materials map[string]MaterialDef
	modules   map[string]ModuleDef

	// Declaration order preserved for stable API listings.
	materialOrder []string
	moduleOrder   []string
}

type registryFile struct {
	Materials []MaterialDef `yaml:"materials"`
	Modules   []ModuleDef   `yaml:"modules"`
}

// Load parses and validates the embedded registry data.
func Load() (*Registry, error) {
	return Parse(embeddedRegistry)
}

// Parse builds a Registry from raw YAML. It fails loudly: a registry with
// duplicate ids, costs referencing unknown materials, or nonsensical numbers
// must never reach the engine.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: failed to parse yaml: %w", err)
	}

	r := &Registry{
		materials: make(map[string]MaterialDef, len(file.Materials)),
		modules:   make(map[string]ModuleDef, len(file.Modules)),
	}

	for _, m := range file.Materials {
		if m.ID == "" {
			return nil, fmt.Errorf("registry: material with empty id")
		}
		if _, dup := r.materials[m.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate material id: %s", m.ID)
		}
		r.materials[m.ID] = m
		r.materialOrder = append(r.materialOrder, m.ID)
	}

	for _, m := range file.Modules {
		if err := r.validateModule(m); err != nil {
			return nil, err
		}
		r.modules[m.ID] = m
		r.moduleOrder = append(r.moduleOrder, m.ID)
	}

	return r, nil
}

func (r *Registry) validateModule(m ModuleDef) error {
	if m.ID == "" {
		return fmt.Errorf("registry: module with empty id")
	}
	if _, dup := r.modules[m.ID]; dup {
		return fmt.Errorf("registry: duplicate module id: %s", m.ID)
	}
	if m.CrewRequired < 0 {
		return fmt.Errorf("registry: %s: crew_required must be >= 0", m.ID)
	}
	if m.SlotCost < 0 {
		return fmt.Errorf("registry: %s: slot_cost must be >= 0", m.ID)
	}
	if m.BuildTime < 0 {
		return fmt.Errorf("registry: %s: build_time must be >= 0", m.ID)
	}
	for matID, amt := range m.Cost {
		if !r.IsValidMaterial(matID) {
			return fmt.Errorf("registry: %s: unknown material id in cost: %s", m.ID, matID)
		}
		if amt <= 0 {
			return fmt.Errorf("registry: %s: cost %s must be > 0", m.ID, matID)
		}
	}
	return nil
}

// Material returns the definition for a material id.
func (r *Registry) Material(id string) (MaterialDef, bool) {
	m, ok := r.materials[id]
	return m, ok
}

// Module returns the definition for a module id.
func (r *Registry) Module(id string) (ModuleDef, bool) {
	m, ok := r.modules[id]
	return m, ok
}

// IsValidMaterial reports whether id names a known material.
func (r *Registry) IsValidMaterial(id string) bool {
	_, ok := r.materials[id]
	return ok
}

// Materials lists all material definitions in declaration order.
func (r *Registry) Materials() []MaterialDef {
	out := make([]MaterialDef, 0, len(r.materialOrder))
	for _, id := range r.materialOrder {
		out = append(out, r.materials[id])
	}
	return out
}

// Modules lists all module definitions in declaration order.
func (r *Registry) Modules() []ModuleDef {
	out := make([]ModuleDef, 0, len(r.moduleOrder))
	for _, id := range r.moduleOrder {
		out = append(out, r.modules[id])
	}
	return out
}
