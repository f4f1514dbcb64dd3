package station

import (
	"fmt"

	"github.com/Cronos79/station-game/internal/registry"
)

// Epsilon absorbs incremental floating-point accumulation in budget
// comparisons. Deliberate tolerance, not an oversight.
const Epsilon = 1e-9

// Capacity keys. Module effects add into caps under these names; effects may
// also introduce keys outside this set (refine_level, manufacture_level, ...)
// which carry through to the derived view untouched.
const (
	CapPower   = "power_cap"
	CapCrew    = "crew_cap"
	CapSlots   = "slot_cap"
	CapCargo   = "cargo_cap"
	CapDock    = "dock_cap"
	CapDefense = "defense"
	CapScan    = "scan_level"
)

// Caps maps capacity key -> capacity value.
type Caps map[string]float64

// Usage is what the installed modules consume against the caps.
type Usage struct {
	PowerUsed float64 `json:"power_used"`
	CrewUsed  float64 `json:"crew_used"`
	SlotsUsed float64 `json:"slots_used"`
}

// Stats is the derived capacity/usage pair. Never persisted; recomputed
// from the installed-modules list on every read.
type Stats struct {
	Caps  Caps  `json:"caps"`
	Usage Usage `json:"usage"`
}

// BaseCaps are the small fixed defaults every station starts from before
// module effects are applied.
func BaseCaps() Caps {
	return Caps{
		CapPower:   2.0,
		CapCrew:    2.0,
		CapSlots:   4.0,
		CapCargo:   20.0,
		CapDock:    1.0,
		CapDefense: 0.0,
		CapScan:    0.0,
	}
}

// ComputeStats derives caps and usage for an installed-modules list.
// An unknown module id here means persisted state disagrees with the
// registry: an internal-consistency error, never a player-facing failure.
func ComputeStats(modules []string, reg *registry.Registry) (Stats, error) {
	st := Stats{Caps: BaseCaps()}
	for _, id := range modules {
		def, ok := reg.Module(id)
		if !ok {
			return Stats{}, fmt.Errorf("station stats: module %q installed but missing from registry", id)
		}
		for key, delta := range def.Effects {
			st.Caps[key] += delta
		}
		st.Usage.SlotsUsed += def.SlotCost
		st.Usage.CrewUsed += def.CrewRequired
		// Only net consumers count against the power budget; producers
		// raise power_cap through their effects instead.
		if def.PowerDelta < 0 {
			st.Usage.PowerUsed += -def.PowerDelta
		}
	}
	return st, nil
}

// PreviewStats derives caps and usage for the current modules plus one
// hypothetical extra module, mutating nothing. Used by order validation
// before a build is committed.
func PreviewStats(modules []string, candidate string, reg *registry.Registry) (Stats, error) {
	preview := make([]string, 0, len(modules)+1)
	preview = append(preview, modules...)
	preview = append(preview, candidate)
	return ComputeStats(preview, reg)
}

// OverBudget lists every budget dimension the given stats violate,
// compared with the epsilon tolerance. Empty means the stats fit.
func (s Stats) OverBudget() []string {
	var violated []string
	if s.Usage.SlotsUsed > s.Caps[CapSlots]+Epsilon {
		violated = append(violated, "slots")
	}
	if s.Usage.CrewUsed > s.Caps[CapCrew]+Epsilon {
		violated = append(violated, "crew")
	}
	if s.Usage.PowerUsed > s.Caps[CapPower]+Epsilon {
		violated = append(violated, "power")
	}
	return violated
}

// Clone deep-copies the stats (caps map included).
func (s Stats) Clone() Stats {
	caps := make(Caps, len(s.Caps))
	for k, v := range s.Caps {
		caps[k] = v
	}
	return Stats{Caps: caps, Usage: s.Usage}
}
