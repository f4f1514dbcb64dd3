// Package body defines celestial bodies and resource sites.
package body

// Body is a celestial body or resource site in a system. Immutable per tick.
// Materials holds relative availability weights in [0,1], describing
// presence likelihood/richness, not a depletable quantity.
type Body struct {
	ID        int64              `json:"id"`
	System    string             `json:"system"`
	Name      string             `json:"name"`
	Type      string             `json:"type"` // "planet", "moon", "asteroid_belt"
	X         float64            `json:"x"`
	Y         float64            `json:"y"`
	Materials map[string]float64 `json:"materials"`
}

// Clone returns a deep copy safe to hand to readers.
func (b Body) Clone() Body {
	cp := b
	cp.Materials = make(map[string]float64, len(b.Materials))
	for k, v := range b.Materials {
		cp.Materials[k] = v
	}
	return cp
}

// BootstrapSol is the default starter layout used when a fresh universe
// is initialized with no bodies at all.
func BootstrapSol() []Body {
	return []Body{
		{
			ID:     1,
			System: "Sol",
			Name:   "Sol - Inner Belt",
			Type:   "asteroid_belt",
			X:      25.0,
			Y:      5.0,
			Materials: map[string]float64{
				"iron_ore":   0.7,
				"copper_ore": 0.2,
			},
		},
		{
			ID:     2,
			System: "Sol",
			Name:   "Sol - Outer Belt",
			Type:   "asteroid_belt",
			X:      -40.0,
			Y:      10.0,
			Materials: map[string]float64{
				"iron_ore":   0.5,
				"copper_ore": 0.1,
			},
		},
	}
}
