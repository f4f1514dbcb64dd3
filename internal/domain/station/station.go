// Package station defines the core station entity and its derived stats.
// This package is PURE domain code and must NOT import infrastructure
// packages (network, storage, platform).
package station

// Reservation tracks the single outstanding build on a station.
// One build at a time per station; the engine clears it when the
// matching build-complete event fires.
type Reservation struct {
	ModuleID string  `json:"module_id"`
	EventID  int64   `json:"event_id"`
	FiresAt  float64 `json:"fires_at"`
}

// Station is an entity in the universe, owned by at most one player.
type Station struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	OwnerUserID int64   `json:"owner_user_id"` // 0 means unclaimed / NPC-owned
	System      string  `json:"system"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`

	Credits   float64            `json:"credits"`
	Inventory map[string]float64 `json:"inventory"` // material id -> amount
	Modules   []string           `json:"modules"`   // installed module ids, duplicates allowed

	Build *Reservation `json:"build,omitempty"`
}

// TrySpend subtracts cost from the inventory if it is fully covered.
// Returns false and mutates nothing when any line is short.
func (s *Station) TrySpend(cost map[string]float64) bool {
	for item, amount := range cost {
		if s.Inventory[item] < amount {
			return false
		}
	}
	for item, amount := range cost {
		s.Inventory[item] -= amount
		// Keep saves clean: drop near-zero entries.
		if s.Inventory[item] <= Epsilon {
			delete(s.Inventory, item)
		}
	}
	return true
}

// Grant adds amount of a material to the inventory.
func (s *Station) Grant(materialID string, amount float64) {
	if s.Inventory == nil {
		s.Inventory = make(map[string]float64)
	}
	s.Inventory[materialID] += amount
}

// CleanInventory removes entries for ids the validator rejects and drops
// near-zero amounts. Keeps old saves usable if a material id was ever typoed.
func (s *Station) CleanInventory(isValid func(string) bool) {
	for id, amount := range s.Inventory {
		if !isValid(id) || amount <= Epsilon {
			delete(s.Inventory, id)
		}
	}
}

// Clone returns a deep copy safe to hand to readers.
func (s *Station) Clone() *Station {
	cp := *s
	cp.Inventory = make(map[string]float64, len(s.Inventory))
	for k, v := range s.Inventory {
		cp.Inventory[k] = v
	}
	cp.Modules = append([]string(nil), s.Modules...)
	if s.Build != nil {
		b := *s.Build
		cp.Build = &b
	}
	return &cp
}
