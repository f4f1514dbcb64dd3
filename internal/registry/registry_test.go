package registry

import (
	"testing"
)

func TestLoadEmbeddedRegistry(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(reg.Modules()) != 9 {
		t.Errorf("Expected 9 modules, got %d", len(reg.Modules()))
	}
	if len(reg.Materials()) != 9 {
		t.Errorf("Expected 9 materials, got %d", len(reg.Materials()))
	}

	solar, ok := reg.Module("solar_array_1")
	if !ok {
		t.Fatal("solar_array_1 missing")
	}
	if solar.PowerDelta != 4.0 || solar.BuildTime != 60.0 {
		t.Errorf("Unexpected solar_array_1 definition: %+v", solar)
	}
	if solar.Cost["iron_bar"] != 4.0 {
		t.Errorf("Unexpected solar_array_1 cost: %v", solar.Cost)
	}

	if _, ok := reg.Module("warp_drive_9"); ok {
		t.Error("Lookup of unknown module succeeded")
	}
	if !reg.IsValidMaterial("iron_ore") || reg.IsValidMaterial("unobtainium") {
		t.Error("Material validation wrong")
	}
}

func TestEveryCostMaterialIsDefined(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, m := range reg.Modules() {
		for material := range m.Cost {
			if !reg.IsValidMaterial(material) {
				t.Errorf("Module %s costs undefined material %s", m.ID, material)
			}
		}
	}
}

func TestParseRejectsDuplicateModuleIDs(t *testing.T) {
	data := []byte(`
materials:
  - id: iron_bar
    name: Iron Bar
    category: refined
modules:
  - id: thing_1
    name: Thing
    category: test
    build_time: 10.0
    cost:
      iron_bar: 1.0
  - id: thing_1
    name: Thing Again
    category: test
    build_time: 10.0
    cost:
      iron_bar: 1.0
`)
	if _, err := Parse(data); err == nil {
		t.Error("Expected error for duplicate module id")
	}
}

func TestParseRejectsUnknownCostMaterial(t *testing.T) {
	data := []byte(`
materials:
  - id: iron_bar
    name: Iron Bar
    category: refined
modules:
  - id: thing_1
    name: Thing
    category: test
    build_time: 10.0
    cost:
      unobtainium: 1.0
`)
	if _, err := Parse(data); err == nil {
		t.Error("Expected error for cost in undefined material")
	}
}

func TestParseRejectsNegativeValues(t *testing.T) {
	data := []byte(`
materials:
  - id: iron_bar
    name: Iron Bar
    category: refined
modules:
  - id: thing_1
    name: Thing
    category: test
    build_time: -5.0
    cost:
      iron_bar: 1.0
`)
	if _, err := Parse(data); err == nil {
		t.Error("Expected error for negative build_time")
	}
}

func TestListingsPreserveDeclarationOrder(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	modules := reg.Modules()
	if modules[0].ID != "solar_array_1" {
		t.Errorf("Expected solar_array_1 first, got %s", modules[0].ID)
	}
	materials := reg.Materials()
	if materials[0].ID != "iron_ore" {
		t.Errorf("Expected iron_ore first, got %s", materials[0].ID)
	}
}
