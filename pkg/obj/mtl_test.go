package obj

import (
	"strings"
	"testing"
)

func createTestMTL() string {
	return `# material library
newmtl skin
Kd 0.800000 0.650000 0.500000
d 0.750000
map_Kd textures/skin diffuse.png
map_Bump -bm 1.000000 textures/skin_normal.png
Ns 250.000000
newmtl plate
Kd 0.200000 0.200000 0.250000
`
}

func TestParseMTL(t *testing.T) {
	materials, err := ParseMTL(strings.NewReader(createTestMTL()))
	if err != nil {
		t.Fatalf("failed to parse mtl: %v", err)
	}

	if len(materials) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(materials))
	}

	skin := materials["skin"]
	if skin == nil {
		t.Fatal("expected material skin")
	}
	if !skin.HasDiffuse {
		t.Error("expected skin to have a diffuse color")
	}
	if skin.Diffuse != [3]float32{0.8, 0.65, 0.5} {
		t.Errorf("expected diffuse (0.8, 0.65, 0.5), got %v", skin.Diffuse)
	}
	if !skin.HasAlpha || skin.Alpha != 0.75 {
		t.Errorf("expected alpha 0.75, got %v", skin.Alpha)
	}
	if skin.DiffuseMap != "textures/skin diffuse.png" {
		t.Errorf("expected diffuse map with spaces preserved, got %q", skin.DiffuseMap)
	}
	if skin.NormalMap != "textures/skin_normal.png" {
		t.Errorf("expected bump option stripped from normal map, got %q", skin.NormalMap)
	}
}

func TestParseMTL_Defaults(t *testing.T) {
	materials, err := ParseMTL(strings.NewReader(createTestMTL()))
	if err != nil {
		t.Fatalf("failed to parse mtl: %v", err)
	}

	plate := materials["plate"]
	if plate == nil {
		t.Fatal("expected material plate")
	}
	if plate.HasAlpha {
		t.Error("expected plate to have no explicit alpha")
	}
	if plate.Alpha != 1 {
		t.Errorf("expected default alpha 1, got %v", plate.Alpha)
	}
	if plate.DiffuseMap != "" || plate.NormalMap != "" {
		t.Errorf("expected no texture maps, got %q and %q", plate.DiffuseMap, plate.NormalMap)
	}
}

func TestParseMTL_SkipsOrphanDirectives(t *testing.T) {
	data := `Kd 1.0 0.0 0.0
newmtl solid
Kd 0.5 0.5 0.5
`
	materials, err := ParseMTL(strings.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse mtl: %v", err)
	}
	if len(materials) != 1 {
		t.Fatalf("expected 1 material, got %d", len(materials))
	}
	if materials["solid"].Diffuse != [3]float32{0.5, 0.5, 0.5} {
		t.Errorf("expected diffuse (0.5, 0.5, 0.5), got %v", materials["solid"].Diffuse)
	}
}

func TestParseMTL_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"newmtl without name", "newmtl\n"},
		{"short Kd", "newmtl a\nKd 0.5 0.5\n"},
		{"bad Kd value", "newmtl a\nKd 0.5 oops 0.5\n"},
		{"bad dissolve", "newmtl a\nd oops\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMTL(strings.NewReader(tt.data)); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}
