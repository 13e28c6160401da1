package obj

import (
	"strings"
	"testing"

	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

func createTestOBJ() string {
	return `# test scene
mtllib scene.mtl
o Body
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 1.0 1.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vt 1.0 0.0
vt 1.0 1.0
vt 0.0 1.0
vn 0.0 0.0 1.0
usemtl skin
f 1/1/1 2/2/1 3/3/1 4/4/1
o COL_Body
v 0.0 0.0 1.0
v 1.0 0.0 1.0
v 0.5 1.0 1.0
f 5 6 7
`
}

func TestParse_Geometry(t *testing.T) {
	scene, err := Parse(strings.NewReader(createTestOBJ()))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	if len(scene.Positions) != 7 {
		t.Errorf("expected 7 positions, got %d", len(scene.Positions))
	}
	if len(scene.Texcoords) != 4 {
		t.Errorf("expected 4 texcoords, got %d", len(scene.Texcoords))
	}
	if len(scene.Normals) != 1 {
		t.Errorf("expected 1 normal, got %d", len(scene.Normals))
	}

	if scene.Positions[1] != vecmath.V3(1, 0, 0) {
		t.Errorf("expected position (1, 0, 0), got %v", scene.Positions[1])
	}
	if scene.Texcoords[2] != [2]float32{1, 1} {
		t.Errorf("expected texcoord (1, 1), got %v", scene.Texcoords[2])
	}
	if scene.Normals[0] != vecmath.V3(0, 0, 1) {
		t.Errorf("expected normal (0, 0, 1), got %v", scene.Normals[0])
	}

	if len(scene.MTLLibs) != 1 || scene.MTLLibs[0] != "scene.mtl" {
		t.Errorf("expected mtllib scene.mtl, got %v", scene.MTLLibs)
	}
}

func TestParse_ObjectsAndMaterials(t *testing.T) {
	scene, err := Parse(strings.NewReader(createTestOBJ()))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	if len(scene.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(scene.Objects))
	}
	if scene.Objects[0].Name != "Body" {
		t.Errorf("expected object Body, got %q", scene.Objects[0].Name)
	}
	if scene.Objects[1].Name != "COL_Body" {
		t.Errorf("expected object COL_Body, got %q", scene.Objects[1].Name)
	}

	if len(scene.Objects[0].Faces) != 1 {
		t.Fatalf("expected 1 face on Body, got %d", len(scene.Objects[0].Faces))
	}
	if scene.Objects[0].Faces[0].Material != "skin" {
		t.Errorf("expected material skin, got %q", scene.Objects[0].Faces[0].Material)
	}

	// usemtl stays active until the next one, across object boundaries.
	if scene.Objects[1].Faces[0].Material != "skin" {
		t.Errorf("expected material skin to carry over, got %q", scene.Objects[1].Faces[0].Material)
	}
}

func TestParse_FaceCorners(t *testing.T) {
	scene, err := Parse(strings.NewReader(createTestOBJ()))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	full := scene.Objects[0].Faces[0]
	if len(full.Corners) != 4 {
		t.Fatalf("expected 4 corners, got %d", len(full.Corners))
	}
	if full.Corners[0] != (FaceCorner{Position: 0, Texcoord: 0, Normal: 0}) {
		t.Errorf("expected corner (0, 0, 0), got %+v", full.Corners[0])
	}
	if full.Corners[3] != (FaceCorner{Position: 3, Texcoord: 3, Normal: 0}) {
		t.Errorf("expected corner (3, 3, 0), got %+v", full.Corners[3])
	}

	bare := scene.Objects[1].Faces[0]
	if bare.Corners[0] != (FaceCorner{Position: 4, Texcoord: -1, Normal: -1}) {
		t.Errorf("expected position-only corner (4, -1, -1), got %+v", bare.Corners[0])
	}
}

func TestParse_CornerWithoutTexcoord(t *testing.T) {
	data := `v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1
`
	scene, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	corner := scene.Objects[0].Faces[0].Corners[0]
	if corner != (FaceCorner{Position: 0, Texcoord: -1, Normal: 0}) {
		t.Errorf("expected corner (0, -1, 0), got %+v", corner)
	}
}

func TestParse_DefaultObject(t *testing.T) {
	data := `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	scene, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	if len(scene.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(scene.Objects))
	}
	if scene.Objects[0].Name != "default" {
		t.Errorf("expected object default, got %q", scene.Objects[0].Name)
	}
}

func TestParse_NegativeIndices(t *testing.T) {
	data := `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	scene, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	corners := scene.Objects[0].Faces[0].Corners
	for i, corner := range corners {
		if corner.Position != i {
			t.Errorf("expected corner %d at position %d, got %d", i, i, corner.Position)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad position value", "v 1.0 abc 2.0\n"},
		{"short texcoord", "vt 1.0\n"},
		{"face too small", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"index zero", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n"},
		{"malformed corner", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/1/1/1 2 3\n"},
		{"texcoord out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nf 1/1 2/2 3/1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.data)); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestFace_Triangulate(t *testing.T) {
	scene, err := Parse(strings.NewReader(createTestOBJ()))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}

	tris := scene.Objects[0].Faces[0].Triangulate()
	if len(tris) != 2 {
		t.Fatalf("expected 2 triangles from quad, got %d", len(tris))
	}

	expected := [][3]int{{0, 1, 2}, {0, 2, 3}}
	for i, tri := range tris {
		for j, corner := range tri {
			if corner.Position != expected[i][j] {
				t.Errorf("triangle %d corner %d: expected position %d, got %d",
					i, j, expected[i][j], corner.Position)
			}
		}
	}
}

func TestFace_TriangulateDegenerate(t *testing.T) {
	face := Face{Corners: []FaceCorner{{Position: 0}, {Position: 1}}}
	if tris := face.Triangulate(); tris != nil {
		t.Errorf("expected nil for degenerate face, got %v", tris)
	}
}
