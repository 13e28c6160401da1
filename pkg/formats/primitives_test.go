package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// createQuadPrimitives builds a unit quad in the static vertex format.
func createQuadPrimitives() *Primitives {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	uvs := [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	p := &Primitives{Format: "xyznuvtb"}
	for i := range positions {
		var v Vertex
		v.SetPosition(positions[i][0], positions[i][1], positions[i][2])
		v.SetNormal(0, 0, 1)
		v.SetUV(uvs[i][0], uvs[i][1])
		v.SetTangent(1, 0, 0)
		v.SetBinormal(0, 1, 0)
		p.Vertices = append(p.Vertices, v)
	}
	p.Indices = []uint32{0, 1, 2, 0, 2, 3}
	p.Groups = []PrimitiveGroup{{StartIndex: 0, NumPrims: 2, StartVertex: 0, NumVertices: 4}}
	return p
}

// createSkinnedPrimitives builds a single skinned triangle.
func createSkinnedPrimitives() *Primitives {
	p := &Primitives{Format: "xyznuviiiwwtb"}
	for i := 0; i < 3; i++ {
		v := createSkinnedVertex()
		v.SetPosition(float32(i), 0, 0)
		p.Vertices = append(p.Vertices, v)
	}
	p.Indices = []uint32{0, 1, 2}
	p.Groups = []PrimitiveGroup{{StartIndex: 0, NumPrims: 1, StartVertex: 0, NumVertices: 3}}
	return p
}

func TestWritePrimitives_Layout(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePrimitives(&buf, createQuadPrimitives()); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}
	data := buf.Bytes()
	le := binary.LittleEndian

	// Vertex section: identifier, count, 4 packed records of 32 bytes.
	if string(data[:8]) != "xyznuvtb" {
		t.Errorf("expected format identifier, got %q", data[:8])
	}
	for i := 8; i < 64; i++ {
		if data[i] != 0 {
			t.Fatalf("identifier padding not zero at byte %d", i)
		}
	}
	if got := le.Uint32(data[64:]); got != 4 {
		t.Errorf("expected vertex count 4, got %d", got)
	}
	if got := math.Float32frombits(le.Uint32(data[68:])); got != 0 {
		t.Errorf("expected position x 0, got %f", got)
	}
	// Normal (0,0,1) packs to azimuth 32768, elevation 65535.
	if got := le.Uint16(data[80:]); got != 32768 {
		t.Errorf("expected packed normal azimuth 32768, got %d", got)
	}
	if got := le.Uint16(data[82:]); got != 65535 {
		t.Errorf("expected packed normal elevation 65535, got %d", got)
	}
	if got := math.Float32frombits(le.Uint32(data[84:])); got != 0 {
		t.Errorf("expected packed u 0, got %f", got)
	}
	if got := math.Float32frombits(le.Uint32(data[88:])); got != 0 {
		t.Errorf("expected packed v 0, got %f", got)
	}
	// Tangent (1,0,0) packs to the angle midpoints.
	if got := le.Uint16(data[92:]); got != 32768 {
		t.Errorf("expected packed tangent azimuth 32768, got %d", got)
	}
	if got := le.Uint16(data[94:]); got != 32768 {
		t.Errorf("expected packed tangent elevation 32768, got %d", got)
	}

	// Index section at 196: identifier, counts, 16-bit indices, group.
	if string(data[196:200]) != "list" {
		t.Errorf("expected index format list, got %q", data[196:200])
	}
	if got := le.Uint32(data[260:]); got != 6 {
		t.Errorf("expected index count 6, got %d", got)
	}
	if got := le.Uint32(data[264:]); got != 1 {
		t.Errorf("expected group count 1, got %d", got)
	}
	wantIndices := []uint16{0, 1, 2, 0, 2, 3}
	for i, want := range wantIndices {
		if got := le.Uint16(data[268+i*2:]); got != want {
			t.Errorf("index %d: expected %d, got %d", i, want, got)
		}
	}
	group := []uint32{0, 2, 0, 4}
	for i, want := range group {
		if got := le.Uint32(data[280+i*4:]); got != want {
			t.Errorf("group field %d: expected %d, got %d", i, want, got)
		}
	}
	if len(data) != 296 {
		t.Errorf("expected 296 bytes, got %d", len(data))
	}
}

func TestWritePrimitives_RoundTrip(t *testing.T) {
	src := createQuadPrimitives()
	var buf bytes.Buffer
	if err := WritePrimitives(&buf, src); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}

	f, err := ParsePrimitives(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePrimitives failed: %v", err)
	}
	if f.Format != "xyznuvtb" {
		t.Errorf("expected format xyznuvtb, got %q", f.Format)
	}
	if f.IndexFormat != "list" {
		t.Errorf("expected index format list, got %q", f.IndexFormat)
	}
	if len(f.Vertices) != 4 || len(f.Indices) != 6 || len(f.Groups) != 1 {
		t.Fatalf("wrong counts: %d vertices, %d indices, %d groups",
			len(f.Vertices), len(f.Indices), len(f.Groups))
	}
	if f.TriangleCount() != 2 {
		t.Errorf("expected 2 triangles, got %d", f.TriangleCount())
	}
	for i := range src.Indices {
		if f.Indices[i] != src.Indices[i] {
			t.Errorf("index %d: expected %d, got %d", i, src.Indices[i], f.Indices[i])
		}
	}
	if f.Groups[0] != src.Groups[0] {
		t.Errorf("group mismatch: expected %+v, got %+v", src.Groups[0], f.Groups[0])
	}
	const tolerance = 1e-3
	for i := range src.Vertices {
		want, got := &src.Vertices[i], &f.Vertices[i]
		if got.Position != want.Position {
			t.Errorf("vertex %d: position %v, got %v", i, want.Position, got.Position)
		}
		if got.UV != want.UV {
			t.Errorf("vertex %d: uv %v, got %v", i, want.UV, got.UV)
		}
		for c := 0; c < 3; c++ {
			if delta := got.Normal[c] - want.Normal[c]; delta > tolerance || delta < -tolerance {
				t.Errorf("vertex %d: normal %v, got %v", i, want.Normal, got.Normal)
				break
			}
		}
	}
}

func TestWritePrimitives_SkinnedRoundTrip(t *testing.T) {
	src := createSkinnedPrimitives()
	var buf bytes.Buffer
	if err := WritePrimitives(&buf, src); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}
	// 64 + 4 + 3*37 vertex bytes, 64 + 8 + 3*2 + 16 index bytes.
	if buf.Len() != 179+94 {
		t.Errorf("expected 273 bytes, got %d", buf.Len())
	}

	f, err := ParsePrimitives(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePrimitives failed: %v", err)
	}
	v := &f.Vertices[0]
	if v.BoneIndices != [3]int{0, 1, 2} {
		t.Errorf("expected bone indices [0 1 2], got %v", v.BoneIndices)
	}
	var sum float32
	for c := 0; c < 3; c++ {
		delta := v.BoneWeights[c] - src.Vertices[0].BoneWeights[c]
		if delta > 0.01 || delta < -0.01 {
			t.Errorf("bone weight %d: expected %f, got %f", c, src.Vertices[0].BoneWeights[c], v.BoneWeights[c])
		}
		sum += v.BoneWeights[c]
	}
	if delta := sum - 1; delta > 1e-6 || delta < -1e-6 {
		t.Errorf("decoded weights sum to %f, expected 1", sum)
	}
}

func TestWritePrimitives_MissingAttribute(t *testing.T) {
	p := createSkinnedPrimitives()
	p.Vertices[2].attrs &^= maskUV0

	var buf bytes.Buffer
	err := WritePrimitives(&buf, p)
	var missing *MissingAttributeError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAttributeError, got %v", err)
	}
	if missing.Vertex != 2 || missing.Attribute != "uv0" {
		t.Errorf("expected vertex 2 attribute uv0, got vertex %d attribute %q",
			missing.Vertex, missing.Attribute)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output on validation failure, got %d bytes", buf.Len())
	}
}

func TestWritePrimitives_EmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Primitives)
	}{
		{"no vertices", func(p *Primitives) { p.Vertices = nil }},
		{"no indices", func(p *Primitives) { p.Indices = nil }},
		{"no groups", func(p *Primitives) { p.Groups = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := createQuadPrimitives()
			tc.mutate(p)
			if err := p.Validate(); !errors.Is(err, ErrEmptyInput) {
				t.Errorf("expected ErrEmptyInput, got %v", err)
			}
		})
	}
}

func TestWritePrimitives_UnknownFormat(t *testing.T) {
	p := createQuadPrimitives()
	p.Format = "xyznuv"
	if err := p.Validate(); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestWritePrimitives_IndexOutOfRange(t *testing.T) {
	p := createQuadPrimitives()
	p.Indices[2] = 10

	err := p.Validate()
	var oob *IndexOutOfRangeError
	if !errors.As(err, &oob) {
		t.Fatalf("expected IndexOutOfRangeError, got %v", err)
	}
	if oob.Position != 2 || oob.Value != 10 || oob.VertexCount != 4 {
		t.Errorf("unexpected error detail: %+v", oob)
	}
}

func TestWritePrimitives_GroupRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Primitives)
	}{
		{"zero prims", func(p *Primitives) { p.Groups[0].NumPrims = 0 }},
		{"zero vertices", func(p *Primitives) { p.Groups[0].NumVertices = 0 }},
		{"index overrun", func(p *Primitives) { p.Groups[0].StartIndex = 3 }},
		{"vertex overrun", func(p *Primitives) { p.Groups[0].StartVertex = 2 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := createQuadPrimitives()
			tc.mutate(p)
			err := p.Validate()
			var gerr *GroupRangeError
			if !errors.As(err, &gerr) {
				t.Fatalf("expected GroupRangeError, got %v", err)
			}
			if gerr.Group != 0 {
				t.Errorf("expected group 0, got %d", gerr.Group)
			}
		})
	}
}

// createLargePrimitives builds a mesh with more vertices than 16-bit
// indices can address.
func createLargePrimitives() *Primitives {
	const count = 66000
	p := &Primitives{Format: "xyznuvtb"}
	p.Vertices = make([]Vertex, count)
	for i := range p.Vertices {
		v := createStaticVertex()
		v.SetPosition(float32(i), 0, 0)
		p.Vertices[i] = v
	}
	p.Indices = []uint32{0, 65990, 65999}
	p.Groups = []PrimitiveGroup{{StartIndex: 0, NumPrims: 1, StartVertex: 0, NumVertices: count}}
	return p
}

func TestWritePrimitives_IndexRangeExceeded(t *testing.T) {
	p := createLargePrimitives()

	var buf bytes.Buffer
	err := WritePrimitives(&buf, p)
	if !errors.Is(err, ErrIndexRangeExceeded) {
		t.Fatalf("expected ErrIndexRangeExceeded, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %d bytes", buf.Len())
	}
}

func TestWritePrimitives_32BitIndices(t *testing.T) {
	p := createLargePrimitives()
	p.Use32BitIndices = true

	var buf bytes.Buffer
	if err := WritePrimitives(&buf, p); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}
	f, err := ParsePrimitives(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePrimitives failed: %v", err)
	}
	if f.IndexFormat != "list32" {
		t.Errorf("expected index format list32, got %q", f.IndexFormat)
	}
	if f.Indices[1] != 65990 {
		t.Errorf("expected index 65990, got %d", f.Indices[1])
	}
}

func TestWritePrimitives_WithBSP(t *testing.T) {
	p := createQuadPrimitives()
	p.BSP = createTestBSPSection()

	var buf bytes.Buffer
	if err := WritePrimitives(&buf, p); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}
	f, err := ParsePrimitives(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePrimitives failed: %v", err)
	}
	if f.BSP == nil {
		t.Fatal("expected BSP section")
	}
	if len(f.BSP.Nodes) != len(p.BSP.Nodes) {
		t.Errorf("expected %d nodes, got %d", len(p.BSP.Nodes), len(f.BSP.Nodes))
	}
	if len(f.BSP.Triangles) != len(p.BSP.Triangles) {
		t.Errorf("expected %d triangles, got %d", len(p.BSP.Triangles), len(f.BSP.Triangles))
	}
	if f.BSP.Nodes[0] != p.BSP.Nodes[0] {
		t.Errorf("root node mismatch: expected %+v, got %+v", p.BSP.Nodes[0], f.BSP.Nodes[0])
	}
}

func TestExportPrimitives_AllOrNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models", "broken.primitives")

	p := createQuadPrimitives()
	p.Vertices[0].attrs &^= maskNormal
	if err := ExportPrimitives(path, p); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed export should not create the file")
	}

	if err := ExportPrimitives(path, createQuadPrimitives()); err != nil {
		t.Fatalf("ExportPrimitives failed: %v", err)
	}
	f, err := ReadPrimitivesFile(path)
	if err != nil {
		t.Fatalf("ReadPrimitivesFile failed: %v", err)
	}
	if len(f.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(f.Vertices))
	}
}
