package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/bigworld-export/pkg/compress"
)

// Index buffer identifiers written to the index section header.
const (
	indexFormat16 = "list"
	indexFormat32 = "list32"
)

// maxIndex16 is the largest vertex index a 16-bit index buffer can hold.
const maxIndex16 = 0xFFFF

// PrimitiveGroup describes one material's contiguous sub-range of the
// shared index and vertex buffers.
type PrimitiveGroup struct {
	StartIndex  uint32
	NumPrims    uint32
	StartVertex uint32
	NumVertices uint32
}

// Primitives is the full payload of one .primitives file: a vertex buffer
// in a registered format, a triangle index buffer partitioned into
// per-material groups, and an optional collision BSP section.
type Primitives struct {
	Format          string
	Vertices        []Vertex
	Indices         []uint32
	Groups          []PrimitiveGroup
	Use32BitIndices bool
	BSP             *BSPSection
}

// Validate checks the payload against its vertex format and the
// structural rules of the container. Writers call it before emitting any
// output so a bad payload never produces a partial file.
func (p *Primitives) Validate() error {
	format, err := GetFormat(p.Format)
	if err != nil {
		return err
	}
	if len(p.Vertices) == 0 {
		return fmt.Errorf("%w: no vertices", ErrEmptyInput)
	}
	if err := ValidateVertices(p.Vertices, format); err != nil {
		return err
	}
	if len(p.Indices) == 0 {
		return fmt.Errorf("%w: no indices", ErrEmptyInput)
	}
	for pos, idx := range p.Indices {
		if int(idx) >= len(p.Vertices) {
			return &IndexOutOfRangeError{Position: pos, Value: idx, VertexCount: len(p.Vertices)}
		}
	}
	if len(p.Groups) == 0 {
		return fmt.Errorf("%w: no primitive groups", ErrEmptyInput)
	}
	for i, g := range p.Groups {
		if g.NumPrims == 0 {
			return &GroupRangeError{Group: i, Reason: "zero primitive count"}
		}
		if g.NumVertices == 0 {
			return &GroupRangeError{Group: i, Reason: "zero vertex count"}
		}
		if uint64(g.StartIndex)+uint64(g.NumPrims)*3 > uint64(len(p.Indices)) {
			return &GroupRangeError{Group: i, Reason: "index range outside index buffer"}
		}
		if uint64(g.StartVertex)+uint64(g.NumVertices) > uint64(len(p.Vertices)) {
			return &GroupRangeError{Group: i, Reason: "vertex range outside vertex buffer"}
		}
	}
	if !p.Use32BitIndices {
		for _, idx := range p.Indices {
			if idx > maxIndex16 {
				return fmt.Errorf("%w: index %d does not fit 16 bits, enable 32-bit indices", ErrIndexRangeExceeded, idx)
			}
		}
	}
	if p.BSP != nil {
		if err := p.BSP.validate(); err != nil {
			return err
		}
	}
	return nil
}

// WritePrimitives validates p and serializes it to w.
func WritePrimitives(w io.Writer, p *Primitives) error {
	if err := p.Validate(); err != nil {
		return err
	}
	format, err := GetFormat(p.Format)
	if err != nil {
		return err
	}
	if err := writeVertexSection(w, p.Vertices, format); err != nil {
		return err
	}
	if err := writeIndexSection(w, p.Indices, p.Groups, p.Use32BitIndices); err != nil {
		return err
	}
	if p.BSP != nil {
		if err := writeBSPSection(w, p.BSP); err != nil {
			return err
		}
	}
	return nil
}

// ExportPrimitives writes p to path. The payload is validated and
// serialized in memory first, and parent directories are created as
// needed, so a failing export leaves the destination untouched.
func ExportPrimitives(path string, p *Primitives) error {
	var buf bytes.Buffer
	if err := WritePrimitives(&buf, p); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeVertexSection(w io.Writer, vertices []Vertex, format *VertexFormat) error {
	ident, err := padIdentifier(format.Identifier)
	if err != nil {
		return err
	}
	if _, err := w.Write(ident[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vertices))); err != nil {
		return err
	}
	for i := range vertices {
		if err := writeVertex(w, &vertices[i], format); err != nil {
			return err
		}
	}
	return nil
}

// writeVertex packs one record attribute by attribute in format order.
// Directions go through angle compression, weights through 255-sum
// quantization.
func writeVertex(w io.Writer, v *Vertex, format *VertexFormat) error {
	le := binary.LittleEndian
	for _, attr := range format.Attributes {
		var err error
		switch attr.Name {
		case "position":
			err = binary.Write(w, le, v.Position)
		case "normal":
			nu, nv := compress.CompressDir(v.Normal[0], v.Normal[1], v.Normal[2])
			err = binary.Write(w, le, [2]uint16{nu, nv})
		case "uv0":
			pu, pv := compress.PackUV(v.UV[0], v.UV[1])
			err = binary.Write(w, le, [2]float32{pu, pv})
		case "tangent":
			tu, tv := compress.CompressDir(v.Tangent[0], v.Tangent[1], v.Tangent[2])
			err = binary.Write(w, le, [2]uint16{tu, tv})
		case "binormal":
			bu, bv := compress.CompressDir(v.Binormal[0], v.Binormal[1], v.Binormal[2])
			err = binary.Write(w, le, [2]uint16{bu, bv})
		case "bone_idx":
			b0, b1, b2 := compress.QuantizeIndices(v.BoneIndices[:])
			_, err = w.Write([]byte{b0, b1, b2})
		case "bone_w":
			q0, q1, _ := compress.QuantizeWeights(v.BoneWeights[:])
			_, err = w.Write([]byte{q0, q1})
		default:
			return fmt.Errorf("format %q has unsupported attribute %q", format.Identifier, attr.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeIndexSection(w io.Writer, indices []uint32, groups []PrimitiveGroup, use32 bool) error {
	name := indexFormat16
	if use32 {
		name = indexFormat32
	}
	ident, err := padIdentifier(name)
	if err != nil {
		return err
	}
	if _, err := w.Write(ident[:]); err != nil {
		return err
	}
	le := binary.LittleEndian
	if err := binary.Write(w, le, uint32(len(indices))); err != nil {
		return err
	}
	if err := binary.Write(w, le, uint32(len(groups))); err != nil {
		return err
	}
	if use32 {
		if err := binary.Write(w, le, indices); err != nil {
			return err
		}
	} else {
		packed := make([]uint16, len(indices))
		for i, idx := range indices {
			packed[i] = uint16(idx)
		}
		if err := binary.Write(w, le, packed); err != nil {
			return err
		}
	}
	for _, g := range groups {
		if err := binary.Write(w, le, g); err != nil {
			return err
		}
	}
	return nil
}
