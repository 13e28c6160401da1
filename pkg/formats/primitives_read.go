package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/bigworld-export/pkg/compress"
)

// PrimitivesFile is a decoded .primitives file. Vertex records hold
// unpacked values: compressed directions are restored to unit vectors and
// quantized bone weights to floats summing to one.
type PrimitivesFile struct {
	Format      string
	Vertices    []Vertex
	IndexFormat string
	Indices     []uint32
	Groups      []PrimitiveGroup
	BSP         *BSPSection
}

// TriangleCount returns the number of triangles in the index buffer.
func (f *PrimitivesFile) TriangleCount() int {
	return len(f.Indices) / 3
}

// sectionReader decodes the consecutive sections of a .primitives file.
type sectionReader struct {
	r *bytes.Reader
}

func (s *sectionReader) identifier() (string, error) {
	var raw [identifierSize]byte
	if _, err := io.ReadFull(s.r, raw[:]); err != nil {
		return "", fmt.Errorf("%w: section identifier", ErrTruncated)
	}
	return trimIdentifier(raw[:]), nil
}

func (s *sectionReader) uint32() (uint32, error) {
	var v uint32
	if err := binary.Read(s.r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: section header", ErrTruncated)
	}
	return v, nil
}

func (s *sectionReader) checkRemaining(need uint64) error {
	if uint64(s.r.Len()) < need {
		return fmt.Errorf("%w: need %d more bytes, have %d", ErrTruncated, need, s.r.Len())
	}
	return nil
}

// ReadPrimitivesFile loads and decodes the .primitives file at path.
func ReadPrimitivesFile(path string) (*PrimitivesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParsePrimitives(data)
}

// ParsePrimitives decodes a .primitives file from raw bytes.
func ParsePrimitives(data []byte) (*PrimitivesFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrEmptyInput)
	}
	r := &sectionReader{r: bytes.NewReader(data)}

	ident, err := r.identifier()
	if err != nil {
		return nil, err
	}
	format, err := GetFormat(ident)
	if err != nil {
		return nil, err
	}
	vertexCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if err := r.checkRemaining(uint64(vertexCount) * uint64(format.Stride)); err != nil {
		return nil, fmt.Errorf("vertex section: %w", err)
	}
	f := &PrimitivesFile{Format: ident}
	f.Vertices = make([]Vertex, vertexCount)
	for i := range f.Vertices {
		if err := readVertex(r, &f.Vertices[i], format); err != nil {
			return nil, err
		}
	}

	idxIdent, err := r.identifier()
	if err != nil {
		return nil, err
	}
	var indexSize uint64
	switch idxIdent {
	case indexFormat16:
		indexSize = 2
	case indexFormat32:
		indexSize = 4
	default:
		return nil, fmt.Errorf("unknown index format %q", idxIdent)
	}
	f.IndexFormat = idxIdent
	indexCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	groupCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if err := r.checkRemaining(uint64(indexCount)*indexSize + uint64(groupCount)*16); err != nil {
		return nil, fmt.Errorf("index section: %w", err)
	}
	le := binary.LittleEndian
	f.Indices = make([]uint32, indexCount)
	if idxIdent == indexFormat32 {
		if err := binary.Read(r.r, le, f.Indices); err != nil {
			return nil, err
		}
	} else {
		packed := make([]uint16, indexCount)
		if err := binary.Read(r.r, le, packed); err != nil {
			return nil, err
		}
		for i, idx := range packed {
			f.Indices[i] = uint32(idx)
		}
	}
	f.Groups = make([]PrimitiveGroup, groupCount)
	if err := binary.Read(r.r, le, f.Groups); err != nil {
		return nil, err
	}

	if r.r.Len() > 0 {
		f.BSP, err = parseBSPSection(r)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func readVertex(r *sectionReader, v *Vertex, format *VertexFormat) error {
	le := binary.LittleEndian
	for _, attr := range format.Attributes {
		switch attr.Name {
		case "position":
			var p [3]float32
			if err := binary.Read(r.r, le, &p); err != nil {
				return err
			}
			v.SetPosition(p[0], p[1], p[2])
		case "normal":
			x, y, z, err := readDirection(r)
			if err != nil {
				return err
			}
			v.SetNormal(x, y, z)
		case "uv0":
			var uv [2]float32
			if err := binary.Read(r.r, le, &uv); err != nil {
				return err
			}
			v.SetUV(uv[0], uv[1])
		case "tangent":
			x, y, z, err := readDirection(r)
			if err != nil {
				return err
			}
			v.SetTangent(x, y, z)
		case "binormal":
			x, y, z, err := readDirection(r)
			if err != nil {
				return err
			}
			v.SetBinormal(x, y, z)
		case "bone_idx":
			var b [3]byte
			if _, err := io.ReadFull(r.r, b[:]); err != nil {
				return err
			}
			v.SetBoneIndices(int(b[0]), int(b[1]), int(b[2]))
		case "bone_w":
			var b [2]byte
			if _, err := io.ReadFull(r.r, b[:]); err != nil {
				return err
			}
			q2 := 255 - int(b[0]) - int(b[1])
			v.SetBoneWeights(float32(b[0])/255, float32(b[1])/255, float32(q2)/255)
		default:
			return fmt.Errorf("format %q has unsupported attribute %q", format.Identifier, attr.Name)
		}
	}
	return nil
}

func readDirection(r *sectionReader) (x, y, z float32, err error) {
	var packed [2]uint16
	if err = binary.Read(r.r, binary.LittleEndian, &packed); err != nil {
		return 0, 0, 0, err
	}
	x, y, z = compress.DecompressDir(packed[0], packed[1])
	return x, y, z, nil
}
