package formats

import (
	"fmt"
	"sort"
)

// AttrKind identifies how a vertex attribute is encoded on disk.
type AttrKind int

const (
	// KindPosition is three float32 values.
	KindPosition AttrKind = iota
	// KindDirection is a unit vector packed into two uint16 angles.
	KindDirection
	// KindUV is two float32 texture coordinates.
	KindUV
	// KindBoneIndices is three uint8 bone indices.
	KindBoneIndices
	// KindBoneWeights is two uint8 weights, the third byte being implied
	// by the 255 sum.
	KindBoneWeights
)

// VertexAttribute describes one attribute slot of a vertex layout.
type VertexAttribute struct {
	Name     string // canonical attribute name
	Alias    string // accepted alternate name, empty if none
	Kind     AttrKind
	ByteSize int
}

// VertexFormat is a named, ordered vertex layout. Serialization walks
// Attributes in order, so Stride is the exact size of one packed record.
type VertexFormat struct {
	Identifier  string
	Attributes  []VertexAttribute
	Stride      int
	HasSkinning bool
}

var (
	attrPosition    = VertexAttribute{Name: "position", Kind: KindPosition, ByteSize: 12}
	attrNormal      = VertexAttribute{Name: "normal", Kind: KindDirection, ByteSize: 4}
	attrUV0         = VertexAttribute{Name: "uv0", Alias: "uv", Kind: KindUV, ByteSize: 8}
	attrTangent     = VertexAttribute{Name: "tangent", Kind: KindDirection, ByteSize: 4}
	attrBinormal    = VertexAttribute{Name: "binormal", Kind: KindDirection, ByteSize: 4}
	attrBoneIndices = VertexAttribute{Name: "bone_idx", Alias: "bone_indices", Kind: KindBoneIndices, ByteSize: 3}
	attrBoneWeights = VertexAttribute{Name: "bone_w", Alias: "bone_weights", Kind: KindBoneWeights, ByteSize: 2}
)

func newVertexFormat(identifier string, hasSkinning bool, attrs ...VertexAttribute) *VertexFormat {
	f := &VertexFormat{Identifier: identifier, Attributes: attrs, HasSkinning: hasSkinning}
	for _, a := range attrs {
		f.Stride += a.ByteSize
	}
	return f
}

// registeredFormats holds the vertex layouts understood by the engine.
var registeredFormats = map[string]*VertexFormat{
	"xyznuvtb": newVertexFormat("xyznuvtb", false,
		attrPosition, attrNormal, attrUV0, attrTangent, attrBinormal),
	"xyznuviiiwwtb": newVertexFormat("xyznuviiiwwtb", true,
		attrPosition, attrNormal, attrUV0, attrBoneIndices, attrBoneWeights, attrTangent, attrBinormal),
}

// GetFormat returns the vertex format registered under name.
func GetFormat(name string) (*VertexFormat, error) {
	f, ok := registeredFormats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// FormatInfo summarizes one registered vertex format.
type FormatInfo struct {
	Identifier  string
	Stride      int
	HasSkinning bool
	Attributes  []string
}

// ListFormats returns an overview of every registered vertex format,
// sorted by identifier.
func ListFormats() []FormatInfo {
	infos := make([]FormatInfo, 0, len(registeredFormats))
	for _, f := range registeredFormats {
		info := FormatInfo{
			Identifier:  f.Identifier,
			Stride:      f.Stride,
			HasSkinning: f.HasSkinning,
		}
		for _, a := range f.Attributes {
			info.Attributes = append(info.Attributes, a.Name)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Identifier < infos[j].Identifier
	})
	return infos
}

// attrMask tracks which attributes a Vertex carries. Presence is what
// validation checks, so a zero value set explicitly counts while an unset
// field does not.
type attrMask uint8

const (
	maskPosition attrMask = 1 << iota
	maskNormal
	maskUV0
	maskTangent
	maskBinormal
	maskBoneIndices
	maskBoneWeights
)

// attrBits maps canonical and alias attribute names to presence bits.
var attrBits = map[string]attrMask{
	"position":     maskPosition,
	"normal":       maskNormal,
	"uv0":          maskUV0,
	"uv":           maskUV0,
	"tangent":      maskTangent,
	"binormal":     maskBinormal,
	"bone_idx":     maskBoneIndices,
	"bone_indices": maskBoneIndices,
	"bone_w":       maskBoneWeights,
	"bone_weights": maskBoneWeights,
}

// Vertex is one uncompressed vertex record. Direction compression and
// weight quantization happen at serialization time, not here.
type Vertex struct {
	Position    [3]float32
	Normal      [3]float32
	UV          [2]float32
	Tangent     [3]float32
	Binormal    [3]float32
	BoneIndices [3]int
	BoneWeights [3]float32

	attrs attrMask
}

// SetPosition records the position attribute.
func (v *Vertex) SetPosition(x, y, z float32) {
	v.Position = [3]float32{x, y, z}
	v.attrs |= maskPosition
}

// SetNormal records the normal attribute.
func (v *Vertex) SetNormal(x, y, z float32) {
	v.Normal = [3]float32{x, y, z}
	v.attrs |= maskNormal
}

// SetUV records the uv0 attribute.
func (v *Vertex) SetUV(u, w float32) {
	v.UV = [2]float32{u, w}
	v.attrs |= maskUV0
}

// SetTangent records the tangent attribute.
func (v *Vertex) SetTangent(x, y, z float32) {
	v.Tangent = [3]float32{x, y, z}
	v.attrs |= maskTangent
}

// SetBinormal records the binormal attribute.
func (v *Vertex) SetBinormal(x, y, z float32) {
	v.Binormal = [3]float32{x, y, z}
	v.attrs |= maskBinormal
}

// SetBoneIndices records the bone index attribute.
func (v *Vertex) SetBoneIndices(i0, i1, i2 int) {
	v.BoneIndices = [3]int{i0, i1, i2}
	v.attrs |= maskBoneIndices
}

// SetBoneWeights records the bone weight attribute.
func (v *Vertex) SetBoneWeights(w0, w1, w2 float32) {
	v.BoneWeights = [3]float32{w0, w1, w2}
	v.attrs |= maskBoneWeights
}

// Set assigns an attribute by canonical or alias name. Unknown names and
// wrong value counts fail here, at record construction, rather than
// surfacing later during serialization.
func (v *Vertex) Set(name string, values ...float32) error {
	checkArity := func(want int) error {
		if len(values) != want {
			return fmt.Errorf("attribute %q needs %d values, got %d", name, want, len(values))
		}
		return nil
	}
	switch name {
	case "position":
		if err := checkArity(3); err != nil {
			return err
		}
		v.SetPosition(values[0], values[1], values[2])
	case "normal":
		if err := checkArity(3); err != nil {
			return err
		}
		v.SetNormal(values[0], values[1], values[2])
	case "uv0", "uv":
		if err := checkArity(2); err != nil {
			return err
		}
		v.SetUV(values[0], values[1])
	case "tangent":
		if err := checkArity(3); err != nil {
			return err
		}
		v.SetTangent(values[0], values[1], values[2])
	case "binormal":
		if err := checkArity(3); err != nil {
			return err
		}
		v.SetBinormal(values[0], values[1], values[2])
	case "bone_idx", "bone_indices":
		if err := checkArity(3); err != nil {
			return err
		}
		v.SetBoneIndices(int(values[0]), int(values[1]), int(values[2]))
	case "bone_w", "bone_weights":
		if err := checkArity(3); err != nil {
			return err
		}
		v.SetBoneWeights(values[0], values[1], values[2])
	default:
		return fmt.Errorf("unknown vertex attribute %q", name)
	}
	return nil
}

// Has reports whether the attribute has been set, accepting canonical or
// alias names.
func (v *Vertex) Has(name string) bool {
	bit, ok := attrBits[name]
	if !ok {
		return false
	}
	return v.attrs&bit != 0
}

// ValidateVertices checks that every vertex carries each attribute the
// format requires, failing on the first violation.
func ValidateVertices(vertices []Vertex, format *VertexFormat) error {
	for i := range vertices {
		for _, attr := range format.Attributes {
			if vertices[i].attrs&attrBits[attr.Name] == 0 {
				return &MissingAttributeError{Vertex: i, Attribute: attr.Name}
			}
		}
	}
	return nil
}
