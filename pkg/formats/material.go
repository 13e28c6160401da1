package formats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
)

// DefaultMaterialKind is used by materials that do not name a kind.
const DefaultMaterialKind = "solid"

// PropertyKind selects the wire type of a material property.
type PropertyKind int

const (
	PropBool PropertyKind = iota
	PropInt
	PropFloat
	PropVector4
	PropTexture
)

// String returns the type tag written to .mfm documents.
func (k PropertyKind) String() string {
	switch k {
	case PropBool:
		return "Bool"
	case PropInt:
		return "Int"
	case PropFloat:
		return "Float"
	case PropVector4:
		return "Vector4"
	case PropTexture:
		return "Texture"
	}
	return fmt.Sprintf("PropertyKind(%d)", int(k))
}

// MaterialProperty is one typed property of a material. Only the field
// matching Kind is meaningful.
type MaterialProperty struct {
	Name    string
	Kind    PropertyKind
	Bool    bool
	Int     int
	Float   float32
	Vector4 [4]float32
	Texture string
}

// BoolProperty builds a Bool property.
func BoolProperty(name string, v bool) MaterialProperty {
	return MaterialProperty{Name: name, Kind: PropBool, Bool: v}
}

// IntProperty builds an Int property.
func IntProperty(name string, v int) MaterialProperty {
	return MaterialProperty{Name: name, Kind: PropInt, Int: v}
}

// FloatProperty builds a Float property.
func FloatProperty(name string, v float32) MaterialProperty {
	return MaterialProperty{Name: name, Kind: PropFloat, Float: v}
}

// Vector4Property builds a Vector4 property.
func Vector4Property(name string, x, y, z, w float32) MaterialProperty {
	return MaterialProperty{Name: name, Kind: PropVector4, Vector4: [4]float32{x, y, z, w}}
}

// TextureProperty builds a Texture property holding a resource path.
func TextureProperty(name, path string) MaterialProperty {
	return MaterialProperty{Name: name, Kind: PropTexture, Texture: path}
}

func (p *MaterialProperty) value() string {
	switch p.Kind {
	case PropBool:
		return fmtBool(p.Bool)
	case PropInt:
		return strconv.Itoa(p.Int)
	case PropFloat:
		return fmtFloat(p.Float)
	case PropVector4:
		return fmt.Sprintf("%s %s %s %s",
			fmtFloat(p.Vector4[0]), fmtFloat(p.Vector4[1]),
			fmtFloat(p.Vector4[2]), fmtFloat(p.Vector4[3]))
	case PropTexture:
		return p.Texture
	}
	return ""
}

// Material is one .mfm material document. The collision, alpha test and
// double sided flags are written only when their Has counterpart is set.
type Material struct {
	Identifier   string
	FX           string
	MaterialKind string
	Properties   []MaterialProperty

	CollisionFlags    int
	HasCollisionFlags bool
	AlphaTestEnable   bool
	HasAlphaTest      bool
	DoubleSided       bool
	HasDoubleSided    bool
}

// WriteMaterial serializes m to w.
func WriteMaterial(w io.Writer, m *Material) error {
	return writeXML(w, buildMaterialDocument(m))
}

// ExportMaterial writes m to path, creating parent directories as needed.
func ExportMaterial(path string, m *Material) error {
	return exportXML(path, buildMaterialDocument(m))
}

func buildMaterialDocument(m *Material) *etree.Element {
	root := etree.NewElement("mfm")
	addText(root, "identifier", m.Identifier)

	fx := m.FX
	if fx == "" {
		fx = DefaultFX
	}
	addText(root, "fx", fx)

	kind := m.MaterialKind
	if kind == "" {
		kind = DefaultMaterialKind
	}
	addText(root, "materialKind", kind)

	if len(m.Properties) > 0 {
		props := root.CreateElement("properties")
		for i := range m.Properties {
			p := &m.Properties[i]
			e := props.CreateElement("property")
			addText(e, "name", p.Name)
			addText(e, "type", p.Kind.String())
			addText(e, "value", p.value())
		}
	}

	if m.HasCollisionFlags {
		addText(root, "collisionFlags", strconv.Itoa(m.CollisionFlags))
	}
	if m.HasAlphaTest {
		addText(root, "alphaTestEnable", fmtBool(m.AlphaTestEnable))
	}
	if m.HasDoubleSided {
		addText(root, "doubleSided", fmtBool(m.DoubleSided))
	}
	return root
}
