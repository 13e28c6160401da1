package formats

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// primitivesExt is the resource extension a render set's geometry must
// reference.
const primitivesExt = ".primitives"

// VisualNode is one node of a .visual hierarchy.
type VisualNode struct {
	Name      string
	Transform vecmath.Mat4
	Children  []VisualNode
}

// VisualMaterial names the material bound to a primitive group. An empty
// FX selects the standard effect, an empty MaterialKind is omitted.
type VisualMaterial struct {
	Identifier   string
	FX           string
	MaterialKind string
}

// VisualGroup mirrors one primitive group of the paired .primitives file
// together with its material binding.
type VisualGroup struct {
	Material    VisualMaterial
	StartIndex  uint32
	NumPrims    uint32
	StartVertex uint32
	NumVertices uint32
}

// VisualLOD is one level of detail with its own geometry. An empty Format
// inherits the document's vertex format.
type VisualLOD struct {
	Distance   float32
	Primitives string
	Format     string
	Groups     []VisualGroup
}

// VisualHardPoint is a named attachment transform. Type and Flags are
// omitted when empty.
type VisualHardPoint struct {
	Identifier string
	Type       string
	Flags      string
	Transform  vecmath.Mat4
}

// VisualPortal is a named portal polygon. The plane is written only when
// HasPlane is set, the adjacent chunk only when non-empty.
type VisualPortal struct {
	Identifier    string
	Vertices      []vecmath.Vec3
	Plane         [4]float32
	HasPlane      bool
	AdjacentChunk string
}

// Visual is one .visual descriptor document. Without LODs the document
// holds a single render set built from Primitives, Format and Groups;
// with LODs each entry contributes its own render set.
type Visual struct {
	Nodes      []VisualNode
	WorldSpace bool
	Primitives string
	Format     string
	Groups     []VisualGroup
	LODs       []VisualLOD
	HardPoints []VisualHardPoint
	Portals    []VisualPortal
	BoundsMin  vecmath.Vec3
	BoundsMax  vecmath.Vec3
}

// Validate checks the document shape before serialization.
func (v *Visual) Validate() error {
	if len(v.Nodes) == 0 {
		return fmt.Errorf("%w: visual has no nodes", ErrEmptyInput)
	}
	if len(v.LODs) == 0 {
		return validateRenderSet(v.Primitives, v.Groups)
	}
	for i, lod := range v.LODs {
		if err := validateRenderSet(lod.Primitives, lod.Groups); err != nil {
			return fmt.Errorf("lod %d: %w", i, err)
		}
	}
	return nil
}

func validateRenderSet(primitives string, groups []VisualGroup) error {
	if !strings.HasSuffix(primitives, primitivesExt) {
		return fmt.Errorf("primitives path %q does not end in %s", primitives, primitivesExt)
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: render set has no primitive groups", ErrEmptyInput)
	}
	return nil
}

// WriteVisual validates v and serializes it to w.
func WriteVisual(w io.Writer, v *Visual) error {
	root, err := buildVisualDocument(v)
	if err != nil {
		return err
	}
	return writeXML(w, root)
}

// ExportVisual writes v to path. Validation and serialization complete in
// memory before the destination is created.
func ExportVisual(path string, v *Visual) error {
	root, err := buildVisualDocument(v)
	if err != nil {
		return err
	}
	return exportXML(path, root)
}

func buildVisualDocument(v *Visual) (*etree.Element, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	root := etree.NewElement("visual")

	for i := range v.Nodes {
		writeVisualNode(root, &v.Nodes[i])
	}

	if len(v.LODs) > 0 {
		dists := root.CreateElement("lodDistances")
		for _, lod := range v.LODs {
			addText(dists, "distance", fmtFloat(lod.Distance))
		}
		for i := range v.LODs {
			writeRenderSet(root, v, &v.LODs[i])
		}
	} else {
		writeRenderSet(root, v, nil)
	}

	if len(v.HardPoints) > 0 {
		section := root.CreateElement("hardPoints")
		for i := range v.HardPoints {
			hp := &v.HardPoints[i]
			e := section.CreateElement("hardPoint")
			addText(e, "identifier", hp.Identifier)
			if hp.Type != "" {
				addText(e, "type", hp.Type)
			}
			if hp.Flags != "" {
				addText(e, "flags", hp.Flags)
			}
			addMatrix(e, "transform", hp.Transform)
		}
	}

	if len(v.Portals) > 0 {
		section := root.CreateElement("portals")
		for i := range v.Portals {
			p := &v.Portals[i]
			e := section.CreateElement("portal")
			addText(e, "identifier", p.Identifier)
			verts := e.CreateElement("vertices")
			for _, pt := range p.Vertices {
				addText(verts, "v", fmtVec3(pt))
			}
			if p.HasPlane {
				addText(e, "plane", fmt.Sprintf("%s %s %s %s",
					fmtFloat(p.Plane[0]), fmtFloat(p.Plane[1]),
					fmtFloat(p.Plane[2]), fmtFloat(p.Plane[3])))
			}
			if p.AdjacentChunk != "" {
				addText(e, "adjacentChunk", p.AdjacentChunk)
			}
		}
	}

	bbox := root.CreateElement("boundingBox")
	addText(bbox, "min", fmtVec3(v.BoundsMin))
	addText(bbox, "max", fmtVec3(v.BoundsMax))
	return root, nil
}

func writeVisualNode(parent *etree.Element, node *VisualNode) {
	e := parent.CreateElement("node")
	addText(e, "identifier", node.Name)
	addMatrix(e, "transform", node.Transform)
	for i := range node.Children {
		writeVisualNode(e, &node.Children[i])
	}
}

// writeRenderSet emits one renderSet bound to the document's first node.
// A nil lod selects the document's own geometry.
func writeRenderSet(root *etree.Element, v *Visual, lod *VisualLOD) {
	rset := root.CreateElement("renderSet")
	addText(rset, "treatAsWorldSpaceObject", fmtBool(v.WorldSpace))
	addText(rset, "node", v.Nodes[0].Name)

	primitives, format, groups := v.Primitives, v.Format, v.Groups
	if lod != nil {
		primitives, groups = lod.Primitives, lod.Groups
		if lod.Format != "" {
			format = lod.Format
		}
	}

	geometry := rset.CreateElement("geometry")
	base := strings.TrimSuffix(primitives, primitivesExt)
	addText(geometry, "vertices", base+".vertices")
	addText(geometry, "primitive", base+".indices")
	if format != "" {
		addText(geometry, "vertexFormat", format)
	}

	for _, g := range groups {
		ge := geometry.CreateElement("primitiveGroup")
		mat := ge.CreateElement("material")
		addText(mat, "identifier", strings.TrimSuffix(g.Material.Identifier, ".mfm"))
		fx := g.Material.FX
		if fx == "" {
			fx = DefaultFX
		}
		addText(mat, "fx", fx)
		if g.Material.MaterialKind != "" {
			addText(mat, "materialKind", g.Material.MaterialKind)
		}
		addText(ge, "startIndex", fmt.Sprint(g.StartIndex))
		addText(ge, "numPrimitives", fmt.Sprint(g.NumPrims))
		addText(ge, "startVertex", fmt.Sprint(g.StartVertex))
		addText(ge, "numVertices", fmt.Sprint(g.NumVertices))
	}
}
