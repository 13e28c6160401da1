package export

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/bigworld-export/pkg/bsp"
	"github.com/Faultbox/bigworld-export/pkg/formats"
	"github.com/Faultbox/bigworld-export/pkg/obj"
	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// Scene object name prefixes with special meaning. Anything else is
// renderable geometry.
const (
	collisionPrefix = "COL_"
	hardPointPrefix = "HP_"
	portalPrefix    = "PORTAL_"
)

// defaultMaterialName buckets faces that carry no usemtl binding.
const defaultMaterialName = "default"

// sceneModel is one renderable object together with the collision, hard
// point and portal objects attached to it.
type sceneModel struct {
	Name       string
	Object     *obj.Object
	Collisions []*obj.Object
	HardPoints []*obj.Object
	Portals    []*obj.Object
}

func annotationPrefix(name string) string {
	for _, prefix := range []string{collisionPrefix, hardPointPrefix, portalPrefix} {
		if strings.HasPrefix(name, prefix) {
			return prefix
		}
	}
	return ""
}

// classify splits the scene into renderable models and attaches the
// annotation objects to them. An annotation named after a renderable
// (COL_Body next to Body) attaches there; otherwise it attaches to the
// first renderable.
func classify(scene *obj.Scene, log *zap.Logger) []*sceneModel {
	var models []*sceneModel
	byName := make(map[string]*sceneModel)

	for i := range scene.Objects {
		o := &scene.Objects[i]
		if annotationPrefix(o.Name) != "" {
			continue
		}
		if len(o.Faces) == 0 {
			log.Debug("skipping object without faces", zap.String("object", o.Name))
			continue
		}
		m := &sceneModel{Name: o.Name, Object: o}
		models = append(models, m)
		byName[o.Name] = m
	}
	if len(models) == 0 {
		return nil
	}

	attach := func(name, suffix string) *sceneModel {
		if m, ok := byName[suffix]; ok {
			return m
		}
		if len(models) > 1 {
			log.Warn("annotation does not name a renderable, attaching to first",
				zap.String("object", name),
				zap.String("target", models[0].Name))
		}
		return models[0]
	}

	for i := range scene.Objects {
		o := &scene.Objects[i]
		prefix := annotationPrefix(o.Name)
		if prefix == "" {
			continue
		}
		suffix := strings.TrimPrefix(o.Name, prefix)
		m := attach(o.Name, suffix)
		switch prefix {
		case collisionPrefix:
			m.Collisions = append(m.Collisions, o)
		case hardPointPrefix:
			m.HardPoints = append(m.HardPoints, o)
		case portalPrefix:
			m.Portals = append(m.Portals, o)
		}
	}
	return models
}

// meshData is the assembled render geometry for one model.
type meshData struct {
	Prims     *formats.Primitives
	Materials []string
	BoundsMin vecmath.Vec3
	BoundsMax vecmath.Vec3
	Extent    float32
}

// cornerKey identifies a unique vertex within one primitive group.
// faceNormal is zero when the corner carries its own normal index.
type cornerKey struct {
	position   int
	texcoord   int
	normal     int
	faceNormal vecmath.Vec3
}

// assembleMesh turns an object's faces into deduplicated vertices, an
// index buffer and one primitive group per material. Triangles are
// bucketed by material first so every group covers a contiguous index
// and vertex range.
func (e *Exporter) assembleMesh(scene *obj.Scene, o *obj.Object, format *formats.VertexFormat) (*meshData, error) {
	type bucket struct {
		material string
		tris     [][3]obj.FaceCorner
	}
	var buckets []*bucket
	byMaterial := make(map[string]*bucket)

	for i := range o.Faces {
		face := &o.Faces[i]
		material := face.Material
		if material == "" {
			material = defaultMaterialName
		}
		b := byMaterial[material]
		if b == nil {
			b = &bucket{material: material}
			byMaterial[material] = b
			buckets = append(buckets, b)
		}
		b.tris = append(b.tris, face.Triangulate()...)
	}

	prims := &formats.Primitives{
		Format:          format.Identifier,
		Use32BitIndices: e.cfg.Export.Use32BitIndices,
	}
	var materials []string

	for _, b := range buckets {
		group := formats.PrimitiveGroup{
			StartIndex:  uint32(len(prims.Indices)),
			StartVertex: uint32(len(prims.Vertices)),
			NumPrims:    uint32(len(b.tris)),
		}
		dedup := make(map[cornerKey]uint32)

		for _, tri := range b.tris {
			p := [3]vecmath.Vec3{
				e.position(scene.Positions[tri[0].Position]),
				e.position(scene.Positions[tri[1].Position]),
				e.position(scene.Positions[tri[2].Position]),
			}
			var faceN vecmath.Vec3
			if tri[0].Normal < 0 || tri[1].Normal < 0 || tri[2].Normal < 0 {
				faceN = faceNormal(p[0], p[1], p[2])
			}

			for j, corner := range tri {
				key := cornerKey{
					position: corner.Position,
					texcoord: corner.Texcoord,
					normal:   corner.Normal,
				}
				n := faceN
				if corner.Normal >= 0 {
					n = e.direction(scene.Normals[corner.Normal])
				} else {
					key.faceNormal = faceN
				}

				idx, ok := dedup[key]
				if !ok {
					prims.Vertices = append(prims.Vertices, e.buildVertex(p[j], n, corner, scene, format.HasSkinning))
					idx = uint32(len(prims.Vertices) - 1)
					dedup[key] = idx
				}
				prims.Indices = append(prims.Indices, idx)
			}
		}

		group.NumVertices = uint32(len(prims.Vertices)) - group.StartVertex
		prims.Groups = append(prims.Groups, group)
		materials = append(materials, b.material)
	}

	if len(prims.Indices) == 0 {
		return nil, fmt.Errorf("object %s has no triangles", o.Name)
	}

	// More vertices than a 16-bit index can address.
	if len(prims.Vertices) > 0x10000 {
		prims.Use32BitIndices = true
	}

	min, max := bounds(prims.Vertices)
	return &meshData{
		Prims:     prims,
		Materials: materials,
		BoundsMin: min,
		BoundsMax: max,
		Extent:    max.Sub(min).Length() / 2,
	}, nil
}

func (e *Exporter) buildVertex(pos, normal vecmath.Vec3, corner obj.FaceCorner, scene *obj.Scene, skinned bool) formats.Vertex {
	var v formats.Vertex
	v.SetPosition(pos.X, pos.Y, pos.Z)
	v.SetNormal(normal.X, normal.Y, normal.Z)

	var uv [2]float32
	if corner.Texcoord >= 0 {
		uv = scene.Texcoords[corner.Texcoord]
	}
	v.SetUV(uv[0], uv[1])

	// OBJ carries no tangent space, so a constant tangent with a
	// binormal completing the frame stands in.
	tangent := vecmath.V3(1, 0, 0)
	v.SetTangent(tangent.X, tangent.Y, tangent.Z)
	binormal := normal.Cross(tangent).Normalize()
	if binormal == (vecmath.Vec3{}) {
		binormal = vecmath.V3(0, 1, 0)
	}
	v.SetBinormal(binormal.X, binormal.Y, binormal.Z)

	if skinned {
		v.SetBoneIndices(0, 0, 0)
		v.SetBoneWeights(1, 0, 0)
	}
	return v
}

// position maps a source position into engine space.
func (e *Exporter) position(v vecmath.Vec3) vecmath.Vec3 {
	if e.cfg.Export.ConvertToYUp {
		return toYUp(v)
	}
	return v
}

// direction maps a source direction into engine space.
func (e *Exporter) direction(v vecmath.Vec3) vecmath.Vec3 {
	if e.cfg.Export.ConvertToYUp {
		return toYUp(v)
	}
	return v
}

// toYUp rotates a Z-up vector into Y-up space.
func toYUp(v vecmath.Vec3) vecmath.Vec3 {
	return vecmath.V3(v.X, v.Z, -v.Y)
}

func faceNormal(p0, p1, p2 vecmath.Vec3) vecmath.Vec3 {
	n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	if n == (vecmath.Vec3{}) {
		return vecmath.V3(0, 0, 1)
	}
	return n
}

func bounds(verts []formats.Vertex) (min, max vecmath.Vec3) {
	if len(verts) == 0 {
		return
	}
	min = vecmath.FromArray(verts[0].Position)
	max = min
	for _, v := range verts[1:] {
		p := vecmath.FromArray(v.Position)
		min = min.Min(p)
		max = max.Max(p)
	}
	return
}

// collisionMeshes converts the COL_ objects into local-space triangle
// meshes for the BSP builder. Objects without faces are skipped.
func (e *Exporter) collisionMeshes(scene *obj.Scene, objects []*obj.Object) []bsp.Mesh {
	var meshes []bsp.Mesh
	for _, o := range objects {
		mesh := bsp.Mesh{}
		local := make(map[int]uint32)

		for i := range o.Faces {
			for _, tri := range o.Faces[i].Triangulate() {
				var t [3]uint32
				for j, corner := range tri {
					idx, ok := local[corner.Position]
					if !ok {
						mesh.Vertices = append(mesh.Vertices, e.position(scene.Positions[corner.Position]))
						idx = uint32(len(mesh.Vertices) - 1)
						local[corner.Position] = idx
					}
					t[j] = idx
				}
				mesh.Triangles = append(mesh.Triangles, t)
			}
		}

		if len(mesh.Triangles) > 0 {
			meshes = append(meshes, mesh)
		}
	}
	return meshes
}

// objectPositions returns the unique positions an object's faces
// reference, in first-reference order.
func (e *Exporter) objectPositions(scene *obj.Scene, o *obj.Object) []vecmath.Vec3 {
	var points []vecmath.Vec3
	seen := make(map[int]bool)
	for i := range o.Faces {
		for _, corner := range o.Faces[i].Corners {
			if seen[corner.Position] {
				continue
			}
			seen[corner.Position] = true
			points = append(points, e.position(scene.Positions[corner.Position]))
		}
	}
	return points
}

// hardPoints builds attachment transforms from the HP_ objects: the
// identifier drops the prefix, the transform translates to the object's
// vertex centroid.
func (e *Exporter) hardPoints(scene *obj.Scene, objects []*obj.Object) []formats.VisualHardPoint {
	var hps []formats.VisualHardPoint
	for _, o := range objects {
		points := e.objectPositions(scene, o)
		if len(points) == 0 {
			e.log.Warn("hard point has no geometry", zap.String("object", o.Name))
			continue
		}
		hps = append(hps, formats.VisualHardPoint{
			Identifier: strings.TrimPrefix(o.Name, hardPointPrefix),
			Transform:  vecmath.Translation(vecmath.Centroid(points...)),
		})
	}
	return hps
}

// portals builds portal polygons from the PORTAL_ objects.
func (e *Exporter) portals(scene *obj.Scene, objects []*obj.Object) []formats.VisualPortal {
	var portals []formats.VisualPortal
	for _, o := range objects {
		points := e.objectPositions(scene, o)
		if len(points) < 3 {
			e.log.Warn("portal needs at least 3 vertices", zap.String("object", o.Name))
			continue
		}
		portals = append(portals, formats.VisualPortal{
			Identifier: strings.TrimPrefix(o.Name, portalPrefix),
			Vertices:   points,
		})
	}
	return portals
}
