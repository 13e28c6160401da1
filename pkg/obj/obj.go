// Package obj reads Wavefront OBJ scenes and their MTL material
// libraries. Faces keep their polygon shape and material binding; the
// caller decides how to triangulate and which objects to export.
package obj

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// FaceCorner references one polygon corner into the scene's shared
// attribute pools. Indices are zero based, -1 when the corner does not
// carry the attribute.
type FaceCorner struct {
	Position int
	Texcoord int
	Normal   int
}

// Face is one polygon with the material active when it was declared.
type Face struct {
	Corners  []FaceCorner
	Material string
}

// Triangulate fans the polygon into triangles around its first corner.
func (f *Face) Triangulate() [][3]FaceCorner {
	if len(f.Corners) < 3 {
		return nil
	}
	tris := make([][3]FaceCorner, 0, len(f.Corners)-2)
	for i := 1; i < len(f.Corners)-1; i++ {
		tris = append(tris, [3]FaceCorner{f.Corners[0], f.Corners[i], f.Corners[i+1]})
	}
	return tris
}

// Object is one named object of the scene.
type Object struct {
	Name  string
	Faces []Face
}

// Scene is a parsed OBJ file. The attribute pools are file wide and
// shared by every object.
type Scene struct {
	Positions []vecmath.Vec3
	Texcoords [][2]float32
	Normals   []vecmath.Vec3
	Objects   []Object
	MTLLibs   []string
}

// Load reads and parses the OBJ file at path.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open obj file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an OBJ scene from r. Face indices are resolved to zero
// based and validated against the pools declared so far, so a returned
// scene is safe to index.
func Parse(r io.Reader) (*Scene, error) {
	scene := &Scene{}
	var current *Object
	material := ""
	lineNum := 0

	object := func(name string) *Object {
		scene.Objects = append(scene.Objects, Object{Name: name})
		return &scene.Objects[len(scene.Objects)-1]
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid position: %w", lineNum, err)
			}
			scene.Positions = append(scene.Positions, p)
		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid normal: %w", lineNum, err)
			}
			scene.Normals = append(scene.Normals, n)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: texcoord needs 2 values", lineNum)
			}
			u, err := parseFloat(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid texcoord: %w", lineNum, err)
			}
			v, err := parseFloat(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid texcoord: %w", lineNum, err)
			}
			scene.Texcoords = append(scene.Texcoords, [2]float32{u, v})
		case "o", "g":
			name := "default"
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			current = object(name)
		case "usemtl":
			if len(fields) > 1 {
				material = fields[1]
			}
		case "mtllib":
			scene.MTLLibs = append(scene.MTLLibs, fields[1:]...)
		case "f":
			face, err := scene.parseFace(fields[1:], material)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if current == nil {
				current = object("default")
			}
			current.Faces = append(current.Faces, face)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read obj data: %w", err)
	}
	return scene, nil
}

func (s *Scene) parseFace(refs []string, material string) (Face, error) {
	if len(refs) < 3 {
		return Face{}, fmt.Errorf("face needs at least 3 corners, got %d", len(refs))
	}
	face := Face{Material: material, Corners: make([]FaceCorner, 0, len(refs))}
	for _, ref := range refs {
		corner, err := s.parseCorner(ref)
		if err != nil {
			return Face{}, err
		}
		face.Corners = append(face.Corners, corner)
	}
	return face, nil
}

// parseCorner decodes a v, v/vt, v//vn or v/vt/vn reference.
func (s *Scene) parseCorner(ref string) (FaceCorner, error) {
	corner := FaceCorner{Position: -1, Texcoord: -1, Normal: -1}
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return corner, fmt.Errorf("malformed face corner %q", ref)
	}

	pos, err := resolveIndex(parts[0], len(s.Positions))
	if err != nil {
		return corner, fmt.Errorf("face corner %q: %w", ref, err)
	}
	corner.Position = pos

	if len(parts) > 1 && parts[1] != "" {
		tc, err := resolveIndex(parts[1], len(s.Texcoords))
		if err != nil {
			return corner, fmt.Errorf("face corner %q: %w", ref, err)
		}
		corner.Texcoord = tc
	}
	if len(parts) > 2 && parts[2] != "" {
		n, err := resolveIndex(parts[2], len(s.Normals))
		if err != nil {
			return corner, fmt.Errorf("face corner %q: %w", ref, err)
		}
		corner.Normal = n
	}
	return corner, nil
}

// resolveIndex converts a one based or negative relative OBJ index into
// a zero based pool index.
func resolveIndex(raw string, poolLen int) (int, error) {
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	switch {
	case idx > 0:
		idx--
	case idx < 0:
		idx = poolLen + idx
	default:
		return 0, fmt.Errorf("index 0 is not valid")
	}
	if idx < 0 || idx >= poolLen {
		return 0, fmt.Errorf("index %s out of range for %d entries", raw, poolLen)
	}
	return idx, nil
}

func parseVec3(fields []string) (vecmath.Vec3, error) {
	if len(fields) < 3 {
		return vecmath.Vec3{}, fmt.Errorf("need 3 values, got %d", len(fields))
	}
	x, err := parseFloat(fields[0])
	if err != nil {
		return vecmath.Vec3{}, err
	}
	y, err := parseFloat(fields[1])
	if err != nil {
		return vecmath.Vec3{}, err
	}
	z, err := parseFloat(fields[2])
	if err != nil {
		return vecmath.Vec3{}, err
	}
	return vecmath.V3(x, y, z), nil
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return float32(f), nil
}
