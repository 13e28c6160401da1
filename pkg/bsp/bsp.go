// Package bsp builds the collision trees embedded in .primitives files.
// Collision meshes are merged into one vertex space and partitioned
// recursively by the axial median of triangle centroids, cycling the
// split axis per level.
package bsp

import (
	"fmt"
	"sort"

	"github.com/Faultbox/bigworld-export/pkg/formats"
	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// Default recursion bounds.
const (
	DefaultLeafTriangles = 128
	DefaultMaxDepth      = 16
)

// Mesh is one triangulated collision mesh in world space.
type Mesh struct {
	Vertices  []vecmath.Vec3
	Triangles [][3]uint32
}

// SplitFunc picks the split value for a set of centroid coordinates on
// the current axis. Centroids at or below the returned value go to the
// first child.
type SplitFunc func(values []float32) float32

// Builder constructs collision trees. The zero value splits on the
// median with the default leaf limit and depth cap.
type Builder struct {
	LeafTriangles int
	MaxDepth      int
	Split         SplitFunc
}

// Build merges meshes into one index space and constructs the tree using
// the default builder.
func Build(meshes []Mesh) (*formats.BSPSection, error) {
	var b Builder
	return b.Build(meshes)
}

// Build merges meshes into one index space and constructs the tree.
// Without any triangles the result is an empty section.
func (b *Builder) Build(meshes []Mesh) (*formats.BSPSection, error) {
	var vertices []vecmath.Vec3
	var triangles [][3]uint32
	offset := uint32(0)
	for mi, m := range meshes {
		vertices = append(vertices, m.Vertices...)
		for _, tri := range m.Triangles {
			for _, idx := range tri {
				if int(idx) >= len(m.Vertices) {
					return nil, fmt.Errorf("mesh %d: triangle index %d out of range for %d vertices",
						mi, idx, len(m.Vertices))
				}
			}
			triangles = append(triangles, [3]uint32{tri[0] + offset, tri[1] + offset, tri[2] + offset})
		}
		offset += uint32(len(m.Vertices))
	}
	if len(triangles) == 0 {
		return &formats.BSPSection{}, nil
	}

	t := &treeBuilder{
		leafLimit: b.LeafTriangles,
		maxDepth:  b.MaxDepth,
		split:     b.Split,
		triangles: triangles,
		centroids: make([]vecmath.Vec3, len(triangles)),
	}
	if t.leafLimit <= 0 {
		t.leafLimit = DefaultLeafTriangles
	}
	if t.maxDepth <= 0 {
		t.maxDepth = DefaultMaxDepth
	}
	if t.split == nil {
		t.split = Median
	}
	for i, tri := range triangles {
		t.centroids[i] = vecmath.Centroid(vertices[tri[0]], vertices[tri[1]], vertices[tri[2]])
	}

	all := make([]int, len(triangles))
	for i := range all {
		all[i] = i
	}
	t.build(all, 0, 0)
	return &formats.BSPSection{Nodes: t.nodes, Triangles: t.out}, nil
}

// treeBuilder carries the recursion state of one Build call.
type treeBuilder struct {
	leafLimit int
	maxDepth  int
	split     SplitFunc
	triangles [][3]uint32
	centroids []vecmath.Vec3
	nodes     []formats.BSPNode
	out       [][3]uint32
}

// build partitions idx and returns the new node's index. Leaves append
// their triangles to the output list so every leaf owns a contiguous
// range.
func (t *treeBuilder) build(idx []int, depth, axis int) int32 {
	if depth >= t.maxDepth || len(idx) <= t.leafLimit {
		start := uint32(len(t.out))
		for _, i := range idx {
			t.out = append(t.out, t.triangles[i])
		}
		t.nodes = append(t.nodes, formats.BSPNode{
			Plane:    axisPlane(axis, t.split(t.axisValues(idx, axis))),
			ChildA:   -1,
			ChildB:   -1,
			TriStart: start,
			TriCount: uint32(len(idx)),
		})
		return int32(len(t.nodes) - 1)
	}

	median := t.split(t.axisValues(idx, axis))
	var left, right []int
	for _, i := range idx {
		if t.centroids[i].Component(axis) <= median {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	// A one-sided split cannot make progress, bisect the list instead.
	if len(left) == 0 || len(right) == 0 {
		half := len(idx) / 2
		left, right = idx[:half], idx[half:]
	}

	node := int32(len(t.nodes))
	t.nodes = append(t.nodes, formats.BSPNode{
		Plane:  axisPlane(axis, median),
		ChildA: -1,
		ChildB: -1,
	})
	next := (axis + 1) % 3
	childA := t.build(left, depth+1, next)
	childB := t.build(right, depth+1, next)
	t.nodes[node].ChildA = childA
	t.nodes[node].ChildB = childB
	return node
}

func (t *treeBuilder) axisValues(idx []int, axis int) []float32 {
	values := make([]float32, len(idx))
	for i, triIdx := range idx {
		values[i] = t.centroids[triIdx].Component(axis)
	}
	return values
}

func axisPlane(axis int, split float32) [4]float32 {
	var plane [4]float32
	plane[axis] = 1
	plane[3] = -split
	return plane
}

// Median returns the median of values, or 0 for an empty slice. It is
// the default split strategy.
func Median(values []float32) float32 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float32(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}
