package formats

import (
	"encoding/binary"
	"fmt"
	"io"
)

// bspIdentifier names the optional collision section of a .primitives
// file.
const bspIdentifier = "bsp"

// BSPNode is one node of a serialized collision tree. Leaves have both
// children set to -1 and own the triangle range [TriStart, TriStart+
// TriCount). Internal nodes reference two child nodes by index and carry
// no triangles.
type BSPNode struct {
	Plane    [4]float32
	ChildA   int32
	ChildB   int32
	TriStart uint32
	TriCount uint32
}

// Leaf reports whether the node is a leaf.
func (n *BSPNode) Leaf() bool {
	return n.ChildA == -1 && n.ChildB == -1
}

// BSPSection is the collision payload appended to a .primitives file: a
// flat node array forming a binary tree rooted at index 0, plus the
// triangle list its leaves partition.
type BSPSection struct {
	Nodes     []BSPNode
	Triangles [][3]uint32
}

// validate enforces the leaf and internal node shapes across the tree.
func (s *BSPSection) validate() error {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Leaf() {
			if uint64(n.TriStart)+uint64(n.TriCount) > uint64(len(s.Triangles)) {
				return &BSPStructuralError{Node: i, Reason: "triangle range outside triangle list"}
			}
			continue
		}
		if n.ChildA < 0 || int(n.ChildA) >= len(s.Nodes) {
			return &BSPStructuralError{Node: i, Reason: fmt.Sprintf("child %d out of range", n.ChildA)}
		}
		if n.ChildB < 0 || int(n.ChildB) >= len(s.Nodes) {
			return &BSPStructuralError{Node: i, Reason: fmt.Sprintf("child %d out of range", n.ChildB)}
		}
		if n.TriCount != 0 {
			return &BSPStructuralError{Node: i, Reason: "internal node carries triangles"}
		}
	}
	return nil
}

// LeafCount returns the number of leaf nodes.
func (s *BSPSection) LeafCount() int {
	count := 0
	for i := range s.Nodes {
		if s.Nodes[i].Leaf() {
			count++
		}
	}
	return count
}

// Depth returns the depth of the tree, counting the root as depth 1.
// Child links are trusted to form a tree, which validate checks.
func (s *BSPSection) Depth() int {
	if len(s.Nodes) == 0 {
		return 0
	}
	return s.nodeDepth(0)
}

func (s *BSPSection) nodeDepth(idx int32) int {
	n := &s.Nodes[idx]
	if n.Leaf() {
		return 1
	}
	da := s.nodeDepth(n.ChildA)
	db := s.nodeDepth(n.ChildB)
	if da > db {
		return 1 + da
	}
	return 1 + db
}

func writeBSPSection(w io.Writer, s *BSPSection) error {
	ident, err := padIdentifier(bspIdentifier)
	if err != nil {
		return err
	}
	if _, err := w.Write(ident[:]); err != nil {
		return err
	}
	le := binary.LittleEndian
	if err := binary.Write(w, le, uint32(len(s.Nodes))); err != nil {
		return err
	}
	if err := binary.Write(w, le, uint32(len(s.Triangles))); err != nil {
		return err
	}
	if err := binary.Write(w, le, s.Nodes); err != nil {
		return err
	}
	return binary.Write(w, le, s.Triangles)
}

// bspNodeSize is the packed size of one BSPNode.
const bspNodeSize = 32

func parseBSPSection(r *sectionReader) (*BSPSection, error) {
	ident, err := r.identifier()
	if err != nil {
		return nil, err
	}
	if ident != bspIdentifier {
		return nil, fmt.Errorf("expected bsp section, got %q", ident)
	}
	nodeCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	triCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if err := r.checkRemaining(uint64(nodeCount)*bspNodeSize + uint64(triCount)*12); err != nil {
		return nil, err
	}
	s := &BSPSection{
		Nodes:     make([]BSPNode, nodeCount),
		Triangles: make([][3]uint32, triCount),
	}
	if err := binary.Read(r.r, binary.LittleEndian, s.Nodes); err != nil {
		return nil, err
	}
	if err := binary.Read(r.r, binary.LittleEndian, s.Triangles); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}
