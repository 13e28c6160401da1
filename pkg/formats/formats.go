// Package formats implements the BigWorld asset file formats produced by
// the export pipeline. It covers the binary .primitives geometry container
// with its vertex, index and BSP sections, the .animation binary clip
// format, and the .visual, .model and .mfm XML descriptors.
//
// Writers validate their full payload before emitting any output, so a
// failed export never leaves a partially written file behind.
package formats

import (
	"errors"
	"fmt"
)

// identifierSize is the fixed on-disk size of section and vertex format
// identifiers in .primitives files.
const identifierSize = 64

// Errors shared by the writers and parsers in this package.
var (
	ErrUnknownFormat      = errors.New("unknown vertex format")
	ErrEmptyInput         = errors.New("empty input")
	ErrIndexRangeExceeded = errors.New("index range exceeded")
	ErrTruncated          = errors.New("truncated data")
)

// MissingAttributeError reports a vertex record that lacks an attribute
// required by the chosen vertex format. Attribute is the canonical name
// even when the record was built through an alias.
type MissingAttributeError struct {
	Vertex    int
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("vertex %d missing required attribute %q", e.Vertex, e.Attribute)
}

// IndexOutOfRangeError reports an index buffer entry that references a
// vertex beyond the vertex buffer.
type IndexOutOfRangeError struct {
	Position    int
	Value       uint32
	VertexCount int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d at position %d out of range for %d vertices",
		e.Value, e.Position, e.VertexCount)
}

// GroupRangeError reports a primitive group whose counts are zero or whose
// index or vertex range falls outside the shared buffers.
type GroupRangeError struct {
	Group  int
	Reason string
}

func (e *GroupRangeError) Error() string {
	return fmt.Sprintf("primitive group %d: %s", e.Group, e.Reason)
}

// IdentifierError reports a section or format identifier that cannot be
// encoded into its fixed 64-byte header field.
type IdentifierError struct {
	Identifier string
	Reason     string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("identifier %q: %s", e.Identifier, e.Reason)
}

// BSPStructuralError reports a BSP node that violates the leaf or internal
// node shape.
type BSPStructuralError struct {
	Node   int
	Reason string
}

func (e *BSPStructuralError) Error() string {
	return fmt.Sprintf("bsp node %d: %s", e.Node, e.Reason)
}

// padIdentifier encodes name into the fixed-size header field used by
// .primitives sections: ASCII bytes, zero padded to 64.
func padIdentifier(name string) ([identifierSize]byte, error) {
	var out [identifierSize]byte
	if len(name) > identifierSize {
		return out, &IdentifierError{Identifier: name, Reason: "longer than 64 bytes"}
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7F {
			return out, &IdentifierError{Identifier: name, Reason: "contains non-ASCII bytes"}
		}
		out[i] = name[i]
	}
	return out, nil
}

// trimIdentifier decodes a fixed-size header field back to its string
// form, dropping the zero padding.
func trimIdentifier(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
