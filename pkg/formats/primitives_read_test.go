package formats

import (
	"bytes"
	"errors"
	"testing"
)

func createQuadBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WritePrimitives(&buf, createQuadPrimitives()); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}
	return buf.Bytes()
}

func TestParsePrimitives_Empty(t *testing.T) {
	if _, err := ParsePrimitives(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestParsePrimitives_UnknownFormat(t *testing.T) {
	data := createQuadBytes(t)
	copy(data[:8], "bogusfmt")
	if _, err := ParsePrimitives(data); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParsePrimitives_TruncatedHeader(t *testing.T) {
	data := createQuadBytes(t)
	if _, err := ParsePrimitives(data[:32]); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestParsePrimitives_TruncatedVertices(t *testing.T) {
	data := createQuadBytes(t)
	if _, err := ParsePrimitives(data[:100]); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestParsePrimitives_TruncatedIndices(t *testing.T) {
	data := createQuadBytes(t)
	if _, err := ParsePrimitives(data[:270]); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestParsePrimitives_UnknownIndexFormat(t *testing.T) {
	data := createQuadBytes(t)
	copy(data[196:202], "list64")
	_, err := ParsePrimitives(data)
	if err == nil {
		t.Fatal("expected error for unknown index format")
	}
}

func TestParsePrimitives_RejectsBrokenBSP(t *testing.T) {
	p := createQuadPrimitives()
	p.BSP = createTestBSPSection()
	var buf bytes.Buffer
	if err := WritePrimitives(&buf, p); err != nil {
		t.Fatalf("WritePrimitives failed: %v", err)
	}
	data := buf.Bytes()
	// The BSP section starts at 296: 64 identifier bytes, 8 count bytes
	// and the root's 16 byte plane put its second child index at 388.
	data[388] = 0x7F
	if _, err := ParsePrimitives(data); err == nil {
		t.Fatal("expected structural error for corrupted BSP")
	}
}

func TestParsePrimitives_UVRestored(t *testing.T) {
	f, err := ParsePrimitives(createQuadBytes(t))
	if err != nil {
		t.Fatalf("ParsePrimitives failed: %v", err)
	}
	if f.Vertices[2].UV != [2]float32{1, 1} {
		t.Errorf("expected uv (1,1), got %v", f.Vertices[2].UV)
	}
}
