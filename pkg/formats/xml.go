package formats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// DefaultFX is the effect bound to materials that do not name one.
const DefaultFX = "shaders/std_effects.fx"

func addText(parent *etree.Element, tag, text string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(text)
	return e
}

func fmtFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', 6, 32)
}

func fmtVec3(v vecmath.Vec3) string {
	return fmtFloat(v.X) + " " + fmtFloat(v.Y) + " " + fmtFloat(v.Z)
}

func fmtBool(b bool) string {
	return strconv.FormatBool(b)
}

// addMatrix writes a 4x4 transform as row0..row3 children of a new tag
// element, matching the row layout the engine loads.
func addMatrix(parent *etree.Element, tag string, m vecmath.Mat4) {
	t := parent.CreateElement(tag)
	for i := 0; i < 4; i++ {
		row := m.Row(i)
		text := fmt.Sprintf("%s %s %s %s",
			fmtFloat(row[0]), fmtFloat(row[1]), fmtFloat(row[2]), fmtFloat(row[3]))
		addText(t, fmt.Sprintf("row%d", i), text)
	}
}

// writeXML serializes root with two-space indentation.
func writeXML(w io.Writer, root *etree.Element) error {
	doc := etree.NewDocument()
	doc.SetRoot(root)
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

// exportXML serializes root in memory and writes it to path, creating
// parent directories as needed.
func exportXML(path string, root *etree.Element) error {
	doc := etree.NewDocument()
	doc.SetRoot(root)
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
