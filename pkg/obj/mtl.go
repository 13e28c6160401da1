package obj

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// MTLMaterial is one material definition from an MTL library. Only the
// attributes the exporter maps onto engine materials are kept.
type MTLMaterial struct {
	Name       string
	Diffuse    [3]float32
	HasDiffuse bool
	Alpha      float32
	HasAlpha   bool
	DiffuseMap string
	NormalMap  string
}

// LoadMTL reads and parses the MTL library at path.
func LoadMTL(path string) (map[string]*MTLMaterial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mtl file: %w", err)
	}
	defer f.Close()
	return ParseMTL(f)
}

// ParseMTL reads an MTL library from r, keyed by material name.
// Directives outside a newmtl block and unknown directives are skipped.
func ParseMTL(r io.Reader) (map[string]*MTLMaterial, error) {
	materials := make(map[string]*MTLMaterial)
	var current *MTLMaterial
	lineNum := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		key := strings.ToLower(fields[0])
		if key == "newmtl" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: newmtl needs a name", lineNum)
			}
			name := strings.Join(fields[1:], " ")
			current = &MTLMaterial{Name: name, Alpha: 1}
			materials[name] = current
			continue
		}
		if current == nil {
			continue
		}
		switch key {
		case "kd":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: Kd needs 3 values", lineNum)
			}
			for i := 0; i < 3; i++ {
				v, err := parseFloat(fields[1+i])
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid Kd: %w", lineNum, err)
				}
				current.Diffuse[i] = v
			}
			current.HasDiffuse = true
		case "d":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: d needs a value", lineNum)
			}
			v, err := parseFloat(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid dissolve: %w", lineNum, err)
			}
			current.Alpha = v
			current.HasAlpha = true
		case "map_kd":
			current.DiffuseMap = texturePath(fields[1:])
		case "map_bump", "bump":
			current.NormalMap = texturePath(fields[1:])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mtl data: %w", err)
	}
	return materials, nil
}

// texturePath drops leading single-argument map options such as
// "-bm 1.0" and joins the rest, as texture paths may contain spaces.
func texturePath(fields []string) string {
	for len(fields) >= 2 && strings.HasPrefix(fields[0], "-") {
		fields = fields[2:]
	}
	return strings.Join(fields, " ")
}
