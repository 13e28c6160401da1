// Package export drives the scene-to-asset pipeline: interpret the
// scene's naming conventions, assemble engine geometry and write the
// artifact set for every renderable object.
package export

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/bigworld-export/internal/config"
	"github.com/Faultbox/bigworld-export/pkg/bsp"
	"github.com/Faultbox/bigworld-export/pkg/formats"
	"github.com/Faultbox/bigworld-export/pkg/obj"
	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// Exporter turns parsed scenes into engine asset files.
type Exporter struct {
	cfg *config.Config
	log *zap.Logger
}

// New creates an exporter. A nil logger disables logging.
func New(cfg *config.Config, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{cfg: cfg, log: log}
}

// Job bundles one scene with its optional side inputs: resolved MTL
// definitions keyed by material name and animation clips keyed by
// object name.
type Job struct {
	Scene     *obj.Scene
	Materials map[string]*obj.MTLMaterial
	Clips     map[string][]*formats.Animation
}

// Result is the outcome for one renderable object.
type Result struct {
	Name  string
	Files []string
	Err   error
}

// Report collects per-object results for one run.
type Report struct {
	Results []Result
}

// Succeeded returns how many objects exported cleanly.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns how many objects failed.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Run exports every renderable object of the job's scene under the
// configured output root. One object failing is recorded and the rest
// continue; the returned error is non-nil only when nothing could be
// exported at all. The report is returned alongside the error in that
// case so callers can surface the per-object reasons.
func (e *Exporter) Run(job Job) (*Report, error) {
	if job.Scene == nil || len(job.Scene.Objects) == 0 {
		return nil, fmt.Errorf("scene has no objects")
	}

	format, err := formats.GetFormat(e.cfg.Export.VertexFormat)
	if err != nil {
		return nil, fmt.Errorf("vertex format: %w", err)
	}

	models := classify(job.Scene, e.log)
	if len(models) == 0 {
		return nil, fmt.Errorf("scene has no renderable objects")
	}

	for _, dir := range []string{e.cfg.Export.ModelsDir, e.cfg.Export.AnimationsDir, e.cfg.Export.MaterialsDir} {
		if err := os.MkdirAll(filepath.Join(e.cfg.Export.OutputDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("creating output directories: %w", err)
		}
	}

	e.log.Info("exporting scene",
		zap.Int("objects", len(models)),
		zap.String("format", format.Identifier),
		zap.String("output", e.cfg.Export.OutputDir))

	report := &Report{}
	for _, m := range models {
		files, err := e.exportModel(job, m, format)
		report.Results = append(report.Results, Result{Name: m.Name, Files: files, Err: err})
		if err != nil {
			e.log.Error("object export failed", zap.String("object", m.Name), zap.Error(err))
			continue
		}
		e.log.Info("exported object", zap.String("object", m.Name), zap.Int("files", len(files)))
	}

	if report.Failed() == len(models) {
		return report, fmt.Errorf("all %d objects failed to export", len(models))
	}
	return report, nil
}

// exportModel writes the artifact set for one renderable object:
// .primitives, one .mfm per material, .visual, .animation per clip and
// the .model tying them together.
func (e *Exporter) exportModel(job Job, m *sceneModel, format *formats.VertexFormat) ([]string, error) {
	mesh, err := e.assembleMesh(job.Scene, m.Object, format)
	if err != nil {
		return nil, err
	}

	if e.cfg.BSP.Enabled && len(m.Collisions) > 0 {
		meshes := e.collisionMeshes(job.Scene, m.Collisions)
		if len(meshes) > 0 {
			builder := bsp.Builder{
				LeafTriangles: e.cfg.BSP.LeafTriangles,
				MaxDepth:      e.cfg.BSP.MaxDepth,
			}
			section, err := builder.Build(meshes)
			if err != nil {
				return nil, fmt.Errorf("building collision tree: %w", err)
			}
			if len(section.Nodes) > 0 {
				mesh.Prims.BSP = section
				e.log.Info("built collision tree",
					zap.String("object", m.Name),
					zap.Int("nodes", len(section.Nodes)),
					zap.Int("triangles", len(section.Triangles)))
			}
		}
	}

	var files []string

	primsRel := path.Join(e.cfg.Export.ModelsDir, m.Name+".primitives")
	primsPath := filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.ModelsDir, m.Name+".primitives")
	if err := formats.ExportPrimitives(primsPath, mesh.Prims); err != nil {
		return nil, fmt.Errorf("writing primitives: %w", err)
	}
	files = append(files, primsPath)
	e.log.Info("wrote primitives",
		zap.String("object", m.Name),
		zap.Int("vertices", len(mesh.Prims.Vertices)),
		zap.Int("indices", len(mesh.Prims.Indices)),
		zap.Int("groups", len(mesh.Prims.Groups)))

	visualGroups := make([]formats.VisualGroup, len(mesh.Prims.Groups))
	for i, g := range mesh.Prims.Groups {
		name := mesh.Materials[i]
		fileName := fmt.Sprintf("%s_%d.mfm", m.Name, i)
		materialRel := path.Join(e.cfg.Export.MaterialsDir, fileName)
		materialPath := filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.MaterialsDir, fileName)

		if err := formats.ExportMaterial(materialPath, e.buildMaterial(name, job.Materials[name])); err != nil {
			return nil, fmt.Errorf("writing material %s: %w", name, err)
		}
		files = append(files, materialPath)

		visualGroups[i] = formats.VisualGroup{
			Material: formats.VisualMaterial{
				Identifier:   materialRel,
				FX:           e.cfg.Material.FX,
				MaterialKind: e.cfg.Material.Kind,
			},
			StartIndex:  g.StartIndex,
			NumPrims:    g.NumPrims,
			StartVertex: g.StartVertex,
			NumVertices: g.NumVertices,
		}
	}

	visualRel := path.Join(e.cfg.Export.ModelsDir, m.Name+".visual")
	visualPath := filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.ModelsDir, m.Name+".visual")
	visual := &formats.Visual{
		Nodes:      []formats.VisualNode{{Name: "root", Transform: vecmath.Identity()}},
		Primitives: primsRel,
		Format:     format.Identifier,
		Groups:     visualGroups,
		HardPoints: e.hardPoints(job.Scene, m.HardPoints),
		Portals:    e.portals(job.Scene, m.Portals),
		BoundsMin:  mesh.BoundsMin,
		BoundsMax:  mesh.BoundsMax,
	}
	if err := formats.ExportVisual(visualPath, visual); err != nil {
		return nil, fmt.Errorf("writing visual: %w", err)
	}
	files = append(files, visualPath)

	var animRefs []formats.ModelAnimationRef
	for _, clip := range job.Clips[m.Name] {
		fileName := fmt.Sprintf("%s_%s.animation", m.Name, sanitizeName(clip.Name))
		animRel := path.Join(e.cfg.Export.AnimationsDir, fileName)
		animPath := filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.AnimationsDir, fileName)

		if err := formats.ExportAnimation(animPath, clip); err != nil {
			return nil, fmt.Errorf("writing animation %s: %w", clip.Name, err)
		}
		files = append(files, animPath)
		e.log.Info("wrote animation",
			zap.String("object", m.Name),
			zap.String("clip", clip.Name),
			zap.Int("frames", len(clip.Keyframes)))

		animRefs = append(animRefs, formats.ModelAnimationRef{
			Name:       clip.Name,
			Nodes:      animRel,
			FrameRate:  clip.FrameRate,
			FirstFrame: 0,
			LastFrame:  len(clip.Keyframes) - 1,
		})
	}

	modelPath := filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.ModelsDir, m.Name+".model")
	model := &formats.Model{
		Visual:        visualRel,
		BoundsMin:     mesh.BoundsMin,
		BoundsMax:     mesh.BoundsMax,
		Extent:        mesh.Extent,
		MaterialNames: mesh.Materials,
		Animations:    animRefs,
	}
	if err := formats.ExportModel(modelPath, model); err != nil {
		return nil, fmt.Errorf("writing model: %w", err)
	}
	files = append(files, modelPath)

	return files, nil
}

// buildMaterial maps an MTL definition onto an engine material. Without
// a definition the material carries just the configured defaults.
func (e *Exporter) buildMaterial(name string, mtl *obj.MTLMaterial) *formats.Material {
	mat := &formats.Material{
		Identifier:   name,
		FX:           e.cfg.Material.FX,
		MaterialKind: e.cfg.Material.Kind,
	}
	if mtl == nil {
		return mat
	}
	if mtl.DiffuseMap != "" {
		mat.Properties = append(mat.Properties, formats.TextureProperty("diffuseMap", mtl.DiffuseMap))
	}
	if mtl.NormalMap != "" {
		mat.Properties = append(mat.Properties, formats.TextureProperty("normalMap", mtl.NormalMap))
	}
	if mtl.HasDiffuse {
		mat.Properties = append(mat.Properties, formats.Vector4Property("diffuseColour",
			mtl.Diffuse[0], mtl.Diffuse[1], mtl.Diffuse[2], mtl.Alpha))
	}
	return mat
}

// LoadMaterials reads every MTL library the scene references, resolved
// relative to dir. Later libraries override earlier names. Unreadable
// libraries are logged and skipped so the export can proceed with
// default materials.
func (e *Exporter) LoadMaterials(scene *obj.Scene, dir string) map[string]*obj.MTLMaterial {
	materials := make(map[string]*obj.MTLMaterial)
	for _, lib := range scene.MTLLibs {
		libPath := lib
		if !filepath.IsAbs(libPath) {
			libPath = filepath.Join(dir, lib)
		}
		parsed, err := obj.LoadMTL(libPath)
		if err != nil {
			e.log.Warn("skipping material library", zap.String("library", lib), zap.Error(err))
			continue
		}
		for name, mat := range parsed {
			materials[name] = mat
		}
	}
	return materials
}

// sanitizeName makes a clip name safe for use in a file name.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
