package formats

import (
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

const modelCopyright = "Copyright BigWorld Pty Ltd. Use freely in any BigWorld licensed game."

// defaultCreator is recorded in metaData when the caller names no tool.
const defaultCreator = "bigworld-export"

// ModelAnimationRef references one exported .animation resource from a
// .model document.
type ModelAnimationRef struct {
	Name       string
	Nodes      string
	FrameRate  float32
	FirstFrame int
	LastFrame  int
	Alpha      bool
	Cognate    bool
}

// ModelMatchField is one capability constraint in an action's match
// block, written in slice order.
type ModelMatchField struct {
	Name  string
	Value string
}

// ModelAction binds an animation to an in-game action. Track is written
// only when HasTrack is set.
type ModelAction struct {
	Name          string
	Animation     string
	BlendInTime   float32
	BlendOutTime  float32
	Track         int
	HasTrack      bool
	IsMovement    bool
	IsCoordinated bool
	IsImpacting   bool
	MatchTrigger  []ModelMatchField
	MatchCancel   []ModelMatchField
}

// Model is one .model descriptor document.
type Model struct {
	Visual        string
	Parent        string
	BoundsMin     vecmath.Vec3
	BoundsMax     vecmath.Vec3
	Extent        float32
	BSPModel      string
	MaterialNames []string
	Animations    []ModelAnimationRef
	Actions       []ModelAction
	CreatedBy     string
}

// WriteModel serializes m to w.
func WriteModel(w io.Writer, m *Model) error {
	return writeXML(w, buildModelDocument(m))
}

// ExportModel writes m to path, creating parent directories as needed.
func ExportModel(path string, m *Model) error {
	return exportXML(path, buildModelDocument(m))
}

func buildModelDocument(m *Model) *etree.Element {
	root := etree.NewElement("model")

	creator := m.CreatedBy
	if creator == "" {
		creator = defaultCreator
	}
	meta := root.CreateElement("metaData")
	addText(meta, "copyright", modelCopyright)
	addText(meta, "created_by", creator)
	addText(meta, "created_on", "0")
	addText(meta, "modified_by", creator)
	addText(meta, "modified_on", "0")

	addText(root, "nodefullVisual", m.Visual)

	if len(m.MaterialNames) > 0 {
		mats := root.CreateElement("materialNames")
		for _, name := range m.MaterialNames {
			addText(mats, "m", name)
		}
	} else {
		addText(root, "materialNames", "")
	}

	visbox := root.CreateElement("visibilityBox")
	addText(visbox, "min", fmtVec3(m.BoundsMin))
	addText(visbox, "max", fmtVec3(m.BoundsMax))

	addText(root, "extent", fmtFloat(m.Extent))
	addText(root, "parent", m.Parent)

	if len(m.Animations) > 0 {
		anims := root.CreateElement("animations")
		for i := range m.Animations {
			writeModelAnimation(anims, &m.Animations[i])
		}
	}
	if len(m.Actions) > 0 {
		acts := root.CreateElement("actions")
		for i := range m.Actions {
			writeModelAction(acts, &m.Actions[i])
		}
	}

	editor := root.CreateElement("editorOnly")
	bsp := editor.CreateElement("bspModels")
	addText(bsp, "model", m.BSPModel)
	return root
}

func writeModelAnimation(parent *etree.Element, a *ModelAnimationRef) {
	e := parent.CreateElement("animation")
	addText(e, "name", a.Name)
	addText(e, "nodes", a.Nodes)
	addText(e, "frameRate", fmtFloat(a.FrameRate))
	addText(e, "firstFrame", strconv.Itoa(a.FirstFrame))
	addText(e, "lastFrame", strconv.Itoa(a.LastFrame))
	addText(e, "alpha", fmtBool(a.Alpha))
	addText(e, "cognate", fmtBool(a.Cognate))
}

func writeModelAction(parent *etree.Element, a *ModelAction) {
	e := parent.CreateElement("action")
	addText(e, "name", a.Name)
	addText(e, "animation", a.Animation)
	addText(e, "blendInTime", fmtFloat(a.BlendInTime))
	addText(e, "blendOutTime", fmtFloat(a.BlendOutTime))
	if a.HasTrack {
		addText(e, "track", strconv.Itoa(a.Track))
	}
	addText(e, "isMovement", fmtBool(a.IsMovement))
	addText(e, "isCoordinated", fmtBool(a.IsCoordinated))
	addText(e, "isImpacting", fmtBool(a.IsImpacting))

	if len(a.MatchTrigger) > 0 || len(a.MatchCancel) > 0 {
		match := e.CreateElement("match")
		if len(a.MatchTrigger) > 0 {
			trig := match.CreateElement("trigger")
			for _, f := range a.MatchTrigger {
				addText(trig, f.Name, f.Value)
			}
		}
		if len(a.MatchCancel) > 0 {
			cancel := match.CreateElement("cancel")
			for _, f := range a.MatchCancel {
				addText(cancel, f.Name, f.Value)
			}
		}
	}
}
