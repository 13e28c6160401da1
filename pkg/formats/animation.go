package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/bigworld-export/pkg/vecmath"
)

// Animation binary constants.
const (
	animationMagic   = 0x42570101
	animationVersion = 1

	animNameSize = 64
	boneNameSize = 32
)

// AnimationBone is one bone of a clip's skeleton. Parent names another
// bone in the same clip, or is empty for a root.
type AnimationBone struct {
	Name   string
	Parent string
}

// BoneTransform is one bone's pose within a keyframe.
type BoneTransform struct {
	Position vecmath.Vec3
	Rotation vecmath.Quat
	Scale    vecmath.Vec3
}

// Keyframe is one sampled frame. Transforms is keyed by bone name and
// must cover every bone of the clip.
type Keyframe struct {
	Frame      uint32
	Time       float32
	Transforms map[string]BoneTransform
}

// AnimationMarker is a named event marker on the clip timeline.
type AnimationMarker struct {
	Time float32
	Name string
}

// Animation is one .animation binary clip.
type Animation struct {
	Name      string
	Bones     []AnimationBone
	Keyframes []Keyframe
	FrameRate float32
	Duration  float32
	Loop      bool
	Cognate   bool
	Alpha     bool
	Markers   []AnimationMarker
}

// Validate checks the clip before serialization.
func (a *Animation) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: animation has no name", ErrEmptyInput)
	}
	if len(a.Bones) == 0 {
		return fmt.Errorf("%w: animation has no bones", ErrEmptyInput)
	}
	if len(a.Keyframes) == 0 {
		return fmt.Errorf("%w: animation has no keyframes", ErrEmptyInput)
	}
	for i := range a.Keyframes {
		kf := &a.Keyframes[i]
		for _, bone := range a.Bones {
			if _, ok := kf.Transforms[bone.Name]; !ok {
				return fmt.Errorf("frame %d missing transform for bone %q", kf.Frame, bone.Name)
			}
		}
	}
	return nil
}

// WriteAnimation validates a and serializes it to w.
func WriteAnimation(w io.Writer, a *Animation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	le := binary.LittleEndian
	header := []uint32{animationMagic, animationVersion, uint32(len(a.Bones)), uint32(len(a.Keyframes))}
	if err := binary.Write(w, le, header); err != nil {
		return err
	}
	if err := binary.Write(w, le, [2]float32{a.FrameRate, a.Duration}); err != nil {
		return err
	}
	if err := writeFixedString(w, a.Name, animNameSize); err != nil {
		return err
	}
	if _, err := w.Write([]byte{flagByte(a.Loop), flagByte(a.Cognate), flagByte(a.Alpha), 0}); err != nil {
		return err
	}

	boneIndex := make(map[string]int32, len(a.Bones))
	for i, bone := range a.Bones {
		boneIndex[bone.Name] = int32(i)
	}
	for _, bone := range a.Bones {
		if err := writeFixedString(w, bone.Name, boneNameSize); err != nil {
			return err
		}
		parent := int32(-1)
		if bone.Parent != "" {
			if idx, ok := boneIndex[bone.Parent]; ok {
				parent = idx
			}
		}
		if err := binary.Write(w, le, parent); err != nil {
			return err
		}
	}

	for i := range a.Keyframes {
		kf := &a.Keyframes[i]
		if err := binary.Write(w, le, kf.Frame); err != nil {
			return err
		}
		if err := binary.Write(w, le, kf.Time); err != nil {
			return err
		}
		for _, bone := range a.Bones {
			tr := kf.Transforms[bone.Name]
			trs := [10]float32{
				tr.Position.X, tr.Position.Y, tr.Position.Z,
				tr.Rotation.X, tr.Rotation.Y, tr.Rotation.Z, tr.Rotation.W,
				tr.Scale.X, tr.Scale.Y, tr.Scale.Z,
			}
			if err := binary.Write(w, le, trs); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, le, uint32(len(a.Markers))); err != nil {
		return err
	}
	for _, m := range a.Markers {
		if err := binary.Write(w, le, m.Time); err != nil {
			return err
		}
		if err := writeFixedString(w, m.Name, boneNameSize); err != nil {
			return err
		}
	}
	return nil
}

// ExportAnimation writes a to path. The clip is validated and serialized
// in memory first, so a failing export leaves the destination untouched.
func ExportAnimation(path string, a *Animation) error {
	var buf bytes.Buffer
	if err := WriteAnimation(&buf, a); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeFixedString emits a null-terminated field of exactly size bytes.
// Non-ASCII bytes are dropped and overlong names truncated to keep the
// terminator.
func writeFixedString(w io.Writer, s string, size int) error {
	field := make([]byte, size)
	n := 0
	for i := 0; i < len(s) && n < size-1; i++ {
		if s[i] > 0x7F {
			continue
		}
		field[n] = s[i]
		n++
	}
	_, err := w.Write(field)
	return err
}

func flagByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
