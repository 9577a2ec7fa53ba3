package timeline

import (
	"errors"
	"fmt"

	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/mathutil"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is an object transform, applied as T·R·S.
type Pose struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// IdentityPose returns the pose that leaves a mesh where it is.
func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent(), Scale: mathutil.One}
}

// Matrix returns the 4x4 transform of the pose.
func (p Pose) Matrix() mgl64.Mat4 {
	return mathutil.Compose(p.Translation, p.Rotation, p.Scale)
}

// PoseKey is a rigid keyframe.
type PoseKey struct {
	Frame int
	Pose  Pose
}

// VertexKey is a deformable keyframe carrying every mesh vertex.
type VertexKey struct {
	Frame     int
	Positions []mgl64.Vec3
}

// Range is a half-open frame interval [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int    { return max(r.End-r.Start, 0) }
func (r Range) Empty() bool { return r.End <= r.Start }

// Union returns the smallest range covering r and o. Empty ranges are ignored.
func (r Range) Union(o Range) Range {
	switch {
	case o.Empty():
		return r
	case r.Empty():
		return o
	}
	return Range{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// Options control frame mapping.
type Options struct {
	FrameStart int
	FrameCount int // 0 uses the natural trajectory length
}

// Schedule is the keyframe plan for one object. Exactly one of Poses and
// Vertices is set for animated objects; static objects carry only Base.
type Schedule struct {
	Object   string
	Kind     descriptor.Kind
	Base     Pose
	Poses    []PoseKey
	Vertices []VertexKey
	Range    Range
}

// Keys returns the number of keyframes.
func (s *Schedule) Keys() int {
	return len(s.Poses) + len(s.Vertices)
}

// ErrVertexCountMismatch means a deformable frame does not match the mesh.
var ErrVertexCountMismatch = errors.New("vertex count mismatch")

// SynthesisError reports why no schedule could be built for an object.
type SynthesisError struct {
	Object string
	Sample int // trajectory sample index, -1 when not sample specific
	Err    error
	Detail string
}

func (e *SynthesisError) Error() string {
	if e.Sample >= 0 {
		return fmt.Sprintf("timeline: %s: sample %d: %v: %s", e.Object, e.Sample, e.Err, e.Detail)
	}
	return fmt.Sprintf("timeline: %s: %v: %s", e.Object, e.Err, e.Detail)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
