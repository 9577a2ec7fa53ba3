package monitor

import (
	"sofa-scene-importer/internal/descriptor"

	"github.com/go-gl/mathgl/mgl64"
)

// RigidFrame is one recorded rigid-body sample.
type RigidFrame struct {
	Time        float64
	Position    mgl64.Vec3
	Orientation mgl64.Quat // unit quaternion
}

// DeformableFrame is one recorded snapshot of every monitored vertex.
type DeformableFrame struct {
	Time      float64
	Positions []mgl64.Vec3
}

// Trajectory is a parsed recording. It is either a *RigidTrajectory or a
// *DeformableTrajectory; no other implementations exist.
type Trajectory interface {
	Kind() descriptor.Kind
	Len() int
	Source() string
	Times() []float64

	trajectory()
}

// RigidTrajectory holds one pose per frame, in file order.
type RigidTrajectory struct {
	Path    string
	Indices []int // monitored particle indices from the header, may be nil
	Frames  []RigidFrame
}

func (t *RigidTrajectory) Kind() descriptor.Kind { return descriptor.KindRigid }
func (t *RigidTrajectory) Len() int              { return len(t.Frames) }
func (t *RigidTrajectory) Source() string        { return t.Path }
func (t *RigidTrajectory) trajectory()           {}

func (t *RigidTrajectory) Times() []float64 {
	out := make([]float64, len(t.Frames))
	for i, f := range t.Frames {
		out[i] = f.Time
	}
	return out
}

// DeformableTrajectory holds one vertex set per frame. Every frame has the
// same number of positions.
type DeformableTrajectory struct {
	Path    string
	Indices []int
	Frames  []DeformableFrame
}

func (t *DeformableTrajectory) Kind() descriptor.Kind { return descriptor.KindDeformable }
func (t *DeformableTrajectory) Len() int              { return len(t.Frames) }
func (t *DeformableTrajectory) Source() string        { return t.Path }
func (t *DeformableTrajectory) trajectory()           {}

func (t *DeformableTrajectory) Times() []float64 {
	out := make([]float64, len(t.Frames))
	for i, f := range t.Frames {
		out[i] = f.Time
	}
	return out
}

// VertexCount is the number of positions per frame.
func (t *DeformableTrajectory) VertexCount() int {
	if len(t.Frames) == 0 {
		return 0
	}
	return len(t.Frames[0].Positions)
}

// Info summarizes a recording without keeping its frames.
type Info struct {
	Path      string
	Records   int
	Width     int // fields per record, time included
	First     float64
	Last      float64
	Step      float64 // mean time step
	Particles []int
}
