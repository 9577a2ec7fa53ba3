package timeline

import (
	"errors"
	"fmt"

	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/mathutil"
	"sofa-scene-importer/internal/monitor"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoTrajectory means an animated object reached synthesis without data.
var ErrNoTrajectory = errors.New("no trajectory")

// Synthesize builds the keyframe schedule for one object.
//
// Static objects get their descriptor pose as Base and no keys. Rigid
// objects get one pose key per sample, carrying the recorded position and
// orientation with the object's scale; the descriptor translation and
// rotation become Base and are layered underneath. Deformable objects get
// one vertex key per sample with positions copied as recorded, placed on
// the vertices named by the monitor header's particle indices; their
// scale lives on Base. vertexCount is the mesh's vertex count and every
// deformable sample must match it.
//
// Sample i lands on FrameStart+i, or on FrameStart+floor(i*F/N) when an
// explicit FrameCount F is set. When samples share a frame the latest wins.
func Synthesize(spec descriptor.ObjectSpec, traj monitor.Trajectory, vertexCount int, opts Options) (*Schedule, error) {
	s := &Schedule{
		Object: spec.Name,
		Kind:   spec.Kind,
		Base:   Pose{Translation: spec.Translation, Rotation: spec.Rotation, Scale: spec.Scale},
		Range:  Range{Start: opts.FrameStart, End: opts.FrameStart},
	}
	if opts.FrameCount > 0 {
		s.Range.End = opts.FrameStart + opts.FrameCount
	}

	if !spec.Kind.Animated() {
		return s, nil
	}
	if traj == nil {
		return nil, &SynthesisError{Object: spec.Name, Sample: -1, Err: ErrNoTrajectory, Detail: fmt.Sprintf("%s object has no loaded trajectory", spec.Kind)}
	}

	n := traj.Len()
	if opts.FrameCount <= 0 {
		s.Range.End = opts.FrameStart + n
	}
	frame := func(i int) int {
		if opts.FrameCount <= 0 {
			return opts.FrameStart + i
		}
		return opts.FrameStart + int(int64(i)*int64(opts.FrameCount)/int64(n))
	}

	switch t := traj.(type) {
	case *monitor.RigidTrajectory:
		s.Kind = descriptor.KindRigid
		s.Base.Scale = mathutil.One
		for i, f := range t.Frames {
			key := PoseKey{
				Frame: frame(i),
				Pose:  Pose{Translation: f.Position, Rotation: f.Orientation, Scale: spec.Scale},
			}
			if last := len(s.Poses) - 1; last >= 0 && s.Poses[last].Frame == key.Frame {
				s.Poses[last] = key
				continue
			}
			s.Poses = append(s.Poses, key)
		}
	case *monitor.DeformableTrajectory:
		s.Kind = descriptor.KindDeformable
		slots, err := vertexSlots(t.Indices, vertexCount)
		if err != nil {
			return nil, &SynthesisError{Object: spec.Name, Sample: -1, Err: ErrVertexCountMismatch, Detail: err.Error()}
		}
		for i, f := range t.Frames {
			if len(f.Positions) != vertexCount {
				return nil, &SynthesisError{
					Object: spec.Name,
					Sample: i,
					Err:    ErrVertexCountMismatch,
					Detail: fmt.Sprintf("trajectory has %d vertices, mesh has %d", len(f.Positions), vertexCount),
				}
			}
			key := VertexKey{Frame: frame(i), Positions: f.Positions}
			if slots != nil {
				key.Positions = make([]mgl64.Vec3, vertexCount)
				for j, p := range f.Positions {
					key.Positions[slots[j]] = p
				}
			}
			if last := len(s.Vertices) - 1; last >= 0 && s.Vertices[last].Frame == key.Frame {
				s.Vertices[last] = key
				continue
			}
			s.Vertices = append(s.Vertices, key)
		}
	default:
		return nil, &SynthesisError{Object: spec.Name, Sample: -1, Err: ErrNoTrajectory, Detail: fmt.Sprintf("unsupported trajectory %T", traj)}
	}
	return s, nil
}

// vertexSlots validates the monitored particle indices against the mesh.
// Record column j belongs to vertex indices[j]. It returns nil when the
// records are already in vertex order.
func vertexSlots(indices []int, vertexCount int) ([]int, error) {
	if indices == nil {
		return nil, nil
	}
	if len(indices) != vertexCount {
		return nil, fmt.Errorf("header lists %d particles, mesh has %d vertices", len(indices), vertexCount)
	}
	seen := make([]bool, vertexCount)
	identity := true
	for j, v := range indices {
		if v < 0 || v >= vertexCount {
			return nil, fmt.Errorf("particle index %d out of range [0, %d)", v, vertexCount)
		}
		if seen[v] {
			return nil, fmt.Errorf("particle index %d listed twice", v)
		}
		seen[v] = true
		identity = identity && v == j
	}
	if identity {
		return nil, nil
	}
	return indices, nil
}

// SceneRange returns the frame range for the whole scene: the explicit
// count when set, otherwise the union of the object ranges. With no
// non-empty range it is the empty range at FrameStart.
func SceneRange(opts Options, ranges ...Range) Range {
	if opts.FrameCount > 0 {
		return Range{Start: opts.FrameStart, End: opts.FrameStart + opts.FrameCount}
	}
	out := Range{Start: opts.FrameStart, End: opts.FrameStart}
	for _, r := range ranges {
		out = out.Union(r)
	}
	return out
}
