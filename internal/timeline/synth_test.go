package timeline

import (
	"errors"
	"strings"
	"testing"

	"sofa-scene-importer/internal/descriptor"
	"sofa-scene-importer/internal/mathutil"
	"sofa-scene-importer/internal/monitor"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rigidTraj(n int) *monitor.RigidTrajectory {
	t := &monitor.RigidTrajectory{Path: "chair.txt"}
	for i := 0; i < n; i++ {
		t.Frames = append(t.Frames, monitor.RigidFrame{
			Time:        float64(i) * 0.01,
			Position:    mgl64.Vec3{0, 100 - float64(i), 0},
			Orientation: mgl64.QuatIdent(),
		})
	}
	return t
}

func deformableTraj(n, verts int) *monitor.DeformableTrajectory {
	t := &monitor.DeformableTrajectory{Path: "cloth.txt"}
	for i := 0; i < n; i++ {
		pos := make([]mgl64.Vec3, verts)
		for v := range pos {
			pos[v] = mgl64.Vec3{float64(v), float64(i), 0}
		}
		t.Frames = append(t.Frames, monitor.DeformableFrame{Time: float64(i), Positions: pos})
	}
	return t
}

func spec(name string, kind descriptor.Kind) descriptor.ObjectSpec {
	return descriptor.ObjectSpec{
		Name:        name,
		Kind:        kind,
		Scale:       mgl64.Vec3{2, 2, 2},
		Translation: mgl64.Vec3{1, 0, 0},
		Rotation:    mathutil.EulerDegToQuat(mgl64.Vec3{0, 0, 90}),
	}
}

func frames[K PoseKey | VertexKey](keys []K) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		switch k := any(k).(type) {
		case PoseKey:
			out[i] = k.Frame
		case VertexKey:
			out[i] = k.Frame
		}
	}
	return out
}

func TestSynthesize_RigidNaturalRange(t *testing.T) {
	s, err := Synthesize(spec("Chair01", descriptor.KindRigid), rigidTraj(10), 8, Options{})
	require.NoError(t, err)

	assert.Equal(t, Range{0, 10}, s.Range)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, frames(s.Poses))
	assert.Empty(t, s.Vertices)
	assert.Equal(t, 10, s.Keys())

	// Recorded pose with object scale; descriptor placement goes on the base.
	assert.Equal(t, mgl64.Vec3{0, 97, 0}, s.Poses[3].Pose.Translation)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, s.Poses[3].Pose.Scale)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, s.Base.Translation)
	assert.Equal(t, mathutil.One, s.Base.Scale)
}

func TestSynthesize_FrameStart(t *testing.T) {
	s, err := Synthesize(spec("Chair01", descriptor.KindRigid), rigidTraj(3), 0, Options{FrameStart: 5})
	require.NoError(t, err)
	assert.Equal(t, Range{5, 8}, s.Range)
	assert.Equal(t, []int{5, 6, 7}, frames(s.Poses))
}

func TestSynthesize_ExplicitCountShorter(t *testing.T) {
	traj := rigidTraj(10)
	s, err := Synthesize(spec("Chair01", descriptor.KindRigid), traj, 0, Options{FrameCount: 4})
	require.NoError(t, err)

	assert.Equal(t, Range{0, 4}, s.Range)
	assert.Equal(t, []int{0, 1, 2, 3}, frames(s.Poses))
	// Samples 8 and 9 share frame 3; the latest wins.
	assert.Equal(t, traj.Frames[9].Position, s.Poses[3].Pose.Translation)
}

func TestSynthesize_ExplicitCountLonger(t *testing.T) {
	s, err := Synthesize(spec("Cloth01", descriptor.KindDeformable), deformableTraj(4, 2), 2, Options{FrameCount: 10})
	require.NoError(t, err)

	assert.Equal(t, Range{0, 10}, s.Range)
	assert.Equal(t, []int{0, 2, 5, 7}, frames(s.Vertices))
}

func TestSynthesize_Deformable(t *testing.T) {
	traj := deformableTraj(10, 3)
	s, err := Synthesize(spec("Cloth01", descriptor.KindDeformable), traj, 3, Options{})
	require.NoError(t, err)

	assert.Equal(t, Range{0, 10}, s.Range)
	assert.Empty(t, s.Poses)
	require.Len(t, s.Vertices, 10)
	assert.Equal(t, traj.Frames[4].Positions, s.Vertices[4].Positions, "positions are not rescaled")
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, s.Base.Scale)
}

func TestSynthesize_VertexCountMismatch(t *testing.T) {
	traj := deformableTraj(10, 3)
	traj.Frames[6].Positions = traj.Frames[6].Positions[:2]

	s, err := Synthesize(spec("Cloth01", descriptor.KindDeformable), traj, 3, Options{})
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVertexCountMismatch))

	var serr *SynthesisError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "Cloth01", serr.Object)
	assert.Equal(t, 6, serr.Sample)

	_, err = Synthesize(spec("Cloth01", descriptor.KindDeformable), deformableTraj(2, 3), 4, Options{})
	assert.ErrorIs(t, err, ErrVertexCountMismatch)
}

func TestSynthesize_DeformableFollowsParticleIndices(t *testing.T) {
	body := "# 1st Column : time, others : particle(s) number 2 0 1\n" +
		"0 20 20 20 0 0 0 10 10 10\n"
	traj, err := monitor.ParseReader(strings.NewReader(body), "cloth.txt", descriptor.KindDeformable, monitor.Options{})
	require.NoError(t, err)

	s, err := Synthesize(spec("Cloth01", descriptor.KindDeformable), traj, 3, Options{})
	require.NoError(t, err)
	require.Len(t, s.Vertices, 1)
	assert.Equal(t, []mgl64.Vec3{{0, 0, 0}, {10, 10, 10}, {20, 20, 20}}, s.Vertices[0].Positions)

	// The parsed trajectory is left in record order.
	def := traj.(*monitor.DeformableTrajectory)
	assert.Equal(t, mgl64.Vec3{20, 20, 20}, def.Frames[0].Positions[0])
}

func TestSynthesize_IdentityIndicesKeepRecordSlice(t *testing.T) {
	traj := deformableTraj(2, 3)
	traj.Indices = []int{0, 1, 2}
	s, err := Synthesize(spec("Cloth01", descriptor.KindDeformable), traj, 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, traj.Frames[1].Positions, s.Vertices[1].Positions)
}

func TestSynthesize_BadParticleIndices(t *testing.T) {
	for name, indices := range map[string][]int{
		"out of range": {0, 1, 3},
		"negative":     {0, -1, 2},
		"repeated":     {0, 1, 1},
		"too few":      {0, 1},
	} {
		t.Run(name, func(t *testing.T) {
			traj := deformableTraj(2, 3)
			traj.Indices = indices
			_, err := Synthesize(spec("Cloth01", descriptor.KindDeformable), traj, 3, Options{})
			assert.ErrorIs(t, err, ErrVertexCountMismatch)
		})
	}
}

func TestSynthesize_AutoTakesTrajectoryKind(t *testing.T) {
	s, err := Synthesize(spec("x", descriptor.KindAuto), deformableTraj(2, 1), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, descriptor.KindDeformable, s.Kind)
}

func TestSynthesize_Static(t *testing.T) {
	s, err := Synthesize(spec("Floor", descriptor.KindStatic), nil, 4, Options{FrameStart: 2})
	require.NoError(t, err)
	assert.Zero(t, s.Keys())
	assert.True(t, s.Range.Empty())
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, s.Base.Scale)

	s, err = Synthesize(spec("Floor", descriptor.KindStatic), nil, 4, Options{FrameCount: 30})
	require.NoError(t, err)
	assert.Equal(t, Range{0, 30}, s.Range)
}

func TestSynthesize_MissingTrajectory(t *testing.T) {
	_, err := Synthesize(spec("Chair01", descriptor.KindRigid), nil, 0, Options{})
	assert.ErrorIs(t, err, ErrNoTrajectory)
}

func TestSceneRange(t *testing.T) {
	assert.Equal(t, Range{0, 12}, SceneRange(Options{}, Range{0, 10}, Range{3, 12}, Range{4, 4}))
	assert.Equal(t, Range{2, 2}, SceneRange(Options{FrameStart: 2}))
	assert.Equal(t, Range{1, 6}, SceneRange(Options{FrameStart: 1, FrameCount: 5}, Range{0, 100}))
}

func TestRange(t *testing.T) {
	r := Range{3, 7}
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, "[3, 7)", r.String())
	assert.Equal(t, 0, Range{5, 2}.Len())
	assert.Equal(t, r, Range{}.Union(r))
}

func TestPose_Matrix(t *testing.T) {
	p := Pose{Translation: mgl64.Vec3{1, 2, 3}, Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{2, 2, 2}}
	got := mathutil.TransformPoint(p.Matrix(), mgl64.Vec3{1, 1, 1})
	assert.InDeltaSlice(t, []float64{3, 4, 5}, got[:], 1e-12)
	assert.Equal(t, mgl64.Ident4(), IdentityPose().Matrix())
}
