package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"sofa-scene-importer/internal/descriptor"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rigidFile = `# Gnuplot File : positions of 1 particle(s) Monitored
# 1st Column : time, others : particle(s) number 0
0.007	0 100 0 0 0 0 1
0.014	0 99.5 0 0 0 0.7071067811865476 0.7071067811865476

0.021	0.5 99 0 0 0 0 2
`

const deformableFile = `# Gnuplot File : positions of 2 particle(s) Monitored
# 1st Column : time, others : particle(s) number 0 1
0.1 0 0 0 1 0 0
0.2 0 0.1 0 1 0.1 0
0.3 0 0.2 0 1 0.2 0
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func requireParseError(t *testing.T, err error, kind error, line int) *ParseError {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "want %v, got %v", kind, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, line, perr.Line)
	return perr
}

func TestParse_Rigid(t *testing.T) {
	path := writeFile(t, "d20_x.txt", rigidFile)

	traj, err := Parse(path, descriptor.KindRigid, Options{})
	require.NoError(t, err)

	rigid, ok := traj.(*RigidTrajectory)
	require.True(t, ok)
	assert.Equal(t, descriptor.KindRigid, traj.Kind())
	assert.Equal(t, path, traj.Source())
	assert.Equal(t, []int{0}, rigid.Indices)
	require.Len(t, rigid.Frames, 3)

	assert.Equal(t, []float64{0.007, 0.014, 0.021}, traj.Times())
	assert.Equal(t, mgl64.Vec3{0, 99.5, 0}, rigid.Frames[1].Position)
	assert.Equal(t, mgl64.QuatIdent(), rigid.Frames[0].Orientation)

	// x y z w on disk; stored scalar-first.
	q := rigid.Frames[1].Orientation
	assert.InDelta(t, 0.7071067811865476, q.W, 1e-12)
	assert.InDelta(t, 0.7071067811865476, q.V[2], 1e-12)

	// Non-unit quaternions are normalized.
	assert.InDelta(t, 1.0, rigid.Frames[2].Orientation.W, 1e-12)
}

func TestParse_Deformable(t *testing.T) {
	traj, err := ParseReader(strings.NewReader(deformableFile), "cloth", descriptor.KindDeformable, Options{})
	require.NoError(t, err)

	def, ok := traj.(*DeformableTrajectory)
	require.True(t, ok)
	assert.Equal(t, 3, def.Len())
	assert.Equal(t, 2, def.VertexCount())
	assert.Equal(t, []int{0, 1}, def.Indices)
	assert.Equal(t, []mgl64.Vec3{{0, 0.2, 0}, {1, 0.2, 0}}, def.Frames[2].Positions)
}

func TestParse_AutoKind(t *testing.T) {
	traj, err := ParseReader(strings.NewReader(rigidFile), "r", descriptor.KindAuto, Options{})
	require.NoError(t, err)
	assert.Equal(t, descriptor.KindRigid, traj.Kind())

	traj, err = ParseReader(strings.NewReader(deformableFile), "d", descriptor.KindAuto, Options{})
	require.NoError(t, err)
	assert.Equal(t, descriptor.KindDeformable, traj.Kind())
}

func TestParse_ColumnHeaderWithoutHash(t *testing.T) {
	body := "time x y z\n0 1 2 3\n1 1 2 4\n"
	traj, err := ParseReader(strings.NewReader(body), "h", descriptor.KindDeformable, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, traj.Len())
}

func TestParse_Frequency(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%d %d 0 0\n", i, i)
	}
	traj, err := ParseReader(strings.NewReader(b.String()), "f", descriptor.KindDeformable, Options{Frequency: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3, 6, 9}, traj.Times())
}

func TestParse_FrequencyStillValidatesSkippedRecords(t *testing.T) {
	body := "0 0 0 0\n1 0 0\n2 0 0 0\n"
	_, err := ParseReader(strings.NewReader(body), "f", descriptor.KindDeformable, Options{Frequency: 2})
	requireParseError(t, err, ErrMalformedRecord, 2)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		kind descriptor.Kind
		body string
		line int
	}{
		{"rigid short", descriptor.KindRigid, "0 0 0 0 0 0 0 1\n1 0 0 0 0 0 1\n", 2},
		{"rigid long", descriptor.KindRigid, "0 0 0 0 0 0 0 1 5\n", 1},
		{"non numeric", descriptor.KindRigid, "#h\n0 0 0 0 0 0 0 1\n1 0 x 0 0 0 0 1\n", 3},
		{"not finite", descriptor.KindDeformable, "0 0 0 0\n1 0 NaN 0\n", 2},
		{"deformable width", descriptor.KindDeformable, "0 0 0 0 1\n", 1},
		{"time backwards", descriptor.KindDeformable, "1 0 0 0\n0.5 0 0 0\n", 2},
		{"zero quaternion", descriptor.KindRigid, "0 0 0 0 0 0 0 0\n", 1},
		{"header then garbage", descriptor.KindDeformable, "time x y z\n0 0 0 0\nfoo 1 2 3\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReader(strings.NewReader(tt.body), "bad.txt", tt.kind, Options{})
			perr := requireParseError(t, err, ErrMalformedRecord, tt.line)
			assert.Contains(t, perr.Error(), fmt.Sprintf("bad.txt:%d", tt.line))
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, body := range []string{"", "\n\n", "# Gnuplot File : positions of 2 particle(s)\n# number 0 1\n"} {
		_, err := ParseReader(strings.NewReader(body), "e", descriptor.KindDeformable, Options{})
		requireParseError(t, err, ErrEmptyTrajectory, 0)
		assert.False(t, errors.Is(err, ErrMalformedRecord))
	}
}

func TestParse_InconsistentVertexCount(t *testing.T) {
	body := "0 0 0 0 1 1 1\n1 0 0 0 1 1 1\n2 0 0 0\n"
	_, err := ParseReader(strings.NewReader(body), "c", descriptor.KindDeformable, Options{})
	requireParseError(t, err, ErrInconsistentVertexCount, 3)

	// Header announces 3 particles, records carry 2.
	body = "# 1st Column : time, others : particle(s) number 0 1 2\n0 0 0 0 1 1 1\n"
	_, err = ParseReader(strings.NewReader(body), "c", descriptor.KindDeformable, Options{})
	requireParseError(t, err, ErrInconsistentVertexCount, 2)
}

func TestParse_MissingFileIsIOError(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "absent.txt"), descriptor.KindRigid, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestParse_StaticKindRejected(t *testing.T) {
	_, err := ParseReader(strings.NewReader("0 0 0 0\n"), "s", descriptor.KindStatic, Options{})
	assert.Error(t, err)
}

func TestParse_Deterministic(t *testing.T) {
	path := writeFile(t, "cloth_x.txt", deformableFile)

	first, err := Parse(path, descriptor.KindDeformable, Options{})
	require.NoError(t, err)
	second, err := Parse(path, descriptor.KindDeformable, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	const n = 8
	results := make([]Trajectory, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := Parse(path, descriptor.KindDeformable, Options{})
			assert.NoError(t, err)
			results[i] = tr
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, first, r)
	}
}

func TestStat(t *testing.T) {
	path := writeFile(t, "d20_x.txt", rigidFile)
	info, err := Stat(path)
	require.NoError(t, err)

	assert.Equal(t, 3, info.Records)
	assert.Equal(t, 8, info.Width)
	assert.Equal(t, []int{0}, info.Particles)
	assert.InDelta(t, 0.007, info.First, 1e-12)
	assert.InDelta(t, 0.021, info.Last, 1e-12)
	assert.InDelta(t, 0.007, info.Step, 1e-12)

	_, err = Stat(writeFile(t, "empty.txt", "# nothing\n"))
	assert.True(t, errors.Is(err, ErrEmptyTrajectory))
}
