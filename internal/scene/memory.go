package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"

	"sofa-scene-importer/internal/mathutil"
	"sofa-scene-importer/internal/mesh"
	"sofa-scene-importer/internal/timeline"

	"github.com/go-gl/mathgl/mgl64"
)

// Object is one instance in a Memory scene.
type Object struct {
	ID       ObjectID
	Name     string
	Mesh     *mesh.Handle
	Base     timeline.Pose
	Poses    []timeline.PoseKey
	Vertices []timeline.VertexKey
}

// Memory is an in-process Graph. Keys set twice on one frame replace the
// earlier value, and keys stay sorted by frame.
type Memory struct {
	objects map[ObjectID]*Object
	names   map[string]bool
	next    ObjectID
	frames  timeline.Range
}

// NewMemory returns an empty scene.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[ObjectID]*Object),
		names:   make(map[string]bool),
		next:    1,
	}
}

func (m *Memory) Instantiate(name string, h *mesh.Handle, base timeline.Pose) (ObjectID, error) {
	if h == nil {
		return 0, fmt.Errorf("scene: instantiate %s: nil mesh", name)
	}
	name = m.uniqueName(name)
	id := m.next
	m.next++
	m.objects[id] = &Object{ID: id, Name: name, Mesh: h, Base: base}
	m.names[name] = true
	return id, nil
}

// uniqueName suffixes taken names the way Blender does: Name.001, Name.002.
func (m *Memory) uniqueName(name string) string {
	if !m.names[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if !m.names[candidate] {
			return candidate
		}
	}
}

func (m *Memory) get(id ObjectID) (*Object, error) {
	o, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	return o, nil
}

func (m *Memory) SetPoseKey(id ObjectID, frame int, pose timeline.Pose) error {
	o, err := m.get(id)
	if err != nil {
		return err
	}
	key := timeline.PoseKey{Frame: frame, Pose: pose}
	i := sort.Search(len(o.Poses), func(i int) bool { return o.Poses[i].Frame >= frame })
	if i < len(o.Poses) && o.Poses[i].Frame == frame {
		o.Poses[i] = key
		return nil
	}
	o.Poses = slices.Insert(o.Poses, i, key)
	return nil
}

func (m *Memory) SetVertexKey(id ObjectID, frame int, positions []mgl64.Vec3) error {
	o, err := m.get(id)
	if err != nil {
		return err
	}
	if n := o.Mesh.VertexCount(); len(positions) != n {
		return fmt.Errorf("scene: %s frame %d: %d positions for %d vertices", o.Name, frame, len(positions), n)
	}
	key := timeline.VertexKey{Frame: frame, Positions: slices.Clone(positions)}
	i := sort.Search(len(o.Vertices), func(i int) bool { return o.Vertices[i].Frame >= frame })
	if i < len(o.Vertices) && o.Vertices[i].Frame == frame {
		o.Vertices[i] = key
		return nil
	}
	o.Vertices = slices.Insert(o.Vertices, i, key)
	return nil
}

func (m *Memory) SetFrameRange(r timeline.Range) error {
	if r.End < r.Start {
		return fmt.Errorf("scene: invalid frame range %s", r)
	}
	m.frames = r
	return nil
}

func (m *Memory) Remove(id ObjectID) error {
	o, err := m.get(id)
	if err != nil {
		return err
	}
	delete(m.objects, id)
	delete(m.names, o.Name)
	return nil
}

// Object returns the instance with id, or nil.
func (m *Memory) Object(id ObjectID) *Object {
	return m.objects[id]
}

// Objects returns all instances in creation order.
func (m *Memory) Objects() []*Object {
	out := make([]*Object, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FrameRange returns the scene frame range.
func (m *Memory) FrameRange() timeline.Range {
	return m.frames
}

type exportPose struct {
	Translation [3]float64  `json:"translation"`
	Rotation    [4]float64  `json:"rotation"` // w x y z
	Scale       [3]float64  `json:"scale"`
	Matrix      [16]float64 `json:"matrix"` // column-major T·R·S
}

type exportBounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

type exportPoseKey struct {
	Frame int `json:"frame"`
	exportPose
}

type exportVertexKey struct {
	Frame     int          `json:"frame"`
	Positions [][3]float64 `json:"positions"`
}

type exportObject struct {
	Name     string            `json:"name"`
	Mesh     string            `json:"mesh"`
	MeshID   string            `json:"mesh_id"`
	Base     exportPose        `json:"base"`
	Bounds   exportBounds      `json:"bounds"`
	Poses    []exportPoseKey   `json:"poses,omitempty"`
	Vertices []exportVertexKey `json:"vertices,omitempty"`
}

type exportScene struct {
	Frames  timeline.Range `json:"frames"`
	Objects []exportObject `json:"objects"`
}

func toExportPose(p timeline.Pose) exportPose {
	return exportPose{
		Translation: p.Translation,
		Rotation:    [4]float64{p.Rotation.W, p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2]},
		Scale:       p.Scale,
		Matrix:      p.Matrix(),
	}
}

// RestBounds returns the bounding box of the mesh placed by the base pose.
func (o *Object) RestBounds() (lo, hi mgl64.Vec3) {
	m := o.Base.Matrix()
	world := make([]mgl64.Vec3, len(o.Mesh.Geometry.Vertices))
	for i, v := range o.Mesh.Geometry.Vertices {
		world[i] = mathutil.TransformPoint(m, v)
	}
	return mathutil.Bounds(world)
}

// Export writes the baked scene as indented JSON.
func (m *Memory) Export(w io.Writer) error {
	out := exportScene{Frames: m.frames, Objects: []exportObject{}}
	for _, o := range m.Objects() {
		eo := exportObject{Name: o.Name, Mesh: o.Mesh.Path, MeshID: o.Mesh.ID, Base: toExportPose(o.Base)}
		lo, hi := o.RestBounds()
		eo.Bounds = exportBounds{Min: lo, Max: hi}
		for _, k := range o.Poses {
			eo.Poses = append(eo.Poses, exportPoseKey{Frame: k.Frame, exportPose: toExportPose(k.Pose)})
		}
		for _, k := range o.Vertices {
			pos := make([][3]float64, len(k.Positions))
			for i, p := range k.Positions {
				pos[i] = p
			}
			eo.Vertices = append(eo.Vertices, exportVertexKey{Frame: k.Frame, Positions: pos})
		}
		out.Objects = append(out.Objects, eo)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("scene: export: %w", err)
	}
	return nil
}
