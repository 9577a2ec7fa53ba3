package mesh

import (
	"image"

	"sofa-scene-importer/internal/mathutil"

	"github.com/go-gl/mathgl/mgl64"
)

// Corner is one face corner: 0-based indices into the geometry's vertex,
// UV and normal arrays. UV and Normal are -1 when the corner has none.
type Corner struct {
	V, UV, Normal int
}

// Face is a polygon with three or more corners.
type Face struct {
	Corners  []Corner
	Material int // index into Geometry.Materials, -1 for none
}

// Group is a named run of faces from an `o` or `g` statement.
type Group struct {
	Name  string
	First int // index of the first face
	Count int
}

// Material holds the subset of MTL properties the importer carries.
type Material struct {
	Name       string
	Ambient    mgl64.Vec3
	Diffuse    mgl64.Vec3
	Specular   mgl64.Vec3
	Shininess  float64
	Opacity    float64
	DiffuseMap string       // resolved path of map_Kd, empty if none
	Texture    *image.NRGBA // nil when the map could not be loaded
}

func defaultMaterial(name string) Material {
	return Material{
		Name:     name,
		Diffuse:  mgl64.Vec3{0.8, 0.8, 0.8},
		Specular: mgl64.Vec3{0.5, 0.5, 0.5},
		Opacity:  1,
	}
}

// Geometry is a parsed mesh in its own local space. Vertex order follows the
// file, which is the order simulation monitors record particles in.
type Geometry struct {
	Path      string
	Vertices  []mgl64.Vec3
	Normals   []mgl64.Vec3
	UVs       []mgl64.Vec2
	Faces     []Face
	Groups    []Group
	Materials []Material
}

// Triangles returns the number of triangles after fan triangulation.
func (g *Geometry) Triangles() int {
	n := 0
	for _, f := range g.Faces {
		n += len(f.Corners) - 2
	}
	return n
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (g *Geometry) Bounds() (lo, hi mgl64.Vec3) {
	return mathutil.Bounds(g.Vertices)
}
