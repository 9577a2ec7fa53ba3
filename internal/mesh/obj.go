package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sofa-scene-importer/internal/mathutil"
	"sofa-scene-importer/internal/texture"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrMalformed marks OBJ or MTL content that cannot be parsed.
var ErrMalformed = errors.New("malformed mesh data")

// LoadOBJ reads a Wavefront OBJ file and the MTL libraries it references.
// Diffuse maps are resolved through textures, which may be nil.
func LoadOBJ(path string, textures texture.Resolver) (*Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: read %s: %w", path, err)
	}
	defer f.Close()
	return ParseOBJ(f, path, textures)
}

// ParseOBJ parses OBJ content. path names the source in errors and anchors
// relative mtllib references.
func ParseOBJ(r io.Reader, path string, textures texture.Resolver) (*Geometry, error) {
	p := &objParser{
		geom:     &Geometry{Path: path},
		dir:      filepath.Dir(path),
		textures: textures,
		material: -1,
		group:    -1,
		byName:   make(map[string]int),
	}
	if err := scanLines(r, p.line); err != nil {
		return nil, err
	}
	p.closeGroup()
	return p.geom, nil
}

type objParser struct {
	geom     *Geometry
	dir      string
	textures texture.Resolver
	material int
	group    int
	byName   map[string]int
}

func (p *objParser) fail(n int, format string, args ...any) error {
	return fmt.Errorf("mesh: %s:%d: %w: %s", p.geom.Path, n, ErrMalformed, fmt.Sprintf(format, args...))
}

func (p *objParser) line(n int, fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return p.fail(n, "vertex: %v", err)
		}
		pos := mgl64.Vec3{v[0], v[1], v[2]}
		if !mathutil.Finite(pos) {
			return p.fail(n, "vertex %v is not finite", pos)
		}
		p.geom.Vertices = append(p.geom.Vertices, pos)
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return p.fail(n, "normal: %v", err)
		}
		p.geom.Normals = append(p.geom.Normals, mgl64.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(fields[1:], 1)
		if err != nil {
			return p.fail(n, "texcoord: %v", err)
		}
		uv := mgl64.Vec2{v[0], 0}
		if len(v) > 1 {
			uv[1] = v[1]
		}
		p.geom.UVs = append(p.geom.UVs, uv)
	case "f":
		return p.face(n, fields[1:])
	case "o", "g":
		name := strings.Join(fields[1:], " ")
		if name == "" {
			name = "default"
		}
		p.openGroup(name)
	case "usemtl":
		if len(fields) < 2 {
			return p.fail(n, "usemtl without a name")
		}
		p.material = p.materialIndex(strings.Join(fields[1:], " "))
	case "mtllib":
		for _, lib := range fields[1:] {
			if err := p.mtllib(lib); err != nil {
				return err
			}
		}
	}
	// Everything else (s, l, p, curves) carries nothing the importer uses.
	return nil
}

func (p *objParser) face(n int, refs []string) error {
	if len(refs) < 3 {
		return p.fail(n, "face needs at least 3 corners, got %d", len(refs))
	}
	face := Face{Corners: make([]Corner, len(refs)), Material: p.material}
	for i, ref := range refs {
		parts := strings.Split(ref, "/")
		if len(parts) > 3 {
			return p.fail(n, "corner %q", ref)
		}
		c := Corner{UV: -1, Normal: -1}
		var err error
		if c.V, err = resolveIndex(parts[0], len(p.geom.Vertices)); err != nil {
			return p.fail(n, "corner %q: vertex %v", ref, err)
		}
		if len(parts) > 1 && parts[1] != "" {
			if c.UV, err = resolveIndex(parts[1], len(p.geom.UVs)); err != nil {
				return p.fail(n, "corner %q: texcoord %v", ref, err)
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if c.Normal, err = resolveIndex(parts[2], len(p.geom.Normals)); err != nil {
				return p.fail(n, "corner %q: normal %v", ref, err)
			}
		}
		face.Corners[i] = c
	}
	if p.group < 0 {
		p.openGroup(strings.TrimSuffix(filepath.Base(p.geom.Path), filepath.Ext(p.geom.Path)))
	}
	p.geom.Faces = append(p.geom.Faces, face)
	return nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index %q is not an integer", s)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	}
	return 0, fmt.Errorf("index %d out of range (%d defined)", i, count)
}

func (p *objParser) openGroup(name string) {
	if p.group >= 0 && len(p.geom.Faces) == p.geom.Groups[p.group].First {
		// Nothing was added under the previous name.
		p.geom.Groups[p.group].Name = name
		return
	}
	p.closeGroup()
	p.geom.Groups = append(p.geom.Groups, Group{Name: name, First: len(p.geom.Faces)})
	p.group = len(p.geom.Groups) - 1
}

func (p *objParser) closeGroup() {
	if p.group < 0 {
		return
	}
	g := &p.geom.Groups[p.group]
	g.Count = len(p.geom.Faces) - g.First
	if g.Count == 0 {
		p.geom.Groups = p.geom.Groups[:p.group]
		p.group = -1
	}
}

func (p *objParser) materialIndex(name string) int {
	if i, ok := p.byName[name]; ok {
		return i
	}
	p.geom.Materials = append(p.geom.Materials, defaultMaterial(name))
	i := len(p.geom.Materials) - 1
	p.byName[name] = i
	return i
}

func (p *objParser) mtllib(ref string) error {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, ref)
	}
	mats, err := LoadMTL(path, p.textures)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("material library not found", "mesh", p.geom.Path, "mtllib", path)
		return nil
	}
	if err != nil {
		return err
	}
	for _, m := range mats {
		if i, ok := p.byName[m.Name]; ok {
			p.geom.Materials[i] = m
			continue
		}
		p.geom.Materials = append(p.geom.Materials, m)
		p.byName[m.Name] = len(p.geom.Materials) - 1
	}
	return nil
}

func parseFloats(fields []string, atLeast int) ([]float64, error) {
	if len(fields) < atLeast {
		return nil, fmt.Errorf("want at least %d values, got %d", atLeast, len(fields))
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		out[i] = v
	}
	return out, nil
}

// scanLines calls fn with the fields of every non-blank, non-comment line.
func scanLines(r io.Reader, fn func(n int, fields []string) error) error {
	br := bufio.NewReader(r)
	n := 0
	for {
		s, err := br.ReadString('\n')
		if len(s) > 0 {
			n++
			if i := strings.IndexByte(s, '#'); i >= 0 {
				s = s[:i]
			}
			if fields := strings.Fields(s); len(fields) > 0 {
				if ferr := fn(n, fields); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mesh: read: %w", err)
		}
	}
}
