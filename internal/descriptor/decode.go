package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"sofa-scene-importer/internal/config"
	"sofa-scene-importer/internal/mathutil"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a descriptor document encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatOf picks the format from the file extension. Anything that is not
// .yaml or .yml is read as TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatTOML
}

// rawScene matches the exporter's document layout.
type rawScene struct {
	Frames    int         `toml:"frames" yaml:"frames"`
	Frequency *int        `toml:"frequency" yaml:"frequency"`
	Objects   []rawObject `toml:"objects" yaml:"objects"`
}

type rawObject struct {
	Name        string `toml:"name" yaml:"name"`
	Mesh        string `toml:"mesh" yaml:"mesh"`
	Type        string `toml:"type" yaml:"type"`
	Monitor     string `toml:"monitor" yaml:"monitor"`
	Scale       any    `toml:"scale" yaml:"scale"`
	Translation any    `toml:"translation" yaml:"translation"`
	Rotation    any    `toml:"rotation" yaml:"rotation"`
	Required    bool   `toml:"required" yaml:"required"`
}

// Load reads and validates a scene descriptor. Relative mesh and monitor
// paths are resolved against the descriptor's directory.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	scene, err := Decode(bytes.NewReader(data), FormatOf(path), path, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	scene.Path = path
	return scene, nil
}

// Decode reads a descriptor document. source names the document in errors.
// Every failure is a *config.Error.
func Decode(r io.Reader, format Format, source, baseDir string) (*Scene, error) {
	var raw rawScene
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, config.Invalid(source, "", "%v", err)
		}
	default:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, config.Invalid(source, "", "%s", strict.String())
			}
			return nil, config.Invalid(source, "", "%v", err)
		}
	}
	return build(raw, source, baseDir)
}

func build(raw rawScene, source, baseDir string) (*Scene, error) {
	scene := &Scene{BaseDir: baseDir, Frames: raw.Frames, Frequency: 1}

	if raw.Frames < 0 {
		return nil, config.Invalid(source, "frames", "must not be negative, got %d", raw.Frames)
	}
	if raw.Frequency != nil {
		if *raw.Frequency < 1 {
			return nil, config.Invalid(source, "frequency", "must be at least 1, got %d", *raw.Frequency)
		}
		scene.Frequency = *raw.Frequency
	}
	if len(raw.Objects) == 0 {
		return nil, config.Invalid(source, "objects", "no object in the descriptor")
	}

	explicit := make(map[string]bool)
	for i, ro := range raw.Objects {
		name := strings.TrimSpace(ro.Name)
		if name == "" {
			continue
		}
		if explicit[name] {
			return nil, config.Invalid(source, fmt.Sprintf("objects[%d].name", i), "duplicate name %q", name)
		}
		explicit[name] = true
	}

	taken := make(map[string]bool, len(raw.Objects))
	for name := range explicit {
		taken[name] = true
	}

	for i, ro := range raw.Objects {
		spec, err := buildObject(ro, i, source, baseDir)
		if err != nil {
			return nil, err
		}
		if spec.Name == "" {
			spec.Name = uniqueName(meshStem(spec.Mesh), taken)
			taken[spec.Name] = true
		}
		scene.Objects = append(scene.Objects, spec)
	}
	return scene, nil
}

func buildObject(ro rawObject, i int, source, baseDir string) (ObjectSpec, error) {
	field := func(name string) string { return fmt.Sprintf("objects[%d].%s", i, name) }

	spec := ObjectSpec{
		Name:     strings.TrimSpace(ro.Name),
		Required: ro.Required,
		Rotation: mgl64.QuatIdent(),
		Scale:    mathutil.One,
	}

	if strings.TrimSpace(ro.Mesh) == "" {
		return spec, config.Invalid(source, field("mesh"), "missing mesh reference")
	}
	spec.Mesh = ResolvePath(baseDir, MeshFile(ro.Mesh))

	switch {
	case strings.TrimSpace(ro.Type) != "":
		k, err := ParseKind(ro.Type)
		if err != nil {
			return spec, config.Invalid(source, field("type"), "%v", err)
		}
		spec.Kind = k
	case ro.Monitor != "":
		spec.Kind = KindAuto
	default:
		spec.Kind = KindStatic
	}

	switch {
	case spec.Kind.Animated() && ro.Monitor == "":
		return spec, config.Invalid(source, field("monitor"), "required for %s objects", spec.Kind)
	case !spec.Kind.Animated() && ro.Monitor != "":
		return spec, config.Invalid(source, field("monitor"), "static objects take no trajectory")
	case ro.Monitor != "":
		spec.Monitor = ResolvePath(baseDir, ro.Monitor)
	}

	if ro.Scale != nil {
		s, err := decodeScale(ro.Scale)
		if err != nil {
			return spec, config.Invalid(source, field("scale"), "%v", err)
		}
		spec.Scale = s
	}
	if ro.Translation != nil {
		v, err := decodeFloats(ro.Translation, 3)
		if err != nil {
			return spec, config.Invalid(source, field("translation"), "%v", err)
		}
		spec.Translation = mgl64.Vec3{v[0], v[1], v[2]}
	}
	if ro.Rotation != nil {
		q, err := decodeRotation(ro.Rotation)
		if err != nil {
			return spec, config.Invalid(source, field("rotation"), "%v", err)
		}
		spec.Rotation = q
	}
	return spec, nil
}

// decodeScale accepts a scalar (uniform) or an [sx, sy, sz] triple.
func decodeScale(v any) (mgl64.Vec3, error) {
	var s mgl64.Vec3
	if f, ok := toFloat(v); ok {
		s = mgl64.Vec3{f, f, f}
	} else {
		fs, err := decodeFloats(v, 3)
		if err != nil {
			return s, err
		}
		s = mgl64.Vec3{fs[0], fs[1], fs[2]}
	}
	for _, c := range s {
		if c == 0 {
			return s, fmt.Errorf("zero scale component in %v", s)
		}
	}
	return s, nil
}

// decodeRotation accepts Euler XYZ degrees [rx, ry, rz] or a scalar-first
// quaternion [w, x, y, z].
func decodeRotation(v any) (mgl64.Quat, error) {
	list, ok := v.([]any)
	if !ok {
		return mgl64.QuatIdent(), fmt.Errorf("want [rx, ry, rz] degrees or [w, x, y, z], got %T", v)
	}
	switch len(list) {
	case 3:
		fs, err := decodeFloats(v, 3)
		if err != nil {
			return mgl64.QuatIdent(), err
		}
		return mathutil.EulerDegToQuat(mgl64.Vec3{fs[0], fs[1], fs[2]}), nil
	case 4:
		fs, err := decodeFloats(v, 4)
		if err != nil {
			return mgl64.QuatIdent(), err
		}
		q, ok := mathutil.QuatWXYZ(fs[0], fs[1], fs[2], fs[3])
		if !ok {
			return q, fmt.Errorf("degenerate quaternion %v", fs)
		}
		return q, nil
	}
	return mgl64.QuatIdent(), fmt.Errorf("want 3 (Euler) or 4 (quaternion) values, got %d", len(list))
}

func decodeFloats(v any, n int) ([]float64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list of %d numbers, got %T", n, v)
	}
	if len(list) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(list))
	}
	out := make([]float64, n)
	for i, e := range list {
		f, ok := toFloat(e)
		if !ok {
			return nil, fmt.Errorf("element %d: %v is not a number", i, e)
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// uniqueName returns base, or base.001, base.002, ... when taken.
func uniqueName(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s.%03d", base, n)
		if !taken[cand] {
			return cand
		}
	}
}
