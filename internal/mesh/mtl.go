package mesh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sofa-scene-importer/internal/texture"

	"github.com/go-gl/mathgl/mgl64"
)

// LoadMTL reads a material library. A diffuse map that cannot be loaded
// leaves Material.Texture nil and never fails the library.
func LoadMTL(path string, textures texture.Resolver) ([]Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: read %s: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var mats []Material
	cur := -1
	fail := func(n int, format string, args ...any) error {
		return fmt.Errorf("mesh: %s:%d: %w: %s", path, n, ErrMalformed, fmt.Sprintf(format, args...))
	}

	err = scanLines(f, func(n int, fields []string) error {
		key := fields[0]
		if key == "newmtl" {
			if len(fields) < 2 {
				return fail(n, "newmtl without a name")
			}
			mats = append(mats, defaultMaterial(strings.Join(fields[1:], " ")))
			cur = len(mats) - 1
			return nil
		}
		if cur < 0 {
			return nil
		}
		m := &mats[cur]

		switch key {
		case "Ka", "Kd", "Ks":
			v, err := parseFloats(fields[1:], 1)
			if err != nil {
				return fail(n, "%s: %v", key, err)
			}
			c := mgl64.Vec3{v[0], v[0], v[0]}
			if len(v) >= 3 {
				c = mgl64.Vec3{v[0], v[1], v[2]}
			}
			switch key {
			case "Ka":
				m.Ambient = c
			case "Kd":
				m.Diffuse = c
			default:
				m.Specular = c
			}
		case "Ns", "d", "Tr":
			v, err := parseFloats(fields[1:], 1)
			if err != nil {
				return fail(n, "%s: %v", key, err)
			}
			switch key {
			case "Ns":
				m.Shininess = v[0]
			case "d":
				m.Opacity = v[0]
			default:
				m.Opacity = 1 - v[0]
			}
		case "map_Kd":
			if len(fields) < 2 {
				return fail(n, "map_Kd without a file")
			}
			// Options such as -s or -o come first; the file name is last.
			ref := strings.ReplaceAll(fields[len(fields)-1], "\\", "/")
			if !filepath.IsAbs(ref) {
				ref = filepath.Join(dir, ref)
			}
			m.DiffuseMap = ref
			if textures != nil {
				m.Texture = textures.Resolve(ref)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mats, nil
}
