package descriptor

import (
	"os"
	"path/filepath"
	"strings"
)

// MeshFile appends the default ".obj" extension to a mesh reference that has none.
// The exporter writes mesh names without extension.
func MeshFile(ref string) string {
	ref = strings.TrimSpace(ref)
	if filepath.Ext(ref) == "" {
		return ref + ".obj"
	}
	return ref
}

// ResolvePath resolves p against baseDir. Absolute paths are cleaned and kept.
// A relative path that does not exist under baseDir but does exist relative to
// the working directory is kept as given.
func ResolvePath(baseDir, p string) string {
	if p == "" {
		return ""
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || baseDir == "" {
		return filepath.Clean(p)
	}
	joined := filepath.Join(baseDir, p)
	if _, err := os.Stat(joined); err == nil {
		return joined
	}
	if _, err := os.Stat(p); err == nil {
		return filepath.Clean(p)
	}
	return joined
}

func meshStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
