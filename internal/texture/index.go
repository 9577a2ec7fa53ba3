package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// rank orders formats sharing a stem: formats with alpha win over JPEG.
var rank = map[string]int{".png": 3, ".tga": 3, ".tif": 2, ".tiff": 2, ".bmp": 1, ".jpg": 0, ".jpeg": 0}

// Index maps lowercase texture stems to filesystem paths. It is the fallback
// when a material points at a texture path that does not exist.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// BuildIndex scans dir and its subdirectories for texture files.
// An empty dir yields an empty index.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[string]string)}
	if dir == "" {
		return idx
	}

	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !Supported(path) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

		existing, exists := idx.entries[stem]
		if !exists || rank[ext] > rank[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[stem] = path
		}
		return nil
	})

	return idx
}

// ResolvePath returns the indexed path for a texture reference, or ("", false).
func (idx *Index) ResolvePath(ref string) (string, bool) {
	if idx == nil {
		return "", false
	}
	// Strip directories and extension (e.g., "Textures\\wood.jpg" → "wood")
	ref = strings.ReplaceAll(ref, "\\", "/")
	base := filepath.Base(ref)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}
