package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadTexture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wood.png")
	writePNG(t, path, 4, 2, color.NRGBA{200, 100, 50, 255})

	img, err := LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, color.NRGBA{200, 100, 50, 255}, img.NRGBAAt(1, 1))
}

func TestLoadTexture_BMPIsOpaque(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stone.bmp")
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{10, 20, 30, 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(10), img.NRGBAAt(0, 0).R)
}

func TestLoadTexture_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadTexture(filepath.Join(dir, "a.gif"))
	assert.ErrorContains(t, err, "unknown extension")

	_, err = LoadTexture(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0644))
	_, err = LoadTexture(bad)
	assert.ErrorContains(t, err, "texture: decode")
}

func TestFit(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 16))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i-3], img.Pix[i] = 255, 255
	}

	out := Fit(img, 32)
	assert.Equal(t, 32, out.Bounds().Dx())
	assert.Equal(t, 8, out.Bounds().Dy())
	c := out.NRGBAAt(16, 4)
	assert.InDelta(t, 255, int(c.R), 1)
	assert.InDelta(t, 255, int(c.A), 1)

	assert.Same(t, img, Fit(img, 0))
	assert.Same(t, img, Fit(img, 64))
}

func TestBuildIndex_PrefersAlphaFormats(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Wood.jpg"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "wood.png"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	idx := BuildIndex(dir)
	assert.Equal(t, 1, idx.Len())

	path, ok := idx.ResolvePath(`C:\export\textures\WOOD.tga`)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "sub", "wood.png"), path)

	_, ok = idx.ResolvePath("metal.png")
	assert.False(t, ok)

	var none *Index
	_, ok = none.ResolvePath("wood.png")
	assert.False(t, ok)
	assert.Zero(t, BuildIndex("").Len())
}

func TestCache_Resolve(t *testing.T) {
	dir := t.TempDir()
	texDir := filepath.Join(dir, "textures")
	require.NoError(t, os.MkdirAll(texDir, 0755))
	writePNG(t, filepath.Join(texDir, "cloth.png"), 8, 8, color.NRGBA{0, 0, 255, 255})
	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0644))

	c := NewCache(BuildIndex(texDir), 4)

	// Missing path falls back to the stem index and is size capped.
	img := c.Resolve(filepath.Join(dir, "cloth.png"))
	require.NotNil(t, img)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Same(t, img, c.Resolve(filepath.Join(texDir, "cloth.png")))

	assert.Nil(t, c.Resolve(bad))
	assert.Nil(t, c.Resolve(bad))
	assert.Nil(t, c.Resolve(filepath.Join(dir, "nowhere.png")))
	assert.Equal(t, 2, c.Len())
}
