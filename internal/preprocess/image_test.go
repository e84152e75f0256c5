package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x + y) % 256)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestResizeCapsLongestSide(t *testing.T) {
	out := Resize(gradient(400, 200), 100)
	b := out.Bounds()
	require.Equal(t, 100, b.Dx())
	require.Equal(t, 50, b.Dy())
}

func TestResizeLeavesSmallImagesAlone(t *testing.T) {
	img := gradient(80, 60)
	require.Equal(t, img, Resize(img, 100))
	require.Equal(t, img, Resize(img, 0))
}

func TestCropMarginsShrinksEveryEdge(t *testing.T) {
	out := CropMargins(gradient(100, 60), 10)
	b := out.Bounds()
	require.Equal(t, 80, b.Dx())
	require.Equal(t, 40, b.Dy())
}

func TestCropMarginsNeverCollapses(t *testing.T) {
	out := CropMargins(gradient(8, 8), 50)
	b := out.Bounds()
	require.Equal(t, 1, b.Dx())
	require.Equal(t, 1, b.Dy())
}

func TestEnhanceContrastPushesAwayFromMidGray(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 100, B: 100, A: 255}) // darker than mid
	img.SetRGBA(1, 0, color.RGBA{R: 200, G: 200, B: 200, A: 255}) // lighter than mid

	out := EnhanceContrast(img, 1.5).(*image.RGBA)
	dark := out.RGBAAt(0, 0)
	light := out.RGBAAt(1, 0)
	require.Less(t, dark.R, uint8(100))
	require.Greater(t, light.R, uint8(200))
}

func TestEnhanceContrastIdentityFactor(t *testing.T) {
	img := gradient(4, 4)
	require.Equal(t, image.Image(img), EnhanceContrast(img, 1.0))
}

func TestEncodeMIMETypes(t *testing.T) {
	img := gradient(4, 4)

	raw, mime, err := Encode(img, "PNG")
	require.NoError(t, err)
	require.Equal(t, "image/png", mime)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	_, mime, err = Encode(img, "jpeg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", mime)

	_, _, err = Encode(img, "bmp")
	require.Error(t, err)
}

func TestPreprocessEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(300, 150)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	raw, mime, err := Preprocess(path, Options{MaxDim: 100, MarginPx: 5, ContrastFactor: 1.2, OutputFormat: "PNG"})
	require.NoError(t, err)
	require.Equal(t, "image/png", mime)

	out, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 90, out.Bounds().Dx())
	require.Equal(t, 40, out.Bounds().Dy())
}

func TestPreprocessMissingFile(t *testing.T) {
	_, _, err := Preprocess(filepath.Join(t.TempDir(), "absent.png"), Options{})
	require.Error(t, err)
}

func TestPreprocessCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, _, err := Preprocess(path, Options{})
	require.Error(t, err)
}
