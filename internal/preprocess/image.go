// Package preprocess prepares a scanned page for the generation service:
// decode, resize to a maximum dimension, crop margins, enhance contrast, and
// re-encode. The transform is pure and CPU-bound; the engine runs it inside
// a worker task, off the draining loop.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/nbirkbak/journalist/internal/common"
)

// Options controls the preprocessing transform.
type Options struct {
	MaxDim         int
	MarginPx       int
	ContrastFactor float64
	OutputFormat   string
}

// Preprocess loads the image at path, applies the configured transform, and
// returns the encoded bytes plus their MIME type.
func Preprocess(path string, opts Options) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", common.WrapError(err, "open image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, "", common.WrapError(err, "decode image")
	}

	img = Resize(img, opts.MaxDim)
	img = CropMargins(img, opts.MarginPx)
	img = EnhanceContrast(img, opts.ContrastFactor)

	return Encode(img, opts.OutputFormat)
}

// Resize scales img down so its longest side is at most maxDim, preserving
// aspect ratio. Images already within bounds pass through untouched.
func Resize(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// CropMargins removes marginPx pixels from every edge, keeping at least one
// pixel in each dimension.
func CropMargins(img image.Image, marginPx int) image.Image {
	if marginPx <= 0 {
		return img
	}
	b := img.Bounds()
	left := b.Min.X + marginPx
	top := b.Min.Y + marginPx
	right := b.Max.X - marginPx
	bottom := b.Max.Y - marginPx
	if right <= left {
		right = left + 1
	}
	if bottom <= top {
		bottom = top + 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, right-left, bottom-top))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(left, top), draw.Src)
	return dst
}

// EnhanceContrast scales each channel's distance from mid-gray by factor.
// A factor of 1.0 passes the image through untouched.
func EnhanceContrast(img image.Image, factor float64) image.Image {
	if factor == 1.0 || factor <= 0 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{
				R: adjust(r, factor),
				G: adjust(g, factor),
				B: adjust(bl, factor),
				A: uint8(a >> 8),
			})
		}
	}
	return dst
}

func adjust(ch uint32, factor float64) uint8 {
	v := 128 + (float64(ch>>8)-128)*factor
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Encode serializes img in the named format and returns the bytes with
// their MIME type.
func Encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch strings.ToUpper(format) {
	case "", "PNG":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", common.WrapError(err, "encode png")
		}
		return buf.Bytes(), "image/png", nil
	case "JPEG", "JPG":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
			return nil, "", common.WrapError(err, "encode jpeg")
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", common.NewAppError("PREPROCESS", fmt.Sprintf("output format %q not supported", format), common.ErrInvalidInput)
	}
}
