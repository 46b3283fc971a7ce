// Package render draws footprint overlays for visual inspection: the frame
// in grayscale with each footprint's pixels tinted and its peaks marked.
package render

import (
	"image"
	"image/color"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/img2footprint/internal/footprint"
	"github.com/ivlev/img2footprint/internal/masked"
	"github.com/ivlev/img2footprint/internal/system"
)

// Palette cycled per footprint.
var tints = []color.RGBA{
	{R: 255, G: 80, B: 80, A: 255},
	{R: 80, G: 200, B: 80, A: 255},
	{R: 90, G: 120, B: 255, A: 255},
	{R: 230, G: 200, B: 60, A: 255},
	{R: 200, G: 90, B: 220, A: 255},
}

var peakMark = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Overlay renders mi with the footprints tinted on top. The returned image
// comes from the shared pool; callers done with it should hand it back via
// system.PutImage.
func Overlay(mi *masked.Image, feet []*footprint.Footprint) *image.RGBA {
	gray := mi.Gray()
	out := system.GetImage(gray.Bounds())

	for y := gray.Bounds().Min.Y; y < gray.Bounds().Max.Y; y++ {
		for x := gray.Bounds().Min.X; x < gray.Bounds().Max.X; x++ {
			g := gray.GrayAt(x, y).Y
			out.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	for i, f := range feet {
		tint := tints[i%len(tints)]
		for _, s := range f.Spans() {
			for x := s.X0; x <= s.X1; x++ {
				if !mi.Contains(x, s.Y) {
					continue
				}
				g := gray.GrayAt(x, s.Y).Y
				out.SetRGBA(x, s.Y, color.RGBA{
					R: blend(g, tint.R),
					G: blend(g, tint.G),
					B: blend(g, tint.B),
					A: 255,
				})
			}
		}
		for _, p := range f.Peaks() {
			if mi.Contains(p.X, p.Y) {
				out.SetRGBA(p.X, p.Y, peakMark)
			}
		}
	}
	return out
}

// blend mixes the gray base with the tint at half strength.
func blend(base, tint uint8) uint8 {
	return uint8((uint16(base) + uint16(tint)) / 2)
}

// Scale resizes src by an integer factor with nearest-neighbour sampling so
// individual footprint pixels stay visible.
func Scale(src *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// SavePNG writes an overlay image to path.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
