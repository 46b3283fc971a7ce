package masked

import (
	"image"
	"image/color"
)

// Box is a closed integer rectangle in absolute pixel coordinates.
// The zero Box is empty.
type Box struct {
	X0, Y0 int
	X1, Y1 int
	valid  bool
}

// NewBox builds a box from two corner points (inclusive).
func NewBox(x0, y0, x1, y1 int) Box {
	return Box{X0: x0, Y0: y0, X1: x1, Y1: y1, valid: true}
}

// Empty reports whether the box contains no pixels.
func (b Box) Empty() bool {
	return !b.valid
}

// Width returns the number of columns covered by the box.
func (b Box) Width() int {
	if !b.valid {
		return 0
	}
	return b.X1 - b.X0 + 1
}

// Height returns the number of rows covered by the box.
func (b Box) Height() int {
	if !b.valid {
		return 0
	}
	return b.Y1 - b.Y0 + 1
}

// Contains reports whether the point (x, y) lies inside the box.
func (b Box) Contains(x, y int) bool {
	return b.valid && x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Include grows the box to cover the point (x, y).
func (b Box) Include(x, y int) Box {
	if !b.valid {
		return NewBox(x, y, x, y)
	}
	if x < b.X0 {
		b.X0 = x
	}
	if x > b.X1 {
		b.X1 = x
	}
	if y < b.Y0 {
		b.Y0 = y
	}
	if y > b.Y1 {
		b.Y1 = y
	}
	return b
}

// Image is a masked image: an image plane, a bit-mask plane and a variance
// plane sharing one geometry. X0/Y0 is the absolute coordinate of the
// buffer's first pixel, so the same data can represent a sub-window of a
// larger frame.
type Image struct {
	W, H   int
	X0, Y0 int

	Pix []float32 // image values, row-major
	Msk []uint16  // bit-mask values
	Var []float32 // per-pixel variance
}

// New allocates a zeroed masked image with origin (0, 0).
func New(w, h int) *Image {
	return NewWithOrigin(w, h, 0, 0)
}

// NewWithOrigin allocates a zeroed masked image whose first pixel has the
// absolute coordinate (x0, y0).
func NewWithOrigin(w, h, x0, y0 int) *Image {
	return &Image{
		W:   w,
		H:   h,
		X0:  x0,
		Y0:  y0,
		Pix: make([]float32, w*h),
		Msk: make([]uint16, w*h),
		Var: make([]float32, w*h),
	}
}

// Bounds returns the absolute region covered by the buffer.
func (m *Image) Bounds() Box {
	if m.W <= 0 || m.H <= 0 {
		return Box{}
	}
	return NewBox(m.X0, m.Y0, m.X0+m.W-1, m.Y0+m.H-1)
}

// Contains reports whether the absolute coordinate (x, y) falls inside the
// buffer.
func (m *Image) Contains(x, y int) bool {
	return x >= m.X0 && x < m.X0+m.W && y >= m.Y0 && y < m.Y0+m.H
}

func (m *Image) index(x, y int) int {
	return (y-m.Y0)*m.W + (x - m.X0)
}

// At returns the image, mask and variance values at the absolute coordinate
// (x, y). The coordinate must lie inside the buffer.
func (m *Image) At(x, y int) (pix float32, msk uint16, vr float32) {
	i := m.index(x, y)
	return m.Pix[i], m.Msk[i], m.Var[i]
}

// Set writes all three planes at the absolute coordinate (x, y).
func (m *Image) Set(x, y int, pix float32, msk uint16, vr float32) {
	i := m.index(x, y)
	m.Pix[i] = pix
	m.Msk[i] = msk
	m.Var[i] = vr
}

// SetAll fills every pixel of all three planes with the given values.
func (m *Image) SetAll(pix float32, msk uint16, vr float32) {
	for i := range m.Pix {
		m.Pix[i] = pix
		m.Msk[i] = msk
		m.Var[i] = vr
	}
}

// SubImage copies the given absolute region into a new masked image whose
// origin is the region's corner. The region must lie inside the buffer.
func (m *Image) SubImage(b Box) *Image {
	sub := NewWithOrigin(b.Width(), b.Height(), b.X0, b.Y0)
	for y := b.Y0; y <= b.Y1; y++ {
		for x := b.X0; x <= b.X1; x++ {
			si := sub.index(x, y)
			mi := m.index(x, y)
			sub.Pix[si] = m.Pix[mi]
			sub.Msk[si] = m.Msk[mi]
			sub.Var[si] = m.Var[mi]
		}
	}
	return sub
}

// FromGray converts a decoded image into a masked image. The image plane
// holds the 8-bit luminance, the mask starts cleared and the variance is set
// to the pixel value (shot-noise model, matching what the detector expects
// from raw counts). The buffer origin follows the image bounds.
func FromGray(img image.Image) *Image {
	bounds := img.Bounds()
	m := NewWithOrigin(bounds.Dx(), bounds.Dy(), bounds.Min.X, bounds.Min.Y)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			v := float32(g.Y)
			i := m.index(x, y)
			m.Pix[i] = v
			m.Var[i] = v
		}
	}
	return m
}

// Gray renders the image plane back into an 8-bit grayscale image, clamping
// values outside [0, 255].
func (m *Image) Gray() *image.Gray {
	out := image.NewGray(image.Rect(m.X0, m.Y0, m.X0+m.W, m.Y0+m.H))
	for y := m.Y0; y < m.Y0+m.H; y++ {
		for x := m.X0; x < m.X0+m.W; x++ {
			v := m.Pix[m.index(x, y)]
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}
