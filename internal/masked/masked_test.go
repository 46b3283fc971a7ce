package masked

import (
	"image"
	"image/color"
	"testing"
)

func TestBox(t *testing.T) {
	var zero Box
	if !zero.Empty() {
		t.Error("Zero Box must be empty")
	}
	if zero.Width() != 0 || zero.Height() != 0 {
		t.Errorf("Empty box size = %dx%d", zero.Width(), zero.Height())
	}
	if zero.Contains(0, 0) {
		t.Error("Empty box must not contain any point")
	}

	b := NewBox(2, 1, 6, 3)
	if b.Width() != 5 || b.Height() != 3 {
		t.Errorf("Box size = %dx%d, want 5x3", b.Width(), b.Height())
	}
	// Corners are inclusive
	for _, pt := range [][2]int{{2, 1}, {6, 3}, {2, 3}, {6, 1}} {
		if !b.Contains(pt[0], pt[1]) {
			t.Errorf("Box must contain corner (%d, %d)", pt[0], pt[1])
		}
	}
	if b.Contains(7, 1) || b.Contains(2, 0) {
		t.Error("Box contains points outside its corners")
	}

	grown := zero.Include(4, 4).Include(1, 7)
	if grown.X0 != 1 || grown.Y0 != 4 || grown.X1 != 4 || grown.Y1 != 7 {
		t.Errorf("Unexpected grown box: %+v", grown)
	}
}

func TestOriginIndexing(t *testing.T) {
	m := NewWithOrigin(7, 4, 9, 1)

	if !m.Contains(9, 1) || !m.Contains(15, 4) {
		t.Error("Corners of the window must be inside")
	}
	if m.Contains(8, 1) || m.Contains(16, 4) || m.Contains(9, 0) || m.Contains(9, 5) {
		t.Error("Points outside the window must not be inside")
	}

	m.Set(11, 3, 42, 0x9, 400)
	pix, msk, vr := m.At(11, 3)
	if pix != 42 || msk != 0x9 || vr != 400 {
		t.Errorf("At(11, 3) = (%v, %#x, %v)", pix, msk, vr)
	}

	// The write must land at the right flat offset
	i := (3-1)*7 + (11 - 9)
	if m.Pix[i] != 42 {
		t.Errorf("Flat offset %d holds %v, want 42", i, m.Pix[i])
	}

	bounds := m.Bounds()
	if bounds.X0 != 9 || bounds.Y0 != 1 || bounds.X1 != 15 || bounds.Y1 != 4 {
		t.Errorf("Unexpected bounds: %+v", bounds)
	}
}

func TestSetAll(t *testing.T) {
	m := New(3, 2)
	m.SetAll(1.5, 0x4, 0.25)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			pix, msk, vr := m.At(x, y)
			if pix != 1.5 || msk != 0x4 || vr != 0.25 {
				t.Fatalf("At(%d, %d) = (%v, %#x, %v)", x, y, pix, msk, vr)
			}
		}
	}
}

func TestSubImage(t *testing.T) {
	m := New(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			m.Set(x, y, float32(x+y*10), uint16(x), float32(y))
		}
	}

	sub := m.SubImage(NewBox(3, 2, 5, 4))
	if sub.W != 3 || sub.H != 3 || sub.X0 != 3 || sub.Y0 != 2 {
		t.Fatalf("Unexpected sub-window geometry: %+v", sub.Bounds())
	}

	// Absolute coordinates address the same pixels in both buffers
	for y := 2; y <= 4; y++ {
		for x := 3; x <= 5; x++ {
			wp, wm, wv := m.At(x, y)
			gp, gm, gv := sub.At(x, y)
			if wp != gp || wm != gm || wv != gv {
				t.Errorf("Sub-window differs at (%d, %d)", x, y)
			}
		}
	}

	// The copy is detached from the parent
	sub.Set(3, 2, 999, 0, 0)
	if pix, _, _ := m.At(3, 2); pix == 999 {
		t.Error("SubImage must copy, not alias")
	}
}

func TestFromGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(2, 1, color.Gray{Y: 200})

	m := FromGray(img)
	if m.W != 4 || m.H != 3 {
		t.Fatalf("Unexpected geometry %dx%d", m.W, m.H)
	}
	pix, msk, vr := m.At(2, 1)
	if pix != 200 || vr != 200 {
		t.Errorf("At(2, 1) = (%v, %v), want image and variance 200", pix, vr)
	}
	if msk != 0 {
		t.Errorf("Mask must start cleared, got %#x", msk)
	}

	// Round trip back to gray, with clamping
	m.Set(0, 0, -5, 0, 0)
	m.Set(1, 0, 300, 0, 0)
	g := m.Gray()
	if g.GrayAt(0, 0).Y != 0 {
		t.Errorf("Negative value must clamp to 0, got %d", g.GrayAt(0, 0).Y)
	}
	if g.GrayAt(1, 0).Y != 255 {
		t.Errorf("Overflowing value must clamp to 255, got %d", g.GrayAt(1, 0).Y)
	}
	if g.GrayAt(2, 1).Y != 200 {
		t.Errorf("Value changed in round trip: %d", g.GrayAt(2, 1).Y)
	}
}
