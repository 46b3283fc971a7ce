package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/img2footprint/internal/footprint"
)

// buildHeavy makes a heavy footprint with deterministic pseudo-random pixel
// data, including values that stress bit-exactness (negative, denormal-ish,
// full mask bits).
func buildHeavy(t *testing.T) *footprint.Footprint {
	t.Helper()
	f := footprint.New()
	for _, s := range [][3]int{{2, 10, 13}, {3, 11, 14}, {7, 0, 5}} {
		if err := f.AddSpan(s[0], s[1], s[2]); err != nil {
			t.Fatalf("AddSpan failed: %v", err)
		}
	}
	f.Normalize()
	f.AddPeak(12, 2, 1234.5)
	f.AddPeak(3, 7, -0.25)

	r := rand.New(rand.NewSource(42))
	area := f.Area()
	h := &footprint.HeavyPixels{
		Image:    make([]float32, area),
		Mask:     make([]uint16, area),
		Variance: make([]float32, area),
	}
	for i := 0; i < area; i++ {
		h.Image[i] = float32(r.NormFloat64())
		h.Mask[i] = uint16(r.Intn(1 << 16))
		h.Variance[i] = float32(math.Abs(r.NormFloat64())) * 1e-20
	}
	h.Image[0] = float32(math.Pi)
	if err := f.SetHeavyPixels(h); err != nil {
		t.Fatalf("SetHeavyPixels failed: %v", err)
	}
	return f
}

func TestRoundTripHeavy(t *testing.T) {
	f := buildHeavy(t)

	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	t.Logf("Encoded %d bytes for area %d", buf.Len(), f.Area())

	g, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if g.ID != f.ID {
		t.Errorf("ID changed: %s -> %s", f.ID, g.ID)
	}
	if !g.Normalized() {
		t.Error("Normalization lost in round trip")
	}
	if diff := cmp.Diff(f.Spans(), g.Spans()); diff != "" {
		t.Errorf("Spans differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f.Peaks(), g.Peaks()); diff != "" {
		t.Errorf("Peaks differ (-want +got):\n%s", diff)
	}

	hf, _ := f.HeavyPixels()
	hg, ok := g.HeavyPixels()
	if !ok {
		t.Fatal("Heavy payload lost in round trip")
	}

	// Bit-exact comparison of the float arrays
	for i := range hf.Image {
		if math.Float32bits(hf.Image[i]) != math.Float32bits(hg.Image[i]) {
			t.Fatalf("Image[%d] not bit-exact: %x vs %x",
				i, math.Float32bits(hf.Image[i]), math.Float32bits(hg.Image[i]))
		}
		if math.Float32bits(hf.Variance[i]) != math.Float32bits(hg.Variance[i]) {
			t.Fatalf("Variance[%d] not bit-exact", i)
		}
	}
	if diff := cmp.Diff(hf.Mask, hg.Mask); diff != "" {
		t.Errorf("Mask differs (-want +got):\n%s", diff)
	}
}

func TestRoundTripLight(t *testing.T) {
	f := footprint.New()
	f.AddSpan(0, 3, 9)
	f.AddSpan(1, 4, 8)
	f.AddPeak(5, 0, 77)

	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	g, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if g.IsHeavy() {
		t.Error("Light footprint came back heavy")
	}
	if diff := cmp.Diff(f.Spans(), g.Spans()); diff != "" {
		t.Errorf("Spans differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f.Peaks(), g.Peaks()); diff != "" {
		t.Errorf("Peaks differ (-want +got):\n%s", diff)
	}
}

func TestRoundTripEmpty(t *testing.T) {
	f := footprint.New()

	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	g, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if g.Area() != 0 || len(g.Spans()) != 0 || len(g.Peaks()) != 0 {
		t.Errorf("Empty footprint came back non-empty: area=%d spans=%d peaks=%d",
			g.Area(), len(g.Spans()), len(g.Peaks()))
	}
}

func TestRoundTripFile(t *testing.T) {
	f := buildHeavy(t)
	path := t.TempDir() + "/heavy.fp"

	if err := WriteFile(path, f); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	g, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if g.Area() != f.Area() || !g.IsHeavy() {
		t.Errorf("File round trip lost data: area %d vs %d", g.Area(), f.Area())
	}
}

func TestDecodeCorrupt(t *testing.T) {
	f := buildHeavy(t)
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	good := buf.Bytes()

	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"empty stream", func(b []byte) []byte { return nil }},
		{"bad magic", func(b []byte) []byte {
			c := append([]byte(nil), b...)
			c[0] = 'X'
			return c
		}},
		{"bad version", func(b []byte) []byte {
			c := append([]byte(nil), b...)
			c[4] = 0xEE
			return c
		}},
		{"truncated header", func(b []byte) []byte { return b[:10] }},
		{"truncated spans", func(b []byte) []byte { return b[:40] }},
		{"truncated arrays", func(b []byte) []byte { return b[:len(b)-7] }},
		{"area mismatch", func(b []byte) []byte {
			c := append([]byte(nil), b...)
			// area is the little-endian uint32 at offset 16
			c[16]++
			return c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.mangle(good)))
			if !errors.Is(err, ErrCorruptData) {
				t.Errorf("Expected ErrCorruptData, got %v", err)
			}
		})
	}
}

func TestDecodeCapsArea(t *testing.T) {
	f := footprint.New()
	f.AddSpan(0, 0, 2)

	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	c := buf.Bytes()

	// Claim a heavy payload with an absurd area; Decode must reject the
	// header instead of allocating the arrays it promises.
	c[5] |= flagHeavy
	binary.LittleEndian.PutUint32(c[16:], maxArea+1)

	_, err := Decode(bytes.NewReader(c))
	if !errors.Is(err, ErrCorruptData) {
		t.Errorf("Expected ErrCorruptData, got %v", err)
	}
}

func TestDecodeRejectsFalseNormalizedFlag(t *testing.T) {
	f := footprint.New()
	f.AddSpan(3, 11, 14)
	f.AddSpan(2, 10, 13)

	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	c := buf.Bytes()
	c[5] |= flagNormalized // spans are out of order, the flag lies

	_, err := Decode(bytes.NewReader(c))
	if !errors.Is(err, ErrCorruptData) {
		t.Errorf("Expected ErrCorruptData, got %v", err)
	}

	// Touching same-row runs are just as non-canonical.
	g := footprint.New()
	g.AddSpan(1, 0, 4)
	g.AddSpan(1, 5, 8)
	buf.Reset()
	if err := Encode(&buf, g); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	c = buf.Bytes()
	c[5] |= flagNormalized

	_, err = Decode(bytes.NewReader(c))
	if !errors.Is(err, ErrCorruptData) {
		t.Errorf("Expected ErrCorruptData for touching runs, got %v", err)
	}
}
