// Package codec implements the binary persistence format for footprints.
//
// The layout is fixed little-endian and self-describing:
//
//	magic   [4]byte  "IFP1"
//	version uint8    currently 1
//	flags   uint8    bit 0: heavy payload present; bit 1: spans normalized
//	elem    uint8    image/variance element tag, 'f' = float32
//	mask    uint8    mask element tag, 'H' = uint16
//	nspans  uint32
//	npeaks  uint32
//	area    uint32   total pixel count, must equal the span sum
//	id      [16]byte footprint UUID
//	spans   nspans × (y, x0, x1 as int32)
//	peaks   npeaks × (x, y as int32; value as float32 bits)
//	image   area × float32 bits   (heavy only)
//	mask    area × uint16         (heavy only)
//	var     area × float32 bits   (heavy only)
//
// Arrays are stored in the footprint's span order, so a round trip restores
// spans, peaks and all three arrays bit-exactly.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/ivlev/img2footprint/internal/footprint"
)

// ErrCorruptData reports a stream that fails header or length validation.
var ErrCorruptData = errors.New("codec: corrupt footprint data")

var magic = [4]byte{'I', 'F', 'P', '1'}

const (
	formatVersion  = 1
	flagHeavy      = 1 << 0
	flagNormalized = 1 << 1
	tagFloat32     = 'f'
	tagUint16      = 'H'

	// maxArea bounds the pixel arrays Decode will allocate from an untrusted
	// header: 64M pixels covers an 8K x 8K frame.
	maxArea = 64 << 20
)

// Encode writes the footprint to w in the format above.
func Encode(w io.Writer, f *footprint.Footprint) error {
	spans := f.Spans()
	peaks := f.Peaks()
	h, heavy := f.HeavyPixels()

	hdr := header{
		Version: formatVersion,
		Elem:    tagFloat32,
		Mask:    tagUint16,
		NSpans:  uint32(len(spans)),
		NPeaks:  uint32(len(peaks)),
		Area:    uint32(f.Area()),
		ID:      f.ID,
	}
	hdr.Magic = magic
	if heavy {
		hdr.Flags |= flagHeavy
	}
	if f.Normalized() {
		hdr.Flags |= flagNormalized
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, s := range spans {
		rec := [3]int32{int32(s.Y), int32(s.X0), int32(s.X1)}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("write span: %w", err)
		}
	}
	for _, p := range peaks {
		rec := peakRecord{X: int32(p.X), Y: int32(p.Y), Value: p.Value}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("write peak: %w", err)
		}
	}
	if heavy {
		if err := binary.Write(w, binary.LittleEndian, h.Image); err != nil {
			return fmt.Errorf("write image array: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, h.Mask); err != nil {
			return fmt.Errorf("write mask array: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, h.Variance); err != nil {
			return fmt.Errorf("write variance array: %w", err)
		}
	}
	return nil
}

// Decode reads one footprint from r. Any validation failure or short read
// reports ErrCorruptData.
func Decode(r io.Reader) (*footprint.Footprint, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt("header: %v", err)
	}
	if hdr.Magic != magic {
		return nil, corrupt("bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != formatVersion {
		return nil, corrupt("unsupported version %d", hdr.Version)
	}
	if hdr.Elem != tagFloat32 || hdr.Mask != tagUint16 {
		return nil, corrupt("unknown element tags %q/%q", hdr.Elem, hdr.Mask)
	}
	if hdr.Area > maxArea {
		return nil, corrupt("area %d exceeds limit %d", hdr.Area, maxArea)
	}

	f := &footprint.Footprint{ID: hdr.ID}
	area := 0
	var prev footprint.Span
	for i := uint32(0); i < hdr.NSpans; i++ {
		var rec [3]int32
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, corrupt("span %d: %v", i, err)
		}
		if err := f.AddSpan(int(rec[0]), int(rec[1]), int(rec[2])); err != nil {
			return nil, corrupt("span %d: x0 %d > x1 %d", i, rec[1], rec[2])
		}
		s := footprint.Span{Y: int(rec[0]), X0: int(rec[1]), X1: int(rec[2])}
		if hdr.Flags&flagNormalized != 0 && i > 0 {
			// The flag promises canonical order: rows ascending, and on
			// one row a gap of at least one pixel between runs.
			if s.Y < prev.Y || (s.Y == prev.Y && s.X0 <= prev.X1+1) {
				return nil, corrupt("span %d %v breaks canonical order after %v", i, s, prev)
			}
		}
		prev = s
		area += int(rec[2]-rec[1]) + 1
	}
	if area != int(hdr.Area) {
		return nil, corrupt("area %d does not match span sum %d", hdr.Area, area)
	}

	if hdr.Flags&flagNormalized != 0 {
		// Verified canonical above, so this only restores the flag and
		// cannot disturb a payload read below.
		f.Normalize()
	}

	for i := uint32(0); i < hdr.NPeaks; i++ {
		var rec peakRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, corrupt("peak %d: %v", i, err)
		}
		f.AddPeak(int(rec.X), int(rec.Y), rec.Value)
	}

	if hdr.Flags&flagHeavy != 0 {
		h := &footprint.HeavyPixels{
			Image:    make([]float32, hdr.Area),
			Mask:     make([]uint16, hdr.Area),
			Variance: make([]float32, hdr.Area),
		}
		if err := binary.Read(r, binary.LittleEndian, h.Image); err != nil {
			return nil, corrupt("image array: %v", err)
		}
		if err := binary.Read(r, binary.LittleEndian, h.Mask); err != nil {
			return nil, corrupt("mask array: %v", err)
		}
		if err := binary.Read(r, binary.LittleEndian, h.Variance); err != nil {
			return nil, corrupt("variance array: %v", err)
		}
		if err := f.SetHeavyPixels(h); err != nil {
			return nil, corrupt("heavy payload: %v", err)
		}
	}
	return f, nil
}

// WriteFile encodes the footprint to a file.
func WriteFile(path string, f *footprint.Footprint) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadFile decodes one footprint from a file.
func ReadFile(path string) (*footprint.Footprint, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return Decode(in)
}

type header struct {
	Magic   [4]byte
	Version uint8
	Flags   uint8
	Elem    uint8
	Mask    uint8
	NSpans  uint32
	NPeaks  uint32
	Area    uint32
	ID      uuid.UUID
}

type peakRecord struct {
	X     int32
	Y     int32
	Value float32
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrCorruptData)
}
