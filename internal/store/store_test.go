package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ivlev/img2footprint/internal/codec"
	"github.com/ivlev/img2footprint/internal/footprint"
	"github.com/ivlev/img2footprint/internal/masked"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeHeavyFixture(t *testing.T) (*footprint.Footprint, []byte) {
	t.Helper()
	mi := masked.New(20, 10)
	mi.SetAll(10, 0x1, 100)

	f := footprint.New()
	f.AddSpan(2, 10, 13)
	f.AddSpan(3, 11, 14)
	f.Normalize()
	f.AddPeak(12, 2, 10)

	heavy, err := footprint.MakeHeavy(f, mi, nil)
	if err != nil {
		t.Fatalf("MakeHeavy failed: %v", err)
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, heavy); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return heavy, buf.Bytes()
}

func TestInsertAndGet(t *testing.T) {
	s := openTestStore(t)
	f, blob := makeHeavyFixture(t)

	if err := s.Insert(f, "frame_0001.png", blob); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := s.Get(f.ID.String())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a record, got nil")
	}
	if rec.Source != "frame_0001.png" {
		t.Errorf("Source = %q", rec.Source)
	}
	if rec.Area != 8 || rec.MinX != 10 || rec.MinY != 2 || rec.MaxX != 14 || rec.MaxY != 3 {
		t.Errorf("Unexpected shape metadata: %+v", rec)
	}
	if rec.PeakCount != 1 || !rec.Heavy {
		t.Errorf("Unexpected peak/heavy metadata: %+v", rec)
	}

	// The blob round-trips through the codec
	g, err := codec.Decode(bytes.NewReader(rec.Blob))
	if err != nil {
		t.Fatalf("Decode of stored blob failed: %v", err)
	}
	if g.ID != f.ID || g.Area() != f.Area() || !g.IsHeavy() {
		t.Error("Stored blob does not restore the footprint")
	}
}

func TestGetAbsent(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Get("no-such-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Expected nil for an absent id, got %+v", rec)
	}
}

func TestInsertReplaces(t *testing.T) {
	s := openTestStore(t)
	f, blob := makeHeavyFixture(t)

	if err := s.Insert(f, "a.png", blob); err != nil {
		t.Fatalf("First Insert failed: %v", err)
	}
	if err := s.Insert(f, "b.png", blob); err != nil {
		t.Fatalf("Second Insert failed: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Re-inserting the same id must replace, count = %d", n)
	}
	rec, _ := s.Get(f.ID.String())
	if rec.Source != "b.png" {
		t.Errorf("Replace kept the old source: %q", rec.Source)
	}
}

func TestBySource(t *testing.T) {
	s := openTestStore(t)

	small := footprint.New()
	small.AddSpan(0, 0, 3)
	big := footprint.New()
	big.AddSpan(0, 0, 9)
	big.AddSpan(1, 0, 9)
	other := footprint.New()
	other.AddSpan(5, 5, 6)

	for _, in := range []struct {
		f   *footprint.Footprint
		src string
	}{
		{small, "frame_0001.png"},
		{big, "frame_0001.png"},
		{other, "frame_0002.png"},
	} {
		var buf bytes.Buffer
		if err := codec.Encode(&buf, in.f); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if err := s.Insert(in.f, in.src, buf.Bytes()); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	recs, err := s.BySource("frame_0001.png")
	if err != nil {
		t.Fatalf("BySource failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].Area < recs[1].Area {
		t.Error("BySource must order largest first")
	}
	if recs[0].ID != big.ID.String() {
		t.Errorf("Expected the big footprint first, got %s", recs[0].ID)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}
