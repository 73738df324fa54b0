package persist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/persist"
	"github.com/azybler/streetrouter/pkg/streetlayer"
)

// corruptByteInPlace flips one byte at offset in the file at path, leaving
// its length unchanged, to exercise persist.Read's CRC32 trailer check.
func corruptByteInPlace(t *testing.T, path string, offset int64) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if offset >= info.Size() {
		t.Fatalf("corruption offset %d is past end of file (size %d)", offset, info.Size())
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, offset); err != nil {
		t.Fatalf("read byte: %v", err)
	}
	buf[0] ^= 0xff
	if _, err := f.WriteAt(buf, offset); err != nil {
		t.Fatalf("write byte: %v", err)
	}
}

func buildSampleLayer(t *testing.T) *streetlayer.StreetLayer {
	t.Helper()
	sl := streetlayer.New()
	v0 := sl.Vertices.AddVertex(0, 0)
	v1 := sl.Vertices.AddVertex(0, 0.001)
	v2 := sl.Vertices.AddVertex(0, 0.002)

	e01, err := sl.AddEdgePair(v0, v1, 111_000, 1)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	e12, err := sl.AddEdgePair(v1, v2, 111_000, 2)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	for _, e := range []int32{e01, e01 + 1, e12, e12 + 1} {
		c := sl.Edges.At(e)
		c.SetFlag(edgestore.FlagAllowCar)
		c.SetFlag(edgestore.FlagAllowPedestrian)
		c.SetSpeed(12.5)
		c.SetLTS(2, true)
	}
	sl.Edges.AddTurnRestriction(edgestore.TurnRestriction{FromEdge: e01, ToEdge: e12})

	sl.BuildIndex()
	if err := sl.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	return sl
}

func TestWriteReadRoundTripsVertexAndEdgeColumns(t *testing.T) {
	sl := buildSampleLayer(t)
	path := filepath.Join(t.TempDir(), "layer.bin")

	if err := persist.Write(path, sl); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := persist.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Vertices.Size() != sl.Vertices.Size() {
		t.Fatalf("vertex count = %d, want %d", got.Vertices.Size(), sl.Vertices.Size())
	}
	if got.Edges.PairCount() != sl.Edges.PairCount() {
		t.Fatalf("pair count = %d, want %d", got.Edges.PairCount(), sl.Edges.PairCount())
	}

	for p := 0; p < sl.Edges.PairCount(); p++ {
		fwd := edgestore.ForwardEdge(int32(p))
		wantLen := sl.Edges.At(fwd).GetLengthMm()
		gotLen := got.Edges.At(fwd).GetLengthMm()
		if gotLen != wantLen {
			t.Errorf("pair %d length = %d, want %d", p, gotLen, wantLen)
		}
		if got.Edges.At(fwd).GetOSMWayID() != sl.Edges.At(fwd).GetOSMWayID() {
			t.Errorf("pair %d OSM way id mismatch", p)
		}
	}
}

func TestWriteReadRoundTripsTurnRestrictions(t *testing.T) {
	sl := buildSampleLayer(t)
	path := filepath.Join(t.TempDir(), "layer.bin")
	if err := persist.Write(path, sl); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := persist.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := sl.Edges.Restrictions()
	gotR := got.Edges.Restrictions()
	if len(gotR) != len(want) {
		t.Fatalf("restriction count = %d, want %d", len(gotR), len(want))
	}
	for i := range want {
		if gotR[i].FromEdge != want[i].FromEdge || gotR[i].ToEdge != want[i].ToEdge {
			t.Errorf("restriction %d = %+v, want %+v", i, gotR[i], want[i])
		}
	}
}

func TestReadRejectsCorruptFile(t *testing.T) {
	sl := buildSampleLayer(t)
	path := filepath.Join(t.TempDir(), "layer.bin")
	if err := persist.Write(path, sl); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Flip a byte past the header to break the CRC32 trailer check.
	corruptByteInPlace(t, path, 40)

	if _, err := persist.Read(path); err == nil {
		t.Fatal("Read should reject a file whose CRC32 no longer matches its contents")
	}
}
