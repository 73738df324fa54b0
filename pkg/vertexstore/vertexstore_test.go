package vertexstore_test

import (
	"testing"

	"github.com/azybler/streetrouter/pkg/vertexstore"
)

func TestAddVertexAndRead(t *testing.T) {
	vs := vertexstore.New()
	idx := vs.AddVertex(1.2830, 103.8513)
	if idx != 0 {
		t.Fatalf("first vertex index = %d, want 0", idx)
	}

	c := vs.At(idx)
	if diff := c.Lat() - 1.2830; diff < -1e-6 || diff > 1e-6 {
		t.Errorf("Lat = %f, want ~1.2830", c.Lat())
	}
	if vs.Size() != 1 {
		t.Errorf("Size = %d, want 1", vs.Size())
	}
}

func TestAppendOnlyIndicesArePermanent(t *testing.T) {
	vs := vertexstore.New()
	first := vs.AddVertex(1.0, 103.0)
	second := vs.AddVertex(1.1, 103.1)
	if second != first+1 {
		t.Fatalf("expected sequential append-only indices, got %d then %d", first, second)
	}
}

func TestFlags(t *testing.T) {
	vs := vertexstore.New()
	idx := vs.AddVertex(1.0, 103.0)
	c := vs.At(idx)

	if c.HasFlag(vertexstore.FlagTrafficSignal) {
		t.Fatal("new vertex should have no flags set")
	}
	c.SetFlag(vertexstore.FlagTrafficSignal)
	if !c.HasFlag(vertexstore.FlagTrafficSignal) {
		t.Fatal("expected FlagTrafficSignal to be set")
	}
	if c.HasFlag(vertexstore.FlagBikeShare) {
		t.Fatal("setting one flag must not set another")
	}
	c.ClearFlag(vertexstore.FlagTrafficSignal)
	if c.HasFlag(vertexstore.FlagTrafficSignal) {
		t.Fatal("expected flag to be cleared")
	}
}

func TestExtendSharesBaselineAndIsolatesAppends(t *testing.T) {
	base := vertexstore.New()
	base.AddVertex(1.0, 103.0)
	base.AddVertex(1.1, 103.1)
	base.Freeze()

	scenario := base.Extend()
	if !scenario.IsExtendOnlyCopy() {
		t.Fatal("expected scenario copy to report IsExtendOnlyCopy")
	}

	newIdx := scenario.AddVertex(1.2, 103.2)
	if int(newIdx) != 2 {
		t.Fatalf("new vertex index = %d, want 2 (appended past baseline)", newIdx)
	}
	if scenario.Size() != 3 {
		t.Fatalf("scenario.Size() = %d, want 3", scenario.Size())
	}
	if base.Size() != 2 {
		t.Fatalf("base.Size() = %d, want 2 (scenario append must not leak back)", base.Size())
	}

	// Reading a baseline vertex through the scenario copy returns the same data.
	if scenario.At(0).Lat() != base.At(0).Lat() {
		t.Error("scenario copy should see identical baseline data")
	}
}
