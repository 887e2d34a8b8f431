package backends

import (
	"math"
	"testing"

	"github.com/lykit/lydiff/internal/types"
)

func TestBooleanLoadFlattens(t *testing.T) {
	path := writeSampleLayout(t, "flat.gds")
	layout, err := (&BooleanBackend{}).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer layout.Close()

	// Region access degenerates to the flattened per-layer list: any cell
	// name yields the same geometry.
	layer := types.Layer{Number: 1, Datatype: 0}
	forTop, err := layout.Region("TOP", layer)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	forOther, err := layout.Region("WHATEVER", layer)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if math.Abs(forTop.Area()-forOther.Area()) > 1e-9 {
		t.Errorf("flattened regions differ by cell name: %g vs %g", forTop.Area(), forOther.Area())
	}
	if math.Abs(forTop.Area()-(40*40+20*20)) > 1e-6 {
		t.Errorf("flattened area = %g, want %g", forTop.Area(), float64(40*40+20*20))
	}
}

func TestBooleanKeepsStructure(t *testing.T) {
	path := writeSampleLayout(t, "flat.gds")
	layout, err := (&BooleanBackend{}).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer layout.Close()

	if got := layout.TopCells(); len(got) != 1 || got[0] != "TOP" {
		t.Errorf("top cells = %v, want [TOP]", got)
	}
	if got := layout.Layers(); len(got) != 2 {
		t.Errorf("layers = %v, want two", got)
	}
	if math.Abs(layout.DBU()-0.001) > 1e-12 {
		t.Errorf("dbu = %g", layout.DBU())
	}
}
