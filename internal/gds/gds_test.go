package gds

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/geom"
	"github.com/lykit/lydiff/internal/types"
)

func TestReal64RoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 0.001, 1e-9, 1e-6, 123.456, -0.5, 2.5e-10}
	for _, v := range values {
		got := decodeReal64(encodeReal64(v))
		if v == 0 {
			if got != 0 {
				t.Errorf("round trip of 0 = %g", got)
			}
			continue
		}
		if math.Abs(got-v) > math.Abs(v)*1e-12 {
			t.Errorf("round trip of %g = %g", v, got)
		}
	}
}

func TestReal64KnownEncoding(t *testing.T) {
	// 1.0 in excess-64 base-16: exponent 65, mantissa 1/16.
	if got := encodeReal64(1.0); got != 0x4110000000000000 {
		t.Errorf("encodeReal64(1.0) = %#x, want 0x4110000000000000", got)
	}
	if got := decodeReal64(0x4110000000000000); got != 1.0 {
		t.Errorf("decodeReal64 = %g, want 1.0", got)
	}
}

func testLibrary() *Library {
	lib := NewLibrary("TESTLIB", 0.001)
	sub := lib.NewCell("SUB")
	sub.AddRect(types.Layer{Number: 1, Datatype: 0}, 0, 0, 10, 10)
	top := lib.NewCell("TOP")
	top.AddRect(types.Layer{Number: 1, Datatype: 0}, 100, 100, 150, 130)
	top.AddRect(types.Layer{Number: 2, Datatype: 0}, 0, 0, 5, 5)
	top.AddPath(types.Layer{Number: 3, Datatype: 1}, 10, 0, 0, 50, 100, 50)
	top.AddRef("SUB", 200, 0)
	return lib
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, name := range []string{"plain.gds", "compressed.gds.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := testLibrary().WriteFile(path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			lib, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if lib.Name != "TESTLIB" {
				t.Errorf("library name = %q", lib.Name)
			}
			if math.Abs(lib.DBU-0.001) > 1e-12 {
				t.Errorf("dbu = %g, want 0.001", lib.DBU)
			}
			wantLayers := []types.Layer{{Number: 1, Datatype: 0}, {Number: 2, Datatype: 0}, {Number: 3, Datatype: 1}}
			if got := lib.Layers(); !reflect.DeepEqual(got, wantLayers) {
				t.Errorf("layers = %v, want %v", got, wantLayers)
			}
			if got := lib.TopCells(); !reflect.DeepEqual(got, []string{"TOP"}) {
				t.Errorf("top cells = %v, want [TOP]", got)
			}
		})
	}
}

func TestRoundTripPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.gds")
	if err := testLibrary().WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	lib, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tests := []struct {
		layer    types.Layer
		wantArea float64
	}{
		{types.Layer{Number: 1, Datatype: 0}, 50*30 + 10*10}, // own rect plus referenced SUB
		{types.Layer{Number: 2, Datatype: 0}, 25},
		{types.Layer{Number: 3, Datatype: 1}, 1000}, // 100-long path of width 10
	}
	for _, tt := range tests {
		polys, err := lib.Polygons("TOP", tt.layer)
		if err != nil {
			t.Fatalf("Polygons(TOP, %s): %v", tt.layer, err)
		}
		area := geom.FromPoints(polys...).Area()
		if math.Abs(area-tt.wantArea) > 1e-9 {
			t.Errorf("layer %s area = %g, want %g", tt.layer, area, tt.wantArea)
		}
	}
}

func TestEmptyRegionIsNotAnError(t *testing.T) {
	lib := testLibrary()
	polys, err := lib.Polygons("TOP", types.Layer{Number: 99, Datatype: 0})
	if err != nil {
		t.Fatalf("Polygons on an undrawn layer: %v", err)
	}
	if len(polys) != 0 {
		t.Errorf("undrawn layer produced %d polygons", len(polys))
	}
}

func TestUnknownCell(t *testing.T) {
	lib := testLibrary()
	if _, err := lib.Polygons("NOPE", types.Layer{Number: 1}); err == nil {
		t.Error("unknown cell did not error")
	}
}

func TestDanglingReference(t *testing.T) {
	lib := NewLibrary("L", 0.001)
	top := lib.NewCell("TOP")
	top.AddRef("MISSING", 0, 0)
	if _, err := lib.Polygons("TOP", types.Layer{Number: 1}); err == nil {
		t.Error("dangling reference did not error")
	}
}

func TestCyclicReference(t *testing.T) {
	lib := NewLibrary("L", 0.001)
	a := lib.NewCell("A")
	b := lib.NewCell("B")
	a.AddRef("B", 0, 0)
	b.AddRef("A", 0, 0)
	if _, err := lib.Polygons("A", types.Layer{Number: 1}); err == nil {
		t.Error("cyclic hierarchy did not error")
	}
}

func TestRefTransforms(t *testing.T) {
	layer := types.Layer{Number: 1, Datatype: 0}
	tests := []struct {
		name             string
		ref              Ref
		wantMin, wantMax geom.Point
		wantArea         float64
	}{
		{
			"translate",
			Ref{Target: "SUB", X: 100, Y: 50},
			geom.Point{X: 100, Y: 50}, geom.Point{X: 110, Y: 60}, 100,
		},
		{
			"rotate 90",
			Ref{Target: "SUB", X: 100, Y: 0, Angle: 90},
			geom.Point{X: 90, Y: 0}, geom.Point{X: 100, Y: 10}, 100,
		},
		{
			"magnify",
			Ref{Target: "SUB", Mag: 2},
			geom.Point{X: 0, Y: 0}, geom.Point{X: 20, Y: 20}, 400,
		},
		{
			"reflect",
			Ref{Target: "SUB", Reflect: true},
			geom.Point{X: 0, Y: -10}, geom.Point{X: 10, Y: 0}, 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := NewLibrary("L", 0.001)
			sub := lib.NewCell("SUB")
			sub.AddRect(layer, 0, 0, 10, 10)
			top := lib.NewCell("TOP")
			top.Refs = append(top.Refs, tt.ref)

			polys, err := lib.Polygons("TOP", layer)
			if err != nil {
				t.Fatalf("Polygons: %v", err)
			}
			region := geom.FromPoints(polys...)
			if math.Abs(region.Area()-tt.wantArea) > 1e-6 {
				t.Errorf("area = %g, want %g", region.Area(), tt.wantArea)
			}
			min, max := region.BoundingBox()
			if !closePoint(min, tt.wantMin) || !closePoint(max, tt.wantMax) {
				t.Errorf("bounds = %v..%v, want %v..%v", min, max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func closePoint(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestArrayReference(t *testing.T) {
	layer := types.Layer{Number: 1, Datatype: 0}
	lib := NewLibrary("L", 0.001)
	sub := lib.NewCell("SUB")
	sub.AddRect(layer, 0, 0, 10, 10)
	top := lib.NewCell("TOP")
	top.Refs = append(top.Refs, Ref{
		Target: "SUB",
		Cols:   3, Rows: 2,
		ColVec: geom.Point{X: 100, Y: 0},
		RowVec: geom.Point{X: 0, Y: 200},
	})

	polys, err := lib.Polygons("TOP", layer)
	if err != nil {
		t.Fatalf("Polygons: %v", err)
	}
	if len(polys) != 6 {
		t.Fatalf("3x2 array produced %d instances, want 6", len(polys))
	}
	region := geom.FromPoints(polys...)
	_, max := region.BoundingBox()
	if max.X != 210 || max.Y != 210 {
		t.Errorf("array extent = (%g, %g), want (210, 210)", max.X, max.Y)
	}
}

func TestArrayReferenceRoundTrip(t *testing.T) {
	layer := types.Layer{Number: 5, Datatype: 0}
	lib := NewLibrary("L", 0.001)
	sub := lib.NewCell("SUB")
	sub.AddRect(layer, 0, 0, 4, 4)
	top := lib.NewCell("TOP")
	top.Refs = append(top.Refs, Ref{
		Target: "SUB",
		X:      10, Y: 20,
		Cols: 2, Rows: 3,
		ColVec: geom.Point{X: 50, Y: 0},
		RowVec: geom.Point{X: 0, Y: 60},
	})

	path := filepath.Join(t.TempDir(), "aref.gds")
	if err := lib.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	ref := got.Cell("TOP").Refs[0]
	if ref.Cols != 2 || ref.Rows != 3 {
		t.Errorf("COLROW = %dx%d, want 2x3", ref.Cols, ref.Rows)
	}
	if ref.ColVec != (geom.Point{X: 50, Y: 0}) || ref.RowVec != (geom.Point{X: 0, Y: 60}) {
		t.Errorf("lattice vectors = %v / %v", ref.ColVec, ref.RowVec)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "no-such.gds"))
	if !liberrors.IsLoadError(err) {
		t.Errorf("missing file error = %v, want a load error", err)
	}
}

func TestReadFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gds")
	if err := os.WriteFile(path, []byte{0x00, 0x06, 0x00, 0x02, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); !liberrors.IsLoadError(err) {
		t.Errorf("corrupt file error = %v, want a load error", err)
	}
}

func TestReadTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	lib := testLibrary()
	if err := lib.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Read(bytes.NewReader(buf.Bytes()[:buf.Len()/2])); err == nil {
		t.Error("truncated stream parsed without error")
	}
}
