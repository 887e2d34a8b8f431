package geom

import (
	"math"
	"testing"
)

func TestPathOutlineStraight(t *testing.T) {
	tests := []struct {
		name     string
		pts      []Point
		width    float64
		extend   float64
		wantArea float64
	}{
		{"flush ends", []Point{{0, 0}, {100, 0}}, 10, 0, 1000},
		{"extended ends", []Point{{0, 0}, {100, 0}}, 10, 5, 1100},
		{"vertical", []Point{{0, 0}, {0, 50}}, 4, 0, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outline := PathOutline(tt.pts, tt.width, tt.extend)
			if len(outline) < 4 {
				t.Fatalf("outline has %d points", len(outline))
			}
			area := FromPoints(outline).Area()
			if math.Abs(area-tt.wantArea) > 1e-9 {
				t.Errorf("area = %g, want %g", area, tt.wantArea)
			}
		})
	}
}

func TestPathOutlineBend(t *testing.T) {
	// Right-angle bend with mitered joint: both arms plus the squared-off
	// corner give 2000 for two 100-long arms of width 10.
	outline := PathOutline([]Point{{0, 0}, {100, 0}, {100, 100}}, 10, 0)
	area := FromPoints(outline).Area()
	want := 2000.0
	if math.Abs(area-want) > 1e-6 {
		t.Errorf("area = %g, want %g", area, want)
	}
}

func TestPathOutlineDegenerate(t *testing.T) {
	if got := PathOutline([]Point{{5, 5}}, 10, 0); got != nil {
		t.Errorf("single-point path produced an outline: %v", got)
	}
	if got := PathOutline([]Point{{0, 0}, {1, 0}}, 0, 0); got != nil {
		t.Errorf("zero-width path produced an outline: %v", got)
	}
	if got := PathOutline([]Point{{3, 3}, {3, 3}}, 10, 0); got != nil {
		t.Errorf("coincident-point path produced an outline: %v", got)
	}
}
