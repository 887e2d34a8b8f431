package types

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EngineKind identifies one of the interchangeable geometry engines.
type EngineKind string

const (
	EngineNative  EngineKind = "native"  // in-process GDSII reader + boolean kernel
	EngineKLayout EngineKind = "klayout" // external klayout batch process
	EngineBoolean EngineKind = "boolean" // flattened polygon-boolean engine
)

const (
	// DefaultTolerance is the erosion distance, in database units, applied to
	// XOR residues when the caller does not specify one. Kept at 10 for
	// compatibility with existing golden-file suites.
	DefaultTolerance = 10.0

	// DBUEpsilon is the absolute tolerance when comparing the database units
	// of two layouts. Layouts whose units differ by more are not comparable.
	DBUEpsilon = 1e-6

	// BooleanPrecision is the vertex snapping grid, in database units, used by
	// the polygon-boolean engine.
	BooleanPrecision = 0.001

	// MaxPolygonPoints caps contour complexity in the polygon-boolean engine.
	// Contours above the cap are fractured, which is a documented precision
	// limit of that engine.
	MaxPolygonPoints = 4000
)

// Layer identifies a drawing plane by its GDSII layer number and datatype.
// Layers are matched across layouts by equality; the numbers are never used
// arithmetically.
type Layer struct {
	Number   int16 `json:"number"`
	Datatype int16 `json:"datatype"`
}

func (l Layer) String() string {
	return fmt.Sprintf("%d/%d", l.Number, l.Datatype)
}

// Less orders layers number-major, datatype-minor.
func (l Layer) Less(other Layer) bool {
	if l.Number != other.Number {
		return l.Number < other.Number
	}
	return l.Datatype < other.Datatype
}

// ParseLayer parses "N/D" or a bare "N" (datatype 0).
func ParseLayer(s string) (Layer, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 16)
	if err != nil {
		return Layer{}, fmt.Errorf("invalid layer %q: %v", s, err)
	}
	var dt int64
	if len(parts) == 2 {
		dt, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 16)
		if err != nil {
			return Layer{}, fmt.Errorf("invalid layer %q: %v", s, err)
		}
	}
	return Layer{Number: int16(num), Datatype: int16(dt)}, nil
}

// Diagnostic records one differing (top cell, layer) pair.
type Diagnostic struct {
	TopCell string `json:"topcell"`
	Layer   Layer  `json:"layer"`
	// Count is the number of residual polygons left after erosion. Engines
	// that compare at whole-pair grain report 0.
	Count int `json:"count"`
}

// Verdict is the immutable outcome of one comparison call. Diagnostics are
// ordered cell-major, layer-minor and are populated regardless of verbosity.
type Verdict struct {
	Different   bool         `json:"different"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// CompareOptions configures a single comparison.
type CompareOptions struct {
	// Tolerance is the erosion distance in database units. XOR residues that
	// fully erode away at this distance are not reported. Must be >= 0.
	Tolerance float64

	// Verbose prints a per-(cell, layer) status line to Output.
	Verbose bool

	// Output receives verbose status lines. Defaults to stdout.
	Output io.Writer
}

// DefaultCompareOptions returns the historical defaults: tolerance 10,
// non-verbose, stdout.
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		Tolerance: DefaultTolerance,
		Verbose:   false,
		Output:    os.Stdout,
	}
}
