// Package backends holds the interchangeable geometry engines behind the
// layout comparator. Engines register themselves at init time; selection
// happens once at process start through Detect and Select, and the chosen
// backend is then passed explicitly into the comparator.
package backends

import (
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/geom"
	"github.com/lykit/lydiff/internal/types"
)

// Backend is the common surface of every geometry engine. Each engine also
// implements exactly one of LayerWiseComparer or WholePairComparer; the
// comparator picks its algorithm grain from which one it finds.
type Backend interface {
	Name() string
	Kind() types.EngineKind
}

// Layout is an opened layout file, alive for one comparison call.
type Layout interface {
	// DBU returns the database unit in microns.
	DBU() float64
	// Layers returns the sorted set of layers drawn on anywhere in the file.
	Layers() []types.Layer
	// TopCells returns the sorted names of top-level cells.
	TopCells() []string
	// Region gathers all shapes on layer reachable from topcell, recursing
	// through child references. An empty region is a valid result, not an
	// error.
	Region(topcell string, layer types.Layer) (geom.Region, error)
	Close() error
}

// LayerWiseComparer is the rich engine tier: per-layer, per-cell region
// access, which lets the comparator produce diagnostics.
type LayerWiseComparer interface {
	Backend
	Load(path string) (Layout, error)
}

// WholePairComparer is the coarse engine tier: one opaque compare of a file
// pair. A nil return means no difference; otherwise the error carries the
// verdict.
type WholePairComparer interface {
	Backend
	ComparePair(file1, file2 string, tolerance float64, verbose bool) error
}

// priority is the fixed selection order. The in-process engine is fastest,
// the external tool is exact but slow to launch, and the flattened boolean
// engine is the fallback with documented precision limits.
var priority = []types.EngineKind{
	types.EngineNative,
	types.EngineKLayout,
	types.EngineBoolean,
}

var registry = make(map[types.EngineKind]Backend)

// Register adds an engine to the registry. Called from engine init functions;
// later registrations for the same kind win, which lets tests substitute
// fakes.
func Register(b Backend) {
	registry[b.Kind()] = b
}

// Get returns the registered engine of the given kind.
func Get(kind types.EngineKind) (Backend, error) {
	b, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no %q geometry engine registered", kind)
	}
	return b, nil
}

// List returns the registered engine kinds in selection-priority order.
func List() []types.EngineKind {
	var kinds []types.EngineKind
	for _, kind := range priority {
		if _, ok := registry[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Detect probes which engines can actually run here. The in-process engines
// are compiled in and always available; the klayout engine needs its binary
// on PATH. klayoutBin overrides the binary name, empty means "klayout".
func Detect(klayoutBin string) map[types.EngineKind]bool {
	if klayoutBin == "" {
		klayoutBin = defaultKLayoutBinary
	}
	avail := map[types.EngineKind]bool{
		types.EngineNative:  true,
		types.EngineBoolean: true,
	}
	if _, err := exec.LookPath(klayoutBin); err == nil {
		avail[types.EngineKLayout] = true
	}
	logrus.WithField("available", avail).Debug("geometry engine probe")
	return avail
}

// Select picks exactly one engine from the availability set, in fixed
// priority order. Pure: the same availability set always yields the same
// engine, and tests can force any variant by feeding a synthetic set.
func Select(avail map[types.EngineKind]bool) (Backend, error) {
	for _, kind := range priority {
		if !avail[kind] {
			continue
		}
		b, err := Get(kind)
		if err != nil {
			continue
		}
		logrus.WithField("engine", kind).Debug("geometry engine selected")
		return b, nil
	}
	return nil, liberrors.NewToolingError(
		"no geometry backend available",
		"Install klayout or rebuild with the built-in engines enabled.",
		nil,
	)
}
