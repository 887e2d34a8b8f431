package backends

import (
	"github.com/lykit/lydiff/internal/gds"
	"github.com/lykit/lydiff/internal/geom"
	"github.com/lykit/lydiff/internal/types"
)

// BooleanBackend is the simplified polygon-boolean engine. It flattens the
// whole layout into polygon lists keyed by (layer, datatype) at load time:
// a region request for any top cell returns the flattened list for that
// layer, not the cell's own geometry. Vertices are snapped to a fixed
// precision grid and contours above the point cap are fractured, so this
// engine trades precision for robustness; differences smaller than the grid
// can be masked.
type BooleanBackend struct{}

func init() {
	Register(&BooleanBackend{})
}

func (b *BooleanBackend) Name() string           { return "flattened polygon-boolean engine" }
func (b *BooleanBackend) Kind() types.EngineKind { return types.EngineBoolean }

func (b *BooleanBackend) Load(path string) (Layout, error) {
	lib, err := gds.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l := &booleanLayout{
		dbu:      lib.DBU,
		topcells: lib.TopCells(),
		layers:   lib.Layers(),
		regions:  make(map[types.Layer]geom.Region, len(lib.Layers())),
	}
	for _, layer := range l.layers {
		merged := geom.Region{}
		for _, top := range l.topcells {
			polygons, err := lib.Polygons(top, layer)
			if err != nil {
				return nil, err
			}
			merged = merged.Union(geom.FromPoints(polygons...).Merge())
		}
		l.regions[layer] = merged.
			Snap(types.BooleanPrecision).
			Fracture(types.MaxPolygonPoints)
	}
	return l, nil
}

type booleanLayout struct {
	dbu      float64
	topcells []string
	layers   []types.Layer
	regions  map[types.Layer]geom.Region
}

func (l *booleanLayout) DBU() float64 {
	return l.dbu
}

func (l *booleanLayout) Layers() []types.Layer {
	return l.layers
}

func (l *booleanLayout) TopCells() []string {
	return l.topcells
}

func (l *booleanLayout) Region(topcell string, layer types.Layer) (geom.Region, error) {
	return l.regions[layer], nil
}

func (l *booleanLayout) Close() error {
	l.regions = nil
	return nil
}
