package backends

import (
	"github.com/lykit/lydiff/internal/gds"
	"github.com/lykit/lydiff/internal/geom"
	"github.com/lykit/lydiff/internal/types"
)

// NativeBackend is the in-process engine: GDSII reader plus the boolean
// kernel, with full per-(cell, layer) region access and hierarchy-aware
// flattening.
type NativeBackend struct{}

func init() {
	Register(&NativeBackend{})
}

func (b *NativeBackend) Name() string           { return "in-process GDSII engine" }
func (b *NativeBackend) Kind() types.EngineKind { return types.EngineNative }

func (b *NativeBackend) Load(path string) (Layout, error) {
	lib, err := gds.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &nativeLayout{lib: lib}, nil
}

type nativeLayout struct {
	lib *gds.Library
}

func (l *nativeLayout) DBU() float64 {
	return l.lib.DBU
}

func (l *nativeLayout) Layers() []types.Layer {
	return l.lib.Layers()
}

func (l *nativeLayout) TopCells() []string {
	return l.lib.TopCells()
}

func (l *nativeLayout) Region(topcell string, layer types.Layer) (geom.Region, error) {
	polygons, err := l.lib.Polygons(topcell, layer)
	if err != nil {
		return geom.Region{}, err
	}
	// Self-overlaps within one layout are not differences; merge before XOR.
	return geom.FromPoints(polygons...).Merge(), nil
}

func (l *nativeLayout) Close() error {
	l.lib = nil
	return nil
}
