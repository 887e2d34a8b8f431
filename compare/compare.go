// Package compare implements the layout comparator: structural compatibility
// checks followed by the per-layer, per-cell XOR-and-erode sweep. The
// comparator is engine-agnostic; it picks its algorithm grain from the
// capability tier of the backend it was constructed with.
package compare

import (
	"fmt"
	"os"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/sirupsen/logrus"

	"github.com/lykit/lydiff/backends"
	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/types"
)

// Comparator compares layout file pairs through one bound geometry engine.
// The binding is fixed at construction; there are no process-wide mutable
// engine flags.
type Comparator struct {
	backend backends.Backend
	opts    types.CompareOptions
}

// New binds a comparator to an engine. Tolerance must be >= 0; a nil Output
// defaults to stdout.
func New(backend backends.Backend, opts types.CompareOptions) (*Comparator, error) {
	if backend == nil {
		return nil, fmt.Errorf("comparator needs a geometry backend")
	}
	if opts.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must be >= 0, got %g", opts.Tolerance)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Comparator{backend: backend, opts: opts}, nil
}

// Compare checks whether file1 and file2 hold equivalent geometry. The
// verdict is always populated as far as the comparison got; on a difference
// the error is a GeometryDifference and the verdict carries the per-pair
// diagnostics the engine could produce.
func (c *Comparator) Compare(file1, file2 string) (types.Verdict, error) {
	switch engine := c.backend.(type) {
	case backends.LayerWiseComparer:
		return c.compareLayerWise(engine, file1, file2)
	case backends.WholePairComparer:
		return c.comparePair(engine, file1, file2)
	default:
		return types.Verdict{}, liberrors.NewToolingError(
			fmt.Sprintf("engine %q implements no comparison tier", c.backend.Name()),
			"This is a bug in the engine registration, not in your layouts.",
			nil,
		)
	}
}

func layerOrder(a, b interface{}) int {
	la, lb := a.(types.Layer), b.(types.Layer)
	if la == lb {
		return 0
	}
	if la.Less(lb) {
		return -1
	}
	return 1
}

func (c *Comparator) compareLayerWise(engine backends.LayerWiseComparer, file1, file2 string) (types.Verdict, error) {
	l1, err := engine.Load(file1)
	if err != nil {
		return types.Verdict{}, err
	}
	defer l1.Close()
	l2, err := engine.Load(file2)
	if err != nil {
		return types.Verdict{}, err
	}
	defer l2.Close()

	layers1, layers2 := l1.Layers(), l2.Layers()
	set1 := treeset.NewWith(layerOrder)
	set2 := treeset.NewWith(layerOrder)
	for _, l := range layers1 {
		set1.Add(l)
	}
	for _, l := range layers2 {
		set2.Add(l)
	}
	// Bidirectional containment: every layer must exist on both sides.
	for _, l := range layers1 {
		if !set2.Contains(l) {
			return types.Verdict{}, liberrors.NewStructuralMismatch("layer",
				fmt.Sprintf("layer %s of layout %s not present in layout %s", l, file1, file2),
				file1, file2)
		}
	}
	for _, l := range layers2 {
		if !set1.Contains(l) {
			return types.Verdict{}, liberrors.NewStructuralMismatch("layer",
				fmt.Sprintf("layer %s of layout %s not present in layout %s", l, file2, file1),
				file2, file1)
		}
	}

	cells1, cells2 := l1.TopCells(), l2.TopCells()
	if !equalStrings(cells1, cells2) {
		return types.Verdict{}, liberrors.NewStructuralMismatch("topcell",
			fmt.Sprintf("top cell sets differ between %s and %s:\n%v\n%v", file1, file2, cells1, cells2),
			file1, file2)
	}

	dbu1, dbu2 := l1.DBU(), l2.DBU()
	if diff := dbu1 - dbu2; diff > types.DBUEpsilon || diff < -types.DBUEpsilon {
		return types.Verdict{}, liberrors.NewStructuralMismatch("dbu",
			fmt.Sprintf("database unit of layout %s (%g) differs from that of layout %s (%g)", file1, dbu1, file2, dbu2),
			file1, file2)
	}

	verdict := types.Verdict{}
	for _, cell := range cells1 {
		for _, layer := range layers1 {
			r1, err := l1.Region(cell, layer)
			if err != nil {
				return verdict, liberrors.NewLoadError(file1, err)
			}
			r2, err := l2.Region(cell, layer)
			if err != nil {
				return verdict, liberrors.NewLoadError(file2, err)
			}
			residue := r1.Xor(r2)
			if c.opts.Tolerance > 0 {
				residue, err = residue.Erode(c.opts.Tolerance)
				if err != nil {
					return verdict, err
				}
			}
			if residue.Empty() {
				if c.opts.Verbose {
					fmt.Fprintf(c.opts.Output, "No differences found in %s on layer %s.\n", cell, layer)
				}
				continue
			}
			verdict.Different = true
			verdict.Diagnostics = append(verdict.Diagnostics, types.Diagnostic{
				TopCell: cell,
				Layer:   layer,
				Count:   residue.Count(),
			})
			if c.opts.Verbose {
				fmt.Fprintf(c.opts.Output, "%d differences found in %s on layer %s.\n", residue.Count(), cell, layer)
			}
		}
	}
	logrus.WithFields(logrus.Fields{
		"file1":     file1,
		"file2":     file2,
		"different": verdict.Different,
		"pairs":     len(cells1) * len(layers1),
	}).Debug("layer-wise comparison finished")

	if verdict.Different {
		return verdict, liberrors.NewGeometryDifference(file1, file2, len(verdict.Diagnostics))
	}
	return verdict, nil
}

func (c *Comparator) comparePair(engine backends.WholePairComparer, file1, file2 string) (types.Verdict, error) {
	err := engine.ComparePair(file1, file2, c.opts.Tolerance, c.opts.Verbose)
	if err == nil {
		return types.Verdict{}, nil
	}
	if liberrors.IsGeometryDifference(err) {
		return types.Verdict{Different: true}, err
	}
	return types.Verdict{}, err
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
