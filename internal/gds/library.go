// Package gds reads and writes GDSII stream layout files for the in-process
// geometry engines. The model keeps the cell hierarchy as stored; flattening
// to per-(cell, layer) polygon sets happens on demand.
package gds

import (
	"fmt"
	"math"
	"sort"

	"github.com/lykit/lydiff/internal/geom"
	"github.com/lykit/lydiff/internal/types"
)

// maxRefDepth bounds reference recursion. Legal GDSII hierarchies are acyclic;
// anything deeper than this is treated as corrupt.
const maxRefDepth = 64

type ShapeKind string

const (
	ShapeBoundary ShapeKind = "boundary"
	ShapePath     ShapeKind = "path"
	ShapeBox      ShapeKind = "box"
)

// Shape is one drawn element. XY is a flat x,y coordinate list in database
// units; boundaries and boxes repeat the first point at the end as stored in
// the stream.
type Shape struct {
	Kind     ShapeKind
	Layer    types.Layer
	XY       []int32
	Width    int32 // paths only
	PathType int16 // 0 flush, 1 round, 2 square-extended
}

// Ref is a placement of another cell, single (SREF) or arrayed (AREF).
type Ref struct {
	Target  string
	Reflect bool    // mirror about the x axis, applied before rotation
	Mag     float64 // 0 means 1
	Angle   float64 // degrees counter-clockwise
	X, Y    int32
	Cols    int16
	Rows    int16
	ColVec  geom.Point // per-column displacement in parent coordinates
	RowVec  geom.Point // per-row displacement in parent coordinates
}

type Cell struct {
	Name   string
	Shapes []Shape
	Refs   []Ref
}

// AddBoundary appends a closed polygon. The closing point is optional; the
// writer emits it either way.
func (c *Cell) AddBoundary(layer types.Layer, xy ...int32) {
	c.Shapes = append(c.Shapes, Shape{Kind: ShapeBoundary, Layer: layer, XY: xy})
}

// AddRect appends an axis-aligned rectangle boundary.
func (c *Cell) AddRect(layer types.Layer, x0, y0, x1, y1 int32) {
	c.AddBoundary(layer, x0, y0, x1, y0, x1, y1, x0, y1)
}

// AddPath appends a wire path.
func (c *Cell) AddPath(layer types.Layer, width int32, pathType int16, xy ...int32) {
	c.Shapes = append(c.Shapes, Shape{Kind: ShapePath, Layer: layer, XY: xy, Width: width, PathType: pathType})
}

// AddRef appends a single placement of target at (x, y).
func (c *Cell) AddRef(target string, x, y int32) {
	c.Refs = append(c.Refs, Ref{Target: target, X: x, Y: y})
}

// Library is one loaded (or under-construction) layout.
type Library struct {
	Name string
	// DBU is the database unit in microns (klayout convention).
	DBU   float64
	Cells []*Cell

	index map[string]*Cell
}

func NewLibrary(name string, dbu float64) *Library {
	return &Library{Name: name, DBU: dbu, index: make(map[string]*Cell)}
}

// NewCell creates, registers and returns a cell.
func (l *Library) NewCell(name string) *Cell {
	c := &Cell{Name: name}
	l.addCell(c)
	return c
}

func (l *Library) addCell(c *Cell) {
	if l.index == nil {
		l.index = make(map[string]*Cell)
	}
	l.Cells = append(l.Cells, c)
	l.index[c.Name] = c
}

// Cell returns the named cell or nil.
func (l *Library) Cell(name string) *Cell {
	return l.index[name]
}

// TopCells returns the sorted names of cells not referenced by any other cell.
func (l *Library) TopCells() []string {
	referenced := make(map[string]bool)
	for _, c := range l.Cells {
		for _, r := range c.Refs {
			referenced[r.Target] = true
		}
	}
	var tops []string
	for _, c := range l.Cells {
		if !referenced[c.Name] {
			tops = append(tops, c.Name)
		}
	}
	sort.Strings(tops)
	return tops
}

// Layers returns the sorted set of (number, datatype) pairs drawn on by any
// shape in any cell.
func (l *Library) Layers() []types.Layer {
	seen := make(map[types.Layer]bool)
	for _, c := range l.Cells {
		for _, s := range c.Shapes {
			seen[s.Layer] = true
		}
	}
	layers := make([]types.Layer, 0, len(seen))
	for layer := range seen {
		layers = append(layers, layer)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].Less(layers[j]) })
	return layers
}

// xform is a 2D affine transform: x' = a*x + b*y + e, y' = c*x + d*y + f.
type xform struct {
	a, b, cc, d, e, f float64
}

var identity = xform{a: 1, d: 1}

func (t xform) apply(p geom.Point) geom.Point {
	return geom.Point{
		X: t.a*p.X + t.b*p.Y + t.e,
		Y: t.cc*p.X + t.d*p.Y + t.f,
	}
}

// compose returns parent applied after child.
func compose(parent, child xform) xform {
	return xform{
		a:  parent.a*child.a + parent.b*child.cc,
		b:  parent.a*child.b + parent.b*child.d,
		cc: parent.cc*child.a + parent.d*child.cc,
		d:  parent.cc*child.b + parent.d*child.d,
		e:  parent.a*child.e + parent.b*child.f + parent.e,
		f:  parent.cc*child.e + parent.d*child.f + parent.f,
	}
}

// refXform builds the placement transform: reflect, then rotate and magnify,
// then translate.
func refXform(r Ref, dx, dy float64) xform {
	m := r.Mag
	if m == 0 {
		m = 1
	}
	theta := r.Angle * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	t := xform{
		a: m * cos, b: -m * sin,
		cc: m * sin, d: m * cos,
		e: float64(r.X) + dx, f: float64(r.Y) + dy,
	}
	if r.Reflect {
		// Mirror about the x axis before rotation: negate the y column.
		t.b, t.d = -t.b, -t.d
	}
	return t
}

// Polygons flattens all geometry under cell on the given layer, recursing
// through references, and returns polygon outlines in database units. Paths
// are converted to their outlines; an empty result is not an error.
func (l *Library) Polygons(cell string, layer types.Layer) ([][]geom.Point, error) {
	c := l.Cell(cell)
	if c == nil {
		return nil, fmt.Errorf("cell %q not found in library %q", cell, l.Name)
	}
	var out [][]geom.Point
	if err := l.flatten(c, layer, identity, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Library) flatten(c *Cell, layer types.Layer, t xform, depth int, out *[][]geom.Point) error {
	if depth > maxRefDepth {
		return fmt.Errorf("reference depth exceeds %d under cell %q; hierarchy is cyclic or corrupt", maxRefDepth, c.Name)
	}
	for _, s := range c.Shapes {
		if s.Layer != layer {
			continue
		}
		outline := shapeOutline(s)
		if len(outline) < 3 {
			continue
		}
		for i, p := range outline {
			outline[i] = t.apply(p)
		}
		*out = append(*out, outline)
	}
	for _, r := range c.Refs {
		child := l.Cell(r.Target)
		if child == nil {
			return fmt.Errorf("cell %q references unknown cell %q", c.Name, r.Target)
		}
		cols, rows := int(r.Cols), int(r.Rows)
		if cols < 1 {
			cols = 1
		}
		if rows < 1 {
			rows = 1
		}
		for i := 0; i < cols; i++ {
			for j := 0; j < rows; j++ {
				dx := float64(i)*r.ColVec.X + float64(j)*r.RowVec.X
				dy := float64(i)*r.ColVec.Y + float64(j)*r.RowVec.Y
				inst := compose(t, refXform(r, dx, dy))
				if err := l.flatten(child, layer, inst, depth+1, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// shapeOutline converts a shape into a polygon outline in cell coordinates.
// Round path ends (pathtype 1) are handled as square-extended; exact round
// caps matter less than end coverage for difference checking.
func shapeOutline(s Shape) []geom.Point {
	pts := make([]geom.Point, 0, len(s.XY)/2)
	for i := 0; i+1 < len(s.XY); i += 2 {
		pts = append(pts, geom.Point{X: float64(s.XY[i]), Y: float64(s.XY[i+1])})
	}
	switch s.Kind {
	case ShapeBoundary, ShapeBox:
		// Drop the explicit closing point.
		if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
			pts = pts[:len(pts)-1]
		}
		return pts
	case ShapePath:
		extend := 0.0
		if s.PathType == 1 || s.PathType == 2 {
			extend = float64(s.Width) / 2
		}
		return geom.PathOutline(pts, float64(s.Width), extend)
	}
	return nil
}
