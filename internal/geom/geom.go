// Package geom provides the polygon region type used by the in-process
// geometry engines: boolean operations (XOR, union, intersection) on top of
// the polyclip kernel, plus the erosion operation that implements the
// comparison tolerance rule.
package geom

import (
	"encoding/binary"
	"fmt"
	"math"

	polyclip "github.com/ctessum/polyclip-go"
)

// Point is a vertex in database units.
type Point struct {
	X, Y float64
}

// Region is an ownerless set of polygons on one layer within one cell. The
// zero value is the empty region.
type Region struct {
	poly polyclip.Polygon
}

// FromPoints builds a region from polygon outlines. Outlines with fewer than
// three vertices are ignored.
func FromPoints(polygons ...[]Point) Region {
	var p polyclip.Polygon
	for _, outline := range polygons {
		if len(outline) < 3 {
			continue
		}
		c := make(polyclip.Contour, len(outline))
		for i, pt := range outline {
			c[i] = polyclip.Point{X: pt.X, Y: pt.Y}
		}
		p = append(p, c)
	}
	return Region{poly: p}
}

// Rect builds a rectangular region.
func Rect(x0, y0, x1, y1 float64) Region {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return FromPoints([]Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}})
}

// Xor returns the symmetric difference of r and other. Commutative; empty
// when both regions cover identical area.
//
// Contours that appear identically on both sides are pruned before the
// boolean kernel runs. In a regression run almost all geometry matches
// exactly, so this both skips most of the work and keeps fully coincident
// operands away from the kernel. Pruning is area-safe because engine regions
// are merged, hence internally disjoint.
func (r Region) Xor(other Region) Region {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	a, b := pruneCommon(r.poly, other.poly)
	if len(a) == 0 {
		return Region{poly: b}
	}
	if len(b) == 0 {
		return Region{poly: a}
	}
	return Region{poly: a.Construct(polyclip.XOR, b)}
}

// pruneCommon removes contour-for-contour exact matches, modulo orientation
// and starting vertex, from both operands.
func pruneCommon(a, b polyclip.Polygon) (polyclip.Polygon, polyclip.Polygon) {
	avail := make(map[string]int, len(b))
	for _, c := range b {
		avail[contourKey(c)]++
	}
	matched := make(map[string]int)
	var outA polyclip.Polygon
	for _, c := range a {
		k := contourKey(c)
		if avail[k] > 0 {
			avail[k]--
			matched[k]++
			continue
		}
		outA = append(outA, c)
	}
	var outB polyclip.Polygon
	for _, c := range b {
		k := contourKey(c)
		if matched[k] > 0 {
			matched[k]--
			continue
		}
		outB = append(outB, c)
	}
	return outA, outB
}

// contourKey is a canonical byte form of a contour: counter-clockwise,
// starting at the lexicographically smallest vertex, exact float bits.
func contourKey(c polyclip.Contour) string {
	n := len(c)
	pts := make(polyclip.Contour, n)
	copy(pts, c)
	if signedArea(pts) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	start := 0
	for i := 1; i < n; i++ {
		if pts[i].X < pts[start].X || (pts[i].X == pts[start].X && pts[i].Y < pts[start].Y) {
			start = i
		}
	}
	buf := make([]byte, 0, 16*n)
	var scratch [8]byte
	for k := 0; k < n; k++ {
		p := pts[(start+k)%n]
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(p.X))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(p.Y))
		buf = append(buf, scratch[:]...)
	}
	return string(buf)
}

// Union returns the union of r and other.
func (r Region) Union(other Region) Region {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	return Region{poly: r.poly.Construct(polyclip.UNION, other.poly)}
}

// Merge resolves overlaps between the region's own contours into a clean
// covering, divide-and-conquer over the contour list. Overlap within one
// layout is drawn-twice geometry, not a difference, so regions are merged
// before they are XORed.
func (r Region) Merge() Region {
	if len(r.poly) < 2 {
		return r
	}
	mid := len(r.poly) / 2
	a := Region{poly: r.poly[:mid]}.Merge()
	b := Region{poly: r.poly[mid:]}.Merge()
	return a.Union(b)
}

// Intersect returns the intersection of r and other.
func (r Region) Intersect(other Region) Region {
	if r.Empty() || other.Empty() {
		return Region{}
	}
	return Region{poly: r.poly.Construct(polyclip.INTERSECTION, other.poly)}
}

// Empty reports whether the region covers no area. Contours whose total area
// is below a fixed epsilon count as empty; erosion can leave degenerate
// slivers behind.
func (r Region) Empty() bool {
	return r.Area() < 1e-9
}

// Count returns the number of contours, used for difference diagnostics.
func (r Region) Count() int {
	return len(r.poly)
}

// Area returns the total unsigned area covered, holes subtracted. The boolean
// kernel returns every contour with the same orientation, so hole-ness comes
// from nesting parity rather than winding.
func (r Region) Area() float64 {
	var area float64
	for _, c := range normalizeOrientation(r.poly) {
		area += signedArea(c)
	}
	return math.Abs(area)
}

// Points returns the contours as point slices.
func (r Region) Points() [][]Point {
	out := make([][]Point, len(r.poly))
	for i, c := range r.poly {
		pts := make([]Point, len(c))
		for j, p := range c {
			pts[j] = Point{X: p.X, Y: p.Y}
		}
		out[i] = pts
	}
	return out
}

// BoundingBox returns the min and max corners of the region. Undefined for an
// empty region.
func (r Region) BoundingBox() (min, max Point) {
	first := true
	for _, c := range r.poly {
		for _, p := range c {
			if first {
				min, max = Point{p.X, p.Y}, Point{p.X, p.Y}
				first = false
				continue
			}
			min.X = math.Min(min.X, p.X)
			min.Y = math.Min(min.Y, p.Y)
			max.X = math.Max(max.X, p.X)
			max.Y = math.Max(max.Y, p.Y)
		}
	}
	return min, max
}

// Snap rounds every vertex to the given grid. Used by the polygon-boolean
// engine before XOR so both operands live on the same precision grid.
func (r Region) Snap(grid float64) Region {
	if grid <= 0 {
		return r
	}
	out := make(polyclip.Polygon, 0, len(r.poly))
	for _, c := range r.poly {
		nc := make(polyclip.Contour, len(c))
		for i, p := range c {
			nc[i] = polyclip.Point{
				X: math.Round(p.X/grid) * grid,
				Y: math.Round(p.Y/grid) * grid,
			}
		}
		out = append(out, nc)
	}
	return Region{poly: out}
}

// Fracture splits contours with more than maxPoints vertices by recursive
// bounding-box halving. Splitting moves geometry onto cut lines and is a
// precision limitation of the engine that requests it, not a correctness
// guarantee.
func (r Region) Fracture(maxPoints int) Region {
	if maxPoints <= 0 {
		return r
	}
	var out polyclip.Polygon
	for _, c := range r.poly {
		out = append(out, fractureContour(c, maxPoints, 0)...)
	}
	return Region{poly: out}
}

func fractureContour(c polyclip.Contour, maxPoints, depth int) polyclip.Polygon {
	if len(c) <= maxPoints || depth > 32 {
		return polyclip.Polygon{c}
	}
	single := polyclip.Polygon{c}
	region := Region{poly: single}
	min, max := region.BoundingBox()
	var left, right Region
	if max.X-min.X >= max.Y-min.Y {
		mid := (min.X + max.X) / 2
		left = region.Intersect(Rect(min.X-1, min.Y-1, mid, max.Y+1))
		right = region.Intersect(Rect(mid, min.Y-1, max.X+1, max.Y+1))
	} else {
		mid := (min.Y + max.Y) / 2
		left = region.Intersect(Rect(min.X-1, min.Y-1, max.X+1, mid))
		right = region.Intersect(Rect(min.X-1, mid, max.X+1, max.Y+1))
	}
	var out polyclip.Polygon
	for _, half := range []Region{left, right} {
		for _, hc := range half.poly {
			out = append(out, fractureContour(hc, maxPoints, depth+1)...)
		}
	}
	return out
}

func signedArea(c polyclip.Contour) float64 {
	var area float64
	n := len(c)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return area / 2
}

// Erode shrinks the region boundary inward by dist database units. Erosion
// never grows a region; dist 0 is the identity; negative dist is an error.
// Contours that collapse under the offset are dropped entirely, which is what
// makes a sub-tolerance XOR residue vanish.
func (r Region) Erode(dist float64) (Region, error) {
	if dist < 0 {
		return Region{}, fmt.Errorf("erosion distance must be >= 0, got %g", dist)
	}
	if dist == 0 || r.Empty() {
		return r, nil
	}
	normalized := normalizeOrientation(r.poly)
	var out polyclip.Polygon
	for _, c := range normalized {
		if eroded, ok := offsetContour(c, dist); ok {
			out = append(out, eroded)
		}
	}
	return Region{poly: out}, nil
}

// normalizeOrientation orients outer contours counter-clockwise and holes
// clockwise, so that the solid side is always to the left of each directed
// edge. Hole-ness is decided by nesting parity.
func normalizeOrientation(p polyclip.Polygon) polyclip.Polygon {
	out := make(polyclip.Polygon, len(p))
	for i, c := range p {
		depth := 0
		for j, other := range p {
			if i == j || len(other) < 3 {
				continue
			}
			if contourContains(other, c[0]) {
				depth++
			}
		}
		hole := depth%2 == 1
		ccw := signedArea(c) > 0
		nc := make(polyclip.Contour, len(c))
		copy(nc, c)
		if ccw == hole { // outer must be CCW, hole must be CW
			reverseContour(nc)
		}
		out[i] = nc
	}
	return out
}

func reverseContour(c polyclip.Contour) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

// contourContains is an even-odd ray cast of pt against c.
func contourContains(c polyclip.Contour, pt polyclip.Point) bool {
	inside := false
	n := len(c)
	for i := 0; i < n; i++ {
		a, b := c[i], c[(i+1)%n]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if x > pt.X {
				inside = !inside
			}
		}
	}
	return inside
}

// offsetContour moves every edge toward the solid side (left) by dist and
// rebuilds vertices from consecutive edge intersections. Returns false when
// the contour collapses: the rebuilt contour flips orientation or loses its
// area. Spiky non-convex residues can self-intersect under a miter offset;
// the area check filters the common degenerate outcomes and the remainder is
// a documented precision limit.
func offsetContour(c polyclip.Contour, dist float64) (polyclip.Contour, bool) {
	n := len(c)
	if n < 3 {
		return nil, false
	}
	origArea := signedArea(c)

	// Offset line for each edge: point + left-normal * dist, same direction.
	type line struct {
		px, py, dx, dy float64
	}
	lines := make([]line, 0, n)
	for i := 0; i < n; i++ {
		a, b := c[i], c[(i+1)%n]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length, dx/length // left normal
		lines = append(lines, line{
			px: a.X + nx*dist,
			py: a.Y + ny*dist,
			dx: dx, dy: dy,
		})
	}
	if len(lines) < 3 {
		return nil, false
	}

	out := make(polyclip.Contour, 0, len(lines))
	for i := range lines {
		l1 := lines[i]
		l2 := lines[(i+1)%len(lines)]
		// Intersection of the two offset lines; parallel edges share the
		// offset endpoint.
		det := l1.dx*l2.dy - l1.dy*l2.dx
		if math.Abs(det) < 1e-12 {
			out = append(out, polyclip.Point{X: l2.px, Y: l2.py})
			continue
		}
		t := ((l2.px-l1.px)*l2.dy - (l2.py-l1.py)*l2.dx) / det
		out = append(out, polyclip.Point{
			X: l1.px + t*l1.dx,
			Y: l1.py + t*l1.dy,
		})
	}

	area := signedArea(out)
	if origArea > 0 && area <= 1e-12 {
		return nil, false
	}
	if origArea < 0 && area >= -1e-12 {
		return nil, false
	}
	// A shrinking outer contour must lose area; gaining area means the miter
	// offset degenerated.
	if origArea > 0 && area > origArea {
		return nil, false
	}
	// Every rebuilt vertex must end up at least dist from the original
	// boundary, which is what erosion means. When the offset distance exceeds
	// half the contour width the edges pass through each other and rebuild an
	// inverted contour whose orientation and area can still look plausible;
	// its vertices sit closer to the boundary than dist and betray it.
	for _, p := range out {
		if distanceToContour(c, p) < dist-1e-9 {
			return nil, false
		}
	}
	return out, true
}

// distanceToContour returns the minimum distance from pt to the closed
// boundary of c.
func distanceToContour(c polyclip.Contour, pt polyclip.Point) float64 {
	min := math.Inf(1)
	n := len(c)
	for i := 0; i < n; i++ {
		if d := distanceToSegment(c[i], c[(i+1)%n], pt); d < min {
			min = d
		}
	}
	return min
}

func distanceToSegment(a, b, pt polyclip.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(pt.X-a.X, pt.Y-a.Y)
	}
	t := ((pt.X-a.X)*dx + (pt.Y-a.Y)*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(pt.X-(a.X+t*dx), pt.Y-(a.Y+t*dy))
}
