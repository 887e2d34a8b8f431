package geom

import "math"

// PathOutline converts a wire path into its polygon outline. width is the
// full wire width; extend lengthens both ends along the path direction
// (0 for flush ends, width/2 for square-extended ends). Joints are mitered.
// Returns nil for degenerate inputs.
func PathOutline(pts []Point, width, extend float64) []Point {
	if width <= 0 {
		return nil
	}
	// Collapse coincident consecutive points.
	clean := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(clean) == 0 || clean[len(clean)-1] != p {
			clean = append(clean, p)
		}
	}
	if len(clean) < 2 {
		return nil
	}
	if extend > 0 {
		first, second := clean[0], clean[1]
		dx, dy := first.X-second.X, first.Y-second.Y
		l := math.Hypot(dx, dy)
		clean[0] = Point{first.X + dx/l*extend, first.Y + dy/l*extend}

		last, prev := clean[len(clean)-1], clean[len(clean)-2]
		dx, dy = last.X-prev.X, last.Y-prev.Y
		l = math.Hypot(dx, dy)
		clean[len(clean)-1] = Point{last.X + dx/l*extend, last.Y + dy/l*extend}
	}

	half := width / 2
	left := offsetPolyline(clean, half)
	right := offsetPolyline(clean, -half)
	outline := make([]Point, 0, len(left)+len(right))
	outline = append(outline, left...)
	for i := len(right) - 1; i >= 0; i-- {
		outline = append(outline, right[i])
	}
	return outline
}

// offsetPolyline shifts an open polyline sideways by off (positive = left of
// travel direction) with mitered joints.
func offsetPolyline(pts []Point, off float64) []Point {
	n := len(pts)
	type line struct{ px, py, dx, dy float64 }
	lines := make([]line, 0, n-1)
	for i := 0; i < n-1; i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l, dx/l
		lines = append(lines, line{a.X + nx*off, a.Y + ny*off, dx, dy})
	}
	if len(lines) == 0 {
		return nil
	}
	out := make([]Point, 0, len(lines)+1)
	out = append(out, Point{lines[0].px, lines[0].py})
	for i := 0; i < len(lines)-1; i++ {
		l1, l2 := lines[i], lines[i+1]
		det := l1.dx*l2.dy - l1.dy*l2.dx
		if math.Abs(det) < 1e-12 {
			out = append(out, Point{l2.px, l2.py})
			continue
		}
		t := ((l2.px-l1.px)*l2.dy - (l2.py-l1.py)*l2.dx) / det
		out = append(out, Point{l1.px + t*l1.dx, l1.py + t*l1.dy})
	}
	last := lines[len(lines)-1]
	out = append(out, Point{last.px + last.dx, last.py + last.dy})
	return out
}
