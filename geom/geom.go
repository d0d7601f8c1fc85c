// Package geom provides the pure computational-geometry primitives the
// rest of topola builds on: points, circles, capsules (width-carrying
// segments) and arc-capsules (width-carrying bends), plus the
// tangent-circle solver the drawing engine uses to extend loose chains.
//
// Everything here is a pure function or value type. No package in
// topola holds a lock around geom code; callers that need thread-safety
// (core) arrange it themselves.
package geom

import "math"

// Epsilon is the default tolerance used for "touching" and "parallel"
// comparisons across the package.
const Epsilon = 1e-9

// Point is a 2D coordinate in board units.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the 2D cross product (z-component) of p and q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Norm() }

// Normalized returns p scaled to unit length. Returns the zero vector
// if p is the zero vector.
func (p Point) Normalized() Point {
	n := p.Norm()
	if n < Epsilon {
		return Point{}
	}
	return p.Scale(1 / n)
}

// Rotated90 returns p rotated 90° counter-clockwise.
func (p Point) Rotated90() Point { return Point{-p.Y, p.X} }

// Angle returns the angle of p from the positive X axis, in radians,
// in (-pi, pi].
func (p Point) Angle() float64 { return math.Atan2(p.Y, p.X) }

// Circle is a center and radius.
type Circle struct {
	Pos Point
	R   float64
}

// Inflated returns c with its radius grown by delta (can be negative).
func (c Circle) Inflated(delta float64) Circle {
	return Circle{Pos: c.Pos, R: c.R + delta}
}

// AABB is an axis-aligned bounding box, inclusive on both ends.
type AABB struct {
	MinX, MinY, MaxX, MaxY float64
}

// Union returns the smallest AABB containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		MinX: math.Min(a.MinX, b.MinX),
		MinY: math.Min(a.MinY, b.MinY),
		MaxX: math.Max(a.MaxX, b.MaxX),
		MaxY: math.Max(a.MaxY, b.MaxY),
	}
}

// Inflated returns a grown by delta on every side.
func (a AABB) Inflated(delta float64) AABB {
	return AABB{a.MinX - delta, a.MinY - delta, a.MaxX + delta, a.MaxY + delta}
}

// Intersects reports whether a and b overlap (touching counts as overlap).
func (a AABB) Intersects(b AABB) bool {
	return a.MinX <= b.MaxX && b.MinX <= a.MaxX && a.MinY <= b.MaxY && b.MinY <= a.MaxY
}

// Bounds returns the AABB of the circle.
func (c Circle) Bounds() AABB {
	return AABB{c.Pos.X - c.R, c.Pos.Y - c.R, c.Pos.X + c.R, c.Pos.Y + c.R}
}

// Capsule is a width-carrying straight segment between two points —
// the shape of a Seg primitive.
type Capsule struct {
	From, To Point
	Width    float64
}

// Length returns the centerline length of the capsule.
func (c Capsule) Length() float64 { return c.From.Dist(c.To) }

// Bounds returns the AABB of the capsule (centerline box inflated by
// half-width).
func (c Capsule) Bounds() AABB {
	r := c.Width / 2
	return AABB{
		MinX: math.Min(c.From.X, c.To.X) - r,
		MinY: math.Min(c.From.Y, c.To.Y) - r,
		MaxX: math.Max(c.From.X, c.To.X) + r,
		MaxY: math.Max(c.From.Y, c.To.Y) + r,
	}
}

// DistToSegment returns the shortest distance from p to the capsule's
// centerline segment.
func DistToSegment(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Epsilon*Epsilon {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := a.Add(ab.Scale(t))
	return p.Dist(proj)
}

// DistTo returns the shortest distance between capsule centerlines,
// minus nothing — callers subtract combined half-widths themselves
// (clearance math belongs to rules, not geom).
func (c Capsule) DistTo(o Capsule) float64 {
	return segSegDist(c.From, c.To, o.From, o.To)
}

// DistToCircle returns the shortest distance from the capsule's
// centerline to the circle's center.
func (c Capsule) DistToCircle(circle Circle) float64 {
	return DistToSegment(circle.Pos, c.From, c.To)
}

func segSegDist(p1, p2, p3, p4 Point) float64 {
	if segmentsIntersect(p1, p2, p3, p4) {
		return 0
	}
	d1 := DistToSegment(p1, p3, p4)
	d2 := DistToSegment(p2, p3, p4)
	d3 := DistToSegment(p3, p1, p2)
	d4 := DistToSegment(p4, p1, p2)
	return math.Min(math.Min(d1, d2), math.Min(d3, d4))
}

func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := direction(p3, p4, p1)
	d2 := direction(p3, p4, p2)
	d3 := direction(p1, p2, p3)
	d4 := direction(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if math.Abs(d1) < Epsilon && onSegment(p3, p4, p1) {
		return true
	}
	if math.Abs(d2) < Epsilon && onSegment(p3, p4, p2) {
		return true
	}
	if math.Abs(d3) < Epsilon && onSegment(p1, p2, p3) {
		return true
	}
	if math.Abs(d4) < Epsilon && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

func direction(a, b, c Point) float64 { return b.Sub(a).Cross(c.Sub(a)) }

func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X)-Epsilon <= p.X && p.X <= math.Max(a.X, b.X)+Epsilon &&
		math.Min(a.Y, b.Y)-Epsilon <= p.Y && p.Y <= math.Max(a.Y, b.Y)+Epsilon
}

// Arc is a width-carrying circular-arc capsule — the shape of a Bend
// primitive. It wraps around Center at
// radius R, spanning the shorter arc between the two tangent points
// From and To, in the direction given by CW.
type Arc struct {
	Center   Point
	R        float64
	From, To Point
	CW       bool
	Width    float64
}

// Length returns the arc length (spanned angle times radius).
func (a Arc) Length() float64 {
	return a.SpanAngle() * a.R
}

// SpanAngle returns the (non-negative, <= 2*pi) angle spanned by the
// arc between From and To in the arc's chosen direction.
func (a Arc) SpanAngle() float64 {
	a1 := a.From.Sub(a.Center).Angle()
	a2 := a.To.Sub(a.Center).Angle()
	var delta float64
	if a.CW {
		delta = a1 - a2
	} else {
		delta = a2 - a1
	}
	for delta < 0 {
		delta += 2 * math.Pi
	}
	for delta > 2*math.Pi {
		delta -= 2 * math.Pi
	}
	return delta
}

// Bounds returns a conservative AABB for the arc: the bounding box of
// the full circle inflated by half-width. Tighter bounds would need to
// account for which quadrants the arc actually spans; the geometry
// store treats this slack as acceptable since it only drives the
// R-tree query envelope, and infringement checks fall back to exact
// distance tests.
func (a Arc) Bounds() AABB {
	r := a.R + a.Width/2
	return AABB{a.Center.X - r, a.Center.Y - r, a.Center.X + r, a.Center.Y + r}
}

// DistToPoint returns the shortest distance from p to the arc's
// centerline (the circular arc itself, not the full circle), accounting
// for which side of From/To the nearest point on the full circle falls.
func (a Arc) DistToPoint(p Point) float64 {
	v := p.Sub(a.Center)
	d := v.Norm()
	if d < Epsilon {
		// Center itself: every arc point is R away.
		return a.R
	}
	ang := v.Angle()
	if angleOnArc(ang, a) {
		return math.Abs(d - a.R)
	}
	return math.Min(p.Dist(a.From), p.Dist(a.To))
}

// Sample returns n points evenly spaced along the arc's centerline,
// including both endpoints (n must be >= 2). Used where an exact
// closed-form distance to an arc is impractical (arc-to-segment,
// arc-to-arc); callers accept the resulting distance as an
// approximation bounded by the sampling density.
func (a Arc) Sample(n int) []Point {
	if n < 2 {
		n = 2
	}
	span := a.SpanAngle()
	a1 := a.From.Sub(a.Center).Angle()
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		var ang float64
		if a.CW {
			ang = a1 - t*span
		} else {
			ang = a1 + t*span
		}
		pts[i] = a.Center.Add(Point{math.Cos(ang) * a.R, math.Sin(ang) * a.R})
	}
	return pts
}

func angleOnArc(ang float64, a Arc) bool {
	a1 := a.From.Sub(a.Center).Angle()
	a2 := a.To.Sub(a.Center).Angle()
	norm := func(x float64) float64 {
		for x < 0 {
			x += 2 * math.Pi
		}
		for x >= 2*math.Pi {
			x -= 2 * math.Pi
		}
		return x
	}
	a1, a2, ang = norm(a1), norm(a2), norm(ang)
	if a.CW {
		a1, a2 = a2, a1
	}
	if a1 <= a2 {
		return ang >= a1-Epsilon && ang <= a2+Epsilon
	}
	// wraps through 0
	return ang >= a1-Epsilon || ang <= a2+Epsilon
}
