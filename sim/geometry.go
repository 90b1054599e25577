package sim

import "math"

// Point2D is a position in level coordinates (pixels).
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Vec2D is a 2D vector, used for packet movement (pixels/second).
type Vec2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by v.
func (p Point2D) Add(v Vec2D) Point2D {
	return Point2D{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the vector from q to p.
func (p Point2D) Sub(q Point2D) Vec2D {
	return Vec2D{X: p.X - q.X, Y: p.Y - q.Y}
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point2D) DistanceTo(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Lerp interpolates between p and q at parameter t in [0,1].
func (p Point2D) Lerp(q Point2D, t float64) Point2D {
	return Point2D{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
	}
}

// Add returns the component-wise sum of v and w.
func (v Vec2D) Add(w Vec2D) Vec2D {
	return Vec2D{X: v.X + w.X, Y: v.Y + w.Y}
}

// Scale returns v multiplied by s.
func (v Vec2D) Scale(s float64) Vec2D {
	return Vec2D{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of v and w.
func (v Vec2D) Dot(w Vec2D) float64 {
	return v.X*w.X + v.Y*w.Y
}

// Magnitude returns the length of v.
func (v Vec2D) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns v scaled to unit length. The zero vector normalizes to itself.
func (v Vec2D) Normalize() Vec2D {
	m := v.Magnitude()
	if m == 0 {
		return Vec2D{}
	}
	return Vec2D{X: v.X / m, Y: v.Y / m}
}

// Perpendicular returns v rotated 90 degrees counter-clockwise.
func (v Vec2D) Perpendicular() Vec2D {
	return Vec2D{X: -v.Y, Y: v.X}
}

// Rect is an axis-aligned bounding box. Systems occupy a 40x40 rect centered
// on their position.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether the point (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// segmentIntersectsRect reports whether the segment a-b crosses r, using
// Liang-Barsky clipping.
func segmentIntersectsRect(a, b Point2D, r Rect) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y

	if math.Abs(dx) < 1e-10 {
		if a.X < r.MinX || a.X > r.MaxX {
			return false
		}
		return !(a.Y > r.MaxY && b.Y > r.MaxY) && !(a.Y < r.MinY && b.Y < r.MinY)
	}
	if math.Abs(dy) < 1e-10 {
		if a.Y < r.MinY || a.Y > r.MaxY {
			return false
		}
		return !(a.X > r.MaxX && b.X > r.MaxX) && !(a.X < r.MinX && b.X < r.MinX)
	}

	u1 := math.Inf(-1)
	u2 := math.Inf(1)
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			u1 = math.Max(u1, r)
		} else {
			u2 = math.Min(u2, r)
		}
		return true
	}
	if !clip(-dx, a.X-r.MinX) || !clip(dx, r.MaxX-a.X) ||
		!clip(-dy, a.Y-r.MinY) || !clip(dy, r.MaxY-a.Y) {
		return false
	}
	return u1 <= u2 && u2 >= 0 && u1 <= 1
}

// closestPointOnSegment projects target onto the segment a-b, clamped to the
// segment bounds.
func closestPointOnSegment(a, b, target Point2D) Point2D {
	seg := b.Sub(a)
	lenSq := seg.Dot(seg)
	if lenSq == 0 {
		return a
	}
	t := target.Sub(a).Dot(seg) / lenSq
	t = math.Max(0, math.Min(1, t))
	return a.Lerp(b, t)
}
