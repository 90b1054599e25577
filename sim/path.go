package sim

import "math"

// Wire path construction. A wire's path runs source port → bends → destination
// port, either as a rigid polyline or as a smooth curve. Smoothing never moves
// a bend off the path: with one bend the segment pair becomes a quadratic
// Bézier pinned through the bend, with two or more bends a Catmull-Rom spline
// interpolates through every control point.

// catmullRomMinSteps is the minimum sample count per smooth segment; longer
// segments get one extra sample per 5 px.
const catmullRomMinSteps = 15

// buildPathPoints returns the sampled path through the given control points.
func buildPathPoints(control []Point2D, smooth bool) []Point2D {
	if len(control) < 2 {
		return control
	}
	if !smooth || len(control) == 2 {
		out := make([]Point2D, len(control))
		copy(out, control)
		return out
	}
	if len(control) == 3 {
		return quadraticThroughPoint(control[0], control[1], control[2])
	}
	return catmullRomSpline(control)
}

// quadraticThroughPoint samples a quadratic Bézier that passes through mid at
// t=0.5. The Bézier control point is back-solved so the bend stays pinned on
// the final path.
func quadraticThroughPoint(start, mid, end Point2D) []Point2D {
	ctrl := Point2D{
		X: 2*mid.X - (start.X+end.X)/2,
		Y: 2*mid.Y - (start.Y+end.Y)/2,
	}
	segLen := start.DistanceTo(mid) + mid.DistanceTo(end)
	steps := smoothSteps(segLen)
	points := make([]Point2D, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		omt := 1 - t
		points = append(points, Point2D{
			X: omt*omt*start.X + 2*omt*t*ctrl.X + t*t*end.X,
			Y: omt*omt*start.Y + 2*omt*t*ctrl.Y + t*t*end.Y,
		})
	}
	return points
}

// catmullRomSpline interpolates through all control points with extrapolated
// phantom endpoints so curvature flows smoothly into the ports.
func catmullRomSpline(control []Point2D) []Point2D {
	points := []Point2D{control[0]}
	for i := 0; i < len(control)-1; i++ {
		var p0, p3 Point2D
		p1 := control[i]
		p2 := control[i+1]
		if i == 0 {
			p0 = extrapolate(control[1], control[0])
		} else {
			p0 = control[i-1]
		}
		if i+2 < len(control) {
			p3 = control[i+2]
		} else {
			p3 = extrapolate(control[i], control[i+1])
		}
		seg := catmullRomSegment(p0, p1, p2, p3)
		points = append(points, seg[1:]...)
	}
	return points
}

func catmullRomSegment(p0, p1, p2, p3 Point2D) []Point2D {
	steps := smoothSteps(p1.DistanceTo(p2))
	seg := make([]Point2D, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		t2 := t * t
		t3 := t2 * t
		b0 := -0.5*t3 + t2 - 0.5*t
		b1 := 1.5*t3 - 2.5*t2 + 1.0
		b2 := -1.5*t3 + 2.0*t2 + 0.5*t
		b3 := 0.5*t3 - 0.5*t2
		seg = append(seg, Point2D{
			X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
			Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
		})
	}
	return seg
}

func extrapolate(p1, p2 Point2D) Point2D {
	return Point2D{X: p1.X - (p2.X - p1.X), Y: p1.Y - (p2.Y - p1.Y)}
}

func smoothSteps(segmentLen float64) int {
	steps := int(segmentLen / 5.0)
	if steps < catmullRomMinSteps {
		steps = catmullRomMinSteps
	}
	return steps
}

// pathLength sums segment lengths over the sampled path.
func pathLength(points []Point2D) float64 {
	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		total += points[i].DistanceTo(points[i+1])
	}
	return total
}

// positionAtProgress maps progress in [0,1] linearly over arc length, using the
// same discretization as pathLength.
func positionAtProgress(points []Point2D, progress float64) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	if len(points) == 1 {
		return points[0]
	}
	progress = math.Max(0, math.Min(1, progress))
	target := progress * pathLength(points)

	accumulated := 0.0
	for i := 0; i < len(points)-1; i++ {
		segLen := points[i].DistanceTo(points[i+1])
		if accumulated+segLen >= target && segLen > 0 {
			t := (target - accumulated) / segLen
			return points[i].Lerp(points[i+1], t)
		}
		accumulated += segLen
	}
	return points[len(points)-1]
}

// closestPointOnPath returns the nearest point on the sampled path to target.
func closestPointOnPath(points []Point2D, target Point2D) (Point2D, bool) {
	if len(points) < 2 {
		if len(points) == 1 {
			return points[0], true
		}
		return Point2D{}, false
	}
	best := points[0]
	bestDist := math.Inf(1)
	for i := 0; i < len(points)-1; i++ {
		candidate := closestPointOnSegment(points[i], points[i+1], target)
		if d := target.DistanceTo(candidate); d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	return best, true
}

// progressAtPoint returns the arc-length progress in [0,1] of the path point
// nearest to target.
func progressAtPoint(points []Point2D, target Point2D) float64 {
	total := pathLength(points)
	if total == 0 || len(points) < 2 {
		return 0
	}
	bestDist := math.Inf(1)
	bestArc := 0.0
	accumulated := 0.0
	for i := 0; i < len(points)-1; i++ {
		candidate := closestPointOnSegment(points[i], points[i+1], target)
		if d := target.DistanceTo(candidate); d < bestDist {
			bestDist = d
			bestArc = accumulated + points[i].DistanceTo(candidate)
		}
		accumulated += points[i].DistanceTo(points[i+1])
	}
	return math.Min(1, bestArc/total)
}

// nearestSegmentIndex returns the index i of the control-polyline segment
// (control[i]..control[i+1]) closest to target.
func nearestSegmentIndex(control []Point2D, target Point2D) int {
	best := 0
	bestDist := math.Inf(1)
	for i := 0; i < len(control)-1; i++ {
		candidate := closestPointOnSegment(control[i], control[i+1], target)
		if d := target.DistanceTo(candidate); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
