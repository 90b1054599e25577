package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(points ...Point2D) []Point2D { return points }

func TestBuildPathPoints_TwoPointsDegeneratesToLine(t *testing.T) {
	control := line(Point2D{X: 0, Y: 0}, Point2D{X: 100, Y: 0})
	for _, smooth := range []bool{false, true} {
		got := buildPathPoints(control, smooth)
		require.Len(t, got, 2)
		assert.Equal(t, control[0], got[0])
		assert.Equal(t, control[1], got[1])
	}
}

func TestBuildPathPoints_BendIsPinnedOnSmoothPath(t *testing.T) {
	// GIVEN one bend off the straight line
	control := line(Point2D{X: 0, Y: 0}, Point2D{X: 50, Y: 40}, Point2D{X: 100, Y: 0})

	// WHEN the smooth path is sampled
	points := buildPathPoints(control, true)

	// THEN the bend lies exactly on the path (within sampling epsilon)
	closest, ok := closestPointOnPath(points, control[1])
	require.True(t, ok)
	assert.InDelta(t, 0.0, closest.DistanceTo(control[1]), 0.5)
}

func TestBuildPathPoints_CatmullRomPinsAllBends(t *testing.T) {
	control := line(
		Point2D{X: 0, Y: 0},
		Point2D{X: 40, Y: 30},
		Point2D{X: 90, Y: -20},
		Point2D{X: 140, Y: 10},
		Point2D{X: 200, Y: 0},
	)
	points := buildPathPoints(control, true)
	for i, c := range control {
		closest, ok := closestPointOnPath(points, c)
		require.True(t, ok)
		assert.InDeltaf(t, 0.0, closest.DistanceTo(c), 0.5, "control point %d off path", i)
	}
}

func TestPathLength_Polyline(t *testing.T) {
	points := line(Point2D{X: 0, Y: 0}, Point2D{X: 30, Y: 0}, Point2D{X: 30, Y: 40})
	assert.InDelta(t, 70.0, pathLength(points), 1e-9)
}

func TestSmoothSteps_AdaptiveSampling(t *testing.T) {
	// steps = max(15, len/5)
	assert.Equal(t, 15, smoothSteps(10))
	assert.Equal(t, 15, smoothSteps(75))
	assert.Equal(t, 40, smoothSteps(200))
}

func TestPositionAtProgress_Endpoints(t *testing.T) {
	points := line(Point2D{X: 0, Y: 0}, Point2D{X: 60, Y: 0}, Point2D{X: 60, Y: 80})

	assert.Equal(t, points[0], positionAtProgress(points, 0))
	assert.Equal(t, points[2], positionAtProgress(points, 1))
	// Clamped outside [0,1]
	assert.Equal(t, points[0], positionAtProgress(points, -0.5))
	assert.Equal(t, points[2], positionAtProgress(points, 1.5))
}

func TestPositionAtProgress_ArcLengthLinear(t *testing.T) {
	// Total length 140: progress 0.5 lands 70 along, i.e. 10 into the second leg.
	points := line(Point2D{X: 0, Y: 0}, Point2D{X: 60, Y: 0}, Point2D{X: 60, Y: 80})
	got := positionAtProgress(points, 0.5)
	assert.InDelta(t, 60.0, got.X, 1e-9)
	assert.InDelta(t, 10.0, got.Y, 1e-9)
}

func TestProgressAtPoint_RoundTrip(t *testing.T) {
	points := line(Point2D{X: 0, Y: 0}, Point2D{X: 100, Y: 0}, Point2D{X: 100, Y: 100})
	for _, p := range []float64{0, 0.25, 0.5, 0.75, 1} {
		pos := positionAtProgress(points, p)
		assert.InDeltaf(t, p, progressAtPoint(points, pos), 1e-6, "progress %v", p)
	}
}

func TestClosestPointOnPath(t *testing.T) {
	points := line(Point2D{X: 0, Y: 0}, Point2D{X: 100, Y: 0})
	closest, ok := closestPointOnPath(points, Point2D{X: 40, Y: 25})
	require.True(t, ok)
	assert.Equal(t, Point2D{X: 40, Y: 0}, closest)

	_, ok = closestPointOnPath(nil, Point2D{})
	assert.False(t, ok)
}

func TestNearestSegmentIndex(t *testing.T) {
	control := line(Point2D{X: 0, Y: 0}, Point2D{X: 50, Y: 0}, Point2D{X: 100, Y: 0})
	assert.Equal(t, 0, nearestSegmentIndex(control, Point2D{X: 10, Y: 5}))
	assert.Equal(t, 1, nearestSegmentIndex(control, Point2D{X: 90, Y: -5}))
}
