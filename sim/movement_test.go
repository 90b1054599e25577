package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccelerationProfile(t *testing.T) {
	tests := []struct {
		name       string
		packetType PacketType
		compatible bool
		want       AccelerationType
	}{
		{"small from compatible accelerates", SmallMessenger, true, Accelerating},
		{"small from incompatible decelerates", SmallMessenger, false, Decelerating},
		{"triangle from compatible is constant", TriangleMessenger, true, ConstantVelocity},
		{"triangle from incompatible accelerates", TriangleMessenger, false, Accelerating},
		{"square is always constant", SquareMessenger, false, ConstantVelocity},
		{"bit packets move as small messengers", BitPacket, false, Decelerating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPacket("p", tt.packetType, Point2D{})
			p.EntryCompatible = tt.compatible
			assert.Equal(t, tt.want, accelerationProfile(p))
		})
	}
}

func TestEntrySpeed_SquareHalvesFromIncompatible(t *testing.T) {
	p := NewPacket("p", SquareMessenger, Point2D{})
	assert.Equal(t, 50.0, entrySpeed(p, 50, true))
	assert.Equal(t, 25.0, entrySpeed(p, 50, false))

	q := NewPacket("q", TriangleMessenger, Point2D{})
	assert.Equal(t, 50.0, entrySpeed(q, 50, false))

	// A protected packet imitating a square messenger obeys the square rule.
	pr := NewPacket("pr", TriangleMessenger, Point2D{})
	pr.ConvertToProtected(testRNG())
	pr.MovementType = SquareMessenger
	assert.Equal(t, 25.0, entrySpeed(pr, 50, false))
	pr.MovementType = TriangleMessenger
	assert.Equal(t, 50.0, entrySpeed(pr, 50, false))
}

func TestAccelerationProfile_ProtectedFollowsImitatedType(t *testing.T) {
	p := NewPacket("p", SquareMessenger, Point2D{})
	p.ConvertToProtected(testRNG())
	p.EntryCompatible = false

	p.MovementType = SmallMessenger
	assert.Equal(t, Decelerating, accelerationProfile(p))
	p.MovementType = TriangleMessenger
	assert.Equal(t, Accelerating, accelerationProfile(p))
	p.MovementType = SquareMessenger
	assert.Equal(t, ConstantVelocity, accelerationProfile(p))
}

func TestUpdateWireKinematics_AdvancesAlongPath(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", SquareMessenger, Point2D{})
	require.True(t, w.AcceptPacket(p, nil, eng.Settings.Smooth(), eng.RNG))
	eng.State.ActivePackets = []*Packet{p}

	startX := p.Position.X
	eng.updateWireKinematics(0.5)

	// Square messenger at 50 px/s: about 25 px of progress.
	assert.InDelta(t, startX+25, p.Position.X, 1.0)
	assert.Greater(t, p.PathProgress, 0.0)
	assert.InDelta(t, 200.0, p.Position.Y, 1e-6)
}

func TestUpdateWireKinematics_SmallMessengerAccelerates(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", SmallMessenger, Point2D{})
	require.True(t, w.AcceptPacket(p, nil, eng.Settings.Smooth(), eng.RNG))

	eng.updateWireKinematics(0.5)
	speedAfterFirst := p.Movement.Magnitude()
	eng.updateWireKinematics(0.5)
	speedAfterSecond := p.Movement.Magnitude()

	assert.Greater(t, speedAfterFirst, DefaultBaseSpeed)
	assert.Greater(t, speedAfterSecond, speedAfterFirst)
}

func TestUpdateWireKinematics_DecelerationClampsAtMinimum(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", SmallMessenger, Point2D{})
	// A square departure port is incompatible for the small-messenger profile.
	require.True(t, w.AcceptPacket(p, &Port{Shape: Square}, eng.Settings.Smooth(), eng.RNG))

	for i := 0; i < 10; i++ {
		eng.updateWireKinematics(0.5)
	}
	assert.GreaterOrEqual(t, p.Movement.Magnitude(), minWireSpeed-1e-9)
}

func TestUpdateWireKinematics_TravelTimeExpiryDestroys(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", SquareMessenger, Point2D{})
	require.True(t, w.AcceptPacket(p, nil, eng.Settings.Smooth(), eng.RNG))
	p.MaxTravelTime = 0.3

	eng.updateWireKinematics(0.2)
	assert.True(t, p.Active)
	eng.updateWireKinematics(0.2)
	assert.False(t, p.Active)
	assert.Empty(t, w.Packets, "expired packet leaves the wire")
}

func TestConstrainToWire_OffWireLossBoundary(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	threshold := eng.Settings.OffWireLossThreshold

	// Deviation exactly at the threshold snaps back and survives.
	at := NewPacket("at", SquareMessenger, Point2D{})
	require.True(t, w.AcceptPacket(at, nil, eng.Settings.Smooth(), eng.RNG))
	at.Position = Point2D{X: 150, Y: 200 + threshold}
	eng.constrainToWire(w, at, eng.Settings.Smooth())
	assert.True(t, at.Active)
	assert.InDelta(t, 200.0, at.Position.Y, 1e-9)
	at.Active = false
	w.RemovePacket(at)

	// Deviation above the threshold is lost.
	over := NewPacket("over", SquareMessenger, Point2D{})
	require.True(t, w.AcceptPacket(over, nil, eng.Settings.Smooth(), eng.RNG))
	over.Position = Point2D{X: 150, Y: 200 + threshold + 0.001}
	eng.constrainToWire(w, over, eng.Settings.Smooth())
	assert.False(t, over.Active)
	assert.True(t, over.Lost)
}

func TestUpdateWireKinematics_BulkSmallSpeeds(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", BulkSmall, Point2D{})
	require.True(t, w.AcceptPacket(p, nil, eng.Settings.Smooth(), eng.RNG))

	eng.updateWireKinematics(0.1)
	assert.InDelta(t, bulkSmallStraightSpeed, p.Movement.Magnitude(), 1e-6)

	// Near a bend the same packet accelerates.
	_, ok := w.AddBend(Point2D{X: 100, Y: 200})
	require.True(t, ok)
	p.Position = Point2D{X: 100, Y: 200}
	eng.updateWireKinematics(0.1)
	assert.InDelta(t, bulkSmallBendSpeed, p.Movement.Magnitude(), 1e-6)
}

func TestUpdateWireKinematics_ReversingPacketHeadsBack(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", SquareMessenger, Point2D{})
	require.True(t, w.AcceptPacket(p, nil, eng.Settings.Smooth(), eng.RNG))

	// Walk it forward, then fail-return it.
	p.PathProgress = 0.5
	p.Position = w.PositionAtProgress(0.5, eng.Settings.Smooth())
	p.ReturnToSource()

	xBefore := p.Position.X
	eng.updateWireKinematics(0.2)
	assert.Less(t, p.Position.X, xBefore, "reversing packet moves toward the source")
}

func TestMaintainConfidentialSpacing_NudgesAlongTangent(t *testing.T) {
	eng := mustEngine(t, buildChainLevel(chainSpec{Square, Square}, false), 1)
	w := eng.Level().WireByID("wire-001")
	p := NewPacket("p", ConfidentialProtected, Point2D{})
	require.True(t, w.AcceptPacket(p, nil, eng.Settings.Smooth(), eng.RNG))
	p.Position = Point2D{X: 150, Y: 200}

	// A crowding packet just ahead pushes the confidential one backward.
	crowd := NewPacket("crowd", SquareMessenger, Point2D{X: 160, Y: 200})
	eng.State.ActivePackets = []*Packet{p, crowd}

	before := p.Movement.X
	eng.maintainConfidentialSpacing(p, Vec2D{X: 1})
	assert.Less(t, p.Movement.X, before)
}
