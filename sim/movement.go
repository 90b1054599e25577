package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// AccelerationType selects the scalar speed profile a packet follows along the
// wire tangent.
type AccelerationType int

const (
	ConstantVelocity AccelerationType = iota
	Accelerating
	Decelerating
)

// Speed clamps for accelerating/decelerating profiles.
const (
	minWireSpeed = 10.0
	maxWireSpeed = 400.0
)

// Bulk packet speeds per the bulk movement rules.
const (
	bulkSmallStraightSpeed = 100.0
	bulkSmallBendSpeed     = 150.0
	bulkLargeSpeed         = 80.0
	bulkDeflectionInterval = 50.0
	bendProximity          = 25.0
)

// accelerationProfile returns the speed profile for a packet on its current
// wire, derived from the messenger identity it moves as and the compatibility
// of the port it entered through.
func accelerationProfile(p *Packet) AccelerationType {
	switch p.movementProfileType() {
	case SmallMessenger:
		if p.EntryCompatible {
			return Accelerating
		}
		return Decelerating
	case TriangleMessenger:
		if p.EntryCompatible {
			return ConstantVelocity
		}
		return Accelerating
	default:
		return ConstantVelocity
	}
}

// entrySpeed adjusts the wire entry speed for the packet's movement identity:
// square messengers launch at half speed from incompatible ports.
func entrySpeed(p *Packet, speed float64, entryCompatible bool) float64 {
	if p.movementProfileType() == SquareMessenger && !entryCompatible {
		return speed * 0.5
	}
	return speed
}

// updateWireKinematics advances every on-wire packet: speed profile, free
// integration of the movement vector, then constraint to the wire path with
// the off-wire loss rule.
func (eng *Engine) updateWireKinematics(dt float64) {
	smooth := eng.Settings.Smooth()
	for _, w := range eng.State.Level.Wires {
		if len(w.Packets) == 0 {
			continue
		}
		for _, p := range w.Packets {
			if !p.Active {
				continue
			}
			if w.ReachedDestination(p) {
				// Position is held at the port; the transfer pass moves it.
				continue
			}
			eng.advancePacketOnWire(w, p, dt, smooth)
		}
		w.Packets = removeInactive(w.Packets)
	}
}

func (eng *Engine) advancePacketOnWire(w *WireConnection, p *Packet, dt float64, smooth bool) {
	p.TravelTime += dt
	if p.TravelTime > p.MaxTravelTime {
		p.Active = false
		logrus.Infof("packet %s exceeded max travel time on wire %s", p.ID, w.ID)
		return
	}

	speed := p.Movement.Magnitude()
	if speed <= 0 {
		speed = p.BaseSpeed
	}
	speed = eng.applySpeedProfile(w, p, speed, dt)

	dir := w.tangentAt(effectiveProgress(p), smooth)
	if p.Reversing {
		dir = dir.Scale(-1)
	}
	along := dir.Scale(speed)

	// Shockwaves and deflections live in the lateral component of the stored
	// movement vector. The perturbation displaces the packet this tick — far
	// enough off the path and the loss rule fires — then the constraint below
	// consumes it and the vector returns to the pure tangent component.
	lateral := p.Movement.Add(dir.Scale(-p.Movement.Dot(dir)))
	p.Movement = along.Add(lateral)

	if p.Type == BulkLarge {
		eng.applyBulkDeflection(p, dt, speed)
	}
	if p.Type == ConfidentialProtected {
		eng.maintainConfidentialSpacing(p, dir)
	}

	p.Position = p.Position.Add(p.Movement.Scale(dt))
	eng.constrainToWire(w, p, smooth)
	if p.Active {
		p.Movement = dir.Scale(speed)
	}
}

// applySpeedProfile returns the packet's scalar speed for this tick, honoring
// bulk speed rules, acceleration profiles, and the Aergia ability.
func (eng *Engine) applySpeedProfile(w *WireConnection, p *Packet, speed, dt float64) float64 {
	switch p.Type {
	case BulkSmall:
		if w.nearBend(p.Position) {
			return bulkSmallBendSpeed
		}
		return bulkSmallStraightSpeed
	case BulkLarge:
		return bulkLargeSpeed
	}

	if eng.accelerationSuppressed(w) {
		return speed
	}
	switch accelerationProfile(p) {
	case Accelerating:
		speed += eng.Settings.AccelerationRate * dt
	case Decelerating:
		speed -= eng.Settings.AccelerationRate * dt
	}
	return math.Max(minWireSpeed, math.Min(maxWireSpeed, speed))
}

// nearBend reports whether the position is close to any bend of the wire.
func (w *WireConnection) nearBend(pos Point2D) bool {
	for _, b := range w.Bends {
		if pos.DistanceTo(b.Position) <= bendProximity {
			return true
		}
	}
	return false
}

// applyBulkDeflection gives large bulk packets a perpendicular shove every 50
// units of travel.
func (eng *Engine) applyBulkDeflection(p *Packet, dt, speed float64) {
	before := p.DistanceTraveled
	p.DistanceTraveled += speed * dt
	if int(p.DistanceTraveled/bulkDeflectionInterval) == int(before/bulkDeflectionInterval) {
		return
	}
	r := eng.RNG.ForSubsystem(SubsystemBulk)
	side := 1.0
	if r.Float64() < 0.5 {
		side = -1.0
	}
	deflection := p.Movement.Normalize().Perpendicular().Scale(side * speed * 0.1)
	p.Movement = p.Movement.Add(deflection)
}

// maintainConfidentialSpacing nudges a protected confidential packet along its
// wire tangent to keep the configured distance from every other packet.
func (eng *Engine) maintainConfidentialSpacing(p *Packet, tangent Vec2D) {
	target := eng.Settings.ConfidentialSpacing
	var adjustment Vec2D
	count := 0
	for _, other := range eng.State.ActivePackets {
		if other == p || !other.Active {
			continue
		}
		d := p.Position.DistanceTo(other.Position)
		if d >= target || d == 0 {
			continue
		}
		away := p.Position.Sub(other.Position).Normalize()
		adjustment = adjustment.Add(away.Scale((target - d) * 0.15))
		count++
	}
	if count == 0 {
		return
	}
	adjustment = adjustment.Scale(1.0 / float64(count))
	// Best effort: only the projection onto the wire tangent applies, so the
	// packet slides forward or backward along its connection.
	p.Movement = p.Movement.Add(tangent.Scale(adjustment.Dot(tangent)))
}

// constrainToWire projects the packet back onto the wire path, or marks it lost
// when it has strayed beyond the off-wire threshold. Deviation exactly at the
// threshold survives.
func (eng *Engine) constrainToWire(w *WireConnection, p *Packet, smooth bool) {
	points := w.PathPoints(smooth)
	closest, ok := closestPointOnPath(points, p.Position)
	if !ok {
		return
	}
	deviation := p.Position.DistanceTo(closest)
	if deviation > eng.Settings.OffWireLossThreshold {
		p.Lost = true
		p.Active = false
		logrus.Infof("packet %s went off-wire (deviation %.1f px) and is lost", p.ID, deviation)
		return
	}
	p.Position = closest
	progress := progressAtPoint(points, closest)
	if p.Reversing {
		progress = 1 - progress
	}
	p.PathProgress = progress
}

// effectiveProgress maps the packet's stored progress to a position parameter
// on the wire path, accounting for reversal.
func effectiveProgress(p *Packet) float64 {
	if p.Reversing {
		return 1 - p.PathProgress
	}
	return p.PathProgress
}

func removeInactive(packets []*Packet) []*Packet {
	kept := packets[:0]
	for _, p := range packets {
		if p.Active {
			kept = append(kept, p)
		} else if p.WireID != "" {
			p.WireID = ""
		}
	}
	return kept
}
