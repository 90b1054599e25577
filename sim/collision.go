package sim

import "github.com/sirupsen/logrus"

// Collision pass. Wires hold one packet each, so collisions happen where wire
// paths run close to each other. Two active on-wire packets within the
// collision radius destroy each other and emit a shockwave that perturbs and
// noises nearby packets. The Airyaman ability suppresses collisions entirely;
// Atar lets packets collide but mutes the shockwave.

// checkCollisions detects pairwise collisions among on-wire packets and applies
// shockwaves.
func (eng *Engine) checkCollisions() {
	if eng.abilityActive(AbilityAiryaman) {
		return
	}
	onWire := eng.packetsOnWires()
	for i := 0; i < len(onWire); i++ {
		for j := i + 1; j < len(onWire); j++ {
			a, b := onWire[i], onWire[j]
			if !a.Active || !b.Active || a.WireID == b.WireID {
				continue
			}
			if a.Position.DistanceTo(b.Position) > eng.Settings.CollisionRadius {
				continue
			}
			center := a.Position.Lerp(b.Position, 0.5)
			a.Active = false
			a.Lost = true
			b.Active = false
			b.Lost = true
			logrus.Infof("[tick %07.2f] collision between %s and %s",
				eng.State.TemporalProgress, a.ID, b.ID)
			if !eng.abilityActive(AbilityAtar) {
				eng.emitShockwave(center, onWire)
			}
		}
	}
}

// emitShockwave applies a decaying radial impulse to every active on-wire
// packet within the shockwave radius.
func (eng *Engine) emitShockwave(center Point2D, packets []*Packet) {
	radius := eng.Settings.ShockwaveRadius
	strength := eng.Settings.ShockwaveStrength
	for _, p := range packets {
		if !p.Active {
			continue
		}
		d := center.DistanceTo(p.Position)
		if d > radius {
			continue
		}
		falloff := 1.0 - d/radius
		dir := p.Position.Sub(center).Normalize()
		if dir.Magnitude() == 0 {
			dir = Vec2D{X: 1}
		}
		p.ApplyShockwave(dir.Scale(strength * falloff))
	}
}

// packetsOnWires snapshots every packet currently riding a wire.
func (eng *Engine) packetsOnWires() []*Packet {
	var out []*Packet
	for _, w := range eng.State.Level.Wires {
		out = append(out, w.Packets...)
	}
	return out
}
