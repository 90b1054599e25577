package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AbilityType names the runtime abilities the engine honors. The shop/economy
// that sells them is out of scope; activation is an engine API.
type AbilityType string

const (
	// AbilityAnahita zeroes the noise level of every active packet (instant).
	AbilityAnahita AbilityType = "ANAHITA"
	// AbilityAtar suppresses collision shockwaves while active.
	AbilityAtar AbilityType = "ATAR"
	// AbilityAiryaman suppresses collisions entirely while active.
	AbilityAiryaman AbilityType = "AIRYAMAN"
	// AbilityAergia zeroes acceleration on a targeted wire while active.
	AbilityAergia AbilityType = "AERGIA"
	// AbilitySisyphus grants one system move while the simulation runs.
	AbilitySisyphus AbilityType = "SISYPHUS"
	// AbilityEliphas continuously realigns packets to the wire center while
	// active.
	AbilityEliphas AbilityType = "ELIPHAS"
)

const (
	abilityDuration = 10.0
	abilityCooldown = 30.0
)

// activeAbility is a running timed effect.
type activeAbility struct {
	Type      AbilityType
	WireID    string
	Remaining float64
}

// ActivateAbility starts an ability effect. Timed abilities run for a fixed
// duration; wireID targets Aergia. Returns an error while the ability cools
// down.
func (eng *Engine) ActivateAbility(t AbilityType, wireID string) error {
	if remaining, ok := eng.abilityCooldowns[t]; ok && remaining > 0 {
		return fmt.Errorf("ability %s on cooldown for another %.1fs", t, remaining)
	}
	if t == AbilityAergia && eng.State.Level.WireByID(wireID) == nil {
		return fmt.Errorf("ability %s targets unknown wire %q", t, wireID)
	}
	eng.abilityCooldowns[t] = abilityCooldown

	switch t {
	case AbilityAnahita:
		for _, p := range eng.State.ActivePackets {
			if p.Active {
				p.Noise = 0
			}
		}
	case AbilitySisyphus:
		eng.sisyphusCharges++
	case AbilityAergia:
		eng.activeAbilities = append(eng.activeAbilities,
			&activeAbility{Type: t, WireID: wireID, Remaining: abilityDuration})
	default:
		eng.activeAbilities = append(eng.activeAbilities,
			&activeAbility{Type: t, Remaining: abilityDuration})
	}
	logrus.Infof("ability %s activated", t)
	return nil
}

// updateAbilities advances effect and cooldown timers.
func (eng *Engine) updateAbilities(dt float64) {
	kept := eng.activeAbilities[:0]
	for _, a := range eng.activeAbilities {
		a.Remaining -= dt
		if a.Remaining > 0 {
			kept = append(kept, a)
		}
	}
	eng.activeAbilities = kept

	for t, remaining := range eng.abilityCooldowns {
		remaining -= dt
		if remaining <= 0 {
			delete(eng.abilityCooldowns, t)
		} else {
			eng.abilityCooldowns[t] = remaining
		}
	}
}

// abilityActive reports whether a timed ability is running.
func (eng *Engine) abilityActive(t AbilityType) bool {
	for _, a := range eng.activeAbilities {
		if a.Type == t {
			return true
		}
	}
	return false
}

// accelerationSuppressed reports whether Aergia pins speeds on the given wire.
func (eng *Engine) accelerationSuppressed(w *WireConnection) bool {
	for _, a := range eng.activeAbilities {
		if a.Type == AbilityAergia && a.WireID == w.ID {
			return true
		}
	}
	return false
}

// applyEliphas strips lateral perturbation so packets hug the wire center.
func (eng *Engine) applyEliphas() {
	if !eng.abilityActive(AbilityEliphas) {
		return
	}
	smooth := eng.Settings.Smooth()
	for _, w := range eng.State.Level.Wires {
		for _, p := range w.Packets {
			if !p.Active {
				continue
			}
			if closest, ok := closestPointOnPath(w.PathPoints(smooth), p.Position); ok {
				p.Position = closest
			}
		}
	}
}
