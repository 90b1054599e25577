package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// EngineMode distinguishes wiring-edit time from the running simulation.
type EngineMode int

const (
	EditingMode EngineMode = iota
	SimulationMode
)

// timeTravelStep is the substep size for rewind replay and fast-forward.
const timeTravelStep = 0.1

// Engine orchestrates the fixed per-tick pipeline over a level. Ticks are
// atomic transactions on game state; all randomness flows through the seeded
// partitioned RNG so identical seeds replay identically.
type Engine struct {
	State    *GameState
	Settings Settings
	RNG      *PartitionedRNG
	Metrics  *Metrics
	Wiring   *WiringController

	mode      EngineMode
	packetSeq int

	activeAbilities  []*activeAbility
	abilityCooldowns map[AbilityType]float64
	sisyphusCharges  int
}

// NewEngine builds an engine for the level with the given settings and seed.
// The engine starts in editing mode.
func NewEngine(level *GameLevel, settings Settings, seed int64) *Engine {
	settings.Normalize()
	eng := &Engine{
		State:            NewGameState(level, settings),
		Settings:         settings,
		RNG:              NewPartitionedRNG(NewSimulationKey(seed)),
		Metrics:          NewMetrics(),
		mode:             EditingMode,
		abilityCooldowns: make(map[AbilityType]float64),
	}
	eng.Wiring = &WiringController{eng: eng}
	return eng
}

// Level returns the engine's level.
func (eng *Engine) Level() *GameLevel { return eng.State.Level }

// Mode returns the current engine mode.
func (eng *Engine) Mode() EngineMode { return eng.mode }

// nextPacketID returns a deterministic packet identifier.
func (eng *Engine) nextPacketID() string {
	eng.packetSeq++
	return fmt.Sprintf("pkt-%06d", eng.packetSeq)
}

// EnterEditingMode opens the level for wiring edits; the tick pipeline idles.
func (eng *Engine) EnterEditingMode() {
	eng.mode = EditingMode
}

// EnterSimulationMode freezes edits, snapshots the restartable state, and
// starts the tick loop.
func (eng *Engine) EnterSimulationMode() {
	if eng.mode == SimulationMode {
		return
	}
	eng.mode = SimulationMode
	eng.State.SaveLevelStartSnapshot()
	logrus.Infof("simulation started for level %s", eng.State.Level.LevelID)
}

// SetPaused pauses or resumes the simulation clock.
func (eng *Engine) SetPaused(paused bool) {
	eng.State.Paused = paused
}

// Halted reports whether the run has terminated.
func (eng *Engine) Halted() bool {
	return eng.State.GameOver || eng.State.LevelComplete
}

// Tick advances the simulation by dt seconds through the fixed pipeline.
func (eng *Engine) Tick(dt float64) {
	if eng.mode != SimulationMode || eng.State.Paused || eng.Halted() {
		return
	}
	eng.tick(dt)

	if eng.State.CheckGameOver(eng.Settings) {
		eng.State.GameOver = true
		logrus.Warnf("[tick %07.2f] game over: %s", eng.State.TemporalProgress, eng.State.LastGameOverReason)
		return
	}
	if eng.State.CheckLevelComplete() {
		eng.State.LevelComplete = true
		logrus.Infof("[tick %07.2f] level %s complete", eng.State.TemporalProgress, eng.State.Level.LevelID)
	}
}

// tick runs the pipeline body without evaluating end conditions; time travel
// replays through it directly.
func (eng *Engine) tick(dt float64) {
	st := eng.State

	// 1. Clocks.
	st.TemporalProgress += dt
	st.LevelTimer += dt

	// 2. Scheduled injections at or before the current temporal progress.
	eng.processInjections()

	// 3. System deactivation timers.
	for _, s := range st.Level.Systems {
		s.UpdateDeactivationTimer(dt)
	}

	// 4. Wire kinematics.
	eng.updateWireKinematics(dt)
	eng.applyEliphas()

	// 5. First transfer pass: arrivals into input ports (and fresh departures
	// from output ports onto wires).
	eng.transferWirePass()

	// 6. System input processing; coins are awarded as the pending flags are
	// consumed at the instant of entry.
	eng.processSystems()

	// 7. Anti-trojan scans.
	for _, s := range st.Level.Systems {
		s.DetectAndConvertTrojans(eng)
	}

	// 8. Second transfer pass so packets forwarded this tick depart this tick.
	eng.transferWirePass()

	// 9. Storage flush, one packet per system, then push output ports to wires.
	eng.processSystemTransfers()

	// 10. Collisions among on-wire packets.
	eng.checkCollisions()

	// 11. Cleanup and loss accounting.
	eng.cleanup()

	eng.updateAbilities(dt)
}

// referenceSystemsReady gates packet flow until at least one reference output
// and one reference input port are wired.
func (eng *Engine) referenceSystemsReady() bool {
	refs := eng.State.Level.SystemsOfKind(ReferenceSystem)
	if len(refs) == 0 {
		return false
	}
	anyOutput, anyInput := false, false
	for _, s := range refs {
		for _, pt := range s.OutputPorts {
			if pt.Connected {
				anyOutput = true
			}
		}
		for _, pt := range s.InputPorts {
			if pt.Connected {
				anyInput = true
			}
		}
	}
	return anyOutput && anyInput
}

// processInjections attempts every due, unexecuted injection. Placement
// failures defer the injection to a later tick rather than erroring.
func (eng *Engine) processInjections() {
	st := eng.State
	if !eng.referenceSystemsReady() {
		return
	}
	for _, inj := range st.Level.PacketSchedule {
		if inj.Executed || inj.Time > st.TemporalProgress {
			continue
		}
		source := st.Level.SystemByID(inj.SourceID)
		if source == nil {
			continue
		}
		p := NewPacket(eng.nextPacketID(), inj.Type, source.Position)
		if eng.tryPlaceOnOutgoingWire(p, source) {
			st.ActivePackets = append(st.ActivePackets, p)
			inj.Executed = true
			eng.Metrics.InjectedPackets++
			logrus.Infof("[tick %07.2f] injected %s from %s", st.TemporalProgress, p.Type.DisplayName(), source.ID)
		} else {
			logrus.Debugf("[tick %07.2f] injection of %s deferred: no available wire", st.TemporalProgress, inj.Type)
		}
	}
}

// tryPlaceOnOutgoingWire loads the packet onto the first available wire out of
// the system, preferring compatible ports.
func (eng *Engine) tryPlaceOnOutgoingWire(p *Packet, source *System) bool {
	smooth := eng.Settings.Smooth()
	try := func(requireCompatible bool) bool {
		for _, pt := range source.OutputPorts {
			if !pt.Connected || pt.CompatibleWith(p) != requireCompatible {
				continue
			}
			w := eng.State.Level.WireFromPort(pt)
			if w == nil || !w.CanAcceptPacket() {
				continue
			}
			p.Position = pt.Position
			if w.AcceptPacket(p, pt, smooth, eng.RNG) {
				return true
			}
		}
		return false
	}
	return try(true) || try(false)
}

// transferWirePass moves packets across wire boundaries: source port → wire
// when the wire is free, and wire → destination port on arrival. Deliveries to
// reference systems finalize immediately.
func (eng *Engine) transferWirePass() {
	smooth := eng.Settings.Smooth()
	for _, w := range eng.State.Level.Wires {
		if !w.Active {
			continue
		}
		src, dst := w.Source(), w.Destination()

		if src != nil && src.Packet != nil && w.CanAcceptPacket() {
			p := src.ReleasePacket()
			w.AcceptPacket(p, src, smooth, eng.RNG)
			continue
		}

		for _, p := range w.Packets {
			if !p.Active || !w.ReachedDestination(p) {
				continue
			}
			if p.Reversing {
				eng.receiveReturnedPacket(w, p)
				continue
			}
			if dst == nil || !dst.Empty() {
				continue
			}
			w.RemovePacket(p)
			dst.AcceptPacket(p)
			p.CoinAwardPending = true
			if dst.system != nil && dst.system.Kind == ReferenceSystem {
				eng.awardCoins(p)
				dst.ReleasePacket()
				dst.system.processReference(eng, p)
			}
			break
		}
	}
}

// receiveReturnedPacket hands a reversed packet back to its source system:
// stored when space remains, lost otherwise.
func (eng *Engine) receiveReturnedPacket(w *WireConnection, p *Packet) {
	w.RemovePacket(p)
	p.Reversing = false
	src := w.Source()
	if src != nil && src.system != nil && src.system.HasStorageSpace() {
		src.system.Storage = append(src.system.Storage, p)
		logrus.Infof("packet %s returned to source system %s", p.ID, src.system.ID)
		return
	}
	p.Active = false
	p.Lost = true
}

// awardCoins consumes a pending coin award exactly once.
func (eng *Engine) awardCoins(p *Packet) {
	if !p.CoinAwardPending {
		return
	}
	p.CoinAwardPending = false
	value := p.CoinValue()
	eng.State.AddCoins(value)
	eng.Metrics.CoinsEarned += value
}

// processSystems awards entry coins and runs each system's input processing.
func (eng *Engine) processSystems() {
	for _, s := range eng.State.Level.Systems {
		for _, pt := range s.InputPorts {
			if pt.Packet != nil {
				eng.awardCoins(pt.Packet)
			}
		}
		s.ProcessInputs(eng)
	}
}

// processSystemTransfers flushes one stored packet per system to an output
// port, then pushes waiting output-port packets onto their wires.
func (eng *Engine) processSystemTransfers() {
	smooth := eng.Settings.Smooth()
	for _, s := range eng.State.Level.Systems {
		if !s.Active {
			continue
		}
		s.drainOneStoredPacket(eng)
		for _, pt := range s.OutputPorts {
			if pt.Packet == nil {
				continue
			}
			w := eng.State.Level.WireFromPort(pt)
			if w == nil || !w.CanAcceptPacket() {
				continue
			}
			p := pt.ReleasePacket()
			w.AcceptPacket(p, pt, smooth, eng.RNG)
		}
	}
}

// cleanup sweeps inactive and rule-lost packets: each is counted at most once,
// removed from the active list and from any wire holding it.
func (eng *Engine) cleanup() {
	st := eng.State
	kept := st.ActivePackets[:0]
	for _, p := range st.ActivePackets {
		lostByRule := p.Lost || p.NoiseDestroyed() || p.ExceededTravelTime()
		if p.Active && !lostByRule {
			kept = append(kept, p)
			continue
		}
		p.Active = false
		if lostByRule || (!p.ProcessedByRefSink && !p.Consumed) {
			st.LostPacketsCount++
			eng.Metrics.LostPackets++
			logrus.Debugf("packet %s counted lost (loss now %.1f%%)", p.ID, st.PacketLossPercentage())
		}
		eng.detachFromWires(p)
	}
	st.ActivePackets = kept

	for _, w := range st.Level.Wires {
		w.Packets = removeInactive(w.Packets)
	}
}

func (eng *Engine) detachFromWires(p *Packet) {
	if p.WireID == "" {
		return
	}
	if w := eng.State.Level.WireByID(p.WireID); w != nil {
		w.RemovePacket(p)
	}
}

// Run drives the simulation with a fixed step until it halts or the wall of
// duration + grace passes. Used by the CLI.
func (eng *Engine) Run(dt float64) {
	if dt <= 0 {
		dt = timeTravelStep
	}
	eng.EnterSimulationMode()
	limit := eng.State.Level.LevelDuration + timeLimitGrace + dt
	for !eng.Halted() && eng.State.LevelTimer <= limit {
		eng.Tick(dt)
	}
	logrus.Infof("[tick %07.2f] simulation ended", eng.State.TemporalProgress)
}

// TimeTravelTo rewinds or fast-forwards the simulation to the target time.
// Rewinding resets the run and replays from zero; both directions advance in
// 0.1 s substeps. Traveling to the current time is a no-op.
func (eng *Engine) TimeTravelTo(target float64) {
	if eng.mode != SimulationMode || target < 0 {
		return
	}
	current := eng.State.TemporalProgress
	if math.Abs(target-current) < 1e-9 {
		return
	}
	if target < current {
		logrus.Infof("temporal rewind %.2fs -> %.2fs", current, target)
		eng.resetForReplay()
		eng.substepTo(target)
		return
	}
	logrus.Infof("temporal fast-forward %.2fs -> %.2fs", current, target)
	eng.substepTo(target)
}

// resetForReplay clears all transient run state so a rewind replays the exact
// same simulation from tick zero.
func (eng *Engine) resetForReplay() {
	st := eng.State
	for _, inj := range st.Level.PacketSchedule {
		inj.Executed = false
	}
	st.ActivePackets = nil
	for _, w := range st.Level.Wires {
		w.ClearPackets()
	}
	for _, s := range st.Level.Systems {
		s.Reset()
	}
	st.RestoreLevelStart()
	eng.Metrics = NewMetrics()
	eng.RNG.Reset()
	eng.packetSeq = 0
	eng.activeAbilities = nil
}

// substepTo advances the pipeline to the target time in fixed substeps.
func (eng *Engine) substepTo(target float64) {
	for eng.State.TemporalProgress < target-1e-9 && !eng.Halted() {
		step := math.Min(timeTravelStep, target-eng.State.TemporalProgress)
		eng.Tick(step)
	}
}

// SetSmoothWireCurves toggles the path sampling mode and reconciles the wire
// budget: remaining length shifts by the difference between the old and new
// totals, so toggling twice is a no-op on lengths.
func (eng *Engine) SetSmoothWireCurves(smooth bool) {
	if eng.Settings.Smooth() == smooth {
		return
	}
	old := 0.0
	for _, w := range eng.State.Level.Wires {
		if w.Active {
			old += w.TotalLength(eng.Settings.Smooth())
		}
	}
	eng.Settings.SmoothWireCurves = &smooth
	updated := 0.0
	for _, w := range eng.State.Level.Wires {
		if w.Active {
			updated += w.TotalLength(smooth)
		}
	}
	eng.State.RemainingWireLength += old - updated
}

// RestartLevel restores the level-start snapshot and resets the network for a
// fresh run of the same level.
func (eng *Engine) RestartLevel() {
	eng.resetForReplay()
	for _, w := range eng.State.Level.Wires {
		w.Destroyed = false
		w.Active = true
		w.BulkPassages = 0
	}
	eng.mode = EditingMode
	logrus.Infof("level %s restarted", eng.State.Level.LevelID)
}
