package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SystemKind identifies a system's processing policy.
type SystemKind string

const (
	NormalSystem      SystemKind = "NormalSystem"
	ReferenceSystem   SystemKind = "ReferenceSystem"
	SpySystem         SystemKind = "SpySystem"
	SaboteurSystem    SystemKind = "SaboteurSystem"
	VPNSystem         SystemKind = "VPNSystem"
	AntiTrojanSystem  SystemKind = "AntiTrojanSystem"
	DistributorSystem SystemKind = "DistributorSystem"
	MergerSystem      SystemKind = "MergerSystem"
)

// Valid reports whether k is a known system kind.
func (k SystemKind) Valid() bool {
	switch k {
	case NormalSystem, ReferenceSystem, SpySystem, SaboteurSystem, VPNSystem,
		AntiTrojanSystem, DistributorSystem, MergerSystem:
		return true
	}
	return false
}

// MaxStorage is the bounded per-system packet storage. Distributor systems are
// exempt and store without limit.
const MaxStorage = 5

// DefaultDeactivationTime is how long a system stays down after damage.
const DefaultDeactivationTime = 10.0

// systemHalfExtent is half the rendered square's edge; systems occupy a 40x40
// box centered on their position for collision purposes.
const systemHalfExtent = 20.0

// DefaultAntiTrojanScanRadius is the conservative default influence zone for
// anti-trojan scans, in pixels.
const DefaultAntiTrojanScanRadius = 120.0

// System is a network node. The common header is shared by every kind; the
// per-kind policy is dispatched in ProcessPacket. Kind-specific state (delivery
// counter, scan radius, bit groups) lives in optional fields.
type System struct {
	ID          string     `json:"id"`
	Kind        SystemKind `json:"type"`
	Position    Point2D    `json:"position"`
	InputPorts  []*Port    `json:"inputPorts"`
	OutputPorts []*Port    `json:"outputPorts"`

	Storage []*Packet `json:"-"`

	Active              bool    `json:"-"`
	DeactivationTimer   float64 `json:"-"`
	MaxDeactivationTime float64 `json:"-"`
	Failed              bool    `json:"-"`
	IndicatorVisible    bool    `json:"-"`

	// ScanRadius applies to AntiTrojan systems only.
	ScanRadius float64 `json:"scanRadius,omitempty"`

	// DeliveredCount applies to Reference systems acting as sinks.
	DeliveredCount int `json:"-"`

	// bitGroups collects bit packets per parent bulk ID (Merger systems).
	bitGroups map[string][]*Packet

	level *GameLevel
}

// Level returns the owning level.
func (s *System) Level() *GameLevel { return s.level }

// Bounds returns the system's 40x40 bounding box.
func (s *System) Bounds() Rect {
	return Rect{
		MinX: s.Position.X - systemHalfExtent,
		MinY: s.Position.Y - systemHalfExtent,
		MaxX: s.Position.X + systemHalfExtent,
		MaxY: s.Position.Y + systemHalfExtent,
	}
}

// AllPorts returns input ports followed by output ports.
func (s *System) AllPorts() []*Port {
	ports := make([]*Port, 0, len(s.InputPorts)+len(s.OutputPorts))
	ports = append(ports, s.InputPorts...)
	return append(ports, s.OutputPorts...)
}

// HasStorageSpace reports whether another packet fits in storage. Distributor
// systems always have space.
func (s *System) HasStorageSpace() bool {
	if s.Kind == DistributorSystem {
		return true
	}
	return len(s.Storage) < MaxStorage
}

// TotalPacketCount counts packets held in storage and in all port slots.
func (s *System) TotalPacketCount() int {
	count := len(s.Storage)
	for _, pt := range s.AllPorts() {
		if pt.Packet != nil {
			count++
		}
	}
	return count
}

// Deactivate takes the system offline for the given duration.
func (s *System) Deactivate(duration float64) {
	s.Active = false
	s.DeactivationTimer = duration
}

// Deactivated reports whether the system is down on a timer.
func (s *System) Deactivated() bool {
	return !s.Active && s.DeactivationTimer > 0
}

// UpdateDeactivationTimer decrements the timer and reactivates the system when
// it expires, unless the system has permanently failed.
func (s *System) UpdateDeactivationTimer(dt float64) {
	if s.DeactivationTimer <= 0 {
		return
	}
	s.DeactivationTimer -= dt
	if s.DeactivationTimer <= 0 {
		s.DeactivationTimer = 0
		if !s.Failed {
			s.Active = true
			logrus.Debugf("system %s reactivated", s.ID)
		}
	}
}

// Fail takes the system down permanently. Packets en route on wires into this
// system turn back toward their sources; packets already held in input ports
// are released and returned. A failing VPN reverts its protected packets.
func (s *System) Fail() {
	s.Failed = true
	s.Active = false

	if s.Kind == VPNSystem {
		s.revertProtectedPackets()
	}

	if s.level != nil {
		for _, w := range s.level.Wires {
			if w.dst == nil || w.dst.system != s {
				continue
			}
			for _, p := range w.Packets {
				if p.Active && !p.Reversing {
					p.ReturnToSource()
					logrus.Infof("packet %s returning to source: destination %s failed", p.ID, s.ID)
				}
			}
		}
	}
	for _, pt := range s.InputPorts {
		if p := pt.Packet; p != nil && p.Active && !p.Reversing {
			pt.ReleasePacket()
			p.ReturnToSource()
		}
	}
	logrus.Warnf("system %s (%s) failed permanently", s.ID, s.Kind)
}

// Reset restores the system to its initial state (level restart).
func (s *System) Reset() {
	s.Storage = nil
	s.Active = true
	s.DeactivationTimer = 0
	s.Failed = false
	s.IndicatorVisible = false
	s.DeliveredCount = 0
	s.bitGroups = nil
	for _, pt := range s.AllPorts() {
		pt.Packet = nil
	}
}

// AllPortsConnected reports whether every existing port has a wire. One-sided
// systems (pure sources or sinks) count as connected when their only side is.
func (s *System) AllPortsConnected() bool {
	if len(s.InputPorts) == 0 && len(s.OutputPorts) == 0 {
		return true
	}
	connected := func(ports []*Port) bool {
		for _, pt := range ports {
			if !pt.Connected {
				return false
			}
		}
		return true
	}
	if len(s.InputPorts) == 0 {
		return connected(s.OutputPorts)
	}
	if len(s.OutputPorts) == 0 {
		return connected(s.InputPorts)
	}
	return connected(s.InputPorts) && connected(s.OutputPorts)
}

// ProcessInputs releases each held input-port packet through the system's
// policy. Storage drains separately, one packet per system per tick, in the
// engine's storage-flush step.
func (s *System) ProcessInputs(eng *Engine) {
	if !s.Active {
		return
	}
	for _, pt := range s.InputPorts {
		if pt.Packet == nil {
			continue
		}
		p := pt.ReleasePacket()
		logrus.Debugf("system %s (%s) processing %s from input port", s.ID, s.Kind, p.Type.DisplayName())
		s.ProcessPacket(eng, p)
	}
}

// ProcessPacket dispatches to the kind-specific policy.
func (s *System) ProcessPacket(eng *Engine, p *Packet) {
	switch s.Kind {
	case ReferenceSystem:
		s.processReference(eng, p)
	case SpySystem:
		s.processSpy(eng, p)
	case SaboteurSystem:
		s.processSaboteur(eng, p)
	case VPNSystem:
		s.processVPN(eng, p)
	case DistributorSystem:
		s.processDistributor(eng, p)
	case MergerSystem:
		s.processMerger(eng, p)
	default:
		processPacketDefault(eng, s, p)
	}
}

// processPacketDefault is the shared base policy: speed-damage check, bulk side
// effects, confidential stagger, then port-priority routing with storage
// fallback. Variant policies call it when they want the default.
func processPacketDefault(eng *Engine, s *System, p *Packet) {
	if !s.level.DisableSpeedDamage {
		if speed := p.Movement.Magnitude(); speed > eng.Settings.SpeedDamageThreshold {
			s.Deactivate(eng.Settings.SpeedDamageDeactivationTime)
			p.Active = false
			p.Lost = true
			logrus.Warnf("system %s damaged by high-speed packet (%.1f px/s), down for %.0fs",
				s.ID, speed, eng.Settings.SpeedDamageDeactivationTime)
			return
		}
	}

	if p.Type.IsBulk() {
		s.applyBulkEntryEffects(eng, p)
	}

	if p.Type.IsConfidential() {
		p.AdjustSpeedForSystemOccupancy(s.TotalPacketCount() > 0)
	}

	port := s.findAvailableOutputPort(eng, p)
	switch {
	case port != nil:
		port.AcceptPacket(p)
		applyExitSpeedMultiplier(port, p)
	case s.HasStorageSpace():
		s.Storage = append(s.Storage, p)
	default:
		p.Active = false
		p.Lost = true
		logrus.Infof("system %s dropped %s: storage full", s.ID, p.Type.DisplayName())
	}
}

// applyBulkEntryEffects destroys every other stored packet and mutates one
// random port shape, per the bulk entry rule.
func (s *System) applyBulkEntryEffects(eng *Engine, bulk *Packet) {
	kept := s.Storage[:0]
	for _, stored := range s.Storage {
		if stored != bulk && stored.Active {
			stored.Active = false
			stored.Lost = true
			continue
		}
		kept = append(kept, stored)
	}
	s.Storage = kept
	s.mutateRandomPortShape(eng.RNG)
}

// mutateRandomPortShape flips one random port to a different random shape.
func (s *System) mutateRandomPortShape(rng *PartitionedRNG) {
	ports := s.AllPorts()
	if len(ports) == 0 {
		return
	}
	r := rng.ForSubsystem(SubsystemPorts)
	port := ports[r.Intn(len(ports))]
	current := port.Shape
	for {
		next := portShapes[r.Intn(len(portShapes))]
		if next != current {
			port.Shape = next
			return
		}
	}
}

// findAvailableOutputPort applies the routing priority: an empty compatible
// port first, then any empty port; both must lead through an active wire to an
// active, non-failed destination. Ties break randomly.
func (s *System) findAvailableOutputPort(eng *Engine, p *Packet) *Port {
	var compatible, other []*Port
	for _, pt := range s.OutputPorts {
		if !pt.CanAcceptPacket(p) || !s.destinationLive(pt) {
			continue
		}
		if pt.CompatibleWith(p) {
			compatible = append(compatible, pt)
		} else {
			other = append(other, pt)
		}
	}
	r := eng.RNG.ForSubsystem(SubsystemPorts)
	if len(compatible) > 0 {
		return compatible[r.Intn(len(compatible))]
	}
	if len(other) > 0 {
		return other[r.Intn(len(other))]
	}
	return nil
}

// destinationLive reports whether the port has an active outgoing wire whose
// destination system is active and not failed.
func (s *System) destinationLive(pt *Port) bool {
	if s.level == nil {
		return false
	}
	w := s.level.WireFromPort(pt)
	if w == nil || !w.Active || w.Destroyed {
		return false
	}
	dst := w.Destination()
	if dst == nil || dst.system == nil {
		return false
	}
	return dst.system.Active && !dst.system.Failed
}

// drainOneStoredPacket moves at most one stored packet per tick to an output
// port whose outgoing wire has capacity, preserving fairness across systems.
func (s *System) drainOneStoredPacket(eng *Engine) {
	for i, p := range s.Storage {
		if !p.Active {
			s.Storage = append(s.Storage[:i], s.Storage[i+1:]...)
			return
		}
		port := s.findOutputPortWithWireCapacity(p)
		if port == nil {
			continue
		}
		s.Storage = append(s.Storage[:i], s.Storage[i+1:]...)
		port.AcceptPacket(p)
		applyExitSpeedMultiplier(port, p)
		logrus.Debugf("system %s drained %s from storage to output port", s.ID, p.Type.DisplayName())
		return
	}
}

// findOutputPortWithWireCapacity prefers compatible empty ports, then any empty
// port, requiring an outgoing wire that can take the packet this tick.
func (s *System) findOutputPortWithWireCapacity(p *Packet) *Port {
	for _, pt := range s.OutputPorts {
		if pt.Empty() && pt.CompatibleWith(p) && s.hasWireCapacity(pt) {
			return pt
		}
	}
	for _, pt := range s.OutputPorts {
		if pt.Empty() && s.hasWireCapacity(pt) {
			return pt
		}
	}
	return nil
}

func (s *System) hasWireCapacity(pt *Port) bool {
	if s.level == nil {
		return false
	}
	w := s.level.WireFromPort(pt)
	return w != nil && w.CanAcceptPacket()
}

// applyExitSpeedMultiplier doubles a messenger or protected packet's speed
// when it exits through a port incompatible with the messenger identity it
// currently moves as.
func applyExitSpeedMultiplier(pt *Port, p *Packet) {
	if pt.MovementCompatibleWith(p) {
		return
	}
	if p.Type.IsMessenger() || p.Type == Protected {
		p.Movement = p.Movement.Scale(2.0)
	}
}

func (s *System) String() string {
	return fmt.Sprintf("%s{id=%s in=%d out=%d storage=%d active=%t}",
		s.Kind, s.ID, len(s.InputPorts), len(s.OutputPorts), len(s.Storage), s.Active)
}
