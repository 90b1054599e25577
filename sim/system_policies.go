package sim

import "github.com/sirupsen/logrus"

// Kind-specific processing policies. Each policy receives the packet after it
// has been released from an input port and decides its fate; the shared base
// behavior is processPacketDefault in system.go.

// trojanConversionProbability is the saboteur's conversion roll.
const trojanConversionProbability = 0.3

// processReference finalizes delivery: reference systems never forward. Each
// packet is delivered exactly once, guarded by its sink flag.
func (s *System) processReference(eng *Engine, p *Packet) {
	p.Active = false
	if !p.ProcessedByRefSink {
		p.ProcessedByRefSink = true
		s.DeliveredCount++
		eng.Metrics.recordDelivery(p)
		logrus.Infof("[tick %07.2f] delivered %s to %s (total here: %d)",
			eng.State.TemporalProgress, p.Type.DisplayName(), s.ID, s.DeliveredCount)
	}
}

// IsSource reports whether this reference system injects packets, i.e. the
// level schedule names it as a source.
func (s *System) IsSource() bool {
	if s.Kind != ReferenceSystem || s.level == nil {
		return false
	}
	for _, inj := range s.level.PacketSchedule {
		if inj.SourceID == s.ID {
			return true
		}
	}
	return false
}

// processSpy destroys confidential packets, strips protection, and otherwise
// teleports the packet to a uniformly chosen spy system (possibly itself).
func (s *System) processSpy(eng *Engine, p *Packet) {
	if p.Type.IsConfidential() {
		p.Active = false
		p.Lost = true
		logrus.Infof("spy %s destroyed confidential packet %s", s.ID, p.ID)
		return
	}
	if p.Type.IsProtected() {
		p.ConvertFromProtected()
		processPacketDefault(eng, s, p)
		return
	}

	spies := s.level.SystemsOfKind(SpySystem)
	if len(spies) == 0 {
		processPacketDefault(eng, s, p)
		return
	}
	target := spies[eng.RNG.ForSubsystem(SubsystemSpy).Intn(len(spies))]
	if target == s {
		processPacketDefault(eng, s, p)
		return
	}
	s.teleportToSpy(target, p)
}

// teleportToSpy drops the packet at another spy's output side, bypassing input
// ports (no coins are awarded for the hop).
func (s *System) teleportToSpy(target *System, p *Packet) {
	for _, pt := range target.OutputPorts {
		if pt.Empty() && pt.CompatibleWith(p) {
			pt.AcceptPacket(p)
			return
		}
	}
	for _, pt := range target.OutputPorts {
		if pt.Empty() {
			pt.AcceptPacket(p)
			return
		}
	}
	if target.HasStorageSpace() {
		target.Storage = append(target.Storage, p)
		return
	}
	p.Active = false
	p.Lost = true
}

// processSaboteur strips protection, guarantees noise, rolls a trojan
// conversion, and routes to an incompatible port when one is free.
func (s *System) processSaboteur(eng *Engine, p *Packet) {
	if p.Type.IsProtected() {
		p.ConvertFromProtected()
	}
	if p.Noise == 0 {
		p.Noise = 1.0
	}
	if !p.Type.IsProtected() &&
		eng.RNG.ForSubsystem(SubsystemSaboteur).Float64() < trojanConversionProbability {
		p.ConvertToTrojan()
		logrus.Infof("saboteur %s converted packet %s to trojan", s.ID, p.ID)
	}

	var incompatible []*Port
	for _, pt := range s.OutputPorts {
		if pt.Empty() && !pt.CompatibleWith(p) && s.destinationLive(pt) {
			incompatible = append(incompatible, pt)
		}
	}
	switch {
	case len(incompatible) > 0:
		pt := incompatible[eng.RNG.ForSubsystem(SubsystemPorts).Intn(len(incompatible))]
		pt.AcceptPacket(p)
		applyExitSpeedMultiplier(pt, p)
	case s.HasStorageSpace():
		s.Storage = append(s.Storage, p)
	default:
		p.Active = false
		p.Lost = true
	}
}

// processVPN wraps messengers into protected packets and upgrades confidential
// packets, then routes with the default policy.
func (s *System) processVPN(eng *Engine, p *Packet) {
	if p.Type.IsMessenger() || p.Type == Confidential {
		p.ConvertToProtected(eng.RNG)
		logrus.Debugf("vpn %s protected packet %s as %s", s.ID, p.ID, p.Type.DisplayName())
	}
	processPacketDefault(eng, s, p)
}

// revertProtectedPackets strips protection from every packet held in this
// system's storage and ports. Called when a VPN fails.
func (s *System) revertProtectedPackets() {
	for _, p := range s.Storage {
		if p.Type.IsProtected() {
			p.ConvertFromProtected()
		}
	}
	for _, pt := range s.AllPorts() {
		if pt.Packet != nil && pt.Packet.Type.IsProtected() {
			pt.Packet.ConvertFromProtected()
		}
	}
}

// DetectAndConvertTrojans is the anti-trojan scan: every trojan within the scan
// radius becomes a clean square messenger at its current position and velocity.
func (s *System) DetectAndConvertTrojans(eng *Engine) {
	if s.Kind != AntiTrojanSystem || !s.Active {
		return
	}
	radius := s.ScanRadius
	if radius <= 0 {
		radius = eng.Settings.AntiTrojanScanRadius
	}
	for _, p := range eng.State.ActivePackets {
		if !p.Active || p.Type != Trojan {
			continue
		}
		if s.Position.DistanceTo(p.Position) <= radius {
			p.ConvertFromTrojan()
			logrus.Infof("anti-trojan %s cleaned packet %s", s.ID, p.ID)
		}
	}
}

// processDistributor splits bulk packets into bit packets; everything else
// takes the default path. The bits inherit the bulk's identity and a shared
// color, and drain from storage through normal priority on later ticks.
func (s *System) processDistributor(eng *Engine, p *Packet) {
	if !p.Type.IsBulk() {
		processPacketDefault(eng, s, p)
		return
	}
	s.applyBulkEntryEffects(eng, p)

	color := eng.RNG.ForSubsystem(SubsystemBulk).Intn(0xFFFFFF)
	for i := 0; i < p.Size; i++ {
		bit := NewPacket(eng.nextPacketID(), BitPacket, s.Position)
		bit.BulkPacketID = p.ID
		bit.BulkPacketColor = color
		bit.BulkSize = p.Size
		bit.Movement = p.Movement
		bit.BaseSpeed = p.BaseSpeed
		s.Storage = append(s.Storage, bit)
		eng.State.ActivePackets = append(eng.State.ActivePackets, bit)
	}
	p.Active = false
	p.Consumed = true
	logrus.Infof("distributor %s split %s into %d bit packets", s.ID, p.Type.DisplayName(), p.Size)
}

// bitGroupCount returns the number of bulk lineages a merger is tracking.
func (s *System) bitGroupCount() int {
	return len(s.bitGroups)
}

// processMerger regroups bit packets by parent bulk and reconstructs a bulk
// packet once the original size is reached; other packets take the default
// path. Reconstruction yields BulkLarge when ten or more bits contribute.
func (s *System) processMerger(eng *Engine, p *Packet) {
	if p.Type != BitPacket || p.BulkPacketID == "" {
		processPacketDefault(eng, s, p)
		return
	}
	if s.bitGroups == nil {
		s.bitGroups = make(map[string][]*Packet)
	}
	s.bitGroups[p.BulkPacketID] = append(s.bitGroups[p.BulkPacketID], p)

	group := s.bitGroups[p.BulkPacketID]
	var active []*Packet
	for _, bit := range group {
		if bit.Active {
			active = append(active, bit)
		}
	}
	required := p.BulkSize
	if required <= 0 {
		required = BulkSmall.BaseSize()
	}
	if len(active) < required {
		return
	}

	kind := BulkSmall
	if len(active) >= BulkLarge.BaseSize() {
		kind = BulkLarge
	}
	bulk := NewPacket(eng.nextPacketID(), kind, s.Position)
	bulk.Movement = active[0].Movement
	bulk.BaseSpeed = active[0].BaseSpeed
	for _, bit := range active {
		bit.Active = false
		bit.Consumed = true
	}
	delete(s.bitGroups, p.BulkPacketID)
	eng.State.ActivePackets = append(eng.State.ActivePackets, bulk)
	logrus.Infof("merger %s reassembled %d bits into %s", s.ID, len(active), kind)

	// Route the reconstructed bulk directly: the bulk entry side effects must
	// not fire here, or pending bit groups in storage would be destroyed.
	if port := s.findAvailableOutputPort(eng, bulk); port != nil {
		port.AcceptPacket(bulk)
	} else if s.HasStorageSpace() {
		s.Storage = append(s.Storage, bulk)
	} else {
		bulk.Active = false
		bulk.Lost = true
	}
}
