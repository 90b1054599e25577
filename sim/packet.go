package sim

import "fmt"

// DefaultMaxTravelTime is the per-wire packet lifetime in seconds. A packet
// that exceeds it without reaching a port is destroyed.
const DefaultMaxTravelTime = 30.0

// DefaultBaseSpeed is the uniform-motion speed in pixels/second for packets
// that have no type-specific speed.
const DefaultBaseSpeed = 50.0

// Packet is the common state shared by every packet variant. Behavior is
// dispatched on Type; variant-specific parameters (wrapped messenger type,
// bulk lineage, passage counters) live in optional fields.
type Packet struct {
	ID        string     `json:"id"`
	Type      PacketType `json:"packetType"`
	Size      int        `json:"size"`
	Noise     float64    `json:"noiseLevel"`
	Position  Point2D    `json:"currentPosition"`
	Movement  Vec2D      `json:"movementVector"`
	BaseSpeed float64    `json:"baseSpeed"`
	Active    bool       `json:"active"`

	// Lost distinguishes rule losses (off-wire, spy destruction, noise) from
	// deliveries when the packet is swept in cleanup.
	Lost bool `json:"lost"`

	TravelTime    float64 `json:"travelTime"`
	MaxTravelTime float64 `json:"maxTravelTime"`

	// PathProgress in [0,1] along the current wire; WireID is empty when the
	// packet is not on a wire.
	PathProgress float64 `json:"pathProgress"`
	WireID       string  `json:"currentWire,omitempty"`

	Reversing        bool    `json:"reversing"`
	RetryDestination bool    `json:"retryDestination"`
	SourcePos        Point2D `json:"sourcePosition"`
	DestinationPos   Point2D `json:"destinationPosition"`

	// EntryCompatible remembers whether the port the packet entered its current
	// wire from matched the messenger identity it moves as (the imitated type
	// for protected packets); movement profiles depend on it.
	EntryCompatible bool `json:"-"`

	// OriginalType is the wrapped messenger type for Protected packets.
	// MovementType is the messenger behavior a Protected packet currently
	// imitates; re-rolled on every new wire.
	OriginalType PacketType `json:"originalType,omitempty"`
	MovementType PacketType `json:"-"`

	// Bulk lineage for bit packets.
	BulkPacketID    string `json:"bulkPacketId,omitempty"`
	BulkPacketColor int    `json:"bulkPacketColor,omitempty"`
	BulkSize        int    `json:"bulkSize,omitempty"`

	// WirePassages counts distinct wire entries for bulk packets.
	// DistanceTraveled accumulates for the large-bulk deflection rule.
	WirePassages     int     `json:"-"`
	DistanceTraveled float64 `json:"-"`

	CoinAwardPending   bool `json:"-"`
	ProcessedByRefSink bool `json:"-"`

	// Consumed marks packets deactivated by design rather than by rule: a bulk
	// split into bits, bits merged into a bulk. Consumed packets are swept
	// without counting toward loss.
	Consumed bool `json:"-"`
}

// NewPacket builds a packet of the given type at a position. IDs are assigned
// by the engine's deterministic counter. Trojans carry their starting noise of
// one from birth.
func NewPacket(id string, t PacketType, pos Point2D) *Packet {
	p := &Packet{
		ID:            id,
		Type:          t,
		Size:          t.BaseSize(),
		Position:      pos,
		BaseSpeed:     DefaultBaseSpeed,
		Active:        true,
		MaxTravelTime: DefaultMaxTravelTime,
	}
	if t == Trojan {
		p.Noise = 1.0
	}
	return p
}

// CoinValue returns the coins awarded when this packet enters a system.
func (p *Packet) CoinValue() int {
	return p.Type.CoinValue()
}

// OnWire reports whether the packet is currently traveling on a wire.
func (p *Packet) OnWire() bool {
	return p.WireID != ""
}

// UpdatePosition advances the packet by its movement vector and accrues travel
// time, destroying the packet past its lifetime.
func (p *Packet) UpdatePosition(dt float64) {
	if !p.Active {
		return
	}
	p.TravelTime += dt
	if p.TravelTime > p.MaxTravelTime {
		p.Active = false
		return
	}
	p.Position = p.Position.Add(p.Movement.Scale(dt))
}

// ExceededTravelTime reports whether the packet has outlived its per-wire budget.
func (p *Packet) ExceededTravelTime() bool {
	return p.TravelTime > p.MaxTravelTime
}

// NoiseDestroyed reports whether accumulated noise has destroyed the packet.
// The boundary is strict: noise equal to size is survivable.
func (p *Packet) NoiseDestroyed() bool {
	return p.Noise > float64(p.Size)
}

// ApplyShockwave perturbs the packet's movement and raises its noise. Trojans
// take extra noise; small messengers and bit packets reverse and retry.
func (p *Packet) ApplyShockwave(effect Vec2D) {
	if !p.Active {
		return
	}
	p.Movement = p.Movement.Add(effect)
	p.Noise += 0.5
	switch {
	case p.Type == Trojan:
		p.Noise += 0.5
	case p.Type == SmallMessenger || p.Type == BitPacket:
		p.reverseAndRetry()
	case p.Type == Protected && p.MovementType == SmallMessenger:
		p.reverseDirection()
	}
}

// reverseDirection flips the packet's travel sense. Progress is mirrored so
// the position parameter stays continuous on the current wire.
func (p *Packet) reverseDirection() {
	if !p.Reversing && p.OnWire() {
		p.PathProgress = 1.0 - p.PathProgress
	}
	p.Reversing = true
	p.Movement = p.Movement.Scale(-1)
}

func (p *Packet) reverseAndRetry() {
	p.reverseDirection()
	p.RetryDestination = true
}

// ReturnToSource reverses the packet along its current wire after a destination
// failure: progress mirrors to 1-p and the endpoints swap roles.
func (p *Packet) ReturnToSource() {
	if p.OnWire() {
		p.PathProgress = 1.0 - p.PathProgress
		p.Reversing = true
		p.SourcePos, p.DestinationPos = p.DestinationPos, p.SourcePos
		return
	}
	p.Movement = p.Movement.Scale(-1)
	p.Reversing = true
}

// ConvertToProtected wraps a messenger into a Protected packet (size doubles)
// or upgrades a confidential to ConfidentialProtected.
func (p *Packet) ConvertToProtected(rng *PartitionedRNG) {
	switch {
	case p.Type.IsMessenger():
		p.OriginalType = p.Type
		p.Type = Protected
		p.Size = p.OriginalType.BaseSize() * 2
		p.RandomizeMovementType(rng)
	case p.Type == Confidential:
		p.Type = ConfidentialProtected
		p.Size = ConfidentialProtected.BaseSize()
	}
}

// ConvertFromProtected reverts a protected packet to its wrapped type. A
// protected packet with no recorded original reverts to a square messenger.
func (p *Packet) ConvertFromProtected() {
	switch p.Type {
	case Protected:
		orig := p.OriginalType
		if orig == "" {
			orig = SquareMessenger
		}
		p.Type = orig
		p.Size = orig.BaseSize()
		p.OriginalType = ""
		p.MovementType = ""
	case ConfidentialProtected:
		p.Type = Confidential
		p.Size = Confidential.BaseSize()
	}
}

// ConvertToTrojan turns the packet into a trojan. Protected packets are immune;
// callers revert them first if conversion is intended.
func (p *Packet) ConvertToTrojan() {
	if p.Type.IsProtected() {
		return
	}
	p.Type = Trojan
	p.Size = Trojan.BaseSize()
	if p.Noise < 1.0 {
		p.Noise = 1.0
	}
}

// ConvertFromTrojan turns a trojan back into a clean square messenger in place,
// keeping position and velocity.
func (p *Packet) ConvertFromTrojan() {
	p.Type = SquareMessenger
	p.Size = SquareMessenger.BaseSize()
	p.Noise = 0
}

// AdjustSpeedForSystemOccupancy halves a plain confidential packet's speed when
// it enters a system already holding other packets, staggering its arrival.
func (p *Packet) AdjustSpeedForSystemOccupancy(systemHasOthers bool) {
	if systemHasOthers && p.Type == Confidential {
		p.Movement = p.Movement.Scale(0.5)
	}
}

// RandomizeMovementType re-rolls the messenger behavior a Protected packet
// imitates. Called on every new wire entry.
func (p *Packet) RandomizeMovementType(rng *PartitionedRNG) {
	if p.Type != Protected {
		return
	}
	r := rng.ForSubsystem(SubsystemProtected)
	p.MovementType = messengerTypes[r.Intn(len(messengerTypes))]
}

// movementProfileType returns the messenger type whose kinematics the packet
// follows on the current wire.
func (p *Packet) movementProfileType() PacketType {
	if p.Type == Protected && p.MovementType != "" {
		return p.MovementType
	}
	if p.Type == BitPacket {
		return SmallMessenger
	}
	return p.Type
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s{id=%s size=%d noise=%.1f active=%t}",
		p.Type.DisplayName(), p.ID, p.Size, p.Noise, p.Active)
}
