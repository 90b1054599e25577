package sim

import "fmt"

// PortShape is the geometric type of a port. Any shape may be wired to any
// other shape; shapes influence output-port priority and packet movement
// profiles.
type PortShape string

const (
	Square   PortShape = "SQUARE"
	Triangle PortShape = "TRIANGLE"
	Hexagon  PortShape = "HEXAGON"
)

var portShapes = []PortShape{Square, Triangle, Hexagon}

// Valid reports whether s is a known shape.
func (s PortShape) Valid() bool {
	return s == Square || s == Triangle || s == Hexagon
}

// ParsePortShape converts a level-file string into a PortShape.
func ParsePortShape(v string) (PortShape, error) {
	s := PortShape(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown port shape %q", v)
	}
	return s, nil
}

// Port is a single-capacity packet slot on a system. Ports are owned by their
// system; wires reference them by ID.
type Port struct {
	ID       string    `json:"id,omitempty"`
	Shape    PortShape `json:"shape"`
	Input    bool      `json:"-"`
	Position Point2D   `json:"position"`

	// RelativeOffset from the system center, used to reposition the port when
	// the system moves.
	RelativeOffset Vec2D `json:"relativeOffset,omitempty"`

	Connected bool    `json:"-"`
	Packet    *Packet `json:"-"`

	system *System
}

// System returns the port's owning system.
func (pt *Port) System() *System {
	return pt.system
}

// Empty reports whether the port slot is free.
func (pt *Port) Empty() bool {
	return pt.Packet == nil
}

// CanAcceptPacket reports whether the port can take the given packet. Ports
// accept any packet type; only occupancy and liveness matter.
func (pt *Port) CanAcceptPacket(p *Packet) bool {
	return pt.Packet == nil && p != nil && p.Active
}

// AcceptPacket places a packet into the port slot.
func (pt *Port) AcceptPacket(p *Packet) bool {
	if !pt.CanAcceptPacket(p) {
		return false
	}
	pt.Packet = p
	return true
}

// ReleasePacket empties the slot and returns its packet, or nil.
func (pt *Port) ReleasePacket() *Packet {
	p := pt.Packet
	pt.Packet = nil
	return p
}

// CompatibleWith reports whether the port shape matches the packet type; it
// decides output-port priority when routing. Compatibility never refuses
// acceptance. Confidential, bulk, bit, protected, and trojan packets treat every
// port as compatible. Speed and acceleration profiles use MovementCompatibleWith.
func (pt *Port) CompatibleWith(p *Packet) bool {
	switch p.Type {
	case SquareMessenger:
		return pt.Shape == Square
	case TriangleMessenger:
		return pt.Shape == Triangle
	case SmallMessenger:
		return pt.Shape == Hexagon
	case Confidential, ConfidentialProtected, BulkSmall, BulkLarge, BitPacket,
		Protected, Trojan:
		return true
	default:
		return false
	}
}

// MovementCompatibleWith reports whether the port shape matches the messenger
// identity the packet currently moves as: protected packets are checked
// against the type they imitate and bit packets as small messengers, so the
// speed and acceleration rules keyed on entry and exit compatibility reach
// them the way they reach a raw messenger. Types with no messenger profile
// have no incompatible ports.
func (pt *Port) MovementCompatibleWith(p *Packet) bool {
	switch p.movementProfileType() {
	case SquareMessenger:
		return pt.Shape == Square
	case TriangleMessenger:
		return pt.Shape == Triangle
	case SmallMessenger:
		return pt.Shape == Hexagon
	default:
		return true
	}
}

// RepositionRelativeToSystem moves the port to track its parent system's
// position using the stored offset.
func (pt *Port) RepositionRelativeToSystem() {
	if pt.system == nil {
		return
	}
	pt.Position = Point2D{
		X: pt.system.Position.X + pt.RelativeOffset.X,
		Y: pt.system.Position.Y + pt.RelativeOffset.Y,
	}
}
