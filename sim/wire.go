package sim

// MaxWireBends caps the number of bends a single wire may carry.
const MaxWireBends = 3

// MaxBulkPassages is the number of bulk-packet entries a wire survives.
const MaxBulkPassages = 3

// arrivalThreshold is the distance in pixels at which an on-wire packet counts
// as having reached its destination port.
const arrivalThreshold = 5.0

// defaultBendMoveRadius bounds a single bend drag.
const defaultBendMoveRadius = 50.0

// WireBend is a control point shaping a wire's path. Bends always lie exactly
// on the path; smoothing only curves the spans between them.
type WireBend struct {
	Position      Point2D `json:"position"`
	MaxMoveRadius float64 `json:"maxMoveRadius"`
	Movable       bool    `json:"movable"`
}

// NewWireBend creates a movable bend at the given position.
func NewWireBend(pos Point2D) WireBend {
	return WireBend{Position: pos, MaxMoveRadius: defaultBendMoveRadius, Movable: true}
}

// WireConnection is a directed edge from an output port to an input port.
// It owns its bends, carries at most one active packet, and is destroyed after
// three bulk-packet passages.
type WireConnection struct {
	ID           string `json:"id"`
	SourcePortID string `json:"sourcePortId,omitempty"`
	DestPortID   string `json:"destinationPortId,omitempty"`

	// SourceRef and DestRef are the level-file alternative to explicit port
	// IDs: endpoints matched by system, position, shape, and direction.
	SourceRef *PortRef `json:"source,omitempty"`
	DestRef   *PortRef `json:"destination,omitempty"`

	WireLength   float64    `json:"wireLength"`
	Active       bool       `json:"active"`
	Destroyed    bool       `json:"destroyed"`
	Bends        []WireBend `json:"bends,omitempty"`
	BulkPassages int        `json:"bulkPacketPassages"`

	Packets []*Packet `json:"-"`

	src *Port
	dst *Port
}

// Source returns the wire's source (output) port.
func (w *WireConnection) Source() *Port { return w.src }

// Destination returns the wire's destination (input) port.
func (w *WireConnection) Destination() *Port { return w.dst }

// bind resolves the wire's port references. The source must be an output and
// the destination an input; reversed references are normalized by swapping.
func (w *WireConnection) bind(src, dst *Port) {
	if src != nil && dst != nil && src.Input && !dst.Input {
		src, dst = dst, src
		w.SourcePortID, w.DestPortID = src.ID, dst.ID
	}
	w.src = src
	w.dst = dst
}

// ControlPoints returns source, bends, destination in path order.
func (w *WireConnection) ControlPoints() []Point2D {
	points := make([]Point2D, 0, len(w.Bends)+2)
	if w.src != nil {
		points = append(points, w.src.Position)
	}
	for _, b := range w.Bends {
		points = append(points, b.Position)
	}
	if w.dst != nil {
		points = append(points, w.dst.Position)
	}
	return points
}

// PathPoints returns the sampled wire path for the given curve mode.
func (w *WireConnection) PathPoints(smooth bool) []Point2D {
	return buildPathPoints(w.ControlPoints(), smooth)
}

// TotalLength returns the wire's current path length for the given curve mode.
func (w *WireConnection) TotalLength(smooth bool) float64 {
	points := w.PathPoints(smooth)
	if len(points) < 2 {
		return w.WireLength
	}
	return pathLength(points)
}

// PositionAtProgress maps arc-length progress in [0,1] to a path position.
func (w *WireConnection) PositionAtProgress(progress float64, smooth bool) Point2D {
	return positionAtProgress(w.PathPoints(smooth), progress)
}

// DirectionVector points from the source port to the destination port.
func (w *WireConnection) DirectionVector() Vec2D {
	if w.src == nil || w.dst == nil {
		return Vec2D{}
	}
	return w.dst.Position.Sub(w.src.Position)
}

// tangentAt approximates the path direction at the given progress.
func (w *WireConnection) tangentAt(progress float64, smooth bool) Vec2D {
	const probe = 0.01
	ahead := progress + probe
	if ahead > 1 {
		ahead = 1
	}
	behind := ahead - probe
	if behind < 0 {
		behind = 0
	}
	dir := w.PositionAtProgress(ahead, smooth).Sub(w.PositionAtProgress(behind, smooth))
	if dir.Magnitude() == 0 {
		dir = w.DirectionVector()
	}
	return dir.Normalize()
}

// Occupied reports whether any active packet is on the wire.
func (w *WireConnection) Occupied() bool {
	for _, p := range w.Packets {
		if p.Active {
			return true
		}
	}
	return false
}

// CanAcceptPacket reports whether the wire may take a new packet: live wire,
// no active packet already in flight.
func (w *WireConnection) CanAcceptPacket() bool {
	return w.Active && !w.Destroyed && !w.Occupied()
}

// AcceptPacket loads a packet at the start of the wire path. Protected packets
// re-roll their movement identity first; the compatibility of the departure
// port `from` is then judged against that identity and remembered for the
// movement profiles. A nil departure port counts as compatible. Bulk entries
// consume a wire passage (the third destroys the wire while the packet rides
// on).
func (w *WireConnection) AcceptPacket(p *Packet, from *Port, smooth bool, rng *PartitionedRNG) bool {
	if !w.CanAcceptPacket() {
		return false
	}
	w.Packets = append(w.Packets, p)

	p.WireID = w.ID
	p.PathProgress = 0
	p.Reversing = false
	p.TravelTime = 0
	p.Position = w.PositionAtProgress(0, smooth)
	if w.src != nil {
		p.SourcePos = w.src.Position
	}
	if w.dst != nil {
		p.DestinationPos = w.dst.Position
	}
	p.RandomizeMovementType(rng)
	p.EntryCompatible = from == nil || from.MovementCompatibleWith(p)

	// Carry the arrival speed onto the new wire (exit multipliers included);
	// square-profile packets launch at half speed from incompatible ports.
	speed := p.Movement.Magnitude()
	if speed <= 0 {
		speed = p.BaseSpeed
	}
	if speed <= 0 {
		speed = DefaultBaseSpeed
	}
	speed = entrySpeed(p, speed, p.EntryCompatible)
	p.Movement = w.tangentAt(0, smooth).Scale(speed)

	if p.Type.IsBulk() {
		w.BulkPassages++
		p.WirePassages++
		if w.BulkPassages >= MaxBulkPassages {
			w.Destroyed = true
			w.Active = false
		}
	}
	return true
}

// RemovePacket detaches a packet from the wire.
func (w *WireConnection) RemovePacket(p *Packet) {
	for i, q := range w.Packets {
		if q == p {
			w.Packets = append(w.Packets[:i], w.Packets[i+1:]...)
			break
		}
	}
	if p.WireID == w.ID {
		p.WireID = ""
	}
}

// ClearPackets drops every packet from the wire (temporal rewind).
func (w *WireConnection) ClearPackets() {
	for _, p := range w.Packets {
		if p.WireID == w.ID {
			p.WireID = ""
		}
	}
	w.Packets = nil
}

// ReachedDestination reports whether the packet is within the arrival threshold
// of its goal port: the destination port, or the source port when returning.
func (w *WireConnection) ReachedDestination(p *Packet) bool {
	goal := w.dst
	if p.Reversing {
		goal = w.src
	}
	if goal == nil {
		return false
	}
	return p.Position.DistanceTo(goal.Position) <= arrivalThreshold
}

// AddBend inserts a bend projected onto the nearest control-polyline segment,
// preserving bend ordering, and returns the insertion index. Budget is the
// caller's concern.
func (w *WireConnection) AddBend(pos Point2D) (int, bool) {
	if len(w.Bends) >= MaxWireBends {
		return 0, false
	}
	control := w.ControlPoints()
	if len(control) < 2 {
		return 0, false
	}
	idx := nearestSegmentIndex(control, pos)
	aligned := closestPointOnSegment(control[idx], control[idx+1], pos)
	bend := NewWireBend(aligned)
	w.Bends = append(w.Bends, WireBend{})
	copy(w.Bends[idx+1:], w.Bends[idx:])
	w.Bends[idx] = bend
	return idx, true
}

// RemoveBend deletes the bend at the given index.
func (w *WireConnection) RemoveBend(index int) {
	if index < 0 || index >= len(w.Bends) {
		return
	}
	w.Bends = append(w.Bends[:index], w.Bends[index+1:]...)
}

// MoveBend relocates a bend. The only placement rule is permissive: the bend
// must stay outside the bounding boxes of the two endpoint systems and within
// its move radius. Budget is the caller's concern.
func (w *WireConnection) MoveBend(index int, pos Point2D) bool {
	if index < 0 || index >= len(w.Bends) {
		return false
	}
	bend := &w.Bends[index]
	if !bend.Movable {
		return false
	}
	if bend.Position.DistanceTo(pos) > bend.MaxMoveRadius {
		return false
	}
	for _, port := range []*Port{w.src, w.dst} {
		if port != nil && port.system != nil && port.system.Bounds().Contains(pos.X, pos.Y) {
			return false
		}
	}
	bend.Position = pos
	return true
}

// PassesOverSystems reports whether the straight source-destination segment
// crosses the bounding box of any system other than the wire's endpoints.
func (w *WireConnection) PassesOverSystems(systems []*System) bool {
	if w.src == nil || w.dst == nil {
		return false
	}
	for _, sys := range systems {
		if sys == w.src.system || sys == w.dst.system {
			continue
		}
		if segmentIntersectsRect(w.src.Position, w.dst.Position, sys.Bounds()) {
			return true
		}
	}
	return false
}

// ClosestPointOnWire returns the nearest point of the wire path to target,
// using smooth sampling (ability targeting).
func (w *WireConnection) ClosestPointOnWire(target Point2D) (Point2D, bool) {
	return closestPointOnPath(w.PathPoints(true), target)
}

// DistanceToPoint returns the distance from target to the wire path.
func (w *WireConnection) DistanceToPoint(target Point2D) float64 {
	closest, ok := w.ClosestPointOnWire(target)
	if !ok {
		return 0
	}
	return target.DistanceTo(closest)
}
