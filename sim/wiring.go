package sim

import "fmt"

// RejectionReason explains why an editing operation was refused. Rejections
// are result codes, not errors: the state is unchanged and the caller reports
// the reason.
type RejectionReason string

const (
	RejectionNone               RejectionReason = ""
	RejectionNotFound           RejectionReason = "NOT_FOUND"
	RejectionEditingOnly        RejectionReason = "EDITING_ONLY"
	RejectionSameSystem         RejectionReason = "SAME_SYSTEM"
	RejectionSameDirection      RejectionReason = "SAME_DIRECTION"
	RejectionPortConnected      RejectionReason = "PORT_ALREADY_CONNECTED"
	RejectionAlreadyExists      RejectionReason = "CONNECTION_EXISTS"
	RejectionCrossesSystem      RejectionReason = "PASSES_OVER_SYSTEM"
	RejectionInsufficientBudget RejectionReason = "INSUFFICIENT_WIRE_LENGTH"
	RejectionInsufficientCoins  RejectionReason = "INSUFFICIENT_COINS"
	RejectionTooManyBends       RejectionReason = "TOO_MANY_BENDS"
	RejectionImmovable          RejectionReason = "IMMOVABLE"
)

// bendCoinCost is the coin price of adding one bend.
const bendCoinCost = 1

// WiringController performs the editing-time operations on the level graph:
// wire creation and removal, bends, system moves, and wire merges. Every
// operation enforces the wire-length budget.
type WiringController struct {
	eng     *Engine
	wireSeq int
}

func (wc *WiringController) nextWireID() string {
	for {
		wc.wireSeq++
		id := fmt.Sprintf("wire-%03d", wc.wireSeq+len(wc.eng.State.Level.Wires))
		if wc.eng.State.Level.WireByID(id) == nil {
			return id
		}
	}
}

func (wc *WiringController) editable() bool {
	return wc.eng.mode == EditingMode
}

// CreateWire connects two ports. The endpoints are normalized so the source is
// the output port; both ports become connected and the straight-line length is
// deducted from the budget.
func (wc *WiringController) CreateWire(portID1, portID2 string) (*WireConnection, RejectionReason) {
	if !wc.editable() {
		return nil, RejectionEditingOnly
	}
	lvl := wc.eng.State.Level
	a := lvl.PortByID(portID1)
	b := lvl.PortByID(portID2)
	if a == nil || b == nil {
		return nil, RejectionNotFound
	}
	if a.system == b.system {
		return nil, RejectionSameSystem
	}
	if a.Input == b.Input {
		return nil, RejectionSameDirection
	}
	if a.Connected || b.Connected {
		return nil, RejectionPortConnected
	}
	if lvl.HasWireBetween(a, b) {
		return nil, RejectionAlreadyExists
	}

	src, dst := a, b
	if src.Input {
		src, dst = dst, src
	}
	w := &WireConnection{
		ID:           wc.nextWireID(),
		SourcePortID: src.ID,
		DestPortID:   dst.ID,
		Active:       true,
	}
	w.bind(src, dst)
	if w.PassesOverSystems(lvl.Systems) {
		return nil, RejectionCrossesSystem
	}
	length := src.Position.DistanceTo(dst.Position)
	if length > wc.eng.State.RemainingWireLength {
		return nil, RejectionInsufficientBudget
	}

	w.WireLength = length
	wc.eng.State.RemainingWireLength -= length
	src.Connected = true
	dst.Connected = true
	lvl.AddWire(w)
	return w, RejectionNone
}

// RemoveWire deactivates a wire, disconnects its ports, and refunds its full
// current length.
func (wc *WiringController) RemoveWire(wireID string) RejectionReason {
	if !wc.editable() {
		return RejectionEditingOnly
	}
	lvl := wc.eng.State.Level
	w := lvl.WireByID(wireID)
	if w == nil || !w.Active {
		return RejectionNotFound
	}
	wc.eng.State.RemainingWireLength += w.TotalLength(wc.eng.Settings.Smooth())
	if w.src != nil {
		w.src.Connected = false
	}
	if w.dst != nil {
		w.dst.Connected = false
	}
	w.Active = false
	lvl.RemoveWire(w)
	return RejectionNone
}

// AddBend inserts a bend on a wire for one coin, charging the induced length
// delta against the budget.
func (wc *WiringController) AddBend(wireID string, pos Point2D) RejectionReason {
	if !wc.editable() {
		return RejectionEditingOnly
	}
	w := wc.eng.State.Level.WireByID(wireID)
	if w == nil || !w.Active {
		return RejectionNotFound
	}
	if len(w.Bends) >= MaxWireBends {
		return RejectionTooManyBends
	}
	if wc.eng.State.Coins < bendCoinCost {
		return RejectionInsufficientCoins
	}
	smooth := wc.eng.Settings.Smooth()
	before := w.TotalLength(smooth)
	idx, ok := w.AddBend(pos)
	if !ok {
		return RejectionTooManyBends
	}
	delta := w.TotalLength(smooth) - before
	if delta > wc.eng.State.RemainingWireLength {
		// Roll the insertion back; the budget cannot cover the detour.
		w.RemoveBend(idx)
		return RejectionInsufficientBudget
	}
	wc.eng.State.RemainingWireLength -= delta
	wc.eng.State.SpendCoins(bendCoinCost)
	return RejectionNone
}

// MoveBend relocates a bend, deducting or refunding the length delta. The move
// is refused if the wire would exceed the remaining budget.
func (wc *WiringController) MoveBend(wireID string, index int, pos Point2D) RejectionReason {
	if !wc.editable() {
		return RejectionEditingOnly
	}
	w := wc.eng.State.Level.WireByID(wireID)
	if w == nil || !w.Active {
		return RejectionNotFound
	}
	if index < 0 || index >= len(w.Bends) {
		return RejectionNotFound
	}
	smooth := wc.eng.Settings.Smooth()
	before := w.TotalLength(smooth)
	original := w.Bends[index].Position
	if !w.MoveBend(index, pos) {
		return RejectionImmovable
	}
	delta := w.TotalLength(smooth) - before
	if delta > wc.eng.State.RemainingWireLength {
		w.Bends[index].Position = original
		return RejectionInsufficientBudget
	}
	wc.eng.State.RemainingWireLength -= delta
	return RejectionNone
}

// MoveSystem relocates a system and its ports, verifying that every incident
// wire still avoids other systems and that the total length delta fits the
// budget; otherwise the move reverts. During simulation a Sisyphus charge is
// required.
func (wc *WiringController) MoveSystem(systemID string, pos Point2D) RejectionReason {
	if !wc.editable() {
		if wc.eng.sisyphusCharges == 0 {
			return RejectionEditingOnly
		}
	}
	lvl := wc.eng.State.Level
	sys := lvl.SystemByID(systemID)
	if sys == nil {
		return RejectionNotFound
	}
	if sys.Kind == ReferenceSystem {
		return RejectionImmovable
	}
	smooth := wc.eng.Settings.Smooth()

	type incident struct {
		wire      *WireConnection
		oldLength float64
	}
	var incidents []incident
	for _, w := range lvl.Wires {
		if !w.Active {
			continue
		}
		if (w.src != nil && w.src.system == sys) || (w.dst != nil && w.dst.system == sys) {
			incidents = append(incidents, incident{w, w.TotalLength(smooth)})
		}
	}

	original := sys.Position
	place := func(p Point2D) {
		sys.Position = p
		for _, pt := range sys.AllPorts() {
			pt.RepositionRelativeToSystem()
		}
	}
	place(pos)

	delta := 0.0
	ok := true
	for _, inc := range incidents {
		if inc.wire.PassesOverSystems(lvl.Systems) {
			ok = false
			break
		}
		delta += inc.wire.TotalLength(smooth) - inc.oldLength
	}
	if ok && delta > wc.eng.State.RemainingWireLength {
		ok = false
	}
	if !ok {
		place(original)
		return RejectionInsufficientBudget
	}

	for _, inc := range incidents {
		inc.wire.WireLength = inc.wire.TotalLength(smooth)
	}
	wc.eng.State.RemainingWireLength -= delta
	if !wc.editable() {
		wc.eng.sisyphusCharges--
	}
	return RejectionNone
}

// MergeWires joins two wires sharing a common port into one direct wire between
// the two outer ports, carrying the summed length. The old wires deactivate and
// the shared port disconnects.
func (wc *WiringController) MergeWires(wireID1, wireID2 string) (*WireConnection, RejectionReason) {
	if !wc.editable() {
		return nil, RejectionEditingOnly
	}
	lvl := wc.eng.State.Level
	w1 := lvl.WireByID(wireID1)
	w2 := lvl.WireByID(wireID2)
	if w1 == nil || w2 == nil || !w1.Active || !w2.Active {
		return nil, RejectionNotFound
	}
	// The wires must meet at a shared junction: the same port, or the input
	// and output side of the same system.
	var outer1, outer2 *Port
	var junction []*Port
	if common := commonPort(w1, w2); common != nil {
		outer1 = otherPort(w1, common)
		outer2 = otherPort(w2, common)
		junction = []*Port{common}
	} else if w1.dst != nil && w2.src != nil && w1.dst.system == w2.src.system {
		outer1, outer2 = w1.src, w2.dst
		junction = []*Port{w1.dst, w2.src}
	} else if w2.dst != nil && w1.src != nil && w2.dst.system == w1.src.system {
		outer1, outer2 = w2.src, w1.dst
		junction = []*Port{w2.dst, w1.src}
	} else {
		return nil, RejectionNotFound
	}
	if outer1 == nil || outer2 == nil {
		return nil, RejectionNotFound
	}
	if outer1.system == outer2.system {
		return nil, RejectionSameSystem
	}
	if outer1.Input == outer2.Input {
		return nil, RejectionSameDirection
	}

	smooth := wc.eng.Settings.Smooth()
	total := w1.TotalLength(smooth) + w2.TotalLength(smooth)

	src, dst := outer1, outer2
	if src.Input {
		src, dst = dst, src
	}
	merged := &WireConnection{
		ID:           wc.nextWireID(),
		SourcePortID: src.ID,
		DestPortID:   dst.ID,
		WireLength:   total,
		Active:       true,
	}
	merged.bind(src, dst)
	if merged.PassesOverSystems(lvl.Systems) {
		return nil, RejectionCrossesSystem
	}

	w1.Active = false
	w2.Active = false
	lvl.RemoveWire(w1)
	lvl.RemoveWire(w2)
	lvl.AddWire(merged)
	for _, pt := range junction {
		pt.Connected = false
	}
	src.Connected = true
	dst.Connected = true
	return merged, RejectionNone
}

func commonPort(w1, w2 *WireConnection) *Port {
	for _, p1 := range []*Port{w1.src, w1.dst} {
		for _, p2 := range []*Port{w2.src, w2.dst} {
			if p1 != nil && p1 == p2 {
				return p1
			}
		}
	}
	return nil
}

func otherPort(w *WireConnection, exclude *Port) *Port {
	if w.src == exclude {
		return w.dst
	}
	if w.dst == exclude {
		return w.src
	}
	return nil
}

// NetworkConnected reports whether every system is reachable from the first
// one over active wires, ignoring direction.
func (wc *WiringController) NetworkConnected() bool {
	systems := wc.eng.State.Level.Systems
	if len(systems) == 0 {
		return false
	}
	return wc.ReachableSystemCount() == len(systems)
}

// ReachableSystemCount counts systems reachable from the first system over
// active wires, ignoring direction.
func (wc *WiringController) ReachableSystemCount() int {
	lvl := wc.eng.State.Level
	if len(lvl.Systems) == 0 {
		return 0
	}
	visited := map[string]bool{lvl.Systems[0].ID: true}
	queue := []*System{lvl.Systems[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, w := range lvl.Wires {
			if !w.Active || w.src == nil || w.dst == nil {
				continue
			}
			var next *System
			if w.src.system == cur {
				next = w.dst.system
			} else if w.dst.system == cur {
				next = w.src.system
			}
			if next != nil && !visited[next.ID] {
				visited[next.ID] = true
				queue = append(queue, next)
			}
		}
	}
	return len(visited)
}

// UnconnectedPorts lists every port without a wire, for editor feedback.
func (wc *WiringController) UnconnectedPorts() []*Port {
	var out []*Port
	for _, s := range wc.eng.State.Level.Systems {
		for _, pt := range s.AllPorts() {
			if !pt.Connected {
				out = append(out, pt)
			}
		}
	}
	return out
}
