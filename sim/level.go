package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// portMatchTolerance is the position slack when matching wire endpoints to
// ports declared on systems (level files may repeat coordinates imprecisely).
const portMatchTolerance = 1.0

// PacketInjection schedules the creation of one packet at a source system.
type PacketInjection struct {
	Time     float64    `json:"time"`
	Type     PacketType `json:"packetType"`
	SourceID string     `json:"sourceId"`

	// Executed flips to true only once the packet has been placed on an
	// outgoing wire; failed placements retry on later ticks.
	Executed bool `json:"-"`
}

// PortRef identifies a port by parent system, approximate position, shape, and
// direction. Used by level files that do not assign explicit port IDs.
type PortRef struct {
	SystemID string    `json:"systemId"`
	Position Point2D   `json:"position"`
	Shape    PortShape `json:"shape"`
	Input    bool      `json:"input"`
}

// GameLevel is the mutable network graph: systems, wires, and the injection
// schedule, plus the wire budget and duration.
type GameLevel struct {
	LevelID            string             `json:"levelId"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	InitialWireLength  float64            `json:"initialWireLength"`
	LevelDuration      float64            `json:"levelDuration"`
	Tutorial           bool               `json:"tutorial,omitempty"`
	DisableSpeedDamage bool               `json:"disableSpeedDamage,omitempty"`
	Systems            []*System          `json:"systems"`
	Wires              []*WireConnection  `json:"wireConnections,omitempty"`
	PacketSchedule     []*PacketInjection `json:"packetSchedule"`

	systemsByID map[string]*System
	portsByID   map[string]*Port
	wiresByID   map[string]*WireConnection
}

// LoadLevel reads, parses, and binds a level JSON file.
func LoadLevel(path string) (*GameLevel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level: %w", err)
	}
	var lvl GameLevel
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("parsing level: %w", err)
	}
	if err := lvl.Bind(); err != nil {
		return nil, fmt.Errorf("binding level %s: %w", lvl.LevelID, err)
	}
	logrus.Infof("loaded level %s (%s): %d systems, %d wires, %d scheduled packets",
		lvl.LevelID, lvl.Name, len(lvl.Systems), len(lvl.Wires), len(lvl.PacketSchedule))
	return &lvl, nil
}

// Bind resolves all cross-references after construction or JSON load: port
// ownership and IDs, wire endpoints, schedule ordering, and lookup maps.
func (l *GameLevel) Bind() error {
	if l.LevelID == "" {
		return fmt.Errorf("level has no levelId")
	}
	l.systemsByID = make(map[string]*System, len(l.Systems))
	l.portsByID = make(map[string]*Port)
	l.wiresByID = make(map[string]*WireConnection, len(l.Wires))

	for _, s := range l.Systems {
		if s.ID == "" {
			return fmt.Errorf("system without id in level %s", l.LevelID)
		}
		if !s.Kind.Valid() {
			return fmt.Errorf("system %s has unknown type %q", s.ID, s.Kind)
		}
		if _, dup := l.systemsByID[s.ID]; dup {
			return fmt.Errorf("duplicate system id %s", s.ID)
		}
		l.systemsByID[s.ID] = s
		s.level = l
		s.Active = true
		if s.MaxDeactivationTime <= 0 {
			s.MaxDeactivationTime = DefaultDeactivationTime
		}
		for i, pt := range s.InputPorts {
			l.bindPort(s, pt, true, i)
		}
		for i, pt := range s.OutputPorts {
			l.bindPort(s, pt, false, i)
		}
	}

	for i, w := range l.Wires {
		if w.ID == "" {
			w.ID = fmt.Sprintf("wire-%03d", i+1)
		}
		src := l.resolveWireEndpoint(w.SourcePortID, w.SourceRef)
		if src == nil {
			return fmt.Errorf("wire %s has an unresolvable source port", w.ID)
		}
		dst := l.resolveWireEndpoint(w.DestPortID, w.DestRef)
		if dst == nil {
			return fmt.Errorf("wire %s has an unresolvable destination port", w.ID)
		}
		w.SourcePortID, w.DestPortID = src.ID, dst.ID
		w.bind(src, dst)
		if err := l.checkWireEndpoints(w); err != nil {
			return err
		}
		w.Active = !w.Destroyed
		if w.WireLength <= 0 {
			w.WireLength = src.Position.DistanceTo(dst.Position)
		}
		src.Connected = true
		dst.Connected = true
		l.wiresByID[w.ID] = w
	}

	for _, inj := range l.PacketSchedule {
		if !inj.Type.Valid() {
			return fmt.Errorf("schedule entry has unknown packet type %q", inj.Type)
		}
		if _, ok := l.systemsByID[inj.SourceID]; !ok {
			return fmt.Errorf("schedule entry references unknown source %q", inj.SourceID)
		}
	}
	sort.SliceStable(l.PacketSchedule, func(i, j int) bool {
		return l.PacketSchedule[i].Time < l.PacketSchedule[j].Time
	})
	return nil
}

// resolveWireEndpoint finds a wire endpoint either by explicit port ID or by
// descriptor matching.
func (l *GameLevel) resolveWireEndpoint(id string, ref *PortRef) *Port {
	if id != "" {
		return l.portsByID[id]
	}
	if ref != nil {
		return l.FindPort(*ref)
	}
	return nil
}

func (l *GameLevel) bindPort(s *System, pt *Port, input bool, index int) {
	pt.system = s
	pt.Input = input
	if pt.ID == "" {
		dir := "out"
		if input {
			dir = "in"
		}
		pt.ID = fmt.Sprintf("%s:%s:%d", s.ID, dir, index)
	}
	if pt.RelativeOffset == (Vec2D{}) && pt.Position != (Point2D{}) {
		pt.RelativeOffset = pt.Position.Sub(s.Position)
	}
	l.portsByID[pt.ID] = pt
}

func (l *GameLevel) checkWireEndpoints(w *WireConnection) error {
	src, dst := w.Source(), w.Destination()
	if src.Input || !dst.Input {
		return fmt.Errorf("wire %s does not run output → input", w.ID)
	}
	if src.system == dst.system {
		return fmt.Errorf("wire %s connects a system to itself", w.ID)
	}
	return nil
}

// SystemByID returns the system with the given id, or nil.
func (l *GameLevel) SystemByID(id string) *System { return l.systemsByID[id] }

// PortByID returns the port with the given id, or nil.
func (l *GameLevel) PortByID(id string) *Port { return l.portsByID[id] }

// WireByID returns the wire with the given id, or nil.
func (l *GameLevel) WireByID(id string) *WireConnection { return l.wiresByID[id] }

// FindPort matches a PortRef against the level's ports: same parent system,
// same shape and direction, position within one pixel.
func (l *GameLevel) FindPort(ref PortRef) *Port {
	sys := l.systemsByID[ref.SystemID]
	if sys == nil {
		return nil
	}
	for _, pt := range sys.AllPorts() {
		if pt.Input == ref.Input && pt.Shape == ref.Shape &&
			pt.Position.DistanceTo(ref.Position) < portMatchTolerance {
			return pt
		}
	}
	return nil
}

// WireFromPort returns the active or destroyed wire whose source is the port.
func (l *GameLevel) WireFromPort(pt *Port) *WireConnection {
	for _, w := range l.Wires {
		if w.src == pt {
			return w
		}
	}
	return nil
}

// WireToPort returns the wire whose destination is the port.
func (l *GameLevel) WireToPort(pt *Port) *WireConnection {
	for _, w := range l.Wires {
		if w.dst == pt {
			return w
		}
	}
	return nil
}

// SystemsOfKind returns all systems with the given kind, in declaration order.
func (l *GameLevel) SystemsOfKind(kind SystemKind) []*System {
	var out []*System
	for _, s := range l.Systems {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// SourceSystems returns the reference systems bound to the injection schedule.
func (l *GameLevel) SourceSystems() []*System {
	var out []*System
	for _, s := range l.Systems {
		if s.Kind == ReferenceSystem && s.IsSource() {
			out = append(out, s)
		}
	}
	return out
}

// DestinationSystems returns the reference systems that act as sinks: every
// reference system can receive, so this is all of them that are not pure
// sources without input ports.
func (l *GameLevel) DestinationSystems() []*System {
	var out []*System
	for _, s := range l.Systems {
		if s.Kind == ReferenceSystem && len(s.InputPorts) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// AddWire registers a wire built by the wiring controller.
func (l *GameLevel) AddWire(w *WireConnection) {
	l.Wires = append(l.Wires, w)
	l.wiresByID[w.ID] = w
}

// RemoveWire unregisters a wire.
func (l *GameLevel) RemoveWire(w *WireConnection) {
	for i, cur := range l.Wires {
		if cur == w {
			l.Wires = append(l.Wires[:i], l.Wires[i+1:]...)
			break
		}
	}
	delete(l.wiresByID, w.ID)
}

// HasWireBetween reports whether an active wire already joins the two ports in
// either direction.
func (l *GameLevel) HasWireBetween(a, b *Port) bool {
	for _, w := range l.Wires {
		if !w.Active {
			continue
		}
		if (w.src == a && w.dst == b) || (w.src == b && w.dst == a) {
			return true
		}
	}
	return false
}

// LevelValidationResult reports port-balance feasibility for a level design:
// wiring every port requires equal input and output counts overall and per
// shape.
type LevelValidationResult struct {
	BalancedPorts    bool
	CompatibleShapes bool
	TotalInputPorts  int
	TotalOutputPorts int
	InputShapes      map[PortShape]int
	OutputShapes     map[PortShape]int
	ShapeIssues      string
}

// Feasible reports whether every port can in principle be wired.
func (r LevelValidationResult) Feasible() bool {
	return r.BalancedPorts && r.CompatibleShapes
}

// ValidateDesign checks whether the level's port layout admits a complete
// wiring.
func (l *GameLevel) ValidateDesign() LevelValidationResult {
	res := LevelValidationResult{
		InputShapes:  make(map[PortShape]int),
		OutputShapes: make(map[PortShape]int),
	}
	for _, s := range l.Systems {
		for _, pt := range s.AllPorts() {
			if pt.Input {
				res.TotalInputPorts++
				res.InputShapes[pt.Shape]++
			} else {
				res.TotalOutputPorts++
				res.OutputShapes[pt.Shape]++
			}
		}
	}
	res.BalancedPorts = res.TotalInputPorts == res.TotalOutputPorts
	res.CompatibleShapes = true
	for _, shape := range portShapes {
		in, out := res.InputShapes[shape], res.OutputShapes[shape]
		if in != out {
			res.CompatibleShapes = false
			res.ShapeIssues += fmt.Sprintf(" %s: %d input vs %d output,", shape, in, out)
		}
	}
	return res
}
