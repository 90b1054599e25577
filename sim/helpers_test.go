package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test topology builders. Every test network is a horizontal chain
// source → relays… → sink at y=200, with one wire between consecutive systems.

// chainSpec selects the relay's port shapes in the three-system chain.
type chainSpec struct {
	relayIn  PortShape
	relayOut PortShape
}

// buildChainLevel builds source → relay → sink with a single square messenger
// scheduled at t=2. The level is returned unbound.
func buildChainLevel(spec chainSpec, tutorial bool) *GameLevel {
	return &GameLevel{
		LevelID:           "test-chain",
		Name:              "Test Chain",
		InitialWireLength: 1000,
		LevelDuration:     40,
		Tutorial:          tutorial,
		Systems: []*System{
			{
				ID: "source", Kind: ReferenceSystem, Position: Point2D{X: 100, Y: 200},
				OutputPorts: []*Port{{ID: "source:out:0", Shape: Square, Position: Point2D{X: 120, Y: 200}}},
			},
			{
				ID: "relay", Kind: NormalSystem, Position: Point2D{X: 300, Y: 200},
				InputPorts:  []*Port{{ID: "relay:in:0", Shape: spec.relayIn, Position: Point2D{X: 280, Y: 200}}},
				OutputPorts: []*Port{{ID: "relay:out:0", Shape: spec.relayOut, Position: Point2D{X: 320, Y: 200}}},
			},
			{
				ID: "sink", Kind: ReferenceSystem, Position: Point2D{X: 500, Y: 200},
				InputPorts: []*Port{{ID: "sink:in:0", Shape: Square, Position: Point2D{X: 480, Y: 200}}},
			},
		},
		Wires: []*WireConnection{
			{ID: "wire-001", SourcePortID: "source:out:0", DestPortID: "relay:in:0"},
			{ID: "wire-002", SourcePortID: "relay:out:0", DestPortID: "sink:in:0"},
		},
		PacketSchedule: []*PacketInjection{
			{Time: 2.0, Type: SquareMessenger, SourceID: "source"},
		},
	}
}

// buildPipelineLevel builds source → middles… → sink with hexagon ports
// throughout and the given schedule. The level is returned unbound.
func buildPipelineLevel(middles []SystemKind, schedule []*PacketInjection) *GameLevel {
	lvl := &GameLevel{
		LevelID:           "test-pipeline",
		Name:              "Test Pipeline",
		InitialWireLength: 4000,
		LevelDuration:     60,
		PacketSchedule:    schedule,
	}
	x := 100.0
	source := &System{
		ID: "source", Kind: ReferenceSystem, Position: Point2D{X: x, Y: 200},
		OutputPorts: []*Port{{ID: "source:out:0", Shape: Hexagon, Position: Point2D{X: x + 20, Y: 200}}},
	}
	lvl.Systems = append(lvl.Systems, source)

	prevOut := "source:out:0"
	for i, kind := range middles {
		x += 200
		id := fmt.Sprintf("mid%d", i)
		sys := &System{
			ID: id, Kind: kind, Position: Point2D{X: x, Y: 200},
			InputPorts:  []*Port{{ID: id + ":in:0", Shape: Hexagon, Position: Point2D{X: x - 20, Y: 200}}},
			OutputPorts: []*Port{{ID: id + ":out:0", Shape: Hexagon, Position: Point2D{X: x + 20, Y: 200}}},
		}
		lvl.Systems = append(lvl.Systems, sys)
		lvl.Wires = append(lvl.Wires, &WireConnection{
			ID:           fmt.Sprintf("wire-%03d", i+1),
			SourcePortID: prevOut,
			DestPortID:   id + ":in:0",
		})
		prevOut = id + ":out:0"
	}

	x += 200
	sink := &System{
		ID: "sink", Kind: ReferenceSystem, Position: Point2D{X: x, Y: 200},
		InputPorts: []*Port{{ID: "sink:in:0", Shape: Hexagon, Position: Point2D{X: x - 20, Y: 200}}},
	}
	lvl.Systems = append(lvl.Systems, sink)
	lvl.Wires = append(lvl.Wires, &WireConnection{
		ID:           fmt.Sprintf("wire-%03d", len(middles)+1),
		SourcePortID: prevOut,
		DestPortID:   "sink:in:0",
	})
	return lvl
}

// mustEngine binds the level and builds an engine over it with default
// settings and a fixed seed.
func mustEngine(t *testing.T, lvl *GameLevel, seed int64) *Engine {
	t.Helper()
	require.NoError(t, lvl.Bind())
	return NewEngine(lvl, DefaultSettings(), seed)
}

// runUntilHalted drives the engine in fixed steps until it halts or the time
// cap passes.
func runUntilHalted(eng *Engine, dt, maxTime float64) {
	eng.EnterSimulationMode()
	for !eng.Halted() && eng.State.LevelTimer < maxTime {
		eng.Tick(dt)
	}
}
