// Tracks simulation-wide outcome metrics for final reporting.

package sim

import "fmt"

// Metrics aggregates statistics about a simulation run for final reporting and
// for golden-style tests.
type Metrics struct {
	InjectedPackets  int // injections successfully placed on wires
	DeliveredPackets int // packets finalized by reference sinks
	LostPackets      int // packets removed by rule
	CoinsEarned      int // total coins awarded on system entries

	// DeliveredByType breaks deliveries down per packet type.
	DeliveredByType map[PacketType]int
}

// NewMetrics returns an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{DeliveredByType: make(map[PacketType]int)}
}

func (m *Metrics) recordDelivery(p *Packet) {
	m.DeliveredPackets++
	m.DeliveredByType[p.Type]++
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(st *GameState) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Scheduled Packets  : %d\n", st.TotalInjectedPackets())
	fmt.Printf("Injected Packets   : %d\n", m.InjectedPackets)
	fmt.Printf("Delivered Packets  : %d\n", m.DeliveredPackets)
	fmt.Printf("Lost Packets       : %d\n", st.LostPacketsCount)
	fmt.Printf("Packet Loss        : %.1f%%\n", st.PacketLossPercentage())
	fmt.Printf("Coins Earned       : %d\n", st.Coins)
	fmt.Printf("Wire Budget Left   : %.1f px\n", st.RemainingWireLength)
	if st.GameOver {
		fmt.Printf("Game Over          : %s\n", st.LastGameOverReason)
	}
	if st.LevelComplete {
		fmt.Println("Level Complete")
	}
	for t, n := range m.DeliveredByType {
		fmt.Printf("  delivered %-22s: %d\n", t.DisplayName(), n)
	}
}
