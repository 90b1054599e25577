// Package sim implements a deterministic packet-routing network simulation:
// systems (nodes) joined by directional wires carry typed packets under
// per-tick rules for movement, processing, collision, and loss.
//
// The engine runs a fixed single-threaded pipeline each tick — injection, wire
// motion, wire/port transfer, system processing, a second transfer pass,
// storage flush, collision, cleanup — so that a run is an atomic sequence of
// state transactions. All randomness is drawn from a seeded PartitionedRNG,
// making runs bit-for-bit reproducible and enabling time travel by replay.
package sim
