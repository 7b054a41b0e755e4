// Package timer advances the DIV and TIMA counters by the machine-cycle
// counts the emulator loop feeds it.
package timer

import "github.com/ahertlein/gbemu/internal/memory"

const (
	// CPUFrequency is in machine cycles per second (4 T-cycles each).
	CPUFrequency = 4194304 / 4

	divFrequency    = 16384
	divCyclesPerInc = CPUFrequency / divFrequency

	addrDIV  = 0xFF04
	addrTIMA = 0xFF05
	addrTMA  = 0xFF06
	addrTAC  = 0xFF07
)

// Timer holds the two cycle accumulators behind DIV and TIMA. The exposed
// register bytes live in memory; only the sub-increment remainders are here.
type Timer struct {
	divCycles  uint64
	timaCycles uint64
}

func New() *Timer { return &Timer{} }

// State is the serializable remainder of both accumulators.
type State struct {
	DivCycles  uint64
	TimaCycles uint64
}

func (t *Timer) State() State { return State{DivCycles: t.divCycles, TimaCycles: t.timaCycles} }

func (t *Timer) Restore(s State) {
	t.divCycles = s.DivCycles
	t.timaCycles = s.TimaCycles
}

// Update advances both counters. A software write to DIV (observed through
// the router) resets the divider accumulator as well as the byte.
func (t *Timer) Update(mem *memory.Memory, cycles int) {
	if mem.ConsumeDIVReset() {
		t.divCycles = 0
	}

	t.divCycles += uint64(cycles)
	for t.divCycles >= divCyclesPerInc {
		t.divCycles -= divCyclesPerInc
		mem.DirectWrite(addrDIV, mem.DirectRead(addrDIV)+1)
	}

	tac := mem.Read(addrTAC)
	if tac&(1<<2) == 0 {
		return
	}

	frequency := 4096
	switch tac & 0x3 {
	case 0x1:
		frequency = 262144
	case 0x2:
		frequency = 65536
	case 0x3:
		frequency = 16384
	}
	cyclesPerInc := uint64(CPUFrequency / frequency)

	t.timaCycles += uint64(cycles)
	for t.timaCycles >= cyclesPerInc {
		t.timaCycles -= cyclesPerInc
		next := mem.Read(addrTIMA) + 1
		if next == 0x00 {
			// Overflow: reload from TMA and request the timer interrupt.
			mem.RequestInterrupt(2)
			next = mem.Read(addrTMA)
		}
		mem.Write(addrTIMA, next)
	}
}
