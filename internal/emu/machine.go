// Package emu owns the emulator loop: it interleaves CPU, timer and PPU
// per instruction, observes the serial port, and frames the PPU output for
// the host.
package emu

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ahertlein/gbemu/internal/cart"
	"github.com/ahertlein/gbemu/internal/cpu"
	"github.com/ahertlein/gbemu/internal/memory"
	"github.com/ahertlein/gbemu/internal/ppu"
	"github.com/ahertlein/gbemu/internal/timer"
)

const (
	addrSB = 0xFF01
	addrSC = 0xFF02
)

// Machine wires the whole core together. The CPU drives scheduling: each
// step yields a machine-cycle count that is forwarded to the timer and the
// PPU, in that order, so an interrupt they raise during step N becomes
// visible to the CPU at step N+1.
type Machine struct {
	cfg Config

	cpu   *cpu.CPU
	mem   *memory.Memory
	timer *timer.Timer
	ppu   *ppu.PPU

	serialLink []byte
	serialW    io.Writer
	traceW     io.Writer

	// history, when enabled, records a per-step memory diff so debug
	// tooling can dump recent writes or rewind the image.
	history *memory.Snapshots

	totalCycles  uint64
	frameCycles  uint64
	instructions uint64
}

func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge classifies the ROM, builds the memory fabric around it and
// resets the CPU to post-boot state.
func (m *Machine) LoadCartridge(rom []byte) error {
	c, err := cart.New(rom)
	if err != nil {
		return fmt.Errorf("load cartridge: %w", err)
	}
	m.mem = memory.New(c)
	m.cpu = cpu.New(m.mem)
	m.cpu.Regs.Reset()
	m.timer = timer.New()
	m.ppu = ppu.New()
	m.totalCycles = 0
	m.frameCycles = 0
	m.instructions = 0
	m.serialLink = nil
	return nil
}

// CPU, Memory and PPU expose the parts for tests and debug tools.
func (m *Machine) CPU() *cpu.CPU          { return m.cpu }
func (m *Machine) Memory() *memory.Memory { return m.mem }
func (m *Machine) PPU() *ppu.PPU          { return m.ppu }

// SetSerialWriter streams serial-port bytes to w as they are emitted.
func (m *Machine) SetSerialWriter(w io.Writer) { m.serialW = w }

// SetTraceWriter enables the per-instruction trace log.
func (m *Machine) SetTraceWriter(w io.Writer) { m.traceW = w }

// SerialOutput returns everything the cartridge wrote to the serial port.
func (m *Machine) SerialOutput() string { return string(m.serialLink) }

// Instructions returns the number of instructions executed so far.
func (m *Machine) Instructions() uint64 { return m.instructions }

// Cycles returns the machine cycles consumed so far.
func (m *Machine) Cycles() uint64 { return m.totalCycles }

// EnableHistory starts recording a memory diff per step. The diff scan
// touches the whole 64 KiB image, so this is a debug facility, not a
// steady-state mode. Call after LoadCartridge.
func (m *Machine) EnableHistory() {
	m.history = memory.NewSnapshots(m.mem)
}

// History returns the recorded snapshot ring, or nil when disabled.
func (m *Machine) History() *memory.Snapshots { return m.history }

// SetJoypadState latches the host's button mask (memory.Joyp* bits).
func (m *Machine) SetJoypadState(mask byte) { m.mem.SetJoypadState(mask) }

// Framebuffer returns the PPU's 160x144 paletted display buffer.
func (m *Machine) Framebuffer() []byte { return m.ppu.Display() }

// Step runs one unit of work: while halted, either wake on a pending
// interrupt or burn an idle cycle; otherwise dispatch a pending interrupt
// (IME permitting) and execute one instruction. The resulting cycle count
// then advances the timer and the PPU.
func (m *Machine) Step() int {
	cycles := 0
	if m.cpu.Regs.Halt {
		if _, ok := m.cpu.PendingInterrupt(); ok {
			m.cpu.Regs.Halt = false
			if m.cpu.Regs.IME {
				cycles = m.cpu.ServiceInterrupt()
			}
		} else {
			cycles = 1
		}
	} else {
		if m.cpu.Regs.IME {
			cycles += m.cpu.ServiceInterrupt()
		}
		if m.traceW != nil {
			fmt.Fprintln(m.traceW, m.TraceLine())
		}
		cycles += m.cpu.ExecuteNext()
		m.instructions++
		m.observeSerial()
	}

	m.timer.Update(m.mem, cycles)
	m.ppu.Update(m.mem, cycles)

	if m.history != nil {
		m.history.Add(m.mem)
	}

	m.totalCycles += uint64(cycles)
	m.frameCycles += uint64(cycles)
	return cycles
}

// observeSerial implements the test-ROM convention: a transfer request
// (0xFF02 == 0x81) emits the data byte and completes immediately.
func (m *Machine) observeSerial() {
	if m.mem.Read(addrSC) != 0x81 {
		return
	}
	b := m.mem.Read(addrSB)
	m.serialLink = append(m.serialLink, b)
	if m.serialW != nil {
		_, _ = m.serialW.Write([]byte{b})
	}
	m.mem.Write(addrSC, 0x80)
}

// StepFrame runs until one frame's worth of cycles has elapsed.
func (m *Machine) StepFrame() {
	for m.frameCycles < ppu.CyclesPerFrame {
		m.Step()
	}
	m.frameCycles -= ppu.CyclesPerFrame
}

// RunInstructions executes a bounded number of instruction steps; idle
// HALT cycles do not count against the budget.
func (m *Machine) RunInstructions(count uint64) {
	target := m.instructions + count
	for m.instructions < target {
		m.Step()
	}
}

type machineState struct {
	Mem          []byte
	Regs         [12]byte
	IME, Halt    bool
	TotalCycles  uint64
	FrameCycles  uint64
	Instructions uint64
	Timer        timer.State
	PPU          ppu.State
	Serial       []byte
}

// SaveState serializes the machine. The cartridge ROM is not included;
// LoadState expects the same cartridge to be loaded.
func (m *Machine) SaveState() []byte {
	s := machineState{
		Mem:          m.mem.SaveState(),
		Regs:         m.cpu.Regs.Dump(),
		IME:          m.cpu.Regs.IME,
		Halt:         m.cpu.Regs.Halt,
		TotalCycles:  m.totalCycles,
		FrameCycles:  m.frameCycles,
		Instructions: m.instructions,
		Timer:        m.timer.State(),
		PPU:          m.ppu.State(),
		Serial:       append([]byte(nil), m.serialLink...),
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

// LoadState restores a SaveState image.
func (m *Machine) LoadState(data []byte) error {
	var s machineState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	m.mem.LoadState(s.Mem)
	m.cpu.Regs.Restore(s.Regs)
	m.cpu.Regs.IME = s.IME
	m.cpu.Regs.Halt = s.Halt
	m.totalCycles = s.TotalCycles
	m.frameCycles = s.FrameCycles
	m.instructions = s.Instructions
	m.timer.Restore(s.Timer)
	m.ppu.Restore(s.PPU)
	m.serialLink = s.Serial
	return nil
}
