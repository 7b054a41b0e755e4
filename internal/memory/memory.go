// Package memory implements the 64 KiB address-space router: cartridge
// delegation, echo RAM mirroring, OAM DMA, the DIV reset rule, and joypad
// register synthesis. The CPU goes through Read/Write; the PPU and timer
// use DirectRead/DirectWrite to touch registers without re-triggering the
// routing side effects.
package memory

import (
	"bytes"
	"encoding/gob"

	"github.com/ahertlein/gbemu/internal/cart"
)

const (
	// JoypRight..JoypStart are joypad state bits; set means pressed.
	JoypRight = 1 << 0
	JoypLeft  = 1 << 1
	JoypUp    = 1 << 2
	JoypDown  = 1 << 3
	JoypA     = 1 << 4
	JoypB     = 1 << 5
	JoypSel   = 1 << 6
	JoypStart = 1 << 7
)

// Memory owns the backing 64 KiB array and the cartridge. All CPU-visible
// access is sequential, so no locking is involved anywhere.
type Memory struct {
	arr  [0x10000]byte
	cart cart.Cartridge

	// joypadState is the host-latched button mask (1 = pressed); the value
	// read back at 0xFF00 is synthesized from it and the select bits.
	joypadState byte

	// divWritten flags a software write to 0xFF04 so the timer can reset
	// its divider accumulator along with the exposed byte.
	divWritten bool
}

// New wires a cartridge (may be nil for bare-array use in tests) and sets
// the post-boot register image.
func New(c cart.Cartridge) *Memory {
	m := &Memory{cart: c}
	for addr := 0xA000; addr < 0xE000; addr++ {
		m.arr[addr] = 0xFF
	}
	m.arr[0xFF04] = 0xAC
	m.arr[0xFF07] = 0xF8
	m.arr[0xFF40] = 0x91
	return m
}

// Cart exposes the cartridge for startup logging.
func (m *Memory) Cart() cart.Cartridge { return m.cart }

// DirectRead bypasses routing; internal use by the PPU, timer and tests.
func (m *Memory) DirectRead(addr uint16) byte { return m.arr[addr] }

// DirectWrite bypasses routing; internal use by the PPU, timer and tests.
func (m *Memory) DirectWrite(addr uint16, value byte) { m.arr[addr] = value }

func (m *Memory) Read(addr uint16) byte {
	switch {
	case addr <= 0x7FFF:
		if m.cart != nil {
			return m.cart.Read(addr)
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.cart != nil {
			return m.cart.Read(addr)
		}
	case addr >= 0xE000 && addr <= 0xFDFF:
		return m.arr[addr-0x2000]
	case addr == 0xFF00:
		joyp := m.arr[0xFF00]
		if joyp&(1<<4) == 0 {
			return ^(m.joypadState & 0x0F)
		}
		if joyp&(1<<5) == 0 {
			return ^(m.joypadState >> 4 & 0x0F)
		}
	}
	return m.arr[addr]
}

func (m *Memory) Write(addr uint16, value byte) {
	switch {
	case addr <= 0x7FFF:
		if m.cart != nil {
			m.cart.Write(addr, value)
			return
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.cart != nil {
			m.cart.Write(addr, value)
			return
		}
	case addr >= 0xE000 && addr <= 0xFDFF:
		m.arr[addr-0x2000] = value
		return
	case addr == 0xFF46:
		// OAM DMA: 160 bytes from value<<8, atomic from the software view.
		m.arr[addr] = value
		src := uint16(value) << 8
		for i := uint16(0); i < 0xA0; i++ {
			m.arr[0xFE00+i] = m.Read(src + i)
		}
		return
	case addr == 0xFF04:
		m.arr[addr] = 0x00
		m.divWritten = true
		return
	}
	m.arr[addr] = value
}

// JoypadState returns the latched button mask.
func (m *Memory) JoypadState() byte { return m.joypadState }

// SetJoypadState latches the host's button mask and raises the joypad
// interrupt (IF bit 4) for freshly pressed buttons in the group currently
// selected through the 0xFF00 mode bits.
func (m *Memory) SetJoypadState(mask byte) {
	pressed := mask &^ m.joypadState
	m.joypadState = mask
	if pressed == 0 {
		return
	}
	joyp := m.arr[0xFF00]
	directions := joyp&(1<<4) == 0 && pressed&0x0F != 0
	actions := joyp&(1<<5) == 0 && pressed&0xF0 != 0
	if directions || actions {
		m.arr[0xFF0F] |= 0x10
	}
}

// ConsumeDIVReset reports (and clears) a pending software DIV reset.
func (m *Memory) ConsumeDIVReset() bool {
	w := m.divWritten
	m.divWritten = false
	return w
}

// RequestInterrupt sets a bit in IF (0xFF0F).
func (m *Memory) RequestInterrupt(bit int) {
	m.arr[0xFF0F] |= 1 << bit
}

// Clone deep-copies the memory image and the cartridge state. The
// disassembler executes dry steps against clones.
func (m *Memory) Clone() *Memory {
	c := *m
	if m.cart != nil {
		c.cart = m.cart.Clone()
	}
	return &c
}

// Dump returns a copy of the backing array.
func (m *Memory) Dump() [0x10000]byte { return m.arr }

type memoryState struct {
	Arr    [0x10000]byte
	Joypad byte
	Cart   []byte
}

// SaveState serializes the array, joypad latch and cartridge state.
func (m *Memory) SaveState() []byte {
	s := memoryState{Arr: m.arr, Joypad: m.joypadState}
	if m.cart != nil {
		s.Cart = m.cart.SaveState()
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

// LoadState restores a SaveState image. The cartridge ROM itself is not
// part of the state; the same cartridge must already be loaded.
func (m *Memory) LoadState(data []byte) {
	var s memoryState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.arr = s.Arr
	m.joypadState = s.Joypad
	if m.cart != nil && s.Cart != nil {
		m.cart.LoadState(s.Cart)
	}
}
