package cart

import (
	"bytes"
	"encoding/gob"
)

const ramBankSize = 0x2000

// MBC1 implements MBC1 ROM/RAM banking: a 5-bit ROM bank register, a 2-bit
// register that doubles as ROM-bank high bits or RAM bank depending on the
// mode latch, and a RAM enable gate.
type MBC1 struct {
	rom []byte
	ram [4][ramBankSize]byte

	romBank    byte // never 0; writes of 0 are promoted to 1
	ramBank    byte
	ramEnabled bool
	romMode    bool // true: ROM banking mode (default); false: RAM banking
}

func NewMBC1(rom []byte) *MBC1 {
	return &MBC1{rom: rom, romBank: 1, romMode: true}
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr <= 0x3FFF:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr <= 0x7FFF:
		off := int(addr) - 0x4000 + int(m.romBank)*0x4000
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[m.ramBank][addr-0xA000]
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr <= 0x1FFF:
		switch value & 0x0F {
		case 0x0A:
			m.ramEnabled = true
		case 0x00:
			m.ramEnabled = false
		}
	case addr <= 0x3FFF:
		low5 := value & 0x1F
		if low5 == 0 {
			low5 = 1
		}
		m.romBank = m.romBank&0x60 | low5
	case addr <= 0x5FFF:
		if m.romMode {
			m.romBank = m.romBank&0x1F | (value&0x03)<<5
			if m.romBank == 0 {
				m.romBank = 1
			}
		} else {
			m.ramBank = value & 0x03
		}
	case addr <= 0x7FFF:
		m.romMode = value&0x01 == 0
		if m.romMode {
			m.ramBank = 0
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.ram[m.ramBank][addr-0xA000] = value
		}
	}
}

func (m *MBC1) Clone() Cartridge {
	c := *m
	return &c
}

type mbc1State struct {
	RAM        [4][ramBankSize]byte
	ROMBank    byte
	RAMBank    byte
	RAMEnabled bool
	ROMMode    bool
}

func (m *MBC1) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc1State{
		RAM: m.ram, ROMBank: m.romBank, RAMBank: m.ramBank,
		RAMEnabled: m.ramEnabled, ROMMode: m.romMode,
	})
	return buf.Bytes()
}

func (m *MBC1) LoadState(data []byte) {
	var s mbc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ram = s.RAM
	m.romBank = s.ROMBank
	m.ramBank = s.RAMBank
	m.ramEnabled = s.RAMEnabled
	m.romMode = s.ROMMode
	if m.romBank == 0 {
		m.romBank = 1
	}
}
