package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC2 implements the simpler MBC2 banker: a 4-bit ROM bank register and a
// built-in RAM block. RAM-enable writes are ignored when address bit 8 is
// set; that bit selects between the enable and bank registers on hardware.
type MBC2 struct {
	rom []byte
	ram [ramBankSize]byte

	romBank    byte
	ramEnabled bool
}

func NewMBC2(rom []byte) *MBC2 {
	return &MBC2{rom: rom, romBank: 1}
}

func (m *MBC2) Read(addr uint16) byte {
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
		return m.ram[addr-0xA000]
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr <= 0x1FFF:
		if addr&0x0100 != 0 {
			return
		}
		switch value & 0x0F {
		case 0x0A:
			m.ramEnabled = true
		case 0x00:
			m.ramEnabled = false
		}
	case addr <= 0x3FFF:
		m.romBank = value & 0x0F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.ram[addr-0xA000] = value
		}
	}
}

func (m *MBC2) Clone() Cartridge {
	c := *m
	return &c
}

type mbc2State struct {
	RAM        [ramBankSize]byte
	ROMBank    byte
	RAMEnabled bool
}

func (m *MBC2) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc2State{RAM: m.ram, ROMBank: m.romBank, RAMEnabled: m.ramEnabled})
	return buf.Bytes()
}

func (m *MBC2) LoadState(data []byte) {
	var s mbc2State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ram = s.RAM
	m.romBank = s.ROMBank
	m.ramEnabled = s.RAMEnabled
	if m.romBank == 0 {
		m.romBank = 1
	}
}
