package emu

import (
	"fmt"
	"strings"

	"github.com/ahertlein/gbemu/internal/cpu"
)

// TraceLine renders the state before the next instruction in binjgb's
// per-instruction log format:
//
//	A:xx F:ZNHC BC:xxxx DE:xxxx HL:xxxx SP:xxxx PC:xxxx (cy: N) ppu:+M|[00]0xxxxx: bytes...  mnemonic
//
// The cycle counter is printed in T-cycles (machine cycles times 4).
func (m *Machine) TraceLine() string {
	regs := &m.cpu.Regs
	pc := regs.Read16(cpu.RegPC)
	info := m.cpu.DisassembleNext(pc)

	flag := func(f cpu.Flag, set byte) byte {
		if regs.Flag(f) {
			return set
		}
		return '-'
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A:%02x F:%c%c%c%c ", regs.Read8(cpu.RegA),
		flag(cpu.FlagZ, 'Z'), flag(cpu.FlagN, 'N'), flag(cpu.FlagH, 'H'), flag(cpu.FlagC, 'C'))
	fmt.Fprintf(&b, "BC:%04x DE:%04x HL:%04x SP:%04x PC:%04x ",
		regs.Read16(cpu.RegBC), regs.Read16(cpu.RegDE), regs.Read16(cpu.RegHL),
		regs.Read16(cpu.RegSP), pc)
	fmt.Fprintf(&b, "(cy: %d) ", m.totalCycles*4)
	fmt.Fprintf(&b, "ppu:+%d|[00]0x%04x: ", m.mem.DirectRead(0xFF41)&0x3, pc)
	for _, raw := range info.Bytes {
		fmt.Fprintf(&b, "%02x ", raw)
	}
	fmt.Fprintf(&b, "\t\t%s", info.Instr.Mnemonic)
	return b.String()
}
