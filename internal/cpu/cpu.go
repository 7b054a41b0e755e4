// Package cpu implements the Sharp LR35902 interpreter: the register file,
// the opcode tables, instruction execution and interrupt dispatch. Cycle
// counts are machine cycles (4 T-cycles each).
package cpu

import (
	"github.com/ahertlein/gbemu/internal/memory"
)

// Interrupt bit positions in IE/IF, in priority order.
const (
	IntVBlank = 0
	IntStat   = 1
	IntTimer  = 2
	IntSerial = 3
	IntJoypad = 4
)

const (
	addrIF = 0xFF0F
	addrIE = 0xFFFF
)

// CPU couples the register file to the memory router. Every memory access
// goes through the router; no pointers into backing storage are retained
// across instructions (bank switches may change what an address means).
type CPU struct {
	Regs Registers
	mem  *memory.Memory
}

func New(mem *memory.Memory) *CPU {
	return &CPU{mem: mem}
}

// Memory exposes the router for tests and tools.
func (c *CPU) Memory() *memory.Memory { return c.mem }

// Step services a pending interrupt if IME allows, then executes one
// instruction. While halted it burns a single idle cycle; waking from HALT
// is the emulator loop's job.
func (c *CPU) Step() int {
	cycles := 0
	if c.Regs.IME {
		cycles += c.ServiceInterrupt()
	}
	if c.Regs.Halt {
		return cycles + 1
	}
	return cycles + c.ExecuteNext()
}

// PendingInterrupt returns the highest-priority bit set in both IE and IF.
func (c *CPU) PendingInterrupt() (int, bool) {
	pending := c.mem.Read(addrIE) & c.mem.Read(addrIF) & 0x1F
	if pending == 0 {
		return 0, false
	}
	bit := 0
	for pending&(1<<bit) == 0 {
		bit++
	}
	return bit, true
}

// ServiceInterrupt dispatches the highest-priority pending interrupt:
// acknowledge the IF bit, push PC, clear IME, jump to the vector. Returns
// the 5 machine cycles the dispatch costs, or 0 when nothing is pending.
func (c *CPU) ServiceInterrupt() int {
	bit, ok := c.PendingInterrupt()
	if !ok {
		return 0
	}
	c.mem.Write(addrIF, c.mem.Read(addrIF)&^(1<<bit))
	c.Regs.IME = false
	c.Regs.Halt = false
	c.push16(c.Regs.Read16(RegPC))
	c.Regs.Write16(RegPC, 0x0040+uint16(bit)*8)
	return 5
}

// ExecuteNext runs the instruction at PC and returns its cycle count.
// After execution PC advances by the instruction size; handlers that jump
// write the destination minus the size so the advancement lands exactly on
// the target.
func (c *CPU) ExecuteNext() int {
	pc := c.Regs.Read16(RegPC)
	opcode := c.opcodeAt(pc)
	ins := Lookup(opcode)
	cycles := c.execute(opcode, pc)
	c.Regs.Write16(RegPC, c.Regs.Read16(RegPC)+uint16(ins.Size))
	return cycles
}

func (c *CPU) opcodeAt(addr uint16) uint16 {
	first := uint16(c.mem.Read(addr))
	if first == 0xCB {
		return first<<8 | uint16(c.mem.Read(addr+1))
	}
	return first
}

// Operand fetch helpers. PC still points at the opcode during execution,
// so immediates sit at pc+1 and pc+2.

func (c *CPU) imm8(pc uint16) byte { return c.mem.Read(pc + 1) }

func (c *CPU) imm16(pc uint16) uint16 {
	return uint16(c.mem.Read(pc+1)) | uint16(c.mem.Read(pc+2))<<8
}

func (c *CPU) push16(v uint16) {
	sp := c.Regs.Read16(RegSP)
	c.mem.Write(sp-1, byte(v>>8))
	c.mem.Write(sp-2, byte(v))
	c.Regs.Write16(RegSP, sp-2)
}

func (c *CPU) pop16() uint16 {
	sp := c.Regs.Read16(RegSP)
	v := uint16(c.mem.Read(sp)) | uint16(c.mem.Read(sp+1))<<8
	c.Regs.Write16(RegSP, sp+2)
	return v
}

// operandRegs maps the 3-bit register encoding shared by most opcode
// families: B C D E H L (HL) A. Index 6 is the (HL) memory operand and is
// special-cased by getOperand/setOperand.
var operandRegs = [8]Reg8{RegB, RegC, RegD, RegE, RegH, RegL, RegB, RegA}

func (c *CPU) getOperand(idx byte) byte {
	if idx == 6 {
		return c.mem.Read(c.Regs.Read16(RegHL))
	}
	return c.Regs.Read8(operandRegs[idx])
}

func (c *CPU) setOperand(idx byte, v byte) {
	if idx == 6 {
		c.mem.Write(c.Regs.Read16(RegHL), v)
		return
	}
	c.Regs.Write8(operandRegs[idx], v)
}

// ALU helpers. Each rewrites the full flag nibble.

func (c *CPU) aluAdd(v byte, withCarry bool) {
	a := c.Regs.Read8(RegA)
	var ci byte
	if withCarry && c.Regs.Flag(FlagC) {
		ci = 1
	}
	r := a + v + ci
	h := a&0x0F+v&0x0F+ci > 0x0F
	cy := uint16(a)+uint16(v)+uint16(ci) > 0xFF
	c.Regs.setZNHC(r == 0, false, h, cy)
	c.Regs.Write8(RegA, r)
}

func (c *CPU) aluSub(v byte, withCarry, store bool) {
	a := c.Regs.Read8(RegA)
	var ci byte
	if withCarry && c.Regs.Flag(FlagC) {
		ci = 1
	}
	r := a - v - ci
	h := uint16(a&0x0F) < uint16(v&0x0F)+uint16(ci)
	cy := uint16(a) < uint16(v)+uint16(ci)
	c.Regs.setZNHC(r == 0, true, h, cy)
	if store {
		c.Regs.Write8(RegA, r)
	}
}

func (c *CPU) aluAnd(v byte) {
	r := c.Regs.Read8(RegA) & v
	c.Regs.setZNHC(r == 0, false, true, false)
	c.Regs.Write8(RegA, r)
}

func (c *CPU) aluXor(v byte) {
	r := c.Regs.Read8(RegA) ^ v
	c.Regs.setZNHC(r == 0, false, false, false)
	c.Regs.Write8(RegA, r)
}

func (c *CPU) aluOr(v byte) {
	r := c.Regs.Read8(RegA) | v
	c.Regs.setZNHC(r == 0, false, false, false)
	c.Regs.Write8(RegA, r)
}

func (c *CPU) incOperand(idx byte) {
	old := c.getOperand(idx)
	v := old + 1
	c.setOperand(idx, v)
	c.Regs.SetFlag(FlagZ, v == 0)
	c.Regs.SetFlag(FlagN, false)
	c.Regs.SetFlag(FlagH, halfCarryAdd8(old, 1))
}

func (c *CPU) decOperand(idx byte) {
	old := c.getOperand(idx)
	v := old - 1
	c.setOperand(idx, v)
	c.Regs.SetFlag(FlagZ, v == 0)
	c.Regs.SetFlag(FlagN, true)
	c.Regs.SetFlag(FlagH, halfCarrySub8(old, 1))
}

func (c *CPU) addHL(v uint16) {
	hl := c.Regs.Read16(RegHL)
	c.Regs.SetFlag(FlagN, false)
	c.Regs.SetFlag(FlagH, halfCarryAdd16(hl, v))
	c.Regs.SetFlag(FlagC, carryAdd16(hl, v))
	c.Regs.Write16(RegHL, hl+v)
}

// spOffset computes SP+s8 and sets Z=0, N=0, H/C from the 8-bit addition
// of SP's low byte and the displacement.
func (c *CPU) spOffset(off int8) uint16 {
	sp := c.Regs.Read16(RegSP)
	lo := byte(sp)
	c.Regs.setZNHC(false, false, halfCarryAdd8(lo, byte(off)), carryAdd8(lo, byte(off)))
	return sp + uint16(int16(off))
}

func (c *CPU) condition(code byte) bool {
	switch code {
	case 0: // NZ
		return !c.Regs.Flag(FlagZ)
	case 1: // Z
		return c.Regs.Flag(FlagZ)
	case 2: // NC
		return !c.Regs.Flag(FlagC)
	default: // C
		return c.Regs.Flag(FlagC)
	}
}

// execute dispatches one opcode. pc is the instruction's own address; the
// caller advances PC by the table size afterwards, so every jump target is
// written pre-subtracted.
func (c *CPU) execute(opcode uint16, pc uint16) int {
	if opcode > 0xFF {
		return c.executeCB(byte(opcode), pc)
	}
	op := byte(opcode)

	switch op {
	case 0x00: // NOP
		return 1
	case 0x10: // STOP
		return 1

	// 16-bit immediate loads
	case 0x01:
		c.Regs.Write16(RegBC, c.imm16(pc))
		return 3
	case 0x11:
		c.Regs.Write16(RegDE, c.imm16(pc))
		return 3
	case 0x21:
		c.Regs.Write16(RegHL, c.imm16(pc))
		return 3
	case 0x31:
		c.Regs.Write16(RegSP, c.imm16(pc))
		return 3
	case 0x08: // LD (a16), SP
		addr := c.imm16(pc)
		sp := c.Regs.Read16(RegSP)
		c.mem.Write(addr, byte(sp))
		c.mem.Write(addr+1, byte(sp>>8))
		return 5

	// A <-> (rr)
	case 0x02:
		c.mem.Write(c.Regs.Read16(RegBC), c.Regs.Read8(RegA))
		return 2
	case 0x12:
		c.mem.Write(c.Regs.Read16(RegDE), c.Regs.Read8(RegA))
		return 2
	case 0x0A:
		c.Regs.Write8(RegA, c.mem.Read(c.Regs.Read16(RegBC)))
		return 2
	case 0x1A:
		c.Regs.Write8(RegA, c.mem.Read(c.Regs.Read16(RegDE)))
		return 2
	case 0x22: // LD (HL+), A
		hl := c.Regs.Read16(RegHL)
		c.mem.Write(hl, c.Regs.Read8(RegA))
		c.Regs.Write16(RegHL, hl+1)
		return 2
	case 0x2A: // LD A, (HL+)
		hl := c.Regs.Read16(RegHL)
		c.Regs.Write8(RegA, c.mem.Read(hl))
		c.Regs.Write16(RegHL, hl+1)
		return 2
	case 0x32: // LD (HL-), A
		hl := c.Regs.Read16(RegHL)
		c.mem.Write(hl, c.Regs.Read8(RegA))
		c.Regs.Write16(RegHL, hl-1)
		return 2
	case 0x3A: // LD A, (HL-)
		hl := c.Regs.Read16(RegHL)
		c.Regs.Write8(RegA, c.mem.Read(hl))
		c.Regs.Write16(RegHL, hl-1)
		return 2

	// 16-bit inc/dec, no flags
	case 0x03:
		c.Regs.Write16(RegBC, c.Regs.Read16(RegBC)+1)
		return 2
	case 0x13:
		c.Regs.Write16(RegDE, c.Regs.Read16(RegDE)+1)
		return 2
	case 0x23:
		c.Regs.Write16(RegHL, c.Regs.Read16(RegHL)+1)
		return 2
	case 0x33:
		c.Regs.Write16(RegSP, c.Regs.Read16(RegSP)+1)
		return 2
	case 0x0B:
		c.Regs.Write16(RegBC, c.Regs.Read16(RegBC)-1)
		return 2
	case 0x1B:
		c.Regs.Write16(RegDE, c.Regs.Read16(RegDE)-1)
		return 2
	case 0x2B:
		c.Regs.Write16(RegHL, c.Regs.Read16(RegHL)-1)
		return 2
	case 0x3B:
		c.Regs.Write16(RegSP, c.Regs.Read16(RegSP)-1)
		return 2

	// 8-bit inc/dec; encoding bits 3-5 pick the operand
	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C:
		c.incOperand(op >> 3 & 7)
		return 1
	case 0x34:
		c.incOperand(6)
		return 3
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D:
		c.decOperand(op >> 3 & 7)
		return 1
	case 0x35:
		c.decOperand(6)
		return 3

	// 8-bit immediate loads
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E:
		c.setOperand(op>>3&7, c.imm8(pc))
		return 2
	case 0x36: // LD (HL), d8
		c.mem.Write(c.Regs.Read16(RegHL), c.imm8(pc))
		return 3

	// Accumulator rotates; Z is always cleared by these forms
	case 0x07: // RLCA
		a := c.Regs.Read8(RegA)
		carry := a >> 7
		c.Regs.Write8(RegA, a<<1|carry)
		c.Regs.setZNHC(false, false, false, carry == 1)
		return 1
	case 0x0F: // RRCA
		a := c.Regs.Read8(RegA)
		carry := a & 1
		c.Regs.Write8(RegA, a>>1|carry<<7)
		c.Regs.setZNHC(false, false, false, carry == 1)
		return 1
	case 0x17: // RLA
		a := c.Regs.Read8(RegA)
		var in byte
		if c.Regs.Flag(FlagC) {
			in = 1
		}
		c.Regs.Write8(RegA, a<<1|in)
		c.Regs.setZNHC(false, false, false, a>>7 == 1)
		return 1
	case 0x1F: // RRA
		a := c.Regs.Read8(RegA)
		var in byte
		if c.Regs.Flag(FlagC) {
			in = 1
		}
		c.Regs.Write8(RegA, a>>1|in<<7)
		c.Regs.setZNHC(false, false, false, a&1 == 1)
		return 1

	// ADD HL, rr
	case 0x09:
		c.addHL(c.Regs.Read16(RegBC))
		return 2
	case 0x19:
		c.addHL(c.Regs.Read16(RegDE))
		return 2
	case 0x29:
		c.addHL(c.Regs.Read16(RegHL))
		return 2
	case 0x39:
		c.addHL(c.Regs.Read16(RegSP))
		return 2

	// Relative jumps; taken jumps add the offset before the size advance
	case 0x18:
		c.Regs.Write16(RegPC, pc+uint16(int16(int8(c.imm8(pc)))))
		return 3
	case 0x20, 0x28, 0x30, 0x38:
		if c.condition(op >> 3 & 3) {
			c.Regs.Write16(RegPC, pc+uint16(int16(int8(c.imm8(pc)))))
			return 3
		}
		return 2

	case 0x27: // DAA
		a := c.Regs.Read8(RegA)
		carry := c.Regs.Flag(FlagC)
		if !c.Regs.Flag(FlagN) {
			if carry || a > 0x99 {
				a += 0x60
				carry = true
			}
			if c.Regs.Flag(FlagH) || a&0x0F > 0x09 {
				a += 0x06
			}
		} else {
			if carry {
				a -= 0x60
			}
			if c.Regs.Flag(FlagH) {
				a -= 0x06
			}
		}
		c.Regs.Write8(RegA, a)
		c.Regs.SetFlag(FlagZ, a == 0)
		c.Regs.SetFlag(FlagH, false)
		c.Regs.SetFlag(FlagC, carry)
		return 1
	case 0x2F: // CPL
		c.Regs.Write8(RegA, ^c.Regs.Read8(RegA))
		c.Regs.SetFlag(FlagN, true)
		c.Regs.SetFlag(FlagH, true)
		return 1
	case 0x37: // SCF
		c.Regs.SetFlag(FlagN, false)
		c.Regs.SetFlag(FlagH, false)
		c.Regs.SetFlag(FlagC, true)
		return 1
	case 0x3F: // CCF
		c.Regs.SetFlag(FlagN, false)
		c.Regs.SetFlag(FlagH, false)
		c.Regs.SetFlag(FlagC, !c.Regs.Flag(FlagC))
		return 1

	case 0x76: // HALT
		c.Regs.Halt = true
		return 1

	// LD r, r' block (0x40-0x7F minus HALT)
	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
		0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F,
		0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57,
		0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
		0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67,
		0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
		0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x77,
		0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F:
		dst := op >> 3 & 7
		src := op & 7
		c.setOperand(dst, c.getOperand(src))
		if dst == 6 || src == 6 {
			return 2
		}
		return 1

	// ALU over the register operand encoding
	case 0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87:
		c.aluAdd(c.getOperand(op&7), false)
		return aluCycles(op)
	case 0x88, 0x89, 0x8A, 0x8B, 0x8C, 0x8D, 0x8E, 0x8F:
		c.aluAdd(c.getOperand(op&7), true)
		return aluCycles(op)
	case 0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97:
		c.aluSub(c.getOperand(op&7), false, true)
		return aluCycles(op)
	case 0x98, 0x99, 0x9A, 0x9B, 0x9C, 0x9D, 0x9E, 0x9F:
		c.aluSub(c.getOperand(op&7), true, true)
		return aluCycles(op)
	case 0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7:
		c.aluAnd(c.getOperand(op & 7))
		return aluCycles(op)
	case 0xA8, 0xA9, 0xAA, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF:
		c.aluXor(c.getOperand(op & 7))
		return aluCycles(op)
	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7:
		c.aluOr(c.getOperand(op & 7))
		return aluCycles(op)
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF:
		c.aluSub(c.getOperand(op&7), false, false)
		return aluCycles(op)

	// ALU with immediate
	case 0xC6:
		c.aluAdd(c.imm8(pc), false)
		return 2
	case 0xCE:
		c.aluAdd(c.imm8(pc), true)
		return 2
	case 0xD6:
		c.aluSub(c.imm8(pc), false, true)
		return 2
	case 0xDE:
		c.aluSub(c.imm8(pc), true, true)
		return 2
	case 0xE6:
		c.aluAnd(c.imm8(pc))
		return 2
	case 0xEE:
		c.aluXor(c.imm8(pc))
		return 2
	case 0xF6:
		c.aluOr(c.imm8(pc))
		return 2
	case 0xFE:
		c.aluSub(c.imm8(pc), false, false)
		return 2

	// Returns
	case 0xC9:
		c.Regs.Write16(RegPC, c.pop16()-1)
		return 4
	case 0xD9: // RETI
		c.Regs.Write16(RegPC, c.pop16()-1)
		c.Regs.IME = true
		return 4
	case 0xC0, 0xC8, 0xD0, 0xD8:
		if c.condition(op >> 3 & 3) {
			c.Regs.Write16(RegPC, c.pop16()-1)
			return 5
		}
		return 2

	// Absolute jumps
	case 0xC3:
		c.Regs.Write16(RegPC, c.imm16(pc)-3)
		return 4
	case 0xC2, 0xCA, 0xD2, 0xDA:
		if c.condition(op >> 3 & 3) {
			c.Regs.Write16(RegPC, c.imm16(pc)-3)
			return 4
		}
		return 3
	case 0xE9: // JP (HL)
		c.Regs.Write16(RegPC, c.Regs.Read16(RegHL)-1)
		return 1

	// Calls push the address of the following instruction
	case 0xCD:
		c.push16(pc + 3)
		c.Regs.Write16(RegPC, c.imm16(pc)-3)
		return 6
	case 0xC4, 0xCC, 0xD4, 0xDC:
		if c.condition(op >> 3 & 3) {
			c.push16(pc + 3)
			c.Regs.Write16(RegPC, c.imm16(pc)-3)
			return 6
		}
		return 3

	// RST: push the next address, jump to the fixed vector
	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF:
		c.push16(pc + 1)
		c.Regs.Write16(RegPC, uint16(op&0x38)-1)
		return 4

	// Stack
	case 0xC1:
		c.Regs.Write16(RegBC, c.pop16())
		return 3
	case 0xD1:
		c.Regs.Write16(RegDE, c.pop16())
		return 3
	case 0xE1:
		c.Regs.Write16(RegHL, c.pop16())
		return 3
	case 0xF1: // POP AF keeps F's low nibble clear via the register file
		c.Regs.Write16(RegAF, c.pop16())
		return 3
	case 0xC5:
		c.push16(c.Regs.Read16(RegBC))
		return 4
	case 0xD5:
		c.push16(c.Regs.Read16(RegDE))
		return 4
	case 0xE5:
		c.push16(c.Regs.Read16(RegHL))
		return 4
	case 0xF5:
		c.push16(c.Regs.Read16(RegAF))
		return 4

	// High-page and absolute loads
	case 0xE0:
		c.mem.Write(0xFF00+uint16(c.imm8(pc)), c.Regs.Read8(RegA))
		return 3
	case 0xF0:
		c.Regs.Write8(RegA, c.mem.Read(0xFF00+uint16(c.imm8(pc))))
		return 3
	case 0xE2:
		c.mem.Write(0xFF00+uint16(c.Regs.Read8(RegC)), c.Regs.Read8(RegA))
		return 2
	case 0xF2:
		c.Regs.Write8(RegA, c.mem.Read(0xFF00+uint16(c.Regs.Read8(RegC))))
		return 2
	case 0xEA:
		c.mem.Write(c.imm16(pc), c.Regs.Read8(RegA))
		return 4
	case 0xFA:
		c.Regs.Write8(RegA, c.mem.Read(c.imm16(pc)))
		return 4

	// SP arithmetic
	case 0xE8: // ADD SP, s8
		c.Regs.Write16(RegSP, c.spOffset(int8(c.imm8(pc))))
		return 4
	case 0xF8: // LD HL, SP+s8
		c.Regs.Write16(RegHL, c.spOffset(int8(c.imm8(pc))))
		return 3
	case 0xF9: // LD SP, HL
		c.Regs.Write16(RegSP, c.Regs.Read16(RegHL))
		return 2

	case 0xF3: // DI
		c.Regs.IME = false
		return 1
	case 0xFB: // EI
		c.Regs.IME = true
		return 1

	default:
		// 0xD3, 0xDB, ... are unused encodings; run them as NOP.
		return 1
	}
}

func aluCycles(op byte) int {
	if op&7 == 6 {
		return 2
	}
	return 1
}
