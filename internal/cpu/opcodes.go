package cpu

import "fmt"

// Instruction is the static description of one opcode: its mnemonic for
// traces and tests, its identity, and its size in bytes. CB-prefixed
// opcodes are keyed as 0xCB00|second byte.
type Instruction struct {
	Mnemonic string
	Opcode   uint16
	Size     int
}

// Lookup returns the table entry for an opcode. Unknown opcodes come back
// as one-byte "??" entries; the interpreter runs them as NOP.
func Lookup(opcode uint16) Instruction {
	return instructionTable[tableIndex(opcode)]
}

func tableIndex(opcode uint16) int {
	if opcode <= 0xFF {
		return int(opcode)
	}
	return int(opcode&0xFF) + 0x100
}

var instructionTable = buildInstructionTable()

func buildInstructionTable() [512]Instruction {
	var table [512]Instruction
	for i := range table {
		op := uint16(i)
		size := 1
		if i >= 0x100 {
			op = 0xCB00 | uint16(i-0x100)
			size = 2
		}
		table[i] = Instruction{Mnemonic: "??", Opcode: op, Size: size}
	}
	for _, ins := range unprefixed {
		table[tableIndex(ins.Opcode)] = ins
	}
	for _, ins := range cbInstructions() {
		table[tableIndex(ins.Opcode)] = ins
	}
	return table
}

var unprefixed = []Instruction{
	{"NOP", 0x00, 1}, {"STOP", 0x10, 2},
	{"LD BC, d16", 0x01, 3}, {"LD DE, d16", 0x11, 3}, {"LD HL, d16", 0x21, 3}, {"LD SP, d16", 0x31, 3},
	{"LD (BC), A", 0x02, 1}, {"LD (DE), A", 0x12, 1}, {"LD (HL+), A", 0x22, 1}, {"LD (HL-), A", 0x32, 1},
	{"LD A, (BC)", 0x0A, 1}, {"LD A, (DE)", 0x1A, 1}, {"LD A, (HL+)", 0x2A, 1}, {"LD A, (HL-)", 0x3A, 1},
	{"INC BC", 0x03, 1}, {"INC DE", 0x13, 1}, {"INC HL", 0x23, 1}, {"INC SP", 0x33, 1},
	{"DEC BC", 0x0B, 1}, {"DEC DE", 0x1B, 1}, {"DEC HL", 0x2B, 1}, {"DEC SP", 0x3B, 1},
	{"INC B", 0x04, 1}, {"INC C", 0x0C, 1}, {"INC D", 0x14, 1}, {"INC E", 0x1C, 1},
	{"INC H", 0x24, 1}, {"INC L", 0x2C, 1}, {"INC (HL)", 0x34, 1}, {"INC A", 0x3C, 1},
	{"DEC B", 0x05, 1}, {"DEC C", 0x0D, 1}, {"DEC D", 0x15, 1}, {"DEC E", 0x1D, 1},
	{"DEC H", 0x25, 1}, {"DEC L", 0x2D, 1}, {"DEC (HL)", 0x35, 1}, {"DEC A", 0x3D, 1},
	{"LD B, d8", 0x06, 2}, {"LD C, d8", 0x0E, 2}, {"LD D, d8", 0x16, 2}, {"LD E, d8", 0x1E, 2},
	{"LD H, d8", 0x26, 2}, {"LD L, d8", 0x2E, 2}, {"LD (HL), d8", 0x36, 2}, {"LD A, d8", 0x3E, 2},
	{"RLCA", 0x07, 1}, {"RRCA", 0x0F, 1}, {"RLA", 0x17, 1}, {"RRA", 0x1F, 1},
	{"LD (a16), SP", 0x08, 3},
	{"ADD HL, BC", 0x09, 1}, {"ADD HL, DE", 0x19, 1}, {"ADD HL, HL", 0x29, 1}, {"ADD HL, SP", 0x39, 1},
	{"JR s8", 0x18, 2}, {"JR NZ, s8", 0x20, 2}, {"JR Z, s8", 0x28, 2}, {"JR NC, s8", 0x30, 2}, {"JR C, s8", 0x38, 2},
	{"DAA", 0x27, 1}, {"CPL", 0x2F, 1}, {"SCF", 0x37, 1}, {"CCF", 0x3F, 1},

	{"LD B, B", 0x40, 1}, {"LD B, C", 0x41, 1}, {"LD B, D", 0x42, 1}, {"LD B, E", 0x43, 1},
	{"LD B, H", 0x44, 1}, {"LD B, L", 0x45, 1}, {"LD B, (HL)", 0x46, 1}, {"LD B, A", 0x47, 1},
	{"LD C, B", 0x48, 1}, {"LD C, C", 0x49, 1}, {"LD C, D", 0x4A, 1}, {"LD C, E", 0x4B, 1},
	{"LD C, H", 0x4C, 1}, {"LD C, L", 0x4D, 1}, {"LD C, (HL)", 0x4E, 1}, {"LD C, A", 0x4F, 1},
	{"LD D, B", 0x50, 1}, {"LD D, C", 0x51, 1}, {"LD D, D", 0x52, 1}, {"LD D, E", 0x53, 1},
	{"LD D, H", 0x54, 1}, {"LD D, L", 0x55, 1}, {"LD D, (HL)", 0x56, 1}, {"LD D, A", 0x57, 1},
	{"LD E, B", 0x58, 1}, {"LD E, C", 0x59, 1}, {"LD E, D", 0x5A, 1}, {"LD E, E", 0x5B, 1},
	{"LD E, H", 0x5C, 1}, {"LD E, L", 0x5D, 1}, {"LD E, (HL)", 0x5E, 1}, {"LD E, A", 0x5F, 1},
	{"LD H, B", 0x60, 1}, {"LD H, C", 0x61, 1}, {"LD H, D", 0x62, 1}, {"LD H, E", 0x63, 1},
	{"LD H, H", 0x64, 1}, {"LD H, L", 0x65, 1}, {"LD H, (HL)", 0x66, 1}, {"LD H, A", 0x67, 1},
	{"LD L, B", 0x68, 1}, {"LD L, C", 0x69, 1}, {"LD L, D", 0x6A, 1}, {"LD L, E", 0x6B, 1},
	{"LD L, H", 0x6C, 1}, {"LD L, L", 0x6D, 1}, {"LD L, (HL)", 0x6E, 1}, {"LD L, A", 0x6F, 1},
	{"LD (HL), B", 0x70, 1}, {"LD (HL), C", 0x71, 1}, {"LD (HL), D", 0x72, 1}, {"LD (HL), E", 0x73, 1},
	{"LD (HL), H", 0x74, 1}, {"LD (HL), L", 0x75, 1}, {"HALT", 0x76, 1}, {"LD (HL), A", 0x77, 1},
	{"LD A, B", 0x78, 1}, {"LD A, C", 0x79, 1}, {"LD A, D", 0x7A, 1}, {"LD A, E", 0x7B, 1},
	{"LD A, H", 0x7C, 1}, {"LD A, L", 0x7D, 1}, {"LD A, (HL)", 0x7E, 1}, {"LD A, A", 0x7F, 1},

	{"ADD A, B", 0x80, 1}, {"ADD A, C", 0x81, 1}, {"ADD A, D", 0x82, 1}, {"ADD A, E", 0x83, 1},
	{"ADD A, H", 0x84, 1}, {"ADD A, L", 0x85, 1}, {"ADD A, (HL)", 0x86, 1}, {"ADD A, A", 0x87, 1},
	{"ADC A, B", 0x88, 1}, {"ADC A, C", 0x89, 1}, {"ADC A, D", 0x8A, 1}, {"ADC A, E", 0x8B, 1},
	{"ADC A, H", 0x8C, 1}, {"ADC A, L", 0x8D, 1}, {"ADC A, (HL)", 0x8E, 1}, {"ADC A, A", 0x8F, 1},
	{"SUB B", 0x90, 1}, {"SUB C", 0x91, 1}, {"SUB D", 0x92, 1}, {"SUB E", 0x93, 1},
	{"SUB H", 0x94, 1}, {"SUB L", 0x95, 1}, {"SUB (HL)", 0x96, 1}, {"SUB A", 0x97, 1},
	{"SBC A, B", 0x98, 1}, {"SBC A, C", 0x99, 1}, {"SBC A, D", 0x9A, 1}, {"SBC A, E", 0x9B, 1},
	{"SBC A, H", 0x9C, 1}, {"SBC A, L", 0x9D, 1}, {"SBC A, (HL)", 0x9E, 1}, {"SBC A, A", 0x9F, 1},
	{"AND B", 0xA0, 1}, {"AND C", 0xA1, 1}, {"AND D", 0xA2, 1}, {"AND E", 0xA3, 1},
	{"AND H", 0xA4, 1}, {"AND L", 0xA5, 1}, {"AND (HL)", 0xA6, 1}, {"AND A", 0xA7, 1},
	{"XOR B", 0xA8, 1}, {"XOR C", 0xA9, 1}, {"XOR D", 0xAA, 1}, {"XOR E", 0xAB, 1},
	{"XOR H", 0xAC, 1}, {"XOR L", 0xAD, 1}, {"XOR (HL)", 0xAE, 1}, {"XOR A", 0xAF, 1},
	{"OR B", 0xB0, 1}, {"OR C", 0xB1, 1}, {"OR D", 0xB2, 1}, {"OR E", 0xB3, 1},
	{"OR H", 0xB4, 1}, {"OR L", 0xB5, 1}, {"OR (HL)", 0xB6, 1}, {"OR A", 0xB7, 1},
	{"CP B", 0xB8, 1}, {"CP C", 0xB9, 1}, {"CP D", 0xBA, 1}, {"CP E", 0xBB, 1},
	{"CP H", 0xBC, 1}, {"CP L", 0xBD, 1}, {"CP (HL)", 0xBE, 1}, {"CP A", 0xBF, 1},

	{"ADD A, d8", 0xC6, 2}, {"ADC A, d8", 0xCE, 2}, {"SUB d8", 0xD6, 2}, {"SBC A, d8", 0xDE, 2},
	{"AND d8", 0xE6, 2}, {"XOR d8", 0xEE, 2}, {"OR d8", 0xF6, 2}, {"CP d8", 0xFE, 2},

	{"RET NZ", 0xC0, 1}, {"RET Z", 0xC8, 1}, {"RET NC", 0xD0, 1}, {"RET C", 0xD8, 1},
	{"RET", 0xC9, 1}, {"RETI", 0xD9, 1},
	{"JP NZ, a16", 0xC2, 3}, {"JP Z, a16", 0xCA, 3}, {"JP NC, a16", 0xD2, 3}, {"JP C, a16", 0xDA, 3},
	{"JP a16", 0xC3, 3}, {"JP (HL)", 0xE9, 1},
	{"CALL NZ, a16", 0xC4, 3}, {"CALL Z, a16", 0xCC, 3}, {"CALL NC, a16", 0xD4, 3}, {"CALL C, a16", 0xDC, 3},
	{"CALL a16", 0xCD, 3},
	{"RST 00H", 0xC7, 1}, {"RST 08H", 0xCF, 1}, {"RST 10H", 0xD7, 1}, {"RST 18H", 0xDF, 1},
	{"RST 20H", 0xE7, 1}, {"RST 28H", 0xEF, 1}, {"RST 30H", 0xF7, 1}, {"RST 38H", 0xFF, 1},

	{"POP BC", 0xC1, 1}, {"POP DE", 0xD1, 1}, {"POP HL", 0xE1, 1}, {"POP AF", 0xF1, 1},
	{"PUSH BC", 0xC5, 1}, {"PUSH DE", 0xD5, 1}, {"PUSH HL", 0xE5, 1}, {"PUSH AF", 0xF5, 1},

	{"LD (a8), A", 0xE0, 2}, {"LD A, (a8)", 0xF0, 2}, {"LD (C), A", 0xE2, 1}, {"LD A, (C)", 0xF2, 1},
	{"LD (a16), A", 0xEA, 3}, {"LD A, (a16)", 0xFA, 3},
	{"ADD SP, s8", 0xE8, 2}, {"LD HL, SP+s8", 0xF8, 2}, {"LD SP, HL", 0xF9, 1},
	{"DI", 0xF3, 1}, {"EI", 0xFB, 1},
}

// cbInstructions generates all 256 CB-prefixed entries; the encoding is
// regular enough that listing them by hand adds nothing.
func cbInstructions() []Instruction {
	shiftNames := [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
	operands := [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

	out := make([]Instruction, 0, 256)
	for op := 0; op < 256; op++ {
		operand := operands[op&7]
		y := (op >> 3) & 7
		var mnemonic string
		switch op >> 6 {
		case 0:
			mnemonic = fmt.Sprintf("%s %s", shiftNames[y], operand)
		case 1:
			mnemonic = fmt.Sprintf("BIT %d, %s", y, operand)
		case 2:
			mnemonic = fmt.Sprintf("RES %d, %s", y, operand)
		case 3:
			mnemonic = fmt.Sprintf("SET %d, %s", y, operand)
		}
		out = append(out, Instruction{Mnemonic: mnemonic, Opcode: 0xCB00 | uint16(op), Size: 2})
	}
	return out
}
