package cpu

// DisassemblyInfo describes one decoded instruction for trace output.
type DisassemblyInfo struct {
	Addr  uint16
	Next  uint16
	Instr Instruction
	Bytes []byte
}

// DisassembleNext dry-steps the instruction at addr against throwaway
// copies of the registers and memory, which yields the successor PC even
// for conditional control flow, without disturbing live state.
func (c *CPU) DisassembleNext(addr uint16) DisassemblyInfo {
	scratch := &CPU{Regs: c.Regs, mem: c.mem.Clone()}
	scratch.Regs.Write16(RegPC, addr)
	scratch.Regs.Halt = false

	opcode := scratch.opcodeAt(addr)
	ins := Lookup(opcode)
	scratch.ExecuteNext()

	raw := make([]byte, ins.Size)
	for i := range raw {
		raw[i] = c.mem.Read(addr + uint16(i))
	}
	return DisassemblyInfo{
		Addr:  addr,
		Next:  scratch.Regs.Read16(RegPC),
		Instr: ins,
		Bytes: raw,
	}
}
