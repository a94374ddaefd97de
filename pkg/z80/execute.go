// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package z80

import (
	"github.com/lassandro/gocpm/pkg/encoding"
)

type executor struct {
	r   *Registers
	mem Memory
	io  Ports

	start  uint16
	op     [4]byte
	prefix Prefix

	// Position of the opcode byte after a DD/FD prefix
	offset int
	set    *tableSet
}

// Execute runs the single instruction at r.PC. The instruction is fully
// applied when nil is returned. A non-nil result is always a *Fault and the
// machine must not be stepped again.
func Execute(r *Registers, mem Memory, io Ports) error {
	e := executor{r: r, mem: mem, io: io, start: r.PC, set: &plainTables}

	for i := range e.op {
		e.op[i] = mem.Read(r.PC + uint16(i))
	}

	switch e.op[0] {
	case 0xCB:
		e.prefix = PrefixCB
		return e.bitwise()

	case 0xED:
		e.prefix = PrefixED
		return e.extended()

	case 0xDD, 0xFD:
		e.offset = 1
		e.prefix, e.set = PrefixDD, &ixTables

		if e.op[0] == 0xFD {
			e.prefix, e.set = PrefixFD, &iyTables
		}

		if e.op[1] == 0xCB {
			if e.prefix == PrefixDD {
				e.prefix = PrefixDDCB
			} else {
				e.prefix = PrefixFDCB
			}

			return e.indexedBitwise()
		}
	}

	return e.main()
}

func (e *executor) indexed() bool {
	return e.offset != 0
}

// Sets PC past an instruction of n bytes, counted from the opcode byte
func (e *executor) advance(n int) {
	e.r.PC = e.start + uint16(e.offset+n)
}

// The (IX+d) form carries an extra displacement byte
func (e *executor) memLen(reg reg8) int {
	if reg == regMem && e.indexed() {
		return 1
	}

	return 0
}

func (e *executor) imm8(i int) byte {
	return e.op[e.offset+i]
}

func (e *executor) imm16(i int) uint16 {
	return encoding.Word(e.op[e.offset+i], e.op[e.offset+i+1])
}

func (e *executor) fault(kind FaultKind, length int, err error) *Fault {
	_, mnemonic := disassemble(e.op, e.start)

	return &Fault{
		Kind:     kind,
		Addr:     e.start,
		Opcode:   append([]byte(nil), e.op[:length]...),
		Prefix:   e.prefix,
		Mnemonic: mnemonic,
		Err:      err,
	}
}

func (e *executor) unknown() error {
	return e.unknownLen(e.offset + 1)
}

func (e *executor) unknownLen(length int) error {
	e.r.PC = e.start + uint16(length)
	return e.fault(UnknownOpcode, length, nil)
}

func (e *executor) unimplemented(length int) error {
	e.r.PC = e.start + uint16(length)
	return e.fault(UnimplementedInstruction, length, nil)
}

// PC has already been advanced when an I/O access fails
func (e *executor) ioFault(err error) error {
	return e.fault(IOFault, int(e.r.PC-e.start), err)
}

func (e *executor) hlAddr() uint16 {
	if !e.indexed() {
		return uint16(e.r.HL)
	}

	return encoding.Displace(e.get16(e.set.hl), e.op[2])
}

func (e *executor) get8(reg reg8) byte {
	r := e.r

	switch reg {
	case regB:
		return r.BC.Hi()
	case regC:
		return r.BC.Lo()
	case regD:
		return r.DE.Hi()
	case regE:
		return r.DE.Lo()
	case regH:
		return r.HL.Hi()
	case regL:
		return r.HL.Lo()
	case regMem:
		return e.mem.Read(e.hlAddr())
	case regA:
		return r.A()
	case regIXH:
		return r.IX.Hi()
	case regIXL:
		return r.IX.Lo()
	case regIYH:
		return r.IY.Hi()
	default:
		return r.IY.Lo()
	}
}

func (e *executor) set8(reg reg8, value byte) {
	r := e.r

	switch reg {
	case regB:
		r.BC.SetHi(value)
	case regC:
		r.BC.SetLo(value)
	case regD:
		r.DE.SetHi(value)
	case regE:
		r.DE.SetLo(value)
	case regH:
		r.HL.SetHi(value)
	case regL:
		r.HL.SetLo(value)
	case regMem:
		e.mem.Write(e.hlAddr(), value)
	case regA:
		r.SetA(value)
	case regIXH:
		r.IX.SetHi(value)
	case regIXL:
		r.IX.SetLo(value)
	case regIYH:
		r.IY.SetHi(value)
	default:
		r.IY.SetLo(value)
	}
}

func (e *executor) get16(rp regPair) uint16 {
	r := e.r

	switch rp {
	case pairBC:
		return uint16(r.BC)
	case pairDE:
		return uint16(r.DE)
	case pairHL:
		return uint16(r.HL)
	case pairSP:
		return r.SP
	case pairAF:
		return uint16(r.AF)
	case pairIX:
		return uint16(r.IX)
	default:
		return uint16(r.IY)
	}
}

func (e *executor) set16(rp regPair, value uint16) {
	r := e.r

	switch rp {
	case pairBC:
		r.BC = Pair(value)
	case pairDE:
		r.DE = Pair(value)
	case pairHL:
		r.HL = Pair(value)
	case pairSP:
		r.SP = value
	case pairAF:
		r.AF = Pair(value)
	case pairIX:
		r.IX = Pair(value)
	default:
		r.IY = Pair(value)
	}
}

func (e *executor) read16(addr uint16) uint16 {
	return encoding.Word(e.mem.Read(addr), e.mem.Read(addr+1))
}

func (e *executor) write16(addr uint16, value uint16) {
	lo, hi := encoding.SplitWord(value)
	e.mem.Write(addr, lo)
	e.mem.Write(addr+1, hi)
}

func (e *executor) push(value uint16) {
	e.r.SP -= 2
	e.write16(e.r.SP, value)
}

func (e *executor) pop() uint16 {
	value := e.read16(e.r.SP)
	e.r.SP += 2
	return value
}

// Relative jumps are taken from the address after the instruction
func (e *executor) jumpRelative() {
	e.r.PC = encoding.Displace(e.r.PC, e.imm8(1))
}

func (e *executor) alu(op aluOp, value byte) {
	r := e.r
	a := r.A()

	switch op {
	case aluADD:
		r.SetA(r.Add8(a, value))
	case aluADC:
		r.SetA(r.Adc8(a, value))
	case aluSUB:
		r.SetA(r.Sub8(a, value))
	case aluSBC:
		r.SetA(r.Sbc8(a, value))
	case aluAND:
		r.SetA(r.And8(a, value))
	case aluXOR:
		r.SetA(r.Xor8(a, value))
	case aluOR:
		r.SetA(r.Or8(a, value))
	default:
		r.Cp8(a, value)
	}
}

// Unprefixed opcodes, and DD/FD opcodes which substitute IX/IY for HL
func (e *executor) main() error {
	f := decode(e.op[e.offset])

	switch f.x {
	case 0:
		return e.quarter0(f)
	case 1:
		return e.load8(f)
	case 2:
		if e.indexed() && f.z != 4 && f.z != 5 && f.z != 6 {
			return e.unknown()
		}

		src := e.set.r[f.z]
		e.advance(1 + e.memLen(src))
		e.alu(tableALU[f.y], e.get8(src))
		return nil
	default:
		return e.quarter3(f)
	}
}

func (e *executor) quarter0(f fields) error {
	r := e.r
	ix := e.indexed()

	switch f.z {
	// NOP |00|000|000|
	// EX AF,AF' |00|001|000|
	// DJNZ d |00|010|000| d
	// JR d |00|011|000| d
	// JR cc,d |00|1cc|000| d
	case 0:
		if ix {
			return e.unknown()
		}

		switch f.y {
		case 0:
			e.advance(1)
		case 1:
			e.advance(1)
			r.ExAF()
		case 2:
			e.advance(2)
			b := r.BC.Hi() - 1
			r.BC.SetHi(b)

			if b != 0 {
				e.jumpRelative()
			}
		case 3:
			e.advance(2)
			e.jumpRelative()
		default:
			e.advance(2)

			if tableCC[f.y-4].test(r.F()) {
				e.jumpRelative()
			}
		}

	// LD rp,nn |00|rp|0|001| n n
	// ADD HL,rp |00|rp|1|001|
	case 1:
		rp := e.set.rp[f.p]

		if f.q == 0 {
			if ix && f.p != 2 {
				return e.unknown()
			}

			e.advance(3)
			e.set16(rp, e.imm16(1))
		} else {
			e.advance(1)
			hl := e.set.hl
			e.set16(hl, r.Add16(e.get16(hl), e.get16(rp)))
		}

	// LD (BC),A / LD (DE),A / LD (nn),HL / LD (nn),A and the reverse loads
	case 2:
		if ix && f.p != 2 {
			return e.unknown()
		}

		switch f.p {
		case 0, 1:
			e.advance(1)
			addr := uint16(r.BC)

			if f.p == 1 {
				addr = uint16(r.DE)
			}

			if f.q == 0 {
				e.mem.Write(addr, r.A())
			} else {
				r.SetA(e.mem.Read(addr))
			}
		case 2:
			e.advance(3)

			if f.q == 0 {
				e.write16(e.imm16(1), e.get16(e.set.hl))
			} else {
				e.set16(e.set.hl, e.read16(e.imm16(1)))
			}
		default:
			e.advance(3)

			if f.q == 0 {
				e.mem.Write(e.imm16(1), r.A())
			} else {
				r.SetA(e.mem.Read(e.imm16(1)))
			}
		}

	// INC rp |00|rp|0|011|
	// DEC rp |00|rp|1|011|
	case 3:
		if ix && f.p != 2 {
			return e.unknown()
		}

		e.advance(1)
		rp := e.set.rp[f.p]

		if f.q == 0 {
			e.set16(rp, e.get16(rp)+1)
		} else {
			e.set16(rp, e.get16(rp)-1)
		}

	// INC r |00|r|100|
	// DEC r |00|r|101|
	// LD r,n |00|r|110| n
	case 4, 5, 6:
		if ix && f.y != 4 && f.y != 5 && f.y != 6 {
			return e.unknown()
		}

		reg := e.set.r[f.y]
		extra := e.memLen(reg)

		switch f.z {
		case 4:
			e.advance(1 + extra)
			e.set8(reg, r.Inc8(e.get8(reg)))
		case 5:
			e.advance(1 + extra)
			e.set8(reg, r.Dec8(e.get8(reg)))
		default:
			e.advance(2 + extra)
			e.set8(reg, e.imm8(1+extra))
		}

	// RLCA RRCA RLA RRA DAA CPL SCF CCF |00|y|111|
	default:
		if ix {
			return e.unknown()
		}

		e.advance(1)

		switch f.y {
		case 0:
			r.Rlca()
		case 1:
			r.Rrca()
		case 2:
			r.Rla()
		case 3:
			r.Rra()
		case 4:
			r.Daa()
		case 5:
			r.Cpl()
		case 6:
			r.Scf()
		default:
			r.Ccf()
		}
	}

	return nil
}

// LD r,r' |01|r|r'|
// HALT    |01|110|110|
func (e *executor) load8(f fields) error {
	if f.y == 6 && f.z == 6 {
		return e.unimplemented(e.offset + 1)
	}

	dst, src := e.set.r[f.y], e.set.r[f.z]

	if e.indexed() {
		// (IX+d) pairs with the real H and L
		switch {
		case f.y == 6:
			src = tableR[f.z]
		case f.z == 6:
			dst = tableR[f.y]
		case f.y != 4 && f.y != 5 && f.z != 4 && f.z != 5:
			return e.unknown()
		}
	}

	e.advance(1 + e.memLen(dst) + e.memLen(src))
	e.set8(dst, e.get8(src))
	return nil
}

func (e *executor) quarter3(f fields) error {
	r := e.r
	ix := e.indexed()

	switch f.z {
	// RET cc |11|cc|000|
	case 0:
		if ix {
			return e.unknown()
		}

		e.advance(1)

		if tableCC[f.y].test(r.F()) {
			r.PC = e.pop()
		}

	// POP rp2 |11|rp|0|001|
	// RET EXX JP (HL) LD SP,HL |11|p|1|001|
	case 1:
		if ix && f.p != 2 && !(f.q == 1 && f.p == 3) {
			return e.unknown()
		}

		e.advance(1)

		if f.q == 0 {
			e.set16(e.set.rp2[f.p], e.pop())
			break
		}

		switch f.p {
		case 0:
			r.PC = e.pop()
		case 1:
			r.Exx()
		case 2:
			r.PC = e.get16(e.set.hl)
		default:
			r.SP = e.get16(e.set.hl)
		}

	// JP cc,nn |11|cc|010| n n
	case 2:
		if ix {
			return e.unknown()
		}

		e.advance(3)

		if tableCC[f.y].test(r.F()) {
			r.PC = e.imm16(1)
		}

	case 3:
		if ix && f.y != 4 {
			return e.unknown()
		}

		switch f.y {
		// JP nn |11|000|011| n n
		case 0:
			e.advance(3)
			r.PC = e.imm16(1)

		// CB is decoded before reaching here
		case 1:
			return e.unknown()

		// OUT (n),A |11|010|011| n
		case 2:
			e.advance(2)

			if err := e.io.Out(e.imm8(1), r.BC.Hi(), r.A()); err != nil {
				return e.ioFault(err)
			}

		// IN A,(n) |11|011|011| n
		case 3:
			e.advance(2)
			value, err := e.io.In(e.imm8(1), r.BC.Hi())

			if err != nil {
				return e.ioFault(err)
			}

			r.SetA(value)

		// EX (SP),HL |11|100|011|
		case 4:
			e.advance(1)
			hl := e.set.hl
			value := e.read16(r.SP)
			e.write16(r.SP, e.get16(hl))
			e.set16(hl, value)

		// EX DE,HL |11|101|011|
		case 5:
			e.advance(1)
			r.DE, r.HL = r.HL, r.DE

		// DI / EI
		default:
			e.advance(1)
			r.IFF1 = f.y == 7
			r.IFF2 = r.IFF1
		}

	// CALL cc,nn |11|cc|100| n n
	case 4:
		if ix {
			return e.unknown()
		}

		e.advance(3)

		if tableCC[f.y].test(r.F()) {
			e.push(r.PC)
			r.PC = e.imm16(1)
		}

	// PUSH rp2 |11|rp|0|101|
	// CALL nn  |11|001|101| n n
	case 5:
		if f.q == 0 {
			if ix && f.p != 2 {
				return e.unknown()
			}

			e.advance(1)
			e.push(e.get16(e.set.rp2[f.p]))
			break
		}

		// p=1..3 are the DD/ED/FD prefixes; only reachable as a second prefix
		if ix || f.p != 0 {
			return e.unknown()
		}

		e.advance(3)
		e.push(r.PC)
		r.PC = e.imm16(1)

	// ALU A,n |11|alu|110| n
	case 6:
		if ix {
			return e.unknown()
		}

		e.advance(2)
		e.alu(tableALU[f.y], e.imm8(1))

	// RST |11|y|111|
	default:
		if ix {
			return e.unknown()
		}

		// The return address and vector are in place before the fault
		e.advance(1)
		e.push(r.PC)
		r.PC = uint16(f.y) * 8
		return e.fault(UnimplementedInstruction, 1, nil)
	}

	return nil
}

// CB xx
func (e *executor) bitwise() error {
	f := decode(e.op[1])
	reg := tableR[f.z]

	e.advance(2)

	switch f.x {
	case 0:
		e.set8(reg, e.r.rotate(tableRot[f.y], e.get8(reg)))
	case 1:
		e.r.Bit(e.get8(reg), f.y)
	case 2:
		e.set8(reg, e.get8(reg)&^(1<<f.y))
	default:
		e.set8(reg, e.get8(reg)|1<<f.y)
	}

	return nil
}

// DD CB d xx / FD CB d xx. Only the (IX+d) operand forms are accepted, except
// for BIT which ignores z.
func (e *executor) indexedBitwise() error {
	f := decode(e.op[3])

	if f.x != 1 && f.z != 6 {
		return e.unknownLen(4)
	}

	e.advance(3)

	addr := e.hlAddr()
	value := e.mem.Read(addr)

	switch f.x {
	case 0:
		e.mem.Write(addr, e.r.rotate(tableRot[f.y], value))
	case 1:
		e.r.Bit(value, f.y)
	case 2:
		e.mem.Write(addr, value&^(1<<f.y))
	default:
		e.mem.Write(addr, value|1<<f.y)
	}

	return nil
}

// ED xx
func (e *executor) extended() error {
	r := e.r
	f := decode(e.op[1])

	switch f.x {
	case 1:
		return e.extendedMisc(f)

	case 2:
		if f.z > 3 || f.y < 4 {
			break
		}

		e.advance(2)
		op := tableBLI[f.y-4][f.z]

		switch op {
		case blockLDI:
			r.Ldi(e.mem)
		case blockLDD:
			r.Ldd(e.mem)
		case blockCPI:
			r.Cpi(e.mem)
		case blockCPD:
			r.Cpd(e.mem)
		case blockLDIR, blockLDDR:
			if op == blockLDIR {
				r.Ldi(e.mem)
			} else {
				r.Ldd(e.mem)
			}

			// Repeat by leaving PC on the prefix
			if r.Flag(FlagPV) {
				r.PC = e.start
			}
		case blockCPIR, blockCPDR:
			if op == blockCPIR {
				r.Cpi(e.mem)
			} else {
				r.Cpd(e.mem)
			}

			if r.Flag(FlagPV) && !r.Flag(FlagZ) {
				r.PC = e.start
			}
		default:
			return e.unimplemented(2)
		}

		return nil
	}

	return e.unknownLen(2)
}

func (e *executor) extendedMisc(f fields) error {
	r := e.r

	switch f.z {
	// IN r,(C) |01|r|000|, r=110 only sets flags
	case 0:
		e.advance(2)
		value, err := e.io.In(r.BC.Lo(), r.BC.Hi())

		if err != nil {
			return e.ioFault(err)
		}

		if f.y != 6 {
			e.set8(tableR[f.y], value)
		}

		r.inFlags(value)

	// OUT (C),r |01|r|001|
	case 1:
		if f.y == 6 {
			return e.unknownLen(2)
		}

		e.advance(2)

		if err := e.io.Out(
			r.BC.Lo(), r.BC.Hi(), e.get8(tableR[f.y]),
		); err != nil {
			return e.ioFault(err)
		}

	// SBC HL,rp |01|rp|0|010|
	// ADC HL,rp |01|rp|1|010|
	case 2:
		e.advance(2)
		value := e.get16(tableRP[f.p])

		if f.q == 0 {
			r.HL = Pair(r.Sbc16(uint16(r.HL), value))
		} else {
			r.HL = Pair(r.Adc16(uint16(r.HL), value))
		}

	// LD (nn),rp |01|rp|0|011| n n
	// LD rp,(nn) |01|rp|1|011| n n
	case 3:
		e.advance(4)
		rp := tableRP[f.p]

		if f.q == 0 {
			e.write16(e.imm16(2), e.get16(rp))
		} else {
			e.set16(rp, e.read16(e.imm16(2)))
		}

	// NEG |01|y|100|
	case 4:
		e.advance(2)
		r.Neg()

	// RETN / RETI |01|y|101|
	case 5:
		e.advance(2)
		r.PC = e.pop()
		r.IFF1 = r.IFF2

	// IM |01|y|110|
	case 6:
		return e.unimplemented(2)

	default:
		switch f.y {
		case 0:
			e.advance(2)
			r.I = r.A()
		case 1:
			e.advance(2)
			r.R = r.A()
		case 2:
			e.advance(2)
			r.SetA(r.I)
			r.specialFlags(r.I)
		case 3:
			e.advance(2)
			r.SetA(r.R)
			r.specialFlags(r.R)
		case 4:
			e.advance(2)
			r.Rrd(e.mem)
		case 5:
			e.advance(2)
			r.Rld(e.mem)
		default:
			return e.unknownLen(2)
		}
	}

	return nil
}
