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
	"fmt"

	"github.com/lassandro/gocpm/pkg/encoding"
)

// Disassemble decodes the instruction at addr without executing it, returning
// its length and mnemonic. Opcodes Execute would reject render as DB.
func Disassemble(mem Memory, addr uint16) (int, string) {
	var op [4]byte

	for i := range op {
		op[i] = mem.Read(addr + uint16(i))
	}

	return disassemble(op, addr)
}

// DisassembleBytes decodes an instruction fetched earlier from addr
func DisassembleBytes(op [4]byte, addr uint16) (int, string) {
	return disassemble(op, addr)
}

type disassembler struct {
	op     [4]byte
	pc     uint16
	offset int
	set    *tableSet
	index  string
}

func disassemble(op [4]byte, pc uint16) (int, string) {
	d := disassembler{op: op, pc: pc, set: &plainTables}

	switch op[0] {
	case 0xCB:
		f := decode(op[1])
		return 2, bitwiseText(f, tableR[f.z].String())

	case 0xED:
		return d.extended()

	case 0xDD, 0xFD:
		d.offset, d.set, d.index = 1, &ixTables, "IX"

		if op[0] == 0xFD {
			d.set, d.index = &iyTables, "IY"
		}

		if op[1] == 0xCB {
			f := decode(op[3])

			if f.x != 1 && f.z != 6 {
				return d.db(4)
			}

			return 4, bitwiseText(f, d.reg(regMem))
		}
	}

	return d.main()
}

func (d *disassembler) db(length int) (int, string) {
	return length, fmt.Sprintf("DB % X", d.op[:length])
}

func (d *disassembler) unknown() (int, string) {
	return d.db(d.offset + 1)
}

func (d *disassembler) indexed() bool {
	return d.offset != 0
}

func (d *disassembler) extra(reg reg8) int {
	if reg == regMem && d.indexed() {
		return 1
	}

	return 0
}

func (d *disassembler) reg(reg reg8) string {
	if reg == regMem && d.indexed() {
		return fmt.Sprintf("(%s%+d)", d.index, int8(d.op[2]))
	}

	return reg.String()
}

func (d *disassembler) pair(rp regPair) string {
	return rp.String()
}

func (d *disassembler) n(i int) string {
	return fmt.Sprintf("%02XH", d.op[d.offset+i])
}

func (d *disassembler) nn(i int) string {
	return fmt.Sprintf(
		"%04XH", encoding.Word(d.op[d.offset+i], d.op[d.offset+i+1]),
	)
}

func (d *disassembler) relative() string {
	target := encoding.Displace(d.pc+2, d.op[1])
	return fmt.Sprintf("%04XH", target)
}

func (d *disassembler) result(length int, format string, args ...interface{}) (int, string) {
	return d.offset + length, fmt.Sprintf(format, args...)
}

func bitwiseText(f fields, operand string) string {
	switch f.x {
	case 0:
		return fmt.Sprintf("%s %s", tableRot[f.y], operand)
	case 1:
		return fmt.Sprintf("BIT %d,%s", f.y, operand)
	case 2:
		return fmt.Sprintf("RES %d,%s", f.y, operand)
	default:
		return fmt.Sprintf("SET %d,%s", f.y, operand)
	}
}

func (d *disassembler) main() (int, string) {
	f := decode(d.op[d.offset])
	ix := d.indexed()
	hl := d.pair(d.set.hl)

	switch f.x {
	case 1:
		if f.y == 6 && f.z == 6 {
			return d.result(1, "HALT")
		}

		dst, src := d.set.r[f.y], d.set.r[f.z]

		if ix {
			switch {
			case f.y == 6:
				src = tableR[f.z]
			case f.z == 6:
				dst = tableR[f.y]
			case f.y != 4 && f.y != 5 && f.z != 4 && f.z != 5:
				return d.unknown()
			}
		}

		return d.result(
			1+d.extra(dst)+d.extra(src), "LD %s,%s", d.reg(dst), d.reg(src),
		)

	case 2:
		if ix && f.z != 4 && f.z != 5 && f.z != 6 {
			return d.unknown()
		}

		src := d.set.r[f.z]
		return d.result(1+d.extra(src), "%s%s", tableALU[f.y], d.reg(src))
	}

	if f.x == 0 {
		switch f.z {
		case 0:
			if ix {
				return d.unknown()
			}

			switch f.y {
			case 0:
				return d.result(1, "NOP")
			case 1:
				return d.result(1, "EX AF,AF'")
			case 2:
				return d.result(2, "DJNZ %s", d.relative())
			case 3:
				return d.result(2, "JR %s", d.relative())
			default:
				return d.result(2, "JR %s,%s", tableCC[f.y-4], d.relative())
			}

		case 1:
			if f.q == 1 {
				return d.result(1, "ADD %s,%s", hl, d.pair(d.set.rp[f.p]))
			}

			if ix && f.p != 2 {
				return d.unknown()
			}

			return d.result(3, "LD %s,%s", d.pair(d.set.rp[f.p]), d.nn(1))

		case 2:
			if ix && f.p != 2 {
				return d.unknown()
			}

			var lhs, rhs string
			length := 1

			switch f.p {
			case 0:
				lhs, rhs = "(BC)", "A"
			case 1:
				lhs, rhs = "(DE)", "A"
			case 2:
				lhs, rhs, length = "("+d.nn(1)+")", hl, 3
			default:
				lhs, rhs, length = "("+d.nn(1)+")", "A", 3
			}

			if f.q == 1 {
				lhs, rhs = rhs, lhs
			}

			return d.result(length, "LD %s,%s", lhs, rhs)

		case 3:
			if ix && f.p != 2 {
				return d.unknown()
			}

			name := "INC"

			if f.q == 1 {
				name = "DEC"
			}

			return d.result(1, "%s %s", name, d.pair(d.set.rp[f.p]))

		case 4, 5, 6:
			if ix && f.y != 4 && f.y != 5 && f.y != 6 {
				return d.unknown()
			}

			reg := d.set.r[f.y]
			extra := d.extra(reg)

			switch f.z {
			case 4:
				return d.result(1+extra, "INC %s", d.reg(reg))
			case 5:
				return d.result(1+extra, "DEC %s", d.reg(reg))
			default:
				return d.result(2+extra, "LD %s,%s", d.reg(reg), d.n(1+extra))
			}

		default:
			if ix {
				return d.unknown()
			}

			names := [8]string{
				"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF",
			}

			return d.result(1, "%s", names[f.y])
		}
	}

	switch f.z {
	case 0:
		if ix {
			return d.unknown()
		}

		return d.result(1, "RET %s", tableCC[f.y])

	case 1:
		if ix && f.p != 2 && !(f.q == 1 && f.p == 3) {
			return d.unknown()
		}

		if f.q == 0 {
			return d.result(1, "POP %s", d.pair(d.set.rp2[f.p]))
		}

		switch f.p {
		case 0:
			return d.result(1, "RET")
		case 1:
			return d.result(1, "EXX")
		case 2:
			return d.result(1, "JP (%s)", hl)
		default:
			return d.result(1, "LD SP,%s", hl)
		}

	case 2:
		if ix {
			return d.unknown()
		}

		return d.result(3, "JP %s,%s", tableCC[f.y], d.nn(1))

	case 3:
		if ix && f.y != 4 {
			return d.unknown()
		}

		switch f.y {
		case 0:
			return d.result(3, "JP %s", d.nn(1))
		case 1:
			return d.unknown()
		case 2:
			return d.result(2, "OUT (%s),A", d.n(1))
		case 3:
			return d.result(2, "IN A,(%s)", d.n(1))
		case 4:
			return d.result(1, "EX (SP),%s", hl)
		case 5:
			return d.result(1, "EX DE,HL")
		case 6:
			return d.result(1, "DI")
		default:
			return d.result(1, "EI")
		}

	case 4:
		if ix {
			return d.unknown()
		}

		return d.result(3, "CALL %s,%s", tableCC[f.y], d.nn(1))

	case 5:
		if f.q == 0 {
			if ix && f.p != 2 {
				return d.unknown()
			}

			return d.result(1, "PUSH %s", d.pair(d.set.rp2[f.p]))
		}

		if ix || f.p != 0 {
			return d.unknown()
		}

		return d.result(3, "CALL %s", d.nn(1))

	case 6:
		if ix {
			return d.unknown()
		}

		return d.result(2, "%s%s", tableALU[f.y], d.n(1))

	default:
		if ix {
			return d.unknown()
		}

		return d.result(1, "RST %02XH", f.y*8)
	}
}

func (d *disassembler) extended() (int, string) {
	f := decode(d.op[1])

	if f.x == 2 {
		if f.z > 3 || f.y < 4 {
			return d.db(2)
		}

		return 2, tableBLI[f.y-4][f.z].String()
	}

	if f.x != 1 {
		return d.db(2)
	}

	switch f.z {
	case 0:
		if f.y == 6 {
			return 2, "IN (C)"
		}

		return 2, fmt.Sprintf("IN %s,(C)", tableR[f.y])
	case 1:
		if f.y == 6 {
			return d.db(2)
		}

		return 2, fmt.Sprintf("OUT (C),%s", tableR[f.y])
	case 2:
		name := "SBC"

		if f.q == 1 {
			name = "ADC"
		}

		return 2, fmt.Sprintf("%s HL,%s", name, tableRP[f.p])
	case 3:
		nn := fmt.Sprintf("(%04XH)", encoding.Word(d.op[2], d.op[3]))

		if f.q == 0 {
			return 4, fmt.Sprintf("LD %s,%s", nn, tableRP[f.p])
		}

		return 4, fmt.Sprintf("LD %s,%s", tableRP[f.p], nn)
	case 4:
		return 2, "NEG"
	case 5:
		if f.y == 1 {
			return 2, "RETI"
		}

		return 2, "RETN"
	case 6:
		return 2, "IM " + tableIM[f.y]
	default:
		names := [8]string{
			"LD I,A", "LD R,A", "LD A,I", "LD A,R", "RRD", "RLD", "", "",
		}

		if names[f.y] == "" {
			return d.db(2)
		}

		return 2, names[f.y]
	}
}
