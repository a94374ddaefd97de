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
)

const (
	FlagC  byte = 1 << 0
	FlagN  byte = 1 << 1
	FlagPV byte = 1 << 2
	FlagH  byte = 1 << 4
	FlagZ  byte = 1 << 6
	FlagS  byte = 1 << 7
)

// Pair is a 16-bit register pair. The high and low bytes are views over the
// same storage.
type Pair uint16

func (p Pair) Hi() byte {
	return byte(p >> 8)
}

func (p Pair) Lo() byte {
	return byte(p)
}

func (p *Pair) SetHi(value byte) {
	*p = Pair(uint16(*p)&0x00FF | uint16(value)<<8)
}

func (p *Pair) SetLo(value byte) {
	*p = Pair(uint16(*p)&0xFF00 | uint16(value))
}

type Registers struct {
	PC uint16
	SP uint16

	I byte
	R byte

	IFF1 bool
	IFF2 bool

	AF Pair
	BC Pair
	DE Pair
	HL Pair
	IX Pair
	IY Pair

	// Alternate set, only reachable through EX AF,AF' and EXX
	AltAF Pair
	AltBC Pair
	AltDE Pair
	AltHL Pair
}

func (r *Registers) Init() {
	*r = Registers{}
}

func (r *Registers) A() byte {
	return r.AF.Hi()
}

func (r *Registers) SetA(value byte) {
	r.AF.SetHi(value)
}

func (r *Registers) F() byte {
	return r.AF.Lo()
}

func (r *Registers) SetF(value byte) {
	r.AF.SetLo(value)
}

func (r *Registers) Flag(mask byte) bool {
	return r.F()&mask != 0
}

func (r *Registers) SetFlag(mask byte, on bool) {
	if on {
		r.SetF(r.F() | mask)
	} else {
		r.SetF(r.F() &^ mask)
	}
}

// Replaces the flags selected by mask with the matching bits of value. Bits
// outside the mask, including the two unused ones, are kept.
func (r *Registers) updateFlags(value, mask byte) {
	r.SetF(r.F()&^mask | value&mask)
}

func (r *Registers) ExAF() {
	r.AF, r.AltAF = r.AltAF, r.AF
}

func (r *Registers) Exx() {
	r.BC, r.AltBC = r.AltBC, r.BC
	r.DE, r.AltDE = r.AltDE, r.DE
	r.HL, r.AltHL = r.AltHL, r.HL
}

// Flags renders F as "SZ-H-PNC" with cleared flags shown as '-'.
func (r *Registers) Flags() string {
	const names = "SZ.H.PNC"

	out := []byte(names)
	f := r.F()

	for i := range out {
		bit := byte(0x80) >> uint(i)

		if out[i] == '.' || f&bit == 0 {
			out[i] = '-'
		}
	}

	return string(out)
}

func (r Registers) String() string {
	return fmt.Sprintf(
		"AF=%04x BC=%04x DE=%04x HL=%04x IX=%04x IY=%04x SP=%04x PC=%04x [%s]",
		uint16(r.AF), uint16(r.BC), uint16(r.DE), uint16(r.HL),
		uint16(r.IX), uint16(r.IY), r.SP, r.PC, r.Flags(),
	)
}
