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
	"math/bits"
)

const (
	flagsAll   = FlagS | FlagZ | FlagH | FlagPV | FlagN | FlagC
	flagsLogic = flagsAll
	flagsInc   = FlagS | FlagZ | FlagH | FlagPV | FlagN
	flagsAdd16 = FlagH | FlagN | FlagC
	flagsRotA  = FlagH | FlagN | FlagC
	flagsBit   = FlagZ | FlagH | FlagN
	flagsRD    = FlagS | FlagZ | FlagH | FlagPV | FlagN
)

func flagIf(cond bool, mask byte) byte {
	if cond {
		return mask
	}

	return 0
}

// Even parity sets PV
func parity(value byte) bool {
	return bits.OnesCount8(value)&1 == 0
}

func signZero(value byte) byte {
	return value&FlagS | flagIf(value == 0, FlagZ)
}

func signZeroParity(value byte) byte {
	return signZero(value) | flagIf(parity(value), FlagPV)
}

func (r *Registers) carry() byte {
	if r.Flag(FlagC) {
		return 1
	}

	return 0
}

func (r *Registers) Add8(a, b byte) byte {
	return r.add8(a, b, 0)
}

func (r *Registers) Adc8(a, b byte) byte {
	return r.add8(a, b, r.carry())
}

// ADD/ADC
//
//	S: bit 7 of the result
//	Z: result is zero
//	H: carry out of bit 3
//	PV: operands share a sign the result does not
//	N: reset
//	C: carry out of bit 7
func (r *Registers) add8(a, b, c byte) byte {
	sum := uint16(a) + uint16(b) + uint16(c)
	result := byte(sum)

	r.updateFlags(
		signZero(result)|
			flagIf((a&0xF)+(b&0xF)+c > 0xF, FlagH)|
			flagIf((a^b)&0x80 == 0 && (a^result)&0x80 != 0, FlagPV)|
			flagIf(sum > 0xFF, FlagC),
		flagsAll,
	)

	return result
}

func (r *Registers) Sub8(a, b byte) byte {
	return r.sub8(a, b, 0)
}

func (r *Registers) Sbc8(a, b byte) byte {
	return r.sub8(a, b, r.carry())
}

// Compares a with b. The flags are those of Sub8, the result is discarded.
func (r *Registers) Cp8(a, b byte) {
	r.sub8(a, b, 0)
}

// SUB/SBC/CP
//
//	H: borrow from bit 4
//	PV: operands differ in sign and the result has the subtrahend's sign
//	N: set
//	C: borrow from bit 8
func (r *Registers) sub8(a, b, c byte) byte {
	diff := int(a) - int(b) - int(c)
	result := byte(diff)

	r.updateFlags(
		signZero(result)|
			flagIf(int(a&0xF)-int(b&0xF)-int(c) < 0, FlagH)|
			flagIf((a^b)&0x80 != 0 && (b^result)&0x80 == 0, FlagPV)|
			FlagN|
			flagIf(diff < 0, FlagC),
		flagsAll,
	)

	return result
}

func (r *Registers) And8(a, b byte) byte {
	result := a & b
	r.updateFlags(signZeroParity(result)|FlagH, flagsLogic)
	return result
}

func (r *Registers) Or8(a, b byte) byte {
	result := a | b
	r.updateFlags(signZeroParity(result), flagsLogic)
	return result
}

func (r *Registers) Xor8(a, b byte) byte {
	result := a ^ b
	r.updateFlags(signZeroParity(result), flagsLogic)
	return result
}

// Carry is not affected
func (r *Registers) Inc8(value byte) byte {
	result := value + 1

	r.updateFlags(
		signZero(result)|
			flagIf(result&0xF == 0, FlagH)|
			flagIf(value == 0x7F, FlagPV),
		flagsInc,
	)

	return result
}

// Carry is not affected
func (r *Registers) Dec8(value byte) byte {
	result := value - 1

	r.updateFlags(
		signZero(result)|
			flagIf(value&0xF == 0, FlagH)|
			flagIf(value == 0x80, FlagPV)|
			FlagN,
		flagsInc,
	)

	return result
}

// S, Z and PV are not affected
func (r *Registers) Add16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)

	r.updateFlags(
		flagIf((a&0xFFF)+(b&0xFFF) > 0xFFF, FlagH)|
			flagIf(sum > 0xFFFF, FlagC),
		flagsAdd16,
	)

	return uint16(sum)
}

func (r *Registers) Adc16(a, b uint16) uint16 {
	c := uint32(r.carry())
	sum := uint32(a) + uint32(b) + c
	result := uint16(sum)

	r.updateFlags(
		byte(result>>8)&FlagS|
			flagIf(result == 0, FlagZ)|
			flagIf(uint32(a&0xFFF)+uint32(b&0xFFF)+c > 0xFFF, FlagH)|
			flagIf((a^b)&0x8000 == 0 && (a^result)&0x8000 != 0, FlagPV)|
			flagIf(sum > 0xFFFF, FlagC),
		flagsAll,
	)

	return result
}

func (r *Registers) Sbc16(a, b uint16) uint16 {
	c := int(r.carry())
	diff := int(a) - int(b) - c
	result := uint16(diff)

	r.updateFlags(
		byte(result>>8)&FlagS|
			flagIf(result == 0, FlagZ)|
			flagIf(int(a&0xFFF)-int(b&0xFFF)-c < 0, FlagH)|
			flagIf((a^b)&0x8000 != 0 && (b^result)&0x8000 == 0, FlagPV)|
			FlagN|
			flagIf(diff < 0, FlagC),
		flagsAll,
	)

	return result
}

func (r *Registers) Rlc(value byte) byte {
	return r.shift(value<<1|value>>7, value>>7)
}

func (r *Registers) Rrc(value byte) byte {
	return r.shift(value>>1|value<<7, value&1)
}

func (r *Registers) Rl(value byte) byte {
	return r.shift(value<<1|r.carry(), value>>7)
}

func (r *Registers) Rr(value byte) byte {
	return r.shift(value>>1|r.carry()<<7, value&1)
}

func (r *Registers) Sla(value byte) byte {
	return r.shift(value<<1, value>>7)
}

// Bit 7 is kept
func (r *Registers) Sra(value byte) byte {
	return r.shift(value>>1|value&0x80, value&1)
}

// Bit 0 is forced to 1
func (r *Registers) Sll(value byte) byte {
	return r.shift(value<<1|1, value>>7)
}

func (r *Registers) Srl(value byte) byte {
	return r.shift(value>>1, value&1)
}

func (r *Registers) shift(result, carry byte) byte {
	r.updateFlags(signZeroParity(result)|flagIf(carry != 0, FlagC), flagsAll)
	return result
}

func (r *Registers) rotate(op rotOp, value byte) byte {
	switch op {
	case rotRLC:
		return r.Rlc(value)
	case rotRRC:
		return r.Rrc(value)
	case rotRL:
		return r.Rl(value)
	case rotRR:
		return r.Rr(value)
	case rotSLA:
		return r.Sla(value)
	case rotSRA:
		return r.Sra(value)
	case rotSLL:
		return r.Sll(value)
	default:
		return r.Srl(value)
	}
}

// Z is the complement of bit n. S, PV and C are not affected.
func (r *Registers) Bit(value, n byte) {
	r.updateFlags(flagIf(value&(1<<(n&7)) == 0, FlagZ)|FlagH, flagsBit)
}

// Decimal adjust after an addition or subtraction of two BCD values. N
// selects which of the two is corrected and is kept as is.
func (r *Registers) Daa() {
	a := r.A()
	lo := a & 0xF
	half := r.Flag(FlagH)
	carry := r.Flag(FlagC)

	var diff byte

	if carry || a > 0x99 {
		diff |= 0x60
		carry = true
	}

	if half || lo > 9 {
		diff |= 0x06
	}

	var result byte

	if r.Flag(FlagN) {
		result = a - diff
		half = half && lo < 6
	} else {
		result = a + diff
		half = lo > 9
	}

	r.SetA(result)
	r.updateFlags(
		signZeroParity(result)|flagIf(half, FlagH)|flagIf(carry, FlagC),
		FlagS|FlagZ|FlagH|FlagPV|FlagC,
	)
}

// RLCA/RRCA/RLA/RRA only touch H, N and C
func (r *Registers) Rlca() {
	a := r.A()
	r.SetA(a<<1 | a>>7)
	r.updateFlags(flagIf(a&0x80 != 0, FlagC), flagsRotA)
}

func (r *Registers) Rrca() {
	a := r.A()
	r.SetA(a>>1 | a<<7)
	r.updateFlags(flagIf(a&1 != 0, FlagC), flagsRotA)
}

func (r *Registers) Rla() {
	a := r.A()
	r.SetA(a<<1 | r.carry())
	r.updateFlags(flagIf(a&0x80 != 0, FlagC), flagsRotA)
}

func (r *Registers) Rra() {
	a := r.A()
	r.SetA(a>>1 | r.carry()<<7)
	r.updateFlags(flagIf(a&1 != 0, FlagC), flagsRotA)
}

func (r *Registers) Cpl() {
	r.SetA(^r.A())
	r.updateFlags(FlagH|FlagN, FlagH|FlagN)
}

func (r *Registers) Scf() {
	r.updateFlags(FlagC, flagsRotA)
}

// H takes the previous carry
func (r *Registers) Ccf() {
	carry := r.Flag(FlagC)
	r.updateFlags(flagIf(carry, FlagH)|flagIf(!carry, FlagC), flagsRotA)
}

func (r *Registers) Neg() {
	r.SetA(r.Sub8(0, r.A()))
}

// Copies (HL) to (DE), steps both by one and counts BC down. PV reports
// whether BC is still non-zero.
func (r *Registers) Ldi(mem Memory) {
	r.blockLoad(mem, 1)
}

func (r *Registers) Ldd(mem Memory) {
	r.blockLoad(mem, 0xFFFF)
}

func (r *Registers) blockLoad(mem Memory, step uint16) {
	mem.Write(uint16(r.DE), mem.Read(uint16(r.HL)))
	r.DE += Pair(step)
	r.HL += Pair(step)
	r.BC--

	r.updateFlags(flagIf(r.BC != 0, FlagPV), FlagH|FlagPV|FlagN)
}

// Compares A with (HL) like Cp8, but C survives and PV reports BC != 0
func (r *Registers) Cpi(mem Memory) {
	r.blockCompare(mem, 1)
}

func (r *Registers) Cpd(mem Memory) {
	r.blockCompare(mem, 0xFFFF)
}

func (r *Registers) blockCompare(mem Memory, step uint16) {
	carry := r.Flag(FlagC)

	r.Cp8(r.A(), mem.Read(uint16(r.HL)))
	r.HL += Pair(step)
	r.BC--

	r.SetFlag(FlagPV, r.BC != 0)
	r.SetFlag(FlagC, carry)
}

// Rotates the low nibble of A through (HL), right to left
func (r *Registers) Rrd(mem Memory) {
	a := r.A()
	m := mem.Read(uint16(r.HL))

	mem.Write(uint16(r.HL), a<<4|m>>4)
	r.SetA(a&0xF0 | m&0x0F)
	r.updateFlags(signZeroParity(r.A()), flagsRD)
}

func (r *Registers) Rld(mem Memory) {
	a := r.A()
	m := mem.Read(uint16(r.HL))

	mem.Write(uint16(r.HL), m<<4|a&0x0F)
	r.SetA(a&0xF0 | m>>4)
	r.updateFlags(signZeroParity(r.A()), flagsRD)
}

// Flags after IN r,(C)
func (r *Registers) inFlags(value byte) {
	r.updateFlags(signZeroParity(value), flagsRD)
}

// Flags after LD A,I and LD A,R
func (r *Registers) specialFlags(value byte) {
	r.updateFlags(signZero(value)|flagIf(r.IFF2, FlagPV), flagsRD)
}
