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

package z80_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lassandro/gocpm/pkg/z80"
)

type testRAM [1 << 16]byte

func (m *testRAM) Read(addr uint16) byte {
	return m[addr]
}

func (m *testRAM) Write(addr uint16, value byte) {
	m[addr] = value
}

var errTestPort = errors.New("no device on port")

type portWrite struct {
	Port  byte
	Upper byte
	Value byte
}

type testPorts struct {
	Input  map[byte]byte
	Output []portWrite
	Upper  []byte
}

func (p *testPorts) In(port, upper byte) (byte, error) {
	p.Upper = append(p.Upper, upper)

	if value, ok := p.Input[port]; ok {
		return value, nil
	}

	return 0, errTestPort
}

func (p *testPorts) Out(port, upper, value byte) error {
	if port == 0xEE {
		return errTestPort
	}

	p.Output = append(p.Output, portWrite{port, upper, value})
	return nil
}

type testMachineState struct {
	Registers z80.Registers
	Memory    map[uint16]byte
}

type testCase struct {
	Name   string
	Steps  uint
	Ports  map[byte]byte
	Input  testMachineState
	Output testMachineState
}

func af(a, f byte) z80.Pair {
	return z80.Pair(uint16(a)<<8 | uint16(f))
}

func compareRegisters(t *testing.T, want, have *z80.Registers) {
	t.Helper()

	pairs := []struct {
		Name       string
		Want, Have uint16
	}{
		{"PC", want.PC, have.PC},
		{"SP", want.SP, have.SP},
		{"AF", uint16(want.AF), uint16(have.AF)},
		{"BC", uint16(want.BC), uint16(have.BC)},
		{"DE", uint16(want.DE), uint16(have.DE)},
		{"HL", uint16(want.HL), uint16(have.HL)},
		{"IX", uint16(want.IX), uint16(have.IX)},
		{"IY", uint16(want.IY), uint16(have.IY)},
		{"AF'", uint16(want.AltAF), uint16(have.AltAF)},
		{"BC'", uint16(want.AltBC), uint16(have.AltBC)},
		{"DE'", uint16(want.AltDE), uint16(have.AltDE)},
		{"HL'", uint16(want.AltHL), uint16(have.AltHL)},
		{"I", uint16(want.I), uint16(have.I)},
		{"R", uint16(want.R), uint16(have.R)},
	}

	for _, pair := range pairs {
		if pair.Want != pair.Have {
			t.Errorf(
				"Register mismatch"+
					"\nwant:%#04x (test.Output.Registers.%s)\nhave:%#04x",
				pair.Want,
				pair.Name,
				pair.Have,
			)
		}
	}

	if want.IFF1 != have.IFF1 || want.IFF2 != have.IFF2 {
		t.Errorf(
			"Interrupt flip-flop mismatch\nwant:%v %v\nhave:%v %v",
			want.IFF1, want.IFF2, have.IFF1, have.IFF2,
		)
	}
}

func compareMemory(t *testing.T, test *testCase, mem *testRAM) {
	t.Helper()

	for i, value := range mem {
		input, expectingInput := test.Input.Memory[uint16(i)]
		output, expectingOutput := test.Output.Memory[uint16(i)]

		if expectingOutput {
			if value != output {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Output.Memory[%#04x])\nhave:%#02x",
					output,
					i,
					value,
				)
			}
		} else if expectingInput {
			if value != input {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Input.Memory[%#04x])\nhave:%#02x",
					input,
					i,
					value,
				)
			}
		} else if value != 0 {
			t.Fatalf(
				"Memory unexpectedly changed"+
					"\nwant:0x00 (test.Output.Memory[%#04x])\nhave:%#02x",
				i,
				value,
			)
		}
	}
}

func testExecuteSuccess(t *testing.T, test *testCase) {
	var mem testRAM
	ports := testPorts{Input: test.Ports}

	regs := test.Input.Registers

	for addr, value := range test.Input.Memory {
		mem[addr] = value
	}

	if test.Steps == 0 {
		test.Steps = 1
	}

	for i := uint(0); i < test.Steps; i++ {
		if err := z80.Execute(&regs, &mem, &ports); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}

	compareRegisters(t, &test.Output.Registers, &regs)
	compareMemory(t, test, &mem)
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			test := test
			t.Run(test.Name, func(t *testing.T) {
				testExecuteSuccess(t, &test)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "NOP",
			Input:  testMachineState{Memory: map[uint16]byte{0x0000: 0x00}},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0001}},
		},
		{
			Name: "LD BC,nn",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0x01, 0x0001: 0x34, 0x0002: 0x12},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, BC: 0x1234},
			},
		},
		{
			Name: "LD A,n then ADD A,n",
			Steps: 3,
			Input: testMachineState{
				Memory: map[uint16]byte{
					0x0000: 0x3E, 0x0001: 0x05,
					0x0002: 0xC6, 0x0003: 0x03,
					0x0004: 0x00,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0005, AF: af(0x08, 0)},
			},
		},
		{
			Name: "LD A,B",
			Input: testMachineState{
				Registers: z80.Registers{BC: 0x4200},
				Memory:    map[uint16]byte{0x0000: 0x78},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0x42, 0), BC: 0x4200},
			},
		},
		{
			Name: "LD (HL),n",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x2000},
				Memory:    map[uint16]byte{0x0000: 0x36, 0x0001: 0x7F},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, HL: 0x2000},
				Memory:    map[uint16]byte{0x2000: 0x7F},
			},
		},
		{
			Name: "LD A,(nn)",
			Input: testMachineState{
				Memory: map[uint16]byte{
					0x0000: 0x3A, 0x0001: 0x00, 0x0002: 0x30, 0x3000: 0x99,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, AF: af(0x99, 0)},
			},
		},
		{
			Name: "LD (nn),HL",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0xBEEF},
				Memory:    map[uint16]byte{0x0000: 0x22, 0x0001: 0x00, 0x0002: 0x30},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, HL: 0xBEEF},
				Memory:    map[uint16]byte{0x3000: 0xEF, 0x3001: 0xBE},
			},
		},
		{
			Name: "LD HL,(nn)",
			Input: testMachineState{
				Memory: map[uint16]byte{
					0x0000: 0x2A, 0x0001: 0x00, 0x0002: 0x30,
					0x3000: 0xEF, 0x3001: 0xBE,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, HL: 0xBEEF},
			},
		},
		{
			Name: "LD (DE),A",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x5A, 0), DE: 0x4000},
				Memory:    map[uint16]byte{0x0000: 0x12},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0x5A, 0), DE: 0x4000},
				Memory:    map[uint16]byte{0x4000: 0x5A},
			},
		},
		{
			Name: "LD SP,HL",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0xF000},
				Memory:    map[uint16]byte{0x0000: 0xF9},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, SP: 0xF000, HL: 0xF000},
			},
		},
		{
			Name: "EX AF,AF'",
			Input: testMachineState{
				Registers: z80.Registers{AF: 0x1234, AltAF: 0x5678},
				Memory:    map[uint16]byte{0x0000: 0x08},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: 0x5678, AltAF: 0x1234},
			},
		},
		{
			Name: "EXX",
			Input: testMachineState{
				Registers: z80.Registers{
					BC: 0x0001, DE: 0x0002, HL: 0x0003,
					AltBC: 0x1001, AltDE: 0x1002, AltHL: 0x1003,
				},
				Memory: map[uint16]byte{0x0000: 0xD9},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0001,
					BC: 0x1001, DE: 0x1002, HL: 0x1003,
					AltBC: 0x0001, AltDE: 0x0002, AltHL: 0x0003,
				},
			},
		},
		{
			Name: "EX DE,HL",
			Input: testMachineState{
				Registers: z80.Registers{DE: 0x1111, HL: 0x2222},
				Memory:    map[uint16]byte{0x0000: 0xEB},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, DE: 0x2222, HL: 0x1111},
			},
		},
		{
			Name: "EX (SP),HL",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x3000, HL: 0xABCD},
				Memory: map[uint16]byte{
					0x0000: 0xE3, 0x3000: 0x34, 0x3001: 0x12,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, SP: 0x3000, HL: 0x1234},
				Memory:    map[uint16]byte{0x3000: 0xCD, 0x3001: 0xAB},
			},
		},
	})
}

func TestArithmetic(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "INC A overflow keeps carry",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x7F, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0x3C},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0001,
					AF: af(0x80, z80.FlagS|z80.FlagH|z80.FlagPV|z80.FlagC),
				},
			},
		},
		{
			Name: "DEC B to zero",
			Input: testMachineState{
				Registers: z80.Registers{BC: 0x0100},
				Memory:    map[uint16]byte{0x0000: 0x05},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0, z80.FlagZ|z80.FlagN)},
			},
		},
		{
			Name: "SUB n borrow",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0xD6, 0x0001: 0x01},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002,
					AF: af(0xFF, z80.FlagS|z80.FlagH|z80.FlagN|z80.FlagC),
				},
			},
		},
		{
			Name: "CP n equal",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x42, 0)},
				Memory:    map[uint16]byte{0x0000: 0xFE, 0x0001: 0x42},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, AF: af(0x42, z80.FlagZ|z80.FlagN)},
			},
		},
		{
			Name: "XOR A",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x5A, 0xD7)},
				Memory:    map[uint16]byte{0x0000: 0xAF},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0, z80.FlagZ|z80.FlagPV)},
			},
		},
		{
			Name: "AND n",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x3C, 0)},
				Memory:    map[uint16]byte{0x0000: 0xE6, 0x0001: 0x0F},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, AF: af(0x0C, z80.FlagH|z80.FlagPV)},
			},
		},
		{
			Name: "OR (HL)",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x01, 0), HL: 0x4000},
				Memory:    map[uint16]byte{0x0000: 0xB6, 0x4000: 0x80},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0001, HL: 0x4000, AF: af(0x81, z80.FlagS|z80.FlagPV),
				},
			},
		},
		{
			Name: "ADC A,B carry in",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0xFF, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0x88},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0001, AF: af(0x00, z80.FlagZ|z80.FlagH|z80.FlagC),
				},
			},
		},
		{
			Name: "SBC A,n overflow",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x80, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0xDE, 0x0001: 0x01},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, AF: af(0x7E, z80.FlagH|z80.FlagPV|z80.FlagN),
				},
			},
		},
		{
			Name: "ADD HL,BC",
			Input: testMachineState{
				Registers: z80.Registers{
					AF: af(0, z80.FlagS|z80.FlagZ|z80.FlagPV),
					HL: 0x0FFF, BC: 0x0001,
				},
				Memory: map[uint16]byte{0x0000: 0x09},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0001,
					AF: af(0, z80.FlagS|z80.FlagZ|z80.FlagPV|z80.FlagH),
					HL: 0x1000, BC: 0x0001,
				},
			},
		},
		{
			Name: "ADC HL,DE",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0, z80.FlagC), HL: 0x7FFF},
				Memory:    map[uint16]byte{0x0000: 0xED, 0x0001: 0x5A},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002,
					AF: af(0, z80.FlagS|z80.FlagH|z80.FlagPV),
					HL: 0x8000,
				},
			},
		},
		{
			Name: "SBC HL,BC",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x1000, BC: 0x0001},
				Memory:    map[uint16]byte{0x0000: 0xED, 0x0001: 0x42},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, AF: af(0, z80.FlagH|z80.FlagN),
					HL: 0x0FFF, BC: 0x0001,
				},
			},
		},
		{
			Name: "INC HL wraps without flags",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0xFFFF},
				Memory:    map[uint16]byte{0x0000: 0x23},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001},
			},
		},
		{
			Name: "DEC SP wraps",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0x3B},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, SP: 0xFFFF},
			},
		},
		{
			Name: "RLCA",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x81, 0)},
				Memory:    map[uint16]byte{0x0000: 0x07},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0x03, z80.FlagC)},
			},
		},
		{
			Name: "RRA leaves Z",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x01, 0)},
				Memory:    map[uint16]byte{0x0000: 0x1F},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0x00, z80.FlagC)},
			},
		},
		{
			Name: "CPL",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x55, 0)},
				Memory:    map[uint16]byte{0x0000: 0x2F},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0xAA, z80.FlagH|z80.FlagN)},
			},
		},
		{
			Name: "SCF",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0, z80.FlagH|z80.FlagN)},
				Memory:    map[uint16]byte{0x0000: 0x37},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0, z80.FlagC)},
			},
		},
		{
			Name: "CCF",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0x3F},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, AF: af(0, z80.FlagH)},
			},
		},
		{
			Name:  "ADD A,n then DAA",
			Steps: 2,
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x15, 0)},
				Memory:    map[uint16]byte{0x0000: 0xC6, 0x0001: 0x27, 0x0002: 0x27},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, AF: af(0x42, z80.FlagH|z80.FlagPV)},
			},
		},
		{
			Name: "NEG",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x01, 0)},
				Memory:    map[uint16]byte{0x0000: 0xED, 0x0001: 0x44},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002,
					AF: af(0xFF, z80.FlagS|z80.FlagH|z80.FlagN|z80.FlagC),
				},
			},
		},
		{
			Name: "NEG 0x80",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x80, 0)},
				Memory:    map[uint16]byte{0x0000: 0xED, 0x0001: 0x44},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002,
					AF: af(0x80, z80.FlagS|z80.FlagPV|z80.FlagN|z80.FlagC),
				},
			},
		},
	})
}

func TestControl(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "JP nn",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0xC3, 0x0001: 0x00, 0x0002: 0x10},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x1000}},
		},
		{
			Name: "JP Z,nn not taken",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0xCA, 0x0001: 0x00, 0x0002: 0x10},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0003}},
		},
		{
			Name: "JP M,nn taken",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0, z80.FlagS)},
				Memory:    map[uint16]byte{0x0000: 0xFA, 0x0001: 0x00, 0x0002: 0x10},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x1000, AF: af(0, z80.FlagS)},
			},
		},
		{
			Name: "JR to itself",
			Input: testMachineState{
				Registers: z80.Registers{PC: 0x0100},
				Memory:    map[uint16]byte{0x0100: 0x18, 0x0101: 0xFE},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0100}},
		},
		{
			Name: "JR NZ taken",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0x20, 0x0001: 0x05},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0007}},
		},
		{
			Name: "JR C not taken",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0x38, 0x0001: 0x05},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0002}},
		},
		{
			Name:  "DJNZ loop",
			Steps: 3,
			Input: testMachineState{
				Registers: z80.Registers{BC: 0x0300},
				Memory:    map[uint16]byte{0x0000: 0x10, 0x0001: 0xFE},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0002}},
		},
		{
			Name: "CALL nn",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x3000},
				Memory:    map[uint16]byte{0x0000: 0xCD, 0x0001: 0x00, 0x0002: 0x20},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x2000, SP: 0x2FFE},
				Memory:    map[uint16]byte{0x2FFE: 0x03, 0x2FFF: 0x00},
			},
		},
		{
			Name: "CALL NC,nn not taken",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x3000, AF: af(0, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0xD4, 0x0001: 0x00, 0x0002: 0x20},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, SP: 0x3000, AF: af(0, z80.FlagC)},
			},
		},
		{
			Name: "RET",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x2FFE},
				Memory: map[uint16]byte{
					0x0000: 0xC9, 0x2FFE: 0x34, 0x2FFF: 0x12,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x1234, SP: 0x3000},
			},
		},
		{
			Name: "RET NZ not taken",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x2FFE, AF: af(0, z80.FlagZ)},
				Memory:    map[uint16]byte{0x0000: 0xC0},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, SP: 0x2FFE, AF: af(0, z80.FlagZ)},
			},
		},
		{
			Name:  "PUSH BC then POP DE",
			Steps: 2,
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x3000, BC: 0x1234},
				Memory:    map[uint16]byte{0x0000: 0xC5, 0x0001: 0xD1},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, SP: 0x3000, BC: 0x1234, DE: 0x1234},
				Memory:    map[uint16]byte{0x2FFE: 0x34, 0x2FFF: 0x12},
			},
		},
		{
			Name: "POP AF",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x2FFE},
				Memory: map[uint16]byte{
					0x0000: 0xF1, 0x2FFE: 0xD7, 0x2FFF: 0x80,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0001, SP: 0x3000, AF: 0x80D7},
			},
		},
		{
			Name: "JP (HL)",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x4000},
				Memory:    map[uint16]byte{0x0000: 0xE9},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x4000, HL: 0x4000},
			},
		},
		{
			Name:  "DI then EI",
			Steps: 2,
			Input: testMachineState{
				Registers: z80.Registers{IFF1: true, IFF2: true},
				Memory:    map[uint16]byte{0x0000: 0xF3, 0x0001: 0xFB},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, IFF1: true, IFF2: true},
			},
		},
		{
			Name: "DI",
			Input: testMachineState{
				Registers: z80.Registers{IFF1: true, IFF2: true},
				Memory:    map[uint16]byte{0x0000: 0xF3},
			},
			Output: testMachineState{Registers: z80.Registers{PC: 0x0001}},
		},
		{
			Name: "RETN restores IFF1",
			Input: testMachineState{
				Registers: z80.Registers{SP: 0x2FFE, IFF2: true},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0x45, 0x2FFE: 0x00, 0x2FFF: 0x01,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0100, SP: 0x3000, IFF1: true, IFF2: true,
				},
			},
		},
	})
}

func TestBitwise(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "RLC B",
			Input: testMachineState{
				Registers: z80.Registers{BC: 0x8000},
				Memory:    map[uint16]byte{0x0000: 0xCB, 0x0001: 0x00},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, BC: 0x0100, AF: af(0, z80.FlagC)},
			},
		},
		{
			Name: "SRA (HL)",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xCB, 0x0001: 0x2E, 0x4000: 0x81,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, HL: 0x4000,
					AF: af(0, z80.FlagS|z80.FlagPV|z80.FlagC),
				},
				Memory: map[uint16]byte{0x4000: 0xC0},
			},
		},
		{
			Name: "SRL A",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x01, 0)},
				Memory:    map[uint16]byte{0x0000: 0xCB, 0x0001: 0x3F},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, AF: af(0, z80.FlagZ|z80.FlagPV|z80.FlagC),
				},
			},
		},
		{
			Name: "BIT 7,H",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x8000, AF: af(0, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0xCB, 0x0001: 0x7C},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, HL: 0x8000, AF: af(0, z80.FlagH|z80.FlagC),
				},
			},
		},
		{
			Name: "BIT 0,A",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0xCB, 0x0001: 0x47},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, AF: af(0, z80.FlagZ|z80.FlagH)},
			},
		},
		{
			Name: "RES 3,(HL)",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xCB, 0x0001: 0x9E, 0x4000: 0xFF,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, HL: 0x4000},
				Memory:    map[uint16]byte{0x4000: 0xF7},
			},
		},
		{
			Name: "SET 7,E",
			Input: testMachineState{
				Memory: map[uint16]byte{0x0000: 0xCB, 0x0001: 0xFB},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, DE: 0x0080},
			},
		},
	})
}

func TestExtended(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "LD (nn),DE",
			Input: testMachineState{
				Registers: z80.Registers{DE: 0x1234},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0x53, 0x0002: 0x00, 0x0003: 0x30,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, DE: 0x1234},
				Memory:    map[uint16]byte{0x3000: 0x34, 0x3001: 0x12},
			},
		},
		{
			Name: "LD SP,(nn)",
			Input: testMachineState{
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0x7B, 0x0002: 0x00, 0x0003: 0x30,
					0x3000: 0x00, 0x3001: 0xF0,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, SP: 0xF000},
			},
		},
		{
			Name: "LD I,A",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x80, 0)},
				Memory:    map[uint16]byte{0x0000: 0xED, 0x0001: 0x47},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, AF: af(0x80, 0), I: 0x80},
			},
		},
		{
			Name: "LD A,I",
			Input: testMachineState{
				Registers: z80.Registers{I: 0x80, IFF2: true, AF: af(0, z80.FlagC)},
				Memory:    map[uint16]byte{0x0000: 0xED, 0x0001: 0x57},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, I: 0x80, IFF2: true,
					AF: af(0x80, z80.FlagS|z80.FlagPV|z80.FlagC),
				},
			},
		},
		{
			Name: "RRD",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x12, 0), HL: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0x67, 0x4000: 0x34,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, HL: 0x4000, AF: af(0x14, z80.FlagPV),
				},
				Memory: map[uint16]byte{0x4000: 0x23},
			},
		},
		{
			Name: "RLD",
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x12, 0), HL: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0x6F, 0x4000: 0x34,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, HL: 0x4000, AF: af(0x13, 0)},
				Memory:    map[uint16]byte{0x4000: 0x42},
			},
		},
		{
			Name: "LDI",
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x4000, DE: 0x5000, BC: 0x0002},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0xA0, 0x4000: 0xAA,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, HL: 0x4001, DE: 0x5001, BC: 0x0001,
					AF: af(0, z80.FlagPV),
				},
				Memory: map[uint16]byte{0x5000: 0xAA},
			},
		},
		{
			Name:  "LDIR three bytes",
			Steps: 3,
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x4000, DE: 0x5000, BC: 0x0003},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0xB0,
					0x4000: 0xAA, 0x4001: 0xBB, 0x4002: 0xCC,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, HL: 0x4003, DE: 0x5003},
				Memory: map[uint16]byte{
					0x5000: 0xAA, 0x5001: 0xBB, 0x5002: 0xCC,
				},
			},
		},
		{
			Name:  "LDDR two bytes",
			Steps: 2,
			Input: testMachineState{
				Registers: z80.Registers{HL: 0x4001, DE: 0x5001, BC: 0x0002},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0xB8,
					0x4000: 0xAA, 0x4001: 0xBB,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, HL: 0x3FFF, DE: 0x4FFF},
				Memory:    map[uint16]byte{0x5000: 0xAA, 0x5001: 0xBB},
			},
		},
		{
			Name: "CPI keeps carry",
			Input: testMachineState{
				Registers: z80.Registers{
					AF: af(0x42, z80.FlagC), HL: 0x4000, BC: 0x0001,
				},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0xA1, 0x4000: 0x42,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, HL: 0x4001,
					AF: af(0x42, z80.FlagZ|z80.FlagN|z80.FlagC),
				},
			},
		},
		{
			Name:  "CPIR stops on match",
			Steps: 3,
			Input: testMachineState{
				Registers: z80.Registers{AF: af(0x33, 0), HL: 0x4000, BC: 0x0005},
				Memory: map[uint16]byte{
					0x0000: 0xED, 0x0001: 0xB1,
					0x4000: 0x11, 0x4001: 0x22, 0x4002: 0x33, 0x4003: 0x44,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, HL: 0x4003, BC: 0x0002,
					AF: af(0x33, z80.FlagZ|z80.FlagPV|z80.FlagN),
				},
			},
		},
	})
}

func TestIndexed(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "LD IX,nn",
			Input: testMachineState{
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0x21, 0x0002: 0x34, 0x0003: 0x12,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, IX: 0x1234},
			},
		},
		{
			Name: "LD SP,IX",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x1234},
				Memory:    map[uint16]byte{0x0000: 0xDD, 0x0001: 0xF9},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, SP: 0x1234, IX: 0x1234},
			},
		},
		{
			Name: "LD SP,IY",
			Input: testMachineState{
				Registers: z80.Registers{IY: 0xBEEF},
				Memory:    map[uint16]byte{0x0000: 0xFD, 0x0001: 0xF9},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, SP: 0xBEEF, IY: 0xBEEF},
			},
		},
		{
			Name: "LD A,(IX+d)",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0x7E, 0x0002: 0x05, 0x4005: 0x99,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, IX: 0x4000, AF: af(0x99, 0)},
			},
		},
		{
			Name: "LD (IY-1),n",
			Input: testMachineState{
				Registers: z80.Registers{IY: 0x4001},
				Memory: map[uint16]byte{
					0x0000: 0xFD, 0x0001: 0x36, 0x0002: 0xFF, 0x0003: 0x77,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, IY: 0x4001},
				Memory:    map[uint16]byte{0x4000: 0x77},
			},
		},
		{
			Name: "LD (IX+d),H stores the real H",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x4000, HL: 0x5500},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0x74, 0x0002: 0x02,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, IX: 0x4000, HL: 0x5500},
				Memory:    map[uint16]byte{0x4002: 0x55},
			},
		},
		{
			Name: "LD IXH,B",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x0034, BC: 0x1200},
				Memory:    map[uint16]byte{0x0000: 0xDD, 0x0001: 0x60},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, IX: 0x1234, BC: 0x1200},
			},
		},
		{
			Name: "INC (IX+d)",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0x34, 0x0002: 0x00, 0x4000: 0x7F,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0003, IX: 0x4000,
					AF: af(0, z80.FlagS|z80.FlagH|z80.FlagPV),
				},
				Memory: map[uint16]byte{0x4000: 0x80},
			},
		},
		{
			Name: "DEC IXL",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x1200},
				Memory:    map[uint16]byte{0x0000: 0xDD, 0x0001: 0x2D},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0002, IX: 0x12FF,
					AF: af(0, z80.FlagS|z80.FlagH|z80.FlagN),
				},
			},
		},
		{
			Name: "ADD IX,SP",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x1000, SP: 0x1000},
				Memory:    map[uint16]byte{0x0000: 0xDD, 0x0001: 0x39},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, IX: 0x2000, SP: 0x1000},
			},
		},
		{
			Name: "ADD A,(IY-2)",
			Input: testMachineState{
				Registers: z80.Registers{IY: 0x4002, AF: af(0x01, 0)},
				Memory: map[uint16]byte{
					0x0000: 0xFD, 0x0001: 0x86, 0x0002: 0xFE, 0x4000: 0x01,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0003, IY: 0x4002, AF: af(0x02, 0)},
			},
		},
		{
			Name:  "PUSH IX then POP IY",
			Steps: 2,
			Input: testMachineState{
				Registers: z80.Registers{IX: 0xCAFE, SP: 0x3000},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0xE5, 0x0002: 0xFD, 0x0003: 0xE1,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{
					PC: 0x0004, IX: 0xCAFE, IY: 0xCAFE, SP: 0x3000,
				},
				Memory: map[uint16]byte{0x2FFE: 0xFE, 0x2FFF: 0xCA},
			},
		},
		{
			Name: "LD (nn),IX",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0xBEEF},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0x22, 0x0002: 0x00, 0x0003: 0x30,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, IX: 0xBEEF},
				Memory:    map[uint16]byte{0x3000: 0xEF, 0x3001: 0xBE},
			},
		},
		{
			Name: "JP (IX)",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x8000},
				Memory:    map[uint16]byte{0x0000: 0xDD, 0x0001: 0xE9},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x8000, IX: 0x8000},
			},
		},
		{
			Name: "EX (SP),IY",
			Input: testMachineState{
				Registers: z80.Registers{IY: 0x1111, SP: 0x3000},
				Memory: map[uint16]byte{
					0x0000: 0xFD, 0x0001: 0xE3, 0x3000: 0x22, 0x3001: 0x22,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0002, IY: 0x2222, SP: 0x3000},
				Memory:    map[uint16]byte{0x3000: 0x11, 0x3001: 0x11},
			},
		},
		{
			Name: "SET 0,(IX+1)",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0xCB, 0x0002: 0x01, 0x0003: 0xC6,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, IX: 0x4000},
				Memory:    map[uint16]byte{0x4001: 0x01},
			},
		},
		{
			Name: "BIT 1,(IY-2)",
			Input: testMachineState{
				Registers: z80.Registers{IY: 0x4002},
				Memory: map[uint16]byte{
					0x0000: 0xFD, 0x0001: 0xCB, 0x0002: 0xFE, 0x0003: 0x4E,
					0x4000: 0x02,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, IY: 0x4002, AF: af(0, z80.FlagH)},
			},
		},
		{
			Name: "RLC (IX+0)",
			Input: testMachineState{
				Registers: z80.Registers{IX: 0x4000},
				Memory: map[uint16]byte{
					0x0000: 0xDD, 0x0001: 0xCB, 0x0002: 0x00, 0x0003: 0x06,
					0x4000: 0x80,
				},
			},
			Output: testMachineState{
				Registers: z80.Registers{PC: 0x0004, IX: 0x4000, AF: af(0, z80.FlagC)},
				Memory:    map[uint16]byte{0x4000: 0x01},
			},
		},
	})
}

func TestPorts(t *testing.T) {
	var mem testRAM
	var regs z80.Registers
	ports := testPorts{Input: map[byte]byte{0x01: 0x61, 0x00: 0xFF}}

	// OUT (10H),A ; IN A,(01H) ; IN L,(C) ; OUT (C),A
	program := []byte{0xD3, 0x10, 0xDB, 0x01, 0xED, 0x68, 0xED, 0x79}
	copy(mem[:], program)

	regs.AF = af(0x01, z80.FlagC)
	regs.BC = 0x7F00

	for i := 0; i < 4; i++ {
		if err := z80.Execute(&regs, &mem, &ports); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}

	want := []portWrite{{0x10, 0x7F, 0x01}, {0x00, 0x7F, 0x61}}

	if fmt.Sprint(ports.Output) != fmt.Sprint(want) {
		t.Errorf("Port writes mismatch\nwant:%v\nhave:%v", want, ports.Output)
	}

	for i, upper := range ports.Upper {
		if upper != 0x7F {
			t.Errorf("Upper address byte mismatch on read %d\nwant:0x7f\nhave:%#02x", i, upper)
		}
	}

	if regs.A() != 0x61 {
		t.Errorf("IN A,(n) mismatch\nwant:0x61\nhave:%#02x", regs.A())
	}

	if regs.HL.Lo() != 0xFF {
		t.Errorf("IN L,(C) mismatch\nwant:0xff\nhave:%#02x", regs.HL.Lo())
	}

	if want := z80.FlagS | z80.FlagPV | z80.FlagC; regs.F() != want {
		t.Errorf("IN L,(C) flags\nwant:%#08b\nhave:%#08b", want, regs.F())
	}

	if regs.PC != 0x0008 {
		t.Errorf("Program counter mismatch\nwant:0x0008\nhave:%#04x", regs.PC)
	}
}

func TestNopAnywhere(t *testing.T) {
	for _, pc := range []uint16{0x0000, 0x1234, 0xFFFF} {
		var mem testRAM
		var ports testPorts

		regs := z80.Registers{
			PC: pc, SP: 0x8000, AF: 0x12D7, BC: 0x3456, HL: 0x789A, IX: 0x1111,
		}
		before := regs
		before.PC = pc + 1

		if err := z80.Execute(&regs, &mem, &ports); err != nil {
			t.Fatalf("NOP at %#04x failed: %v", pc, err)
		}

		if regs != before {
			t.Errorf("NOP at %#04x\nwant:%s\nhave:%s", pc, before, regs)
		}

		for i, value := range mem {
			if value != 0 {
				t.Fatalf("NOP wrote %#02x to %#04x", value, i)
			}
		}
	}
}

func TestLoadPairHalves(t *testing.T) {
	var mem testRAM
	var ports testPorts
	var regs z80.Registers

	copy(mem[:], []byte{0x01, 0xCD, 0xAB})

	if err := z80.Execute(&regs, &mem, &ports); err != nil {
		t.Fatal(err)
	}

	if regs.BC.Hi() != 0xAB || regs.BC.Lo() != 0xCD {
		t.Errorf(
			"Split halves mismatch\nwant:0xab 0xcd\nhave:%#02x %#02x",
			regs.BC.Hi(), regs.BC.Lo(),
		)
	}

	if regs.PC != 3 {
		t.Errorf("Program counter mismatch\nwant:0x0003\nhave:%#04x", regs.PC)
	}
}
