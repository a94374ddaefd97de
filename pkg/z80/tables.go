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

type reg8 uint8

const (
	regB reg8 = iota
	regC
	regD
	regE
	regH
	regL
	regMem
	regA
	regIXH
	regIXL
	regIYH
	regIYL
)

var reg8Names = [...]string{
	"B", "C", "D", "E", "H", "L", "(HL)", "A", "IXH", "IXL", "IYH", "IYL",
}

func (r reg8) String() string {
	return reg8Names[r]
}

type regPair uint8

const (
	pairBC regPair = iota
	pairDE
	pairHL
	pairSP
	pairAF
	pairIX
	pairIY
)

var regPairNames = [...]string{"BC", "DE", "HL", "SP", "AF", "IX", "IY"}

func (p regPair) String() string {
	return regPairNames[p]
}

type condition uint8

const (
	condNZ condition = iota
	condZ
	condNC
	condC
	condPO
	condPE
	condP
	condM
)

var conditionNames = [...]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

func (c condition) String() string {
	return conditionNames[c]
}

func (c condition) test(f byte) bool {
	switch c {
	case condNZ:
		return f&FlagZ == 0
	case condZ:
		return f&FlagZ != 0
	case condNC:
		return f&FlagC == 0
	case condC:
		return f&FlagC != 0
	case condPO:
		return f&FlagPV == 0
	case condPE:
		return f&FlagPV != 0
	case condP:
		return f&FlagS == 0
	default:
		return f&FlagS != 0
	}
}

type aluOp uint8

const (
	aluADD aluOp = iota
	aluADC
	aluSUB
	aluSBC
	aluAND
	aluXOR
	aluOR
	aluCP
)

// Operand prefix included, e.g. "ADD A," + "B"
var aluNames = [...]string{
	"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP ",
}

func (op aluOp) String() string {
	return aluNames[op]
}

type rotOp uint8

const (
	rotRLC rotOp = iota
	rotRRC
	rotRL
	rotRR
	rotSLA
	rotSRA
	rotSLL
	rotSRL
)

var rotNames = [...]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

func (op rotOp) String() string {
	return rotNames[op]
}

type blockOp uint8

const (
	blockLDI blockOp = iota
	blockCPI
	blockINI
	blockOUTI
	blockLDD
	blockCPD
	blockIND
	blockOUTD
	blockLDIR
	blockCPIR
	blockINIR
	blockOTIR
	blockLDDR
	blockCPDR
	blockINDR
	blockOTDR
)

var blockNames = [...]string{
	"LDI", "CPI", "INI", "OUTI",
	"LDD", "CPD", "IND", "OUTD",
	"LDIR", "CPIR", "INIR", "OTIR",
	"LDDR", "CPDR", "INDR", "OTDR",
}

func (op blockOp) String() string {
	return blockNames[op]
}

var (
	tableR   = [8]reg8{regB, regC, regD, regE, regH, regL, regMem, regA}
	tableRIX = [8]reg8{regB, regC, regD, regE, regIXH, regIXL, regMem, regA}
	tableRIY = [8]reg8{regB, regC, regD, regE, regIYH, regIYL, regMem, regA}

	tableRP   = [4]regPair{pairBC, pairDE, pairHL, pairSP}
	tableRPIX = [4]regPair{pairBC, pairDE, pairIX, pairSP}
	tableRPIY = [4]regPair{pairBC, pairDE, pairIY, pairSP}

	tableRP2   = [4]regPair{pairBC, pairDE, pairHL, pairAF}
	tableRP2IX = [4]regPair{pairBC, pairDE, pairIX, pairAF}
	tableRP2IY = [4]regPair{pairBC, pairDE, pairIY, pairAF}

	tableCC = [8]condition{
		condNZ, condZ, condNC, condC, condPO, condPE, condP, condM,
	}

	tableALU = [8]aluOp{
		aluADD, aluADC, aluSUB, aluSBC, aluAND, aluXOR, aluOR, aluCP,
	}

	tableRot = [8]rotOp{
		rotRLC, rotRRC, rotRL, rotRR, rotSLA, rotSRA, rotSLL, rotSRL,
	}

	tableIM = [8]string{"0", "0/1", "1", "2", "0", "0/1", "1", "2"}

	// Indexed by [y-4][z]
	tableBLI = [4][4]blockOp{
		{blockLDI, blockCPI, blockINI, blockOUTI},
		{blockLDD, blockCPD, blockIND, blockOUTD},
		{blockLDIR, blockCPIR, blockINIR, blockOTIR},
		{blockLDDR, blockCPDR, blockINDR, blockOTDR},
	}
)

// Operand tables for one prefix family. Under DD/FD every reference to HL
// resolves to IX/IY instead.
type tableSet struct {
	r   [8]reg8
	rp  [4]regPair
	rp2 [4]regPair
	hl  regPair
}

var (
	plainTables = tableSet{tableR, tableRP, tableRP2, pairHL}
	ixTables    = tableSet{tableRIX, tableRPIX, tableRP2IX, pairIX}
	iyTables    = tableSet{tableRIY, tableRPIY, tableRP2IY, pairIY}
)

type fields struct {
	x, y, z, p, q byte
}

func decode(opcode byte) fields {
	// 7 6 5 4 3 2 1 0
	// x x y y y z z z
	//     p p q
	return fields{
		x: opcode >> 6,
		y: (opcode >> 3) & 0x7,
		z: opcode & 0x7,
		p: (opcode >> 4) & 0x3,
		q: (opcode >> 3) & 0x1,
	}
}
