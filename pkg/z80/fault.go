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

type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// Ports is the I/O space. upper is the byte the Z80 drives onto the high
// half of the address bus during the access, always the B register here.
type Ports interface {
	In(port, upper byte) (byte, error)
	Out(port, upper, value byte) error
}

type Prefix uint8

const (
	PrefixNone Prefix = iota
	PrefixCB
	PrefixED
	PrefixDD
	PrefixFD
	PrefixDDCB
	PrefixFDCB
)

var prefixNames = [...]string{"none", "CB", "ED", "DD", "FD", "DDCB", "FDCB"}

func (p Prefix) String() string {
	if int(p) < len(prefixNames) {
		return prefixNames[p]
	}

	return fmt.Sprintf("Prefix(%d)", uint8(p))
}

type FaultKind uint8

const (
	UnknownOpcode FaultKind = iota + 1
	UnimplementedInstruction
	IOFault
)

func (k FaultKind) String() string {
	switch k {
	case UnknownOpcode:
		return "unknown opcode"
	case UnimplementedInstruction:
		return "unimplemented instruction"
	case IOFault:
		return "i/o fault"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(k))
	}
}

// Fault is returned by Execute when an instruction cannot be carried out.
// Every fault is terminal; the registers are left as they were at the moment
// of the fault, with PC already stepped past the offending instruction.
type Fault struct {
	Kind     FaultKind
	Addr     uint16
	Opcode   []byte
	Prefix   Prefix
	Mnemonic string

	// Set for IOFault
	Err error
}

func (f *Fault) Error() string {
	switch f.Kind {
	case UnknownOpcode:
		return fmt.Sprintf(
			"unknown opcode % x (prefix %s) at 0x%04x",
			f.Opcode, f.Prefix, f.Addr,
		)
	case UnimplementedInstruction:
		return fmt.Sprintf(
			"unimplemented instruction %s (% x) at 0x%04x",
			f.Mnemonic, f.Opcode, f.Addr,
		)
	default:
		return fmt.Sprintf(
			"%s in %s (% x) at 0x%04x: %v",
			f.Kind, f.Mnemonic, f.Opcode, f.Addr, f.Err,
		)
	}
}

func (f *Fault) Unwrap() error {
	return f.Err
}
