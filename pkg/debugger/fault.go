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

package debugger

import (
	"errors"
	"fmt"
	"io"

	"github.com/lassandro/gocpm/pkg/encoding"
	"github.com/lassandro/gocpm/pkg/z80"
)

const stackWindow = 8

// DumpFault writes everything known about a fatal error: the fault itself,
// the top of the stack, the recent instructions and the registers.
func DumpFault(w io.Writer, err error, regs *z80.Registers, mem z80.Memory, trace *Trace) {
	alert.Fprintf(w, "Fault: %v\n", err)

	var fault *z80.Fault

	if errors.As(err, &fault) {
		bold.Fprint(w, "Instruction: ")
		fmt.Fprintf(w, "%s (% x, prefix %s)\n",
			fault.Mnemonic, fault.Opcode, fault.Prefix,
		)
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Stack:")

	for i := 0; i < stackWindow; i++ {
		addr := regs.SP + uint16(2*i)
		value := encoding.Word(mem.Read(addr), mem.Read(addr+1))

		bold.Fprintf(w, "[%#04x] ", addr)
		fmt.Fprintf(w, "%04x\n", value)
	}

	if entries := trace.Entries(); len(entries) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Trace:")
		trace.Dump(w)
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Registers:")
	PrintRegisters(w, regs)
}
