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
	"fmt"
	"io"

	"github.com/lassandro/gocpm/pkg/z80"
)

type TraceEntry struct {
	Registers z80.Registers
	Opcode    [4]byte
}

func (e TraceEntry) Disassemble() (int, string) {
	return z80.DisassembleBytes(e.Opcode, e.Registers.PC)
}

// Trace keeps the last few instructions executed, with the registers as
// they were before each one ran.
type Trace struct {
	entries []TraceEntry
	next    int
	full    bool
}

func NewTrace(size int) *Trace {
	return &Trace{entries: make([]TraceEntry, size)}
}

func (t *Trace) Record(regs z80.Registers, mem z80.Memory) {
	if t == nil || len(t.entries) == 0 {
		return
	}

	entry := &t.entries[t.next]
	entry.Registers = regs

	for i := range entry.Opcode {
		entry.Opcode[i] = mem.Read(regs.PC + uint16(i))
	}

	t.next++

	if t.next == len(t.entries) {
		t.next = 0
		t.full = true
	}
}

// Entries returns the recorded instructions, oldest first
func (t *Trace) Entries() []TraceEntry {
	if t == nil {
		return nil
	}

	if !t.full {
		return append([]TraceEntry(nil), t.entries[:t.next]...)
	}

	out := make([]TraceEntry, 0, len(t.entries))
	out = append(out, t.entries[t.next:]...)
	return append(out, t.entries[:t.next]...)
}

func (t *Trace) Dump(w io.Writer) {
	for _, entry := range t.Entries() {
		n, text := entry.Disassemble()

		bold.Fprintf(w, "[%#04x] ", entry.Registers.PC)
		fmt.Fprintf(w, "%-12s %-16s %s\n",
			fmt.Sprintf("% x", entry.Opcode[:n]), text, entry.Registers,
		)
	}
}
