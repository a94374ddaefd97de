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

	"github.com/fatih/color"

	"github.com/lassandro/gocpm/pkg/machine"
	"github.com/lassandro/gocpm/pkg/z80"
)

var ErrNoSuchPoint = errors.New("no such breakpoint or watchpoint")

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.FgHiBlack)
	alert = color.New(color.FgRed, color.Bold)
)

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.Registers.PC == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) watch(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type&wtype != 0 {
			return true
		}
	}

	return false
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	if dbg.HandleRead != nil && dbg.watch(addr, ReadWatch) {
		dbg.HandleRead(addr, dbg, mc)
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	if dbg.HandleWrite != nil && dbg.watch(addr, WriteWatch) {
		dbg.HandleWrite(addr, dbg, mc)
	}
}

// AddBreakpoint reports false if one already exists at addr
func (dbg *Debugger) AddBreakpoint(addr uint16) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})
	return true
}

func (dbg *Debugger) RemoveBreakpoint(i int) error {
	if i < 0 || i >= len(dbg.Breakpoints) {
		return ErrNoSuchPoint
	}

	dbg.Breakpoints = append(dbg.Breakpoints[:i], dbg.Breakpoints[i+1:]...)
	return nil
}

func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})
	return true
}

func (dbg *Debugger) RemoveWatchpoint(i int) error {
	if i < 0 || i >= len(dbg.Watchpoints) {
		return ErrNoSuchPoint
	}

	dbg.Watchpoints = append(dbg.Watchpoints[:i], dbg.Watchpoints[i+1:]...)
	return nil
}

func PrintRegisters(w io.Writer, regs *z80.Registers) {
	pairs := []struct {
		name  string
		value z80.Pair
	}{
		{"AF", regs.AF}, {"BC", regs.BC}, {"DE", regs.DE}, {"HL", regs.HL},
		{"AF'", regs.AltAF}, {"BC'", regs.AltBC},
		{"DE'", regs.AltDE}, {"HL'", regs.AltHL},
		{"IX", regs.IX}, {"IY", regs.IY},
		{"SP", z80.Pair(regs.SP)}, {"PC", z80.Pair(regs.PC)},
	}

	for i, pair := range pairs {
		bold.Fprintf(w, "%-4s", pair.name+":")
		fmt.Fprintf(w, "%04x  ", uint16(pair.value))

		if i%4 == 3 {
			fmt.Fprintln(w)
		}
	}

	bool2int := map[bool]int{false: 0, true: 1}

	bold.Fprint(w, "I:  ")
	fmt.Fprintf(w, "%02x    ", regs.I)
	bold.Fprint(w, "R:  ")
	fmt.Fprintf(w, "%02x    ", regs.R)
	bold.Fprint(w, "IFF: ")
	fmt.Fprintf(w, "%d/%d  ", bool2int[regs.IFF1], bool2int[regs.IFF2])
	bold.Fprint(w, "F: ")
	fmt.Fprintln(w, regs.Flags())
}

// PrintMem dumps count bytes from addr, sixteen to a row, wrapping at the
// top of memory.
func PrintMem(w io.Writer, mem z80.Memory, addr uint16, count int) {
	for i := 0; i < count; i++ {
		at := addr + uint16(i)

		if i%16 == 0 {
			if i > 0 {
				fmt.Fprintln(w)
			}

			bold.Fprintf(w, "[%#04x] ", at)
		}

		value := mem.Read(at)

		if value == 0 {
			faint.Fprintf(w, "%02x ", value)
		} else {
			fmt.Fprintf(w, "%02x ", value)
		}
	}

	fmt.Fprintln(w)
}

// PrintDisasm lists count instructions from addr and returns the address
// following the last one.
func PrintDisasm(w io.Writer, mem z80.Memory, addr uint16, count int) uint16 {
	for i := 0; i < count; i++ {
		n, text := z80.Disassemble(mem, addr)

		bold.Fprintf(w, "[%#04x] ", addr)

		for j := 0; j < 4; j++ {
			if j < n {
				fmt.Fprintf(w, "%02x ", mem.Read(addr+uint16(j)))
			} else {
				fmt.Fprint(w, "   ")
			}
		}

		fmt.Fprintf(w, " %s\n", text)
		addr += uint16(n)
	}

	return addr
}
