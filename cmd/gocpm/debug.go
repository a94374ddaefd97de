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

package main

import (
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lassandro/gocpm/pkg/debugger"
	"github.com/lassandro/gocpm/pkg/encoding"
	"github.com/lassandro/gocpm/pkg/machine"
	"github.com/lassandro/gocpm/pkg/ports"
	"github.com/lassandro/gocpm/pkg/z80"
)

var lastcmd []string

func indexFormat(count int, rest string) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, rest)
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [addr]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, err := encoding.DecodeAddr(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [%#04x]\n", addr)
		}

	case "l", "ls", "list":
		fmtstring := indexFormat(len(dbg.Breakpoints), "%#04x")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(fmtstring, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if err := dbg.RemoveBreakpoint(i); err != nil {
			log.Println(err)
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|rm|clear]"

	if len(args) == 0 {
		log.Println(usage)
		return
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [addr] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, err := encoding.DecodeAddr(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [%#04x] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		fmtstring := indexFormat(len(dbg.Watchpoints), "%#04x %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(fmtstring, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch rm [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if err := dbg.RemoveWatchpoint(i); err != nil {
			log.Println(err)
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func setRegister(regs *z80.Registers, name string, value uint16) bool {
	pairs := map[string]*z80.Pair{
		"AF": &regs.AF, "BC": &regs.BC, "DE": &regs.DE, "HL": &regs.HL,
		"AF'": &regs.AltAF, "BC'": &regs.AltBC,
		"DE'": &regs.AltDE, "HL'": &regs.AltHL,
		"IX": &regs.IX, "IY": &regs.IY,
	}

	if pair, ok := pairs[name]; ok {
		*pair = z80.Pair(value)
		return true
	}

	switch name {
	case "PC":
		regs.PC = value
	case "SP":
		regs.SP = value
	case "A":
		regs.SetA(byte(value))
	case "F":
		regs.SetF(byte(value))
	case "B":
		regs.BC.SetHi(byte(value))
	case "C":
		regs.BC.SetLo(byte(value))
	case "D":
		regs.DE.SetHi(byte(value))
	case "E":
		regs.DE.SetLo(byte(value))
	case "H":
		regs.HL.SetHi(byte(value))
	case "L":
		regs.HL.SetLo(byte(value))
	case "I":
		regs.I = byte(value)
	case "R":
		regs.R = byte(value)
	default:
		return false
	}

	return true
}

func debugReg(mc *machine.Machine, args []string) {
	const usage = "register [name] [value]"

	if len(args) == 0 {
		debugger.PrintRegisters(os.Stdout, &mc.Registers)
		return
	}

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	value, err := encoding.DecodeAddr(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	name := strings.ToUpper(args[0])

	if !setRegister(&mc.Registers, name, value) {
		log.Println("Invalid register")
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %#04x\n", name, value)
}

func decodeCount(s string) (int, error) {
	value, err := encoding.DecodeInt(s)

	if err != nil {
		return 0, err
	}

	if value < 0 {
		return 0, fmt.Errorf("negative count %d", value)
	}

	return int(value), nil
}

// Parses "[addr] [count]" where a lone decimal argument is a count from PC
func addrCount(mc *machine.Machine, args []string, count int) (uint16, int, bool) {
	addr := mc.Registers.PC

	if len(args) > 2 {
		return 0, 0, false
	}

	if len(args) > 0 {
		value, err := encoding.DecodeHex(args[0])

		if err == nil {
			addr = value
		} else if len(args) == 1 {
			if count, err = decodeCount(args[0]); err != nil {
				log.Println(err)
				return 0, 0, false
			}
		} else {
			log.Println(err)
			return 0, 0, false
		}
	}

	if len(args) > 1 {
		value, err := decodeCount(args[1])

		if err != nil {
			log.Println(err)
			return 0, 0, false
		}

		count = value
	}

	return addr, count, true
}

func debugDisasm(mc *machine.Machine, args []string) {
	if addr, count, ok := addrCount(mc, args, 8); ok {
		debugger.PrintDisasm(os.Stdout, &mc.Memory, addr, count)
	} else {
		log.Println("disasm [addr|#] [#]")
	}
}

func debugMemory(mc *machine.Machine, args []string) {
	if addr, count, ok := addrCount(mc, args, 16); ok {
		debugger.PrintMem(os.Stdout, &mc.Memory, addr, count)
	} else {
		log.Println("memory [addr|#] [#]")
	}
}

func debugSet(mc *machine.Machine, args []string) {
	const usage = "set [addr] [value]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	addr, err := encoding.DecodeAddr(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	value, err := encoding.DecodeAddr(args[1])

	if err != nil || value > 0xFF {
		log.Println("Invalid byte value")
		return
	}

	mc.Memory.Write(addr, byte(value))
	debugger.PrintMem(os.Stdout, &mc.Memory, addr, 1)
}

func debugJump(mc *machine.Machine, args []string) {
	const usage = "jump [addr]"

	if len(args) != 1 {
		log.Println(usage)
		return
	}

	addr, err := encoding.DecodeAddr(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	mc.Registers.PC = addr
	fmt.Printf("\033[1mPC:\033[0m %#04x\n", addr)
}

func debugDisk(mc *machine.Machine) {
	if dispatcher, ok := mc.Ports.(*ports.Dispatcher); ok {
		fmt.Println(dispatcher.State())
	}
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	exitRawTerm()
	defer enterRawTerm(true)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			stop()
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(mc, args)

		case "d", "dis", "disasm":
			debugDisasm(mc, args)

		case "j", "jmp", "jump":
			debugJump(mc, args)

		case "m", "mem", "memory":
			debugMemory(mc, args)

		case "set":
			debugSet(mc, args)

		case "t", "trace":
			trace.Dump(os.Stdout)

		case "disk":
			debugDisk(mc)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			stop()
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			if err := mc.BootFiles(cpmFile, biosFile); err != nil {
				log.Println(err)
			}

			debugger.PrintDisasm(os.Stdout, &mc.Memory, mc.Registers.PC, 1)

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Print("\r\nProgram stopped\r\n")
	}

	debugger.PrintDisasm(crlfWriter{os.Stdout}, &mc.Memory, mc.Registers.PC, 1)
	debugREPL(dbg, mc)
}

func handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Printf("\r\nRead from [%#04x] at [%#04x]\r\n", addr, mc.Registers.PC)
	debugger.PrintMem(crlfWriter{os.Stdout}, &mc.Memory, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Printf("\r\nWrite to [%#04x] at [%#04x]\r\n", addr, mc.Registers.PC)
	debugger.PrintMem(crlfWriter{os.Stdout}, &mc.Memory, addr, 1)
	debugREPL(dbg, mc)
}
