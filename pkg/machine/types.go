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

package machine

import (
	"github.com/sirupsen/logrus"

	"github.com/lassandro/gocpm/pkg/memory"
	"github.com/lassandro/gocpm/pkg/z80"
)

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

// MachineTracer sees the registers before each instruction executes
type MachineTracer interface {
	Record(regs z80.Registers, mem z80.Memory)
}

type Machine struct {
	Registers z80.Registers
	Memory    memory.Memory
	Ports     z80.Ports

	Debugger MachineDebugger
	Tracer   MachineTracer
	Log      logrus.FieldLogger

	// Called once, with the error that stopped the machine
	OnFault func(mc *Machine, err error)

	fault error
}
