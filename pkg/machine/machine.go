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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash"
	"github.com/sirupsen/logrus"

	"github.com/lassandro/gocpm/pkg/z80"
)

var (
	ErrHalted  = errors.New("machine halted")
	ErrNoPorts = errors.New("no devices attached")
)

type noPorts struct{}

func (noPorts) In(port, upper byte) (byte, error) {
	return 0, ErrNoPorts
}

func (noPorts) Out(port, upper, value byte) error {
	return ErrNoPorts
}

type resetter interface {
	Reset()
}

func (mc *Machine) logger() logrus.FieldLogger {
	if mc.Log == nil {
		l := logrus.New()
		l.Out = io.Discard
		mc.Log = l
	}

	return mc.Log
}

func (mc *Machine) Reset() {
	mc.Registers.Init()
	mc.Memory.Reset()
	mc.fault = nil

	if ports, ok := mc.Ports.(resetter); ok {
		ports.Reset()
	}
}

// Boot places CP/M and the CBIOS at the top of memory and starts at the
// CBIOS cold boot entry, which sets up page zero itself.
func (mc *Machine) Boot(cpm, bios []byte) error {
	if len(cpm) > SIZE_CPM {
		return fmt.Errorf("cp/m image of %d bytes exceeds %d", len(cpm), SIZE_CPM)
	}

	if len(bios) > SIZE_BIOS {
		return fmt.Errorf("cbios image of %d bytes exceeds %d", len(bios), SIZE_BIOS)
	}

	mc.Reset()

	mc.Memory.WriteArea(MEMSPACE_CCP, cpm)
	mc.Memory.WriteArea(MEMSPACE_BIOS, bios)
	mc.start(cpm, bios)

	return nil
}

// BootFiles is Boot with the images read straight into memory.
func (mc *Machine) BootFiles(cpm, bios string) error {
	mc.Reset()

	ncpm, err := mc.Memory.LoadFile(cpm, MEMSPACE_CCP)

	if err != nil {
		return err
	}

	if ncpm > SIZE_CPM {
		mc.Memory.Reset()
		return fmt.Errorf("%s: cp/m image of %d bytes exceeds %d", cpm, ncpm, SIZE_CPM)
	}

	// Anything past SIZE_BIOS would run off the top of memory.
	nbios, err := mc.Memory.LoadFile(bios, MEMSPACE_BIOS)

	if err != nil {
		mc.Memory.Reset()
		return err
	}

	mc.start(
		mc.Memory.ReadArea(MEMSPACE_CCP, ncpm),
		mc.Memory.ReadArea(MEMSPACE_BIOS, nbios),
	)

	return nil
}

func (mc *Machine) start(cpm, bios []byte) {
	mc.Registers.PC = MEMSPACE_BIOS

	mc.logger().WithFields(logrus.Fields{
		"cpm":  fmt.Sprintf("%016x", xxhash.Sum64(cpm)),
		"bios": fmt.Sprintf("%016x", xxhash.Sum64(bios)),
		"pc":   fmt.Sprintf("%04x", mc.Registers.PC),
	}).Info("Booting")
}

// SystemImage is the CCP and BDOS as loaded, which is what a warm boot reads
// back from the reserved tracks.
func (mc *Machine) SystemImage() []byte {
	return mc.Memory.ReadArea(MEMSPACE_CCP, SIZE_CPM)
}

// Fault is the error that halted the machine, if any
func (mc *Machine) Fault() error {
	return mc.fault
}

// Read and Write give the core its view of memory, with the debugger's
// watchpoints in the way.
func (mc *Machine) Read(addr uint16) byte {
	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.Memory.Read(addr)
}

func (mc *Machine) Write(addr uint16, value byte) {
	mc.Memory.Write(addr, value)

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

// Step executes one instruction. Any error is terminal: it is reported once
// and every later call returns ErrHalted.
func (mc *Machine) Step() error {
	if mc.fault != nil {
		return ErrHalted
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	if mc.Tracer != nil {
		mc.Tracer.Record(mc.Registers, &mc.Memory)
	}

	var ports z80.Ports = noPorts{}

	if mc.Ports != nil {
		ports = mc.Ports
	}

	if err := z80.Execute(&mc.Registers, mc, ports); err != nil {
		mc.fault = err

		mc.logger().WithError(err).WithField(
			"registers", mc.Registers.String(),
		).Error("Machine fault")

		if mc.OnFault != nil {
			mc.OnFault(mc, err)
		}

		return err
	}

	return nil
}

// Run steps until the context ends or the machine faults
func (mc *Machine) Run(ctx context.Context) error {
	for i := 0; ; i++ {
		if i&0x3FF == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if err := mc.Step(); err != nil {
			return err
		}
	}
}
