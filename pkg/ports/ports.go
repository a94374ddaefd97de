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

package ports

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lassandro/gocpm/pkg/disk"
	"github.com/lassandro/gocpm/pkg/encoding"
	"github.com/lassandro/gocpm/pkg/z80"
)

// Ports used by the CBIOS
const (
	ConsoleStatus byte = 0x00
	ConsoleData   byte = 0x01
	DiskSelect    byte = 0x10
	DiskTrack     byte = 0x11
	DiskSector    byte = 0x12
	DiskDMALow    byte = 0x13
	DiskDMAHigh   byte = 0x14
	DiskIO        byte = 0x15
)

// Commands written to DiskIO
const (
	CommandRead  byte = 0x01
	CommandWrite byte = 0x02
)

// Values read back from DiskIO
const (
	StatusOK    byte = 0x00
	StatusError byte = 0x01
)

type UnknownPortError struct {
	Port  byte
	Upper byte
	Write bool
}

func (e UnknownPortError) Error() string {
	if e.Write {
		return fmt.Sprintf("unknown port write %02x (upper %02x)", e.Port, e.Upper)
	}

	return fmt.Sprintf("unknown port read %02x (upper %02x)", e.Port, e.Upper)
}

type UnknownWriteError struct {
	Port  byte
	Value byte
}

func (e UnknownWriteError) Error() string {
	return fmt.Sprintf("unhandled value %02x written to port %02x", e.Value, e.Port)
}

type Console interface {
	Status() (byte, error)
	Read() (byte, error)
	Write(value byte) error
}

type Disks interface {
	ReadSector(drive, track, sector int, buf []byte) error
	WriteSector(drive, track, sector int, buf []byte) error
}

// Dispatcher routes IN and OUT to the console and the drives. Sector
// transfers move through the DMA address in guest memory.
type Dispatcher struct {
	console Console
	disks   Disks
	mem     z80.Memory
	log     logrus.FieldLogger

	drive  byte
	track  byte
	sector byte
	dma    uint16
	status byte

	buf [disk.SectorSize]byte
}

func New(console Console, disks Disks, mem z80.Memory, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}

	return &Dispatcher{
		console: console,
		disks:   disks,
		mem:     mem,
		log:     log,
	}
}

func (d *Dispatcher) In(port, upper byte) (byte, error) {
	switch port {
	case ConsoleStatus:
		return d.console.Status()
	case ConsoleData:
		return d.console.Read()
	case DiskIO:
		return d.status, nil
	}

	return 0, UnknownPortError{Port: port, Upper: upper}
}

func (d *Dispatcher) Out(port, upper, value byte) error {
	switch port {
	case ConsoleData:
		return d.console.Write(value)
	case DiskSelect:
		d.drive = value
	case DiskTrack:
		d.track = value
	case DiskSector:
		d.sector = value
	case DiskDMALow:
		_, hi := encoding.SplitWord(d.dma)
		d.dma = encoding.Word(value, hi)
	case DiskDMAHigh:
		lo, _ := encoding.SplitWord(d.dma)
		d.dma = encoding.Word(lo, value)
	case DiskIO:
		return d.transfer(value)
	default:
		return UnknownPortError{Port: port, Upper: upper, Write: true}
	}

	return nil
}

func (d *Dispatcher) transfer(command byte) error {
	var err error

	drive, track, sector := int(d.drive), int(d.track), int(d.sector)

	switch command {
	case CommandRead:
		if err = d.disks.ReadSector(drive, track, sector, d.buf[:]); err == nil {
			for i, b := range d.buf {
				d.mem.Write(d.dma+uint16(i), b)
			}
		}
	case CommandWrite:
		for i := range d.buf {
			d.buf[i] = d.mem.Read(d.dma + uint16(i))
		}

		err = d.disks.WriteSector(drive, track, sector, d.buf[:])
	default:
		return UnknownWriteError{Port: DiskIO, Value: command}
	}

	d.log.WithFields(logrus.Fields{
		"command": command,
		"drive":   drive,
		"track":   track,
		"sector":  sector,
		"dma":     fmt.Sprintf("%04x", d.dma),
	}).Trace("Disk transfer")

	var geometry disk.GeometryError

	switch {
	case err == nil:
		d.status = StatusOK
	case errors.As(err, &geometry):
		d.status = StatusError
	default:
		d.status = StatusError
		return err
	}

	return nil
}

func (d *Dispatcher) Reset() {
	d.drive, d.track, d.sector, d.dma, d.status = 0, 0, 0, 0, StatusOK
}

// State describes the disk controller registers
func (d *Dispatcher) State() string {
	return fmt.Sprintf(
		"drive=%d track=%d sector=%d dma=%04x status=%d",
		d.drive, d.track, d.sector, d.dma, d.status,
	)
}
