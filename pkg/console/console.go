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

package console

import (
	"bufio"
	"fmt"
	"io"
)

const (
	StatusReady byte = 0xFF
	StatusIdle  byte = 0x00
)

// ADM-3A control codes
const (
	ctrlUp    byte = 0x0B
	ctrlRight byte = 0x0C
	ctrlClear byte = 0x1A
	ctrlHome  byte = 0x1E
	ctrlEsc   byte = 0x1B
	ctrlCopy  byte = 0xA4
)

// Poller reports whether input can be read without blocking. A terminal
// backed console needs one; without it the console peeks its reader.
type Poller interface {
	Ready() (bool, error)
}

type EscapeError struct {
	Sequence []byte
}

func (e EscapeError) Error() string {
	return fmt.Sprintf("unsupported escape sequence %q", e.Sequence)
}

type escapeState uint8

const (
	escapeNone escapeState = iota
	escapeStart
	escapeRow
	escapeColumn
	escapeAddressed
)

// Console translates between a guest that expects an ADM-3A terminal and a
// host speaking ANSI.
type Console struct {
	in     *bufio.Reader
	out    *bufio.Writer
	poller Poller

	state escapeState
	row   byte
}

func New(in io.Reader, out io.Writer, poller Poller) *Console {
	return &Console{
		in:     bufio.NewReader(in),
		out:    bufio.NewWriter(out),
		poller: poller,
	}
}

func (c *Console) ready() (bool, error) {
	if c.in.Buffered() > 0 {
		return true, nil
	}

	if c.poller != nil {
		return c.poller.Ready()
	}

	if _, err := c.in.Peek(1); err == io.EOF {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

func (c *Console) Status() (byte, error) {
	ready, err := c.ready()

	if err != nil {
		return StatusIdle, err
	}

	if ready {
		return StatusReady, nil
	}

	return StatusIdle, nil
}

// Read blocks for one key. Newlines become carriage returns, DEL becomes
// backspace and the ANSI cursor keys map to their ADM-3A codes.
func (c *Console) Read() (byte, error) {
	if err := c.out.Flush(); err != nil {
		return 0, err
	}

	key, err := c.in.ReadByte()

	if err != nil {
		return 0, err
	}

	switch key {
	case '\n':
		return '\r', nil

	case 0x7F:
		return 0x08, nil

	case ctrlEsc:
		if ready, err := c.ready(); err != nil {
			return 0, err
		} else if !ready {
			return ctrlEsc, nil
		}

		return c.readEscape()
	}

	return key, nil
}

func (c *Console) readEscape() (byte, error) {
	seq := []byte{ctrlEsc}

	for len(seq) < 3 {
		next, err := c.in.ReadByte()

		if err != nil {
			return 0, err
		}

		seq = append(seq, next)

		if len(seq) == 2 && next != '[' {
			return 0, EscapeError{seq}
		}
	}

	switch seq[2] {
	case 'A':
		return ctrlUp, nil
	case 'B':
		return '\n', nil
	case 'C':
		return ctrlRight, nil
	case 'D':
		return 0x08, nil
	}

	return 0, EscapeError{seq}
}

// Write sends one guest byte to the host. An ESC that does not start a cursor
// address is dropped, and a cursor address may be followed directly by
// another "=row col".
func (c *Console) Write(value byte) error {
	var err error

	switch c.state {
	case escapeRow:
		c.row = value
		c.state = escapeColumn
		return nil

	case escapeColumn:
		c.state = escapeAddressed
		_, err = fmt.Fprintf(
			c.out, "\033[%d;%dH", int(c.row)-31, int(value)-31,
		)

		if err != nil {
			return err
		}

		return c.out.Flush()

	case escapeStart, escapeAddressed:
		start := c.state == escapeStart
		c.state = escapeNone

		if value == '=' {
			c.state = escapeRow
			return nil
		}

		if start && value == ctrlEsc {
			return nil
		}
	}

	switch value {
	case ctrlEsc:
		c.state = escapeStart
		return nil
	case ctrlUp:
		_, err = c.out.WriteString("\033[A")
	case ctrlRight:
		_, err = c.out.WriteString("\033[C")
	case ctrlClear:
		_, err = c.out.WriteString("\033[2J\033[H")
	case ctrlHome:
		_, err = c.out.WriteString("\033[H")
	case ctrlCopy:
		_, err = c.out.WriteString("©")
	default:
		err = c.out.WriteByte(value)
	}

	if err != nil {
		return err
	}

	return c.out.Flush()
}
