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
	"bytes"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var termRestore *term.State

// Raw mode hands every key, ^C included, to CP/M. When breakSignals is set
// the terminal keeps generating SIGINT so the debugger can be entered.
func enterRawTerm(breakSignals bool) error {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil
	}

	state, err := term.MakeRaw(fd)

	if err != nil {
		return err
	}

	termRestore = state

	if !breakSignals {
		return nil
	}

	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)

	if err != nil {
		return err
	}

	termios.Lflag |= unix.ISIG

	return unix.IoctlSetTermios(fd, ioctlSetTermios, termios)
}

func exitRawTerm() error {
	if termRestore == nil {
		return nil
	}

	err := term.Restore(int(os.Stdin.Fd()), termRestore)
	termRestore = nil

	return err
}

type stdinPoller struct {
	fd int
}

func (p stdinPoller) Ready() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}

	for {
		n, err := unix.Poll(fds, 0)

		if err == unix.EINTR {
			continue
		} else if err != nil {
			return false, err
		}

		return n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP) != 0, nil
	}
}

// crlfWriter puts carriage returns back in front of line feeds for output
// written while the terminal is raw.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if termRestore == nil {
		return c.w.Write(p)
	}

	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}

	return len(p), nil
}
