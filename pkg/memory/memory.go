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

package memory

import (
	"fmt"
	"io"
	"os"
)

const Size = 1 << 16

// Memory is the flat 64K address space. Addresses wrap at Size.
type Memory struct {
	data [Size]byte
}

func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0x00
	}
}

func (m *Memory) Read(addr uint16) byte {
	return m.data[addr]
}

func (m *Memory) Write(addr uint16, value byte) {
	m.data[addr] = value
}

func (m *Memory) ReadArea(addr uint16, size int) []byte {
	result := make([]byte, size)

	for i := range result {
		result[i] = m.data[addr+uint16(i)]
	}

	return result
}

func (m *Memory) WriteArea(addr uint16, data []byte) {
	for i, value := range data {
		m.data[addr+uint16(i)] = value
	}
}

// Load copies an image into memory starting at addr and returns its size.
// Images that do not fit below the top of memory are rejected.
func (m *Memory) Load(reader io.Reader, addr uint16) (int, error) {
	data, err := io.ReadAll(reader)

	if err != nil {
		return 0, err
	}

	if int(addr)+len(data) > Size {
		return 0, fmt.Errorf(
			"image of %d bytes does not fit at %#04x", len(data), addr,
		)
	}

	m.WriteArea(addr, data)
	return len(data), nil
}

func (m *Memory) LoadFile(filename string, addr uint16) (int, error) {
	file, err := os.Open(filename)

	if err != nil {
		return 0, err
	}

	defer file.Close()

	n, err := m.Load(file, addr)

	if err != nil {
		return 0, fmt.Errorf("%s: %w", filename, err)
	}

	return n, nil
}
