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

// CP/M 2.2 memory map for a 64K system
const (
	MEMSPACE_CCP  uint16 = 0xE400
	MEMSPACE_BIOS        = 0xFA00
)

// Room for the CCP and BDOS below the CBIOS, and for the CBIOS below the
// top of memory
const (
	SIZE_CPM  = int(MEMSPACE_BIOS - MEMSPACE_CCP)
	SIZE_BIOS = 1<<16 - int(MEMSPACE_BIOS)
)
