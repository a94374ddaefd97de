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

package disk

import (
	"sort"
	"strings"
)

// Standard single density parameters
const (
	ReservedTracks   = 2
	DirectoryEntries = 64
	EntrySize        = 32
)

// Skew is the logical to physical sector translation of the standard disk
var Skew = [SectorsPerTrack]int{
	1, 7, 13, 19, 25, 5, 11, 17, 23, 3, 9, 15, 21,
	2, 8, 14, 20, 26, 6, 12, 18, 24, 4, 10, 16, 22,
}

type File struct {
	User    byte
	Name    string
	Records int
	Extents int
}

func (f File) Size() int {
	return f.Records * SectorSize
}

func entryName(entry []byte) string {
	clean := func(b []byte) string {
		out := make([]byte, len(b))

		for i, c := range b {
			out[i] = c & 0x7F
		}

		return strings.TrimRight(string(out), " ")
	}

	name, ext := clean(entry[1:9]), clean(entry[9:12])

	if ext == "" {
		return name
	}

	return name + "." + ext
}

// Directory lists the files recorded in a drive's directory, merging the
// extents of each file.
func (s *Set) Directory(n int) ([]File, error) {
	if _, err := s.drive(n); err != nil {
		return nil, err
	}

	sector := make([]byte, SectorSize)
	files := map[string]*File{}
	perSector := SectorSize / EntrySize

	for l := 0; l < DirectoryEntries/perSector; l++ {
		if err := s.ReadSector(n, ReservedTracks, Skew[l], sector); err != nil {
			return nil, err
		}

		for i := 0; i < perSector; i++ {
			entry := sector[i*EntrySize : (i+1)*EntrySize]
			user := entry[0]

			// 0xE5 is a free slot, above 15 are labels and timestamps
			if user > 15 {
				continue
			}

			name := entryName(entry)
			key := string(rune('0'+user)) + ":" + name

			f, ok := files[key]

			if !ok {
				f = &File{User: user, Name: name}
				files[key] = f
			}

			// Byte 15 counts the records held by this entry
			f.Extents++
			f.Records += int(entry[15])
		}
	}

	list := make([]File, 0, len(files))

	for _, f := range files {
		list = append(list, *f)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].User != list[j].User {
			return list[i].User < list[j].User
		}

		return list[i].Name < list[j].Name
	})

	return list, nil
}
