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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash"
	"github.com/sirupsen/logrus"
)

// IBM 3740 single density 8" geometry
const (
	Drives          = 4
	Tracks          = 77
	SectorsPerTrack = 26
	SectorSize      = 128
	TrackSize       = SectorsPerTrack * SectorSize
	ImageSize       = Tracks * TrackSize

	// Formatted, never written
	Empty byte = 0xE5

	// The first sector of track 0 holds the cold start loader
	SystemOffset = SectorSize
	SystemSize   = ReservedTracks*TrackSize - SystemOffset
)

var (
	ErrReadOnly = errors.New("disk image is read-only")
	ErrNoImage  = errors.New("drive has no image file")
)

type GeometryError struct {
	Drive  int
	Track  int
	Sector int
}

func (e GeometryError) Error() string {
	return fmt.Sprintf(
		"drive %d track %d sector %d is outside the disk geometry",
		e.Drive, e.Track, e.Sector,
	)
}

type Drive struct {
	data []byte

	Filename  string
	WriteBack bool

	// Archives are decompressed on load and never written back
	Compressed bool

	// Fingerprint of the contents last read from or written to Filename
	saved uint64
}

// Set is the bank of drives A: to D:
type Set struct {
	drives [Drives]Drive
	log    logrus.FieldLogger
}

func blank() []byte {
	data := make([]byte, ImageSize)

	for i := range data {
		data[i] = Empty
	}

	return data
}

func NewSet(log logrus.FieldLogger) *Set {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}

	s := &Set{log: log}

	for i := range s.drives {
		s.drives[i].data = blank()
		s.drives[i].saved = xxhash.Sum64(s.drives[i].data)
	}

	return s
}

func (s *Set) drive(n int) (*Drive, error) {
	if n < 0 || n >= Drives {
		return nil, GeometryError{Drive: n}
	}

	return &s.drives[n], nil
}

func driveName(n int) string {
	return string(rune('A'+n)) + ":"
}

// Load attaches an image file to a drive. A missing file is only accepted
// when writing back, in which case the drive starts blank and the file is
// created on the first write.
func (s *Set) Load(n int, filename string, writeBack bool) error {
	d, err := s.drive(n)

	if err != nil {
		return err
	}

	data, compressed, err := ReadImage(filename)

	switch {
	case os.IsNotExist(err) && writeBack:
		data = blank()
	case err != nil:
		return err
	}

	if compressed && writeBack {
		return fmt.Errorf("%s: %w", filename, ErrReadOnly)
	}

	d.data = data
	d.Filename = filename
	d.WriteBack = writeBack
	d.Compressed = compressed
	d.saved = xxhash.Sum64(data)

	if os.IsNotExist(err) {
		// Forces the first flush to create the file
		d.saved = 0
	}

	s.log.WithFields(logrus.Fields{
		"drive":       driveName(n),
		"image":       filename,
		"fingerprint": fmt.Sprintf("%016x", d.saved),
		"write_back":  writeBack,
	}).Info("Disk attached")

	return nil
}

// Copies the system image into every drive after the cold start sector. It
// must fit on the reserved tracks.
func (s *Set) InstallSystem(image []byte) error {
	if len(image) > SystemSize {
		return fmt.Errorf("system image of %d bytes does not fit", len(image))
	}

	for i := range s.drives {
		copy(s.drives[i].data[SystemOffset:], image)
	}

	return nil
}

func (s *Set) offset(n, track, sector int) (*Drive, int, error) {
	d, err := s.drive(n)

	if err != nil {
		return nil, 0, GeometryError{n, track, sector}
	}

	if track < 0 || track >= Tracks || sector < 1 || sector > SectorsPerTrack {
		return nil, 0, GeometryError{n, track, sector}
	}

	return d, track*TrackSize + (sector-1)*SectorSize, nil
}

// Sectors are numbered from 1
func (s *Set) ReadSector(n, track, sector int, buf []byte) error {
	d, offset, err := s.offset(n, track, sector)

	if err != nil {
		return err
	}

	copy(buf[:SectorSize], d.data[offset:offset+SectorSize])
	return nil
}

// Writes through to the image file when the drive writes back
func (s *Set) WriteSector(n, track, sector int, buf []byte) error {
	d, offset, err := s.offset(n, track, sector)

	if err != nil {
		return err
	}

	copy(d.data[offset:offset+SectorSize], buf[:SectorSize])

	if d.WriteBack {
		return s.flush(n)
	}

	return nil
}

func (s *Set) flush(n int) error {
	d := &s.drives[n]

	if !d.WriteBack {
		return nil
	}

	if d.Filename == "" {
		return ErrNoImage
	}

	sum := xxhash.Sum64(d.data)

	if sum == d.saved {
		return nil
	}

	if err := os.WriteFile(d.Filename, d.data, 0666); err != nil {
		return err
	}

	d.saved = sum

	s.log.WithFields(logrus.Fields{
		"drive":       driveName(n),
		"fingerprint": fmt.Sprintf("%016x", sum),
	}).Debug("Disk flushed")

	return nil
}

// Flush writes every changed write-back drive to its image file
func (s *Set) Flush() error {
	var errs []error

	for i := range s.drives {
		if err := s.flush(i); err != nil {
			errs = append(errs, fmt.Errorf("%s %w", driveName(i), err))
		}
	}

	return errors.Join(errs...)
}

func (s *Set) Fingerprint(n int) uint64 {
	if d, err := s.drive(n); err == nil {
		return xxhash.Sum64(d.data)
	}

	return 0
}

// Image exposes the raw contents of a drive
func (s *Set) Image(n int) []byte {
	if d, err := s.drive(n); err == nil {
		return d.data
	}

	return nil
}
