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
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

var ErrEmptyArchive = errors.New("archive contains no files")

type archiveFile interface {
	Open() (io.ReadCloser, error)
}

func first[T archiveFile](files []T) (io.ReadCloser, error) {
	if len(files) == 0 {
		return nil, ErrEmptyArchive
	}

	return files[0].Open()
}

// ReadImage loads a disk image, unpacking .gz, .zip and .7z files. Images
// shorter than a full disk are padded with the formatted fill byte.
func ReadImage(filename string) (data []byte, compressed bool, err error) {
	data, err = os.ReadFile(filename)

	if err != nil {
		return nil, false, err
	}

	var decoder io.ReadCloser

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		decoder, err = gzip.NewReader(bytes.NewReader(data))
	case ".zip":
		var r *zip.Reader

		if r, err = zip.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
			decoder, err = first(r.File)
		}
	case ".7z":
		var r *sevenzip.Reader

		if r, err = sevenzip.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
			decoder, err = first(r.File)
		}
	default:
		return pad(filename, data, false)
	}

	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", filename, err)
	}

	defer decoder.Close()

	// Bounded so a corrupt archive cannot expand without limit
	data, err = io.ReadAll(io.LimitReader(decoder, ImageSize+1))

	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", filename, err)
	}

	return pad(filename, data, true)
}

func pad(filename string, data []byte, compressed bool) ([]byte, bool, error) {
	if len(data) > ImageSize {
		return nil, compressed, fmt.Errorf(
			"%s: image larger than %d bytes", filename, ImageSize,
		)
	}

	image := make([]byte, ImageSize)
	n := copy(image, data)

	for i := n; i < ImageSize; i++ {
		image[i] = Empty
	}

	return image, compressed, nil
}
