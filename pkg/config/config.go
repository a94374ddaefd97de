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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/lassandro/gocpm/pkg/disk"
)

var (
	ErrNoSystem      = errors.New("cpm and bios images are required")
	ErrTooManyDrives = fmt.Errorf("at most %d drives are supported", disk.Drives)
)

type Drive struct {
	Image     string `yaml:"image"`
	WriteBack bool   `yaml:"write_back"`
}

type Config struct {
	CPM  string `yaml:"cpm"`
	BIOS string `yaml:"bios"`

	// Drives A: onwards, unset entries stay blank
	Drives []Drive `yaml:"drives"`

	// Copy the loaded CCP and BDOS onto the system tracks of every drive
	InstallSystem bool `yaml:"install_system"`

	// Length of the instruction trace kept for fault reports, 0 disables it
	Trace int `yaml:"trace"`

	LogLevel string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		CPM:      "cpm22.bin",
		BIOS:     "cbios.bin",
		Trace:    16,
		LogLevel: "info",
	}
}

// Decode reads YAML over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)

	if err != nil {
		return Default(), err
	}

	cfg, err := Decode(bytes.NewReader(data))

	if err != nil {
		return cfg, fmt.Errorf("%s: %w", filename, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.CPM == "" || c.BIOS == "" {
		return ErrNoSystem
	}

	if len(c.Drives) > disk.Drives {
		return ErrTooManyDrives
	}

	if c.Trace < 0 {
		return fmt.Errorf("trace length %d is negative", c.Trace)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)

	if err != nil {
		return logrus.InfoLevel
	}

	return level
}

// SetDrive grows the drive list as needed
func (c *Config) SetDrive(n int, image string, writeBack bool) {
	for len(c.Drives) <= n {
		c.Drives = append(c.Drives, Drive{})
	}

	c.Drives[n] = Drive{Image: image, WriteBack: writeBack}
}
