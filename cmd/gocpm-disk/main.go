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
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lassandro/gocpm/pkg/debugger"
	"github.com/lassandro/gocpm/pkg/disk"
	"github.com/lassandro/gocpm/pkg/encoding"
	"github.com/lassandro/gocpm/pkg/memory"
)

var helpvar bool
var forcevar bool

const usage = `gocpm-disk [-force] command
  new  file                 Creates a formatted, empty disk image
  sys  file image           Writes a CCP and BDOS image to the system tracks
  info file                 Describes an image and lists its directory
  read file track sector    Dumps one sector`

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&forcevar, "force", false, "Allows new to replace an existing file")
	flag.Parse()
}

func open(filename string, writeBack bool) (*disk.Set, error) {
	set := disk.NewSet(nil)
	return set, set.Load(0, filename, writeBack)
}

func diskNew(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: new file")
	}

	if _, err := os.Stat(args[0]); err == nil && !forcevar {
		return fmt.Errorf("%s already exists", args[0])
	}

	if err := os.Remove(args[0]); err != nil && !os.IsNotExist(err) {
		return err
	}

	set, err := open(args[0], true)

	if err != nil {
		return err
	}

	return set.Flush()
}

func diskSys(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sys file image")
	}

	system, err := os.ReadFile(args[1])

	if err != nil {
		return err
	}

	set, err := open(args[0], true)

	if err != nil {
		return err
	}

	if err := set.InstallSystem(system); err != nil {
		return err
	}

	return set.Flush()
}

func diskInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: info file")
	}

	image, compressed, err := disk.ReadImage(args[0])

	if err != nil {
		return err
	}

	set, err := open(args[0], false)

	if err != nil {
		return err
	}

	system := image[disk.SystemOffset : disk.SystemOffset+disk.SystemSize]
	installed := !bytes.Equal(system, bytes.Repeat([]byte{disk.Empty}, len(system)))

	fmt.Printf("\033[1m%s\033[0m\n", args[0])
	fmt.Printf("  size:        %d bytes\n", len(image))
	fmt.Printf("  compressed:  %t\n", compressed)
	fmt.Printf("  fingerprint: %016x\n", set.Fingerprint(0))
	fmt.Printf("  system:      %t\n", installed)

	files, err := set.Directory(0)

	if err != nil {
		return err
	}

	fmt.Printf("  files:       %d\n", len(files))

	for _, file := range files {
		fmt.Printf("    %2d: %-12s %6d bytes\n", file.User, file.Name, file.Size())
	}

	return nil
}

func diskRead(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: read file track sector")
	}

	track, err := encoding.DecodeInt(args[1])

	if err != nil {
		return err
	}

	sector, err := encoding.DecodeInt(args[2])

	if err != nil {
		return err
	}

	set, err := open(args[0], false)

	if err != nil {
		return err
	}

	buf := make([]byte, disk.SectorSize)

	if err := set.ReadSector(0, int(track), int(sector), buf); err != nil {
		return err
	}

	var mem memory.Memory
	mem.WriteArea(0, buf)
	debugger.PrintMem(os.Stdout, &mem, 0, disk.SectorSize)

	return nil
}

func gocpm_disk() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) == 0 {
		log.Println(usage)
		return 1
	}

	commands := map[string]func([]string) error{
		"new":  diskNew,
		"sys":  diskSys,
		"info": diskInfo,
		"read": diskRead,
	}

	command, ok := commands[args[0]]

	if !ok {
		log.Printf("'%s' is not a valid command\n", args[0])
		log.Println(usage)
		return 1
	}

	if err := command(args[1:]); err != nil {
		log.Println(err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(gocpm_disk())
}
