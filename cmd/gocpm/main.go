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
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/lassandro/gocpm/pkg/config"
	"github.com/lassandro/gocpm/pkg/console"
	"github.com/lassandro/gocpm/pkg/debugger"
	"github.com/lassandro/gocpm/pkg/disk"
	"github.com/lassandro/gocpm/pkg/machine"
	"github.com/lassandro/gocpm/pkg/ports"
)

var helpvar bool
var debugvar bool
var writevar bool
var installvar bool
var tracevar int
var configvar string
var cpmvar string
var biosvar string
var loglevelvar string
var drivevars [disk.Drives]string

// Shared with the debugger
var (
	stop     context.CancelFunc = func() {}
	trace    *debugger.Trace
	cpmFile  string
	biosFile string
)

const usage = "gocpm [-config file] [-a image] [-b image] [-c image] [-d image]"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(&writevar, "write", false, "Writes changes back to the drive images given on the command line")
	flag.BoolVar(&installvar, "install", false, "Installs CP/M onto the system tracks of every drive")
	flag.IntVar(&tracevar, "trace", 0, "Number of instructions kept for fault reports")
	flag.StringVar(&configvar, "config", "", "YAML configuration file")
	flag.StringVar(&cpmvar, "cpm", "", "CCP and BDOS image")
	flag.StringVar(&biosvar, "bios", "", "CBIOS image")
	flag.StringVar(&loglevelvar, "log-level", "", "Log level")

	for i := range drivevars {
		name := string(rune('a' + i))
		flag.StringVar(&drivevars[i], name, "", "Disk image for drive "+name+":")
	}

	flag.Parse()
}

// Flags given explicitly override the configuration file
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cpm":
			cfg.CPM = cpmvar
		case "bios":
			cfg.BIOS = biosvar
		case "install":
			cfg.InstallSystem = installvar
		case "trace":
			cfg.Trace = tracevar
		case "log-level":
			cfg.LogLevel = loglevelvar
		case "a", "b", "c", "d":
			n := int(f.Name[0] - 'a')
			cfg.SetDrive(n, drivevars[n], writevar)
		}
	})
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(crlfWriter{os.Stderr})
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
		DisableQuote:     true,
	})

	return logger
}

func gocpm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	if len(flag.Args()) != 0 {
		log.Println(usage)
		return 1
	}

	cfg := config.Default()

	if configvar != "" {
		var err error

		if cfg, err = config.Load(configvar); err != nil {
			log.Println(err)
			return 1
		}
	}

	applyFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		log.Println(err)
		return 1
	}

	logger := newLogger(cfg)

	cpmFile, biosFile = cfg.CPM, cfg.BIOS

	disks := disk.NewSet(logger)

	for i, drive := range cfg.Drives {
		if drive.Image == "" {
			continue
		}

		if err := disks.Load(i, drive.Image, drive.WriteBack); err != nil {
			log.Println(err)
			return 1
		}
	}

	defer func() {
		if err := disks.Flush(); err != nil {
			logger.WithError(err).Error("Unable to save disk images")
		}
	}()

	mc := &machine.Machine{Log: logger}
	con := console.New(os.Stdin, os.Stdout, stdinPoller{int(os.Stdin.Fd())})
	mc.Ports = ports.New(con, disks, mc, logger)

	if cfg.Trace > 0 {
		trace = debugger.NewTrace(cfg.Trace)
		mc.Tracer = trace
	}

	mc.OnFault = func(mc *machine.Machine, err error) {
		if errors.Is(err, io.EOF) {
			return
		}

		exitRawTerm()
		debugger.DumpFault(os.Stderr, err, &mc.Registers, &mc.Memory, trace)
	}

	if err := mc.BootFiles(cpmFile, biosFile); err != nil {
		log.Println(err)
		return 1
	}

	if cfg.InstallSystem {
		if err := disks.InstallSystem(mc.SystemImage()); err != nil {
			log.Println(err)
			return 1
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGHUP)
	defer cancel()
	stop = cancel

	if debugvar {
		var dbg debugger.Debugger
		dbg.HandleBreak = handleBreak
		dbg.HandleRead = handleRead
		dbg.HandleWrite = handleWrite
		mc.Debugger = &dbg

		c := make(chan os.Signal, 1)
		defer close(c)

		signal.Notify(c, os.Interrupt)
		defer signal.Stop(c)

		go func() {
			for range c {
				dbg.Break = true
			}
		}()
	}

	if err := enterRawTerm(debugvar); err != nil {
		log.Println(err)
		return 1
	}

	defer exitRawTerm()

	if debugvar {
		debugREPL(mc.Debugger.(*debugger.Debugger), mc)
	}

	switch err := mc.Run(ctx); {
	case errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		logger.Info("Stopped")
		return 0
	default:
		return 1
	}
}

func main() {
	os.Exit(gocpm())
}
