// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// husb238 reads and controls a HUSB238 USB-PD sink controller.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/GermanBionicSystems/usbpd/husb238"
	"github.com/GermanBionicSystems/usbpd/pdcard"
	"github.com/GermanBionicSystems/usbpd/railbar"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var commands = map[string]husb238.Command{
	"request":   husb238.Request,
	"getsrccap": husb238.GetSourceCapabilities,
	"hardreset": husb238.HardReset,
}

func parseCommand(s string) (husb238.Command, error) {
	if c, ok := commands[strings.ToLower(s)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown command %q; use request, getsrccap or hardreset", s)
}

// reporter prints what was asked for on the command line.
type reporter struct {
	dev     *husb238.Dev
	w       io.Writer
	status  bool
	profile bool
	caps    bool
	bar     *railbar.Dev
	png     string
}

func (r *reporter) report() error {
	full := r.bar != nil || r.png != ""
	var s pdcard.Status
	var v husb238.Voltage
	if r.status || full {
		var i husb238.Current
		var err error
		if v, i, err = r.dev.ReadStatus(); err != nil {
			return err
		}
		s.Contract = husb238.ContractOf(v, i)
		if r.status {
			fmt.Fprintf(r.w, "status: %s %s", v, i)
			if s.Contract.HasVoltage {
				fmt.Fprintf(r.w, " (%s)", s.Contract.Power())
			}
			fmt.Fprintln(r.w)
		}
	}
	if r.profile || full {
		p, err := r.dev.ReadSelectedProfile()
		if err != nil {
			return err
		}
		s.Selected = p
		if r.profile {
			fmt.Fprintf(r.w, "profile: %s\n", p)
		}
	}
	if r.caps || full {
		caps, err := r.dev.ReadSourceCapabilities()
		if err != nil {
			return err
		}
		s.Capabilities = caps
		if r.caps {
			for _, c := range caps {
				fmt.Fprintf(r.w, "source: %s\n", c)
			}
			if len(caps) == 0 {
				fmt.Fprintln(r.w, "source: none")
			}
		}
	}
	if r.bar != nil {
		if err := r.bar.Show(railbar.Cells(s.Capabilities, s.Selected, v)); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
	}
	if r.png != "" {
		img, err := pdcard.Render(&s, nil)
		if err != nil {
			return err
		}
		f, err := os.Create(r.png)
		if err != nil {
			return err
		}
		if err := pdcard.WritePNG(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote %s", r.png)
	}
	return nil
}

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use")
	addr := flag.Uint("addr", uint(husb238.DefaultAddress), "I²C address")
	status := flag.Bool("status", true, "print the negotiated voltage and current")
	profile := flag.Bool("profile", false, "print the selected source profile")
	caps := flag.Bool("caps", false, "print the rails offered by the source")
	sel := flag.String("select", "", "select a profile (5V, 9V, 12V, 15V, 18V, 20V) and request it")
	cmd := flag.String("cmd", "", "trigger a command: request, getsrccap or hardreset")
	bar := flag.Bool("bar", false, "draw the rails on the terminal")
	pngPath := flag.String("png", "", "write a status card to this PNG file")
	watch := flag.Duration("watch", 0, "repeat the report at this interval")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	var selected husb238.SourceProfile
	if *sel != "" {
		p, ok := husb238.ParseProfile(strings.ToUpper(*sel))
		if !ok || p == husb238.NotSelected {
			return fmt.Errorf("unknown profile %q", *sel)
		}
		selected = p
	}
	var command husb238.Command
	if *cmd != "" {
		c, err := parseCommand(*cmd)
		if err != nil {
			return err
		}
		command = c
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	b, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer b.Close()

	dev, err := husb238.New(b, &husb238.Opts{Addr: uint16(*addr)})
	if err != nil {
		return err
	}
	log.Printf("using %s", dev)

	if selected != husb238.NotSelected {
		log.Printf("selecting %s", selected)
		if err := dev.SelectProfile(selected); err != nil {
			return err
		}
		if err := dev.TriggerCommand(husb238.Request); err != nil {
			return err
		}
	}
	if command != 0 {
		log.Printf("triggering %s", command)
		if err := dev.TriggerCommand(command); err != nil {
			return err
		}
	}

	r := &reporter{dev: dev, w: os.Stdout, status: *status, profile: *profile, caps: *caps, png: *pngPath}
	if *bar {
		r.bar = railbar.New(nil)
		defer r.bar.Halt()
	}
	if *watch <= 0 {
		return r.report()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	t := time.NewTicker(*watch)
	defer t.Stop()
	for {
		if err := r.report(); err != nil {
			return err
		}
		select {
		case <-c:
			return nil
		case <-t.C:
		}
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "husb238: %s.\n", err)
		os.Exit(1)
	}
}
