// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package railbar draws the six fixed USB-PD rails of a HUSB238 as a row of
// coloured cells on a terminal using ANSI color codes.
//
// Dev is a 6x1 display.Drawer so any image can be pushed to it, but the
// usual entry point is Show with the cells returned by Cells.
package railbar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/GermanBionicSystems/usbpd/husb238"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// State is what is known about a rail.
type State uint8

const (
	// Absent means the source does not offer the rail.
	Absent State = iota
	// Offered means the source offers the rail.
	Offered
	// Selected means the rail is offered and held in SRC_PDO.
	Selected
	// Active means the rail is the negotiated contract.
	Active
)

func (s State) String() string {
	switch s {
	case Absent:
		return "Absent"
	case Offered:
		return "Offered"
	case Selected:
		return "Selected"
	case Active:
		return "Active"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Colors maps each State to the colour of its cell.
var Colors = [...]color.NRGBA{
	Absent:   {0x30, 0x30, 0x30, 0xff},
	Offered:  {0x00, 0x80, 0xff, 0xff},
	Selected: {0xff, 0xc0, 0x00, 0xff},
	Active:   {0x00, 0xff, 0x00, 0xff},
}

// Cell is one rail and its state.
type Cell struct {
	Rail    husb238.Rail
	State   State
	Current husb238.Current // only meaningful when State != Absent
}

func (c Cell) String() string {
	if c.State == Absent {
		return c.Rail.String() + ":--"
	}
	return c.Rail.String() + ":" + c.Current.String()
}

// Cells returns one cell per rail in ascending voltage order.
//
// caps is the result of ReadSourceCapabilities, selected the SRC_PDO profile
// and active the voltage reported in PD_STATUS0.
func Cells(caps []husb238.Capability, selected husb238.SourceProfile, active husb238.Voltage) []Cell {
	cells := make([]Cell, len(husb238.Rails))
	for i, r := range husb238.Rails {
		cells[i].Rail = r
	}
	for _, c := range caps {
		for i := range cells {
			if cells[i].Rail != c.Rail {
				continue
			}
			cells[i].Current = c.Current
			switch {
			case c.Rail.Voltage() == active:
				cells[i].State = Active
			case c.Rail.Profile() == selected:
				cells[i].State = Selected
			default:
				cells[i].State = Offered
			}
		}
	}
	return cells
}

// Frame returns the image of cells, one pixel per cell.
func Frame(cells []Cell) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, len(cells), 1))
	for i, c := range cells {
		col := Colors[Absent]
		if int(c.State) < len(Colors) {
			col = Colors[c.State]
		}
		img.SetNRGBA(i, 0, col)
	}
	return img
}

// Opts represents the options available for this display.
type Opts struct {
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is a row of terminal cells, one per rail.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette

	pixels []byte
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console. opts may be nil.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:       w,
		palette: *p,
		pixels:  make([]byte, 3*len(husb238.Rails)),
	}
}

func (d *Dev) String() string {
	return "RailBar"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes and ends the line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Write accepts a stream of raw RGB pixels, one per rail, and writes it to
// the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("railbar: invalid RGB stream length")
	}
	copy(d.pixels, pixels)
	if err := d.refresh(""); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: len(d.pixels) / 3, Y: 1}}
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.draw(r, src, sp)
	return d.refresh("")
}

// Show draws cells followed by their labels.
func (d *Dev) Show(cells []Cell) error {
	labels := make([]string, len(cells))
	for i, c := range cells {
		labels[i] = c.String()
	}
	d.draw(d.Bounds(), Frame(cells), image.Point{})
	return d.refresh(strings.Join(labels, " "))
}

func (d *Dev) draw(r image.Rectangle, src image.Image, sp image.Point) {
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	deltaX3 := 3 * (r.Min.X - srcR.Min.X)
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		r16, g16, b16, _ := src.At(sX, srcR.Min.Y).RGBA()
		dX3 := 3*sX + deltaX3
		d.pixels[dX3] = byte(r16 >> 8)
		d.pixels[dX3+1] = byte(g16 >> 8)
		d.pixels[dX3+2] = byte(b16 >> 8)
	}
}

func (d *Dev) refresh(legend string) error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < len(d.pixels)/3; i++ {
		c := color.NRGBA{d.pixels[3*i], d.pixels[3*i+1], d.pixels[3*i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, _ = d.buf.WriteString(legend)
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
