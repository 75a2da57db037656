// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pdcard renders the state of a HUSB238 sink as a small picture for
// monochrome panels such as the 128x64 SSD1306.
//
// The top line is the negotiated contract, the second line its power and the
// selected profile, and the bottom row has one box per rail: filled when the
// source offers it, outlined otherwise.
package pdcard

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/GermanBionicSystems/usbpd/husb238"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"periph.io/x/conn/v3/display"
)

// Status is what the card shows.
type Status struct {
	Contract     husb238.Contract
	Selected     husb238.SourceProfile
	Capabilities []husb238.Capability
}

// Opts represents the rendering options.
type Opts struct {
	W, H int
	// Size is the font size in points of the first line. The second line
	// uses 2/3 of it. 0 uses basicfont.Face7x13 for both lines.
	Size float64
	FG   color.Color
	BG   color.Color
}

// DefaultOpts fits a 128x64 SSD1306.
var DefaultOpts = Opts{W: 128, H: 64, Size: 16, FG: color.White, BG: color.Black}

const railRowHeight = 12

var (
	monoOnce sync.Once
	mono     *truetype.Font
	monoErr  error
)

func face(size float64) (font.Face, error) {
	if size <= 0 {
		return basicfont.Face7x13, nil
	}
	monoOnce.Do(func() {
		mono, monoErr = truetype.Parse(gomono.TTF)
	})
	if monoErr != nil {
		return nil, fmt.Errorf("pdcard: %w", monoErr)
	}
	return truetype.NewFace(mono, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}

// Render draws s. opts may be nil.
func Render(s *Status, opts *Opts) (image.Image, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.W < 6 || o.H < 2*railRowHeight {
		return nil, errors.New("pdcard: image too small")
	}
	if o.FG == nil {
		o.FG = color.White
	}
	if o.BG == nil {
		o.BG = color.Black
	}
	big, err := face(o.Size)
	if err != nil {
		return nil, err
	}
	small, err := face(o.Size * 2 / 3)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(o.W, o.H)
	dc.SetColor(o.BG)
	dc.Clear()
	dc.SetColor(o.FG)

	line1 := "no source"
	if s.Contract.HasVoltage {
		line1 = fmt.Sprintf("%s %s", s.Contract.Voltage, s.Contract.Current)
	}
	dc.SetFontFace(big)
	dc.DrawStringAnchored(line1, 1, 1, 0, 1)

	line2 := "PDO " + s.Selected.String()
	if s.Contract.HasVoltage {
		line2 = fmt.Sprintf("%s %s", s.Contract.Power(), line2)
	}
	dc.SetFontFace(small)
	_, h1 := dc.MeasureString(line1)
	dc.DrawStringAnchored(line2, 1, h1+4, 0, 1)

	offered := map[husb238.Rail]bool{}
	for _, c := range s.Capabilities {
		offered[c.Rail] = true
	}
	cellW := float64(o.W) / float64(len(husb238.Rails))
	y := float64(o.H - railRowHeight)
	dc.SetLineWidth(1)
	for i, r := range husb238.Rails {
		x := float64(i) * cellW
		dc.DrawRectangle(x+1.5, y+0.5, cellW-3, railRowHeight-2)
		if offered[r] {
			dc.Fill()
		} else {
			dc.Stroke()
		}
	}
	return dc.Image(), nil
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("pdcard: %w", err)
	}
	return nil
}

// Draw renders s at the size of dst and draws it. opts may be nil; its W and
// H are ignored.
func Draw(dst display.Drawer, s *Status, opts *Opts) error {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	b := dst.Bounds()
	o.W, o.H = b.Dx(), b.Dy()
	img, err := Render(s, &o)
	if err != nil {
		return err
	}
	return dst.Draw(b, img, image.Point{})
}
