// go-labkiosk
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-labkiosk.
//
// go-labkiosk is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-labkiosk is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-labkiosk; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package display shows short text messages on a 4x20 character display.
package display

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// Display geometry
const (
	Rows = 4
	Cols = 20
)

// DefaultHold is how long a message stays visible unless told otherwise
const DefaultHold = 2 * time.Second

// Driver writes to the display hardware. Rows are 0-based.
type Driver interface {
	Clear() error
	WriteLine(row int, text string) error
	SetBacklight(on bool) error
	Close() error
}

// Flusher is implemented by drivers that buffer a frame until Flush.
type Flusher interface {
	Flush() error
}

// Message is one screenful. Lines beyond Rows are dropped, text beyond
// Cols is cut.
type Message struct {
	Lines     []string
	Hold      time.Duration
	Backlight bool
	Clear     bool
}

// Text returns a message with the backlight on, a cleared screen and the
// default hold.
func Text(lines ...string) Message {
	return Message{
		Lines:     lines,
		Hold:      DefaultHold,
		Backlight: true,
		Clear:     true,
	}
}

// WithHold returns a copy of m with a different hold.
func (m Message) WithHold(d time.Duration) Message {
	m.Hold = d
	return m
}

// WithBacklight returns a copy of m with the backlight set.
func (m Message) WithBacklight(on bool) Message {
	m.Backlight = on
	return m
}

func (m Message) same(o Message) bool {
	return m.Backlight == o.Backlight && m.Clear == o.Clear && slices.Equal(m.Lines, o.Lines)
}

// Display serializes access to a Driver.
type Display struct {
	driver Driver
	last   *Message
	mu     sync.Mutex
}

// New creates a Display over driver
func New(driver Driver) *Display {
	return &Display{driver: driver}
}

// Show draws msg and then keeps it visible for msg.Hold. A message equal
// to the one on screen is not redrawn but still held. The hold does not
// block other writers.
func (d *Display) Show(ctx context.Context, msg Message) error {
	msg.Lines = fit(msg.Lines)
	if err := d.draw(msg); err != nil {
		return err
	}
	return kiosk.Sleep(ctx, msg.Hold)
}

func (d *Display) draw(msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last != nil && d.last.same(msg) {
		return nil
	}
	d.last = nil

	if err := d.driver.SetBacklight(msg.Backlight); err != nil {
		return fmt.Errorf("failed to set backlight: %w", err)
	}
	if msg.Clear {
		if err := d.driver.Clear(); err != nil {
			return fmt.Errorf("failed to clear display: %w", err)
		}
	}
	for row, line := range msg.Lines {
		if line == "" {
			continue
		}
		if err := d.driver.WriteLine(row, line); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	if f, ok := d.driver.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush display: %w", err)
		}
	}

	d.last = &msg
	return nil
}

// Flash toggles the backlight n times, interval on and interval off,
// ending with the backlight off.
func (d *Display) Flash(ctx context.Context, interval time.Duration, n int) error {
	for i := 0; i < n; i++ {
		if err := kiosk.Sleep(ctx, interval); err != nil {
			return err
		}
		if err := d.setBacklight(true); err != nil {
			return err
		}
		if err := kiosk.Sleep(ctx, interval); err != nil {
			return err
		}
		if err := d.setBacklight(false); err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) setBacklight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = nil
	if err := d.driver.SetBacklight(on); err != nil {
		return fmt.Errorf("failed to set backlight: %w", err)
	}
	return nil
}

// Close clears the display, turns the backlight off and closes the driver.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = nil
	if err := d.driver.Clear(); err != nil {
		log.Debug().Err(err).Msg("failed to clear display on close")
	}
	if err := d.driver.SetBacklight(false); err != nil {
		log.Debug().Err(err).Msg("failed to turn backlight off on close")
	}
	if err := d.driver.Close(); err != nil {
		return fmt.Errorf("failed to close display driver: %w", err)
	}
	return nil
}

// fit cuts lines to the display geometry.
func fit(lines []string) []string {
	if len(lines) > Rows {
		lines = lines[:Rows]
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Truncate(line, Cols)
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
