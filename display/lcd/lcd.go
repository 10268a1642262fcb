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

// Package lcd drives an HD44780 character LCD through a PCF8574 I2C
// backpack in 4-bit mode.
package lcd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-labkiosk/display"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultAddr is the usual address of PCF8574 LCD backpacks.
const DefaultAddr = 0x27

// PCF8574 pin mapping: P0 RS, P1 RW, P2 E, P3 backlight, P4-P7 data.
const (
	registerSelect = 0x01
	enable         = 0x04
	backlightBit   = 0x08
)

// HD44780 instructions
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0C // display on, cursor off, blink off
	cmdFunctionSet = 0x28 // 4-bit bus, 2 lines, 5x8 font
	cmdSetDDRAM    = 0x80

	busSpeed = 100 * physic.KiloHertz
)

var rowOffsets = [display.Rows]byte{0x00, 0x40, 0x14, 0x54}

// LCD implements display.Driver.
type LCD struct {
	dev       conn.Conn
	closer    io.Closer
	mu        sync.Mutex
	backlight byte
}

// Open initializes the host, opens the named I2C bus and the LCD at addr.
func Open(busName string, addr uint16) (*LCD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(busSpeed) // not every bus supports it

	l, err := New(&i2c.Dev{Bus: bus, Addr: addr})
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	l.closer = bus
	return l, nil
}

// New runs the 4-bit initialization sequence on dev and returns the
// driver with the display cleared and the backlight on.
func New(dev conn.Conn) (*LCD, error) {
	l := &LCD{dev: dev, backlight: backlightBit}
	if err := l.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize LCD: %w", err)
	}
	return l, nil
}

func (l *LCD) init() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	// Three 8-bit function sets put the controller in a known state
	// whatever mode it was left in, then switch to 4-bit.
	for _, nibble := range []byte{0x30, 0x30, 0x30, 0x20} {
		if err := l.pulse(nibble); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}

	for _, cmd := range []byte{cmdFunctionSet, cmdDisplayOn, cmdClear, cmdEntryMode} {
		if err := l.send(cmd, 0); err != nil {
			return err
		}
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

// pulse latches the upper nibble of b by toggling E.
func (l *LCD) pulse(b byte) error {
	b = b&0xF0 | l.backlight
	if err := l.dev.Tx([]byte{b | enable, b}, nil); err != nil {
		return fmt.Errorf("I2C write failed: %w", err)
	}
	return nil
}

// send writes a full byte as two nibbles. mode is 0 for instructions and
// registerSelect for character data.
func (l *LCD) send(value, mode byte) error {
	hi := value&0xF0 | mode | l.backlight
	lo := value<<4&0xF0 | mode | l.backlight
	if err := l.dev.Tx([]byte{hi | enable, hi, lo | enable, lo}, nil); err != nil {
		return fmt.Errorf("I2C write failed: %w", err)
	}
	return nil
}

// Clear blanks the display and homes the cursor.
func (l *LCD) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.send(cmdClear, 0); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

// WriteLine writes text from the first column of row. Characters outside
// printable ASCII are shown as '?'.
func (l *LCD) WriteLine(row int, text string) error {
	if row < 0 || row >= display.Rows {
		return fmt.Errorf("row %d out of range", row)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send(cmdSetDDRAM|rowOffsets[row], 0); err != nil {
		return err
	}
	for _, r := range display.Truncate(text, display.Cols) {
		c := byte('?')
		if r >= 0x20 && r < 0x7F {
			c = byte(r)
		}
		if err := l.send(c, registerSelect); err != nil {
			return err
		}
	}
	return nil
}

// SetBacklight switches the backlight. The state sticks to every later
// write.
func (l *LCD) SetBacklight(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backlight = 0
	if on {
		l.backlight = backlightBit
	}
	if err := l.dev.Tx([]byte{l.backlight}, nil); err != nil {
		return fmt.Errorf("I2C write failed: %w", err)
	}
	return nil
}

// Close releases the bus when it was opened by Open.
func (l *LCD) Close() error {
	if l.closer == nil {
		return nil
	}
	if err := l.closer.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

var _ display.Driver = (*LCD)(nil)
