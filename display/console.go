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

package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console renders frames as text boxes on a writer. It stands in for the
// LCD on development machines.
type Console struct {
	w         io.Writer
	rows      [Rows]string
	mu        sync.Mutex
	backlight bool
}

// NewConsole creates a console driver writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Clear blanks every row.
func (c *Console) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = [Rows]string{}
	return nil
}

// WriteLine sets the text of one row.
func (c *Console) WriteLine(row int, text string) error {
	if row < 0 || row >= Rows {
		return fmt.Errorf("row %d out of range", row)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[row] = Truncate(text, Cols)
	return nil
}

// SetBacklight records the backlight state.
func (c *Console) SetBacklight(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backlight = on
	return nil
}

// Flush prints the current frame.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	light := "on"
	if !c.backlight {
		light = "off"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "+%s+ backlight %s\n", strings.Repeat("-", Cols), light)
	for _, row := range c.rows {
		fmt.Fprintf(&b, "|%-*s|\n", Cols, row)
	}
	fmt.Fprintf(&b, "+%s+\n", strings.Repeat("-", Cols))
	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close is a no-op.
func (*Console) Close() error {
	return nil
}

var (
	_ Driver  = (*Console)(nil)
	_ Flusher = (*Console)(nil)
)
