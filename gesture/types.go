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

package gesture

import (
	"context"
	"strings"
	"time"
)

// ButtonID names a physical button
type ButtonID string

// Request is what a confirmed long press asks the state machine to do
type Request int

const (
	// RequestStop ends the active reservation
	RequestStop Request = iota + 1
	// RequestExtend extends the active reservation
	RequestExtend
)

func (r Request) String() string {
	switch r {
	case RequestStop:
		return "stop"
	case RequestExtend:
		return "extend"
	default:
		return "unknown"
	}
}

// EdgeKind is the direction of a button level change
type EdgeKind int

const (
	// Pressed is the transition to the held level
	Pressed EdgeKind = iota + 1
	// Released is the transition back to the idle level
	Released
)

func (k EdgeKind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Edge is a single debounced level change reported by a button
type Edge struct {
	At     time.Time
	Button ButtonID
	Kind   EdgeKind
}

// Button is a momentary push button.
type Button interface {
	ID() ButtonID
	// Held reports the current level.
	Held() bool
	// Subscribe delivers edges to ch until the returned function is
	// called. Delivery never blocks; edges are dropped when ch is full.
	Subscribe(ch chan<- Edge) (unsubscribe func())
}

// Binding ties a button to the request its long press produces
type Binding struct {
	Button  Button
	Label   string
	Request Request
}

// Progress renders the hold progress of a gesture in evaluation
type Progress interface {
	GestureProgress(ctx context.Context, label, bar string)
}

// Config holds the gesture timing
type Config struct {
	// Debounce is the grace period before the first held check
	Debounce time.Duration
	// Hold is how long the button must stay held
	Hold time.Duration
	// Step is the poll and progress interval during the hold
	Step time.Duration
}

// DefaultConfig returns the default gesture timing
func DefaultConfig() *Config {
	return &Config{
		Debounce: 100 * time.Millisecond,
		Hold:     1800 * time.Millisecond,
		Step:     100 * time.Millisecond,
	}
}

// Steps returns how many polls make up a full hold.
func (c *Config) Steps() int {
	if c.Step <= 0 {
		return 1
	}
	n := int(c.Hold / c.Step)
	if n < 1 {
		n = 1
	}
	return n
}

// ProgressBar renders step done of total as "[###   ]".
func ProgressBar(done, total int) string {
	if total < 1 {
		total = 1
	}
	if done > total {
		done = total
	}
	if done < 0 {
		done = 0
	}
	return "[" + strings.Repeat("#", done) + strings.Repeat(" ", total-done) + "]"
}
