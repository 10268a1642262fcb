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

package netmon

// Transition is the outcome of feeding one check result into a Link
type Transition int

const (
	// NoChange means the connectivity flag stays as it is
	NoChange Transition = iota
	// WentOffline means the failure threshold was just reached
	WentOffline
	// CameOnline means the first success after being offline
	CameOnline
)

func (t Transition) String() string {
	switch t {
	case WentOffline:
		return "went-offline"
	case CameOnline:
		return "came-online"
	default:
		return "no-change"
	}
}

// Link tracks consecutive probe failures and applies hysteresis: it goes
// offline only after threshold consecutive failures and back online on
// the first success.
type Link struct {
	threshold int
	failures  int
}

// NewLink returns a Link with the given failure threshold.
func NewLink(threshold int) *Link {
	if threshold < 1 {
		threshold = 1
	}
	return &Link{threshold: threshold}
}

// Failures returns the current consecutive failure count.
func (l *Link) Failures() int {
	return l.failures
}

// Observe records one check result given whether the device is currently
// considered online, and returns the resulting transition.
func (l *Link) Observe(wasOnline, ok bool) Transition {
	if ok {
		l.failures = 0
		if !wasOnline {
			return CameOnline
		}
		return NoChange
	}

	l.failures++
	if wasOnline && l.failures >= l.threshold {
		return WentOffline
	}
	return NoChange
}
