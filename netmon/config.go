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

import "time"

// Config holds the monitor timing and hysteresis settings
type Config struct {
	// Interval is the pause between two connectivity checks
	Interval time.Duration
	// FailureThreshold is how many consecutive failed checks turn the
	// device offline. A single success turns it back online.
	FailureThreshold int
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:         5 * time.Second,
		FailureThreshold: 3,
	}
}

// ProberConfig holds the HTTP reachability probe settings
type ProberConfig struct {
	URLs []string
	// Timeout bounds each single request
	Timeout time.Duration
	// Rounds is how many times the whole URL list is tried
	Rounds int
	// RoundDelay is the pause between rounds
	RoundDelay time.Duration
}

// DefaultURLs are well-known hosts used to decide reachability.
var DefaultURLs = []string{
	"https://www.google.com",
	"https://www.ceitec.cz/",
	"https://cloudflare.com",
	"https://1.1.1.1",
}

// DefaultProberConfig returns the default probe configuration
func DefaultProberConfig() *ProberConfig {
	urls := make([]string, len(DefaultURLs))
	copy(urls, DefaultURLs)
	return &ProberConfig{
		URLs:       urls,
		Timeout:    5 * time.Second,
		Rounds:     2,
		RoundDelay: time.Second,
	}
}
