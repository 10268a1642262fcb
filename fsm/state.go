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

package fsm

import "fmt"

// State is one step of the kiosk session lifecycle. The driver owns the
// current value; it is never stored in the session.
type State int

// States
const (
	StateInit State = iota
	StateWaitingForCard
	StateVerifyUser
	StateVerifyReservation
	StateInReservation
	StateExtendReservation
	StateUserStopReservation
	StateTimeOut
	StateOffline
)

var stateNames = [...]string{
	StateInit:                "Init",
	StateWaitingForCard:      "WaitingForCard",
	StateVerifyUser:          "VerifyUser",
	StateVerifyReservation:   "VerifyReservation",
	StateInReservation:       "InReservation",
	StateExtendReservation:   "ExtendReservation",
	StateUserStopReservation: "UserStopReservation",
	StateTimeOut:             "TimeOut",
	StateOffline:             "Offline",
}

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	return s >= StateInit && int(s) < len(stateNames)
}
