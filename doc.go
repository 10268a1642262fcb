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

/*
Package kiosk provides the shared types for an unattended lab-instrument kiosk.

A user presents a card, the kiosk resolves the card holder and their
reservation with the backend, and opens a timed usage session. During the
session the user can extend or end it with long-press button gestures. The
kiosk keeps working through intermittent network loss and resumes once the
connection returns.

This package holds the session context shared by every component, the
domain values (Credential, Instrument, User, Reservation), the error
taxonomy and the capability interfaces the engine talks to. The engine
itself is split into focused packages:

  - fsm: the state machine driver and its states
  - netmon: the connectivity monitor with hysteresis
  - gesture: the long-press gesture detector
  - guard: the safe-call wrapper every remote call goes through
  - token: credential caching and renewal

Hardware and backend adapters live in button, display, display/lcd,
reader, reader/pn532, api and audit. The config package loads settings
from YAML and the environment, and cmd/labkiosk wires everything into a
runnable kiosk.

Basic Usage:

	session := kiosk.NewSession()
	tokens := token.NewManager(token.NewFileStore("token.json"), client)
	g := guard.New(session, tokens, screens)

	machine := fsm.New(session, fsm.Deps{...})
	monitor := netmon.NewMonitor(session, netmon.NewHTTPProber(nil), screens, nil)

	go monitor.Run(ctx)
	machine.Run(ctx)

Error Handling:

Lookups with no result return ErrNotFound or ErrRejected. These are
normal outcomes and are never shown as errors:

	if kiosk.IsAbsent(err) {
	    // back to waiting for a card
	}

Backend failures are wrapped in *RemoteError and can be classified with
IsRetryable and GetErrorType.

Thread Safety:

Session is safe for concurrent use. Its general lock serializes screen
updates with the context mutations they belong to; its gesture lock
admits one button gesture evaluation at a time.
*/
package kiosk
