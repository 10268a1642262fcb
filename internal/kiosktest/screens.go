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

// Package kiosktest provides in-memory fakes of the kiosk collaborators
// for tests.
package kiosktest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
)

// Screens records every screen shown as an event string such as
// "welcome:Krios" or "in-reservation:42". Screens return immediately.
type Screens struct {
	events []string
	mu     sync.Mutex
}

// NewScreens creates an empty recorder
func NewScreens() *Screens {
	return &Screens{}
}

func (s *Screens) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

// Events returns every recorded event in order.
func (s *Screens) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Count returns how many events start with prefix.
func (s *Screens) Count(prefix string) int {
	n := 0
	for _, e := range s.Events() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// Has reports whether any event starts with prefix.
func (s *Screens) Has(prefix string) bool {
	return s.Count(prefix) > 0
}

// Reset forgets every recorded event.
func (s *Screens) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *Screens) Starting(context.Context) { s.record("starting") }

func (s *Screens) InitialLogs(_ context.Context, _ time.Time, ip string, in kiosk.Instrument) {
	s.record("initial-logs:%s:%s", ip, in.Name)
}

func (s *Screens) NoConnection(context.Context)       { s.record("no-connection") }
func (s *Screens) ConnectionLost(context.Context)     { s.record("connection-lost") }
func (s *Screens) ConnectionRestored(context.Context) { s.record("connection-restored") }

func (s *Screens) Welcome(_ context.Context, name string) { s.record("welcome:%s", name) }

func (s *Screens) CheckingUser(context.Context)           { s.record("checking-user") }
func (s *Screens) UserOK(_ context.Context, name string)  { s.record("user-ok:%s", name) }
func (s *Screens) UserNotFound(context.Context)           { s.record("user-not-found") }
func (s *Screens) CheckingReservation(context.Context)    { s.record("checking-reservation") }
func (s *Screens) ReservationOK(context.Context)          { s.record("reservation-ok") }
func (s *Screens) ReservationNotFound(context.Context)    { s.record("reservation-not-found") }
func (s *Screens) ExtendNotYet(context.Context)           { s.record("extend-not-yet") }
func (s *Screens) Extended(context.Context)               { s.record("extended") }
func (s *Screens) SessionEnded(context.Context)           { s.record("session-ended") }
func (s *Screens) InReservation(_ context.Context, n int) { s.record("in-reservation:%d", n) }
func (s *Screens) EndWarning(_ context.Context, n int)    { s.record("end-warning:%d", n) }

func (s *Screens) Error(_ context.Context, op string, err error) {
	s.record("error:%s:%v", op, err)
}

func (s *Screens) GestureProgress(_ context.Context, label, bar string) {
	s.record("gesture-progress:%s:%s", label, bar)
}
