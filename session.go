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

package kiosk

import (
	"sync"
	"sync/atomic"
)

// Session is the process-wide context shared by the state machine and the
// background coordinators. It is created once and passed by pointer to
// every component; never copy it.
//
// Two locks live here. The general lock (Lock, Unlock, WithLock) makes a
// screen update and the context mutation it belongs to atomic with respect
// to the other tasks. The gesture lock admits at most one button gesture
// evaluation at a time, and tells the reservation loop to skip its remote
// refresh while a gesture is being evaluated.
//
// Field accessors are safe for concurrent use and never take the general
// lock, so they may be called while holding it.
type Session struct {
	credential  Credential
	instrument  Instrument
	user        *User
	reservation *Reservation
	cardID      string

	mu      sync.Mutex
	gesture gestureLock
	fields  sync.RWMutex

	online         atomic.Bool
	uiBusy         atomic.Bool
	buttonsBlocked atomic.Bool
}

// NewSession returns a session that starts out online.
func NewSession() *Session {
	s := &Session{}
	s.online.Store(true)
	return s
}

// Lock acquires the general lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the general lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// WithLock runs fn while holding the general lock.
func (s *Session) WithLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// TryLockGesture acquires the gesture lock if it is free.
func (s *Session) TryLockGesture() bool { return s.gesture.TryLock() }

// UnlockGesture releases the gesture lock.
func (s *Session) UnlockGesture() { s.gesture.Unlock() }

// GestureBusy reports whether a gesture is currently being evaluated.
func (s *Session) GestureBusy() bool { return s.gesture.Locked() }

// Online reports the connectivity flag.
func (s *Session) Online() bool { return s.online.Load() }

// SetOnline updates the connectivity flag and reports whether it changed.
func (s *Session) SetOnline(online bool) bool {
	return s.online.Swap(online) != online
}

// UIBusy reports whether a blocking screen currently owns the display.
func (s *Session) UIBusy() bool { return s.uiBusy.Load() }

// SetUIBusy sets the UI-busy flag.
func (s *Session) SetUIBusy(busy bool) { s.uiBusy.Store(busy) }

// ButtonsBlocked reports whether button gestures are disabled.
func (s *Session) ButtonsBlocked() bool { return s.buttonsBlocked.Load() }

// SetButtonsBlocked sets the button-block flag.
func (s *Session) SetButtonsBlocked(blocked bool) { s.buttonsBlocked.Store(blocked) }

// Credential returns the last verified credential.
func (s *Session) Credential() Credential {
	s.fields.RLock()
	defer s.fields.RUnlock()
	return s.credential
}

// SetCredential stores a verified credential.
func (s *Session) SetCredential(c Credential) {
	s.fields.Lock()
	s.credential = c
	s.fields.Unlock()
}

// Instrument returns the instrument descriptor.
func (s *Session) Instrument() Instrument {
	s.fields.RLock()
	defer s.fields.RUnlock()
	return s.instrument
}

// SetInstrument stores the instrument descriptor.
func (s *Session) SetInstrument(in Instrument) {
	s.fields.Lock()
	s.instrument = in
	s.fields.Unlock()
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *User {
	s.fields.RLock()
	defer s.fields.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser stores the current user; nil clears it.
func (s *Session) SetUser(u *User) {
	s.fields.Lock()
	if u != nil {
		cp := *u
		u = &cp
	}
	s.user = u
	s.fields.Unlock()
}

// CardID returns the last scanned card id, or "" when none is pending.
func (s *Session) CardID() string {
	s.fields.RLock()
	defer s.fields.RUnlock()
	return s.cardID
}

// SetCardID stores the scanned card id.
func (s *Session) SetCardID(id string) {
	s.fields.Lock()
	s.cardID = id
	s.fields.Unlock()
}

// Reservation returns a snapshot of the active reservation, or nil.
func (s *Session) Reservation() *Reservation {
	s.fields.RLock()
	defer s.fields.RUnlock()
	if s.reservation == nil {
		return nil
	}
	r := *s.reservation
	return &r
}

// SetReservation installs a new active reservation; nil clears it.
func (s *Session) SetReservation(r *Reservation) {
	s.fields.Lock()
	if r != nil {
		cp := *r
		r = &cp
	}
	s.reservation = r
	s.fields.Unlock()
}

// UpdateReservation mutates the active reservation in place and reports
// whether one was present.
func (s *Session) UpdateReservation(fn func(r *Reservation)) bool {
	s.fields.Lock()
	defer s.fields.Unlock()
	if s.reservation == nil {
		return false
	}
	fn(s.reservation)
	return true
}

// EndSession clears every per-user field once the reservation lifecycle
// is over. Instrument and credential survive.
func (s *Session) EndSession() {
	s.fields.Lock()
	s.reservation = nil
	s.user = nil
	s.cardID = ""
	s.fields.Unlock()
}

// gestureLock is a mutex whose held state can be observed without
// acquiring it.
type gestureLock struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (g *gestureLock) TryLock() bool {
	if !g.mu.TryLock() {
		return false
	}
	g.held.Store(true)
	return true
}

func (g *gestureLock) Unlock() {
	g.held.Store(false)
	g.mu.Unlock()
}

func (g *gestureLock) Locked() bool {
	return g.held.Load()
}
