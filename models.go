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
	"time"

	"github.com/google/uuid"
)

// Credential is the bearer token used to authorize backend calls.
type Credential struct {
	Expiration time.Time
	Value      string
}

// IsZero reports whether the credential carries no token.
func (c Credential) IsZero() bool {
	return c.Value == ""
}

// ValidFor reports whether the credential is still usable at now with
// at least buffer left before it expires.
func (c Credential) ValidFor(now time.Time, buffer time.Duration) bool {
	if c.IsZero() || c.Expiration.IsZero() {
		return false
	}
	return c.Expiration.After(now.Add(buffer))
}

// Instrument describes the lab instrument this kiosk guards. It is
// fetched once at startup.
type Instrument struct {
	ID         string
	Name       string
	MACAddress string
	IP         string
}

// User is the card holder resolved by the backend.
type User struct {
	ID       string
	Name     string
	FullName string
	CardID   string
}

// Reservation is an active, time-boxed grant of the instrument.
//
// Remaining is expressed in whole minutes and never goes below zero.
// WarningSent and EndedByUser are one-shot flags; WarningSent is cleared
// on every successful extension so the end warning can fire again.
type Reservation struct {
	ID          string
	RecordingID string
	SessionID   string
	Remaining   int
	WarningSent bool
	EndedByUser bool
}

// NewReservation returns a reservation with a fresh local session id.
func NewReservation(id, recordingID string, remaining int) *Reservation {
	r := &Reservation{
		ID:          id,
		RecordingID: recordingID,
		SessionID:   uuid.NewString(),
	}
	r.SetRemaining(remaining)
	return r
}

// SetRemaining updates the remaining minutes, clamping at zero.
func (r *Reservation) SetRemaining(minutes int) {
	if minutes < 0 {
		minutes = 0
	}
	r.Remaining = minutes
}

// Extend applies the remaining time returned by a successful extension
// and re-arms the end-of-session warning.
func (r *Reservation) Extend(minutes int) {
	r.SetRemaining(minutes)
	r.WarningSent = false
}

// ShouldWarn reports whether the end warning is due at the given
// threshold and has not been shown yet for the current end time.
func (r *Reservation) ShouldWarn(threshold int) bool {
	return r.Remaining <= threshold && !r.WarningSent && !r.EndedByUser
}

// Expired reports whether the reservation ran out without the user
// ending it.
func (r *Reservation) Expired() bool {
	return r.Remaining <= 0 && !r.EndedByUser
}
