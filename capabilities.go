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

import "context"

// CardReader yields the id of a freshly presented card.
type CardReader interface {
	// ReadCard returns the normalized card id and true when a new card is
	// present. It must not block longer than a short poll.
	ReadCard(ctx context.Context) (string, bool)
}

// ReservationStart is the backend answer to a start or extend request.
type ReservationStart struct {
	ReservationID string
	RecordingID   string
	Remaining     int
}

// API is the subset of the backend the kiosk drives. Lookups with no
// result return ErrNotFound; refused reservations return ErrRejected.
type API interface {
	FetchToken(ctx context.Context) (Credential, error)
	FetchInstrument(ctx context.Context, cred Credential, mac, ip string) (Instrument, error)
	FetchUser(ctx context.Context, cred Credential, cardID string) (User, error)
	// StartOrExtendReservation is idempotent: called during an active
	// reservation it extends it.
	StartOrExtendReservation(ctx context.Context, cred Credential, user User, in Instrument) (ReservationStart, error)
	FetchReservationStatus(ctx context.Context, cred Credential, r Reservation) (int, error)
	StopReservation(ctx context.Context, cred Credential, r Reservation, in Instrument) error
}

// Host reports the network identity of this device.
type Host interface {
	MAC() string
	IP() string
}

// Prober answers whether the public internet is reachable right now.
type Prober interface {
	Probe(ctx context.Context) bool
}
