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

package kiosktest

import (
	"context"
	"sync"

	kiosk "github.com/ZaparooProject/go-labkiosk"
)

// API is a scripted backend. Set the exported fields before use, or
// through Update while the fake is shared with running goroutines.
type API struct {
	TokenErr      error
	InstrumentErr error
	UserErr       error
	StartErr      error
	StatusErr     error
	StopErr       error
	calls         map[string]int
	Users         map[string]kiosk.User
	Token         kiosk.Credential
	Instrument    kiosk.Instrument
	// Statuses are returned by successive FetchReservationStatus calls;
	// the last one repeats.
	Statuses []int
	Start    kiosk.ReservationStart
	// Stopped holds the reservations passed to StopReservation.
	Stopped []kiosk.Reservation
	mu      sync.Mutex
}

// NewAPI creates a backend that knows no users.
func NewAPI() *API {
	return &API{
		Users: make(map[string]kiosk.User),
		calls: make(map[string]int),
	}
}

// Update runs fn with the fake locked.
func (a *API) Update(fn func(a *API)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a)
}

// Calls returns how often the named method was called.
func (a *API) Calls(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method]
}

func (a *API) called(method string) {
	if a.calls == nil {
		a.calls = make(map[string]int)
	}
	a.calls[method]++
}

func (a *API) FetchToken(context.Context) (kiosk.Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.called("FetchToken")
	return a.Token, a.TokenErr
}

func (a *API) FetchInstrument(_ context.Context, _ kiosk.Credential, mac, ip string) (kiosk.Instrument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.called("FetchInstrument")
	if a.InstrumentErr != nil {
		return kiosk.Instrument{}, a.InstrumentErr
	}
	in := a.Instrument
	in.MACAddress, in.IP = mac, ip
	return in, nil
}

func (a *API) FetchUser(_ context.Context, _ kiosk.Credential, cardID string) (kiosk.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.called("FetchUser")
	if a.UserErr != nil {
		return kiosk.User{}, a.UserErr
	}
	u, ok := a.Users[cardID]
	if !ok {
		return kiosk.User{}, kiosk.ErrNotFound
	}
	return u, nil
}

func (a *API) StartOrExtendReservation(
	_ context.Context, _ kiosk.Credential, _ kiosk.User, _ kiosk.Instrument,
) (kiosk.ReservationStart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.called("StartOrExtendReservation")
	if a.StartErr != nil {
		return kiosk.ReservationStart{}, a.StartErr
	}
	return a.Start, nil
}

func (a *API) FetchReservationStatus(_ context.Context, _ kiosk.Credential, _ kiosk.Reservation) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.called("FetchReservationStatus")
	if a.StatusErr != nil {
		return 0, a.StatusErr
	}
	if len(a.Statuses) == 0 {
		return a.Start.Remaining, nil
	}
	n := a.Statuses[0]
	if len(a.Statuses) > 1 {
		a.Statuses = a.Statuses[1:]
	}
	return n, nil
}

func (a *API) StopReservation(_ context.Context, _ kiosk.Credential, r kiosk.Reservation, _ kiosk.Instrument) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.called("StopReservation")
	if a.StopErr != nil {
		return a.StopErr
	}
	a.Stopped = append(a.Stopped, r)
	return nil
}

var _ kiosk.API = (*API)(nil)
