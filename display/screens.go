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

package display

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// Phrases greet a recognized user.
var Phrases = []string{
	"Push the boundaries!",
	"Unleash your genius!",
	"Answers lie ahead!",
	"Discovery awaits!",
	"Keep exploring!",
	"Truth is out there!",
	"Find the unknown!",
}

// Screens is the catalogue of everything the kiosk ever shows.
type Screens struct {
	display *Display
	pick    func(n int) int
}

// NewScreens creates the screen catalogue on top of d.
func NewScreens(d *Display) *Screens {
	return &Screens{display: d, pick: rand.IntN}
}

func (s *Screens) show(ctx context.Context, name string, msg Message) {
	if err := s.display.Show(ctx, msg); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("screen", name).Msg("failed to show screen")
	}
}

// Starting is shown once at boot.
func (s *Screens) Starting(ctx context.Context) {
	s.show(ctx, "starting", Text("Starting...").WithHold(100*time.Millisecond))
}

// InitialLogs shows the startup diagnostics.
func (s *Screens) InitialLogs(ctx context.Context, at time.Time, ip string, in kiosk.Instrument) {
	s.show(ctx, "initial-logs", Text(
		"Initial logs:",
		at.Format("2006-01-02 15:04:05"),
		ip,
		in.Name,
	))
}

// NoConnection tells the user the device is waiting for the network.
func (s *Screens) NoConnection(ctx context.Context) {
	s.show(ctx, "no-connection", Text("Device is OFFLINE.", "Please wait.", "Reconnecting..."))
}

// ConnectionLost is shown when the monitor declares the device offline.
func (s *Screens) ConnectionLost(ctx context.Context) {
	s.NoConnection(ctx)
}

// ConnectionRestored is shown when the device comes back online.
func (s *Screens) ConnectionRestored(ctx context.Context) {
	s.show(ctx, "connection-restored", Text("Device is ONLINE.", "Resuming session..."))
}

// Welcome invites the user to scan a card.
func (s *Screens) Welcome(ctx context.Context, instrumentName string) {
	s.show(ctx, "welcome", Text("Welcome at", instrumentName, "Please log in", "with your card").
		WithHold(500*time.Millisecond))
}

// CheckingUser is shown while the card holder is looked up.
func (s *Screens) CheckingUser(ctx context.Context) {
	s.show(ctx, "checking-user", Text("Checking user..."))
}

// UserOK greets the card holder.
func (s *Screens) UserOK(ctx context.Context, name string) {
	phrase := Phrases[s.pick(len(Phrases))]
	s.show(ctx, "user-ok", Text("Hi "+name, phrase))
}

// UserNotFound is shown for cards the backend does not know.
func (s *Screens) UserNotFound(ctx context.Context) {
	s.show(ctx, "user-not-found", Text("Card not registered.", "Please register it."))
}

// CheckingReservation is shown while a reservation is requested.
func (s *Screens) CheckingReservation(ctx context.Context) {
	s.show(ctx, "checking-reservation", Text("Checking reservation"))
}

// ReservationOK is shown when the session starts.
func (s *Screens) ReservationOK(ctx context.Context) {
	s.show(ctx, "reservation-ok", Text("Reservation found.", "Starting session..."))
}

// ReservationNotFound is shown when the user has no reservation soon.
func (s *Screens) ReservationNotFound(ctx context.Context) {
	s.show(ctx, "reservation-not-found", Text("No reservation", "in next 30 minutes.", "Please make one."))
}

// InReservation shows the remaining time and the button legend with the
// backlight off.
func (s *Screens) InReservation(ctx context.Context, remaining int) {
	s.show(ctx, "in-reservation", Text(
		"Remaining time:",
		fmt.Sprintf("%d minutes", remaining),
		"Extend -> Hold Green",
		"Stop -> Hold Red",
	).WithHold(5*time.Second).WithBacklight(false))
}

// EndWarning flashes the backlight and announces the approaching end.
func (s *Screens) EndWarning(ctx context.Context, remaining int) {
	if err := s.display.Flash(ctx, 300*time.Millisecond, 5); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("failed to flash display")
	}
	s.show(ctx, "end-warning", Text(
		"Session will end in",
		fmt.Sprintf("%d minutes.", remaining),
		"Extend -> Hold green",
		"Stop -> Hold red",
	).WithHold(5*time.Second))
}

// ExtendNotYet explains that extension is only possible near the end.
func (s *Screens) ExtendNotYet(ctx context.Context) {
	s.show(ctx, "extend-not-yet", Text("Session can be", "extended only", "15 minutes", "before its end."))
}

// Extended confirms a successful extension.
func (s *Screens) Extended(ctx context.Context) {
	s.show(ctx, "extended", Text("Your session", "was extended", "by 15 minutes.").WithHold(5*time.Second))
}

// SessionEnded is shown when a session ends, by timeout or by the user.
func (s *Screens) SessionEnded(ctx context.Context) {
	s.show(ctx, "session-ended", Text("Your session ended.", "See you next time."))
}

// Error shows a failed operation and its message split over two rows.
func (s *Screens) Error(ctx context.Context, op string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	runes := []rune(msg)
	first, second := string(runes), ""
	if len(runes) > Cols {
		first, second = string(runes[:Cols]), string(runes[Cols:])
	}
	s.show(ctx, "error", Text("F:"+Truncate(op, Cols-2), first, second).WithHold(5*time.Second))
}

// GestureProgress shows the hold progress of a button gesture.
func (s *Screens) GestureProgress(ctx context.Context, label, bar string) {
	s.show(ctx, "gesture-progress", Text(label, bar).WithHold(0))
}

// ShowAll cycles through every screen with sample data. It is a bring-up
// aid for new hardware.
func (s *Screens) ShowAll(ctx context.Context) {
	sample := kiosk.Instrument{Name: "TEST INSTRUMENT"}
	steps := []func(){
		func() { s.Starting(ctx) },
		func() { s.InitialLogs(ctx, time.Now(), "192.0.2.10", sample) },
		func() { s.NoConnection(ctx) },
		func() { s.ConnectionRestored(ctx) },
		func() { s.Welcome(ctx, sample.Name) },
		func() { s.CheckingUser(ctx) },
		func() { s.UserOK(ctx, "Tester") },
		func() { s.UserNotFound(ctx) },
		func() { s.CheckingReservation(ctx) },
		func() { s.ReservationOK(ctx) },
		func() { s.ReservationNotFound(ctx) },
		func() { s.InReservation(ctx, 42) },
		func() { s.EndWarning(ctx, 5) },
		func() { s.ExtendNotYet(ctx) },
		func() { s.Extended(ctx) },
		func() { s.SessionEnded(ctx) },
		func() { s.Error(ctx, "ShowAll", errors.New("sample error message that spans two rows")) },
		func() { s.GestureProgress(ctx, "Extending...", "[#########         ]") },
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return
		}
		step()
	}
}
