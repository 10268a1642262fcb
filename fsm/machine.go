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

// Package fsm drives the kiosk session lifecycle: it waits for a card,
// verifies the user and the reservation, supervises the running session
// and ends it on timeout or on request.
package fsm

import (
	"context"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/audit"
	"github.com/ZaparooProject/go-labkiosk/gesture"
	"github.com/ZaparooProject/go-labkiosk/guard"
	"github.com/rs/zerolog/log"
)

// Audit notes
const (
	noteExtendedByUser = "Extended by user"
	noteEndedByUser    = "Ended by user"
	noteEndedByTimeout = "Ended by timeout"
)

// Screens are the user-facing messages the machine shows.
type Screens interface {
	guard.Reporter
	gesture.Progress
	Starting(ctx context.Context)
	InitialLogs(ctx context.Context, at time.Time, ip string, in kiosk.Instrument)
	ConnectionRestored(ctx context.Context)
	Welcome(ctx context.Context, instrumentName string)
	CheckingUser(ctx context.Context)
	UserOK(ctx context.Context, name string)
	UserNotFound(ctx context.Context)
	CheckingReservation(ctx context.Context)
	ReservationOK(ctx context.Context)
	ReservationNotFound(ctx context.Context)
	InReservation(ctx context.Context, remaining int)
	EndWarning(ctx context.Context, remaining int)
	ExtendNotYet(ctx context.Context)
	Extended(ctx context.Context)
	SessionEnded(ctx context.Context)
}

// Deps are the collaborators of a Machine. Prober may be nil, in which
// case Init trusts the current connectivity flag.
type Deps struct {
	API     kiosk.API
	Reader  kiosk.CardReader
	Host    kiosk.Host
	Prober  kiosk.Prober
	Screens Screens
	Guard   *guard.Guard
	Audit   *audit.Logger
	Version string
	Buttons []gesture.Binding
}

// Config holds the machine timing and thresholds
type Config struct {
	Gesture *gesture.Config
	// PollTimeout is how long InReservation waits for a gesture request
	// before refreshing the remaining time.
	PollTimeout time.Duration
	// RetryDelay is the pause before Init tries again.
	RetryDelay time.Duration
	// OfflinePoll is how often Offline re-checks connectivity.
	OfflinePoll time.Duration
	// WarningMinutes is the remaining time at which the end warning fires.
	WarningMinutes int
	// ExtendThreshold is the remaining time from which an extension is
	// refused as premature.
	ExtendThreshold int
}

// DefaultConfig returns the default machine configuration
func DefaultConfig() *Config {
	return &Config{
		Gesture:         gesture.DefaultConfig(),
		PollTimeout:     500 * time.Millisecond,
		RetryDelay:      5 * time.Second,
		OfflinePoll:     3 * time.Second,
		WarningMinutes:  5,
		ExtendThreshold: 14,
	}
}

// Machine is the session state machine
type Machine struct {
	session *kiosk.Session
	deps    Deps
	config  *Config
	now     func() time.Time
}

// New creates a machine. A nil config uses DefaultConfig; a nil audit
// logger writes nowhere.
func New(session *kiosk.Session, deps Deps, config *Config) *Machine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Gesture == nil {
		config.Gesture = gesture.DefaultConfig()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewLogger(nil, nil)
	}
	return &Machine{
		session: session,
		deps:    deps,
		config:  config,
		now:     time.Now,
	}
}

// Run evaluates states starting at Init until ctx is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	state := StateInit
	log.Info().Stringer("state", state).Msg("state machine started")
	for {
		if err := ctx.Err(); err != nil {
			log.Info().Stringer("state", state).Msg("state machine stopped")
			return err
		}
		next := m.Step(ctx, state)
		if next != state {
			log.Info().Stringer("from", state).Stringer("to", next).Msg("state transition")
		}
		state = next
	}
}

// Step evaluates state once and returns the next state. It always
// returns a valid state; an unknown state leads to WaitingForCard.
func (m *Machine) Step(ctx context.Context, state State) State {
	switch state {
	case StateInit:
		return m.initialize(ctx)
	case StateWaitingForCard:
		return m.waitForCard(ctx)
	case StateVerifyUser:
		return m.verifyUser(ctx)
	case StateVerifyReservation:
		return m.verifyReservation(ctx)
	case StateInReservation:
		return m.inReservation(ctx)
	case StateExtendReservation:
		return m.extendReservation(ctx)
	case StateUserStopReservation:
		return m.stopReservation(ctx)
	case StateTimeOut:
		return m.timeOut(ctx)
	case StateOffline:
		return m.offline(ctx)
	default:
		log.Warn().Stringer("state", state).Msg("unknown state, waiting for card")
		return StateWaitingForCard
	}
}

func (m *Machine) initialize(ctx context.Context) State {
	m.deps.Screens.Starting(ctx)

	if m.deps.Prober != nil {
		online := m.deps.Prober.Probe(ctx)
		m.session.WithLock(func() { m.session.SetOnline(online) })
		log.Info().Bool("online", online).Msg("initial connectivity check")
	}

	mac, ip := m.deps.Host.MAC(), m.deps.Host.IP()
	in, ok := guard.Call(ctx, m.deps.Guard, "FetchInstrument",
		func(ctx context.Context, cred kiosk.Credential) (kiosk.Instrument, error) {
			return m.deps.API.FetchInstrument(ctx, cred, mac, ip)
		})
	if !ok {
		log.Warn().Dur("retry_in", m.config.RetryDelay).Msg("initialization failed")
		_ = kiosk.Sleep(ctx, m.config.RetryDelay)
		return StateInit
	}
	if in.MACAddress == "" {
		in.MACAddress = mac
	}
	if in.IP == "" {
		in.IP = ip
	}
	m.session.SetInstrument(in)
	log.Info().Str("instrument", in.Name).Str("mac", in.MACAddress).Str("ip", in.IP).Msg("instrument registered")

	m.deps.Screens.InitialLogs(ctx, m.now(), in.IP, in)

	a := m.deps.Audit
	a.Open(ctx, in.MACAddress, in.Name)
	a.LogEntry(ctx, m.now())
	a.IP(ctx, in.IP)
	a.Instrument(ctx, in.Name)
	if m.deps.Version != "" {
		a.Version(ctx, m.deps.Version)
	}
	return StateWaitingForCard
}

func (m *Machine) waitForCard(ctx context.Context) State {
	if !m.session.Online() {
		return StateOffline
	}

	m.deps.Screens.Welcome(ctx, m.session.Instrument().Name)
	card, ok := m.deps.Reader.ReadCard(ctx)
	if !ok {
		return StateWaitingForCard
	}
	log.Info().Str("card", card).Msg("card scanned")
	m.session.SetCardID(card)
	return StateVerifyUser
}

func (m *Machine) verifyUser(ctx context.Context) State {
	card := m.session.CardID()
	if card == "" {
		return StateWaitingForCard
	}
	m.deps.Screens.CheckingUser(ctx)

	user, ok := guard.Call(ctx, m.deps.Guard, "FetchUser",
		func(ctx context.Context, cred kiosk.Credential) (kiosk.User, error) {
			return m.deps.API.FetchUser(ctx, cred, card)
		})

	a := m.deps.Audit
	a.NewRow()
	a.LogEntry(ctx, m.now())
	a.Token(ctx, m.session.Credential().Expiration)

	if !ok {
		log.Info().Str("card", card).Msg("card holder unknown")
		m.deps.Screens.UserNotFound(ctx)
		a.UserInfo(ctx, card)
		m.session.SetCardID("")
		return StateWaitingForCard
	}

	if user.CardID == "" {
		user.CardID = card
	}
	m.session.SetUser(&user)
	log.Info().Str("user", user.FullName).Msg("card holder verified")
	a.UserInfo(ctx, user.FullName)
	m.deps.Screens.UserOK(ctx, user.Name)
	return StateVerifyReservation
}

func (m *Machine) verifyReservation(ctx context.Context) State {
	user := m.session.User()
	if user == nil {
		return StateWaitingForCard
	}
	m.deps.Screens.CheckingReservation(ctx)

	in := m.session.Instrument()
	start, ok := guard.Call(ctx, m.deps.Guard, "StartOrExtendReservation",
		func(ctx context.Context, cred kiosk.Credential) (kiosk.ReservationStart, error) {
			return m.deps.API.StartOrExtendReservation(ctx, cred, *user, in)
		})
	if !ok {
		m.deps.Screens.ReservationNotFound(ctx)
		m.session.EndSession()
		return StateWaitingForCard
	}

	r := kiosk.NewReservation(start.ReservationID, start.RecordingID, start.Remaining)
	m.session.SetReservation(r)
	log.Info().
		Str("reservation", r.ID).
		Str("session", r.SessionID).
		Int("remaining", r.Remaining).
		Msg("reservation started")

	m.deps.Screens.ReservationOK(ctx)
	m.deps.Audit.RecordingStart(ctx, m.now(), r.ID)
	return StateInReservation
}

func (m *Machine) inReservation(ctx context.Context) State {
	requests := make(chan gesture.Request)
	detectorCtx, cancel := context.WithCancel(ctx)
	detector := gesture.NewDetector(m.session, m.deps.Buttons, m.deps.Screens, m.config.Gesture)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = detector.Run(detectorCtx, requests)
	}()
	defer func() {
		cancel()
		<-done
	}()

	timer := time.NewTimer(m.config.PollTimeout)
	defer timer.Stop()

	for {
		r := m.session.Reservation()
		switch {
		case r == nil || r.EndedByUser:
			return StateWaitingForCard
		case r.Expired():
			return StateTimeOut
		}

		timer.Reset(m.config.PollTimeout)
		select {
		case <-ctx.Done():
			return StateInReservation
		case req := <-requests:
			log.Info().Stringer("request", req).Msg("gesture confirmed")
			switch req {
			case gesture.RequestStop:
				return StateUserStopReservation
			case gesture.RequestExtend:
				return StateExtendReservation
			}
			continue
		case <-timer.C:
		}

		if m.session.GestureBusy() {
			continue
		}
		m.refresh(ctx, r)
	}
}

// refresh shows the remaining time, fetches the current value from the
// backend and fires the end warning once.
func (m *Machine) refresh(ctx context.Context, r *kiosk.Reservation) {
	m.session.WithLock(func() {
		m.deps.Screens.InReservation(ctx, r.Remaining)
	})

	remaining, ok := guard.Call(ctx, m.deps.Guard, "FetchReservationStatus",
		func(ctx context.Context, cred kiosk.Credential) (int, error) {
			return m.deps.API.FetchReservationStatus(ctx, cred, *r)
		})
	if ok {
		m.session.UpdateReservation(func(r *kiosk.Reservation) { r.SetRemaining(remaining) })
		log.Debug().Int("remaining", remaining).Msg("reservation refreshed")
	}

	m.session.WithLock(func() {
		current := m.session.Reservation()
		if current == nil || !current.ShouldWarn(m.config.WarningMinutes) {
			return
		}
		log.Info().Int("remaining", current.Remaining).Msg("reservation ending soon")
		m.deps.Screens.EndWarning(ctx, current.Remaining)
		m.session.UpdateReservation(func(r *kiosk.Reservation) { r.WarningSent = true })
	})
}

func (m *Machine) extendReservation(ctx context.Context) State {
	r := m.session.Reservation()
	user := m.session.User()
	if r == nil || user == nil {
		return StateWaitingForCard
	}

	if r.Remaining >= m.config.ExtendThreshold {
		log.Info().Int("remaining", r.Remaining).Msg("extension refused, too early")
		m.session.WithLock(func() { m.deps.Screens.ExtendNotYet(ctx) })
		return StateInReservation
	}

	in := m.session.Instrument()
	start, ok := guard.Call(ctx, m.deps.Guard, "StartOrExtendReservation",
		func(ctx context.Context, cred kiosk.Credential) (kiosk.ReservationStart, error) {
			return m.deps.API.StartOrExtendReservation(ctx, cred, *user, in)
		})
	if !ok {
		return StateInReservation
	}

	m.session.WithLock(func() {
		m.session.UpdateReservation(func(r *kiosk.Reservation) { r.Extend(start.Remaining) })
		m.deps.Screens.Extended(ctx)
	})
	log.Info().Int("remaining", start.Remaining).Msg("reservation extended")
	m.deps.Audit.RecordingExtended(ctx, m.now(), noteExtendedByUser)
	return StateInReservation
}

func (m *Machine) stopReservation(ctx context.Context) State {
	r := m.session.Reservation()
	if r == nil {
		return StateWaitingForCard
	}

	in := m.session.Instrument()
	ok := guard.Do(ctx, m.deps.Guard, "StopReservation", func(ctx context.Context, cred kiosk.Credential) error {
		return m.deps.API.StopReservation(ctx, cred, *r, in)
	})
	if !ok {
		return StateInReservation
	}

	m.session.WithLock(func() {
		m.session.UpdateReservation(func(r *kiosk.Reservation) { r.EndedByUser = true })
		m.deps.Screens.SessionEnded(ctx)
	})
	log.Info().Str("reservation", r.ID).Msg("reservation ended by user")
	m.deps.Audit.RecordingEnd(ctx, m.now(), noteEndedByUser)
	m.session.EndSession()
	return StateWaitingForCard
}

func (m *Machine) timeOut(ctx context.Context) State {
	m.session.WithLock(func() {
		m.deps.Screens.SessionEnded(ctx)
		m.deps.Audit.RecordingEnd(ctx, m.now(), noteEndedByTimeout)
	})
	log.Info().Msg("reservation ended by timeout")
	m.session.EndSession()
	return StateWaitingForCard
}

func (m *Machine) offline(ctx context.Context) State {
	m.deps.Screens.NoConnection(ctx)
	for !m.session.Online() {
		if err := kiosk.Sleep(ctx, m.config.OfflinePoll); err != nil {
			return StateOffline
		}
	}
	m.deps.Screens.ConnectionRestored(ctx)
	return StateWaitingForCard
}
