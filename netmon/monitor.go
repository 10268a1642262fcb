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

// Package netmon watches internet reachability and flips the session
// connectivity flag with hysteresis.
package netmon

import (
	"context"
	"sync"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// Notifier is told about connectivity changes. It is called while the
// session general lock is held.
type Notifier interface {
	ConnectionLost(ctx context.Context)
	ConnectionRestored(ctx context.Context)
}

// Monitor periodically probes connectivity and updates the session
type Monitor struct {
	session  *kiosk.Session
	prober   kiosk.Prober
	notifier Notifier
	config   *Config
	link     *Link
	mu       sync.Mutex
}

// NewMonitor creates a new connectivity monitor
func NewMonitor(session *kiosk.Session, prober kiosk.Prober, notifier Notifier, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		session:  session,
		prober:   prober,
		notifier: notifier,
		config:   config,
		link:     NewLink(config.FailureThreshold),
	}
}

// Run checks connectivity every Interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", m.config.Interval).
		Int("threshold", m.config.FailureThreshold).
		Msg("connectivity monitor started")
	defer log.Info().Msg("connectivity monitor stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.Check(ctx)

		if err := kiosk.Sleep(ctx, m.config.Interval); err != nil {
			return err
		}
	}
}

// Check runs one probe and applies its result.
func (m *Monitor) Check(ctx context.Context) Transition {
	ok := m.prober.Probe(ctx)
	if ctx.Err() != nil {
		return NoChange
	}
	return m.Observe(ctx, ok)
}

// Observe applies one probe result to the session.
func (m *Monitor) Observe(ctx context.Context, ok bool) Transition {
	m.mu.Lock()
	tr := m.link.Observe(m.session.Online(), ok)
	failures := m.link.Failures()
	m.mu.Unlock()

	switch tr {
	case WentOffline:
		log.Warn().Int("failures", failures).Msg("connection lost")
		m.session.WithLock(func() {
			m.session.SetOnline(false)
			if m.notifier != nil {
				m.notifier.ConnectionLost(ctx)
			}
		})
	case CameOnline:
		log.Info().Msg("connection restored")
		m.session.WithLock(func() {
			m.session.SetOnline(true)
			if m.notifier != nil {
				m.notifier.ConnectionRestored(ctx)
			}
		})
	default:
		if !ok {
			log.Debug().Int("failures", failures).Msg("connectivity check failed")
		}
	}
	return tr
}
