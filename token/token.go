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

// Package token caches the backend credential on disk and renews it
// before it expires.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// DefaultBuffer is how close to expiry a credential may get before it is
// replaced.
const DefaultBuffer = 5 * time.Minute

// Issuer mints fresh credentials.
type Issuer interface {
	FetchToken(ctx context.Context) (kiosk.Credential, error)
}

// Manager hands out a credential that is valid for at least Buffer.
type Manager struct {
	store  Store
	issuer Issuer
	now    func() time.Time
	buffer time.Duration
	stale  atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuffer overrides the expiry buffer.
func WithBuffer(d time.Duration) Option {
	return func(m *Manager) {
		m.buffer = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager persisting to store and renewing from issuer.
func NewManager(store Store, issuer Issuer, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		issuer: issuer,
		buffer: DefaultBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Verify returns the persisted credential when it is still usable, and
// otherwise fetches and persists a new one. A failure to persist is logged
// and the fresh credential is still returned.
func (m *Manager) Verify(ctx context.Context) (kiosk.Credential, error) {
	cred, err := m.store.Load()
	stale := m.stale.Swap(false)
	switch {
	case err == nil && stale:
		log.Info().Msg("credential rejected by backend, renewing")
	case err == nil && cred.ValidFor(m.now(), m.buffer):
		return cred, nil
	case err == nil:
		log.Info().Time("expiration", cred.Expiration).Msg("credential expiring, renewing")
	case errors.Is(err, kiosk.ErrCredentialMissing):
		log.Info().Msg("no credential stored, fetching")
	default:
		log.Warn().Err(err).Msg("stored credential unusable, fetching")
	}

	fresh, err := m.issuer.FetchToken(ctx)
	if err != nil {
		if stale {
			m.stale.Store(true)
		}
		return kiosk.Credential{}, fmt.Errorf("failed to fetch credential: %w", err)
	}
	if fresh.IsZero() {
		return kiosk.Credential{}, fmt.Errorf("failed to fetch credential: %w", kiosk.ErrMalformedResponse)
	}

	if err := m.store.Save(fresh); err != nil {
		log.Warn().Err(err).Msg("failed to persist credential")
	} else {
		log.Debug().Time("expiration", fresh.Expiration).Msg("credential saved")
	}
	return fresh, nil
}

// Invalidate makes the next Verify fetch a new credential even when the
// stored one has not expired, for example after the backend answered 401.
func (m *Manager) Invalidate() {
	m.stale.Store(true)
}
