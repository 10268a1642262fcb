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

// Package reader turns raw card UIDs into the normalized card ids the
// backend knows, filtering repeated reads of a card left on the reader.
package reader

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// DefaultCooldown is how long the same card is ignored after a read
const DefaultCooldown = 2 * time.Second

// UIDSource polls for a card in the field. It returns kiosk.ErrNoCard
// when the field is empty.
type UIDSource interface {
	ReadUID(ctx context.Context) ([]byte, error)
}

// Reader implements kiosk.CardReader on top of a UIDSource.
type Reader struct {
	source   UIDSource
	now      func() time.Time
	lastRead time.Time
	lastID   string
	cooldown time.Duration
	mu       sync.Mutex
}

// Option configures a Reader
type Option func(*Reader)

// WithCooldown overrides the duplicate-read cooldown
func WithCooldown(d time.Duration) Option {
	return func(r *Reader) {
		r.cooldown = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Reader) {
		r.now = now
	}
}

// New creates a Reader over source
func New(source UIDSource, opts ...Option) *Reader {
	r := &Reader{
		source:   source,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadCard returns a freshly presented card id. The same card read again
// within the cooldown of its last accepted read is reported as absent.
// Read errors are logged and reported as absent.
func (r *Reader) ReadCard(ctx context.Context) (string, bool) {
	uid, err := r.source.ReadUID(ctx)
	if err != nil {
		if !errors.Is(err, kiosk.ErrNoCard) && ctx.Err() == nil {
			log.Debug().Err(err).Msg("card read failed")
		}
		return "", false
	}

	id, err := NormalizeUID(uid)
	if err != nil {
		log.Warn().Err(err).Msg("unusable card uid")
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if id == r.lastID && now.Sub(r.lastRead) <= r.cooldown {
		return "", false
	}
	r.lastID = id
	r.lastRead = now
	log.Info().Str("card", id).Msg("card read")
	return id, true
}

// NormalizeUID renders a UID the way it is printed on the card: 4-byte
// UIDs as their little-endian value in 10 zero-padded decimal digits,
// anything longer as upper-case hex.
func NormalizeUID(uid []byte) (string, error) {
	switch {
	case len(uid) == 0:
		return "", fmt.Errorf("%w: empty uid", kiosk.ErrNoCard)
	case len(uid) == 4:
		return fmt.Sprintf("%010d", binary.LittleEndian.Uint32(uid)), nil
	default:
		return strings.ToUpper(fmt.Sprintf("%x", uid)), nil
	}
}
