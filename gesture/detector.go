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

// Package gesture turns long button presses into stop and extend requests.
package gesture

import (
	"context"
	"sync"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// edgeBuffer is the capacity of the detector-owned edge channel
const edgeBuffer = 8

// Detector watches the bound buttons for long presses. It runs for the
// lifetime of an active reservation.
//
// At most one gesture is evaluated at a time: evaluation holds the
// session gesture lock. Presses arriving while the lock is held, while
// the device is offline, or while buttons are blocked are ignored.
type Detector struct {
	session  *kiosk.Session
	progress Progress
	config   *Config
	bindings map[ButtonID]Binding
	wg       sync.WaitGroup
}

// NewDetector creates a detector for the given bindings. A nil config
// uses DefaultConfig.
func NewDetector(session *kiosk.Session, bindings []Binding, progress Progress, config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	byID := make(map[ButtonID]Binding, len(bindings))
	for _, b := range bindings {
		byID[b.Button.ID()] = b
	}
	return &Detector{
		session:  session,
		progress: progress,
		config:   config,
		bindings: byID,
	}
}

// Run subscribes to every bound button and sends confirmed requests to
// out until ctx is cancelled. On return all subscriptions are released
// and no evaluation is left running.
func (d *Detector) Run(ctx context.Context, out chan<- Request) error {
	edges := make(chan Edge, edgeBuffer)
	unsubscribe := make([]func(), 0, len(d.bindings))
	for _, b := range d.bindings {
		unsubscribe = append(unsubscribe, b.Button.Subscribe(edges))
	}
	defer func() {
		for _, unsub := range unsubscribe {
			unsub()
		}
		d.wg.Wait()
		log.Debug().Msg("gesture detector stopped")
	}()

	log.Debug().Int("buttons", len(d.bindings)).Msg("gesture detector started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-edges:
			if e.Kind != Pressed {
				continue
			}
			d.onPress(ctx, e, out)
		}
	}
}

func (d *Detector) onPress(ctx context.Context, e Edge, out chan<- Request) {
	b, ok := d.bindings[e.Button]
	if !ok {
		return
	}
	logger := log.With().Str("button", string(e.Button)).Str("label", b.Label).Logger()

	if d.session.GestureBusy() {
		logger.Debug().Msg("press ignored, another gesture in progress")
		return
	}
	if !d.session.Online() || d.session.ButtonsBlocked() {
		logger.Debug().Msg("press ignored, offline or buttons blocked")
		return
	}
	if !d.session.TryLockGesture() {
		logger.Debug().Msg("press ignored, another gesture in progress")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.session.UnlockGesture()
		if req, ok := d.evaluate(ctx, b); ok {
			select {
			case out <- req:
				logger.Info().Stringer("request", req).Msg("long press confirmed")
			case <-ctx.Done():
			}
		}
	}()
}

// evaluate follows one press through debounce and the full hold.
func (d *Detector) evaluate(ctx context.Context, b Binding) (Request, bool) {
	logger := log.With().Str("button", string(b.Button.ID())).Logger()

	if err := kiosk.Sleep(ctx, d.config.Debounce); err != nil {
		return 0, false
	}
	if !b.Button.Held() {
		logger.Debug().Msg("false press, not held after debounce")
		return 0, false
	}

	steps := d.config.Steps()
	for i := 0; i < steps; i++ {
		if !b.Button.Held() {
			logger.Debug().Int("step", i).Msg("released early")
			return 0, false
		}
		if d.progress != nil {
			d.progress.GestureProgress(ctx, b.Label, ProgressBar(i+1, steps))
		}
		if err := kiosk.Sleep(ctx, d.config.Step); err != nil {
			return 0, false
		}
	}

	if !b.Button.Held() {
		logger.Debug().Msg("released at threshold")
		return 0, false
	}
	return b.Request, true
}
