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

// Package button reads momentary push buttons wired between a GPIO pin
// and ground, using the internal pull-up.
package button

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-labkiosk/gesture"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// DefaultBounce is the minimum time between two reported edges
	DefaultBounce = 50 * time.Millisecond

	// edgePoll bounds each wait for an edge so Run notices cancellation
	edgePoll = 100 * time.Millisecond
)

// Option configures a Pin
type Option func(*Pin)

// WithBounce sets the bounce filter window. Zero disables it.
func WithBounce(d time.Duration) Option {
	return func(p *Pin) {
		p.bounce = d
	}
}

// Pin is a push button on a GPIO line. It implements gesture.Button.
type Pin struct {
	lastEdge time.Time
	pin      gpio.PinIO
	subs     map[int]chan<- gesture.Edge
	id       gesture.ButtonID
	bounce   time.Duration
	nextSub  int
	mu       sync.Mutex
	lastHeld bool
}

// Open initializes the host and opens the named GPIO line (for example
// "GPIO16").
func Open(name string, id gesture.ButtonID, opts ...Option) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("GPIO pin %s not found", name)
	}
	return New(p, id, opts...)
}

// New configures pin as a pulled-up input with edge detection.
func New(pin gpio.PinIO, id gesture.ButtonID, opts ...Option) (*Pin, error) {
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("failed to configure pin %s: %w", pin, err)
	}
	p := &Pin{
		pin:      pin,
		id:       id,
		bounce:   DefaultBounce,
		subs:     make(map[int]chan<- gesture.Edge),
		lastHeld: pin.Read() == gpio.Low,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ID returns the button name
func (p *Pin) ID() gesture.ButtonID {
	return p.id
}

// Held reports whether the button is pressed right now.
func (p *Pin) Held() bool {
	return p.pin.Read() == gpio.Low
}

// Subscribe delivers edges to ch until the returned function is called.
// Delivery never blocks.
func (p *Pin) Subscribe(ch chan<- gesture.Edge) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
		})
	}
}

// Run waits for edges and fans them out to subscribers until ctx is
// cancelled. A level change inside the bounce window is re-sampled once
// the window closes.
func (p *Pin) Run(ctx context.Context) error {
	logger := log.With().Str("button", string(p.id)).Logger()
	logger.Debug().Msg("button watcher started")

	var settleAt time.Time
	for {
		if err := ctx.Err(); err != nil {
			logger.Debug().Msg("button watcher stopped")
			return err
		}
		wait := edgePoll
		if !settleAt.IsZero() {
			wait = min(max(time.Until(settleAt), 0), edgePoll)
		}
		if p.pin.WaitForEdge(wait) || (!settleAt.IsZero() && !time.Now().Before(settleAt)) {
			settleAt = p.handleEdge(time.Now())
		}
	}
}

// handleEdge publishes the current level if it differs from the last one
// reported. Inside the bounce window nothing is published and the end of
// the window is returned so the caller can sample again.
func (p *Pin) handleEdge(now time.Time) (settleAt time.Time) {
	held := p.Held()

	p.mu.Lock()
	defer p.mu.Unlock()

	if held == p.lastHeld {
		return time.Time{}
	}
	if p.bounce > 0 && !p.lastEdge.IsZero() && now.Sub(p.lastEdge) < p.bounce {
		return p.lastEdge.Add(p.bounce)
	}
	p.lastHeld = held
	p.lastEdge = now

	e := gesture.Edge{At: now, Button: p.id, Kind: gesture.Released}
	if held {
		e.Kind = gesture.Pressed
	}
	for _, ch := range p.subs {
		select {
		case ch <- e:
		default:
			log.Debug().Str("button", string(p.id)).Msg("edge dropped, subscriber busy")
		}
	}
	return time.Time{}
}

// Halt stops edge detection on the pin.
func (p *Pin) Halt() error {
	if err := p.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("failed to disable edge detection: %w", err)
	}
	return nil
}

var _ gesture.Button = (*Pin)(nil)
