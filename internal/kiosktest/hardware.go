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
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/gesture"
)

// Reader hands out queued card ids, one per ReadCard call. An empty queue
// waits Poll and reports no card.
type Reader struct {
	cards []string
	Poll  time.Duration
	mu    sync.Mutex
	reads int
}

// NewReader creates a reader with cards queued
func NewReader(cards ...string) *Reader {
	return &Reader{cards: cards, Poll: 5 * time.Millisecond}
}

// Push queues a card
func (r *Reader) Push(card string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = append(r.cards, card)
}

// Reads returns how often ReadCard was called
func (r *Reader) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *Reader) ReadCard(ctx context.Context) (string, bool) {
	r.mu.Lock()
	r.reads++
	if len(r.cards) > 0 {
		card := r.cards[0]
		r.cards = r.cards[1:]
		r.mu.Unlock()
		return card, true
	}
	poll := r.Poll
	r.mu.Unlock()

	_ = kiosk.Sleep(ctx, poll)
	return "", false
}

// Button is a push button driven by the test.
type Button struct {
	subs   map[int]chan<- gesture.Edge
	id     gesture.ButtonID
	nextID int
	mu     sync.Mutex
	held   bool
}

// NewButton creates a released button
func NewButton(id gesture.ButtonID) *Button {
	return &Button{id: id, subs: make(map[int]chan<- gesture.Edge)}
}

func (b *Button) ID() gesture.ButtonID { return b.id }

func (b *Button) Held() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.held
}

func (b *Button) Subscribe(ch chan<- gesture.Edge) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Subscribers returns the number of live subscriptions
func (b *Button) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Press holds the button and emits a press edge.
func (b *Button) Press() {
	b.set(true, gesture.Pressed)
}

// Release lets go of the button and emits a release edge.
func (b *Button) Release() {
	b.set(false, gesture.Released)
}

func (b *Button) set(held bool, kind gesture.EdgeKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = held
	e := gesture.Edge{At: time.Now(), Button: b.id, Kind: kind}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Prober returns scripted reachability results; the last one repeats.
type Prober struct {
	results []bool
	mu      sync.Mutex
	probes  int
}

// NewProber creates a prober answering results in order
func NewProber(results ...bool) *Prober {
	if len(results) == 0 {
		results = []bool{true}
	}
	return &Prober{results: results}
}

// Set replaces the scripted results
func (p *Prober) Set(results ...bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = results
}

// Probes returns how often Probe was called
func (p *Prober) Probes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

func (p *Prober) Probe(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	if len(p.results) == 0 {
		return false
	}
	ok := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return ok
}

// Host is a fixed network identity
type Host struct {
	Addr string
	Hw   string
}

func (h Host) MAC() string { return h.Hw }
func (h Host) IP() string  { return h.Addr }

var (
	_ kiosk.CardReader = (*Reader)(nil)
	_ gesture.Button   = (*Button)(nil)
	_ kiosk.Prober     = (*Prober)(nil)
	_ kiosk.Host       = Host{}
)
