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

package button

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-labkiosk/gesture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFakePin() *gpiotest.Pin {
	return &gpiotest.Pin{N: "GPIO16", Num: 16, EdgesChan: make(chan gpio.Level, 4)}
}

func startPin(t *testing.T, p *Pin) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Error("button watcher did not stop")
		}
	})
}

func nextEdge(t *testing.T, ch <-chan gesture.Edge) gesture.Edge {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no edge delivered")
		return gesture.Edge{}
	}
}

func TestNewConfiguresPullUp(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green")
	require.NoError(t, err)

	assert.Equal(t, gesture.ButtonID("green"), p.ID())
	assert.Equal(t, gpio.PullUp, fake.P)
	assert.False(t, p.Held())
}

func TestNewRequiresEdgeSupport(t *testing.T) {
	t.Parallel()

	_, err := New(&gpiotest.Pin{N: "GPIO5"}, "red")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to configure pin")
}

func TestPressAndRelease(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green", WithBounce(0))
	require.NoError(t, err)

	edges := make(chan gesture.Edge, 4)
	unsubscribe := p.Subscribe(edges)
	defer unsubscribe()
	startPin(t, p)

	fake.EdgesChan <- gpio.Low
	e := nextEdge(t, edges)
	assert.Equal(t, gesture.Pressed, e.Kind)
	assert.Equal(t, gesture.ButtonID("green"), e.Button)
	assert.True(t, p.Held())

	fake.EdgesChan <- gpio.High
	e = nextEdge(t, edges)
	assert.Equal(t, gesture.Released, e.Kind)
	assert.False(t, p.Held())
}

func TestBounceFiltered(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "red", WithBounce(time.Hour))
	require.NoError(t, err)

	edges := make(chan gesture.Edge, 4)
	defer p.Subscribe(edges)()
	startPin(t, p)

	fake.EdgesChan <- gpio.Low
	assert.Equal(t, gesture.Pressed, nextEdge(t, edges).Kind)

	fake.EdgesChan <- gpio.High
	assert.Eventually(t, func() bool { return !p.Held() }, time.Second, 5*time.Millisecond)
	select {
	case e := <-edges:
		t.Fatalf("unexpected edge %v", e.Kind)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestBounceResamplesAfterWindow(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green", WithBounce(50*time.Millisecond))
	require.NoError(t, err)

	edges := make(chan gesture.Edge, 4)
	defer p.Subscribe(edges)()

	t0 := time.Now()
	fake.L = gpio.Low
	assert.True(t, p.handleEdge(t0).IsZero())
	assert.Equal(t, gesture.Pressed, nextEdge(t, edges).Kind)

	fake.L = gpio.High
	settleAt := p.handleEdge(t0.Add(20 * time.Millisecond))
	assert.Equal(t, t0.Add(50*time.Millisecond), settleAt)
	assert.Empty(t, edges)

	assert.True(t, p.handleEdge(settleAt).IsZero())
	assert.Equal(t, gesture.Released, nextEdge(t, edges).Kind)

	fake.L = gpio.Low
	p.handleEdge(t0.Add(time.Second))
	assert.Equal(t, gesture.Pressed, nextEdge(t, edges).Kind)
}

func TestShortTapThenLongPress(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green", WithBounce(30*time.Millisecond))
	require.NoError(t, err)

	edges := make(chan gesture.Edge, 4)
	defer p.Subscribe(edges)()
	startPin(t, p)

	fake.EdgesChan <- gpio.Low
	fake.EdgesChan <- gpio.High
	assert.Equal(t, gesture.Pressed, nextEdge(t, edges).Kind)
	assert.Equal(t, gesture.Released, nextEdge(t, edges).Kind, "release inside the window is reported once it closes")

	time.Sleep(40 * time.Millisecond)
	fake.EdgesChan <- gpio.Low
	assert.Equal(t, gesture.Pressed, nextEdge(t, edges).Kind)
	assert.True(t, p.Held())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green", WithBounce(0))
	require.NoError(t, err)

	first := make(chan gesture.Edge, 4)
	second := make(chan gesture.Edge, 4)
	unsubscribe := p.Subscribe(first)
	defer p.Subscribe(second)()
	unsubscribe()
	unsubscribe()
	startPin(t, p)

	fake.EdgesChan <- gpio.Low
	assert.Equal(t, gesture.Pressed, nextEdge(t, second).Kind)
	assert.Empty(t, first)
}

func TestFullSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green", WithBounce(0))
	require.NoError(t, err)

	full := make(chan gesture.Edge)
	defer p.Subscribe(full)()

	p.handleEdge(time.Now())
	fake.L = gpio.Low
	done := make(chan struct{})
	go func() {
		p.handleEdge(time.Now())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleEdge blocked on a full subscriber")
	}
}

func TestHalt(t *testing.T) {
	t.Parallel()

	fake := newFakePin()
	p, err := New(fake, "green")
	require.NoError(t, err)
	require.NoError(t, p.Halt())
}
