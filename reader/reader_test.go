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

package reader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	reads []func() ([]byte, error)
	mu    sync.Mutex
	i     int
}

func (s *scriptedSource) ReadUID(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i >= len(s.reads) {
		return nil, kiosk.ErrNoCard
	}
	fn := s.reads[s.i]
	s.i++
	return fn()
}

func uid(b ...byte) func() ([]byte, error) {
	return func() ([]byte, error) { return b, nil }
}

func fail(err error) func() ([]byte, error) {
	return func() ([]byte, error) { return nil, err }
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestNormalizeUID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		uid  []byte
	}{
		{name: "four byte uid reversed", uid: []byte{0x00, 0xBC, 0x61, 0x4E}, want: "1315027968"},
		{name: "small value zero padded", uid: []byte{0x01, 0x00, 0x00, 0x00}, want: "0000000001"},
		{name: "max value", uid: []byte{0xFF, 0xFF, 0xFF, 0xFF}, want: "4294967295"},
		{name: "seven byte uid hex", uid: []byte{0x04, 0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0x80}, want: "04A1B2C3D4E580"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeUID(tt.uid)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeUID(nil)
	require.ErrorIs(t, err, kiosk.ErrNoCard)
}

func TestReadCard_Cooldown(t *testing.T) {
	t.Parallel()

	card := []byte{0x01, 0x02, 0x03, 0x04}
	other := []byte{0x05, 0x06, 0x07, 0x08}
	src := &scriptedSource{reads: []func() ([]byte, error){
		uid(card...), uid(card...), uid(card...), uid(other...), uid(card...),
	}}
	clock := &fakeClock{now: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	r := New(src, WithClock(clock.Now))
	ctx := context.Background()

	id, ok := r.ReadCard(ctx)
	require.True(t, ok)
	assert.Equal(t, "0067305985", id)

	clock.Advance(time.Second)
	_, ok = r.ReadCard(ctx)
	assert.False(t, ok, "same card inside cooldown is ignored")

	// Ignored reads do not extend the window opened by the accepted one.
	clock.Advance(1500 * time.Millisecond)
	id, ok = r.ReadCard(ctx)
	assert.True(t, ok, "same card accepted once the cooldown has passed")
	assert.Equal(t, "0067305985", id)

	clock.Advance(10 * time.Millisecond)
	_, ok = r.ReadCard(ctx)
	assert.True(t, ok, "a different card is accepted immediately")

	_, ok = r.ReadCard(ctx)
	assert.True(t, ok, "switching back to the first card is a new card")
}

func TestReadCard_CardLeftOnReader(t *testing.T) {
	t.Parallel()

	card := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	reads := make([]func() ([]byte, error), 6)
	for i := range reads {
		reads[i] = uid(card...)
	}
	clock := &fakeClock{now: time.Now()}
	r := New(&scriptedSource{reads: reads}, WithClock(clock.Now), WithCooldown(time.Second))

	accepted := 0
	for range reads {
		if _, ok := r.ReadCard(context.Background()); ok {
			accepted++
		}
		clock.Advance(400 * time.Millisecond)
	}
	// reads at 0, 0.4, 0.8, 1.2, 1.6, 2.0s: accepted at 0 and 1.2s
	assert.Equal(t, 2, accepted)
}

func TestReadCard_AcceptsSameCardAfterCooldown(t *testing.T) {
	t.Parallel()

	card := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	src := &scriptedSource{reads: []func() ([]byte, error){uid(card...), uid(card...)}}
	clock := &fakeClock{now: time.Now()}
	r := New(src, WithClock(clock.Now), WithCooldown(time.Second))

	_, ok := r.ReadCard(context.Background())
	require.True(t, ok)
	clock.Advance(1100 * time.Millisecond)
	_, ok = r.ReadCard(context.Background())
	assert.True(t, ok)
}

func TestReadCard_ErrorsAreAbsent(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{reads: []func() ([]byte, error){
		fail(kiosk.ErrNoCard),
		fail(errors.New("serial glitch")),
		uid(),
	}}
	r := New(src)

	for i := 0; i < 4; i++ {
		id, ok := r.ReadCard(context.Background())
		assert.False(t, ok)
		assert.Empty(t, id)
	}
}
