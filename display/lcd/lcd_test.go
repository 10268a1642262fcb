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

package lcd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

type write struct {
	value byte
	data  bool
}

// decode turns recorded 4-byte transactions back into HD44780 bytes.
func decode(t *testing.T, ops []i2ctest.IO) []write {
	t.Helper()
	out := make([]write, 0, len(ops))
	for _, op := range ops {
		require.Len(t, op.W, 4)
		assert.NotZero(t, op.W[0]&enable)
		assert.Zero(t, op.W[1]&enable)
		out = append(out, write{
			value: op.W[1]&0xF0 | op.W[3]>>4,
			data:  op.W[1]&registerSelect != 0,
		})
	}
	return out
}

func newRecorded(t *testing.T) (*LCD, *i2ctest.Record) {
	t.Helper()
	rec := &i2ctest.Record{}
	l, err := New(&i2c.Dev{Bus: rec, Addr: DefaultAddr})
	require.NoError(t, err)
	return l, rec
}

func TestInitSequence(t *testing.T) {
	t.Parallel()

	_, rec := newRecorded(t)
	require.Len(t, rec.Ops, 8)

	for i, want := range []byte{0x30, 0x30, 0x30, 0x20} {
		op := rec.Ops[i]
		assert.Equal(t, uint16(DefaultAddr), op.Addr)
		assert.Equal(t, []byte{want | backlightBit | enable, want | backlightBit}, op.W)
	}

	got := decode(t, rec.Ops[4:])
	assert.Equal(t, []write{{value: 0x28}, {value: 0x0C}, {value: 0x01}, {value: 0x06}}, got)
}

func TestWriteLine(t *testing.T) {
	t.Parallel()

	l, rec := newRecorded(t)
	rec.Ops = nil

	require.NoError(t, l.WriteLine(2, "Hé"))
	got := decode(t, rec.Ops)
	assert.Equal(t, []write{
		{value: 0x80 | 0x14},
		{value: 'H', data: true},
		{value: '?', data: true},
	}, got)
	for _, op := range rec.Ops {
		assert.NotZero(t, op.W[1]&backlightBit)
	}

	require.Error(t, l.WriteLine(4, "x"))
	require.Error(t, l.WriteLine(-1, "x"))
}

func TestWriteLineTruncates(t *testing.T) {
	t.Parallel()

	l, rec := newRecorded(t)
	rec.Ops = nil

	require.NoError(t, l.WriteLine(0, "0123456789012345678901234"))
	assert.Len(t, rec.Ops, 1+20)
}

func TestBacklight(t *testing.T) {
	t.Parallel()

	l, rec := newRecorded(t)
	rec.Ops = nil

	require.NoError(t, l.SetBacklight(false))
	require.NoError(t, l.Clear())
	require.Len(t, rec.Ops, 2)
	assert.Equal(t, []byte{0x00}, rec.Ops[0].W)
	assert.Zero(t, rec.Ops[1].W[1]&backlightBit)

	require.NoError(t, l.SetBacklight(true))
	assert.Equal(t, []byte{backlightBit}, rec.Ops[2].W)
	require.NoError(t, l.Close())
}

type failingBus struct{}

func (*failingBus) String() string { return "failing" }

func (*failingBus) Tx(uint16, []byte, []byte) error { return errors.New("nack") }

func (*failingBus) SetSpeed(physic.Frequency) error { return nil }

func TestInitFailure(t *testing.T) {
	t.Parallel()

	_, err := New(&i2c.Dev{Bus: &failingBus{}, Addr: DefaultAddr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize LCD")
}
