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

package pn532

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
)

func responseFrame(data ...byte) []byte {
	length := byte(len(data))
	frm := []byte{0x00, 0x00, 0xFF, length, frame.CalculateLengthChecksum(length)}
	frm = append(frm, data...)
	frm = append(frm, ^frame.CalculateChecksum(data)+1, 0x00)
	return frm
}

// card response: one target, SENS_RES 0004, SEL_RES 08, 4-byte uid
var inListResponse = []byte{frame.Pn532ToHost, 0x4B, 0x01, 0x01, 0x00, 0x04, 0x08, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}

type scriptedTransport struct {
	responses map[byte][][]byte
	errs      []error
	sent      []byte
	closed    bool
}

func (s *scriptedTransport) SendCommand(_ context.Context, cmd byte, _ []byte) ([]byte, error) {
	s.sent = append(s.sent, cmd)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	queue := s.responses[cmd]
	if len(queue) == 0 {
		return []byte{}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		s.responses[cmd] = queue[1:]
	}
	return resp, nil
}

func (s *scriptedTransport) Close() error {
	s.closed = true
	return nil
}

func fastDevice(t Transport) *Device {
	return New(t, WithRetryConfig(&kiosk.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}))
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	uid, err := parseTarget(inListResponse[2:])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, uid)

	_, err = parseTarget([]byte{0x00})
	require.ErrorIs(t, err, kiosk.ErrNoCard)

	_, err = parseTarget(nil)
	require.ErrorIs(t, err, kiosk.ErrNoCard)

	_, err = parseTarget([]byte{0x01, 0x01, 0x00, 0x04, 0x08, 0x07, 0x01})
	require.ErrorIs(t, err, kiosk.ErrMalformedResponse)
}

func TestDeviceInitAndRead(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{responses: map[byte][][]byte{
		cmdGetFirmwareVersion:  {{0x32, 0x01, 0x06, 0x07}},
		cmdInListPassiveTarget: {inListResponse[2:], {0x00}},
	}}
	d := fastDevice(tr)

	require.NoError(t, d.Init(context.Background()))
	assert.Equal(t, []byte{cmdSAMConfiguration, cmdRFConfiguration, cmdGetFirmwareVersion}, tr.sent)

	version, err := d.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PN532 v1.6", version)

	uid, err := d.ReadUID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, uid)

	_, err = d.ReadUID(context.Background())
	require.ErrorIs(t, err, kiosk.ErrNoCard)

	require.NoError(t, d.Close())
	assert.True(t, tr.closed)
}

func TestDeviceRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{
		responses: map[byte][][]byte{cmdInListPassiveTarget: {inListResponse[2:]}},
		errs:      []error{timeoutError("read", "test"), timeoutError("read", "test")},
	}
	d := fastDevice(tr)

	uid, err := d.ReadUID(context.Background())
	require.NoError(t, err)
	assert.Len(t, uid, 4)
	assert.Len(t, tr.sent, 3)
}

func TestDeviceDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	permanent := &TransportError{Op: "receiveFrame", Port: "test", Err: frame.ErrApplication}
	tr := &scriptedTransport{errs: []error{permanent}}
	d := fastDevice(tr)

	_, err := d.ReadUID(context.Background())
	require.ErrorIs(t, err, frame.ErrApplication)
	assert.Len(t, tr.sent, 1)
}

func TestTransportErrorClassification(t *testing.T) {
	t.Parallel()

	timeout := timeoutError("read", "/dev/ttyUSB0")
	assert.True(t, timeout.Timeout())
	assert.True(t, kiosk.IsRetryable(timeout))
	assert.Equal(t, kiosk.ErrorTypeTimeout, kiosk.GetErrorType(timeout))
	assert.Equal(t, "read on /dev/ttyUSB0: transport timeout", timeout.Error())

	permanent := &TransportError{Op: "x", Err: errors.New("bad")}
	assert.False(t, kiosk.IsRetryable(permanent))
}

// fakePort is a serial port that answers every command frame with an
// ACK and a queued response.
type fakePort struct {
	replies [][]byte
	pending []byte
	written [][]byte
	mu      sync.Mutex
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		p.mu.Lock()
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, append([]byte(nil), b...))
	if bytes.Equal(b, frame.NackFrame) || len(p.replies) == 0 {
		if len(p.replies) > 0 {
			p.pending = append(p.pending, p.replies[0]...)
			p.replies = p.replies[1:]
		}
		return len(b), nil
	}
	p.pending = append(p.pending, frame.AckFrame...)
	p.pending = append(p.pending, p.replies[0]...)
	p.replies = p.replies[1:]
	return len(b), nil
}

func (*fakePort) Close() error                     { return nil }
func (*fakePort) SetReadTimeout(time.Duration) error { return nil }

func TestUARTSendCommand(t *testing.T) {
	t.Parallel()

	port := &fakePort{replies: [][]byte{responseFrame(inListResponse...)}}
	u, err := NewUART(port, "test")
	require.NoError(t, err)

	data, err := u.SendCommand(context.Background(), cmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, inListResponse[2:], data)

	want, err := frame.Build(cmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, want, port.written[0])
}

func TestUARTNacksCorruptFrame(t *testing.T) {
	t.Parallel()

	corrupt := responseFrame(inListResponse...)
	corrupt[len(corrupt)-2]++
	port := &fakePort{replies: [][]byte{corrupt, responseFrame(inListResponse...)}}
	u, err := NewUART(port, "test")
	require.NoError(t, err)

	data, err := u.SendCommand(context.Background(), cmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, inListResponse[2:], data)
	require.Len(t, port.written, 2)
	assert.Equal(t, frame.NackFrame, port.written[1])
}

func TestUARTNoACK(t *testing.T) {
	t.Parallel()

	u, err := NewUART(&fakePort{}, "test")
	require.NoError(t, err)
	u.SetTimeout(10 * time.Millisecond)

	_, err = u.SendCommand(context.Background(), cmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrNoACK)
	assert.True(t, kiosk.IsRetryable(err))
}

// fakeI2C replays queued reads and records writes.
type fakeI2C struct {
	reads  [][]byte
	writes [][]byte
}

func (*fakeI2C) String() string        { return "fake-i2c" }
func (*fakeI2C) Duplex() conn.Duplex   { return conn.Half }

func (f *fakeI2C) Tx(w, r []byte) error {
	if len(w) > 0 {
		f.writes = append(f.writes, append([]byte(nil), w...))
	}
	if len(r) > 0 {
		if len(f.reads) == 0 {
			return errors.New("unexpected read")
		}
		copy(r, f.reads[0])
		f.reads = f.reads[1:]
	}
	return nil
}

func TestI2CSendCommand(t *testing.T) {
	t.Parallel()

	ready := []byte{0x01}
	dev := &fakeI2C{reads: [][]byte{
		{0x00}, // not ready yet
		ready,
		append([]byte{0x01}, frame.AckFrame...),
		ready,
		append([]byte{0x01}, responseFrame(inListResponse...)...),
	}}
	tr := NewI2C(dev, "test")

	data, err := tr.SendCommand(context.Background(), cmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, inListResponse[2:], data)

	require.Len(t, dev.writes, 2)
	assert.Equal(t, frame.AckFrame, dev.writes[1])
	require.NoError(t, tr.Close())
}

func TestI2CNotReady(t *testing.T) {
	t.Parallel()

	reads := make([][]byte, 1000)
	for i := range reads {
		reads[i] = []byte{0x00}
	}
	tr := NewI2C(&fakeI2C{reads: reads}, "test")
	tr.SetTimeout(5 * time.Millisecond)

	_, err := tr.SendCommand(context.Background(), cmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrNoACK)
}
