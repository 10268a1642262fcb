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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-labkiosk/internal/frame"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// I2CAddr is the 7-bit PN532 bus address.
	I2CAddr = 0x24

	i2cReady     = 0x01
	i2cReadLen   = 64
	maxClockFreq = 400 * physic.KiloHertz
)

// I2C implements Transport over an I2C bus. Every read from the PN532
// starts with a status byte that is 0x01 once data is ready.
type I2C struct {
	dev     conn.Conn
	closer  io.Closer
	name    string
	timeout time.Duration
	mu      sync.Mutex
}

// OpenI2C opens the named bus (for example "/dev/i2c-1" or "1").
func OpenI2C(busName string) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	t := NewI2C(&i2c.Dev{Addr: I2CAddr, Bus: bus}, busName)
	t.closer = bus
	return t, nil
}

// NewI2C wraps an already addressed device connection.
func NewI2C(dev conn.Conn, name string) *I2C {
	return &I2C{
		dev:     dev,
		name:    name,
		timeout: 100 * time.Millisecond,
	}
}

// SetTimeout sets how long to wait for the PN532 to become ready.
func (t *I2C) SetTimeout(timeout time.Duration) {
	t.mu.Lock()
	t.timeout = timeout
	t.mu.Unlock()
}

// SendCommand sends a command frame and waits for its response.
func (t *I2C) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, err
	}
	if err := t.dev.Tx(frm, nil); err != nil {
		return nil, &TransportError{Op: "sendFrame", Port: t.name, Err: err, Retryable: true}
	}

	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}

	const maxTries = 3
	for tries := 0; tries < maxTries; tries++ {
		if err := t.waitReady(ctx); err != nil {
			return nil, err
		}
		buf := make([]byte, i2cReadLen)
		if err := t.dev.Tx(nil, buf); err != nil {
			return nil, &TransportError{Op: "receiveFrame", Port: t.name, Err: err, Retryable: true}
		}

		data, err := frame.Parse(buf[1:], cmd)
		switch {
		case err == nil:
			if err := t.dev.Tx(frame.AckFrame, nil); err != nil {
				return nil, &TransportError{Op: "sendAck", Port: t.name, Err: err, Retryable: true}
			}
			return data, nil
		case errors.Is(err, frame.ErrDataChecksum), errors.Is(err, frame.ErrLengthChecksum):
			if err := t.dev.Tx(frame.NackFrame, nil); err != nil {
				return nil, &TransportError{Op: "sendNack", Port: t.name, Err: err, Retryable: true}
			}
		default:
			return nil, &TransportError{Op: "receiveFrame", Port: t.name, Err: err}
		}
	}
	return nil, &TransportError{Op: "receiveFrame", Port: t.name, Err: ErrCommunicationFailed, Retryable: true}
}

// Close releases the bus when it was opened by OpenI2C.
func (t *I2C) Close() error {
	if t.closer == nil {
		return nil
	}
	if err := t.closer.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

// waitReady polls the status byte until the PN532 has data.
func (t *I2C) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(t.timeout)
	status := make([]byte, 1)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.dev.Tx(nil, status); err != nil {
			return &TransportError{Op: "waitReady", Port: t.name, Err: err, Retryable: true}
		}
		if status[0]&i2cReady != 0 {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return timeoutError("waitReady", t.name)
}

// waitAck waits for an ACK frame from the PN532
func (t *I2C) waitAck(ctx context.Context) error {
	if err := t.waitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Op: "waitAck", Port: t.name, Err: ErrNoACK, Retryable: true}
	}
	buf := make([]byte, 1+len(frame.AckFrame))
	if err := t.dev.Tx(nil, buf); err != nil {
		return &TransportError{Op: "waitAck", Port: t.name, Err: err, Retryable: true}
	}
	if !frame.IsAck(buf[1:]) {
		return &TransportError{Op: "waitAck", Port: t.name, Err: ErrNoACK, Retryable: true}
	}
	return nil
}

var _ Transport = (*I2C)(nil)
