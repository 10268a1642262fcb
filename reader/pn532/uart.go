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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-labkiosk/internal/frame"
	"go.bug.st/serial"
)

const (
	uartBaudRate    = 115200
	uartReadTimeout = 20 * time.Millisecond
)

// wakeup brings the PN532 HSU interface out of low-vbat mode.
var wakeup = []byte{
	0x55, 0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// SerialPort is the part of a serial port the UART transport needs.
type SerialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// UART implements Transport over the PN532 high speed UART.
type UART struct {
	port    SerialPort
	name    string
	timeout time.Duration
	mu      sync.Mutex
}

// OpenUART opens the serial device at name and wakes the PN532.
func OpenUART(name string) (*UART, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: uartBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	u, err := NewUART(port, name)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	if _, err := port.Write(wakeup); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to wake PN532: %w", err)
	}
	time.Sleep(5 * time.Millisecond)
	return u, nil
}

// NewUART wraps an already open port.
func NewUART(port SerialPort, name string) (*UART, error) {
	if err := port.SetReadTimeout(uartReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return &UART{
		port:    port,
		name:    name,
		timeout: 100 * time.Millisecond,
	}, nil
}

// SetTimeout sets how long to wait for the ACK and for the response.
func (u *UART) SetTimeout(timeout time.Duration) {
	u.mu.Lock()
	u.timeout = timeout
	u.mu.Unlock()
}

// SendCommand sends a command frame and waits for its response.
func (u *UART) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, err
	}
	if _, err := u.port.Write(frm); err != nil {
		return nil, &TransportError{Op: "sendFrame", Port: u.name, Err: err, Retryable: true}
	}

	buf, err := u.collect(ctx, nil, frame.IsAck)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "waitAck", Port: u.name, Err: ErrNoACK, Retryable: true}
	}
	// Bytes after the ACK already belong to the response.
	rest := buf[bytes.Index(buf, frame.AckFrame[1:])+len(frame.AckFrame)-1:]

	const maxTries = 3
	for tries := 0; tries < maxTries; tries++ {
		resp, err := u.collect(ctx, rest, complete(cmd))
		if err != nil {
			return nil, err
		}
		rest = nil

		data, err := frame.Parse(resp, cmd)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, frame.ErrDataChecksum), errors.Is(err, frame.ErrLengthChecksum):
			if _, werr := u.port.Write(frame.NackFrame); werr != nil {
				return nil, &TransportError{Op: "sendNack", Port: u.name, Err: werr, Retryable: true}
			}
		default:
			return nil, &TransportError{Op: "receiveFrame", Port: u.name, Err: err}
		}
	}
	return nil, &TransportError{Op: "receiveFrame", Port: u.name, Err: ErrCommunicationFailed, Retryable: true}
}

// Close closes the serial port.
func (u *UART) Close() error {
	if err := u.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// collect reads until done reports a usable buffer or the timeout passes.
func (u *UART) collect(ctx context.Context, initial []byte, done func([]byte) bool) ([]byte, error) {
	buf := append([]byte(nil), initial...)
	if len(buf) > 0 && done(buf) {
		return buf, nil
	}

	chunk := make([]byte, 64)
	deadline := time.Now().Add(u.timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := u.port.Read(chunk)
		if err != nil {
			return nil, &TransportError{Op: "read", Port: u.name, Err: err, Retryable: true}
		}
		buf = append(buf, chunk[:n]...)
		if n > 0 && done(buf) {
			return buf, nil
		}
	}
	return nil, timeoutError("read", u.name)
}

// complete reports whether buf holds a whole frame, valid or not.
func complete(cmd byte) func([]byte) bool {
	return func(buf []byte) bool {
		_, err := frame.Parse(buf, cmd)
		return !errors.Is(err, frame.ErrNoStartCode) && !errors.Is(err, frame.ErrTruncated)
	}
}

var _ Transport = (*UART)(nil)
