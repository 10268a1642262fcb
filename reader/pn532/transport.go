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

// Package pn532 drives a PN532 NFC controller far enough to read the UID
// of an ISO14443A card, over UART or I2C.
package pn532

import (
	"context"
	"errors"
	"fmt"
)

// Transport exchanges one command/response pair with the PN532.
// Implementations handle framing, ACK and NACK.
type Transport interface {
	// SendCommand sends cmd with args and returns the response payload
	// that follows the response code.
	SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error)
	Close() error
}

// Transport errors
var (
	ErrTimeout             = errors.New("transport timeout")
	ErrNoACK               = errors.New("no ACK received")
	ErrCommunicationFailed = errors.New("communication failed")
)

// TransportError wraps a failed exchange with the operation and port. It
// satisfies net.Error so the shared retry helpers treat retryable
// failures as transient.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Retryable bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the exchange timed out.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// Temporary reports whether the exchange may succeed when repeated.
func (e *TransportError) Temporary() bool {
	return e.Retryable
}

func timeoutError(op, port string) *TransportError {
	return &TransportError{Op: op, Port: port, Err: ErrTimeout, Retryable: true}
}
