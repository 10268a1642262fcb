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

package kiosk

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error definitions
var (
	// Absent results. These are normal outcomes of a remote lookup and are
	// not shown to the user as errors.
	ErrNotFound = errors.New("not found")
	ErrRejected = errors.New("rejected")

	// Remote failures
	ErrOffline           = errors.New("device offline")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed response")
	ErrServerError       = errors.New("server error")
	ErrRemoteTimeout     = errors.New("remote call timed out")

	// Local failures
	ErrNoCard            = errors.New("no card present")
	ErrCredentialMissing = errors.New("credential missing")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that should not be retried
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates a temporary error that may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a timeout that may succeed with retry
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// RemoteError wraps a failed backend call with the operation name and,
// when known, the HTTP status code.
type RemoteError struct {
	Err       error
	Op        string
	Status    int
	Type      ErrorType
	Retryable bool
}

// NewRemoteError classifies err and wraps it for the given operation.
func NewRemoteError(op string, status int, err error) *RemoteError {
	return &RemoteError{
		Op:        op,
		Status:    status,
		Err:       err,
		Type:      GetErrorType(err),
		Retryable: IsRetryable(err),
	}
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// temporary is implemented by errors that know whether a repeat of the
// failed operation may succeed, including net.Error.
type temporary interface {
	Temporary() bool
}

// IsRetryable reports whether an error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable
	}

	switch {
	case errors.Is(err, ErrRemoteTimeout),
		errors.Is(err, ErrServerError),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var tmp temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	return false
}

// GetErrorType returns the classification of an error.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Type
	}

	switch {
	case errors.Is(err, ErrRemoteTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, ErrServerError):
		return ErrorTypeTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}
	var tmp temporary
	if errors.As(err, &tmp) && tmp.Temporary() {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// IsAbsent reports whether err only signals a missing or refused result.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRejected)
}
