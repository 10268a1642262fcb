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

package main

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-labkiosk/button"
	"github.com/ZaparooProject/go-labkiosk/config"
	"github.com/ZaparooProject/go-labkiosk/gesture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestSetupLoggingRejectsUnknownLevel(t *testing.T) {
	err := setupLogging(config.LoggingConfig{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")

	require.NoError(t, setupLogging(config.LoggingConfig{Level: "debug", Format: "json"}))
	require.NoError(t, setupLogging(config.LoggingConfig{Level: "info", Format: "console"}))
}

func TestBindings(t *testing.T) {
	t.Parallel()

	pin := func(name string) gpio.PinIO {
		return &gpiotest.Pin{N: name, EdgesChan: make(chan gpio.Level, 1)}
	}
	extend, err := button.New(pin("GPIO13"), extendButton)
	require.NoError(t, err)
	stop, err := button.New(pin("GPIO21"), stopButton)
	require.NoError(t, err)

	got := bindings([]*button.Pin{extend, stop})
	require.Len(t, got, 2)
	assert.Equal(t, gesture.RequestExtend, got[0].Request)
	assert.Equal(t, "Extending...", got[0].Label)
	assert.Equal(t, gesture.RequestStop, got[1].Request)
	assert.Equal(t, "Stopping...", got[1].Label)
}

func TestOpenUnknownDrivers(t *testing.T) {
	t.Parallel()

	_, err := openDisplay(config.DisplayConfig{Driver: "oled"})
	require.Error(t, err)

	_, err = openTransport(context.Background(), config.ReaderConfig{Driver: "acr122"})
	require.Error(t, err)
}

func TestOpenConsoleDisplay(t *testing.T) {
	t.Parallel()

	d, err := openDisplay(config.DisplayConfig{Driver: "console"})
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestNewAuditLoggerWithoutNATS(t *testing.T) {
	t.Parallel()

	l := newAuditLogger(config.AuditConfig{LocalPath: t.TempDir() + "/audit.txt"})
	require.NotNil(t, l)
	assert.NoError(t, l.Close())
}

func TestNewAuditLoggerUnreachableNATS(t *testing.T) {
	t.Parallel()

	start := time.Now()
	l := newAuditLogger(config.AuditConfig{
		NATSURL:   "nats://127.0.0.1:1",
		LocalPath: t.TempDir() + "/audit.txt",
	})
	require.NotNil(t, l)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.NoError(t, l.Close())
}
