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
	"path/filepath"
	"strings"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// ErrNoReader is returned when no port answers like a PN532.
var ErrNoReader = errors.New("no PN532 found")

// probeRetry gives each candidate port a single attempt
var probeRetry = &kiosk.RetryConfig{
	MaxAttempts:       1,
	InitialBackoff:    time.Millisecond,
	MaxBackoff:        time.Millisecond,
	BackoffMultiplier: 1,
}

// DetectUART returns the first serial port with a PN532 attached. Ports
// in ignore are never opened.
func DetectUART(ctx context.Context, ignore []string) (string, error) {
	return detect(ctx, serial.GetPortsList, func(name string) (Transport, error) {
		t, err := OpenUART(name)
		if err != nil {
			return nil, err
		}
		return t, nil
	}, ignore)
}

func detect(
	ctx context.Context,
	list func() ([]string, error),
	open func(name string) (Transport, error),
	ignore []string,
) (string, error) {
	ports, err := list()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}

	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if IsPathIgnored(port, ignore) {
			log.Debug().Str("port", port).Msg("skipping ignored port")
			continue
		}

		t, err := open(port)
		if err != nil {
			log.Debug().Err(err).Str("port", port).Msg("cannot open port")
			continue
		}
		version, err := New(t, WithRetryConfig(probeRetry)).FirmwareVersion(ctx)
		_ = t.Close()
		if err != nil {
			log.Debug().Err(err).Str("port", port).Msg("no PN532 on port")
			continue
		}
		log.Info().Str("port", port).Str("firmware", version).Msg("PN532 detected")
		return port, nil
	}
	return "", ErrNoReader
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths,
// comparing cleaned, case-folded paths.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p == "" {
			continue
		}
		if p == devicePath || normalizedPath(p) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
