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
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/go-labkiosk/api"
	"github.com/ZaparooProject/go-labkiosk/audit"
	"github.com/ZaparooProject/go-labkiosk/button"
	"github.com/ZaparooProject/go-labkiosk/config"
	"github.com/ZaparooProject/go-labkiosk/display"
	"github.com/ZaparooProject/go-labkiosk/display/lcd"
	"github.com/ZaparooProject/go-labkiosk/gesture"
	"github.com/ZaparooProject/go-labkiosk/netmon"
	"github.com/ZaparooProject/go-labkiosk/reader"
	"github.com/ZaparooProject/go-labkiosk/reader/pn532"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Button ids, also used as gesture labels in logs
const (
	extendButton gesture.ButtonID = "extend"
	stopButton   gesture.ButtonID = "stop"
)

func openDisplay(cfg config.DisplayConfig) (*display.Display, error) {
	switch cfg.Driver {
	case "console":
		return display.New(display.NewConsole(os.Stdout)), nil
	case "lcd":
		l, err := lcd.Open(cfg.I2CBus, cfg.Address)
		if err != nil {
			return nil, err
		}
		return display.New(l), nil
	default:
		return nil, fmt.Errorf("unknown display driver %q", cfg.Driver)
	}
}

func openTransport(ctx context.Context, cfg config.ReaderConfig) (pn532.Transport, error) {
	switch cfg.Driver {
	case "pn532-uart":
		port := cfg.Port
		if port == "" || port == "auto" {
			found, err := pn532.DetectUART(ctx, cfg.IgnorePorts)
			if err != nil {
				return nil, err
			}
			port = found
		}
		t, err := pn532.OpenUART(port)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "pn532-i2c":
		t, err := pn532.OpenI2C(cfg.Port)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown reader driver %q", cfg.Driver)
	}
}

// openReader opens and initializes the PN532. The returned closer
// releases the transport.
func openReader(ctx context.Context, cfg config.ReaderConfig) (*reader.Reader, io.Closer, error) {
	transport, err := openTransport(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	dev := pn532.New(transport)
	if err := dev.Init(ctx); err != nil {
		_ = dev.Close()
		return nil, nil, fmt.Errorf("failed to initialize card reader: %w", err)
	}
	return reader.New(dev, reader.WithCooldown(cfg.Cooldown)), dev, nil
}

func openButtons(cfg config.ButtonsConfig) ([]*button.Pin, error) {
	extend, err := button.Open(cfg.Extend, extendButton, button.WithBounce(cfg.Bounce))
	if err != nil {
		return nil, err
	}
	stop, err := button.Open(cfg.Stop, stopButton, button.WithBounce(cfg.Bounce))
	if err != nil {
		_ = extend.Halt()
		return nil, err
	}
	log.Debug().Str("extend", cfg.Extend).Str("stop", cfg.Stop).Msg("buttons ready")
	return []*button.Pin{extend, stop}, nil
}

func bindings(pins []*button.Pin) []gesture.Binding {
	out := make([]gesture.Binding, 0, len(pins))
	for _, p := range pins {
		switch p.ID() {
		case extendButton:
			out = append(out, gesture.Binding{Button: p, Label: "Extending...", Request: gesture.RequestExtend})
		case stopButton:
			out = append(out, gesture.Binding{Button: p, Label: "Stopping...", Request: gesture.RequestStop})
		}
	}
	return out
}

func newClient(cfg config.APIConfig) *api.Client {
	c := api.DefaultConfig()
	c.APIKey = cfg.APIKey
	c.Endpoints = cfg.Endpoints
	c.Timeout = cfg.Timeout
	c.RateLimit = rate.Limit(cfg.RateLimit)
	c.Burst = cfg.Burst
	return api.NewClient(c)
}

func newProber(cfg config.NetworkConfig) *netmon.HTTPProber {
	pc := netmon.DefaultProberConfig()
	if len(cfg.ProbeURLs) > 0 {
		pc.URLs = cfg.ProbeURLs
	}
	pc.Timeout = cfg.ProbeTimeout
	pc.Rounds = cfg.Rounds
	pc.RoundDelay = cfg.RoundDelay
	return netmon.NewHTTPProber(pc)
}

// newAuditLogger connects the remote audit sink when configured. An
// unreachable server is retried in the background; only a sink that
// cannot be created at all leaves the kiosk on the local file.
func newAuditLogger(cfg config.AuditConfig) *audit.Logger {
	local := audit.NewFileLog(cfg.LocalPath)
	if cfg.NATSURL == "" {
		log.Info().Str("path", local.Path()).Msg("remote audit sink disabled, logging locally")
		return audit.NewLogger(nil, local)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = audit.DefaultSubjectPrefix
	}
	sink, err := audit.NewNATSSink(cfg.NATSURL, prefix)
	if err != nil {
		log.Warn().Err(err).Msg("remote audit sink unavailable, logging locally")
		return audit.NewLogger(nil, local)
	}
	return audit.NewLogger(sink, local)
}
