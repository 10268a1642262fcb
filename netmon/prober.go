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

package netmon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// ErrUnreachable is returned when none of the probe URLs answered
var ErrUnreachable = errors.New("no probe endpoint reachable")

// HTTPProber decides reachability by fetching a list of well-known URLs.
// Any response counts as success, regardless of status code.
type HTTPProber struct {
	client *http.Client
	config *ProberConfig
}

// NewHTTPProber creates a prober. A nil config uses DefaultProberConfig.
func NewHTTPProber(config *ProberConfig) *HTTPProber {
	if config == nil {
		config = DefaultProberConfig()
	}
	return &HTTPProber{
		client: &http.Client{},
		config: config,
	}
}

// Probe returns true if any URL answers within its timeout in any round.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	retry := &kiosk.RetryConfig{
		MaxAttempts:       p.config.Rounds,
		InitialBackoff:    p.config.RoundDelay,
		MaxBackoff:        p.config.RoundDelay,
		BackoffMultiplier: 1,
	}
	err := kiosk.RetryWithConfig(ctx, retry, func() error {
		return p.round(ctx)
	})
	if err != nil {
		log.Debug().Err(err).Msg("probe failed")
		return false
	}
	return true
}

func (p *HTTPProber) round(ctx context.Context) error {
	for _, url := range p.config.URLs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.get(ctx, url); err != nil {
			log.Debug().Err(err).Str("url", url).Msg("probe endpoint unreachable")
			continue
		}
		return nil
	}
	return &kiosk.RemoteError{
		Op:        "probe",
		Err:       ErrUnreachable,
		Type:      kiosk.ErrorTypeTransient,
		Retryable: true,
	}
}

func (p *HTTPProber) get(ctx context.Context, url string) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return nil
}
