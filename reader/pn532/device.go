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
	"fmt"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// PN532 commands
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInListPassiveTarget = 0x4A
)

const (
	brTy106kbpsTypeA         = 0x00
	rfCfgItemMaxRetries      = 0x05
	passiveActivationRetries = 0x02
)

// Device is a PN532 used as a card UID source.
type Device struct {
	transport Transport
	retry     *kiosk.RetryConfig
}

// Option configures a Device
type Option func(*Device)

// WithRetryConfig overrides the retry policy for transient transport errors
func WithRetryConfig(cfg *kiosk.RetryConfig) Option {
	return func(d *Device) {
		d.retry = cfg
	}
}

// New creates a Device over transport. Call Init before reading.
func New(transport Transport, opts ...Option) *Device {
	d := &Device{
		transport: transport,
		retry: &kiosk.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        50 * time.Millisecond,
			BackoffMultiplier: 2,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init puts the PN532 in normal mode and bounds passive activation
// retries so a read returns promptly when no card is present.
func (d *Device) Init(ctx context.Context) error {
	if _, err := d.send(ctx, cmdSAMConfiguration, []byte{0x01, 0x14, 0x01}); err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}
	if _, err := d.send(ctx, cmdRFConfiguration,
		[]byte{rfCfgItemMaxRetries, 0xFF, 0x01, passiveActivationRetries}); err != nil {
		return fmt.Errorf("RF configuration failed: %w", err)
	}

	if version, err := d.FirmwareVersion(ctx); err == nil {
		log.Info().Str("firmware", version).Msg("PN532 ready")
	}
	return nil
}

// FirmwareVersion returns the IC and firmware revision as "PN5<ic> v<ver>.<rev>".
func (d *Device) FirmwareVersion(ctx context.Context) (string, error) {
	resp, err := d.send(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return "", err
	}
	if len(resp) < 4 {
		return "", fmt.Errorf("%w: firmware response too short", kiosk.ErrMalformedResponse)
	}
	return fmt.Sprintf("PN5%02X v%d.%d", resp[0], resp[1], resp[2]), nil
}

// ReadUID returns the UID of one ISO14443A card in the field, or
// kiosk.ErrNoCard.
func (d *Device) ReadUID(ctx context.Context) ([]byte, error) {
	resp, err := d.send(ctx, cmdInListPassiveTarget, []byte{0x01, brTy106kbpsTypeA})
	if err != nil {
		return nil, err
	}
	return parseTarget(resp)
}

// Close closes the underlying transport.
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (d *Device) send(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	var resp []byte
	err := kiosk.RetryWithConfig(ctx, d.retry, func() error {
		var err error
		resp, err = d.transport.SendCommand(ctx, cmd, args)
		return err
	})
	return resp, err
}

// parseTarget decodes an InListPassiveTarget response:
// NbTg, Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID...
func parseTarget(resp []byte) ([]byte, error) {
	if len(resp) == 0 || resp[0] == 0 {
		return nil, kiosk.ErrNoCard
	}
	if len(resp) < 6 {
		return nil, fmt.Errorf("%w: target response too short", kiosk.ErrMalformedResponse)
	}
	uidLen := int(resp[5])
	if uidLen == 0 || len(resp) < 6+uidLen {
		return nil, fmt.Errorf("%w: bad uid length %d", kiosk.ErrMalformedResponse, uidLen)
	}
	uid := make([]byte, uidLen)
	copy(uid, resp[6:6+uidLen])
	return uid, nil
}
