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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-labkiosk/display"
	"github.com/ZaparooProject/go-labkiosk/token"
	"github.com/spf13/cobra"
)

var screensCmd = &cobra.Command{
	Use:   "screens",
	Short: "Show every kiosk screen once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		disp, err := openDisplay(cfg.Display)
		if err != nil {
			return err
		}
		defer func() { _ = disp.Close() }()

		display.NewScreens(disp).ShowAll(ctx)
		return nil
	},
}

var cardTimeout time.Duration

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Print the id of every card presented to the reader",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if cardTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cardTimeout)
			defer cancel()
		}

		cards, closer, err := openReader(ctx, cfg.Reader)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Present a card (Ctrl+C to stop)...")
		for ctx.Err() == nil {
			if id, ok := cards.ReadCard(ctx); ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check internet reachability once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if newProber(cfg.Network).Probe(cmd.Context()) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "online")
			return nil
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "offline")
		return errors.New("no probe endpoint reachable")
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Verify the stored credential, renewing it when needed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		m := token.NewManager(token.NewFileStore(cfg.Token.Path), newClient(cfg.API),
			token.WithBuffer(cfg.Token.Buffer))
		cred, err := m.Verify(cmd.Context())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "credential valid until %s (%s left)\n",
			token.FormatExpiration(cred.Expiration), time.Until(cred.Expiration).Round(time.Second))
		return nil
	},
}

func init() {
	cardCmd.Flags().DurationVar(&cardTimeout, "timeout", 0, "stop after this long (0 waits until interrupted)")
}
