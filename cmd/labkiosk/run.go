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
	"os"
	"os/signal"
	"syscall"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/display"
	"github.com/ZaparooProject/go-labkiosk/fsm"
	"github.com/ZaparooProject/go-labkiosk/gesture"
	"github.com/ZaparooProject/go-labkiosk/guard"
	"github.com/ZaparooProject/go-labkiosk/internal/netinfo"
	"github.com/ZaparooProject/go-labkiosk/netmon"
	"github.com/ZaparooProject/go-labkiosk/token"
	"github.com/pkg/profile"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	cpuProfile  bool
	memProfile  bool
	profilePath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kiosk",
	RunE:  runKiosk,
}

func init() {
	runCmd.Flags().BoolVar(&cpuProfile, "profile-cpu", false, "write a CPU profile")
	runCmd.Flags().BoolVar(&memProfile, "profile-mem", false, "write a memory profile")
	runCmd.Flags().StringVar(&profilePath, "profile-path", ".", "directory for profiles")
}

func runKiosk(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch {
	case cpuProfile:
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(profilePath), profile.NoShutdownHook).Stop()
	case memProfile:
		defer profile.Start(profile.MemProfile, profile.MemProfileAllocs,
			profile.ProfilePath(profilePath), profile.NoShutdownHook).Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := netinfo.Detect(netinfo.Overrides{
		Interface: cfg.Device.Interface,
		MAC:       cfg.Device.MAC,
		IP:        cfg.Device.IP,
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("version", cfg.Device.Version).
		Str("mac", host.MAC()).
		Str("ip", host.IP()).
		Msg("starting kiosk")

	disp, err := openDisplay(cfg.Display)
	if err != nil {
		return err
	}
	defer func() {
		if err := disp.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close display")
		}
	}()
	screens := display.NewScreens(disp)
	screens.Starting(ctx)

	cards, readerCloser, err := openReader(ctx, cfg.Reader)
	if err != nil {
		return err
	}
	defer func() { _ = readerCloser.Close() }()

	pins, err := openButtons(cfg.Buttons)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range pins {
			if err := p.Halt(); err != nil {
				log.Warn().Err(err).Str("button", string(p.ID())).Msg("failed to release button")
			}
		}
	}()

	auditLog := newAuditLogger(cfg.Audit)
	defer func() {
		if err := auditLog.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close audit log")
		}
	}()

	session := kiosk.NewSession()
	client := newClient(cfg.API)
	tokens := token.NewManager(token.NewFileStore(cfg.Token.Path), client, token.WithBuffer(cfg.Token.Buffer))
	g := guard.New(session, tokens, screens,
		guard.WithAudit(auditLog),
		guard.WithOnlinePoll(cfg.Session.OnlinePoll))

	monitor := netmon.NewMonitor(session, newProber(cfg.Network), screens, &netmon.Config{
		Interval:         cfg.Network.Interval,
		FailureThreshold: cfg.Network.FailureThreshold,
	})

	machine := fsm.New(session, fsm.Deps{
		API:     client,
		Reader:  cards,
		Host:    host,
		Screens: screens,
		Guard:   g,
		Audit:   auditLog,
		Version: cfg.Device.Version,
		Buttons: bindings(pins),
		Prober:  newProber(cfg.Network),
	}, &fsm.Config{
		Gesture: &gesture.Config{
			Debounce: cfg.Gesture.Debounce,
			Hold:     cfg.Gesture.Hold,
			Step:     cfg.Gesture.Step,
		},
		PollTimeout:     cfg.Session.PollTimeout,
		RetryDelay:      cfg.Session.RetryDelay,
		OfflinePoll:     cfg.Session.OfflinePoll,
		WarningMinutes:  cfg.Session.WarningMinutes,
		ExtendThreshold: cfg.Session.ExtendThreshold,
	})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return monitor.Run(ctx) })
	for _, p := range pins {
		eg.Go(func() error { return p.Run(ctx) })
	}
	eg.Go(func() error { return machine.Run(ctx) })

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("kiosk stopped")
		return nil
	}
	return err
}
