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

// Command labkiosk runs the lab instrument kiosk and its bring-up tools.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ZaparooProject/go-labkiosk/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	envFile    string
	logLevel   string
	jsonLogs   bool
)

var rootCmd = &cobra.Command{
	Use:           "labkiosk",
	Short:         "Card-gated session kiosk for shared lab instruments",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/labkiosk/labkiosk.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with secrets in KEY=value form")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log as JSON instead of console output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(screensCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	if cfg.Device.Version == "" || cfg.Device.Version == "dev" {
		cfg.Device.Version = version
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if jsonLogs {
		cfg.Logging.Format = "json"
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	return nil
}
