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

// Package config loads the kiosk configuration: YAML defaults and
// overlay, secrets from a .env file and LABKIOSK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/api"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LABKIOSK_"

// Config is the complete kiosk configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
	Token   TokenConfig   `yaml:"token"`
	Display DisplayConfig `yaml:"display"`
	Reader  ReaderConfig  `yaml:"reader"`
	API     APIConfig     `yaml:"api"`
	Buttons ButtonsConfig `yaml:"buttons"`
	Network NetworkConfig `yaml:"network"`
	Gesture GestureConfig `yaml:"gesture"`
	Session SessionConfig `yaml:"session"`
}

// DeviceConfig overrides the detected network identity.
type DeviceConfig struct {
	Interface string `yaml:"interface"`
	MAC       string `yaml:"mac"`
	IP        string `yaml:"ip"`
	Version   string `yaml:"version"`
}

// APIConfig configures the backend client. The API key is a secret and
// only read from the environment.
type APIConfig struct {
	APIKey    string        `yaml:"-"`
	Endpoints api.Endpoints `yaml:"endpoints"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

// TokenConfig configures the credential cache.
type TokenConfig struct {
	Path   string        `yaml:"path"`
	Buffer time.Duration `yaml:"buffer"`
}

// DisplayConfig selects the display driver: "lcd" or "console".
type DisplayConfig struct {
	Driver  string `yaml:"driver"`
	I2CBus  string `yaml:"i2c_bus"`
	Address uint16 `yaml:"address"`
}

// ReaderConfig selects the card reader: "pn532-uart" or "pn532-i2c".
// A UART port of "" or "auto" probes every serial port not listed in
// IgnorePorts.
type ReaderConfig struct {
	Driver      string        `yaml:"driver"`
	Port        string        `yaml:"port"`
	IgnorePorts []string      `yaml:"ignore_ports"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// ButtonsConfig names the GPIO lines of the two buttons.
type ButtonsConfig struct {
	Extend string        `yaml:"extend"`
	Stop   string        `yaml:"stop"`
	Bounce time.Duration `yaml:"bounce"`
}

// GestureConfig configures long-press timing.
type GestureConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Hold     time.Duration `yaml:"hold"`
	Step     time.Duration `yaml:"step"`
}

// NetworkConfig configures the connectivity monitor.
type NetworkConfig struct {
	ProbeURLs        []string      `yaml:"probe_urls"`
	Interval         time.Duration `yaml:"interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	RoundDelay       time.Duration `yaml:"round_delay"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Rounds           int           `yaml:"rounds"`
}

// SessionConfig configures the state machine.
type SessionConfig struct {
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	OfflinePoll     time.Duration `yaml:"offline_poll"`
	OnlinePoll      time.Duration `yaml:"online_poll"`
	WarningMinutes  int           `yaml:"warning_minutes"`
	ExtendThreshold int           `yaml:"extend_threshold"`
}

// AuditConfig configures the audit log. An empty NATS URL keeps the
// audit log local.
type AuditConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	LocalPath     string `yaml:"local_path"`
}

// LoggingConfig configures zerolog: level is a zerolog level name,
// format is "console" or "json".
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{Version: "dev"},
		API: APIConfig{
			Timeout:   10 * time.Second,
			RateLimit: 5,
			Burst:     5,
		},
		Token: TokenConfig{
			Path:   "/var/lib/labkiosk/token.json",
			Buffer: 5 * time.Minute,
		},
		Display: DisplayConfig{
			Driver:  "lcd",
			I2CBus:  "",
			Address: 0x27,
		},
		Reader: ReaderConfig{
			Driver:   "pn532-uart",
			Port:     "/dev/ttyUSB0",
			Cooldown: 2 * time.Second,
		},
		Buttons: ButtonsConfig{
			Extend: "GPIO13",
			Stop:   "GPIO21",
			Bounce: 50 * time.Millisecond,
		},
		Gesture: GestureConfig{
			Debounce: 100 * time.Millisecond,
			Hold:     1800 * time.Millisecond,
			Step:     100 * time.Millisecond,
		},
		Network: NetworkConfig{
			Interval:         5 * time.Second,
			FailureThreshold: 3,
			ProbeTimeout:     5 * time.Second,
			Rounds:           2,
			RoundDelay:       time.Second,
		},
		Session: SessionConfig{
			PollTimeout:     500 * time.Millisecond,
			RetryDelay:      5 * time.Second,
			OfflinePoll:     3 * time.Second,
			OnlinePoll:      2 * time.Second,
			WarningMinutes:  5,
			ExtendThreshold: 14,
		},
		Audit: AuditConfig{
			LocalPath: "/var/lib/labkiosk/log_local.txt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults, then loads envFile
// (when it exists) into the environment and applies LABKIOSK_* overrides.
// A missing config file is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.API.APIKey = envOrDefault(EnvPrefix+"API_KEY", c.API.APIKey)
	c.Audit.NATSURL = envOrDefault(EnvPrefix+"NATS_URL", c.Audit.NATSURL)
	c.Token.Path = envOrDefault(EnvPrefix+"TOKEN_PATH", c.Token.Path)
	c.Device.MAC = envOrDefault(EnvPrefix+"MAC", c.Device.MAC)
	c.Device.IP = envOrDefault(EnvPrefix+"IP", c.Device.IP)
	c.Display.Driver = envOrDefault(EnvPrefix+"DISPLAY", c.Display.Driver)
	c.Reader.Driver = envOrDefault(EnvPrefix+"READER", c.Reader.Driver)
	c.Reader.Port = envOrDefault(EnvPrefix+"READER_PORT", c.Reader.Port)
	c.Logging.Level = envOrDefault(EnvPrefix+"LOG_LEVEL", c.Logging.Level)

	if v := os.Getenv(EnvPrefix + "DISPLAY_ADDRESS"); v != "" {
		addr, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("%sDISPLAY_ADDRESS: %w", EnvPrefix, err)
		}
		c.Display.Address = uint16(addr)
	}
	if v := os.Getenv(EnvPrefix + "NETWORK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sNETWORK_INTERVAL: %w", EnvPrefix, err)
		}
		c.Network.Interval = d
	}
	return nil
}

// Validate checks the settings the kiosk cannot run without.
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("%w: %sAPI_KEY is required", kiosk.ErrInvalidConfig, EnvPrefix)
	}
	if err := c.API.Endpoints.Validate(); err != nil {
		return err
	}
	switch c.Display.Driver {
	case "lcd", "console":
	default:
		return fmt.Errorf("%w: unknown display driver %q", kiosk.ErrInvalidConfig, c.Display.Driver)
	}
	switch c.Reader.Driver {
	case "pn532-uart", "pn532-i2c":
	default:
		return fmt.Errorf("%w: unknown reader driver %q", kiosk.ErrInvalidConfig, c.Reader.Driver)
	}
	if c.Session.ExtendThreshold <= c.Session.WarningMinutes {
		return fmt.Errorf("%w: extend_threshold must exceed warning_minutes", kiosk.ErrInvalidConfig)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
