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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// DefaultSubjectPrefix is the NATS subject prefix for audit entries
const DefaultSubjectPrefix = "labkiosk.audit"

// Entry is one cell write: a value, and optionally a note, in one column
// of one row of one sheet.
type Entry struct {
	Time   time.Time `json:"time"`
	Sheet  string    `json:"sheet"`
	Row    string    `json:"row"`
	Field  string    `json:"field"`
	Value  string    `json:"value"`
	Note   string    `json:"note,omitempty"`
	Column int       `json:"column"`
}

// Sink stores audit entries remotely.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// NATSSink publishes entries as JSON to "<prefix>.<sheet>".
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSink connects to the NATS server at url. An empty prefix uses
// DefaultSubjectPrefix. An unreachable server is not an error: the client
// keeps retrying in the background and buffers entries until it connects.
func NewNATSSink(url, prefix string, opts ...nats.Option) (*NATSSink, error) {
	defaults := []nats.Option{
		nats.Name("labkiosk-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("audit sink connected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("audit sink reconnected")
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{conn: nc, prefix: prefix}, nil
}

// Subject returns the subject entries for sheet are published on.
func (s *NATSSink) Subject(sheet string) string {
	return s.prefix + "." + subjectToken(sheet)
}

// Append publishes e. A disconnected client buffers the entry until it
// reconnects; a closed one reports an error.
func (s *NATSSink) Append(_ context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}
	if err := s.conn.Publish(s.Subject(e.Sheet), data); err != nil {
		return fmt.Errorf("publishing audit entry: %w", err)
	}
	return nil
}

// Flush waits until the server has received every published entry.
func (s *NATSSink) Flush(ctx context.Context) error {
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing audit entries: %w", err)
	}
	return nil
}

// Connected reports whether the sink currently has a server connection.
func (s *NATSSink) Connected() bool {
	return s.conn.IsConnected()
}

// Close drains pending entries and closes the connection. Entries still
// buffered while no server was reachable are dropped.
func (s *NATSSink) Close() error {
	if !s.conn.IsConnected() {
		if n, err := s.conn.Buffered(); err == nil && n > 0 {
			log.Warn().Int("bytes", n).Msg("closing audit sink with undelivered entries")
		}
		s.conn.Close()
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("draining NATS connection: %w", err)
	}
	return nil
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
