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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TimeLayout formats time values written to cells
const TimeLayout = "2006-01-02 15:04:05"

// HeaderRow is the row id of the header entries written by Open
const HeaderRow = "header"

var errNotOpened = errors.New("audit sheet not opened")

// Logger writes audit cells to the current row of the device's sheet.
// Failures never reach the caller: they are written to the local file
// log instead.
type Logger struct {
	sink  Sink
	local *FileLog
	now   func() time.Time
	sheet string
	row   string
	mu    sync.Mutex
}

// NewLogger creates a logger. sink may be nil, in which case every
// entry goes to local.
func NewLogger(sink Sink, local *FileLog) *Logger {
	return &Logger{sink: sink, local: local, now: time.Now}
}

// Open selects the sheet of one device, named "<mac>_<instrument>",
// writes its column headers and starts a new row.
func (l *Logger) Open(ctx context.Context, mac, instrument string) {
	l.mu.Lock()
	l.sheet = mac + "_" + instrument
	sheet, now := l.sheet, l.now()
	l.mu.Unlock()

	l.writeHeaders(ctx, sheet, now)
	l.NewRow()
	log.Debug().Str("sheet", sheet).Msg("audit sheet opened")
}

// writeHeaders stores one header cell per column in HeaderRow. The first
// failure is recorded locally and the rest are skipped.
func (l *Logger) writeHeaders(ctx context.Context, sheet string, now time.Time) {
	if l.sink == nil {
		return
	}
	for i, h := range Headers() {
		e := Entry{
			Time:   now,
			Sheet:  sheet,
			Row:    HeaderRow,
			Column: Field(i + 1).Column(),
			Field:  h,
			Value:  h,
		}
		if err := l.sink.Append(ctx, e); err != nil {
			log.Warn().Err(err).Str("sheet", sheet).Msg("failed to write audit headers")
			l.fallback(fmt.Sprintf("Header check error: %v", err))
			return
		}
	}
}

// Sheet returns the current sheet name, empty before Open
func (l *Logger) Sheet() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sheet
}

// NewRow starts a new row; later writes land in it. It returns the row id.
func (l *Logger) NewRow() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.row = uuid.NewString()
	return l.row
}

// Write stores value, and note when not empty, in column field of the
// current row.
func (l *Logger) Write(ctx context.Context, field Field, value, note string) {
	if !field.Valid() {
		l.fallback(fmt.Sprintf("Error in write log: unknown field %d", int(field)))
		return
	}

	l.mu.Lock()
	e := Entry{
		Time:   l.now(),
		Sheet:  l.sheet,
		Row:    l.row,
		Column: field.Column(),
		Field:  field.String(),
		Value:  value,
		Note:   note,
	}
	l.mu.Unlock()

	var err error
	switch {
	case l.sink == nil:
		err = errors.New("no remote audit sink")
	case e.Sheet == "":
		err = errNotOpened
	default:
		err = l.sink.Append(ctx, e)
	}
	if err == nil {
		log.Debug().Str("field", e.Field).Int("column", e.Column).Msg("audit entry written")
		return
	}

	log.Warn().Err(err).Str("field", e.Field).Msg("audit entry fell back to local log")
	msg := fmt.Sprintf("Error in write log: %v; %s=%q", err, e.Field, e.Value)
	if note != "" {
		msg += fmt.Sprintf(" note=%q", note)
	}
	l.fallback(msg)
}

func (l *Logger) fallback(message string) {
	if l.local == nil {
		log.Error().Str("message", message).Msg("no local audit log configured")
		return
	}
	if err := l.local.Append(message); err != nil {
		log.Error().Err(err).Str("message", message).Msg("failed to write local audit log")
	}
}

// LogEntry records when a row was started
func (l *Logger) LogEntry(ctx context.Context, at time.Time) {
	l.Write(ctx, FieldLogEntry, at.Format(TimeLayout), "")
}

// IP records the device address
func (l *Logger) IP(ctx context.Context, ip string) {
	l.Write(ctx, FieldIP, ip, "")
}

// Token records the credential expiration in use
func (l *Logger) Token(ctx context.Context, expiration time.Time) {
	l.Write(ctx, FieldToken, expiration.Format(TimeLayout), "")
}

// Instrument records the instrument name
func (l *Logger) Instrument(ctx context.Context, name string) {
	l.Write(ctx, FieldInstrument, name, "")
}

// UserInfo records the user full name, or the raw card id of an unknown
// card.
func (l *Logger) UserInfo(ctx context.Context, info string) {
	l.Write(ctx, FieldUserInfo, info, "")
}

// RecordingStart records the start of a session and its reservation id.
func (l *Logger) RecordingStart(ctx context.Context, at time.Time, reservationID string) {
	l.Write(ctx, FieldRecordingStart, at.Format(TimeLayout), reservationID)
}

// RecordingExtended records an extension
func (l *Logger) RecordingExtended(ctx context.Context, at time.Time, note string) {
	l.Write(ctx, FieldRecordingExtended, at.Format(TimeLayout), note)
}

// RecordingEnd records the end of a session and how it ended
func (l *Logger) RecordingEnd(ctx context.Context, at time.Time, note string) {
	l.Write(ctx, FieldRecordingEnd, at.Format(TimeLayout), note)
}

// Error records a failed operation
func (l *Logger) Error(ctx context.Context, message string) {
	l.Write(ctx, FieldError, message, "")
}

// Version records the software version running on the device
func (l *Logger) Version(ctx context.Context, version string) {
	l.Write(ctx, FieldVersion, version, "")
}

// Close closes the remote sink.
func (l *Logger) Close() error {
	if l.sink == nil {
		return nil
	}
	if err := l.sink.Close(); err != nil {
		return fmt.Errorf("failed to close audit sink: %w", err)
	}
	return nil
}
