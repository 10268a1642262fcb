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

// Package audit records kiosk activity as rows of fixed columns, one row
// per card scan, mirrored to a remote sink with a local file fallback.
package audit

import "fmt"

// Field is one audit column. Its value is the 1-based column index.
type Field int

// Audit columns, in column order
const (
	FieldLogEntry Field = iota + 1
	FieldIP
	FieldToken
	FieldInstrument
	FieldUserInfo
	FieldRecordingStart
	FieldRecordingExtended
	FieldRecordingEnd
	FieldError
	FieldVersion
)

var headers = [...]string{
	FieldLogEntry:          "LOG ENTRY",
	FieldIP:                "IP",
	FieldToken:             "TOKEN",
	FieldInstrument:        "INSTRUMENT",
	FieldUserInfo:          "USER INFO",
	FieldRecordingStart:    "RECORDING START",
	FieldRecordingExtended: "RECORDING EXTENDED",
	FieldRecordingEnd:      "RECORDING END",
	FieldError:             "ERROR",
	FieldVersion:           "VERSION",
}

// String returns the column header.
func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return headers[f]
}

// Column returns the 1-based column index.
func (f Field) Column() int {
	return int(f)
}

// Valid reports whether f names a known column.
func (f Field) Valid() bool {
	return f >= FieldLogEntry && f <= FieldVersion
}

// Headers returns the column headers in column order.
func Headers() []string {
	out := make([]string, 0, len(headers)-1)
	for f := FieldLogEntry; f <= FieldVersion; f++ {
		out = append(out, headers[f])
	}
	return out
}
