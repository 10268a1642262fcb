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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame errors
var (
	ErrTooLarge           = errors.New("frame data too large")
	ErrNoStartCode        = errors.New("frame start code not found")
	ErrTruncated          = errors.New("frame truncated")
	ErrLengthChecksum     = errors.New("frame length checksum mismatch")
	ErrDataChecksum       = errors.New("frame data checksum mismatch")
	ErrApplication        = errors.New("PN532 application error")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// CalculateChecksum returns the 8-bit sum of data
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// ValidateChecksum reports whether data fails its zero-sum check, in which
// case the frame must be NACKed.
func ValidateChecksum(data []byte) bool {
	return CalculateChecksum(data) != 0
}

// CalculateLengthChecksum returns LCS for a frame length
func CalculateLengthChecksum(length byte) byte {
	return ^length + 1
}

// CalculateDataChecksum returns DCS for TFI followed by data
func CalculateDataChecksum(tfi byte, data []byte) byte {
	return ^(tfi + CalculateChecksum(data)) + 1
}

// Build returns a normal information frame carrying cmd and args.
func Build(cmd byte, args []byte) ([]byte, error) {
	dataLen := 2 + len(args)
	if dataLen > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, dataLen)
	}

	payload := make([]byte, 0, 1+len(args))
	payload = append(payload, cmd)
	payload = append(payload, args...)

	frm := make([]byte, 0, Overhead+dataLen)
	frm = append(frm, Preamble, StartCode1, StartCode2,
		byte(dataLen), CalculateLengthChecksum(byte(dataLen)),
		HostToPn532)
	frm = append(frm, payload...)
	frm = append(frm, CalculateDataChecksum(HostToPn532, payload), Postamble)
	return frm, nil
}

// IsAck reports whether buf starts with an ACK frame, ignoring leading
// zero padding.
func IsAck(buf []byte) bool {
	return bytes.Contains(buf, AckFrame[1:])
}

// Parse extracts the response payload for cmd from buf. The returned
// slice starts after the response code (cmd+1).
//
// Checksum failures return ErrLengthChecksum or ErrDataChecksum so the
// caller can NACK and ask for a retransmission.
func Parse(buf []byte, cmd byte) ([]byte, error) {
	off := -1
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			off = i + 2
			break
		}
	}
	if off < 0 {
		return nil, ErrNoStartCode
	}
	if off+2 > len(buf) {
		return nil, ErrTruncated
	}

	length := buf[off]
	if length+buf[off+1] != 0 {
		return nil, ErrLengthChecksum
	}
	start := off + 2
	end := start + int(length)
	if length == 0 || end+1 > len(buf) {
		return nil, ErrTruncated
	}
	if ValidateChecksum(buf[start : end+1]) {
		return nil, ErrDataChecksum
	}

	data := buf[start:end]
	if data[0] == ErrorTFI {
		return nil, ErrApplication
	}
	if data[0] != Pn532ToHost || len(data) < 2 {
		return nil, fmt.Errorf("%w: TFI 0x%02X", ErrUnexpectedResponse, data[0])
	}
	if data[1] != cmd+1 {
		return nil, fmt.Errorf("%w: code 0x%02X for command 0x%02X", ErrUnexpectedResponse, data[1], cmd)
	}

	out := make([]byte, len(data)-2)
	copy(out, data[2:])
	return out, nil
}
