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

package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
)

// ErrCorrupt is returned when a persisted credential cannot be decoded.
var ErrCorrupt = errors.New("persisted credential is corrupt")

// Store persists a single credential.
type Store interface {
	// Load returns kiosk.ErrCredentialMissing when nothing is stored and
	// ErrCorrupt when the stored data cannot be parsed.
	Load() (kiosk.Credential, error)
	Save(cred kiosk.Credential) error
}

// record is the on-disk credential layout.
type record struct {
	String     string `json:"string"`
	Expiration string `json:"expiration"`
}

// expiration layouts accepted on load. Timestamps without a zone are
// read as local time.
var expirationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseExpiration parses an ISO-8601 expiration timestamp.
func ParseExpiration(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range expirationLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiration %q", s)
}

// FormatExpiration renders an expiration the way it is persisted.
func FormatExpiration(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Encode returns the JSON form of a credential.
func Encode(cred kiosk.Credential) ([]byte, error) {
	data, err := json.Marshal(record{String: cred.Value, Expiration: FormatExpiration(cred.Expiration)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}
	return data, nil
}

// Decode parses the JSON form of a credential.
func Decode(data []byte) (kiosk.Credential, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return kiosk.Credential{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.String == "" {
		return kiosk.Credential{}, fmt.Errorf("%w: empty token", ErrCorrupt)
	}
	exp, err := ParseExpiration(rec.Expiration)
	if err != nil {
		return kiosk.Credential{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return kiosk.Credential{Value: rec.String, Expiration: exp}, nil
}

// FileStore keeps the credential in a JSON file that is overwritten on
// every save.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted credential.
func (s *FileStore) Load() (kiosk.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return kiosk.Credential{}, kiosk.ErrCredentialMissing
	}
	if err != nil {
		return kiosk.Credential{}, fmt.Errorf("failed to read credential file: %w", err)
	}
	return Decode(data)
}

// Save overwrites the credential file.
func (s *FileStore) Save(cred kiosk.Credential) error {
	data, err := Encode(cred)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create credential directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}
