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

package kiosktest

import (
	"context"
	"sync"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/audit"
)

// Verifier returns a fixed credential or error.
type Verifier struct {
	Err         error
	Cred        kiosk.Credential
	mu          sync.Mutex
	calls       int
	invalidated int
}

func (v *Verifier) Verify(context.Context) (kiosk.Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.Cred, v.Err
}

func (v *Verifier) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invalidated++
}

// Calls returns how often Verify was called
func (v *Verifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// Invalidated returns how often Invalidate was called
func (v *Verifier) Invalidated() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.invalidated
}

// Store keeps a credential in memory.
type Store struct {
	LoadErr error
	SaveErr error
	Cred    kiosk.Credential
	mu      sync.Mutex
	saved   bool
}

func (s *Store) Load() (kiosk.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return kiosk.Credential{}, s.LoadErr
	}
	if !s.saved && s.Cred.IsZero() {
		return kiosk.Credential{}, kiosk.ErrCredentialMissing
	}
	return s.Cred, nil
}

func (s *Store) Save(c kiosk.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Cred, s.saved = c, true
	return nil
}

// Sink keeps audit entries in memory.
type Sink struct {
	Err     error
	entries []audit.Entry
	mu      sync.Mutex
}

func (s *Sink) Append(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (*Sink) Close() error { return nil }

// Entries returns the stored entries in order
func (s *Sink) Entries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

// Values returns the values written to field, in order. Header entries
// are left out.
func (s *Sink) Values(field audit.Field) []string {
	var out []string
	for _, e := range s.Entries() {
		if e.Column == field.Column() && e.Row != audit.HeaderRow {
			out = append(out, e.Value)
		}
	}
	return out
}

// Notes returns the notes written to field, in order.
func (s *Sink) Notes(field audit.Field) []string {
	var out []string
	for _, e := range s.Entries() {
		if e.Column == field.Column() && e.Row != audit.HeaderRow {
			out = append(out, e.Note)
		}
	}
	return out
}

var _ audit.Sink = (*Sink)(nil)
