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
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIssuer struct {
	err   error
	cred  kiosk.Credential
	mu    sync.Mutex
	calls int
}

func (f *fakeIssuer) FetchToken(context.Context) (kiosk.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.cred, f.err
}

func (f *fakeIssuer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingStore struct {
	cred kiosk.Credential
	err  error
}

func (s *failingStore) Load() (kiosk.Credential, error) { return s.cred, s.err }
func (*failingStore) Save(kiosk.Credential) error        { return errors.New("disk full") }

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, issuer *fakeIssuer) (*Manager, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	m := NewManager(store, issuer, WithClock(func() time.Time { return fixedNow }))
	return m, store
}

func TestVerify_ReusesValidCredential(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{}
	m, store := newTestManager(t, issuer)
	stored := kiosk.Credential{Value: "cached", Expiration: fixedNow.Add(10 * time.Minute)}
	require.NoError(t, store.Save(stored))

	cred, err := m.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", cred.Value)
	assert.Equal(t, 0, issuer.Calls())
}

func TestVerify_RenewsCredentialInsideBuffer(t *testing.T) {
	t.Parallel()

	fresh := kiosk.Credential{Value: "fresh", Expiration: fixedNow.Add(time.Hour)}
	issuer := &fakeIssuer{cred: fresh}
	m, store := newTestManager(t, issuer)
	require.NoError(t, store.Save(kiosk.Credential{Value: "old", Expiration: fixedNow.Add(4 * time.Minute)}))

	cred, err := m.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.Value)
	assert.Equal(t, 1, issuer.Calls())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", persisted.Value)
	assert.True(t, persisted.Expiration.Equal(fresh.Expiration))
}

func TestVerify_MissingOrCorruptFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "missing file", content: nil},
		{name: "not json", content: []byte("{{{")},
		{name: "bad expiration", content: []byte(`{"string":"x","expiration":"tomorrow"}`)},
		{name: "empty token", content: []byte(`{"string":"","expiration":"2030-01-01T00:00:00"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			issuer := &fakeIssuer{cred: kiosk.Credential{Value: "fresh", Expiration: fixedNow.Add(time.Hour)}}
			m, store := newTestManager(t, issuer)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(store.Path(), tt.content, 0o600))
			}

			cred, err := m.Verify(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "fresh", cred.Value)
			assert.Equal(t, 1, issuer.Calls())
		})
	}
}

func TestVerify_SaveFailureStillReturnsCredential(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: kiosk.Credential{Value: "fresh", Expiration: fixedNow.Add(time.Hour)}}
	m := NewManager(&failingStore{err: kiosk.ErrCredentialMissing}, issuer,
		WithClock(func() time.Time { return fixedNow }))

	cred, err := m.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.Value)
}

func TestVerify_IssuerFailure(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{err: kiosk.ErrUnauthorized}
	m, _ := newTestManager(t, issuer)

	_, err := m.Verify(context.Background())
	require.ErrorIs(t, err, kiosk.ErrUnauthorized)
}

func TestVerify_IssuerReturnsEmptyCredential(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, &fakeIssuer{})

	_, err := m.Verify(context.Background())
	require.ErrorIs(t, err, kiosk.ErrMalformedResponse)
}

func TestWithBuffer(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: kiosk.Credential{Value: "fresh", Expiration: fixedNow.Add(time.Hour)}}
	m, store := newTestManager(t, issuer)
	WithBuffer(20 * time.Minute)(m)
	require.NoError(t, store.Save(kiosk.Credential{Value: "old", Expiration: fixedNow.Add(10 * time.Minute)}))

	cred, err := m.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.Value)
}

func TestInvalidateForcesRenewal(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{cred: kiosk.Credential{Value: "fresh", Expiration: fixedNow.Add(time.Hour)}}
	m, store := newTestManager(t, issuer)
	require.NoError(t, store.Save(kiosk.Credential{Value: "revoked", Expiration: fixedNow.Add(time.Hour)}))

	m.Invalidate()
	cred, err := m.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.Value)
	assert.Equal(t, 1, issuer.Calls())

	cred, err = m.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", cred.Value)
	assert.Equal(t, 1, issuer.Calls(), "renewed credential is reused")
}

func TestInvalidateSurvivesIssuerFailure(t *testing.T) {
	t.Parallel()

	issuer := &fakeIssuer{err: errors.New("backend down")}
	m, store := newTestManager(t, issuer)
	require.NoError(t, store.Save(kiosk.Credential{Value: "revoked", Expiration: fixedNow.Add(time.Hour)}))

	m.Invalidate()
	_, err := m.Verify(context.Background())
	require.Error(t, err)

	_, err = m.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, issuer.Calls())
}
