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
	"os"
	"path/filepath"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "rfc3339 utc",
			input: "2025-06-01T10:30:00Z",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 offset",
			input: "2025-06-01T12:30:00+02:00",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "naive with fraction",
			input: "2025-06-01T10:30:00.123456",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 123456000, time.Local),
		},
		{
			name:  "naive",
			input: "2025-06-01T10:30:00",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local),
		},
		{
			name:  "space separated",
			input: " 2025-06-01 10:30:00 ",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseExpiration(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}

	_, err := ParseExpiration("next tuesday")
	require.Error(t, err)
}

func TestFileStoreRoundTripOverwrites(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "token.json"))

	_, err := store.Load()
	require.ErrorIs(t, err, kiosk.ErrCredentialMissing)

	first := kiosk.Credential{Value: "a", Expiration: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := kiosk.Credential{Value: "b", Expiration: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "b", got.Value)
	assert.True(t, second.Expiration.Equal(got.Expiration))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"string":"b","expiration":"2026-01-01T00:00:00Z"}`, string(raw))
}

func TestDecodeCorrupt(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`[]`))
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode([]byte(`{"string":"x"}`))
	require.ErrorIs(t, err, ErrCorrupt)
}
