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

package netmon

import (
	"context"
	"sync"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []string
	mu     sync.Mutex
}

func (n *recordingNotifier) ConnectionLost(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "lost")
}

func (n *recordingNotifier) ConnectionRestored(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "restored")
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	copy(out, n.events)
	return out
}

type scriptedProber struct {
	results []bool
	mu      sync.Mutex
	calls   int
}

func (p *scriptedProber) Probe(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls >= len(p.results) {
		p.calls++
		return p.results[len(p.results)-1]
	}
	ok := p.results[p.calls]
	p.calls++
	return ok
}

func (p *scriptedProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestLinkHysteresis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		results  []bool
		want     []Transition
		startsOn bool
	}{
		{
			name:     "two failures stay online",
			startsOn: true,
			results:  []bool{false, false},
			want:     []Transition{NoChange, NoChange},
		},
		{
			name:     "third failure goes offline",
			startsOn: true,
			results:  []bool{false, false, false},
			want:     []Transition{NoChange, NoChange, WentOffline},
		},
		{
			name:     "success resets counter",
			startsOn: true,
			results:  []bool{false, false, true, false, false},
			want:     []Transition{NoChange, NoChange, NoChange, NoChange, NoChange},
		},
		{
			name:     "first success restores",
			startsOn: false,
			results:  []bool{false, true},
			want:     []Transition{NoChange, CameOnline},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			link := NewLink(3)
			online := tt.startsOn
			for i, ok := range tt.results {
				got := link.Observe(online, ok)
				assert.Equal(t, tt.want[i], got, "result %d", i)
				switch got {
				case WentOffline:
					online = false
				case CameOnline:
					online = true
				}
			}
		})
	}
}

func TestMonitorObserve_FlipsSessionWithNotification(t *testing.T) {
	t.Parallel()

	session := kiosk.NewSession()
	notifier := &recordingNotifier{}
	m := NewMonitor(session, &scriptedProber{results: []bool{true}}, notifier, nil)
	ctx := context.Background()

	m.Observe(ctx, false)
	m.Observe(ctx, false)
	assert.True(t, session.Online(), "two failures must not flip the flag")
	assert.Empty(t, notifier.Events())

	assert.Equal(t, WentOffline, m.Observe(ctx, false))
	assert.False(t, session.Online())

	// Further failures do not repeat the notification.
	assert.Equal(t, NoChange, m.Observe(ctx, false))

	assert.Equal(t, CameOnline, m.Observe(ctx, true))
	assert.True(t, session.Online())
	assert.Equal(t, []string{"lost", "restored"}, notifier.Events())
}

func TestMonitorObserve_SeededOffline(t *testing.T) {
	t.Parallel()

	session := kiosk.NewSession()
	session.SetOnline(false)
	notifier := &recordingNotifier{}
	m := NewMonitor(session, nil, notifier, nil)

	assert.Equal(t, CameOnline, m.Observe(context.Background(), true))
	assert.True(t, session.Online())
	assert.Equal(t, []string{"restored"}, notifier.Events())
}

func TestMonitorRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	session := kiosk.NewSession()
	notifier := &recordingNotifier{}
	prober := &scriptedProber{results: []bool{false}}
	m := NewMonitor(session, prober, notifier, &Config{Interval: time.Millisecond, FailureThreshold: 3})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return !session.Online() }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, prober.Calls(), 3)
	assert.Equal(t, []string{"lost"}, notifier.Events())
}

func TestMonitorNotifierRunsUnderGeneralLock(t *testing.T) {
	t.Parallel()

	session := kiosk.NewSession()
	session.SetOnline(false)

	locked := make(chan struct{})
	release := make(chan struct{})
	go session.WithLock(func() {
		close(locked)
		<-release
	})
	<-locked

	m := NewMonitor(session, nil, &recordingNotifier{}, nil)
	done := make(chan struct{})
	go func() {
		m.Observe(context.Background(), true)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("flag change must wait for the general lock")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done
	assert.True(t, session.Online())
}

func TestTransitionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no-change", NoChange.String())
	assert.Equal(t, "went-offline", WentOffline.String())
	assert.Equal(t, "came-online", CameOnline.String())
}
