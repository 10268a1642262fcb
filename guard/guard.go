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

// Package guard is the single chokepoint for remote calls. It waits for
// connectivity, supplies a valid credential and turns failures into
// user-visible errors and audit entries, so callers only see a result and
// a success flag.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/rs/zerolog/log"
)

// DefaultOnlinePoll is how often a blocked call re-checks connectivity
const DefaultOnlinePoll = 2 * time.Second

// ErrPanic wraps a panic recovered from a guarded operation
var ErrPanic = errors.New("operation panicked")

// Verifier supplies a credential valid for the next call.
type Verifier interface {
	Verify(ctx context.Context) (kiosk.Credential, error)
}

// Invalidator is implemented by verifiers that can drop a credential the
// backend refused.
type Invalidator interface {
	Invalidate()
}

// Reporter shows guard events to the user.
type Reporter interface {
	NoConnection(ctx context.Context)
	Error(ctx context.Context, op string, err error)
}

// Auditor records failed operations.
type Auditor interface {
	Error(ctx context.Context, message string)
}

// Option configures a Guard
type Option func(*Guard)

// WithAudit records failures in the audit log.
func WithAudit(a Auditor) Option {
	return func(g *Guard) {
		g.audit = a
	}
}

// WithOnlinePoll sets the connectivity re-check interval.
func WithOnlinePoll(d time.Duration) Option {
	return func(g *Guard) {
		g.onlinePoll = d
	}
}

// Guard wraps remote calls made on behalf of a session.
type Guard struct {
	session    *kiosk.Session
	tokens     Verifier
	reporter   Reporter
	audit      Auditor
	onlinePoll time.Duration
}

// New creates a Guard.
func New(session *kiosk.Session, tokens Verifier, reporter Reporter, opts ...Option) *Guard {
	g := &Guard{
		session:    session,
		tokens:     tokens,
		reporter:   reporter,
		onlinePoll: DefaultOnlinePoll,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Call waits until the session is online, verifies the credential, stores
// it in the session and runs fn with it. ok is false when fn did not
// produce a result: absent results are returned quietly, every other
// failure is shown, logged and audited under op.
//
// Call never holds the session lock while waiting.
func Call[T any](ctx context.Context, g *Guard, op string, fn func(context.Context, kiosk.Credential) (T, error)) (T, bool) {
	var zero T
	if err := g.waitOnline(ctx); err != nil {
		return zero, false
	}

	cred, err := g.tokens.Verify(ctx)
	if err != nil {
		if ctx.Err() == nil {
			g.fail(ctx, op, err)
		}
		return zero, false
	}
	g.session.SetCredential(cred)

	result, err := invoke(ctx, cred, fn)
	switch {
	case err == nil:
		return result, true
	case ctx.Err() != nil:
		log.Debug().Str("op", op).Msg("call abandoned, shutting down")
	case kiosk.IsAbsent(err):
		log.Debug().Err(err).Str("op", op).Msg("no result")
	default:
		if errors.Is(err, kiosk.ErrUnauthorized) {
			if inv, ok := g.tokens.(Invalidator); ok {
				inv.Invalidate()
			}
		}
		g.fail(ctx, op, err)
	}
	return zero, false
}

// Do is Call for operations without a result.
func Do(ctx context.Context, g *Guard, op string, fn func(context.Context, kiosk.Credential) error) bool {
	_, ok := Call(ctx, g, op, func(ctx context.Context, cred kiosk.Credential) (struct{}, error) {
		return struct{}{}, fn(ctx, cred)
	})
	return ok
}

func invoke[T any](
	ctx context.Context,
	cred kiosk.Credential,
	fn func(context.Context, kiosk.Credential) (T, error),
) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx, cred)
}

// waitOnline blocks until the session is online. While waiting the UI is
// marked busy and buttons are blocked.
func (g *Guard) waitOnline(ctx context.Context) error {
	if g.session.Online() {
		return nil
	}

	log.Warn().Msg("device offline, holding remote call")
	g.session.SetUIBusy(true)
	g.session.SetButtonsBlocked(true)
	defer func() {
		g.session.SetUIBusy(false)
		g.session.SetButtonsBlocked(false)
	}()

	for !g.session.Online() {
		g.reporter.NoConnection(ctx)
		if err := kiosk.Sleep(ctx, g.onlinePoll); err != nil {
			return err
		}
	}
	log.Info().Msg("device online, resuming remote call")
	return nil
}

func (g *Guard) fail(ctx context.Context, op string, err error) {
	log.Error().Err(err).Str("op", op).Msg("remote call failed")
	g.reporter.Error(ctx, op, err)
	if g.audit != nil {
		g.audit.Error(ctx, op+": "+err.Error())
	}
}
