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

// Package api is the HTTP/JSON client for the reservation backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	kiosk "github.com/ZaparooProject/go-labkiosk"
	"github.com/ZaparooProject/go-labkiosk/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ReservationIDPlaceholder is replaced by the reservation id in the
// recording info endpoint.
const ReservationIDPlaceholder = "{reservation_id}"

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 4096

// Endpoints are the absolute URLs of the backend operations.
type Endpoints struct {
	Token           string `yaml:"token"`
	InstrumentByMAC string `yaml:"instrument_by_mac"`
	UserByCard      string `yaml:"user_by_card"`
	RecordingStart  string `yaml:"recording_start"`
	RecordingInfo   string `yaml:"recording_info"`
	RecordingStop   string `yaml:"recording_stop"`
}

// Validate reports a missing or malformed endpoint.
func (e Endpoints) Validate() error {
	for name, v := range map[string]string{
		"token":             e.Token,
		"instrument_by_mac": e.InstrumentByMAC,
		"user_by_card":      e.UserByCard,
		"recording_start":   e.RecordingStart,
		"recording_info":    e.RecordingInfo,
		"recording_stop":    e.RecordingStop,
	} {
		if v == "" {
			return fmt.Errorf("%w: endpoint %s not set", kiosk.ErrInvalidConfig, name)
		}
	}
	if !strings.Contains(e.RecordingInfo, ReservationIDPlaceholder) {
		return fmt.Errorf("%w: recording_info must contain %s", kiosk.ErrInvalidConfig, ReservationIDPlaceholder)
	}
	return nil
}

// Config holds client settings
type Config struct {
	Retry     *kiosk.RetryConfig
	APIKey    string
	Endpoints Endpoints
	Timeout   time.Duration
	RateLimit rate.Limit
	Burst     int
}

// DefaultConfig returns client settings without endpoints.
func DefaultConfig() *Config {
	return &Config{
		Timeout:   10 * time.Second,
		RateLimit: rate.Limit(5),
		Burst:     5,
		Retry:     kiosk.DefaultRetryConfig(),
	}
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// Client implements kiosk.API over HTTP.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	config  *Config
}

// NewClient creates a client. A nil config uses DefaultConfig.
func NewClient(config *Config, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	limit := config.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	c := &Client{
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(limit, max(config.Burst, 1)),
		config:  config,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one backend call
type request struct {
	body   any
	method string
	url    string
	op     string
	cred   kiosk.Credential
	// absent is the error for a refused or empty answer.
	absent error
}

// do performs r with retries and decodes a 200 answer into out. It
// returns the absent error for an empty answer. A nil out accepts any 200
// answer.
func (c *Client) do(ctx context.Context, r request, out any) error {
	return kiosk.RetryWithConfig(ctx, c.config.Retry, func() error {
		return c.once(ctx, r, out)
	})
}

func (c *Client) once(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return kiosk.NewRemoteError(r.op, 0, err)
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.cred.IsZero() {
		req.Header.Set("Authorization", "Bearer "+r.cred.Value)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return kiosk.NewRemoteError(r.op, 0, transportError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug().
		Str("op", r.op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode != http.StatusOK {
		return statusError(r, resp)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return kiosk.NewRemoteError(r.op, resp.StatusCode, transportError(err))
	}
	if isEmpty(data) {
		return kiosk.NewRemoteError(r.op, resp.StatusCode, r.absent)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return kiosk.NewRemoteError(r.op, resp.StatusCode, fmt.Errorf("%w: %w", kiosk.ErrMalformedResponse, err))
	}
	return nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", kiosk.ErrRemoteTimeout, err)
	}
	return err
}

// errorBody is the error payload shape of the backend
type errorBody struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func statusError(r request, resp *http.Response) error {
	var detail string
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		detail = strings.TrimSpace(eb.Message + " " + eb.Status)
	}

	var base error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		base = kiosk.ErrUnauthorized
	case resp.StatusCode >= http.StatusInternalServerError:
		base = kiosk.ErrServerError
	default:
		base = r.absent
	}
	if detail != "" {
		base = fmt.Errorf("%w: %s", base, detail)
	}
	return kiosk.NewRemoteError(r.op, resp.StatusCode, base)
}

func isEmpty(data []byte) bool {
	switch string(bytes.TrimSpace(data)) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}

// tokenResponse answers the token endpoint
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

// FetchToken exchanges the API key for a credential.
func (c *Client) FetchToken(ctx context.Context) (kiosk.Credential, error) {
	var out tokenResponse
	err := c.do(ctx, request{
		op:     "FetchToken",
		method: http.MethodPost,
		url:    c.config.Endpoints.Token,
		body:   map[string]string{"apiKey": c.config.APIKey},
		absent: kiosk.ErrUnauthorized,
	}, &out)
	if err != nil {
		return kiosk.Credential{}, err
	}
	if out.AccessToken == "" {
		return kiosk.Credential{}, kiosk.NewRemoteError("FetchToken", http.StatusOK, kiosk.ErrMalformedResponse)
	}
	exp, err := token.ParseExpiration(out.ExpiresAt)
	if err != nil {
		return kiosk.Credential{}, kiosk.NewRemoteError("FetchToken", http.StatusOK,
			fmt.Errorf("%w: %w", kiosk.ErrMalformedResponse, err))
	}
	return kiosk.Credential{Value: out.AccessToken, Expiration: exp}, nil
}

// instrumentRecord is one row of the instrument lookup
type instrumentRecord struct {
	ID    flexString `json:"equipmentid"`
	Alias string     `json:"alias"`
}

// FetchInstrument looks the instrument up by the MAC address of this
// device. The IP is carried along for display and audit.
func (c *Client) FetchInstrument(ctx context.Context, cred kiosk.Credential, mac, ip string) (kiosk.Instrument, error) {
	var out []instrumentRecord
	err := c.do(ctx, request{
		op:     "FetchInstrument",
		method: http.MethodPost,
		url:    c.config.Endpoints.InstrumentByMAC,
		body:   map[string]string{"mac_address": mac},
		cred:   cred,
		absent: kiosk.ErrNotFound,
	}, &out)
	if err != nil {
		return kiosk.Instrument{}, err
	}
	if len(out) == 0 {
		return kiosk.Instrument{}, kiosk.NewRemoteError("FetchInstrument", http.StatusOK, kiosk.ErrNotFound)
	}
	return kiosk.Instrument{
		ID:         string(out[0].ID),
		Name:       out[0].Alias,
		MACAddress: mac,
		IP:         ip,
	}, nil
}

// userRecord is one row of the user lookup
type userRecord struct {
	ID        flexString `json:"contactid"`
	FirstName string     `json:"firstname"`
	FullName  string     `json:"full_name"`
}

// FetchUser looks the card holder up. The first name is returned without
// diacritics so the display can render it.
func (c *Client) FetchUser(ctx context.Context, cred kiosk.Credential, cardID string) (kiosk.User, error) {
	var out []userRecord
	err := c.do(ctx, request{
		op:     "FetchUser",
		method: http.MethodPost,
		url:    c.config.Endpoints.UserByCard,
		body:   map[string]string{"rfid": cardID},
		cred:   cred,
		absent: kiosk.ErrNotFound,
	}, &out)
	if err != nil {
		return kiosk.User{}, err
	}
	if len(out) == 0 {
		return kiosk.User{}, kiosk.NewRemoteError("FetchUser", http.StatusOK, kiosk.ErrNotFound)
	}
	return kiosk.User{
		ID:       string(out[0].ID),
		Name:     StripDiacritics(out[0].FirstName),
		FullName: out[0].FullName,
		CardID:   cardID,
	}, nil
}

// recordingResponse answers the recording start and info endpoints
type recordingResponse struct {
	Recording   flexString `json:"recording"`
	Reservation flexString `json:"reservation"`
	TimeToEnd   *minutes   `json:"timetoend"`
}

// remaining returns the time left, or ErrMalformedResponse when the
// backend left it out.
func (r recordingResponse) remaining(op string) (int, error) {
	if r.TimeToEnd == nil {
		return 0, kiosk.NewRemoteError(op, http.StatusOK,
			fmt.Errorf("%w: missing timetoend", kiosk.ErrMalformedResponse))
	}
	return int(*r.TimeToEnd), nil
}

// StartOrExtendReservation starts recording on the user's current
// reservation, or extends it when already recording.
func (c *Client) StartOrExtendReservation(
	ctx context.Context, cred kiosk.Credential, user kiosk.User, in kiosk.Instrument,
) (kiosk.ReservationStart, error) {
	var out recordingResponse
	err := c.do(ctx, request{
		op:     "StartOrExtendReservation",
		method: http.MethodPost,
		url:    c.config.Endpoints.RecordingStart,
		body:   map[string]string{"contactId": user.ID, "equipmentId": in.ID},
		cred:   cred,
		absent: kiosk.ErrRejected,
	}, &out)
	if err != nil {
		return kiosk.ReservationStart{}, err
	}
	if out.Reservation == "" {
		return kiosk.ReservationStart{}, kiosk.NewRemoteError("StartOrExtendReservation", http.StatusOK, kiosk.ErrRejected)
	}
	remaining, err := out.remaining("StartOrExtendReservation")
	if err != nil {
		return kiosk.ReservationStart{}, err
	}
	return kiosk.ReservationStart{
		ReservationID: string(out.Reservation),
		RecordingID:   string(out.Recording),
		Remaining:     remaining,
	}, nil
}

// FetchReservationStatus returns the minutes left on r.
func (c *Client) FetchReservationStatus(ctx context.Context, cred kiosk.Credential, r kiosk.Reservation) (int, error) {
	var out recordingResponse
	endpoint := strings.ReplaceAll(c.config.Endpoints.RecordingInfo, ReservationIDPlaceholder, url.PathEscape(r.ID))
	err := c.do(ctx, request{
		op:     "FetchReservationStatus",
		method: http.MethodGet,
		url:    endpoint,
		cred:   cred,
		absent: kiosk.ErrNotFound,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.remaining("FetchReservationStatus")
}

// StopReservation ends recording on r.
func (c *Client) StopReservation(ctx context.Context, cred kiosk.Credential, r kiosk.Reservation, in kiosk.Instrument) error {
	return c.do(ctx, request{
		op:     "StopReservation",
		method: http.MethodPost,
		url:    c.config.Endpoints.RecordingStop,
		body:   map[string]string{"serviceAppointmentId": r.ID, "equipmentId": in.ID},
		cred:   cred,
		absent: kiosk.ErrRejected,
	}, nil)
}

var _ kiosk.API = (*Client)(nil)
