package auth

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/core"
	"github.com/dkeye/castlink/internal/domain"
	"github.com/dkeye/castlink/internal/metrics"
)

// Persisted settings keys. The password is never written.
const (
	KeyEmail      = "auth_email"
	KeyTrackingID = "auth_tracking_id"
	KeyToken      = "auth_token"
	KeyTokenNonce = "auth_token_nonce"
	KeyStreamKey  = "auth_stream_key"
)

// Outcome of one refresh run.
type Outcome string

const (
	OutcomeConnected   Outcome = "connected"
	OutcomeNoToken     Outcome = "no_token"
	OutcomeNoStreamKey Outcome = "no_stream_key"
	OutcomeCanceled    Outcome = "canceled"
)

// Machine drives login, stream key and room discovery against the
// GraphQL endpoint and records every result in its Store.
type Machine struct {
	Store *Store

	transport core.Transport
	queries   core.QueryBuilder
	url       string
	logger    zerolog.Logger

	tasks taskSet
}

func NewMachine(store *Store, transport core.Transport, queries core.QueryBuilder, url string) *Machine {
	if store == nil {
		store = NewStore()
	}
	m := &Machine{
		Store:     store,
		transport: transport,
		queries:   queries,
		url:       url,
		logger:    log.With().Str("module", "app.auth").Logger(),
	}
	m.tasks.init()
	return m
}

// Refresh runs the state machine once. It never fails; callers read the
// Store afterwards. Overlapping runs are not excluded, last write wins.
func (m *Machine) Refresh(ctx context.Context) {
	outcome := m.run(ctx)
	metrics.RefreshRuns.WithLabelValues(string(outcome)).Inc()
	m.logger.Info().Str("outcome", string(outcome)).Msg("refresh finished")
}

func (m *Machine) run(ctx context.Context) Outcome {
	token := m.Store.Token()
	if token.Empty() {
		token = m.login(ctx)
		if ctx.Err() != nil {
			return OutcomeCanceled
		}
		m.Store.SetToken(token)
		if token.Empty() {
			return OutcomeNoToken
		}
	}

	streamKey := m.fetchStreamKey(ctx, token)
	if ctx.Err() != nil {
		return OutcomeCanceled
	}
	if streamKey == "" {
		// An empty key is read as a revoked token: log in again.
		m.logger.Info().Msg("stream key unavailable, renewing token")
		token = m.login(ctx)
		if ctx.Err() != nil {
			return OutcomeCanceled
		}
		m.Store.SetToken(token)
		if token.Empty() {
			m.Store.SetStreamKey("")
			return OutcomeNoToken
		}

		streamKey = m.fetchStreamKey(ctx, token)
		if streamKey == "" && ctx.Err() == nil {
			// Token is known good now, so the account has no key yet.
			streamKey = m.createStreamKey(ctx, token)
		}
		if ctx.Err() != nil {
			return OutcomeCanceled
		}
	}

	m.Store.SetStreamKey(streamKey)
	if streamKey == "" {
		return OutcomeNoStreamKey
	}

	rooms := m.fetchRooms(ctx, token)
	if ctx.Err() != nil {
		return OutcomeCanceled
	}
	m.Store.SetRooms(rooms)
	return OutcomeConnected
}

func (m *Machine) login(ctx context.Context) domain.Token {
	res, err := m.post(ctx, "login", m.queries.Login(m.Store.Credentials()), nil)
	if err != nil {
		m.fail("login", err)
		return domain.Token{}
	}
	token := TokenFromHeaders(res.Headers)
	if token.Empty() {
		m.fail("login", fmt.Errorf("no %s cookie: %w", jwtCookie, ErrEmptyResult))
		return token
	}
	m.ok("login")
	m.logger.Info().Bool("nonce", token.Nonce != "").Msg("token obtained")
	return token
}

type streamKeyPayload struct {
	UUID string `json:"uuid"`
}

type streamKeyResponse struct {
	Data struct {
		GetStreamKey    *streamKeyPayload `json:"getStreamKey"`
		CreateStreamKey *streamKeyPayload `json:"createStreamKey"`
	} `json:"data"`
}

func (m *Machine) fetchStreamKey(ctx context.Context, token domain.Token) string {
	return m.streamKey(ctx, "get_stream_key", m.queries.GetStreamKey(), token, func(r *streamKeyResponse) *streamKeyPayload {
		return r.Data.GetStreamKey
	})
}

func (m *Machine) createStreamKey(ctx context.Context, token domain.Token) string {
	return m.streamKey(ctx, "create_stream_key", m.queries.CreateStreamKey(), token, func(r *streamKeyResponse) *streamKeyPayload {
		return r.Data.CreateStreamKey
	})
}

func (m *Machine) streamKey(
	ctx context.Context,
	op string,
	q core.Query,
	token domain.Token,
	pick func(*streamKeyResponse) *streamKeyPayload,
) string {
	res, err := m.post(ctx, op, q, authHeaders(token))
	if err != nil {
		m.fail(op, err)
		return ""
	}
	var body streamKeyResponse
	if err := decode(res.Body, &body); err != nil {
		m.fail(op, err)
		return ""
	}
	p := pick(&body)
	if p == nil || p.UUID == "" {
		m.fail(op, ErrEmptyResult)
		return ""
	}
	m.ok(op)
	m.logger.Info().Str("op", op).Msg("stream key obtained")
	return p.UUID
}

func (m *Machine) fetchRooms(ctx context.Context, token domain.Token) domain.Rooms {
	res, err := m.post(ctx, "list_rooms", m.queries.ListRooms(), authHeaders(token))
	if err != nil {
		m.fail("list_rooms", err)
		return domain.Rooms{}
	}
	rooms, err := parseRooms(res.Body)
	if err != nil {
		m.fail("list_rooms", err)
		return domain.Rooms{}
	}
	m.ok("list_rooms")
	m.logger.Info().Int("rooms", rooms.Len()).Msg("rooms obtained")
	return rooms
}

func (m *Machine) post(ctx context.Context, op string, q core.Query, headers []string) (core.Response, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return core.Response{}, fmt.Errorf("%s: encode query: %w", op, err)
	}
	m.logger.Debug().Str("op", op).Str("url", m.url).Msg("request")
	res := m.transport.Execute(ctx, core.Request{URL: m.url, Body: body, Headers: headers})
	if res.Err != nil {
		return res, fmt.Errorf("%s: %w: %w", op, ErrTransport, res.Err)
	}
	if res.StatusCode >= 400 {
		m.logger.Warn().Str("op", op).Int("status", res.StatusCode).Msg("unexpected status")
	}
	return res, nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nil
}

func (m *Machine) ok(op string) {
	metrics.AuthRequests.WithLabelValues(op, "ok").Inc()
}

func (m *Machine) fail(op string, err error) {
	metrics.AuthRequests.WithLabelValues(op, "error").Inc()
	m.logger.Warn().Err(err).Str("op", op).Msg("request failed")
}

// LoadState restores email, tracking id, token and stream key.
func (m *Machine) LoadState(s core.SettingsStore) {
	m.Store.SetCredentials(domain.Credentials{
		Email:      s.GetString(KeyEmail),
		TrackingID: s.GetString(KeyTrackingID),
	})
	m.Store.SetToken(domain.Token{
		Token: s.GetString(KeyToken),
		Nonce: s.GetString(KeyTokenNonce),
	})
	m.Store.SetStreamKey(s.GetString(KeyStreamKey))
}

func (m *Machine) SaveState(s core.SettingsStore) {
	creds := m.Store.Credentials()
	token := m.Store.Token()

	s.SetString(KeyEmail, creds.Email)
	s.SetString(KeyTrackingID, creds.TrackingID)
	s.SetString(KeyToken, token.Token)
	s.SetString(KeyTokenNonce, token.Nonce)
	s.SetString(KeyStreamKey, m.Store.StreamKey())
}

// ClearCurrentState is a logout: everything but email and tracking id goes.
func (m *Machine) ClearCurrentState() {
	m.Store.Reset()
}
