// Package session owns the parking API session token: it restores the persisted
// token, re-authenticates when the token is absent or expired, and wraps API
// calls so that an unauthorized response triggers exactly one refresh and one retry.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"parkingagent/backend/services/parking-agent/internal/clients"
	"parkingagent/backend/services/parking-agent/internal/token"
)

const accessTokenHeader = "X-Access-Token"

// Authenticator exchanges credentials for a fresh raw token.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Manager holds the live token. It is not safe for concurrent use.
type Manager struct {
	store    Store
	auth     Authenticator
	identity map[string]string
	now      func() time.Time
	logger   *zap.Logger

	token   string
	payload token.Payload
}

// Option customizes the manager.
type Option func(*Manager)

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a manager. identity holds the static device and client
// headers sent with every authenticated call.
func NewManager(store Store, auth Authenticator, identity map[string]string, logger *zap.Logger, opts ...Option) *Manager {
	headers := make(map[string]string, len(identity))
	for k, v := range identity {
		headers[k] = v
	}
	m := &Manager{
		store:    store,
		auth:     auth,
		identity: headers,
		now:      time.Now,
		logger:   logger.Named("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads the persisted record. An unreadable, undecodable or expired
// record leaves the manager without a token; the next use authenticates.
func (m *Manager) Restore(ctx context.Context) {
	rec, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			m.logger.Debug("no persisted session")
		} else {
			m.logger.Warn("persisted session unreadable", zap.Error(err))
		}
		return
	}

	payload, err := token.Decode(rec.Token)
	if err != nil {
		m.logger.Warn("persisted token undecodable", zap.Error(err))
		return
	}
	if !payload.Valid(m.now()) {
		m.logger.Debug("persisted token expired", zap.Time("expired_at", payload.ExpiresAt))
		return
	}

	m.token, m.payload = rec.Token, payload
	m.logger.Debug("session restored", zap.Time("expires_at", payload.ExpiresAt))
}

// EnsureToken returns the current token while its exp lies in the future and
// authenticates otherwise.
func (m *Manager) EnsureToken(ctx context.Context) (string, error) {
	if m.token != "" && m.payload.Valid(m.now()) {
		return m.token, nil
	}
	return m.Authenticate(ctx)
}

// Authenticate exchanges credentials for a new token and persists it. Transport
// failures are returned unchanged; any other failure is an *AuthenticationError.
func (m *Manager) Authenticate(ctx context.Context) (string, error) {
	raw, err := m.auth.Authenticate(ctx)
	if err != nil {
		var transportErr *clients.TransportError
		if errors.As(err, &transportErr) {
			return "", err
		}
		return "", &AuthenticationError{Err: err}
	}

	payload, err := token.Decode(raw)
	if err != nil {
		return "", &AuthenticationError{Err: err}
	}

	m.token, m.payload = raw, payload
	if err := m.store.Save(ctx, Record{Token: raw, Exp: payload.ExpiresAt.Unix()}); err != nil {
		m.logger.Warn("failed to persist session", zap.Error(err))
	}

	m.logger.Info("authenticated",
		zap.Int64("subject_id", payload.SubjectID),
		zap.Time("expires_at", payload.ExpiresAt),
	)
	return raw, nil
}

// SubjectID returns the account id carried by the current token.
func (m *Manager) SubjectID(ctx context.Context) (int64, error) {
	if _, err := m.EnsureToken(ctx); err != nil {
		return 0, err
	}
	return m.payload.SubjectID, nil
}

// Call runs req with session headers. On a 401 it re-authenticates once and
// runs req once more; a second 401 returns ErrUnauthorizedRetryExhausted.
func (m *Manager) Call(ctx context.Context, req clients.Request) (int, []byte, error) {
	tok, err := m.EnsureToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, body, err := req(ctx, m.headers(tok))
	if err != nil || status != http.StatusUnauthorized {
		return status, body, err
	}

	m.logger.Info("request unauthorized, re-authenticating")
	if tok, err = m.Authenticate(ctx); err != nil {
		return 0, nil, err
	}

	status, body, err = req(ctx, m.headers(tok))
	if err != nil {
		return status, body, err
	}
	if status == http.StatusUnauthorized {
		return status, body, ErrUnauthorizedRetryExhausted
	}
	return status, body, nil
}

func (m *Manager) headers(tok string) map[string]string {
	headers := make(map[string]string, len(m.identity)+1)
	for k, v := range m.identity {
		headers[k] = v
	}
	headers[accessTokenHeader] = tok
	return headers
}
