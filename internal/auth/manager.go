package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/shared"
	"golang.org/x/oauth2"
)

// SafetyMargin is subtracted from the recorded expiry: a token inside the
// margin is refreshed even though the provider still considers it live, so
// the returned token stays valid for at least the next call.
const SafetyMargin = 60 * time.Second

// State describes whether the manager holds usable credentials.
type State int

const (
	Unauthorized State = iota
	Authorized
)

func (s State) String() string {
	if s == Authorized {
		return "authorized"
	}
	return "unauthorized"
}

// Refresher performs the refresh-token grant against the provider.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Authorizer runs the interactive authorization-code flow. It blocks on a
// one-time user action (browser login) and is only invoked when no token
// record exists yet.
type Authorizer interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// Manager serves valid access tokens on demand, refreshing proactively before
// expiry and persisting every successful exchange.
//
// All mutation of the stored record goes through the manager; the mutex
// guarantees at most one refresh in flight even if jobs ever run concurrently.
type Manager struct {
	store      Store
	refresher  Refresher
	authorizer Authorizer
	margin     time.Duration
	retry      shared.RetryPolicy
	logger     *log.Logger

	now func() time.Time

	mu     sync.Mutex
	record *TokenRecord
}

// ManagerOpts contains configuration options for creating a Manager.
type ManagerOpts struct {
	Store      Store
	Refresher  Refresher
	Authorizer Authorizer // nil disables interactive authorization
	Margin     time.Duration
	Retry      shared.RetryPolicy
	Logger     *log.Logger
	Now        func() time.Time // test hook
}

// NewManager creates a Manager with the provided options.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Margin <= 0 {
		opts.Margin = SafetyMargin
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = shared.DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		store:      opts.Store,
		refresher:  opts.Refresher,
		authorizer: opts.Authorizer,
		margin:     opts.Margin,
		retry:      opts.Retry,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// State reports whether a token record exists.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record, err := m.loadLocked(); err == nil && record != nil {
		return Authorized
	}
	return Unauthorized
}

// Record returns a copy of the current token record, or nil when unauthorized.
func (m *Manager) Record() *TokenRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.loadLocked()
	if err != nil || record == nil {
		return nil
	}
	copied := *record
	return &copied
}

// Token returns an access token guaranteed valid for at least the next call.
//
// First use with an empty store runs the interactive authorizer. A stored
// token inside the safety margin triggers a refresh; refresh rejection maps
// to shared.ErrAuthExpired and is never silently retried.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.loadLocked()
	if err != nil {
		return "", err
	}

	if record == nil {
		if m.authorizer == nil {
			return "", fmt.Errorf("%w: no token stored", shared.ErrNotAuthorized)
		}

		m.logger.Info("no stored token, starting interactive authorization")
		token, err := m.authorizer.Authorize(ctx)
		if err != nil {
			return "", fmt.Errorf("authorization failed: %w", err)
		}

		record = recordFromToken(token, nil)
		if err := m.persistLocked(record); err != nil {
			return "", err
		}
		return record.AccessToken, nil
	}

	if record.Valid(m.now(), m.margin) {
		return record.AccessToken, nil
	}

	refreshed, err := m.refreshLocked(ctx, record)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// refreshLocked exchanges the refresh token, retrying transient failures with
// backoff, and persists the updated record. Callers hold m.mu.
func (m *Manager) refreshLocked(ctx context.Context, record *TokenRecord) (*TokenRecord, error) {
	if record.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthExpired, shared.ErrNoRefreshToken)
	}

	m.logger.Debug("access token inside safety margin, refreshing", "expires_at", record.ExpiresAt)

	var token *oauth2.Token
	err := shared.Retry(ctx, m.retry, func() error {
		var refreshErr error
		token, refreshErr = m.refresher.Refresh(ctx, record.RefreshToken)
		if refreshErr == nil {
			return nil
		}

		var t shared.Transient
		if errors.As(refreshErr, &t) {
			// provider answered; the status decides retryability
			return refreshErr
		}
		// network-level failure, worth retrying
		return fmt.Errorf("%w: %w", shared.ErrAuthTransient, refreshErr)
	})
	if err != nil {
		if shared.IsTransient(err) {
			return nil, fmt.Errorf("%w: %w", shared.ErrAuthTransient, err)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthExpired, err)
	}

	refreshed := recordFromToken(token, record)
	if err := m.persistLocked(refreshed); err != nil {
		return nil, err
	}

	m.logger.Debug("token refreshed", "expires_at", refreshed.ExpiresAt)
	return refreshed, nil
}

func (m *Manager) loadLocked() (*TokenRecord, error) {
	if m.record != nil {
		return m.record, nil
	}

	record, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	m.record = record
	return record, nil
}

func (m *Manager) persistLocked(record *TokenRecord) error {
	if err := m.store.Save(record); err != nil {
		return fmt.Errorf("failed to persist token record: %w", err)
	}
	m.record = record
	return nil
}

// recordFromToken maps an exchange response onto a record, carrying forward
// the previous refresh token and scopes when the provider omits them.
func recordFromToken(token *oauth2.Token, previous *TokenRecord) *TokenRecord {
	record := &TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	if previous != nil {
		if record.RefreshToken == "" {
			record.RefreshToken = previous.RefreshToken
		}
		record.Scopes = previous.Scopes
	}

	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		record.Scopes = strings.Fields(scope)
	}

	return record
}
