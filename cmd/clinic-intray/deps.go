package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/api"
	"github.com/gestionclinique/clinic-intray/internal/config"
	clierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/history"
	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/realtime"
	"github.com/gestionclinique/clinic-intray/internal/session"
)

// services builds the shared collaborators on first use, after the root
// command has loaded the configuration.
type services struct {
	mu      sync.Mutex
	store   session.Store
	client  *api.Client
	journal *history.Store
}

var svc = &services{}

// reporter returns h, or the coloured console handler when h is nil.
func reporter(h clierrors.ErrorHandler) clierrors.ErrorHandler {
	if h == nil {
		return clierrors.NewDefaultCLIHandler()
	}
	return h
}

// Session opens the configured session backend.
func (s *services) Session() (session.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	store, err := session.Open(
		config.Get("session_backend", "keyring"),
		config.Get("state_dir", ""),
		config.Get("keyring_password", ""),
	)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	s.store = store
	return store, nil
}

// API returns a backend client authenticated with the session token.
func (s *services) API() (*api.Client, error) {
	store, err := s.Session()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	s.client = api.NewClient(config.Get("api_base", config.DefaultAPIBase),
		api.WithTimeout(requestTimeout()),
		api.WithTokenSource(tokenSource(store)),
		api.WithLogger(logging.With("component", "api")),
	)
	return s.client, nil
}

// History opens the local event journal. It returns nil when the journal
// is disabled.
func (s *services) History() (*history.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		return s.journal, nil
	}
	if !config.GetBool("history_enabled", true) {
		return nil, nil
	}
	journal, err := history.Open(history.DefaultPath(config.Get("state_dir", "")))
	if err != nil {
		return nil, err
	}
	s.journal = journal
	return journal, nil
}

// Realtime returns a manager dialing the configured WebSocket endpoint.
func (s *services) Realtime() (*realtime.Manager, error) {
	store, err := s.Session()
	if err != nil {
		return nil, err
	}
	dialer := realtime.NewWebSocketDialer(requestTimeout())
	return realtime.NewManager(dialer, config.Get("ws_url", ""),
		realtime.WithTokenSource(tokenSource(store)),
		realtime.WithLogger(logging.With("component", "realtime")),
	), nil
}

// Close releases what was opened.
func (s *services) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logging.Warn("closing history failed", "error", err.Error())
		}
		s.journal = nil
	}
}

func requestTimeout() time.Duration {
	return time.Duration(config.GetInt("request_timeout_seconds", 30)) * time.Second
}

func tokenSource(store session.Store) func() string {
	return func() string {
		sess, err := store.Load()
		if err != nil {
			return ""
		}
		return sess.Token
	}
}
