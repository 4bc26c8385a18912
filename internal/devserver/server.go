// Package devserver is a local stand-in for the clinic backend: login,
// notification REST endpoints and the realtime WebSocket, all in memory.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// APIPrefix is where the REST endpoints are mounted.
const APIPrefix = "/Api/V1/clinique"

// WebSocketPath is the realtime endpoint.
const WebSocketPath = "/ws/notifications"

// Config configures a Server.
type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
	Seeds     []Seed
	Logger    logging.Logger
	Now       func() time.Time
}

// Server serves the development backend.
type Server struct {
	cfg      Config
	store    *Store
	tokens   *Tokens
	hub      *hub
	logger   logging.Logger
	upgrader websocket.Upgrader
	router   chi.Router
}

// New builds a server with the configured seed users.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.Seeds == nil {
		cfg.Seeds = DefaultSeeds
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("devserver: jwt secret is required")
	}
	store, err := NewStore(cfg.Seeds, cfg.Now)
	if err != nil {
		return nil, fmt.Errorf("devserver: seed users: %w", err)
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		tokens: NewTokens(cfg.JWTSecret, cfg.TokenTTL, cfg.Now),
		hub:    newHub(cfg.Logger),
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			// Browsers of the clinic front end connect from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer(s.logger))
	r.Use(requestID)
	r.Use(requestLogger(s.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get(WebSocketPath, s.handleWebSocket)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/notifications/utilisateur/{userID}", s.handleList(false))
			r.Get("/notifications/utilisateur/{userID}/non-lues", s.handleList(true))
			r.Post("/notifications/{id}/marquer-lue", s.handleMarkRead)
		})
	})
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store exposes the in-memory data, for seeding and tests.
func (s *Server) Store() *Store {
	return s.store
}

// Tokens exposes the token signer.
func (s *Server) Tokens() *Tokens {
	return s.tokens
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.hub.close()
	s.logger.Info("dev server stopped")
	return err
}

// Close detaches every realtime socket.
func (s *Server) Close() {
	s.hub.close()
}

// PushMessage stores a MESSAGE notification for recipient and pushes the
// matching NEW_MESSAGE frame to the recipient's sockets.
func (s *Server) PushMessage(recipient, conversationID int64, sender, conversation, text string) (notification.Notification, int, error) {
	n, msg := s.store.AddMessage(recipient, conversationID, sender, conversation, text)
	sent, err := s.hub.push(recipient, notification.Frame{Type: notification.FrameNewMessage, Message: &msg})
	if err != nil {
		return n, 0, fmt.Errorf("push message: %w", err)
	}
	s.logger.Debug("message pushed", "user_id", recipient, "notification_id", n.ID, "sockets", sent)
	return n, sent, nil
}

// PushFrame sends an arbitrary frame to the user's sockets without storing anything.
func (s *Server) PushFrame(userID int64, frame notification.Frame) (int, error) {
	return s.hub.push(userID, frame)
}

// Connected returns the number of open realtime sockets of userID.
func (s *Server) Connected(userID int64) int {
	return s.hub.connected(userID)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authority struct {
	Authority string `json:"authority"`
}

type loginResponse struct {
	ID          int64       `json:"id"`
	Token       string      `json:"token"`
	Username    string      `json:"username"`
	PhotoURL    string      `json:"photoUrl,omitempty"`
	Authorities []authority `json:"authorities"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := s.store.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("sign token failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{
		ID:          user.ID,
		Token:       token,
		Username:    user.Username,
		PhotoURL:    user.PhotoURL,
		Authorities: []authority{{Authority: string(user.Role)}},
	})
}

func (s *Server) handleList(unreadOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil || userID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		if userID != UserIDFromContext(r.Context()) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		respondJSON(w, http.StatusOK, s.store.List(userID, unreadOnly))
	}
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	n, err := s.store.MarkRead(id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	// Browsers cannot set headers on a WebSocket handshake, so a token is
	// checked only when one is sent.
	if auth := r.Header.Get("Authorization"); auth != "" {
		tokenUser, err := s.tokens.Validate(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || tokenUser != userID {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	s.hub.attach(userID, conn)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
