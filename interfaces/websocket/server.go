package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"diagramsync/application/ports"
	"diagramsync/domain/config"
	"diagramsync/pkg/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests into engine connections
type Server struct {
	hub         *Hub
	gateway     *Gateway
	upgrader    websocket.Upgrader
	validator   *auth.JWTValidator
	requireAuth bool
	syncConfig  *config.SyncConfig
	logger      *zap.Logger
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string // empty or "*" allows every origin
	RequireAuth     bool     // reject upgrades without a valid token
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// NewServer creates a new WebSocket server. validator may be nil, in which
// case every connection is anonymous and identifies itself on join.
func NewServer(
	engine *Engine,
	validator *auth.JWTValidator,
	cfg *ServerConfig,
	syncConfig *config.SyncConfig,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	return &Server{
		hub:     engine.Hub(),
		gateway: engine.Gateway(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
		validator:   validator,
		requireAuth: cfg.RequireAuth,
		syncConfig:  syncConfig,
		logger:      logger,
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, displayName, err := s.authenticateRequest(r)
	if err != nil && (s.requireAuth || !errors.Is(err, auth.ErrMissingToken)) {
		s.logger.Warn("WebSocket authentication failed",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(uuid.New().String(), identity, displayName, s.hub, s.gateway, conn, s.syncConfig, s.logger)
	client.Start()
	s.hub.SendTo(client.ID(), ports.EventConnectionEstablished, ports.ConnectionEstablished{
		ConnectionID: client.ID(),
		Identity:     identity,
	})

	s.logger.Info("New WebSocket connection established",
		zap.String("identity", identity),
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)
}

// authenticateRequest validates the token from the query string, the
// Authorization header or the auth_token cookie, in that order
func (s *Server) authenticateRequest(r *http.Request) (string, string, error) {
	token := r.URL.Query().Get("token")

	if token == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		if cookie, err := r.Cookie("auth_token"); err == nil {
			token = cookie.Value
		}
	}

	if token == "" {
		return "", "", auth.ErrMissingToken
	}
	if s.validator == nil {
		return "", "", fmt.Errorf("token authentication is not configured: %w", auth.ErrInvalidToken)
	}

	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}
	return claims.Identity, claims.Name(), nil
}

// checkOrigin allows requests without an Origin header, which browsers
// always send, so non-browser clients are unaffected
func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	hosts := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
		}
		hosts[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := hosts[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := hosts[u.Scheme+"://"+u.Host]
		return ok
	}
}
