package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diagramsync/application/ports"
	"diagramsync/pkg/auth"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readFrame(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg OutboundMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func dial(t *testing.T, server *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestServer_JoinOverSocket(t *testing.T) {
	// Arrange
	f := newEngineFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.hub.Run(ctx)

	srv := NewServer(f.engine, nil, nil, f.cfg, zap.NewNop())
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.HandleWebSocket)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn, _, err := dial(t, server, "")
	require.NoError(t, err)
	defer conn.Close()

	// Act
	welcome := readFrame(t, conn)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": EventJoin,
		"data": map[string]string{"identity": "alice", "room": "P1"},
	}))
	update := readFrame(t, conn)

	// Assert
	assert.Equal(t, ports.EventConnectionEstablished, welcome.Type)
	assert.Equal(t, ports.EventPresenceUpdate, update.Type)
	var body ports.PresenceUpdate
	decodeData(t, update, &body)
	require.Len(t, body.Users, 1)
	assert.Equal(t, "alice", body.Users[0].Identity)

	// Closing the socket runs the disconnect cleanup
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return f.hub.ConnectionCount() == 0 && f.tracker.RoomCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServer_Authentication(t *testing.T) {
	cfg := auth.JWTConfig{SecretKey: "test-secret", Issuer: "diagramsync"}
	validator, err := auth.NewJWTValidator(cfg)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	token, err := generator.GenerateToken("alice", "Alice")
	require.NoError(t, err)

	tests := []struct {
		name        string
		requireAuth bool
		query       string
		wantStatus  int
		wantOK      bool
	}{
		{name: "anonymous allowed", query: "", wantOK: true},
		{name: "anonymous rejected", requireAuth: true, query: "", wantStatus: http.StatusUnauthorized},
		{name: "valid token", requireAuth: true, query: "?token=" + token, wantOK: true},
		{name: "bad token", query: "?token=garbage", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newEngineFixture(t, nil)
			srv := NewServer(f.engine, validator, &ServerConfig{
				ReadBufferSize:  1024,
				WriteBufferSize: 1024,
				RequireAuth:     tt.requireAuth,
			}, f.cfg, zap.NewNop())
			server := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
			defer server.Close()

			// Act
			url := "ws" + strings.TrimPrefix(server.URL, "http") + tt.query
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)

			// Assert
			if !tt.wantOK {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, tt.wantStatus, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer conn.Close()
			welcome := readFrame(t, conn)
			var body ports.ConnectionEstablished
			decodeData(t, welcome, &body)
			assert.NotEmpty(t, body.ConnectionID)
			if tt.query != "" {
				assert.Equal(t, "alice", body.Identity)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no list allows all", origin: "https://evil.example", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://evil.example", want: true},
		{name: "listed", allowed: []string{"https://app.example"}, origin: "https://app.example", want: true},
		{name: "listed with trailing slash", allowed: []string{"https://app.example/"}, origin: "https://app.example", want: true},
		{name: "not listed", allowed: []string{"https://app.example"}, origin: "https://evil.example", want: false},
		{name: "no origin header", allowed: []string{"https://app.example"}, origin: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(tt.allowed)(r))
		})
	}
}
