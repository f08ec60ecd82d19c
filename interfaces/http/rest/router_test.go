package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diagramsync/application/locks"
	"diagramsync/application/ports"
	"diagramsync/application/presence"
	"diagramsync/application/queries"
	querybus "diagramsync/application/queries/bus"
	queryhandlers "diagramsync/application/queries/handlers"
	"diagramsync/domain/config"
	"diagramsync/domain/core/aggregates"
	"diagramsync/domain/core/entities"
	"diagramsync/domain/core/valueobjects"
	"diagramsync/infrastructure/persistence/memory"
	"diagramsync/interfaces/http/rest/middleware"
	"diagramsync/pkg/auth"
	"diagramsync/pkg/common"
	"diagramsync/pkg/observability"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHealth struct {
	state gobreaker.State
}

func (s stubHealth) State() gobreaker.State { return s.state }

type routerFixture struct {
	handler  http.Handler
	store    *memory.DiagramStore
	tracker  *presence.Tracker
	registry *locks.Registry
	token    string
}

func newRouterFixture(t *testing.T, cfg RouterConfig, health StoreHealth) *routerFixture {
	t.Helper()
	logger := zap.NewNop()
	syncCfg := config.DefaultSyncConfig()

	f := &routerFixture{
		store:   memory.NewDiagramStore(ports.SystemClock),
		tracker: presence.NewTracker(syncCfg, ports.SystemClock, logger),
	}
	f.registry = locks.NewRegistry(memory.NewLockStore(), syncCfg, ports.SystemClock, logger)
	membership := memory.NewMembershipResolver("")
	membership.SetRole("P1", "alice", valueobjects.RoleEditor)

	bus := querybus.NewQueryBus()
	require.NoError(t, bus.Register(queries.GetDiagramQuery{}, queryhandlers.NewGetDiagramHandler(f.store, membership, logger)))
	require.NoError(t, bus.Register(queries.ListPresenceQuery{}, queryhandlers.NewListPresenceHandler(f.tracker, membership)))
	require.NoError(t, bus.Register(queries.ListLocksQuery{}, queryhandlers.NewListLocksHandler(f.registry, membership)))

	jwtCfg := auth.JWTConfig{SecretKey: "test-secret"}
	validator, err := auth.NewJWTValidator(jwtCfg)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(jwtCfg, time.Hour)
	require.NoError(t, err)
	f.token, err = generator.GenerateToken("alice", "Alice")
	require.NoError(t, err)

	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 1000
	}
	f.handler = NewRouter(bus, nil, validator, health, observability.NewCollector("test"), cfg, logger).Setup()
	return f
}

func (f *routerFixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) {
	t.Helper()
	var resp common.APIResponse
	resp.Data = data
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestRouter_GetDiagram(t *testing.T) {
	// Arrange
	f := newRouterFixture(t, RouterConfig{}, nil)

	// Act: no snapshot yet
	rec := f.get("/api/v2/projects/P1/diagram", f.token)

	// Assert
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Arrange
	graph := aggregates.NewGraph()
	graph.AddNode(entities.Node{ID: "n1", Kind: "table"})
	_, err := f.store.Create(context.Background(), "P1", "alice", graph)
	require.NoError(t, err)

	// Act
	rec = f.get("/api/v2/projects/P1/diagram", f.token)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot aggregates.DiagramSnapshot
	decodeResponse(t, rec, &snapshot)
	assert.Equal(t, 1, snapshot.Version)
	require.Len(t, snapshot.Graph.Nodes, 1)
	assert.Equal(t, "n1", snapshot.Graph.Nodes[0].ID)
	assert.Equal(t, "v2", rec.Header().Get("X-API-Version"))
}

func TestRouter_PresenceAndLocks(t *testing.T) {
	f := newRouterFixture(t, RouterConfig{}, nil)
	_, err := f.tracker.Join("P1", "alice", "Alice", valueobjects.RoleEditor, "c1")
	require.NoError(t, err)
	_, err = f.registry.Acquire(context.Background(), "P1", "n1", "alice")
	require.NoError(t, err)

	rec := f.get("/api/v2/projects/P1/presence", f.token)
	require.Equal(t, http.StatusOK, rec.Code)
	var presenceResult queries.PresenceResult
	decodeResponse(t, rec, &presenceResult)
	require.Len(t, presenceResult.Users, 1)
	assert.Equal(t, "alice", presenceResult.Users[0].Identity)

	rec = f.get("/api/v2/projects/P1/locks", f.token)
	require.Equal(t, http.StatusOK, rec.Code)
	var locksResult queries.LocksResult
	decodeResponse(t, rec, &locksResult)
	require.Len(t, locksResult.Locks, 1)
	assert.Equal(t, "n1", locksResult.Locks[0].ResourceID)
	assert.False(t, locksResult.Locks[0].Expired)
}

func TestRouter_Authentication(t *testing.T) {
	tests := []struct {
		name        string
		requireAuth bool
		token       string
		path        string
		wantStatus  int
	}{
		{name: "anonymous read allowed", path: "/api/v2/projects/P1/presence", wantStatus: http.StatusOK},
		{name: "anonymous read rejected", requireAuth: true, path: "/api/v2/projects/P1/presence", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", token: "garbage", path: "/api/v2/projects/P1/presence", wantStatus: http.StatusUnauthorized},
		{name: "non-member with token", token: "valid", path: "/api/v2/projects/P2/presence", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t, RouterConfig{RequireAuth: tt.requireAuth}, nil)
			token := tt.token
			if token == "valid" {
				token = f.token
			}

			rec := f.get(tt.path, token)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_LambdaTrustsGatewayHeaders(t *testing.T) {
	f := newRouterFixture(t, RouterConfig{Lambda: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/projects/P1/presence", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v2/projects/P1/presence", nil)
	req.Header.Set(middleware.HeaderGatewayAuthorized, "true")
	req.Header.Set(middleware.HeaderGatewayIdentity, "alice")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RateLimited(t *testing.T) {
	f := newRouterFixture(t, RouterConfig{RequestsPerMinute: 1}, nil)

	assert.Equal(t, http.StatusOK, f.get("/api/v2/projects/P1/presence", f.token).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.get("/api/v2/projects/P1/presence", f.token).Code)
}

func TestRouter_HealthReadinessMetrics(t *testing.T) {
	f := newRouterFixture(t, RouterConfig{}, stubHealth{state: gobreaker.StateClosed})
	assert.Equal(t, http.StatusOK, f.get("/health", "").Code)
	assert.Equal(t, http.StatusOK, f.get("/ready", "").Code)

	// requests so far are visible to the scraper
	rec := f.get("/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))

	open := newRouterFixture(t, RouterConfig{}, stubHealth{state: gobreaker.StateOpen})
	assert.Equal(t, http.StatusServiceUnavailable, open.get("/ready", "").Code)
}
