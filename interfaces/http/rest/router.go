package rest

import (
	"net/http"

	querybus "diagramsync/application/queries/bus"
	"diagramsync/interfaces/http/rest/handlers"
	"diagramsync/interfaces/http/rest/middleware"
	"diagramsync/interfaces/websocket"
	"diagramsync/pkg/auth"
	"diagramsync/pkg/common"
	"diagramsync/pkg/errors"
	"diagramsync/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// StoreHealth exposes the diagram store's circuit breaker state
type StoreHealth interface {
	State() gobreaker.State
}

// RouterConfig holds the HTTP surface options
type RouterConfig struct {
	EnableCORS        bool
	AllowedOrigins    []string
	RequireAuth       bool
	Lambda            bool // trust API Gateway identity headers instead of tokens
	RequestsPerMinute int  // per client IP on /api routes
	Debug             bool // include error causes in responses
}

// Router creates and configures the HTTP router
type Router struct {
	queryBus  *querybus.QueryBus
	wsServer  *websocket.Server
	validator *auth.JWTValidator
	store     StoreHealth
	metrics   *observability.Collector
	config    RouterConfig
	logger    *zap.Logger
}

// NewRouter creates a new router instance. wsServer, validator, store and
// metrics may each be nil, which removes the routes or checks they back.
func NewRouter(
	queryBus *querybus.QueryBus,
	wsServer *websocket.Server,
	validator *auth.JWTValidator,
	store StoreHealth,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		queryBus:  queryBus,
		wsServer:  wsServer,
		validator: validator,
		store:     store,
		metrics:   metrics,
		config:    config,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()
	errorHandler := errors.NewErrorHandler(rt.logger, rt.config.Debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger, rt.metrics))
	router.Use(versionMiddleware)

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}
	if rt.wsServer != nil {
		router.Get("/ws", rt.wsServer.HandleWebSocket)
	}

	router.Route("/api/v2", func(r chi.Router) {
		if rt.config.Lambda {
			r.Use(middleware.AuthenticateForLambda(rt.config.RequestsPerMinute))
		} else {
			r.Use(middleware.Authenticate(rt.validator, rt.config.RequireAuth, rt.config.RequestsPerMinute, rt.logger))
		}

		diagramHandler := handlers.NewDiagramHandler(rt.queryBus, errorHandler, rt.logger)
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/diagram", diagramHandler.GetDiagram)
			r.Get("/presence", diagramHandler.ListPresence)
			r.Get("/locks", diagramHandler.ListLocks)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports not ready while the diagram store's circuit is open
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.store == nil {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	state := rt.store.State()
	if state == gobreaker.StateOpen {
		common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  state.String(),
		})
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"store":  state.String(),
	})
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v2")
		w.Header().Set("X-API-Latest", "v2")
		next.ServeHTTP(w, r)
	})
}
