package handlers

import (
	"net/http"

	"diagramsync/application/queries"
	querybus "diagramsync/application/queries/bus"
	"diagramsync/pkg/common"
	"diagramsync/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DiagramHandler serves the read-only project endpoints
type DiagramHandler struct {
	queryBus *querybus.QueryBus
	errors   *errors.ErrorHandler
	logger   *zap.Logger
}

// NewDiagramHandler creates a new diagram handler
func NewDiagramHandler(queryBus *querybus.QueryBus, errorHandler *errors.ErrorHandler, logger *zap.Logger) *DiagramHandler {
	return &DiagramHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		logger:   logger,
	}
}

// GetDiagram handles GET /projects/{projectID}/diagram
func (h *DiagramHandler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	projectID, identity := h.params(r)
	h.ask(w, r, queries.GetDiagramQuery{ProjectID: projectID, Identity: identity})
}

// ListPresence handles GET /projects/{projectID}/presence
func (h *DiagramHandler) ListPresence(w http.ResponseWriter, r *http.Request) {
	projectID, identity := h.params(r)
	h.ask(w, r, queries.ListPresenceQuery{ProjectID: projectID, Identity: identity})
}

// ListLocks handles GET /projects/{projectID}/locks
func (h *DiagramHandler) ListLocks(w http.ResponseWriter, r *http.Request) {
	projectID, identity := h.params(r)
	h.ask(w, r, queries.ListLocksQuery{ProjectID: projectID, Identity: identity})
}

func (h *DiagramHandler) params(r *http.Request) (projectID, identity string) {
	projectID = chi.URLParam(r, "projectID")
	identity, _ = common.GetIdentity(r.Context())
	return projectID, identity
}

func (h *DiagramHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.logger.Debug("Query failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, r, http.StatusOK, result)
}
