package handlers

import (
	"net/http"

	"lexquery-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QueryHandler handles HTTP requests for query routing
type QueryHandler struct {
	router *service.Router
	log    zerolog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(router *service.Router, log zerolog.Logger) *QueryHandler {
	return &QueryHandler{
		router: router,
		log:    log,
	}
}

// QueryRequest represents the request body for a routed query
type QueryRequest struct {
	Query   string `json:"query" binding:"required"`
	ScopeID string `json:"scope_id" binding:"required"`
}

// RouteQuery handles POST /api/query. The response is always structured:
// an unanswerable query comes back with confidence 0, not an error.
func (h *QueryHandler) RouteQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	scopeID, err := uuid.Parse(req.ScopeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SCOPE_ID",
				"message": "Invalid scope_id format",
			},
		})
		return
	}

	resp, err := h.router.Route(c.Request.Context(), service.RouteRequest{
		Query:   req.Query,
		ScopeID: scopeID,
	})
	if err != nil {
		h.log.Error().Err(err).Stringer("scope_id", scopeID).Msg("query routing failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ROUTING_FAILED",
				"message": "Failed to route query",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": resp,
	})
}
