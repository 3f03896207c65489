package handlers

import (
	"errors"
	"net/http"
	"strings"

	"lexquery-backend/models"
	"lexquery-backend/repository"
	"lexquery-backend/service"
	"lexquery-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DocumentHandler handles HTTP requests for documents and their analyses
type DocumentHandler struct {
	documentRepo *repository.DocumentRepository
	analysisRepo *repository.AnalysisRepository
	store        storage.DocumentStore
	analyzer     *service.Analyzer
	log          zerolog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	documentRepo *repository.DocumentRepository,
	analysisRepo *repository.AnalysisRepository,
	store storage.DocumentStore,
	analyzer *service.Analyzer,
	log zerolog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documentRepo: documentRepo,
		analysisRepo: analysisRepo,
		store:        store,
		analyzer:     analyzer,
		log:          log,
	}
}

// UploadDocumentRequest represents the request body for registering a document
type UploadDocumentRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	CaseID  string `json:"case_id"`
}

// UploadDocument handles POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req UploadDocumentRequest
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

	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_DOCUMENT",
				"message": "document content must not be empty",
			},
		})
		return
	}

	var caseID *uuid.UUID
	if req.CaseID != "" {
		parsed, err := uuid.Parse(req.CaseID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_CASE_ID",
					"message": "Invalid case_id format",
				},
			})
			return
		}
		caseID = &parsed
	}

	doc := &models.Document{
		ID:     uuid.New(),
		CaseID: caseID,
		Title:  req.Title,
		Status: models.DocumentStatusUploaded,
	}

	storagePath, err := h.store.PutDocument(c.Request.Context(), doc.ID, req.Content)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to store document text")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_FAILED",
				"message": "failed to store document content",
			},
		})
		return
	}
	doc.StoragePath = storagePath

	if err := h.documentRepo.Create(c.Request.Context(), doc); err != nil {
		h.log.Error().Err(err).Msg("failed to create document")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": "failed to register document",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"document": doc,
	})
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DOCUMENT_ID",
				"message": "Invalid document ID format",
			},
		})
		return
	}

	doc, err := h.documentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOCUMENT_NOT_FOUND",
				"message": "Document not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"document": doc,
	})
}

// AnalyzeDocument handles POST /api/documents/:id/analyze
func (h *DocumentHandler) AnalyzeDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DOCUMENT_ID",
				"message": "Invalid document ID format",
			},
		})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), service.AnalyzeRequest{DocumentID: id})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DOCUMENT_NOT_FOUND",
					"message": "Document not found",
				},
			})
		case errors.Is(err, service.ErrAnalysisInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ANALYSIS_IN_PROGRESS",
					"message": "An analysis is already running for this document",
				},
			})
		case errors.Is(err, service.ErrMalformedDocument):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MALFORMED_DOCUMENT",
					"message": "Document content is empty or unreadable",
				},
			})
		default:
			h.log.Error().Err(err).Stringer("document_id", id).Msg("analysis failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ANALYSIS_FAILED",
					"message": "Failed to analyze document",
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"metadata": result,
	})
}

// GetAnalysis handles GET /api/documents/:id/analysis
func (h *DocumentHandler) GetAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DOCUMENT_ID",
				"message": "Invalid document ID format",
			},
		})
		return
	}

	analysis, err := h.analysisRepo.GetByDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ANALYSIS_NOT_FOUND",
					"message": "Document has not been analyzed yet",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FETCH_FAILED",
				"message": "Failed to load analysis",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analysis": analysis,
	})
}
