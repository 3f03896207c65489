package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the lifecycle status of a document
type DocumentStatus string

const (
	DocumentStatusUploaded  DocumentStatus = "uploaded"
	DocumentStatusAnalyzing DocumentStatus = "analyzing"
	DocumentStatusAnalyzed  DocumentStatus = "analyzed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// Document represents a legal document registered in the system.
// Raw text lives in the storage backend; the row only tracks metadata
// and analysis freshness.
type Document struct {
	ID              uuid.UUID      `json:"id"`
	CaseID          *uuid.UUID     `json:"case_id,omitempty"`
	Title           string         `json:"title"`
	StoragePath     string         `json:"storage_path"`
	ContentHash     string         `json:"content_hash"`
	Status          DocumentStatus `json:"status"`
	AnalysisVersion int            `json:"analysis_version"`
	LastAnalyzedAt  *time.Time     `json:"last_analyzed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
