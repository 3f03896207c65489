package repository

import (
	"context"
	"fmt"

	"lexquery-backend/models"

	"github.com/google/uuid"
)

// DocumentRepository handles database operations for documents
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *DocumentRepository) WithTx(tx DB) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Create registers a new document. The caller assigns the ID up front so
// the raw text can be stored under it before the row exists.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (
			id, case_id, title, storage_path, content_hash, status, analysis_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.CaseID,
		doc.Title,
		doc.StoragePath,
		doc.ContentHash,
		doc.Status,
		doc.AnalysisVersion,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)

	return err
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	query := `
		SELECT id, case_id, title, storage_path, content_hash, status,
			analysis_version, last_analyzed_at, created_at, updated_at
		FROM documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.CaseID,
		&doc.Title,
		&doc.StoragePath,
		&doc.ContentHash,
		&doc.Status,
		&doc.AnalysisVersion,
		&doc.LastAnalyzedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// UpdateStatus sets the lifecycle status of a document
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus) error {
	query := `
		UPDATE documents SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// MarkAnalyzed records a completed analysis and its version on the document
func (r *DocumentRepository) MarkAnalyzed(ctx context.Context, id uuid.UUID, version int, contentHash string) error {
	query := `
		UPDATE documents SET
			status = 'analyzed',
			analysis_version = $2,
			content_hash = $3,
			last_analyzed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, version, contentHash)
	return err
}

// ListPendingAnalysis returns documents waiting for the batch worker:
// uploaded but never analyzed, failed, or stranded in 'analyzing' by a
// crashed run. Analyses finish in seconds, so a row that has sat in
// 'analyzing' for half an hour is stuck, not in progress.
func (r *DocumentRepository) ListPendingAnalysis(ctx context.Context, limit int) ([]models.Document, error) {
	query := `
		SELECT id, case_id, title, storage_path, content_hash, status,
			analysis_version, last_analyzed_at, created_at, updated_at
		FROM documents
		WHERE status IN ('uploaded', 'failed')
			OR (status = 'analyzing' AND updated_at < NOW() - INTERVAL '30 minutes')
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.CaseID,
			&doc.Title,
			&doc.StoragePath,
			&doc.ContentHash,
			&doc.Status,
			&doc.AnalysisVersion,
			&doc.LastAnalyzedAt,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// ListScopeDocumentIDs resolves a query scope to concrete document IDs.
// The scope is either a document ID or a case ID grouping several documents.
func (r *DocumentRepository) ListScopeDocumentIDs(ctx context.Context, scopeID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM documents
		WHERE id = $1 OR case_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scope: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document ids: %w", err)
	}

	return ids, nil
}
