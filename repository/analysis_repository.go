package repository

import (
	"context"
	"fmt"

	"lexquery-backend/models"

	"github.com/google/uuid"
)

// AnalysisRepository handles database operations for document analyses
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *AnalysisRepository) WithTx(tx DB) *AnalysisRepository {
	return &AnalysisRepository{db: tx}
}

// Upsert writes the analysis aggregate, replacing any previous version
func (r *AnalysisRepository) Upsert(ctx context.Context, analysis *models.DocumentAnalysis) error {
	query := `
		INSERT INTO document_analyses (
			document_id, total_articles, total_chapters, total_sections,
			section_counts, table_of_contents, summary, short_summary, analysis_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (document_id) DO UPDATE SET
			total_articles = EXCLUDED.total_articles,
			total_chapters = EXCLUDED.total_chapters,
			total_sections = EXCLUDED.total_sections,
			section_counts = EXCLUDED.section_counts,
			table_of_contents = EXCLUDED.table_of_contents,
			summary = EXCLUDED.summary,
			short_summary = EXCLUDED.short_summary,
			analysis_version = EXCLUDED.analysis_version,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		analysis.DocumentID,
		analysis.TotalArticles,
		analysis.TotalChapters,
		analysis.TotalSections,
		analysis.SectionCounts,
		analysis.TableOfContents,
		analysis.Summary,
		analysis.ShortSummary,
		analysis.AnalysisVersion,
	).Scan(&analysis.ID, &analysis.CreatedAt, &analysis.UpdatedAt)

	return err
}

// GetByDocument retrieves the analysis of a single document
func (r *AnalysisRepository) GetByDocument(ctx context.Context, documentID uuid.UUID) (*models.DocumentAnalysis, error) {
	analysis := &models.DocumentAnalysis{}
	query := `
		SELECT id, document_id, total_articles, total_chapters, total_sections,
			section_counts, table_of_contents, summary, short_summary,
			analysis_version, created_at, updated_at
		FROM document_analyses
		WHERE document_id = $1`

	err := r.db.QueryRow(ctx, query, documentID).Scan(
		&analysis.ID,
		&analysis.DocumentID,
		&analysis.TotalArticles,
		&analysis.TotalChapters,
		&analysis.TotalSections,
		&analysis.SectionCounts,
		&analysis.TableOfContents,
		&analysis.Summary,
		&analysis.ShortSummary,
		&analysis.AnalysisVersion,
		&analysis.CreatedAt,
		&analysis.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return analysis, nil
}

// ListByScope retrieves the analyses of every document in a query scope
func (r *AnalysisRepository) ListByScope(ctx context.Context, documentIDs []uuid.UUID) ([]models.DocumentAnalysis, error) {
	query := `
		SELECT id, document_id, total_articles, total_chapters, total_sections,
			section_counts, table_of_contents, summary, short_summary,
			analysis_version, created_at, updated_at
		FROM document_analyses
		WHERE document_id = ANY($1)
		ORDER BY document_id`

	rows, err := r.db.Query(ctx, query, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.DocumentAnalysis
	for rows.Next() {
		var a models.DocumentAnalysis
		err := rows.Scan(
			&a.ID,
			&a.DocumentID,
			&a.TotalArticles,
			&a.TotalChapters,
			&a.TotalSections,
			&a.SectionCounts,
			&a.TableOfContents,
			&a.Summary,
			&a.ShortSummary,
			&a.AnalysisVersion,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, nil
}
