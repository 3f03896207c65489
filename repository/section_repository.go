package repository

import (
	"context"
	"fmt"

	"lexquery-backend/models"

	"github.com/google/uuid"
)

// SectionRepository handles database operations for document sections
type SectionRepository struct {
	db DB
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *SectionRepository) WithTx(tx DB) *SectionRepository {
	return &SectionRepository{db: tx}
}

// InsertMany persists the section arena of one analysis snapshot
func (r *SectionRepository) InsertMany(ctx context.Context, sections []models.DocumentSection) error {
	query := `
		INSERT INTO document_sections (
			document_id, section_index, parent_index, section_type, level,
			title, number_text, content, start_line, end_line
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING id, created_at`

	for i := range sections {
		s := &sections[i]
		err := r.db.QueryRow(
			ctx, query,
			s.DocumentID,
			s.SectionIndex,
			s.ParentIndex,
			s.SectionType,
			s.Level,
			s.Title,
			s.NumberText,
			s.Content,
			s.StartLine,
			s.EndLine,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert section %d: %w", s.SectionIndex, err)
		}
	}

	return nil
}

// DeleteByDocument removes all sections of a document
func (r *SectionRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_sections WHERE document_id = $1`, documentID)
	return err
}

// ListByDocument returns all sections of a document ordered by section index
func (r *SectionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentSection, error) {
	query := `
		SELECT id, document_id, section_index, parent_index, section_type, level,
			title, number_text, content, start_line, end_line, created_at
		FROM document_sections
		WHERE document_id = $1
		ORDER BY section_index`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []models.DocumentSection
	for rows.Next() {
		var s models.DocumentSection
		err := rows.Scan(
			&s.ID,
			&s.DocumentID,
			&s.SectionIndex,
			&s.ParentIndex,
			&s.SectionType,
			&s.Level,
			&s.Title,
			&s.NumberText,
			&s.Content,
			&s.StartLine,
			&s.EndLine,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sections: %w", err)
	}

	return sections, nil
}
