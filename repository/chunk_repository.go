package repository

import (
	"context"
	"fmt"

	"lexquery-backend/models"

	"github.com/google/uuid"
)

// ChunkRepository handles database operations for document chunks
type ChunkRepository struct {
	db DB
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ChunkRepository) WithTx(tx DB) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// InsertMany persists the chunks of one analysis snapshot. Chunks without an
// embedding are stored with a NULL vector and excluded from semantic search.
func (r *ChunkRepository) InsertMany(ctx context.Context, chunks []models.DocumentChunk) error {
	query := `
		INSERT INTO document_chunks (
			id, document_id, content, section_title, section_type, section_level,
			start_char, end_char, chunk_metadata, relationships, importance, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector
		) RETURNING created_at`

	for i := range chunks {
		c := &chunks[i]

		var embedding any
		if len(c.Embedding) > 0 {
			embedding = formatVector(c.Embedding)
		}

		err := r.db.QueryRow(
			ctx, query,
			c.ID,
			c.DocumentID,
			c.Content,
			c.SectionTitle,
			c.SectionType,
			c.SectionLevel,
			c.StartChar,
			c.EndChar,
			c.Metadata,
			c.Relationships,
			c.Importance,
			embedding,
		).Scan(&c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	return nil
}

// DeleteByDocument removes all chunks of a document
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

// UpdateEmbedding sets the embedding of a single chunk
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float64) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE document_chunks SET embedding = $2::vector WHERE id = $1`,
		id, formatVector(embedding),
	)
	return err
}

// SearchByScope performs a vector similarity search over the chunks of the
// given documents. Chunks with a NULL embedding never match.
func (r *ChunkRepository) SearchByScope(
	ctx context.Context,
	embedding []float64,
	documentIDs []uuid.UUID,
	limit int,
) ([]models.DocumentChunk, error) {
	if len(embedding) != 768 {
		return nil, fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}
	if len(documentIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			id,
			document_id,
			content,
			section_title,
			section_type,
			section_level,
			start_char,
			end_char,
			chunk_metadata,
			relationships,
			importance,
			embedding <=> $1::vector AS distance
		FROM document_chunks
		WHERE
			document_id = ANY($2)
			AND embedding IS NOT NULL
		ORDER BY
			embedding <=> $1::vector
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, formatVector(embedding), documentIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var c models.DocumentChunk
		err := rows.Scan(
			&c.ID,
			&c.DocumentID,
			&c.Content,
			&c.SectionTitle,
			&c.SectionType,
			&c.SectionLevel,
			&c.StartChar,
			&c.EndChar,
			&c.Metadata,
			&c.Relationships,
			&c.Importance,
			&c.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}

// ListMissingEmbeddings returns chunks of a document whose embedding is NULL
func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, documentID uuid.UUID, limit int) ([]models.DocumentChunk, error) {
	query := `
		SELECT id, document_id, content, section_title, section_type, section_level,
			start_char, end_char, chunk_metadata, relationships, importance
		FROM document_chunks
		WHERE document_id = $1 AND embedding IS NULL
		ORDER BY start_char
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var c models.DocumentChunk
		err := rows.Scan(
			&c.ID,
			&c.DocumentID,
			&c.Content,
			&c.SectionTitle,
			&c.SectionType,
			&c.SectionLevel,
			&c.StartChar,
			&c.EndChar,
			&c.Metadata,
			&c.Relationships,
			&c.Importance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}
