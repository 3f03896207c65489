package repository

import (
	"context"
	"fmt"

	"lexquery-backend/models"

	"github.com/google/uuid"
)

// ArticleRepository handles database operations for extracted articles
type ArticleRepository struct {
	db DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ArticleRepository) WithTx(tx DB) *ArticleRepository {
	return &ArticleRepository{db: tx}
}

// InsertMany persists the articles of one analysis snapshot
func (r *ArticleRepository) InsertMany(ctx context.Context, articles []models.Article) error {
	query := `
		INSERT INTO articles (
			document_id, article_number, article_number_text, title, content, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6::vector
		) RETURNING id, created_at`

	for i := range articles {
		a := &articles[i]

		var embedding any
		if len(a.Embedding) > 0 {
			embedding = formatVector(a.Embedding)
		}

		err := r.db.QueryRow(
			ctx, query,
			a.DocumentID,
			a.ArticleNumber,
			a.ArticleNumberText,
			a.Title,
			a.Content,
			embedding,
		).Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert article %q: %w", a.ArticleNumberText, err)
		}
	}

	return nil
}

// DeleteByDocument removes all articles of a document
func (r *ArticleRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM articles WHERE document_id = $1`, documentID)
	return err
}

// GetByNumberText finds an article by its exact raw numbering within the
// given documents. The first match in document scope order wins.
func (r *ArticleRepository) GetByNumberText(ctx context.Context, documentIDs []uuid.UUID, numberText string) (*models.Article, error) {
	article := &models.Article{}
	query := `
		SELECT id, document_id, article_number, article_number_text, title, content, created_at
		FROM articles
		WHERE document_id = ANY($1) AND article_number_text = $2
		ORDER BY document_id
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, documentIDs, numberText).Scan(
		&article.ID,
		&article.DocumentID,
		&article.ArticleNumber,
		&article.ArticleNumberText,
		&article.Title,
		&article.Content,
		&article.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return article, nil
}

// GetNearestNumber finds the article whose normalized number is closest to
// the requested one. Used as a fuzzy fallback when no exact match exists.
func (r *ArticleRepository) GetNearestNumber(ctx context.Context, documentIDs []uuid.UUID, number int) (*models.Article, error) {
	article := &models.Article{}
	query := `
		SELECT id, document_id, article_number, article_number_text, title, content, created_at
		FROM articles
		WHERE document_id = ANY($1)
		ORDER BY abs(article_number - $2), article_number
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, documentIDs, number).Scan(
		&article.ID,
		&article.DocumentID,
		&article.ArticleNumber,
		&article.ArticleNumberText,
		&article.Title,
		&article.Content,
		&article.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return article, nil
}

// ListByDocument returns all articles of a document in numbering order
func (r *ArticleRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Article, error) {
	query := `
		SELECT id, document_id, article_number, article_number_text, title, content, created_at
		FROM articles
		WHERE document_id = $1
		ORDER BY article_number, article_number_text`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		var a models.Article
		err := rows.Scan(
			&a.ID,
			&a.DocumentID,
			&a.ArticleNumber,
			&a.ArticleNumberText,
			&a.Title,
			&a.Content,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}
