package models

import (
	"time"

	"github.com/google/uuid"
)

// Article is an individually addressable extraction of a section of type
// "article". ArticleNumberText keeps the raw numbering ("100", "100-A",
// "5º") and is unique per document; ArticleNumber is the normalized integer
// used for ordering, counting and nearest-number lookups.
type Article struct {
	ID                uuid.UUID `json:"id"`
	DocumentID        uuid.UUID `json:"document_id"`
	ArticleNumber     int       `json:"article_number"`
	ArticleNumberText string    `json:"article_number_text"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	Embedding         []float64 `json:"-"`
	Distance          float64   `json:"distance,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
