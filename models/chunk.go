package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RelationshipType classifies a link between two chunks
type RelationshipType string

const (
	RelationPrevious RelationshipType = "previous"
	RelationNext     RelationshipType = "next"
	RelationParent   RelationshipType = "parent"
	RelationChild    RelationshipType = "child"
	RelationSibling  RelationshipType = "sibling"
	RelationCitation RelationshipType = "citation"
	RelationCitedBy  RelationshipType = "cited_by"
)

// ChunkRelationship links a chunk to another chunk of the same document.
// Strength is in [0,1]; citation links carry 1.0 for an exact article
// number match and 0.5 for a vague structural reference.
type ChunkRelationship struct {
	Type          RelationshipType `json:"type"`
	TargetChunkID uuid.UUID        `json:"target_chunk_id"`
	Strength      float64          `json:"strength"`
}

// ChunkRelationships is the JSONB-persisted list of relationships
type ChunkRelationships []ChunkRelationship

// Value implements driver.Valuer for JSONB
func (r ChunkRelationships) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *ChunkRelationships) Scan(value interface{}) error {
	if value == nil {
		*r = make(ChunkRelationships, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*r = make(ChunkRelationships, 0)
		return nil
	}

	if len(bytes) == 0 {
		*r = make(ChunkRelationships, 0)
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// ChunkMetadata carries per-chunk bookkeeping produced by the chunk builder
type ChunkMetadata struct {
	ChunkIndex     int        `json:"chunk_index"`
	TotalChunks    int        `json:"total_chunks"`
	HasOverlap     bool       `json:"has_overlap"`
	OverlapPrevID  *uuid.UUID `json:"overlap_prev_id,omitempty"`
	OverlapNextID  *uuid.UUID `json:"overlap_next_id,omitempty"`
	SectionIndex   int        `json:"section_index"`
	MergedSections int        `json:"merged_sections,omitempty"`
}

// Value implements driver.Valuer for JSONB
func (m ChunkMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *ChunkMetadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// DocumentChunk is the unit of retrieval. Offsets index into the normalized
// document text of one analysis snapshot; they are invalidated, never
// patched, when the source content changes.
type DocumentChunk struct {
	ID            uuid.UUID          `json:"id"`
	DocumentID    uuid.UUID          `json:"document_id"`
	Content       string             `json:"content"`
	SectionTitle  string             `json:"section_title"`
	SectionType   SectionType        `json:"section_type"`
	SectionLevel  int                `json:"section_level"`
	StartChar     int                `json:"start_char"`
	EndChar       int                `json:"end_char"`
	Metadata      ChunkMetadata      `json:"chunk_metadata"`
	Relationships ChunkRelationships `json:"relationships"`
	Importance    float64            `json:"importance"`
	Embedding     []float64          `json:"-"`
	Distance      float64            `json:"distance,omitempty"` // Vector similarity distance
	CreatedAt     time.Time          `json:"created_at"`
}
