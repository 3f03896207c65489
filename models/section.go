package models

import (
	"time"

	"github.com/google/uuid"
)

// SectionType classifies a node in the structural tree of a legal document
type SectionType string

const (
	SectionTypeTitle        SectionType = "title"
	SectionTypeSubtitle     SectionType = "subtitle"
	SectionTypeChapter      SectionType = "chapter"
	SectionTypeArticle      SectionType = "article"
	SectionTypeSection      SectionType = "section"
	SectionTypeParagraph    SectionType = "paragraph"
	SectionTypeClause       SectionType = "clause"
	SectionTypeConsidering  SectionType = "considering"
	SectionTypeResolves     SectionType = "resolves"
	SectionTypeDispositions SectionType = "dispositions"
	SectionTypeTransitional SectionType = "transitional"
	SectionTypeFinal        SectionType = "final"
	SectionTypeDerogatory   SectionType = "derogatory"
	SectionTypePreamble     SectionType = "preamble"
)

// DocumentSection is one row of a document's section arena. Parent/child
// links are by index within the same document snapshot, so a full tree can
// be reloaded without pointer cycles. ParentIndex is nil for top-level
// sections (level 0).
type DocumentSection struct {
	ID           uuid.UUID   `json:"id"`
	DocumentID   uuid.UUID   `json:"document_id"`
	SectionIndex int         `json:"section_index"`
	ParentIndex  *int        `json:"parent_index,omitempty"`
	SectionType  SectionType `json:"section_type"`
	Level        int         `json:"level"`
	Title        string      `json:"title"`
	NumberText   string      `json:"number_text"`
	Content      string      `json:"content"`
	StartLine    int         `json:"start_line"`
	EndLine      int         `json:"end_line"`
	CreatedAt    time.Time   `json:"created_at"`
}
