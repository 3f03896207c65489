package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SectionCounts maps section type to the number of sections of that type
type SectionCounts map[SectionType]int

// Value implements driver.Valuer for JSONB
func (c SectionCounts) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *SectionCounts) Scan(value interface{}) error {
	if value == nil {
		*c = make(SectionCounts)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*c = make(SectionCounts)
		return nil
	}

	if len(bytes) == 0 {
		*c = make(SectionCounts)
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// TOCEntry is one line of a generated table of contents
type TOCEntry struct {
	SectionType SectionType `json:"section_type"`
	Level       int         `json:"level"`
	Title       string      `json:"title"`
	NumberText  string      `json:"number_text,omitempty"`
}

// TableOfContents is the JSONB-persisted ordered ToC
type TableOfContents []TOCEntry

// Value implements driver.Valuer for JSONB
func (t TableOfContents) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB
func (t *TableOfContents) Scan(value interface{}) error {
	if value == nil {
		*t = make(TableOfContents, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*t = make(TableOfContents, 0)
		return nil
	}

	if len(bytes) == 0 {
		*t = make(TableOfContents, 0)
		return nil
	}

	return json.Unmarshal(bytes, t)
}

// DocumentAnalysis is the per-document aggregate produced by the analyzer.
// It is fully derived: a missing row means "not yet analyzed", never
// "zero content". The analyzer is its only writer.
type DocumentAnalysis struct {
	ID              uuid.UUID       `json:"id"`
	DocumentID      uuid.UUID       `json:"document_id"`
	TotalArticles   int             `json:"total_articles"`
	TotalChapters   int             `json:"total_chapters"`
	TotalSections   int             `json:"total_sections"`
	SectionCounts   SectionCounts   `json:"section_counts"`
	TableOfContents TableOfContents `json:"table_of_contents"`
	Summary         string          `json:"summary"`
	ShortSummary    string          `json:"short_summary"`
	AnalysisVersion int             `json:"analysis_version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
