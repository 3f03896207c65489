package chunker

import (
	"strings"

	"lexquery-backend/models"
	"lexquery-backend/segmenter"
)

// ImportanceWeights are tunable; the defaults are heuristic, not
// empirically validated, so nothing downstream may depend on their exact
// values. Weights should sum to 1 for a [0,1] score but the final value is
// clamped either way.
type ImportanceWeights struct {
	SectionLevel   float64
	Position       float64
	Citations      float64
	KeywordDensity float64
}

// DefaultWeights returns the standard importance weighting
func DefaultWeights() ImportanceWeights {
	return ImportanceWeights{
		SectionLevel:   0.3,
		Position:       0.2,
		Citations:      0.3,
		KeywordDensity: 0.2,
	}
}

// domain-salient terms for keyword density; lowercase, accent-stripped
var salientTerms = []string{
	"derecho", "obligacion", "ley", "constitucion", "garantia",
	"libertad", "estado", "tribunal", "sancion", "pena",
	"responsabilidad", "ciudadano", "norma", "disposicion", "vigencia",
	"reforma", "soberania", "justicia", "deber", "autoridad",
}

// scoreImportance assigns each chunk a [0,1] advisory ranking score:
// higher for top-level sections, earlier positions, frequently cited
// chunks and keyword-dense text. Ties keep document order because the
// caller never reorders the chunk slice.
func scoreImportance(tree *segmenter.Tree, chunks []models.DocumentChunk, w ImportanceWeights) {
	if len(chunks) == 0 {
		return
	}

	maxLevel := 0
	for i := range tree.Sections {
		if tree.Sections[i].Level > maxLevel {
			maxLevel = tree.Sections[i].Level
		}
	}

	inbound := make([]int, len(chunks))
	for i := range chunks {
		for _, rel := range chunks[i].Relationships {
			if rel.Type == models.RelationCitedBy {
				inbound[i]++
			}
		}
	}
	maxInbound := 0
	for _, n := range inbound {
		if n > maxInbound {
			maxInbound = n
		}
	}

	total := len(chunks)
	for i := range chunks {
		levelFactor := 1.0
		if maxLevel > 0 {
			levelFactor = 1.0 - float64(chunks[i].SectionLevel)/float64(maxLevel)
		}

		positionFactor := 1.0
		if total > 1 {
			positionFactor = 1.0 - float64(i)/float64(total-1)
		}

		citationFactor := 0.0
		if maxInbound > 0 {
			citationFactor = float64(inbound[i]) / float64(maxInbound)
		}

		score := w.SectionLevel*levelFactor +
			w.Position*positionFactor +
			w.Citations*citationFactor +
			w.KeywordDensity*keywordDensity(chunks[i].Content)

		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		chunks[i].Importance = score
	}
}

// keywordDensity returns the salient-term occurrence rate normalized so
// that one salient term per 20 words saturates the factor at 1.0
func keywordDensity(content string) float64 {
	words := strings.Fields(strings.ToLower(stripAccents(content)))
	if len(words) == 0 {
		return 0
	}

	hits := 0
	for _, word := range words {
		word = strings.Trim(word, ".,;:()¿?¡!\"'«»")
		for _, term := range salientTerms {
			if strings.HasPrefix(word, term) {
				hits++
				break
			}
		}
	}

	density := float64(hits) / float64(len(words)) * 20
	if density > 1 {
		density = 1
	}
	return density
}
