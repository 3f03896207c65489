// Package chunker converts a section tree into bounded, overlap-aware
// retrieval chunks with cross-chunk relationships and importance scores.
package chunker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"lexquery-backend/models"
	"lexquery-backend/segmenter"
)

// Options controls chunk construction. Zero values fall back to defaults.
type Options struct {
	MaxChunkSize              int
	MinChunkSize              int
	OverlapSize               int
	PreserveSectionBoundaries bool
	CalculateImportance       bool
	Weights                   ImportanceWeights
}

// DefaultOptions returns the production chunking configuration
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:              1500,
		MinChunkSize:              100,
		OverlapSize:               200,
		PreserveSectionBoundaries: true,
		CalculateImportance:       true,
		Weights:                   DefaultWeights(),
	}
}

func (o Options) normalized() Options {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = 1500
	}
	if o.MinChunkSize <= 0 {
		o.MinChunkSize = 100
	}
	if o.OverlapSize < 0 {
		o.OverlapSize = 0
	}
	if o.Weights == (ImportanceWeights{}) {
		o.Weights = DefaultWeights()
	}
	return o
}

// Build walks the tree in document order and emits chunks for every
// section that owns text. Oversize sections are split at sentence
// boundaries with OverlapSize characters of trailing context carried into
// the next chunk. Character offsets index into the normalized document
// text (section contents joined in document order).
func Build(tree *segmenter.Tree, documentID uuid.UUID, opts Options) []models.DocumentChunk {
	opts = opts.normalized()

	var chunks []models.DocumentChunk
	cursor := 0

	for i := range tree.Sections {
		sec := &tree.Sections[i]
		if sec.Content == "" {
			continue
		}

		pieces := splitPieces(sec.Content, opts.MaxChunkSize, opts.OverlapSize)
		for _, p := range pieces {
			text := sec.Content[p.start:p.end]
			if len(text) < opts.MinChunkSize && len(chunks) > 0 {
				// sub-minimum piece: fold into the adjacent chunk when
				// boundaries are preserved, drop the leftover otherwise
				if opts.PreserveSectionBoundaries {
					last := &chunks[len(chunks)-1]
					last.Content += "\n" + strings.TrimSpace(text)
					last.EndChar = cursor + p.end
					last.Metadata.MergedSections++
				}
				continue
			}

			chunk := models.DocumentChunk{
				ID:           uuid.New(),
				DocumentID:   documentID,
				Content:      text,
				SectionTitle: sec.Title,
				SectionType:  sec.Type,
				SectionLevel: sec.Level,
				StartChar:    cursor + p.start,
				EndChar:      cursor + p.end,
				Metadata: models.ChunkMetadata{
					SectionIndex: sec.Index,
					HasOverlap:   p.overlap,
				},
			}
			chunks = append(chunks, chunk)
		}

		cursor += len(sec.Content) + 2 // sections joined with "\n\n"
	}

	finishMetadata(chunks)
	linkStructure(tree, chunks)
	linkCitations(tree, chunks)

	if opts.CalculateImportance {
		scoreImportance(tree, chunks, opts.Weights)
	}

	return chunks
}

type piece struct {
	start, end int
	overlap    bool // starts with carried-over context
}

var sentenceEnd = regexp.MustCompile(`[.!?][)"»']?\s`)

// splitPieces cuts content into spans of at most max bytes, preferring
// sentence boundaries, then line breaks, then a hard cut. Each span after
// the first is extended backwards by up to overlap bytes of context.
func splitPieces(content string, max, overlap int) []piece {
	if len(content) <= max {
		return []piece{{start: 0, end: len(content)}}
	}

	var cuts []int
	start := 0
	for len(content)-start > max {
		window := content[start : start+max]
		cut := -1
		if locs := sentenceEnd.FindAllStringIndex(window, -1); len(locs) > 0 {
			cut = start + locs[len(locs)-1][1]
		} else if nl := strings.LastIndexByte(window, '\n'); nl > 0 {
			cut = start + nl + 1
		} else if sp := strings.LastIndexByte(window, ' '); sp > 0 {
			cut = start + sp + 1
		} else {
			cut = start + max
		}
		cuts = append(cuts, cut)
		start = cut
	}

	var pieces []piece
	prev := 0
	for _, cut := range cuts {
		pieces = append(pieces, piece{start: prev, end: cut})
		prev = cut
	}
	pieces = append(pieces, piece{start: prev, end: len(content)})

	// extend every non-first piece backwards with trailing context
	for i := 1; i < len(pieces); i++ {
		ov := pieces[i].start - overlap
		if ov < pieces[i-1].start {
			ov = pieces[i-1].start
		}
		// snap to the next word boundary so overlaps never split a word
		if ov > 0 && ov < pieces[i].start {
			if sp := strings.IndexByte(content[ov:pieces[i].start], ' '); sp >= 0 {
				ov += sp + 1
			}
		}
		if ov < pieces[i].start {
			pieces[i].start = ov
			pieces[i].overlap = true
		}
	}

	return pieces
}

// finishMetadata assigns chunk indexes, totals and overlap partner ids
func finishMetadata(chunks []models.DocumentChunk) {
	total := len(chunks)
	for i := range chunks {
		chunks[i].Metadata.ChunkIndex = i
		chunks[i].Metadata.TotalChunks = total
		if chunks[i].Metadata.HasOverlap {
			if i > 0 && chunks[i-1].Metadata.SectionIndex == chunks[i].Metadata.SectionIndex {
				prevID := chunks[i-1].ID
				chunks[i].Metadata.OverlapPrevID = &prevID
				nextID := chunks[i].ID
				chunks[i-1].Metadata.OverlapNextID = &nextID
				chunks[i-1].Metadata.HasOverlap = true
			}
		}
	}
}

// linkStructure adds previous/next, parent/child and sibling relationships
func linkStructure(tree *segmenter.Tree, chunks []models.DocumentChunk) {
	bySection := make(map[int][]int) // section index -> chunk positions
	for i := range chunks {
		si := chunks[i].Metadata.SectionIndex
		bySection[si] = append(bySection[si], i)
	}

	addRel := func(from, to int, t models.RelationshipType, strength float64) {
		chunks[from].Relationships = append(chunks[from].Relationships, models.ChunkRelationship{
			Type:          t,
			TargetChunkID: chunks[to].ID,
			Strength:      strength,
		})
	}

	for i := range chunks {
		if i > 0 {
			addRel(i, i-1, models.RelationPrevious, 1.0)
		}
		if i < len(chunks)-1 {
			addRel(i, i+1, models.RelationNext, 1.0)
		}

		sec := tree.Sections[chunks[i].Metadata.SectionIndex]
		if sec.Parent >= 0 {
			for _, pi := range bySection[sec.Parent] {
				addRel(i, pi, models.RelationParent, 1.0)
				addRel(pi, i, models.RelationChild, 1.0)
			}
		}
	}

	// siblings: adjacent sections sharing a parent, linked through their
	// first chunks to keep relationship lists bounded on large codes
	for i := range tree.Sections {
		sec := tree.Sections[i]
		for ci := 0; ci < len(sec.Children)-1; ci++ {
			a, okA := firstChunk(bySection, sec.Children[ci])
			b, okB := firstChunk(bySection, sec.Children[ci+1])
			if okA && okB {
				addRel(a, b, models.RelationSibling, 1.0)
				addRel(b, a, models.RelationSibling, 1.0)
			}
		}
	}
}

func firstChunk(bySection map[int][]int, sectionIndex int) (int, bool) {
	positions := bySection[sectionIndex]
	if len(positions) == 0 {
		return 0, false
	}
	return positions[0], true
}

var (
	articleRefRe = regexp.MustCompile(`(?i)\bart(?:[íi]culo|\.)\s*(\d+[A-Za-z]*(?:-[A-Z])?)`)
	vagueRefRe   = regexp.MustCompile(`(?i)\b(cap[íi]tulo|t[íi]tulo|secci[óo]n)\s+([IVXLCDM]+\b|\d+\w*)`)
)

const (
	citationStrengthExact = 1.0
	citationStrengthVague = 0.5
)

// linkCitations detects textual references ("conforme al artículo 45") and
// links the citing chunk to the first chunk of the referenced section.
// Exact article number matches carry strength 1.0, vague structural
// references 0.5.
func linkCitations(tree *segmenter.Tree, chunks []models.DocumentChunk) {
	bySection := make(map[int][]int)
	for i := range chunks {
		si := chunks[i].Metadata.SectionIndex
		bySection[si] = append(bySection[si], i)
	}

	articleTargets := make(map[string]int) // number text -> section index
	typedTargets := make(map[string]int)   // "chapter|IV" -> section index
	for i := range tree.Sections {
		sec := tree.Sections[i]
		if sec.NumberText == "" {
			continue
		}
		if sec.Type == models.SectionTypeArticle {
			articleTargets[strings.ToUpper(sec.NumberText)] = i
		} else {
			typedTargets[string(sec.Type)+"|"+strings.ToUpper(sec.NumberText)] = i
		}
	}

	cite := func(from int, targetSection int, strength float64) {
		if targetSection == chunks[from].Metadata.SectionIndex {
			return
		}
		to, ok := firstChunk(bySection, targetSection)
		if !ok || to == from {
			return
		}
		chunks[from].Relationships = append(chunks[from].Relationships, models.ChunkRelationship{
			Type:          models.RelationCitation,
			TargetChunkID: chunks[to].ID,
			Strength:      strength,
		})
		chunks[to].Relationships = append(chunks[to].Relationships, models.ChunkRelationship{
			Type:          models.RelationCitedBy,
			TargetChunkID: chunks[from].ID,
			Strength:      strength,
		})
	}

	for i := range chunks {
		for _, m := range articleRefRe.FindAllStringSubmatch(chunks[i].Content, -1) {
			if si, ok := articleTargets[strings.ToUpper(m[1])]; ok {
				cite(i, si, citationStrengthExact)
			}
		}
		for _, m := range vagueRefRe.FindAllStringSubmatch(chunks[i].Content, -1) {
			key := refType(m[1]) + "|" + strings.ToUpper(m[2])
			if si, ok := typedTargets[key]; ok {
				cite(i, si, citationStrengthVague)
			}
		}
	}
}

func refType(keyword string) string {
	switch strings.ToLower(stripAccents(keyword)) {
	case "capitulo":
		return string(models.SectionTypeChapter)
	case "titulo":
		return string(models.SectionTypeTitle)
	case "seccion":
		return string(models.SectionTypeSection)
	}
	return ""
}

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U")

func stripAccents(s string) string {
	return accentReplacer.Replace(s)
}
