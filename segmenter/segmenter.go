// Package segmenter parses raw legal text into an ordered tree of typed
// sections using the structural markers of codified legal documents
// (TÍTULO, CAPÍTULO, Artículo, DISPOSICIONES TRANSITORIAS, ...).
package segmenter

import (
	"regexp"
	"strings"

	"lexquery-backend/models"
)

// Section is a node in the arena. Parent and Children are indexes into
// Tree.Sections; Parent is -1 for top-level sections. Line numbers are
// 0-based positions in the source text.
type Section struct {
	Index      int
	Parent     int
	Children   []int
	Type       models.SectionType
	Level      int
	Title      string
	NumberText string
	Number     int // 0 when NumberText could not be parsed
	Content    string
	StartLine  int
	EndLine    int
}

// Tree holds every section of one document in document order. Arena
// storage with index links keeps parent/child references acyclic.
type Tree struct {
	Sections []Section
}

// structural rank per section type; a marker of rank r closes every open
// section of rank >= r
var typeRank = map[models.SectionType]int{
	models.SectionTypePreamble:     1,
	models.SectionTypeConsidering:  1,
	models.SectionTypeResolves:     1,
	models.SectionTypeDispositions: 1,
	models.SectionTypeTransitional: 1,
	models.SectionTypeFinal:        1,
	models.SectionTypeDerogatory:   1,
	models.SectionTypeTitle:        1,
	models.SectionTypeSubtitle:     2,
	models.SectionTypeChapter:      3,
	models.SectionTypeSection:      4,
	models.SectionTypeArticle:      5,
	models.SectionTypeParagraph:    6,
	models.SectionTypeClause:       7,
}

type markerPattern struct {
	re          *regexp.Regexp
	sectionType models.SectionType
}

// Order matters: disposition blocks must match before the generic section
// patterns, and "Artículo" before the bare "Art." abbreviation.
var markerPatterns = []markerPattern{
	{regexp.MustCompile(`(?i)^\s*DISPOSICION(?:ES)?\s+TRANSITORIA`), models.SectionTypeTransitional},
	{regexp.MustCompile(`(?i)^\s*DISPOSICION(?:ES)?\s+FINAL`), models.SectionTypeFinal},
	{regexp.MustCompile(`(?i)^\s*DISPOSICION(?:ES)?\s+DEROGATORIA`), models.SectionTypeDerogatory},
	{regexp.MustCompile(`(?i)^\s*DISPOSICIONES\b`), models.SectionTypeDispositions},
	{regexp.MustCompile(`(?i)^\s*PRE[ÁA]MBULO\b`), models.SectionTypePreamble},
	{regexp.MustCompile(`(?i)^\s*CONSIDERANDO\b`), models.SectionTypeConsidering},
	{regexp.MustCompile(`(?i)^\s*RESUELVE\b`), models.SectionTypeResolves},
	{regexp.MustCompile(`(?i)^\s*SUBT[ÍI]TULO(?:\s+(\S+))?`), models.SectionTypeSubtitle},
	{regexp.MustCompile(`(?i)^\s*T[ÍI]TULO(?:\s+(\S+))?`), models.SectionTypeTitle},
	{regexp.MustCompile(`(?i)^\s*CAP[ÍI]TULO(?:\s+(\S+))?`), models.SectionTypeChapter},
	{regexp.MustCompile(`(?i)^\s*SECCI[ÓO]N(?:\s+(\S+))?`), models.SectionTypeSection},
	{regexp.MustCompile(`(?i)^\s*ART[ÍI]CULO\s+(\S+)`), models.SectionTypeArticle},
	{regexp.MustCompile(`(?i)^\s*ART\.\s*(\S+)`), models.SectionTypeArticle},
	{regexp.MustCompile(`(?i)^\s*P[ÁA]RRAFO(?:\s+(\S+))?`), models.SectionTypeParagraph},
	{regexp.MustCompile(`(?i)^\s*INCISO\s+(\S+)`), models.SectionTypeClause},
}

type marker struct {
	sectionType models.SectionType
	numberText  string
	title       string
	rest        string // inline body text after the marker, "Art. 1.- ..." style
}

// matchMarker returns the structural marker opened by a line, if any
func matchMarker(line string) (marker, bool) {
	for _, p := range markerPatterns {
		loc := p.re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		mk := marker{
			sectionType: p.sectionType,
			title:       strings.TrimSpace(line),
		}
		if len(loc) > 2 && loc[2] >= 0 {
			mk.numberText = cleanNumberText(line[loc[2]:loc[3]])
		}
		if mk.sectionType == models.SectionTypeArticle {
			// articles often carry their text on the marker line; keep
			// the heading short and move the remainder into the body
			mk.title = strings.TrimRight(strings.TrimSpace(line[loc[0]:loc[1]]), " \t.,;:–—-")
			mk.rest = strings.TrimLeft(line[loc[1]:], " \t.·:;,–—-")
		}
		return mk, true
	}
	return marker{}, false
}

// cleanNumberText strips ordinal and punctuation suffixes from a captured
// number token, keeping letter suffixes like "100-A"
func cleanNumberText(s string) string {
	s = strings.TrimRight(s, ".,;:-–")
	s = strings.TrimSuffix(s, "º")
	s = strings.TrimSuffix(s, "°")
	return s
}

// Segment parses rawText into a section tree. It never fails: text before
// the first marker becomes a synthetic preamble, and a document with no
// markers at all collapses into a single section of type "article"
// covering the full range so downstream chunking degrades to flat mode.
func Segment(rawText string) *Tree {
	lines := strings.Split(rawText, "\n")
	tree := &Tree{}

	// stack of open section indexes
	var stack []int
	var body []string
	bodyOwner := -1

	flushBody := func() {
		if bodyOwner >= 0 {
			tree.Sections[bodyOwner].Content = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	openSection := func(mk marker, lineNo int) {
		rank := typeRank[mk.sectionType]
		for len(stack) > 0 && typeRank[tree.Sections[stack[len(stack)-1]].Type] >= rank {
			closeTop(tree, &stack, lineNo-1)
		}

		parent := -1
		level := 0
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
			level = tree.Sections[parent].Level + 1
		}

		idx := len(tree.Sections)
		sec := Section{
			Index:      idx,
			Parent:     parent,
			Type:       mk.sectionType,
			Level:      level,
			Title:      mk.title,
			NumberText: mk.numberText,
			StartLine:  lineNo,
			EndLine:    lineNo,
		}
		if n, ok := ParseSectionNumber(mk.numberText); ok {
			sec.Number = n
		}
		tree.Sections = append(tree.Sections, sec)
		if parent >= 0 {
			tree.Sections[parent].Children = append(tree.Sections[parent].Children, idx)
		}
		stack = append(stack, idx)
		bodyOwner = idx
	}

	sawMarker := false
	for lineNo, line := range lines {
		mk, ok := matchMarker(line)
		if !ok {
			if bodyOwner == -1 && strings.TrimSpace(line) != "" {
				// text before the first marker: synthetic preamble
				openSection(marker{
					sectionType: models.SectionTypePreamble,
					title:       "Preámbulo",
				}, lineNo)
			}
			if bodyOwner >= 0 {
				body = append(body, line)
			}
			continue
		}

		sawMarker = true
		flushBody()
		openSection(mk, lineNo)
		if mk.rest != "" {
			body = append(body, mk.rest)
		}
	}
	flushBody()

	for len(stack) > 0 {
		closeTop(tree, &stack, len(lines)-1)
	}

	if !sawMarker {
		// without a single real marker the synthetic preamble is the whole
		// tree; discard it and fall through to the flat representation
		tree.Sections = tree.Sections[:0]
	}

	if len(tree.Sections) == 0 {
		// malformed input with no structure at all
		tree.Sections = append(tree.Sections, Section{
			Index:   0,
			Parent:  -1,
			Type:    models.SectionTypeArticle,
			Level:   0,
			Title:   "Documento",
			Content: strings.TrimSpace(rawText),
			EndLine: len(lines) - 1,
		})
	}

	return tree
}

// closeTop pops the stack top and propagates its end line to the parent
func closeTop(tree *Tree, stack *[]int, endLine int) {
	s := *stack
	idx := s[len(s)-1]
	*stack = s[:len(s)-1]

	sec := &tree.Sections[idx]
	if endLine > sec.EndLine {
		sec.EndLine = endLine
	}
	if sec.Parent >= 0 && sec.EndLine > tree.Sections[sec.Parent].EndLine {
		tree.Sections[sec.Parent].EndLine = sec.EndLine
	}
}

// Degraded reports whether segmentation found no real structure and fell
// back to the single-section representation.
func (t *Tree) Degraded() bool {
	return len(t.Sections) == 1 &&
		t.Sections[0].Type == models.SectionTypeArticle &&
		t.Sections[0].NumberText == ""
}

// CountByType tallies sections per type
func (t *Tree) CountByType() models.SectionCounts {
	counts := make(models.SectionCounts)
	for i := range t.Sections {
		counts[t.Sections[i].Type]++
	}
	return counts
}

// Leaves returns the indexes of sections without children, in document order
func (t *Tree) Leaves() []int {
	var leaves []int
	for i := range t.Sections {
		if len(t.Sections[i].Children) == 0 {
			leaves = append(leaves, i)
		}
	}
	return leaves
}
