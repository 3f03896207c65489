package service

import (
	"fmt"
	"strconv"
	"strings"

	"lexquery-backend/models"
	"lexquery-backend/segmenter"

	"github.com/google/uuid"
)

const (
	summaryLimit      = 600
	shortSummaryLimit = 200
)

// extractArticles collects every section of type article into an Article
// record. Article content includes the section's own text plus all of its
// descendants. ArticleNumberText is unique per document: on a numbering
// collision the later occurrence gets a disambiguating suffix.
func extractArticles(tree *segmenter.Tree, documentID uuid.UUID) []models.Article {
	if tree.Degraded() {
		// the flat fallback section only exists so chunking has a leaf;
		// it is not a real article
		return nil
	}

	var articles []models.Article
	seen := make(map[string]int)

	for _, s := range tree.Sections {
		if s.Type != models.SectionTypeArticle {
			continue
		}

		numberText := s.NumberText
		if numberText == "" {
			numberText = strconv.Itoa(s.Index)
		}
		if n := seen[numberText]; n > 0 {
			seen[numberText] = n + 1
			numberText = fmt.Sprintf("%s-%d", numberText, n+1)
		}
		seen[numberText]++

		articles = append(articles, models.Article{
			DocumentID:        documentID,
			ArticleNumber:     s.Number,
			ArticleNumberText: numberText,
			Title:             s.Title,
			Content:           sectionContent(tree, s.Index),
		})
	}

	return articles
}

// sectionContent joins a section's own content with that of all its
// descendants, in document order
func sectionContent(tree *segmenter.Tree, index int) string {
	var parts []string
	var walk func(int)
	walk = func(i int) {
		s := &tree.Sections[i]
		if content := strings.TrimSpace(s.Content); content != "" {
			parts = append(parts, content)
		}
		for _, child := range s.Children {
			walk(child)
		}
	}
	walk(index)
	return strings.Join(parts, "\n\n")
}

// buildAnalysis derives the per-document aggregate from the section tree.
// Summaries are filled in by the caller.
func buildAnalysis(tree *segmenter.Tree, documentID uuid.UUID, version int) *models.DocumentAnalysis {
	counts := tree.CountByType()
	if tree.Degraded() {
		// the synthetic section of a degraded tree counts as structure for
		// chunking but not as an article
		delete(counts, models.SectionTypeArticle)
	}

	return &models.DocumentAnalysis{
		DocumentID:      documentID,
		TotalArticles:   counts[models.SectionTypeArticle],
		TotalChapters:   counts[models.SectionTypeChapter],
		TotalSections:   len(tree.Sections),
		SectionCounts:   counts,
		TableOfContents: buildTableOfContents(tree),
		AnalysisVersion: version,
	}
}

// buildTableOfContents lists the structural sections of the tree in
// document order. Articles and their subdivisions are left out; a table of
// contents with hundreds of article lines helps nobody.
func buildTableOfContents(tree *segmenter.Tree) models.TableOfContents {
	toc := make(models.TableOfContents, 0)
	for _, s := range tree.Sections {
		switch s.Type {
		case models.SectionTypeArticle, models.SectionTypeParagraph, models.SectionTypeClause:
			continue
		}
		toc = append(toc, models.TOCEntry{
			SectionType: s.Type,
			Level:       s.Level,
			Title:       s.Title,
			NumberText:  s.NumberText,
		})
	}
	return toc
}

// sectionRows converts the section arena into persistable rows
func sectionRows(tree *segmenter.Tree, documentID uuid.UUID) []models.DocumentSection {
	rows := make([]models.DocumentSection, 0, len(tree.Sections))
	for _, s := range tree.Sections {
		row := models.DocumentSection{
			DocumentID:   documentID,
			SectionIndex: s.Index,
			SectionType:  s.Type,
			Level:        s.Level,
			Title:        s.Title,
			NumberText:   s.NumberText,
			Content:      s.Content,
			StartLine:    s.StartLine,
			EndLine:      s.EndLine,
		}
		if s.Parent >= 0 {
			parent := s.Parent
			row.ParentIndex = &parent
		}
		rows = append(rows, row)
	}
	return rows
}

// extractiveSummary takes the earliest content of the document as a cheap
// summary, used when no generative summarizer is configured or it fails
func extractiveSummary(tree *segmenter.Tree) (string, string) {
	var b strings.Builder
	for _, s := range tree.Sections {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(content)
		if b.Len() >= summaryLimit {
			break
		}
	}

	summary := shorten(b.String(), summaryLimit)
	return summary, shorten(summary, shortSummaryLimit)
}

// shorten truncates text at a word boundary near the limit
func shorten(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}

	cut := text[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}

func summaryPrompt(title string, analysis *models.DocumentAnalysis, excerpt string) string {
	var b strings.Builder
	b.WriteString("Resume el siguiente documento legal en un párrafo claro y neutral.\n\n")
	fmt.Fprintf(&b, "Título: %s\n", title)
	fmt.Fprintf(&b, "Artículos: %d, capítulos: %d, secciones: %d\n\n", analysis.TotalArticles, analysis.TotalChapters, analysis.TotalSections)

	if len(analysis.TableOfContents) > 0 {
		b.WriteString("Estructura:\n")
		for i, entry := range analysis.TableOfContents {
			if i >= 20 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", entry.Title)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Inicio del texto:\n%s\n", excerpt)
	return b.String()
}
