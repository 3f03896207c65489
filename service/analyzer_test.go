package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexquery-backend/models"
	"lexquery-backend/segmenter"
)

const analyzerFixture = `LEY DE EJEMPLO

TÍTULO I
Principios

CAPÍTULO I
Normas generales

Art. 1.- Toda persona es igual ante la ley.

Art. 2.- El Estado garantiza los derechos reconocidos en esta ley.

CAPÍTULO II
Aplicación

Art. 2.- Norma duplicada por error de numeración.

Art. 3.- Esta ley rige desde su publicación.

DISPOSICIONES TRANSITORIAS

PRIMERA.- Los reglamentos se dictarán en un año.
`

func analyzerTree(t *testing.T) *segmenter.Tree {
	t.Helper()
	tree := segmenter.Segment(analyzerFixture)
	require.False(t, tree.Degraded())
	return tree
}

func TestExtractArticlesDeduplicatesNumbering(t *testing.T) {
	tree := analyzerTree(t)
	docID := uuid.New()

	articles := extractArticles(tree, docID)
	require.Len(t, articles, 4)

	byNumber := make(map[string]models.Article)
	for _, a := range articles {
		assert.Equal(t, docID, a.DocumentID)
		byNumber[a.ArticleNumberText] = a
	}

	assert.Contains(t, byNumber, "1")
	assert.Contains(t, byNumber, "2")
	assert.Contains(t, byNumber, "2-2", "colliding numbering must get a disambiguating suffix")
	assert.Contains(t, byNumber, "3")

	assert.Contains(t, byNumber["2-2"].Content, "duplicada")
	assert.Equal(t, 2, byNumber["2-2"].ArticleNumber)
}

func TestExtractArticlesIncludesDescendantContent(t *testing.T) {
	text := strings.Join([]string{
		"Art. 1.- Encabezado del artículo.",
		"",
		"Párrafo 1",
		"Detalle adicional del primer párrafo.",
	}, "\n")

	tree := segmenter.Segment(text)
	articles := extractArticles(tree, uuid.New())
	require.Len(t, articles, 1)

	assert.Contains(t, articles[0].Content, "Encabezado")
	assert.Contains(t, articles[0].Content, "Detalle adicional")
}

func TestExtractArticlesSkipsDegradedTree(t *testing.T) {
	tree := segmenter.Segment("Texto corrido sin estructura reconocible.\nSolo prosa.")
	require.True(t, tree.Degraded())

	articles := extractArticles(tree, uuid.New())
	assert.Empty(t, articles, "the flat fallback section is not an article")
}

func TestBuildAnalysisDegradedTreeReportsZeroArticles(t *testing.T) {
	tree := segmenter.Segment("Texto corrido sin estructura reconocible.")
	require.True(t, tree.Degraded())

	analysis := buildAnalysis(tree, uuid.New(), 1)
	assert.Equal(t, 0, analysis.TotalArticles)
	assert.Equal(t, 1, analysis.TotalSections)
	assert.Zero(t, analysis.SectionCounts[models.SectionTypeArticle])
	assert.Empty(t, analysis.TableOfContents)
}

func TestBuildAnalysisCounts(t *testing.T) {
	tree := analyzerTree(t)
	docID := uuid.New()

	analysis := buildAnalysis(tree, docID, 3)

	assert.Equal(t, docID, analysis.DocumentID)
	assert.Equal(t, 3, analysis.AnalysisVersion)
	assert.Equal(t, 4, analysis.TotalArticles)
	assert.Equal(t, 2, analysis.TotalChapters)
	assert.Equal(t, len(tree.Sections), analysis.TotalSections)
	assert.Equal(t, 4, analysis.SectionCounts[models.SectionTypeArticle])
}

func TestBuildTableOfContentsSkipsArticles(t *testing.T) {
	tree := analyzerTree(t)

	toc := buildTableOfContents(tree)
	require.NotEmpty(t, toc)

	for _, entry := range toc {
		assert.NotEqual(t, models.SectionTypeArticle, entry.SectionType)
		assert.NotEqual(t, models.SectionTypeParagraph, entry.SectionType)
	}

	types := make([]models.SectionType, 0, len(toc))
	for _, entry := range toc {
		types = append(types, entry.SectionType)
	}
	assert.Contains(t, types, models.SectionTypeTitle)
	assert.Contains(t, types, models.SectionTypeChapter)
	assert.Contains(t, types, models.SectionTypeTransitional)
}

func TestSectionRowsPreserveArenaLinks(t *testing.T) {
	tree := analyzerTree(t)
	docID := uuid.New()

	rows := sectionRows(tree, docID)
	require.Len(t, rows, len(tree.Sections))

	for i, row := range rows {
		assert.Equal(t, i, row.SectionIndex)
		assert.Equal(t, docID, row.DocumentID)

		if tree.Sections[i].Parent < 0 {
			assert.Nil(t, row.ParentIndex)
		} else {
			require.NotNil(t, row.ParentIndex)
			assert.Equal(t, tree.Sections[i].Parent, *row.ParentIndex)
		}
	}
}

func TestExtractiveSummary(t *testing.T) {
	tree := analyzerTree(t)

	summary, short := extractiveSummary(tree)
	assert.NotEmpty(t, summary)
	assert.NotEmpty(t, short)
	assert.LessOrEqual(t, len(short), shortSummaryLimit+len("…"))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "corto", shorten("corto", 100))

	long := strings.Repeat("palabra ", 100)
	short := shorten(long, 80)
	assert.LessOrEqual(t, len(short), 80+len("…"))
	assert.True(t, strings.HasSuffix(short, "…"))
}
