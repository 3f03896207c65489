package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexquery-backend/models"
)

const sampleCode = `CONSTITUCIÓN DE LA REPÚBLICA

TÍTULO I
CAPÍTULO I
Art. 1.- El Estado garantiza los derechos fundamentales.
Art. 2.- La soberanía radica en el pueblo.

CAPÍTULO II
Art. 3.- Son deberes primordiales del Estado la defensa de la soberanía.
Conforme al artículo 1, estos deberes son irrenunciables.

DISPOSICIONES TRANSITORIAS
PRIMERA.- Las leyes vigentes mantienen su validez.`

func TestSegmentBuildsTypedTree(t *testing.T) {
	tree := Segment(sampleCode)

	counts := tree.CountByType()
	assert.Equal(t, 1, counts[models.SectionTypePreamble])
	assert.Equal(t, 1, counts[models.SectionTypeTitle])
	assert.Equal(t, 2, counts[models.SectionTypeChapter])
	assert.Equal(t, 3, counts[models.SectionTypeArticle])
	assert.Equal(t, 1, counts[models.SectionTypeTransitional])
	assert.False(t, tree.Degraded())
}

func TestSegmentLevelsAndParents(t *testing.T) {
	tree := Segment(sampleCode)

	byTitle := make(map[string]Section)
	for _, s := range tree.Sections {
		byTitle[s.Title] = s
	}

	title := byTitle["TÍTULO I"]
	chapter := byTitle["CAPÍTULO I"]
	art1 := byTitle["Art. 1"]

	assert.Equal(t, 0, title.Level)
	assert.Equal(t, -1, title.Parent)
	assert.Equal(t, 1, chapter.Level)
	assert.Equal(t, title.Index, chapter.Parent)
	assert.Equal(t, 2, art1.Level)
	assert.Equal(t, chapter.Index, art1.Parent)
	assert.Equal(t, "1", art1.NumberText)
	assert.Equal(t, 1, art1.Number)
	assert.Contains(t, art1.Content, "derechos fundamentales")
}

func TestSegmentLineRangeInvariants(t *testing.T) {
	tree := Segment(sampleCode)

	for _, s := range tree.Sections {
		require.LessOrEqual(t, s.StartLine, s.EndLine, "section %q", s.Title)

		// children contained in the parent range, disjoint and ordered
		prevEnd := -1
		for _, ci := range s.Children {
			child := tree.Sections[ci]
			assert.GreaterOrEqual(t, child.StartLine, s.StartLine)
			assert.LessOrEqual(t, child.EndLine, s.EndLine)
			assert.Greater(t, child.StartLine, prevEnd, "sibling overlap under %q", s.Title)
			assert.Equal(t, s.Level+1, child.Level)
			prevEnd = child.EndLine
		}
	}
}

func TestSegmentTextBeforeFirstMarkerBecomesPreamble(t *testing.T) {
	tree := Segment(sampleCode)

	first := tree.Sections[0]
	assert.Equal(t, models.SectionTypePreamble, first.Type)
	assert.Equal(t, 0, first.Level)
	assert.Contains(t, first.Content, "CONSTITUCIÓN DE LA REPÚBLICA")
}

func TestSegmentNoMarkersDegradesToSingleSection(t *testing.T) {
	tree := Segment("Este texto no tiene estructura reconocible.\nSolo prosa corrida.")

	require.Len(t, tree.Sections, 1)
	assert.Equal(t, models.SectionTypeArticle, tree.Sections[0].Type)
	assert.Equal(t, 0, tree.Sections[0].Level)
	assert.True(t, tree.Degraded())
	assert.Contains(t, tree.Sections[0].Content, "prosa corrida")
}

func TestSegmentEmptyInput(t *testing.T) {
	tree := Segment("")
	require.Len(t, tree.Sections, 1)
	assert.Equal(t, "", tree.Sections[0].Content)
	assert.True(t, tree.Degraded())
}

func TestSegmentArticleVariants(t *testing.T) {
	text := "Artículo 100-A.- Texto del artículo.\nART. 5º Texto adicional.\nArtículo 44. Otro texto."
	tree := Segment(text)

	require.Len(t, tree.Sections, 3)
	assert.Equal(t, "100-A", tree.Sections[0].NumberText)
	assert.Equal(t, 100, tree.Sections[0].Number)
	assert.Equal(t, "5", tree.Sections[1].NumberText)
	assert.Equal(t, 5, tree.Sections[1].Number)
	assert.Equal(t, "44", tree.Sections[2].NumberText)
	assert.Contains(t, tree.Sections[2].Content, "Otro texto")
}

func TestSegmentIsDeterministic(t *testing.T) {
	a := Segment(sampleCode)
	b := Segment(sampleCode)
	assert.Equal(t, a, b)
}

func TestParseSectionNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"100", 100, true},
		{"100-A", 100, true},
		{"5bis", 5, true},
		{"IV", 4, true},
		{"XXIII", 23, true},
		{"IX", 9, true},
		{"IV-A", 4, true},
		{"PRELIMINAR", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseSectionNumber(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestLeavesAreInDocumentOrder(t *testing.T) {
	tree := Segment(sampleCode)

	leaves := tree.Leaves()
	require.NotEmpty(t, leaves)
	for i := 1; i < len(leaves); i++ {
		assert.Greater(t, leaves[i], leaves[i-1])
	}
	for _, li := range leaves {
		assert.Empty(t, tree.Sections[li].Children)
	}
}
