package service

import (
	"regexp"
	"strings"

	"lexquery-backend/models"
)

// Query classification is pure and deterministic: the same query text always
// yields the same type, which is required for cache key stability.

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

var punctuationStripper = strings.NewReplacer(
	"¿", " ", "?", " ", "¡", " ", "!", " ", ",", " ", ".", " ", ";", " ", ":", " ",
)

var countingCues = []string{
	"cuantos", "cuantas", "cuanto", "cuanta",
	"how many", "numero de", "cantidad de", "total de",
}

var structuralNouns = []string{
	"articulo", "articulos", "capitulo", "capitulos", "titulo", "titulos",
	"seccion", "secciones", "disposicion", "disposiciones", "inciso", "incisos",
	"article", "articles", "chapter", "chapters", "section", "sections", "title", "titles",
}

var overviewCues = []string{
	"indice", "estructura", "tabla de contenido", "tabla de contenidos",
	"contenido de", "resumen", "sumario",
	"structure", "outline", "table of contents", "overview",
}

var analyticalCues = []string{
	"por que", "explica", "explicame", "relacion", "relacionado", "relacionada",
	"compara", "comparacion", "diferencia", "significa", "implica", "analiza",
	"interpreta", "alcance de", "aplica a",
	"why", "explain", "compare", "relationship", "difference", "meaning",
}

// locator patterns like "articulo 100", "art 5º", "article 12-a" on the
// normalized (lowercased, accent-folded, punctuation-stripped) query
var locatorRe = regexp.MustCompile(`\b(?:art(?:iculo)?|article)\s+(\d+(?:-[a-z])?[ºo]?)(?:\s|$)`)

func normalizeQuery(queryText string) string {
	norm := strings.ToLower(queryText)
	norm = accentFolder.Replace(norm)
	norm = punctuationStripper.Replace(norm)
	return strings.Join(strings.Fields(norm), " ")
}

func containsAny(norm string, cues []string) bool {
	padded := " " + norm + " "
	for _, cue := range cues {
		if strings.Contains(padded, " "+cue+" ") {
			return true
		}
	}
	return false
}

// ClassifyQuery maps free query text to a query type. Counting questions
// about structure are metadata, explicit article locators are navigation,
// structural overviews are metadata, everything else is content. A locator
// combined with another strong signal yields hybrid so the router runs
// several strategies and merges.
func ClassifyQuery(queryText string) models.QueryType {
	norm := normalizeQuery(queryText)

	counting := containsAny(norm, countingCues) && containsAny(norm, structuralNouns)
	locator := locatorRe.MatchString(norm)
	overview := containsAny(norm, overviewCues)
	analytical := containsAny(norm, analyticalCues)

	if locator && (counting || overview || analytical) {
		return models.QueryTypeHybrid
	}
	if counting {
		return models.QueryTypeMetadata
	}
	if locator {
		return models.QueryTypeNavigation
	}
	if overview {
		return models.QueryTypeMetadata
	}
	return models.QueryTypeContent
}

// ExtractLocator pulls the article number referenced by a navigation or
// hybrid query. Letter suffixes are uppercased to match the stored
// article_number_text normalization ("100-A").
func ExtractLocator(queryText string) (string, bool) {
	m := locatorRe.FindStringSubmatch(normalizeQuery(queryText))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(strings.TrimSuffix(m[1], "o")), true
}
