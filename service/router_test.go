package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexquery-backend/cache"
	"lexquery-backend/models"
)

type fakeScopes struct {
	ids []uuid.UUID
	err error
}

func (f *fakeScopes) ListScopeDocumentIDs(ctx context.Context, scopeID uuid.UUID) ([]uuid.UUID, error) {
	return f.ids, f.err
}

type fakeAnalyses struct {
	list []models.DocumentAnalysis
	err  error
}

func (f *fakeAnalyses) ListByScope(ctx context.Context, documentIDs []uuid.UUID) ([]models.DocumentAnalysis, error) {
	return f.list, f.err
}

type fakeArticles struct {
	byText  map[string]*models.Article
	nearest *models.Article
}

func (f *fakeArticles) GetByNumberText(ctx context.Context, documentIDs []uuid.UUID, numberText string) (*models.Article, error) {
	if a, ok := f.byText[numberText]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeArticles) GetNearestNumber(ctx context.Context, documentIDs []uuid.UUID, number int) (*models.Article, error) {
	if f.nearest != nil {
		return f.nearest, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return make([]float64, 768), nil
}

type fakeChunks struct {
	calls  int
	chunks []models.DocumentChunk
	err    error
}

func (f *fakeChunks) SearchByScope(ctx context.Context, embedding []float64, documentIDs []uuid.UUID, limit int) ([]models.DocumentChunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > limit {
		return f.chunks[:limit], nil
	}
	return f.chunks, nil
}

func scopeWithDoc() (*fakeScopes, uuid.UUID) {
	docID := uuid.New()
	return &fakeScopes{ids: []uuid.UUID{docID}}, docID
}

func TestRouteMetadataQueryAnswersFromAnalysis(t *testing.T) {
	scopes, docID := scopeWithDoc()
	embedder := &fakeEmbedder{}
	searcher := &fakeChunks{}

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithAnalysisReader(&fakeAnalyses{list: []models.DocumentAnalysis{{
			DocumentID:    docID,
			TotalArticles: 444,
			TotalChapters: 26,
			TotalSections: 500,
		}}}),
		RouterWithQueryEmbedder(embedder),
		RouterWithChunkSearcher(searcher),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "¿Cuántos artículos tiene la constitución?",
		ScopeID: docID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.QueryTypeMetadata, resp.QueryType)
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Contains(t, resp.Answer, "444")
	assert.Equal(t, []string{models.StrategyMetadataLookup}, resp.StrategiesUsed)
	assert.Zero(t, embedder.calls, "metadata queries must not trigger vector search")
	assert.Zero(t, searcher.calls)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "analysis", resp.Sources[0].Kind)
}

func TestRouteNavigationQueryReturnsExactArticle(t *testing.T) {
	scopes, docID := scopeWithDoc()
	embedder := &fakeEmbedder{}

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithArticleFinder(&fakeArticles{byText: map[string]*models.Article{
			"100": {
				DocumentID:        docID,
				ArticleNumber:     100,
				ArticleNumberText: "100",
				Title:             "Art. 100",
				Content:           "El contenido exacto del artículo cien.",
			},
		}}),
		RouterWithQueryEmbedder(embedder),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "Muéstrame el artículo 100",
		ScopeID: docID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.QueryTypeNavigation, resp.QueryType)
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Contains(t, resp.Answer, "contenido exacto")
	assert.Equal(t, []string{models.StrategyDirectLookup}, resp.StrategiesUsed)
	assert.Zero(t, embedder.calls, "exact lookup must not call semantic search")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "article", resp.Sources[0].Kind)
}

func TestRouteNavigationFallsBackToNearestNumber(t *testing.T) {
	scopes, docID := scopeWithDoc()

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithArticleFinder(&fakeArticles{nearest: &models.Article{
			DocumentID:        docID,
			ArticleNumber:     100,
			ArticleNumberText: "100",
			Title:             "Art. 100",
			Content:           "Contenido del artículo vecino.",
		}}),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "artículo 99",
		ScopeID: docID,
	})
	require.NoError(t, err)

	assert.Less(t, resp.Confidence, 1.0, "a nearest-neighbor match is not an exact read")
	assert.Greater(t, resp.Confidence, 0.0)
	assert.Contains(t, resp.Answer, "vecino")
	assert.NotEmpty(t, resp.Explanation)
}

func TestRouteContentQueryRanksBySimilarityAndImportance(t *testing.T) {
	scopes, docID := scopeWithDoc()

	searcher := &fakeChunks{chunks: []models.DocumentChunk{
		{DocumentID: docID, SectionTitle: "Art. 1", Content: "pasaje uno", Distance: 0.2, Importance: 0.1},
		{DocumentID: docID, SectionTitle: "Art. 2", Content: "pasaje dos", Distance: 0.25, Importance: 0.9},
	}}

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithQueryEmbedder(&fakeEmbedder{}),
		RouterWithChunkSearcher(searcher),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "¿Qué garantías protege la ley frente a la expropiación?",
		ScopeID: docID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.QueryTypeContent, resp.QueryType)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "Art. 2", resp.Sources[0].Title, "importance must be able to outrank raw similarity")
	assert.Greater(t, resp.Confidence, 0.0)
	assert.Equal(t, []string{models.StrategySemanticSearch}, resp.StrategiesUsed)
}

func TestSemanticConfidenceIsMonotonic(t *testing.T) {
	assert.Equal(t, 0.0, semanticConfidence(0.9, 0))
	assert.Less(t, semanticConfidence(0.5, 2), semanticConfidence(0.8, 2))
	assert.LessOrEqual(t, semanticConfidence(0.8, 1), semanticConfidence(0.8, 3))
	assert.LessOrEqual(t, semanticConfidence(1.0, 10), 1.0)
}

func TestRouteHybridSurvivesFailedSemanticBranch(t *testing.T) {
	scopes, docID := scopeWithDoc()

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithAnalysisReader(&fakeAnalyses{list: []models.DocumentAnalysis{{
			DocumentID:    docID,
			TotalArticles: 50,
			TotalChapters: 5,
			TotalSections: 60,
		}}}),
		RouterWithArticleFinder(&fakeArticles{byText: map[string]*models.Article{
			"14": {DocumentID: docID, ArticleNumber: 14, ArticleNumberText: "14", Content: "Texto del artículo catorce."},
		}}),
		RouterWithQueryEmbedder(&fakeEmbedder{err: errors.New("provider unavailable")}),
		RouterWithChunkSearcher(&fakeChunks{}),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "Explica el artículo 14 y su relación con la propiedad",
		ScopeID: docID,
	})
	require.NoError(t, err, "a failed branch must never surface as a transport failure")

	assert.Equal(t, models.QueryTypeHybrid, resp.QueryType)
	assert.Contains(t, resp.Answer, "50 artículos", "metadata branch answer must survive")
	assert.Contains(t, resp.Answer, "catorce")
	assert.Greater(t, resp.Confidence, 0.0)
	assert.Less(t, resp.Confidence, 1.0, "a failed branch must reduce confidence")
	assert.NotEmpty(t, resp.Explanation)
}

func TestRouteEscalatesToSemanticFallback(t *testing.T) {
	scopes, docID := scopeWithDoc()

	searcher := &fakeChunks{chunks: []models.DocumentChunk{
		{DocumentID: docID, SectionTitle: "Art. 7", Content: "pasaje de respaldo", Distance: 0.3},
	}}

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithAnalysisReader(&fakeAnalyses{}),
		RouterWithQueryEmbedder(&fakeEmbedder{}),
		RouterWithChunkSearcher(searcher),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "¿Cuántos artículos tiene el código?",
		ScopeID: docID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.QueryTypeMetadata, resp.QueryType)
	assert.Contains(t, resp.StrategiesUsed, models.StrategyMetadataLookup)
	assert.Contains(t, resp.StrategiesUsed, models.StrategySemanticFallback)
	require.Len(t, resp.Sources, 1)
	assert.Contains(t, resp.Answer, "respaldo")
}

func TestRouteReturnsNoAnswerWithZeroConfidence(t *testing.T) {
	scopes, docID := scopeWithDoc()

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithAnalysisReader(&fakeAnalyses{}),
		RouterWithQueryEmbedder(&fakeEmbedder{}),
		RouterWithChunkSearcher(&fakeChunks{}),
	)

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "¿Cuántos capítulos tiene la ley?",
		ScopeID: docID,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, resp.Confidence)
	assert.Equal(t, noAnswerText, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.NotEmpty(t, resp.Explanation)
}

func TestRouteServesSecondCallFromCache(t *testing.T) {
	scopes, docID := scopeWithDoc()
	analyses := &fakeAnalyses{list: []models.DocumentAnalysis{{
		DocumentID:    docID,
		TotalArticles: 10,
		TotalChapters: 2,
		TotalSections: 12,
	}}}

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithAnalysisReader(analyses),
		RouterWithResultCache(cache.New()),
	)

	req := RouteRequest{Query: "¿Cuántos artículos tiene la ley?", ScopeID: docID}

	first, err := r.Route(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	// mutate the backend; the cached answer must win
	analyses.list[0].TotalArticles = 999

	second, err := r.Route(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Answer, second.Answer)
}

func TestRouteCacheKeyIgnoresAccentsAndPunctuation(t *testing.T) {
	scopes, docID := scopeWithDoc()
	analyses := &fakeAnalyses{list: []models.DocumentAnalysis{{
		DocumentID:    docID,
		TotalArticles: 10,
		TotalChapters: 2,
		TotalSections: 12,
	}}}

	r := NewRouter(
		RouterWithScopeResolver(scopes),
		RouterWithAnalysisReader(analyses),
		RouterWithResultCache(cache.New()),
	)

	first, err := r.Route(context.Background(), RouteRequest{
		Query:   "¿Cuántos artículos tiene la ley?",
		ScopeID: docID,
	})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := r.Route(context.Background(), RouteRequest{
		Query:   "cuantos articulos tiene la ley",
		ScopeID: docID,
	})
	require.NoError(t, err)
	assert.True(t, second.FromCache, "surface variants of one question must share a cache entry")
	assert.Equal(t, first.Answer, second.Answer)
}

func TestRouteEmptyScope(t *testing.T) {
	r := NewRouter(RouterWithScopeResolver(&fakeScopes{}))

	resp, err := r.Route(context.Background(), RouteRequest{
		Query:   "¿Qué dice la ley?",
		ScopeID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.Equal(t, noAnswerText, resp.Answer)
}
