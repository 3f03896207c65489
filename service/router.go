package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"lexquery-backend/cache"
	"lexquery-backend/metrics"
	"lexquery-backend/models"
	"lexquery-backend/segmenter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ScopeResolver expands a scope ID into the documents it covers
type ScopeResolver interface {
	ListScopeDocumentIDs(ctx context.Context, scopeID uuid.UUID) ([]uuid.UUID, error)
}

// AnalysisReader serves precomputed per-document aggregates
type AnalysisReader interface {
	ListByScope(ctx context.Context, documentIDs []uuid.UUID) ([]models.DocumentAnalysis, error)
}

// ArticleFinder locates articles by exact or nearest numbering
type ArticleFinder interface {
	GetByNumberText(ctx context.Context, documentIDs []uuid.UUID, numberText string) (*models.Article, error)
	GetNearestNumber(ctx context.Context, documentIDs []uuid.UUID, number int) (*models.Article, error)
}

// ChunkSearcher performs vector similarity search over document chunks
type ChunkSearcher interface {
	SearchByScope(ctx context.Context, embedding []float64, documentIDs []uuid.UUID, limit int) ([]models.DocumentChunk, error)
}

// QueryEmbedder embeds query text for semantic search
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Router dispatches a classified query to one or more retrieval strategies
// and merges their results. Routing problems degrade to a low-confidence
// answer; they never surface as a transport failure.
type Router struct {
	scopes        ScopeResolver
	analyses      AnalysisReader
	articles      ArticleFinder
	chunks        ChunkSearcher
	embedder      QueryEmbedder
	resultCache   *cache.ResultCache
	metrics       *metrics.Metrics
	log           zerolog.Logger
	searchLimit   int
	searchTimeout time.Duration
	cacheTTL      time.Duration
}

// RouterOption is a functional option for Router
type RouterOption func(*Router)

// RouterWithScopeResolver sets the scope resolver
func RouterWithScopeResolver(scopes ScopeResolver) RouterOption {
	return func(r *Router) {
		r.scopes = scopes
	}
}

// RouterWithAnalysisReader sets the analysis reader
func RouterWithAnalysisReader(analyses AnalysisReader) RouterOption {
	return func(r *Router) {
		r.analyses = analyses
	}
}

// RouterWithArticleFinder sets the article finder
func RouterWithArticleFinder(articles ArticleFinder) RouterOption {
	return func(r *Router) {
		r.articles = articles
	}
}

// RouterWithChunkSearcher sets the chunk searcher
func RouterWithChunkSearcher(chunks ChunkSearcher) RouterOption {
	return func(r *Router) {
		r.chunks = chunks
	}
}

// RouterWithQueryEmbedder sets the query embedder
func RouterWithQueryEmbedder(embedder QueryEmbedder) RouterOption {
	return func(r *Router) {
		r.embedder = embedder
	}
}

// RouterWithResultCache sets the result cache
func RouterWithResultCache(c *cache.ResultCache) RouterOption {
	return func(r *Router) {
		r.resultCache = c
	}
}

// RouterWithMetrics sets the metrics collectors
func RouterWithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// RouterWithLogger sets the logger
func RouterWithLogger(log zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.log = log
	}
}

// RouterWithSearchLimit sets the semantic search result limit
func RouterWithSearchLimit(limit int) RouterOption {
	return func(r *Router) {
		r.searchLimit = limit
	}
}

// RouterWithSearchTimeout bounds each strategy branch, shared by both
// branches of a hybrid query
func RouterWithSearchTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.searchTimeout = d
	}
}

// RouterWithCacheTTL overrides the cache TTL for routed responses
func RouterWithCacheTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.cacheTTL = ttl
	}
}

// NewRouter creates a new query router
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		log:           zerolog.Nop(),
		searchLimit:   8,
		searchTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteRequest is a scoped natural-language query
type RouteRequest struct {
	Query   string
	ScopeID uuid.UUID
}

const noAnswerText = "No se encontró una respuesta en los documentos consultados."

// Route answers a query. It consults the cache first, dispatches by query
// type, escalates once to semantic search when the primary strategy comes
// back empty, and writes successful answers through to the cache.
func (r *Router) Route(ctx context.Context, req RouteRequest) (models.RoutedResponse, error) {
	start := time.Now()

	queryType := ClassifyQuery(req.Query)
	// key on the classifier's normalized form so accent and punctuation
	// variants of one question share a cache entry
	key := cache.Key(normalizeQuery(req.Query), req.ScopeID.String(), queryType)

	if r.resultCache != nil {
		if resp, ok := r.resultCache.Get(key); ok {
			resp.FromCache = true
			r.observe(queryType, true, start)
			return resp, nil
		}
	}

	docIDs, err := r.scopes.ListScopeDocumentIDs(ctx, req.ScopeID)
	if err != nil {
		return models.RoutedResponse{}, fmt.Errorf("failed to resolve scope: %w", err)
	}
	if len(docIDs) == 0 {
		r.observe(queryType, false, start)
		return noAnswer(queryType, nil, "no documents found for scope"), nil
	}

	var resp models.RoutedResponse
	switch queryType {
	case models.QueryTypeMetadata:
		resp = r.routeMetadata(ctx, req.Query, docIDs)
	case models.QueryTypeNavigation:
		resp = r.routeNavigation(ctx, req.Query, docIDs)
	case models.QueryTypeContent:
		resp = r.routeContent(ctx, req.Query, docIDs, models.StrategySemanticSearch)
	case models.QueryTypeHybrid:
		resp = r.routeHybrid(ctx, req.Query, docIDs)
	}
	resp.QueryType = queryType

	// One escalation to unfiltered semantic search before giving up. Content
	// and hybrid queries already ran it.
	if len(resp.Sources) == 0 && (queryType == models.QueryTypeMetadata || queryType == models.QueryTypeNavigation) {
		fallback := r.routeContent(ctx, req.Query, docIDs, models.StrategySemanticFallback)
		if len(fallback.Sources) > 0 {
			fallback.QueryType = queryType
			fallback.StrategiesUsed = append(resp.StrategiesUsed, fallback.StrategiesUsed...)
			resp = fallback
		} else {
			resp.StrategiesUsed = append(resp.StrategiesUsed, models.StrategySemanticFallback)
		}
	}

	if len(resp.Sources) == 0 {
		resp = noAnswer(queryType, resp.StrategiesUsed, resp.Explanation)
	} else if r.resultCache != nil {
		r.resultCache.Put(key, req.ScopeID.String(), resp, r.cacheTTL)
	}

	r.observe(queryType, false, start)
	return resp, nil
}

func (r *Router) observe(queryType models.QueryType, fromCache bool, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveQuery(string(queryType), fromCache, time.Since(start))
	}
}

func noAnswer(queryType models.QueryType, strategies []string, explanation string) models.RoutedResponse {
	if explanation == "" {
		explanation = "no answer found"
	}
	return models.RoutedResponse{
		Answer:         noAnswerText,
		Sources:        []models.QuerySource{},
		Confidence:     0,
		QueryType:      queryType,
		StrategiesUsed: strategies,
		Explanation:    explanation,
	}
}

// routeMetadata answers from precomputed analyses without touching vectors
func (r *Router) routeMetadata(ctx context.Context, query string, docIDs []uuid.UUID) models.RoutedResponse {
	resp := models.RoutedResponse{
		Sources:        []models.QuerySource{},
		StrategiesUsed: []string{models.StrategyMetadataLookup},
	}

	analyses, err := r.analyses.ListByScope(ctx, docIDs)
	if err != nil {
		r.log.Warn().Err(err).Msg("metadata lookup failed")
		resp.Explanation = "metadata lookup failed"
		return resp
	}
	if len(analyses) == 0 {
		resp.Explanation = "no analyzed documents in scope"
		return resp
	}

	wantStructure := containsAny(normalizeQuery(query), overviewCues)

	var b strings.Builder
	for i, a := range analyses {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "El documento contiene %d artículos, %d capítulos y %d secciones.",
			a.TotalArticles, a.TotalChapters, a.TotalSections)
		if a.ShortSummary != "" {
			b.WriteString(" ")
			b.WriteString(a.ShortSummary)
		}

		if wantStructure && len(a.TableOfContents) > 0 {
			b.WriteString("\n\nEstructura:")
			for _, entry := range a.TableOfContents {
				b.WriteString("\n")
				b.WriteString(strings.Repeat("  ", entry.Level))
				b.WriteString("- ")
				b.WriteString(entry.Title)
			}
		}

		resp.Sources = append(resp.Sources, models.QuerySource{
			Kind:       "analysis",
			DocumentID: a.DocumentID,
			Title:      "Análisis estructural",
			Excerpt:    a.ShortSummary,
		})
	}

	resp.Answer = b.String()
	resp.Confidence = 1.0
	return resp
}

// routeNavigation resolves an explicit article locator, falling back from
// exact numbering to the nearest normalized number
func (r *Router) routeNavigation(ctx context.Context, query string, docIDs []uuid.UUID) models.RoutedResponse {
	resp := models.RoutedResponse{
		Sources:        []models.QuerySource{},
		StrategiesUsed: []string{models.StrategyDirectLookup},
	}

	locator, ok := ExtractLocator(query)
	if !ok {
		resp.Explanation = "no article locator found in query"
		return resp
	}

	article, err := r.articles.GetByNumberText(ctx, docIDs, locator)
	confidence := 1.0
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.Warn().Err(err).Str("locator", locator).Msg("direct lookup failed")
			resp.Explanation = "direct lookup failed"
			return resp
		}

		number, parsed := segmenter.ParseSectionNumber(locator)
		if !parsed {
			resp.Explanation = fmt.Sprintf("article %q not found", locator)
			return resp
		}
		article, err = r.articles.GetNearestNumber(ctx, docIDs, number)
		if err != nil {
			resp.Explanation = fmt.Sprintf("article %q not found", locator)
			return resp
		}
		if article.ArticleNumber != number {
			// fuzzy neighbor, not the requested article
			confidence = 0.6
			resp.Explanation = fmt.Sprintf("article %q not found, returning closest article %q", locator, article.ArticleNumberText)
		}
	}

	title := article.Title
	if title == "" {
		title = fmt.Sprintf("Artículo %s", article.ArticleNumberText)
	}

	resp.Answer = fmt.Sprintf("%s\n\n%s", title, article.Content)
	resp.Confidence = confidence
	resp.Sources = append(resp.Sources, models.QuerySource{
		Kind:       "article",
		DocumentID: article.DocumentID,
		Title:      title,
		Excerpt:    shorten(article.Content, shortSummaryLimit),
	})
	return resp
}

// routeContent embeds the query and searches chunks, re-ranked by the
// importance score computed at analysis time
func (r *Router) routeContent(ctx context.Context, query string, docIDs []uuid.UUID, strategy string) models.RoutedResponse {
	resp := models.RoutedResponse{
		Sources:        []models.QuerySource{},
		StrategiesUsed: []string{strategy},
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	if r.embedder == nil || r.chunks == nil {
		resp.Explanation = "semantic search not configured"
		return resp
	}

	vec, err := r.embedder.EmbedQuery(searchCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && r.metrics != nil {
			r.metrics.ProviderTimeoutsTotal.Inc()
		}
		r.log.Warn().Err(err).Msg("query embedding failed")
		resp.Explanation = "query embedding failed"
		return resp
	}

	chunks, err := r.chunks.SearchByScope(searchCtx, vec, docIDs, r.searchLimit)
	if err != nil {
		r.log.Warn().Err(err).Msg("semantic search failed")
		resp.Explanation = "semantic search failed"
		return resp
	}
	if len(chunks) == 0 {
		resp.Explanation = "no matching passages"
		return resp
	}

	// cosine distance to similarity, then blend in importance for ranking
	sort.SliceStable(chunks, func(i, j int) bool {
		return rankScore(chunks[i]) > rankScore(chunks[j])
	})

	bestSimilarity := 0.0
	var b strings.Builder
	for i, c := range chunks {
		similarity := 1 - c.Distance
		if similarity > bestSimilarity {
			bestSimilarity = similarity
		}

		if i < 3 {
			if i > 0 {
				b.WriteString("\n\n")
			}
			if c.SectionTitle != "" {
				fmt.Fprintf(&b, "%s: ", c.SectionTitle)
			}
			b.WriteString(strings.TrimSpace(c.Content))
		}

		resp.Sources = append(resp.Sources, models.QuerySource{
			Kind:       "chunk",
			DocumentID: c.DocumentID,
			Title:      c.SectionTitle,
			Excerpt:    shorten(c.Content, shortSummaryLimit),
			Similarity: similarity,
		})
	}

	resp.Answer = b.String()
	resp.Confidence = semanticConfidence(bestSimilarity, len(chunks))
	return resp
}

func rankScore(c models.DocumentChunk) float64 {
	return (1 - c.Distance) + 0.15*c.Importance
}

// semanticConfidence grows with the best similarity and the number of
// supporting passages, both monotonically
func semanticConfidence(bestSimilarity float64, sources int) float64 {
	if sources == 0 {
		return 0
	}
	countFactor := math.Min(1, float64(sources)/3)
	c := bestSimilarity*0.8 + 0.2*countFactor
	return math.Max(0, math.Min(1, c))
}

// routeHybrid runs metadata lookup and semantic search concurrently under a
// shared deadline. A branch that times out or fails contributes no results
// but does not fail the route.
func (r *Router) routeHybrid(ctx context.Context, query string, docIDs []uuid.UUID) models.RoutedResponse {
	hybridCtx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	var meta, semantic models.RoutedResponse

	// hybrid queries usually carry a locator too; resolve it on the
	// metadata branch alongside the aggregate lookup
	var direct models.RoutedResponse
	hasLocator := false
	if _, ok := ExtractLocator(query); ok {
		hasLocator = true
	}

	g, gctx := errgroup.WithContext(hybridCtx)
	g.Go(func() error {
		meta = r.routeMetadata(gctx, query, docIDs)
		if hasLocator {
			direct = r.routeNavigation(gctx, query, docIDs)
		}
		return nil
	})
	g.Go(func() error {
		semantic = r.routeContent(gctx, query, docIDs, models.StrategySemanticSearch)
		return nil
	})
	g.Wait()

	merged := models.RoutedResponse{
		Sources:        []models.QuerySource{},
		StrategiesUsed: []string{},
	}

	var parts []string
	branches := 0
	contributed := 0

	for _, branch := range []models.RoutedResponse{meta, direct, semantic} {
		if len(branch.StrategiesUsed) == 0 {
			continue
		}
		branches++
		merged.StrategiesUsed = append(merged.StrategiesUsed, branch.StrategiesUsed...)
		if len(branch.Sources) == 0 {
			continue
		}
		contributed++
		parts = append(parts, branch.Answer)
		merged.Sources = append(merged.Sources, branch.Sources...)
		if branch.Confidence > merged.Confidence {
			merged.Confidence = branch.Confidence
		}
	}

	merged.Answer = strings.Join(parts, "\n\n")

	// a failed or timed-out branch reduces confidence in the merged answer
	if contributed > 0 && contributed < branches {
		merged.Confidence *= 0.7
		merged.Explanation = "partial answer: one retrieval strategy returned no results"
	}

	return merged
}
