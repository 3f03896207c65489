package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"lexquery-backend/cache"
	"lexquery-backend/chunker"
	"lexquery-backend/embedding"
	"lexquery-backend/metrics"
	"lexquery-backend/models"
	"lexquery-backend/repository"
	"lexquery-backend/segmenter"
	"lexquery-backend/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Analyzer orchestrates document analysis: load text, segment, chunk,
// extract articles, compute statistics, then swap the persisted results in
// one transaction so readers never observe a partial analysis.
type Analyzer struct {
	db           *pgxpool.Pool
	documentRepo *repository.DocumentRepository
	sectionRepo  *repository.SectionRepository
	chunkRepo    *repository.ChunkRepository
	articleRepo  *repository.ArticleRepository
	analysisRepo *repository.AnalysisRepository
	store        storage.DocumentStore
	provider     embedding.Provider
	resultCache  *cache.ResultCache
	summarizer   Summarizer
	metrics      *metrics.Metrics
	log          zerolog.Logger
	chunkOpts    chunker.Options
	embedTimeout time.Duration
	guard        *inflightGuard
}

// AnalyzerOption is a functional option for Analyzer
type AnalyzerOption func(*Analyzer)

// AnalyzerWithDatabase sets the database pool
func AnalyzerWithDatabase(db *pgxpool.Pool) AnalyzerOption {
	return func(a *Analyzer) {
		a.db = db
	}
}

// AnalyzerWithDocumentRepository sets the document repository
func AnalyzerWithDocumentRepository(repo *repository.DocumentRepository) AnalyzerOption {
	return func(a *Analyzer) {
		a.documentRepo = repo
	}
}

// AnalyzerWithSectionRepository sets the section repository
func AnalyzerWithSectionRepository(repo *repository.SectionRepository) AnalyzerOption {
	return func(a *Analyzer) {
		a.sectionRepo = repo
	}
}

// AnalyzerWithChunkRepository sets the chunk repository
func AnalyzerWithChunkRepository(repo *repository.ChunkRepository) AnalyzerOption {
	return func(a *Analyzer) {
		a.chunkRepo = repo
	}
}

// AnalyzerWithArticleRepository sets the article repository
func AnalyzerWithArticleRepository(repo *repository.ArticleRepository) AnalyzerOption {
	return func(a *Analyzer) {
		a.articleRepo = repo
	}
}

// AnalyzerWithAnalysisRepository sets the analysis repository
func AnalyzerWithAnalysisRepository(repo *repository.AnalysisRepository) AnalyzerOption {
	return func(a *Analyzer) {
		a.analysisRepo = repo
	}
}

// AnalyzerWithDocumentStore sets the document store
func AnalyzerWithDocumentStore(store storage.DocumentStore) AnalyzerOption {
	return func(a *Analyzer) {
		a.store = store
	}
}

// AnalyzerWithEmbeddingProvider sets the embedding provider
func AnalyzerWithEmbeddingProvider(provider embedding.Provider) AnalyzerOption {
	return func(a *Analyzer) {
		a.provider = provider
	}
}

// AnalyzerWithResultCache sets the result cache invalidated on re-analysis
func AnalyzerWithResultCache(c *cache.ResultCache) AnalyzerOption {
	return func(a *Analyzer) {
		a.resultCache = c
	}
}

// AnalyzerWithSummarizer sets the summary generator
func AnalyzerWithSummarizer(s Summarizer) AnalyzerOption {
	return func(a *Analyzer) {
		a.summarizer = s
	}
}

// AnalyzerWithMetrics sets the metrics collectors
func AnalyzerWithMetrics(m *metrics.Metrics) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// AnalyzerWithLogger sets the logger
func AnalyzerWithLogger(log zerolog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.log = log
	}
}

// AnalyzerWithChunkOptions overrides the chunk builder options
func AnalyzerWithChunkOptions(opts chunker.Options) AnalyzerOption {
	return func(a *Analyzer) {
		a.chunkOpts = opts
	}
}

// AnalyzerWithEmbedTimeout bounds each single embedding call
func AnalyzerWithEmbedTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) {
		a.embedTimeout = d
	}
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		log:          zerolog.Nop(),
		chunkOpts:    chunker.DefaultOptions(),
		embedTimeout: 30 * time.Second,
		guard:        newInflightGuard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeRequest identifies the document to analyze
type AnalyzeRequest struct {
	DocumentID uuid.UUID
}

// AnalyzeResult summarizes what one analysis run produced
type AnalyzeResult struct {
	ArticlesExtracted int `json:"articlesExtracted"`
	SectionsExtracted int `json:"sectionsExtracted"`
	ChaptersExtracted int `json:"chaptersExtracted"`
	ChunksBuilt       int `json:"chunksBuilt"`
	AnalysisVersion   int `json:"analysisVersion"`
}

// Analyze runs the full analysis pipeline for one document. A re-analysis
// fully supersedes the previous one: sections, chunks and articles are
// replaced under a single transaction and the analysis version is bumped.
// At most one analysis per document runs at a time.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if !a.guard.tryAcquire(req.DocumentID) {
		return nil, ErrAnalysisInProgress
	}
	defer a.guard.release(req.DocumentID)

	start := time.Now()
	result, err := a.analyze(ctx, req.DocumentID)
	if a.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		a.metrics.ObserveAnalysis(status, time.Since(start))
	}
	return result, err
}

func (a *Analyzer) analyze(ctx context.Context, documentID uuid.UUID) (*AnalyzeResult, error) {
	doc, err := a.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	text, err := a.store.GetDocument(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load document content: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		if statusErr := a.documentRepo.UpdateStatus(ctx, doc.ID, models.DocumentStatusFailed); statusErr != nil {
			a.log.Error().Err(statusErr).Stringer("document_id", doc.ID).Msg("failed to mark document as failed")
		}
		return nil, ErrMalformedDocument
	}

	if err := a.documentRepo.UpdateStatus(ctx, doc.ID, models.DocumentStatusAnalyzing); err != nil {
		return nil, fmt.Errorf("failed to mark document as analyzing: %w", err)
	}

	tree := segmenter.Segment(text)
	if tree.Degraded() {
		a.log.Warn().Stringer("document_id", doc.ID).Msg("no structural markers found, degrading to flat chunks")
	}

	chunks := chunker.Build(tree, doc.ID, a.chunkOpts)
	articles := extractArticles(tree, doc.ID)
	version := doc.AnalysisVersion + 1

	analysis := buildAnalysis(tree, doc.ID, version)
	analysis.Summary, analysis.ShortSummary = a.summarize(ctx, doc.Title, tree, analysis)

	// Embedding happens outside the transaction; a failed embedding leaves
	// the chunk stored without a vector rather than failing the analysis.
	a.embedChunks(ctx, chunks)

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sectionRepo := a.sectionRepo.WithTx(tx)
	chunkRepo := a.chunkRepo.WithTx(tx)
	articleRepo := a.articleRepo.WithTx(tx)

	if err := chunkRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete previous chunks: %w", err)
	}
	if err := articleRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete previous articles: %w", err)
	}
	if err := sectionRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete previous sections: %w", err)
	}

	if err := sectionRepo.InsertMany(ctx, sectionRows(tree, doc.ID)); err != nil {
		return nil, fmt.Errorf("failed to insert sections: %w", err)
	}
	if err := chunkRepo.InsertMany(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to insert chunks: %w", err)
	}
	if err := articleRepo.InsertMany(ctx, articles); err != nil {
		return nil, fmt.Errorf("failed to insert articles: %w", err)
	}
	if err := a.analysisRepo.WithTx(tx).Upsert(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to upsert analysis: %w", err)
	}
	if err := a.documentRepo.WithTx(tx).MarkAnalyzed(ctx, doc.ID, version, contentHash(text)); err != nil {
		return nil, fmt.Errorf("failed to mark document analyzed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit analysis: %w", err)
	}

	a.invalidateScopes(doc)

	a.log.Info().
		Stringer("document_id", doc.ID).
		Int("sections", len(tree.Sections)).
		Int("chunks", len(chunks)).
		Int("articles", len(articles)).
		Int("version", version).
		Msg("document analyzed")

	return &AnalyzeResult{
		ArticlesExtracted: len(articles),
		SectionsExtracted: len(tree.Sections),
		ChaptersExtracted: analysis.TotalChapters,
		ChunksBuilt:       len(chunks),
		AnalysisVersion:   version,
	}, nil
}

func (a *Analyzer) embedChunks(ctx context.Context, chunks []models.DocumentChunk) {
	if a.provider == nil {
		return
	}

	failed := 0
	for i := range chunks {
		embedCtx, cancel := context.WithTimeout(ctx, a.embedTimeout)
		vec, err := a.provider.EmbedDocument(embedCtx, chunks[i].Content)
		cancel()

		if err != nil {
			failed++
			if errors.Is(err, context.DeadlineExceeded) && a.metrics != nil {
				a.metrics.ProviderTimeoutsTotal.Inc()
			}
			a.log.Warn().Err(err).Stringer("chunk_id", chunks[i].ID).Msg("failed to embed chunk")
			continue
		}
		chunks[i].Embedding = vec
	}

	if failed > 0 {
		a.log.Warn().Int("failed", failed).Int("total", len(chunks)).Msg("some chunks stored without embeddings")
	}
}

func (a *Analyzer) summarize(ctx context.Context, title string, tree *segmenter.Tree, analysis *models.DocumentAnalysis) (string, string) {
	summary, short := extractiveSummary(tree)

	if a.summarizer != nil {
		prompt := summaryPrompt(title, analysis, summary)
		generated, err := a.summarizer.Summarize(ctx, prompt)
		if err != nil {
			a.log.Warn().Err(err).Msg("summary generation failed, keeping extractive summary")
		} else {
			summary = generated
			short = shorten(generated, shortSummaryLimit)
		}
	}

	return summary, short
}

// invalidateScopes drops cached answers computed against the superseded
// analysis, both for the document itself and for its case grouping
func (a *Analyzer) invalidateScopes(doc *models.Document) {
	if a.resultCache == nil {
		return
	}

	dropped := a.resultCache.InvalidateScope(doc.ID.String())
	if doc.CaseID != nil {
		dropped += a.resultCache.InvalidateScope(doc.CaseID.String())
	}
	if dropped > 0 {
		a.log.Debug().Int("entries", dropped).Stringer("document_id", doc.ID).Msg("invalidated cached answers")
	}
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
