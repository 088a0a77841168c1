package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/cache"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/graph"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/llm"
	"github.com/hyperjump/tansaku/internal/rag"
	"github.com/hyperjump/tansaku/internal/rerank"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
)

const graphConnectTimeout = 10 * time.Second

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.KeywordIndex
	Cache        *cache.Cache
	Graph        graph.Store
	Pipeline     *rag.Pipeline
	Indexer      *indexer.Indexer
	Status       server.Status

	vectorIndexPath string
	closers         []io.Closer
	logger          *zap.Logger
}

// SaveVectorIndex persists the in-memory vector index when a path is configured.
func (c *Components) SaveVectorIndex() {
	if c.vectorIndexPath == "" || c.VectorIndex == nil {
		return
	}
	if err := c.VectorIndex.Save(c.vectorIndexPath); err != nil {
		c.logger.Warn("vector index save failed", zap.String("path", c.vectorIndexPath), zap.Error(err))
	}
}

func (c *Components) Close() {
	if c.Graph != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Graph.Close(ctx)
		cancel()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{vectorIndexPath: cfg.Storage.VectorIndexPath, logger: logger}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	embedder, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		logger.Warn("embedding provider unavailable, falling back to mock embedder",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	c.Embedder = embedder

	vectorIndex, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = vectorIndex
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized", zap.Int("size", vectorIndex.Size()), zap.Int("dimensions", embedder.Dimensions()))

	var keywordSearcher search.KeywordSearcher
	if cfg.Search.KeywordEnabledOrDefault() {
		keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		c.KeywordIndex = keywordIndex
		keywordSearcher = keyword.NewClient(keywordIndex, keyword.WithLogger(logger))
	}

	cacheStore, err := cache.OpenStore(cache.StoreOptions{
		Backend:       cfg.Cache.Backend,
		BadgerPath:    cfg.Cache.BadgerPath,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.Cache = cache.New(cacheStore, cache.WithLogger(logger), cache.WithOpTimeout(cfg.Cache.OpTimeout))

	c.Graph = connectGraph(cfg.Graph, logger)
	resolver := graph.NewResolver(c.Graph, c.Cache,
		graph.WithCaps(cypher.Caps{
			Indicators:   cfg.Graph.Indicators,
			Observations: cfg.Graph.Observations,
			Trends:       cfg.Graph.Trends,
			Demographics: cfg.Graph.Demographics,
		}),
		graph.WithTimeout(cfg.Graph.Timeout),
		graph.WithCacheTTL(cfg.Cache.TTL),
		graph.WithLogger(logger),
	)

	client := newLLMClient(cfg.LLM, logger)

	reranker := newReranker(cfg.Rerank, client, logger, c)

	vectorClient := vector.NewClient(embedder, vectorIndex, store, logger)
	hybrid := search.NewHybridSearcher(
		vectorClient,
		keywordSearcher,
		reranker,
		c.Cache,
		search.Options{
			CandidateK:       cfg.Search.CandidateK,
			RRFK:             cfg.Search.RRFK,
			RerankCandidates: cfg.Rerank.Candidates,
			CacheTTL:         cfg.Cache.TTL,
		},
		logger,
	)

	deps := rag.Deps{
		Hybrid:   hybrid,
		Vector:   vectorClient,
		Graph:    c.Graph,
		Resolver: resolver,
		Logger:   logger,
	}
	if client != nil {
		deps.LLM = client
		deps.Generator = cypher.NewGenerator(client, logger)
	}
	pipeline, err := rag.NewPipeline(deps, rag.Options{TopK: cfg.Search.TopK, GraphTimeout: cfg.Graph.Timeout})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	c.Pipeline = pipeline

	c.Indexer = indexer.NewIndexer(store, embedder, vectorIndex, c.KeywordIndex,
		indexer.NewChunker(cfg.Search.ChunkSize, cfg.Search.ChunkOverlap),
		indexer.WithLogger(logger))

	c.Status = server.Status{
		RerankEnabled:  reranker.Enabled(),
		KeywordEnabled: keywordSearcher != nil,
		CacheBackend:   cfg.Cache.Backend,
	}
	return c, nil
}

// connectGraph dials the property graph. An unreachable graph leaves the
// service running with graph context disabled.
func connectGraph(cfg config.GraphConfig, logger *zap.Logger) graph.Store {
	ctx, cancel := context.WithTimeout(context.Background(), graphConnectTimeout)
	defer cancel()
	store, err := graph.NewNeo4jStore(ctx, graph.Neo4jOptions{
		URI:      cfg.URI,
		Username: cfg.Username,
		Password: cfg.Password,
		Database: cfg.Database,
	}, logger)
	if err != nil {
		logger.Warn("graph store unavailable, graph context disabled", zap.String("uri", cfg.URI), zap.Error(err))
		return graph.NewOfflineStore(err)
	}
	logger.Info("graph store connected", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return store
}

// newLLMClient returns nil when no provider is configured or usable.
func newLLMClient(cfg config.LLMConfig, logger *zap.Logger) llm.Client {
	if cfg.Provider == "none" {
		return nil
	}
	client, err := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		logger.Warn("llm unavailable, question answering disabled", zap.Error(err))
		return nil
	}
	if !cfg.Breaker.Enabled {
		return client
	}
	return llm.NewBreakerClient(client, llm.BreakerSettings{
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		TripRatio:   cfg.Breaker.TripRatio,
	}, logger)
}

// newReranker builds the cross-encoder. Any failure yields a pass-through
// reranker so search keeps working in fusion order.
func newReranker(cfg config.RerankConfig, client llm.Client, logger *zap.Logger, c *Components) *rerank.CrossEncoder {
	opts := []rerank.Option{
		rerank.WithTimeout(cfg.Timeout),
		rerank.WithMaxChars(cfg.MaxChars),
		rerank.WithLogger(logger),
	}
	if !cfg.Enabled {
		return rerank.NewCrossEncoder(nil, opts...)
	}
	var scorer rerank.Scorer
	switch cfg.Provider {
	case "llm":
		if client != nil {
			scorer = rerank.NewLLMScorer(client)
		} else {
			logger.Warn("llm reranker requested without an llm client, reranking disabled")
		}
	default:
		onnxScorer, err := rerank.NewONNXScorer(cfg.ModelPath, cfg.MaxTokens)
		if err != nil {
			logger.Warn("cross-encoder unavailable, reranking disabled", zap.String("model_path", cfg.ModelPath), zap.Error(err))
		} else {
			scorer = onnxScorer
			c.closers = append(c.closers, onnxScorer)
		}
	}
	return rerank.NewCrossEncoder(scorer, opts...)
}
