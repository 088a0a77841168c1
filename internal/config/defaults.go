package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tansaku/data/db/passages.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/tansaku/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/tansaku/data/indices/vectors.bin"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/tansaku/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 10
	}
	if cfg.Search.CandidateK == 0 {
		cfg.Search.CandidateK = 50
	}
	if cfg.Search.RRFK == 0 {
		cfg.Search.RRFK = 60
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = 512
	}
	if cfg.Search.ChunkOverlap == 0 {
		cfg.Search.ChunkOverlap = 50
	}

	if cfg.Rerank.Provider == "" {
		cfg.Rerank.Provider = "onnx"
	}
	if cfg.Rerank.MaxTokens == 0 {
		cfg.Rerank.MaxTokens = 512
	}
	if cfg.Rerank.Candidates == 0 {
		cfg.Rerank.Candidates = 15
	}
	if cfg.Rerank.MaxChars == 0 {
		cfg.Rerank.MaxChars = 512
	}
	if cfg.Rerank.Timeout == 0 {
		cfg.Rerank.Timeout = 15 * time.Second
	}

	if cfg.Graph.URI == "" {
		cfg.Graph.URI = "neo4j://localhost:7687"
	}
	if cfg.Graph.Username == "" {
		cfg.Graph.Username = "neo4j"
	}
	if cfg.Graph.Database == "" {
		cfg.Graph.Database = "neo4j"
	}
	if cfg.Graph.Timeout == 0 {
		cfg.Graph.Timeout = 10 * time.Second
	}
	if cfg.Graph.Indicators == 0 && cfg.Graph.Observations == 0 && cfg.Graph.Trends == 0 && cfg.Graph.Demographics == 0 {
		cfg.Graph.Indicators, cfg.Graph.Observations, cfg.Graph.Trends, cfg.Graph.Demographics = 3, 3, 2, 2
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 7 * 24 * time.Hour
	}
	if cfg.Cache.OpTimeout == 0 {
		cfg.Cache.OpTimeout = 2 * time.Second
	}
	if cfg.Cache.Backend == "badger" && cfg.Cache.BadgerPath == "" {
		cfg.Cache.BadgerPath = "/usr/local/var/tansaku/data/cache"
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.Breaker.MaxRequests == 0 {
		cfg.LLM.Breaker.MaxRequests = 1
	}
	if cfg.LLM.Breaker.Interval == 0 {
		cfg.LLM.Breaker.Interval = time.Minute
	}
	if cfg.LLM.Breaker.Timeout == 0 {
		cfg.LLM.Breaker.Timeout = 30 * time.Second
	}
	if cfg.LLM.Breaker.TripRatio == 0 {
		cfg.LLM.Breaker.TripRatio = 0.6
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}
