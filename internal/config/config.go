// Package config loads configuration from environment variables and .env files.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Backend identifiers for retriever selection.
const (
	BackendLocal  = "local"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the retrieval service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Auth (both optional; unset disables that scheme)
	APIKey    string `env:"API_KEY"`
	JWTSecret string `env:"JWT_SECRET"`

	// Backend selection: local (TF-IDF index on disk) or qdrant
	Backend   string `env:"RETRIEVER_BACKEND" envDefault:"local"`
	IndexPath string `env:"INDEX_PATH" envDefault:"data/index.json"`

	// Qdrant
	QdrantGRPCURL    string `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`
	QdrantUseTLS     bool   `env:"QDRANT_USE_TLS" envDefault:"false"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"documents"`
	QdrantRecreate   bool   `env:"QDRANT_RECREATE" envDefault:"false"`

	// Vector schema and index parameters
	VectorDim       int    `env:"VECTOR_DIM" envDefault:"768"`
	MetricType      string `env:"METRIC_TYPE" envDefault:"COSINE"`
	HNSWM           uint64 `env:"HNSW_M" envDefault:"32"`
	HNSWEfConstruct uint64 `env:"HNSW_EF_CONSTRUCT" envDefault:"200"`
	SearchEf        uint64 `env:"SEARCH_EF" envDefault:"128"`
	EmbeddingField  string `env:"EMBEDDING_FIELD" envDefault:"embedding"`

	// Local index
	MaxVocab int `env:"MAX_VOCAB" envDefault:"20000"`

	// Query defaults
	DefaultTopK  int     `env:"DEFAULT_TOP_K" envDefault:"5"`
	RerankWeight float64 `env:"RERANK_WEIGHT" envDefault:"0.1"`
	RerankScale  float64 `env:"RERANK_SCALE" envDefault:"1000"`

	// Corpus source (for server-side ingest from Postgres)
	DatabaseURL string `env:"DATABASE_URL"`
	CorpusTable string `env:"CORPUS_TABLE" envDefault:"documents"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.Backend != BackendLocal && cfg.Backend != BackendQdrant {
		return nil, fmt.Errorf("unknown RETRIEVER_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}
