// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Ranker, Fusion, Embedding, Redis, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Ranker     RankerConfig     `yaml:"ranker"`
	Fusion     FusionConfig     `yaml:"fusion"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxResults      int           `yaml:"maxResults"`
	// RateLimit is requests per minute per client; 0 disables limiting.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// CorpusConfig locates the medicine dataset and names its columns.
type CorpusConfig struct {
	Path              string `yaml:"path"`
	TextColumn        string `yaml:"textColumn"`
	UsesColumn        string `yaml:"usesColumn"`
	NameColumn        string `yaml:"nameColumn"`
	CompositionColumn string `yaml:"compositionColumn"`
	SideEffectsColumn string `yaml:"sideEffectsColumn"`
	DescriptionColumn string `yaml:"descriptionColumn"`
	// Tokenizer is "standard" (stopwords + stemming) or "whitespace" for
	// text that was preprocessed upstream.
	Tokenizer string `yaml:"tokenizer"`
}

// RankerConfig holds the BM25 constants.
type RankerConfig struct {
	K1   float64 `yaml:"k1"`
	B    float64 `yaml:"b"`
	TopK int     `yaml:"topK"`
}

// FusionConfig controls when and how the semantic channel is used.
type FusionConfig struct {
	Mode              string        `yaml:"mode"`
	Alpha             float64       `yaml:"alpha"`
	MinScoreThreshold float64       `yaml:"minScoreThreshold"`
	FuzzyCutoff       float64       `yaml:"fuzzyCutoff"`
	CandidatePool     int           `yaml:"candidatePool"`
	SemanticTopK      int           `yaml:"semanticTopK"`
	SemanticTimeout   time.Duration `yaml:"semanticTimeout"`
	BreakerThreshold  int           `yaml:"breakerThreshold"`
	BreakerReset      time.Duration `yaml:"breakerReset"`
}

// EmbeddingConfig selects the embedding model and vector store.
type EmbeddingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Provider is "tfidf" (in-process) or "http" (Ollama-compatible API).
	Provider  string        `yaml:"provider"`
	URL       string        `yaml:"url"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batchSize"`
	CacheSize int           `yaml:"cacheSize"`
	// Store is "flat" (exact cosine) or "hnsw".
	Store      string `yaml:"store"`
	HNSWM      int    `yaml:"hnswM"`
	HNSWEfSize int    `yaml:"hnswEfSearch"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	QueryLogsTopic string   `yaml:"queryLogsTopic"`
}

// AnalyticsConfig controls search logging.
type AnalyticsConfig struct {
	QueryLogPath string `yaml:"queryLogPath"`
	BufferSize   int    `yaml:"bufferSize"`
}

// EvaluationConfig controls the offline evaluator.
type EvaluationConfig struct {
	K          int    `yaml:"k"`
	Workers    int    `yaml:"workers"`
	OutputPath string `yaml:"outputPath"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Port, when non-zero, serves /metrics on a dedicated listener instead
	// of the search server.
	Port int `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxResults:      100,
		},
		Corpus: CorpusConfig{
			Path:              "dataset/processed_documents.csv",
			TextColumn:        "processed_document",
			UsesColumn:        "Uses",
			NameColumn:        "Medicine Name",
			CompositionColumn: "Composition",
			SideEffectsColumn: "Side_effects",
			DescriptionColumn: "description",
			Tokenizer:         "standard",
		},
		Ranker: RankerConfig{
			K1:   1.5,
			B:    0.75,
			TopK: 10,
		},
		Fusion: FusionConfig{
			Mode:              "fallback",
			Alpha:             0.6,
			MinScoreThreshold: 0.1,
			FuzzyCutoff:       0.8,
			CandidatePool:     50,
			SemanticTopK:      5,
			SemanticTimeout:   2 * time.Second,
			BreakerThreshold:  5,
			BreakerReset:      30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Enabled:    true,
			Provider:   "tfidf",
			URL:        "http://localhost:11434",
			Model:      "all-minilm",
			Timeout:    30 * time.Second,
			BatchSize:  32,
			CacheSize:  1000,
			Store:      "flat",
			HNSWM:      16,
			HNSWEfSize: 64,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "medsearch",
			User:            "medsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			QueryLogsTopic: "search-logs",
		},
		Analytics: AnalyticsConfig{
			QueryLogPath: "search_logs.jsonl",
			BufferSize:   10000,
		},
		Evaluation: EvaluationConfig{
			K:          10,
			Workers:    4,
			OutputPath: "evaluation_results.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects parameter values the ranking core cannot work with.
func (c *Config) Validate() error {
	if c.Ranker.K1 < 0 {
		return fmt.Errorf("ranker.k1 must be >= 0, got %v", c.Ranker.K1)
	}
	if c.Ranker.B < 0 || c.Ranker.B > 1 {
		return fmt.Errorf("ranker.b must be in [0,1], got %v", c.Ranker.B)
	}
	if c.Ranker.TopK <= 0 {
		return fmt.Errorf("ranker.topK must be positive, got %d", c.Ranker.TopK)
	}
	if c.Fusion.Alpha < 0 || c.Fusion.Alpha > 1 {
		return fmt.Errorf("fusion.alpha must be in [0,1], got %v", c.Fusion.Alpha)
	}
	if c.Fusion.FuzzyCutoff <= 0 || c.Fusion.FuzzyCutoff > 1 {
		return fmt.Errorf("fusion.fuzzyCutoff must be in (0,1], got %v", c.Fusion.FuzzyCutoff)
	}
	switch c.Fusion.Mode {
	case "fallback", "hybrid":
	default:
		return fmt.Errorf("fusion.mode must be fallback or hybrid, got %q", c.Fusion.Mode)
	}
	if c.Evaluation.K <= 0 {
		return fmt.Errorf("evaluation.k must be positive, got %d", c.Evaluation.K)
	}
	return nil
}

// applyEnvOverrides reads MS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MS_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("MS_RANKER_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranker.K1 = f
		}
	}
	if v := os.Getenv("MS_RANKER_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranker.B = f
		}
	}
	if v := os.Getenv("MS_FUSION_MODE"); v != "" {
		cfg.Fusion.Mode = v
	}
	if v := os.Getenv("MS_FUSION_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Fusion.Alpha = f
		}
	}
	if v := os.Getenv("MS_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("MS_EMBEDDING_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("MS_EMBEDDING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Embedding.Enabled = enabled
		}
	}
	if v := os.Getenv("MS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("MS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("MS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
