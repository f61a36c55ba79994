package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Redis        RedisConfig        `mapstructure:"redis"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Insights     InsightsConfig     `mapstructure:"insights"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Retrieval    RetrievalConfig    `mapstructure:"retrieval"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	MaxUploadMB       int64         `mapstructure:"max_upload_mb"`
}

// StorageConfig describes the on-disk layout of dataset snapshots, reports,
// model artifacts and the insight cache.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

func (c StorageConfig) SnapshotsDir() string    { return filepath.Join(c.DataDir, "datasets") }
func (c StorageConfig) ReportsDir() string      { return filepath.Join(c.DataDir, "reports") }
func (c StorageConfig) ModelsDir() string       { return filepath.Join(c.DataDir, "models") }
func (c StorageConfig) InsightCacheDir() string { return filepath.Join(c.DataDir, "ai_cache") }

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	DefaultProvider string       `mapstructure:"default_provider"`
	FallbackModel   string       `mapstructure:"fallback_model"`
	Ollama          OllamaConfig `mapstructure:"ollama"`
	Gemini          GeminiConfig `mapstructure:"gemini"`
}

type OllamaConfig struct {
	Host string `mapstructure:"host"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type InsightsConfig struct {
	ChunkThreshold int `mapstructure:"chunk_threshold"`
	MaxTokens      int `mapstructure:"max_tokens"`
}

// OrchestratorConfig carries the decision thresholds. DataQualityScore is
// an injected constant for now; deriving it from the EDA quality profile
// remains an open design question.
type OrchestratorConfig struct {
	EDAQualityThreshold       float64 `mapstructure:"eda_quality_threshold"`
	ModelPerformanceThreshold float64 `mapstructure:"model_performance_threshold"`
	DataQualityScore          float64 `mapstructure:"data_quality_score"`
}

type RetrievalConfig struct {
	IndexFile  string `mapstructure:"index_file"`
	DocsDir    string `mapstructure:"docs_dir"`
	ChunkSize  int    `mapstructure:"chunk_size"`
	Overlap    int    `mapstructure:"overlap"`
	EmbedModel string `mapstructure:"embed_model"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	File    string `mapstructure:"file"`
	MaxDays int    `mapstructure:"max_days"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "10m")
	v.SetDefault("server.max_upload_mb", 100)

	// Storage
	v.SetDefault("storage.data_dir", "./data")

	// Catalog
	v.SetDefault("catalog.path", "./data/catalog.db")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// LLM
	v.SetDefault("llm.default_provider", "ollama")
	v.SetDefault("llm.fallback_model", "mistral")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")

	// Insights
	v.SetDefault("insights.chunk_threshold", 1500)
	v.SetDefault("insights.max_tokens", 512)

	// Orchestrator
	v.SetDefault("orchestrator.eda_quality_threshold", 0.8)
	v.SetDefault("orchestrator.model_performance_threshold", 0.75)
	v.SetDefault("orchestrator.data_quality_score", 0.85)

	// Retrieval
	v.SetDefault("retrieval.index_file", "./data/rag/index.json")
	v.SetDefault("retrieval.docs_dir", "./data/rag/documents")
	v.SetDefault("retrieval.chunk_size", 500)
	v.SetDefault("retrieval.overlap", 100)
	v.SetDefault("retrieval.embed_model", "nomic-embed-text")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_days", 7)
}

func bindEnvVars(v *viper.Viper) {
	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")

	// Storage
	v.BindEnv("storage.data_dir", "DATA_DIR")
}
