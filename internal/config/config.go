package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"homerank/internal/model"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Catalog    CatalogConfig
	Index      IndexConfig
	Search     SearchConfig
	Ranking    RankingConfig
	Embedding  EmbeddingConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // 完整的数据库连接字符串（优先使用）
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
	MaxUploadBytes int64
}

// CatalogConfig selects where the default catalog is read from.
type CatalogConfig struct {
	Source string // "file" or "postgres"
	Path   string // JSON or CSV file when Source is "file"
}

// IndexConfig selects the artifact store and vectorizer bounds.
type IndexConfig struct {
	Store       string // "file" or "postgres"
	Dir         string
	MaxFeatures int
	NGramMax    int
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultTopK   int
	MaxTopK       int
	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// RankingConfig holds ranking weights configuration. It can be overridden
// by the TOML file named in RANK_CONFIG_FILE.
type RankingConfig struct {
	Fusion  model.FusionWeights  `toml:"fusion"`
	Quality model.QualityWeights `toml:"quality"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider   string // "hash" or "openai"
	Dimensions int    // hash embedder only
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string // Model for report generation
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	EmbeddingModel      string // Model for embeddings
	EmbeddingDimensions int
	BatchSize           int
	RequestsPerSecond   float64
	Timeout             int
	Enabled             bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	defaultFusion := model.DefaultFusionWeights()
	defaultQuality := model.DefaultQualityWeights()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			// 优先使用完整的 DSN (DATABASE_URL, POSTGRESQL_URI, PG_DSN)
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "homerank"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
			MaxUploadBytes: int64(getEnvAsInt("SERVER_MAX_UPLOAD_MB", 32)) << 20,
		},
		Catalog: CatalogConfig{
			Source: strings.ToLower(getEnv("CATALOG_SOURCE", "file")),
			Path:   getEnv("CATALOG_PATH", "data/listings.json"),
		},
		Index: IndexConfig{
			Store:       strings.ToLower(getEnv("INDEX_STORE", "file")),
			Dir:         getEnv("INDEX_DIR", "data/index"),
			MaxFeatures: getEnvAsInt("INDEX_MAX_FEATURES", 20000),
			NGramMax:    getEnvAsInt("INDEX_NGRAM_MAX", 2),
		},
		Search: SearchConfig{
			DefaultTopK:   getEnvAsInt("SEARCH_DEFAULT_TOP_K", 10),
			MaxTopK:       getEnvAsInt("SEARCH_MAX_TOP_K", 100),
			SessionTTL:    getEnvAsDuration("SESSION_TTL", time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			MaxSessions:   getEnvAsInt("SESSION_MAX", 64),
		},
		Ranking: RankingConfig{
			Fusion: model.FusionWeights{
				Quality:           getEnvAsFloat("RANK_WEIGHT_QUALITY", defaultFusion.Quality),
				Lexical:           getEnvAsFloat("RANK_WEIGHT_LEXICAL", defaultFusion.Lexical),
				Semantic:          getEnvAsFloat("RANK_WEIGHT_SEMANTIC", defaultFusion.Semantic),
				PromotionBoostCap: getEnvAsFloat("RANK_PROMOTION_BOOST_CAP", defaultFusion.PromotionBoostCap),
			},
			Quality: model.QualityWeights{
				Price:       getEnvAsFloat("QUALITY_WEIGHT_PRICE", defaultQuality.Price),
				Area:        getEnvAsFloat("QUALITY_WEIGHT_AREA", defaultQuality.Area),
				Age:         getEnvAsFloat("QUALITY_WEIGHT_AGE", defaultQuality.Age),
				Subway:      getEnvAsFloat("QUALITY_WEIGHT_SUBWAY", defaultQuality.Subway),
				School:      getEnvAsFloat("QUALITY_WEIGHT_SCHOOL", defaultQuality.School),
				Floor:       getEnvAsFloat("QUALITY_WEIGHT_FLOOR", defaultQuality.Floor),
				Orientation: getEnvAsFloat("QUALITY_WEIGHT_ORIENTATION", defaultQuality.Orientation),
				Renovation:  getEnvAsFloat("QUALITY_WEIGHT_RENOVATION", defaultQuality.Renovation),
			},
		},
		Embedding: EmbeddingConfig{
			Provider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", "hash")),
			Dimensions: getEnvAsInt("EMBEDDING_HASH_DIMENSIONS", 256),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.3),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1200),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 512),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			RequestsPerSecond:   getEnvAsFloat("OPENAI_REQUESTS_PER_SECOND", 5),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	if path := getEnv("RANK_CONFIG_FILE", ""); path != "" {
		if err := cfg.Ranking.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overrides ranking weights from a TOML file. Tables or keys the
// file omits keep their current values.
func (r *RankingConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read ranking config: %w", err)
	}
	if err := toml.Unmarshal(data, r); err != nil {
		return fmt.Errorf("%w: ranking config %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks weights and limits. Scoring code relies on it having run.
func (c *Config) Validate() error {
	if err := c.Ranking.Quality.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Ranking.Fusion.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Search.DefaultTopK <= 0 || c.Search.MaxTopK <= 0 {
		return fmt.Errorf("%w: top_k limits must be positive", ErrInvalidConfig)
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("%w: default top_k %d exceeds max %d", ErrInvalidConfig, c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	if c.Search.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive, got %s", ErrInvalidConfig, c.Search.SessionTTL)
	}
	if c.Search.SweepInterval <= 0 {
		return fmt.Errorf("%w: SESSION_SWEEP_INTERVAL must be positive, got %s", ErrInvalidConfig, c.Search.SweepInterval)
	}
	switch c.Catalog.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("%w: unknown catalog source %q", ErrInvalidConfig, c.Catalog.Source)
	}
	switch c.Index.Store {
	case "file", "postgres":
	default:
		return fmt.Errorf("%w: unknown index store %q", ErrInvalidConfig, c.Index.Store)
	}
	switch c.Embedding.Provider {
	case "hash":
	case "openai":
		if !c.OpenAI.Enabled {
			return fmt.Errorf("%w: openai embeddings need OPENAI_API_KEY", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	// 优先使用完整的 DSN
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	// 否则从各个字段组装 DSN
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// UsesPostgres reports whether any component needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.Catalog.Source == "postgres" || c.Index.Store == "postgres"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("Invalid integer value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("Invalid float value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("Invalid duration value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}
