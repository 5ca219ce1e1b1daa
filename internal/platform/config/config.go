// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string  `env:"APP_ENV" envDefault:"local"`
	PostgresDSN   string  `env:"POSTGRES_DSN,required"`
	BotToken      string  `env:"BOT_TOKEN,required"`
	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	TGAPIID       int     `env:"TG_API_ID,required"`
	TGAPIHash     string  `env:"TG_API_HASH,required"`
	TGPhone       string  `env:"TG_PHONE"`
	TG2FAPassword string  `env:"TG_2FA_PASSWORD"`
	TGSessionPath string  `env:"TG_SESSION_PATH" envDefault:"./tg.session"`

	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	RateLimitRPS int           `env:"RATE_LIMIT_RPS" envDefault:"1"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	ReaderFetchLimit   int           `env:"READER_FETCH_LIMIT" envDefault:"20"`
	ReaderPollInterval time.Duration `env:"READER_POLL_INTERVAL" envDefault:"15s"`
	WorkerBatchSize    int           `env:"WORKER_BATCH_SIZE" envDefault:"10"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"10s"`

	// Duplicate detection. Thresholds are inclusive: a similarity score
	// exactly at the threshold counts as a duplicate.
	LexicalThreshold  float64 `env:"LEXICAL_THRESHOLD" envDefault:"0.8"`
	SemanticThreshold float64 `env:"SEMANTIC_THRESHOLD" envDefault:"0.82"`
	DedupCorpusSize   int     `env:"DEDUP_CORPUS_SIZE" envDefault:"100"`

	// Advertisement filter. Empty lists fall back to package defaults.
	AdPhrases         []string `env:"AD_PHRASES" envSeparator:","`
	AdPromoTokenLimit int      `env:"AD_PROMO_TOKEN_LIMIT" envDefault:"3"`
	UrgentKeywords    []string `env:"URGENT_KEYWORDS" envSeparator:","`
	RephraseEnabled   bool     `env:"REPHRASE_ENABLED" envDefault:"true"`
	AdClassifyWithLLM bool     `env:"AD_CLASSIFY_WITH_LLM" envDefault:"true"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
