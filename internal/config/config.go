package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "cambiobot/core/config"
	coredatabase "cambiobot/core/database"
)

// RedisConfig selects the session backend. An empty Addr keeps sessions in
// process memory.
type RedisConfig struct {
	Addr       string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password   string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB         int    `yaml:"db" envconfig:"REDIS_DB"`
	TTLMinutes int    `yaml:"ttl_minutes" envconfig:"REDIS_TTL_MINUTES"`
}

// ExchangeConfig holds the rate feed and house payment accounts.
type ExchangeConfig struct {
	RateURL string `yaml:"rate_url" envconfig:"EXCHANGE_RATE_URL"`
	// PagoMovil is shown to buyers, Wallet to sellers.
	PagoMovil    string `yaml:"pagomovil" envconfig:"EXCHANGE_PAGOMOVIL"`
	Wallet       string `yaml:"wallet" envconfig:"EXCHANGE_WALLET"`
	WhatsApp     string `yaml:"whatsapp" envconfig:"EXCHANGE_WHATSAPP"`
	HistoryLimit int    `yaml:"history_limit" envconfig:"EXCHANGE_HISTORY_LIMIT"`
}

// ProofConfig configures the receipt OCR service and temp storage.
type ProofConfig struct {
	OCRURL      string `yaml:"ocr_url" envconfig:"PROOF_OCR_URL"`
	OCRAPIKey   string `yaml:"ocr_api_key" envconfig:"PROOF_OCR_API_KEY"`
	DownloadDir string `yaml:"download_dir" envconfig:"PROOF_DOWNLOAD_DIR"`
}

// BroadcastConfig tunes broadcast pacing.
type BroadcastConfig struct {
	DelayMS int `yaml:"delay_ms" envconfig:"BROADCAST_DELAY_MS"`
}

// AppConfig aggregates the shared bot core configuration with the
// exchange-specific sections.
type AppConfig struct {
	Core      coreconfig.Config   `yaml:",inline"`
	Database  coredatabase.Config `yaml:"database"`
	Redis     RedisConfig         `yaml:"redis"`
	Exchange  ExchangeConfig      `yaml:"exchange"`
	Proof     ProofConfig         `yaml:"proof"`
	Broadcast BroadcastConfig     `yaml:"broadcast"`
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.Exchange.RateURL) == "" {
		return fmt.Errorf("exchange.rate_url is required")
	}
	if cfg.Exchange.HistoryLimit <= 0 {
		cfg.Exchange.HistoryLimit = 10
	}
	if strings.TrimSpace(cfg.Proof.DownloadDir) == "" {
		cfg.Proof.DownloadDir = "downloads"
	}
	if cfg.Broadcast.DelayMS <= 0 {
		cfg.Broadcast.DelayMS = 100
	}
	if cfg.Redis.TTLMinutes < 0 {
		return fmt.Errorf("redis.ttl_minutes must be >= 0")
	}
	return nil
}
