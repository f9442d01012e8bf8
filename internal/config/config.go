package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Deepgram   DeepgramConfig   `yaml:"deepgram" mapstructure:"deepgram"`
	Melissa    MelissaConfig    `yaml:"melissa" mapstructure:"melissa"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Audio      AudioConfig      `yaml:"audio" mapstructure:"audio"`
	S3         S3Config         `yaml:"s3" mapstructure:"s3"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Sentry     SentryConfig     `yaml:"sentry" mapstructure:"sentry"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DeepgramConfig holds Deepgram transcription settings.
type DeepgramConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MelissaConfig holds Melissa Personator settings. An empty key disables
// the identity lookup.
type MelissaConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ExtractionConfig selects the LLM backend.
type ExtractionConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Extraction providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models per provider.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"
)

// ModelOrDefault returns the configured model, or the provider default.
func (e ExtractionConfig) ModelOrDefault() string {
	if e.Model != "" {
		return e.Model
	}
	if e.Provider == ProviderAnthropic {
		return DefaultAnthropicModel
	}
	return DefaultOpenAIModel
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// PipelineConfig configures a single validation run.
type PipelineConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CircuitConfig configures the per-service circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// StoreConfig configures the audit store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Store drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// AudioConfig configures recording loaders.
type AudioConfig struct {
	MaxMB           int     `yaml:"max_mb" mapstructure:"max_mb"`
	HTTPTimeoutSecs int     `yaml:"http_timeout_secs" mapstructure:"http_timeout_secs"`
	HTTPRateLimit   float64 `yaml:"http_rate_limit" mapstructure:"http_rate_limit"`
	FTPTimeoutSecs  int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
}

// S3Config holds S3-compatible object storage credentials. An empty
// endpoint disables s3:// references.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// NotionConfig holds the review queue settings.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID   string  `yaml:"client_id" mapstructure:"client_id"`
	Username   string  `yaml:"username" mapstructure:"username"`
	KeyPath    string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL   string  `yaml:"login_url" mapstructure:"login_url"`
	LeadSource string  `yaml:"lead_source" mapstructure:"lead_source"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port"`
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	JWTSecret    string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTLMins int      `yaml:"token_ttl_mins" mapstructure:"token_ttl_mins"`
	MaxUploadMB  int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RefSchemes   []string `yaml:"ref_schemes" mapstructure:"ref_schemes"`
	RefRoot      string   `yaml:"ref_root" mapstructure:"ref_root"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SentryConfig configures error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	DeepgramPerMin   float64                 `yaml:"deepgram_per_min" mapstructure:"deepgram_per_min"`
	MelissaPerLookup float64                 `yaml:"melissa_per_lookup" mapstructure:"melissa_per_lookup"`
	LLM              map[string]ModelPricing `yaml:"llm" mapstructure:"llm"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("deepgram.base_url", "https://api.deepgram.com")
	v.SetDefault("deepgram.model", "nova-2")
	v.SetDefault("deepgram.timeout_secs", 300)
	v.SetDefault("melissa.base_url", "https://personator.melissadata.net")
	v.SetDefault("melissa.rate_limit", 5)
	v.SetDefault("extraction.provider", ProviderOpenAI)
	v.SetDefault("extraction.max_tokens", 2048)
	v.SetDefault("pipeline.timeout_secs", 600)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("audio.max_mb", 200)
	v.SetDefault("audio.http_timeout_secs", 60)
	v.SetDefault("audio.http_rate_limit", 2)
	v.SetDefault("audio.ftp_timeout_secs", 30)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.lead_source", "Call Center")
	v.SetDefault("salesforce.rate_limit", 5.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.token_ttl_mins", 60)
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.ref_schemes", []string{"s3"})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("pricing.deepgram_per_min", 0.0043)
	v.SetDefault("pricing.melissa_per_lookup", 0.015)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes.
const (
	ModeValidate = "validate"
	ModeServe    = "serve"
	ModeToken    = "token"
	ModeStore    = "store"
)

// Validate checks that the settings needed by mode are present. Optional
// integrations are only checked when partially configured.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, key string) {
		if !ok {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case ModeValidate, ModeServe:
		require(c.Deepgram.Key != "", "deepgram.key")
		switch c.Extraction.Provider {
		case ProviderOpenAI:
			require(c.OpenAI.Key != "", "openai.key")
		case ProviderAnthropic:
			require(c.Anthropic.Key != "", "anthropic.key")
		default:
			errs = append(errs, "extraction.provider must be openai or anthropic")
		}
		if c.Extraction.MaxTokens <= 0 {
			errs = append(errs, "extraction.max_tokens must be > 0")
		}
		if c.Notion.Token != "" {
			require(c.Notion.ReviewDB != "", "notion.review_db")
		}
		if c.Salesforce.Username != "" {
			require(c.Salesforce.ClientID != "", "salesforce.client_id")
			require(c.Salesforce.KeyPath != "", "salesforce.key_path")
		}
		if mode == ModeServe {
			require(c.Server.JWTSecret != "", "server.jwt_secret")
			if c.Server.Port <= 0 {
				errs = append(errs, "server.port must be > 0")
			}
			for _, s := range c.Server.RefSchemes {
				switch s {
				case "s3", "http", "https", "ftp":
				case "file":
					require(c.Server.RefRoot != "", "server.ref_root (ref_schemes includes file)")
				default:
					errs = append(errs, fmt.Sprintf("server.ref_schemes: unknown scheme %q", s))
				}
			}
		}
	case ModeToken:
		require(c.Server.JWTSecret != "", "server.jwt_secret")
	case ModeStore:
		if c.Store.Driver == DriverNone {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case DriverNone, DriverSQLite:
	case DriverPostgres:
		require(c.Store.DatabaseURL != "", "store.database_url")
	default:
		errs = append(errs, "store.driver must be none, sqlite or postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid %s config: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
