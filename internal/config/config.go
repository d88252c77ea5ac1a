package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/voxcart/voxcart/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig         `yaml:"store" mapstructure:"store"`
	Session    SessionConfig       `yaml:"session" mapstructure:"session"`
	OpenAI     OpenAIConfig        `yaml:"openai" mapstructure:"openai"`
	Exa        ExaConfig           `yaml:"exa" mapstructure:"exa"`
	Rye        RyeConfig           `yaml:"rye" mapstructure:"rye"`
	CoinGecko  CoinGeckoConfig     `yaml:"coingecko" mapstructure:"coingecko"`
	ElevenLabs ElevenLabsConfig    `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Crypto     CryptoConfig        `yaml:"crypto" mapstructure:"crypto"`
	Pipeline   PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Buyer      model.BuyerIdentity `yaml:"buyer" mapstructure:"buyer"`
	Server     ServerConfig        `yaml:"server" mapstructure:"server"`
	Log        LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the order history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SessionConfig configures session state storage. When RedisURL is empty,
// sessions are kept in process memory.
type SessionConfig struct {
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLMins  int    `yaml:"ttl_mins" mapstructure:"ttl_mins"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ExaConfig holds Exa search API settings.
type ExaConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	NumResults int    `yaml:"num_results" mapstructure:"num_results"`
}

// RyeConfig holds Rye marketplace credentials. BasicAuth authorizes catalog
// reads; the JWT fields mint bearer credentials for cart mutations.
type RyeConfig struct {
	BasicAuth    string  `yaml:"basic_auth" mapstructure:"basic_auth"`
	Endpoint     string  `yaml:"endpoint" mapstructure:"endpoint"`
	ShopperIP    string  `yaml:"shopper_ip" mapstructure:"shopper_ip"`
	JWTIssuer    string  `yaml:"jwt_issuer" mapstructure:"jwt_issuer"`
	JWTAudience  string  `yaml:"jwt_audience" mapstructure:"jwt_audience"`
	JWTKeyPath   string  `yaml:"jwt_key_path" mapstructure:"jwt_key_path"`
	JWTTTLMins   int     `yaml:"jwt_ttl_mins" mapstructure:"jwt_ttl_mins"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// CoinGeckoConfig holds price oracle settings.
type CoinGeckoConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ElevenLabsConfig holds text-to-speech settings.
type ElevenLabsConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	VoiceID string `yaml:"voice_id" mapstructure:"voice_id"`
	ModelID string `yaml:"model_id" mapstructure:"model_id"`
}

// CryptoConfig configures crypto settlement.
type CryptoConfig struct {
	SettlementAddress string `yaml:"settlement_address" mapstructure:"settlement_address"`
	Asset             string `yaml:"asset" mapstructure:"asset"`
	QuoteCurrency     string `yaml:"quote_currency" mapstructure:"quote_currency"`
}

// PipelineConfig configures fulfillment pipeline behavior.
type PipelineConfig struct {
	MaxCandidates      int `yaml:"max_candidates" mapstructure:"max_candidates"`
	MinCandidates      int `yaml:"min_candidates" mapstructure:"min_candidates"`
	ResolveConcurrency int `yaml:"resolve_concurrency" mapstructure:"resolve_concurrency"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is usable for the given mode.
// Mode "pipeline" covers commands that run the fulfillment pipeline;
// "serve" additionally requires a valid listen port.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkPipeline := func() {
		if c.OpenAI.Key == "" {
			problems = append(problems, "openai.key is required")
		}
		if c.Exa.Key == "" {
			problems = append(problems, "exa.key is required")
		}
		if c.Rye.BasicAuth == "" {
			problems = append(problems, "rye.basic_auth is required")
		}
		if c.Pipeline.MinCandidates < 1 || c.Pipeline.MinCandidates > c.Pipeline.MaxCandidates {
			problems = append(problems, "pipeline.min_candidates must be between 1 and pipeline.max_candidates")
		}
		if c.Pipeline.ResolveConcurrency < 1 || c.Pipeline.ResolveConcurrency > 32 {
			problems = append(problems, "pipeline.resolve_concurrency must be between 1 and 32")
		}
	}

	switch mode {
	case "pipeline":
		checkPipeline()
	case "serve":
		checkPipeline()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VOXCART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "voxcart.db")
	v.SetDefault("session.ttl_mins", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.num_results", 5)
	v.SetDefault("rye.endpoint", "https://staging.graphql.api.rye.com/v1/query")
	v.SetDefault("rye.jwt_audience", "staging.graphql.api.rye.com")
	v.SetDefault("rye.jwt_ttl_mins", 60)
	v.SetDefault("rye.rate_limit_rps", 5)
	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("elevenlabs.voice_id", "29vD33N1CtxCmqQRPOHJ")
	v.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("crypto.settlement_address", "0x908f755A286690E6a07a90E5Ae1a0ab63A4e7dE4")
	v.SetDefault("crypto.asset", "ethereum")
	v.SetDefault("crypto.quote_currency", "usd")
	v.SetDefault("pipeline.max_candidates", 10)
	v.SetDefault("pipeline.min_candidates", 4)
	v.SetDefault("pipeline.resolve_concurrency", 4)
	v.SetDefault("buyer.first_name", "Jane")
	v.SetDefault("buyer.last_name", "Smith")
	v.SetDefault("buyer.email", "jane.smith@example.com")
	v.SetDefault("buyer.phone", "1234567890")
	v.SetDefault("buyer.address1", "123 Main St")
	v.SetDefault("buyer.city", "Seattle")
	v.SetDefault("buyer.province_code", "WA")
	v.SetDefault("buyer.country_code", "US")
	v.SetDefault("buyer.postal_code", "98101")

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
