// Package config loads application configuration from file and environment
// and wires the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Serper      SerperConfig      `yaml:"serper" mapstructure:"serper"`
	Wikidata    WikidataConfig    `yaml:"wikidata" mapstructure:"wikidata"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	ScrapingBee ScrapingBeeConfig `yaml:"scrapingbee" mapstructure:"scrapingbee"`
	HubSpot     HubSpotConfig     `yaml:"hubspot" mapstructure:"hubspot"`
	Probe       ProbeConfig       `yaml:"probe" mapstructure:"probe"`
	Resolve     ResolveConfig     `yaml:"resolve" mapstructure:"resolve"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SerperConfig holds Serper.dev web search settings.
type SerperConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results"`
	RPS        float64 `yaml:"rps" mapstructure:"rps"`
}

// WikidataConfig holds Wikidata API settings.
type WikidataConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// ScrapingBeeConfig holds remote browser-rendering proxy settings.
type ScrapingBeeConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HubSpotConfig holds CRM settings for the freshness gateway.
type HubSpotConfig struct {
	Token    string  `yaml:"token" mapstructure:"token"`
	BaseURL  string  `yaml:"base_url" mapstructure:"base_url"`
	TTLHours int     `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
}

// ProbeConfig configures the liveness prober.
type ProbeConfig struct {
	TimeoutSecs         int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ExtendedTimeoutSecs int `yaml:"extended_timeout_secs" mapstructure:"extended_timeout_secs"`
}

// ResolveConfig configures the candidate resolver.
type ResolveConfig struct {
	MaxTLDProbes int `yaml:"max_tld_probes" mapstructure:"max_tld_probes"`
}

// BatchConfig configures concurrent batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// OutputConfig configures the ordered writer targets.
type OutputConfig struct {
	CSVPath   string `yaml:"csv_path" mapstructure:"csv_path"`
	JSONLPath string `yaml:"jsonl_path" mapstructure:"jsonl_path"`
}

// StoreConfig configures the local sqlite store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the progress/webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and ENRICHER_* environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENRICHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.max_results", 10)
	v.SetDefault("serper.rps", 5)
	v.SetDefault("wikidata.base_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scrapingbee.base_url", "https://app.scrapingbee.com/api/v1")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.ttl_hours", 720)
	v.SetDefault("hubspot.rps", 4)
	v.SetDefault("probe.timeout_secs", 10)
	v.SetDefault("probe.extended_timeout_secs", 25)
	v.SetDefault("resolve.max_tld_probes", 30)
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("output.csv_path", "enriched.csv")
	v.SetDefault("store.path", "enricher.db")

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
