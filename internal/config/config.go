package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	GURS     GURSConfig     `yaml:"gurs" mapstructure:"gurs"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Enrich   PipelineConfig `yaml:"enrich" mapstructure:"enrich"`
	Geometry PipelineConfig `yaml:"geometry" mapstructure:"geometry"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CatalogConfig locates the authoritative cadastral-municipality register.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DatasetConfig locates the offers dataset file.
type DatasetConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FeedConfig configures the bulletin-board listing source.
type FeedConfig struct {
	RSSURL      string `yaml:"rss_url" mapstructure:"rss_url"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// GURSConfig configures the geodetic-administration WFS endpoint.
type GURSConfig struct {
	WFSURL      string `yaml:"wfs_url" mapstructure:"wfs_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OCRConfig configures document text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// PipelineConfig tunes one incremental pipeline: pool size and the minimum
// spacing between external calls.
type PipelineConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`
	MinIntervalMS int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// MinInterval returns the configured inter-request spacing as a Duration.
func (p PipelineConfig) MinInterval() time.Duration {
	return time.Duration(p.MinIntervalMS) * time.Millisecond
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
	v.SetEnvPrefix("LANDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/landsync.db")
	v.SetDefault("catalog.path", "data/ko_register.json")
	v.SetDefault("dataset.path", "data/offers.json")
	v.SetDefault("feed.rss_url", "https://e-uprava.gov.si/rss/?generatorName=oglasnaDeska&siteRoot=%2Fsi%2Fe-uprava%2Foglasnadeska")
	v.SetDefault("feed.base_url", "https://e-uprava.gov.si")
	v.SetDefault("feed.user_agent", "landsync/1.0")
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("gurs.wfs_url", "https://storitve.eprostor.gov.si/wfs-zk-pub/ows")
	v.SetDefault("gurs.timeout_secs", 30)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("enrich.workers", 2)
	v.SetDefault("enrich.min_interval_ms", 2000)
	v.SetDefault("geometry.workers", 2)
	v.SetDefault("geometry.min_interval_ms", 500)
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
