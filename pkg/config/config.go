package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kerbaras/mangareader/pkg/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Library   LibraryConfig  `mapstructure:"library"`
	Source    SourceConfig   `mapstructure:"source"`
	Downloads DownloadConfig `mapstructure:"downloads"`
	Reader    ReaderConfig   `mapstructure:"reader"`
	Logger    logger.Config  `mapstructure:"log"`
}

type LibraryConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type SourceConfig struct {
	BaseURL     string `mapstructure:"baseURL" validate:"required,url"`
	CoverURL    string `mapstructure:"coverURL" validate:"required,url"`
	Language    string `mapstructure:"language" validate:"required"`
	DataSaver   bool   `mapstructure:"dataSaver"`
	RateLimitMS int    `mapstructure:"rateLimitMS" validate:"gte=0"`
}

type DownloadConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=1,lte=10"`
}

type ReaderConfig struct {
	Prefetch  int     `mapstructure:"prefetch" validate:"gte=0,lte=10"`
	CacheSize int     `mapstructure:"cacheSize" validate:"gte=1"`
	Grayscale bool    `mapstructure:"grayscale"`
	Contrast  float64 `mapstructure:"contrast" validate:"gt=0"`
}

// Load reads the optional config file at path, applies MANGAS_ environment
// overrides (MANGAS_READER_PREFETCH, ...) and validates the result. An empty
// path looks for config.yaml in the home directory.
func Load(path string) (*Config, error) {
	home := defaultHome()

	v := viper.New()
	setDefaults(v, home)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("MANGAS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("library.path", filepath.Join(home, "mangas.db"))
	v.SetDefault("source.baseURL", "https://api.mangadex.org")
	v.SetDefault("source.coverURL", "https://uploads.mangadex.org")
	v.SetDefault("source.language", "en")
	v.SetDefault("source.dataSaver", false)
	v.SetDefault("source.rateLimitMS", 500)
	v.SetDefault("downloads.dir", filepath.Join(home, "downloads"))
	v.SetDefault("downloads.concurrency", 3)
	v.SetDefault("reader.prefetch", 1)
	v.SetDefault("reader.cacheSize", 8)
	v.SetDefault("reader.grayscale", false)
	v.SetDefault("reader.contrast", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", filepath.Join(home, "mangareader.log"))
	v.SetDefault("log.timeFormat", "rfc3339")
}

func defaultHome() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".mangas"
	}
	return filepath.Join(homeDir, ".mangas")
}
