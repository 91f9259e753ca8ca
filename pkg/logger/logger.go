package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error disabled"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	Output     string `mapstructure:"output" validate:"required"` // "stdout", "stderr" or a file path
	TimeFormat string `mapstructure:"timeFormat" validate:"oneof=rfc3339 rfc3339nano unix unix_ms"`
	WithCaller bool   `mapstructure:"withCaller"`
}

// New builds the application logger. The TUI owns the terminal, so the
// default output is a file next to the library database.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	cfg.setDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("logger config validation error: %w", err)
	}

	zerolog.TimeFieldFormat = timeFieldFormat(cfg.TimeFormat)

	out, closer, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: closer != nil}
	}
	if closer == nil {
		closer = nopCloser{}
	}

	logger := zerolog.New(out).With().Timestamp().Str("app", "mangareader").Logger()
	if cfg.WithCaller {
		logger = logger.With().Caller().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		closer.Close()
		return zerolog.Nop(), nopCloser{}, err
	}
	return logger.Level(level), closer, nil
}

func (c *Config) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "rfc3339"
	}
}

func openOutput(target string) (io.Writer, io.Closer, error) {
	switch target {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, f, nil
}

func timeFieldFormat(name string) string {
	switch name {
	case "rfc3339nano":
		return "2006-01-02T15:04:05.999999999Z07:00"
	case "unix":
		return zerolog.TimeFormatUnix
	case "unix_ms":
		return zerolog.TimeFormatUnixMs
	default:
		return "2006-01-02T15:04:05Z07:00"
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
