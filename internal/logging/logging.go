// Package logging builds the process zap logger from configuration.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines logger settings.
type Config struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: console or json
	Format string `yaml:"format" env:"FORMAT"`
	// Outputs: stdout, stderr or file paths
	Outputs     []string `yaml:"outputs" env:"OUTPUTS" envSeparator:","`
	Development bool     `yaml:"development" env:"DEVELOPMENT"`
	Rotation    Rotation `yaml:"rotation" envPrefix:"ROTATION_"`
}

// Rotation controls lumberjack rotation for file outputs.
type Rotation struct {
	Enable     bool `yaml:"enable" env:"ENABLE"`
	MaxSizeMB  int  `yaml:"maxSizeMB" env:"MAX_SIZE_MB"`
	MaxBackups int  `yaml:"maxBackups" env:"MAX_BACKUPS"`
	MaxAgeDays int  `yaml:"maxAgeDays" env:"MAX_AGE_DAYS"`
	Compress   bool `yaml:"compress" env:"COMPRESS"`
}

// DefaultConfig logs info and above to stdout in console format.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "console",
		Outputs: []string{"stdout"},
		Rotation: Rotation{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ParseLevel maps a level name to a zap level; unknown names map to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New builds a logger, installs it as the zap global logger and redirects the
// standard library log package to it. Callers should defer logger.Sync().
func New(c Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(c.Level))
	encCfg := encoderConfig(c.Development)
	var encoder zapcore.Encoder
	if strings.EqualFold(c.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	var cores []zapcore.Core
	for _, out := range outputs {
		ws, err := writeSyncer(out, c.Rotation)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, ws, level))
	}
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
	if c.Development {
		opts = append(opts, zap.Development())
	}
	logger := zap.New(zapcore.NewTee(cores...), opts...)
	zap.ReplaceGlobals(logger)
	if _, err := zap.RedirectStdLogAt(logger, zap.InfoLevel); err != nil {
		return nil, fmt.Errorf("redirect std log: %w", err)
	}
	return logger, nil
}

func writeSyncer(out string, rotation Rotation) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(out) {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %v: %w", dir, err)
		}
	}
	if rotation.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   out,
			MaxSize:    max(rotation.MaxSizeMB, 10),
			MaxBackups: max(rotation.MaxBackups, 1),
			MaxAge:     max(rotation.MaxAgeDays, 7),
			Compress:   rotation.Compress,
		}), nil
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %v: %w", out, err)
	}
	return zapcore.AddSync(f), nil
}

func encoderConfig(dev bool) zapcore.EncoderConfig {
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// Named returns logger when set, otherwise the named global logger.
func Named(logger *zap.Logger, name string) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.L().Named(name)
}
