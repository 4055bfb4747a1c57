// Package config loads rover bridge settings from defaults, an optional YAML
// file and ROVER_ prefixed environment variables.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/viant/afs"
	"github.com/viant/rover/device"
	"github.com/viant/rover/internal/logging"
	"github.com/viant/rover/server"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ROVER_"

// Config represents the bridge configuration.
type Config struct {
	Serial Serial         `yaml:"serial" envPrefix:"SERIAL_"`
	HTTP   HTTP           `yaml:"http" envPrefix:"HTTP_"`
	Log    logging.Config `yaml:"log" envPrefix:"LOG_"`
}

// Serial defines the device link settings.
type Serial struct {
	Port        string        `yaml:"port" env:"PORT"`
	BaudRate    int           `yaml:"baudRate" env:"BAUD_RATE"`
	OpenTimeout time.Duration `yaml:"openTimeout" env:"OPEN_TIMEOUT"`
}

// HTTP defines the client facing server settings.
type HTTP struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	AssetsURL string `yaml:"assetsURL" env:"ASSETS_URL"`
	// AllowOrigins lists browser origins permitted for /ws and the JSON-RPC
	// endpoints; empty means loopback origins for the listen port.
	AllowOrigins []string `yaml:"allowOrigins" env:"ALLOW_ORIGINS" envSeparator:","`
	// AllowHeaders replaces the default CORS allowed request headers.
	AllowHeaders     []string      `yaml:"allowHeaders" env:"ALLOW_HEADERS" envSeparator:","`
	AllowCredentials bool          `yaml:"allowCredentials" env:"ALLOW_CREDENTIALS"`
	MaxAge           time.Duration `yaml:"maxAge" env:"MAX_AGE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Serial: Serial{
			Port:        device.DefaultPort,
			BaudRate:    device.DefaultBaudRate,
			OpenTimeout: device.DefaultOpenTimeout,
		},
		HTTP: HTTP{
			Addr:      server.DefaultAddr,
			AssetsURL: "frontend",
		},
		Log: logging.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML document at URL
// (any afs URL, skipped when empty), then environment overrides.
func Load(ctx context.Context, URL string) (*Config, error) {
	cfg := Default()
	if URL != "" {
		fs := afs.New()
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial port was empty")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %v", c.Serial.BaudRate)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http addr was empty")
	}
	return nil
}

// AssetsLocation returns the assets URL, turning a plain path into an
// absolute file:// URL.
func (c *Config) AssetsLocation() string {
	URL := c.HTTP.AssetsURL
	if URL == "" || strings.Contains(URL, "://") {
		return URL
	}
	if abs, err := filepath.Abs(URL); err == nil {
		URL = abs
	}
	return "file://" + filepath.ToSlash(URL)
}

// Cors returns the CORS policy of the HTTP endpoints.
func (c *Config) Cors() *server.Cors {
	ret := &server.Cors{AllowOrigins: c.HTTP.AllowOrigins, AllowHeaders: c.HTTP.AllowHeaders}
	if len(ret.AllowOrigins) == 0 {
		ret.AllowOrigins = server.LocalCors(c.ListenPort()).AllowOrigins
	}
	if c.HTTP.AllowCredentials {
		ret.AllowCredentials = &c.HTTP.AllowCredentials
	}
	if c.HTTP.MaxAge > 0 {
		seconds := int64(c.HTTP.MaxAge / time.Second)
		ret.MaxAge = &seconds
	}
	return ret
}

// ListenPort returns the port part of the HTTP address.
func (c *Config) ListenPort() string {
	index := strings.LastIndex(c.HTTP.Addr, ":")
	if index == -1 {
		return ""
	}
	return c.HTTP.Addr[index+1:]
}
