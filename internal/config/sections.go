package config

import (
	"fmt"
	"strings"
	"time"
)

type ServerConfig struct {
	Port           int   `koanf:"port"`
	MaxHeaderBytes int   `koanf:"maxHeaderBytes"`
	MaxBodyBytes   int64 `koanf:"maxBodyBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *ServerConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Server ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.maxBodyBytes: %d\n", c.MaxBodyBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.Timeout.ReadHeader))
	return b.String()
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid HTTP server max body size: %d", c.MaxBodyBytes)
	}
	if c.Timeout.Read <= 0 {
		return fmt.Errorf("invalid HTTP server read timeout: %v", c.Timeout.Read)
	}
	if c.Timeout.Write <= 0 {
		return fmt.Errorf("invalid HTTP server write timeout: %v", c.Timeout.Write)
	}
	if c.Timeout.Idle <= 0 {
		return fmt.Errorf("invalid HTTP server idle timeout: %v", c.Timeout.Idle)
	}
	if c.Timeout.ReadHeader <= 0 {
		return fmt.Errorf("invalid HTTP server read header timeout: %v", c.Timeout.ReadHeader)
	}
	return nil
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	b.WriteString(fmt.Sprintf("  format: %s\n", c.Format))
	if c.File != "" {
		b.WriteString(fmt.Sprintf("  file: %s\n", c.File))
	}
	return b.String()
}

func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Format)
	}
	return nil
}

type AuthConfig struct {
	APIKey string `koanf:"apiKey"`
}

// String never prints the key itself.
func (c *AuthConfig) String() string {
	state := "****"
	if c.APIKey == DefaultAPIKey {
		state = "<default>"
	}
	return fmt.Sprintf("\n--- Auth ---\n  apiKey: %s\n", state)
}

func (c *AuthConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("auth api key is not configured")
	}
	return nil
}

type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- PProf ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  address: %s\n", c.Addr))
	return b.String()
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	return nil
}

type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

func (c *MetricsConfig) String() string {
	return fmt.Sprintf("\n--- Metrics ---\n  enabled: %t\n  path: %s\n", c.Enabled, c.Path)
}

func (c *MetricsConfig) Validate() error {
	if c.Enabled && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Path)
	}
	return nil
}

type RateLimitConfig struct {
	Enabled   bool          `koanf:"enabled"`
	PerSecond float64       `koanf:"perSecond"`
	Burst     int           `koanf:"burst"`
	TTL       time.Duration `koanf:"ttl"`
}

func (c *RateLimitConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Rate limit ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  perSecond: %g\n", c.PerSecond))
	b.WriteString(fmt.Sprintf("  burst: %d\n", c.Burst))
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	return b.String()
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.PerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %g requests per second", c.PerSecond)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("invalid rate limit burst: %d", c.Burst)
	}
	if c.TTL < time.Second {
		return fmt.Errorf("invalid rate limit ttl: %v, must be at least 1s", c.TTL)
	}
	return nil
}
