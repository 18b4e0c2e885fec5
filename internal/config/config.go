package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultAPIKey is the credential used when none is configured. It is not a secret.
const DefaultAPIKey = "default-secret-key"

const (
	envPrefix      = "catalog_"
	defaultEnvFile = ".env"
	configFile     = "config.yaml"
)

// legacyEnv maps the unprefixed variables older deployments set to their config keys.
var legacyEnv = map[string]string{
	"API_KEY": "auth.apiKey",
	"PORT":    "server.port",
}

type Config struct {
	HTTPServer ServerConfig    `koanf:"server"`
	Log        LogConfig       `koanf:"log"`
	Auth       AuthConfig      `koanf:"auth"`
	PProf      PProfConfig     `koanf:"pprof"`
	Shutdown   ShutdownConfig  `koanf:"shutdown"`
	Metrics    MetricsConfig   `koanf:"metrics"`
	RateLimit  RateLimitConfig `koanf:"ratelimit"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":               3000,
		"server.maxHeaderBytes":     1 << 20,
		"server.maxBodyBytes":       100 << 10,
		"server.timeout.read":       "10s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readHeader": "5s",
		"log.level":                 "info",
		"log.format":                "json",
		"log.file":                  "",
		"auth.apiKey":               DefaultAPIKey,
		"pprof.enabled":             false,
		"pprof.addr":                "localhost:6060",
		"shutdown.timeout":          "10s",
		"metrics.enabled":           true,
		"metrics.path":              "/metrics",
		"ratelimit.enabled":         true,
		"ratelimit.perSecond":       5,
		"ratelimit.burst":           20,
		"ratelimit.ttl":             "5m",
	}
}

// Load reads the configuration from config.yaml, .env and environment variables in the working directory.
func Load() (*Config, error) {
	return LoadFiles(configFile, defaultEnvFile)
}

// LoadFiles reads the configuration in increasing priority: built-in defaults, the yaml file,
// the dotenv file, legacy unprefixed variables and finally CATALOG_ prefixed variables.
// Missing files are skipped.
func LoadFiles(yamlFile, envFile string) (*Config, error) {
	// Create a new Koanf instance
	var k = koanf.New(".")

	// 0. Built-in defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}
	keyTransformer := newKeyTransformer(k.Keys())

	// 1. Load configuration from yaml file
	if err := k.Load(file.Provider(yamlFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config: %v", err)
		}
	}

	// 2. Load environment variables from .env file
	if envFileMap, err := godotenv.Read(envFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if legacyKey, ok := legacyEnv[key]; ok {
				envMap[legacyKey] = value
				continue
			}
			if !strings.HasPrefix(strings.ToLower(key), envPrefix) {
				continue
			}
			envMap[keyTransformer(key)] = value
		}
		// Load the envMap into Koanf
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Legacy variables from the system
	legacy := make(map[string]any)
	for name, key := range legacyEnv {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			legacy[key] = value
		}
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		log.Printf("WARN: error loading legacy env vars: %v", err)
	}

	// 4. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(strings.ToUpper(envPrefix), ".", keyTransformer), nil); err != nil {
		log.Printf("WARN: error loading env vars: %v", err)
	}

	var cfg Config
	// 5. Unmarshal the configuration into the Config struct
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 6. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// newKeyTransformer transforms environment variable keys to config keys.
// CATALOG_SERVER_TIMEOUT_READHEADER becomes server.timeout.readHeader: the lower-cased
// path is mapped back onto the camelCase spelling of a known key when there is one.
func newKeyTransformer(known []string) func(string) string {
	canonical := make(map[string]string, len(known))
	for _, key := range known {
		canonical[strings.ToLower(key)] = key
	}
	return func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, envPrefix)
		key = strings.ReplaceAll(key, "_", ".")
		if c, ok := canonical[key]; ok {
			return c
		}
		return key
	}
}

// UsesDefaultAPIKey reports whether the shared secret was left at its well-known default.
func (c *Config) UsesDefaultAPIKey() bool {
	return c.Auth.APIKey == DefaultAPIKey
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.Auth.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Metrics.String())
	b.WriteString(c.RateLimit.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.HTTPServer,
		&c.Log,
		&c.Auth,
		&c.PProf,
		&c.Shutdown,
		&c.Metrics,
		&c.RateLimit,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
