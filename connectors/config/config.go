package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/config"
)

const (
	DefaultPath    = "./config.yml"
	DefaultAddr    = ":8080"
	DefaultBinary  = "steampipe"
	DefaultTimeout = 60 * time.Second
	DefaultOrigin  = "http://localhost:3000"
)

// Path returns CONFIG_PATH or the default location.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Default returns the configuration used when no file is present.
func Default() *config.Config {
	c := &config.Config{}
	applyDefaults(c)
	return c
}

// Load parses the YAML configuration file at path. A missing file yields the defaults.
func Load(path string) (*config.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("config.defaults", "path", path)
			return Default(), nil
		}
		return nil, err
	}
	var c config.Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Engine.Timeout < 0 {
		return nil, fmt.Errorf("parse %s: engine.timeout must not be negative", path)
	}
	applyDefaults(&c)
	slog.Info(fmt.Sprintf("Loaded config: %s", path))
	return &c, nil
}

func applyDefaults(c *config.Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{DefaultOrigin}
	}
	if c.Engine.Binary == "" {
		c.Engine.Binary = DefaultBinary
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = DefaultTimeout
	}
	if c.Discovery.Azure.TenantID == "" {
		c.Discovery.Azure.TenantID = os.Getenv("AZURE_TENANT_ID")
	}
}
