package config

import "time"

// Config represents the structure of config.yml used by the tool.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Engine Engine `yaml:"engine"`
	// Queries overrides built-in query text, keyed "<provider>.<domain>".
	Queries   map[string]string `yaml:"queries"`
	Discovery struct {
		Azure AzureDiscovery `yaml:"azure"`
		GCP   GCPDiscovery   `yaml:"gcp"`
	} `yaml:"discovery"`
}

type Engine struct {
	Binary           string        `yaml:"binary"`
	Timeout          time.Duration `yaml:"timeout"`
	SearchPathPrefix string        `yaml:"search_path_prefix"`
	InstallDir       string        `yaml:"install_dir"`
}

type AzureDiscovery struct {
	// TenantID falls back to AZURE_TENANT_ID.
	TenantID string `yaml:"tenant_id"`
	// Exclude lists subscription ids that never get a connection.
	Exclude []string `yaml:"exclude"`
}

type GCPDiscovery struct {
	// Exclude lists project ids that never get a connection.
	Exclude []string `yaml:"exclude"`
}
