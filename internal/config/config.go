package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output  Output  `yaml:"output"`
	Ingest  Ingest  `yaml:"ingest"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Output struct {
	DataDir string `yaml:"data_dir" env:"STARWATCH_DATA_DIR"`
}

type Ingest struct {
	Workers     int    `yaml:"workers" env:"STARWATCH_INGEST_WORKERS"`
	IncomingDir string `yaml:"incoming_dir" env:"STARWATCH_INCOMING_DIR"`
}

type Server struct {
	Port int `yaml:"port" env:"STARWATCH_PORT"`
}

type Logging struct {
	Level  string `yaml:"level" env:"STARWATCH_LOG_LEVEL"`
	Format string `yaml:"format" env:"STARWATCH_LOG_FORMAT"`
}

// ConfigDir returns the XDG config directory for starwatch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "starwatch")
}

// DataDir returns the XDG data directory for starwatch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "starwatch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/starwatch/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'starwatch init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies STARWATCH_*
// environment overrides. A local .env file is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults and env overrides.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Ingest:  Ingest{Workers: 4},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 4
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetIncomingDir returns the directory watched for fetcher batch files.
func (c *Config) GetIncomingDir() string {
	if c.Ingest.IncomingDir != "" {
		return c.Ingest.IncomingDir
	}
	return filepath.Join(c.GetDataDir(), "incoming")
}

// BriefingsDir returns the directory briefing artifacts are written to.
func (c *Config) BriefingsDir() string {
	return filepath.Join(c.GetDataDir(), "briefings")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
