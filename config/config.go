package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the daemon settings loaded from TOML.
type Config struct {
	ListenAddress  string
	DataDir        string
	Environment    string
	Pair           string
	OracleEndpoint string
	OracleAPIKey   string
	OracleSource   string
}

// Load reads and normalises the configuration file at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg.Normalise(), nil
}

// Normalise applies defaults and canonical casing to the configuration values.
func (c Config) Normalise() Config {
	cfg := Config{
		ListenAddress:  strings.TrimSpace(c.ListenAddress),
		DataDir:        strings.TrimSpace(c.DataDir),
		Environment:    strings.TrimSpace(c.Environment),
		Pair:           strings.ToUpper(strings.TrimSpace(c.Pair)),
		OracleEndpoint: strings.TrimSpace(c.OracleEndpoint),
		OracleAPIKey:   strings.TrimSpace(c.OracleAPIKey),
		OracleSource:   strings.ToLower(strings.TrimSpace(c.OracleSource)),
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8645"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./zendvod-data"
	}
	if cfg.Pair == "" {
		cfg.Pair = "USDC/NGN"
	}
	if cfg.OracleSource == "" {
		cfg.OracleSource = "oracle"
	}
	return cfg
}
