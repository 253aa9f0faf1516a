package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the root of the TOML configuration file.
type Config struct {
	Environment    string    `toml:"Environment"`
	DataDir        string    `toml:"DataDir"`
	LogLevel       string    `toml:"LogLevel"`
	MetricsAddress string    `toml:"MetricsAddress"`
	Treasury       string    `toml:"Treasury"`
	Pauses         Pauses    `toml:"Pauses"`
	Rates          Rates     `toml:"Rates"`
	Reserves       []Reserve `toml:"Reserve"`
	EModes         []EMode   `toml:"EMode"`
}

// Load reads the configuration from the given path, creating a commented
// default file when none exists. The loaded configuration is validated before
// being returned.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./corelend-data"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Rates == (Rates{}) {
		cfg.Rates = Rates{BaseBps: 200, Slope1Bps: 1_500, Slope2Bps: 6_000, KinkBps: 8_000}
	}
}

// createDefault writes and returns a minimal default configuration.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Environment:    "local",
		DataDir:        "./corelend-data",
		LogLevel:       "info",
		MetricsAddress: ":9464",
	}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
