package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Discovery holds the engine tuning knobs. All fields have working defaults;
// none are required for a basic call.
type Discovery struct {
	FinalK         int     `yaml:"final_k,omitempty"`
	MinScore       float64 `yaml:"min_score,omitempty"`
	RawKMultiplier int     `yaml:"raw_k_multiplier,omitempty"`
}

// Config is the in-memory representation of ~/.fwassist/config.yaml.
type Config struct {
	DBPath    string    `yaml:"db_path"`
	CachePath string    `yaml:"cache_path"`
	ChatModel string    `yaml:"chat_model,omitempty"`
	Discovery Discovery `yaml:"discovery,omitempty"`
}

// AppDir returns the absolute path to ~/.fwassist/.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".fwassist"), nil
}

// ConfigPath returns the absolute path to ~/.fwassist/config.yaml.
func ConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the default Config written on first fwassist init.
func DefaultConfig() (*Config, error) {
	dir, err := AppDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		DBPath:    filepath.Join(dir, "frameworks.db"),
		CachePath: filepath.Join(dir, "embeddings.json"),
		ChatModel: "gpt-4o-mini",
		Discovery: Discovery{
			FinalK:         5,
			MinScore:       0.6,
			RawKMultiplier: 4,
		},
	}, nil
}

// Load reads and parses ~/.fwassist/config.yaml.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	cfg.DBPath, err = ExpandPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cfg.CachePath, err = ExpandPath(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save marshals cfg and writes it to ~/.fwassist/config.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def, err := DefaultConfig()
	if err != nil {
		return
	}
	if cfg.DBPath == "" {
		cfg.DBPath = def.DBPath
	}
	if cfg.CachePath == "" {
		cfg.CachePath = def.CachePath
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.Discovery.FinalK <= 0 {
		cfg.Discovery.FinalK = def.Discovery.FinalK
	}
	if cfg.Discovery.MinScore == 0 {
		cfg.Discovery.MinScore = def.Discovery.MinScore
	}
	if cfg.Discovery.RawKMultiplier <= 0 {
		cfg.Discovery.RawKMultiplier = def.Discovery.RawKMultiplier
	}
}
