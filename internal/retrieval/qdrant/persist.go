package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the connection configuration to path so offline tooling and the
// server can share one collection. Vector data stays in the service.
func (s *Store) Save(path string) error {
	return writeConfig(path, s.cfg)
}

// Load reads a saved configuration and reconnects.
func Load(ctx context.Context, path string) (*Store, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg)
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
