package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SnapshotConfig returns a copy of config safe to print or persist: secrets
// are replaced with source metadata only.
func SnapshotConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	c := *cfg
	c.Figma.APIKey = redactSecret(cfg.Figma.APIKey, "FIGMA_API_KEY")
	c.Server.AuthToken = redactSecret(cfg.Server.AuthToken, "SERVER_AUTH_TOKEN")
	c.Server.TrustedProxies = append([]string(nil), cfg.Server.TrustedProxies...)
	return &c
}

func redactSecret(value, envName string) string {
	if value == "" {
		return ""
	}
	return "<redacted: " + envName + ">"
}

// MarshalSnapshot renders the redacted config as YAML.
func MarshalSnapshot(cfg *Config) ([]byte, error) {
	return yaml.Marshal(SnapshotConfig(cfg))
}

// WriteTemplate writes the commented TOML template to path. An existing file
// is left alone unless force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return os.ErrExist
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(DefaultTOML), 0o600)
}
