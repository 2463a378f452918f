package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the loaded file. The TLS pair mirrors
// the deployment contract: when both are present the server terminates TLS
// itself.
const (
	EnvAddr    = "SOLOCENDENCE_ADDR"
	EnvTLSCert = "SOLOCENDENCE_TLS_CERT"
	EnvTLSKey  = "SOLOCENDENCE_TLS_KEY"
	EnvDBPath  = "SOLOCENDENCE_DB"
)

// Load loads the server configuration.
// Search order: customPath -> ~/.solocendence/server.yaml -> ./configs/server.yaml
// -> embedded default. Environment variables override the result.
func Load(customPath string) (Config, error) {
	cfg := Default()

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		applyEnv(&cfg)
		return cfg, nil
	}

	if userPath := userConfigPath("server.yaml"); userPath != "" {
		if data, err := os.ReadFile(userPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err == nil {
				applyEnv(&cfg)
				return cfg, nil
			}
		}
	}

	if data, err := os.ReadFile("configs/server.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			applyEnv(&cfg)
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(defaultServerYAML, &cfg); err != nil {
		cfg = Default()
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvTLSCert); v != "" {
		cfg.Server.TLSCert = v
	}
	if v := os.Getenv(EnvTLSKey); v != "" {
		cfg.Server.TLSKey = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Storage.DBPath = v
	}
}

// userConfigPath returns the path to a config file in the user's
// ~/.solocendence directory, or "" if the home directory is unknown.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".solocendence", filename)
}
