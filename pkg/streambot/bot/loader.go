package bot

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromFile reads and parses a YAML configuration file.
// .env files are loaded first (never overwriting existing env vars),
// ${VAR} references in the YAML are expanded, and empty credential fields
// are resolved from the environment and the OS keyring.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := ParseConfig([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// ParseConfig parses YAML bytes into a Config, overlaying defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// SaveConfigToFile writes a Config as YAML with restrictive permissions.
func SaveConfigToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// loadEnvFiles loads .env files from the working directory.
// godotenv.Load does NOT overwrite existing env vars.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// resolveSecrets fills empty credential fields from the environment, then
// the OS keyring. Plaintext config values are the last resort.
func resolveSecrets(cfg *Config) {
	resolve := func(current *string, envVar, keyringKey string) {
		if *current != "" {
			return
		}
		if v := os.Getenv(envVar); v != "" {
			*current = v
			return
		}
		if v := GetKeyring(keyringKey); v != "" {
			*current = v
		}
	}

	resolve(&cfg.Credentials.APIKey, "STREAMBOT_API_KEY", keyringAPIKey)
	resolve(&cfg.Credentials.APISecret, "STREAMBOT_API_SECRET", keyringAPISecret)
	resolve(&cfg.Credentials.AccessToken, "STREAMBOT_ACCESS_TOKEN", keyringAccessToken)
	resolve(&cfg.Credentials.AccessSecret, "STREAMBOT_ACCESS_SECRET", keyringAccessSecret)
}
