package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadConfig resolves the application configuration: a .env file first
// when one exists, then environment variables on top. An empty path
// means ".env" in the working directory; a missing file is not an
// error, only a malformed one is.
func LoadConfig(envPath string) (AppConfig, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if _, err := os.Stat(envPath); err == nil {
		// godotenv.Load never overrides variables already set in the
		// environment, so real env vars win over the file.
		if err := godotenv.Load(envPath); err != nil {
			return AppConfig{}, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, err
	}
	return envCfg.Normalize().ToAppConfig(), nil
}
