package internal

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

// LoadEnv reads .env from the working directory into the process
// environment. A missing file is fine; existing variables win.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// LoadConfig reads the config at configPath, or the default location when
// empty. Only an explicit path must exist.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}
