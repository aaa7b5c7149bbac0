package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ClientConfig configures swapctl.
type ClientConfig struct {
	APIURL   string // SKILLSWAP_API_URL
	Home     string // SKILLSWAP_HOME, holds the credential and provider session
	LogLevel string
}

// LoadClient reads the client settings. Home defaults to ~/.skillswap.
func LoadClient() (*ClientConfig, error) {
	home := getEnv("SKILLSWAP_HOME", "")
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		home = filepath.Join(dir, ".skillswap")
	}
	return &ClientConfig{
		APIURL:   strings.TrimRight(getEnv("SKILLSWAP_API_URL", "http://localhost:8080"), "/"),
		Home:     home,
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "warn")),
	}, nil
}
