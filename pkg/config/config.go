package config

import internalconfig "github.com/SmitUplenchwar2687/Rewind/internal/config"

// Config is the top-level rewind configuration.
type Config = internalconfig.Config

// ServerConfig holds HTTP server settings.
type ServerConfig = internalconfig.ServerConfig

// FetchConfig bounds remote recording downloads.
type FetchConfig = internalconfig.FetchConfig

// ExtractConfig selects splitting and decoding behavior.
type ExtractConfig = internalconfig.ExtractConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// Load layers defaults, an optional file and REWIND_* environment variables.
func Load(path string) (*Config, error) {
	return internalconfig.Load(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
