// Package config loads the server's TOML configuration file: the listen
// port, the maze template path, and the view depth handed to the player
// table.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration document.
type Config struct {
	Server ServerConfig `toml:"server"`
	Maze   MazeConfig   `toml:"maze"`
}

// ServerConfig controls the listening socket.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":1984" or "0.0.0.0:1984".
	Addr string `toml:"addr"`
	// Port is validated independently of Addr so a config with only a bare
	// port number still gets the [1024, 65535] range check at startup.
	Port int `toml:"port"`
}

// MazeConfig controls the grid the engine is built from.
type MazeConfig struct {
	TemplatePath string `toml:"template_path"`
	ViewDepth    int    `toml:"view_depth"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":1984",
			Port: 1984,
		},
		Maze: MazeConfig{
			TemplatePath: "maze.txt",
			ViewDepth:    10,
		},
	}
}

// Load reads the configuration from its default platform path, falling
// back to Default() if that path cannot be determined or does not exist.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads and merges a TOML document at path over the defaults. A
// missing file is not an error; it yields the defaults unchanged.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultPath returns the XDG-conventional path for the server's config
// file.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mazewar", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mazewar", "config.toml"), nil
}

// Validate enforces the startup-fatal constraints: the listen port must
// fall in [1024, 65535], a maze template path must be configured, and the
// view depth must be positive.
func (c *Config) Validate() error {
	if c.Server.Port < 1024 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range [1024, 65535]", c.Server.Port)
	}
	if c.Maze.TemplatePath == "" {
		return errors.New("config: maze.template_path is required")
	}
	if c.Maze.ViewDepth <= 0 {
		return fmt.Errorf("config: maze.view_depth must be positive, got %d", c.Maze.ViewDepth)
	}
	return nil
}
