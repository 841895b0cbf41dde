package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.Server.Addr, ":1984")
	assert.Equal(t, cfg.Server.Port, 1984)
	assert.Equal(t, cfg.Maze.TemplatePath, "maze.txt")
	assert.Equal(t, cfg.Maze.ViewDepth, 10)
	assert.NilError(t, cfg.Validate())
}

func TestLoadMissing(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	assert.NilError(t, err)
	assert.DeepEqual(t, cfg, Default())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(`[server]
addr = "0.0.0.0:2000"
port = 2000

[maze]
template_path = "/etc/mazewar/maze.txt"
view_depth = 6
`), 0o600)
	assert.NilError(t, err)

	cfg, err := LoadFrom(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Server.Addr, "0.0.0.0:2000")
	assert.Equal(t, cfg.Server.Port, 2000)
	assert.Equal(t, cfg.Maze.TemplatePath, "/etc/mazewar/maze.txt")
	assert.Equal(t, cfg.Maze.ViewDepth, 6)
}

func TestLoadInvalidToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(`not valid toml {{`), 0o600)
	assert.NilError(t, err)

	_, err = LoadFrom(path)
	assert.Assert(t, err != nil)
}

func TestValidateRejectsPortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 80
	assert.ErrorContains(t, cfg.Validate(), "out of range")
}

func TestValidateRejectsMissingTemplatePath(t *testing.T) {
	cfg := Default()
	cfg.Maze.TemplatePath = ""
	assert.ErrorContains(t, cfg.Validate(), "template_path")
}

func TestValidateRejectsNonPositiveViewDepth(t *testing.T) {
	cfg := Default()
	cfg.Maze.ViewDepth = 0
	assert.ErrorContains(t, cfg.Validate(), "view_depth")
}
