// Command mazewar-server runs the MazeWar game server: it loads a maze
// template from disk, binds the listening socket, and serves connections
// until a shutdown signal drains every client session.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"code.mazewar.dev/mazewar"
	"code.mazewar.dev/mazewar/internal/config"
	"code.mazewar.dev/mazewar/internal/engine"
	"code.mazewar.dev/mazewar/internal/supervisor"
)

var cli struct {
	Version kong.VersionFlag `help:"Print version and exit." short:"v"`
	Config  string           `help:"Path to a TOML config file." type:"path"`
	Addr    string           `help:"Listen address, overrides the config file." default:""`
	Maze    string           `help:"Path to the maze template file, overrides the config file." type:"path"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("mazewar-server"),
		kong.Description("Text-mode, 3D-perspective maze combat game server."),
		kong.Vars{"version": mazewar.Version()},
	)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
		if port, err := addrPort(cli.Addr); err == nil {
			cfg.Server.Port = port
		}
	}
	if cli.Maze != "" {
		cfg.Maze.TemplatePath = cli.Maze
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	template, err := loadTemplate(cfg.Maze.TemplatePath)
	if err != nil {
		return fmt.Errorf("load maze template: %w", err)
	}

	eng, err := engine.New(template, cfg.Maze.ViewDepth)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	sup := supervisor.New(eng, logger)
	return sup.ListenAndServe(cfg.Server.Addr)
}

func loadConfig() (*config.Config, error) {
	if cli.Config != "" {
		return config.LoadFrom(cli.Config)
	}
	return config.Load()
}

// loadTemplate reads a maze template as a sequence of equal-length,
// newline-terminated rows; the file's end is the template's terminator.
// Validation of rectangularity and the reserved-letter rule happens inside
// maze.New, which is the authority on what makes a template well-formed.
func loadTemplate(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rows = append(rows, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func addrPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
