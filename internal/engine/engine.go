// Package engine bundles the maze, player table and client registry into
// the single value the supervisor and client-service tasks share, instead
// of reaching through package-level globals.
package engine

import (
	"code.mazewar.dev/mazewar/internal/maze"
	"code.mazewar.dev/mazewar/internal/player"
	"code.mazewar.dev/mazewar/internal/registry"
)

// Engine is the complete in-memory game state for one server process.
type Engine struct {
	Maze     *maze.Maze
	Table    *player.Table
	Registry *registry.Registry
}

// New builds the maze from template and wires up an empty player table and
// client registry over it.
func New(template []string, viewDepth int) (*Engine, error) {
	mz, err := maze.New(template)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Maze:     mz,
		Table:    player.NewTable(mz, viewDepth),
		Registry: registry.New(),
	}, nil
}
