package crnfile

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/turtacn/vizcrn/internal/domain/network"
	"github.com/turtacn/vizcrn/pkg/errors"
)

// PathfinderFile stores a pathfinder graph as a JSON document on disk.
type PathfinderFile struct {
	path string
}

// NewPathfinderFile returns a file-backed network.PathfinderCache.
func NewPathfinderFile(path string) *PathfinderFile {
	return &PathfinderFile{path: path}
}

var _ network.PathfinderCache = (*PathfinderFile)(nil)

// Load reads the graph. A missing file is a CodeCacheMiss.
func (p *PathfinderFile) Load(_ context.Context) (*network.PathfinderGraph, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.CodeCacheMiss, "pathfinder file not found").WithDetail(p.path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "read pathfinder file").WithDetail(p.path)
	}
	var g network.PathfinderGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode pathfinder file").WithDetail(p.path)
	}
	return &g, nil
}

// Save overwrites the file with g.
func (p *PathfinderFile) Save(_ context.Context, g *network.PathfinderGraph) error {
	return writeFile(p.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode pathfinder graph")
		}
		return nil
	})
}
