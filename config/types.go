// Package config loads the run configuration: how the mesh is finalized,
// partitioned and layered, and how the process logs.
package config

import (
	"fmt"
	"strings"

	"github.com/cmesse/belfem-sub005/ghost"
	"github.com/cmesse/belfem-sub005/partitions"
)

// Config is the root configuration
type Config struct {
	Mesh      MeshConfig      `yaml:"mesh" json:"mesh"`
	Partition PartitionConfig `yaml:"partition" json:"partition"`
	Ghost     []GhostConfig   `yaml:"ghost" json:"ghost"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// MeshConfig controls reading and finalizing the mesh
type MeshConfig struct {
	File                string `yaml:"file" json:"file"`
	ComputeConnectivity bool   `yaml:"compute_connectivity" json:"compute_connectivity"`
	Edges               bool   `yaml:"edges" json:"edges"`
	Faces               bool   `yaml:"faces" json:"faces"`
}

// PartitionConfig controls the domain partitioner
type PartitionConfig struct {
	NumPartitions int      `yaml:"num_partitions" json:"num_partitions"`
	Strategy      string   `yaml:"strategy" json:"strategy"`
	Blocks        []uint64 `yaml:"blocks" json:"blocks"`
}

// GhostConfig describes one ghost stack. GhostSideSets[0] is the existing
// sideset the stack grows on; one block per layer follows it.
type GhostConfig struct {
	GhostSideSets []uint64 `yaml:"ghost_sidesets" json:"ghost_sidesets"`
	Blocks        []uint64 `yaml:"blocks" json:"blocks"`
	Facets        []uint64 `yaml:"facets" json:"facets"`
	CloneNodes    bool     `yaml:"clone_nodes" json:"clone_nodes"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Mesh: MeshConfig{ComputeConnectivity: true},
		Partition: PartitionConfig{
			NumPartitions: 1,
			Strategy:      partitions.GraphPartition.String(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Partition.NumPartitions < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPartitionCount, c.Partition.NumPartitions)
	}
	if _, err := c.Strategy(); err != nil {
		return err
	}
	for i, g := range c.Ghost {
		if len(g.Blocks) == 0 || len(g.GhostSideSets) != len(g.Blocks)+1 {
			return fmt.Errorf("%w: stack %d has %d blocks and %d sidesets",
				ErrInvalidGhostLayers, i, len(g.Blocks), len(g.GhostSideSets))
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}

// Strategy parses the configured partition strategy
func (c *Config) Strategy() (partitions.PartitionStrategy, error) {
	s, err := partitions.ParseStrategy(c.Partition.Strategy)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
	}
	return s, nil
}

// GhostRequests converts the ghost stacks into linker requests
func (c *Config) GhostRequests() []ghost.Request {
	reqs := make([]ghost.Request, len(c.Ghost))
	for i, g := range c.Ghost {
		reqs[i] = ghost.Request{
			SideSets:   g.GhostSideSets,
			Blocks:     g.Blocks,
			Facets:     g.Facets,
			CloneNodes: g.CloneNodes,
		}
	}
	return reqs
}
