package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/log"
)

// config is the graph file.
type config struct {
	Block   int          `yaml:"block"`
	Threads int          `yaml:"threads"`
	Ticks   int          `yaml:"ticks"`
	Metrics bool         `yaml:"metrics"`
	Nodes   []nodeConfig `yaml:"nodes"`
	Edges   []edgeConfig `yaml:"edges"`
}

type nodeConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

type edgeConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Slot int    `yaml:"slot"`
}

// loadConfig reads graph file. Missing block size and number of threads
// are set to defaults.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*config, error) {
	c := config{
		Block:   512,
		Threads: 1,
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(c.Nodes) == 0 {
		return nil, fmt.Errorf("graph has no nodes")
	}
	return &c, nil
}

// build creates the graph described by config. Modules are created with
// the registry.
func (c *config) build(r *cochlea.Registry, logger *logrus.Logger) (*cochlea.Graph, error) {
	options := []cochlea.GraphOption{cochlea.WithLogger(logger)}
	if c.Metrics {
		options = append(options, cochlea.WithMetrics())
	}
	g, err := cochlea.NewGraph(options...)
	if err != nil {
		return nil, err
	}
	for _, nc := range c.Nodes {
		m, err := r.New(nc.Type)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("node %s: %w", nc.Name, err)
		}
		n, err := g.CreateNode(nc.Name, m, cochlea.WithParams(nc.Params))
		if err != nil {
			g.Close()
			return nil, err
		}
		log.Node(logger, n.ID(), n.Name(), nc.Type).Debug("node created")
	}
	for _, ec := range c.Edges {
		from, to := g.Node(ec.From), g.Node(ec.To)
		if from == nil || to == nil {
			g.Close()
			return nil, fmt.Errorf("edge %s -> %s: %w", ec.From, ec.To, cochlea.ErrUnknownNode)
		}
		if err := g.AddEdge(from, to, ec.Slot); err != nil {
			g.Close()
			return nil, err
		}
	}
	return g, nil
}
