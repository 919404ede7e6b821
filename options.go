package cochlea

import (
	"fmt"

	"github.com/dudk/cochlea/log"
)

// Logger is a global interface for cochlea loggers.
type Logger = log.Logger

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger

// GraphOption provides a way to set functional parameters to graph.
type GraphOption func(g *Graph) error

// WithLogger sets logger to Graph. If this option is not provided, silent
// logger is used.
func WithLogger(logger Logger) GraphOption {
	return func(g *Graph) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		g.log = logger
		return nil
	}
}

// WithMetrics enables expvar metrics for all nodes of the graph.
func WithMetrics() GraphOption {
	return func(g *Graph) error {
		g.metrics = true
		return nil
	}
}

// NodeOption provides a way to set functional parameters to node.
type NodeOption func(g *Graph, n *Node) error

// WithParams sets initial parameter values. Node must have a bound module.
func WithParams(values map[string]interface{}) NodeOption {
	return func(g *Graph, n *Node) error {
		for name, v := range values {
			if err := g.SetParameter(n, name, v); err != nil {
				return err
			}
		}
		return nil
	}
}

// SchedulerOption provides a way to set functional parameters to scheduler.
type SchedulerOption func(s *Scheduler) error

// WithThreads sets number of workers for channel-parallel nodes.
func WithThreads(threads int) SchedulerOption {
	return func(s *Scheduler) error {
		return s.SetThreads(threads)
	}
}
