package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/log"
	"github.com/dudk/cochlea/metric"
)

type runOptions struct {
	block   int
	threads int
	ticks   int
	timeout time.Duration
}

func newRunCommand(r *cochlea.Registry, logger *logrus.Logger) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <graph.yaml>",
		Short: "Execute a graph file",
		Long: `Execute a graph file until the requested number of ticks is done, a
source reaches the end of its stream or the command is interrupted.

Flags override values of the graph file.

Example:
  cochlea run tone.yaml --threads 4 --ticks 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("block") {
				c.Block = opts.block
			}
			if flags.Changed("threads") {
				c.Threads = opts.threads
			}
			if flags.Changed("ticks") {
				c.Ticks = opts.ticks
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			return run(ctx, c, r, logger)
		},
	}
	cmd.Flags().IntVarP(&opts.block, "block", "b", 512, "block size, samples")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 1, "number of workers for channel-parallel nodes")
	cmd.Flags().IntVarP(&opts.ticks, "ticks", "n", 0, "number of ticks, 0 runs until the end of stream")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "stop after this duration")
	return cmd
}

// run executes the graph. Interruption by context is not an error.
func run(ctx context.Context, c *config, r *cochlea.Registry, logger *logrus.Logger) error {
	g, err := c.build(r, logger)
	if err != nil {
		return err
	}
	defer g.Close()
	s, err := cochlea.NewScheduler(g, c.Block, cochlea.WithThreads(c.Threads))
	if err != nil {
		return err
	}

	start := time.Now()
	err = cochlea.Wait(s.Run(ctx, c.Ticks))
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"ticks":   s.Ticks(),
		"samples": s.Offset(),
		"elapsed": time.Since(start),
	}).Info("graph stopped")
	for _, n := range g.Nodes() {
		log.Node(logger, n.ID(), n.Name(), fmt.Sprintf("%T", n.Module())).
			WithField("cursor", n.Cursor()).
			Debug(n.State())
	}
	if c.Metrics {
		for module, counters := range metric.GetAll() {
			logger.WithField("module", module).Info(counters)
		}
	}
	return nil
}
