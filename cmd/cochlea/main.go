// Command cochlea executes signal processing graphs described in YAML
// files.
//
// Usage:
//
//	cochlea [flags] <command> [args]
//
// Commands:
//
//	run     - execute a graph file
//	modules - list available modules and their parameters
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/log"
	"github.com/dudk/cochlea/spectrum"
	"github.com/dudk/cochlea/stage"
	"github.com/dudk/cochlea/wav"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCommand creates the command tree. Every call returns independent
// commands, so tests can execute them concurrently.
func newRootCommand() *cobra.Command {
	var verbose bool
	logger := log.GetLogger()
	root := &cobra.Command{
		Use:   "cochlea",
		Short: "Block-based signal processing graph runner",
		Long: `Cochlea executes directed acyclic graphs of signal processing modules.

A graph file lists nodes with their module types and parameters and edges
between them. Sources produce a block of samples on every tick, the rest of
nodes follow the shape of their inputs.

Example graph file (tone.yaml):
  block: 441
  ticks: 100
  nodes:
    - name: tone
      type: sine
      params: {frequency: 440, amplitude: 0.5}
    - name: out
      type: wav.sink
      params: {file: tone.wav}
  edges:
    - {from: tone, to: out}`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(cmd.ErrOrStderr())
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output, same as "+log.DebugEnv+"=true")

	modules := registry()
	root.AddCommand(newRunCommand(modules, logger))
	root.AddCommand(newModulesCommand(modules))
	return root
}

// registry returns registry with all modules of this repository.
func registry() *cochlea.Registry {
	r := cochlea.NewRegistry()
	for _, register := range []func(*cochlea.Registry) error{
		stage.Register,
		spectrum.Register,
		wav.Register,
	} {
		if err := register(r); err != nil {
			panic(err)
		}
	}
	return r
}
