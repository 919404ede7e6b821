package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dudk/cochlea"
)

func newModulesCommand(r *cochlea.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "modules [type...]",
		Short: "List available modules and their parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = r.Names()
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				m, err := r.New(name)
				if err != nil {
					return err
				}
				caps := m.Capabilities()
				fmt.Fprintf(w, "%s\tinputs: %d\toptional: %d\tchannel-parallel: %v\n", name, caps.Inputs, caps.OptionalInputs, caps.ChannelParallel)
				for _, spec := range m.Schema() {
					fmt.Fprintf(w, "  %s\t%v\t%v\tdefault %v", spec.Name, spec.Kind, spec.Mutability, spec.Default)
					if len(spec.Choices) > 0 {
						fmt.Fprintf(w, " of %v", spec.Choices)
					}
					if spec.Doc != "" {
						fmt.Fprintf(w, "\t%s", spec.Doc)
					}
					fmt.Fprintln(w)
				}
			}
			return w.Flush()
		},
	}
}
