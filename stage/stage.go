// Package stage provides generic utility modules: signal generators,
// gain and mixing, binning and carry-state filters. Modules keep all
// running state in the node, so a single module value can be bound to any
// number of nodes.
package stage

import (
	"fmt"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/signal"
)

// Register adds all modules of this package to the registry.
func Register(r *cochlea.Registry) error {
	factories := []struct {
		name    string
		factory cochlea.Factory
	}{
		{"sine", func() cochlea.Module { return &Sine{} }},
		{"constant", func() cochlea.Module { return &Constant{} }},
		{"noise", func() cochlea.Module { return &Noise{} }},
		{"gain", func() cochlea.Module { return &Gain{} }},
		{"sum", func() cochlea.Module { return &Sum{} }},
		{"bin", func() cochlea.Module { return &Bin{} }},
		{"delay", func() cochlea.Module { return &Delay{} }},
		{"fir", func() cochlea.Module { return &FIR{} }},
	}
	for _, f := range factories {
		if err := r.Register(f.name, f.factory); err != nil {
			return err
		}
	}
	return nil
}

// noHooks implements module hooks which have nothing to do.
type noHooks struct{}

// Reset implements cochlea.Module.
func (noHooks) Reset(*cochlea.Node) {}

// Teardown implements cochlea.Module.
func (noHooks) Teardown(*cochlea.Node) {}

// follow allocates out with the shape of in and copies channel metadata.
func follow(out, in *signal.Buffer) error {
	if err := out.Allocate(in.Channels(), in.Len(), in.Dt()); err != nil {
		return err
	}
	if err := out.SetLabels(in.Labels()); err != nil {
		return err
	}
	return out.SetCFs(in.CFs())
}

func positive(name string, v float64) error {
	if v > 0 {
		return nil
	}
	return &cochlea.ConfigurationError{Param: name, Got: v, Want: "positive value"}
}

func atLeast(name string, v, min int) error {
	if v >= min {
		return nil
	}
	return &cochlea.ConfigurationError{Param: name, Got: v, Want: fmt.Sprintf("at least %d", min)}
}

// samplesOf converts duration in seconds to the number of samples.
func samplesOf(seconds, dt float64) int {
	return int(seconds/dt + 0.5)
}
