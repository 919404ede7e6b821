package stage

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
)

// Gain multiplies every sample by a constant factor. Gain is a coefficient
// parameter: its change only refills the gain vector.
type Gain struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*Gain) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1, ChannelParallel: true}
}

// Schema implements cochlea.Module.
func (*Gain) Schema() param.Schema {
	return param.Schema{
		{Name: "gain", Kind: param.Real, Default: 1.0, Mutability: param.Coefficient, Doc: "linear gain factor"},
	}
}

// Validate implements cochlea.Module.
func (*Gain) Validate(n *cochlea.Node) error {
	return nil
}

// Prepare implements cochlea.Module.
func (*Gain) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	in := n.Input(0)
	if err := follow(n.Output(), in); err != nil {
		return err
	}
	gains, _ := n.Private().([]float64)
	if len(gains) != in.Len() {
		gains = make([]float64, in.Len())
	}
	g := n.Params().Real("gain")
	for i := range gains {
		gains[i] = g
	}
	n.SetPrivate(gains)
	return nil
}

// Run implements cochlea.Module.
func (*Gain) Run(n *cochlea.Node, e cochlea.Execution) error {
	gains := n.Private().([]float64)
	in, out := e.View(n.Input(0)), e.View(n.Output())
	for c := 0; c < in.Channels(); c++ {
		vecmath.MulBlock(out.Channel(c), in.Channel(c), gains)
	}
	return nil
}

// Teardown implements cochlea.Module.
func (*Gain) Teardown(n *cochlea.Node) {
	n.SetPrivate(nil)
}

// Sum collapses all channels of all connected inputs into a single
// channel. In average mode the sum is divided by the number of summed
// channels. Connected inputs must share length and sample interval.
type Sum struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*Sum) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1, OptionalInputs: 3}
}

// Schema implements cochlea.Module.
func (*Sum) Schema() param.Schema {
	return param.Schema{
		{Name: "mode", Kind: param.Enum, Default: "sum", Choices: []string{"sum", "average"}, Mutability: param.Coefficient},
	}
}

// Validate implements cochlea.Module.
func (*Sum) Validate(n *cochlea.Node) error {
	first := n.Input(0)
	for slot := 1; slot < n.Slots(); slot++ {
		in := n.Input(slot)
		if in == nil {
			continue
		}
		if in.Dt() != first.Dt() {
			return &cochlea.ConfigurationError{Param: "dt", Got: in.Dt(), Want: first.Dt()}
		}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*Sum) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	first := n.Input(0)
	for slot := 1; slot < n.Slots(); slot++ {
		in := n.Input(slot)
		if in == nil {
			continue
		}
		if in.Len() != first.Len() {
			return &cochlea.ConfigurationError{Param: "length", Got: in.Len(), Want: first.Len()}
		}
	}
	return n.Output().Allocate(1, first.Len(), first.Dt())
}

// Run implements cochlea.Module.
func (*Sum) Run(n *cochlea.Node, e cochlea.Execution) error {
	out := n.Output().Channel(0)
	clear(out)
	summed := 0
	for slot := 0; slot < n.Slots(); slot++ {
		in := n.Input(slot)
		if in == nil {
			continue
		}
		for c := 0; c < in.Channels(); c++ {
			vecmath.AddBlockInPlace(out, in.Channel(c))
			summed++
		}
	}
	if n.Params().Enum("mode") == "average" && summed > 0 {
		vecmath.ScaleBlock(out, out, 1/float64(summed))
	}
	return nil
}
