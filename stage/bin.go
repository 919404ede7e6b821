package stage

import (
	"fmt"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
)

const carry = "carry"

// Bin averages input samples over bins of fixed width. Output sample
// interval equals the bin width. Samples of an incomplete bin are kept in
// the carry child until the next tick, so the number of output samples
// may vary between ticks.
type Bin struct {
	noHooks
}

type binState struct {
	size  int // samples in a bin
	count int // samples in carry
}

// Capabilities implements cochlea.Module.
func (*Bin) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1}
}

// Schema implements cochlea.Module.
func (*Bin) Schema() param.Schema {
	return param.Schema{
		{Name: "binwidth", Kind: param.Real, Default: 1e-3, Mutability: param.Structural, Doc: "bin width, s"},
		{Name: "mode", Kind: param.Enum, Default: "average", Choices: []string{"average", "sum"}, Mutability: param.Coefficient},
	}
}

// Validate implements cochlea.Module.
func (*Bin) Validate(n *cochlea.Node) error {
	width, dt := n.Params().Real("binwidth"), n.Input(0).Dt()
	if width < dt {
		return &cochlea.ConfigurationError{
			Param: "binwidth",
			Got:   width,
			Want:  fmt.Sprintf("at least upstream sample interval %v", dt),
		}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*Bin) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	in := n.Input(0)
	size := samplesOf(n.Params().Real("binwidth"), in.Dt())
	if size < 1 {
		size = 1
	}
	state, ok := n.Private().(*binState)
	if !ok || e.StreamStart || state.size != size || n.Child(carry).Output().Channels() != in.Channels() {
		state = &binState{size: size}
		n.SetPrivate(state)
	}
	if err := n.Child(carry).Output().Allocate(in.Channels(), size, in.Dt()); err != nil {
		return err
	}
	out := n.Output()
	if err := out.Allocate(in.Channels(), (state.count+in.Len())/size, in.Dt()*float64(size)); err != nil {
		return err
	}
	if err := out.SetLabels(in.Labels()); err != nil {
		return err
	}
	return out.SetCFs(in.CFs())
}

// Run implements cochlea.Module.
func (*Bin) Run(n *cochlea.Node, e cochlea.Execution) error {
	state := n.Private().(*binState)
	in, out, rest := n.Input(0), n.Output(), n.Child(carry).Output()
	bins := (state.count + in.Len()) / state.size
	if err := out.Allocate(in.Channels(), bins, in.Dt()*float64(state.size)); err != nil {
		return err
	}
	scale := 1 / float64(state.size)
	if n.Params().Enum("mode") == "sum" {
		scale = 1
	}

	count := state.count
	for c := 0; c < in.Channels(); c++ {
		src, dst, buf := in.Channel(c), out.Channel(c), rest.Channel(c)
		count = state.count
		bin := 0
		for _, v := range src {
			buf[count] = v
			count++
			if count == state.size {
				sum := 0.0
				for _, b := range buf {
					sum += b
				}
				dst[bin] = sum * scale
				bin++
				count = 0
			}
		}
	}
	state.count = count
	return nil
}

// Teardown implements cochlea.Module.
func (*Bin) Teardown(n *cochlea.Node) {
	n.SetPrivate(nil)
}
