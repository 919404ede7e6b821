package stage

import (
	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
)

const (
	history = "history"
	scratch = "scratch"
)

// Delay delays the signal by a fixed time. The delay line is kept in the
// history child, so segmented execution produces the same output as a
// single tick.
type Delay struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*Delay) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1, ChannelParallel: true}
}

// Schema implements cochlea.Module.
func (*Delay) Schema() param.Schema {
	return param.Schema{
		{Name: "delay", Kind: param.Real, Default: 1e-3, Mutability: param.Structural, Doc: "delay, s"},
	}
}

// Validate implements cochlea.Module.
func (*Delay) Validate(n *cochlea.Node) error {
	if d := n.Params().Real("delay"); d < 0 {
		return &cochlea.ConfigurationError{Param: "delay", Got: d, Want: "non-negative value"}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*Delay) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	in := n.Input(0)
	return prepareCarry(n, samplesOf(n.Params().Real("delay"), in.Dt()))
}

// Run implements cochlea.Module.
func (*Delay) Run(n *cochlea.Node, e cochlea.Execution) error {
	var (
		in   = e.View(n.Input(0))
		out  = e.View(n.Output())
		line = e.View(n.Child(history).Output())
		tmp  = e.View(n.Child(scratch).Output())
	)
	size := in.Len()
	for c := 0; c < in.Channels(); c++ {
		buf := concat(tmp.Channel(c), line.Channel(c), in.Channel(c))
		copy(out.Channel(c), buf[:size])
		copy(line.Channel(c), buf[size:])
	}
	return nil
}

// FIR is a finite impulse response filter. Coefficients are coefficient
// parameters: changing them with the same number of taps keeps the filter
// history, changing the number of taps starts with empty history.
type FIR struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*FIR) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1, ChannelParallel: true}
}

// Schema implements cochlea.Module.
func (*FIR) Schema() param.Schema {
	return param.Schema{
		{Name: "coefficients", Kind: param.RealArray, Default: []float64{1}, Mutability: param.Coefficient, Doc: "filter taps"},
	}
}

// Validate implements cochlea.Module.
func (*FIR) Validate(n *cochlea.Node) error {
	if taps := len(n.Params().Reals("coefficients")); taps == 0 {
		return &cochlea.ConfigurationError{Param: "coefficients", Got: taps, Want: "at least 1 tap"}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*FIR) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	taps := n.Params().Reals("coefficients")
	if len(taps) == 0 {
		return &cochlea.ConfigurationError{Param: "coefficients", Got: 0, Want: "at least 1 tap"}
	}
	n.SetPrivate(taps)
	return prepareCarry(n, len(taps)-1)
}

// Run implements cochlea.Module.
func (*FIR) Run(n *cochlea.Node, e cochlea.Execution) error {
	var (
		taps = n.Private().([]float64)
		in   = e.View(n.Input(0))
		out  = e.View(n.Output())
		hist = e.View(n.Child(history).Output())
		tmp  = e.View(n.Child(scratch).Output())
	)
	order := len(taps) - 1
	size := in.Len()
	for c := 0; c < in.Channels(); c++ {
		buf := concat(tmp.Channel(c), hist.Channel(c), in.Channel(c))
		dst := out.Channel(c)
		for i := range dst {
			sum := 0.0
			for k, h := range taps {
				sum += h * buf[order+i-k]
			}
			dst[i] = sum
		}
		copy(hist.Channel(c), buf[size:])
	}
	return nil
}

// Teardown implements cochlea.Module.
func (*FIR) Teardown(n *cochlea.Node) {
	n.SetPrivate(nil)
}

// prepareCarry allocates output with the input shape, the history child
// of provided length and the scratch child which fits history followed by
// input. History is kept if its shape is unchanged.
func prepareCarry(n *cochlea.Node, length int) error {
	in := n.Input(0)
	if err := follow(n.Output(), in); err != nil {
		return err
	}
	if err := n.Child(history).Output().Allocate(in.Channels(), length, in.Dt()); err != nil {
		return err
	}
	return n.Child(scratch).Output().Allocate(in.Channels(), length+in.Len(), in.Dt())
}

// concat writes head followed by tail into dst and returns it.
func concat(dst, head, tail []float64) []float64 {
	copy(dst, head)
	copy(dst[len(head):], tail)
	return dst[:len(head)+len(tail)]
}
