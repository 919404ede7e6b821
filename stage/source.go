package stage

import (
	"math"
	"math/rand/v2"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

// sourceSchema holds parameters shared by all generators.
var sourceSchema = param.Schema{
	{Name: "channels", Kind: param.Int, Default: 1, Mutability: param.Structural, Doc: "number of output channels"},
	{Name: "dt", Kind: param.Real, Default: 1.0 / 44100, Mutability: param.Fixed, Doc: "sample interval, s"},
}

func validateSource(n *cochlea.Node) error {
	if err := atLeast("channels", n.Params().Int("channels"), 1); err != nil {
		return err
	}
	return positive("dt", n.Params().Real("dt"))
}

func prepareSource(n *cochlea.Node, e cochlea.Execution) error {
	return n.Output().Allocate(n.Params().Int("channels"), e.Samples, n.Params().Real("dt"))
}

// Sine generates a pure tone. Samples are derived from the stream offset,
// so segmented execution produces the same signal as a single tick.
type Sine struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*Sine) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{}
}

// Schema implements cochlea.Module.
func (*Sine) Schema() param.Schema {
	return append(param.Schema{
		{Name: "frequency", Kind: param.Real, Default: 1000.0, Mutability: param.Coefficient, Doc: "tone frequency, Hz"},
		{Name: "amplitude", Kind: param.Real, Default: 1.0, Mutability: param.Coefficient},
		{Name: "phase", Kind: param.Real, Default: 0.0, Mutability: param.Coefficient, Doc: "initial phase, rad"},
	}, sourceSchema...)
}

// Validate implements cochlea.Module.
func (*Sine) Validate(n *cochlea.Node) error {
	if err := validateSource(n); err != nil {
		return err
	}
	frequency, dt := n.Params().Real("frequency"), n.Params().Real("dt")
	if nyquist := 0.5 / dt; frequency > nyquist {
		return &cochlea.ConfigurationError{Param: "frequency", Got: frequency, Want: "below Nyquist frequency"}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*Sine) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	return prepareSource(n, e)
}

// Run implements cochlea.Module.
func (*Sine) Run(n *cochlea.Node, e cochlea.Execution) error {
	var (
		p         = n.Params()
		out       = n.Output()
		amplitude = p.Real("amplitude")
		phase     = p.Real("phase")
		w         = 2 * math.Pi * p.Real("frequency") * out.Dt()
	)
	first := out.Channel(0)
	for i := range first {
		first[i] = amplitude * math.Sin(w*float64(e.Offset+int64(i))+phase)
	}
	for c := 1; c < out.Channels(); c++ {
		copy(out.Channel(c), first)
	}
	return nil
}

// Constant generates a constant signal.
type Constant struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*Constant) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{}
}

// Schema implements cochlea.Module.
func (*Constant) Schema() param.Schema {
	return append(param.Schema{
		{Name: "value", Kind: param.Real, Default: 0.0, Mutability: param.Coefficient},
	}, sourceSchema...)
}

// Validate implements cochlea.Module.
func (*Constant) Validate(n *cochlea.Node) error {
	return validateSource(n)
}

// Prepare implements cochlea.Module.
func (*Constant) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	return prepareSource(n, e)
}

// Run implements cochlea.Module.
func (*Constant) Run(n *cochlea.Node, e cochlea.Execution) error {
	value := n.Params().Real("value")
	out := n.Output()
	for c := 0; c < out.Channels(); c++ {
		ch := out.Channel(c)
		for i := range ch {
			ch[i] = value
		}
	}
	return nil
}

// Noise generates gaussian white noise. Every channel has its own
// generator seeded from the seed parameter and the channel index, so the
// output doesn't depend on number of threads. Generators are created at
// stream start and carry their state across ticks.
type Noise struct {
	noHooks
}

// Capabilities implements cochlea.Module.
func (*Noise) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{ChannelParallel: true}
}

// Schema implements cochlea.Module.
func (*Noise) Schema() param.Schema {
	return append(param.Schema{
		{Name: "amplitude", Kind: param.Real, Default: 1.0, Mutability: param.Coefficient, Doc: "standard deviation"},
		{Name: "seed", Kind: param.Int, Default: 0, Mutability: param.Fixed},
	}, sourceSchema...)
}

// Validate implements cochlea.Module.
func (*Noise) Validate(n *cochlea.Node) error {
	return validateSource(n)
}

// Prepare implements cochlea.Module.
func (*Noise) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	if err := prepareSource(n, e); err != nil {
		return err
	}
	channels := n.Output().Channels()
	generators, ok := n.Private().([]*rand.Rand)
	if ok && len(generators) == channels && !e.StreamStart {
		return nil
	}
	seed := uint64(n.Params().Int("seed"))
	generators = make([]*rand.Rand, channels)
	for c := range generators {
		generators[c] = rand.New(rand.NewPCG(signal.Seed(seed, c), 0))
	}
	n.SetPrivate(generators)
	return nil
}

// Run implements cochlea.Module.
func (*Noise) Run(n *cochlea.Node, e cochlea.Execution) error {
	generators := n.Private().([]*rand.Rand)
	amplitude := n.Params().Real("amplitude")
	out := e.View(n.Output())
	for c := 0; c < out.Channels(); c++ {
		r := generators[out.Offset()+c]
		ch := out.Channel(c)
		for i := range ch {
			ch[i] = amplitude * r.NormFloat64()
		}
	}
	return nil
}

// Teardown implements cochlea.Module.
func (*Noise) Teardown(n *cochlea.Node) {
	n.SetPrivate(nil)
}
