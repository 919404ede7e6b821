// Package mock provides instrumented modules and allows to execute
// integration tests of graphs.
package mock

import (
	"io"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

const defaultDt = 1.0 / 44100

// Source mocks a module without inputs. It produces Channels channels
// filled with Value. If Ramp is set, sample index within the stream is
// added to every sample.
type Source struct {
	counter
	Hooks
	Channels int
	Value    float64
	Ramp     bool
	Dt       float64
	// Limit is the number of samples in the stream. If zero, stream is
	// endless. When limit is reached, Run returns io.EOF.
	Limit int
	// NotReady is the number of first runs which return ErrNotReady.
	NotReady int
	// Lazy source allocates its output in the first successful run
	// instead of prepare.
	Lazy bool
}

func (m *Source) shape() (int, float64) {
	channels, dt := m.Channels, m.Dt
	if channels == 0 {
		channels = 1
	}
	if dt == 0 {
		dt = defaultDt
	}
	return channels, dt
}

// Capabilities implements cochlea.Module.
func (m *Source) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{}
}

// Schema implements cochlea.Module.
func (m *Source) Schema() param.Schema {
	return param.Schema{
		{Name: "value", Kind: param.Real, Default: 0.0, Mutability: param.Coefficient},
	}
}

// Validate implements cochlea.Module.
func (m *Source) Validate(n *cochlea.Node) error {
	m.Validates++
	return m.ErrorOnValidate
}

// Prepare implements cochlea.Module.
func (m *Source) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	m.prepared()
	if m.ErrorOnPrepare != nil {
		return m.ErrorOnPrepare
	}
	if e.StreamStart {
		m.reset()
	}
	if m.Lazy {
		return nil
	}
	channels, dt := m.shape()
	return n.Output().Allocate(channels, e.Samples, dt)
}

// Run implements cochlea.Module.
func (m *Source) Run(n *cochlea.Node, e cochlea.Execution) error {
	m.ran(e)
	if m.ErrorOnRun != nil {
		return m.ErrorOnRun
	}
	if m.NotReady > 0 {
		m.NotReady--
		return cochlea.ErrNotReady
	}
	out := n.Output()
	if m.Lazy && out.Channels() == 0 {
		channels, dt := m.shape()
		if err := out.Allocate(channels, e.Samples, dt); err != nil {
			return err
		}
	}
	size := e.Samples
	if m.Limit > 0 {
		left := m.Limit - int(e.Offset)
		if left <= 0 {
			return io.EOF
		}
		if left < size {
			size = left
			if err := out.Allocate(out.Channels(), size, out.Dt()); err != nil {
				return err
			}
		}
	}
	value := m.Value + n.Params().Real("value")
	for c := 0; c < out.Channels(); c++ {
		ch := out.Channel(c)
		for i := range ch {
			ch[i] = value
			if m.Ramp {
				ch[i] += float64(e.Offset) + float64(i)
			}
		}
	}
	m.advance(size)
	return nil
}

// Reset implements cochlea.Module.
func (m *Source) Reset(n *cochlea.Node) {
	m.Resets++
}

// Teardown implements cochlea.Module.
func (m *Source) Teardown(n *cochlea.Node) {
	m.Teardowns++
}

// Processor mocks a module with a single input. It copies input to the
// output multiplied by gain parameter. Processor declares parameters of
// every mutability:
//
//	gain - coefficient real, default 1;
//	order - structural int, default 1;
//	mode - fixed enum of "copy" and "zero", default "copy".
type Processor struct {
	counter
	Hooks
	// Changed holds names of parameters reported by node on every prepare.
	Changed [][]string
}

// Capabilities implements cochlea.Module.
func (m *Processor) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1}
}

// Schema implements cochlea.Module.
func (m *Processor) Schema() param.Schema {
	return param.Schema{
		{Name: "gain", Kind: param.Real, Default: 1.0, Mutability: param.Coefficient},
		{Name: "order", Kind: param.Int, Default: 1, Mutability: param.Structural},
		{Name: "mode", Kind: param.Enum, Default: "copy", Choices: []string{"copy", "zero"}, Mutability: param.Fixed},
	}
}

// Validate implements cochlea.Module.
func (m *Processor) Validate(n *cochlea.Node) error {
	m.Validates++
	return m.ErrorOnValidate
}

// Prepare implements cochlea.Module.
func (m *Processor) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	m.prepared()
	m.Changed = append(m.Changed, n.Changed())
	if m.ErrorOnPrepare != nil {
		return m.ErrorOnPrepare
	}
	if e.StreamStart {
		m.reset()
	}
	in := n.Input(0)
	return n.Output().Allocate(in.Channels(), in.Len(), in.Dt())
}

// Run implements cochlea.Module.
func (m *Processor) Run(n *cochlea.Node, e cochlea.Execution) error {
	m.ran(e)
	if m.ErrorOnRun != nil {
		return m.ErrorOnRun
	}
	in, out := n.Input(0), n.Output()
	gain := n.Params().Real("gain")
	if n.Params().Enum("mode") == "zero" {
		gain = 0
	}
	for c := 0; c < in.Channels(); c++ {
		src, dst := in.Channel(c), out.Channel(c)
		for i := range src {
			dst[i] = src[i] * gain
		}
	}
	m.advance(in.Len())
	return nil
}

// Reset implements cochlea.Module.
func (m *Processor) Reset(n *cochlea.Node) {
	m.Resets++
}

// Teardown implements cochlea.Module.
func (m *Processor) Teardown(n *cochlea.Node) {
	m.Teardowns++
}

// Sink mocks a module with a single input and no output. It accumulates
// received samples unless Discard is set.
// Buffer is not thread-safe, so should not be checked while scheduler is
// running.
type Sink struct {
	counter
	Hooks
	buffer  signal.Float64
	Discard bool
}

// Capabilities implements cochlea.Module.
func (m *Sink) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1}
}

// Schema implements cochlea.Module.
func (m *Sink) Schema() param.Schema {
	return nil
}

// Validate implements cochlea.Module.
func (m *Sink) Validate(n *cochlea.Node) error {
	m.Validates++
	return m.ErrorOnValidate
}

// Prepare implements cochlea.Module.
func (m *Sink) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	m.prepared()
	if e.StreamStart {
		m.buffer = nil
		m.reset()
	}
	return m.ErrorOnPrepare
}

// Run implements cochlea.Module.
func (m *Sink) Run(n *cochlea.Node, e cochlea.Execution) error {
	m.ran(e)
	if m.ErrorOnRun != nil {
		return m.ErrorOnRun
	}
	in := n.Input(0)
	if !m.Discard {
		m.buffer = m.buffer.Append(in.Data())
	}
	m.advance(in.Len())
	return nil
}

// Reset implements cochlea.Module.
func (m *Sink) Reset(n *cochlea.Node) {
	m.Resets++
}

// Teardown implements cochlea.Module.
func (m *Sink) Teardown(n *cochlea.Node) {
	m.Teardowns++
}

// Buffer returns sink's buffer.
func (m *Sink) Buffer() signal.Float64 {
	return m.buffer
}

// Hooks allows to mock module hooks.
type Hooks struct {
	Validates    int
	Prepares     int
	Runs         int
	Resets       int
	Teardowns    int
	StreamStarts int

	ErrorOnValidate error
	ErrorOnPrepare  error
	ErrorOnRun      error
}

func (h *Hooks) prepared() {
	h.Prepares++
}

func (h *Hooks) ran(e cochlea.Execution) {
	h.Runs++
	if e.StreamStart {
		h.StreamStarts++
	}
}

// counter counts messages and samples.
type counter struct {
	messages int
	samples  int
}

// reset resets counter's metrics.
func (c *counter) reset() {
	c.messages, c.samples = 0, 0
}

// advance counter's metrics.
func (c *counter) advance(size int) {
	c.messages++
	c.samples = c.samples + size
}

// Count returns messages and samples metrics.
func (c *counter) Count() (int, int) {
	return c.messages, c.samples
}
